package trigger

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/dlclark/regexp2"
)

var ErrInvalidPattern = errors.New("invalid trigger pattern")

// Predicate reports whether a chat message triggers a command.
type Predicate func(text string) bool

const (
	leftBoundary  = `(?<=^|[.,;:!?\s])`
	rightBoundary = `(?=$|[.,;:!?'\s])`

	matchTimeout = 250 * time.Millisecond
)

// Compile builds the predicate for phrase under mode. Regex-based modes get
// the ignore-case option instead of lower-casing, since folding a pattern can
// change what it means.
func Compile(phrase string, mode Mode, caseSensitive bool) (Predicate, error) {
	if mode == "" {
		mode = ModeStrict
	}
	if mode.regexBased() {
		return compilePattern(patternFor(phrase, mode), caseSensitive, mode == ModeRegex)
	}

	cmp, err := literalComparison(mode)
	if err != nil {
		return nil, err
	}
	if caseSensitive {
		return func(text string) bool { return cmp(text, phrase) }, nil
	}
	folded := strings.ToLower(phrase)
	return func(text string) bool { return cmp(strings.ToLower(text), folded) }, nil
}

func literalComparison(mode Mode) (func(text, phrase string) bool, error) {
	switch mode {
	case ModeStrict:
		return func(text, phrase string) bool { return text == phrase }, nil
	case ModeFirstWord:
		return func(text, phrase string) bool {
			fields := strings.Fields(text)
			return len(fields) > 0 && fields[0] == phrase
		}, nil
	case ModeStartsWith:
		return func(text, phrase string) bool {
			return strings.HasPrefix(strings.TrimLeftFunc(text, unicode.IsSpace), phrase)
		}, nil
	case ModeIncludes:
		return strings.Contains, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, string(mode))
	}
}

func patternFor(phrase string, mode Mode) string {
	literal := regexp2.Escape(phrase)
	switch mode {
	case ModeExplicitlyStartsWith, ModeFirstWordStartsWith:
		return `^\s*` + literal + rightBoundary
	case ModeSomeWord:
		return leftBoundary + literal + rightBoundary
	case ModeSomeWordStartsWith:
		return leftBoundary + literal
	default:
		return phrase
	}
}

// User patterns get JavaScript semantics (ASCII \d and \w). The generated
// boundary patterns keep the default options.
func compilePattern(pattern string, caseSensitive, userPattern bool) (Predicate, error) {
	opts := regexp2.None
	if userPattern {
		opts |= regexp2.ECMAScript
	}
	if !caseSensitive {
		opts |= regexp2.IgnoreCase
	}
	re, err := regexp2.Compile(pattern, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	re.MatchTimeout = matchTimeout

	return func(text string) bool {
		ok, err := re.MatchString(text)
		return err == nil && ok
	}, nil
}

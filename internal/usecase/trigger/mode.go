package trigger

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownMode = errors.New("unknown comparison mode")

// Mode selects how a trigger phrase is compared against a chat message.
type Mode string

const (
	ModeStrict               Mode = "strict"
	ModeStartsWith           Mode = "startsWith"
	ModeExplicitlyStartsWith Mode = "explicitlyStartsWith"
	ModeFirstWord            Mode = "firstWord"
	ModeFirstWordStartsWith  Mode = "firstWordStartsWith"
	ModeSomeWord             Mode = "someWord"
	ModeSomeWordStartsWith   Mode = "someWordStartsWith"
	ModeIncludes             Mode = "includes"
	ModeRegex                Mode = "regex"
)

var modesByName = map[string]Mode{
	"strict":               ModeStrict,
	"startswith":           ModeStartsWith,
	"explicitlystartswith": ModeExplicitlyStartsWith,
	"firstword":            ModeFirstWord,
	"firstwordstartswith":  ModeFirstWordStartsWith,
	"someword":             ModeSomeWord,
	"somewordstartswith":   ModeSomeWordStartsWith,
	"includes":             ModeIncludes,
	"regex":                ModeRegex,
	"custom":               ModeRegex,
}

// ParseMode maps a configured mode name to a Mode. Names are matched without
// regard to case; an empty name means strict.
func ParseMode(name string) (Mode, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return ModeStrict, nil
	}
	mode, ok := modesByName[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, name)
	}
	return mode, nil
}

// Modes lists every supported mode.
func Modes() []Mode {
	return []Mode{
		ModeStrict,
		ModeStartsWith,
		ModeExplicitlyStartsWith,
		ModeFirstWord,
		ModeFirstWordStartsWith,
		ModeSomeWord,
		ModeSomeWordStartsWith,
		ModeIncludes,
		ModeRegex,
	}
}

func (m Mode) regexBased() bool {
	switch m {
	case ModeExplicitlyStartsWith, ModeFirstWordStartsWith, ModeSomeWord, ModeSomeWordStartsWith, ModeRegex:
		return true
	}
	return false
}

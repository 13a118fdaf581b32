package commands

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"vocBot/internal/domain"
	"vocBot/internal/usecase/trigger"
)

var (
	ErrEmptyTrigger = errors.New("empty trigger phrase")
	ErrUnknownKind  = errors.New("unknown media kind")
	ErrNoPlayer     = errors.New("no player for media kind")
)

// Slot is the raw configuration of one command slot.
type Slot struct {
	Name            string
	Kind            domain.MediaKind
	Trigger         string
	URLs            []string
	VolumePercent   float64
	CooldownSeconds float64
	ComparisonMode  string
}

type Options struct {
	CaseSensitive bool
	Video         *VideoStage
	Audio         domain.MediaPlayer
	// Pick returns an index in [0,n); defaults to math/rand/v2.
	Pick   func(n int) int
	Logger *slog.Logger
}

// Registry is the ordered, immutable set of built commands.
type Registry struct {
	commands []Command
	byName   map[string]Command
}

// NewRegistry builds commands from slots in the given order. Slots without
// media are skipped; slots that fail to build are logged, reported in the
// returned errors and left out.
func NewRegistry(slots []Slot, opts Options) (*Registry, []error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pick := opts.Pick
	if pick == nil {
		pick = defaultPick
	}

	r := &Registry{byName: make(map[string]Command)}
	var errs []error
	for _, slot := range slots {
		urls := cleanURLs(slot.URLs)
		if len(urls) == 0 {
			logger.Debug("slot has no media, skipping", slog.String("slot", slot.Name))
			continue
		}

		cmd, err := build(slot, urls, opts, pick, logger)
		if err != nil {
			cfgErr := &domain.ConfigError{Slot: slot.Name, Err: err}
			logger.Error("command not loaded", slog.String("slot", slot.Name), slog.Any("error", err))
			errs = append(errs, cfgErr)
			continue
		}

		r.commands = append(r.commands, cmd)
		r.byName[cmd.Name()] = cmd
		logger.Debug("command loaded",
			slog.String("slot", cmd.Name()),
			slog.String("trigger", cmd.Trigger()),
			slog.String("mode", string(cmd.Mode())),
			slog.Int("media", len(urls)),
		)
	}
	return r, errs
}

func build(slot Slot, urls []string, opts Options, pick func(int) int, logger *slog.Logger) (Command, error) {
	phrase := strings.TrimSpace(slot.Trigger)
	if phrase == "" {
		return nil, ErrEmptyTrigger
	}
	mode, err := trigger.ParseMode(slot.ComparisonMode)
	if err != nil {
		return nil, err
	}
	match, err := trigger.Compile(phrase, mode, opts.CaseSensitive)
	if err != nil {
		return nil, err
	}

	base := media{
		name:     slot.Name,
		trigger:  phrase,
		mode:     mode,
		urls:     urls,
		volume:   normalizeVolume(slot.VolumePercent),
		cooldown: secondsToDuration(slot.CooldownSeconds),
		match:    match,
		pick:     pick,
		logger:   logger,
	}

	switch slot.Kind {
	case domain.MediaVideo:
		if opts.Video == nil || opts.Video.Player == nil {
			return nil, ErrNoPlayer
		}
		return &VideoCommand{media: base, stage: opts.Video}, nil
	case domain.MediaAudio:
		if opts.Audio == nil {
			return nil, ErrNoPlayer
		}
		return &AudioCommand{media: base, player: opts.Audio}, nil
	default:
		return nil, ErrUnknownKind
	}
}

// First returns the first command, in registry order, whose trigger accepts
// text. Cooldowns are not considered here.
func (r *Registry) First(text string) Command {
	for _, cmd := range r.commands {
		if cmd.Matches(text) {
			return cmd
		}
	}
	return nil
}

// Matching returns every command accepting text, in registry order.
func (r *Registry) Matching(text string) []Command {
	var out []Command
	for _, cmd := range r.commands {
		if cmd.Matches(text) {
			out = append(out, cmd)
		}
	}
	return out
}

func (r *Registry) Get(name string) (Command, bool) {
	cmd, ok := r.byName[name]
	return cmd, ok
}

func (r *Registry) Commands() []Command {
	return append([]Command(nil), r.commands...)
}

func (r *Registry) Len() int {
	return len(r.commands)
}

func cleanURLs(in []string) []string {
	var out []string
	for _, u := range in {
		u = strings.TrimSpace(u)
		if u != "" {
			out = append(out, u)
		}
	}
	return out
}

func normalizeVolume(pct float64) float64 {
	switch {
	case pct < 0:
		pct = 0
	case pct > 100:
		pct = 100
	}
	return pct / 100
}

func secondsToDuration(sec float64) time.Duration {
	if sec <= 0 {
		return 0
	}
	return time.Duration(sec * float64(time.Second))
}

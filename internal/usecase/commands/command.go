package commands

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"vocBot/internal/domain"
	"vocBot/internal/usecase/trigger"
)

// Command is a configured media command. Implementations are immutable once
// built, so they can be read from any goroutine.
type Command interface {
	Name() string
	Trigger() string
	Mode() trigger.Mode
	Kind() domain.MediaKind
	Matches(text string) bool
	// ResolveURL picks one media reference; with several configured it picks
	// uniformly at random on every call.
	ResolveURL() string
	URLs() []string
	Volume() float64
	Cooldown() time.Duration
	Play(ctx context.Context, req domain.PlaybackRequest) error
}

// media holds what video and audio commands have in common.
type media struct {
	name     string
	trigger  string
	mode     trigger.Mode
	urls     []string
	volume   float64
	cooldown time.Duration
	match    trigger.Predicate
	pick     func(n int) int
	logger   *slog.Logger
}

func (m *media) Name() string { return m.name }
func (m *media) Trigger() string { return m.trigger }
func (m *media) Mode() trigger.Mode { return m.mode }
func (m *media) Volume() float64 { return m.volume }
func (m *media) Cooldown() time.Duration { return m.cooldown }

func (m *media) URLs() []string {
	return append([]string(nil), m.urls...)
}

func (m *media) Matches(text string) bool {
	return m.match(text)
}

func (m *media) ResolveURL() string {
	if len(m.urls) == 1 {
		return m.urls[0]
	}
	return m.urls[m.pick(len(m.urls))]
}

func defaultPick(n int) int {
	return rand.Intn(n)
}

// AudioCommand plays through the local audio player.
type AudioCommand struct {
	media
	player domain.MediaPlayer
}

func (c *AudioCommand) Kind() domain.MediaKind { return domain.MediaAudio }

func (c *AudioCommand) Play(ctx context.Context, req domain.PlaybackRequest) error {
	if err := c.player.Play(ctx, req); err != nil {
		return domain.NewPlaybackError(req.URL, err)
	}
	return nil
}

// VideoStage is the overlay element videos are shown on, with its effects.
type VideoStage struct {
	Player       domain.MediaPlayer
	Transitions  domain.TransitionService
	Element      string
	AnimationIn  string
	AnimationOut string
	TimeIn       time.Duration
	TimeOut      time.Duration
}

// VideoCommand plays on the overlay. It returns only after the exit effect
// has finished so a new trigger cannot cut it short.
type VideoCommand struct {
	media
	stage *VideoStage
}

func (c *VideoCommand) Kind() domain.MediaKind { return domain.MediaVideo }

func (c *VideoCommand) Play(ctx context.Context, req domain.PlaybackRequest) error {
	started := req.OnStarted
	req.OnStarted = func() {
		go c.transition(ctx, c.stage.AnimationIn, c.stage.TimeIn)
		if started != nil {
			started()
		}
	}

	if err := c.stage.Player.Play(ctx, req); err != nil {
		// hide right away
		c.transition(ctx, c.stage.AnimationOut, 0)
		return domain.NewPlaybackError(req.URL, err)
	}

	c.transition(ctx, c.stage.AnimationOut, c.stage.TimeOut)
	return nil
}

func (c *VideoCommand) transition(ctx context.Context, effect string, d time.Duration) {
	if c.stage.Transitions == nil || effect == "" {
		return
	}
	if err := c.stage.Transitions.RunTransition(ctx, c.stage.Element, effect, d); err != nil {
		c.logger.Warn("video transition failed",
			slog.String("command", c.name),
			slog.String("effect", effect),
			slog.Any("error", err),
		)
	}
}

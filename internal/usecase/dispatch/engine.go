// Package dispatch decides, for every chat message, whether a media command
// fires, and drives its playback.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"vocBot/internal/app/events"
	"vocBot/internal/domain"
	"vocBot/internal/usecase/commands"
	"vocBot/internal/usecase/cooldown"
	"vocBot/internal/usecase/permission"
)

type Publisher interface {
	Publish(topic string, payload any)
}

type Config struct {
	Registry    *commands.Registry
	Cooldowns   *cooldown.Tracker
	Permissions *permission.Evaluator
	Recorder    domain.PlayRecorder
	Bus         Publisher
	Logger      *slog.Logger

	// BaseContext bounds every playback; cancel it to stop the one in flight.
	BaseContext context.Context

	// CooldownFallthrough lets a matching command on cooldown hand over to a
	// later matching command. Off by default: the first match decides.
	CooldownFallthrough bool

	NewID func() string
	Now   func() time.Time
}

// Engine is the dispatch state machine. The busy flag is a non-reentrant
// lock without a queue: messages arriving while busy are dropped.
type Engine struct {
	cfg Config

	mu      sync.Mutex
	ready   bool
	busy    bool
	current *domain.PlaybackRequest

	wg sync.WaitGroup
}

type Status struct {
	Ready                   bool                    `json:"ready"`
	Busy                    bool                    `json:"busy"`
	Current                 *domain.PlaybackRequest `json:"-"`
	CurrentCommand          string                  `json:"current_command,omitempty"`
	CurrentURL              string                  `json:"current_url,omitempty"`
	GlobalCooldownRemaining time.Duration           `json:"-"`
	GlobalCooldownMillis    int64                   `json:"global_cooldown_remaining_ms"`
	Commands                int                     `json:"commands"`
}

func New(cfg Config) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.BaseContext == nil {
		cfg.BaseContext = context.Background()
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{cfg: cfg}
}

// Ready opens the engine once configuration has been loaded. Until then
// every message is rejected.
func (e *Engine) Ready() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ready = true
}

// Handle matches the message handler signature of the host bridge.
func (e *Engine) Handle(ctx context.Context, msg domain.Message) error {
	e.Dispatch(ctx, msg)
	return nil
}

func (e *Engine) Dispatch(ctx context.Context, msg domain.Message) Outcome {
	outcome, cmd := e.decide(msg)
	e.report(outcome, cmd, msg)
	return outcome
}

func (e *Engine) decide(msg domain.Message) (Outcome, commands.Command) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.ready {
		return OutcomeNotReady, nil
	}
	if e.busy {
		return OutcomeBusy, nil
	}
	if e.cfg.Cooldowns.IsGloballyOnCooldown() {
		return OutcomeGlobalCooldown, nil
	}

	// list and role checks are cheaper than matching every trigger, so they go first
	user := permission.NormalizeUser(msg.Username)
	if e.cfg.Permissions.IsBlocked(user) {
		return OutcomeBlocked, nil
	}
	if !e.cfg.Permissions.IsAuthorized(user, rolesOf(msg)) {
		return OutcomeUnauthorized, nil
	}

	cmd, outcome := e.selectCommand(msg.Text)
	if cmd == nil {
		return outcome, nil
	}
	if outcome != OutcomePlayed {
		return outcome, cmd
	}

	e.start(cmd, msg)
	return OutcomePlayed, cmd
}

func (e *Engine) selectCommand(text string) (commands.Command, Outcome) {
	if !e.cfg.CooldownFallthrough {
		cmd := e.cfg.Registry.First(text)
		if cmd == nil {
			return nil, OutcomeNoMatch
		}
		if e.cfg.Cooldowns.IsOnCooldown(cmd.Name()) {
			return cmd, OutcomeOnCooldown
		}
		return cmd, OutcomePlayed
	}

	matching := e.cfg.Registry.Matching(text)
	if len(matching) == 0 {
		return nil, OutcomeNoMatch
	}
	for _, cmd := range matching {
		if !e.cfg.Cooldowns.IsOnCooldown(cmd.Name()) {
			return cmd, OutcomePlayed
		}
	}
	return matching[0], OutcomeOnCooldown
}

// start must be called with e.mu held.
func (e *Engine) start(cmd commands.Command, msg domain.Message) {
	req := domain.PlaybackRequest{
		ID:          e.cfg.NewID(),
		Kind:        cmd.Kind(),
		Command:     cmd.Name(),
		URL:         cmd.ResolveURL(),
		Volume:      cmd.Volume(),
		RequestedBy: msg.Username,
	}
	current := req
	e.current = &current
	e.busy = true

	req.OnStarted = func() {
		e.publish(events.TopicMediaStarted, events.NewPlaybackDTO(current, nil))
	}

	e.wg.Add(1)
	go e.play(cmd, req)

	// measured from invocation, not from when the media ends
	e.cfg.Cooldowns.Activate(cmd.Name(), cmd.Cooldown())
}

func (e *Engine) play(cmd commands.Command, req domain.PlaybackRequest) {
	defer e.wg.Done()

	ctx := e.cfg.BaseContext
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = domain.NewPlaybackError(req.URL, fmt.Errorf("player panic: %v", r))
		}
		e.release(ctx, req, err)
	}()

	if e.cfg.Recorder != nil {
		rec := domain.PlayRecord{
			ID:          req.ID,
			Command:     req.Command,
			Kind:        req.Kind,
			URL:         req.URL,
			RequestedBy: req.RequestedBy,
			StartedAt:   e.cfg.Now(),
			Status:      domain.PlayStatusPlaying,
		}
		if recErr := e.cfg.Recorder.RecordStart(ctx, rec); recErr != nil {
			e.cfg.Logger.Warn("play log: record start failed", slog.Any("error", recErr))
		}
	}

	e.cfg.Logger.Info("playing media",
		slog.String("command", req.Command),
		slog.String("kind", string(req.Kind)),
		slog.String("url", req.URL),
		slog.String("user", req.RequestedBy),
	)
	err = cmd.Play(ctx, req)
}

// release always clears the busy flag, whatever the playback outcome.
func (e *Engine) release(ctx context.Context, req domain.PlaybackRequest, err error) {
	e.mu.Lock()
	e.busy = false
	e.current = nil
	e.mu.Unlock()

	if err != nil {
		e.cfg.Logger.Error("playback failed",
			slog.String("command", req.Command),
			slog.String("url", req.URL),
			slog.Any("error", err),
		)
		e.publish(events.TopicMediaError, events.NewPlaybackDTO(req, err))
	} else {
		e.cfg.Logger.Debug("playback finished", slog.String("command", req.Command))
		e.publish(events.TopicMediaEnded, events.NewPlaybackDTO(req, nil))
	}

	if e.cfg.Recorder != nil {
		if recErr := e.cfg.Recorder.RecordFinish(context.WithoutCancel(ctx), req.ID, e.cfg.Now(), err); recErr != nil {
			e.cfg.Logger.Warn("play log: record finish failed", slog.Any("error", recErr))
		}
	}
}

func (e *Engine) report(outcome Outcome, cmd commands.Command, msg domain.Message) {
	name := ""
	if cmd != nil {
		name = cmd.Name()
	}
	if outcome != OutcomePlayed {
		attrs := []any{slog.String("outcome", outcome.String()), slog.String("user", msg.Username)}
		if name != "" {
			attrs = append(attrs, slog.String("command", name))
		}
		e.cfg.Logger.Debug("message not dispatched", attrs...)
	}
	e.publish(events.TopicDispatch, events.NewDispatchDTO(outcome.String(), name, msg))
}

func (e *Engine) publish(topic string, payload any) {
	if e.cfg.Bus != nil {
		e.cfg.Bus.Publish(topic, payload)
	}
}

func (e *Engine) Status() Status {
	e.mu.Lock()
	st := Status{
		Ready:    e.ready,
		Busy:     e.busy,
		Commands: e.cfg.Registry.Len(),
	}
	if e.current != nil {
		cur := *e.current
		st.Current = &cur
		st.CurrentCommand = cur.Command
		st.CurrentURL = cur.URL
	}
	e.mu.Unlock()

	st.GlobalCooldownRemaining = e.cfg.Cooldowns.GlobalRemaining()
	st.GlobalCooldownMillis = st.GlobalCooldownRemaining.Milliseconds()
	return st
}

// Wait blocks until the playback in flight, if any, has been released.
func (e *Engine) Wait() {
	e.wg.Wait()
}

func rolesOf(msg domain.Message) permission.Roles {
	return permission.Roles{
		Moderator:   msg.IsPlatformMod,
		Subscriber:  msg.IsSubscriber,
		VIP:         msg.IsPlatformVip,
		Broadcaster: msg.IsPlatformOwner,
	}
}

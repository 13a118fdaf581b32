package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"vocBot/internal/domain"
)

var (
	ErrNoOverlay         = errors.New("no overlay connected")
	ErrOverlayGone       = errors.New("overlay disconnected during playback")
	ErrPlaybackTimeout   = errors.New("overlay playback timed out")
	ErrTransitionTimeout = errors.New("overlay transition timed out")
)

var (
	_ domain.MediaPlayer       = (*Server)(nil)
	_ domain.TransitionService = (*Server)(nil)
)

type pendingPlay struct {
	started   chan struct{}
	startOnce sync.Once
	done      chan error
	doneOnce  sync.Once
}

func newPendingPlay() *pendingPlay {
	return &pendingPlay{started: make(chan struct{}), done: make(chan error, 1)}
}

func (p *pendingPlay) start() {
	p.startOnce.Do(func() { close(p.started) })
}

func (p *pendingPlay) finish(err error) {
	p.doneOnce.Do(func() { p.done <- err })
}

// Play sends the media to the overlays and blocks until one of them reports
// the end or an error, the playback timeout elapses or ctx is done.
func (s *Server) Play(ctx context.Context, req domain.PlaybackRequest) error {
	if s.Clients() == 0 {
		return ErrNoOverlay
	}
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	p := newPendingPlay()
	s.pendingMu.Lock()
	s.plays[id] = p
	s.pendingMu.Unlock()
	defer func() {
		s.pendingMu.Lock()
		delete(s.plays, id)
		s.pendingMu.Unlock()
	}()

	sent := s.broadcast(playFrame{Type: typePlay, ID: id, Kind: req.Kind, URL: req.URL, Volume: req.Volume})
	if sent == 0 {
		return ErrNoOverlay
	}

	timer := time.NewTimer(s.playbackTimeout)
	defer timer.Stop()

	err := p.wait(ctx, timer.C, req.OnStarted)
	if errors.Is(err, ErrPlaybackTimeout) {
		return fmt.Errorf("%w after %s", err, s.playbackTimeout)
	}
	return err
}

// wait blocks until the play finishes. onStarted runs at most once and always
// before wait returns when the overlay reported the start, even if the end
// arrived in the same instant.
func (p *pendingPlay) wait(ctx context.Context, timeout <-chan time.Time, onStarted func()) error {
	started := p.started
	notify := func() {
		if started == nil {
			return
		}
		select {
		case <-started:
			started = nil
			if onStarted != nil {
				onStarted()
			}
		default:
		}
	}
	for {
		select {
		case <-started:
			notify()
		case err := <-p.done:
			notify()
			return err
		case <-timeout:
			return ErrPlaybackTimeout
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunTransition asks the overlays to animate element and waits for the
// transitionend report. With no overlay there is nothing to animate.
func (s *Server) RunTransition(ctx context.Context, element, effect string, duration time.Duration) error {
	if s.Clients() == 0 {
		return nil
	}
	id := uuid.NewString()

	done := make(chan struct{})
	s.pendingMu.Lock()
	s.fades[id] = done
	s.pendingMu.Unlock()
	defer s.transitionFinished(id)

	sent := s.broadcast(transitionFrame{
		Type:     typeTransition,
		ID:       id,
		Element:  element,
		Effect:   effect,
		Duration: duration.Milliseconds(),
	})
	if sent == 0 {
		return nil
	}

	timer := time.NewTimer(duration + s.transitionGrace)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		return fmt.Errorf("%w: %s %s", ErrTransitionTimeout, element, effect)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) playStarted(id string) {
	s.pendingMu.Lock()
	p, ok := s.plays[id]
	s.pendingMu.Unlock()
	if !ok {
		s.logger.Debug("ws: start for unknown playback", slog.String("id", id))
		return
	}
	p.start()
}

func (s *Server) playFinished(id string, err error) {
	s.pendingMu.Lock()
	p, ok := s.plays[id]
	s.pendingMu.Unlock()
	if !ok {
		s.logger.Debug("ws: finish for unknown playback", slog.String("id", id))
		return
	}
	p.finish(err)
}

func (s *Server) transitionFinished(id string) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	if done, ok := s.fades[id]; ok {
		delete(s.fades, id)
		close(done)
	}
}

func (s *Server) abandonPending(err error) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	for _, p := range s.plays {
		p.finish(err)
	}
	for id, done := range s.fades {
		delete(s.fades, id)
		close(done)
	}
}

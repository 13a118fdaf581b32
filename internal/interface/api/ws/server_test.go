package ws

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"vocBot/internal/app/events"
	"vocBot/internal/domain"
	"vocBot/internal/usecase/commands"
	"vocBot/internal/usecase/dispatch"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, cfg Config) (*Server, *httptest.Server) {
	t.Helper()
	cfg.Logger = quietLogger()
	ctx, cancel := context.WithCancel(context.Background())
	s := NewServer(cfg)
	ts := httptest.NewServer(s.Handler(ctx))
	t.Cleanup(func() {
		cancel()
		s.closeClients()
		ts.Close()
	})
	return s, ts
}

func dial(t *testing.T, s *Server, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	before := s.Clients()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/overlay"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	waitFor(t, func() bool { return s.Clients() > before })
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame map[string]any
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return frame
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

func TestPlayWithoutOverlay(t *testing.T) {
	s, _ := newTestServer(t, Config{})

	err := s.Play(context.Background(), domain.PlaybackRequest{ID: "p1", URL: "https://cdn.example/a.webm"})
	if !errors.Is(err, ErrNoOverlay) {
		t.Fatalf("got %v, want ErrNoOverlay", err)
	}
	if err := s.RunTransition(context.Background(), "video", "fadeIn", time.Second); err != nil {
		t.Fatalf("transition without overlay: %v", err)
	}
}

func TestPlayRoundTrip(t *testing.T) {
	s, ts := newTestServer(t, Config{})
	conn := dial(t, s, ts)

	var started atomic.Bool
	result := make(chan error, 1)
	go func() {
		result <- s.Play(context.Background(), domain.PlaybackRequest{
			ID:        "p1",
			Kind:      domain.MediaVideo,
			URL:       "https://cdn.example/a.webm",
			Volume:    0.5,
			OnStarted: func() { started.Store(true) },
		})
	}()

	frame := readFrame(t, conn)
	if frame["type"] != "play" || frame["id"] != "p1" || frame["kind"] != "video" || frame["volume"] != 0.5 {
		t.Fatalf("unexpected play frame %v", frame)
	}

	send(t, conn, map[string]string{"type": "started", "id": "p1"})
	waitFor(t, started.Load)
	send(t, conn, map[string]string{"type": "ended", "id": "p1"})

	select {
	case err := <-result:
		if err != nil {
			t.Fatalf("play: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("play did not return")
	}
}

func TestPlayReportsOverlayError(t *testing.T) {
	s, ts := newTestServer(t, Config{})
	conn := dial(t, s, ts)

	result := make(chan error, 1)
	go func() {
		result <- s.Play(context.Background(), domain.PlaybackRequest{ID: "p2", URL: "https://cdn.example/missing.webm"})
	}()
	readFrame(t, conn)
	send(t, conn, map[string]string{"type": "error", "id": "p2", "error": "MEDIA_ERR_SRC_NOT_SUPPORTED"})

	err := <-result
	if err == nil || !strings.Contains(err.Error(), "MEDIA_ERR_SRC_NOT_SUPPORTED") {
		t.Fatalf("got %v", err)
	}
}

func TestPlayTimeout(t *testing.T) {
	s, ts := newTestServer(t, Config{PlaybackTimeout: 50 * time.Millisecond})
	dial(t, s, ts)

	err := s.Play(context.Background(), domain.PlaybackRequest{ID: "p3", URL: "https://cdn.example/a.webm"})
	if !errors.Is(err, ErrPlaybackTimeout) {
		t.Fatalf("got %v, want ErrPlaybackTimeout", err)
	}
}

func TestPlayOverlayDisconnects(t *testing.T) {
	s, ts := newTestServer(t, Config{})
	conn := dial(t, s, ts)

	result := make(chan error, 1)
	go func() {
		result <- s.Play(context.Background(), domain.PlaybackRequest{ID: "p4", URL: "https://cdn.example/a.webm"})
	}()
	readFrame(t, conn)
	conn.Close()

	select {
	case err := <-result:
		if !errors.Is(err, ErrOverlayGone) {
			t.Fatalf("got %v, want ErrOverlayGone", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("play did not return after disconnect")
	}
}

func TestTransitionRoundTrip(t *testing.T) {
	s, ts := newTestServer(t, Config{})
	conn := dial(t, s, ts)

	result := make(chan error, 1)
	go func() {
		result <- s.RunTransition(context.Background(), "video", "fadeIn", 500*time.Millisecond)
	}()

	frame := readFrame(t, conn)
	if frame["type"] != "transition" || frame["element"] != "video" || frame["effect"] != "fadeIn" || frame["duration"] != float64(500) {
		t.Fatalf("unexpected transition frame %v", frame)
	}
	send(t, conn, map[string]any{"type": "transitionend", "id": frame["id"]})

	if err := <-result; err != nil {
		t.Fatalf("transition: %v", err)
	}
}

func TestTransitionTimeout(t *testing.T) {
	s, ts := newTestServer(t, Config{TransitionGrace: 10 * time.Millisecond})
	dial(t, s, ts)

	err := s.RunTransition(context.Background(), "video", "fadeOut", 10*time.Millisecond)
	if !errors.Is(err, ErrTransitionTimeout) {
		t.Fatalf("got %v, want ErrTransitionTimeout", err)
	}
}

type recordingHandler struct {
	mu   sync.Mutex
	msgs []domain.Message
}

func (h *recordingHandler) handle(_ context.Context, msg domain.Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, msg)
	return nil
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.msgs)
}

func TestChatMessagesReachHandler(t *testing.T) {
	s, ts := newTestServer(t, Config{})
	h := &recordingHandler{}
	s.SetHandler(h.handle)
	conn := dial(t, s, ts)

	send(t, conn, map[string]any{
		"type":      "message",
		"username":  "Alice",
		"text":      "  !horn  ",
		"platform":  "kick",
		"moderator": true,
		"vip":       true,
	})
	if err := conn.WriteMessage(websocket.TextMessage, []byte("!plain")); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return h.count() == 2 })

	h.mu.Lock()
	defer h.mu.Unlock()
	first := h.msgs[0]
	if first.Username != "Alice" || first.Text != "  !horn  " || first.Platform != domain.PlatformKick {
		t.Fatalf("unexpected message %+v", first)
	}
	if !first.IsPlatformMod || !first.IsPlatformVip || first.IsSubscriber || first.IsPlatformOwner {
		t.Fatalf("roles not mapped: %+v", first)
	}
	second := h.msgs[1]
	if second.Text != "!plain" || second.Username != "web-user" || second.Platform != domain.PlatformWeb {
		t.Fatalf("unexpected bare text message %+v", second)
	}
	if second.IsPlatformMod || second.IsPlatformOwner {
		t.Fatal("bare text frames must not carry roles")
	}
}

func TestChatRateLimit(t *testing.T) {
	s, ts := newTestServer(t, Config{ChatRate: 0.001, ChatBurst: 2})
	h := &recordingHandler{}
	s.SetHandler(h.handle)
	conn := dial(t, s, ts)

	for i := 0; i < 5; i++ {
		send(t, conn, map[string]string{"type": "message", "username": "spammer", "text": "!horn"})
	}
	waitFor(t, func() bool { return h.count() >= 2 })
	time.Sleep(50 * time.Millisecond)
	if got := h.count(); got != 2 {
		t.Fatalf("handled %d messages, want 2", got)
	}
}

func TestForwardBusEvents(t *testing.T) {
	s, ts := newTestServer(t, Config{})
	conn := dial(t, s, ts)

	bus := events.NewBus(quietLogger())
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Forward(ctx, bus, events.TopicMediaStarted)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				bus.Publish(events.TopicMediaStarted, map[string]string{"command": "video1"})
			}
		}
	}()

	frame := readFrame(t, conn)
	if frame["type"] != "event" || frame["topic"] != events.TopicMediaStarted {
		t.Fatalf("unexpected frame %v", frame)
	}
	data, _ := frame["data"].(map[string]any)
	if data["command"] != "video1" {
		t.Fatalf("unexpected data %v", frame["data"])
	}
}

type stubLister struct{ list []commands.CommandDescriptor }

func (s stubLister) List(context.Context) ([]commands.CommandDescriptor, error) { return s.list, nil }

type stubStatus struct{ st dispatch.Status }

func (s stubStatus) Status() dispatch.Status { return s.st }

type stubHistory struct {
	limit int
	plays []domain.PlayRecord
}

func (s *stubHistory) RecentPlays(_ context.Context, limit int) ([]domain.PlayRecord, error) {
	s.limit = limit
	return s.plays, nil
}

func TestAPIEndpoints(t *testing.T) {
	history := &stubHistory{plays: []domain.PlayRecord{{
		ID:        "p1",
		Command:   "audio1",
		Kind:      domain.MediaAudio,
		StartedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Status:    domain.PlayStatusEnded,
	}}}
	_, ts := newTestServer(t, Config{
		Commands: stubLister{list: []commands.CommandDescriptor{{Name: "audio1", Kind: "audio", Trigger: "!horn"}}},
		Status:   stubStatus{st: dispatch.Status{Ready: true, Commands: 1}},
		History:  history,
	})

	get := func(path string) (*http.Response, map[string]any) {
		t.Helper()
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		var body map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return resp, body
	}

	resp, body := get("/api/commands")
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("commands: status %d headers %v", resp.StatusCode, resp.Header)
	}
	if list, _ := body["commands"].([]any); len(list) != 1 {
		t.Fatalf("commands body %v", body)
	}

	_, body = get("/api/status")
	if body["ready"] != true || body["busy"] != false {
		t.Fatalf("status body %v", body)
	}

	_, body = get("/api/plays?limit=500")
	if history.limit != maxPlaysLimit {
		t.Fatalf("limit %d, want clamp to %d", history.limit, maxPlaysLimit)
	}
	if plays, _ := body["plays"].([]any); len(plays) != 1 {
		t.Fatalf("plays body %v", body)
	}

	resp, _ = get("/api/plays?limit=zero")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad limit: status %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/status", nil)
	optResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	optResp.Body.Close()
	if optResp.StatusCode != http.StatusNoContent {
		t.Fatalf("options: status %d", optResp.StatusCode)
	}
}

func TestPendingPlayStartsBeforeSimultaneousEnd(t *testing.T) {
	for i := 0; i < 200; i++ {
		p := newPendingPlay()
		p.start()
		p.finish(nil)

		var calls int
		if err := p.wait(context.Background(), nil, func() { calls++ }); err != nil {
			t.Fatalf("iteration %d: %v", i, err)
		}
		if calls != 1 {
			t.Fatalf("iteration %d: OnStarted ran %d times, want 1", i, calls)
		}
	}
}

func TestPendingPlayEndWithoutStart(t *testing.T) {
	p := newPendingPlay()
	p.finish(errors.New("decode error"))

	called := false
	err := p.wait(context.Background(), nil, func() { called = true })
	if err == nil || err.Error() != "decode error" {
		t.Fatalf("err = %v", err)
	}
	if called {
		t.Fatal("OnStarted ran for a play that never started")
	}
}

package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/sourcegraph/conc"
	"golang.org/x/time/rate"

	"vocBot/internal/domain"
)

const (
	writeWait       = 5 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Server exposes the overlay websocket and the HTTP API. Connected overlays
// receive play and transition frames and report playback back.
type Server struct {
	addr     string
	upgrader websocket.Upgrader
	logger   *slog.Logger

	playbackTimeout time.Duration
	transitionGrace time.Duration
	chatRate        rate.Limit
	chatBurst       int

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	handler MessageHandler

	pendingMu sync.Mutex
	plays     map[string]*pendingPlay
	fades     map[string]chan struct{}

	api *apiHandlers
}

type MessageHandler func(ctx context.Context, msg domain.Message) error

type wsClient struct {
	conn    *websocket.Conn
	mu      sync.Mutex
	limiter *rate.Limiter
}

func (c *wsClient) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

func NewServer(cfg Config) *Server {
	cfg = cfg.withDefaults()
	return &Server{
		addr: cfg.Addr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger:          cfg.Logger,
		playbackTimeout: cfg.PlaybackTimeout,
		transitionGrace: cfg.TransitionGrace,
		chatRate:        cfg.chatLimit(),
		chatBurst:       cfg.ChatBurst,
		clients:         make(map[*wsClient]struct{}),
		plays:           make(map[string]*pendingPlay),
		fades:           make(map[string]chan struct{}),
		api:             newAPIHandlers(cfg),
	}
}

// Handler returns the routes served by Start. Websocket connections live
// until ctx is cancelled or the peer goes away.
func (s *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/overlay", func(w http.ResponseWriter, r *http.Request) {
		s.handleWS(ctx, w, r)
	})
	s.api.register(mux)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			setCORSHeaders(w)
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		mux.ServeHTTP(w, r)
	})
}

// Start serves HTTP and blocks until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn("ws: shutdown error", slog.Any("error", err))
		}
		s.closeClients()
	}()

	s.logger.Info("ws: listening", slog.String("addr", s.addr))
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) handleWS(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws: upgrade error", slog.Any("error", err))
		return
	}

	client := &wsClient{conn: conn, limiter: rate.NewLimiter(s.chatRate, s.chatBurst)}

	s.mu.Lock()
	s.clients[client] = struct{}{}
	clientCount := len(s.clients)
	s.mu.Unlock()

	s.logger.Info("ws: overlay connected", slog.String("remote", r.RemoteAddr), slog.Int("clients", clientCount))

	go s.handleClient(ctx, client)
}

func (s *Server) handleClient(ctx context.Context, client *wsClient) {
	defer s.removeClient(client)

	for {
		if ctx.Err() != nil {
			return
		}

		msgType, data, err := client.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("ws: read error", slog.Any("error", err))
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		if err := s.dispatchIncoming(ctx, client, data); err != nil {
			s.logger.Warn("ws: incoming frame rejected", slog.Any("error", err))
		}
	}
}

func (s *Server) removeClient(client *wsClient) {
	client.conn.Close()

	s.mu.Lock()
	_, ok := s.clients[client]
	delete(s.clients, client)
	clientCount := len(s.clients)
	s.mu.Unlock()
	if !ok {
		return
	}

	s.logger.Info("ws: overlay disconnected", slog.Int("clients", clientCount))
	if clientCount == 0 {
		s.abandonPending(ErrOverlayGone)
	}
}

func (s *Server) closeClients() {
	for _, c := range s.snapshotClients() {
		s.removeClient(c)
	}
}

func (s *Server) dispatchIncoming(ctx context.Context, client *wsClient, data []byte) error {
	var in inbound
	if err := json.Unmarshal(data, &in); err != nil {
		// bare text frames are chat lines from a test page
		in = inbound{Type: typeMessage, Text: string(data)}
	}

	switch strings.ToLower(in.Type) {
	case typeMessage, "":
		return s.handleChat(ctx, client, in)
	case typeStarted:
		s.playStarted(in.ID)
	case typeEnded:
		s.playFinished(in.ID, nil)
	case typeError:
		msg := strings.TrimSpace(in.Error)
		if msg == "" {
			msg = "overlay reported an error"
		}
		s.playFinished(in.ID, errors.New(msg))
	case typeTransitionEnd:
		s.transitionFinished(in.ID)
	default:
		return errors.New("unknown frame type " + in.Type)
	}
	return nil
}

func (s *Server) handleChat(ctx context.Context, client *wsClient, in inbound) error {
	handler := s.getHandler()
	if handler == nil {
		return nil
	}
	msg := in.message()
	if strings.TrimSpace(msg.Text) == "" {
		return errors.New("empty chat text")
	}
	if !client.limiter.Allow() {
		s.logger.Debug("ws: chat rate limited", slog.String("user", msg.Username))
		return nil
	}
	return handler(ctx, msg)
}

func (s *Server) getHandler() MessageHandler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handler
}

func (s *Server) SetHandler(h MessageHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *Server) snapshotClients() []*wsClient {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clients := make([]*wsClient, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	return clients
}

// broadcast writes v to every overlay and reports how many received it.
func (s *Server) broadcast(v any) int {
	payload, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("ws: encode frame", slog.Any("error", err))
		return 0
	}

	sent := 0
	for _, c := range s.snapshotClients() {
		if err := c.writeJSON(json.RawMessage(payload)); err != nil {
			s.logger.Warn("ws: removing client due to write error", slog.Any("error", err))
			s.removeClient(c)
			continue
		}
		sent++
	}
	return sent
}

type Subscriber interface {
	Subscribe(topic string) (<-chan any, func())
}

// Forward relays bus events on topics to every overlay until ctx is done.
func (s *Server) Forward(ctx context.Context, bus Subscriber, topics ...string) {
	var wg conc.WaitGroup
	for _, topic := range topics {
		topic := topic
		ch, unsubscribe := bus.Subscribe(topic)
		wg.Go(func() {
			defer unsubscribe()
			for {
				select {
				case <-ctx.Done():
					return
				case payload, ok := <-ch:
					if !ok {
						return
					}
					s.broadcast(eventFrame{Type: typeEvent, Topic: topic, Data: payload})
				}
			}
		})
	}
	wg.Wait()
}

// SetCommands wires the command listing after construction; call it before
// Start.
func (s *Server) SetCommands(c CommandLister) {
	s.api.commands = c
}

func (s *Server) SetStatus(r StatusReporter) {
	s.api.status = r
}

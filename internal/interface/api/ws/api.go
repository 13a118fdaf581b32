package ws

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"vocBot/internal/domain"
	"vocBot/internal/usecase/commands"
	"vocBot/internal/usecase/dispatch"
)

const (
	defaultPlaybackTimeout = 5 * time.Minute
	defaultTransitionGrace = 2 * time.Second
	defaultPlaysLimit      = 20
	maxPlaysLimit          = 200
)

type Config struct {
	Addr string

	Commands CommandLister
	Status   StatusReporter
	History  domain.PlayHistory

	PlaybackTimeout time.Duration
	TransitionGrace time.Duration

	// ChatRate limits chat frames per connection; zero or less means no limit.
	ChatRate  float64
	ChatBurst int

	Logger *slog.Logger
}

type CommandLister interface {
	List(ctx context.Context) ([]commands.CommandDescriptor, error)
}

type StatusReporter interface {
	Status() dispatch.Status
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.PlaybackTimeout <= 0 {
		c.PlaybackTimeout = defaultPlaybackTimeout
	}
	if c.TransitionGrace <= 0 {
		c.TransitionGrace = defaultTransitionGrace
	}
	if c.ChatBurst <= 0 {
		c.ChatBurst = 1
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

func (c Config) chatLimit() rate.Limit {
	if c.ChatRate <= 0 {
		return rate.Inf
	}
	return rate.Limit(c.ChatRate)
}

type apiHandlers struct {
	commands CommandLister
	status   StatusReporter
	history  domain.PlayHistory
	logger   *slog.Logger
}

func newAPIHandlers(cfg Config) *apiHandlers {
	return &apiHandlers{
		commands: cfg.Commands,
		status:   cfg.Status,
		history:  cfg.History,
		logger:   cfg.Logger,
	}
}

func (a *apiHandlers) register(mux *http.ServeMux) {
	if a == nil || mux == nil {
		return
	}
	if a.commands != nil {
		mux.HandleFunc("/api/commands", a.withCORS(a.handleCommands))
	}
	if a.status != nil {
		mux.HandleFunc("/api/status", a.withCORS(a.handleStatus))
	}
	if a.history != nil {
		mux.HandleFunc("/api/plays", a.withCORS(a.handlePlays))
	}
}

func (a *apiHandlers) withCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS")
}

type commandsResponse struct {
	Commands []commands.CommandDescriptor `json:"commands"`
}

type playResponse struct {
	ID          string    `json:"id"`
	Command     string    `json:"command"`
	Kind        string    `json:"kind"`
	URL         string    `json:"url"`
	RequestedBy string    `json:"requested_by"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at,omitzero"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
}

type playsResponse struct {
	Plays []playResponse `json:"plays"`
}

func (a *apiHandlers) handleCommands(w http.ResponseWriter, r *http.Request) {
	list, err := a.commands.List(r.Context())
	if err != nil {
		a.logger.Error("api: list commands", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "could not list commands")
		return
	}
	if list == nil {
		list = []commands.CommandDescriptor{}
	}
	writeJSON(w, http.StatusOK, commandsResponse{Commands: list})
}

func (a *apiHandlers) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.status.Status())
}

func (a *apiHandlers) handlePlays(w http.ResponseWriter, r *http.Request) {
	limit := defaultPlaysLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxPlaysLimit)
	}

	records, err := a.history.RecentPlays(r.Context(), limit)
	if err != nil {
		a.logger.Error("api: recent plays", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "could not load play history")
		return
	}

	resp := playsResponse{Plays: make([]playResponse, 0, len(records))}
	for _, rec := range records {
		resp.Plays = append(resp.Plays, playResponse{
			ID:          rec.ID,
			Command:     rec.Command,
			Kind:        string(rec.Kind),
			URL:         rec.URL,
			RequestedBy: rec.RequestedBy,
			StartedAt:   rec.StartedAt,
			FinishedAt:  rec.FinishedAt,
			Status:      string(rec.Status),
			Error:       rec.Error,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

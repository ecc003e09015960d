// Package bridge serves the plant guard dashboard over HTTP and relays
// readings and shade commands between browsers and the board.
package bridge

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/itohio/plantguard/pkg/guard"
	"github.com/itohio/plantguard/pkg/history"
	"github.com/itohio/plantguard/pkg/monitor"
	"github.com/itohio/plantguard/pkg/telemetry"
)

//go:embed static
var staticFiles embed.FS

// ErrNoDevice is returned for commands while no board is attached.
var ErrNoDevice = errors.New("device not available")

// Commander delivers shade commands to the board.
type Commander interface {
	Send(cmd guard.Command) error
}

// State provides the latest readings.
type State interface {
	Latest() (telemetry.Sample, bool)
	Samples() []telemetry.Sample
	Stats() monitor.Stats
}

// Store persists readings and commands.
type Store interface {
	Recent(limit int) ([]telemetry.Sample, error)
	Range(start, end time.Time) ([]telemetry.Sample, error)
	Commands(limit int) ([]history.CommandEntry, error)
	RecordCommand(ts time.Time, cmd guard.Command, source string) error
}

// Config wires the server. History is optional.
type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	HistoryLimit    int

	Device  Commander
	State   State
	History Store
}

// Server is the dashboard and API server.
type Server struct {
	cfg Config
	hub *Hub

	mu       sync.RWMutex
	position guard.Position

	httpServer *http.Server
}

// DataResponse is returned by GET /api/data.
type DataResponse struct {
	Reading *telemetry.Sample `json:"reading"`
	Shade   guard.Position    `json:"shade"`
	Stats   monitor.Stats     `json:"stats"`
	Clients int               `json:"clients"`
}

// CommandRequest is the body of POST /api/command.
type CommandRequest struct {
	Cmd string `json:"cmd"`
}

// CommandResponse is returned by POST /api/command.
type CommandResponse struct {
	OK    bool           `json:"ok"`
	Cmd   string         `json:"cmd,omitempty"`
	Shade guard.Position `json:"shade"`
	Error string         `json:"error,omitempty"`
}

// HistoryResponse is returned by GET /api/history.
type HistoryResponse struct {
	Readings []telemetry.Sample     `json:"readings"`
	Commands []history.CommandEntry `json:"commands,omitempty"`
}

// New creates a server.
func New(cfg Config) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 200
	}
	s := &Server{cfg: cfg}
	s.hub = NewHub(s.Command)
	return s
}

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Position returns the last commanded shade position.
func (s *Server) Position() guard.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.position
}

// Publish broadcasts a sample to websocket clients.
func (s *Server) Publish(sample telemetry.Sample) {
	s.hub.Broadcast(ReadingMessage{Type: TypeReading, Sample: sample})
}

// Command sends cmd to the board, records it and announces the new shade
// position.
func (s *Server) Command(cmd guard.Command, source string) error {
	if s.cfg.Device == nil {
		return ErrNoDevice
	}
	if err := s.cfg.Device.Send(cmd); err != nil {
		return fmt.Errorf("failed to send command: %w", err)
	}

	pos := guard.Closed
	if cmd == guard.CommandOpen {
		pos = guard.Open
	}
	s.mu.Lock()
	s.position = pos
	s.mu.Unlock()

	if s.cfg.History != nil {
		if err := s.cfg.History.RecordCommand(time.Now(), cmd, source); err != nil {
			log.Warn().Err(err).Msg("Failed to record command")
		}
	}

	log.Info().Stringer("command", cmd).Str("source", source).Msg("Shade command sent")
	s.hub.Broadcast(ShadeMessage{Type: TypeShade, Position: pos, Source: source})
	return nil
}

// ParseAction accepts "A"/"F" as sent by the board protocol, or "open"/"close".
func ParseAction(action string) (guard.Command, error) {
	switch strings.ToLower(strings.TrimSpace(action)) {
	case "open":
		return guard.CommandOpen, nil
	case "close":
		return guard.CommandClose, nil
	}
	if len(action) != 1 {
		return 0, fmt.Errorf("invalid action %q", action)
	}
	return guard.ParseCommand(action[0])
}

// Handler returns the HTTP routes wrapped with CORS headers.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/data", s.handleData)
	mux.HandleFunc("POST /api/command", s.handleCommand)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.Handle("GET /ws", s.hub)

	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	mux.Handle("GET /", http.FileServer(http.FS(static)))

	return corsMiddleware(mux)
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().Str("addr", ln.Addr().String()).Msg("Starting bridge server")

	go func() {
		<-ctx.Done()
		s.hub.CloseAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Bridge server shutdown error")
		}
	}()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	resp := DataResponse{
		Shade:   s.Position(),
		Clients: s.hub.Count(),
	}
	if s.cfg.State != nil {
		if latest, ok := s.cfg.State.Latest(); ok {
			resp.Reading = &latest
		}
		resp.Stats = s.cfg.State.Stats()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, CommandResponse{Error: "invalid request body", Shade: s.Position()})
		return
	}

	cmd, err := ParseAction(req.Cmd)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, CommandResponse{Error: err.Error(), Shade: s.Position()})
		return
	}

	if err := s.Command(cmd, "web"); err != nil {
		writeJSON(w, http.StatusInternalServerError, CommandResponse{Error: err.Error(), Shade: s.Position()})
		return
	}

	writeJSON(w, http.StatusOK, CommandResponse{OK: true, Cmd: string(rune(cmd)), Shade: s.Position()})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.HistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, s.cfg.HistoryLimit)
	}

	from, to, ranged, err := parseWindow(r.URL.Query().Get("from"), r.URL.Query().Get("to"), time.Now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var resp HistoryResponse
	if s.cfg.History != nil {
		var readings []telemetry.Sample
		if ranged {
			readings, err = s.cfg.History.Range(from, to)
		} else {
			readings, err = s.cfg.History.Recent(limit)
		}
		if err != nil {
			log.Error().Err(err).Msg("Failed to load history")
			http.Error(w, "failed to load history", http.StatusInternalServerError)
			return
		}
		commands, err := s.cfg.History.Commands(limit)
		if err != nil {
			log.Error().Err(err).Msg("Failed to load commands")
			http.Error(w, "failed to load history", http.StatusInternalServerError)
			return
		}
		resp.Readings, resp.Commands = newest(readings, limit), commands
	} else if s.cfg.State != nil {
		samples := s.cfg.State.Samples()
		if ranged {
			samples = within(samples, from, to)
		}
		resp.Readings = newest(samples, limit)
	}
	if resp.Readings == nil {
		resp.Readings = []telemetry.Sample{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// parseWindow reads the optional RFC 3339 from and to bounds of a history
// query. A missing from is the epoch, a missing to is now.
func parseWindow(fromStr, toStr string, now time.Time) (from, to time.Time, ranged bool, err error) {
	if fromStr == "" && toStr == "" {
		return time.Time{}, time.Time{}, false, nil
	}

	from, to = time.Unix(0, 0), now
	if fromStr != "" {
		if from, err = time.Parse(time.RFC3339, fromStr); err != nil {
			return time.Time{}, time.Time{}, false, fmt.Errorf("invalid from: %w", err)
		}
	}
	if toStr != "" {
		if to, err = time.Parse(time.RFC3339, toStr); err != nil {
			return time.Time{}, time.Time{}, false, fmt.Errorf("invalid to: %w", err)
		}
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, false, fmt.Errorf("to is before from")
	}
	return from, to, true, nil
}

// within keeps the samples with from <= Timestamp <= to.
func within(samples []telemetry.Sample, from, to time.Time) []telemetry.Sample {
	out := make([]telemetry.Sample, 0, len(samples))
	for _, smp := range samples {
		if smp.Timestamp.Before(from) || smp.Timestamp.After(to) {
			continue
		}
		out = append(out, smp)
	}
	return out
}

// newest keeps the last limit samples of an oldest-first slice.
func newest(samples []telemetry.Sample, limit int) []telemetry.Sample {
	if len(samples) > limit {
		return samples[len(samples)-limit:]
	}
	return samples
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Debug().Err(err).Msg("Failed to write response")
	}
}

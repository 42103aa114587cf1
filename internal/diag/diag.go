// Package diag serves the panel diagnostics HTTP API: panel status, modes,
// the fault latch, manual lifecycle operations and soak history.
package diag

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"mtpanel/internal/config"
	appLog "mtpanel/internal/log"
	"mtpanel/internal/model"
	"mtpanel/internal/panel"
	"mtpanel/internal/pipeline"
)

// Cycler is the power-cycle soak as seen by the API.
type Cycler interface {
	RunOnce(ctx context.Context) model.CycleReport
	History() []model.CycleReport
}

// Server provides the diagnostics endpoints.
type Server struct {
	cfg   config.DiagnosticsConfig
	pl    *pipeline.Pipeline
	cycle Cycler
	mux   *http.ServeMux

	// opWait bounds how long a request waits for a panel that is busy.
	opWait time.Duration
}

// NewServer constructs a Server over pl. cycle may be nil.
func NewServer(cfg config.DiagnosticsConfig, pl *pipeline.Pipeline, cycle Cycler) *Server {
	s := &Server{
		cfg:    cfg,
		pl:     pl,
		cycle:  cycle,
		mux:    http.NewServeMux(),
		opWait: 30 * time.Second,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// Run serves on cfg.Listen until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured. Empty
// credentials disable it.
func (s *Server) basicAuthEnabled() bool {
	a := s.cfg.BasicAuth
	return a != nil && a.Username != "" && a.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="mtpanel", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/fault", s.handleFault)
	s.mux.HandleFunc("GET /api/panels", s.handlePanels)
	s.mux.HandleFunc("GET /api/panels/{name}", s.handlePanel)
	s.mux.HandleFunc("GET /api/panels/{name}/modes", s.handleModes)
	s.mux.HandleFunc("POST /api/panels/{name}/{op}", s.handleOp)
	s.mux.HandleFunc("GET /api/cycles", s.handleCycles)
	s.mux.HandleFunc("POST /api/cycles", s.handleCycleRun)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type faultResponse struct {
	Latched bool `json:"latched"`
}

func (s *Server) handleFault(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, faultResponse{Latched: panel.FaultLatched()})
}

func (s *Server) handlePanels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.pl.Statuses())
}

func (s *Server) handlePanel(w http.ResponseWriter, r *http.Request) {
	st, err := s.pl.Status(r.PathValue("name"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleModes(w http.ResponseWriter, r *http.Request) {
	info, err := s.pl.Modes(r.PathValue("name"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// opResponse is the JSON response shape for lifecycle operations.
type opResponse struct {
	Status  model.PanelStatus `json:"status"`
	Latched bool              `json:"latched"`
	Error   string            `json:"error,omitempty"`
}

// handleOp runs one lifecycle operation.
//
// POST /api/panels/{name}/{prepare|enable|disable|unprepare}
func (s *Server) handleOp(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	op, err := pipeline.ParseOp(r.PathValue("op"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opWait)
	defer cancel()

	appLog.Info("api lifecycle request", "panel", name, "op", op, "remote", r.RemoteAddr)
	runErr := s.pl.Run(ctx, name, op)
	if errors.Is(runErr, pipeline.ErrUnknownPanel) {
		writeError(w, http.StatusNotFound, runErr.Error())
		return
	}

	st, err := s.pl.Status(name)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	resp := opResponse{Status: st, Latched: panel.FaultLatched()}
	if runErr != nil {
		resp.Error = runErr.Error()
		writeJSON(w, statusFor(runErr), resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCycles(w http.ResponseWriter, _ *http.Request) {
	if s.cycle == nil {
		writeJSON(w, http.StatusOK, []model.CycleReport{})
		return
	}
	writeJSON(w, http.StatusOK, s.cycle.History())
}

func (s *Server) handleCycleRun(w http.ResponseWriter, r *http.Request) {
	if s.cycle == nil {
		writeError(w, http.StatusNotFound, "power-cycle soak not configured")
		return
	}
	rep := s.cycle.RunOnce(r.Context())
	status := http.StatusOK
	if !rep.OK() {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, rep)
}

// statusFor maps lifecycle errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		wf *panel.TransportWriteFailedError
		sa *panel.ScriptAbortedError
	)
	switch {
	case errors.Is(err, pipeline.ErrUnknownPanel):
		return http.StatusNotFound
	case errors.Is(err, panel.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	case errors.As(err, &wf), errors.As(err, &sa):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

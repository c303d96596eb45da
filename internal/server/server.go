// Package server is the HTTP + WebSocket surface for browsing capture output
// and triggering local captures from other tools.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/raysh454/design-polish/internal/capture"
	"github.com/raysh454/design-polish/internal/history"
	"github.com/raysh454/design-polish/internal/logging"
	"github.com/raysh454/design-polish/internal/model"
	"github.com/raysh454/design-polish/internal/report"
	"github.com/raysh454/design-polish/internal/webclient"
)

// ErrBusy is returned when a capture is requested while another one runs.
var ErrBusy = errors.New("a capture is already running")

// HistoryReader is the read side of the run history.
type HistoryReader interface {
	Runs(ctx context.Context, limit int) ([]history.Run, error)
	Results(ctx context.Context, runID string) ([]model.CaptureResult, error)
}

// RunnerFactory builds a Runner for one capture. onResult observes each
// target's result. The returned cleanup must be called when the run is over.
type RunnerFactory func(ctx context.Context, onResult func(model.CaptureResult)) (*capture.Runner, func(), error)

// Server is the HTTP + WebSocket API surface.
type Server struct {
	cfg       Config
	router    chi.Router
	upgrader  websocket.Upgrader
	logger    logging.Logger
	history   HistoryReader
	newRunner RunnerFactory

	// busy serializes captures; one browser session at a time.
	busy sync.Mutex
}

// NewServer wires the routes. hist may be nil when run history is disabled.
func NewServer(cfg Config, newRunner RunnerFactory, hist HistoryReader, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	s := &Server{
		cfg:       cfg,
		router:    chi.NewRouter(),
		logger:    logger.With(logging.Field{Key: "component", Value: "server"}),
		history:   hist,
		newRunner: newRunner,
		upgrader: websocket.Upgrader{
			CheckOrigin: allowedOrigin,
		},
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.corsMiddleware)

	// CORS preflight
	r.Options("/api/capture", s.optionsHandler("POST"))

	r.Get("/api/screenshots", s.handleListScreenshots)
	r.Get("/screenshots/{name}", s.handleGetScreenshot)

	r.Get("/api/reports", s.handleListReports)
	r.Get("/api/reports/{name}", s.handleGetReport)
	r.Get("/api/reports/{name}/markdown", s.handleGetReportMarkdown)

	r.Get("/api/runs", s.handleListRuns)
	r.Get("/api/runs/{runID}/results", s.handleGetRunResults)

	r.Post("/api/capture", s.handleCapture)
	r.Get("/ws/capture", s.handleCaptureWS)
}

// allowedOrigin accepts requests without an Origin header (non-browser
// clients), from the server's own host, and from loopback hosts.
func allowedOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	host := u.Hostname()
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// corsMiddleware rejects cross-origin browser requests from anything but
// local pages and echoes the origin back for the ones it accepts.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Origin")
		if !allowedOrigin(r) {
			s.logger.Warn("rejected cross-origin request",
				logging.Field{Key: "origin", Value: r.Header.Get("Origin")},
				logging.Field{Key: "path", Value: r.URL.Path})
			writeError(w, http.StatusForbidden, "origin not allowed")
			return
		}
		if origin := r.Header.Get("Origin"); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Access-Control-Max-Age", "86400")
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("http_request",
		logging.Field{Key: "method", Value: r.Method},
		logging.Field{Key: "path", Value: r.URL.Path})
	s.router.ServeHTTP(w, r)
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      0, // captures and websockets stream
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// --- Artifacts ---

// listDir returns the files of dir with the given extension, newest first. A
// missing directory is an empty listing.
func listDir(dir, ext, urlPrefix string) ([]Artifact, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return []Artifact{}, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]Artifact, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Artifact{
			Name:     e.Name(),
			Size:     info.Size(),
			Modified: info.ModTime().UTC(),
			URL:      urlPrefix + e.Name(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Modified.Equal(out[j].Modified) {
			return out[i].Name < out[j].Name
		}
		return out[i].Modified.After(out[j].Modified)
	})
	return out, nil
}

// artifactPath joins a flat file name onto dir, rejecting anything that could
// escape it.
func artifactPath(dir, name, ext string) (string, bool) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ext) {
		return "", false
	}
	return filepath.Join(dir, name), true
}

func (s *Server) handleListScreenshots(w http.ResponseWriter, r *http.Request) {
	files, err := listDir(s.cfg.Capture.OutputDir, ".png", "/screenshots/")
	if err != nil {
		s.logger.Warn("listing screenshots", logging.Field{Key: "error", Value: err})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, files)
}

func (s *Server) handleGetScreenshot(w http.ResponseWriter, r *http.Request) {
	path, ok := artifactPath(s.cfg.Capture.OutputDir, chi.URLParam(r, "name"), ".png")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid screenshot name")
		return
	}
	f, err := os.Open(path)
	if err != nil {
		writeError(w, http.StatusNotFound, "screenshot not found")
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	files, err := listDir(s.cfg.Capture.A11yDir, ".json", "/api/reports/")
	if err != nil {
		s.logger.Warn("listing reports", logging.Field{Key: "error", Value: err})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]ReportListing, 0, len(files))
	for _, f := range files {
		rep, err := report.Load(filepath.Join(s.cfg.Capture.A11yDir, f.Name))
		if err != nil {
			s.logger.Debug("skipping unreadable report", logging.Field{Key: "file", Value: f.Name}, logging.Field{Key: "error", Value: err})
			continue
		}
		out = append(out, ReportListing{Artifact: f, PageURL: rep.URL, Summary: rep.Summary})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) loadReport(w http.ResponseWriter, r *http.Request) (*model.AccessibilityReport, bool) {
	path, ok := artifactPath(s.cfg.Capture.A11yDir, chi.URLParam(r, "name"), ".json")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid report name")
		return nil, false
	}
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, "report not found")
		return nil, false
	}
	rep, err := report.Load(path)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return nil, false
	}
	return rep, true
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	if rep, ok := s.loadReport(w, r); ok {
		writeJSON(w, http.StatusOK, rep)
	}
}

func (s *Server) handleGetReportMarkdown(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.loadReport(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	if err := report.WriteReport(w, rep); err != nil {
		s.logger.Warn("rendering report", logging.Field{Key: "error", Value: err})
	}
}

// --- History ---

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "run history is disabled")
		return
	}
	limit := 20
	if ls := r.URL.Query().Get("limit"); ls != "" {
		if v, err := strconv.Atoi(ls); err == nil && v > 0 {
			limit = v
		}
	}
	runs, err := s.history.Runs(r.Context(), limit)
	if err != nil {
		s.logger.Warn("listing runs", logging.Field{Key: "error", Value: err})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []history.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRunResults(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "run history is disabled")
		return
	}
	runID := chi.URLParam(r, "runID")
	results, err := s.history.Results(r.Context(), runID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(results) == 0 {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// --- Captures ---

func normalizeRoutes(routes []string) []string {
	out := make([]string, 0, len(routes))
	for _, r := range routes {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if !strings.HasPrefix(r, "/") {
			r = "/" + r
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		return []string{"/"}
	}
	return out
}

func (s *Server) capture(ctx context.Context, routes []string, wcag bool, onResult func(model.CaptureResult)) (*capture.LocalResult, error) {
	if !s.busy.TryLock() {
		return nil, ErrBusy
	}
	defer s.busy.Unlock()

	runner, cleanup, err := s.newRunner(ctx, onResult)
	if cleanup != nil {
		defer cleanup()
	}
	if err != nil {
		return nil, err
	}
	return runner.CaptureLocal(ctx, normalizeRoutes(routes), capture.LocalOptions{WCAG: wcag})
}

func captureStatus(err error) int {
	switch {
	case errors.Is(err, ErrBusy):
		return http.StatusConflict
	case errors.Is(err, webclient.ErrServerUnreachable):
		return http.StatusBadGateway
	case errors.Is(err, capture.ErrNoRoutes):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	var body CaptureRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	}
	wcag := body.WCAG == nil || *body.WCAG

	res, err := s.capture(r.Context(), body.Routes, wcag, nil)
	if err != nil {
		s.logger.Warn("capture failed", logging.Field{Key: "error", Value: err})
		writeError(w, captureStatus(err), err.Error())
		return
	}
	s.logger.Info("capture finished", logging.Field{Key: "targets", Value: len(res.Results)})
	writeJSON(w, http.StatusOK, res.Summary(s.cfg.Capture.OutputDir))
}

// WebSockets

func (s *Server) handleCaptureWS(w http.ResponseWriter, r *http.Request) {
	routes := r.URL.Query()["route"]
	wcag := r.URL.Query().Get("wcag") != "false"

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", logging.Field{Key: "error", Value: err})
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Nothing is expected from the client, but reading processes close and
	// ping frames and notices a disconnect between results.
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				cancel()
				return
			}
		}
	}()

	_ = conn.WriteJSON(ProgressEvent{Type: "started"})

	res, err := s.capture(ctx, routes, wcag, func(res model.CaptureResult) {
		if err := conn.WriteJSON(ProgressEvent{Type: "result", Result: &res}); err != nil {
			// Assume client disconnected; stop the capture
			cancel()
		}
	})
	if err != nil {
		_ = conn.WriteJSON(ProgressEvent{Type: "error", Error: err.Error()})
		return
	}
	_ = conn.WriteJSON(ProgressEvent{Type: "done", Final: res.Summary(s.cfg.Capture.OutputDir)})
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

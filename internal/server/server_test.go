package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/raysh454/design-polish/internal/audit"
	"github.com/raysh454/design-polish/internal/browser"
	"github.com/raysh454/design-polish/internal/capture"
	"github.com/raysh454/design-polish/internal/history"
	"github.com/raysh454/design-polish/internal/model"
	"github.com/raysh454/design-polish/internal/server"
	"github.com/raysh454/design-polish/internal/testutil"
	"github.com/raysh454/design-polish/internal/webclient"
)

type proberFunc func(ctx context.Context, url string) error

func (f proberFunc) Probe(ctx context.Context, url string) error { return f(ctx, url) }

type fakeHistory struct {
	runs    []history.Run
	results map[string][]model.CaptureResult
}

func (h *fakeHistory) Runs(_ context.Context, limit int) ([]history.Run, error) {
	if limit < len(h.runs) {
		return h.runs[:limit], nil
	}
	return h.runs, nil
}

func (h *fakeHistory) Results(_ context.Context, id string) ([]model.CaptureResult, error) {
	return h.results[id], nil
}

type env struct {
	cfg     server.Config
	page    *testutil.FakePage
	srv     *server.Server
	down    bool
	block   chan struct{}
	aborted chan struct{}
	mu      sync.Mutex
	factory int
}

func newEnv(t *testing.T, hist server.HistoryReader) *env {
	t.Helper()
	root := t.TempDir()
	cc := capture.DefaultConfig()
	cc.OutputDir = filepath.Join(root, "screenshots")
	cc.A11yDir = filepath.Join(root, "accessibility")
	cc.Wait = 0
	cc.RetryDelay = time.Millisecond

	e := &env{
		cfg:     server.Config{ListenAddr: ":0", Capture: cc},
		aborted: make(chan struct{}, 1),
		page: &testutil.FakePage{
			NavigateErrs: map[string][]error{},
			AxeResult:    audit.RawResult{Passes: 3},
		},
	}
	factory := func(ctx context.Context, onResult func(model.CaptureResult)) (*capture.Runner, func(), error) {
		e.mu.Lock()
		e.factory++
		block := e.block
		e.mu.Unlock()
		deps := capture.Deps{
			Prober: proberFunc(func(ctx context.Context, _ string) error {
				if block != nil {
					select {
					case <-block:
					case <-ctx.Done():
						select {
						case e.aborted <- struct{}{}:
						default:
						}
						return ctx.Err()
					}
				}
				if e.down {
					return webclient.ErrServerUnreachable
				}
				return nil
			}),
			Open: func(context.Context) (browser.Session, error) {
				return &testutil.FakeSession{Pg: e.page}, nil
			},
			Auditor:  audit.NewEngine("/* axe */"),
			OnResult: onResult,
		}
		return capture.NewRunner(cc, deps), func() {}, nil
	}
	e.srv = server.NewServer(e.cfg, factory, hist, &testutil.DummyLogger{})
	return e
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON response: %v (body: %s)", err, rec.Body.String())
	}
}

// ─── CORS ──────────────────────────────────────────────────────────────

func TestServer_CORS(t *testing.T) {
	t.Parallel()
	e := newEnv(t, nil)

	for _, origin := range []string{"http://localhost:3000", "http://127.0.0.1:5173", "http://[::1]:8080", "http://example.com"} {
		req := httptest.NewRequest(http.MethodOptions, "/api/capture", nil)
		req.Host = "example.com"
		req.Header.Set("Origin", origin)
		rec := httptest.NewRecorder()
		e.srv.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Errorf("%s: preflight status %d", origin, rec.Code)
		}
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != origin {
			t.Errorf("%s: allow origin = %q", origin, got)
		}
		if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "POST" {
			t.Errorf("%s: allow methods = %q", origin, got)
		}
	}
}

func TestServer_RejectsForeignOrigin(t *testing.T) {
	t.Parallel()
	e := newEnv(t, nil)

	for _, method := range []string{http.MethodOptions, http.MethodPost, http.MethodGet} {
		path := "/api/capture"
		if method == http.MethodGet {
			path = "/api/screenshots"
		}
		req := httptest.NewRequest(method, path, strings.NewReader(`{}`))
		req.Header.Set("Origin", "https://attacker.example")
		rec := httptest.NewRecorder()
		e.srv.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Errorf("%s %s: status %d, want 403", method, path, rec.Code)
		}
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("%s %s: allow origin = %q", method, path, got)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.factory != 0 {
		t.Errorf("a rejected request started %d captures", e.factory)
	}
}

// ─── Captures and artifacts ────────────────────────────────────────────

func TestServer_CaptureThenBrowse(t *testing.T) {
	t.Parallel()
	e := newEnv(t, nil)

	rec := do(t, e.srv, http.MethodPost, "/api/capture", `{"routes":["/","about"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("capture status %d: %s", rec.Code, rec.Body.String())
	}
	var summary struct {
		Success    bool                       `json:"success"`
		Type       string                     `json:"type"`
		Results    []model.CaptureResult      `json:"results"`
		WCAGReport *model.AccessibilityReport `json:"wcagReport"`
	}
	decodeJSON(t, rec, &summary)
	if !summary.Success || summary.Type != "local" || len(summary.Results) != 2 || summary.WCAGReport == nil {
		t.Fatalf("unexpected summary %+v", summary)
	}

	rec = do(t, e.srv, http.MethodGet, "/api/screenshots", "")
	var shots []server.Artifact
	decodeJSON(t, rec, &shots)
	if len(shots) != 2 {
		t.Fatalf("expected 2 screenshots, got %+v", shots)
	}

	rec = do(t, e.srv, http.MethodGet, "/screenshots/current-about.png", "")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Errorf("screenshot: status %d type %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if rec.Body.String() != string(testutil.PNG) {
		t.Error("screenshot bytes differ")
	}

	rec = do(t, e.srv, http.MethodGet, "/api/reports", "")
	var reports []server.ReportListing
	decodeJSON(t, rec, &reports)
	if len(reports) != 1 || reports[0].Name != "wcag-report.json" || reports[0].Summary.Passes != 3 {
		t.Fatalf("unexpected report listing %+v", reports)
	}
	if reports[0].PageURL != "http://localhost:3000/" {
		t.Errorf("page url = %q", reports[0].PageURL)
	}

	rec = do(t, e.srv, http.MethodGet, "/api/reports/wcag-report.json/markdown", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "# Accessibility Report") {
		t.Errorf("markdown: status %d body %q", rec.Code, rec.Body.String())
	}
}

func TestServer_CaptureDefaultsToRoot(t *testing.T) {
	t.Parallel()
	e := newEnv(t, nil)

	rec := do(t, e.srv, http.MethodPost, "/api/capture", `{"wcag":false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if len(e.page.Navigations) != 1 || e.page.Navigations[0] != "http://localhost:3000/" {
		t.Errorf("navigations %v", e.page.Navigations)
	}
	if e.page.Audits != 0 {
		t.Error("wcag=false must skip the audit")
	}
}

func TestServer_CaptureServerDown(t *testing.T) {
	t.Parallel()
	e := newEnv(t, nil)
	e.down = true

	rec := do(t, e.srv, http.MethodPost, "/api/capture", `{}`)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status %d, want 502", rec.Code)
	}
}

func TestServer_CaptureInvalidJSON(t *testing.T) {
	t.Parallel()
	e := newEnv(t, nil)

	rec := do(t, e.srv, http.MethodPost, "/api/capture", `{`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status %d, want 400", rec.Code)
	}
}

func TestServer_CaptureBusy(t *testing.T) {
	t.Parallel()
	e := newEnv(t, nil)
	e.block = make(chan struct{})

	first := make(chan int, 1)
	go func() {
		first <- do(t, e.srv, http.MethodPost, "/api/capture", `{}`).Code
	}()

	// Wait until the first capture holds the lock.
	deadline := time.Now().Add(2 * time.Second)
	for {
		e.mu.Lock()
		n := e.factory
		e.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("first capture did not start")
		}
		time.Sleep(5 * time.Millisecond)
	}

	rec := do(t, e.srv, http.MethodPost, "/api/capture", `{}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("concurrent capture status %d, want 409", rec.Code)
	}

	close(e.block)
	if code := <-first; code != http.StatusOK {
		t.Errorf("first capture status %d", code)
	}
}

func TestServer_ArtifactNames(t *testing.T) {
	t.Parallel()
	e := newEnv(t, nil)
	if err := os.MkdirAll(e.cfg.Capture.A11yDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(e.cfg.Capture.A11yDir, "broken.json"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}

	cases := map[string]int{
		"/screenshots/missing.png":  http.StatusNotFound,
		"/screenshots/notes.txt":    http.StatusBadRequest,
		"/screenshots/..%2Fx.png":   http.StatusBadRequest,
		"/api/reports/missing.json": http.StatusNotFound,
		"/api/reports/broken.json":  http.StatusUnprocessableEntity,
	}
	for path, want := range cases {
		if rec := do(t, e.srv, http.MethodGet, path, ""); rec.Code != want {
			t.Errorf("%s: status %d, want %d", path, rec.Code, want)
		}
	}

	rec := do(t, e.srv, http.MethodGet, "/api/reports", "")
	var reports []server.ReportListing
	decodeJSON(t, rec, &reports)
	if len(reports) != 0 {
		t.Errorf("unreadable reports must be skipped, got %+v", reports)
	}
}

// ─── History ───────────────────────────────────────────────────────────

func TestServer_HistoryDisabled(t *testing.T) {
	t.Parallel()
	e := newEnv(t, nil)

	if rec := do(t, e.srv, http.MethodGet, "/api/runs", ""); rec.Code != http.StatusNotFound {
		t.Errorf("status %d, want 404", rec.Code)
	}
}

func TestServer_History(t *testing.T) {
	t.Parallel()
	hist := &fakeHistory{
		runs: []history.Run{{ID: "b", Mode: model.ModeWCAG}, {ID: "a", Mode: model.ModeLocal}},
		results: map[string][]model.CaptureResult{
			"a": {{Route: "/", Filename: "current-main.png", Success: true}},
		},
	}
	e := newEnv(t, hist)

	rec := do(t, e.srv, http.MethodGet, "/api/runs?limit=1", "")
	var runs []history.Run
	decodeJSON(t, rec, &runs)
	if len(runs) != 1 || runs[0].ID != "b" {
		t.Errorf("runs = %+v", runs)
	}

	rec = do(t, e.srv, http.MethodGet, "/api/runs/a/results", "")
	var results []model.CaptureResult
	decodeJSON(t, rec, &results)
	if len(results) != 1 || results[0].Filename != "current-main.png" {
		t.Errorf("results = %+v", results)
	}

	if rec := do(t, e.srv, http.MethodGet, "/api/runs/zzz/results", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown run status %d", rec.Code)
	}
}

// ─── WebSocket ─────────────────────────────────────────────────────────

func TestServer_CaptureWebSocketStreamsResults(t *testing.T) {
	t.Parallel()
	e := newEnv(t, nil)
	e.page.NavigateErrs["http://localhost:3000/broken"] = []error{
		errors.New("net::ERR_TIMED_OUT"), errors.New("net::ERR_TIMED_OUT"), errors.New("net::ERR_TIMED_OUT"),
	}
	ts := httptest.NewServer(e.srv)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/capture?route=/&route=/broken&wcag=false"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var types []string
	var results []model.CaptureResult
	for {
		var ev server.ProgressEvent
		if err := conn.ReadJSON(&ev); err != nil {
			break
		}
		types = append(types, ev.Type)
		if ev.Result != nil {
			results = append(results, *ev.Result)
		}
		if ev.Type == "done" || ev.Type == "error" {
			break
		}
	}

	want := []string{"started", "result", "result", "done"}
	if strings.Join(types, ",") != strings.Join(want, ",") {
		t.Fatalf("events %v, want %v", types, want)
	}
	if !results[0].Success || results[1].Success {
		t.Errorf("unexpected results %+v", results)
	}
}

func TestServer_CaptureWebSocketRejectsForeignOrigin(t *testing.T) {
	t.Parallel()
	e := newEnv(t, nil)
	ts := httptest.NewServer(e.srv)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/capture"
	hdr := http.Header{"Origin": []string{"https://attacker.example"}}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, hdr)
	if err == nil {
		conn.Close()
		t.Fatal("expected handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("handshake response %+v, want 403", resp)
	}
}

func TestServer_CaptureWebSocketDisconnectCancels(t *testing.T) {
	t.Parallel()
	e := newEnv(t, nil)
	e.block = make(chan struct{})
	defer close(e.block)
	ts := httptest.NewServer(e.srv)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/capture?route=/"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	var ev server.ProgressEvent
	if err := conn.ReadJSON(&ev); err != nil || ev.Type != "started" {
		t.Fatalf("first event %+v, err %v", ev, err)
	}
	conn.Close()

	select {
	case <-e.aborted:
	case <-time.After(2 * time.Second):
		t.Fatal("capture was not cancelled after the client disconnected")
	}
}

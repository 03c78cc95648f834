package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/Jaybarot21/GlobalCollapse/internal/config"
	"github.com/Jaybarot21/GlobalCollapse/internal/game"
	"github.com/Jaybarot21/GlobalCollapse/internal/serverapp"
)

func TestServer_ProtectedRoutesRequireAuth(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{
		"/api/player/state",
		"/api/actions",
	} {
		res := app.request(http.MethodGet, path, nil, "")
		if res.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for %s, got %d", path, res.Code)
		}
	}

	res := app.json(http.MethodPost, "/api/training/start", map[string]any{"stat": "strength"})
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for /api/training/start, got %d", res.Code)
	}

	// Leaderboard and articles stay public.
	if res := app.request(http.MethodGet, "/api/leaderboard", nil, ""); res.Code != http.StatusOK {
		t.Fatalf("leaderboard expected 200, got %d", res.Code)
	}
	if res := app.request(http.MethodGet, "/api/articles", nil, ""); res.Code != http.StatusOK {
		t.Fatalf("articles expected 200, got %d", res.Code)
	}
}

func TestServer_LoginTutorialAndTrainingCycle(t *testing.T) {
	app := newTestApp(t)
	app.login(t, "integration@example.com")

	// A fresh player is gated until the tutorial is done.
	trainRes := app.json(http.MethodPost, "/api/training/start", map[string]any{"stat": "strength"})
	if trainRes.Code != http.StatusForbidden {
		t.Fatalf("training before tutorial expected 403, got %d body=%s", trainRes.Code, trainRes.Body.String())
	}
	gate := decodeBodyMap(t, trainRes)
	redirect, _ := gate["redirect"].(string)
	if redirect == "" {
		t.Fatalf("expected redirect path in tutorial gate response, body=%s", trainRes.Body.String())
	}
	if res := app.request(http.MethodGet, redirect, nil, ""); res.Code != http.StatusOK {
		t.Fatalf("tutorial landing expected 200, got %d", res.Code)
	}

	if res := app.json(http.MethodPost, "/api/player/tutorial", nil); res.Code != http.StatusOK {
		t.Fatalf("tutorial complete expected 200, got %d body=%s", res.Code, res.Body.String())
	}

	trainRes = app.json(http.MethodPost, "/api/training/start", map[string]any{"stat": "strength"})
	if trainRes.Code != http.StatusOK {
		t.Fatalf("training start expected 200, got %d body=%s", trainRes.Code, trainRes.Body.String())
	}

	// Mid-session the activity page shows a countdown.
	app.clock.Advance(10 * time.Minute)
	actionsRes := app.request(http.MethodGet, "/api/actions", nil, "")
	if actionsRes.Code != http.StatusOK {
		t.Fatalf("actions expected 200, got %d body=%s", actionsRes.Code, actionsRes.Body.String())
	}
	actions := decodeBodyMap(t, actionsRes)
	if _, ok := actions["countdown"]; !ok {
		t.Fatalf("expected countdown while training, body=%s", actionsRes.Body.String())
	}

	// After the window the next observation completes the session.
	app.clock.Advance(25 * time.Minute)
	actionsRes = app.request(http.MethodGet, "/api/actions", nil, "")
	if actionsRes.Code != http.StatusOK {
		t.Fatalf("actions expected 200, got %d body=%s", actionsRes.Code, actionsRes.Body.String())
	}
	actions = decodeBodyMap(t, actionsRes)
	action := asMap(t, actions["action"])
	if kind, _ := action["kind"].(string); kind != "none" {
		t.Fatalf("expected training resolved, action=%v", action)
	}

	stateRes := app.request(http.MethodGet, "/api/player/state", nil, "")
	if stateRes.Code != http.StatusOK {
		t.Fatalf("player state expected 200, got %d", stateRes.Code)
	}
	state := decodeBodyMap(t, stateRes)
	stats := asMap(t, state["stats"])
	if got := stats["strength"].(float64); got != 2 {
		t.Fatalf("expected strength 2 after one completed session, got %v", got)
	}
}

func TestServer_RestCycle(t *testing.T) {
	app := newTestApp(t)
	app.login(t, "rest@example.com")
	if res := app.json(http.MethodPost, "/api/player/tutorial", nil); res.Code != http.StatusOK {
		t.Fatalf("tutorial complete expected 200, got %d", res.Code)
	}

	// Spend some energy first so the rest has something to refill.
	if res := app.json(http.MethodPost, "/api/training/start", map[string]any{"stat": "speed"}); res.Code != http.StatusOK {
		t.Fatalf("training start expected 200, got %d body=%s", res.Code, res.Body.String())
	}
	app.clock.Advance(31 * time.Minute)

	if res := app.json(http.MethodPost, "/api/rest/start", nil); res.Code != http.StatusOK {
		t.Fatalf("rest start expected 200, got %d body=%s", res.Code, res.Body.String())
	}

	app.clock.Advance(1 * time.Hour)
	stopRes := app.json(http.MethodPost, "/api/rest/stop", nil)
	if stopRes.Code != http.StatusOK {
		t.Fatalf("rest stop expected 200, got %d body=%s", stopRes.Code, stopRes.Body.String())
	}
	stop := decodeBodyMap(t, stopRes)
	if msg, _ := stop["message"].(string); msg != "You regained 25 energy" {
		t.Fatalf("unexpected rest stop message %q", msg)
	}

	// Stopping again is a conflict.
	stopRes = app.json(http.MethodPost, "/api/rest/stop", nil)
	if stopRes.Code != http.StatusConflict {
		t.Fatalf("second rest stop expected 409, got %d", stopRes.Code)
	}
}

func TestServer_HealthReadinessAndStatic(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		res := app.request(http.MethodGet, path, nil, "")
		if res.Code != http.StatusOK {
			t.Fatalf("%s expected 200, got %d body=%s", path, res.Code, res.Body.String())
		}
		if rid := strings.TrimSpace(res.Header().Get("X-Request-Id")); rid == "" {
			t.Fatalf("%s missing X-Request-Id header", path)
		}
	}

	staticRes := app.request(http.MethodGet, "/static/js/app.js", nil, "")
	if staticRes.Code != http.StatusOK {
		t.Fatalf("embedded static asset expected 200, got %d", staticRes.Code)
	}
	if staticRes.Body.Len() == 0 {
		t.Fatalf("embedded static asset should not be empty")
	}
}

func TestServer_LeaderboardSeesNewPlayers(t *testing.T) {
	app := newTestApp(t)
	app.login(t, "ranked@example.com")

	res := app.request(http.MethodGet, "/api/leaderboard", nil, "")
	if res.Code != http.StatusOK {
		t.Fatalf("leaderboard expected 200, got %d", res.Code)
	}
	body := decodeBodyMap(t, res)
	rows, ok := body["players"].([]any)
	if !ok || len(rows) != 1 {
		t.Fatalf("expected one leaderboard row, body=%s", res.Body.String())
	}
	row := asMap(t, rows[0])
	if name, _ := row["name"].(string); name != "ranked" {
		t.Fatalf("expected player name derived from email, got %q", name)
	}
}

type testApp struct {
	handler http.Handler
	logs    *bytes.Buffer
	clock   *game.FakeClock
	cookies map[string]*http.Cookie
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	cfg := loadTestConfig(t)
	dataDir := t.TempDir()

	var logs bytes.Buffer
	logger := log.New(&logs, "", 0)
	clock := game.NewFakeClock(time.Now())

	h, err := serverapp.NewHandler(serverapp.Options{
		Config:  cfg,
		DataDir: dataDir,
		Logger:  logger,
		Clock:   clock,
	})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	return &testApp{
		handler: h,
		logs:    &logs,
		clock:   clock,
		cookies: map[string]*http.Cookie{},
	}
}

func (a *testApp) json(method, path string, body any) *httptest.ResponseRecorder {
	if body == nil {
		body = map[string]any{}
	}
	b, _ := json.Marshal(body)
	return a.request(method, path, bytes.NewReader(b), "application/json")
}

func (a *testApp) request(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, c := range a.cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	a.captureCookies(rec.Result())
	return rec
}

func (a *testApp) captureCookies(res *http.Response) {
	for _, c := range res.Cookies() {
		if c == nil {
			continue
		}
		if c.MaxAge < 0 || strings.TrimSpace(c.Value) == "" {
			delete(a.cookies, c.Name)
			continue
		}
		cp := *c
		a.cookies[c.Name] = &cp
	}
}

func (a *testApp) login(t *testing.T, email string) {
	t.Helper()

	res := a.json(http.MethodPost, "/api/auth/request-otp", map[string]any{
		"email": email,
	})
	if res.Code != http.StatusOK {
		t.Fatalf("request otp expected 200, got %d body=%s", res.Code, res.Body.String())
	}

	code := otpCodeFromLogs(t, a.logs)
	verifyRes := a.json(http.MethodPost, "/api/auth/verify-otp", map[string]any{
		"email": email,
		"code":  code,
	})
	if verifyRes.Code != http.StatusOK {
		t.Fatalf("verify otp expected 200, got %d body=%s", verifyRes.Code, verifyRes.Body.String())
	}
}

func loadTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfgPath := filepath.Join(projectRoot(t), "collapse_config.yml")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("load config %s: %v", cfgPath, err)
	}
	return cfg
}

func projectRoot(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("runtime.Caller failed")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
}

func otpCodeFromLogs(t *testing.T, logs *bytes.Buffer) string {
	t.Helper()
	re := regexp.MustCompile(`OTP code for .* is ([0-9]{6})`)
	matches := re.FindAllStringSubmatch(logs.String(), -1)
	if len(matches) == 0 {
		t.Fatalf("no OTP code found in logs: %s", logs.String())
	}
	last := matches[len(matches)-1]
	return last[1]
}

func decodeBodyMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode json body failed: %v body=%s", err, rec.Body.String())
	}
	return out
}

func asMap(t *testing.T, v any) map[string]any {
	t.Helper()
	out, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("expected map[string]any, got %T (%v)", v, v)
	}
	return out
}

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/wavecoach/internal/app"
	"github.com/ayusman/wavecoach/internal/config"
	"github.com/ayusman/wavecoach/internal/hook"
	"github.com/ayusman/wavecoach/internal/metrics"
	"github.com/ayusman/wavecoach/internal/pose"
	"github.com/ayusman/wavecoach/internal/server"
	"github.com/ayusman/wavecoach/internal/store"
	"github.com/ayusman/wavecoach/testdata"
)

const testConfig = `
[development]
port = 9999
log_level = "debug"
hook_timeout_ms = 2000

[development.analyzer]
min_angle = 15.0
max_angle = 75.0
`

type service struct {
	app      *app.App
	server   *server.Server
	ts       *httptest.Server
	hookFile string
}

// startService wires the service the way cmd/wavecoach does, on a test
// listener and a database in dbDir.
func startService(t *testing.T, dbDir string) *service {
	t.Helper()

	cfg, err := config.Parse("development", testConfig)
	if err != nil {
		t.Fatalf("config.Parse() error = %v", err)
	}

	s, err := store.New(filepath.Join(dbDir, "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}

	hookDir := t.TempDir()
	hookFile := filepath.Join(hookDir, "events.jsonl")
	script := filepath.Join(hookDir, "record.sh")
	// One write per event keeps concurrent runs from interleaving.
	content := "#!/bin/sh\nline=$(cat)\nprintf '%s\\n' \"$line\" >> \"$1\"\necho '{\"success\":true}'\n"
	if err := os.WriteFile(script, []byte(content), 0755); err != nil {
		t.Fatalf("failed to write hook: %v", err)
	}

	reg := metrics.SetupPrometheus()
	a, err := app.New(app.Config{
		Store:        s,
		Metrics:      metrics.NewManager("wavecoach", "e2e", reg),
		Hooks:        hook.NewRegistry(hook.Hook{Name: "record", Command: script, Args: []string{hookFile}}),
		HookExecutor: hook.NewExecutor(cfg.HookTimeoutMs),
		Defaults: app.SessionOptions{
			Side: pose.Side(cfg.Analyzer.Side),
			Wave: cfg.Analyzer.WaveConfig(),
		},
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}

	srv := server.New(server.Config{App: a, Gatherer: reg})
	ts := httptest.NewServer(srv)

	svc := &service{app: a, server: srv, ts: ts, hookFile: hookFile}
	t.Cleanup(func() {
		svc.stop()
		s.Close()
	})
	return svc
}

func (s *service) stop() {
	if s.ts == nil {
		return
	}
	s.server.Close()
	s.ts.Close()
	s.app.Close()
	s.ts = nil
}

func (s *service) request(t *testing.T, method, path, body string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, s.ts.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := s.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s error = %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestE2E_CompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}
	if runtime.GOOS == "windows" {
		t.Skip("hook script needs a POSIX shell")
	}

	svc := startService(t, t.TempDir())
	var sessionID string

	t.Run("StoreDefaultSide", func(t *testing.T) {
		resp := svc.request(t, http.MethodPut, "/api/settings/"+app.SettingSide, `{"value": "left"}`)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
	})

	t.Run("StartSession", func(t *testing.T) {
		resp := svc.request(t, http.MethodPost, "/api/sessions", `{"name": "physio"}`)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
		}
		var created store.Session
		decode(t, resp, &created)
		if created.Side != "left" {
			t.Errorf("side = %s, want left", created.Side)
		}
		sessionID = created.ID
	})

	t.Run("StreamRecordingWithLiveFeed", func(t *testing.T) {
		wsURL := "ws" + strings.TrimPrefix(svc.ts.URL, "http") + "/api/live?session=" + sessionID
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			t.Fatalf("dial live feed: %v", err)
		}
		defer conn.Close()

		deadline := time.Now().Add(2 * time.Second)
		for svc.server.Live().Clients() != 1 {
			if time.Now().After(deadline) {
				t.Fatal("live client never registered")
			}
			time.Sleep(10 * time.Millisecond)
		}

		src, err := testdata.LoadSource(testdata.ThreeWavesLandmarks)
		if err != nil {
			t.Fatalf("LoadSource() error = %v", err)
		}
		if err := svc.app.Run(context.Background(), sessionID, src); err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		completed := 0
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		for completed < 3 {
			var msg server.LiveMessage
			if err := conn.ReadJSON(&msg); err != nil {
				t.Fatalf("read live message after %d completions: %v", completed, err)
			}
			if msg.Result.Completed {
				completed++
				if msg.Result.Count != completed {
					t.Errorf("count = %d, want %d", msg.Result.Count, completed)
				}
			}
		}
	})

	t.Run("Summary", func(t *testing.T) {
		resp := svc.request(t, http.MethodGet, "/api/sessions/"+sessionID+"/summary", "")
		var summary struct {
			Repetitions     int     `json:"repetitions"`
			BestPerformance float64 `json:"best_performance"`
		}
		decode(t, resp, &summary)
		if summary.Repetitions != 3 {
			t.Errorf("repetitions = %d, want 3", summary.Repetitions)
		}
		if summary.BestPerformance <= 100 {
			t.Errorf("best performance = %.2f, want above 100 for an 85 degree swing", summary.BestPerformance)
		}
	})

	t.Run("Metrics", func(t *testing.T) {
		resp := svc.request(t, http.MethodGet, "/metrics", "")
		body, _ := io.ReadAll(resp.Body)
		if !bytes.Contains(body, []byte("wavecoach_e2e_repetitions 3")) {
			t.Errorf("expected 3 repetitions in metrics output")
		}
		if !bytes.Contains(body, []byte("go_goroutines")) {
			t.Errorf("expected runtime collectors in metrics output")
		}
	})

	t.Run("HooksRanForEveryRepetition", func(t *testing.T) {
		// Close waits for running hooks.
		svc.stop()

		data, err := os.ReadFile(svc.hookFile)
		if err != nil {
			t.Fatalf("read hook output: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 3 {
			t.Fatalf("hook ran %d times, want 3", len(lines))
		}
		for i, line := range lines {
			var ev hook.Event
			if err := json.Unmarshal([]byte(line), &ev); err != nil {
				t.Fatalf("hook event %d: %v", i, err)
			}
			if ev.SessionID != sessionID || ev.Type != hook.EventRepetitionCompleted {
				t.Errorf("unexpected hook event %+v", ev)
			}
		}
	})
}

func TestE2E_RestartEndsStaleSessions(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}
	if runtime.GOOS == "windows" {
		t.Skip("hook script needs a POSIX shell")
	}

	dbDir := t.TempDir()

	first := startService(t, dbDir)
	resp := first.request(t, http.MethodPost, "/api/sessions", `{}`)
	var created store.Session
	decode(t, resp, &created)

	for _, f := range pose.WaveFrames(pose.SideRight, pose.RepetitionAngles()...) {
		body, _ := json.Marshal(f)
		resp := first.request(t, http.MethodPost, "/api/sessions/"+created.ID+"/frames", string(body))
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("frame status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
	}

	// Let the hook for the completed repetition finish before the crash.
	deadline := time.Now().Add(5 * time.Second)
	for {
		data, _ := os.ReadFile(first.hookFile)
		if bytes.Count(data, []byte("\n")) >= 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("hook did not run")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Simulate a crash: the session row is still active when the next
	// process opens the database.
	first.ts.Close()
	first.server.Close()
	first.ts = nil

	second := startService(t, dbDir)
	resp = second.request(t, http.MethodGet, "/api/sessions/"+created.ID, "")
	var got store.Session
	decode(t, resp, &got)

	if got.WaveCount != 1 {
		t.Errorf("wave_count = %d, want 1", got.WaveCount)
	}
	if got.EndedAt == nil {
		t.Error("expected session from previous run to be ended")
	}

	resp = second.request(t, http.MethodPost, "/api/sessions/"+created.ID+"/frames",
		`{"width": 640, "height": 480, "joints": {"right_hip": {"x": 0.5, "y": 0.8}}}`)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("frame after restart status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}
}

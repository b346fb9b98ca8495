package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/mechvibesdx/settings/internal/application"
	"github.com/mechvibesdx/settings/internal/config"
	"github.com/mechvibesdx/settings/internal/settings"
	"github.com/mechvibesdx/settings/internal/store"
)

type noAutostart struct{}

func (noAutostart) Supported() bool      { return false }
func (noAutostart) Enabled() bool        { return false }
func (noAutostart) Set(bool, bool) error { return nil }

type daemon struct {
	baseURL string
	cfg     config.Config
}

func startDaemon(t *testing.T) daemon {
	t.Helper()

	cfg := config.Config{
		DataDir:             t.TempDir(),
		PollInterval:        20 * time.Millisecond,
		ShutdownGracePeriod: time.Second,
		ReadHeaderTimeout:   time.Second,
		WriteTimeout:        time.Second,
		IdleTimeout:         time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	app, err := application.New(ctx, cfg, zaptest.NewLogger(t), application.WithAutostart(noAutostart{}))
	if err != nil {
		cancel()
		t.Fatalf("application.New: %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		cancel()
		t.Fatalf("listen: %v", err)
	}

	served := make(chan error, 1)
	go func() { served <- app.Serve(ctx, ln) }()

	t.Cleanup(func() {
		cancel()
		if err := <-served; err != nil {
			t.Errorf("Serve returned error: %v", err)
		}
		<-app.Settings().Done()
	})

	return daemon{baseURL: "http://" + ln.Addr().String(), cfg: cfg}
}

func (d daemon) do(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, d.baseURL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, data
}

type configBody struct {
	Config     settings.Snapshot `json:"config"`
	DaisyTheme string            `json:"daisyTheme"`
}

func (d daemon) config(t *testing.T) configBody {
	t.Helper()

	status, data := d.do(t, http.MethodGet, "/api/config", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 from config, got %d: %s", status, data)
	}
	var body configBody
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	return body
}

func TestIntegrationFlow(t *testing.T) {
	d := startDaemon(t)

	status, _ := d.do(t, http.MethodGet, "/api/health", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 from health, got %d", status)
	}

	initial := d.config(t)
	if initial.Config.LastUpdated.IsZero() {
		t.Fatalf("expected defaults to be written on startup")
	}

	status, data := d.do(t, http.MethodPatch, "/api/config", map[string]any{
		"volume": 0.5,
		"theme":  map[string]string{"BuiltIn": "Dark"},
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200 from patch, got %d: %s", status, data)
	}

	onDisk := store.NewFileStore(d.cfg.ConfigPath(), zaptest.NewLogger(t)).Load()
	if onDisk.Volume != 0.5 {
		t.Fatalf("expected patched volume on disk, got %v", onDisk.Volume)
	}
	if onDisk.Theme != settings.BuiltIn(settings.ThemeDark) {
		t.Fatalf("expected Dark theme on disk, got %s", onDisk.Theme)
	}
	if onDisk.LastUpdated.Before(initial.Config.LastUpdated) {
		t.Fatalf("expected last_updated to move forward")
	}

	if got := d.config(t).DaisyTheme; got != "dark" {
		t.Fatalf("expected daisy theme dark, got %q", got)
	}
}

func TestIntegrationExternalWriteIsPickedUp(t *testing.T) {
	d := startDaemon(t)

	external := d.config(t).Config
	external.Volume = 1.5
	external.LastUpdated = time.Now().Add(time.Hour).UTC()
	if err := store.WriteJSON(d.cfg.ConfigPath(), external); err != nil {
		t.Fatalf("write external config: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if d.config(t).Config.Volume == 1.5 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("expected external write to be observed within the deadline")
}

func TestIntegrationThemeDeletionResetsSelection(t *testing.T) {
	d := startDaemon(t)

	status, data := d.do(t, http.MethodPut, "/api/themes/neon", map[string]string{
		"description": "bright",
		"css":         ":root{--p:#ff00ff}",
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200 from theme upsert, got %d: %s", status, data)
	}

	status, data = d.do(t, http.MethodPatch, "/api/config", map[string]any{
		"theme": map[string]string{"Custom": "neon"},
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200 from patch, got %d: %s", status, data)
	}
	if got := d.config(t).DaisyTheme; got != "custom-neon" {
		t.Fatalf("expected custom daisy theme, got %q", got)
	}

	status, _ = d.do(t, http.MethodDelete, "/api/themes/neon", nil)
	if status != http.StatusNoContent {
		t.Fatalf("expected 204 from theme delete, got %d", status)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if d.config(t).Config.Theme == settings.BuiltIn(settings.ThemeSystem) {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("expected selection to fall back to System after deletion")
}

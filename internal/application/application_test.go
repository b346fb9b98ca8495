package application

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/mechvibesdx/settings/internal/config"
	"github.com/mechvibesdx/settings/internal/settings"
)

type fakeAutostart struct {
	supported bool
	enabled   bool
}

func (f *fakeAutostart) Supported() bool     { return f.supported }
func (f *fakeAutostart) Enabled() bool       { return f.enabled }
func (f *fakeAutostart) Set(e, _ bool) error { f.enabled = e; return nil }

func baseTestConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		DataDir:              t.TempDir(),
		ListenAddr:           "127.0.0.1:0",
		PollInterval:         20 * time.Millisecond,
		ShutdownGracePeriod:  time.Second,
		ReadHeaderTimeout:    time.Second,
		WriteTimeout:         time.Second,
		IdleTimeout:          time.Second,
		EnableRequestLogging: false,
		RateLimitRPS:         0,
		RateLimitBurst:       0,
	}
}

func newTestApp(t *testing.T, cfg config.Config, opts ...Option) (*App, context.CancelFunc) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	app, err := New(ctx, cfg, zaptest.NewLogger(t), opts...)
	if err != nil {
		cancel()
		t.Fatalf("New returned error: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		<-app.Settings().Done()
	})
	return app, cancel
}

func TestNewInitializesDependencies(t *testing.T) {
	cfg := baseTestConfig(t)
	app, _ := newTestApp(t, cfg, WithAutostart(&fakeAutostart{}))

	if app.server == nil || app.router == nil || app.handler == nil {
		t.Fatalf("expected server, router, and handler to be initialized")
	}
	if app.Server() != app.server {
		t.Fatalf("Server accessor did not return underlying instance")
	}
	if app.store.Path() != cfg.ConfigPath() {
		t.Fatalf("expected store at %s, got %s", cfg.ConfigPath(), app.store.Path())
	}
	if app.Settings().Current().LastUpdated.IsZero() {
		t.Fatalf("expected defaults to be persisted on first start")
	}
}

func TestNewServerAppliesConfig(t *testing.T) {
	cfg := baseTestConfig(t)
	cfg.ListenAddr = "127.0.0.1:9090"
	handler := http.NewServeMux()

	server := NewServer(cfg, handler)
	if server.Addr != "127.0.0.1:9090" {
		t.Fatalf("expected address 127.0.0.1:9090, got %s", server.Addr)
	}
	if server.Handler != handler {
		t.Fatalf("expected handler to be applied")
	}
	if server.ReadHeaderTimeout != cfg.ReadHeaderTimeout ||
		server.WriteTimeout != cfg.WriteTimeout ||
		server.IdleTimeout != cfg.IdleTimeout {
		t.Fatalf("server timeouts do not match configuration")
	}
}

func TestNewReconcilesAutostartWithRegistry(t *testing.T) {
	cfg := baseTestConfig(t)
	app, _ := newTestApp(t, cfg, WithAutostart(&fakeAutostart{supported: true, enabled: true}))

	if !app.Settings().Current().AutoStart {
		t.Fatalf("expected auto_start to follow the registry")
	}
	if !app.store.Load().AutoStart {
		t.Fatalf("expected reconciled auto_start to be persisted")
	}
}

func TestNewFailsWhenDataDirUnusable(t *testing.T) {
	cfg := baseTestConfig(t)
	cfg.DataDir = "/dev/null/mechvibes"

	if _, err := New(context.Background(), cfg, zaptest.NewLogger(t)); err == nil {
		t.Fatalf("expected error for unusable data directory")
	}
}

func TestServeUntilCancelled(t *testing.T) {
	cfg := baseTestConfig(t)
	app, _ := newTestApp(t, cfg, WithAutostart(&fakeAutostart{}))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- app.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/api/health")
	if err != nil {
		cancel()
		t.Fatalf("health request failed: %v", err)
	}
	var body struct {
		Status string `json:"status"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	_ = resp.Body.Close()
	if body.Status != "ok" {
		t.Fatalf("unexpected health status %q", body.Status)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Serve returned error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("Serve did not return after cancellation")
	}
}

func TestDeletedCustomThemeFallsBackToSystem(t *testing.T) {
	cfg := baseTestConfig(t)
	app, _ := newTestApp(t, cfg, WithAutostart(&fakeAutostart{}))

	if err := app.Themes().Upsert("midnight", "", ":root{}"); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	app.Settings().Update(func(s *settings.Snapshot) { s.Theme = settings.Custom("midnight") })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = app.Serve(ctx, ln)
	}()
	defer func() {
		cancel()
		<-done
	}()

	if err := app.Themes().Delete("midnight"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !app.Settings().Current().Theme.IsCustom() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected theme to fall back to System, still %s", app.Settings().Current().Theme)
}

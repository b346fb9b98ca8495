package application

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mechvibesdx/settings/internal/api"
	"github.com/mechvibesdx/settings/internal/autostart"
	"github.com/mechvibesdx/settings/internal/config"
	"github.com/mechvibesdx/settings/internal/configsync"
	"github.com/mechvibesdx/settings/internal/settings"
	"github.com/mechvibesdx/settings/internal/store"
	"github.com/mechvibesdx/settings/internal/theme"
)

// App encapsulates the settings daemon dependencies and HTTP server.
type App struct {
	cfg       config.Config
	store     *store.FileStore
	sync      *configsync.Synchronizer
	themes    *theme.Broadcaster
	autostart api.Autostart
	handler   *api.Handler
	router    http.Handler
	logger    *zap.Logger
	server    *http.Server
}

// Option configures App construction.
type Option func(*options)

type options struct {
	autostart api.Autostart
}

// WithAutostart overrides the launch-at-login controller, primarily for tests.
func WithAutostart(a api.Autostart) Option {
	return func(o *options) {
		o.autostart = a
	}
}

// New initializes the application from the provided configuration. The
// config synchronizer starts polling immediately and stops when ctx is done.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	o := options{autostart: autostart.Registry{}}
	for _, opt := range opts {
		opt(&o)
	}

	st := store.NewFileStore(cfg.ConfigPath(), logger.Named("store"))
	if err := st.EnsureExists(); err != nil {
		return nil, fmt.Errorf("failed to initialize config store: %w", err)
	}

	syncOpts := []configsync.Option{configsync.WithInterval(cfg.PollInterval)}
	if cfg.WatchFiles {
		syncOpts = append(syncOpts, configsync.WithFileWatch(cfg.ConfigPath()))
	}
	synchronizer := configsync.New(ctx, st, logger.Named("configsync"), syncOpts...)
	themes := theme.Load(cfg.ThemesPath(), logger.Named("themes"))

	handler := api.NewHandler(synchronizer, themes, o.autostart, logger)
	router := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	app := &App{
		cfg:       cfg,
		store:     st,
		sync:      synchronizer,
		themes:    themes,
		autostart: o.autostart,
		handler:   handler,
		router:    router,
		logger:    logger,
		server:    NewServer(cfg, router),
	}
	app.reconcileAutostart()
	return app, nil
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Run serves the API until ctx is cancelled, then shuts the server down
// within the configured grace period. The synchronizer follows the context
// given to New; use Settings().Done() to wait for it.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("settings API listening", zap.String("addr", ln.Addr().String()))
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownGracePeriod)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("graceful shutdown failed", zap.Error(err))
			if closeErr := a.server.Close(); closeErr != nil {
				a.logger.Error("forced close failed", zap.Error(closeErr))
			}
		}
		return nil
	})

	g.Go(func() error {
		a.themes.Watch(gctx, a.dropDeletedTheme)
		return nil
	})

	return g.Wait()
}

// Settings returns the synchronizer backing the API.
func (a *App) Settings() *configsync.Synchronizer {
	return a.sync
}

// Themes returns the theme broadcaster backing the API.
func (a *App) Themes() *theme.Broadcaster {
	return a.themes
}

// Server returns the HTTP server instance.
func (a *App) Server() *http.Server {
	return a.server
}

// reconcileAutostart makes auto_start reflect the registry, which other
// tools may have changed while the app was not running.
func (a *App) reconcileAutostart() {
	if !a.autostart.Supported() {
		return
	}
	actual := a.autostart.Enabled()
	if a.sync.Current().AutoStart == actual {
		return
	}
	a.logger.Info("syncing auto_start with registry", zap.Bool("auto_start", actual))
	a.sync.Update(func(s *settings.Snapshot) {
		s.AutoStart = actual
	})
}

// dropDeletedTheme falls back to the System theme when the selected custom
// theme no longer exists.
func (a *App) dropDeletedTheme(themes theme.Themes) {
	current := a.sync.Current().Theme
	if !current.IsCustom() {
		return
	}
	if _, ok := themes.Get(current.Custom); ok {
		return
	}
	a.logger.Info("selected theme was deleted, falling back to System", zap.String("theme", current.Custom))
	a.sync.Update(func(s *settings.Snapshot) {
		if s.Theme == current {
			s.Theme = settings.BuiltIn(settings.ThemeSystem)
		}
	})
}

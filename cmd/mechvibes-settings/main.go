package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/mechvibesdx/settings/internal/application"
	"github.com/mechvibesdx/settings/internal/autostart"
	"github.com/mechvibesdx/settings/internal/config"
	"github.com/mechvibesdx/settings/internal/logging"
	"github.com/mechvibesdx/settings/internal/settings"
	"github.com/mechvibesdx/settings/internal/store"
	"github.com/mechvibesdx/settings/internal/timefmt"
)

var signalNotify = signal.Notify

type cli struct {
	app *kingpin.Application

	configFile     *string
	dataDir        *string
	listen         *string
	pollInterval   *time.Duration
	watch          *bool
	watchSet       bool
	logLevel       *string
	rateLimitRPS   *float64
	rateLimitBurst *int

	serve            *kingpin.CmdClause
	show             *kingpin.CmdClause
	set              *kingpin.CmdClause
	setPatch         *string
	autostartEnable  *kingpin.CmdClause
	enableMinimized  *bool
	autostartDisable *kingpin.CmdClause
	autostartStatus  *kingpin.CmdClause
}

func newCLI() *cli {
	c := &cli{}
	c.app = kingpin.New("mechvibes-settings", "MechvibesDX settings daemon - keeps config.json in sync across windows")
	c.configFile = c.app.Flag("config", "Path to YAML configuration file").String()
	c.dataDir = c.app.Flag("data-dir", "Directory holding config.json and themes.json").String()
	c.listen = c.app.Flag("listen", "Loopback address for the settings API").String()
	c.pollInterval = c.app.Flag("poll-interval", "How often config.json is re-read").Duration()
	c.watch = c.app.Flag("watch", "Re-read config.json as soon as it changes on disk").IsSetByUser(&c.watchSet).Bool()
	c.logLevel = c.app.Flag("log-level", "Log level (debug, info, warn, error)").String()
	c.rateLimitRPS = c.app.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	c.rateLimitBurst = c.app.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()

	c.serve = c.app.Command("serve", "Run the settings API and config synchronizer").Default()
	c.show = c.app.Command("show", "Print the stored settings")
	c.set = c.app.Command("set", "Merge a JSON object into the stored settings")
	c.setPatch = c.set.Arg("patch", `JSON object, e.g. '{"volume":0.8}'`).Required().String()

	as := c.app.Command("autostart", "Manage launch at login")
	c.autostartEnable = as.Command("enable", "Launch MechvibesDX at login")
	c.enableMinimized = c.autostartEnable.Flag("minimized", "Start hidden in the tray").Bool()
	c.autostartDisable = as.Command("disable", "Stop launching MechvibesDX at login")
	c.autostartStatus = as.Command("status", "Show whether MechvibesDX launches at login")
	return c
}

func (c *cli) overrides() *config.CLIOverrides {
	overrides := &config.CLIOverrides{
		ConfigFile: *c.configFile,
	}

	if *c.dataDir != "" {
		overrides.DataDir = c.dataDir
	}

	if *c.listen != "" {
		overrides.ListenAddr = c.listen
	}

	if *c.pollInterval > 0 {
		overrides.PollInterval = c.pollInterval
	}

	if c.watchSet {
		overrides.WatchFiles = c.watch
	}

	if *c.logLevel != "" {
		overrides.LogLevel = c.logLevel
	}

	if *c.rateLimitRPS >= 0 {
		overrides.RateLimitRPS = c.rateLimitRPS
	}

	if *c.rateLimitBurst >= 0 {
		overrides.RateLimitBurst = c.rateLimitBurst
	}

	return overrides
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	c := newCLI()
	command, err := c.app.Parse(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(c.overrides())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	switch command {
	case c.show.FullCommand():
		return showSettings(cfg, logger, stdout)
	case c.set.FullCommand():
		return setSettings(cfg, logger, *c.setPatch, stdout)
	case c.autostartEnable.FullCommand():
		return changeAutostart(cfg, logger, true, *c.enableMinimized, stdout)
	case c.autostartDisable.FullCommand():
		return changeAutostart(cfg, logger, false, false, stdout)
	case c.autostartStatus.FullCommand():
		return autostartStatus(stdout)
	default:
		ctx, stop := signalContext(context.Background(), logger)
		defer stop()
		return serve(ctx, cfg, logger)
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context, logger *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-quit:
			logger.Info("received shutdown signal", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(quit)
		cancel()
	}
}

func serve(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	app, err := application.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	err = app.Run(ctx)
	cancel()
	<-app.Settings().Done()
	if err != nil {
		return fmt.Errorf("failed to run server: %w", err)
	}
	logger.Info("settings daemon stopped")
	return nil
}

func showSettings(cfg config.Config, logger *zap.Logger, stdout io.Writer) error {
	snapshot := store.NewFileStore(cfg.ConfigPath(), logger).Load()
	return printSnapshot(stdout, cfg.ConfigPath(), snapshot)
}

func setSettings(cfg config.Config, logger *zap.Logger, raw string, stdout io.Writer) error {
	patch, err := settings.ParsePatch([]byte(raw))
	if err != nil {
		return err
	}

	st := store.NewFileStore(cfg.ConfigPath(), logger)
	candidate := st.Load()
	if err := patch.Apply(&candidate); err != nil {
		return err
	}

	updated, err := st.Update(func(s *settings.Snapshot) {
		if err := patch.Apply(s); err != nil {
			logger.Warn("settings patch no longer applies", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	return printSnapshot(stdout, cfg.ConfigPath(), updated)
}

func changeAutostart(cfg config.Config, logger *zap.Logger, enabled, minimized bool, stdout io.Writer) error {
	if err := autostart.Set(enabled, minimized); err != nil {
		if errors.Is(err, autostart.ErrUnsupported) {
			return err
		}
		return fmt.Errorf("failed to change auto startup: %w", err)
	}

	st := store.NewFileStore(cfg.ConfigPath(), logger)
	if _, err := st.Update(func(s *settings.Snapshot) {
		s.AutoStart = enabled
		if enabled {
			s.StartMinimized = minimized
		}
	}); err != nil {
		return err
	}
	return autostartStatus(stdout)
}

func autostartStatus(stdout io.Writer) error {
	if !autostart.Supported() {
		_, err := fmt.Fprintln(stdout, "auto startup: unsupported on this platform")
		return err
	}
	state := "disabled"
	if autostart.Enabled() {
		state = "enabled"
	}
	_, err := fmt.Fprintf(stdout, "auto startup: %s\n", state)
	return err
}

func printSnapshot(w io.Writer, path string, snapshot settings.Snapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	updated := "never"
	if !snapshot.LastUpdated.IsZero() {
		updated = timefmt.Relative(snapshot.LastUpdated, time.Now())
	}
	_, err = fmt.Fprintf(w, "# %s (updated %s)\n%s\n", path, updated, data)
	return err
}

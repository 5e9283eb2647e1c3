package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"clipboard-history/internal/clipboard"
	"clipboard-history/internal/codec"
	"clipboard-history/internal/config"
	"clipboard-history/internal/history"
	"clipboard-history/internal/server"
	"clipboard-history/internal/service"
	"clipboard-history/internal/storage"
	"clipboard-history/internal/storage/sqlite"
)

func newDaemonCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Watch the clipboard and serve the history API",
		Long: `Polls the system clipboard, records new text and image content in the
history database, and serves the HTTP/websocket API used by the other commands.

Only one daemon may run per data directory. Pass --replace to stop a running
instance and take over.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runDaemon(cmd.Context(), v) },
	}

	f := cmd.Flags()
	f.String(config.KeyDataDir, config.DefaultDataDir(), "directory holding the history database and pidfile")
	f.Int(config.KeyMaxItems, storage.DefaultMaxItems, "maximum number of history entries")
	f.Duration(config.KeyPollInterval, config.DefaultPollInterval, "clipboard polling interval")
	f.String(config.KeyAddr, config.DefaultAddr, "HTTP listen address")
	f.Int(config.KeyDisplayLimit, 0, "entries listed when a request names no limit (0 = all)")
	f.Int(config.KeyImageQuality, codec.DefaultQuality, "JPEG quality for stored images (1-100)")
	f.Int(config.KeyRawImageLimit, codec.DefaultRawImageLimit, "max bytes of an undecodable image kept as-is (0 = unlimited)")
	f.Bool(config.KeyLaunchAtLogin, false, "launch-at-login preference (reported by stats)")
	f.Bool("replace", false, "stop a running daemon and take over")
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runDaemon(ctx context.Context, v *viper.Viper) error {
	setupLogging(v)

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	pid, err := server.AcquirePIDFile(cfg.PIDPath(), v.GetBool("replace"))
	if err != nil {
		if errors.Is(err, server.ErrAlreadyRunning) {
			return fmt.Errorf("%w; use --replace to take over", err)
		}
		return err
	}
	defer func() {
		if err := pid.Release(); err != nil {
			slog.Warn("failed to remove pidfile", "path", pid.Path(), "err", err)
		}
	}()

	st, err := sqlite.New(storage.Config{DBPath: cfg.DBPath(), MaxItems: cfg.MaxItems})
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer st.Close()

	backend := clipboard.New()
	defer backend.Close()
	monitor := clipboard.NewMonitor(backend, cfg.PollInterval)

	store := history.New(st,
		codec.New(codec.Config{Quality: cfg.ImageQuality, RawImageLimit: cfg.RawImageLimit}),
		monitor,
		history.Options{MaxItems: cfg.MaxItems},
	)

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(store, server.Config{
		Addr:          cfg.Addr,
		DisplayLimit:  cfg.DisplayLimit,
		LaunchAtLogin: cfg.LaunchAtLogin,
	})

	svc := service.New(monitor, store)
	if err := svc.Start(); err != nil {
		return fmt.Errorf("failed to start clipboard service: %w", err)
	}
	defer func() {
		if err := svc.Stop(); err != nil {
			slog.Error("error stopping service", "err", err)
		}
	}()

	if err := srv.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := srv.Stop(); err != nil {
			slog.Error("error stopping server", "err", err)
		}
	}()

	slog.Info("clipboard-history started",
		"version", Version,
		"backend", backend.Name(),
		"db", cfg.DBPath(),
		"addr", srv.Addr(),
		"max_items", cfg.MaxItems,
		"poll_interval", cfg.PollInterval,
	)

	<-ctx.Done()
	slog.Info("shutting down")
	return nil
}

package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mattjoyce/waypoint/internal/api"
	"github.com/mattjoyce/waypoint/internal/config"
	"github.com/mattjoyce/waypoint/internal/events"
	"github.com/mattjoyce/waypoint/internal/fsops"
	"github.com/mattjoyce/waypoint/internal/handlers"
	"github.com/mattjoyce/waypoint/internal/lock"
	"github.com/mattjoyce/waypoint/internal/log"
	"github.com/mattjoyce/waypoint/internal/rpc"
	"github.com/mattjoyce/waypoint/internal/skill"
	"github.com/mattjoyce/waypoint/internal/storage"
)

const eventBufferSize = 256

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the RPC daemon and the skill watcher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)
	logger := log.WithComponent("main")
	logger.Info("waypoint starting", "version", version, "config", cfg.SourcePath)

	pidLock, err := lock.Acquire(cfg.State.LockPath)
	if err != nil {
		return fmt.Errorf("acquire PID lock (another instance may be running): %w", err)
	}
	defer pidLock.Release()
	logger.Info("acquired PID lock", "path", pidLock.Path())

	db, err := storage.OpenSQLite(ctx, cfg.State.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	logger.Info("database opened", "path", cfg.State.Path)

	d, err := newDaemon(cfg, db)
	if err != nil {
		return err
	}
	if err := d.run(ctx); err != nil {
		return err
	}
	logger.Info("waypoint stopped")
	return nil
}

// daemon is the wired set of long-running components.
type daemon struct {
	cfg        *config.Config
	registry   *rpc.Registry
	dispatcher *rpc.Dispatcher
	syncer     *skill.Syncer
	watcher    *skill.Watcher
	server     *api.Server
	logger     *slog.Logger
}

func newDaemon(cfg *config.Config, db *sql.DB) (*daemon, error) {
	exec, err := fsops.NewLocal(cfg.Workspace)
	if err != nil {
		return nil, fmt.Errorf("workspace: %w", err)
	}

	reg := rpc.NewRegistry()
	if err := handlers.Register(reg); err != nil {
		return nil, fmt.Errorf("register handlers: %w", err)
	}
	hub := events.NewHub(eventBufferSize)
	reg.Use(events.OutcomeMiddleware(hub))
	reg.Use(rpc.Standard(exec)...)
	// Build namespace tables once up front.
	reg.Namespaces()

	dispatcher := rpc.NewDispatcher(reg, db, rpc.WithLogger(log.WithComponent("rpc")))
	syncer := skill.NewSyncer(db, cfg.SkillsDir, log.WithComponent("skills"))
	server := api.New(api.Config{
		Listen:          cfg.API.Listen,
		Tokens:          cfg.API.Tokens,
		ShutdownTimeout: cfg.Service.ShutdownTimeout,
	}, dispatcher, reg, db, hub, log.WithComponent("api"))

	return &daemon{
		cfg:        cfg,
		registry:   reg,
		dispatcher: dispatcher,
		syncer:     syncer,
		watcher:    skill.NewWatcher(syncer, log.WithComponent("skills")),
		server:     server,
		logger:     log.WithComponent("main"),
	}, nil
}

// run syncs skills once, then serves until ctx is done or a component fails.
func (d *daemon) run(ctx context.Context) error {
	report, err := d.syncer.Sync(ctx)
	if err != nil {
		return fmt.Errorf("initial skill sync: %w", err)
	}
	d.logger.Info("skills synced", "written", len(report.Written), "unchanged", len(report.Unchanged))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := d.server.Start(ctx); err != nil {
			return fmt.Errorf("api: %w", err)
		}
		return nil
	})
	if d.cfg.Service.Watching() {
		g.Go(func() error {
			if err := d.watcher.Run(ctx); err != nil {
				return fmt.Errorf("skill watcher: %w", err)
			}
			return nil
		})
	}

	d.logger.Info("waypoint running", "listen", d.cfg.API.Listen, "commands", len(d.registry.Commands()))
	return g.Wait()
}

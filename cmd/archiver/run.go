package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/duarte-pardal/discord-archiver/internal/config"
	"github.com/duarte-pardal/discord-archiver/internal/download"
	"github.com/duarte-pardal/discord-archiver/internal/filestore"
	"github.com/duarte-pardal/discord-archiver/internal/logging"
	"github.com/duarte-pardal/discord-archiver/internal/reqbus"
	"github.com/duarte-pardal/discord-archiver/internal/schema"
)

// runCmd starts the archiver against a live gateway session. The gateway
// connection itself is an external collaborator (the wire protocol is out
// of scope); run wires up every in-process component the connector would
// drive — database, file store, download engine, request bus — and blocks
// until interrupted, so a connector wired in front of the request bus has
// somewhere to dispatch into.
func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the archiver against a live gateway session",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment()
			if err != nil {
				return err
			}
			defer env.Close()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				env.log.Info("received shutdown signal")
				cancel()
			}()

			env.log.Info("archiver ready",
				"data_dir", env.cfg.DataDir,
				"guild_ids", env.cfg.GuildIDs,
				"download_concurrency", env.cfg.DownloadConcurrency)

			<-ctx.Done()
			env.log.Info("shutting down")
			return nil
		},
	}
}

// environment bundles the components every subcommand that touches the
// archive (run, backfill, fsck, link) needs to construct once and tear
// down in the same order.
type environment struct {
	cfg          *config.Config
	ingestLimits config.IngestLimits
	sqlDB        *sql.DB
	store        *filestore.Store
	coord        *filestore.Coordinator
	bus          *reqbus.Bus
	log          *slog.Logger
}

func (e *environment) Close() {
	if e.bus != nil {
		_ = e.bus.Close(context.Background())
	}
	if e.coord != nil {
		if err := e.coord.Close(context.Background()); err != nil {
			e.log.Warn("filestore coordinator did not close cleanly", "error", err)
		}
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			e.log.Warn("file store did not close cleanly", "error", err)
		}
	}
	if e.sqlDB != nil {
		_ = e.sqlDB.Close()
	}
}

func newEnvironment() (*environment, error) {
	log := logging.New(logging.Options{JSON: flagJSON, Debug: flagVerbose})

	cfg, err := config.Load(flagDataDir, flagConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log.Debug("config resolved", "config", cfg.String())

	ingestLimits := config.LoadIngestLimits()
	if err := ingestLimits.Validate(); err != nil {
		return nil, fmt.Errorf("ingest limits: %w", err)
	}
	log.Debug("ingest limits resolved",
		"max_event_size", ingestLimits.MaxEventSize,
		"max_batch_size", ingestLimits.MaxBatchSize,
		"max_message_size", ingestLimits.MaxMessageSize)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	sqlDB, err := schema.OpenDB(filepath.Join(cfg.DataDir, "archive.db"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store, err := filestore.Open(context.Background(), filepath.Join(cfg.DataDir, "blobs"), sqlDB, log)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("open file store: %w", err)
	}

	dlEngine := download.New(
		download.WithConcurrency(cfg.DownloadConcurrency),
		download.WithLogger(log),
	)
	coord := filestore.NewCoordinator(store, dlEngine, log)

	bus := reqbus.New(sqlDB)

	return &environment{
		cfg:          cfg,
		ingestLimits: ingestLimits,
		sqlDB:        sqlDB,
		store:        store,
		coord:        coord,
		bus:          bus,
		log:          log,
	}, nil
}

package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/alfredjeanlab/vaultsync/internal/backup"
	"github.com/alfredjeanlab/vaultsync/internal/config"
	"github.com/alfredjeanlab/vaultsync/internal/events"
	"github.com/alfredjeanlab/vaultsync/internal/presence"
	"github.com/alfredjeanlab/vaultsync/internal/server"
	"github.com/alfredjeanlab/vaultsync/internal/store"
	"github.com/alfredjeanlab/vaultsync/internal/store/memory"
	"github.com/alfredjeanlab/vaultsync/internal/store/postgres"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the vaultsync server",
	GroupID: "system",
	// Override PersistentPreRunE so we don't create a client.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger, logCloser := newServerLogger(cfg, os.Stderr)
		defer logCloser.Close()
		slog.SetDefault(logger)

		// Storage.
		st, err := openStore(cfg, logger)
		if err != nil {
			return err
		}

		// Origin distinguishes this instance's events on the shared bus.
		origin := uuid.NewString()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		hub := events.NewHub(events.WithBuffer(cfg.SubscriberBuffer), events.WithLogger(logger))
		go hub.RunKeepalive(ctx, cfg.KeepaliveInterval)

		// Cross-instance fan-out.
		var publisher events.Publisher = &events.NoopPublisher{}
		if cfg.NATSURL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATSURL, origin)
			if err != nil {
				st.Close()
				return err
			}
			publisher = pub

			sub, err := events.NewNATSSubscriber(cfg.NATSURL)
			if err != nil {
				publisher.Close()
				st.Close()
				return err
			}
			relay := events.NewRelay(sub, hub, origin, logger)
			go func() {
				if err := relay.Run(ctx); err != nil {
					logger.Error("relay error", "err", err)
				}
				sub.Close()
			}()
			logger.Info("events relay enabled", "nats_url", cfg.NATSURL, "origin", origin)
		} else {
			logger.Info("events relay disabled (VAULTSYNC_NATS_URL not set)")
		}

		tracker := presence.New(st, presence.WithTTL(cfg.PresenceTTL), presence.WithLogger(logger))
		tracker.StartReaper(&presence.ReaperConfig{
			EvictAfter:    cfg.PresenceEvictAfter,
			SweepInterval: cfg.PresenceSweep,
		})

		syncServer := server.NewSyncServer(st, hub, tracker,
			server.WithPublisher(publisher),
			server.WithLogger(logger),
		)

		// gRPC.
		var grpcServer interface{ GracefulStop() }
		if cfg.GRPCEnabled() {
			lis, err := net.Listen("tcp", cfg.GRPCAddr)
			if err != nil {
				tracker.Stop()
				publisher.Close()
				st.Close()
				return err
			}
			gs := server.NewGRPCServer(syncServer, cfg.AuthToken)
			grpcServer = gs
			go func() {
				logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
				if err := gs.Serve(lis); err != nil {
					logger.Error("gRPC server error", "err", err)
				}
			}()
		}

		// HTTP. No write timeout: event streams are long-lived.
		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           syncServer.NewHTTPHandler(cfg.AuthToken),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		// Backups.
		var scheduler *backup.Scheduler
		if cfg.BackupEnabled() {
			dests := backupDestinations(ctx, cfg, logger)
			if len(dests) > 0 {
				scheduler = backup.NewScheduler(st, dests, cfg.BackupInterval, nil, logger)
				scheduler.Start()
				logger.Info("backup scheduler started", "interval", cfg.BackupInterval)
			}
		}

		logger.Info("vaultsync server started",
			"http_addr", cfg.HTTPAddr,
			"grpc_addr", cfg.GRPCAddr,
			"presence_ttl", cfg.PresenceTTL,
		)

		// Wait for SIGINT or SIGTERM.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		// Stop keepalive and relay, then end every open stream so the HTTP
		// server can drain.
		cancel()
		hub.Close()

		if grpcServer != nil {
			grpcServer.GracefulStop()
			logger.Info("gRPC server stopped")
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		tracker.Stop()
		if scheduler != nil {
			scheduler.Stop()
			logger.Info("backup scheduler stopped")
		}
		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
		if err := st.Close(); err != nil {
			logger.Error("error closing store", "err", err)
		}

		logger.Info("shutdown complete")
		return nil
	},
}

// newServerLogger builds the text logger, tee'd to a rotating file when
// VAULTSYNC_LOG_FILE is set. The returned closer flushes the file.
func newServerLogger(cfg *config.Config, stderr io.Writer) (*slog.Logger, io.Closer) {
	level, _ := cfg.SlogLevel()
	var w io.Writer = stderr
	var closer io.Closer = io.NopCloser(nil)
	if cfg.LogFile != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAgeDays,
			Compress:   true,
		}
		w = io.MultiWriter(stderr, lj)
		closer = lj
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), closer
}

func openStore(cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("VAULTSYNC_DATABASE_URL not set, using in-memory store")
		return memory.New(nil), nil
	}
	st, err := postgres.New(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	logger.Info("connected to postgres")
	return st, nil
}

func backupDestinations(ctx context.Context, cfg *config.Config, logger *slog.Logger) []backup.Destination {
	var dests []backup.Destination
	if cfg.BackupS3Bucket != "" {
		d, err := backup.NewS3Destination(ctx, cfg.BackupS3Bucket, cfg.BackupS3Key, cfg.BackupS3Region, cfg.BackupS3Endpoint)
		if err != nil {
			logger.Error("failed to create S3 backup destination", "err", err)
		} else {
			dests = append(dests, d)
			logger.Info("backup S3 destination enabled", "bucket", cfg.BackupS3Bucket, "key", cfg.BackupS3Key)
		}
	}
	if cfg.BackupFile != "" {
		dests = append(dests, backup.NewFileDestination(cfg.BackupFile))
		logger.Info("backup file destination enabled", "path", cfg.BackupFile)
	}
	return dests
}

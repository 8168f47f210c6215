package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"medshare/internal/audit"
	"medshare/internal/contract"
	httpapi "medshare/internal/http"
	"medshare/internal/identity"
	"medshare/internal/ledger"
	"medshare/internal/platform/config"
	"medshare/internal/platform/httpserver"
	"medshare/internal/platform/logger"
	platformredis "medshare/internal/platform/redis"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	led, cleanup, err := openLedger(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open ledger backend: %w", err)
	}
	defer cleanup()

	group, ctx := errgroup.WithContext(ctx)

	var recorderOpts []audit.RecorderOption
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := audit.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return fmt.Errorf("connect audit mirror: %w", err)
		}
		defer publisher.Close()

		mirror := make(chan audit.Entry, 256)
		recorderOpts = append(recorderOpts, audit.WithMirror(mirror))
		worker := audit.NewWorker(publisher, mirror, log)
		group.Go(func() error {
			if err := worker.Run(ctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
		log.Info("audit mirror enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	recorder := audit.NewRecorder(led, log, recorderOpts...)
	svc, err := contract.NewService(led, recorder, contract.Config{
		CollectionName: cfg.CollectionName,
		PeerMSPID:      cfg.PeerMSPID,
	}, log)
	if err != nil {
		return fmt.Errorf("build contract service: %w", err)
	}

	router := httpapi.NewRouter(svc, identity.NewTokenValidator(cfg.JWTSigningKey), log)
	srv := httpserver.New(cfg.Addr, router)

	group.Go(func() error {
		log.Info("starting medshare peer service",
			"addr", cfg.Addr,
			"collection", cfg.CollectionName,
			"peer_msp", cfg.PeerMSPID,
			"ledger", cfg.LedgerBackend,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	log.Info("shutdown complete")
	return nil
}

// openLedger selects the record store by configuration. The cleanup func
// releases backend connections and is safe to call on all paths.
func openLedger(ctx context.Context, cfg config.Server) (ledger.Ledger, func(), error) {
	switch cfg.LedgerBackend {
	case "memory":
		return ledger.NewInMemory(), func() {}, nil

	case "redis":
		client, err := platformredis.New(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return ledger.NewRedis(client.Client), func() { _ = client.Close() }, nil

	case "postgres":
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		if err := ledger.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return ledger.NewPostgres(db), func() { _ = db.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown ledger backend %q", cfg.LedgerBackend)
	}
}

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"donorcal/internal/admin"
	"donorcal/internal/audit"
	donationhandler "donorcal/internal/donation/handler"
	donationmetrics "donorcal/internal/donation/metrics"
	donationservice "donorcal/internal/donation/service"
	donationstore "donorcal/internal/donation/store"
	donorhandler "donorcal/internal/donor/handler"
	donorservice "donorcal/internal/donor/service"
	donorstore "donorcal/internal/donor/store"
	httpapi "donorcal/internal/http"
	jwttoken "donorcal/internal/jwt_token"
	"donorcal/internal/location"
	locationhandler "donorcal/internal/location/handler"
	"donorcal/internal/platform/config"
	"donorcal/internal/platform/httpserver"
	"donorcal/internal/platform/logger"
	"donorcal/internal/platform/metrics"
	"donorcal/internal/platform/postgres"
	"donorcal/internal/platform/redis"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	if cfg.UsesDevSigningKey() {
		log.Warn("JWT_SIGNING_KEY not set; using the development signing key")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	healthChecks := map[string]httpapi.HealthCheck{}
	group, gctx := errgroup.WithContext(ctx)

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		healthChecks["postgres"] = db.PingContext
	}

	records, err := openRecordStore(ctx, db, log)
	if err != nil {
		return err
	}
	profiles, err := openProfileStore(ctx, cfg.Redis, log, healthChecks)
	if err != nil {
		return err
	}
	auditSink, auditReader, err := openAuditSink(ctx, gctx, group, cfg.Audit, db, log)
	if err != nil {
		return err
	}
	publisher := audit.NewPublisher(auditSink)

	directory, err := openDirectory(cfg.LocationsCSV, log)
	if err != nil {
		return err
	}
	log.Info("location directory loaded", "sites", directory.Len())

	donors := donorservice.New(profiles,
		donorservice.WithLogger(log),
		donorservice.WithAuditPublisher(publisher),
	)
	donations := donationservice.New(records, donors,
		donationservice.WithLogger(log),
		donationservice.WithAuditPublisher(publisher),
		donationservice.WithMetrics(donationmetrics.New(reg)),
		donationservice.WithDonorLocker(records),
	)
	locations := locationhandler.New(directory, donations, log)
	tokens := jwttoken.NewJWTService(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.Audience)

	router := httpapi.NewRouter(httpapi.Deps{
		Logger:       log,
		Metrics:      metrics.New(reg),
		Gatherer:     reg,
		Validator:    jwttoken.NewJWTServiceAdapter(tokens),
		AdminToken:   cfg.AdminToken,
		HealthChecks: healthChecks,
		Public: []httpapi.Registrar{
			locations,
		},
		Protected: []httpapi.Registrar{
			donorhandler.New(donors, log),
			donationhandler.New(donations, log, donationhandler.WithZone(cfg.Zone)),
			locations.Progress(),
		},
		Admin: []httpapi.Registrar{
			admin.New(tokens, cfg.JWT.TokenTTL, auditReader, log),
		},
	})
	srv := httpserver.New(cfg.Addr, router)

	group.Go(func() error {
		log.Info("starting donorcal", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
		defer cancel()
		log.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	return group.Wait()
}

// recordStore is a history store that can also serialise writes per donor.
type recordStore interface {
	donationservice.Store
	donationservice.DonorLocker
}

func openRecordStore(ctx context.Context, db *sql.DB, log *slog.Logger) (recordStore, error) {
	if db == nil {
		log.Info("DATABASE_URL not set; donation records are kept in memory")
		return donationstore.NewInMemory(), nil
	}
	store := donationstore.NewPostgres(db)
	if err := store.Migrate(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func openProfileStore(ctx context.Context, cfg config.RedisConfig, log *slog.Logger, checks map[string]httpapi.HealthCheck) (donorservice.Store, error) {
	client, err := redis.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if client == nil {
		log.Info("REDIS_URL not set; donor profiles are kept in memory")
		return donorstore.NewInMemory(), nil
	}
	checks["redis"] = client.Health
	return donorstore.NewRedis(client.Client), nil
}

// openAuditSink picks Kafka, then Postgres, then memory. Only the latter two
// return a reader for the admin audit endpoint.
func openAuditSink(ctx, gctx context.Context, group *errgroup.Group, cfg config.AuditConfig, db *sql.DB, log *slog.Logger) (audit.Sink, admin.AuditReader, error) {
	if len(cfg.Brokers) == 0 {
		if db != nil {
			sink := audit.NewPostgresSink(db)
			if err := sink.Migrate(ctx); err != nil {
				return nil, nil, err
			}
			log.Info("KAFKA_BROKERS not set; audit events are stored in postgres")
			return sink, sink, nil
		}
		log.Info("KAFKA_BROKERS not set; audit events are kept in memory")
		sink := audit.NewMemorySink()
		return sink, sink, nil
	}

	kafka, err := audit.NewKafkaSink(cfg.Brokers, cfg.Topic)
	if err != nil {
		return nil, nil, err
	}
	if err := kafka.EnsureTopic(ctx, 1, 1); err != nil {
		log.Warn("could not ensure audit topic", "topic", cfg.Topic, "error", err)
	}

	queue := make(chan audit.Event, cfg.BufferSize)
	worker := audit.NewWorker(kafka, queue, log)
	group.Go(func() error {
		err := worker.Run(gctx)
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if cerr := kafka.Close(closeCtx); cerr != nil {
			log.Error("audit sink close failed", "error", cerr)
		}
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	return audit.NewQueueSink(queue), nil, nil
}

func openDirectory(path string, log *slog.Logger) (*location.Directory, error) {
	if path == "" {
		log.Warn("LOCATIONS_CSV not set; the site directory is empty")
		return location.Empty(), nil
	}
	return location.Open(path)
}

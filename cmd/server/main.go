package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/scrap-bidding/internal/apiclient"
	"github.com/example/scrap-bidding/internal/auth"
	"github.com/example/scrap-bidding/internal/config"
	"github.com/example/scrap-bidding/internal/dashboard"
	"github.com/example/scrap-bidding/internal/dispatch"
	"github.com/example/scrap-bidding/internal/eta"
	"github.com/example/scrap-bidding/internal/geo"
	httpapi "github.com/example/scrap-bidding/internal/http"
	"github.com/example/scrap-bidding/internal/ingest"
	"github.com/example/scrap-bidding/internal/logging"
	"github.com/example/scrap-bidding/internal/media"
	"github.com/example/scrap-bidding/internal/payments"
	"github.com/example/scrap-bidding/internal/ranking"
	"github.com/example/scrap-bidding/internal/storage"
)

func main() {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := httpapi.Deps{
		Upstream: apiclient.New(cfg.UpstreamURL, cfg.UpstreamTimeout),
		Aggregator: &dashboard.Aggregator{
			Ranker: ranking.Ranker{
				Geo:                  geo.Calculator{RadiusKm: cfg.EarthRadiusKm},
				CompetitiveThreshold: cfg.CompetitiveThreshold,
			},
			Logger: logger,
		},
		Registry:       dispatch.NewWSRegistry(),
		Logger:         logger,
		NearbyRadiusKm: cfg.NearbyRadiusKm,
		NearbyTopN:     cfg.NearbyTopN,
	}
	if deps.Verifier = auth.NewVerifier(cfg.JWTSecret); deps.Verifier == nil {
		logger.Warn("JWT_SECRET not set, uploads, pickup settlement and live alerts are disabled")
	}
	var closers []func() error

	if cfg.RedisAddr != "" {
		rg := geo.NewRedisGeo(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisGeoKey)
		rg.StaleAfter = cfg.CollectorStaleAfter
		if err := rg.Ping(ctx); err != nil {
			logger.Warn("redis unreachable, geo lookups will fail until it recovers", "addr", cfg.RedisAddr, "error", err)
		}
		deps.Geo = rg
		closers = append(closers, rg.Close)
	} else {
		idx := geo.NewIndex()
		idx.StaleAfter = cfg.CollectorStaleAfter
		deps.Geo = idx
	}

	if cfg.PGDSN != "" {
		ps, err := storage.NewPostgresStore(ctx, cfg.PGDSN)
		if err != nil {
			logger.Error("postgres unavailable", "error", err)
			os.Exit(1)
		}
		if cfg.RunMigrations {
			applied, err := ps.Migrate(ctx, "migrations")
			if err != nil {
				logger.Error("migration failed", "applied", applied, "error", err)
				os.Exit(1)
			}
			logger.Info("migrations applied", "files", applied)
		}
		deps.Store = ps
		closers = append(closers, ps.Close)
	} else {
		deps.Store = storage.NewMemoryStore()
	}

	if len(cfg.KafkaBrokers) > 0 {
		kp := ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaLocationTopic, cfg.KafkaBidTopic)
		deps.Events = kp
		closers = append(closers, kp.Close)
	}

	enricher := &eta.Enricher{Cache: eta.NewCache(10 * time.Minute), SpeedMps: cfg.DefaultSpeedMps, TopN: cfg.ETATopN}
	if cfg.OSRMURL != "" {
		enricher.Client = eta.NewOSRMClient(cfg.OSRMURL)
	}
	deps.ETA = enricher

	if cfg.StripeKey != "" {
		deps.Payments = payments.NewStripeClient(cfg.StripeKey, cfg.PaymentCurrency)
	}

	if cfg.S3Bucket != "" {
		awsCfg, pathStyle, err := media.LoadAWS(ctx, cfg.AWSRegion)
		if err != nil {
			logger.Warn("aws config unavailable, image uploads disabled", "error", err)
		} else {
			deps.Uploads = media.NewStore(awsCfg, cfg.S3Bucket, cfg.PresignTTL, pathStyle)
		}
	}

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewServer(deps),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logger.Info("scrap-bidding listening", "addr", cfg.HTTPAddr, "upstream", cfg.UpstreamURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	for _, c := range closers {
		if err := c(); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}
}

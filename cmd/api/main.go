package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"callguard/internal/api"
	"callguard/internal/api/handlers"
	apimiddleware "callguard/internal/api/middleware"
	"callguard/internal/config"
	"callguard/internal/domain/services"
	"callguard/internal/grpc/callrisk"
	"callguard/internal/infrastructure/cache"
	"callguard/internal/infrastructure/database"
	"callguard/internal/streaming"
	"callguard/internal/stt"
	"callguard/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	var log *logger.Logger
	if cfg.App.Environment == "production" {
		log = logger.NewProduction()
	} else {
		log = logger.New(logger.Config{
			Level:      cfg.Logger.Level,
			Format:     cfg.Logger.Format,
			TimeFormat: cfg.Logger.TimeFormat,
		})
	}

	log.Info().
		Str("app", cfg.App.Name).
		Str("env", cfg.App.Environment).
		Str("version", cfg.App.Version).
		Msg("starting CallGuard")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
	log.Info().Msg("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	db, redisCache := initInfrastructure(ctx, cfg, log)
	defer func() {
		if db != nil {
			db.Close()
		}
		if redisCache != nil {
			redisCache.Close()
		}
	}()

	analyzer := services.BuildAnalyzer(ctx, cfg, db, log)

	// Streaming
	var natsPublisher *streaming.NATSPublisher
	if cfg.NATS.Enabled {
		var err error
		natsPublisher, err = streaming.NewNATSPublisher(ctx, cfg.NATS, log)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to NATS, alerts stay local")
			natsPublisher = nil
		} else {
			defer natsPublisher.Close()
		}
	}

	eventBus := streaming.NewEventBus(natsPublisher, log)
	defer eventBus.Close()
	wsHub := streaming.NewWebSocketHub(log)

	// Typed nils must not leak into the interfaces below
	var outcomeCache services.OutcomeCache
	var limiter apimiddleware.RateLimitStore
	if redisCache != nil {
		outcomeCache = redisCache
		limiter = redisCache
	}

	svc := services.NewCallAnalysisService(
		analyzer,
		outcomeCache,
		streaming.NewAlertPublisher(eventBus, wsHub),
		cfg.Cache.AnalysisTTL,
		log,
	)

	transcriber, err := stt.NewTranscriber(cfg.STT, log)
	if err != nil {
		return err
	}

	fallback := stt.NewFallbackStore(cfg.Fallback.DataDir, cfg.Fallback.TranscriptFile, log)
	if err := fallback.EnsureExists(); err != nil {
		log.Warn().Err(err).Msg("could not create fallback transcript, using built-in text")
	}

	checks := dependencyChecks(db, redisCache, natsPublisher)

	h := handlers.NewHandlers(handlers.Dependencies{
		Service:         svc,
		Transcriber:     transcriber,
		Fallback:        fallback,
		SampleAudioPath: sampleAudioPath(cfg.Fallback),
		MaxUploadBytes:  cfg.Server.MaxUploadBytes,
		Version:         cfg.App.Version,
		Checks:          checks,
		Logger:          log,
	})

	router := api.NewRouter(*cfg, h, limiter, wsHub, log)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	grpcListener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.GRPCPort))
	if err != nil {
		return fmt.Errorf("failed to create gRPC listener: %w", err)
	}
	grpcServer := grpc.NewServer()
	callrisk.NewServer(svc, log).Register(grpcServer)

	grpcChecks := make(map[string]callrisk.CheckFunc, len(checks))
	for name, check := range checks {
		grpcChecks[name] = callrisk.CheckFunc(check)
	}
	callrisk.RegisterHealthServer(ctx, grpcServer, grpcChecks, 10*time.Second, log)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		wsHub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		log.Info().Str("addr", httpServer.Addr).Msg("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Info().Str("addr", grpcListener.Addr().String()).Msg("starting gRPC server")
		if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("gRPC server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		grpcServer.GracefulStop()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown error")
		}
		return nil
	})

	return g.Wait()
}

// initInfrastructure connects the optional backing services. Failures are
// logged and the service runs without them.
func initInfrastructure(ctx context.Context, cfg *config.Config, log *logger.Logger) (*database.PostgresDB, *cache.RedisCache) {
	var db *database.PostgresDB
	if cfg.Database.Enabled {
		var err error
		db, err = database.NewPostgres(ctx, cfg.Database, log)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to PostgreSQL, continuing without database")
			db = nil
		}
	}

	var redisCache *cache.RedisCache
	if cfg.Redis.Enabled {
		var err error
		redisCache, err = cache.NewRedis(ctx, cfg.Redis, log)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to Redis, caching and rate limiting disabled")
			redisCache = nil
		}
	}

	return db, redisCache
}

func dependencyChecks(db *database.PostgresDB, redisCache *cache.RedisCache, nats *streaming.NATSPublisher) map[string]handlers.CheckFunc {
	checks := make(map[string]handlers.CheckFunc)
	if db != nil {
		checks["database"] = db.Ping
	}
	if redisCache != nil {
		checks["redis"] = redisCache.Ping
	}
	if nats != nil {
		checks["nats"] = func(context.Context) error {
			if !nats.IsConnected() {
				return errors.New("not connected")
			}
			return nil
		}
	}
	return checks
}

func sampleAudioPath(cfg config.FallbackConfig) string {
	if cfg.SampleAudio == "" {
		return ""
	}
	return filepath.Join(cfg.DataDir, cfg.SampleAudio)
}

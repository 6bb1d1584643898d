package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"benefit-recommendation-api/internal/cache"
	"benefit-recommendation-api/internal/catalog"
	"benefit-recommendation-api/internal/config"
	"benefit-recommendation-api/internal/events"
	"benefit-recommendation-api/internal/features"
	"benefit-recommendation-api/internal/handler"
	"benefit-recommendation-api/internal/middleware"
	"benefit-recommendation-api/internal/narrative"
	"benefit-recommendation-api/internal/recommend"
	"benefit-recommendation-api/internal/service"
	"benefit-recommendation-api/internal/tracing"
)

func main() {
	configFile := flag.String("config", "", "Path to JSON config file")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	// Tracing
	if _, err := tracing.InitTracing(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: "benefit-recommendation-api",
		Environment: cfg.Tracing.Environment,
	}); err != nil {
		logger.Fatal("failed to initialize tracing", zap.Error(err))
	}
	defer tracing.Shutdown(context.Background())

	// Catalog
	var store catalog.Store
	switch cfg.Catalog.Source {
	case "sqlite":
		sqliteStore, err := catalog.NewSQLiteStore(cfg.Catalog.SQLitePath)
		if err != nil {
			logger.Fatal("failed to open catalog database", zap.Error(err))
		}
		defer sqliteStore.Close()
		store = sqliteStore
	default:
		store = catalog.NewFileStore(cfg.Catalog.OffersPath, cfg.Catalog.EventsPath)
	}

	provider, err := catalog.NewProvider(context.Background(), store, logger)
	if err != nil {
		logger.Fatal("failed to load catalog", zap.Error(err))
	}

	// Response cache
	var responseCache cache.Cache
	if cfg.Cache.Enabled {
		if cfg.Cache.RedisAddr != "" {
			redisCache, err := cache.NewRedisCache(cfg.Cache.RedisAddr, os.Getenv("CACHE_REDIS_PASSWORD"), cfg.Cache.RedisDB)
			if err != nil {
				logger.Fatal("failed to connect to Redis", zap.Error(err))
			}
			defer redisCache.Close()
			responseCache = redisCache
		} else {
			responseCache = cache.NewInMemoryCache()
		}
	}

	// Feature flags
	flags := features.NewManager()
	flags.Register(features.FeatureCacheEnabled, cfg.Cache.Enabled, "Response caching")
	flags.Register(features.FeatureNarrativeEnabled, cfg.Narrative.Enabled, "AI narrative mode")
	flags.Register(features.FeatureEventHooksEnabled, true, "Async domain event hooks")

	// Domain events, logged through zap
	eventManager := events.NewManager(flags.IsEnabled(features.FeatureEventHooksEnabled))
	defer eventManager.Shutdown()
	subscribeLogging(eventManager, logger)

	// Narrative augmenter
	var augmenter *narrative.Augmenter
	if cfg.Narrative.Enabled {
		if cfg.Narrative.APIKey == "" {
			logger.Warn("narrative mode enabled but ANTHROPIC_API_KEY is not set; AI mode degrades to generic justifications")
			augmenter = narrative.NewAugmenter(nil, logger, cfg.Narrative.TopK)
		} else {
			gen := narrative.NewAnthropicGenerator(cfg.Narrative.APIKey, cfg.Narrative.Model, cfg.Narrative.MaxTokens)
			augmenter = narrative.NewAugmenter(gen, logger, cfg.Narrative.TopK)
		}
	}

	// Core engine
	var offsets []time.Duration
	for _, m := range cfg.Alternatives.OffsetsMinutes {
		offsets = append(offsets, time.Duration(m)*time.Minute)
	}
	engine := recommend.NewEngine(cfg.Alternatives.TopK, offsets)

	svc := service.NewService(service.Options{
		Catalog:          provider,
		Engine:           engine,
		Augmenter:        augmenter,
		Cache:            responseCache,
		CacheTTL:         time.Duration(cfg.Cache.TTLSeconds) * time.Second,
		NarrativeTimeout: time.Duration(cfg.Narrative.TimeoutSeconds) * time.Second,
		Events:           eventManager,
		Flags:            flags,
		Logger:           logger,
	})

	h := handler.NewHandlerWithOptions(svc, handler.NewHandlerOptions{
		MaxBodySize: cfg.Security.MaxRequestBodySize,
	})

	// Rate limiter
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.Rate, time.Duration(cfg.RateLimit.Window)*time.Second)
	defer rateLimiter.Stop()

	// Router
	r := chi.NewRouter()

	// Middleware (order matters)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	if cfg.Tracing.Enabled {
		r.Use(middleware.TracingMiddleware())
	}
	if cfg.RateLimit.Enabled {
		r.Use(middleware.RateLimitMiddleware(rateLimiter))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   strings.Split(cfg.Security.AllowedOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Routes
	r.Route("/recommend", func(r chi.Router) {
		r.Post("/", h.Recommend)
		r.Post("/ai", h.RecommendWithNarrative)
		r.Post("/alternatives", h.RecommendAlternatives)
	})

	r.Post("/catalog/reload", h.ReloadCatalog)
	r.Get("/health", h.Health)

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	server := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	logger.Info("starting server",
		zap.String("addr", addr),
		zap.String("catalog_source", cfg.Catalog.Source),
		zap.Int("offers", provider.Snapshot().OffersCount()),
		zap.Int("events", provider.Snapshot().EventsCount()),
		zap.Bool("narrative", cfg.Narrative.Enabled))

	// Graceful shutdown
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("error shutting down server", zap.Error(err))
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server failed", zap.Error(err))
	}
}

// subscribeLogging attaches zap-backed subscribers for the domain events.
func subscribeLogging(m *events.Manager, logger *zap.Logger) {
	m.Subscribe(events.EventRecommendationServed, func(ctx context.Context, e events.Event) error {
		if data, ok := e.Data.(events.RecommendationServedData); ok {
			logger.Info("recommendation served",
				zap.String("recommendation_id", data.RecommendationID),
				zap.String("brand", data.Plan.Brand),
				zap.String("category", data.Plan.Category),
				zap.Int("results", data.ResultCount),
				zap.Bool("narrative", data.Narrative))
		}
		return nil
	})

	m.Subscribe(events.EventAlternativesServed, func(ctx context.Context, e events.Event) error {
		if data, ok := e.Data.(events.AlternativesServedData); ok {
			logger.Info("alternatives served",
				zap.String("recommendation_id", data.RecommendationID),
				zap.String("brand", data.Plan.Brand),
				zap.String("category", data.Plan.Category),
				zap.Int("results", data.ResultCount))
		}
		return nil
	})

	m.Subscribe(events.EventCatalogReloaded, func(ctx context.Context, e events.Event) error {
		if data, ok := e.Data.(events.CatalogReloadedData); ok {
			logger.Info("catalog reloaded",
				zap.Int("offers", data.OffersCount),
				zap.Int("events", data.EventsCount))
		}
		return nil
	})
}

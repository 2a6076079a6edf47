package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"therapypunch/pkg/bluesky"
	"therapypunch/pkg/bot"
	"therapypunch/pkg/cache"
	"therapypunch/pkg/config"
	"therapypunch/pkg/groq"
	"therapypunch/pkg/linkpreview"
	"therapypunch/pkg/logging"
	"therapypunch/pkg/persona"
	"therapypunch/pkg/store"
	"therapypunch/pkg/topics"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load config.yml
	cfg, err := config.LoadConfig("config.yml")
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	logger, logFile, err := logging.New(logging.Options{
		File:   cfg.Logging.File,
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		logrus.Fatalf("Failed to set up logging: %v", err)
	}
	defer logFile.Close()

	// Load .env for secrets
	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, relying on environment variables")
	}

	handle := os.Getenv("BLUESKY_HANDLE")
	password := os.Getenv("BLUESKY_PASSWORD")
	groqKey := os.Getenv("GROQ_API_KEY")

	// Check each required environment variable individually for better error messages
	if handle == "" {
		logger.Fatal("Missing required environment variable: BLUESKY_HANDLE")
	}
	if password == "" {
		logger.Fatal("Missing required environment variable: BLUESKY_PASSWORD")
	}
	if groqKey == "" {
		logger.Fatal("Missing required environment variable: GROQ_API_KEY")
	}

	botHandle := os.Getenv("BOT_HANDLE")
	if botHandle == "" {
		botHandle = handle
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Processed URI store
	backend, closeBackend := openBackend(cfg, logger)
	defer closeBackend()

	processed, err := store.Load(ctx, backend, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load processed URIs")
	}
	logger.WithField("count", processed.Len()).Info("Loaded processed URIs")

	// Initialize Clients
	social := bluesky.NewClient(cfg.Bluesky.Service, bluesky.Options{}, logger)
	if err := social.Login(ctx, handle, password); err != nil {
		logger.WithError(err).Fatal("Failed to log in to Bluesky")
	}

	model := groq.NewClient(groqKey, groq.Options{
		BaseURL:     cfg.Model.BaseURL,
		Model:       cfg.Model.Model,
		Temperature: *cfg.Model.Temperature,
		TopP:        *cfg.Model.TopP,
		MaxTokens:   cfg.Model.MaxTokens,
	}, logger)

	voice, err := persona.Default().Get(cfg.Reply.Persona)
	if err != nil {
		logger.WithError(err).Fatal("Invalid reply persona")
	}

	var links bot.LinkPreviewer
	if cfg.Reply.FetchLinks {
		links = linkpreview.NewFetcher(linkpreview.Options{}, logger)
		logger.Info("Link previews enabled")
	}

	catalog := topics.DefaultCatalog()
	if len(cfg.Topics) > 0 {
		custom := make([]topics.Topic, 0, len(cfg.Topics))
		for _, t := range cfg.Topics {
			custom = append(custom, topics.Topic{Name: t.Name, Subtopics: t.Subtopics, KeyTerms: t.KeyTerms})
		}
		catalog = topics.NewCatalog(custom)
		logger.WithField("topics", catalog.Names()).Info("Using topics from config.yml")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := bot.NewMetrics(registry)
	if cfg.Metrics.Addr != "" {
		srv := serveMetrics(cfg.Metrics.Addr, registry, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	b := bot.New(bot.Options{
		Client:    social,
		Model:     model,
		Links:     links,
		Processed: processed,
		Scheduler: topics.NewScheduler(catalog, nil),
		Persona:   voice,
		BotHandle: botHandle,
		Reply:     cfg.Reply,
		Posting:   cfg.Posting,
		Follow:    cfg.Follow,
		Metrics:   metrics,
		Logger:    logger,
	})

	logger.WithFields(logrus.Fields{
		"handle":  botHandle,
		"persona": voice.Name,
		"model":   cfg.Model.Model,
	}).Info("Therapy Punch is now running. Press CTRL-C to exit.")

	if err := b.Run(ctx); err != nil {
		logger.WithError(err).Error("Bot exited with error")
	}

	logger.Info("Shutting down")
}

func openBackend(cfg *config.Config, logger logging.Logger) (store.Backend, func()) {
	switch cfg.Store.Backend {
	case "file":
		return store.NewFileBackend(cfg.Store.Path), func() {}
	case "redis":
		redisURL := os.Getenv("REDIS_URL")
		if redisURL == "" {
			logger.Fatal("Missing required environment variable: REDIS_URL (store.backend is redis)")
		}
		c, err := cache.NewRedisCache(redisURL, cfg.Store.RedisPrefix)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to Redis")
		}
		logger.Info("Storing processed URIs in Redis")
		return store.NewRedisBackend(c), func() { c.Close() }
	default:
		logger.Fatalf("Unknown store backend %q", cfg.Store.Backend)
		return nil, nil
	}
}

func serveMetrics(addr string, registry *prometheus.Registry, logger logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("Metrics server failed")
		}
	}()
	logger.WithField("addr", addr).Info("Serving metrics")
	return srv
}

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/Krumil/hacksignal/internal/alert"
	"github.com/Krumil/hacksignal/internal/catalog"
	"github.com/Krumil/hacksignal/internal/config"
	"github.com/Krumil/hacksignal/internal/enrichment"
	"github.com/Krumil/hacksignal/internal/publisher"
	"github.com/Krumil/hacksignal/internal/scheduler"
	"github.com/Krumil/hacksignal/internal/scoring"
	"github.com/Krumil/hacksignal/internal/service"
	"github.com/Krumil/hacksignal/internal/source/xsearch"
	"github.com/Krumil/hacksignal/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flushDigest := flag.Bool("flush-digest", false, "flush the digest queue once and exit")
	flag.Parse()

	// Setup logger
	logger := setupLogger("info")

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		logger.Error("failed to load catalog", "error", err)
		os.Exit(1)
	}
	logger.Info("catalog loaded",
		"hashtags", len(cat.Hashtags),
		"keywords", len(cat.Keywords),
	)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	// Initialize RabbitMQ alert channel
	rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
		URL:        cfg.RabbitMQ.URL,
		Exchange:   cfg.RabbitMQ.Exchange,
		RoutingKey: cfg.RabbitMQ.RoutingKey,
		QueueName:  cfg.RabbitMQ.QueueName,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to rabbitmq", "error", err)
		os.Exit(1)
	}
	defer rabbitMQ.Close()

	// Initialize stores
	postStore := postgres.NewPostStore(db)
	digestQueue := postgres.NewDigestQueueStore(db)
	txManager := postgres.NewTransactionManager(db)

	// Alert channels
	registry := alert.NewRegistry()
	registry.Register(alert.ChannelConsole, alert.NewConsoleSender(logger))
	registry.Register(alert.ChannelAMQP, rabbitMQ)

	router := alert.NewRouter(
		alert.FixedCutoff(cfg.Thresholds.ROICutoff),
		digestQueue,
		registry,
		alert.ChannelAMQP,
		txManager,
		logger,
	)

	if *flushDigest {
		delivered, err := router.FlushDigest(context.Background())
		if err != nil {
			logger.Error("digest flush failed", "delivered", delivered, "error", err)
			os.Exit(1)
		}
		logger.Info("digest flushed", "delivered", delivered)
		return
	}

	scorer := scoring.New(cat, scoring.Bounds{
		FollowerMin: cfg.Thresholds.FollowerMin,
		FollowerMax: cfg.Thresholds.FollowerMax,
	}, logger)

	enricher, err := enrichment.New(cat, enrichment.NewFixedRates(), logger)
	if err != nil {
		logger.Error("failed to build enricher", "error", err)
		os.Exit(1)
	}

	// Initialize search source
	searchSource := xsearch.New(xsearch.Config{
		BaseURL:        cfg.API.BaseURL,
		APIKey:         cfg.API.APIKey,
		APIHost:        cfg.API.APIHost,
		Timeout:        cfg.API.Timeout,
		MaxAttempts:    cfg.API.Retry.MaxAttempts,
		InitialBackoff: cfg.API.Retry.InitialBackoff,
		MaxBackoff:     cfg.API.Retry.MaxBackoff,
	}, cat, logger)

	pipeline := service.NewPipeline(
		searchSource,
		postStore,
		scorer,
		enricher,
		router,
		logger,
		cfg.Pipeline,
		cfg.Thresholds,
	)

	sched := scheduler.NewScheduler(pipeline, cfg.Pipeline.Interval, cfg.Thresholds.DigestSendTime, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	logger.Info("starting hacksignal pipeline",
		"source", searchSource.Name(),
		"interval", cfg.Pipeline.Interval,
		"roi_cutoff", cfg.Thresholds.ROICutoff,
		"digest_send_time", cfg.Thresholds.DigestSendTime,
	)

	if err := sched.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}

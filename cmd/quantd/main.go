package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"QuantDash/internal/collector"
	"QuantDash/internal/config"
	"QuantDash/internal/httpapi"
	"QuantDash/internal/logger"
	"QuantDash/internal/metrics"
	"QuantDash/internal/notifier"
	"QuantDash/internal/recorder"
	"QuantDash/internal/scheduler"
	"QuantDash/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "quantd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	log, err := logger.New(logger.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()
	log.Info("QuantDash starting", zap.String("config", cfgPath))

	m := metrics.New()

	// Init fetcher
	fetcher := collector.Instrument(newFetcher(cfg), m)
	log.Info("data source ready", zap.String("provider", fetcher.Name()))

	// Init recorder
	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
		if err != nil {
			log.Warn("init sqlite recorder failed, using noop", zap.Error(err))
		} else {
			rec = sr
		}
	}
	defer rec.Close()

	// Context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Init notifier
	var (
		notify notifier.Notifier = notifier.Noop{}
		tn     *notifier.TelegramNotifier
	)
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
		notify = tn
	}

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, fetcher, cfg.Health.ProbeSymbol, notify, rec, log)
	sched.Observer = m
	if err := sched.Register(cfg.Health.Cron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()
	go sched.Probe()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info("telegram polling started")
	}

	svc := service.New(fetcher,
		service.WithTimeout(cfg.DataSource.Timeout),
		service.WithLogger(log),
	)
	api := httpapi.NewAPI(svc, httpapi.Options{
		Requests:       m,
		MetricsHandler: m.Handler(),
		Recorder:       rec,
		Status:         sched.Status,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         log,
	})
	srv := httpapi.NewServer(httpapi.ServerConfig{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, api.Handler(), log)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutdown signal received, stopping")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error("stop server", zap.Error(err))
	}
	log.Info("QuantDash stopped")
	return nil
}

func newFetcher(cfg *config.Config) collector.Fetcher {
	ds := cfg.DataSource
	switch ds.Name {
	case "rest":
		return collector.NewRESTFetcher(ds.BaseURL, ds.APIKey, cfg.Proxy, ds.Timeout)
	case "financego":
		return collector.NewFinanceGoFetcher()
	case "mock":
		return &collector.MockFetcher{Price: 100}
	default:
		f := collector.NewYahooFetcher(cfg.Proxy, ds.Timeout)
		if ds.UserAgent != "" {
			f.UserAgent = ds.UserAgent
		}
		return f
	}
}

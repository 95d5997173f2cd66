package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/stockbot/config"
	"github.com/alejandrodnm/stockbot/internal/adapters/notify"
	"github.com/alejandrodnm/stockbot/internal/adapters/quotes"
	"github.com/alejandrodnm/stockbot/internal/adapters/storage"
	"github.com/alejandrodnm/stockbot/internal/application/engine"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one sweep cycle and exit")
	report := flag.Bool("report", false, "print the fill history and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("stockbot starting",
		"config", *configPath,
		"account", cfg.Trading.AccountID,
		"sweep_interval", cfg.SweepInterval(),
		"dsn", cfg.Storage.DSN,
		"once", *once,
		"report", *report,
	)

	openingBalance, err := decimal.NewFromString(cfg.Trading.InitialBalance)
	if err != nil {
		slog.Error("invalid initial_balance", "err", err, "value", cfg.Trading.InitialBalance)
		os.Exit(1)
	}
	demoStart, err := decimal.NewFromString(cfg.Trading.DemoStartPrice)
	if err != nil {
		slog.Error("invalid demo_start_price", "err", err, "value", cfg.Trading.DemoStartPrice)
		os.Exit(1)
	}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN, openingBalance)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	calendar, err := engine.NewMarketCalendar()
	if err != nil {
		slog.Error("failed to load market calendar", "err", err)
		os.Exit(1)
	}

	client := quotes.NewClient(cfg.API.QuoteBase)

	eng := engine.New(store, client, calendar, engine.Config{
		AccountID:      cfg.Trading.AccountID,
		CacheDuration:  cfg.PriceCacheDuration(),
		PriceAttempts:  cfg.Trading.PriceAttempts,
		DemoStartPrice: demoStart,
		DemoVolatility: cfg.Trading.DemoVolatility,
	})

	console := notify.NewConsole()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *report {
		runReport(ctx, eng, console)
		return
	}

	if *once {
		runSweepCycle(ctx, eng, console)
		return
	}

	runSweepLoop(ctx, eng, console, cfg.SweepInterval())
	slog.Info("stockbot stopped cleanly")
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

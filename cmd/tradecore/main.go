package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/alejandrodnm/tradecore/config"
	"github.com/alejandrodnm/tradecore/internal/adapters/notify"
	"github.com/alejandrodnm/tradecore/internal/adapters/storage"
	"github.com/alejandrodnm/tradecore/internal/application/decision"
	"github.com/alejandrodnm/tradecore/internal/application/router"
	"github.com/alejandrodnm/tradecore/internal/application/sizing"
	"github.com/alejandrodnm/tradecore/internal/domain"
	"github.com/alejandrodnm/tradecore/internal/metrics"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	dryRun := flag.Bool("dry-run", false, "use the fixture feed instead of live sources; nothing is journaled")
	verbose := flag.Bool("verbose", false, "set log level to debug and print full decision detail")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	market := flag.String("market", "", "market id for a single decision")
	side := flag.String("side", "buy", "buy|sell")
	edge := flag.Float64("edge", 0, "edge fraction of the intent")
	prob := flag.Float64("p", 0, "win probability of the intent")
	intentsPath := flag.String("intents", "", "YAML file with a batch of intents (and optional trade history)")
	mode := flag.String("mode", "", "route mode: best_price|best_liquidity|lowest_fee|balanced (overrides config)")
	interval := flag.Duration("interval", 0, "re-run the decisions every interval until interrupted (0 = once)")
	history := flag.Duration("history", 0, "print journaled decisions from the last duration and exit")
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
	if *mode != "" {
		cfg.Router.Mode = *mode
	}
	closeLog := setupLogger(cfg.Log)
	defer closeLog()

	slog.Info("tradecore starting",
		"config", *configPath,
		"mode", cfg.Router.Mode,
		"dry_run", *dryRun,
		"interval", *interval,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, runOptions{
		dryRun:      *dryRun,
		verbose:     *verbose,
		market:      *market,
		side:        *side,
		edge:        *edge,
		prob:        *prob,
		intentsPath: *intentsPath,
		interval:    *interval,
		history:     *history,
	}); err != nil {
		slog.Error("tradecore exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("tradecore stopped cleanly")
}

type runOptions struct {
	dryRun      bool
	verbose     bool
	market      string
	side        string
	edge        float64
	prob        float64
	intentsPath string
	interval    time.Duration
	history     time.Duration
}

func run(ctx context.Context, cfg *config.Config, opts runOptions) error {
	routerCfg, err := cfg.RouterConfig()
	if err != nil {
		return err
	}
	venues, err := cfg.VenueTable()
	if err != nil {
		return err
	}

	collectors := metrics.New()
	metrics.Serve(ctx, cfg.Metrics.Addr, collectors.Registry)

	notifier := notify.NewConsole(opts.verbose)

	var journal *storage.SQLiteJournal
	if !opts.dryRun {
		journal, err = storage.NewSQLiteJournal(cfg.Storage.DSN, cfg.Retention())
		if err != nil {
			return err
		}
		defer journal.Close()
	}

	if opts.history > 0 {
		if journal == nil {
			slog.Warn("history needs the journal; nothing to show in dry-run")
			return nil
		}
		recs, err := journal.RecentDecisions(ctx, time.Now().Add(-opts.history), 0)
		if err != nil {
			return err
		}
		notifier.PrintHistory(recs)
		return nil
	}

	intents, settled, err := collectIntents(opts)
	if err != nil {
		return err
	}

	gw, closeFeed, err := buildFeed(cfg, opts.dryRun)
	if err != nil {
		return err
	}
	defer closeFeed()

	sr, err := router.New(gw, venues, routerCfg, router.WithObserver(collectors))
	if err != nil {
		return err
	}
	sizer, err := sizing.New(cfg.Sizing.InitialBankroll, cfg.SizingConfig())
	if err != nil {
		return err
	}

	coreOpts := []decision.Option{
		decision.WithNotifier(notifier),
		decision.WithObserver(collectors),
		decision.WithWorkers(cfg.Router.Workers),
	}
	if journal != nil {
		coreOpts = append(coreOpts, decision.WithJournal(journal))
	}
	core, err := decision.New(sizer, sr, coreOpts...)
	if err != nil {
		return err
	}

	for _, s := range settled {
		core.Settle(s.Outcome, s.PnL)
	}
	if opts.verbose {
		notifier.PrintState(core.State())
	}

	decideAll(ctx, core, intents)
	if opts.interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(opts.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			decideAll(ctx, core, intents)
		}
	}
}

// collectIntents usa -intents si viene; si no, construye un intent desde los flags.
func collectIntents(opts runOptions) ([]domain.Intent, []settledTrade, error) {
	if opts.intentsPath != "" {
		return loadIntents(opts.intentsPath)
	}
	in, err := newIntent(opts.market, opts.side, opts.edge, opts.prob)
	if err != nil {
		return nil, nil, err
	}
	return []domain.Intent{in}, nil, nil
}

func decideAll(ctx context.Context, core *decision.Core, intents []domain.Intent) {
	if len(intents) == 1 {
		_, _ = core.Decide(ctx, intents[0])
		return
	}
	core.DecideBatch(ctx, intents)
}

// setupLogger configura slog. Con log.file también escribe a un archivo rotado.
func setupLogger(cfg config.LogConfig) func() {
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

	var out io.Writer = os.Stdout
	closer := func() {}
	if cfg.File != "" {
		fileWriter := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, fileWriter)
		closer = func() { _ = fileWriter.Close() }
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	slog.SetDefault(slog.New(handler))
	return closer
}

package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/riskgate/alert"
	"github.com/rustyeddy/riskgate/config"
	"github.com/rustyeddy/riskgate/engine"
	"github.com/rustyeddy/riskgate/journal"
	"github.com/rustyeddy/riskgate/market"
	"github.com/rustyeddy/riskgate/metrics"
	"github.com/rustyeddy/riskgate/risk"
	"github.com/rustyeddy/riskgate/strategy"
	"github.com/rustyeddy/riskgate/venue"
	"github.com/rustyeddy/riskgate/venue/rest"
	"github.com/rustyeddy/riskgate/venue/sim"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the orchestrator from a config file",
	Long: `Run the order orchestrator using settings from a configuration file.

The config file selects the venue (sim or rest), risk limits, journal
backend, alert channels, and the metrics endpoint.

Example:
  riskgate run -f examples/configs/basic.yaml`,
	RunE: runRun,
}

var runConfigPath string

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML) (required)")
	runCmd.MarkFlagRequired("config")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg.Log.Level)

	loc, err := cfg.App.Location()
	if err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	pollInterval, err := cfg.App.ParsePollInterval()
	if err != nil {
		return fmt.Errorf("app.poll_interval: %w", err)
	}
	orderTimeout, err := cfg.App.ParseOrderTimeout()
	if err != nil {
		return fmt.Errorf("app.order_timeout: %w", err)
	}
	backoffBase, err := cfg.Venue.ParseBackoffBase()
	if err != nil {
		return fmt.Errorf("venue.backoff_base: %w", err)
	}

	var gw venue.Gateway
	switch cfg.Venue.Kind {
	case "rest":
		timeout, err := cfg.Venue.ParseTimeout()
		if err != nil {
			return fmt.Errorf("venue.timeout: %w", err)
		}
		gw = rest.New(cfg.Venue.BaseURL, cfg.Venue.Token, timeout)
	default:
		sv := sim.New(cfg.Venue.SimEquity)
		for _, info := range simSymbols(cfg.App.Symbols) {
			sv.AddSymbol(info)
		}
		sv.SetAutoFill(true)
		gw = sv
	}

	var store journal.Journal
	if cfg.Journal.Type == "sqlite" {
		store, err = journal.NewSQLite(cfg.Journal.DBPath)
	} else {
		store, err = journal.NewCSV(cfg.Journal.Dir, cfg.Journal.RotateDaily, loc)
	}
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	jrn := journal.NewWriter(store, logger, 256)
	defer jrn.Close()

	var notifiers []alert.Notifier
	if cfg.Telegram.Enabled {
		tg, err := alert.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
		notifiers = append(notifiers, tg)
	}
	alerts := alert.NewService(logger, notifiers...)

	met := metrics.New()
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", met.Handler())
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", "err", err)
			}
		}()
		defer srv.Close()
		logger.Info("metrics listening", "addr", cfg.Metrics.Addr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	snap, err := gw.AccountSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("initial account snapshot: %w", err)
	}
	now := time.Now().In(loc)
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	rm := risk.NewManager(risk.Limits{
		PerDayPct:        cfg.Risk.PerDayPct,
		MaxActiveTrades:  cfg.Risk.MaxActiveTrades,
		MinRiskIncrement: cfg.Risk.MinRiskIncrement,
	}, snap.Equity, day)
	if cfg.Risk.Dynamic.Enabled {
		rm.SetPolicy(risk.DrawdownPolicy{
			Window:               cfg.Risk.Dynamic.Window,
			DrawdownThresholdPct: cfg.Risk.Dynamic.DrawdownThresholdPct,
			ReduceFactor:         cfg.Risk.Dynamic.ReduceFactor,
		})
	}

	// Signal sources plug in via strategy.Source; the binary ships with the
	// quiet default and expects embedding or an external feed for live use.
	var src strategy.Source = strategy.Static{}

	eng := engine.New(engine.Config{
		PerTradeRiskPct: cfg.Risk.PerTradePct,
		PollInterval:    pollInterval,
		OrderTimeout:    orderTimeout,
		MaxAttempts:     cfg.Venue.MaxAttempts,
		BackoffBase:     backoffBase,
		Tag:             cfg.App.StrategyTag,
		Location:        loc,
	}, gw, rm, src, jrn, alerts, met, logger)

	logger.Info("riskgate starting",
		"venue", cfg.Venue.Kind,
		"journal", cfg.Journal.Type,
		"symbols", cfg.App.Symbols,
		"equity", snap.Equity)

	return eng.Run(ctx)
}

// simSymbols supplies contract specs for the sim venue. Standard FX majors
// are built in; anything else gets EURUSD-like parameters.
func simSymbols(symbols []string) []market.SymbolInfo {
	known := map[string]market.SymbolInfo{
		"EURUSD": {Symbol: "EURUSD", Point: 0.0001, Digits: 5, ContractSize: 100000, LotStep: 0.01, MinLot: 0.01},
		"GBPUSD": {Symbol: "GBPUSD", Point: 0.0001, Digits: 5, ContractSize: 100000, LotStep: 0.01, MinLot: 0.01},
		"AUDUSD": {Symbol: "AUDUSD", Point: 0.0001, Digits: 5, ContractSize: 100000, LotStep: 0.01, MinLot: 0.01},
		"USDJPY": {Symbol: "USDJPY", Point: 0.01, Digits: 3, ContractSize: 100000, LotStep: 0.01, MinLot: 0.01},
	}
	var out []market.SymbolInfo
	for _, s := range symbols {
		info, ok := known[s]
		if !ok {
			info = market.SymbolInfo{Symbol: s, Point: 0.0001, Digits: 5, ContractSize: 100000, LotStep: 0.01, MinLot: 0.01}
		}
		out = append(out, info)
	}
	return out
}

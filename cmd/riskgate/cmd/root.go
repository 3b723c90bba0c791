package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "riskgate",
	Short: "A risk-gated order orchestrator",
	Long: `Riskgate sits between strategy signals and a brokerage venue.

Every proposed entry is checked against per-trade and per-day risk limits,
sized from current equity, and only then submitted. Orders are tracked
through an explicit lifecycle; every state change is journaled and alerted
exactly once.

It provides:
  - Risk-based position sizing with daily loss budgets
  - An order state machine with an append-only transition journal
  - Idempotent venue submission with retry on transient failures
  - CSV or SQLite journaling, Telegram alerts, Prometheus metrics`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Secrets come from the environment; a .env file is loaded
// when present.
func Execute() error {
	_ = godotenv.Load()
	return rootCmd.Execute()
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

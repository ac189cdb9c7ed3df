package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/traderagent/config"
	"github.com/rustyeddy/traderagent/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "traderagent",
	Short: "An LLM-driven crypto trading agent with a paper and live ledger",
	Long: `Traderagent asks a language model for trading instructions and keeps
a position ledger with long, short and spot books.

It provides tools for:
  - Running a single paper or live trading round
  - Backtesting the model against recent history
  - Enforcing stop-loss and take-profit levels every round
  - Inspecting the balance, history and trade journal

Paper trading is the default. Live trading asks for confirmation.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnv(envFiles...); err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		level := cfg.Log.Level
		if logLevel != "" {
			level = logLevel
		}
		logger.SetLevel(level)
		return nil
	},
}

var (
	cfgFile   string
	logLevel  string
	envFiles  []string
	paperFlag bool
	liveFlag  bool
	noVolume  bool
)

// Execute adds all child commands to the root command and sets flags appropriately.
// An interrupt cancels the running round or backtest.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON); defaults are used when empty")
	pf.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringSliceVar(&envFiles, "env-file", []string{".env"}, ".env files to load secrets from")
	pf.BoolVar(&paperFlag, "paper", false, "use paper trading (default)")
	pf.BoolVar(&liveFlag, "live", false, "use live trading - BE CAREFUL!")
	pf.BoolVar(&noVolume, "no-volume", false, "disable volume analysis (price-only prompts)")
	rootCmd.MarkFlagsMutuallyExclusive("paper", "live")
}

// loadConfig reads --config (or the defaults) and applies the mode flags.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if cfgFile != "" {
		var err error
		cfg, err = config.LoadFromFile(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	switch {
	case liveFlag:
		cfg.Account.Mode = config.ModeLive
	case paperFlag:
		cfg.Account.Mode = config.ModePaper
	}
	if noVolume {
		cfg.Oracle.UseVolume = false
	}
	return cfg, nil
}

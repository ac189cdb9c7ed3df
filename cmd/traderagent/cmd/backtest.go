package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/traderagent/journal"
	"github.com/rustyeddy/traderagent/runner"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay market history through the oracle and ledger",
	Long: `Backtest fetches the market history once and replays it bar by bar.
At every bar the oracle sees only earlier bars and trades at the price of
the current bar.

Examples:
  traderagent backtest
  traderagent backtest --fresh --no-save --report backtest.org
  traderagent backtest --warmup 48 -c examples/config/static.yaml`,
	Args: cobra.NoArgs,
	RunE: runBacktest,
}

var (
	btFresh      bool
	btNoSave     bool
	btReportPath string
	btWarmup     int
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().BoolVar(&btFresh, "fresh", false, "start from the configured balance instead of the stored account")
	backtestCmd.Flags().BoolVar(&btNoSave, "no-save", false, "do not write the account back when the run ends")
	backtestCmd.Flags().StringVarP(&btReportPath, "report", "r", "", "write an org-mode report to this path")
	backtestCmd.Flags().IntVarP(&btWarmup, "warmup", "w", 0, "bars of history before the first trade (default from config)")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	warmup := cfg.Backtest.Warmup
	if btWarmup > 0 {
		warmup = btWarmup
	}
	reportPath := cfg.Backtest.ReportPath
	if btReportPath != "" {
		reportPath = btReportPath
	}

	s, err := openSession(cfg, btFresh, !btNoSave)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Println("🧪 === TraderAgent Backtest ===")
	fmt.Printf("🎯 Mode: %s (%s)\n", modeText(cfg), volumeText(cfg))
	fmt.Printf("📈 Instruments: %v\n", cfg.Account.Instruments)
	fmt.Printf("⏳ Warmup: %d bars\n", warmup)
	fmt.Println(rule)

	started := time.Now()
	res, err := s.runner.Backtest(cmd.Context(), runner.BacktestOptions{
		Warmup: warmup,
		Progress: func(done, total int) {
			fmt.Fprintf(os.Stderr, "\r%s", runner.ProgressBar(done, total))
			if done == total {
				fmt.Fprintln(os.Stderr)
			}
		},
	})
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}

	acct := s.runner.Account()
	fmt.Printf("\n✓ Backtest %s complete in %s\n", res.RunID, time.Since(started).Round(time.Millisecond))
	fmt.Printf("  Period: %s → %s (%d steps)\n", res.Start.Format("2006-01-02 15:04"), res.End.Format("2006-01-02 15:04"), res.Steps)
	fmt.Printf("  Fills: %d  Triggers: %d  Ignored lines: %d\n", res.Fills, res.Triggers, res.Discarded)
	fmt.Printf("  Equity: %s → %s\n", money(res.StartEquity), money(res.Final.Equity()))
	fmt.Println()

	printSummary("📊 BACKTEST SUMMARY", acct, res.Prices)

	if btNoSave {
		fmt.Println("💾 Account not saved (--no-save)")
	} else {
		fmt.Printf("💾 Balance saved to %s\n", s.store.Path)
	}

	if reportPath == "" {
		return nil
	}
	report := &journal.BacktestReport{
		RunID:       res.RunID,
		Created:     time.Now(),
		Interval:    cfg.Market.Interval,
		Dataset:     dataset(cfg.Market.Provider, cfg.Market.CSVPath),
		Instruments: cfg.Account.Instruments,
		Model:       cfg.Oracle.Model,
		Start:       res.Start,
		End:         res.End,
		Steps:       res.Steps,
		StartEquity: res.StartEquity,
		EndEquity:   res.Final.Equity(),
		RealizedPL:  res.Final.RealizedPL,
		Unrealized:  res.Final.UnrealizedPL,
		Triggers:    res.Triggers,
		History:     acct.RecentHistory(10),
	}
	report.Summarize(res.Records, res.Equity)
	if err := report.WriteOrg(reportPath); err != nil {
		return err
	}
	fmt.Printf("📝 Report written to %s\n", reportPath)
	return nil
}

func dataset(provider, csvPath string) string {
	if provider == "csv" {
		return csvPath
	}
	return provider
}

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/traderagent/action"
	"github.com/rustyeddy/traderagent/ledger"
	"github.com/rustyeddy/traderagent/market"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one trading round",
	Long: `Fetch the latest prices, enforce stop-loss and take-profit levels, ask
the oracle for instructions, apply them and save the account.

Examples:
  traderagent run
  traderagent run --live
  traderagent run --no-volume --config traderagent.yaml`,
	Args: cobra.NoArgs,
	RunE: runRound,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRound(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Paper() && !confirmLive(cmd.InOrStdin(), cmd.OutOrStdout(), os.Getenv) {
		return nil
	}

	s, err := openSession(cfg, false, true)
	if err != nil {
		return err
	}
	defer s.Close()

	acct := s.runner.Account()
	fmt.Println("🤖 === TraderAgent Execution ===")
	fmt.Printf("📅 Start Time: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Printf("🎯 Mode: %s (%s)\n", modeText(cfg), volumeText(cfg))
	fmt.Println(rule)
	fmt.Println()
	fmt.Println("💳 Current Balance:")
	printBalance(acct)
	fmt.Println()

	res, err := s.runner.Round(cmd.Context())
	if err != nil {
		return fmt.Errorf("round: %w", err)
	}

	fmt.Println("💰 Current Market Prices:")
	for _, sym := range market.Symbols(res.Prices) {
		fmt.Printf("  %s: %s\n", sym, money(res.Prices[sym]))
	}
	fmt.Println()

	if len(res.Triggers) == 0 {
		fmt.Println("✅ No stop losses or take profits triggered")
	}
	for _, tr := range res.Triggers {
		fmt.Printf("💫 %s %s %s at %s (P&L: %s)\n", tr.Reason, tr.Instrument, tr.Side, money(tr.Price), money(tr.RealizedPL))
	}

	fmt.Println("\n🎯 AI Decisions:")
	for _, d := range res.Decisions {
		status := "✓"
		switch {
		case d.Skipped:
			status = "skipped: no price"
		case d.Blocked != "":
			status = "blocked: " + d.Blocked
		case !d.Applied:
			status = "rejected"
		}
		fmt.Printf("  %s: %s [%s]\n", d.Instrument, action.Format(d.Instruction), status)
	}
	if res.Discarded > 0 {
		fmt.Printf("  (%d malformed line(s) ignored)\n", res.Discarded)
	}
	if !res.Executed() {
		fmt.Println("  No trades executed this round")
	}
	fmt.Println()

	printSummary("📊 EXECUTION SUMMARY", acct, res.Prices)
	fmt.Printf("📅 Completed: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Printf("💾 Balance saved to %s\n", s.store.Path)
	fmt.Println(rule)
	return nil
}

const rule = "=================================================="

// printSummary prints realized, unrealized and total PnL followed by the
// last three history entries.
func printSummary(title string, acct *ledger.Account, prices map[string]float64) {
	unrealized := ledger.UnrealizedPL(acct, prices)

	fmt.Println(rule)
	fmt.Println(title)
	fmt.Println(rule)
	fmt.Printf("💰 Final USD Balance: %s\n", money(acct.Cash))
	fmt.Printf("🏦 Available Margin: %s\n", money(acct.Margin.Available))
	fmt.Printf("📈 Realized P&L: %s\n", money(acct.RealizedPL))
	fmt.Printf("📊 Unrealized P&L: %s\n", money(unrealized))
	fmt.Printf("🎯 Total P&L: %s\n", money(ledger.Round2(acct.RealizedPL+unrealized)))
	fmt.Println()
	fmt.Println(ledger.PositionSummary(acct, prices))

	if recent := acct.RecentHistory(3); len(recent) > 0 {
		fmt.Println("\n🔄 Recent Trades:")
		for _, h := range recent {
			fmt.Printf("  • %s\n", h)
		}
	}
}

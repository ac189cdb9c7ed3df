package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/traderagent/ledger"
	"github.com/rustyeddy/traderagent/store"
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the stored account balance and open positions",
	Long: `Print cash, margin, realized PnL and open positions from the stored
account. Positions are valued at their entry price; run a round for live
marks.

Examples:
  traderagent balance
  traderagent balance --live`,
	Args: cobra.NoArgs,
	RunE: runBalance,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}

func runBalance(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	acct, err := store.New(cfg.StatePath()).Load(defaultAccount(cfg))
	if err != nil {
		return err
	}

	fmt.Printf("💳 %s balance (%s)\n", modeText(cfg), cfg.StatePath())
	printBalance(acct)
	fmt.Println()
	fmt.Println(ledger.PositionSummary(acct, nil))
	return nil
}

func printBalance(acct *ledger.Account) {
	fmt.Println(ledger.BalanceSummary(acct))
}

func money(v float64) string {
	if v < 0 {
		return fmt.Sprintf("-$%.2f", -v)
	}
	return fmt.Sprintf("$%.2f", v)
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/traderagent/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the most recent account history entries",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var historyCount int

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyCount, "number", "n", 5, "number of entries to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	acct, err := store.New(cfg.StatePath()).Load(defaultAccount(cfg))
	if err != nil {
		return err
	}

	recent := acct.RecentHistory(historyCount)
	if len(recent) == 0 {
		fmt.Println("No trades recorded")
		return nil
	}
	fmt.Printf("🔄 Last %d of %d entries:\n", len(recent), len(acct.History))
	for _, h := range recent {
		fmt.Printf("  • %s\n", h)
	}
	return nil
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the traderagent CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("traderagent version %s\n", version)
		fmt.Println("An LLM-driven crypto trading agent with a paper and live ledger")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

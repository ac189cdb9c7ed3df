package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/traderagent/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage configuration files.

Subcommands:
  init     - Write the default configuration
  validate - Load and check a configuration file
  show     - Print the effective configuration after flags

Examples:
  traderagent config init -o traderagent.yaml
  traderagent config validate -f traderagent.yaml
  traderagent config show --live -c traderagent.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	RunE:  runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and check a configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "traderagent.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("✓ Wrote default configuration to %s\n", configInitOutput)
	fmt.Println("\nSet OPENAI_API_KEY (or put it in .env), then:")
	fmt.Printf("  traderagent run -c %s\n", configInitOutput)
	fmt.Printf("  traderagent backtest -c %s --fresh --no-save\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", configValidatePath, err)
	}

	fmt.Printf("✓ %s is valid\n", configValidatePath)
	fmt.Printf("  Account: %s ($%.2f) %s\n", cfg.Account.Mode, cfg.StartingBalance(), strings.Join(cfg.Account.Instruments, ", "))
	fmt.Printf("  Market: %s %s x%d\n", cfg.Market.Provider, cfg.Market.Interval, cfg.Market.Limit)
	fmt.Printf("  Oracle: %s %s (volume: %t)\n", cfg.Oracle.Provider, cfg.Oracle.Model, cfg.Oracle.UseVolume)
	fmt.Printf("  Journal: %s\n", cfg.Journal.Type)
	fmt.Printf("  Risk policy: %t\n", cfg.Risk.Enabled())
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	fmt.Print(string(out))
	if cfg.APIKey() == "" && cfg.Oracle.Provider == "openai" {
		fmt.Printf("# warning: %s is not set\n", cfg.Oracle.APIKeyEnv)
	}
	return nil
}

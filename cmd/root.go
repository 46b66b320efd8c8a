package cmd

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"miao-swap/config"
	"miao-swap/pkg/logging"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "miao-swap",
	Short: "A CLI for Solana token swaps through a DEX aggregator",
	Long: `miao-swap quotes, signs and confirms Solana token swaps routed through a
DEX aggregator. Quotes are fetched for the exact amount and slippage you ask
for, the transaction is signed by your wallet and the CLI waits until the
network confirms or rejects it.

Examples:
  miao-swap quote 1 SOL to MIAO
  miao-swap swap 1 SOL to MIAO --slippage 50
  miao-swap status <signature> --watch
  miao-swap tokens --symbol USDC`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default is $HOME/.miao-swap.yaml)")
}

// loadRuntime reads configuration and builds the logger for a command.
func loadRuntime(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	return cfg, logging.New(level, jsonOutput), nil
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", message)
}

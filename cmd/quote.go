package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"miao-swap/pkg/parser"
)

var quoteSlippage int

var quoteCmd = &cobra.Command{
	Use:   "quote <amount> <source-token> to <dest-token>",
	Short: "Get a swap quote without trading",
	Long: `Fetch a quote for swapping an exact amount of one Solana token into another.
Tokens may be given as symbols known to the registry or as mint addresses.

Examples:
  miao-swap quote 1 SOL to MIAO
  miao-swap quote 250 USDC to SOL --slippage 30`,
	Args: cobra.MinimumNArgs(4),
	Run:  runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)

	quoteCmd.Flags().IntVar(&quoteSlippage, "slippage", -1, "Slippage tolerance in basis points (default from config)")
}

func runQuote(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	pairCmd, err := parser.ParseArgs(args)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	cfg, logger, err := loadRuntime(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	slip, err := slippage(quoteSlippage, cfg)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	p, err := newPipeline(cfg, logger, nil)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer p.orchestrator.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching quote..."
		s.Start()
	}

	pr, err := p.resolvePair(ctx, pairCmd, slip)
	if err != nil {
		s.Stop()
		printError(err)
		os.Exit(1)
	}

	quote, err := p.orchestrator.RequestQuote(ctx, pr.params)
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(fmt.Errorf("quote %s -> %s: %w", pr.input.Symbol, pr.output.Symbol, err))
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(quoteOutput(pr, quote))
		return
	}
	displayQuote(pr, quote)
	fmt.Println()
}

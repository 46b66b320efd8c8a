package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"miao-swap/pkg/parser"
	"miao-swap/pkg/signer"
	"miao-swap/pkg/swap"
	"miao-swap/pkg/types"
)

const maxRetries = 3

var (
	swapSlippage int
	noConfirm    bool
)

var swapCmd = &cobra.Command{
	Use:   "swap <amount> <source-token> to <dest-token>",
	Short: "Swap tokens on Solana",
	Long: `Quote, sign, submit and confirm a token swap.

The transaction is built for the quote you see and signed by the configured
wallet (wallet.brand / wallet.private_key). The CLI then polls the network
until the transaction is confirmed, fails, or the confirmation budget runs out.

Examples:
  miao-swap swap 1 SOL to MIAO
  miao-swap swap 0.5 SOL to USDC --slippage 50

  # Skip all confirmations
  miao-swap swap 1 SOL to MIAO --yes`,
	Args: cobra.MinimumNArgs(4),
	Run:  runSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)

	swapCmd.Flags().IntVar(&swapSlippage, "slippage", -1, "Slippage tolerance in basis points (default from config)")
	swapCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")
}

func runSwap(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	pairCmd, err := parser.ParseArgs(args)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	if jsonOutput && !noConfirm {
		printError(fmt.Errorf("--json requires --yes, the confirmation prompt is interactive"))
		os.Exit(1)
	}

	cfg, logger, err := loadRuntime(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	slip, err := slippage(swapSlippage, cfg)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	prompt := &signer.Prompt{In: os.Stdin, Out: os.Stdout}
	var approver signer.Approver = prompt
	if noConfirm {
		approver = signer.AutoApprove
	}

	p, err := newPipeline(cfg, logger, approver)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer p.orchestrator.Close()

	payer := p.payer()
	if payer == "" {
		printError(fmt.Errorf("no wallet available: set wallet.brand to keypair and wallet.private_key (or MIAO_SWAP_WALLET_PRIVATE_KEY)"))
		os.Exit(1)
	}

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
		printError(err)
		os.Exit(1)
	}

	if !jsonOutput {
		displayQuote(pr, quote)
		fmt.Printf("  Wallet:          %s\n", color.CyanString(payer))
		p.orchestrator.Subscribe(progress(s))
	}

	res, err := p.orchestrator.Execute(ctx, payer)
	for attempt := 0; err == nil && res.Retryable && attempt < maxRetries; attempt++ {
		if noConfirm {
			break
		}
		displayResult(res)
		retry, askErr := prompt.Ask("Retry with a fresh quote?")
		if askErr != nil || !retry {
			break
		}

		s.Suffix = " Fetching quote..."
		s.Start()
		quote, err = p.orchestrator.Retry(ctx)
		s.Stop()
		if err != nil {
			break
		}
		displayQuote(pr, quote)
		res, err = p.orchestrator.Execute(ctx, payer)
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(res)
	} else if res.Status == types.StatusCancelled {
		printSuccess("Swap cancelled.")
	} else {
		displayResult(res)
		if res.Status == types.StatusSucceeded {
			printSuccess(color.GreenString("Swap confirmed."))
		}
	}

	os.Exit(exitCode(res.Status))
}

// progress shows a spinner while the transaction is confirming.
func progress(s *spinner.Spinner) func(swap.Transition) {
	return func(t swap.Transition) {
		switch {
		case t.To == types.StatusSubmitted:
			color.HiBlack("\nTransaction submitted.")
		case t.To == types.StatusConfirming:
			s.Suffix = " Waiting for confirmation..."
			s.Start()
		case t.To.IsTerminal():
			s.Stop()
		}
	}
}

func exitCode(status types.SwapStatus) int {
	switch status {
	case types.StatusSucceeded, types.StatusCancelled:
		return 0
	case types.StatusUnconfirmed:
		return 2
	default:
		return 1
	}
}

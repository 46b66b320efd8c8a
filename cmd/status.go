package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"miao-swap/pkg/confirm"
	"miao-swap/pkg/types"
)

var (
	watchStatus   bool
	watchInterval time.Duration
	watchAttempts int
)

var statusCmd = &cobra.Command{
	Use:   "status <signature>",
	Short: "Check the status of a submitted swap",
	Long: `Check whether a submitted transaction has been confirmed by the network.

Without --watch a single status read is made. With --watch the CLI polls at the
configured interval until the transaction is confirmed, fails on-chain or the
attempt budget runs out.

Examples:
  miao-swap status 5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW
  miao-swap status <signature> --watch
  miao-swap status <signature> --watch --interval 5s --attempts 60`,
	Args: cobra.ExactArgs(1),
	Run:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVarP(&watchStatus, "watch", "w", false, "Poll until the transaction reaches a final state")
	statusCmd.Flags().DurationVar(&watchInterval, "interval", 0, "Polling interval when watching (default from config)")
	statusCmd.Flags().IntVar(&watchAttempts, "attempts", 0, "Maximum polls when watching (default from config)")
}

func runStatus(cmd *cobra.Command, args []string) {
	signature := types.SubmissionID(strings.TrimSpace(args[0]))
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, logger, err := loadRuntime(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	opts := confirm.Options{MaxAttempts: 1, Interval: cfg.Confirm.Interval}
	if watchStatus {
		opts.MaxAttempts = cfg.Confirm.MaxAttempts
		if watchAttempts > 0 {
			opts.MaxAttempts = watchAttempts
		}
		if watchInterval > 0 {
			opts.Interval = watchInterval
		}
	}

	confirmer := confirm.New(confirm.NewRPCSource(cfg.RPC.URL), confirm.WithLogger(logger))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		if watchStatus {
			fmt.Printf("\nWatching transaction %s\n", color.CyanString(signature.String()))
			fmt.Printf("Checking every %s, up to %d times. Press Ctrl+C to stop.\n", opts.Interval, opts.MaxAttempts)
		}
		s.Suffix = " Checking transaction status..."
		s.Start()
	}

	st := confirmer.ConfirmWith(ctx, signature, opts)
	if !jsonOutput {
		s.Stop()
	}

	st.State = reportedState(st.State, watchStatus)

	if jsonOutput {
		printJSON(map[string]interface{}{
			"signature":    signature,
			"state":        st.State,
			"error_detail": st.ErrorDetail,
			"attempts":     st.Attempts,
			"explorer_url": cfg.Explorer.TxURL + signature.String(),
		})
	} else {
		displayStatus(st, signature, cfg.Explorer.TxURL)
	}

	if st.State == types.ConfirmationFailedOnChain {
		os.Exit(1)
	}
}

// reportedState maps a single non-terminal read to pending; only a
// watch that used its whole budget is reported as unknown.
func reportedState(state types.ConfirmationState, watched bool) types.ConfirmationState {
	if !watched && state == types.ConfirmationNotFoundBudget {
		return types.ConfirmationPending
	}
	return state
}

func displayStatus(st types.ConfirmationStatus, signature types.SubmissionID, explorer string) {
	state := st.State

	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                     TRANSACTION STATUS")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Signature:       %s\n", color.CyanString(signature.String()))
	fmt.Printf("  Status:          %s\n", coloredConfirmation(state))
	fmt.Printf("  Checks:          %d\n", st.Attempts)
	if st.ErrorDetail != "" {
		fmt.Printf("  Error:           %s\n", color.RedString(st.ErrorDetail))
	}
	if state == types.ConfirmationNotFoundBudget {
		fmt.Printf("  Note:            %s\n", "status unknown, the transaction may still land")
	}
	if explorer != "" {
		fmt.Printf("  Explorer:        %s\n", color.HiBlackString(explorer+signature.String()))
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

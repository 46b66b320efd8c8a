package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"miao-swap/pkg/metrics"
	"miao-swap/pkg/parser"
	"miao-swap/pkg/swap"
	"miao-swap/pkg/tokens"
	"miao-swap/pkg/types"
)

var watchSlippage int

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Interactively re-quote as you type",
	Long: `Read swap requests from standard input and keep a live quote.

Each line is either a full request ("1.5 SOL to MIAO") or a bare amount that
reuses the last pair. Requests are debounced (swap.debounce), so only the last
line typed within the delay is quoted; quotes overtaken by newer input are
dropped. Set metrics.addr to expose Prometheus metrics while watching.

Examples:
  miao-swap watch
  echo "1 SOL to USDC" | miao-swap watch`,
	Args: cobra.NoArgs,
	Run:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().IntVar(&watchSlippage, "slippage", -1, "Slippage tolerance in basis points (default from config)")
}

func runWatch(cmd *cobra.Command, args []string) {
	cfg, logger, err := loadRuntime(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	slip, err := slippage(watchSlippage, cfg)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	p, err := newPipeline(cfg, logger, nil)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		mu      sync.Mutex
		current *pair
	)
	p.orchestrator.Subscribe(func(t swap.Transition) {
		switch t.To {
		case types.StatusQuoteReady:
			snap := p.orchestrator.Snapshot()
			mu.Lock()
			current := current
			mu.Unlock()
			if current != nil && snap.Quote != nil && snap.Quote.ValidFor(current.params) {
				fmt.Printf("%s %s %s -> %s %s  (impact %s)\n",
					color.GreenString("quote"),
					tokens.FormatAmount(snap.Quote.InAmount(), current.input.Decimals), current.input.Symbol,
					tokens.FormatAmount(snap.Quote.OutAmount, current.output.Decimals), current.output.Symbol,
					coloredImpact(snap.Quote.PriceImpactPct))
			}
		case types.StatusIdle:
			if t.Err != nil {
				color.Red("no quote: %s", types.DetailOf(t.Err))
			}
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Metrics.Addr != "" {
		g.Go(func() error {
			logger.Info().Str("addr", cfg.Metrics.Addr).Msg("serving metrics")
			return metrics.Serve(gctx, cfg.Metrics.Addr)
		})
	}

	g.Go(func() error {
		defer stop()
		defer p.orchestrator.Close()

		fmt.Println("Enter '<amount> <token> to <token>' or just an amount. Ctrl+D to quit.")
		scanner := bufio.NewScanner(os.Stdin)
		lines := make(chan string)
		go func() {
			defer close(lines)
			for scanner.Scan() {
				select {
				case lines <- scanner.Text():
				case <-gctx.Done():
					return
				}
			}
		}()

		var last *parser.PairCommand
		for {
			var line string
			var ok bool
			select {
			case <-gctx.Done():
				return nil
			case line, ok = <-lines:
				if !ok {
					return nil
				}
			}

			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}

			next, err := nextCommand(line, last)
			if err != nil {
				color.Red("%v", err)
				continue
			}

			pr, err := p.resolvePair(gctx, next, slip)
			if err != nil {
				color.Red("%v", err)
				continue
			}
			last = next
			mu.Lock()
			current = pr
			mu.Unlock()

			if err := p.orchestrator.SetInputs(gctx, pr.params); err != nil {
				color.Red("%v", err)
			}
		}
	})

	if err := g.Wait(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

// nextCommand parses a full request, or a bare amount applied to the
// previous pair.
func nextCommand(line string, last *parser.PairCommand) (*parser.PairCommand, error) {
	if !strings.ContainsAny(line, " \t") {
		if last == nil {
			return nil, fmt.Errorf("enter a full request first, e.g. '1 SOL to USDC'")
		}
		next := *last
		next.Amount = line
		return &next, nil
	}
	return parser.ParsePairCommand(line)
}

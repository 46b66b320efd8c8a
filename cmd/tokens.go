package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"miao-swap/pkg/client"
	"miao-swap/pkg/tokens"
	"miao-swap/pkg/types"
)

var (
	filterSymbol string
	listRemote   bool
)

var tokensCmd = &cobra.Command{
	Use:     "tokens",
	Aliases: []string{"list-tokens", "ls"},
	Short:   "List known tokens",
	Long: `List the tokens the CLI can resolve by symbol.

The built-in registry plus the assets from your config file are always shown.
With --remote the Solana tokens of the 1Click token list are fetched as well;
those can be used by mint address and are added to the registry on first use.

Examples:
  miao-swap tokens
  miao-swap tokens --symbol USDC
  miao-swap tokens --remote`,
	Run: runListTokens,
}

func init() {
	rootCmd.AddCommand(tokensCmd)

	tokensCmd.Flags().StringVar(&filterSymbol, "symbol", "", "Filter by token symbol")
	tokensCmd.Flags().BoolVar(&listRemote, "remote", false, "Include the 1Click Solana token list")
}

func runListTokens(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, _, err := loadRuntime(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	registry, err := tokens.NewRegistry(cfg.Assets...)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	grouped := map[string][]types.AssetDescriptor{
		"registry": registry.List(),
	}

	if listRemote {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		if !jsonOutput {
			s.Suffix = " Fetching supported tokens..."
			s.Start()
		}

		apiClient := client.NewOneClickClient(cfg.OneClick.BaseURL, cfg.OneClick.JWTToken)
		remote, err := apiClient.ListAssets(ctx)
		if !jsonOutput {
			s.Stop()
		}
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		grouped["1click"] = remote
	}

	// Apply filters
	if filterSymbol != "" {
		for source, assets := range grouped {
			var temp []types.AssetDescriptor
			for _, a := range assets {
				if strings.Contains(strings.ToUpper(a.Symbol), strings.ToUpper(filterSymbol)) {
					temp = append(temp, a)
				}
			}
			grouped[source] = temp
		}
	}

	// Output
	if jsonOutput {
		printJSON(grouped)
	} else {
		displayTokens(grouped)
	}
}

func displayTokens(grouped map[string][]types.AssetDescriptor) {
	total := 0
	for _, assets := range grouped {
		total += len(assets)
	}
	if total == 0 {
		fmt.Println("\nNo tokens found matching the criteria.")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	color.Green("                            SUPPORTED TOKENS")
	fmt.Println(strings.Repeat("=", 90))

	sources := make([]string, 0, len(grouped))
	for source := range grouped {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	for _, source := range sources {
		assets := grouped[source]
		if len(assets) == 0 {
			continue
		}
		color.Cyan("\n%s", strings.ToUpper(source))
		fmt.Println(strings.Repeat("-", 90))

		for _, a := range assets {
			fmt.Printf("  %-10s  %2d decimals  %s\n",
				color.YellowString(a.Symbol),
				a.Decimals,
				color.HiBlackString(a.ID))
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	fmt.Printf("\nTotal: %d tokens\n\n", total)
}

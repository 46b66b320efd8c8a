package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"

	"miao-swap/pkg/tokens"
	"miao-swap/pkg/types"
)

func printJSON(v interface{}) {
	jsonData, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(jsonData))
}

func quoteOutput(pr *pair, q *types.Quote) map[string]interface{} {
	return map[string]interface{}{
		"input_asset":      pr.input.ID,
		"input_symbol":     pr.input.Symbol,
		"in_amount":        q.InAmount(),
		"in_formatted":     tokens.FormatAmount(q.InAmount(), pr.input.Decimals),
		"output_asset":     pr.output.ID,
		"output_symbol":    pr.output.Symbol,
		"out_amount":       q.OutAmount,
		"out_formatted":    tokens.FormatAmount(q.OutAmount, pr.output.Decimals),
		"slippage_bps":     q.Params.SlippageBps,
		"price_impact_pct": q.PriceImpactPct,
		"status":           "quote_ready",
	}
}

func displayQuote(pr *pair, q *types.Quote) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                          SWAP QUOTE")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  You send:        %s %s\n",
		color.YellowString(tokens.FormatAmount(q.InAmount(), pr.input.Decimals)),
		color.CyanString(pr.input.Symbol))
	fmt.Printf("  You receive:     %s %s\n",
		color.GreenString(tokens.FormatAmount(q.OutAmount, pr.output.Decimals)),
		color.CyanString(pr.output.Symbol))
	fmt.Printf("  Slippage:        %s\n", formatBps(q.Params.SlippageBps))
	fmt.Printf("  Price Impact:    %s\n", coloredImpact(q.PriceImpactPct))
	fmt.Printf("  Route:           %s\n", color.HiBlackString(pr.input.ID+" -> "+pr.output.ID))

	fmt.Println("\n" + strings.Repeat("=", 70))
}

func formatBps(bps uint16) string {
	return fmt.Sprintf("%d.%02d%%", bps/100, bps%100)
}

func coloredImpact(pct string) string {
	if pct == "" {
		pct = "n/a"
	}
	switch tokens.PriceImpactSeverity(pct) {
	case "none", "low":
		return color.GreenString(pct + "%")
	case "moderate":
		return color.YellowString(pct + "%")
	case "high", "extreme":
		return color.RedString(pct + "% (" + tokens.PriceImpactSeverity(pct) + ")")
	default:
		return pct
	}
}

func displayResult(res types.Result) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	fmt.Printf("  Status:          %s\n", coloredStatus(res.Status))
	if res.SubmissionID != "" {
		fmt.Printf("  Signature:       %s\n", color.HiBlackString(res.SubmissionID.String()))
	}
	if res.ErrorMessage != "" {
		fmt.Printf("  Details:         %s\n", res.ErrorMessage)
	}
	if res.ExplorerURL != "" {
		fmt.Printf("  Explorer:        %s\n", color.CyanString(res.ExplorerURL))
	}
	fmt.Println(strings.Repeat("=", 70) + "\n")
}

func coloredStatus(status types.SwapStatus) string {
	s := strings.ToUpper(string(status))

	switch status {
	case types.StatusSucceeded, types.StatusQuoteReady:
		return color.GreenString(s)
	case types.StatusQuoting, types.StatusSigning, types.StatusSubmitted, types.StatusConfirming, types.StatusUnconfirmed:
		return color.YellowString(s)
	case types.StatusFailedOnChain, types.StatusErrored:
		return color.RedString(s)
	case types.StatusCancelled:
		return color.MagentaString(s)
	default:
		return s
	}
}

func coloredConfirmation(state types.ConfirmationState) string {
	s := strings.ToUpper(string(state))

	switch state {
	case types.ConfirmationConfirmed:
		return color.GreenString(s)
	case types.ConfirmationPending, types.ConfirmationNotFoundBudget:
		return color.YellowString(s)
	case types.ConfirmationFailedOnChain:
		return color.RedString(s)
	default:
		return s
	}
}

package parser

import (
	"fmt"
	"regexp"
	"strings"
)

// PairCommand is a parsed "<amount> <token> to <token>" request. Amount
// stays a decimal string until the input asset's decimals are known.
type PairCommand struct {
	Amount string
	Input  string
	Output string
}

// <amount> <input> TO <output>, optionally prefixed by SWAP. Tokens are
// symbols or base58 mint addresses, so case is preserved for them.
var pairPattern = regexp.MustCompile(`^(?i:swap\s+)?(\d+(?:\.\d+)?|\.\d+)\s+(\S+)\s+(?i:to)\s+(\S+)$`)

// maxSymbolLen separates ticker symbols from mint addresses.
const maxSymbolLen = 12

// ParsePairCommand parses a natural language swap command
// Examples:
//   - "swap 1 SOL to USDC"
//   - "1.5 sol to MIAO"
//   - "100 USDC to So11111111111111111111111111111111111111112"
func ParsePairCommand(command string) (*PairCommand, error) {
	command = strings.Join(strings.Fields(command), " ")

	matches := pairPattern.FindStringSubmatch(command)
	if matches == nil {
		return nil, fmt.Errorf("invalid swap command format. Expected: '<amount> <token> to <token>' (e.g., '1 SOL to USDC')")
	}

	cmd := &PairCommand{
		Amount: matches[1],
		Input:  NormalizeTokenSymbol(matches[2]),
		Output: NormalizeTokenSymbol(matches[3]),
	}
	if err := ValidatePairCommand(cmd); err != nil {
		return nil, err
	}
	return cmd, nil
}

// ParseArgs parses command-line arguments in the form <amount> <token> to <token>.
func ParseArgs(args []string) (*PairCommand, error) {
	return ParsePairCommand(strings.Join(args, " "))
}

// ValidatePairCommand validates that a command has all required fields
func ValidatePairCommand(cmd *PairCommand) error {
	if cmd.Amount == "" {
		return fmt.Errorf("amount is required")
	}
	if cmd.Input == "" {
		return fmt.Errorf("source token is required")
	}
	if cmd.Output == "" {
		return fmt.Errorf("destination token is required")
	}
	if cmd.Input == cmd.Output {
		return fmt.Errorf("source and destination token are the same (%s)", cmd.Input)
	}
	return nil
}

// NormalizeTokenSymbol upper-cases ticker symbols and resolves aliases.
// Mint addresses are returned unchanged.
func NormalizeTokenSymbol(token string) string {
	token = strings.TrimSpace(token)
	if len(token) > maxSymbolLen {
		return token
	}
	symbol := strings.ToUpper(token)

	// Handle common aliases
	aliases := map[string]string{
		"WSOL": "SOL",
	}

	if normalized, exists := aliases[symbol]; exists {
		return normalized
	}

	return symbol
}

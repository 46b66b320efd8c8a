package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePairCommand(t *testing.T) {
	tests := []struct {
		input string
		want  PairCommand
	}{
		{"swap 1 SOL to USDC", PairCommand{"1", "SOL", "USDC"}},
		{"1.5 sol TO miao", PairCommand{"1.5", "SOL", "MIAO"}},
		{"  0.25   wsol   to  usdc ", PairCommand{"0.25", "SOL", "USDC"}},
		{".5 SOL to USDC", PairCommand{".5", "SOL", "USDC"}},
		{
			"100 USDC to So11111111111111111111111111111111111111112",
			PairCommand{"100", "USDC", "So11111111111111111111111111111111111111112"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePairCommand(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestParsePairCommandErrors(t *testing.T) {
	for _, input := range []string{
		"",
		"SOL to USDC",
		"1 SOL",
		"1 SOL into USDC",
		"-1 SOL to USDC",
		"1. SOL to USDC",
		"1 SOL to sol",
	} {
		_, err := ParsePairCommand(input)
		assert.Error(t, err, "input %q", input)
	}
}

func TestParseArgs(t *testing.T) {
	got, err := ParseArgs([]string{"2", "SOL", "to", "MIAO"})
	require.NoError(t, err)
	assert.Equal(t, PairCommand{"2", "SOL", "MIAO"}, *got)
}

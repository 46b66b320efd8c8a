package tokens

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"miao-swap/pkg/types"
)

var miao = types.AssetDescriptor{
	ID:       "MiaoTestMint1111111111111111111111111111111",
	Symbol:   "MIAO",
	Name:     "Miao",
	Decimals: 6,
}

func TestRegistryDefaultsAndSymbols(t *testing.T) {
	r, err := NewRegistry(miao)
	require.NoError(t, err)

	sol, ok := r.BySymbol("sol")
	require.True(t, ok)
	assert.Equal(t, WrappedSOLMint, sol.ID)
	assert.Equal(t, uint8(9), sol.Decimals)

	got, err := r.LookupAsset(context.Background(), miao.ID)
	require.NoError(t, err)
	assert.Equal(t, miao, got)

	assert.Len(t, r.List(), 3)
}

func TestRegistryRejectsIdentifierReuse(t *testing.T) {
	r, err := NewRegistry(miao)
	require.NoError(t, err)

	require.NoError(t, r.Register(miao), "identical re-registration is allowed")

	reused := miao
	reused.Decimals = 9
	assert.Error(t, r.Register(reused))

	_, err = NewRegistry(types.AssetDescriptor{ID: WrappedSOLMint, Symbol: "FAKE", Decimals: 2})
	assert.Error(t, err)
}

func TestRegistryLookupUnknown(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	_, err = r.LookupAsset(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrAssetNotFound)
}

type stubLookup struct {
	assets map[string]types.AssetDescriptor
	calls  int
}

func (s *stubLookup) LookupAsset(_ context.Context, id string) (types.AssetDescriptor, error) {
	s.calls++
	a, ok := s.assets[id]
	if !ok {
		return types.AssetDescriptor{}, ErrAssetNotFound
	}
	return a, nil
}

func TestResolverFallsBackAndCaches(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)
	lookup := &stubLookup{assets: map[string]types.AssetDescriptor{miao.ID: miao}}
	res := NewResolver(r, lookup, zerolog.Nop())

	got, err := res.Resolve(context.Background(), miao.ID)
	require.NoError(t, err)
	assert.Equal(t, miao, got)

	// second resolution by symbol is served by the registry
	got, err = res.Resolve(context.Background(), "miao")
	require.NoError(t, err)
	assert.Equal(t, miao, got)
	assert.Equal(t, 1, lookup.calls)

	_, err = res.Resolve(context.Background(), "unknown")
	assert.True(t, errors.Is(err, ErrAssetNotFound))
}

func TestToSmallestUnit(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		decimals uint8
		want     uint64
		wantErr  bool
	}{
		{name: "one SOL", amount: "1", decimals: 9, want: 1_000_000_000},
		{name: "fractional", amount: "1.5", decimals: 9, want: 1_500_000_000},
		{name: "exact precision", amount: "0.000001", decimals: 6, want: 1},
		{name: "too precise", amount: "0.0000001", decimals: 6, wantErr: true},
		{name: "zero", amount: "0", decimals: 6, wantErr: true},
		{name: "negative", amount: "-1", decimals: 6, wantErr: true},
		{name: "garbage", amount: "abc", decimals: 6, wantErr: true},
		{name: "overflow", amount: "100000000000", decimals: 9, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToSmallestUnit(tt.amount, tt.decimals)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "1", FormatAmount(1_000_000_000, 9))
	assert.Equal(t, "0.3", FormatAmount(300_000, 6))
	assert.Equal(t, "0", FormatAmount(0, 6))
	assert.Equal(t, "12345", FormatAmount(12345, 0))
}

func TestPriceImpactSeverity(t *testing.T) {
	assert.Equal(t, "none", PriceImpactSeverity("0.05"))
	assert.Equal(t, "low", PriceImpactSeverity("0.5"))
	assert.Equal(t, "moderate", PriceImpactSeverity("2"))
	assert.Equal(t, "high", PriceImpactSeverity("4.2"))
	assert.Equal(t, "extreme", PriceImpactSeverity("12"))
	assert.Equal(t, "unknown", PriceImpactSeverity(""))
}

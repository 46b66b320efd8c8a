package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"miao-swap/pkg/tokens"
)

var sampleListings = []tokenListing{
	{AssetID: "nep141:sol.omft.near", Symbol: "SOL", Blockchain: "sol", Decimals: 9},
	{AssetID: "nep141:sol-5ce3bf3a31af18be40ba30f721101b4341690186.omft.near", Symbol: "USDC", Blockchain: "sol", ContractAddress: tokens.USDCMint, Decimals: 6},
	{AssetID: "nep141:miao.omft.near", Symbol: "miao", Blockchain: "sol", ContractAddress: miaoMint, Decimals: 6},
	{AssetID: "nep141:eth-0xa0b8.omft.near", Symbol: "USDC", Blockchain: "eth", ContractAddress: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", Decimals: 6},
	{AssetID: "nep141:btc.omft.near", Symbol: "BTC", Blockchain: "btc", Decimals: 8},
}

func TestFindAsset(t *testing.T) {
	a, err := findAsset(sampleListings, SolanaChain, miaoMint)
	require.NoError(t, err)
	assert.Equal(t, miaoMint, a.ID)
	assert.Equal(t, "MIAO", a.Symbol)
	assert.Equal(t, uint8(6), a.Decimals)

	sol, err := findAsset(sampleListings, SolanaChain, tokens.WrappedSOLMint)
	require.NoError(t, err)
	assert.Equal(t, uint8(9), sol.Decimals)

	_, err = findAsset(sampleListings, SolanaChain, "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")
	assert.ErrorIs(t, err, tokens.ErrAssetNotFound)
}

func TestSolanaAssets(t *testing.T) {
	assets := solanaAssets(sampleListings, SolanaChain)
	require.Len(t, assets, 3)

	ids := make([]string, 0, len(assets))
	for _, a := range assets {
		ids = append(ids, a.ID)
	}
	assert.ElementsMatch(t, []string{tokens.WrappedSOLMint, tokens.USDCMint, miaoMint}, ids)
}

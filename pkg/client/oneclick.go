package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	oneclick "github.com/defuse-protocol/one-click-sdk-go"

	"miao-swap/pkg/tokens"
	"miao-swap/pkg/types"
)

// SolanaChain is the blockchain label the 1Click token list uses for Solana.
const SolanaChain = "sol"

// OneClickClient wraps the 1Click SDK token list. It is used as the
// just-in-time asset lookup for identifiers missing from the registry.
type OneClickClient struct {
	client   *oneclick.APIClient
	jwtToken string
	chain    string
}

// NewOneClickClient creates a new 1Click API client. An empty baseURL keeps
// the SDK default. jwtToken may be empty; the token list is public.
func NewOneClickClient(baseURL, jwtToken string) *OneClickClient {
	config := oneclick.NewConfiguration()
	if baseURL != "" {
		config.Servers = oneclick.ServerConfigurations{{URL: baseURL}}
	}

	return &OneClickClient{
		client:   oneclick.NewAPIClient(config),
		jwtToken: jwtToken,
		chain:    SolanaChain,
	}
}

func (c *OneClickClient) authContext(ctx context.Context) context.Context {
	if c.jwtToken == "" {
		return ctx
	}
	return context.WithValue(ctx, oneclick.ContextAccessToken, c.jwtToken)
}

// GetSupportedTokens retrieves all supported tokens
func (c *OneClickClient) GetSupportedTokens(ctx context.Context) ([]oneclick.TokenResponse, error) {
	resp, httpResp, err := c.client.OneClickAPI.GetTokens(c.authContext(ctx)).Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get tokens: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status code %d", httpResp.StatusCode)
	}

	return resp, nil
}

// ListAssets returns the Solana assets of the token list as descriptors.
func (c *OneClickClient) ListAssets(ctx context.Context) ([]types.AssetDescriptor, error) {
	list, err := c.GetSupportedTokens(ctx)
	if err != nil {
		return nil, err
	}
	return solanaAssets(listings(list), c.chain), nil
}

// LookupAsset implements tokens.Lookup by mint address.
func (c *OneClickClient) LookupAsset(ctx context.Context, id string) (types.AssetDescriptor, error) {
	list, err := c.GetSupportedTokens(ctx)
	if err != nil {
		return types.AssetDescriptor{}, err
	}
	return findAsset(listings(list), c.chain, id)
}

// tokenListing is the part of a token list entry we rely on.
type tokenListing struct {
	AssetID         string
	Symbol          string
	Blockchain      string
	ContractAddress string
	Decimals        float64
}

func listings(list []oneclick.TokenResponse) []tokenListing {
	out := make([]tokenListing, 0, len(list))
	for _, t := range list {
		out = append(out, tokenListing{
			AssetID:         t.GetAssetId(),
			Symbol:          t.GetSymbol(),
			Blockchain:      t.GetBlockchain(),
			ContractAddress: t.GetContractAddress(),
			Decimals:        float64(t.GetDecimals()),
		})
	}
	return out
}

// mint returns the on-chain identifier of a listing. Native SOL has no
// contract address and trades as wrapped SOL.
func (t tokenListing) mint() string {
	if t.ContractAddress == "" && strings.EqualFold(t.Symbol, "SOL") {
		return tokens.WrappedSOLMint
	}
	return t.ContractAddress
}

func (t tokenListing) descriptor() types.AssetDescriptor {
	return types.AssetDescriptor{
		ID:       t.mint(),
		Symbol:   strings.ToUpper(t.Symbol),
		Name:     t.Symbol,
		Decimals: uint8(t.Decimals),
	}
}

func solanaAssets(list []tokenListing, chain string) []types.AssetDescriptor {
	out := make([]types.AssetDescriptor, 0)
	for _, t := range list {
		if !strings.EqualFold(t.Blockchain, chain) || t.mint() == "" {
			continue
		}
		out = append(out, t.descriptor())
	}
	return out
}

func findAsset(list []tokenListing, chain, id string) (types.AssetDescriptor, error) {
	for _, t := range list {
		if strings.EqualFold(t.Blockchain, chain) && t.mint() == id {
			return t.descriptor(), nil
		}
	}
	return types.AssetDescriptor{}, fmt.Errorf("%w: %s on %s", tokens.ErrAssetNotFound, id, chain)
}

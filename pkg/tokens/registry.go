package tokens

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"miao-swap/pkg/types"
)

const (
	WrappedSOLMint = "So11111111111111111111111111111111111111112"
	USDCMint       = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

// ErrAssetNotFound is returned when neither the registry nor the fallback
// lookup knows an identifier or symbol.
var ErrAssetNotFound = errors.New("asset not found")

// DefaultAssets are always present in a new registry.
var DefaultAssets = []types.AssetDescriptor{
	{ID: WrappedSOLMint, Symbol: "SOL", Name: "Wrapped SOL", Decimals: 9},
	{ID: USDCMint, Symbol: "USDC", Name: "USD Coin", Decimals: 6},
}

// Lookup resolves an asset identifier to its descriptor.
type Lookup interface {
	LookupAsset(ctx context.Context, id string) (types.AssetDescriptor, error)
}

// Registry is the static asset registry. Identifiers are never reused: once
// registered, an identifier can only be registered again with identical
// attributes.
type Registry struct {
	mu       sync.RWMutex
	byID     map[string]types.AssetDescriptor
	bySymbol map[string]string
}

// NewRegistry creates a registry seeded with DefaultAssets plus extra.
func NewRegistry(extra ...types.AssetDescriptor) (*Registry, error) {
	r := &Registry{
		byID:     make(map[string]types.AssetDescriptor),
		bySymbol: make(map[string]string),
	}
	for _, a := range append(append([]types.AssetDescriptor{}, DefaultAssets...), extra...) {
		if err := r.Register(a); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds an asset to the registry
func (r *Registry) Register(a types.AssetDescriptor) error {
	if a.ID == "" {
		return fmt.Errorf("asset id is required")
	}
	if a.Symbol == "" {
		return fmt.Errorf("asset %s: symbol is required", a.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byID[a.ID]; ok {
		if existing != a {
			return fmt.Errorf("asset %s already registered as %s with %d decimals", a.ID, existing.Symbol, existing.Decimals)
		}
		return nil
	}

	r.byID[a.ID] = a
	symbol := strings.ToUpper(a.Symbol)
	if _, taken := r.bySymbol[symbol]; !taken {
		r.bySymbol[symbol] = a.ID
	}
	return nil
}

// LookupAsset implements Lookup against the static entries only.
func (r *Registry) LookupAsset(_ context.Context, id string) (types.AssetDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return types.AssetDescriptor{}, fmt.Errorf("%w: %s", ErrAssetNotFound, id)
	}
	return a, nil
}

// BySymbol finds a registered asset by its symbol (case-insensitive).
func (r *Registry) BySymbol(symbol string) (types.AssetDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.bySymbol[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return types.AssetDescriptor{}, false
	}
	return r.byID[id], true
}

// List returns all registered assets sorted by symbol.
func (r *Registry) List() []types.AssetDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.AssetDescriptor, 0, len(r.byID))
	for _, a := range r.byID {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Symbol == out[j].Symbol {
			return out[i].ID < out[j].ID
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

package tokens

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"miao-swap/pkg/types"
)

// Resolver resolves symbols or identifiers against the static registry and
// falls back to a just-in-time lookup for unknown identifiers. Descriptors
// found by the fallback are added to the registry.
type Resolver struct {
	registry *Registry
	fallback Lookup
	logger   zerolog.Logger
}

// NewResolver creates a resolver. fallback may be nil.
func NewResolver(registry *Registry, fallback Lookup, logger zerolog.Logger) *Resolver {
	return &Resolver{
		registry: registry,
		fallback: fallback,
		logger:   logger.With().Str("component", "resolver").Logger(),
	}
}

// Resolve accepts either a registered symbol or an asset identifier.
func (r *Resolver) Resolve(ctx context.Context, symbolOrID string) (types.AssetDescriptor, error) {
	if a, ok := r.registry.BySymbol(symbolOrID); ok {
		return a, nil
	}
	return r.LookupAsset(ctx, symbolOrID)
}

// LookupAsset resolves an identifier, consulting the fallback when the
// registry does not know it.
func (r *Resolver) LookupAsset(ctx context.Context, id string) (types.AssetDescriptor, error) {
	a, err := r.registry.LookupAsset(ctx, id)
	if err == nil {
		return a, nil
	}
	if r.fallback == nil {
		return types.AssetDescriptor{}, err
	}

	r.logger.Debug().Str("asset", id).Msg("asset not in registry, querying lookup")
	a, err = r.fallback.LookupAsset(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAssetNotFound) {
			return types.AssetDescriptor{}, err
		}
		return types.AssetDescriptor{}, fmt.Errorf("lookup asset %s: %w", id, err)
	}

	if err := r.registry.Register(a); err != nil {
		return types.AssetDescriptor{}, err
	}
	return a, nil
}

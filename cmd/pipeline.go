package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"miao-swap/config"
	"miao-swap/pkg/client"
	"miao-swap/pkg/confirm"
	"miao-swap/pkg/parser"
	"miao-swap/pkg/signer"
	"miao-swap/pkg/swap"
	"miao-swap/pkg/tokens"
	"miao-swap/pkg/types"
)

// pipeline holds the components one command needs.
type pipeline struct {
	cfg          *config.Config
	logger       zerolog.Logger
	registry     *tokens.Registry
	resolver     *tokens.Resolver
	oneClick     *client.OneClickClient
	aggregator   *client.AggregatorClient
	confirmer    *confirm.Confirmer
	gateway      signer.Gateway
	orchestrator *swap.Orchestrator
}

// pair is a resolved swap request.
type pair struct {
	input  types.AssetDescriptor
	output types.AssetDescriptor
	params types.QuoteParams
}

func newPipeline(cfg *config.Config, logger zerolog.Logger, approver signer.Approver) (*pipeline, error) {
	registry, err := tokens.NewRegistry(cfg.Assets...)
	if err != nil {
		return nil, fmt.Errorf("invalid asset registry: %w", err)
	}

	oneClick := client.NewOneClickClient(cfg.OneClick.BaseURL, cfg.OneClick.JWTToken)
	aggregator := client.NewAggregatorClient(cfg.Aggregator.BaseURL,
		client.WithTimeout(cfg.Aggregator.Timeout),
		client.WithLogger(logger),
	)
	confirmer := confirm.New(confirm.NewRPCSource(cfg.RPC.URL),
		confirm.WithOptions(confirm.Options{MaxAttempts: cfg.Confirm.MaxAttempts, Interval: cfg.Confirm.Interval}),
		confirm.WithLogger(logger),
	)

	gateway := signer.Select(cfg.Wallet, cfg.RPC, logger)
	if approver != nil {
		gateway = &signer.Approving{Gateway: gateway, Approver: approver}
	}

	p := &pipeline{
		cfg:        cfg,
		logger:     logger,
		registry:   registry,
		resolver:   tokens.NewResolver(registry, oneClick, logger),
		oneClick:   oneClick,
		aggregator: aggregator,
		confirmer:  confirmer,
		gateway:    gateway,
	}
	p.orchestrator = swap.New(swap.Config{
		Quotes:      aggregator,
		Builder:     aggregator,
		Signer:      gateway,
		Confirmer:   confirmer,
		ExplorerURL: cfg.Explorer.TxURL,
		Debounce:    cfg.Swap.Debounce,
		Logger:      logger,
	})
	return p, nil
}

// payer returns the wallet address, or "" when no wallet is configured.
func (p *pipeline) payer() string {
	if pk, ok := p.gateway.(signer.PublicKeyer); ok {
		return pk.PublicKey()
	}
	return ""
}

// resolvePair looks up both assets concurrently and converts the amount to
// smallest units of the input asset.
func (p *pipeline) resolvePair(ctx context.Context, cmd *parser.PairCommand, slippageBps uint16) (*pair, error) {
	var in, out types.AssetDescriptor

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := p.resolver.Resolve(gctx, cmd.Input)
		if err != nil {
			return fmt.Errorf("source token %s: %w", cmd.Input, err)
		}
		in = a
		return nil
	})
	g.Go(func() error {
		a, err := p.resolver.Resolve(gctx, cmd.Output)
		if err != nil {
			return fmt.Errorf("destination token %s: %w", cmd.Output, err)
		}
		out = a
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	amount, err := tokens.ToSmallestUnit(cmd.Amount, in.Decimals)
	if err != nil {
		return nil, fmt.Errorf("amount %s %s: %w", cmd.Amount, in.Symbol, err)
	}

	return &pair{
		input:  in,
		output: out,
		params: types.QuoteParams{
			InputAsset:  in.ID,
			OutputAsset: out.ID,
			Amount:      amount,
			SlippageBps: slippageBps,
		},
	}, nil
}

// slippage returns the --slippage flag when set, else the configured default.
func slippage(flagValue int, cfg *config.Config) (uint16, error) {
	if flagValue < 0 {
		return cfg.Swap.SlippageBps, nil
	}
	if flagValue > client.MaxSlippageBps {
		return 0, fmt.Errorf("slippage must be between 0 and %d bps", client.MaxSlippageBps)
	}
	return uint16(flagValue), nil
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"miao-swap/pkg/types"
)

// Config holds the application configuration
type Config struct {
	Aggregator AggregatorConfig
	RPC        RPCConfig
	Wallet     WalletConfig
	Swap       SwapConfig
	Confirm    ConfirmConfig
	Explorer   ExplorerConfig
	OneClick   OneClickConfig
	Assets     []types.AssetDescriptor
	Log        LogConfig
	Metrics    MetricsConfig
}

// AggregatorConfig points at the quote and swap-build endpoints.
type AggregatorConfig struct {
	BaseURL string
	Timeout time.Duration
}

// RPCConfig holds Solana JSON-RPC settings used for submission and status polling.
type RPCConfig struct {
	URL           string
	Commitment    string
	SkipPreflight bool
}

// WalletConfig selects the signer implementation.
type WalletConfig struct {
	Brand      string
	PrivateKey string
}

type SwapConfig struct {
	SlippageBps uint16
	Debounce    time.Duration
}

// ConfirmConfig bounds the confirmation poll loop.
type ConfirmConfig struct {
	Interval    time.Duration
	MaxAttempts int
}

type ExplorerConfig struct {
	TxURL string
}

// OneClickConfig is used for just-in-time token lookups.
type OneClickConfig struct {
	BaseURL  string
	JWTToken string
}

type LogConfig struct {
	Level string
}

type MetricsConfig struct {
	Addr string
}

const (
	maxSlippageBps = 10000
	envPrefix      = "MIAO_SWAP"
)

var globalConfig *Config

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("aggregator.base_url", "https://quote-api.jup.ag/v6")
	v.SetDefault("aggregator.timeout", 10*time.Second)
	v.SetDefault("rpc.url", "https://api.mainnet-beta.solana.com")
	v.SetDefault("rpc.commitment", "confirmed")
	v.SetDefault("rpc.skip_preflight", false)
	v.SetDefault("wallet.brand", "keypair")
	v.SetDefault("swap.slippage_bps", 100)
	v.SetDefault("swap.debounce", 500*time.Millisecond)
	v.SetDefault("confirm.interval", 2*time.Second)
	v.SetDefault("confirm.max_attempts", 30)
	v.SetDefault("explorer.tx_url", "https://solscan.io/tx/")
	v.SetDefault("oneclick.base_url", "https://1click.chaindefuser.com")
	v.SetDefault("log.level", "info")
}

// Load reads configuration from environment variables and config file.
// An empty path searches for .miao-swap.yaml in $HOME and the working directory.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(".miao-swap")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME")
		v.AddConfigPath(".")
	}

	SetDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg, err := FromViper(v)
	if err != nil {
		return nil, err
	}

	globalConfig = cfg
	return cfg, nil
}

// FromViper builds and validates a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Aggregator: AggregatorConfig{
			BaseURL: v.GetString("aggregator.base_url"),
			Timeout: v.GetDuration("aggregator.timeout"),
		},
		RPC: RPCConfig{
			URL:           v.GetString("rpc.url"),
			Commitment:    v.GetString("rpc.commitment"),
			SkipPreflight: v.GetBool("rpc.skip_preflight"),
		},
		Wallet: WalletConfig{
			Brand:      strings.ToLower(v.GetString("wallet.brand")),
			PrivateKey: v.GetString("wallet.private_key"),
		},
		Confirm: ConfirmConfig{
			Interval:    v.GetDuration("confirm.interval"),
			MaxAttempts: v.GetInt("confirm.max_attempts"),
		},
		Explorer: ExplorerConfig{
			TxURL: v.GetString("explorer.tx_url"),
		},
		OneClick: OneClickConfig{
			BaseURL:  v.GetString("oneclick.base_url"),
			JWTToken: v.GetString("oneclick.jwt_token"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
		},
		Metrics: MetricsConfig{
			Addr: v.GetString("metrics.addr"),
		},
	}

	slippage := v.GetInt("swap.slippage_bps")
	if slippage < 0 || slippage > maxSlippageBps {
		return nil, fmt.Errorf("swap.slippage_bps must be between 0 and %d, got %d", maxSlippageBps, slippage)
	}
	cfg.Swap = SwapConfig{
		SlippageBps: uint16(slippage),
		Debounce:    v.GetDuration("swap.debounce"),
	}

	if err := v.UnmarshalKey("assets", &cfg.Assets); err != nil {
		return nil, fmt.Errorf("invalid assets list: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Aggregator.BaseURL == "" {
		return fmt.Errorf("aggregator.base_url is required")
	}
	if c.Aggregator.Timeout <= 0 {
		return fmt.Errorf("aggregator.timeout must be positive")
	}
	if c.Swap.SlippageBps > maxSlippageBps {
		return fmt.Errorf("swap.slippage_bps must be at most %d", maxSlippageBps)
	}
	if c.Swap.Debounce < 0 {
		return fmt.Errorf("swap.debounce must not be negative")
	}
	if c.Confirm.Interval <= 0 {
		return fmt.Errorf("confirm.interval must be positive")
	}
	if c.Confirm.MaxAttempts <= 0 {
		return fmt.Errorf("confirm.max_attempts must be positive")
	}
	switch c.RPC.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		return fmt.Errorf("rpc.commitment must be processed, confirmed or finalized, got %q", c.RPC.Commitment)
	}
	for i, a := range c.Assets {
		if a.ID == "" || a.Symbol == "" {
			return fmt.Errorf("assets[%d]: id and symbol are required", i)
		}
	}
	return nil
}

// Get returns the global configuration, loading it on first use.
func Get() (*Config, error) {
	if globalConfig == nil {
		return Load("")
	}
	return globalConfig, nil
}

// Set updates the global configuration
func Set(cfg *Config) {
	globalConfig = cfg
}

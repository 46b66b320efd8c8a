package signer

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"miao-swap/config"
	"miao-swap/pkg/types"
)

// Wallet brands understood by Select.
const (
	BrandKeypair = "keypair"
	BrandNone    = "none"
)

// Gateway obtains a signature for a payload and broadcasts it. It never
// waits for confirmation.
type Gateway interface {
	SignAndSubmit(ctx context.Context, payload types.SignablePayload) (types.SubmissionID, error)
}

// Unavailable is the gateway used when no wallet is connected.
type Unavailable struct {
	Reason string
}

func (u Unavailable) SignAndSubmit(context.Context, types.SignablePayload) (types.SubmissionID, error) {
	reason := u.Reason
	if reason == "" {
		reason = "no wallet connected"
	}
	return "", types.NewError(types.KindNoSignerAvailable, nil, "%s", reason)
}

// Select picks the gateway for the configured wallet brand. It never fails:
// a brand that cannot be set up yields an Unavailable gateway so the
// orchestrator surfaces NoSignerAvailable when the user tries to swap.
func Select(wallet config.WalletConfig, rpcCfg config.RPCConfig, logger zerolog.Logger) Gateway {
	brand := strings.ToLower(wallet.Brand)
	switch brand {
	case BrandKeypair:
		gw, err := NewKeypairGateway(wallet.PrivateKey, rpcCfg, WithLogger(logger))
		if err != nil {
			logger.Warn().Err(err).Str("brand", brand).Msg("wallet unavailable")
			return Unavailable{Reason: err.Error()}
		}
		return gw
	case BrandNone, "":
		return Unavailable{}
	default:
		logger.Warn().Str("brand", brand).Msg("unsupported wallet brand")
		return Unavailable{Reason: "unsupported wallet brand: " + brand}
	}
}

// PublicKeyer is implemented by gateways that know their payer address.
type PublicKeyer interface {
	PublicKey() string
}

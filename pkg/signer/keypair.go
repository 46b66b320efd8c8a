package signer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/rs/zerolog"

	"miao-swap/config"
	"miao-swap/pkg/types"
)

// Sender broadcasts a signed transaction. *rpc.Client satisfies it.
type Sender interface {
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
}

// KeypairGateway signs with a local base58 secret key and submits through
// Solana JSON-RPC.
type KeypairGateway struct {
	config     config.RPCConfig
	client     Sender
	privateKey solana.PrivateKey
	publicKey  solana.PublicKey
	logger     zerolog.Logger
}

// KeypairOption configures a KeypairGateway.
type KeypairOption func(*KeypairGateway)

// WithSender replaces the RPC client used for submission.
func WithSender(s Sender) KeypairOption {
	return func(g *KeypairGateway) {
		g.client = s
	}
}

func WithLogger(l zerolog.Logger) KeypairOption {
	return func(g *KeypairGateway) {
		g.logger = l
	}
}

// NewKeypairGateway creates a gateway for the given base58 secret key.
func NewKeypairGateway(secret string, cfg config.RPCConfig, opts ...KeypairOption) (*KeypairGateway, error) {
	if secret == "" {
		return nil, fmt.Errorf("private key not configured for wallet")
	}

	privateKey, err := solana.PrivateKeyFromBase58(secret)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	g := &KeypairGateway{
		config:     cfg,
		privateKey: privateKey,
		publicKey:  privateKey.PublicKey(),
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.client == nil {
		if cfg.URL == "" {
			return nil, fmt.Errorf("RPC URL not configured")
		}
		g.client = rpc.New(cfg.URL)
	}
	g.logger = g.logger.With().Str("component", "signer").Str("wallet", g.publicKey.String()).Logger()
	return g, nil
}

// PublicKey returns the wallet address used as fee payer.
func (g *KeypairGateway) PublicKey() string {
	return g.publicKey.String()
}

// SignAndSubmit signs the payload with the wallet key and sends it.
func (g *KeypairGateway) SignAndSubmit(ctx context.Context, payload types.SignablePayload) (types.SubmissionID, error) {
	tx, err := solana.TransactionFromBytes(payload)
	if err != nil {
		return "", types.NewError(types.KindSignerError, err, "payload is not a transaction")
	}

	if !g.isSigner(tx) {
		return "", types.NewError(types.KindSignerError, nil, "wallet %s is not a signer of this transaction", g.publicKey)
	}

	// Sign transaction
	_, err = tx.PartialSign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(g.publicKey) {
			return &g.privateKey
		}
		return nil
	})
	if err != nil {
		return "", types.NewError(types.KindSignerError, err, "failed to sign transaction")
	}

	// Send transaction
	opts := rpc.TransactionOpts{
		SkipPreflight:       g.config.SkipPreflight,
		PreflightCommitment: commitment(g.config.Commitment),
	}

	sig, err := g.client.SendTransactionWithOpts(ctx, tx, opts)
	if err != nil {
		g.logger.Warn().Err(err).Msg("send transaction failed")
		return "", types.NewError(types.KindSignerError, err, "%s", classifySendError(err))
	}

	g.logger.Info().Str("signature", sig.String()).Msg("transaction submitted")
	return types.SubmissionID(sig.String()), nil
}

func (g *KeypairGateway) isSigner(tx *solana.Transaction) bool {
	n := int(tx.Message.Header.NumRequiredSignatures)
	if n > len(tx.Message.AccountKeys) {
		n = len(tx.Message.AccountKeys)
	}
	for _, key := range tx.Message.AccountKeys[:n] {
		if key.Equals(g.publicKey) {
			return true
		}
	}
	return false
}

// classifySendError turns an RPC submission error into a short detail.
func classifySendError(err error) string {
	msg := err.Error()
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		msg = rpcErr.Message
	}

	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "insufficient funds"), strings.Contains(lower, "insufficient lamports"):
		return "insufficient funds for this swap and network fee"
	case strings.Contains(lower, "blockhash not found"):
		return "transaction expired before it was sent, request a new quote"
	case strings.Contains(lower, "already been processed"):
		return "transaction was already submitted"
	case strings.Contains(lower, "slippage"), strings.Contains(lower, "0x1771"):
		return "price moved beyond the slippage tolerance during simulation"
	default:
		return "failed to send transaction: " + msg
	}
}

// commitment returns the commitment level from config
func commitment(level string) rpc.CommitmentType {
	switch strings.ToLower(level) {
	case "finalized":
		return rpc.CommitmentFinalized
	case "confirmed":
		return rpc.CommitmentConfirmed
	case "processed":
		return rpc.CommitmentProcessed
	default:
		return rpc.CommitmentConfirmed
	}
}

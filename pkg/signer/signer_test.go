package signer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"miao-swap/config"
	"miao-swap/pkg/types"
)

type fakeSender struct {
	calls int
	tx    *solana.Transaction
	opts  rpc.TransactionOpts
	err   error
}

func (f *fakeSender) SendTransactionWithOpts(_ context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error) {
	f.calls++
	f.tx = tx
	f.opts = opts
	if f.err != nil {
		return solana.Signature{}, f.err
	}
	return tx.Signatures[0], nil
}

type fakeGateway struct {
	calls int
	id    types.SubmissionID
}

func (f *fakeGateway) SignAndSubmit(context.Context, types.SignablePayload) (types.SubmissionID, error) {
	f.calls++
	return f.id, nil
}

func unsignedPayload(t *testing.T, payer solana.PublicKey) types.SignablePayload {
	t.Helper()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{system.NewTransferInstruction(1000, payer, solana.NewWallet().PublicKey()).Build()},
		solana.Hash{1, 2, 3},
		solana.TransactionPayer(payer),
	)
	require.NoError(t, err)
	raw, err := tx.MarshalBinary()
	require.NoError(t, err)
	return raw
}

func rpcConfig() config.RPCConfig {
	return config.RPCConfig{URL: "http://127.0.0.1:8899", Commitment: "finalized", SkipPreflight: true}
}

func TestKeypairGatewaySignsAndSubmits(t *testing.T) {
	wallet := solana.NewWallet()
	sender := &fakeSender{}

	gw, err := NewKeypairGateway(wallet.PrivateKey.String(), rpcConfig(), WithSender(sender))
	require.NoError(t, err)
	assert.Equal(t, wallet.PublicKey().String(), gw.PublicKey())

	id, err := gw.SignAndSubmit(context.Background(), unsignedPayload(t, wallet.PublicKey()))
	require.NoError(t, err)

	require.Equal(t, 1, sender.calls)
	require.NoError(t, sender.tx.VerifySignatures())
	assert.Equal(t, types.SubmissionID(sender.tx.Signatures[0].String()), id)
	assert.True(t, sender.opts.SkipPreflight)
	assert.Equal(t, rpc.CommitmentFinalized, sender.opts.PreflightCommitment)
}

func TestKeypairGatewayRejectsForeignTransaction(t *testing.T) {
	sender := &fakeSender{}
	gw, err := NewKeypairGateway(solana.NewWallet().PrivateKey.String(), rpcConfig(), WithSender(sender))
	require.NoError(t, err)

	_, err = gw.SignAndSubmit(context.Background(), unsignedPayload(t, solana.NewWallet().PublicKey()))
	assert.ErrorIs(t, err, types.ErrSignerError)
	assert.Equal(t, 0, sender.calls)

	_, err = gw.SignAndSubmit(context.Background(), types.SignablePayload("garbage"))
	assert.ErrorIs(t, err, types.ErrSignerError)
	assert.Equal(t, 0, sender.calls)
}

func TestKeypairGatewaySendErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		detail string
	}{
		{
			name:   "insufficient funds",
			err:    &jsonrpc.RPCError{Code: -32002, Message: "Transaction simulation failed: Attempt to debit an account but found no record of a prior credit. insufficient funds"},
			detail: "insufficient funds",
		},
		{
			name:   "blockhash expired",
			err:    &jsonrpc.RPCError{Code: -32002, Message: "Transaction simulation failed: Blockhash not found"},
			detail: "expired",
		},
		{
			name:   "transport",
			err:    errors.New("dial tcp: connection refused"),
			detail: "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wallet := solana.NewWallet()
			gw, err := NewKeypairGateway(wallet.PrivateKey.String(), rpcConfig(), WithSender(&fakeSender{err: tt.err}))
			require.NoError(t, err)

			_, err = gw.SignAndSubmit(context.Background(), unsignedPayload(t, wallet.PublicKey()))
			require.ErrorIs(t, err, types.ErrSignerError)
			assert.True(t, strings.Contains(types.DetailOf(err), tt.detail), "detail %q", types.DetailOf(err))
		})
	}
}

func TestNewKeypairGatewayInvalidKey(t *testing.T) {
	_, err := NewKeypairGateway("", rpcConfig())
	assert.Error(t, err)

	_, err = NewKeypairGateway("not-a-key", rpcConfig())
	assert.Error(t, err)
}

func TestSelect(t *testing.T) {
	logger := zerolog.Nop()
	wallet := solana.NewWallet()

	gw := Select(config.WalletConfig{Brand: "Keypair", PrivateKey: wallet.PrivateKey.String()}, rpcConfig(), logger)
	require.IsType(t, &KeypairGateway{}, gw)

	for _, cfg := range []config.WalletConfig{
		{Brand: "none"},
		{Brand: ""},
		{Brand: "phantom"},
		{Brand: "keypair"},
	} {
		gw := Select(cfg, rpcConfig(), logger)
		_, err := gw.SignAndSubmit(context.Background(), nil)
		assert.ErrorIs(t, err, types.ErrNoSignerAvailable, "brand %q", cfg.Brand)
	}
}

func TestApproving(t *testing.T) {
	inner := &fakeGateway{id: "SIG1"}

	rejecting := &Approving{Gateway: inner, Approver: &Prompt{In: strings.NewReader("n\n"), Out: &strings.Builder{}}}
	_, err := rejecting.SignAndSubmit(context.Background(), nil)
	assert.ErrorIs(t, err, types.ErrUserRejected)
	assert.Equal(t, 0, inner.calls)

	approving := &Approving{Gateway: inner, Approver: &Prompt{In: strings.NewReader("Yes\n"), Out: &strings.Builder{}}}
	id, err := approving.SignAndSubmit(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, types.SubmissionID("SIG1"), id)
	assert.Equal(t, 1, inner.calls)

	auto := &Approving{Gateway: inner, Approver: AutoApprove}
	_, err = auto.SignAndSubmit(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestPromptEmptyInputRejects(t *testing.T) {
	out := &strings.Builder{}
	ok, err := (&Prompt{In: strings.NewReader(""), Out: out, Question: "Swap?"}).Approve(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, out.String(), "Swap? (y/N)")
}

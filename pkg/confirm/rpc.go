package confirm

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"miao-swap/pkg/types"
)

// StatusReader is the part of *rpc.Client used to poll signatures.
type StatusReader interface {
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

// RPCSource reads signature statuses from Solana JSON-RPC.
type RPCSource struct {
	client StatusReader
}

// NewRPCSource creates a source backed by the RPC node at url.
func NewRPCSource(url string) *RPCSource {
	return &RPCSource{client: rpc.New(url)}
}

// NewRPCSourceWith wraps an existing client.
func NewRPCSourceWith(client StatusReader) *RPCSource {
	return &RPCSource{client: client}
}

func (s *RPCSource) SignatureStatus(ctx context.Context, id types.SubmissionID) (Observation, error) {
	sig, err := solana.SignatureFromBase58(id.String())
	if err != nil {
		return Observation{}, fmt.Errorf("invalid transaction signature: %w", err)
	}

	res, err := s.client.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return Observation{State: types.ConfirmationPending}, nil
		}
		return Observation{}, fmt.Errorf("failed to get signature status: %w", err)
	}

	if res == nil || len(res.Value) == 0 || res.Value[0] == nil {
		return Observation{State: types.ConfirmationPending}, nil
	}
	return observe(res.Value[0]), nil
}

func observe(st *rpc.SignatureStatusesResult) Observation {
	if st.Err != nil {
		return Observation{State: types.ConfirmationFailedOnChain, Detail: ledgerError(st.Err)}
	}
	switch st.ConfirmationStatus {
	case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
		return Observation{State: types.ConfirmationConfirmed}
	default:
		return Observation{State: types.ConfirmationPending}
	}
}

// ledgerError renders the transaction error object the node returns,
// e.g. {"InstructionError":[2,{"Custom":6001}]}.
func ledgerError(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	raw, err := sonic.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(raw)
}

package types

import (
	"encoding/json"
	"time"
)

// QuoteParams are the four inputs that define a quote. Changing any of them
// invalidates a previously issued Quote.
type QuoteParams struct {
	InputAsset  string
	OutputAsset string
	Amount      uint64 // smallest unit of InputAsset
	SlippageBps uint16
}

// Quote represents one priced conversion returned by the aggregator.
// It is never mutated after creation.
type Quote struct {
	Params         QuoteParams
	OutAmount      uint64
	PriceImpactPct string
	// RoutingPayload is handed to the transaction builder verbatim.
	RoutingPayload json.RawMessage
	IssuedAt       time.Time
}

// InAmount returns the input amount the quote was priced for.
func (q *Quote) InAmount() uint64 {
	return q.Params.Amount
}

// ValidFor reports whether the quote may still be used to build a
// transaction for the given inputs.
func (q *Quote) ValidFor(p QuoteParams) bool {
	return q != nil && q.Params == p
}

// SignablePayload is the serialized unsigned transaction produced by the
// builder. Nothing between the builder and the signer interprets it.
type SignablePayload []byte

// SubmissionID is the handle returned once a signed transaction has been sent.
type SubmissionID string

func (id SubmissionID) String() string {
	return string(id)
}

// ConfirmationState is the outcome of polling the ledger for a submission.
type ConfirmationState string

const (
	ConfirmationPending        ConfirmationState = "pending"
	ConfirmationConfirmed      ConfirmationState = "confirmed"
	ConfirmationFailedOnChain  ConfirmationState = "failed-on-chain"
	ConfirmationNotFoundBudget ConfirmationState = "not-found-after-budget"
)

// IsTerminal returns true for every state except pending.
func (s ConfirmationState) IsTerminal() bool {
	return s != ConfirmationPending
}

// ConfirmationStatus is the result of a confirmation run
type ConfirmationStatus struct {
	State       ConfirmationState
	ErrorDetail string // set when State is failed-on-chain
	Attempts    int
}

// SwapStatus is the orchestrator state of the active swap.
type SwapStatus string

const (
	StatusIdle          SwapStatus = "idle"
	StatusQuoting       SwapStatus = "quoting"
	StatusQuoteReady    SwapStatus = "quote_ready"
	StatusSigning       SwapStatus = "signing"
	StatusSubmitted     SwapStatus = "submitted"
	StatusConfirming    SwapStatus = "confirming"
	StatusSucceeded     SwapStatus = "succeeded"
	StatusFailedOnChain SwapStatus = "failed_on_chain"
	StatusUnconfirmed   SwapStatus = "unconfirmed"
	StatusCancelled     SwapStatus = "cancelled"
	StatusErrored       SwapStatus = "errored"
)

// IsTerminal returns true if no automatic transition leaves the status.
func (s SwapStatus) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusFailedOnChain, StatusUnconfirmed, StatusCancelled, StatusErrored:
		return true
	default:
		return false
	}
}

// InFlight returns true while a submission is being signed, sent or confirmed.
func (s SwapStatus) InFlight() bool {
	return s == StatusSigning || s == StatusSubmitted || s == StatusConfirming
}

// SwapRequest represents the single in-flight swap attempt
type SwapRequest struct {
	ID           string
	Quote        *Quote
	Payer        string
	SubmissionID SubmissionID
	Status       SwapStatus
	StartedAt    time.Time
}

// Result is what the front end displays once a swap reaches a terminal state.
type Result struct {
	Status       SwapStatus   `json:"status"`
	SubmissionID SubmissionID `json:"submission_id,omitempty"`
	ErrorMessage string       `json:"error_message,omitempty"`
	Retryable    bool         `json:"retryable"`
	ExplorerURL  string       `json:"explorer_url,omitempty"`
}

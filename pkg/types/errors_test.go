package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKindMatching(t *testing.T) {
	err := NewError(KindSignerError, nil, "insufficient funds for fee")
	wrapped := fmt.Errorf("sign and submit: %w", err)

	assert.True(t, errors.Is(wrapped, ErrSignerError))
	assert.False(t, errors.Is(wrapped, ErrUserRejected))
	assert.Equal(t, KindSignerError, KindOf(wrapped))
	assert.Equal(t, "insufficient funds for fee", DetailOf(wrapped))
}

func TestDetailOfFallsBackToCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := &Error{Kind: KindQuoteUnavailable, Err: cause}

	assert.Equal(t, "connection reset", DetailOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "quote_unavailable: connection reset", err.Error())
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("boom")))
	assert.Equal(t, "boom", DetailOf(errors.New("boom")))
	assert.Equal(t, "", DetailOf(nil))
}

func TestQuoteValidFor(t *testing.T) {
	p := QuoteParams{InputAsset: "SOL", OutputAsset: "MIAO", Amount: 10, SlippageBps: 100}
	q := &Quote{Params: p}

	assert.True(t, q.ValidFor(p))

	changed := p
	changed.SlippageBps = 50
	assert.False(t, q.ValidFor(changed))

	var nilQuote *Quote
	assert.False(t, nilQuote.ValidFor(p))
}

func TestSwapStatusClassification(t *testing.T) {
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusConfirming.IsTerminal())
	assert.True(t, StatusSubmitted.InFlight())
	assert.False(t, StatusQuoteReady.InFlight())
	assert.False(t, ConfirmationPending.IsTerminal())
	assert.True(t, ConfirmationNotFoundBudget.IsTerminal())
}

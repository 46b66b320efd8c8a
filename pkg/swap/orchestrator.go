package swap

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"miao-swap/pkg/metrics"
	"miao-swap/pkg/signer"
	"miao-swap/pkg/types"
)

var (
	// ErrSuperseded is returned for a quote whose request was overtaken by a
	// newer one. The result is dropped, never applied.
	ErrSuperseded = errors.New("quote request superseded by a newer one")
	// ErrInvalidTransition is returned when an action is not allowed in the
	// current state.
	ErrInvalidTransition = errors.New("action not allowed in current state")
)

// QuoteClient prices a conversion.
type QuoteClient interface {
	GetQuote(ctx context.Context, inputAsset, outputAsset string, amount uint64, slippageBps uint16) (*types.Quote, error)
}

// TransactionBuilder turns a quote into an unsigned transaction.
type TransactionBuilder interface {
	BuildTransaction(ctx context.Context, quote *types.Quote, payer string) (types.SignablePayload, error)
}

// Confirmer polls the ledger until a submission's fate is known or the
// budget is spent.
type Confirmer interface {
	Confirm(ctx context.Context, id types.SubmissionID) types.ConfirmationStatus
}

// Transition is emitted on every state change.
type Transition struct {
	From   types.SwapStatus
	To     types.SwapStatus
	SwapID string
	Err    error
	// Result is set when To is terminal.
	Result *types.Result
}

// Snapshot is a copy of the orchestrator state.
type Snapshot struct {
	Status  types.SwapStatus
	Params  types.QuoteParams
	Quote   *types.Quote
	Request *types.SwapRequest
	Err     error
	Result  *types.Result
}

// Config wires an Orchestrator.
type Config struct {
	Quotes      QuoteClient
	Builder     TransactionBuilder
	Signer      signer.Gateway
	Confirmer   Confirmer
	ExplorerURL string
	Debounce    time.Duration
	AfterFunc   AfterFunc
	Logger      zerolog.Logger
}

// Orchestrator drives one swap at a time through quote, build, sign,
// submit and confirm. It is safe for concurrent use but assumes its
// actions are issued sequentially.
type Orchestrator struct {
	quotes      QuoteClient
	builder     TransactionBuilder
	signer      signer.Gateway
	confirmer   Confirmer
	explorerURL string
	debouncer   *Debouncer
	logger      zerolog.Logger
	now         func() time.Time
	newID       func() string

	mu      sync.Mutex
	status  types.SwapStatus
	params  types.QuoteParams
	quote   *types.Quote
	seq     uint64
	request *types.SwapRequest
	err     error
	result  *types.Result

	// emitMu serializes delivery; queueMu guards the queue and observers
	// and is never held while taking another lock.
	emitMu    sync.Mutex
	queueMu   sync.Mutex
	pending   []Transition
	observers []func(Transition)
}

// New creates an Orchestrator in the Idle state.
func New(cfg Config) *Orchestrator {
	signerGW := cfg.Signer
	if signerGW == nil {
		signerGW = signer.Unavailable{}
	}
	return &Orchestrator{
		quotes:      cfg.Quotes,
		builder:     cfg.Builder,
		signer:      signerGW,
		confirmer:   cfg.Confirmer,
		explorerURL: cfg.ExplorerURL,
		debouncer:   NewDebouncer(cfg.Debounce, cfg.AfterFunc),
		logger:      cfg.Logger.With().Str("component", "orchestrator").Logger(),
		now:         time.Now,
		newID:       func() string { return uuid.New().String() },
		status:      types.StatusIdle,
	}
}

// Subscribe registers fn for every transition. fn is called synchronously
// and must not block.
func (o *Orchestrator) Subscribe(fn func(Transition)) {
	o.queueMu.Lock()
	defer o.queueMu.Unlock()
	o.observers = append(o.observers, fn)
}

// Snapshot returns a copy of the current state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := Snapshot{
		Status: o.status,
		Params: o.params,
		Quote:  o.quote,
		Err:    o.err,
	}
	if o.request != nil {
		req := *o.request
		s.Request = &req
	}
	if o.result != nil {
		res := *o.result
		s.Result = &res
	}
	return s
}

// Close drops any pending debounced quote request.
func (o *Orchestrator) Close() {
	o.debouncer.Stop()
}

// SetInputs records new swap inputs. The current quote is discarded at once
// and a new one is requested after the debounce delay; only the last call
// within the delay reaches the quote client.
func (o *Orchestrator) SetInputs(ctx context.Context, p types.QuoteParams) error {
	o.mu.Lock()
	if o.status == types.StatusQuoteReady && o.quote.ValidFor(p) {
		o.mu.Unlock()
		return nil
	}
	seq, err := o.beginQuote(p)
	o.mu.Unlock()
	o.emit()
	if err != nil {
		return err
	}

	o.debouncer.Trigger(func() {
		_, _ = o.fetchQuote(ctx, p, seq)
	})
	return nil
}

// RequestQuote fetches a quote for p right away. If a newer request is
// issued before this one resolves, the result is dropped and ErrSuperseded
// is returned.
func (o *Orchestrator) RequestQuote(ctx context.Context, p types.QuoteParams) (*types.Quote, error) {
	o.debouncer.Stop()

	o.mu.Lock()
	seq, err := o.beginQuote(p)
	o.mu.Unlock()
	o.emit()
	if err != nil {
		return nil, err
	}
	return o.fetchQuote(ctx, p, seq)
}

// beginQuote must be called with mu held.
func (o *Orchestrator) beginQuote(p types.QuoteParams) (uint64, error) {
	if o.status.InFlight() {
		return 0, fmt.Errorf("%w: swap in progress (%s)", ErrInvalidTransition, o.status)
	}
	o.seq++
	o.params = p
	o.quote = nil
	o.err = nil
	o.result = nil
	o.request = nil
	o.setStatus(types.StatusQuoting, nil)
	return o.seq, nil
}

func (o *Orchestrator) fetchQuote(ctx context.Context, p types.QuoteParams, seq uint64) (*types.Quote, error) {
	quote, err := o.quotes.GetQuote(ctx, p.InputAsset, p.OutputAsset, p.Amount, p.SlippageBps)

	o.mu.Lock()
	if seq != o.seq {
		o.mu.Unlock()
		metrics.StaleQuotesDropped.Inc()
		o.logger.Debug().Uint64("seq", seq).Msg("dropping superseded quote")
		return nil, ErrSuperseded
	}
	if err != nil {
		o.err = err
		o.setStatus(types.StatusIdle, err)
		o.mu.Unlock()
		o.emit()
		return nil, err
	}
	o.quote = quote
	o.setStatus(types.StatusQuoteReady, nil)
	o.mu.Unlock()
	o.emit()
	return quote, nil
}

// Execute builds, signs, submits and confirms the current quote for payer.
// It is allowed from QuoteReady and from Cancelled, which still holds the
// quote. Terminal outcomes are reported in the Result; the error is only
// set when the swap could not start.
func (o *Orchestrator) Execute(ctx context.Context, payer string) (types.Result, error) {
	o.mu.Lock()
	if o.status != types.StatusQuoteReady && o.status != types.StatusCancelled {
		status := o.status
		o.mu.Unlock()
		return types.Result{}, fmt.Errorf("%w: cannot swap from %s", ErrInvalidTransition, status)
	}
	quote, params := o.quote, o.params
	o.mu.Unlock()

	if !quote.ValidFor(params) {
		o.logger.Info().Msg("quote no longer matches inputs, re-quoting")
		q, err := o.RequestQuote(ctx, params)
		if err != nil {
			return types.Result{}, err
		}
		quote = q
	}

	o.mu.Lock()
	if o.status != types.StatusQuoteReady && o.status != types.StatusCancelled {
		status := o.status
		o.mu.Unlock()
		return types.Result{}, fmt.Errorf("%w: cannot swap from %s", ErrInvalidTransition, status)
	}
	req := &types.SwapRequest{
		ID:        o.newID(),
		Quote:     quote,
		Payer:     payer,
		StartedAt: o.now(),
	}
	o.request = req
	o.err = nil
	o.result = nil
	o.setStatus(types.StatusSigning, nil)
	o.mu.Unlock()
	o.emit()

	logger := o.logger.With().Str("swap_id", req.ID).Logger()

	payload, err := o.builder.BuildTransaction(ctx, quote, payer)
	if err != nil {
		logger.Warn().Err(err).Msg("build failed")
		return o.finish(types.StatusErrored, err, types.ConfirmationStatus{}), nil
	}

	id, err := o.signer.SignAndSubmit(ctx, payload)
	if err != nil {
		if errors.Is(err, types.ErrUserRejected) {
			logger.Info().Msg("signing rejected by user")
			return o.finish(types.StatusCancelled, nil, types.ConfirmationStatus{}), nil
		}
		logger.Warn().Err(err).Msg("sign and submit failed")
		return o.finish(types.StatusErrored, err, types.ConfirmationStatus{}), nil
	}

	o.mu.Lock()
	req.SubmissionID = id
	o.setStatus(types.StatusSubmitted, nil)
	o.setStatus(types.StatusConfirming, nil)
	o.mu.Unlock()
	o.emit()

	logger.Info().Str("submission", id.String()).Msg("waiting for confirmation")
	st := o.confirmer.Confirm(ctx, id)

	switch st.State {
	case types.ConfirmationConfirmed:
		return o.finish(types.StatusSucceeded, nil, st), nil
	case types.ConfirmationFailedOnChain:
		return o.finish(types.StatusFailedOnChain, errors.New(st.ErrorDetail), st), nil
	default:
		return o.finish(types.StatusUnconfirmed, nil, st), nil
	}
}

// finish moves the active request to a terminal status.
func (o *Orchestrator) finish(status types.SwapStatus, cause error, st types.ConfirmationStatus) types.Result {
	o.mu.Lock()
	res := o.resultFor(status, cause, st)
	o.result = &res
	o.err = cause
	if errors.Is(cause, types.ErrBuildFailed) {
		o.quote = nil
	}
	o.setStatus(status, cause)
	o.mu.Unlock()
	o.emit()

	metrics.SwapOutcomes.WithLabelValues(string(status)).Inc()
	return res
}

// Retry re-enters Quoting from Errored with the same inputs. It always
// fetches a fresh quote.
func (o *Orchestrator) Retry(ctx context.Context) (*types.Quote, error) {
	o.mu.Lock()
	if o.status != types.StatusErrored {
		status := o.status
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: nothing to retry from %s", ErrInvalidTransition, status)
	}
	params := o.params
	o.mu.Unlock()

	return o.RequestQuote(ctx, params)
}

// Dismiss returns a terminal swap to Idle.
func (o *Orchestrator) Dismiss() error {
	o.mu.Lock()
	if o.status == types.StatusIdle {
		o.mu.Unlock()
		return nil
	}
	if !o.status.IsTerminal() {
		status := o.status
		o.mu.Unlock()
		return fmt.Errorf("%w: cannot dismiss %s", ErrInvalidTransition, status)
	}
	o.quote = nil
	o.request = nil
	o.result = nil
	o.err = nil
	o.setStatus(types.StatusIdle, nil)
	o.mu.Unlock()
	o.emit()
	return nil
}

// setStatus must be called with mu held. The transition is delivered to
// observers by emit once mu is released.
func (o *Orchestrator) setStatus(to types.SwapStatus, err error) {
	from := o.status
	o.status = to

	t := Transition{From: from, To: to, Err: err}
	if o.request != nil {
		o.request.Status = to
		t.SwapID = o.request.ID
	}
	if to.IsTerminal() && o.result != nil {
		res := *o.result
		t.Result = &res
	}

	ev := o.logger.Info()
	if err != nil {
		ev = o.logger.Warn().Err(err)
	}
	ev.Str("from", string(from)).Str("to", string(to)).Str("swap_id", t.SwapID).Msg("state transition")

	o.queueMu.Lock()
	o.pending = append(o.pending, t)
	o.queueMu.Unlock()
}

func (o *Orchestrator) emit() {
	o.emitMu.Lock()
	defer o.emitMu.Unlock()
	for {
		o.queueMu.Lock()
		if len(o.pending) == 0 {
			o.queueMu.Unlock()
			return
		}
		t := o.pending[0]
		o.pending = o.pending[1:]
		observers := o.observers
		o.queueMu.Unlock()

		for _, fn := range observers {
			fn(t)
		}
	}
}

// resultFor decides what the user sees for a terminal status.
func (o *Orchestrator) resultFor(status types.SwapStatus, cause error, st types.ConfirmationStatus) types.Result {
	res := types.Result{Status: status}
	if o.request != nil {
		res.SubmissionID = o.request.SubmissionID
	}
	if res.SubmissionID != "" && o.explorerURL != "" {
		res.ExplorerURL = o.explorerURL + res.SubmissionID.String()
	}

	switch status {
	case types.StatusCancelled:
	case types.StatusErrored:
		res.ErrorMessage = errorMessage(cause)
		res.Retryable = true
	case types.StatusFailedOnChain:
		res.ErrorMessage = "Transaction failed on-chain: " + st.ErrorDetail
	case types.StatusUnconfirmed:
		res.ErrorMessage = fmt.Sprintf("Transaction status unknown after %d checks. It may still land; check the explorer before trying again.", st.Attempts)
	}
	return res
}

func errorMessage(err error) string {
	detail := types.DetailOf(err)
	switch types.KindOf(err) {
	case types.KindNoSignerAvailable:
		return "No wallet available to sign: " + detail
	case types.KindSignerError:
		return "Wallet could not sign or send the transaction: " + detail
	case types.KindBuildFailed:
		return "Could not build the swap transaction, a new quote is needed: " + detail
	case types.KindQuoteUnavailable:
		return "No quote available: " + detail
	case types.KindInvalidRequest:
		return "Invalid swap request: " + detail
	default:
		if err == nil {
			return "Swap failed"
		}
		return "Swap failed: " + err.Error()
	}
}

package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"miao-swap/pkg/metrics"
	"miao-swap/pkg/types"
)

const (
	DefaultAggregatorURL = "https://quote-api.jup.ag/v6"
	DefaultTimeout       = 10 * time.Second
	MaxSlippageBps       = 10000

	maxErrorBody = 64 << 10
)

// Doer is the transport used to reach the aggregator.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// AggregatorClient talks to a DEX aggregator exposing quote and swap-build
// endpoints. It keeps no state between calls.
type AggregatorClient struct {
	baseURL string
	http    Doer
	timeout time.Duration
	logger  zerolog.Logger
	now     func() time.Time
}

// Option configures an AggregatorClient
type Option func(*AggregatorClient)

// WithTransport replaces the default http.Client.
func WithTransport(d Doer) Option {
	return func(c *AggregatorClient) {
		c.http = d
	}
}

// WithTimeout sets the per-request timeout for quote and build calls.
func WithTimeout(d time.Duration) Option {
	return func(c *AggregatorClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *AggregatorClient) {
		c.logger = l
	}
}

// NewAggregatorClient creates a new aggregator client
func NewAggregatorClient(baseURL string, opts ...Option) *AggregatorClient {
	if baseURL == "" {
		baseURL = DefaultAggregatorURL
	}
	c := &AggregatorClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		timeout: DefaultTimeout,
		logger:  zerolog.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("component", "aggregator").Logger()
	return c
}

// quoteResponse is the subset of the aggregator quote we inspect. The full
// body is kept as the routing payload.
type quoteResponse struct {
	InputMint      string `json:"inputMint"`
	InAmount       string `json:"inAmount"`
	OutputMint     string `json:"outputMint"`
	OutAmount      string `json:"outAmount"`
	SlippageBps    *int   `json:"slippageBps"`
	PriceImpactPct string `json:"priceImpactPct"`
}

type swapRequest struct {
	QuoteResponse           json.RawMessage `json:"quoteResponse"`
	UserPublicKey           string          `json:"userPublicKey"`
	WrapAndUnwrapSol        bool            `json:"wrapAndUnwrapSol"`
	DynamicComputeUnitLimit bool            `json:"dynamicComputeUnitLimit"`
}

type swapResponse struct {
	SwapTransaction      string `json:"swapTransaction"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode"`
}

// GetQuote requests a priced conversion of amount smallest units of
// inputAsset into outputAsset. Every network or decoding failure is returned
// as a QuoteUnavailable error.
func (c *AggregatorClient) GetQuote(ctx context.Context, inputAsset, outputAsset string, amount uint64, slippageBps uint16) (*types.Quote, error) {
	params := types.QuoteParams{
		InputAsset:  inputAsset,
		OutputAsset: outputAsset,
		Amount:      amount,
		SlippageBps: slippageBps,
	}
	if err := validateQuoteParams(params); err != nil {
		metrics.QuoteRequests.WithLabelValues("invalid").Inc()
		return nil, err
	}

	start := time.Now()
	quote, err := c.fetchQuote(ctx, params)
	metrics.QuoteDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.QuoteRequests.WithLabelValues("unavailable").Inc()
		c.logger.Warn().Err(err).Str("input", inputAsset).Str("output", outputAsset).Uint64("amount", amount).Msg("quote unavailable")
		return nil, err
	}

	metrics.QuoteRequests.WithLabelValues("ok").Inc()
	c.logger.Debug().
		Str("input", inputAsset).
		Str("output", outputAsset).
		Uint64("in_amount", amount).
		Uint64("out_amount", quote.OutAmount).
		Str("price_impact_pct", quote.PriceImpactPct).
		Msg("quote received")
	return quote, nil
}

func validateQuoteParams(p types.QuoteParams) error {
	if p.InputAsset == "" || p.OutputAsset == "" {
		return types.NewError(types.KindInvalidRequest, nil, "input and output assets are required")
	}
	if p.InputAsset == p.OutputAsset {
		return types.NewError(types.KindInvalidRequest, nil, "input and output asset are the same (%s)", p.InputAsset)
	}
	if p.Amount == 0 {
		return types.NewError(types.KindInvalidRequest, nil, "amount must be a positive integer")
	}
	if p.SlippageBps > MaxSlippageBps {
		return types.NewError(types.KindInvalidRequest, nil, "slippage must be between 0 and %d bps", MaxSlippageBps)
	}
	return nil
}

func (c *AggregatorClient) fetchQuote(ctx context.Context, p types.QuoteParams) (*types.Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	q := url.Values{}
	q.Set("inputMint", p.InputAsset)
	q.Set("outputMint", p.OutputAsset)
	q.Set("amount", strconv.FormatUint(p.Amount, 10))
	q.Set("slippageBps", strconv.FormatUint(uint64(p.SlippageBps), 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/quote?"+q.Encode(), nil)
	if err != nil {
		return nil, &types.Error{Kind: types.KindQuoteUnavailable, Err: err}
	}

	body, err := c.do(req)
	if err != nil {
		return nil, &types.Error{Kind: types.KindQuoteUnavailable, Err: err}
	}

	var resp quoteResponse
	if err := sonic.Unmarshal(body, &resp); err != nil {
		return nil, types.NewError(types.KindQuoteUnavailable, err, "decode quote response")
	}

	inAmount, err := strconv.ParseUint(resp.InAmount, 10, 64)
	if err != nil || inAmount != p.Amount {
		return nil, types.NewError(types.KindQuoteUnavailable, nil, "aggregator priced %q input units, requested %d", resp.InAmount, p.Amount)
	}
	if (resp.InputMint != "" && resp.InputMint != p.InputAsset) || (resp.OutputMint != "" && resp.OutputMint != p.OutputAsset) {
		return nil, types.NewError(types.KindQuoteUnavailable, nil, "aggregator quoted %s->%s", resp.InputMint, resp.OutputMint)
	}
	if resp.SlippageBps != nil && *resp.SlippageBps != int(p.SlippageBps) {
		return nil, types.NewError(types.KindQuoteUnavailable, nil, "aggregator applied %d bps slippage, requested %d", *resp.SlippageBps, p.SlippageBps)
	}
	outAmount, err := strconv.ParseUint(resp.OutAmount, 10, 64)
	if err != nil || outAmount == 0 {
		return nil, types.NewError(types.KindQuoteUnavailable, err, "no route for %s->%s", p.InputAsset, p.OutputAsset)
	}

	return &types.Quote{
		Params:         p,
		OutAmount:      outAmount,
		PriceImpactPct: resp.PriceImpactPct,
		RoutingPayload: json.RawMessage(body),
		IssuedAt:       c.now(),
	}, nil
}

// BuildTransaction asks the aggregator for an unsigned transaction executing
// exactly the trade described by quote, paid and signed by payer.
func (c *AggregatorClient) BuildTransaction(ctx context.Context, quote *types.Quote, payer string) (types.SignablePayload, error) {
	if quote == nil || len(quote.RoutingPayload) == 0 {
		return nil, types.NewError(types.KindInvalidRequest, nil, "a quote from the aggregator is required")
	}
	payerKey, err := solana.PublicKeyFromBase58(payer)
	if err != nil {
		return nil, types.NewError(types.KindInvalidRequest, err, "invalid payer address %q", payer)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reqBody, err := sonic.Marshal(swapRequest{
		QuoteResponse:           quote.RoutingPayload,
		UserPublicKey:           payerKey.String(),
		WrapAndUnwrapSol:        true,
		DynamicComputeUnitLimit: true,
	})
	if err != nil {
		return nil, types.NewError(types.KindBuildFailed, err, "encode swap request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/swap", bytes.NewReader(reqBody))
	if err != nil {
		return nil, &types.Error{Kind: types.KindBuildFailed, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, &types.Error{Kind: types.KindBuildFailed, Err: err}
	}

	var resp swapResponse
	if err := sonic.Unmarshal(body, &resp); err != nil {
		return nil, types.NewError(types.KindBuildFailed, err, "decode swap response")
	}
	if resp.SwapTransaction == "" {
		return nil, types.NewError(types.KindBuildFailed, nil, "aggregator returned an empty transaction")
	}

	payload, err := base64.StdEncoding.DecodeString(resp.SwapTransaction)
	if err != nil {
		return nil, types.NewError(types.KindBuildFailed, err, "decode transaction payload")
	}
	if err := checkFeePayer(payload, payerKey); err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("payer", payerKey.String()).
		Int("payload_bytes", len(payload)).
		Uint64("last_valid_block_height", resp.LastValidBlockHeight).
		Msg("transaction built")
	return types.SignablePayload(payload), nil
}

// checkFeePayer makes sure the payload is a transaction paid by payer.
func checkFeePayer(payload []byte, payer solana.PublicKey) error {
	tx, err := solana.TransactionFromBytes(payload)
	if err != nil {
		return types.NewError(types.KindBuildFailed, err, "aggregator returned an undecodable transaction")
	}
	if len(tx.Message.AccountKeys) == 0 || !tx.Message.AccountKeys[0].Equals(payer) {
		return types.NewError(types.KindBuildFailed, nil, "transaction fee payer is not %s", payer)
	}
	return nil
}

// do executes req and returns the body of a 2xx response.
func (c *AggregatorClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("aggregator returned status %d: %s", resp.StatusCode, errorMessage(raw))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

// errorMessage extracts a readable message from an aggregator error body.
func errorMessage(raw []byte) string {
	var e errorResponse
	if err := sonic.Unmarshal(raw, &e); err == nil {
		msg := e.Error
		if msg == "" {
			msg = e.Message
		}
		if msg != "" {
			if e.ErrorCode != "" {
				return fmt.Sprintf("%s (%s)", msg, e.ErrorCode)
			}
			return msg
		}
	}
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return "empty body"
	}
	return s
}

package confirm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"miao-swap/pkg/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedSource replays observations in order and repeats the last one.
type scriptedSource struct {
	script []result
	calls  int
}

type result struct {
	obs Observation
	err error
}

func pending() result { return result{obs: Observation{State: types.ConfirmationPending}} }

func (s *scriptedSource) SignatureStatus(context.Context, types.SubmissionID) (Observation, error) {
	r := s.script[len(s.script)-1]
	if s.calls < len(s.script) {
		r = s.script[s.calls]
	}
	s.calls++
	return r.obs, r.err
}

type recordingSleeper struct {
	sleeps []time.Duration
}

func (r *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	r.sleeps = append(r.sleeps, d)
	return nil
}

func newConfirmer(src StatusSource, sl *recordingSleeper, attempts int) *Confirmer {
	return New(src, WithSleeper(sl.sleep), WithOptions(Options{MaxAttempts: attempts, Interval: 2 * time.Second}))
}

func TestConfirmAfterPendingPolls(t *testing.T) {
	const maxAttempts = 5
	script := make([]result, 0, maxAttempts)
	for i := 0; i < maxAttempts-1; i++ {
		script = append(script, pending())
	}
	script = append(script, result{obs: Observation{State: types.ConfirmationConfirmed}})

	src := &scriptedSource{script: script}
	sl := &recordingSleeper{}
	st := newConfirmer(src, sl, maxAttempts).Confirm(context.Background(), "SIG1")

	assert.Equal(t, types.ConfirmationConfirmed, st.State)
	assert.Equal(t, maxAttempts, src.calls)
	assert.Equal(t, maxAttempts, st.Attempts)
	assert.Len(t, sl.sleeps, maxAttempts-1)
}

func TestConfirmBudgetExhausted(t *testing.T) {
	const maxAttempts = 4
	src := &scriptedSource{script: []result{pending()}}
	sl := &recordingSleeper{}

	st := newConfirmer(src, sl, maxAttempts).Confirm(context.Background(), "SIG1")

	assert.Equal(t, types.ConfirmationNotFoundBudget, st.State)
	assert.Empty(t, st.ErrorDetail)
	assert.Equal(t, maxAttempts, src.calls)
	assert.Len(t, sl.sleeps, maxAttempts-1, "no sleep after the last poll")
	for _, d := range sl.sleeps {
		assert.Equal(t, 2*time.Second, d)
	}
}

func TestConfirmFailedOnChainStopsImmediately(t *testing.T) {
	src := &scriptedSource{script: []result{
		pending(),
		{obs: Observation{State: types.ConfirmationFailedOnChain, Detail: `{"InstructionError":[2,{"Custom":6001}]}`}},
	}}
	sl := &recordingSleeper{}

	st := newConfirmer(src, sl, 10).Confirm(context.Background(), "SIG1")

	assert.Equal(t, types.ConfirmationFailedOnChain, st.State)
	assert.Contains(t, st.ErrorDetail, "6001")
	assert.Equal(t, 2, src.calls)
}

func TestConfirmTransportErrorConsumesAttempt(t *testing.T) {
	src := &scriptedSource{script: []result{
		{err: errors.New("connection reset")},
		{err: errors.New("connection reset")},
		{obs: Observation{State: types.ConfirmationConfirmed}},
	}}
	sl := &recordingSleeper{}

	st := newConfirmer(src, sl, 3).Confirm(context.Background(), "SIG1")
	assert.Equal(t, types.ConfirmationConfirmed, st.State)
	assert.Equal(t, 3, src.calls)

	src = &scriptedSource{script: []result{{err: errors.New("connection reset")}}}
	st = newConfirmer(src, &recordingSleeper{}, 3).Confirm(context.Background(), "SIG1")
	assert.Equal(t, types.ConfirmationNotFoundBudget, st.State)
	assert.Equal(t, 3, src.calls)
}

func TestConfirmCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &scriptedSource{script: []result{pending()}}

	c := New(src, WithOptions(Options{MaxAttempts: 10, Interval: time.Hour}))
	done := make(chan types.ConfirmationStatus, 1)
	go func() {
		done <- c.Confirm(ctx, "SIG1")
	}()
	cancel()

	select {
	case st := <-done:
		assert.Equal(t, types.ConfirmationNotFoundBudget, st.State)
		assert.LessOrEqual(t, src.calls, 1)
	case <-time.After(5 * time.Second):
		t.Fatal("confirm did not return after cancel")
	}
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	assert.Equal(t, DefaultMaxAttempts, o.MaxAttempts)
	assert.Equal(t, DefaultInterval, o.Interval)
}

type fakeStatusReader struct {
	res *rpc.GetSignatureStatusesResult
	err error
}

func (f *fakeStatusReader) GetSignatureStatuses(context.Context, bool, ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	return f.res, f.err
}

func TestRPCSource(t *testing.T) {
	sig := solana.Signature{1, 2, 3}.String()

	tests := []struct {
		name   string
		reader *fakeStatusReader
		want   types.ConfirmationState
		detail string
		err    bool
	}{
		{
			name:   "unknown signature",
			reader: &fakeStatusReader{res: &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{nil}}},
			want:   types.ConfirmationPending,
		},
		{
			name:   "not found",
			reader: &fakeStatusReader{err: rpc.ErrNotFound},
			want:   types.ConfirmationPending,
		},
		{
			name:   "processed",
			reader: &fakeStatusReader{res: &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{{ConfirmationStatus: rpc.ConfirmationStatusProcessed}}}},
			want:   types.ConfirmationPending,
		},
		{
			name:   "confirmed",
			reader: &fakeStatusReader{res: &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{{ConfirmationStatus: rpc.ConfirmationStatusConfirmed}}}},
			want:   types.ConfirmationConfirmed,
		},
		{
			name:   "finalized",
			reader: &fakeStatusReader{res: &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{{ConfirmationStatus: rpc.ConfirmationStatusFinalized}}}},
			want:   types.ConfirmationConfirmed,
		},
		{
			name: "ledger error",
			reader: &fakeStatusReader{res: &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{{
				ConfirmationStatus: rpc.ConfirmationStatusConfirmed,
				Err:                map[string]interface{}{"InstructionError": []interface{}{2, map[string]interface{}{"Custom": 6001}}},
			}}}},
			want:   types.ConfirmationFailedOnChain,
			detail: `{"InstructionError":[2,{"Custom":6001}]}`,
		},
		{
			name:   "transport",
			reader: &fakeStatusReader{err: errors.New("502 bad gateway")},
			err:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs, err := NewRPCSourceWith(tt.reader).SignatureStatus(context.Background(), types.SubmissionID(sig))
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, obs.State)
			if tt.detail != "" {
				assert.JSONEq(t, tt.detail, obs.Detail)
			}
		})
	}
}

func TestRPCSourceInvalidSignature(t *testing.T) {
	_, err := NewRPCSourceWith(&fakeStatusReader{}).SignatureStatus(context.Background(), "not a signature")
	assert.Error(t, err)
}

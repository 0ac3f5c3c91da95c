package httpx

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedFetcher struct {
	mu       sync.Mutex
	outcomes []Outcome
	calls    int
}

func (f *scriptedFetcher) Fetch(_ context.Context, rawURL string) Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.calls
	f.calls++
	if idx >= len(f.outcomes) {
		idx = len(f.outcomes) - 1
	}
	out := f.outcomes[idx]
	out.URL = rawURL
	return out
}

type recordingSleeper struct {
	waits []time.Duration
}

func (s *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return ctx.Err()
}

func failed(reason Reason, status int) Outcome {
	return Outcome{Status: status, Err: &FetchError{Reason: reason, Status: status}}
}

func TestFetchWithRetry_FirstAttemptSucceedsWithoutSleeping(t *testing.T) {
	f := &scriptedFetcher{outcomes: []Outcome{{Status: 200, Body: []byte("ok")}}}
	s := &recordingSleeper{}
	r := NewRetryingFetcher(f, WithSleep(s.sleep))

	out := r.FetchWithRetry(context.Background(), "https://example.com", DefaultRetryPolicy())

	require.True(t, out.OK())
	assert.Equal(t, []byte("ok"), out.Body)
	assert.Equal(t, 1, f.calls)
	assert.Empty(t, s.waits)
}

func TestFetchWithRetry_AlwaysFailingMakesNPlusOneCalls(t *testing.T) {
	f := &scriptedFetcher{outcomes: []Outcome{failed(ReasonHTTPStatus, 503)}}
	s := &recordingSleeper{}
	r := NewRetryingFetcher(f, WithSleep(s.sleep))

	out := r.FetchWithRetry(context.Background(), "https://example.com", RetryPolicy{
		MaxAttempts:      3,
		InitialBackoff:   5 * time.Second,
		BackoffIncrement: 2 * time.Second,
	})

	require.False(t, out.OK())
	assert.Equal(t, ReasonHTTPStatus, out.Err.Reason)
	assert.Equal(t, 4, f.calls)
	assert.Equal(t, []time.Duration{5 * time.Second, 7 * time.Second, 9 * time.Second}, s.waits)
}

func TestFetchWithRetry_SucceedsAfterTwoFailures(t *testing.T) {
	f := &scriptedFetcher{outcomes: []Outcome{
		failed(ReasonTimeout, 0),
		failed(ReasonTransport, 0),
		{Status: 200, Body: []byte("<html></html>")},
	}}
	s := &recordingSleeper{}
	var hooked []int
	r := NewRetryingFetcher(f, WithSleep(s.sleep), WithRetryHook(func(retry int, _ time.Duration, _ Outcome) {
		hooked = append(hooked, retry)
	}))

	out := r.FetchWithRetry(context.Background(), "https://example.com", DefaultRetryPolicy())

	require.True(t, out.OK())
	assert.Equal(t, 3, f.calls)
	assert.Equal(t, []time.Duration{5 * time.Second, 7 * time.Second}, s.waits)
	assert.Equal(t, []int{0, 1}, hooked)
}

func TestFetchWithRetry_ZeroAttemptsIsASingleCall(t *testing.T) {
	f := &scriptedFetcher{outcomes: []Outcome{failed(ReasonHTTPStatus, 404)}}
	s := &recordingSleeper{}
	r := NewRetryingFetcher(f, WithSleep(s.sleep))

	out := r.FetchWithRetry(context.Background(), "https://example.com", RetryPolicy{})

	assert.False(t, out.OK())
	assert.Equal(t, 1, f.calls)
	assert.Empty(t, s.waits)
}

func TestFetchWithRetry_CancelledDuringBackoff(t *testing.T) {
	f := &scriptedFetcher{outcomes: []Outcome{failed(ReasonTransport, 0)}}
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRetryingFetcher(f, WithSleep(func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}))

	out := r.FetchWithRetry(ctx, "https://example.com", DefaultRetryPolicy())

	require.False(t, out.OK())
	assert.Equal(t, ReasonCanceled, out.Err.Reason)
	assert.Equal(t, 1, f.calls)
}

func TestRetryPolicy_Backoff(t *testing.T) {
	p := DefaultRetryPolicy()
	assert.Equal(t, 5*time.Second, p.Backoff(0))
	assert.Equal(t, 13*time.Second, p.Backoff(4))
}

func TestSleepWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepWithContext(ctx, time.Hour), context.Canceled)
	assert.NoError(t, sleepWithContext(context.Background(), time.Millisecond))
}

package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baxromumarov/job-harvester/internal/urlutil"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>hello</body></html>"))
	})
	mux.HandleFunc("/accepted", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("queued"))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCollyFetcher_Success(t *testing.T) {
	srv := newTestServer(t)
	f := NewCollyFetcher(FetcherConfig{})

	out := f.Fetch(context.Background(), srv.URL+"/ok")

	require.True(t, out.OK(), "unexpected failure: %v", out.Err)
	assert.Equal(t, http.StatusOK, out.Status)
	assert.Contains(t, string(out.Body), "hello")
}

func TestCollyFetcher_AnyTwoHundredIsSuccess(t *testing.T) {
	srv := newTestServer(t)
	f := NewCollyFetcher(FetcherConfig{})

	out := f.Fetch(context.Background(), srv.URL+"/accepted")

	require.True(t, out.OK(), "unexpected failure: %v", out.Err)
	assert.Equal(t, http.StatusAccepted, out.Status)
}

func TestCollyFetcher_NonSuccessStatus(t *testing.T) {
	srv := newTestServer(t)
	f := NewCollyFetcher(FetcherConfig{})

	out := f.Fetch(context.Background(), srv.URL+"/missing")

	require.False(t, out.OK())
	assert.Equal(t, ReasonHTTPStatus, out.Err.Reason)
	assert.Equal(t, http.StatusNotFound, out.Err.Status)
}

func TestCollyFetcher_Timeout(t *testing.T) {
	srv := newTestServer(t)
	f := NewCollyFetcher(FetcherConfig{Timeout: 50 * time.Millisecond})

	out := f.Fetch(context.Background(), srv.URL+"/slow")

	require.False(t, out.OK())
	assert.Equal(t, ReasonTimeout, out.Err.Reason)
}

func TestCollyFetcher_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	target := srv.URL + "/gone"
	srv.Close()
	f := NewCollyFetcher(FetcherConfig{})

	out := f.Fetch(context.Background(), target)

	require.False(t, out.OK())
	assert.Equal(t, ReasonTransport, out.Err.Reason)
}

func TestCollyFetcher_CancelledContext(t *testing.T) {
	srv := newTestServer(t)
	f := NewCollyFetcher(FetcherConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := f.Fetch(ctx, srv.URL+"/ok")

	require.False(t, out.OK())
	assert.Equal(t, ReasonCanceled, out.Err.Reason)
}

func TestCollyFetcher_LimiterPerHost(t *testing.T) {
	f := NewCollyFetcher(FetcherConfig{RateLimit: 1, RateBurst: 2})

	a := f.limiter(urlutil.Host("https://www.Example.com/jobs/1"))
	b := f.limiter(urlutil.Host("https://example.com/jobs/2"))
	c := f.limiter(urlutil.Host("https://other.org/"))

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, a.Burst())
}

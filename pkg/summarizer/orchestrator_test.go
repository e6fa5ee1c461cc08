package summarizer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pario-ai/briefbench/pkg/cache"
	"github.com/pario-ai/briefbench/pkg/fetcher"
	"github.com/pario-ai/briefbench/pkg/models"
	"github.com/pario-ai/briefbench/pkg/ollama"
	"github.com/pario-ai/briefbench/pkg/ollama/ollamatest"
)

const testModel = "qwen3:1.7b"

type harness struct {
	ollama   *ollamatest.Server
	articles *httptest.Server
	hits     *atomic.Int32
	store    *cache.Store
	now      time.Time
	orch     *Orchestrator
	emitted  []models.SummaryResult
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{now: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC), hits: &atomic.Int32{}}

	h.ollama = ollamatest.NewServer(testModel, "llama3.2:3b")
	t.Cleanup(h.ollama.Close)

	h.articles = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.hits.Add(1)
		_, _ = w.Write([]byte("<html><body><p>The bridge reopened after two years of repairs.</p></body></html>"))
	}))
	t.Cleanup(h.articles.Close)

	store, err := cache.New(filepath.Join(t.TempDir(), "cache"), cache.DefaultWindow,
		cache.WithClock(func() time.Time { return h.now }))
	require.NoError(t, err)
	h.store = store

	logger := zaptest.NewLogger(t)
	client, err := ollama.New(h.ollama.Host(), ollama.Options{StatusTimeout: 2 * time.Second, Logger: logger})
	require.NoError(t, err)

	f := fetcher.New(store, fetcher.Options{Timeout: 2 * time.Second, Logger: logger})
	h.orch = New(client, f, store,
		WithLogger(logger),
		WithGenerateTimeout(5*time.Second),
		OnSummary(func(res models.SummaryResult) { h.emitted = append(h.emitted, res) }))
	return h
}

func (h *harness) url() string { return h.articles.URL + "/bridge" }

func (h *harness) request() Request {
	return Request{URL: h.url(), Model: testModel, TargetLength: 257}
}

func TestRunProducesSummary(t *testing.T) {
	h := newHarness(t)
	h.ollama.Response = "  Bridge reopens - repairs took two years - traffic resumes.\n"
	h.ollama.SetResident("llama3.2:3b")

	out, err := h.orch.Run(context.Background(), h.request())
	require.NoError(t, err)
	require.Equal(t, models.Produced, out.Kind)
	require.NotNil(t, out.Summary)
	require.Equal(t, "Bridge reopens - repairs took two years - traffic resumes.", out.Summary.CleanedText)
	require.True(t, out.Summary.WithinBudget)
	require.False(t, out.Summary.IsFallback)

	require.EqualValues(t, 1, h.hits.Load())
	require.Len(t, h.ollama.Prompts, 1)
	require.True(t, strings.HasPrefix(h.ollama.Prompts[0], BuildPrompt(257)+"\n\n"))
	require.True(t, strings.HasSuffix(h.ollama.Prompts[0], "The bridge reopened after two years of repairs."))

	require.Contains(t, h.ollama.Unloads, "llama3.2:3b")
	require.Contains(t, h.ollama.Unloads, testModel)
	require.Len(t, h.emitted, 1)

	_, _, ok, err := h.store.Read(cache.KeyFor(h.url()))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRunFreshCacheShortCircuits(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.Write(cache.KeyFor(h.url()), "cached article"))
	h.now = h.now.Add(time.Hour)

	out, err := h.orch.Run(context.Background(), h.request())
	require.NoError(t, err)
	require.Equal(t, models.Reused, out.Kind)
	require.Nil(t, out.Summary)
	require.Zero(t, h.hits.Load())
	require.Zero(t, h.ollama.Calls())
	require.Empty(t, h.emitted)
}

func TestRunForceReuseProcessesCachedContent(t *testing.T) {
	h := newHarness(t)
	h.ollama.Response = "Cached summary."
	require.NoError(t, h.store.Write(cache.KeyFor(h.url()), "cached article"))
	h.now = h.now.Add(40 * time.Hour)

	req := h.request()
	req.ForceReuse = true
	out, err := h.orch.Run(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, models.Produced, out.Kind)
	require.Zero(t, h.hits.Load())
	require.Equal(t, 1, h.ollama.Calls())
	require.True(t, strings.HasSuffix(h.ollama.Prompts[0], "\n\ncached article"))
}

func TestRunStaleCacheRefetches(t *testing.T) {
	h := newHarness(t)
	h.ollama.Response = "Fresh summary."
	require.NoError(t, h.store.Write(cache.KeyFor(h.url()), "old article"))
	h.now = h.now.Add(25 * time.Hour)

	out, err := h.orch.Run(context.Background(), h.request())
	require.NoError(t, err)
	require.Equal(t, models.Produced, out.Kind)
	require.EqualValues(t, 1, h.hits.Load())
}

func TestRunUnreachableHost(t *testing.T) {
	h := newHarness(t)
	h.ollama.Close()

	_, err := h.orch.Run(context.Background(), h.request())
	require.ErrorIs(t, err, ollama.ErrUnreachable)
	require.Zero(t, h.hits.Load())

	entries, err := os.ReadDir(h.store.Dir())
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestRunModelUnavailable(t *testing.T) {
	h := newHarness(t)
	req := h.request()
	req.Model = "mistral:7b"

	_, err := h.orch.Run(context.Background(), req)
	var notFound *ollama.ModelNotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Contains(t, notFound.Available, testModel)
	require.Zero(t, h.hits.Load())
}

func TestRunFallback(t *testing.T) {
	h := newHarness(t)
	h.ollama.Response = "<think>I should count characters</think>\n thinking \n"

	out, err := h.orch.Run(context.Background(), h.request())
	require.NoError(t, err)
	require.True(t, out.Summary.IsFallback)
	require.Equal(t, models.FallbackSummary, out.Summary.CleanedText)
}

func TestRunOverBudgetIsAccepted(t *testing.T) {
	h := newHarness(t)
	h.ollama.Response = strings.Repeat("x", 300)

	out, err := h.orch.Run(context.Background(), h.request())
	require.NoError(t, err)
	require.Equal(t, 300, out.Summary.Length)
	require.False(t, out.Summary.WithinBudget)
}

func TestRunGenerationFailure(t *testing.T) {
	h := newHarness(t)
	h.ollama.GenerateStatus = http.StatusInternalServerError

	_, err := h.orch.Run(context.Background(), h.request())
	require.ErrorIs(t, err, ollama.ErrGeneration)
	require.Empty(t, h.emitted)
}

func TestRunInvalidRequest(t *testing.T) {
	h := newHarness(t)
	req := h.request()
	req.TargetLength = 0

	_, err := h.orch.Run(context.Background(), req)
	require.ErrorIs(t, err, ErrConfiguration)
	require.Zero(t, h.ollama.StatusCalls)
}

func TestCheckHost(t *testing.T) {
	require.ErrorIs(t, CheckHost(""), ErrConfiguration)
	require.NoError(t, CheckHost("localhost:11434"))
}

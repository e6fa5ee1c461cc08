package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pario-ai/briefbench/pkg/cache"
	"github.com/pario-ai/briefbench/pkg/ollama/ollamatest"
	"github.com/pario-ai/briefbench/pkg/summarizer"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var stdout bytes.Buffer
	root.SetOut(&stdout)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), err
}

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("BRIEFBENCH_CACHE_DIR", filepath.Join(dir, "cache"))
	t.Setenv("BRIEFBENCH_DB_PATH", filepath.Join(dir, "history.db"))
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

func articleServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body><p>Rain returns to the valley.</p></body></html>"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSummarizeWritesOnlySummary(t *testing.T) {
	setupEnv(t)
	ollama := ollamatest.NewServer("qwen3:1.7b")
	defer ollama.Close()
	ollama.Response = "<think>count</think>Rain returns - valley relieved - farmers plant."
	articles := articleServer(t)

	out, err := run(t, "summarize", ollama.Host(), articles.URL+"/rain", "qwen3:1.7b", "120")
	require.NoError(t, err)
	require.Equal(t, "Rain returns - valley relieved - farmers plant.\n", out)
}

func TestSummarizeFreshCachePrintsSentinel(t *testing.T) {
	dir := setupEnv(t)
	ollama := ollamatest.NewServer("qwen3:1.7b")
	defer ollama.Close()

	url := "https://news.example/rain"
	store, err := cache.New(filepath.Join(dir, "cache"), cache.DefaultWindow)
	require.NoError(t, err)
	require.NoError(t, store.Write(cache.KeyFor(url), "cached"))

	out, err := run(t, "summarize", ollama.Host(), url)
	require.NoError(t, err)
	require.Equal(t, summarizer.ReuseFlag+"\n", out)
	require.Zero(t, ollama.Calls())
}

func TestSummarizeFallbackFails(t *testing.T) {
	setupEnv(t)
	ollama := ollamatest.NewServer("qwen3:1.7b")
	defer ollama.Close()
	ollama.Response = "<think>nothing useful</think>"
	articles := articleServer(t)

	out, err := run(t, "summarize", ollama.Host(), articles.URL+"/rain")
	require.ErrorIs(t, err, errNoSummary)
	require.Equal(t, "[Error: No summary generated]\n", out)
}

func TestSummarizeBadLength(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "summarize", "localhost:11434", "https://news.example/a", "qwen3:1.7b", "short")
	require.ErrorIs(t, err, summarizer.ErrConfiguration)
}

func TestCacheCommands(t *testing.T) {
	dir := setupEnv(t)
	store, err := cache.New(filepath.Join(dir, "cache"), cache.DefaultWindow)
	require.NoError(t, err)
	require.NoError(t, store.Write(cache.KeyFor("https://a.example"), "abc"))

	out, err := run(t, "cache", "stats")
	require.NoError(t, err)
	require.Contains(t, out, "Entries: 1")

	out, err = run(t, "cache", "clear")
	require.NoError(t, err)
	require.Contains(t, out, "All cache entries cleared (1).")

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestHistoryListEmpty(t *testing.T) {
	setupEnv(t)
	out, err := run(t, "history", "list")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "No benchmark sweeps found."))
}

package ollama

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pario-ai/briefbench/pkg/ollama/ollamatest"
)

func newTestClient(t *testing.T, srv *ollamatest.Server) *Client {
	t.Helper()
	c, err := New(srv.Host(), Options{StatusTimeout: 2 * time.Second, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	return c
}

func TestBaseURL(t *testing.T) {
	u, err := BaseURL("gpu-box:11434")
	require.NoError(t, err)
	require.Equal(t, "http://gpu-box:11434", u.String())

	u, err = BaseURL("https://ollama.internal")
	require.NoError(t, err)
	require.Equal(t, "https://ollama.internal", u.String())

	_, err = BaseURL("  ")
	require.Error(t, err)
}

func TestCheckReachable(t *testing.T) {
	srv := ollamatest.NewServer("qwen3:1.7b")
	defer srv.Close()

	c := newTestClient(t, srv)
	require.NoError(t, c.CheckReachable(context.Background()))
}

func TestCheckReachableDown(t *testing.T) {
	srv := ollamatest.NewServer()
	host := srv.Host()
	srv.Close()

	c, err := New(host, Options{StatusTimeout: time.Second})
	require.NoError(t, err)

	err = c.CheckReachable(context.Background())
	require.ErrorIs(t, err, ErrUnreachable)
}

func TestCheckModelAvailable(t *testing.T) {
	srv := ollamatest.NewServer("qwen3:1.7b", "llama3.2:3b")
	defer srv.Close()
	c := newTestClient(t, srv)

	require.NoError(t, c.CheckModelAvailable(context.Background(), "llama3.2:3b"))

	err := c.CheckModelAvailable(context.Background(), "mistral:7b")
	var notFound *ModelNotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, "mistral:7b", notFound.Model)
	require.Equal(t, []string{"qwen3:1.7b", "llama3.2:3b"}, notFound.Available)
}

func TestUnloadAll(t *testing.T) {
	srv := ollamatest.NewServer("qwen3:1.7b", "llama3.2:3b")
	defer srv.Close()
	srv.SetResident("qwen3:1.7b", "llama3.2:3b")
	srv.Sticky["llama3.2:3b"] = true

	c := newTestClient(t, srv)
	report := c.UnloadAll(context.Background())

	require.NoError(t, report.Err)
	require.Equal(t, 2, report.Attempted)
	require.Equal(t, 1, report.Unloaded)
	require.Equal(t, 1, report.Failed)
	require.ElementsMatch(t, []string{"qwen3:1.7b", "llama3.2:3b"}, srv.Unloads)
}

func TestUnloadAllNothingLoaded(t *testing.T) {
	srv := ollamatest.NewServer("qwen3:1.7b")
	defer srv.Close()

	report := newTestClient(t, srv).UnloadAll(context.Background())
	require.Equal(t, UnloadReport{}, report)
}

func TestUnloadAllPsFailure(t *testing.T) {
	srv := ollamatest.NewServer("qwen3:1.7b")
	defer srv.Close()
	srv.PsStatus = http.StatusInternalServerError

	report := newTestClient(t, srv).UnloadAll(context.Background())
	require.Error(t, report.Err)
	require.Zero(t, report.Attempted)
}

func TestGenerate(t *testing.T) {
	srv := ollamatest.NewServer("qwen3:1.7b")
	defer srv.Close()
	srv.Response = "Storm hits coast - thousands evacuated - power restored."

	c := newTestClient(t, srv)
	text, err := c.Generate(context.Background(), "qwen3:1.7b", "summarize this", 5*time.Second)
	require.NoError(t, err)
	require.Equal(t, srv.Response, text)
	require.Equal(t, []string{"summarize this"}, srv.Prompts)
}

func TestGenerateEmptyResponse(t *testing.T) {
	srv := ollamatest.NewServer("qwen3:1.7b")
	defer srv.Close()

	_, err := newTestClient(t, srv).Generate(context.Background(), "qwen3:1.7b", "p", 5*time.Second)
	require.ErrorIs(t, err, ErrGeneration)
}

func TestGenerateServerError(t *testing.T) {
	srv := ollamatest.NewServer("qwen3:1.7b")
	defer srv.Close()
	srv.GenerateStatus = http.StatusInternalServerError

	_, err := newTestClient(t, srv).Generate(context.Background(), "qwen3:1.7b", "p", 5*time.Second)
	require.ErrorIs(t, err, ErrGeneration)
	require.False(t, errors.Is(err, ErrUnreachable))
}

package listfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseArg(t *testing.T) {
	got, err := Parse(" qwen3:1.7b, llama3.2:3b ,,", "")
	require.NoError(t, err)
	require.Equal(t, []string{"qwen3:1.7b", "llama3.2:3b"}, got)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	content := "# news\nhttps://a.example/one\n\n   \n  https://b.example/two  \n#https://skipped.example\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got, err := Parse("ignored", path)
	require.NoError(t, err)
	require.Equal(t, []string{"https://a.example/one", "https://b.example/two"}, got)
}

func TestParseMissingFile(t *testing.T) {
	_, err := Parse("", filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
}

func TestURLs(t *testing.T) {
	got, err := URLs("https://news.example/a?id=1,http://blog.example/post", "")
	require.NoError(t, err)
	require.Len(t, got, 2)

	_, err = URLs("news.example/a", "")
	require.Error(t, err)

	_, err = URLs("https://a.example/x trailing", "")
	require.Error(t, err)
}

func TestModels(t *testing.T) {
	got, err := Models("qwen3:1.7b,nomic-embedding-text,llama3.2:3b", "")
	require.NoError(t, err)
	require.Equal(t, []string{"qwen3:1.7b", "llama3.2:3b"}, got)
}

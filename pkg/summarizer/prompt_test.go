package summarizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pario-ai/briefbench/pkg/models"
)

var cleanCases = []struct {
	name string
	in   string
	want string
}{
	{"think block", "<think>internal notes</think>Answer text", "Answer text"},
	{"think block spans lines", "< THINK >\nstep one\nstep two\n</think >\nFinal.", "Final."},
	{"line edges", "  Line one  \n\n  line two ", "Line one line two"},
	{"thinking trailer", "Think... done thinking. Paris hosts summit.", "Paris hosts summit."},
	{"thinking marker only", "  \n thinking \n\t", ""},
	{"trailer exposed by marker line", "think\nthinking\n.done thinking.", ""},
	{"think block exposed by inner block", "<th<think>x</think>ink>hidden</think>Answer", "Answer"},
	{"unicode spaces", "Café  opens\ttoday", "Café opens today"},
	{"plain", "Storm hits coast - thousands evacuated - power restored.", "Storm hits coast - thousands evacuated - power restored."},
}

func TestClean(t *testing.T) {
	for _, tt := range cleanCases {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

func TestCleanIdempotent(t *testing.T) {
	for _, tt := range cleanCases {
		once := Clean(tt.in)
		require.Equal(t, once, Clean(once), tt.name)
	}
}

func TestValidateFallback(t *testing.T) {
	res := Validate("<think>only reasoning</think>\n  \n", 257)
	require.True(t, res.IsFallback)
	require.Equal(t, models.FallbackSummary, res.CleanedText)
	require.True(t, res.WithinBudget)
}

func TestValidateOverBudget(t *testing.T) {
	res := Validate(strings.Repeat("a", 300), 257)
	require.False(t, res.IsFallback)
	require.Equal(t, 300, res.Length)
	require.False(t, res.WithinBudget)
	require.Len(t, res.CleanedText, 300)
}

func TestValidateCountsRunes(t *testing.T) {
	res := Validate("héllo wörld", 11)
	require.Equal(t, 11, res.Length)
	require.True(t, res.WithinBudget)
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt(257)
	require.True(t, strings.HasPrefix(p, "Respond ONLY with the 257-character summary."))
	require.Contains(t, p, "**strictly 257-character**")
	require.Contains(t, p, "**EXACTLY 257 chars**")
	require.Contains(t, p, "[Main Event] - [Key Detail] - [Outcome]")
	require.Contains(t, p, "No sources, dates, or author names.")

	full := ComposePrompt(models.SummaryRequest{PromptTemplate: p, SourceText: "article"})
	require.Equal(t, p+"\n\narticle", full)
}

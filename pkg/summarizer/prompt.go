package summarizer

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/pario-ai/briefbench/pkg/models"
)

const promptTemplate = `Respond ONLY with the %[1]d-character summary. No thinking output. ` +
	`Summary: Provide a **strictly %[1]d-character** summary of this article. ` +
	`Structure: [Main Event] - [Key Detail] - [Outcome]. ` +
	`Example: "Israel approves new Gaza offensive amid ceasefire talks; military plans phased operations while US seeks deal." ` +
	`**Rules:** ` +
	`1. **EXACTLY %[1]d chars** (count precisely). ` +
	`2. **No incomplete words** (truncate mid-sentence if needed). ` +
	`3. **No sources, dates, or author names.** ` +
	`4. **If over limit, rewrite shorter.**`

// BuildPrompt returns the instruction text for a summary of targetLength characters.
func BuildPrompt(targetLength int) string {
	return fmt.Sprintf(promptTemplate, targetLength)
}

// ComposePrompt appends the article to the instructions.
func ComposePrompt(req models.SummaryRequest) string {
	return req.PromptTemplate + "\n\n" + req.SourceText
}

var (
	thinkBlock   = regexp.MustCompile(`(?is)<\s*think\s*>.*?</\s*think\s*>`)
	thinkTrailer = regexp.MustCompile(`(?i)think[.\s]*\.+\s*done thinking\.`)
	thinkingLine = regexp.MustCompile(`(?im)^[ \t]*thinking[ \t]*$`)
	lineEdges    = regexp.MustCompile(`(?m)^[ \t]+|[ \t]+$`)
)

// Clean strips reasoning artifacts from model output and collapses whitespace.
// Passes repeat until the text stops changing, since a removal can expose a
// new match.
func Clean(raw string) string {
	s := cleanOnce(raw)
	for {
		next := cleanOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

func cleanOnce(raw string) string {
	s := thinkBlock.ReplaceAllString(raw, "")
	s = thinkTrailer.ReplaceAllString(s, "")
	s = thinkingLine.ReplaceAllString(s, "")
	s = lineEdges.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

// Validate cleans raw output and checks it against the target length.
// Empty output becomes models.FallbackSummary.
func Validate(raw string, targetLength int) models.SummaryResult {
	res := models.SummaryResult{
		RawText:      raw,
		CleanedText:  Clean(raw),
		TargetLength: targetLength,
	}
	if res.CleanedText == "" {
		res.CleanedText = models.FallbackSummary
		res.IsFallback = true
	}
	res.Length = utf8.RuneCountInString(res.CleanedText)
	res.WithinBudget = res.Length <= targetLength
	return res
}

package models

// FallbackSummary replaces a summary that is empty after cleaning.
const FallbackSummary = "[Error: No summary generated]"

// ModelDescriptor describes a model known to the inference server.
type ModelDescriptor struct {
	Name     string `json:"name"`
	Resident bool   `json:"resident"`
}

// SummaryRequest is one generation request.
type SummaryRequest struct {
	Model          string `json:"model"`
	TargetLength   int    `json:"target_length"`
	SourceText     string `json:"source_text"`
	PromptTemplate string `json:"prompt_template"`
}

// SummaryResult is the validated output of a generation.
type SummaryResult struct {
	RawText      string `json:"raw_text"`
	CleanedText  string `json:"cleaned_text"`
	Length       int    `json:"length"`
	TargetLength int    `json:"target_length"`
	WithinBudget bool   `json:"within_budget"`
	IsFallback   bool   `json:"is_fallback"`
}

// OutcomeKind tags an Outcome.
type OutcomeKind int

const (
	// Produced means a summary was generated.
	Produced OutcomeKind = iota
	// Reused means a fresh cache entry existed and no work was done.
	Reused
)

func (k OutcomeKind) String() string {
	switch k {
	case Reused:
		return "reused"
	default:
		return "produced"
	}
}

// Outcome is the result of one orchestration. Summary is set only when Kind is Produced.
type Outcome struct {
	Kind    OutcomeKind    `json:"kind"`
	Summary *SummaryResult `json:"summary,omitempty"`
}

package models

import "time"

// BenchmarkRecord is one row of a benchmark report.
type BenchmarkRecord struct {
	URL            string  `json:"url"`
	Model          string  `json:"model"`
	Run            int     `json:"run"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	Success        bool    `json:"success"`
	SummaryLength  int     `json:"summary_length"`
	TargetLength   int     `json:"target_length"`
	LengthMatch    bool    `json:"length_match"`
	CacheExists    bool    `json:"cache_exists"`
	CacheAgeHours  float64 `json:"cache_age_hours"`
	Error          string  `json:"error,omitempty"`
	SummaryExcerpt string  `json:"summary_excerpt,omitempty"`
}

// PairStats summarizes the runs of one (url, model) pair.
// Mean and StdDev cover successful runs only; HasTiming is false when there were none.
type PairStats struct {
	URL        string  `json:"url"`
	Model      string  `json:"model"`
	Runs       int     `json:"runs"`
	Successful int     `json:"successful"`
	Mean       float64 `json:"mean"`
	StdDev     float64 `json:"std_dev"`
	HasTiming  bool    `json:"has_timing"`
}

// AggregateRow is the mean time of successful runs for a (model, url) pair.
type AggregateRow struct {
	Model       string  `json:"model"`
	URL         string  `json:"url"`
	MeanSeconds float64 `json:"mean_seconds"`
	Runs        int     `json:"runs"`
}

// Sweep is a persisted benchmark invocation.
type Sweep struct {
	ID           string    `json:"id"`
	Host         string    `json:"host"`
	TargetLength int       `json:"target_length"`
	Runs         int       `json:"runs"`
	ReportPath   string    `json:"report_path"`
	StartedAt    time.Time `json:"started_at"`
	RecordCount  int       `json:"record_count"`
}

// SweepSummary aggregates the recorded runs of a sweep by model and url.
type SweepSummary struct {
	Model       string  `json:"model"`
	URL         string  `json:"url"`
	Runs        int     `json:"runs"`
	Successful  int     `json:"successful"`
	MeanSeconds float64 `json:"mean_seconds"`
	LengthMatch int     `json:"length_match"`
}

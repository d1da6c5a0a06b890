package models

// Record is one free-text comment loaded from the input corpus.
// Index is assigned once at load time, 0-based, and stable for the run.
type Record struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// Theme is a named category produced by discovery or by the fallback table.
type Theme struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

// ThemeUncategorized is the synthetic catch-all theme name. It always
// exists for a run, even when no record lands in it.
const ThemeUncategorized = "Uncategorized"

// Classification assigns one record to one theme.
type Classification struct {
	RecordIndex int     `json:"record_index"`
	ThemeName   string  `json:"theme_name"`
	Confidence  float64 `json:"confidence"`
}

// SentimentCounts holds a three-way sentiment tally.
type SentimentCounts struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Neutral  int `json:"neutral"`
}

// Total returns the number of scored texts behind the tally.
func (s SentimentCounts) Total() int {
	return s.Positive + s.Negative + s.Neutral
}

// Business impact tiers, highest first.
const (
	ImpactHigh   = "high"
	ImpactMedium = "medium"
	ImpactLow    = "low"
)

// ThemeGroup aggregates all classifications sharing a theme plus the
// metrics computed over its members. Built once, never mutated.
type ThemeGroup struct {
	Theme          Theme           `json:"theme"`
	Volume         int             `json:"volume"`
	Percentage     int             `json:"percentage"`
	Sentiment      string          `json:"sentiment"`
	SentimentSplit SentimentCounts `json:"sentiment_split"`
	Confidence     int             `json:"confidence"`
	BusinessImpact string          `json:"business_impact"`
	Examples       []string        `json:"examples,omitempty"`
}

// Diagnostics reports how a run was classified, for validation downstream.
type Diagnostics struct {
	RunID               string `json:"run_id"`
	EnhancedByAI        bool   `json:"enhanced_by_ai"`
	RecordCount         int    `json:"record_count"`
	ClassificationCount int    `json:"classification_count"`
	ThemeCount          int    `json:"theme_count"`
}

// Result is the output of one full analysis run.
type Result struct {
	ThemeGroups      []ThemeGroup    `json:"theme_groups"`
	OverallSentiment SentimentCounts `json:"overall_sentiment"`
	Diagnostics      Diagnostics     `json:"diagnostics"`
}

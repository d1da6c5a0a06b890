package classifier

import (
	"strings"

	"github.com/hannah-abbo/ai-comment-analysis-tool/internal/models"
)

// Confidence levels for offline keyword classification.
const (
	fallbackMatchConfidence   = 0.7
	fallbackNoMatchConfidence = 0.3
)

// fallbackThemes is the fixed offline theme table. Order matters: ties on
// match count keep the earlier theme.
var fallbackThemes = []models.Theme{
	{
		Name:        "Pricing & Value",
		Description: "Cost, fees, and whether the product felt worth the money",
		Keywords:    []string{"price", "pricing", "expensive", "cheap", "cost", "value", "overpriced", "fee", "charge", "refund", "worth"},
	},
	{
		Name:        "Customer Service",
		Description: "Interactions with staff and support",
		Keywords:    []string{"staff", "service", "support", "rude", "helpful", "friendly", "agent", "representative", "response", "waited", "ignored"},
	},
	{
		Name:        "Product Quality",
		Description: "Build quality, reliability, and defects",
		Keywords:    []string{"quality", "broken", "defect", "defective", "durable", "works", "working", "reliable", "material", "cheaply", "stopped"},
	},
	{
		Name:        "Delivery & Timing",
		Description: "Shipping, delays, and turnaround time",
		Keywords:    []string{"delivery", "shipping", "shipped", "late", "delay", "delayed", "arrived", "wait", "slow", "tracking", "package"},
	},
	{
		Name:        "Ease of Use",
		Description: "Setup, interface, and day-to-day usability",
		Keywords:    []string{"easy", "difficult", "confusing", "intuitive", "interface", "setup", "install", "use", "usability", "complicated", "navigate"},
	},
}

// FallbackClassifier is the deterministic offline classifier used when
// the external capability is unavailable or unconfigured. Identical input
// always yields identical output.
type FallbackClassifier struct {
	themes []models.Theme
}

func NewFallbackClassifier() *FallbackClassifier {
	return &FallbackClassifier{themes: fallbackThemes}
}

// Themes returns the fixed table plus the synthetic catch-all, in the
// order the aggregator should see them.
func (f *FallbackClassifier) Themes() []models.Theme {
	out := make([]models.Theme, 0, len(f.themes)+1)
	out = append(out, f.themes...)
	out = append(out, uncategorizedTheme())
	return out
}

// Classify assigns every record by keyword-occurrence count. The theme
// with the strict maximum count wins; zero matches go to the catch-all.
func (f *FallbackClassifier) Classify(records []models.Record) []models.Classification {
	out := make([]models.Classification, 0, len(records))
	for _, r := range records {
		name, matched := f.bestTheme(r.Text)
		confidence := fallbackNoMatchConfidence
		if matched {
			confidence = fallbackMatchConfidence
		}
		out = append(out, models.Classification{
			RecordIndex: r.Index,
			ThemeName:   name,
			Confidence:  confidence,
		})
	}
	return out
}

func (f *FallbackClassifier) bestTheme(text string) (string, bool) {
	lower := strings.ToLower(text)

	best := models.ThemeUncategorized
	bestCount := 0
	for _, t := range f.themes {
		count := 0
		for _, kw := range t.Keywords {
			count += strings.Count(lower, kw)
		}
		if count > bestCount {
			best = t.Name
			bestCount = count
		}
	}
	return best, bestCount > 0
}

package aggregate

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/hannah-abbo/ai-comment-analysis-tool/internal/models"
	"github.com/hannah-abbo/ai-comment-analysis-tool/internal/sentiment"
)

// maxExamplesPerGroup caps the member texts carried into the report.
const maxExamplesPerGroup = 3

// Aggregate partitions classifications by theme and computes the
// per-group metrics. Themes with no members are dropped; the synthetic
// catch-all appears only when non-empty. Groups come back ranked by
// business impact, then volume.
//
// The load-bearing invariant, checked before returning: the group volumes
// sum to the record count, so downstream percentages are consistent with
// the input set.
func Aggregate(records []models.Record, themes []models.Theme, classifications []models.Classification) ([]models.ThemeGroup, error) {
	if len(classifications) != len(records) {
		return nil, fmt.Errorf("aggregate: %d classifications for %d records", len(classifications), len(records))
	}

	byName := make(map[string]models.Theme, len(themes)+1)
	order := make([]string, 0, len(themes)+1)
	for _, t := range themes {
		if _, ok := byName[t.Name]; ok {
			continue
		}
		byName[t.Name] = t
		order = append(order, t.Name)
	}
	if _, ok := byName[models.ThemeUncategorized]; !ok {
		byName[models.ThemeUncategorized] = models.Theme{
			Name:        models.ThemeUncategorized,
			Description: "Comments that did not match any other theme",
		}
		order = append(order, models.ThemeUncategorized)
	}

	members := make(map[string][]models.Classification, len(byName))
	for _, c := range classifications {
		name := c.ThemeName
		if _, ok := byName[name]; !ok {
			// Unknown names are routed to the catch-all rather than
			// silently dropped, preserving the volume invariant.
			name = models.ThemeUncategorized
		}
		members[name] = append(members[name], c)
	}

	kept := make([]string, 0, len(order))
	for _, name := range order {
		if len(members[name]) > 0 {
			kept = append(kept, name)
		}
	}

	// Per-group metrics have no cross-group dependency, so they fan out.
	groups := make([]models.ThemeGroup, len(kept))
	var wg sync.WaitGroup
	for i, name := range kept {
		wg.Add(1)
		go func(slot int, theme models.Theme, cls []models.Classification) {
			defer wg.Done()
			groups[slot] = buildGroup(theme, cls, records, len(records))
		}(i, byName[name], members[name])
	}
	wg.Wait()

	sort.SliceStable(groups, func(i, j int) bool {
		ri, rj := impactRank(groups[i].BusinessImpact), impactRank(groups[j].BusinessImpact)
		if ri != rj {
			return ri > rj
		}
		return groups[i].Volume > groups[j].Volume
	})

	volumeSum := 0
	for _, g := range groups {
		volumeSum += g.Volume
	}
	if volumeSum != len(records) {
		return nil, fmt.Errorf("aggregate: group volumes sum to %d, expected %d", volumeSum, len(records))
	}
	return groups, nil
}

func buildGroup(theme models.Theme, cls []models.Classification, records []models.Record, total int) models.ThemeGroup {
	var split models.SentimentCounts
	var confidenceSum float64
	examples := make([]string, 0, maxExamplesPerGroup)

	for _, c := range cls {
		confidenceSum += c.Confidence

		text := ""
		if c.RecordIndex >= 0 && c.RecordIndex < len(records) {
			text = records[c.RecordIndex].Text
		}
		switch sentiment.Classify(text) {
		case sentiment.LabelPositive:
			split.Positive++
		case sentiment.LabelNegative:
			split.Negative++
		default:
			split.Neutral++
		}
		if len(examples) < maxExamplesPerGroup && text != "" {
			examples = append(examples, text)
		}
	}

	volume := len(cls)
	percentage := int(math.Round(float64(volume) / float64(total) * 100))
	label := majoritySentiment(split)

	return models.ThemeGroup{
		Theme:          theme,
		Volume:         volume,
		Percentage:     percentage,
		Sentiment:      label,
		SentimentSplit: split,
		Confidence:     int(math.Round(confidenceSum / float64(volume) * 100)),
		BusinessImpact: businessImpact(label, percentage),
		Examples:       examples,
	}
}

// majoritySentiment picks the strictly most common label; any tie at the
// top defaults to neutral.
func majoritySentiment(s models.SentimentCounts) string {
	switch {
	case s.Positive > s.Negative && s.Positive > s.Neutral:
		return sentiment.LabelPositive
	case s.Negative > s.Positive && s.Negative > s.Neutral:
		return sentiment.LabelNegative
	default:
		return sentiment.LabelNeutral
	}
}

func businessImpact(label string, percentage int) string {
	if label == sentiment.LabelNegative && percentage > 10 {
		return models.ImpactHigh
	}
	if percentage > 15 {
		return models.ImpactMedium
	}
	return models.ImpactLow
}

func impactRank(impact string) int {
	switch impact {
	case models.ImpactHigh:
		return 2
	case models.ImpactMedium:
		return 1
	default:
		return 0
	}
}

package sentiment

import (
	"strings"
	"unicode"
)

// Score is the raw lexical result for one text. Score is the summed
// valence of matched tokens; Comparative is Score divided by token count,
// so long rambling texts don't out-score short pointed ones.
type Score struct {
	Score       float64
	Comparative float64
}

// Sentiment labels.
const (
	LabelPositive = "positive"
	LabelNegative = "negative"
	LabelNeutral  = "neutral"
)

// comparativeThreshold separates neutral from positive/negative on the
// comparative axis.
const comparativeThreshold = 0.1

// valence is a compact AFINN-style lexicon tuned for business feedback.
var valence = map[string]float64{
	"amazing":       4,
	"awesome":       4,
	"excellent":     3,
	"fantastic":     4,
	"great":         3,
	"good":          3,
	"love":          3,
	"loved":         3,
	"helpful":       2,
	"friendly":      2,
	"fast":          1,
	"easy":          1,
	"clean":         2,
	"comfortable":   2,
	"recommend":     2,
	"perfect":       3,
	"pleasant":      3,
	"happy":         3,
	"satisfied":     2,
	"impressed":     3,
	"smooth":        2,
	"reliable":      2,
	"responsive":    2,
	"best":          3,
	"nice":          3,
	"enjoyed":       2,
	"awful":         -3,
	"bad":           -3,
	"terrible":      -3,
	"horrible":      -3,
	"worst":         -3,
	"hate":          -3,
	"hated":         -3,
	"poor":          -2,
	"rude":          -2,
	"slow":          -2,
	"dirty":         -2,
	"broken":        -2,
	"expensive":     -2,
	"overpriced":    -2,
	"disappointed":  -2,
	"disappointing": -2,
	"frustrating":   -2,
	"frustrated":    -2,
	"useless":       -2,
	"confusing":     -2,
	"unhelpful":     -2,
	"unreliable":    -2,
	"late":          -1,
	"problem":       -2,
	"problems":      -2,
	"issue":         -1,
	"issues":        -1,
	"refund":        -1,
	"cancel":        -1,
	"never":         -1,
	"waste":         -2,
	"wrong":         -2,
	"failed":        -2,
	"failure":       -2,
	"complaint":     -2,
	"unacceptable":  -3,
}

// Override phrases. Short idiomatic feedback ("staff was rude") is easy
// for a comparative threshold to mis-bucket, so explicit triggers win
// over the raw score. Negatives are checked first.
var negativeTriggers = []string{
	"rude", "terrible", "awful", "horrible", "worst", "unacceptable",
	"expensive", "overpriced", "broken", "useless", "disappointed",
	"disappointing", "waste of", "never again", "not worth", "too slow",
	"no help", "not working", "doesn't work", "did not work",
}

var positiveTriggers = []string{
	"excellent", "amazing", "fantastic", "love it", "loved it",
	"highly recommend", "great service", "very helpful", "super friendly",
	"exceeded expectations", "five stars", "5 stars",
}

// Analyze scores one text lexically. Pure function, no I/O.
func Analyze(text string) Score {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return Score{}
	}

	var total float64
	for _, tok := range tokens {
		total += valence[tok]
	}

	return Score{
		Score:       total,
		Comparative: total / float64(len(tokens)),
	}
}

// Classify buckets one text into positive/negative/neutral. The override
// list takes precedence over the comparative threshold.
func Classify(text string) string {
	lower := strings.ToLower(text)

	for _, trigger := range negativeTriggers {
		if strings.Contains(lower, trigger) {
			return LabelNegative
		}
	}
	for _, trigger := range positiveTriggers {
		if strings.Contains(lower, trigger) {
			return LabelPositive
		}
	}

	s := Analyze(text)
	switch {
	case s.Comparative > comparativeThreshold:
		return LabelPositive
	case s.Comparative < -comparativeThreshold:
		return LabelNegative
	default:
		return LabelNeutral
	}
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})
}

package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/hannah-abbo/ai-comment-analysis-tool/internal/models"
)

// stubCompleter plays back canned responses or errors, one per call.
type stubCompleter struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (s *stubCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	i := s.calls
	s.calls++
	s.prompts = append(s.prompts, req.Messages[0].Content)

	if i < len(s.errs) && s.errs[i] != nil {
		return openai.ChatCompletionResponse{}, s.errs[i]
	}
	resp := ""
	if i < len(s.responses) {
		resp = s.responses[i]
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: resp}},
		},
	}, nil
}

func testOptions() BatchOptions {
	return BatchOptions{
		BatchFloor:        50,
		MaxBatches:        10,
		InterBatchDelay:   0,
		RateLimitCooldown: 0,
	}
}

func makeRecords(n int) []models.Record {
	records := make([]models.Record, n)
	for i := range records {
		records[i] = models.Record{Index: i, Text: fmt.Sprintf("comment %d", i)}
	}
	return records
}

func testThemes() []models.Theme {
	return []models.Theme{
		{Name: "Billing", Description: "payment and invoices"},
		{Name: "Onboarding", Description: "getting started"},
	}
}

// payloadFor builds a well-formed response covering records [start, end).
func payloadFor(start, end int, theme string, confidence float64) string {
	var entries []string
	for i := start; i < end; i++ {
		entries = append(entries, fmt.Sprintf(`{"commentIndex": %d, "themeName": %q, "confidence": %v}`, i+1, theme, confidence))
	}
	return `{"classifications": [` + strings.Join(entries, ", ") + `]}`
}

func TestBatchSize(t *testing.T) {
	tests := []struct {
		total, floor, maxBatches, want int
	}{
		{55, 50, 10, 50},   // floor dominates
		{1000, 50, 10, 100}, // ceiling dominates
		{10, 50, 10, 50},
		{501, 50, 10, 51},
		{500, 50, 10, 50},
	}
	for _, tt := range tests {
		if got := batchSize(tt.total, tt.floor, tt.maxBatches); got != tt.want {
			t.Errorf("batchSize(%d, %d, %d) = %d, want %d", tt.total, tt.floor, tt.maxBatches, got, tt.want)
		}
	}
}

func TestClassifyFiftyFiveRecordsIsTwoBatches(t *testing.T) {
	stub := &stubCompleter{responses: []string{
		payloadFor(0, 50, "Billing", 0.9),
		payloadFor(50, 55, "Onboarding", 0.8),
	}}
	c := NewBatchClassifier(stub, "test-model", testOptions(), zap.NewNop())

	got, err := c.Classify(context.Background(), makeRecords(55), testThemes())
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if stub.calls != 2 {
		t.Errorf("expected 2 batch requests, got %d", stub.calls)
	}
	if len(got) != 55 {
		t.Errorf("expected 55 classifications, got %d", len(got))
	}
	if got[0].ThemeName != "Billing" || got[54].ThemeName != "Onboarding" {
		t.Errorf("unexpected assignments: first=%q last=%q", got[0].ThemeName, got[54].ThemeName)
	}
}

func TestClassifyPartitionCoversEveryIndexOnce(t *testing.T) {
	for _, total := range []int{1, 49, 50, 55, 101, 437, 1000} {
		t.Run(fmt.Sprintf("total=%d", total), func(t *testing.T) {
			// Malformed responses everywhere: every batch degrades, which
			// still must cover every index exactly once.
			stub := &stubCompleter{}
			c := NewBatchClassifier(stub, "test-model", testOptions(), zap.NewNop())

			got, err := c.Classify(context.Background(), makeRecords(total), testThemes())
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if err := verifyCoverage(got, total); err != nil {
				t.Errorf("coverage violated: %v", err)
			}
		})
	}
}

func TestClassifyMalformedResponseNeverDropsRecords(t *testing.T) {
	stub := &stubCompleter{responses: []string{"I refuse to answer in JSON."}}
	c := NewBatchClassifier(stub, "test-model", testOptions(), zap.NewNop())

	got, err := c.Classify(context.Background(), makeRecords(7), testThemes())
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(got) != 7 {
		t.Fatalf("expected 7 degraded classifications, got %d", len(got))
	}
	for _, cls := range got {
		if cls.ThemeName != "Billing" {
			t.Errorf("record %d assigned %q, want first theme Billing", cls.RecordIndex, cls.ThemeName)
		}
		if cls.Confidence != degradedConfidence {
			t.Errorf("record %d confidence %v, want %v", cls.RecordIndex, cls.Confidence, degradedConfidence)
		}
	}
}

func TestClassifyDegradeWithNoThemesUsesCatchAll(t *testing.T) {
	stub := &stubCompleter{responses: []string{"nope"}}
	c := NewBatchClassifier(stub, "test-model", testOptions(), zap.NewNop())

	got, err := c.Classify(context.Background(), makeRecords(3), nil)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	for _, cls := range got {
		if cls.ThemeName != models.ThemeUncategorized {
			t.Errorf("record %d assigned %q, want %q", cls.RecordIndex, cls.ThemeName, models.ThemeUncategorized)
		}
	}
}

func TestClassifyTruncatedResponseRecoversAndFillsGaps(t *testing.T) {
	// Valid JSON for the first two entries, then the payload is cut off
	// mid-entry with no closing brace.
	truncated := `{"classifications": [` +
		`{"commentIndex": 1, "themeName": "Billing", "confidence": 0.9}, ` +
		`{"commentIndex": 2, "themeName": "Onboarding", "confidence": 0.85}, ` +
		`{"commentIndex": 3, "themeNa`
	stub := &stubCompleter{responses: []string{truncated}}
	c := NewBatchClassifier(stub, "test-model", testOptions(), zap.NewNop())

	got, err := c.Classify(context.Background(), makeRecords(5), testThemes())
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 classifications, got %d", len(got))
	}

	if got[0].ThemeName != "Billing" || got[0].Confidence != 0.9 {
		t.Errorf("record 0 = %+v, want repaired Billing/0.9", got[0])
	}
	if got[1].ThemeName != "Onboarding" || got[1].Confidence != 0.85 {
		t.Errorf("record 1 = %+v, want repaired Onboarding/0.85", got[1])
	}
	for _, cls := range got[2:] {
		if cls.ThemeName != "Billing" || cls.Confidence != degradedConfidence {
			t.Errorf("record %d = %+v, want degraded first theme", cls.RecordIndex, cls)
		}
	}
}

func TestClassifyRateLimitRetriesOnce(t *testing.T) {
	rateErr := &openai.APIError{HTTPStatusCode: 429, Message: "rate limit exceeded"}
	stub := &stubCompleter{
		errs:      []error{rateErr, nil},
		responses: []string{"", payloadFor(0, 4, "Billing", 0.9)},
	}
	c := NewBatchClassifier(stub, "test-model", testOptions(), zap.NewNop())

	got, err := c.Classify(context.Background(), makeRecords(4), testThemes())
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if stub.calls != 2 {
		t.Errorf("expected exactly one retry (2 calls), got %d", stub.calls)
	}
	for _, cls := range got {
		if cls.Confidence != 0.9 {
			t.Errorf("record %d not classified by retry: %+v", cls.RecordIndex, cls)
		}
	}
}

func TestClassifyRateLimitRetryFailureDegrades(t *testing.T) {
	rateErr := &openai.APIError{HTTPStatusCode: 429, Message: "rate limit exceeded"}
	stub := &stubCompleter{errs: []error{rateErr, rateErr}}
	c := NewBatchClassifier(stub, "test-model", testOptions(), zap.NewNop())

	got, err := c.Classify(context.Background(), makeRecords(4), testThemes())
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if stub.calls != 2 {
		t.Errorf("expected 2 calls (no second retry), got %d", stub.calls)
	}
	for _, cls := range got {
		if cls.Confidence != degradedConfidence {
			t.Errorf("record %d = %+v, want degraded", cls.RecordIndex, cls)
		}
	}
}

func TestClassifyOtherErrorDegradesWithoutRetry(t *testing.T) {
	stub := &stubCompleter{errs: []error{errors.New("connection reset")}}
	c := NewBatchClassifier(stub, "test-model", testOptions(), zap.NewNop())

	got, err := c.Classify(context.Background(), makeRecords(3), testThemes())
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if stub.calls != 1 {
		t.Errorf("expected 1 call (no retry on non-rate-limit error), got %d", stub.calls)
	}
	if len(got) != 3 {
		t.Errorf("expected 3 degraded classifications, got %d", len(got))
	}
}

func TestClassifyUnknownThemeNameRemapsToCatchAll(t *testing.T) {
	stub := &stubCompleter{responses: []string{payloadFor(0, 2, "Made Up Theme", 0.9)}}
	c := NewBatchClassifier(stub, "test-model", testOptions(), zap.NewNop())

	got, err := c.Classify(context.Background(), makeRecords(2), testThemes())
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	for _, cls := range got {
		if cls.ThemeName != models.ThemeUncategorized {
			t.Errorf("record %d assigned %q, want %q", cls.RecordIndex, cls.ThemeName, models.ThemeUncategorized)
		}
	}
}

func TestClassifyCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stub := &stubCompleter{}
	c := NewBatchClassifier(stub, "test-model", testOptions(), zap.NewNop())

	if _, err := c.Classify(ctx, makeRecords(3), testThemes()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestClassifyThrottlesBetweenBatches(t *testing.T) {
	opts := testOptions()
	opts.InterBatchDelay = 30 * time.Millisecond
	stub := &stubCompleter{responses: []string{
		payloadFor(0, 50, "Billing", 0.9),
		payloadFor(50, 55, "Billing", 0.9),
	}}
	c := NewBatchClassifier(stub, "test-model", opts, zap.NewNop())

	start := time.Now()
	if _, err := c.Classify(context.Background(), makeRecords(55), testThemes()); err != nil {
		t.Fatalf("Classify: %v", err)
	}
	// First batch is immediate; the second waits out one delay.
	if elapsed := time.Since(start); elapsed < opts.InterBatchDelay {
		t.Errorf("elapsed %v, expected at least one inter-batch delay of %v", elapsed, opts.InterBatchDelay)
	}
}

func TestBatchPromptEnumeratesCorpusWide(t *testing.T) {
	records := makeRecords(55)
	prompt := buildBatchPrompt(records[50:55], testThemes())

	if !strings.Contains(prompt, "51. comment 50") {
		t.Errorf("prompt should enumerate 1-based corpus-wide indices, got:\n%s", prompt)
	}
	if !strings.Contains(prompt, "- Billing: payment and invoices") {
		t.Errorf("prompt should list theme names and descriptions")
	}
}

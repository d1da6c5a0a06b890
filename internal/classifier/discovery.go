package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/hannah-abbo/ai-comment-analysis-tool/internal/models"
)

// Sample caps for the discovery request. A large corpus gets a smaller
// sample so the discovery call stays within budget regardless of size.
const (
	sampleCapSmallCorpus = 50
	sampleCapLargeCorpus = 30
	largeCorpusTokens    = 10000
)

// Discoverer issues the single theme-discovery request against a bounded
// prefix of the corpus.
type Discoverer struct {
	client      completionClient
	model       string
	maxTokens   int
	temperature float64
	logger      *zap.Logger
}

func NewDiscoverer(client completionClient, model string, maxTokens int, temperature float64, logger *zap.Logger) *Discoverer {
	return &Discoverer{
		client:      client,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		logger:      logger,
	}
}

type themePayload struct {
	Themes []struct {
		Name        string   `json:"name"`
		Description string   `json:"description"`
		Keywords    []string `json:"keywords"`
	} `json:"themes"`
}

// Discover asks the model for 3-8 themes covering a sample of the corpus.
// No retry: any failure routes the whole run to the fallback classifier.
func (d *Discoverer) Discover(ctx context.Context, records []models.Record) ([]models.Theme, error) {
	if d.client == nil {
		return nil, ErrDiscoveryUnavailable
	}

	sample := records[:sampleSize(records)]
	prompt := buildDiscoveryPrompt(sample)

	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: d.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   d.maxTokens,
		Temperature: float32(d.temperature),
	})
	if err != nil {
		return nil, fmt.Errorf("theme discovery request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrMalformedThemeResponse
	}

	themes, err := parseThemes(resp.Choices[0].Message.Content)
	if err != nil {
		d.logger.Error("Failed to parse theme discovery response",
			zap.Error(err),
			zap.Int("sample_size", len(sample)))
		return nil, err
	}

	d.logger.Info("Discovered themes",
		zap.Int("count", len(themes)),
		zap.Int("sample_size", len(sample)))
	return themes, nil
}

// sampleSize returns the discovery sample length for a corpus: a
// deterministic prefix, capped lower when the corpus is token-heavy.
func sampleSize(records []models.Record) int {
	limit := sampleCapSmallCorpus
	if EstimateTokens(records) > largeCorpusTokens {
		limit = sampleCapLargeCorpus
	}
	if len(records) < limit {
		return len(records)
	}
	return limit
}

func buildDiscoveryPrompt(sample []models.Record) string {
	var lines strings.Builder
	for i, r := range sample {
		lines.WriteString(fmt.Sprintf("%d. %s\n", i+1, strings.TrimSpace(r.Text)))
	}

	return fmt.Sprintf(`Analyze the following customer comments and identify between 3 and 8 recurring themes.

For each theme provide a short name, a one-sentence description, and a few keywords.

Respond with JSON only (no markdown):
{"themes": [{"name": "Theme Name", "description": "what the theme covers", "keywords": ["word1", "word2"]}]}

Comments:
%s`, lines.String())
}

func parseThemes(raw string) ([]models.Theme, error) {
	arr, state := extractArray(raw, "themes")
	if state == payloadMalformed {
		return nil, ErrMalformedThemeResponse
	}

	var payload themePayload
	if err := json.Unmarshal([]byte(`{"themes":`+arr+`}`), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedThemeResponse, err)
	}

	seen := make(map[string]struct{}, len(payload.Themes))
	themes := make([]models.Theme, 0, len(payload.Themes))
	for _, t := range payload.Themes {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			continue
		}
		if _, dup := seen[strings.ToLower(name)]; dup {
			continue
		}
		seen[strings.ToLower(name)] = struct{}{}
		themes = append(themes, models.Theme{
			Name:        name,
			Description: strings.TrimSpace(t.Description),
			Keywords:    t.Keywords,
		})
	}
	if len(themes) == 0 {
		return nil, ErrMalformedThemeResponse
	}
	return themes, nil
}

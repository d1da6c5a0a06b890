package classifier

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hannah-abbo/ai-comment-analysis-tool/internal/models"
)

var (
	// ErrDiscoveryUnavailable means the classification capability is not
	// configured at all. Callers route the run to the fallback classifier.
	ErrDiscoveryUnavailable = errors.New("classification capability not configured")

	// ErrMalformedThemeResponse means the discovery payload could not be
	// parsed into themes, even after repair.
	ErrMalformedThemeResponse = errors.New("malformed theme discovery response")
)

// completionClient is the slice of the OpenAI client this package uses.
// *openai.Client satisfies it; tests substitute a stub.
type completionClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// EstimateTokens approximates the token volume of a record set. Four
// characters per token is close enough for budget decisions.
func EstimateTokens(records []models.Record) int {
	chars := 0
	for _, r := range records {
		chars += len(r.Text)
	}
	return chars / 4
}

// isRateLimited reports whether an OpenAI call failed on a rate limit.
func isRateLimited(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429
	}
	return false
}

// uncategorizedTheme is the synthetic catch-all every run carries.
func uncategorizedTheme() models.Theme {
	return models.Theme{
		Name:        models.ThemeUncategorized,
		Description: "Comments that did not match any other theme",
	}
}

package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/hannah-abbo/ai-comment-analysis-tool/internal/aggregate"
	"github.com/hannah-abbo/ai-comment-analysis-tool/internal/classifier"
	"github.com/hannah-abbo/ai-comment-analysis-tool/internal/models"
	"github.com/hannah-abbo/ai-comment-analysis-tool/internal/sentiment"
	"github.com/hannah-abbo/ai-comment-analysis-tool/pkg/config"
)

var (
	// ErrEmptyCorpus is fatal: there is nothing to classify.
	ErrEmptyCorpus = errors.New("no processable records: at least one non-empty comment is required")

	// ErrOversizedCorpus is fatal and raised before any external call, so
	// no quota is burned on a request that cannot succeed.
	ErrOversizedCorpus = errors.New("corpus exceeds the maximum token volume for one run")
)

// Runner drives one analysis run: discovery, ordered batch
// classification, then aggregation, rerouting through the offline
// fallback when the external capability fails or is not configured.
type Runner struct {
	discoverer      *classifier.Discoverer
	batch           *classifier.BatchClassifier
	fallback        *classifier.FallbackClassifier
	minRecords      int
	maxCorpusTokens int
	logger          *zap.Logger
}

// New builds a Runner from configuration. With no API key configured the
// Runner is offline-only and every run takes the fallback path.
func New(cfg *config.Config, logger *zap.Logger) *Runner {
	r := &Runner{
		fallback:        classifier.NewFallbackClassifier(),
		minRecords:      cfg.Pipeline.MinRecords,
		maxCorpusTokens: cfg.Pipeline.MaxCorpusTokens,
		logger:          logger,
	}
	if r.minRecords < 1 {
		r.minRecords = 1
	}

	if cfg.OpenAI.APIKey != "" {
		client := openai.NewClient(cfg.OpenAI.APIKey)
		r.discoverer = classifier.NewDiscoverer(client, cfg.OpenAI.Model, cfg.OpenAI.MaxTokens, cfg.OpenAI.Temperature, logger)
		r.batch = classifier.NewBatchClassifier(client, cfg.OpenAI.Model, classifier.BatchOptions{
			BatchFloor:        cfg.Pipeline.BatchFloor,
			MaxBatches:        cfg.Pipeline.MaxBatches,
			InterBatchDelay:   cfg.Pipeline.InterBatchDelay(),
			RateLimitCooldown: cfg.Pipeline.RateLimitCooldown(),
		}, logger)
	}

	return r
}

// Run executes one full analysis over the corpus. Fatal errors (empty or
// oversized corpus, cancellation, a broken coverage invariant) surface to
// the caller; every classification-service failure is absorbed into the
// fallback path or degraded confidences instead.
func (r *Runner) Run(ctx context.Context, records []models.Record) (*models.Result, error) {
	if len(records) < r.minRecords {
		return nil, fmt.Errorf("%w (got %d, need %d)", ErrEmptyCorpus, len(records), r.minRecords)
	}
	if tokens := classifier.EstimateTokens(records); tokens > r.maxCorpusTokens {
		return nil, fmt.Errorf("%w (estimated %d tokens, limit %d)", ErrOversizedCorpus, tokens, r.maxCorpusTokens)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	themes, classifications, enhanced, err := r.classify(ctx, records)
	if err != nil {
		return nil, err
	}

	groups, err := aggregate.Aggregate(records, themes, classifications)
	if err != nil {
		return nil, err
	}

	result := &models.Result{
		ThemeGroups:      groups,
		OverallSentiment: overallSentiment(records),
		Diagnostics: models.Diagnostics{
			RunID:               uuid.NewString(),
			EnhancedByAI:        enhanced,
			RecordCount:         len(records),
			ClassificationCount: len(classifications),
			ThemeCount:          len(groups),
		},
	}

	r.logger.Info("Analysis run complete",
		zap.String("run_id", result.Diagnostics.RunID),
		zap.Bool("enhanced_by_ai", enhanced),
		zap.Int("records", len(records)),
		zap.Int("theme_groups", len(groups)))
	return result, nil
}

func (r *Runner) classify(ctx context.Context, records []models.Record) ([]models.Theme, []models.Classification, bool, error) {
	if r.discoverer == nil {
		r.logger.Info("Classification capability not configured, using offline fallback")
		return r.fallback.Themes(), r.fallback.Classify(records), false, nil
	}

	themes, err := r.discoverer.Discover(ctx, records)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, false, ctx.Err()
		}
		// Without themes the batch classifier has nothing to classify
		// against, so any discovery failure reroutes the whole run.
		r.logger.Warn("Theme discovery failed, using offline fallback", zap.Error(err))
		return r.fallback.Themes(), r.fallback.Classify(records), false, nil
	}

	classifications, err := r.batch.Classify(ctx, records, themes)
	if err != nil {
		return nil, nil, false, err
	}
	return themes, classifications, true, nil
}

func overallSentiment(records []models.Record) models.SentimentCounts {
	var counts models.SentimentCounts
	for _, rec := range records {
		switch sentiment.Classify(rec.Text) {
		case sentiment.LabelPositive:
			counts.Positive++
		case sentiment.LabelNegative:
			counts.Negative++
		default:
			counts.Neutral++
		}
	}
	return counts
}

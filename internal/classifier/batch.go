package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hannah-abbo/ai-comment-analysis-tool/internal/models"
)

// degradedConfidence marks classifications synthesized when a batch could
// not be classified normally.
const degradedConfidence = 0.5

// BatchOptions tunes batch sizing and throttling.
type BatchOptions struct {
	// BatchFloor is the minimum records per batch, so tiny corpora still
	// issue very few calls.
	BatchFloor int
	// MaxBatches bounds the number of external calls for a run.
	MaxBatches int
	// InterBatchDelay is the fixed throttle between consecutive batch
	// requests. Not applied before the first batch.
	InterBatchDelay time.Duration
	// RateLimitCooldown is the wait before the single retry after a
	// rate-limited request.
	RateLimitCooldown time.Duration
}

// DefaultBatchOptions match the external service's sustained rate limit.
func DefaultBatchOptions() BatchOptions {
	return BatchOptions{
		BatchFloor:        50,
		MaxBatches:        10,
		InterBatchDelay:   10 * time.Second,
		RateLimitCooldown: 60 * time.Second,
	}
}

// BatchClassifier classifies the full corpus against a discovered theme
// set, one bounded batch at a time, strictly in order. Batches are never
// parallelized: the inter-batch delay is a deliberate global throttle.
type BatchClassifier struct {
	client  completionClient
	model   string
	opts    BatchOptions
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewBatchClassifier(client completionClient, model string, opts BatchOptions, logger *zap.Logger) *BatchClassifier {
	if opts.BatchFloor < 1 {
		opts.BatchFloor = 1
	}
	if opts.MaxBatches < 1 {
		opts.MaxBatches = 1
	}
	// Burst 1 means the first Wait is immediate and every later Wait
	// spaces requests by InterBatchDelay.
	return &BatchClassifier{
		client:  client,
		model:   model,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Every(opts.InterBatchDelay), 1),
		logger:  logger,
	}
}

type classificationPayload struct {
	Classifications []struct {
		CommentIndex int     `json:"commentIndex"`
		ThemeName    string  `json:"themeName"`
		Confidence   float64 `json:"confidence"`
	} `json:"classifications"`
}

// Classify assigns every record to exactly one theme. It never drops a
// record: unrecoverable batch failures degrade to a synthesized
// assignment instead. The returned slice has exactly one entry per input
// index, sorted by record index.
func (c *BatchClassifier) Classify(ctx context.Context, records []models.Record, themes []models.Theme) ([]models.Classification, error) {
	if len(records) == 0 {
		return nil, nil
	}

	size := batchSize(len(records), c.opts.BatchFloor, c.opts.MaxBatches)
	out := make([]models.Classification, 0, len(records))

	for start := 0; start < len(records); start += size {
		end := start + size
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("inter-batch throttle: %w", err)
		}

		cls, err := c.classifyBatch(ctx, batch, themes)
		if err != nil {
			return nil, err
		}
		out = append(out, cls...)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].RecordIndex < out[j].RecordIndex })
	if err := verifyCoverage(out, len(records)); err != nil {
		return nil, err
	}
	return out, nil
}

// batchSize bounds total calls by maxBatches while enforcing a floor.
func batchSize(total, floor, maxBatches int) int {
	size := (total + maxBatches - 1) / maxBatches
	if size < floor {
		size = floor
	}
	return size
}

// classifyBatch runs one batch through the attempt/retry/degrade state
// machine. It returns an error only on context cancellation; every other
// failure mode resolves to degraded classifications.
func (c *BatchClassifier) classifyBatch(ctx context.Context, batch []models.Record, themes []models.Theme) ([]models.Classification, error) {
	prompt := buildBatchPrompt(batch, themes)

	raw, err := c.request(ctx, prompt)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !isRateLimited(err) {
			c.logger.Warn("Batch request failed, degrading batch",
				zap.Error(err),
				zap.Int("batch_size", len(batch)))
			return degradeBatch(batch, themes), nil
		}

		c.logger.Warn("Batch request rate limited, cooling down before retry",
			zap.Duration("cooldown", c.opts.RateLimitCooldown),
			zap.Int("batch_size", len(batch)))
		if err := wait(ctx, c.opts.RateLimitCooldown); err != nil {
			return nil, err
		}
		raw, err = c.request(ctx, prompt)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn("Batch retry failed, degrading batch",
				zap.Error(err),
				zap.Int("batch_size", len(batch)))
			return degradeBatch(batch, themes), nil
		}
	}

	arr, state := extractArray(raw, "classifications")
	if state == payloadMalformed {
		c.logger.Warn("Malformed batch response, degrading batch",
			zap.Int("batch_size", len(batch)),
			zap.Int("response_size", len(raw)))
		return degradeBatch(batch, themes), nil
	}
	if state == payloadRepaired {
		c.logger.Info("Repaired truncated batch response",
			zap.Int("batch_size", len(batch)))
	}

	var payload classificationPayload
	if err := json.Unmarshal([]byte(`{"classifications":`+arr+`}`), &payload); err != nil {
		c.logger.Warn("Unparsable batch response after repair, degrading batch",
			zap.Error(err),
			zap.Int("batch_size", len(batch)))
		return degradeBatch(batch, themes), nil
	}

	return mergeBatch(batch, themes, payload), nil
}

func (c *BatchClassifier) request(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in completion response")
	}
	return resp.Choices[0].Message.Content, nil
}

// mergeBatch maps parsed entries back onto the batch's records. Entries
// with out-of-range or duplicate indices are dropped; unknown theme names
// land in the catch-all; records missing from the payload get the same
// degraded assignment as a failed batch.
func mergeBatch(batch []models.Record, themes []models.Theme, payload classificationPayload) []models.Classification {
	known := make(map[string]string, len(themes))
	for _, t := range themes {
		known[strings.ToLower(t.Name)] = t.Name
	}

	inBatch := make(map[int]struct{}, len(batch))
	for _, r := range batch {
		inBatch[r.Index] = struct{}{}
	}

	assigned := make(map[int]models.Classification, len(batch))
	for _, e := range payload.Classifications {
		idx := e.CommentIndex - 1 // prompt enumerates 1-based corpus-wide
		if _, ok := inBatch[idx]; !ok {
			continue
		}
		if _, dup := assigned[idx]; dup {
			continue
		}
		name, ok := known[strings.ToLower(strings.TrimSpace(e.ThemeName))]
		if !ok {
			name = models.ThemeUncategorized
		}
		assigned[idx] = models.Classification{
			RecordIndex: idx,
			ThemeName:   name,
			Confidence:  clamp01(e.Confidence),
		}
	}

	out := make([]models.Classification, 0, len(batch))
	for _, r := range batch {
		if cls, ok := assigned[r.Index]; ok {
			out = append(out, cls)
			continue
		}
		out = append(out, degradedClassification(r.Index, themes))
	}
	return out
}

// degradeBatch synthesizes a classification for every record in a batch
// that could not be classified normally. The batch is never dropped.
func degradeBatch(batch []models.Record, themes []models.Theme) []models.Classification {
	out := make([]models.Classification, 0, len(batch))
	for _, r := range batch {
		out = append(out, degradedClassification(r.Index, themes))
	}
	return out
}

// degradedClassification assigns the first discovered theme, or the
// catch-all when the theme set is empty, at degraded confidence.
func degradedClassification(index int, themes []models.Theme) models.Classification {
	name := models.ThemeUncategorized
	if len(themes) > 0 {
		name = themes[0].Name
	}
	return models.Classification{
		RecordIndex: index,
		ThemeName:   name,
		Confidence:  degradedConfidence,
	}
}

// verifyCoverage enforces the post-condition the aggregator depends on:
// exactly one classification per record index, no gaps, no duplicates.
func verifyCoverage(cls []models.Classification, total int) error {
	if len(cls) != total {
		return fmt.Errorf("classification count %d does not match record count %d", len(cls), total)
	}
	seen := make(map[int]struct{}, total)
	for _, c := range cls {
		if c.RecordIndex < 0 || c.RecordIndex >= total {
			return fmt.Errorf("classification references record index %d outside corpus of %d", c.RecordIndex, total)
		}
		if _, dup := seen[c.RecordIndex]; dup {
			return fmt.Errorf("duplicate classification for record index %d", c.RecordIndex)
		}
		seen[c.RecordIndex] = struct{}{}
	}
	return nil
}

func buildBatchPrompt(batch []models.Record, themes []models.Theme) string {
	var themeLines strings.Builder
	for _, t := range themes {
		themeLines.WriteString(fmt.Sprintf("- %s: %s\n", t.Name, t.Description))
	}

	var recordLines strings.Builder
	for _, r := range batch {
		recordLines.WriteString(fmt.Sprintf("%d. %s\n", r.Index+1, strings.TrimSpace(r.Text)))
	}

	return fmt.Sprintf(`Classify each numbered comment into exactly one of these themes:
%s
Use the theme name exactly as written. Set confidence between 0 and 1.

Respond with JSON only (no markdown):
{"classifications": [{"commentIndex": 1, "themeName": "Theme Name", "confidence": 0.9}]}

Comments:
%s`, themeLines.String(), recordLines.String())
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

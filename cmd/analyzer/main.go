package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/hannah-abbo/ai-comment-analysis-tool/internal/ingest"
	"github.com/hannah-abbo/ai-comment-analysis-tool/internal/models"
	"github.com/hannah-abbo/ai-comment-analysis-tool/internal/pipeline"
	"github.com/hannah-abbo/ai-comment-analysis-tool/pkg/config"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: analyzer <comments.csv> [config.yaml]")
		os.Exit(2)
	}
	csvPath := os.Args[1]
	configPath := ""
	if len(os.Args) > 2 {
		configPath = os.Args[2]
	}

	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", configPath))
	}

	// Load the corpus
	records, err := ingest.Load(csvPath)
	if err != nil {
		logger.Fatal("Failed to load comments", zap.Error(err), zap.String("path", csvPath))
	}
	logger.Info("Loaded comments", zap.Int("count", len(records)), zap.String("path", csvPath))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Run the analysis
	runner := pipeline.New(cfg, logger)
	result, err := runner.Run(ctx, records)
	if err != nil {
		logger.Fatal("Analysis failed", zap.Error(err))
	}

	printReport(result)
}

func printReport(result *models.Result) {
	fmt.Printf("Analyzed %d comments into %d themes (enhanced by AI: %v)\n\n",
		result.Diagnostics.RecordCount, len(result.ThemeGroups), result.Diagnostics.EnhancedByAI)

	for i, g := range result.ThemeGroups {
		fmt.Printf("%d. %s — %d comments (%d%%), sentiment %s, impact %s, confidence %d%%\n",
			i+1, g.Theme.Name, g.Volume, g.Percentage, g.Sentiment, strings.ToUpper(g.BusinessImpact), g.Confidence)
		if g.Theme.Description != "" {
			fmt.Printf("   %s\n", g.Theme.Description)
		}
		for _, ex := range g.Examples {
			fmt.Printf("   > %s\n", ex)
		}
		fmt.Println()
	}

	fmt.Printf("Overall sentiment: %d positive / %d negative / %d neutral\n",
		result.OverallSentiment.Positive, result.OverallSentiment.Negative, result.OverallSentiment.Neutral)

	diag, err := json.MarshalIndent(result.Diagnostics, "", "  ")
	if err == nil {
		fmt.Printf("\nDiagnostics:\n%s\n", diag)
	}
}

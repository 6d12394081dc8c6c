package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mediguard/analysis"
	"mediguard/insight"
	"mediguard/triage"
	"mediguard/vitals"
)

var (
	analyzeModel    string
	analyzeValues   string
	analyzeInput    string
	analyzeParallel int
	analyzeInsights bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Score feature vectors against a trained artifact",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, log, err := buildLogger()
		if err != nil {
			return err
		}
		defer log.Sync()
		if cmd.Flags().Changed("model") {
			config.Model.Path = analyzeModel
		}

		opts := analysis.Options{
			CacheSize:   config.Analysis.CacheSize,
			TopFeatures: config.Analysis.TopFeatures,
			Logger:      log,
		}
		if config.Analysis.Thresholds.Green > 0 {
			opts.Thresholds = triage.Thresholds{
				Green:  config.Analysis.Thresholds.Green,
				Yellow: config.Analysis.Thresholds.Yellow,
			}
		}
		analyzer, err := analysis.New(config.Model.Path, opts)
		if err != nil {
			return err
		}

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")

		if analyzeInput != "" {
			return analyzeFile(analyzer, encoder)
		}
		if analyzeValues == "" {
			return fmt.Errorf("set --values or --input")
		}

		vector, err := parseVector(analyzeValues)
		if err != nil {
			return err
		}
		report, err := analyzer.Analyze(vector)
		if err != nil {
			return err
		}
		if err := encoder.Encode(report); err != nil {
			return err
		}

		if analyzeInsights {
			generator := buildInsightGenerator(config)
			insights := insight.GenerateWithFallback(context.Background(), generator, report)
			return encoder.Encode(insights)
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeModel, "model", "", "model artifact path")
	analyzeCmd.Flags().StringVar(&analyzeValues, "values", "", "24 comma-separated feature values in canonical order")
	analyzeCmd.Flags().StringVar(&analyzeInput, "input", "", "file with one comma-separated vector per line")
	analyzeCmd.Flags().IntVar(&analyzeParallel, "parallel", 4, "batch scoring parallelism")
	analyzeCmd.Flags().BoolVar(&analyzeInsights, "insights", false, "also generate lifestyle insights")
	rootCmd.AddCommand(analyzeCmd)
}

func buildInsightGenerator(config *Config) insight.Generator {
	if config.Insight.APIKey == "" {
		return nil
	}
	return insight.NewDeepSeekGenerator(insight.DeepSeekConfig{
		APIKey:    config.Insight.APIKey,
		Model:     config.Insight.Model,
		Timeout:   config.Insight.Timeout,
		MaxTokens: config.Insight.MaxTokens,
	})
}

func analyzeFile(analyzer *analysis.Analyzer, encoder *json.Encoder) error {
	file, err := os.Open(analyzeInput)
	if err != nil {
		return err
	}
	defer file.Close()

	var vectors []vitals.FeatureVector
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		vector, err := parseVector(line)
		if err != nil {
			return err
		}
		vectors = append(vectors, vector)
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	items, err := analyzer.AnalyzeBatch(context.Background(), vectors, analyzeParallel)
	if err != nil {
		return err
	}
	for _, item := range items {
		if item.Err != nil {
			fmt.Fprintf(os.Stderr, "vector %d: %v\n", item.Index, item.Err)
			continue
		}
		if err := encoder.Encode(item.Report); err != nil {
			return err
		}
	}
	return nil
}

func parseVector(raw string) (vitals.FeatureVector, error) {
	parts := strings.Split(raw, ",")
	vector := make(vitals.FeatureVector, 0, len(parts))
	for i, part := range parts {
		value, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("value %d (%s): %w", i, vitals.FeatureName(i), err)
		}
		vector = append(vector, value)
	}
	if err := vector.Validate(); err != nil {
		return nil, err
	}
	return vector, nil
}

// Package insight turns a finished analysis report into lifestyle insight
// narratives. Generation is best effort and never sits on the inference
// hot path; when no API is configured or a call fails, callers degrade to
// the static generator.
package insight

import (
	"context"

	"mediguard/analysis"
)

// PersistenceRisk describes a consequence of keeping current habits.
type PersistenceRisk struct {
	Condition   string `json:"condition"`
	Probability int    `json:"probability"`
	Impact      string `json:"impact"`
	Timeframe   string `json:"timeframe"`
}

// ImprovementGain describes the benefit of one positive change.
type ImprovementGain struct {
	Habit               string `json:"habit"`
	Benefit             string `json:"benefit"`
	HealthScoreIncrease int    `json:"health_score_increase"`
	Timeframe           string `json:"timeframe"`
}

// NovelInsight is a non-obvious pattern worth surfacing.
type NovelInsight struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"` // warning|success|neutral
}

// Insights is the full narrative payload.
type Insights struct {
	PersistenceRisks []PersistenceRisk `json:"persistence_risks"`
	ImprovementGains []ImprovementGain `json:"improvement_gains"`
	NovelInsights    []NovelInsight    `json:"novel_insights"`
}

// Generator produces insights for a report.
type Generator interface {
	Generate(ctx context.Context, report analysis.Report) (*Insights, error)
}

// StaticGenerator returns canned insights. It backs deployments without an
// API key and serves as the degradation target when a remote call fails.
type StaticGenerator struct{}

func (StaticGenerator) Generate(_ context.Context, _ analysis.Report) (*Insights, error) {
	return &Insights{
		PersistenceRisks: []PersistenceRisk{
			{Condition: "Hypertension", Probability: 45, Impact: "Increased strain on heart", Timeframe: "5 years"},
			{Condition: "Metabolic Syndrome", Probability: 30, Impact: "Insulin resistance", Timeframe: "3 years"},
		},
		ImprovementGains: []ImprovementGain{
			{Habit: "Reduce Sodium Intake", Benefit: "Lower Blood Pressure", HealthScoreIncrease: 15, Timeframe: "3 months"},
			{Habit: "30min Daily Cardio", Benefit: "Improved Heart Health", HealthScoreIncrease: 20, Timeframe: "6 months"},
		},
		NovelInsights: []NovelInsight{
			{Title: "Circadian Rhythm", Description: "Your vitals suggest irregular sleep patterns affecting recovery.", Type: "warning"},
		},
	}, nil
}

// GenerateWithFallback runs the generator and degrades to the static
// payload on any failure.
func GenerateWithFallback(ctx context.Context, g Generator, report analysis.Report) *Insights {
	if g != nil {
		if insights, err := g.Generate(ctx, report); err == nil {
			return insights
		}
	}
	insights, _ := StaticGenerator{}.Generate(ctx, report)
	return insights
}

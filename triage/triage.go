// Package triage derives a health score and urgency bucket from classifier
// output. Scoring is a pure function of the prediction, so results can be
// recomputed from a stored prediction at any time.
package triage

import (
	"math"

	"mediguard/vitals"
)

// Category is the coarse urgency bucket. String values are part of the wire
// contract and must not change.
type Category string

const (
	Green     Category = "Green"
	Yellow    Category = "Yellow"
	Red       Category = "Red"
	Uncertain Category = "Uncertain"
)

// rank orders categories from most to least urgent for monotonicity checks.
func (c Category) rank() int {
	switch c {
	case Red:
		return 0
	case Yellow:
		return 1
	case Green:
		return 2
	default:
		return -1
	}
}

// Less reports whether c is a lower (more urgent) bucket than other.
// Uncertain does not participate in the ordering.
func (c Category) Less(other Category) bool {
	return c.rank() < other.rank()
}

// Thresholds are the score cutoffs between buckets.
type Thresholds struct {
	Green  int // scores >= Green are Green
	Yellow int // scores in [Yellow, Green) are Yellow, below is Red
}

// DefaultThresholds is the production cutoff set.
var DefaultThresholds = Thresholds{Green: 80, Yellow: 60}

// Result is the scored triage outcome.
type Result struct {
	HealthScore int      `json:"health_score"`
	Category    Category `json:"triage_category"`
}

// Score maps a prediction to a triage result using the default thresholds.
func Score(pred vitals.PredictionResult) Result {
	return ScoreWith(pred, DefaultThresholds)
}

// ScoreWith maps a prediction to a triage result. An Uncertain prediction
// always scores 0 regardless of confidence; otherwise the score is the
// rounded Healthy probability on a 0-100 scale.
func ScoreWith(pred vitals.PredictionResult, th Thresholds) Result {
	if pred.PredictedClass == vitals.Uncertain {
		return Result{HealthScore: 0, Category: Uncertain}
	}

	score := int(math.Round(100 * pred.ProbabilityOf(vitals.Healthy)))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	switch {
	case score >= th.Green:
		return Result{HealthScore: score, Category: Green}
	case score >= th.Yellow:
		return Result{HealthScore: score, Category: Yellow}
	default:
		return Result{HealthScore: score, Category: Red}
	}
}

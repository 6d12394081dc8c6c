package ml

import (
	"sort"

	"mediguard/vitals"
)

// DefaultTopFeatures is the number of attributions returned when the caller
// does not ask for a specific count.
const DefaultTopFeatures = 5

// FeatureImpact is the signed contribution of one input feature to the
// predicted class's margin.
type FeatureImpact struct {
	Feature string  `json:"feature"`
	Impact  float64 `json:"impact"`
	Value   float64 `json:"value"`
}

// Attribution explains one prediction. BaseValue plus the impacts of all 24
// features equals the raw margin of the predicted class; the reported
// TopFeatures are the truncated ranking of those impacts.
type Attribution struct {
	BaseValue   float64         `json:"base_value"`
	TopFeatures []FeatureImpact `json:"top_features"`
}

// Explain computes per-feature attributions for the model's prediction on
// the vector. Each decision path attributes the change in expected output
// at every split to the split feature, so the decomposition is additive by
// construction (tolerance 1e-6 against the raw margin, limited only by
// floating-point summation order). Read-only and safe for concurrent use.
func (m *Model) Explain(features vitals.FeatureVector, topK int) (Attribution, error) {
	if err := features.Validate(); err != nil {
		return Attribution{}, err
	}
	if topK <= 0 {
		topK = DefaultTopFeatures
	}

	pred, err := m.Predict(features)
	if err != nil {
		return Attribution{}, err
	}
	class := int(pred.PredictedClass)

	impacts := make([]float64, vitals.FeatureCount)
	base := m.forest.BaseScores[class]
	for _, tree := range m.forest.Trees[class] {
		base += tree.Nodes[0].Value
		walkPath(tree, features, impacts)
	}

	order := make([]int, vitals.FeatureCount)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ia, ib := abs(impacts[order[a]]), abs(impacts[order[b]])
		if ia != ib {
			return ia > ib
		}
		return order[a] < order[b]
	})

	if topK > vitals.FeatureCount {
		topK = vitals.FeatureCount
	}
	top := make([]FeatureImpact, 0, topK)
	for _, idx := range order[:topK] {
		top = append(top, FeatureImpact{
			Feature: vitals.FeatureName(idx),
			Impact:  impacts[idx],
			Value:   features[idx],
		})
	}
	return Attribution{BaseValue: base, TopFeatures: top}, nil
}

// attributions exposes the full 24-wide impact vector for additivity checks.
func (m *Model) attributions(features vitals.FeatureVector, class int) (base float64, impacts []float64) {
	impacts = make([]float64, vitals.FeatureCount)
	base = m.forest.BaseScores[class]
	for _, tree := range m.forest.Trees[class] {
		base += tree.Nodes[0].Value
		walkPath(tree, features, impacts)
	}
	return base, impacts
}

// walkPath follows the decision path and credits each split feature with
// the change in expected value it caused.
func walkPath(tree regressionTree, features vitals.FeatureVector, impacts []float64) {
	idx := 0
	for {
		node := tree.Nodes[idx]
		if node.IsLeaf {
			return
		}
		var next int
		if features[node.FeatureIdx] <= node.Threshold {
			next = node.LeftChild
		} else {
			next = node.RightChild
		}
		impacts[node.FeatureIdx] += tree.Nodes[next].Value - node.Value
		idx = next
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

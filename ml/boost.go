package ml

import (
	"errors"
	"math"
	"sort"
)

// treeNode is one node of a regression tree, stored in a flattened array.
// Value holds the leaf output for leaves; for internal nodes it holds the
// cover-weighted expectation of the leaves below, which the explainer walks.
type treeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	Value      float64 `json:"value"`
	Cover      float64 `json:"cover"`
	IsLeaf     bool    `json:"is_leaf"`
}

type regressionTree struct {
	Nodes []treeNode `json:"nodes"`
}

// boostedForest is a multi-class gradient-boosted tree ensemble with a
// softmax objective. Trees[k] holds the boosting rounds for class k.
type boostedForest struct {
	Classes    int                `json:"classes"`
	Features   int                `json:"features"`
	BaseScores []float64          `json:"base_scores"`
	Trees      [][]regressionTree `json:"trees"`
}

const (
	maxSplitCandidates = 8
	hessianEpsilon     = 1e-9
)

type forestParams struct {
	iterations   int
	learningRate float64
	maxDepth     int
}

// trainForest fits the ensemble on weighted samples. The procedure is fully
// deterministic: no subsampling, fixed feature and candidate order.
func trainForest(features [][]float64, labels []int, weights []float64, classes int, params forestParams) (*boostedForest, error) {
	if len(features) == 0 {
		return nil, errors.New("training set is empty")
	}
	if len(features) != len(labels) || len(features) != len(weights) {
		return nil, errors.New("features, labels and weights size mismatch")
	}
	featureCount := len(features[0])

	forest := &boostedForest{
		Classes:    classes,
		Features:   featureCount,
		BaseScores: classLogPriors(labels, weights, classes),
		Trees:      make([][]regressionTree, classes),
	}

	n := len(features)
	margins := make([][]float64, n)
	for i := range margins {
		margins[i] = append([]float64(nil), forest.BaseScores...)
	}

	probs := make([]float64, classes)
	residuals := make([]float64, n)
	hessians := make([]float64, n)

	for round := 0; round < params.iterations; round++ {
		for k := 0; k < classes; k++ {
			for i := 0; i < n; i++ {
				softmaxInto(margins[i], probs)
				indicator := 0.0
				if labels[i] == k {
					indicator = 1.0
				}
				residuals[i] = weights[i] * (indicator - probs[k])
				hessians[i] = weights[i] * probs[k] * (1 - probs[k])
			}

			tree := fitTree(features, residuals, hessians, classes, params)
			forest.Trees[k] = append(forest.Trees[k], tree)
			for i := 0; i < n; i++ {
				margins[i][k] += tree.evaluate(features[i])
			}
		}
	}
	return forest, nil
}

// classLogPriors seeds the margins with the weighted log class frequencies.
func classLogPriors(labels []int, weights []float64, classes int) []float64 {
	counts := make([]float64, classes)
	total := 0.0
	for i, label := range labels {
		counts[label] += weights[i]
		total += weights[i]
	}
	priors := make([]float64, classes)
	for k := range priors {
		// Laplace-style floor keeps absent classes finite.
		priors[k] = math.Log((counts[k] + 1) / (total + float64(classes)))
	}
	return priors
}

func softmaxInto(margins []float64, out []float64) {
	max := margins[0]
	for _, m := range margins[1:] {
		if m > max {
			max = m
		}
	}
	sum := 0.0
	for i, m := range margins {
		out[i] = math.Exp(m - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
}

// Margins returns the raw per-class scores for one vector.
func (f *boostedForest) Margins(features []float64) []float64 {
	margins := append([]float64(nil), f.BaseScores...)
	for k := 0; k < f.Classes; k++ {
		for _, tree := range f.Trees[k] {
			margins[k] += tree.evaluate(features)
		}
	}
	return margins
}

// Probabilities runs the softmax over the margins. The explicit final
// normalization keeps the sum at 1 up to a single rounding step.
func (f *boostedForest) Probabilities(features []float64) []float64 {
	margins := f.Margins(features)
	probs := make([]float64, f.Classes)
	softmaxInto(margins, probs)
	return probs
}

func (t *regressionTree) evaluate(features []float64) float64 {
	idx := 0
	for {
		node := t.Nodes[idx]
		if node.IsLeaf {
			return node.Value
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
	}
}

// fitTree grows one regression tree on the gradient/hessian pairs using
// greedy variance reduction, in the flattened-node layout.
func fitTree(features [][]float64, residuals, hessians []float64, classes int, params forestParams) regressionTree {
	indices := make([]int, len(features))
	for i := range indices {
		indices[i] = i
	}
	builder := &treeBuilder{
		features:  features,
		residuals: residuals,
		hessians:  hessians,
		classes:   classes,
		params:    params,
	}
	nodes := builder.build(indices, 0)
	return regressionTree{Nodes: nodes}
}

type treeBuilder struct {
	features  [][]float64
	residuals []float64
	hessians  []float64
	classes   int
	params    forestParams
}

func (b *treeBuilder) build(indices []int, depth int) []treeNode {
	if depth >= b.params.maxDepth || len(indices) < 2 {
		return []treeNode{b.leaf(indices)}
	}

	featureIdx, threshold, ok := b.bestSplit(indices)
	if !ok {
		return []treeNode{b.leaf(indices)}
	}

	var left, right []int
	for _, i := range indices {
		if b.features[i][featureIdx] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return []treeNode{b.leaf(indices)}
	}

	leftNodes := b.build(left, depth+1)
	rightNodes := b.build(right, depth+1)

	leftRoot := leftNodes[0]
	rightRoot := rightNodes[0]
	cover := leftRoot.Cover + rightRoot.Cover

	root := treeNode{
		FeatureIdx: featureIdx,
		Threshold:  threshold,
		LeftChild:  1,
		RightChild: 1 + len(leftNodes),
		Value:      (leftRoot.Cover*leftRoot.Value + rightRoot.Cover*rightRoot.Value) / cover,
		Cover:      cover,
		IsLeaf:     false,
	}

	nodes := make([]treeNode, 0, 1+len(leftNodes)+len(rightNodes))
	nodes = append(nodes, root)
	nodes = append(nodes, shiftChildren(leftNodes, 1)...)
	nodes = append(nodes, shiftChildren(rightNodes, 1+len(leftNodes))...)
	return nodes
}

func shiftChildren(nodes []treeNode, offset int) []treeNode {
	for i := range nodes {
		if !nodes[i].IsLeaf {
			nodes[i].LeftChild += offset
			nodes[i].RightChild += offset
		}
	}
	return nodes
}

// leaf computes the Newton-step output for the node, pre-scaled by the
// learning rate and the usual (K-1)/K multi-class correction.
func (b *treeBuilder) leaf(indices []int) treeNode {
	var sumG, sumH float64
	for _, i := range indices {
		sumG += b.residuals[i]
		sumH += b.hessians[i]
	}
	k := float64(b.classes)
	value := b.params.learningRate * ((k - 1) / k) * sumG / (sumH + hessianEpsilon)
	return treeNode{
		FeatureIdx: -1,
		LeftChild:  -1,
		RightChild: -1,
		Value:      value,
		Cover:      float64(len(indices)),
		IsLeaf:     true,
	}
}

func (b *treeBuilder) bestSplit(indices []int) (int, float64, bool) {
	parentSSE := residualSSE(b.residuals, indices)

	bestFeature := -1
	bestThreshold := 0.0
	bestGain := 1e-12

	for featureIdx := 0; featureIdx < len(b.features[indices[0]]); featureIdx++ {
		for _, threshold := range b.candidateThresholds(indices, featureIdx) {
			var leftSum, leftSq, leftN float64
			var rightSum, rightSq, rightN float64
			for _, i := range indices {
				r := b.residuals[i]
				if b.features[i][featureIdx] <= threshold {
					leftSum += r
					leftSq += r * r
					leftN++
				} else {
					rightSum += r
					rightSq += r * r
					rightN++
				}
			}
			if leftN == 0 || rightN == 0 {
				continue
			}
			childSSE := (leftSq - leftSum*leftSum/leftN) + (rightSq - rightSum*rightSum/rightN)
			gain := parentSSE - childSSE
			if gain > bestGain {
				bestGain = gain
				bestFeature = featureIdx
				bestThreshold = threshold
			}
		}
	}
	if bestFeature == -1 {
		return -1, 0, false
	}
	return bestFeature, bestThreshold, true
}

// candidateThresholds picks up to maxSplitCandidates quantile midpoints of
// the feature values present at the node.
func (b *treeBuilder) candidateThresholds(indices []int, featureIdx int) []float64 {
	values := make([]float64, 0, len(indices))
	for _, i := range indices {
		values = append(values, b.features[i][featureIdx])
	}
	sort.Float64s(values)

	unique := values[:0]
	for i, v := range values {
		if i == 0 || v != unique[len(unique)-1] {
			unique = append(unique, v)
		}
	}
	if len(unique) < 2 {
		return nil
	}

	if len(unique)-1 <= maxSplitCandidates {
		thresholds := make([]float64, 0, len(unique)-1)
		for i := 0; i+1 < len(unique); i++ {
			thresholds = append(thresholds, (unique[i]+unique[i+1])/2)
		}
		return thresholds
	}

	thresholds := make([]float64, 0, maxSplitCandidates)
	for c := 1; c <= maxSplitCandidates; c++ {
		pos := c * (len(unique) - 1) / (maxSplitCandidates + 1)
		thresholds = append(thresholds, (unique[pos]+unique[pos+1])/2)
	}
	return thresholds
}

func residualSSE(residuals []float64, indices []int) float64 {
	var sum, sq float64
	for _, i := range indices {
		r := residuals[i]
		sum += r
		sq += r * r
	}
	n := float64(len(indices))
	return sq - sum*sum/n
}

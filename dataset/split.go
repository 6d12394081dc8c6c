package dataset

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"mediguard/vitals"
)

// ErrDataInsufficient reports a class with too few samples to stratify.
var ErrDataInsufficient = errors.New("insufficient samples for stratified split")

// minSamplesPerLabel is the smallest class size that still yields at least
// one sample on each side of the split.
const minSamplesPerLabel = 2

// DefaultTrainRatio is the default train share of a stratified split.
const DefaultTrainRatio = 0.8

// Split holds the stratified train/validation partitions.
type Split struct {
	Train      []vitals.TrainingSample
	Validation []vitals.TrainingSample
}

// Merge concatenates real and synthetic samples into one dataset.
func Merge(real, synthetic []vitals.TrainingSample) []vitals.TrainingSample {
	merged := make([]vitals.TrainingSample, 0, len(real)+len(synthetic))
	merged = append(merged, real...)
	merged = append(merged, synthetic...)
	return merged
}

// StratifiedSplit partitions samples into train/validation sets that
// preserve each class's relative frequency. Shuffling is seed-deterministic.
func StratifiedSplit(samples []vitals.TrainingSample, trainRatio float64, seed int64) (Split, error) {
	if trainRatio <= 0 || trainRatio >= 1 {
		return Split{}, fmt.Errorf("train ratio must be in (0, 1), got %g", trainRatio)
	}

	byLabel := make(map[vitals.Label][]vitals.TrainingSample)
	for _, sample := range samples {
		if !sample.Label.Valid() {
			return Split{}, fmt.Errorf("sample carries invalid label %d", sample.Label)
		}
		byLabel[sample.Label] = append(byLabel[sample.Label], sample)
	}
	if len(byLabel) == 0 {
		return Split{}, fmt.Errorf("%w: dataset is empty", ErrDataInsufficient)
	}

	labels := make([]vitals.Label, 0, len(byLabel))
	for label := range byLabel {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })

	for _, label := range labels {
		if len(byLabel[label]) < minSamplesPerLabel {
			return Split{}, fmt.Errorf("%w: class %s has %d samples, need at least %d",
				ErrDataInsufficient, label, len(byLabel[label]), minSamplesPerLabel)
		}
	}

	rng := rand.New(rand.NewSource(seed))
	var split Split
	for _, label := range labels {
		group := append([]vitals.TrainingSample(nil), byLabel[label]...)
		rng.Shuffle(len(group), func(i, j int) {
			group[i], group[j] = group[j], group[i]
		})

		cut := int(float64(len(group)) * trainRatio)
		if cut == 0 {
			cut = 1
		}
		if cut == len(group) {
			cut = len(group) - 1
		}
		split.Train = append(split.Train, group[:cut]...)
		split.Validation = append(split.Validation, group[cut:]...)
	}

	rng.Shuffle(len(split.Train), func(i, j int) {
		split.Train[i], split.Train[j] = split.Train[j], split.Train[i]
	})
	rng.Shuffle(len(split.Validation), func(i, j int) {
		split.Validation[i], split.Validation[j] = split.Validation[j], split.Validation[i]
	})
	return split, nil
}

// LabelCounts tallies samples per class.
func LabelCounts(samples []vitals.TrainingSample) map[vitals.Label]int {
	counts := make(map[vitals.Label]int)
	for _, sample := range samples {
		counts[sample.Label]++
	}
	return counts
}

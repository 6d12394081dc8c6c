package ml

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"mediguard/vitals"
)

// ErrTraining reports degenerate validation metrics. The run is aborted and
// any previously persisted artifact is left untouched.
var ErrTraining = errors.New("training produced degenerate model")

// defaultUncertainPrecisionFloor is the minimum validation precision the
// Uncertain class must reach for a model to be accepted.
const defaultUncertainPrecisionFloor = 0.60

// Hyperparameters control the boosting run. ClassWeights are keyed by label
// name; absent classes weigh 1.0.
type Hyperparameters struct {
	Iterations   int                `json:"iterations" yaml:"iterations"`
	LearningRate float64            `json:"learning_rate" yaml:"learning_rate"`
	TreeDepth    int                `json:"tree_depth" yaml:"tree_depth"`
	ClassWeights map[string]float64 `json:"class_weights" yaml:"class_weights"`
	Seed         int64              `json:"seed" yaml:"seed"`
}

// DefaultHyperparameters returns the production training configuration. The
// Uncertain class is up-weighted to keep the model sensitive to anomalous
// inputs.
func DefaultHyperparameters() Hyperparameters {
	return Hyperparameters{
		Iterations:   60,
		LearningRate: 0.1,
		TreeDepth:    4,
		ClassWeights: map[string]float64{vitals.Uncertain.String(): 2.0},
		Seed:         1,
	}
}

func (hp Hyperparameters) validate() error {
	if hp.Iterations <= 0 {
		return fmt.Errorf("iterations must be positive, got %d", hp.Iterations)
	}
	if hp.LearningRate <= 0 || hp.LearningRate > 1 {
		return fmt.Errorf("learning rate must be in (0, 1], got %g", hp.LearningRate)
	}
	if hp.TreeDepth <= 0 {
		return fmt.Errorf("tree depth must be positive, got %d", hp.TreeDepth)
	}
	if w, ok := hp.ClassWeights[vitals.Uncertain.String()]; ok && w < 1.0 {
		return fmt.Errorf("uncertain class weight must be >= 1.0, got %g", w)
	}
	return nil
}

func (hp Hyperparameters) weightFor(label vitals.Label) float64 {
	if w, ok := hp.ClassWeights[label.String()]; ok {
		return w
	}
	return 1.0
}

// ClassMetrics is the validation precision/recall for one class.
type ClassMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	Support   int     `json:"support"`
}

// ValidationMetrics summarizes a validation pass.
type ValidationMetrics struct {
	Accuracy float64                 `json:"accuracy"`
	PerClass map[string]ClassMetrics `json:"per_class"`
}

// Trainer fits and persists boosted-tree models.
type Trainer struct {
	HP                      Hyperparameters
	UncertainPrecisionFloor float64
	Logger                  *zap.Logger
}

// NewTrainer builds a trainer with the given hyperparameters. A nil logger
// is replaced with a no-op one.
func NewTrainer(hp Hyperparameters, logger *zap.Logger) *Trainer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trainer{
		HP:                      hp,
		UncertainPrecisionFloor: defaultUncertainPrecisionFloor,
		Logger:                  logger,
	}
}

// TrainResult carries the accepted model and its validation metrics.
type TrainResult struct {
	Model   *Model
	Metrics ValidationMetrics
}

// Run fits the model on the train split, gates it on the validation split
// and persists it atomically at manifestPath. A file lock next to the
// target path serializes concurrent runs against the same artifact; a held
// lock fails the run immediately rather than queueing.
func (t *Trainer) Run(train, validation []vitals.TrainingSample, manifestPath string) (*TrainResult, error) {
	if err := t.HP.validate(); err != nil {
		return nil, err
	}
	if len(train) == 0 {
		return nil, errors.New("train split is empty")
	}
	if len(validation) == 0 {
		return nil, errors.New("validation split is empty")
	}

	lock := flock.New(manifestPath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire training lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("training already in progress for %s", manifestPath)
	}
	defer lock.Unlock()

	features, labels, weights, err := flatten(train, t.HP)
	if err != nil {
		return nil, err
	}

	t.Logger.Info("training started",
		zap.Int("train_samples", len(train)),
		zap.Int("validation_samples", len(validation)),
		zap.Int("iterations", t.HP.Iterations),
		zap.Int("tree_depth", t.HP.TreeDepth))

	start := time.Now()
	forest, err := trainForest(features, labels, weights, vitals.LabelCount, forestParams{
		iterations:   t.HP.Iterations,
		learningRate: t.HP.LearningRate,
		maxDepth:     t.HP.TreeDepth,
	})
	if err != nil {
		return nil, err
	}

	trainedAt := time.Now().UTC()
	model := &Model{
		manifest: Manifest{
			SchemaVersion:   SchemaVersion,
			ModelVersion:    trainedAt.Format("20060102-150405"),
			FeatureNames:    vitals.FeatureNames(),
			Labels:          vitals.LabelNames(),
			Hyperparameters: t.HP,
			TrainedAt:       trainedAt,
		},
		forest: forest,
	}

	metrics, err := t.evaluate(model, validation)
	if err != nil {
		return nil, err
	}
	model.manifest.Metrics = metrics

	floor := t.UncertainPrecisionFloor
	if floor <= 0 {
		floor = defaultUncertainPrecisionFloor
	}
	if err := gateMetrics(metrics, floor); err != nil {
		t.Logger.Warn("model rejected", zap.Error(err))
		return nil, err
	}

	if err := model.save(manifestPath); err != nil {
		return nil, fmt.Errorf("persist model: %w", err)
	}

	t.Logger.Info("training finished",
		zap.String("model_version", model.Version()),
		zap.Float64("accuracy", metrics.Accuracy),
		zap.Duration("elapsed", time.Since(start)),
		zap.String("path", manifestPath))

	return &TrainResult{Model: model, Metrics: metrics}, nil
}

func flatten(samples []vitals.TrainingSample, hp Hyperparameters) ([][]float64, []int, []float64, error) {
	features := make([][]float64, len(samples))
	labels := make([]int, len(samples))
	weights := make([]float64, len(samples))
	for i, sample := range samples {
		if err := sample.Features.Validate(); err != nil {
			return nil, nil, nil, fmt.Errorf("train sample %d: %w", i, err)
		}
		if !sample.Label.Valid() {
			return nil, nil, nil, fmt.Errorf("train sample %d: invalid label %d", i, sample.Label)
		}
		features[i] = sample.Features
		labels[i] = int(sample.Label)
		weights[i] = hp.weightFor(sample.Label)
	}
	return features, labels, weights, nil
}

func (t *Trainer) evaluate(model *Model, validation []vitals.TrainingSample) (ValidationMetrics, error) {
	var confusion [vitals.LabelCount][vitals.LabelCount]int
	correct := 0
	for i, sample := range validation {
		pred, err := model.Predict(sample.Features)
		if err != nil {
			return ValidationMetrics{}, fmt.Errorf("validation sample %d: %w", i, err)
		}
		confusion[sample.Label][pred.PredictedClass]++
		if pred.PredictedClass == sample.Label {
			correct++
		}
	}

	metrics := ValidationMetrics{
		Accuracy: float64(correct) / float64(len(validation)),
		PerClass: make(map[string]ClassMetrics, vitals.LabelCount),
	}
	for k := 0; k < vitals.LabelCount; k++ {
		var support, predicted int
		for j := 0; j < vitals.LabelCount; j++ {
			support += confusion[k][j]
			predicted += confusion[j][k]
		}
		cm := ClassMetrics{Support: support}
		if predicted > 0 {
			cm.Precision = float64(confusion[k][k]) / float64(predicted)
		}
		if support > 0 {
			cm.Recall = float64(confusion[k][k]) / float64(support)
		}
		metrics.PerClass[vitals.Label(k).String()] = cm
	}
	return metrics, nil
}

// gateMetrics rejects models whose validation pass shows a degenerate fit.
func gateMetrics(metrics ValidationMetrics, uncertainFloor float64) error {
	uncertain := metrics.PerClass[vitals.Uncertain.String()]
	if uncertain.Support > 0 && uncertain.Precision < uncertainFloor {
		return fmt.Errorf("%w: Uncertain precision %.3f below floor %.2f",
			ErrTraining, uncertain.Precision, uncertainFloor)
	}
	for name, cm := range metrics.PerClass {
		if cm.Support > 0 && cm.Recall == 0 {
			return fmt.Errorf("%w: class %s has zero recall", ErrTraining, name)
		}
	}
	return nil
}

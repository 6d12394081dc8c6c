// Package analysis is the inference-time entry point: it scores a vector,
// derives the triage result and the feature attribution, and assembles the
// report handed to the external request layer.
package analysis

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"mediguard/ml"
	"mediguard/triage"
	"mediguard/vitals"
)

// Report is the full outcome of one analysis request.
type Report struct {
	ReportID     string                  `json:"report_id"`
	CreatedAt    time.Time               `json:"created_at"`
	ModelVersion string                  `json:"model_version"`
	Prediction   vitals.PredictionResult `json:"prediction"`
	Triage       triage.Result           `json:"triage"`
	Explanation  ml.Attribution          `json:"explanation"`
	Quality      vitals.QualityReport    `json:"quality"`
}

// Options tune an Analyzer. The zero value gives defaults.
type Options struct {
	Thresholds  triage.Thresholds
	TopFeatures int
	CacheSize   int // 0 disables the result cache
	Logger      *zap.Logger
}

// Analyzer serves analysis requests over an immutable loaded model. The
// model reference is swapped atomically on reload, so any number of
// concurrent Analyze calls run lock-free against a consistent snapshot.
type Analyzer struct {
	model       atomic.Pointer[ml.Model]
	cache       *lru.Cache[string, Report]
	thresholds  triage.Thresholds
	topFeatures int
	logger      *zap.Logger
}

// New loads the artifact at manifestPath and builds an Analyzer. A load
// failure is fatal here: an Analyzer never exists without a model.
func New(manifestPath string, opts Options) (*Analyzer, error) {
	model, err := ml.Load(manifestPath)
	if err != nil {
		return nil, err
	}
	return NewWithModel(model, opts)
}

// NewWithModel wraps an already loaded model.
func NewWithModel(model *ml.Model, opts Options) (*Analyzer, error) {
	if opts.Thresholds == (triage.Thresholds{}) {
		opts.Thresholds = triage.DefaultThresholds
	}
	if opts.TopFeatures <= 0 {
		opts.TopFeatures = ml.DefaultTopFeatures
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	a := &Analyzer{
		thresholds:  opts.Thresholds,
		topFeatures: opts.TopFeatures,
		logger:      opts.Logger,
	}
	a.model.Store(model)

	if opts.CacheSize > 0 {
		cache, err := lru.New[string, Report](opts.CacheSize)
		if err != nil {
			return nil, err
		}
		a.cache = cache
	}

	a.logger.Info("analyzer ready", zap.String("model_version", model.Version()))
	return a, nil
}

// Analyze scores one vector. Validation failures surface immediately; no
// state changes on any path.
func (a *Analyzer) Analyze(features vitals.FeatureVector) (Report, error) {
	if err := features.Validate(); err != nil {
		return Report{}, err
	}

	model := a.model.Load()
	key := cacheKey(features, model.Version())
	if a.cache != nil {
		if cached, ok := a.cache.Get(key); ok {
			report := cached
			report.ReportID = uuid.NewString()
			report.CreatedAt = time.Now().UTC()
			return report, nil
		}
	}

	pred, err := model.Predict(features)
	if err != nil {
		return Report{}, err
	}
	explanation, err := model.Explain(features, a.topFeatures)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		ReportID:     uuid.NewString(),
		CreatedAt:    time.Now().UTC(),
		ModelVersion: model.Version(),
		Prediction:   pred,
		Triage:       triage.ScoreWith(pred, a.thresholds),
		Explanation:  explanation,
		Quality:      vitals.Screen(features),
	}
	if a.cache != nil {
		a.cache.Add(key, report)
	}
	return report, nil
}

// ModelVersion returns the version tag of the currently installed model.
func (a *Analyzer) ModelVersion() string {
	return a.model.Load().Version()
}

// Reload loads a new artifact and installs it with a single pointer swap.
// In-flight requests finish on the snapshot they started with. On failure
// the current model stays installed.
func (a *Analyzer) Reload(manifestPath string) error {
	model, err := ml.Load(manifestPath)
	if err != nil {
		return err
	}
	previous := a.model.Swap(model)
	if a.cache != nil {
		// Cached keys embed the model version, but purging frees the
		// memory for entries that can no longer hit.
		a.cache.Purge()
	}
	a.logger.Info("model reloaded",
		zap.String("previous_version", previous.Version()),
		zap.String("model_version", model.Version()))
	return nil
}

func cacheKey(features vitals.FeatureVector, version string) string {
	buf := make([]byte, 0, len(features)*8+len(version))
	var scratch [8]byte
	for _, value := range features {
		binary.LittleEndian.PutUint64(scratch[:], math.Float64bits(value))
		buf = append(buf, scratch[:]...)
	}
	return fmt.Sprintf("%s:%x", version, buf)
}

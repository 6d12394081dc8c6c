package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mediguard/dataset"
	"mediguard/ml"
	"mediguard/vitals"
)

var (
	trainData           string
	trainDB             string
	trainOutput         string
	trainSyntheticCount int
	trainSplitRatio     float64
	trainSeed           int64
	trainIterations     int
	trainLearningRate   float64
	trainTreeDepth      int
	trainUncertainW     float64
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train and persist a classifier artifact",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, log, err := buildLogger()
		if err != nil {
			return err
		}
		defer log.Sync()
		applyTrainFlags(cmd, config)

		hp := config.Training.Hyperparameters
		samples, store, err := loadTrainingSamples(config, log)
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
		}

		synthetic, err := dataset.GenerateSynthetic(config.Training.SyntheticCount, dataset.DefaultMix, hp.Seed)
		if err != nil {
			return err
		}
		log.Info("synthetic samples generated",
			zap.Int("count", len(synthetic)),
			zap.Int64("seed", hp.Seed))

		split, err := dataset.StratifiedSplit(dataset.Merge(samples, synthetic), config.Training.SplitRatio, hp.Seed)
		if err != nil {
			return err
		}

		result, err := ml.NewTrainer(hp, log).Run(split.Train, split.Validation, config.Model.Path)
		if err != nil {
			return err
		}

		if store != nil {
			run := dataset.TrainingRun{
				ModelVersion:       result.Model.Version(),
				Accuracy:           result.Metrics.Accuracy,
				UncertainPrecision: result.Metrics.PerClass[vitals.Uncertain.String()].Precision,
				SampleCount:        len(split.Train) + len(split.Validation),
				SyntheticCount:     len(synthetic),
				TrainedAt:          time.Now().UTC(),
			}
			if err := store.LogTrainingRun(run); err != nil {
				log.Warn("training run not logged", zap.Error(err))
			}
		}

		fmt.Printf("model %s saved to %s (accuracy %.3f)\n",
			result.Model.Version(), config.Model.Path, result.Metrics.Accuracy)
		return nil
	},
}

func init() {
	trainCmd.Flags().StringVar(&trainData, "data", "", "CSV file of labeled samples")
	trainCmd.Flags().StringVar(&trainDB, "db", "", "SQLite sample store")
	trainCmd.Flags().StringVar(&trainOutput, "output", "", "model artifact path")
	trainCmd.Flags().IntVar(&trainSyntheticCount, "synthetic", 0, "synthetic Uncertain sample count")
	trainCmd.Flags().Float64Var(&trainSplitRatio, "split", 0, "train share of the stratified split")
	trainCmd.Flags().Int64Var(&trainSeed, "seed", 0, "random seed")
	trainCmd.Flags().IntVar(&trainIterations, "iterations", 0, "boosting rounds")
	trainCmd.Flags().Float64Var(&trainLearningRate, "learning-rate", 0, "boosting learning rate")
	trainCmd.Flags().IntVar(&trainTreeDepth, "depth", 0, "max tree depth")
	trainCmd.Flags().Float64Var(&trainUncertainW, "uncertain-weight", 0, "Uncertain class weight (>= 1)")
	rootCmd.AddCommand(trainCmd)
}

func applyTrainFlags(cmd *cobra.Command, config *Config) {
	if cmd.Flags().Changed("data") {
		config.Training.Data = trainData
	}
	if cmd.Flags().Changed("db") {
		config.Training.DB = trainDB
	}
	if cmd.Flags().Changed("output") {
		config.Model.Path = trainOutput
	}
	if cmd.Flags().Changed("synthetic") {
		config.Training.SyntheticCount = trainSyntheticCount
	}
	if cmd.Flags().Changed("split") {
		config.Training.SplitRatio = trainSplitRatio
	}
	if cmd.Flags().Changed("seed") {
		config.Training.Hyperparameters.Seed = trainSeed
	}
	if cmd.Flags().Changed("iterations") {
		config.Training.Hyperparameters.Iterations = trainIterations
	}
	if cmd.Flags().Changed("learning-rate") {
		config.Training.Hyperparameters.LearningRate = trainLearningRate
	}
	if cmd.Flags().Changed("depth") {
		config.Training.Hyperparameters.TreeDepth = trainTreeDepth
	}
	if cmd.Flags().Changed("uncertain-weight") {
		if config.Training.Hyperparameters.ClassWeights == nil {
			config.Training.Hyperparameters.ClassWeights = map[string]float64{}
		}
		config.Training.Hyperparameters.ClassWeights[vitals.Uncertain.String()] = trainUncertainW
	}
}

// loadTrainingSamples reads labeled samples from the CSV file, the sample
// store, or both. CSV samples are persisted into the store when both are
// configured, so later runs can train from the store alone.
func loadTrainingSamples(config *Config, log *zap.Logger) ([]vitals.TrainingSample, *dataset.Store, error) {
	var samples []vitals.TrainingSample
	var store *dataset.Store

	if config.Training.DB != "" {
		opened, err := dataset.OpenStore(config.Training.DB)
		if err != nil {
			return nil, nil, err
		}
		store = opened
	}

	if config.Training.Data != "" {
		fromCSV, err := dataset.LoadCSV(config.Training.Data)
		if err != nil {
			if store != nil {
				store.Close()
			}
			return nil, nil, err
		}
		log.Info("samples loaded from csv",
			zap.String("path", config.Training.Data),
			zap.Int("count", len(fromCSV)))
		if store != nil {
			if err := store.InsertSamples(fromCSV); err != nil {
				store.Close()
				return nil, nil, err
			}
		}
		samples = fromCSV
	} else if store != nil {
		fromStore, err := store.LoadSamples()
		if err != nil {
			store.Close()
			return nil, nil, err
		}
		log.Info("samples loaded from store",
			zap.String("path", config.Training.DB),
			zap.Int("count", len(fromStore)))
		samples = fromStore
	}

	if len(samples) == 0 {
		if store != nil {
			store.Close()
		}
		return nil, nil, fmt.Errorf("no training samples: set --data or --db")
	}
	return samples, store, nil
}

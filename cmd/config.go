package cmd

import (
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"mediguard/dataset"
	"mediguard/logger"
	"mediguard/ml"
)

// Config is the YAML configuration shared by the subcommands. Flags
// override the values loaded here.
type Config struct {
	Log logger.Config `yaml:"log"`

	Model struct {
		Path string `yaml:"path"`
	} `yaml:"model"`

	Training struct {
		Data            string             `yaml:"data"` // CSV of labeled samples
		DB              string             `yaml:"db"`   // optional SQLite sample store
		SyntheticCount  int                `yaml:"synthetic_count"`
		SplitRatio      float64            `yaml:"split_ratio"`
		Hyperparameters ml.Hyperparameters `yaml:"hyperparameters"`
	} `yaml:"training"`

	Analysis struct {
		CacheSize   int `yaml:"cache_size"`
		TopFeatures int `yaml:"top_features"`
		Thresholds  struct {
			Green  int `yaml:"green"`
			Yellow int `yaml:"yellow"`
		} `yaml:"thresholds"`
	} `yaml:"analysis"`

	Insight struct {
		APIKey    string        `yaml:"api_key"`
		Model     string        `yaml:"model"`
		Timeout   time.Duration `yaml:"timeout"`
		MaxTokens int           `yaml:"max_tokens"`
	} `yaml:"insight"`
}

func defaultConfig() *Config {
	config := &Config{}
	config.Model.Path = "models/model.json"
	config.Training.SyntheticCount = 1000
	config.Training.SplitRatio = dataset.DefaultTrainRatio
	config.Training.Hyperparameters = ml.DefaultHyperparameters()
	return config
}

func loadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	config := defaultConfig()
	if err := yaml.NewDecoder(file).Decode(config); err != nil {
		return nil, err
	}
	if config.Training.Hyperparameters.Iterations == 0 {
		config.Training.Hyperparameters = ml.DefaultHyperparameters()
	}
	return config, nil
}

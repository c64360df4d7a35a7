package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/ajitpratap0/refinery/pkg/errors"
)

// EnvPrefix prefixes every environment variable LoadConfig binds.
const EnvPrefix = "REFINERY"

// Config is the process configuration for refinery.
type Config struct {
	// Logging controls the global zap logger
	Logging LoggingConfig `yaml:"logging" json:"logging" mapstructure:"logging"`

	// Engine holds defaults for preprocessing operations
	Engine EngineConfig `yaml:"engine" json:"engine" mapstructure:"engine"`

	// Observability settings for metrics and tracing
	Observability ObservabilityConfig `yaml:"observability" json:"observability" mapstructure:"observability"`

	// Export selects the output format and compression
	Export ExportConfig `yaml:"export" json:"export" mapstructure:"export"`

	// Training holds model fitting defaults
	Training TrainingConfig `yaml:"training" json:"training" mapstructure:"training"`
}

// LoggingConfig mirrors logger.Config.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level" json:"level" mapstructure:"level"`
	// Encoding is json or console
	Encoding    string `yaml:"encoding" json:"encoding" mapstructure:"encoding"`
	Development bool   `yaml:"development" json:"development" mapstructure:"development"`
}

// EngineConfig contains defaults applied when an operation leaves a
// parameter unset.
type EngineConfig struct {
	// VarianceThreshold for constant-column detection
	VarianceThreshold float64 `yaml:"variance_threshold" json:"variance_threshold" mapstructure:"variance_threshold"`
	// ZScoreThreshold for z-score outlier detection
	ZScoreThreshold float64 `yaml:"zscore_threshold" json:"zscore_threshold" mapstructure:"zscore_threshold"`
	// CapPercentile p winsorizes at the p and 1-p quantiles
	CapPercentile float64 `yaml:"cap_percentile" json:"cap_percentile" mapstructure:"cap_percentile"`
	// SamplingSeed seeds resampling and shuffling
	SamplingSeed uint64 `yaml:"sampling_seed" json:"sampling_seed" mapstructure:"sampling_seed"`
	// SMOTEEnabled allows synthetic oversampling; when false SMOTE requests
	// fall back to random oversampling
	SMOTEEnabled   bool `yaml:"smote_enabled" json:"smote_enabled" mapstructure:"smote_enabled"`
	SMOTENeighbors int  `yaml:"smote_neighbors" json:"smote_neighbors" mapstructure:"smote_neighbors"`
	// PreviewLimit caps the duplicate preview rows
	PreviewLimit int `yaml:"preview_limit" json:"preview_limit" mapstructure:"preview_limit"`
}

// ObservabilityConfig contains monitoring settings.
type ObservabilityConfig struct {
	MetricsEnabled bool   `yaml:"metrics_enabled" json:"metrics_enabled" mapstructure:"metrics_enabled"`
	TracingEnabled bool   `yaml:"tracing_enabled" json:"tracing_enabled" mapstructure:"tracing_enabled"`
	ServiceName    string `yaml:"service_name" json:"service_name" mapstructure:"service_name"`
	// SamplingRate controls trace sampling (0.0-1.0)
	SamplingRate float64 `yaml:"sampling_rate" json:"sampling_rate" mapstructure:"sampling_rate"`
}

// ExportConfig selects how tables leave the process.
type ExportConfig struct {
	// Format is a registered destination name (csv, json, xlsx, arrow)
	Format string `yaml:"format" json:"format" mapstructure:"format"`
	// Compression is none, gzip, snappy, lz4, zstd, s2 or deflate
	Compression      string `yaml:"compression" json:"compression" mapstructure:"compression"`
	CompressionLevel string `yaml:"compression_level" json:"compression_level" mapstructure:"compression_level"`
}

// TrainingConfig contains model fitting defaults.
type TrainingConfig struct {
	TestSize      float64 `yaml:"test_size" json:"test_size" mapstructure:"test_size"`
	Seed          uint64  `yaml:"seed" json:"seed" mapstructure:"seed"`
	MaxIterations int     `yaml:"max_iterations" json:"max_iterations" mapstructure:"max_iterations"`
	LearningRate  float64 `yaml:"learning_rate" json:"learning_rate" mapstructure:"learning_rate"`
	Neighbors     int     `yaml:"neighbors" json:"neighbors" mapstructure:"neighbors"`
}

// Default returns the documented defaults.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "json",
		},
		Engine: EngineConfig{
			VarianceThreshold: 0,
			ZScoreThreshold:   3.0,
			CapPercentile:     0.05,
			SamplingSeed:      42,
			SMOTEEnabled:      true,
			SMOTENeighbors:    5,
			PreviewLimit:      10,
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: true,
			TracingEnabled: false,
			ServiceName:    "refinery",
			SamplingRate:   1.0,
		},
		Export: ExportConfig{
			Format:           "csv",
			Compression:      "none",
			CompressionLevel: "default",
		},
		Training: TrainingConfig{
			TestSize:      0.2,
			Seed:          42,
			MaxIterations: 500,
			LearningRate:  0.1,
			Neighbors:     5,
		},
	}
}

// Validate checks that every value is within range.
func (c *Config) Validate() error {
	switch {
	case c.Engine.VarianceThreshold < 0:
		return invalid("engine.variance_threshold", "must not be negative")
	case c.Engine.ZScoreThreshold <= 0:
		return invalid("engine.zscore_threshold", "must be positive")
	case c.Engine.CapPercentile <= 0 || c.Engine.CapPercentile >= 0.5:
		return invalid("engine.cap_percentile", "must be in (0, 0.5)")
	case c.Engine.SMOTENeighbors < 1:
		return invalid("engine.smote_neighbors", "must be at least 1")
	case c.Engine.PreviewLimit < 1:
		return invalid("engine.preview_limit", "must be at least 1")
	case c.Observability.SamplingRate < 0 || c.Observability.SamplingRate > 1:
		return invalid("observability.sampling_rate", "must be in [0, 1]")
	case c.Training.TestSize <= 0 || c.Training.TestSize >= 1:
		return invalid("training.test_size", "must be in (0, 1)")
	case c.Training.MaxIterations < 1:
		return invalid("training.max_iterations", "must be at least 1")
	case c.Training.LearningRate <= 0:
		return invalid("training.learning_rate", "must be positive")
	case c.Training.Neighbors < 1:
		return invalid("training.neighbors", "must be at least 1")
	}
	return nil
}

// LoadConfig reads path (if non-empty) over the defaults, then applies
// REFINERY_* environment variables, e.g. REFINERY_ENGINE_ZSCORE_THRESHOLD.
// The result is validated.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindDefaults(v, Default())

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to read config file").
				WithDetail("path", path)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// bindDefaults registers every key so AutomaticEnv can resolve it during
// Unmarshal even when the file does not mention it.
func bindDefaults(v *viper.Viper, d *Config) {
	defaults := map[string]interface{}{
		"logging.level":                 d.Logging.Level,
		"logging.encoding":              d.Logging.Encoding,
		"logging.development":           d.Logging.Development,
		"engine.variance_threshold":     d.Engine.VarianceThreshold,
		"engine.zscore_threshold":       d.Engine.ZScoreThreshold,
		"engine.cap_percentile":         d.Engine.CapPercentile,
		"engine.sampling_seed":          d.Engine.SamplingSeed,
		"engine.smote_enabled":          d.Engine.SMOTEEnabled,
		"engine.smote_neighbors":        d.Engine.SMOTENeighbors,
		"engine.preview_limit":          d.Engine.PreviewLimit,
		"observability.metrics_enabled": d.Observability.MetricsEnabled,
		"observability.tracing_enabled": d.Observability.TracingEnabled,
		"observability.service_name":    d.Observability.ServiceName,
		"observability.sampling_rate":   d.Observability.SamplingRate,
		"export.format":                 d.Export.Format,
		"export.compression":            d.Export.Compression,
		"export.compression_level":      d.Export.CompressionLevel,
		"training.test_size":            d.Training.TestSize,
		"training.seed":                 d.Training.Seed,
		"training.max_iterations":       d.Training.MaxIterations,
		"training.learning_rate":        d.Training.LearningRate,
		"training.neighbors":            d.Training.Neighbors,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

func invalid(field, reason string) error {
	return errors.Newf(errors.ErrorTypeConfig, "%s %s", field, reason).WithDetail("field", field)
}

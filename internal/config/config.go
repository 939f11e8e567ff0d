// Package config loads the typed, validated configuration for an evaluation run.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"mcceval/internal/model"
)

//go:embed defaults.yaml
var defaultsYAML []byte

var validate = validator.New(validator.WithRequiredStructEnabled())

type Config struct {
	Experiment ExperimentConfig `yaml:"experiment"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Body       BodyConfig       `yaml:"body"`
	Brain      BrainConfig      `yaml:"brain"`
	Maze       MazeConfig       `yaml:"maze"`
	Navigator  NavigatorConfig  `yaml:"navigator"`
	Diversity  DiversityConfig  `yaml:"diversity"`
	Simulator  SimulatorConfig  `yaml:"simulator"`
	Store      StoreConfig      `yaml:"store"`
	Output     OutputConfig     `yaml:"output"`
	Log        LogConfig        `yaml:"log"`
}

type ExperimentConfig struct {
	ID   string `yaml:"id" validate:"required"`
	Runs []int  `yaml:"runs" validate:"min=1,dive,gte=0"`
	// Batch restricts evaluation to genomes imported with this batch number.
	Batch *int `yaml:"batch,omitempty"`
}

type EvaluationConfig struct {
	ChunkSize          int     `yaml:"chunk_size" validate:"gt=0"`
	Workers            int     `yaml:"workers" validate:"gte=0"`
	FailFast           bool    `yaml:"fail_fast"`
	MinSuccessDistance float64 `yaml:"min_success_distance" validate:"gte=0"`
	DistanceBound      float64 `yaml:"distance_bound" validate:"gt=0"`
	TimeBound          float64 `yaml:"time_bound" validate:"gt=0"`
}

type BodyConfig struct {
	LengthX           int     `yaml:"length_x" validate:"gt=0"`
	LengthY           int     `yaml:"length_y" validate:"gt=0"`
	LengthZ           int     `yaml:"length_z" validate:"gt=0"`
	PresenceThreshold float64 `yaml:"presence_threshold"`
	MaxBodySize       int     `yaml:"max_body_size" validate:"gt=0"`
}

type BrainConfig struct {
	MinFrequency float64 `yaml:"min_frequency" validate:"gt=0"`
	MaxFrequency float64 `yaml:"max_frequency" validate:"gtfield=MinFrequency"`
}

type MazeConfig struct {
	Width  int `yaml:"width" validate:"gt=0"`
	Height int `yaml:"height" validate:"gt=0"`
}

type NavigatorConfig struct {
	Inputs  int `yaml:"inputs" validate:"gt=0"`
	Outputs int `yaml:"outputs" validate:"gt=0"`
}

type ClusterRange struct {
	Min int `yaml:"min" validate:"gte=2"`
	Max int `yaml:"max" validate:"gtefield=Min"`
}

type DiversityConfig struct {
	SampleSize          int          `yaml:"sample_size" validate:"gte=0"`
	Strategy            string       `yaml:"strategy" validate:"omitempty,oneof=uniform stratified even"`
	UseEvenDistribution bool         `yaml:"use_even_distribution"`
	ClusterRange        ClusterRange `yaml:"cluster_range"`
	Seed                int64        `yaml:"seed"`
}

// SamplingStrategy resolves the configured strategy; use_even_distribution forces even.
func (d DiversityConfig) SamplingStrategy() string {
	if d.UseEvenDistribution {
		return "even"
	}
	if d.Strategy == "" {
		return "uniform"
	}
	return d.Strategy
}

type SimulatorConfig struct {
	Executable    string        `yaml:"executable"`
	Args          []string      `yaml:"args"`
	WorkDir       string        `yaml:"work_dir"`
	Timeout       time.Duration `yaml:"timeout" validate:"gte=0"`
	KeepArtifacts bool          `yaml:"keep_artifacts"`
}

type StoreConfig struct {
	Kind string `yaml:"kind" validate:"oneof=memory sqlite"`
	Path string `yaml:"path" validate:"required_if=Kind sqlite"`
}

type OutputConfig struct {
	Dir string `yaml:"dir"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=auto text json"`
}

func (l LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Default returns the embedded defaults without validation; the experiment id is unset.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	return cfg, nil
}

// Load overlays the YAML file at path on the embedded defaults and validates the result. An
// empty path uses the defaults alone. Every failure wraps model.ErrConfiguration.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: reading config file: %v", model.ErrConfiguration, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parsing config file: %v", model.ErrConfiguration, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", model.ErrConfiguration, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", model.ErrConfiguration, err)
	}
	if evolved := c.EvolvedSize(); c.Body.MaxBodySize < evolved {
		return fmt.Errorf("%w: body.max_body_size %d is below the evolved size %d",
			model.ErrConfiguration, c.Body.MaxBodySize, evolved)
	}
	return nil
}

// RequireSimulator reports whether the simulator section can run trials.
func (c *Config) RequireSimulator() error {
	if c.Simulator.Executable == "" {
		return fmt.Errorf("%w: simulator.executable is required", model.ErrConfiguration)
	}
	return nil
}

func (c *Config) EvolvedSize() int {
	return max(c.Body.LengthX, c.Body.LengthY, c.Body.LengthZ)
}

// WriteYAML saves the effective configuration next to a run's results.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

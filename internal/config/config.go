// Package config loads circle loss settings from defaults, an optional
// TOML file, .env files and CIRCLE_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/born-ml/circleloss/internal/logging"
	"github.com/born-ml/circleloss/internal/nn"
	"github.com/born-ml/circleloss/internal/parallel"
)

// EnvPrefix prefixes every environment variable, e.g. CIRCLE_LOSS_SCALE.
const EnvPrefix = "CIRCLE"

// Config is the complete tool configuration.
type Config struct {
	Loss     LossConfig     `toml:"loss"`
	Log      LogConfig      `toml:"log"`
	Parallel ParallelConfig `toml:"parallel"`

	// Metrics dumps the Prometheus registry after a command runs.
	Metrics bool `toml:"metrics" envconfig:"METRICS"`

	// Batches holds inline feature batches for the eval command.
	Batches Batches `toml:"batches" ignored:"true"`
}

// LossConfig mirrors nn.CircleLossConfig in file and environment form.
type LossConfig struct {
	Scale          float32           `toml:"scale" envconfig:"SCALE"`
	Margin         float32           `toml:"margin" envconfig:"MARGIN"`
	Similarity     nn.Similarity     `toml:"similarity" envconfig:"SIMILARITY"`
	Policy         nn.Policy         `toml:"policy" envconfig:"POLICY"`
	Reduction      nn.Reduction      `toml:"reduction" envconfig:"REDUCTION"`
	NegativeMargin nn.NegativeMargin `toml:"negative_margin" envconfig:"NEGATIVE_MARGIN"`
	DetachWeights  bool              `toml:"detach_weights" envconfig:"DETACH_WEIGHTS"`
}

// LogConfig selects the log encoding and level.
type LogConfig struct {
	Format string `toml:"format" envconfig:"FORMAT"`
	Level  string `toml:"level" envconfig:"LEVEL"`
}

// ParallelConfig controls the CPU backend's worker pool.
type ParallelConfig struct {
	Enabled      bool `toml:"enabled" envconfig:"ENABLED"`
	Workers      int  `toml:"workers" envconfig:"WORKERS"`
	MinChunkSize int  `toml:"min_chunk_size" envconfig:"MIN_CHUNK_SIZE"`
}

// Batches are row-major feature matrices, one inner slice per embedding.
type Batches struct {
	Positives [][]float64 `toml:"positives"`
	Negatives [][]float64 `toml:"negatives"`
	Queries   [][]float64 `toml:"queries"`
}

// Default returns the built-in configuration.
func Default() *Config {
	loss := nn.DefaultCircleLossConfig()
	par := parallel.DefaultConfig()
	log := logging.DefaultConfig()

	return &Config{
		Loss: LossConfig{
			Scale:          loss.Scale,
			Margin:         loss.Margin,
			Similarity:     loss.Similarity,
			Policy:         loss.Policy,
			Reduction:      loss.Reduction,
			NegativeMargin: loss.NegativeMargin,
		},
		Log: LogConfig{
			Format: log.Format,
			Level:  log.Level,
		},
		Parallel: ParallelConfig{
			Enabled:      par.Enabled,
			Workers:      par.NumWorkers,
			MinChunkSize: par.MinChunkSize,
		},
	}
}

// Load layers path (when non-empty), the given .env files (".env" when
// none are named, skipped if missing) and the environment over Default.
// The result is validated.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("config: unknown keys in %s: %s", path, strings.Join(keys, ", "))
		}
	}

	if err := loadDotEnv(envFiles); err != nil {
		return nil, err
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv never overrides variables that are already set.
func loadDotEnv(files []string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		files = []string{".env"}
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("config: load env files: %w", err)
	}
	return nil
}

// Validate checks the loss, log and batch settings.
func (c *Config) Validate() error {
	if err := c.LossConfig().Validate(); err != nil {
		return fmt.Errorf("config: loss: %w", err)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: log: %w", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console", "text", "":
	default:
		return fmt.Errorf("config: log: invalid format %q", c.Log.Format)
	}
	if c.Parallel.Workers < 0 || c.Parallel.MinChunkSize < 0 {
		return fmt.Errorf("config: parallel: workers and min_chunk_size must not be negative")
	}
	return nil
}

// LossConfig converts the loss section to nn.CircleLossConfig.
// The observer is left nil for the caller to install.
func (c *Config) LossConfig() nn.CircleLossConfig {
	return nn.CircleLossConfig{
		Scale:          c.Loss.Scale,
		Margin:         c.Loss.Margin,
		Similarity:     c.Loss.Similarity,
		Policy:         c.Loss.Policy,
		Reduction:      c.Loss.Reduction,
		NegativeMargin: c.Loss.NegativeMargin,
		DetachWeights:  c.Loss.DetachWeights,
	}
}

// LogConfig converts the log section to logging.Config.
func (c *Config) LogConfig() logging.Config {
	out := logging.DefaultConfig()
	out.Format = c.Log.Format
	out.Level = c.Log.Level
	return out
}

// ParallelConfig converts the parallel section to parallel.Config.
// A zero worker count means one worker per CPU.
func (c *Config) ParallelConfig() parallel.Config {
	workers := c.Parallel.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	return parallel.Config{
		Enabled:      c.Parallel.Enabled,
		NumWorkers:   workers,
		MinChunkSize: c.Parallel.MinChunkSize,
	}
}

// Empty reports whether no batch was given.
func (b Batches) Empty() bool {
	return len(b.Positives) == 0 && len(b.Negatives) == 0 && len(b.Queries) == 0
}

// Matrix flattens rows into row-major data and returns its [rows, cols]
// shape. Rows must be non-empty and of equal length.
func Matrix(name string, rows [][]float64) ([]float64, []int, error) {
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("config: batch %s is empty", name)
	}
	cols := len(rows[0])
	if cols == 0 {
		return nil, nil, fmt.Errorf("config: batch %s has empty rows", name)
	}

	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, nil, fmt.Errorf("config: batch %s row %d has %d values, want %d", name, i, len(row), cols)
		}
		data = append(data, row...)
	}
	return data, []int{len(rows), cols}, nil
}

package entity

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Breeze/breeze.sharp-sub000"
)

// Config holds the configuration of a Manager.
type Config struct {
	// Logger receives the debug and warning records of the manager.
	Logger *slog.Logger `yaml:"-"`

	// KeyGenerator produces temporary keys. A nil generator makes
	// attaching entities with unset auto-generated keys fail.
	KeyGenerator KeyGenerator `yaml:"-"`

	// KeyGeneratorName selects the key generator when the configuration
	// is loaded from a file: "default" or "none".
	KeyGeneratorName string `yaml:"keyGenerator"`

	// Validator runs after the property validators of the schema.
	Validator Validator `yaml:"-"`

	// Validation selects when entities are validated.
	Validation ValidationOptions `yaml:"validation"`

	// MergeStrategy is used by queries that do not set their own.
	MergeStrategy breeze.MergeStrategy `yaml:"mergeStrategy"`

	// DataService executes the remote operations of the manager.
	DataService DataService `yaml:"-"`

	// Metrics receives the operational metrics of the manager.
	Metrics MetricsCollector `yaml:"-"`
}

// DefaultConfig returns the configuration used by NewManager before
// applying options.
func DefaultConfig() Config {
	return Config{
		Logger:           slog.New(slog.DiscardHandler),
		KeyGenerator:     NewKeyGenerator(),
		KeyGeneratorName: "default",
		Validation:       DefaultValidationOptions(),
		MergeStrategy:    breeze.PreserveChanges,
		Metrics:          NoopMetricsCollector{},
	}
}

// ConfigError reports an invalid configuration value.
type ConfigError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("breeze: invalid config %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("breeze: invalid config %s=%v: %s", e.Field, e.Value, e.Message)
}

// NewConfigError returns a new ConfigError.
func NewConfigError(field string, value any, message string) *ConfigError {
	return &ConfigError{Field: field, Value: value, Message: message}
}

// Option configures a Manager.
type Option func(*Config) error

// WithLogger sets the logger of the manager.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) error {
		if l == nil {
			return NewConfigError("Logger", nil, "logger cannot be nil")
		}
		c.Logger = l
		return nil
	}
}

// WithKeyGenerator sets the temporary key generator. A nil generator
// disables key generation.
func WithKeyGenerator(g KeyGenerator) Option {
	return func(c *Config) error {
		c.KeyGenerator = g
		if g == nil {
			c.KeyGeneratorName = "none"
		}
		return nil
	}
}

// WithValidator sets the entity validator.
func WithValidator(v Validator) Option {
	return func(c *Config) error {
		c.Validator = v
		return nil
	}
}

// WithValidationOptions selects when entities are validated.
func WithValidationOptions(o ValidationOptions) Option {
	return func(c *Config) error {
		c.Validation = o
		return nil
	}
}

// WithMergeStrategy sets the default merge strategy of queries.
func WithMergeStrategy(s breeze.MergeStrategy) Option {
	return func(c *Config) error {
		if s > breeze.Disallowed {
			return NewConfigError("MergeStrategy", s, "unknown merge strategy")
		}
		c.MergeStrategy = s
		return nil
	}
}

// WithDataService sets the service executing queries and saves.
func WithDataService(ds DataService) Option {
	return func(c *Config) error {
		c.DataService = ds
		return nil
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(mc MetricsCollector) Option {
	return func(c *Config) error {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		c.Metrics = mc
		return nil
	}
}

// WithConfig applies the file settings of cfg: key generator, validation
// and merge strategy.
func WithConfig(cfg *Config) Option {
	return func(c *Config) error {
		switch cfg.KeyGeneratorName {
		case "", "default":
			if c.KeyGenerator == nil {
				c.KeyGenerator = NewKeyGenerator()
			}
		case "none":
			c.KeyGenerator = nil
		default:
			return NewConfigError("keyGenerator", cfg.KeyGeneratorName, "use default or none")
		}
		if cfg.KeyGeneratorName != "" {
			c.KeyGeneratorName = cfg.KeyGeneratorName
		}
		c.Validation = cfg.Validation
		c.MergeStrategy = cfg.MergeStrategy
		return nil
	}
}

// LoadConfig reads a YAML manager configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("breeze: read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses a YAML manager configuration. Unset settings keep
// their defaults.
//
//	keyGenerator: default
//	mergeStrategy: overwriteChanges
//	validation:
//	  onAttach: true
//	  onSave: true
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("breeze: parse config: %w", err)
	}
	switch cfg.KeyGeneratorName {
	case "default", "none":
	default:
		return nil, NewConfigError("keyGenerator", cfg.KeyGeneratorName, "use default or none")
	}
	return &cfg, nil
}

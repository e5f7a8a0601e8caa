package compose

import (
	"fmt"
	"os"
	stdpath "path"
	"reflect"

	"gopkg.in/yaml.v3"
)

// Config is the file form of the Build options.
type Config struct {
	Ambiguity   AmbiguityStrategy `json:"ambiguity" yaml:"ambiguity" mapstructure:"ambiguity"`
	Validation  bool              `json:"validate" yaml:"validate" mapstructure:"validate"`
	Conventions ConventionsConfig `json:"conventions" yaml:"conventions" mapstructure:"conventions"`
}

// ConventionsConfig filters the candidate types seen by convention
// registrars. Patterns use path.Match syntax against names such as
// "sample.SqlConnectionFactory"; pointer types match by their element.
type ConventionsConfig struct {
	Include []string `json:"include" yaml:"include" mapstructure:"include"`
	Exclude []string `json:"exclude" yaml:"exclude" mapstructure:"exclude"`
}

// DefaultConfig returns the configuration Build uses without options.
func DefaultConfig() Config {
	return Config{Ambiguity: UseLast}
}

// ParseConfig decodes a YAML document over DefaultConfig.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse compose config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and parses the YAML file at path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read compose config %s: %w", path, err)
	}
	return ParseConfig(data)
}

// Validate checks the strategy and every glob pattern.
func (c Config) Validate() error {
	switch c.Ambiguity {
	case UseLast, UseFirst, ForcePriority:
	default:
		return &ConfigurationError{Reason: fmt.Sprintf("unknown ambiguity strategy %s", c.Ambiguity)}
	}
	for _, p := range append(append([]string(nil), c.Conventions.Include...), c.Conventions.Exclude...) {
		if _, err := stdpath.Match(p, ""); err != nil {
			return &ConfigurationError{Reason: fmt.Sprintf("invalid convention pattern %q", p), Err: err}
		}
	}
	return nil
}

// TypeFilter returns the candidate filter described by the include and
// exclude patterns, or nil when none are set. A type passes when it matches
// an include pattern (or there are none) and no exclude pattern.
func (c Config) TypeFilter() TypeFilter {
	include, exclude := c.Conventions.Include, c.Conventions.Exclude
	if len(include) == 0 && len(exclude) == 0 {
		return nil
	}
	return func(t reflect.Type) bool {
		name := candidateName(t)
		if len(include) > 0 && !matchAny(include, name) {
			return false
		}
		return !matchAny(exclude, name)
	}
}

// Options converts the configuration into Build options.
func (c Config) Options() ([]Option, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	opts := []Option{WithAmbiguityStrategy(c.Ambiguity)}
	if c.Validation {
		opts = append(opts, WithValidation())
	}
	if f := c.TypeFilter(); f != nil {
		opts = append(opts, WithTypeFilter(f))
	}
	return opts, nil
}

func candidateName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.String()
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, _ := stdpath.Match(p, name); ok {
			return true
		}
	}
	return false
}

// Package config loads parapipe configuration.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (PARAPIPE_METHOD, PARAPIPE_LLM_MODEL, ...)
//  2. YAML config file (--config, or ./parapipe.yaml when present)
//  3. Hardcoded defaults
//
// Environment variables drop the PARAPIPE_ prefix and split on the first
// underscore: PARAPIPE_FILTER_MIN_LENGTH → filter.min_length.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/gaurav-prasanna/parapipe/core/classify"
	"github.com/gaurav-prasanna/parapipe/core/filter"
	"github.com/gaurav-prasanna/parapipe/logging"
)

const (
	// DefaultPath is read when no --config is given and the file exists.
	DefaultPath = "parapipe.yaml"

	// EnvPrefix marks environment overrides.
	EnvPrefix = "PARAPIPE_"

	maxConfigFileSize = 1024 * 1024 // 1MB
)

// Output formats.
var outputFormats = []string{"docx", "markdown", "html", "json", "pdf"}

// Config is the full parapipe configuration.
type Config struct {
	// Method names the classification strategy, or a comma-separated
	// chain such as "rules,pattern".
	Method string `koanf:"method" yaml:"method"`
	// Rules is a JSON or YAML rule file.
	Rules string `koanf:"rules" yaml:"rules,omitempty"`
	// Store is a SQLite rule database; it wins over Rules when both are set.
	Store string `koanf:"store" yaml:"store,omitempty"`

	Log     logging.Config         `koanf:"log" yaml:"log"`
	Filter  filter.Config          `koanf:"filter" yaml:"filter"`
	Pattern classify.PatternConfig `koanf:"pattern" yaml:"pattern"`
	LLM     classify.LLMConfig     `koanf:"llm" yaml:"llm"`
	Output  OutputConfig           `koanf:"output" yaml:"output"`
}

// OutputConfig sets where and how results are written.
type OutputConfig struct {
	Dir    string `koanf:"dir" yaml:"dir,omitempty"`
	Format string `koanf:"format" yaml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Method: classify.StrategyRules + "," + classify.StrategyPattern,
		Log:    logging.NewDefaultConfig(),
		Filter: filter.Config{MinLength: 3},
		LLM:    classify.DefaultLLMConfig(),
		Output: OutputConfig{Format: "docx"},
	}
}

// Load reads configuration from path (or DefaultPath when path is empty
// and that file exists), then applies environment overrides.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	content, err := readConfigFile(path)
	switch {
	case err == nil:
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, err
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// envKey maps PARAPIPE_SECTION_FIELD_NAME to section.field_name.
func envKey(name string) string {
	lower := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return section
	}
	return section + "." + field
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("opening config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s is larger than %d bytes", path, maxConfigFileSize)
	}
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return content, nil
}

// Validate checks values that cannot be fixed by defaults.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Method) == "" {
		errs = append(errs, errors.New("method must not be empty"))
	}
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}
	if !isOutputFormat(c.Output.Format) {
		errs = append(errs, fmt.Errorf("output.format must be one of %s, got %q", strings.Join(outputFormats, ", "), c.Output.Format))
	}
	return errors.Join(errs...)
}

func isOutputFormat(f string) bool {
	for _, known := range outputFormats {
		if f == known {
			return true
		}
	}
	return false
}

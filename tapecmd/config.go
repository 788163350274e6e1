package tapecmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"tracetape.org/tracetape/trace"
)

// Config is read from the file given by the -config flag.
// Fields which are not set keep their default values.
type Config struct {
	MaxDepth    int    `yaml:"max_depth"`
	MaxPasses   int    `yaml:"max_passes"`
	Parallelism int    `yaml:"parallelism"`
	CacheSize   int    `yaml:"cache_size"`
	LogLevel    string `yaml:"log_level"`
}

func DefaultConfig() Config {
	tcfg := trace.DefaultConfig()
	return Config{
		MaxDepth:    tcfg.MaxDepth,
		MaxPasses:   tcfg.MaxPasses,
		Parallelism: runtime.GOMAXPROCS(0),
		CacheSize:   64,
		LogLevel:    "warn",
	}
}

// ParseConfig parses YAML on top of the DefaultConfig.
// Unknown fields are an error.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads the config at p, or returns the DefaultConfig if p is empty.
func LoadConfig(p string) (Config, error) {
	if p == "" {
		return DefaultConfig(), nil
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return Config{}, err
	}
	return ParseConfig(data)
}

func (c Config) Validate() error {
	switch {
	case c.MaxDepth < 1:
		return fmt.Errorf("config: max_depth must be positive, have %d", c.MaxDepth)
	case c.MaxPasses < 1:
		return fmt.Errorf("config: max_passes must be positive, have %d", c.MaxPasses)
	case c.Parallelism < 1:
		return fmt.Errorf("config: parallelism must be positive, have %d", c.Parallelism)
	case c.CacheSize < 1:
		return fmt.Errorf("config: cache_size must be positive, have %d", c.CacheSize)
	}
	if _, err := zap.ParseAtomicLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: log_level: %w", err)
	}
	return nil
}

func (c Config) TraceOptions() []trace.Option {
	return []trace.Option{trace.WithConfig(trace.Config{
		MaxDepth:  c.MaxDepth,
		MaxPasses: c.MaxPasses,
	})}
}

// NewLogger builds the logger used by commands. Logs are written to stderr.
func (c Config) NewLogger() (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = lvl
	return zcfg.Build()
}

package trace

// Config bounds the work done by Compile.
type Config struct {
	// MaxDepth is the maximum number of nested branch points.
	MaxDepth int
	// MaxPasses is the maximum number of times the traced function is run.
	MaxPasses int
}

func DefaultConfig() Config {
	return Config{
		MaxDepth:  64,
		MaxPasses: 1 << 16,
	}
}

type Option func(c *Config)

func WithMaxDepth(n int) Option {
	return func(c *Config) {
		c.MaxDepth = n
	}
}

func WithMaxPasses(n int) Option {
	return func(c *Config) {
		c.MaxPasses = n
	}
}

func WithConfig(cfg Config) Option {
	return func(c *Config) {
		*c = cfg
	}
}

package internal

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config     *Config
	configPath string
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithConfigPath sets the config file path to watch for hot reload of the
// conversion section. Empty disables watching.
func WithConfigPath(path string) Option {
	return func(a *application) {
		a.configPath = path
	}
}

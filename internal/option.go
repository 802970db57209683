package internal

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	watch  bool
	dryRun bool
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithWatch keeps the process alive watching the vault for changes after the
// initial scan and link pass.
func WithWatch(watch bool) Option {
	return func(a *application) {
		a.watch = watch
	}
}

// WithDryRun suggests links without rewriting any file.
func WithDryRun(dryRun bool) Option {
	return func(a *application) {
		a.dryRun = dryRun
	}
}

package host

// Option configures a Host beyond its root directory.
type Option func(o *opts)

type opts struct {
	config         *Config
	userDir        string
	extraThemeDirs []string
}

// WithConfig supplies an already loaded configuration, skipping the read
// of <root>/.wsb/config.yaml.
func WithConfig(config *Config) Option {
	return func(o *opts) {
		o.config = config
	}
}

// WithUserDir adds a per-user data directory whose themes participate in
// resource lookup after the root's own.
func WithUserDir(dir string) Option {
	return func(o *opts) {
		o.userDir = dir
	}
}

// WithExtraThemeDirs appends theme collection directories, each holding
// one subdirectory per theme, searched after the root and user
// directories.
func WithExtraThemeDirs(dirs ...string) Option {
	return func(o *opts) {
		o.extraThemeDirs = append(o.extraThemeDirs, dirs...)
	}
}

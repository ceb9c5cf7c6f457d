package host

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	// WSBDir is the name of the application directory under a host root.
	WSBDir = ".wsb"

	// ConfigFile is the host configuration file, relative to the root.
	ConfigFile = WSBDir + "/config.yaml"
)

// Config is a host configuration, normally loaded from
// <root>/.wsb/config.yaml. Values missing from the file keep their
// defaults.
type Config struct {
	App  AppConfig             `mapstructure:"app"`
	Book map[string]BookConfig `mapstructure:"book"`
}

// AppConfig configures the host as a whole.
type AppConfig struct {
	// Name is the display name of the host.
	Name string `mapstructure:"name"`

	// Theme selects the theme used for static files, templates and
	// locales.
	Theme string `mapstructure:"theme"`

	// Root is the served directory, relative to the host root.
	Root string `mapstructure:"root"`

	// BackupDir is the backup location, relative to the host root.
	BackupDir string `mapstructure:"backup_dir"`

	// LockTimeout and LockStale override the lock defaults when
	// positive.
	LockTimeout time.Duration `mapstructure:"lock_timeout"`
	LockStale   time.Duration `mapstructure:"lock_stale"`
}

// BookConfig configures a single book of the host.
type BookConfig struct {
	// Name is the book's display name.
	Name string `mapstructure:"name"`

	// TopDir is the book's top directory relative to the served
	// directory; empty keeps the book at the served directory itself.
	TopDir string `mapstructure:"top_dir"`

	// DataDir and TreeDir resolve relative to the top directory.
	DataDir string `mapstructure:"data_dir"`
	TreeDir string `mapstructure:"tree_dir"`

	// Index is the tree index page, relative to the top directory.
	Index string `mapstructure:"index"`

	// NoTree disables tree management for the book.
	NoTree bool `mapstructure:"no_tree"`
}

func defaultConfig() Config {
	return Config{
		App: AppConfig{
			Name:      "WebScrapBook",
			Theme:     "default",
			Root:      ".",
			BackupDir: WSBDir + "/backup",
		},
		Book: map[string]BookConfig{
			"": defaultBookConfig(),
		},
	}
}

func defaultBookConfig() BookConfig {
	return BookConfig{
		Name:    "scrapbook",
		TreeDir: WSBDir + "/tree",
		Index:   WSBDir + "/tree/map.html",
	}
}

// LoadConfig reads the configuration file under root. A missing file is
// not an error; the defaults are returned.
func LoadConfig(root string) (*Config, error) {
	v := viper.New()

	path := filepath.Join(root, ConfigFile)
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config %q", path)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "failed to check config %q", path)
	}

	config := defaultConfig()
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal config %q", path)
	}
	config.normalize()

	return &config, nil
}

// normalize guarantees the default book exists and fills book values the
// decoder left empty. Book entries decode into fresh structs rather than
// onto the defaults, so an empty string here means not configured.
func (c *Config) normalize() {
	if c.Book == nil {
		c.Book = make(map[string]BookConfig)
	}
	if _, ok := c.Book[""]; !ok {
		c.Book[""] = defaultBookConfig()
	}

	defaults := defaultBookConfig()
	for id, book := range c.Book {
		if book.Name == "" {
			book.Name = defaults.Name
		}
		if book.TreeDir == "" {
			book.TreeDir = defaults.TreeDir
		}
		if book.Index == "" {
			book.Index = defaults.Index
		}
		c.Book[id] = book
	}
}

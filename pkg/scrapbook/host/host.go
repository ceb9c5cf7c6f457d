// Package host assembles the serving context of a scrapbook root: its
// configuration, books, theme resources, localization and locks.
package host

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/webscrapbook/wsb-server/pkg/cache"
	"github.com/webscrapbook/wsb-server/pkg/lock"
	"github.com/webscrapbook/wsb-server/pkg/lock/filesystem"
	"github.com/webscrapbook/wsb-server/pkg/scrapbook/book"
	"github.com/webscrapbook/wsb-server/pkg/scrapbook/localization"
)

// ErrBookNotFound indicates the requested book id is not configured.
var ErrBookNotFound = errors.New("book does not exist")

// Host is the serving context of one scrapbook root. All path fields are
// absolute, derived once at construction; the configuration is not
// re-read afterwards.
type Host struct {
	log    *logrus.Entry
	root   string
	name   string
	config *Config

	// chroot is the served directory; backupDir receives backups.
	chroot    string
	backupDir string

	// themes and its derived lists hold the theme search path, highest
	// priority first.
	themes    []string
	statics   []string
	templates []string
	locales   []string

	locksDir string
	locks    *filesystem.LockManager

	books cache.Cache
}

// New creates a Host for the scrapbook set rooted at root.
func New(root string, options ...Option) (*Host, error) {
	if root == "" {
		return nil, errors.New("root directory is required")
	}

	var o opts
	for _, opt := range options {
		opt(&o)
	}

	// Resolve the root once; every derived path below is anchored to the
	// resolved location.
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve root directory")
	}
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}

	config := o.config
	if config == nil {
		config, err = LoadConfig(root)
		if err != nil {
			return nil, err
		}
	}

	theme := config.App.Theme
	themes := []string{filepath.Join(root, WSBDir, "themes", theme)}
	if o.userDir != "" {
		themes = append(themes, filepath.Join(o.userDir, "themes", theme))
	}
	for _, dir := range o.extraThemeDirs {
		themes = append(themes, filepath.Join(dir, theme))
	}

	statics := make([]string, len(themes))
	templates := make([]string, len(themes))
	locales := make([]string, len(themes))
	for i, dir := range themes {
		statics[i] = filepath.Join(dir, "static")
		templates[i] = filepath.Join(dir, "templates")
		locales[i] = filepath.Join(dir, "locales")
	}

	h := &Host{
		log: logrus.StandardLogger().WithFields(logrus.Fields{
			"type": "scrapbook/Host",
			"root": root,
		}),
		root:      root,
		name:      config.App.Name,
		config:    config,
		chroot:    filepath.Join(root, config.App.Root),
		backupDir: filepath.Join(root, config.App.BackupDir),
		themes:    themes,
		statics:   statics,
		templates: templates,
		locales:   locales,
		locksDir:  filepath.Join(root, WSBDir, "locks"),
	}

	var lockOpts []lock.Option
	if config.App.LockTimeout > 0 {
		lockOpts = append(lockOpts, lock.WithTimeout(config.App.LockTimeout))
	}
	if config.App.LockStale > 0 {
		lockOpts = append(lockOpts, lock.WithStale(config.App.LockStale))
	}
	h.locks, err = filesystem.NewLockManager(h.locksDir, lockOpts...)
	if err != nil {
		return nil, err
	}

	h.books = cache.NewCache(h.loadBook)

	h.log.WithField("name", h.name).Debug("Host created")
	return h, nil
}

// Root returns the resolved host root.
func (h *Host) Root() string {
	return h.root
}

// Name returns the host's display name.
func (h *Host) Name() string {
	return h.name
}

// Config returns the host configuration.
func (h *Host) Config() *Config {
	return h.config
}

// Chroot returns the served directory.
func (h *Host) Chroot() string {
	return h.chroot
}

// BackupDir returns the backup directory.
func (h *Host) BackupDir() string {
	return h.backupDir
}

// Themes returns the theme search path, highest priority first.
func (h *Host) Themes() []string {
	return h.themes
}

// Statics returns the static file search path.
func (h *Host) Statics() []string {
	return h.statics
}

// Templates returns the template search path.
func (h *Host) Templates() []string {
	return h.templates
}

// Locales returns the locale search path.
func (h *Host) Locales() []string {
	return h.locales
}

// LocksDir returns the directory holding the host's lease files.
func (h *Host) LocksDir() string {
	return h.locksDir
}

// GetStaticFile searches the static directories of the theme search path
// and returns the first regular file matching the relative path.
func (h *Host) GetStaticFile(relPath string) (string, bool) {
	for _, dir := range h.statics {
		file := filepath.Join(dir, relPath)
		if info, err := os.Stat(file); err == nil && info.Mode().IsRegular() {
			return file, true
		}
	}
	return "", false
}

// GetLock returns a lock scoped to this host's lock directory.
func (h *Host) GetLock(name string, opts ...lock.Option) (lock.Lock, error) {
	return h.locks.Create(name, opts...)
}

// I18n returns a message lookup over the theme search path's locale
// directories, preferring langs in order.
func (h *Host) I18n(langs ...string) (*localization.I18n, error) {
	return localization.New(h.locales, langs...)
}

// Book returns the book for a configured id, constructing it on first
// access and caching it for the host's lifetime. The default book has an
// empty id.
func (h *Host) Book(id string) (*book.Book, error) {
	v, err := h.books.Get(id)
	if err != nil {
		return nil, err
	}
	return v.(*book.Book), nil
}

// BookIDs returns the configured book ids in sorted order.
func (h *Host) BookIDs() []string {
	ids := make([]string, 0, len(h.config.Book))
	for id := range h.config.Book {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// loadBook backs the books cache.
func (h *Host) loadBook(id string) (interface{}, error) {
	config, ok := h.config.Book[id]
	if !ok {
		return nil, errors.Wrapf(ErrBookNotFound, "book %q", id)
	}

	return book.New(id, h.root, h.chroot, h.backupDir, book.Config{
		Name:    config.Name,
		TopDir:  config.TopDir,
		DataDir: config.DataDir,
		TreeDir: config.TreeDir,
		NoTree:  config.NoTree,
	}, h.locks), nil
}

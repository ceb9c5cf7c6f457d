// Package book models a single scrapbook of a host: its directory
// layout, its tree files, and the locks guarding them.
package book

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/webscrapbook/wsb-server/pkg/lock"
)

// Config is the per-book slice of a host configuration. All directories
// are relative: TopDir to the host's served directory, DataDir and
// TreeDir to the top directory.
type Config struct {
	Name    string
	TopDir  string
	DataDir string
	TreeDir string
	NoTree  bool
}

// Book is one scrapbook of a host. The path fields are absolute,
// derived once at construction.
type Book struct {
	// ID is the book's key in the host configuration; the default book
	// has an empty id.
	ID string

	// Name is the book's display name.
	Name string

	// Root is the host root the book belongs to.
	Root string

	// TopDir is the book's top directory. DataDir holds the captured
	// pages and TreeDir the tree files; either may coincide with TopDir
	// when not configured.
	TopDir  string
	DataDir string
	TreeDir string

	// NoTree disables tree management for the book.
	NoTree bool

	// Meta, Toc and Fulltext hold the loaded tree data, keyed by item
	// id. Each is nil until the corresponding load method runs; callers
	// mutate the maps in place and write them back with the save
	// methods.
	Meta     map[string]interface{}
	Toc      map[string]interface{}
	Fulltext map[string]interface{}

	// BackupDir is the directory receiving backups, set by InitBackup.
	// Backup is a no-op while it is empty.
	BackupDir string

	backupBase string
	locks      lock.Manager

	saveMetaThreshold     int
	saveTocThreshold      int
	saveFulltextThreshold int
}

// New derives a Book's directory layout from the host root, the host's
// served directory, the host's backup directory, and the book's
// configuration.
func New(id, root, chroot, backupDir string, config Config, locks lock.Manager) *Book {
	topDir := filepath.Join(chroot, config.TopDir)
	return &Book{
		ID:      id,
		Name:    config.Name,
		Root:    root,
		TopDir:  topDir,
		DataDir: filepath.Join(topDir, config.DataDir),
		TreeDir: filepath.Join(topDir, config.TreeDir),
		NoTree:  config.NoTree,

		backupBase: backupDir,
		locks:      locks,

		saveMetaThreshold:     defaultSaveMetaThreshold,
		saveTocThreshold:      defaultSaveTocThreshold,
		saveFulltextThreshold: defaultSaveFulltextThreshold,
	}
}

// GetSubpath returns path relative to the host root, in slash form.
func (b *Book) GetSubpath(path string) (string, error) {
	rel, err := filepath.Rel(b.Root, path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to relativize %q", path)
	}
	return filepath.ToSlash(rel), nil
}

// TreeFile returns the path of a tree file. Tree files are sharded:
// index 0 is <name>.js and later shards are <name>1.js, <name>2.js and
// so on.
func (b *Book) TreeFile(name string, index int) string {
	if index == 0 {
		return filepath.Join(b.TreeDir, name+".js")
	}
	return filepath.Join(b.TreeDir, fmt.Sprintf("%s%d.js", name, index))
}

// IterTreeFiles returns the existing shards of a tree file in order,
// stopping at the first index with no regular file.
func (b *Book) IterTreeFiles(name string) []string {
	var files []string
	for i := 0; ; i++ {
		file := b.TreeFile(name, i)
		info, err := os.Stat(file)
		if err != nil || !info.Mode().IsRegular() {
			return files
		}
		files = append(files, file)
	}
}

// GetLock returns a lock for a book-scoped resource. Lock names embed
// the book id, so books of the same host never contend with each other.
func (b *Book) GetLock(name string, opts ...lock.Option) (lock.Lock, error) {
	return b.locks.Create(fmt.Sprintf("book-%s-%s", b.ID, name), opts...)
}

// GetTreeLock returns the lock guarding this book's tree files.
func (b *Book) GetTreeLock(opts ...lock.Option) (lock.Lock, error) {
	return b.GetLock("tree", opts...)
}

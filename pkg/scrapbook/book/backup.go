package book

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// BackupOptions control a single Backup call.
type BackupOptions struct {
	// Base is the directory the backed-up path must reside in; its
	// relative layout is reproduced under BackupDir. Defaults to the
	// book root.
	Base string

	// Move removes the source after a successful backup.
	Move bool
}

// BackupOption defines options when backing up a path.
type BackupOption func(o *BackupOptions)

// WithBackupBase overrides the base directory of the backup layout.
func WithBackupBase(dir string) BackupOption {
	return func(o *BackupOptions) {
		o.Base = dir
	}
}

// WithBackupMove moves the source into the backup instead of copying.
func WithBackupMove() BackupOption {
	return func(o *BackupOptions) {
		o.Move = true
	}
}

// InitBackup points BackupDir at a directory named ts under the host's
// backup directory, deriving the name from the current time when ts is
// empty. Nothing is written until Backup runs.
func (b *Book) InitBackup(ts string) string {
	if ts == "" {
		ts = timestampID(time.Now())
	}
	b.BackupDir = filepath.Join(b.backupBase, ts)
	return b.BackupDir
}

// ClearBackup unsets BackupDir, disabling backups.
func (b *Book) ClearBackup() {
	b.BackupDir = ""
}

// Backup copies a file or directory into BackupDir, preserving its
// layout relative to the base directory. Backing up is skipped while
// BackupDir is unset, when path does not exist, and when path lies
// outside the base.
func (b *Book) Backup(path string, opts ...BackupOption) error {
	if b.BackupDir == "" {
		return nil
	}

	options := BackupOptions{Base: b.Root}
	for _, o := range opts {
		o(&options)
	}

	if _, err := os.Lstat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "failed to stat %q", path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrapf(err, "failed to resolve %q", path)
	}
	rel, err := filepath.Rel(options.Base, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return nil
	}

	dst := filepath.Join(b.BackupDir, rel)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create backup directory for %q", path)
	}

	if options.Move {
		if err := os.Rename(abs, dst); err == nil {
			return nil
		}
		// Renaming fails across filesystems; fall back to copying.
		if err := copyPath(abs, dst); err != nil {
			return err
		}
		if err := os.RemoveAll(abs); err != nil {
			return errors.Wrapf(err, "failed to remove %q after backup", path)
		}
		return nil
	}

	return copyPath(abs, dst)
}

// copyPath copies a file, or a directory tree recursively, to dst.
func copyPath(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return errors.Wrapf(err, "failed to stat %q", src)
	}
	if !info.IsDir() {
		return copyFile(src, dst, info)
	}

	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target, info)
	})
}

// copyFile copies a single file, carrying over its mode and
// modification time.
func copyFile(src, dst string, info os.FileInfo) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, "failed to open %q", src)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return errors.Wrapf(err, "failed to create %q", dst)
	}

	_, err = io.Copy(out, in)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return errors.Wrapf(err, "failed to copy %q", src)
	}

	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

// timestampID renders t as the 17-digit UTC timestamp id used to name
// scrapbook items and backups.
func timestampID(t time.Time) string {
	t = t.UTC()
	return t.Format("20060102150405") + fmt.Sprintf("%03d", t.Nanosecond()/1000000)
}

package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/pario-ai/typedchat/pkg/models"
)

const entryExt = ".json"

// PersistenceError reports a failed write to the disk mirror. The request
// that produced the body is unaffected by it.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist cache entry %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Disk mirrors response bodies into a directory, one file per key. Files are
// never evicted; cleaning the directory is left to the operator.
type Disk struct {
	dir    string
	logger zerolog.Logger
}

// NewDisk returns a mirror rooted at dir. The directory is created lazily on
// the first write.
func NewDisk(dir string, logger zerolog.Logger) *Disk {
	return &Disk{dir: dir, logger: logger.With().Str("component", "disk_cache").Logger()}
}

// Dir returns the mirror directory.
func (d *Disk) Dir() string { return d.dir }

// Path returns the file that holds key.
func (d *Disk) Path(key Key) string {
	return filepath.Join(d.dir, key.String()+entryExt)
}

// Get reads the body stored for key. Any failure, including a missing
// directory, is reported as a miss.
func (d *Disk) Get(key Key) (string, bool) {
	path := d.Path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			d.logger.Debug().Err(err).Str("path", path).Msg("disk cache read failed, treating as miss")
		}
		return "", false
	}
	if len(data) == 0 {
		return "", false
	}
	return string(data), true
}

// Put writes body for key through a temp file and rename so readers never
// see a partial entry.
func (d *Disk) Put(key Key, body string) error {
	path := d.Path(key)
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return &PersistenceError{Path: path, Err: fmt.Errorf("create cache directory: %w", err)}
	}

	tmp, err := os.CreateTemp(d.dir, "."+key.String()+".*.tmp")
	if err != nil {
		return &PersistenceError{Path: path, Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &PersistenceError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &PersistenceError{Path: path, Err: err}
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return &PersistenceError{Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &PersistenceError{Path: path, Err: err}
	}
	return nil
}

// Stats counts entries and bytes in the mirror directory.
func (d *Disk) Stats() (models.DiskStats, error) {
	stats := models.DiskStats{Dir: d.dir}
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return stats, nil
		}
		return stats, fmt.Errorf("read cache directory: %w", err)
	}
	for _, e := range entries {
		if !isEntry(e) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		stats.Entries++
		stats.TotalBytes += info.Size()
	}
	return stats, nil
}

// Clear removes every entry file and returns how many were removed.
func (d *Disk) Clear() (int, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read cache directory: %w", err)
	}
	var removed int
	for _, e := range entries {
		if !isEntry(e) {
			continue
		}
		if err := os.Remove(filepath.Join(d.dir, e.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

func isEntry(e fs.DirEntry) bool {
	if e.IsDir() || filepath.Ext(e.Name()) != entryExt {
		return false
	}
	_, err := ParseKey(e.Name()[:len(e.Name())-len(entryExt)])
	return err == nil
}

package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultExtension is used when the original filename carries no usable extension.
const DefaultExtension = ".webm"

var (
	// ErrNotFound indicates the requested artifact does not exist or is not readable.
	ErrNotFound = errors.New("artifact not found")
	// ErrWrite indicates an I/O failure while writing or staging an artifact.
	ErrWrite = errors.New("artifact write failed")
)

// Disk stores recording artifacts on the local filesystem under a fixed root,
// partitioned by ingestion date (YYYY/MM/DD/<id><ext>).
type Disk struct {
	root   string
	now    func() time.Time
	logger *zap.Logger
}

// NewDisk creates a disk store rooted at root. The root is created if absent.
func NewDisk(root string, logger *zap.Logger) (*Disk, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Disk{root: root, now: time.Now, logger: logger}, nil
}

// Save writes the stream to <root>/<YYYY>/<MM>/<DD>/<id><ext> and returns the
// path relative to the root. The write goes to a temporary file first and is
// renamed into place, so readers never observe a partial artifact. An existing
// file at the exact path is overwritten.
func (d *Disk) Save(r io.Reader, id, originalFilename string) (string, error) {
	now := d.now()
	partition := fmt.Sprintf("%04d/%02d/%02d", now.Year(), now.Month(), now.Day())

	dir := filepath.Join(d.root, partition)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("%w: create partition dir: %v", ErrWrite, err)
	}

	filename := id + FileExtension(originalFilename)
	target := filepath.Join(dir, filename)

	tmp, err := os.CreateTemp(dir, filename+".upload-*")
	if err != nil {
		return "", fmt.Errorf("%w: create temp file: %v", ErrWrite, err)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("%w: write artifact: %v", ErrWrite, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("%w: close artifact: %v", ErrWrite, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("%w: install artifact: %v", ErrWrite, err)
	}

	relPath := partition + "/" + filename
	d.logger.Info("saved artifact", zap.String("path", relPath))
	return relPath, nil
}

// Open returns the artifact file and its size. The file supports seeking for
// byte-range reads. Callers own closing the file.
func (d *Disk) Open(relPath string) (*os.File, int64, error) {
	f, err := os.Open(d.AbsolutePath(relPath))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, relPath)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, relPath)
	}
	return f, info.Size(), nil
}

// Size returns the current byte length of the artifact.
func (d *Disk) Size(relPath string) (int64, error) {
	info, err := os.Stat(d.AbsolutePath(relPath))
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, relPath)
	}
	return info.Size(), nil
}

// AbsolutePath resolves a relative artifact path against the storage root.
// It performs no existence check.
func (d *Disk) AbsolutePath(relPath string) string {
	return filepath.Join(d.root, filepath.FromSlash(relPath))
}

// FileExtension derives the stored file extension from the original filename,
// falling back to DefaultExtension when absent or unparseable.
func FileExtension(filename string) string {
	lastDot := strings.LastIndexByte(filename, '.')
	if lastDot <= 0 || lastDot == len(filename)-1 {
		return DefaultExtension
	}
	return filename[lastDot:]
}

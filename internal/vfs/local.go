package vfs

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/odedia/translation-layer/internal/apperr"
)

// Local is a VFS rooted at a directory on the machine this process runs
// on.
type Local struct {
	root string
}

// NewLocal returns a Local VFS rooted at root. root must already exist.
func NewLocal(root string) (*Local, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, apperr.NewInternal("cannot resolve local vfs root", err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return nil, apperr.NewNotConfigured("local vfs root does not exist or is not a directory", err).WithContext("root", abs)
	}
	return &Local{root: abs}, nil
}

// normalize resolves a caller-supplied relative path against the root and
// rejects anything that escapes it — the only defense a local VFS needs
// against path traversal ("../../etc/passwd") from an untrusted caller.
func (l *Local) normalize(path string) (string, error) {
	full := filepath.Join(l.root, path) // Join cleans the result, resolving any ".."
	if full != l.root && !strings.HasPrefix(full, l.root+string(filepath.Separator)) {
		return "", apperr.NewBadInput("path escapes vfs root", nil).WithContext("path", path)
	}
	return full, nil
}

func (l *Local) List(ctx context.Context, path string) ([]Entry, error) {
	full, err := l.normalize(path)
	if err != nil {
		return nil, err
	}
	dirEntries, err := os.ReadDir(full)
	if err != nil {
		return nil, apperr.NewNotFound("cannot list directory", err).WithContext("path", path)
	}

	out := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		info, err := de.Info()
		var size int64
		if err == nil {
			size = info.Size()
		}
		out = append(out, Entry{
			Name:  de.Name(),
			Path:  filepath.Join(path, de.Name()),
			IsDir: de.IsDir(),
			Size:  size,
		})
	}
	return out, nil
}

func (l *Local) ReadSubtitle(ctx context.Context, path string) (string, error) {
	full, err := l.normalize(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", apperr.NewNotFound("cannot read subtitle file", err).WithContext("path", path)
	}
	return string(data), nil
}

func (l *Local) WriteSubtitle(ctx context.Context, path string, text string) error {
	full, err := l.normalize(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(full)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return apperr.NewInternal("cannot create temp file", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return apperr.NewInternal("cannot write subtitle temp file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return apperr.NewInternal("cannot close subtitle temp file", err)
	}
	if err := os.Rename(tmpPath, full); err != nil {
		os.Remove(tmpPath)
		return apperr.NewInternal("cannot rename subtitle temp file into place", err)
	}
	return nil
}

// WriteSubtitleDirect writes straight to the destination path. On a local
// filesystem there's no cost advantage to skipping the atomic path, so
// this simply delegates to WriteSubtitle.
func (l *Local) WriteSubtitleDirect(ctx context.Context, path string, text string) error {
	return l.WriteSubtitle(ctx, path, text)
}

func (l *Local) DownloadToTemp(ctx context.Context, path string) (string, func(), error) {
	full, err := l.normalize(path)
	if err != nil {
		return "", nil, err
	}
	// Already local: no copy needed, and cleanup is a no-op since the
	// "temp" path is the real file.
	if _, err := os.Stat(full); err != nil {
		return "", nil, apperr.NewNotFound("cannot stat file for download", err).WithContext("path", path)
	}
	return full, func() {}, nil
}

func (l *Local) DownloadHeaderToTemp(ctx context.Context, path string, maxBytes int64) (string, func(), error) {
	full, err := l.normalize(path)
	if err != nil {
		return "", nil, err
	}
	src, err := os.Open(full)
	if err != nil {
		return "", nil, apperr.NewNotFound("cannot open file for header probe", err).WithContext("path", path)
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "vfs-header-*")
	if err != nil {
		return "", nil, apperr.NewInternal("cannot create header temp file", err)
	}
	if _, err := copyLimited(tmp, src, maxBytes); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, apperr.NewInternal("cannot copy header bytes", err)
	}
	tmp.Close()

	tmpPath := tmp.Name()
	return tmpPath, func() { os.Remove(tmpPath) }, nil
}

func (l *Local) ExtractVideoTitle(ctx context.Context, path string) (string, error) {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base)), nil
}

// Package vfs abstracts over the file tree this service browses and reads
// video/subtitle files from, so the batch orchestrator doesn't care
// whether it's walking a local disk or an SMB share.
package vfs

import (
	"context"
	"io"
)

// Entry is one file tree listing result.
type Entry struct {
	Name  string
	Path  string
	IsDir bool
	Size  int64
}

// DefaultHeaderProbeBytes bounds how much of a video container this
// service will fetch just to sniff its subtitle tracks, so probing a
// multi-gigabyte remote file doesn't pull the whole thing over the wire.
const DefaultHeaderProbeBytes = 20 * 1024 * 1024 // 20 MiB

// VFS is the filesystem contract the batch orchestrator and demuxer need.
// Every path is relative to whatever root the implementation was
// constructed with; callers never see or supply an absolute host path.
type VFS interface {
	// List returns the immediate children of path ("" for the root).
	List(ctx context.Context, path string) ([]Entry, error)

	// ReadSubtitle reads a small text file (an existing subtitle) in full.
	ReadSubtitle(ctx context.Context, path string) (string, error)

	// WriteSubtitle writes text to path via a temp-file-then-rename
	// sequence where the underlying filesystem supports one.
	WriteSubtitle(ctx context.Context, path string, text string) error

	// WriteSubtitleDirect writes text to path without the atomic-rename
	// indirection, for filesystems (like SMB shares) where a rename
	// across the wire costs more than it's worth for a one-shot write.
	WriteSubtitleDirect(ctx context.Context, path string, text string) error

	// DownloadToTemp returns a local path holding path's full contents,
	// for video files too large or remote to demux in place. A remote
	// backend copies the file to a local temp file; Local returns the real
	// file with a no-op cleanup.
	DownloadToTemp(ctx context.Context, path string) (tempPath string, cleanup func(), err error)

	// DownloadHeaderToTemp copies at most maxBytes from the start of path
	// to a local temp file, enough for a demuxer to read the container's
	// track list without transferring the whole file.
	DownloadHeaderToTemp(ctx context.Context, path string, maxBytes int64) (tempPath string, cleanup func(), err error)

	// ExtractVideoTitle returns a human-readable title for path. Both
	// implementations derive it from the filename with its extension
	// stripped; container metadata is not read.
	ExtractVideoTitle(ctx context.Context, path string) (string, error)
}

// copyLimited copies at most n bytes from src to dst, returning how many
// bytes were actually copied.
func copyLimited(dst io.Writer, src io.Reader, n int64) (int64, error) {
	return io.Copy(dst, io.LimitReader(src, n))
}

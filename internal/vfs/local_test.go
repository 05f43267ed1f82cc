package vfs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/odedia/translation-layer/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLocal(t *testing.T) *Local {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "movie.mkv"), []byte("fake video"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "existing.srt"), []byte("1\n00:00:00,000 --> 00:00:01,000\nhi\n"), 0o644))

	l, err := NewLocal(root)
	require.NoError(t, err)
	return l
}

func TestLocalListRoot(t *testing.T) {
	l := setupLocal(t)
	entries, err := l.List(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestLocalReadSubtitle(t *testing.T) {
	l := setupLocal(t)
	text, err := l.ReadSubtitle(context.Background(), "sub/existing.srt")
	require.NoError(t, err)
	assert.Contains(t, text, "hi")
}

func TestLocalWriteSubtitleIsAtomicAndReadable(t *testing.T) {
	l := setupLocal(t)
	require.NoError(t, l.WriteSubtitle(context.Background(), "sub/out.srt", "translated"))

	text, err := l.ReadSubtitle(context.Background(), "sub/out.srt")
	require.NoError(t, err)
	assert.Equal(t, "translated", text)
}

func TestLocalRejectsPathTraversal(t *testing.T) {
	l := setupLocal(t)
	_, err := l.ReadSubtitle(context.Background(), "../../../etc/passwd")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.BadInput))
}

func TestLocalDownloadHeaderToTempRespectsLimit(t *testing.T) {
	l := setupLocal(t)
	tmpPath, cleanup, err := l.DownloadHeaderToTemp(context.Background(), "movie.mkv", 4)
	require.NoError(t, err)
	defer cleanup()

	data, err := os.ReadFile(tmpPath)
	require.NoError(t, err)
	assert.Len(t, data, 4)
}

func TestLocalExtractVideoTitleStripsExtension(t *testing.T) {
	l := setupLocal(t)
	title, err := l.ExtractVideoTitle(context.Background(), "movie.mkv")
	require.NoError(t, err)
	assert.Equal(t, "movie", title)
}

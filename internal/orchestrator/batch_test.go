package orchestrator

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odedia/translation-layer/internal/demux"
	"github.com/odedia/translation-layer/internal/engine"
	"github.com/odedia/translation-layer/internal/progress"
	"github.com/odedia/translation-layer/internal/vfs"
	"github.com/odedia/translation-layer/pkg/llms"
)

func createTemp(data []byte) (string, error) {
	f, err := os.CreateTemp("", "batch-test-*")
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return "", err
	}
	return f.Name(), nil
}

func removeTemp(path string) {
	os.Remove(path)
}

// memVFS is an in-memory VFS double: a flat map of path -> (content,isDir).
type memVFS struct {
	files map[string][]byte
	dirs  map[string][]string // dir path -> child names
}

func newMemVFS() *memVFS {
	return &memVFS{files: map[string][]byte{}, dirs: map[string][]string{"": {}}}
}

func (m *memVFS) addFile(path string, data []byte) {
	m.files[path] = data
	m.dirs[""] = append(m.dirs[""], path)
}

func (m *memVFS) List(ctx context.Context, path string) ([]vfs.Entry, error) {
	var out []vfs.Entry
	for _, name := range m.dirs[path] {
		out = append(out, vfs.Entry{Name: name, Path: name, IsDir: false, Size: int64(len(m.files[name]))})
	}
	return out, nil
}

func (m *memVFS) ReadSubtitle(ctx context.Context, path string) (string, error) {
	return string(m.files[path]), nil
}

func (m *memVFS) WriteSubtitle(ctx context.Context, path string, text string) error {
	m.files[path] = []byte(text)
	return nil
}

func (m *memVFS) WriteSubtitleDirect(ctx context.Context, path string, text string) error {
	return m.WriteSubtitle(ctx, path, text)
}

func (m *memVFS) DownloadToTemp(ctx context.Context, path string) (string, func(), error) {
	return writeTempFile(m.files[path])
}

func (m *memVFS) DownloadHeaderToTemp(ctx context.Context, path string, maxBytes int64) (string, func(), error) {
	data := m.files[path]
	if int64(len(data)) > maxBytes {
		data = data[:maxBytes]
	}
	return writeTempFile(data)
}

func (m *memVFS) ExtractVideoTitle(ctx context.Context, path string) (string, error) {
	return path, nil
}

func writeTempFile(data []byte) (string, func(), error) {
	f, err := createTemp(data)
	return f, func() { removeTemp(f) }, err
}

// fakeDemux pretends every video it's asked about has exactly one English
// track, and "extracting" it returns a fixed one-cue SRT document. It is
// keyed by a logical video path, not the (randomly named) temp file the
// orchestrator actually hands it, since the VFS double materializes each
// probe/download as its own throwaway temp file.
type fakeDemux struct {
	tracksFor map[string][]demux.Track
	anyPath   bool
}

func (d *fakeDemux) SubtitleTracks(ctx context.Context, path string) ([]demux.Track, error) {
	for _, tracks := range d.tracksFor {
		if len(tracks) > 0 {
			return tracks, nil
		}
	}
	return nil, fmt.Errorf("no tracks")
}

func (d *fakeDemux) ExtractTrack(ctx context.Context, path string, index uint8) (string, error) {
	return "1\n00:00:00,000 --> 00:00:01,000\nhello from video\n", nil
}

type batchEchoProvider struct{}

func (p *batchEchoProvider) GetName() string       { return "openai" }
func (p *batchEchoProvider) GetDescription() string { return "echo" }
func (p *batchEchoProvider) RequiresAPIKey() bool   { return false }
func (p *batchEchoProvider) GetAvailableModels(ctx context.Context) []llms.ModelInfo { return nil }
func (p *batchEchoProvider) Complete(ctx context.Context, req llms.CompletionRequest) (llms.CompletionResponse, error) {
	return llms.CompletionResponse{Text: "<<~0~>> bonjour"}, nil
}

func TestBatchAnalyzeAndStart(t *testing.T) {
	fs := newMemVFS()
	fs.addFile("movie1.mkv", []byte("fake-video-bytes"))
	fs.dirs["movie1.mkv"] = nil

	dx := &fakeDemux{tracksFor: map[string][]demux.Track{
		"movie1.mkv": {{Index: 0, Language: "eng", Title: "English"}},
	}}
	eng := engine.New(&batchEchoProvider{}, zerolog.Nop(), 0)
	reg := progress.NewRegistry()

	b := NewBatch(fs, dx, eng, reg, zerolog.Nop())
	require.NoError(t, b.Analyze(context.Background(), ""))

	videos, _ := b.Progress()
	require.Len(t, videos, 1)
	assert.True(t, videos[0].HasTrack)

	b.Start(context.Background(), "fr")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		vids, st := b.Progress()
		if st == BatchDone {
			require.Equal(t, VideoTranslated, vids[0].Status)
			assert.Equal(t, "movie1.fr.srt", vids[0].OutputPath)
			data, err := fs.ReadSubtitle(context.Background(), vids[0].OutputPath)
			require.NoError(t, err)
			assert.Contains(t, data, "bonjour")
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("batch did not finish in time")
}

// multiTrackDemux hands out tracksByIndex in call order (the n-th
// SubtitleTracks call gets the n-th entry) so a test can give different
// videos different (or no) English tracks, unlike fakeDemux which returns
// the same tracks regardless of which temp file it's asked about.
type multiTrackDemux struct {
	tracksByIndex [][]demux.Track
	calls         int
}

func (d *multiTrackDemux) SubtitleTracks(ctx context.Context, path string) ([]demux.Track, error) {
	i := d.calls
	d.calls++
	if i >= len(d.tracksByIndex) {
		return nil, fmt.Errorf("no tracks")
	}
	return d.tracksByIndex[i], nil
}

func (d *multiTrackDemux) ExtractTrack(ctx context.Context, path string, index uint8) (string, error) {
	return "1\n00:00:00,000 --> 00:00:01,000\nhello from video\n", nil
}

func TestBatchAnalyzeDropsVideosWithoutEnglishTrack(t *testing.T) {
	fs := newMemVFS()
	fs.addFile("movie1.mkv", []byte("a"))
	fs.addFile("movie2.mkv", []byte("b"))
	fs.addFile("movie3.mkv", []byte("c"))
	fs.dirs["movie1.mkv"] = nil
	fs.dirs["movie2.mkv"] = nil
	fs.dirs["movie3.mkv"] = nil

	dx := &multiTrackDemux{tracksByIndex: [][]demux.Track{
		{{Index: 0, Language: "eng", Title: "English"}},
		{{Index: 0, Language: "fra", Title: "French"}},
		{{Index: 0, Language: "eng", Title: "English"}},
	}}
	eng := engine.New(&batchEchoProvider{}, zerolog.Nop(), 0)
	reg := progress.NewRegistry()

	b := NewBatch(fs, dx, eng, reg, zerolog.Nop())
	require.NoError(t, b.Analyze(context.Background(), ""))

	videos, _ := b.Progress()
	require.Len(t, videos, 2)
	for _, v := range videos {
		assert.True(t, v.HasTrack)
	}
}

func TestBatchAnalyzeEmptyRootReturnsEmptyError(t *testing.T) {
	fs := newMemVFS()
	dx := &fakeDemux{tracksFor: map[string][]demux.Track{}}
	eng := engine.New(&batchEchoProvider{}, zerolog.Nop(), 0)
	reg := progress.NewRegistry()

	b := NewBatch(fs, dx, eng, reg, zerolog.Nop())
	err := b.Analyze(context.Background(), "")
	require.Error(t, err)
}

package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/odedia/translation-layer/internal/apperr"
	"github.com/odedia/translation-layer/internal/demux"
	"github.com/odedia/translation-layer/internal/engine"
	"github.com/odedia/translation-layer/internal/pkg/fsutil"
	"github.com/odedia/translation-layer/internal/progress"
	"github.com/odedia/translation-layer/internal/vfs"
)

// minTempDiskSpaceGB is the minimum free space this service requires in the
// OS temp directory before starting a batch run — enough headroom for one
// in-flight video download-to-temp even on a library of large files.
const minTempDiskSpaceGB = 2

var videoExtensions = map[string]bool{
	".mkv": true,
}

// BatchState is the lifecycle state of a Batch run.
type BatchState string

const (
	BatchIdle      BatchState = "idle"
	BatchAnalyzing BatchState = "analyzing"
	BatchRunning   BatchState = "running"
	BatchDone      BatchState = "done"
	BatchCancelled BatchState = "cancelled"
	BatchFailed    BatchState = "failed"
)

// VideoStatus is one video's position within a Batch run.
type VideoStatus string

const (
	VideoPending    VideoStatus = "pending"
	VideoNoTrack    VideoStatus = "no_subtitle_track"
	VideoTranslated VideoStatus = "translated"
	VideoFailed     VideoStatus = "failed"
)

// VideoJob is one discovered video and its translation outcome.
type VideoJob struct {
	Path          string
	Tracks        []demux.Track
	SelectedTrack uint8
	HasTrack      bool
	Status        VideoStatus
	OutputPath    string
	Err           string
}

// Batch walks a video library, detects embedded subtitle tracks, and
// translates and writes them out next to the source video.
type Batch struct {
	VFS      vfs.VFS
	Demux    demux.Demuxer
	Engine   *engine.Engine
	Registry *progress.Registry
	Log      zerolog.Logger

	mu     sync.Mutex
	videos []VideoJob
	state  BatchState
	cancel context.CancelFunc
}

// NewBatch returns an idle Batch.
func NewBatch(v vfs.VFS, d demux.Demuxer, e *engine.Engine, r *progress.Registry, log zerolog.Logger) *Batch {
	return &Batch{VFS: v, Demux: d, Engine: e, Registry: r, Log: log, state: BatchIdle}
}

// Analyze recursively walks root, and for every video file found, probes
// just enough of its header to list embedded subtitle tracks. The header
// temp file is always removed before moving to the next video, regardless
// of whether the probe succeeded — a batch over a thousand videos must
// never accumulate a thousand temp files because one analysis step
// errored.
func (b *Batch) Analyze(ctx context.Context, root string) error {
	b.mu.Lock()
	b.state = BatchAnalyzing
	b.videos = nil
	b.mu.Unlock()

	var videos []VideoJob
	if err := b.walk(ctx, root, &videos); err != nil {
		b.mu.Lock()
		b.state = BatchFailed
		b.mu.Unlock()
		return err
	}

	for i := range videos {
		b.analyzeOne(ctx, &videos[i])
	}

	kept := videos[:0]
	for _, v := range videos {
		if v.HasTrack {
			kept = append(kept, v)
		}
	}

	b.mu.Lock()
	b.videos = kept
	b.state = BatchIdle
	b.mu.Unlock()

	if len(videos) == 0 {
		return apperr.NewEmpty("no video files found under root", nil).WithContext("root", root)
	}
	return nil
}

func (b *Batch) walk(ctx context.Context, dir string, out *[]VideoJob) error {
	if err := ctx.Err(); err != nil {
		return apperr.NewInternal("batch analysis cancelled", err)
	}
	entries, err := b.VFS.List(ctx, dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir {
			if err := b.walk(ctx, e.Path, out); err != nil {
				return err
			}
			continue
		}
		if videoExtensions[strings.ToLower(path.Ext(e.Name))] {
			*out = append(*out, VideoJob{Path: e.Path, Status: VideoPending})
		}
	}
	return nil
}

// analyzeOne probes a single video's header for subtitle tracks. The temp
// file cleanup runs unconditionally via defer immediately after the
// header download succeeds, before any of the fallible track-selection
// logic that follows.
func (b *Batch) analyzeOne(ctx context.Context, job *VideoJob) {
	tmpPath, cleanup, err := b.VFS.DownloadHeaderToTemp(ctx, job.Path, vfs.DefaultHeaderProbeBytes)
	if err != nil {
		job.Status = VideoFailed
		job.Err = err.Error()
		return
	}
	defer cleanup()

	tracks, err := b.Demux.SubtitleTracks(ctx, tmpPath)
	if err != nil {
		job.Status = VideoNoTrack
		job.Err = err.Error()
		return
	}

	best, ok := selectBestTrack(tracks)
	if !ok {
		job.Status = VideoNoTrack
		job.Err = "no English subtitle track found"
		return
	}

	job.Tracks = tracks
	job.SelectedTrack = best.Index
	job.HasTrack = true
}

// selectBestTrack prefers an English track whose title doesn't look like a
// hearing-impaired/SDH track, falling back to any English track. It reports
// false if tracks has no English-language entry at all.
func selectBestTrack(tracks []demux.Track) (demux.Track, bool) {
	isEnglish := func(t demux.Track) bool {
		lang := strings.ToLower(t.Language)
		return lang == "en" || lang == "eng" || lang == "english"
	}
	isSDH := func(t demux.Track) bool {
		title := strings.ToLower(t.Title)
		for _, marker := range []string{"sdh", "deaf", "hard of hearing", "cc", "closed caption"} {
			if strings.Contains(title, marker) {
				return true
			}
		}
		return false
	}

	for _, t := range tracks {
		if isEnglish(t) && !isSDH(t) {
			return t, true
		}
	}
	for _, t := range tracks {
		if isEnglish(t) {
			return t, true
		}
	}
	return demux.Track{}, false
}

// Start launches translation of every analyzed video with a selected
// track into lang, running in the background. Videos are processed
// sequentially — the global translation gate would serialize them anyway,
// so there's nothing to gain from parallelizing the extract/write steps
// around it.
func (b *Batch) Start(ctx context.Context, lang string) {
	if err := fsutil.CheckDiskSpace(os.TempDir(), minTempDiskSpaceGB, &b.Log); err != nil {
		b.mu.Lock()
		b.state = BatchFailed
		b.mu.Unlock()
		b.Log.Error().Err(err).Msg("refusing to start batch run")
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.cancel = cancel
	b.state = BatchRunning
	videos := make([]VideoJob, len(b.videos))
	copy(videos, b.videos)
	b.mu.Unlock()

	go func() {
		for i := range videos {
			if ctx.Err() != nil {
				b.mu.Lock()
				b.state = BatchCancelled
				b.mu.Unlock()
				return
			}
			fsutil.LogDiskSpaceWarnings(os.TempDir(), &b.Log)
			b.processOne(ctx, &videos[i], lang)
			b.mu.Lock()
			b.videos[i] = videos[i]
			b.mu.Unlock()
		}
		b.mu.Lock()
		if b.state == BatchRunning {
			b.state = BatchDone
		}
		b.mu.Unlock()
	}()
}

// processOne extracts, translates and writes a single video's subtitle.
// The downloaded video temp file is removed via defer immediately after
// extraction, before translation (the slow, failure-prone step) even
// begins, so a translation failure can never leave a multi-gigabyte video
// copy behind.
func (b *Batch) processOne(ctx context.Context, job *VideoJob, lang string) {
	if !job.HasTrack {
		job.Status = VideoNoTrack
		return
	}

	extractedText, err := b.extractTrack(ctx, job)
	if err != nil {
		job.Status = VideoFailed
		job.Err = err.Error()
		return
	}

	fp := LocalFingerprint()
	sub := &Subtitle{Cache: nil, Engine: b.Engine, Registry: b.Registry, Log: b.Log}
	translated, err := sub.translateWithoutCache(ctx, fp, extractedText, lang)
	if err != nil {
		job.Status = VideoFailed
		job.Err = err.Error()
		return
	}

	langCode := strings.ToLower(lang)
	base := strings.TrimSuffix(job.Path, path.Ext(job.Path))
	outPath := fmt.Sprintf("%s.%s.srt", base, langCode)

	withBOM := "\xEF\xBB\xBF" + translated
	if err := b.VFS.WriteSubtitle(ctx, outPath, withBOM); err != nil {
		job.Status = VideoFailed
		job.Err = err.Error()
		return
	}

	job.Status = VideoTranslated
	job.OutputPath = outPath
}

func (b *Batch) extractTrack(ctx context.Context, job *VideoJob) (string, error) {
	tmpPath, cleanup, err := b.VFS.DownloadToTemp(ctx, job.Path)
	if err != nil {
		return "", err
	}
	defer cleanup()

	return b.Demux.ExtractTrack(ctx, tmpPath, job.SelectedTrack)
}

// Progress returns a snapshot of every video's current status.
func (b *Batch) Progress() ([]VideoJob, BatchState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]VideoJob, len(b.videos))
	copy(out, b.videos)
	return out, b.state
}

// Cancel stops a running batch after its current video finishes.
func (b *Batch) Cancel() {
	b.mu.Lock()
	cancel := b.cancel
	b.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Package orchestrator wires the catalog client, cache, translation
// engine and progress registry into the two user-facing flows this
// service supports: proxying a single catalog subtitle (Subtitle
// Orchestrator) and walking a video library translating everything found
// (Batch Orchestrator, in batch.go).
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/odedia/translation-layer/internal/apperr"
	"github.com/odedia/translation-layer/internal/cache"
	"github.com/odedia/translation-layer/internal/catalog"
	"github.com/odedia/translation-layer/internal/engine"
	"github.com/odedia/translation-layer/internal/progress"
	"github.com/odedia/translation-layer/pkg/subs"
)

// localFingerprintCounter backs the "local_{monotonic}" fingerprint kind
// for content that didn't come from the catalog (uploaded subtitle text,
// tracks extracted during a batch run).
var localFingerprintCounter int64

// Subtitle is the single-subtitle proxy-and-translate flow: given a
// catalog fileID, download the English source once, translate it once per
// target language, and serve every subsequent request for that
// fileID/language pair straight from cache.
type Subtitle struct {
	Catalog  catalog.Catalog
	Cache    *cache.Store
	Engine   *engine.Engine
	Registry *progress.Registry
	Log      zerolog.Logger
}

func catalogFingerprint(fileID string) string {
	return "file_id:" + fileID
}

// ProxySearch passes a search through to the catalog, then relabels every
// result as if it were already translated: the language attribute becomes
// targetLang and the aiTranslated/machineTranslated flags are set, since
// every subtitle this proxy serves is translated on download regardless of
// what language the catalog actually holds it in.
func (s *Subtitle) ProxySearch(ctx context.Context, filters catalog.SearchFilters, targetLang string) (catalog.SearchPage, error) {
	page, err := s.Catalog.Search(ctx, filters)
	if err != nil {
		return page, err
	}
	for i := range page.Results {
		page.Results[i].Language = targetLang
		page.Results[i].AITranslated = true
		page.Results[i].MachineTranslated = true
	}
	return page, nil
}

// IsCached reports whether fileID already has a cached translation for lang.
func (s *Subtitle) IsCached(fileID, lang string) bool {
	return s.Cache.Has(catalogFingerprint(fileID), lang)
}

// ProxyDownloadAndTranslate returns the fileID's subtitle translated into
// lang and regenerated in format ("srt" or "vtt", defaulting to "srt"),
// downloading and caching the English source on first use and translating
// it on first request for that language. Every call after the first for
// the same fileID/lang pair is served from cache without touching the
// catalog or the translation engine, regardless of which format is
// requested — only the final regeneration step varies.
func (s *Subtitle) ProxyDownloadAndTranslate(ctx context.Context, fileID, lang, format string) (string, error) {
	fp := catalogFingerprint(fileID)

	if cached, err := s.Cache.LoadTranslated(fp, lang); err == nil {
		return convertFormat(cached, format)
	}

	original, err := s.Cache.LoadOriginal(fp)
	if err != nil {
		data, name, derr := s.Catalog.Download(ctx, fileID)
		if derr != nil {
			return "", derr
		}
		original = string(data)
		if serr := s.Cache.StoreOriginal(fp, name, original); serr != nil {
			return "", serr
		}
	}

	translated, err := s.TranslateContent(ctx, fp, original, lang)
	if err != nil {
		return "", err
	}
	return convertFormat(translated, format)
}

// convertFormat regenerates srtText (always stored and returned from the
// translation pipeline as SRT) into the requested format. An empty format
// is treated as "srt", a no-op.
func convertFormat(srtText, format string) (string, error) {
	if format == "" || strings.EqualFold(format, "srt") {
		return srtText, nil
	}
	if !strings.EqualFold(format, "vtt") {
		return "", apperr.NewBadInput("unsupported subtitle format: "+format, nil)
	}
	doc, err := subs.Parse([]byte(srtText))
	if err != nil {
		return "", apperr.NewInternal("cannot convert cached subtitle to vtt", err)
	}
	return subs.GenerateVTT(doc.Cues), nil
}

// TranslateContent translates arbitrary subtitle text under fingerprint
// fp into lang, storing the result in the cache and returning it. It
// acquires the global translation gate for the duration of the job, so a
// concurrent call for a different fingerprint queues behind this one
// rather than running in parallel.
func (s *Subtitle) TranslateContent(ctx context.Context, fp string, text string, lang string) (string, error) {
	if cached, err := s.Cache.LoadTranslated(fp, lang); err == nil {
		return cached, nil
	}

	doc, err := subs.Parse([]byte(text))
	if err != nil {
		return "", apperr.NewBadInput("cannot parse subtitle content", err)
	}

	jobID := uuid.NewString()
	s.Registry.Begin(jobID, fp, lang, len(doc.Cues))

	release, err := s.Registry.Gate().Acquire(ctx)
	if err != nil {
		s.Registry.End(jobID, err)
		return "", apperr.NewInternal("translation queue wait cancelled", err)
	}
	defer release()

	s.Registry.MarkActive(jobID)

	translated, err := s.Engine.Translate(ctx, doc, lang, func(completed, total int) {
		s.Registry.Update(jobID, completed)
	})
	if err != nil {
		s.Registry.End(jobID, err)
		return "", err
	}
	s.Registry.End(jobID, nil)

	out := subs.GenerateSRT(translated)
	if serr := s.Cache.StoreTranslated(fp, lang, out); serr != nil {
		return "", serr
	}
	return out, nil
}

// translateWithoutCache runs the same gated translation pipeline as
// TranslateContent but never touches the cache store, for callers (the
// batch orchestrator) that persist output directly to the file tree
// instead.
func (s *Subtitle) translateWithoutCache(ctx context.Context, fp string, text string, lang string) (string, error) {
	doc, err := subs.Parse([]byte(text))
	if err != nil {
		return "", apperr.NewBadInput("cannot parse subtitle content", err)
	}

	jobID := uuid.NewString()
	s.Registry.Begin(jobID, fp, lang, len(doc.Cues))

	release, err := s.Registry.Gate().Acquire(ctx)
	if err != nil {
		s.Registry.End(jobID, err)
		return "", apperr.NewInternal("translation queue wait cancelled", err)
	}
	defer release()

	s.Registry.MarkActive(jobID)

	translated, err := s.Engine.Translate(ctx, doc, lang, func(completed, total int) {
		s.Registry.Update(jobID, completed)
	})
	if err != nil {
		s.Registry.End(jobID, err)
		return "", err
	}
	s.Registry.End(jobID, nil)

	return subs.GenerateSRT(translated), nil
}

// LocalFingerprint mints a fresh fingerprint for content with no stable
// catalog identity: text sent to the upload handler, and each track the
// batch orchestrator extracts.
func LocalFingerprint() string {
	n := atomic.AddInt64(&localFingerprintCounter, 1)
	return fmt.Sprintf("local_%d", n)
}

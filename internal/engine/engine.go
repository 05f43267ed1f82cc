// Package engine drives cue-batched machine translation: it groups a
// subtitle document's cues into provider-sized batches, builds the
// marker-tagged prompt for each, parses and repairs the response, and
// falls back to translating cues one at a time when a batch can't be
// salvaged. Output runs through the bidi post-processor before it's
// handed back.
package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/odedia/translation-layer/internal/apperr"
	"github.com/odedia/translation-layer/pkg/bidi"
	"github.com/odedia/translation-layer/pkg/llms"
	"github.com/odedia/translation-layer/pkg/subs"
	"github.com/rs/zerolog"
)

// hearingImpairedLineRe matches a line that is entirely a single bracketed
// or parenthesized annotation, e.g. "[door slams]" or "(sighs)" — the
// hallmark of a hearing-impaired/SDH cue rather than spoken dialogue.
var hearingImpairedLineRe = regexp.MustCompile(`^\s*[\[\(][^\]\)]+[\]\)]\s*$`)

// isHearingImpairedCue reports whether every non-empty line of the cue's
// text is a bracketed/parenthesized annotation. A cue with no non-empty
// lines at all is not considered hearing-impaired.
func isHearingImpairedCue(c subs.Cue) bool {
	lines := strings.Split(c.Text, "\n")
	found := false
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !hearingImpairedLineRe.MatchString(line) {
			return false
		}
		found = true
	}
	return found
}

// tuning holds the batch size and fallback worker-pool width for one
// class of provider.
type tuning struct {
	batchSize int
	threads   int
}

// Local providers (Ollama, the generic OpenAI-compatible custom endpoint)
// typically run on modest hardware with no real concurrency headroom, so
// they get smaller batches and a narrower fallback fan-out than a cloud
// API. Named per spec.md's provider classes; unrecognized provider names
// default to the cloud tuning, which is the safer (slower but more
// parallel) assumption.
var autoTune = map[string]tuning{
	"ollama": {batchSize: 20, threads: 6},
	"custom": {batchSize: 20, threads: 6},
	"openai": {batchSize: 50, threads: 8},
	"google": {batchSize: 50, threads: 8},
}

const defaultCloudTuning = "openai"

// ProgressFunc is invoked after every batch (successful or not) with the
// number of cues translated so far out of the document total.
type ProgressFunc func(completed, total int)

// Engine translates subtitle documents via an llms.Provider.
type Engine struct {
	Provider  llms.Provider
	Log       zerolog.Logger
	BatchSize int // 0 means use the provider's auto-tuned default

	// SkipHearingImpaired, when true, leaves cues that are entirely
	// bracketed/parenthesized annotations (e.g. "[music playing]") untouched
	// instead of sending them to the provider for translation.
	SkipHearingImpaired bool
}

// New returns an Engine wrapping provider, deriving its batch size from
// the provider's auto-tune class unless overrideBatchSize is non-zero.
func New(provider llms.Provider, log zerolog.Logger, overrideBatchSize int) *Engine {
	return &Engine{Provider: provider, Log: log, BatchSize: overrideBatchSize}
}

func (e *Engine) tuning() tuning {
	t, ok := autoTune[strings.ToLower(e.Provider.GetName())]
	if !ok {
		t = autoTune[defaultCloudTuning]
	}
	if e.BatchSize > 0 {
		t.batchSize = e.BatchSize
	}
	return t
}

// Translate translates every cue in doc into targetLang, in place order,
// returning a new slice of cues (the input document is not mutated).
// Cues are processed in sequential batches sized per the provider's
// tuning; a batch whose response can't be matched one-to-one with its
// cues falls back to per-cue translation across a small worker pool.
func (e *Engine) Translate(ctx context.Context, doc *subs.Document, targetLang string, onProgress ProgressFunc) ([]subs.Cue, error) {
	if len(doc.Cues) == 0 {
		return nil, apperr.NewEmpty("document has no cues to translate", nil)
	}

	t := e.tuning()
	out := make([]subs.Cue, len(doc.Cues))
	copy(out, doc.Cues)

	completed := 0
	total := len(out)

	for start := 0; start < total; start += t.batchSize {
		end := start + t.batchSize
		if end > total {
			end = total
		}
		batch := out[start:end]

		if err := ctx.Err(); err != nil {
			return nil, apperr.NewInternal("translation cancelled", err)
		}

		var toTranslate []subs.Cue
		var toTranslateIdx []int
		for i, c := range batch {
			if e.SkipHearingImpaired && isHearingImpairedCue(c) {
				continue
			}
			toTranslate = append(toTranslate, c)
			toTranslateIdx = append(toTranslateIdx, i)
		}

		var translations map[int]string
		if len(toTranslate) > 0 {
			var err error
			translations, err = e.translateBatch(ctx, toTranslate, targetLang)
			if err != nil {
				e.Log.Warn().Err(err).Int("batch_start", start).Int("batch_size", len(toTranslate)).
					Msg("batch translation failed, falling back to per-cue translation")
				translations, err = e.translateFallback(ctx, toTranslate, targetLang, t.threads)
				if err != nil {
					return nil, err
				}
			}
		}

		translatedOrigIdx := make(map[int]bool, len(toTranslateIdx))
		for subIdx, origIdx := range toTranslateIdx {
			c := batch[origIdx]
			text := translations[subIdx]
			text = EnforceLineCount(text, c.LineCount())
			text = bidi.Process(text, targetLang)
			out[start+origIdx].Text = text
			translatedOrigIdx[origIdx] = true
		}
		for i, c := range batch {
			if !translatedOrigIdx[i] {
				out[start+i].Text = c.Text
			}
		}

		completed = end
		if onProgress != nil {
			onProgress(completed, total)
		}
	}

	return out, nil
}

// translateBatch sends one batch through the provider and maps the
// response back onto the batch positionally. It returns an error if any
// cue in the batch is missing from the response — the caller falls back
// to per-cue translation rather than ship a partially-translated batch.
func (e *Engine) translateBatch(ctx context.Context, batch []subs.Cue, targetLang string) (map[int]string, error) {
	req := llms.CompletionRequest{
		SystemPrompt: SystemPrompt(targetLang),
		Prompt:       BuildPrompt(batch),
		Temperature:  0.2,
	}

	resp, err := e.Provider.Complete(ctx, req)
	if err != nil {
		return nil, apperr.NewUpstreamUnavailable("llm completion failed", err)
	}

	parsed := ParseResponse(resp.Text)
	for i := range batch {
		if _, ok := parsed[i]; !ok {
			return nil, fmt.Errorf("response missing marker for cue %d of %d", i, len(batch))
		}
	}
	return parsed, nil
}

// translateFallback translates each cue in batch independently, fanned
// out across a worker pool of the given width. A cue that still fails
// after its own request keeps its original (untranslated) text rather
// than aborting the whole job — a handful of source-language cues in an
// otherwise-translated subtitle degrades gracefully.
func (e *Engine) translateFallback(ctx context.Context, batch []subs.Cue, targetLang string, threads int) (map[int]string, error) {
	results := make(map[int]string, len(batch))
	var mu sync.Mutex
	var wg sync.WaitGroup

	sem := make(chan struct{}, threads)
	for i, cue := range batch {
		i, cue := i, cue
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			req := llms.CompletionRequest{
				SystemPrompt: SystemPrompt(targetLang),
				Prompt:       BuildPrompt([]subs.Cue{cue}),
				Temperature:  0.2,
			}
			resp, err := e.Provider.Complete(ctx, req)
			text := cue.Text
			if err == nil {
				if parsed := ParseResponse(resp.Text); parsed[0] != "" {
					text = parsed[0]
				}
			} else {
				e.Log.Warn().Err(err).Int("cue_index", cue.Index).Msg("fallback per-cue translation failed, keeping source text")
			}

			mu.Lock()
			results[i] = text
			mu.Unlock()
		}()
	}
	wg.Wait()

	return results, nil
}

package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/odedia/translation-layer/internal/apperr"
	"github.com/odedia/translation-layer/internal/cache"
	"github.com/odedia/translation-layer/internal/catalog"
	"github.com/odedia/translation-layer/internal/config"
	"github.com/odedia/translation-layer/internal/orchestrator"
	"github.com/odedia/translation-layer/internal/progress"
	"github.com/odedia/translation-layer/internal/vfs"
	"github.com/odedia/translation-layer/pkg/llms"
)

// Handlers holds every dependency the HTTP routes need. It is deliberately
// a flat struct rather than one service per route family — the whole
// surface is small enough that splitting it up would just be indirection.
type Handlers struct {
	Subtitle *orchestrator.Subtitle
	Batch    *orchestrator.Batch
	Cache    *cache.Store
	Registry *progress.Registry
	LLM      *llms.Client
	VFS      vfs.VFS
	Log      zerolog.Logger

	sessionMu sync.Mutex
	sessions  map[string]bool
}

// NewHandlers wires the dependencies above into a Handlers instance.
func NewHandlers(sub *orchestrator.Subtitle, batch *orchestrator.Batch, store *cache.Store, reg *progress.Registry, llmClient *llms.Client, fs vfs.VFS, log zerolog.Logger) *Handlers {
	return &Handlers{
		Subtitle: sub,
		Batch:    batch,
		Cache:    store,
		Registry: reg,
		LLM:      llmClient,
		VFS:      fs,
		Log:      log,
		sessions: make(map[string]bool),
	}
}

// --- auth -------------------------------------------------------------

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login issues an opaque bearer token, mirroring the shape of the catalog
// client's own login response so OpenSubtitles-compatible clients don't
// need to special-case this proxy.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.NewBadInput("invalid login payload", err))
		return
	}

	token := uuid.NewString()
	h.sessionMu.Lock()
	h.sessions[token] = true
	h.sessionMu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"token": token})
}

// Logout invalidates the bearer token in the Authorization header, if any.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	h.sessionMu.Lock()
	delete(h.sessions, token)
	h.sessionMu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}

// --- subtitles ----------------------------------------------------------

// SearchSubtitles proxies a catalog search, then relabels every result to
// the configured target language with the aiTranslated/machineTranslated
// flags set — the catalog is only ever queried in English.
func (h *Handlers) SearchSubtitles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := catalog.SearchFilters{
		Query:  q.Get("query"),
		IMDbID: q.Get("imdb_id"),
	}

	settings, err := config.LoadSettings()
	if err != nil {
		writeError(w, apperr.NewInternal("cannot load settings", err))
		return
	}

	page, err := h.Subtitle.ProxySearch(r.Context(), filters, settings.TargetLanguage)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

type downloadRequest struct {
	FileID string `json:"file_id"`
	Lang   string `json:"lang"`
	Format string `json:"sub_format"`
}

// Download returns a catalog subtitle translated into the requested
// target language and regenerated in the requested format (srt or vtt,
// defaulting to srt), downloading and translating on first request and
// serving from cache on every call after that.
func (h *Handlers) Download(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.NewBadInput("invalid download payload", err))
		return
	}
	if req.FileID == "" || req.Lang == "" {
		writeError(w, apperr.NewBadInput("file_id and lang are required", nil))
		return
	}

	text, err := h.Subtitle.ProxyDownloadAndTranslate(r.Context(), req.FileID, req.Lang, req.Format)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"content": text})
}

// DownloadNamed is the filename-in-path convenience form some clients
// expect, equivalent to Download but returning the subtitle body directly
// with the content-type matching the requested format.
func (h *Handlers) DownloadNamed(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileId")
	q := r.URL.Query()
	lang := q.Get("lang")
	if lang == "" {
		writeError(w, apperr.NewBadInput("lang query parameter is required", nil))
		return
	}
	format := q.Get("format")
	if format == "" {
		format = "srt"
	}

	text, err := h.Subtitle.ProxyDownloadAndTranslate(r.Context(), fileID, lang, format)
	if err != nil {
		writeError(w, err)
		return
	}

	contentType := "application/x-subrip; charset=utf-8"
	if strings.EqualFold(format, "vtt") {
		contentType = "text/vtt; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.Write([]byte(text))
}

type uploadRequest struct {
	Content string `json:"content"`
	Lang    string `json:"lang"`
}

// Upload translates a client-supplied subtitle file directly, with no
// catalog involved — the ad-hoc path for a user's own local subtitle.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.NewBadInput("invalid upload payload", err))
		return
	}
	if req.Content == "" || req.Lang == "" {
		writeError(w, apperr.NewBadInput("content and lang are required", nil))
		return
	}

	fp := orchestrator.LocalFingerprint()
	if err := h.Cache.StoreOriginal(fp, "upload", req.Content); err != nil {
		writeError(w, err)
		return
	}
	text, err := h.Subtitle.TranslateContent(r.Context(), fp, req.Content, req.Lang)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"content": text, "fingerprint": fp})
}

// --- settings -------------------------------------------------------------

// GetSettings returns the persisted settings with secrets masked.
func (h *Handlers) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := config.LoadSettings()
	if err != nil {
		writeError(w, apperr.NewInternal("cannot load settings", err))
		return
	}
	writeJSON(w, http.StatusOK, maskSecrets(settings))
}

func maskSecrets(s config.Settings) config.Settings {
	mask := func(v string) string {
		if v == "" {
			return ""
		}
		return "********"
	}
	s.OpenSubtitlesAPIKey = mask(s.OpenSubtitlesAPIKey)
	s.OpenSubtitlesPassword = mask(s.OpenSubtitlesPassword)
	s.OpenAIAPIKey = mask(s.OpenAIAPIKey)
	s.GoogleAPIKey = mask(s.GoogleAPIKey)
	s.SMBPassword = mask(s.SMBPassword)
	return s
}

// UpdateSettings persists a full settings object. Fields masked by
// GetSettings ("********") are left at their previously stored value
// rather than being overwritten with the mask itself.
func (h *Handlers) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var incoming config.Settings
	if err := json.NewDecoder(r.Body).Decode(&incoming); err != nil {
		writeError(w, apperr.NewBadInput("invalid settings payload", err))
		return
	}

	current, err := config.LoadSettings()
	if err != nil {
		writeError(w, apperr.NewInternal("cannot load current settings", err))
		return
	}

	merged := incoming
	preserveIfMasked(&merged.OpenSubtitlesAPIKey, current.OpenSubtitlesAPIKey)
	preserveIfMasked(&merged.OpenSubtitlesPassword, current.OpenSubtitlesPassword)
	preserveIfMasked(&merged.OpenAIAPIKey, current.OpenAIAPIKey)
	preserveIfMasked(&merged.GoogleAPIKey, current.GoogleAPIKey)
	preserveIfMasked(&merged.SMBPassword, current.SMBPassword)

	if err := config.SaveSettings(merged); err != nil {
		writeError(w, apperr.NewInternal("cannot save settings", err))
		return
	}
	writeJSON(w, http.StatusOK, maskSecrets(merged))
}

func preserveIfMasked(field *string, previous string) {
	if *field == "********" {
		*field = previous
	}
}

// OllamaModels lists models available from the configured local Ollama
// endpoint, via the same Provider interface used for translation.
func (h *Handlers) OllamaModels(w http.ResponseWriter, r *http.Request) {
	provider, ok := h.LLM.GetProvider("ollama")
	if !ok {
		writeError(w, apperr.NewNotConfigured("no local model provider is registered", nil))
		return
	}
	models := provider.GetAvailableModels(r.Context())
	writeJSON(w, http.StatusOK, models)
}

// --- browse / batch ---------------------------------------------------

// Browse lists one directory of the configured VFS root.
func (h *Handlers) Browse(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	entries, err := h.VFS.List(r.Context(), path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type batchAnalyzeRequest struct {
	Root string `json:"root"`
}

func (h *Handlers) BatchAnalyze(w http.ResponseWriter, r *http.Request) {
	var req batchAnalyzeRequest
	json.NewDecoder(r.Body).Decode(&req)

	if err := h.Batch.Analyze(r.Context(), req.Root); err != nil {
		writeError(w, err)
		return
	}
	videos, state := h.Batch.Progress()
	writeJSON(w, http.StatusOK, map[string]any{"videos": videos, "state": state})
}

type batchStartRequest struct {
	Lang string `json:"lang"`
}

func (h *Handlers) BatchStart(w http.ResponseWriter, r *http.Request) {
	var req batchStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Lang == "" {
		writeError(w, apperr.NewBadInput("lang is required", err))
		return
	}
	h.Batch.Start(r.Context(), req.Lang)
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "started"})
}

func (h *Handlers) BatchProgress(w http.ResponseWriter, r *http.Request) {
	videos, state := h.Batch.Progress()
	writeJSON(w, http.StatusOK, map[string]any{"videos": videos, "state": state})
}

func (h *Handlers) BatchCancel(w http.ResponseWriter, r *http.Request) {
	h.Batch.Cancel()
	writeJSON(w, http.StatusOK, map[string]any{"status": "cancelling"})
}

// --- cache ---------------------------------------------------------------

func (h *Handlers) ListCache(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Cache.List()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handlers) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.Cache.Clear(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "cleared"})
}

func (h *Handlers) DeleteCache(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileId")
	if err := h.Cache.Delete("file_id:" + fileID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

// --- status / language -------------------------------------------------

// supportedLanguages is the list of target language codes the Languages
// endpoint reports, including the RTL codes pkg/bidi post-processes; that
// package's own set is what decides bidi processing.
var supportedLanguages = []string{
	"en", "fr", "de", "es", "it", "pt", "nl", "pl", "ru", "ja", "ko", "zh",
	"he", "ar", "fa", "ur", "ps",
}

func (h *Handlers) Languages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, supportedLanguages)
}

// Status returns liveness and queue-depth fields for the dashboard.
func (h *Handlers) Status(startedAt time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobs := h.Registry.SnapshotAll()
		writeJSON(w, http.StatusOK, map[string]any{
			"uptime_seconds": time.Since(startedAt).Seconds(),
			"active_jobs":    h.Registry.ActiveCount(),
			"queue_depth":    h.Registry.Gate().QueueDepth(),
			"jobs":           jobs,
		})
	}
}

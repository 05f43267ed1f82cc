package orchestrator

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odedia/translation-layer/internal/cache"
	"github.com/odedia/translation-layer/internal/catalog"
	"github.com/odedia/translation-layer/internal/engine"
	"github.com/odedia/translation-layer/internal/progress"
	"github.com/odedia/translation-layer/pkg/llms"
)

type fakeCatalog struct {
	downloadCount int
	data          []byte
}

func (c *fakeCatalog) Search(ctx context.Context, f catalog.SearchFilters) (catalog.SearchPage, error) {
	return catalog.SearchPage{Results: []catalog.SearchResult{{FileID: "42"}}}, nil
}

func (c *fakeCatalog) Download(ctx context.Context, fileID string) ([]byte, string, error) {
	c.downloadCount++
	return c.data, "movie.srt", nil
}

type echoProvider struct{ calls int }

func (p *echoProvider) GetName() string      { return "openai" }
func (p *echoProvider) GetDescription() string { return "echo" }
func (p *echoProvider) RequiresAPIKey() bool  { return false }
func (p *echoProvider) GetAvailableModels(ctx context.Context) []llms.ModelInfo { return nil }
func (p *echoProvider) Complete(ctx context.Context, req llms.CompletionRequest) (llms.CompletionResponse, error) {
	p.calls++
	// Echo every marker back with a deterministic translated- prefix.
	matches := markerIndicesIn(req.Prompt)
	var out string
	for _, idx := range matches {
		out += fmt.Sprintf("<<~%d~>> translated-%d\n", idx, idx)
	}
	return llms.CompletionResponse{Text: out}, nil
}

func markerIndicesIn(prompt string) []int {
	var out []int
	for i := 0; i < 50; i++ {
		marker := fmt.Sprintf("<<~%d~>>", i)
		if !contains(prompt, marker) {
			continue
		}
		out = append(out, i)
	}
	return out
}

func contains(s, sub string) bool {
	return len(s) >= len(sub) && (func() bool {
		for i := 0; i+len(sub) <= len(s); i++ {
			if s[i:i+len(sub)] == sub {
				return true
			}
		}
		return false
	})()
}

func newTestSubtitle(t *testing.T, cat catalog.Catalog) (*Subtitle, *echoProvider) {
	t.Helper()
	store, err := cache.New(t.TempDir())
	require.NoError(t, err)
	provider := &echoProvider{}
	return &Subtitle{
		Catalog:  cat,
		Cache:    store,
		Engine:   engine.New(provider, zerolog.Nop(), 0),
		Registry: progress.NewRegistry(),
		Log:      zerolog.Nop(),
	}, provider
}

func TestProxyDownloadAndTranslateCachesSecondCall(t *testing.T) {
	cat := &fakeCatalog{data: []byte("1\n00:00:00,000 --> 00:00:01,000\nhello\n")}
	s, provider := newTestSubtitle(t, cat)

	out1, err := s.ProxyDownloadAndTranslate(context.Background(), "42", "fr", "srt")
	require.NoError(t, err)
	assert.Contains(t, out1, "translated-0")
	assert.Equal(t, 1, cat.downloadCount)
	assert.Equal(t, 1, provider.calls)

	out2, err := s.ProxyDownloadAndTranslate(context.Background(), "42", "fr", "srt")
	require.NoError(t, err)
	assert.Equal(t, out1, out2)
	assert.Equal(t, 1, cat.downloadCount, "second call must not re-download")
	assert.Equal(t, 1, provider.calls, "second call must not re-translate")
}

func TestIsCachedReflectsState(t *testing.T) {
	cat := &fakeCatalog{data: []byte("1\n00:00:00,000 --> 00:00:01,000\nhello\n")}
	s, _ := newTestSubtitle(t, cat)

	assert.False(t, s.IsCached("42", "fr"))
	_, err := s.ProxyDownloadAndTranslate(context.Background(), "42", "fr", "srt")
	require.NoError(t, err)
	assert.True(t, s.IsCached("42", "fr"))
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/odedia/translation-layer/pkg/llms"
	"github.com/odedia/translation-layer/pkg/subs"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider answers every marker in the prompt with a deterministic
// stand-in translation, or fails outright/partially as configured.
type fakeProvider struct {
	name        string
	failAll     bool
	dropMarkers map[int]bool // markers to omit from the response, simulating a malformed batch
	calls       int
}

func (p *fakeProvider) GetName() string       { return p.name }
func (p *fakeProvider) GetDescription() string { return "fake" }
func (p *fakeProvider) RequiresAPIKey() bool   { return false }
func (p *fakeProvider) GetAvailableModels(ctx context.Context) []llms.ModelInfo {
	return nil
}

func (p *fakeProvider) Complete(ctx context.Context, req llms.CompletionRequest) (llms.CompletionResponse, error) {
	p.calls++
	if p.failAll {
		return llms.CompletionResponse{}, errors.New("simulated upstream failure")
	}

	indices := responseMarkerRe.FindAllStringSubmatch(req.Prompt, -1)
	var out string
	for _, m := range indices {
		idx := m[1]
		var n int
		fmt.Sscanf(idx, "%d", &n)
		if p.dropMarkers != nil && p.dropMarkers[n] {
			continue
		}
		out += fmt.Sprintf("%s translated-%s\n", marker(n), idx)
	}
	return llms.CompletionResponse{Text: out}, nil
}

func TestBuildAndParseRoundTrip(t *testing.T) {
	cues := []subs.Cue{
		{Index: 1, Text: "hello"},
		{Index: 2, Text: "multi\nline"},
	}
	prompt := BuildPrompt(cues)
	assert.Contains(t, prompt, "<<~0~>> hello")
	assert.Contains(t, prompt, "<<~1~>> multi||line")

	resp := "<<~0~>> bonjour\n<<~1~>> multi||ligne"
	parsed := ParseResponse(resp)
	assert.Equal(t, "bonjour", parsed[0])
	assert.Equal(t, "multi\nligne", parsed[1])
}

func TestParseResponseStripsPreambleAndFences(t *testing.T) {
	resp := "Sure, here is the translation:\n```\n<<~0~>> bonjour\n```"
	parsed := ParseResponse(resp)
	assert.Equal(t, "bonjour", parsed[0])
}

func TestTranslateHappyPath(t *testing.T) {
	doc := &subs.Document{
		Format: subs.SRT,
		Cues: []subs.Cue{
			{Index: 1, Text: "one"},
			{Index: 2, Text: "two"},
		},
	}
	p := &fakeProvider{name: "openai"}
	e := New(p, zerolog.Nop(), 0)

	var lastCompleted, lastTotal int
	out, err := e.Translate(context.Background(), doc, "fr", func(completed, total int) {
		lastCompleted, lastTotal = completed, total
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "translated-0", out[0].Text)
	assert.Equal(t, "translated-1", out[1].Text)
	assert.Equal(t, 2, lastCompleted)
	assert.Equal(t, 2, lastTotal)
	assert.Equal(t, 1, p.calls, "small batch should complete in a single call")
}

func TestTranslateFallsBackOnMalformedBatch(t *testing.T) {
	doc := &subs.Document{
		Cues: []subs.Cue{
			{Index: 1, Text: "one"},
			{Index: 2, Text: "two"},
		},
	}
	p := &fakeProvider{name: "openai", dropMarkers: map[int]bool{1: true}}
	e := New(p, zerolog.Nop(), 0)

	out, err := e.Translate(context.Background(), doc, "fr", nil)
	require.NoError(t, err)
	require.Len(t, out, 2)
	// Fallback re-sends one cue per request, so both cues still end up
	// translated even though the batched call was malformed.
	assert.Equal(t, "translated-0", out[0].Text)
	assert.Equal(t, "translated-0", out[1].Text)
}

func TestTranslateKeepsSourceTextWhenFallbackAlsoFails(t *testing.T) {
	doc := &subs.Document{
		Cues: []subs.Cue{{Index: 1, Text: "untranslatable"}},
	}
	p := &fakeProvider{name: "openai", failAll: true}
	e := New(p, zerolog.Nop(), 0)

	out, err := e.Translate(context.Background(), doc, "fr", nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "untranslatable", out[0].Text)
}

func TestTranslateEmptyDocumentReturnsEmptyError(t *testing.T) {
	doc := &subs.Document{}
	p := &fakeProvider{name: "openai"}
	e := New(p, zerolog.Nop(), 0)

	_, err := e.Translate(context.Background(), doc, "fr", nil)
	require.Error(t, err)
}

func TestTranslateSkipsHearingImpairedCuesWhenEnabled(t *testing.T) {
	doc := &subs.Document{
		Cues: []subs.Cue{
			{Index: 1, Text: "[door slams]"},
			{Index: 2, Text: "hello there"},
		},
	}
	p := &fakeProvider{name: "openai"}
	e := New(p, zerolog.Nop(), 0)
	e.SkipHearingImpaired = true

	out, err := e.Translate(context.Background(), doc, "fr", nil)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "[door slams]", out[0].Text)
	assert.Equal(t, "translated-0", out[1].Text)
}

func TestTranslateDoesNotSkipHearingImpairedCuesWhenDisabled(t *testing.T) {
	doc := &subs.Document{
		Cues: []subs.Cue{
			{Index: 1, Text: "[door slams]"},
		},
	}
	p := &fakeProvider{name: "openai"}
	e := New(p, zerolog.Nop(), 0)

	out, err := e.Translate(context.Background(), doc, "fr", nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "translated-0", out[0].Text)
}

func TestAutoTuneLocalVsCloud(t *testing.T) {
	pLocal := &fakeProvider{name: "ollama"}
	eLocal := New(pLocal, zerolog.Nop(), 0)
	assert.Equal(t, 20, eLocal.tuning().batchSize)

	pCloud := &fakeProvider{name: "openai"}
	eCloud := New(pCloud, zerolog.Nop(), 0)
	assert.Equal(t, 50, eCloud.tuning().batchSize)
}

func TestAutoTuneOverride(t *testing.T) {
	p := &fakeProvider{name: "openai"}
	e := New(p, zerolog.Nop(), 5)
	assert.Equal(t, 5, e.tuning().batchSize)
}

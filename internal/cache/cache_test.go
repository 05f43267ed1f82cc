package cache

import (
	"testing"

	"github.com/odedia/translation-layer/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreAndLoadOriginal(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.StoreOriginal("fp1", "movie.srt", "1\n00:00:00,000 --> 00:00:01,000\nhi\n"))

	text, err := s.LoadOriginal("fp1")
	require.NoError(t, err)
	assert.Contains(t, text, "hi")
}

func TestHasAndLoadTranslated(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	assert.False(t, s.Has("fp1", "he"))

	require.NoError(t, s.StoreTranslated("fp1", "he", "translated text"))
	assert.True(t, s.Has("fp1", "he"))

	text, err := s.LoadTranslated("fp1", "he")
	require.NoError(t, err)
	assert.Equal(t, "translated text", text)
}

func TestLoadTranslatedMissingReturnsNotFound(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = s.LoadTranslated("unknown", "he")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestListReportsLanguages(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.StoreOriginal("fp1", "a.srt", "orig"))
	require.NoError(t, s.StoreTranslated("fp1", "he", "he text"))
	require.NoError(t, s.StoreTranslated("fp1", "ar", "ar text"))

	entries, err := s.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.ElementsMatch(t, []string{"he", "ar"}, entries[0].Languages)
}

func TestDeleteRemovesEntry(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.StoreOriginal("fp1", "a.srt", "orig"))
	require.NoError(t, s.Delete("fp1"))

	_, err = s.LoadOriginal("fp1")
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestClearRemovesEverything(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.StoreOriginal("fp1", "a.srt", "orig"))
	require.NoError(t, s.StoreOriginal("fp2", "b.srt", "orig"))
	require.NoError(t, s.Clear())

	entries, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

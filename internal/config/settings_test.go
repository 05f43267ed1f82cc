package config

import (
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetViper() {
	viper.Reset()
}

func TestInitConfigWritesDefaultsWhenMissing(t *testing.T) {
	resetViper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	require.NoError(t, InitConfig(path))

	settings, err := LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, "ollama", settings.ModelProvider)
	assert.True(t, settings.SkipHearingImpaired)
	assert.Equal(t, "local", settings.BrowseMode)
}

func TestSaveSettingsPersistsAndReloads(t *testing.T) {
	resetViper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, InitConfig(path))

	s, err := LoadSettings()
	require.NoError(t, err)
	s.TargetLanguage = "he"
	s.ModelProvider = "openai"
	s.OpenAIAPIKey = "sk-test"
	require.NoError(t, SaveSettings(s))

	resetViper()
	require.NoError(t, InitConfig(path))
	reloaded, err := LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, "he", reloaded.TargetLanguage)
	assert.Equal(t, "openai", reloaded.ModelProvider)
	assert.Equal(t, "sk-test", reloaded.OpenAIAPIKey)
}

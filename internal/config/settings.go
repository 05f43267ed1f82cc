// Package config loads and persists this service's Settings using viper
// against an XDG-resolved config file, the same pattern the teacher's
// internal/config package uses for its own settings file.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// Settings is the full set of process-wide, persisted configuration this
// service reads. Field names and mapstructure/json tags follow the
// authoritative key list this service's HTTP and CLI surfaces expose.
type Settings struct {
	OpenSubtitlesAPIKey   string `json:"openSubtitlesApiKey" mapstructure:"open_subtitles_api_key"`
	OpenSubtitlesUsername string `json:"openSubtitlesUsername" mapstructure:"open_subtitles_username"`
	OpenSubtitlesPassword string `json:"openSubtitlesPassword" mapstructure:"open_subtitles_password"`

	OpenAIAPIKey string `json:"openAiApiKey" mapstructure:"openai_api_key"`
	// GoogleAPIKey is not selectable via ModelProvider (spec.md restricts
	// that to ollama/openai) but, when set, registers a "google" provider
	// in the LLM client for direct use outside the default translation path.
	GoogleAPIKey string `json:"googleApiKey" mapstructure:"google_api_key"`

	ModelProvider string `json:"modelProvider" mapstructure:"model_provider"` // "ollama" | "openai"
	OllamaModel   string `json:"ollamaModel" mapstructure:"ollama_model"`
	OpenAIModel   string `json:"openAiModel" mapstructure:"openai_model"`
	OllamaBaseURL string `json:"ollamaBaseUrl" mapstructure:"ollama_base_url"`

	TargetLanguage       string `json:"targetLanguage" mapstructure:"target_language"`
	SkipHearingImpaired  bool   `json:"skipHearingImpaired" mapstructure:"skip_hearing_impaired"`
	TranslationBatchSize int    `json:"translationBatchSize" mapstructure:"translation_batch_size"`

	SMBHost     string `json:"smbHost" mapstructure:"smb_host"`
	SMBShare    string `json:"smbShare" mapstructure:"smb_share"`
	SMBUsername string `json:"smbUsername" mapstructure:"smb_username"`
	SMBPassword string `json:"smbPassword" mapstructure:"smb_password"`
	SMBDomain   string `json:"smbDomain" mapstructure:"smb_domain"`

	BrowseMode    string `json:"browseMode" mapstructure:"browse_mode"` // "local" | "smb"
	LocalRootPath string `json:"localRootPath" mapstructure:"local_root_path"`
}

var mu sync.Mutex

func getConfigPath() (string, error) {
	configDir := filepath.Join(xdg.ConfigHome, "translation-layer")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

// InitConfig points viper at the config file (customPath if given,
// otherwise the XDG default), registers defaults for every key, and
// writes a fresh default file if none exists yet.
func InitConfig(customPath string) error {
	mu.Lock()
	defer mu.Unlock()

	if customPath != "" {
		viper.SetConfigFile(customPath)
	} else {
		configPath, err := getConfigPath()
		if err != nil {
			return err
		}
		viper.SetConfigFile(configPath)
		viper.SetConfigType("yaml")
	}

	viper.SetDefault("open_subtitles_api_key", "")
	viper.SetDefault("open_subtitles_username", "")
	viper.SetDefault("open_subtitles_password", "")
	viper.SetDefault("openai_api_key", "")
	viper.SetDefault("google_api_key", "")
	viper.SetDefault("model_provider", "ollama")
	viper.SetDefault("ollama_model", "llama3")
	viper.SetDefault("openai_model", "gpt-4o-mini")
	viper.SetDefault("ollama_base_url", "http://localhost:11434")
	viper.SetDefault("target_language", "")
	viper.SetDefault("skip_hearing_impaired", true)
	viper.SetDefault("translation_batch_size", 0) // 0 = auto-tune by provider class
	viper.SetDefault("smb_host", "")
	viper.SetDefault("smb_share", "")
	viper.SetDefault("smb_username", "")
	viper.SetDefault("smb_password", "")
	viper.SetDefault("smb_domain", "")
	viper.SetDefault("browse_mode", "local")
	viper.SetDefault("local_root_path", "")

	if err := viper.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if notFound || errors.Is(err, fs.ErrNotExist) {
			return viper.SafeWriteConfigAs(viper.ConfigFileUsed())
		}
		return err
	}
	return nil
}

// SaveSettings writes settings to both viper's in-memory state and the
// config file on disk, guarded by mu so concurrent HTTP handlers can't
// interleave a read-modify-write and lose an update.
func SaveSettings(settings Settings) error {
	mu.Lock()
	defer mu.Unlock()

	viper.Set("open_subtitles_api_key", settings.OpenSubtitlesAPIKey)
	viper.Set("open_subtitles_username", settings.OpenSubtitlesUsername)
	viper.Set("open_subtitles_password", settings.OpenSubtitlesPassword)
	viper.Set("openai_api_key", settings.OpenAIAPIKey)
	viper.Set("google_api_key", settings.GoogleAPIKey)
	viper.Set("model_provider", settings.ModelProvider)
	viper.Set("ollama_model", settings.OllamaModel)
	viper.Set("openai_model", settings.OpenAIModel)
	viper.Set("ollama_base_url", settings.OllamaBaseURL)
	viper.Set("target_language", settings.TargetLanguage)
	viper.Set("skip_hearing_impaired", settings.SkipHearingImpaired)
	viper.Set("translation_batch_size", settings.TranslationBatchSize)
	viper.Set("smb_host", settings.SMBHost)
	viper.Set("smb_share", settings.SMBShare)
	viper.Set("smb_username", settings.SMBUsername)
	viper.Set("smb_password", settings.SMBPassword)
	viper.Set("smb_domain", settings.SMBDomain)
	viper.Set("browse_mode", settings.BrowseMode)
	viper.Set("local_root_path", settings.LocalRootPath)

	if viper.ConfigFileUsed() == "" {
		configPath, err := getConfigPath()
		if err != nil {
			return err
		}
		viper.SetConfigFile(configPath)
	}
	return viper.WriteConfig()
}

// LoadSettings unmarshals viper's current state into a Settings value.
// API keys come back in full — masking for display is the HTTP adapter's
// job, not this package's.
func LoadSettings() (Settings, error) {
	mu.Lock()
	defer mu.Unlock()

	var settings Settings
	if err := viper.Unmarshal(&settings); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

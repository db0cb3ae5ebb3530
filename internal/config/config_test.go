// File: internal/config/config_test.go
package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger().Level)
	assert.Equal(t, "smartfill", cfg.Logger().ServiceName)
	assert.Equal(t, ProviderGemini, cfg.LLM().Provider)
	assert.Equal(t, "gemini-1.5-flash", cfg.LLM().Model)
	assert.Equal(t, 100, cfg.LLM().MaxTokens)
	assert.InDelta(t, 0.2, cfg.LLM().Temperature, 0.0001)
	assert.Equal(t, 300*time.Millisecond, cfg.Autofill().Pacing)
	assert.Equal(t, 10*time.Second, cfg.Autofill().HighlightDuration)
	assert.Equal(t, 3500*time.Millisecond, cfg.Autofill().NotifyDuration)
	assert.Equal(t, 200, cfg.Autofill().SurroundingTextLimit)
	assert.Equal(t, "/path/to/photo.png", cfg.Autofill().Files.Photo)
	assert.Equal(t, "/path/to/resume.pdf", cfg.Autofill().Files.Resume)
	assert.Equal(t, DefaultPhotoKeywords, cfg.Classifier().PhotoKeywords)
	assert.Equal(t, DefaultResumeKeywords, cfg.Classifier().ResumeKeywords)
	assert.True(t, cfg.Browser().TriggerButton)
	assert.Equal(t, "127.0.0.1:8765", cfg.Trigger().ListenAddr)
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	t.Run("Defaults are valid", func(t *testing.T) {
		cfg := NewDefaultConfig()
		assert.NoError(t, cfg.Validate())
	})

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"unknown provider", func(c *Config) { c.LLMCfg.Provider = "openai" }, "llm.provider 'openai' is not supported"},
		{"missing model", func(c *Config) { c.LLMCfg.Model = "" }, "llm.model is required"},
		{"zero max tokens", func(c *Config) { c.LLMCfg.MaxTokens = 0 }, "llm.max_tokens must be a positive integer"},
		{"temperature out of range", func(c *Config) { c.LLMCfg.Temperature = 3 }, "llm.temperature"},
		{"negative pacing", func(c *Config) { c.AutofillCfg.Pacing = -time.Second }, "pacing must not be negative"},
		{"zero highlight", func(c *Config) { c.AutofillCfg.HighlightDuration = 0 }, "highlight_duration must be positive"},
		{"zero text limit", func(c *Config) { c.AutofillCfg.SurroundingTextLimit = 0 }, "surrounding_text_limit"},
		{"missing photo path", func(c *Config) { c.AutofillCfg.Files.Photo = "" }, "files.photo and files.resume are required"},
		{"empty keywords", func(c *Config) { c.ClassifierCfg.PhotoKeywords = nil }, "classifier keyword lists must not be empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// -- Loading Tests --

func TestNewConfigFromViper(t *testing.T) {
	t.Run("YAML overrides defaults", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		yamlCfg := []byte(`
llm:
  provider: gemini-rest
  model: gemini-2.0-flash
  api_key: test-key
autofill:
  pacing: 50ms
  files:
    photo: /tmp/me.jpg
classifier:
  photo_keywords: [foto, bild]
`)
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlCfg)))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, ProviderGeminiREST, cfg.LLM().Provider)
		assert.Equal(t, "gemini-2.0-flash", cfg.LLM().Model)
		assert.Equal(t, "test-key", cfg.LLM().APIKey)
		assert.Equal(t, 50*time.Millisecond, cfg.Autofill().Pacing)
		assert.Equal(t, "/tmp/me.jpg", cfg.Autofill().Files.Photo)
		assert.Equal(t, "/path/to/resume.pdf", cfg.Autofill().Files.Resume)
		assert.Equal(t, []string{"foto", "bild"}, cfg.Classifier().PhotoKeywords)
	})

	t.Run("API key falls back to GEMINI_API_KEY", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "from-env")
		v := viper.New()
		SetDefaults(v)

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "from-env", cfg.LLM().APIKey)
	})

	t.Run("Home directory is expanded in the profile path", func(t *testing.T) {
		t.Setenv("HOME", "/home/tester")
		homedir.Reset()
		t.Cleanup(homedir.Reset)
		v := viper.New()
		SetDefaults(v)
		v.Set("profile.path", "~/profile.yaml")

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "/home/tester/profile.yaml", cfg.Profile().Path)
	})

	t.Run("Invalid config is rejected", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("llm.provider", "bogus")

		_, err := NewConfigFromViper(v)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})
}

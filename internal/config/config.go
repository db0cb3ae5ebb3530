// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// LLMProvider names a supported oracle backend.
type LLMProvider string

const (
	// ProviderGemini uses the google.golang.org/genai SDK.
	ProviderGemini LLMProvider = "gemini"
	// ProviderGeminiREST calls the generateContent endpoint directly.
	ProviderGeminiREST LLMProvider = "gemini-rest"
)

// Interface defines the contract for accessing application configuration.
// Components depend on it so tests can hand in a trimmed-down config.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	LLM() LLMModelConfig
	Autofill() AutofillConfig
	Classifier() ClassifierConfig
	Profile() ProfileConfig
	Trigger() TriggerConfig
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	BrowserCfg    BrowserConfig    `mapstructure:"browser" yaml:"browser"`
	LLMCfg        LLMModelConfig   `mapstructure:"llm" yaml:"llm"`
	AutofillCfg   AutofillConfig   `mapstructure:"autofill" yaml:"autofill"`
	ClassifierCfg ClassifierConfig `mapstructure:"classifier" yaml:"classifier"`
	ProfileCfg    ProfileConfig    `mapstructure:"profile" yaml:"profile"`
	TriggerCfg    TriggerConfig    `mapstructure:"trigger" yaml:"trigger"`
}

var _ Interface = (*Config)(nil)

func (c *Config) Logger() LoggerConfig         { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig       { return c.BrowserCfg }
func (c *Config) LLM() LLMModelConfig          { return c.LLMCfg }
func (c *Config) Autofill() AutofillConfig     { return c.AutofillCfg }
func (c *Config) Classifier() ClassifierConfig { return c.ClassifierCfg }
func (c *Config) Profile() ProfileConfig       { return c.ProfileCfg }
func (c *Config) Trigger() TriggerConfig       { return c.TriggerCfg }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig configures the live Chrome session.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors   bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Args              []string      `mapstructure:"args" yaml:"args"`
	ExecPath          string        `mapstructure:"exec_path" yaml:"exec_path"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	// TriggerButton controls injection of the floating "fill" control.
	TriggerButton bool `mapstructure:"trigger_button" yaml:"trigger_button"`
}

// LLMModelConfig defines the configuration for the oracle model.
type LLMModelConfig struct {
	Provider    LLMProvider   `mapstructure:"provider" yaml:"provider"`
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"api_key"`
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature float32       `mapstructure:"temperature" yaml:"temperature"`
	TopP        float32       `mapstructure:"top_p" yaml:"top_p"`
	TopK        int           `mapstructure:"top_k" yaml:"top_k"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// AutofillConfig tunes the fill run.
type AutofillConfig struct {
	// Pacing is the minimum spacing between two oracle calls.
	Pacing               time.Duration `mapstructure:"pacing" yaml:"pacing"`
	HighlightDuration    time.Duration `mapstructure:"highlight_duration" yaml:"highlight_duration"`
	NotifyDuration       time.Duration `mapstructure:"notify_duration" yaml:"notify_duration"`
	SurroundingTextLimit int           `mapstructure:"surrounding_text_limit" yaml:"surrounding_text_limit"`
	Files                FilesConfig   `mapstructure:"files" yaml:"files"`
}

// FilesConfig holds the placeholder paths shown for upload fields.
// The files are never read.
type FilesConfig struct {
	Photo  string `mapstructure:"photo" yaml:"photo"`
	Resume string `mapstructure:"resume" yaml:"resume"`
}

// ClassifierConfig holds the keyword lists used for upload intent detection.
type ClassifierConfig struct {
	PhotoKeywords  []string `mapstructure:"photo_keywords" yaml:"photo_keywords"`
	ResumeKeywords []string `mapstructure:"resume_keywords" yaml:"resume_keywords"`
}

// ProfileConfig points at the personal profile document.
type ProfileConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// TriggerConfig configures the local trigger API.
type TriggerConfig struct {
	ListenAddr     string        `mapstructure:"listen_addr" yaml:"listen_addr"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// DefaultPhotoKeywords is the stock photo keyword list.
var DefaultPhotoKeywords = []string{
	"photo", "picture", "profile pic", "profile image", "avatar", "profile photo",
	"user image", "user photo", "portrait", "display picture", "dp", "image",
	"profile picture", "headshot",
}

// DefaultResumeKeywords is the stock resume keyword list.
var DefaultResumeKeywords = []string{
	"resume", "cv", "curriculum vitae", "resume/cv", "cv/resume", "attach resume",
	"upload resume", "upload cv", "document", "cover letter", "job application",
	"application",
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "smartfill")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 20)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.args", []string{})
	v.SetDefault("browser.navigation_timeout", "60s")
	v.SetDefault("browser.trigger_button", true)

	// -- LLM --
	v.SetDefault("llm.provider", string(ProviderGemini))
	v.SetDefault("llm.model", "gemini-1.5-flash")
	v.SetDefault("llm.api_timeout", "0s")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 100)

	// -- Autofill --
	v.SetDefault("autofill.pacing", "300ms")
	v.SetDefault("autofill.highlight_duration", "10s")
	v.SetDefault("autofill.notify_duration", "3500ms")
	v.SetDefault("autofill.surrounding_text_limit", 200)
	v.SetDefault("autofill.files.photo", "/path/to/photo.png")
	v.SetDefault("autofill.files.resume", "/path/to/resume.pdf")

	// -- Classifier --
	v.SetDefault("classifier.photo_keywords", DefaultPhotoKeywords)
	v.SetDefault("classifier.resume_keywords", DefaultResumeKeywords)

	// -- Profile --
	v.SetDefault("profile.path", "profile.yaml")

	// -- Trigger --
	v.SetDefault("trigger.listen_addr", "127.0.0.1:8765")
	v.SetDefault("trigger.request_timeout", "10m")
	v.SetDefault("trigger.allowed_origins", []string{"*"})
}

// NewConfigFromViper unmarshals, resolves and validates the configuration held by v.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// The API key is commonly provided without the application prefix.
	_ = v.BindEnv("llm.api_key", "SMARTFILL_LLM_API_KEY", "GEMINI_API_KEY")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.LLMCfg.APIKey == "" {
		cfg.LLMCfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	if cfg.ProfileCfg.Path != "" {
		expanded, err := homedir.Expand(cfg.ProfileCfg.Path)
		if err != nil {
			return nil, fmt.Errorf("could not expand profile path: %w", err)
		}
		cfg.ProfileCfg.Path = expanded
	}
	if cfg.LoggerCfg.LogFile != "" {
		expanded, err := homedir.Expand(cfg.LoggerCfg.LogFile)
		if err != nil {
			return nil, fmt.Errorf("could not expand log file path: %w", err)
		}
		cfg.LoggerCfg.LogFile = expanded
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	switch c.LLMCfg.Provider {
	case ProviderGemini, ProviderGeminiREST:
	default:
		return fmt.Errorf("llm.provider '%s' is not supported (supported: %s, %s)", c.LLMCfg.Provider, ProviderGemini, ProviderGeminiREST)
	}
	if c.LLMCfg.Model == "" {
		return errors.New("llm.model is required")
	}
	if c.LLMCfg.MaxTokens <= 0 {
		return errors.New("llm.max_tokens must be a positive integer")
	}
	if c.LLMCfg.Temperature < 0 || c.LLMCfg.Temperature > 2 {
		return errors.New("llm.temperature must be between 0 and 2")
	}
	if err := c.AutofillCfg.Validate(); err != nil {
		return fmt.Errorf("autofill configuration invalid: %w", err)
	}
	if len(c.ClassifierCfg.PhotoKeywords) == 0 || len(c.ClassifierCfg.ResumeKeywords) == 0 {
		return errors.New("classifier keyword lists must not be empty")
	}
	return nil
}

// Validate checks the Autofill configuration.
func (a *AutofillConfig) Validate() error {
	if a.Pacing < 0 {
		return errors.New("pacing must not be negative")
	}
	if a.HighlightDuration <= 0 {
		return errors.New("highlight_duration must be positive")
	}
	if a.SurroundingTextLimit <= 0 {
		return errors.New("surrounding_text_limit must be a positive integer")
	}
	if a.Files.Photo == "" || a.Files.Resume == "" {
		return errors.New("files.photo and files.resume are required")
	}
	return nil
}

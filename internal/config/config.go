package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the configuration value for one run. It is loaded once at process
// start and passed to every component constructor; nothing mutates it after.
type Config struct {
	Provider  string          `mapstructure:"provider" yaml:"provider"`
	Gmail     GmailConfig     `mapstructure:"gmail" yaml:"gmail"`
	Microsoft MicrosoftConfig `mapstructure:"microsoft" yaml:"microsoft"`
	IMAP      IMAPConfig      `mapstructure:"imap" yaml:"imap"`
	Auth      AuthConfig      `mapstructure:"auth" yaml:"auth"`
	LLM       LLMConfig       `mapstructure:"llm" yaml:"llm"`
	Run       RunConfig       `mapstructure:"run" yaml:"run"`
}

type GmailConfig struct {
	CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file"`
	TokenFile       string `mapstructure:"token_file" yaml:"token_file"`
	Address         string `mapstructure:"address" yaml:"address"`
}

type MicrosoftConfig struct {
	ClientID       string `mapstructure:"client_id" yaml:"client_id"`
	ClientSecret   string `mapstructure:"client_secret" yaml:"client_secret"`
	TenantID       string `mapstructure:"tenant_id" yaml:"tenant_id"`
	TokenCacheFile string `mapstructure:"token_cache_file" yaml:"token_cache_file"`
}

type IMAPConfig struct {
	Host               string `mapstructure:"host" yaml:"host"`
	Port               int    `mapstructure:"port" yaml:"port"`
	TLS                bool   `mapstructure:"tls" yaml:"tls"`
	StartTLS           bool   `mapstructure:"starttls" yaml:"starttls"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`
}

type AuthConfig struct {
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
}

type LLMConfig struct {
	Backend         string `mapstructure:"backend" yaml:"backend"`
	GroqAPIKey      string `mapstructure:"groq_api_key" yaml:"groq_api_key"`
	GoogleAPIKey    string `mapstructure:"google_api_key" yaml:"google_api_key"`
	OpenAIAPIKey    string `mapstructure:"openai_api_key" yaml:"openai_api_key"`
	AnthropicAPIKey string `mapstructure:"anthropic_api_key" yaml:"anthropic_api_key"`
}

type RunConfig struct {
	DryRun              bool    `mapstructure:"dry_run" yaml:"dry_run"`
	BatchSize           int     `mapstructure:"batch_size" yaml:"batch_size"`
	MaxEmails           int     `mapstructure:"max_emails" yaml:"max_emails"`
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold" yaml:"confidence_threshold"`
}

func DefaultConfig() Config {
	return Config{
		Provider: "gmail",
		Gmail: GmailConfig{
			CredentialsFile: "credentials.json",
			TokenFile:       "token.json",
		},
		Microsoft: MicrosoftConfig{
			TokenCacheFile: "token_cache.json",
		},
		IMAP: IMAPConfig{
			Port:     993,
			TLS:      true,
			StartTLS: false,
		},
		LLM: LLMConfig{
			Backend: "groq",
		},
		Run: RunConfig{
			DryRun:              true,
			BatchSize:           50,
			MaxEmails:           500,
			ConfidenceThreshold: 0.8,
		},
	}
}

func ConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppName, "config.yaml"), nil
}

func Load() (Config, error) {
	cfg := DefaultConfig()

	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("MAILSWEEP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func Save(cfg Config) (string, error) {
	path, err := ConfigPath()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}

	return path, nil
}

// Redact masks secrets for display.
func Redact(cfg Config) Config {
	masked := cfg
	if masked.Microsoft.ClientSecret != "" {
		masked.Microsoft.ClientSecret = "****"
	}
	if masked.Auth.Password != "" {
		masked.Auth.Password = "****"
	}
	if masked.LLM.GroqAPIKey != "" {
		masked.LLM.GroqAPIKey = "****"
	}
	if masked.LLM.GoogleAPIKey != "" {
		masked.LLM.GoogleAPIKey = "****"
	}
	if masked.LLM.OpenAIAPIKey != "" {
		masked.LLM.OpenAIAPIKey = "****"
	}
	if masked.LLM.AnthropicAPIKey != "" {
		masked.LLM.AnthropicAPIKey = "****"
	}
	return masked
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("provider", cfg.Provider)

	v.SetDefault("gmail.credentials_file", cfg.Gmail.CredentialsFile)
	v.SetDefault("gmail.token_file", cfg.Gmail.TokenFile)

	v.SetDefault("microsoft.token_cache_file", cfg.Microsoft.TokenCacheFile)

	v.SetDefault("imap.port", cfg.IMAP.Port)
	v.SetDefault("imap.tls", cfg.IMAP.TLS)
	v.SetDefault("imap.starttls", cfg.IMAP.StartTLS)
	v.SetDefault("imap.insecure_skip_verify", cfg.IMAP.InsecureSkipVerify)

	v.SetDefault("llm.backend", cfg.LLM.Backend)

	v.SetDefault("run.dry_run", cfg.Run.DryRun)
	v.SetDefault("run.batch_size", cfg.Run.BatchSize)
	v.SetDefault("run.max_emails", cfg.Run.MaxEmails)
	v.SetDefault("run.confidence_threshold", cfg.Run.ConfidenceThreshold)
}

// ValidateProvider checks the mail provider configuration. Failures here are
// configuration errors: fatal at startup, with remediation guidance, never
// retried.
func ValidateProvider(cfg Config) error {
	switch cfg.Provider {
	case "gmail":
		if _, err := os.Stat(cfg.Gmail.CredentialsFile); err != nil {
			return fmt.Errorf(
				"gmail credentials file %q not found; download OAuth client credentials from the Google Cloud Console",
				cfg.Gmail.CredentialsFile)
		}
		if cfg.Gmail.Address == "" {
			return fmt.Errorf("gmail.address is required when provider is gmail")
		}
	case "outlook":
		var missing []string
		if cfg.Microsoft.ClientID == "" {
			missing = append(missing, "microsoft.client_id")
		}
		if cfg.Microsoft.ClientSecret == "" {
			missing = append(missing, "microsoft.client_secret")
		}
		if cfg.Microsoft.TenantID == "" {
			missing = append(missing, "microsoft.tenant_id")
		}
		if len(missing) > 0 {
			return fmt.Errorf("missing outlook configuration: %s", strings.Join(missing, ", "))
		}
	case "imap":
		if cfg.IMAP.Host == "" {
			return fmt.Errorf("imap.host is required when provider is imap")
		}
		if cfg.Auth.Username == "" {
			return fmt.Errorf("auth.username is required when provider is imap")
		}
		if cfg.Auth.Password == "" {
			return fmt.Errorf("auth.password is required when provider is imap")
		}
	default:
		return fmt.Errorf("unknown provider %q (expected gmail, outlook, or imap)", cfg.Provider)
	}
	return nil
}

// AvailableBackends lists the LLM backends that have credentials configured.
func AvailableBackends(cfg Config) []string {
	var out []string
	if cfg.LLM.GroqAPIKey != "" {
		out = append(out, "groq")
	}
	if cfg.LLM.GoogleAPIKey != "" {
		out = append(out, "gemini")
	}
	if cfg.LLM.OpenAIAPIKey != "" {
		out = append(out, "openai")
	}
	if cfg.LLM.AnthropicAPIKey != "" {
		out = append(out, "anthropic")
	}
	return out
}

// ValidateLLM checks that the selected LLM backend has credentials.
func ValidateLLM(cfg Config) error {
	available := AvailableBackends(cfg)
	if len(available) == 0 {
		return fmt.Errorf("no LLM backend configured; set at least one of llm.groq_api_key, llm.google_api_key, llm.openai_api_key, llm.anthropic_api_key")
	}
	for _, name := range available {
		if name == cfg.LLM.Backend {
			return nil
		}
	}
	return fmt.Errorf("selected LLM backend %q is not available (available: %s)",
		cfg.LLM.Backend, strings.Join(available, ", "))
}

package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/peterbourgon/ff/v4"

	"github.com/zombor/ocr-extract/internal/history"
	"github.com/zombor/ocr-extract/internal/provider"
)

// EnvVarPrefix namespaces every flag as an environment variable, e.g. OCR_EXTRACT_GATEWAY_KEY
const EnvVarPrefix = "OCR_EXTRACT"

const (
	ProviderGateway = "gateway"
	ProviderGemini  = "gemini"
	ProviderOllama  = "ollama"
)

// ErrMissingCredential means the selected provider has no API key.
// The service still starts and answers every extraction with CONFIG_ERROR.
var ErrMissingCredential = errors.New("missing provider credential")

// Config holds the settings shared by the server and the function entry point
type Config struct {
	Port            int
	Provider        string
	GatewayURL      string
	GatewayKey      string
	GatewayModel    string
	GeminiKey       string
	GeminiModel     string
	OllamaURL       string
	OllamaModel     string
	ProviderTimeout time.Duration
	RawDocuments    bool
	DBPath          string
	StoragePath     string
	MaxBodyMB       int
	LogFile         string
	ShowVersion     bool
}

// Register adds the configuration flags to fs. Values are filled in when fs is parsed.
func Register(fs *ff.FlagSet) *Config {
	c := &Config{}
	fs.IntVar(&c.Port, 0, "port", 8080, "HTTP server port")
	fs.StringVar(&c.Provider, 0, "provider", ProviderGateway, "Vision provider: 'gateway', 'gemini' or 'ollama'")
	fs.StringVar(&c.GatewayURL, 0, "gateway-url", provider.DefaultGatewayURL, "OpenAI-compatible gateway base URL")
	fs.StringVar(&c.GatewayKey, 0, "gateway-key", "", "Gateway API key (or set LOVABLE_API_KEY env var)")
	fs.StringVar(&c.GatewayModel, 0, "gateway-model", provider.DefaultGatewayModel, "Model requested from the gateway")
	fs.StringVar(&c.GeminiKey, 0, "gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
	fs.StringVar(&c.GeminiModel, 0, "gemini-model", "gemini-2.5-flash", "Google Gemini model name")
	fs.StringVar(&c.OllamaURL, 0, "ollama-url", "http://localhost:11434", "Ollama API base URL")
	fs.StringVar(&c.OllamaModel, 0, "ollama-model", "llava", "Ollama model name (e.g., llava, llava-phi3, qwen2-vl)")
	fs.DurationVar(&c.ProviderTimeout, 0, "provider-timeout", 120*time.Second, "Timeout for a single provider call")
	fs.BoolVar(&c.RawDocuments, 0, "raw-documents", "Send PDFs and HEIC photos to the provider without converting them to PNG")
	fs.StringVar(&c.DBPath, 0, "db", "", "History database file path (history routes are disabled when empty)")
	fs.StringVar(&c.StoragePath, 0, "storage", "", "Directory for archived source documents (optional)")
	fs.IntVar(&c.MaxBodyMB, 0, "max-body-mb", 25, "Maximum request body size in megabytes")
	fs.StringVar(&c.LogFile, 0, "log-file", "", "Also write JSON logs to this file")
	fs.BoolVar(&c.ShowVersion, 0, "version", "Show version information")
	return c
}

// Parse registers the flags on a new flag set and parses args and the environment
func Parse(name string, args []string) (*Config, *ff.FlagSet, error) {
	fs := ff.NewFlagSet(name)
	c := Register(fs)
	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix(EnvVarPrefix)); err != nil {
		return nil, fs, err
	}
	c.applyFallbacks(os.Getenv)
	return c, fs, nil
}

// applyFallbacks reads the provider keys from their conventional variables when not set explicitly
func (c *Config) applyFallbacks(getenv func(string) string) {
	if c.GatewayKey == "" {
		c.GatewayKey = getenv("LOVABLE_API_KEY")
	}
	if c.GeminiKey == "" {
		c.GeminiKey = getenv("GEMINI_API_KEY")
	}
}

// MaxBodyBytes converts the configured limit to bytes
func (c *Config) MaxBodyBytes() int64 {
	return int64(c.MaxBodyMB) << 20
}

// ConvertDocuments reports whether PDFs and HEIC photos are rasterised locally
func (c *Config) ConvertDocuments() bool {
	return !c.RawDocuments
}

// NewProvider builds the configured provider. It wraps ErrMissingCredential when the key is absent.
func (c *Config) NewProvider() (provider.Provider, error) {
	switch c.Provider {
	case ProviderGateway:
		if c.GatewayKey == "" {
			return nil, fmt.Errorf("gateway: %w (set --gateway-key or LOVABLE_API_KEY)", ErrMissingCredential)
		}
		return provider.NewGateway(c.GatewayURL, c.GatewayKey, c.GatewayModel, c.ProviderTimeout)
	case ProviderGemini:
		if c.GeminiKey == "" {
			return nil, fmt.Errorf("gemini: %w (set --gemini-key or GEMINI_API_KEY)", ErrMissingCredential)
		}
		return provider.NewGemini(c.GeminiKey, c.GeminiModel)
	case ProviderOllama:
		return provider.NewOllama(c.OllamaURL, c.OllamaModel, c.ProviderTimeout)
	default:
		return nil, fmt.Errorf("invalid provider %q: valid values are gateway, gemini or ollama", c.Provider)
	}
}

// NewHistory opens the history store when a database path is configured.
// It returns a nil service and a no-op close function otherwise.
func (c *Config) NewHistory() (*history.Service, func() error, error) {
	noop := func() error { return nil }
	if c.DBPath == "" {
		return nil, noop, nil
	}

	db, err := history.NewBoltDB(c.DBPath)
	if err != nil {
		return nil, noop, fmt.Errorf("initializing database: %w", err)
	}

	var storage history.Storage
	if c.StoragePath != "" {
		local, err := history.NewLocalStorage(c.StoragePath)
		if err != nil {
			db.Close()
			return nil, noop, fmt.Errorf("initializing storage: %w", err)
		}
		storage = local
	}

	return history.NewService(db, storage), db.Close, nil
}

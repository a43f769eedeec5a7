package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/smartscribe/internal/catalog"
	"github.com/starford/smartscribe/internal/generate"
	"github.com/starford/smartscribe/internal/grammar"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Catalog   CatalogConfig     `yaml:"catalog"`
	History   HistoryConfig     `yaml:"history"`
	Templates TemplatesConfig   `yaml:"templates"`
	Note      grammar.Config    `yaml:"note"`
	LLM       LLMConfig         `yaml:"llm"`
	Auth      AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration. Unset note fields are filled from
// the grammar defaults first.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Catalog.Validate(); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	if err := c.Templates.Validate(); err != nil {
		return fmt.Errorf("templates: %w", err)
	}
	c.Note = c.Note.WithDefaults()
	if err := c.Note.Validate(); err != nil {
		return fmt.Errorf("note: %w", err)
	}
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// CatalogConfig points at the SmartList file. The format follows the
// extension: .yaml, .yml or .csv.
type CatalogConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// Validate validates the catalog configuration.
func (c *CatalogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required, validation.By(knownCatalogFormat)),
	)
}

func knownCatalogFormat(value interface{}) error {
	path, _ := value.(string)
	if path != "" && catalog.FormatOf(path) == "" {
		return fmt.Errorf("must end in .yaml, .yml or .csv")
	}
	return nil
}

// HistoryConfig holds the SQLite selection log location. An empty Path
// keeps selections in memory only.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// TemplatesConfig holds the template directory.
type TemplatesConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the templates configuration.
func (c *TemplatesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// LLMConfig configures the completion client used by generate. Generation
// is unavailable while APIKey is empty.
type LLMConfig struct {
	APIKey     string        `yaml:"api_key"`
	Model      string        `yaml:"model"`
	BaseURL    string        `yaml:"base_url"`
	MaxRetries int           `yaml:"max_retries"`
	Timeout    time.Duration `yaml:"timeout"`
}

// Validate validates the LLM configuration.
func (c *LLMConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxRetries, validation.Min(0), validation.Max(10)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// Enabled reports whether a completion client should be built.
func (c *LLMConfig) Enabled() bool {
	return c.APIKey != ""
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values. The
// note signature has no default and must come from the config file.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Catalog: CatalogConfig{
			Path:  "./config/smartlists.yaml",
			Watch: true,
		},
		History: HistoryConfig{
			Path: "./smartscribe.db",
		},
		Templates: TemplatesConfig{
			Path: "./templates",
		},
		Note: grammar.DefaultConfig(""),
		LLM: LLMConfig{
			Model:      generate.DefaultModel,
			MaxRetries: generate.DefaultMaxRetries,
			Timeout:    generate.DefaultTimeout,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}

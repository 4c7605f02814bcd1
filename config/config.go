// Package config loads mdtl.yaml (or mdtl.toml) from a project root.
//
// A .env file next to the configuration is loaded first so API keys can
// live outside the configuration. Variables already set in the environment
// win over .env.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/ZaguanLabs/mdtl"
)

// Candidate configuration file names, in lookup order.
var FileNames = []string{"mdtl.yaml", "mdtl.yml", "mdtl.toml"}

// DefaultAPIKeyEnv is read when translate.api_key_env is not set.
const DefaultAPIKeyEnv = "MDTL_API_KEY"

// Supported translate.service values (aliases are resolved by provider.New).
var Services = []string{"deepl", "chat", "saia", "chatai", "openai", "simpleen"}

// Config is the top-level mdtl.yaml structure.
type Config struct {
	// DocsDir is the content root relative to the project root (default "docs").
	DocsDir string `yaml:"docs_dir" toml:"docs_dir"`
	// Theme is the site theme name; "material" switches the notice style.
	Theme string `yaml:"theme" toml:"theme"`

	Translate Translate `yaml:"translate" toml:"translate"`
	Cache     Cache     `yaml:"cache" toml:"cache"`
	I18n      I18n      `yaml:"i18n" toml:"i18n"`
	Log       Log       `yaml:"log" toml:"log"`

	root string
	path string
}

// Translate configures the backend and the run.
type Translate struct {
	Service           string   `yaml:"service" toml:"service"`
	APIKeyEnv         string   `yaml:"api_key_env" toml:"api_key_env"`
	BaseURL           string   `yaml:"base_url" toml:"base_url"`
	Model             string   `yaml:"model" toml:"model"`
	Workers           int      `yaml:"workers" toml:"workers"`
	Retries           int      `yaml:"retries" toml:"retries"`
	RequestsPerMinute int      `yaml:"requests_per_minute" toml:"requests_per_minute"`
	Timeout           Duration `yaml:"timeout" toml:"timeout"`
	Notice            *bool    `yaml:"notice" toml:"notice"`
	RefreshStale      bool     `yaml:"refresh_stale" toml:"refresh_stale"`

	// APIKey is resolved from the environment, never from the file.
	APIKey string `yaml:"-" toml:"-"`
}

// Cache configures the translation cache.
type Cache struct {
	Type string   `yaml:"type" toml:"type"`
	URL  string   `yaml:"url" toml:"url"`
	TTL  Duration `yaml:"ttl" toml:"ttl"`
	File string   `yaml:"file" toml:"file"`
}

// I18n lists the site languages.
type I18n struct {
	Languages []Language `yaml:"languages" toml:"languages"`
}

// Language is one configured locale.
type Language struct {
	Locale  string `yaml:"locale" toml:"locale"`
	Name    string `yaml:"name" toml:"name"`
	Default bool   `yaml:"default" toml:"default"`
	Build   bool   `yaml:"build" toml:"build"` // Only locales with build: true are translated
}

// Log configures the go-logger provider.
type Log struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Find returns the first configuration file present in root.
func Find(root string) (string, error) {
	for _, name := range FileNames {
		path := filepath.Join(root, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", &mdtl.ConfigError{
		Message: fmt.Sprintf("no configuration file in %s (tried %s)", root, strings.Join(FileNames, ", ")),
	}
}

// Load finds, parses and validates the configuration in root.
func Load(root string) (*Config, error) {
	path, err := Find(root)
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile parses and validates an explicit configuration file. The project
// root is the file's directory.
func LoadFile(path string) (*Config, error) {
	root := filepath.Dir(path)
	loadDotEnv(root)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &mdtl.ConfigError{Message: "reading " + path, Cause: err}
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, &mdtl.ConfigError{Message: "parsing " + path, Cause: err}
	}

	cfg.root = root
	cfg.path = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv reads root/.env without overriding existing variables. The file
// is optional.
func loadDotEnv(root string) {
	_ = godotenv.Load(filepath.Join(root, ".env"))
}

func (c *Config) applyDefaults() {
	if c.DocsDir == "" {
		c.DocsDir = "docs"
	}
	c.Theme = strings.ToLower(strings.TrimSpace(c.Theme))

	t := &c.Translate
	t.Service = strings.ToLower(strings.TrimSpace(t.Service))
	if t.APIKeyEnv == "" {
		t.APIKeyEnv = DefaultAPIKeyEnv
	}
	if t.Workers <= 0 {
		t.Workers = 1
	}
	if t.Retries < 0 {
		t.Retries = 0
	}
	if t.Timeout == 0 {
		t.Timeout = Duration(60 * time.Second)
	}
	if t.Notice == nil {
		enabled := true
		t.Notice = &enabled
	}
	t.APIKey = strings.TrimSpace(os.Getenv(t.APIKeyEnv))

	if c.Cache.Type == "" {
		c.Cache.Type = "none"
	}
	c.Cache.Type = strings.ToLower(c.Cache.Type)

	for i := range c.I18n.Languages {
		l := &c.I18n.Languages[i]
		l.Locale = strings.TrimSpace(l.Locale)
		if l.Name == "" && l.Locale != "" {
			l.Name = mdtl.GetLanguageName(l.Locale)
		}
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

// Validate checks the configuration file itself. The API key is checked by
// provider.New when a backend is built, so status and serve work without it.
func (c *Config) Validate() error {
	var errs []error

	check := func(field string, value any, rules ...validation.Rule) {
		if err := validation.Validate(value, rules...); err != nil {
			errs = append(errs, &mdtl.ConfigError{Field: field, Message: err.Error(), Cause: err})
		}
	}

	check("translate.service", c.Translate.Service,
		validation.Required,
		validation.In(anySlice(Services)...).Error(fmt.Sprintf("unknown service (valid: %s)", strings.Join(Services, ", "))),
	)
	check("translate.requests_per_minute", c.Translate.RequestsPerMinute, validation.Min(0).Error("must not be negative"))
	check("cache.type", c.Cache.Type,
		validation.In("none", "memory", "redis").Error(fmt.Sprintf("unknown cache type %q", c.Cache.Type)),
	)
	check("cache.url", c.Cache.URL,
		validation.Required.When(c.Cache.Type == "redis").Error("required for redis cache"),
	)

	if len(c.I18n.Languages) == 0 {
		errs = append(errs, &mdtl.ConfigError{Field: "i18n.languages", Message: "no languages configured"})
	}
	defaults := 0
	seen := make(map[string]bool)
	for i, l := range c.I18n.Languages {
		field := fmt.Sprintf("i18n.languages[%d]", i)
		if l.Locale == "" {
			errs = append(errs, &mdtl.ConfigError{Field: field, Message: "locale is required"})
			continue
		}
		if _, err := mdtl.ParseLocale(l.Locale); err != nil {
			errs = append(errs, &mdtl.ConfigError{Field: field, Message: fmt.Sprintf("invalid locale %q", l.Locale), Cause: err})
		}
		key := mdtl.NormalizeLocale(l.Locale)
		if seen[key] {
			errs = append(errs, &mdtl.ConfigError{Field: field, Message: fmt.Sprintf("duplicate locale %q", l.Locale)})
		}
		seen[key] = true
		if l.Default {
			defaults++
		}
	}
	if len(c.I18n.Languages) > 0 && defaults != 1 {
		errs = append(errs, &mdtl.ConfigError{
			Field:   "i18n.languages",
			Message: fmt.Sprintf("exactly one default language required, found %d", defaults),
		})
	}

	return errors.Join(errs...)
}

// Root returns the project root directory.
func (c *Config) Root() string {
	return c.root
}

// Path returns the loaded configuration file.
func (c *Config) Path() string {
	return c.path
}

// ContentRoot returns the absolute-or-relative docs directory.
func (c *Config) ContentRoot() string {
	if filepath.IsAbs(c.DocsDir) {
		return c.DocsDir
	}
	return filepath.Join(c.root, c.DocsDir)
}

// DefaultLanguage returns the primary locale code.
func (c *Config) DefaultLanguage() string {
	for _, l := range c.I18n.Languages {
		if l.Default {
			return l.Locale
		}
	}
	return ""
}

// Locales converts the language list for the dispatcher.
func (c *Config) Locales() []mdtl.LocaleSpec {
	out := make([]mdtl.LocaleSpec, 0, len(c.I18n.Languages))
	for _, l := range c.I18n.Languages {
		out = append(out, mdtl.LocaleSpec{
			Code:    l.Locale,
			Name:    l.Name,
			Build:   l.Build,
			Default: l.Default,
		})
	}
	return out
}

// NoticeEnabled reports whether translated files get the notice.
func (c *Config) NoticeEnabled() bool {
	return c.Translate.Notice == nil || *c.Translate.Notice
}

// CacheFile resolves cache.file against the project root.
func (c *Config) CacheFile() string {
	if c.Cache.File == "" || filepath.IsAbs(c.Cache.File) {
		return c.Cache.File
	}
	return filepath.Join(c.root, c.Cache.File)
}

func anySlice(list []string) []any {
	out := make([]any, len(list))
	for i, v := range list {
		out[i] = v
	}
	return out
}

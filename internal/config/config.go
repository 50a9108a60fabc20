package config

import (
	"errors"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"go.uber.org/multierr"
	"golang.org/x/text/language"
	"golang.org/x/xerrors"

	"github.com/mandclu-acquia/next-drupal-interface-18n/internal/scanner"
)

const (
	// DefaultFile is read when no config path is given. It may be absent.
	DefaultFile = "i18nsync.toml"
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "DRUPAL_I18N_"

	DefaultPath      = "/interface-translations"
	DefaultAddPath   = "/interface-translations/add"
	DefaultNamespace = "translation"
)

// Config is the full configuration surface. It is loaded once at startup
// and handed to each component.
type Config struct {
	BaseURL   string        `toml:"base_url" env:"BASE_URL"`
	BasicAuth BasicAuth     `toml:"basic_auth" envPrefix:"BASIC_AUTH_"`
	Locales   []string      `toml:"locales" env:"LOCALES" envSeparator:","`
	Path      string        `toml:"path" env:"PATH"`
	AddPath   string        `toml:"add_path" env:"ADD_PATH"`
	Namespace string        `toml:"namespace" env:"NAMESPACE"`
	StorePath string        `toml:"store_path" env:"STORE_PATH"`
	Timeout   time.Duration `toml:"timeout" env:"TIMEOUT"`

	Scanner scanner.Options `toml:"scanner" envPrefix:"SCANNER_"`
	Server  Server          `toml:"server" envPrefix:"SERVER_"`
}

// BasicAuth holds the HTTP basic-auth credentials for the Drupal backend.
type BasicAuth struct {
	Username string `toml:"username" env:"USERNAME"`
	Password string `toml:"password" env:"PASSWORD"`
}

// Server configures the serve command.
type Server struct {
	Addr      string `toml:"addr" env:"ADDR"`
	DistDir   string `toml:"dist_dir" env:"DIST_DIR"`
	DevTarget string `toml:"dev_target" env:"DEV_TARGET"`
	// TitleKey names a default-namespace key used as the page title.
	TitleKey string `toml:"title_key" env:"TITLE_KEY"`
}

// Default returns a config with every optional field set.
func Default() Config {
	return Config{
		Path:      DefaultPath,
		AddPath:   DefaultAddPath,
		Namespace: DefaultNamespace,
		StorePath: ".i18nsync/nodes.db",
		Timeout:   30 * time.Second,
		Scanner:   scanner.DefaultOptions(),
		Server: Server{
			Addr:      ":8080",
			DistDir:   "public",
			DevTarget: "http://localhost:5173",
		},
	}
}

// Load reads defaults, then the TOML file at path, then environment
// overrides, and validates the result. A missing DefaultFile is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultFile
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !(errors.Is(err, os.ErrNotExist) && path == DefaultFile) {
			return Config{}, xerrors.Errorf("decode config %s: %w", path, err)
		}
	}

	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseEnv applies DRUPAL_I18N_* environment variables onto target.
// Fields without a matching variable are left untouched.
func ParseEnv(target any) error {
	if err := env.ParseWithOptions(target, env.Options{Prefix: EnvPrefix}); err != nil {
		return xerrors.Errorf("parse env: %w", err)
	}
	return nil
}

// WithDefaults merges defaults into unset fields, the way the plugin merges
// its default scanner options with user options.
func (c Config) WithDefaults() Config {
	d := Default()
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.Path == "" {
		c.Path = d.Path
	}
	if c.AddPath == "" {
		c.AddPath = d.AddPath
	}
	if c.Namespace == "" {
		c.Namespace = d.Namespace
	}
	if c.StorePath == "" {
		c.StorePath = d.StorePath
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Server.DistDir == "" {
		c.Server.DistDir = d.Server.DistDir
	}
	if c.Server.DevTarget == "" {
		c.Server.DevTarget = d.Server.DevTarget
	}
	c.Scanner = c.Scanner.WithDefaults()
	return c
}

// Validate reports every configuration problem at once.
func (c Config) Validate() error {
	var errs error

	if c.BaseURL == "" {
		errs = multierr.Append(errs, xerrors.New("base_url is required"))
	} else if u, err := url.Parse(c.BaseURL); err != nil || !u.IsAbs() || u.Host == "" {
		errs = multierr.Append(errs, xerrors.Errorf("base_url %q must be an absolute URL", c.BaseURL))
	}

	if len(c.Locales) == 0 {
		errs = multierr.Append(errs, xerrors.New("at least one locale is required"))
	}
	seen := make(map[string]struct{}, len(c.Locales))
	for _, locale := range c.Locales {
		if _, err := language.Parse(locale); err != nil {
			errs = multierr.Append(errs, xerrors.Errorf("locale %q: %w", locale, err))
		}
		if _, ok := seen[locale]; ok {
			errs = multierr.Append(errs, xerrors.Errorf("locale %q listed twice", locale))
		}
		seen[locale] = struct{}{}
	}

	if errs != nil {
		return xerrors.Errorf("invalid config: %w", errs)
	}
	return nil
}

// DefaultLocale is the first configured locale.
func (c Config) DefaultLocale() string {
	if len(c.Locales) == 0 {
		return ""
	}
	return c.Locales[0]
}

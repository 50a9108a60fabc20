package scanner

import (
	"path/filepath"
	"strings"
)

const (
	lngPlaceholder = "{{lng}}"
	nsPlaceholder  = "{{ns}}"
)

// Options mirrors the subset of i18next-scanner options the sync tool relies on.
type Options struct {
	// Input holds doublestar globs. A leading "!" excludes matches.
	Input []string `toml:"input" env:"INPUT" envSeparator:","`
	// Output is the directory resources are written under.
	Output string `toml:"output" env:"OUTPUT"`

	Lngs         []string `toml:"lngs" env:"LNGS" envSeparator:","`
	Ns           []string `toml:"ns" env:"NS" envSeparator:","`
	DefaultNs    string   `toml:"default_ns" env:"DEFAULT_NS"`
	DefaultValue string   `toml:"default_value" env:"DEFAULT_VALUE"`
	// NsSeparator and KeySeparator are disabled when empty. Drupal source
	// strings are full sentences, so neither is set by default.
	NsSeparator  string `toml:"ns_separator" env:"NS_SEPARATOR"`
	KeySeparator string `toml:"key_separator" env:"KEY_SEPARATOR"`

	Func     FuncOptions     `toml:"func" envPrefix:"FUNC_"`
	Trans    TransOptions    `toml:"trans" envPrefix:"TRANS_"`
	Resource ResourceOptions `toml:"resource" envPrefix:"RESOURCE_"`
}

// FuncOptions selects the translation functions whose first argument is a key.
type FuncOptions struct {
	List       []string `toml:"list" env:"LIST" envSeparator:","`
	Extensions []string `toml:"extensions" env:"EXTENSIONS" envSeparator:","`
}

// TransOptions selects the JSX component carrying keys in an attribute.
type TransOptions struct {
	Component  string   `toml:"component" env:"COMPONENT"`
	I18nKey    string   `toml:"i18n_key" env:"I18N_KEY"`
	Extensions []string `toml:"extensions" env:"EXTENSIONS" envSeparator:","`
}

// ResourceOptions locates resource files. Paths may contain {{lng}} and {{ns}}.
type ResourceOptions struct {
	LoadPath   string `toml:"load_path" env:"LOAD_PATH"`
	SavePath   string `toml:"save_path" env:"SAVE_PATH"`
	JSONIndent int    `toml:"json_indent" env:"JSON_INDENT"`
}

var sourceExtensions = []string{".js", ".jsx", ".ts", ".tsx"}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Input:     []string{"src/**/*.{js,jsx,ts,tsx}", "!**/node_modules/**"},
		Output:    ".",
		Lngs:      []string{"en"},
		Ns:        []string{"translation"},
		DefaultNs: "translation",
		Func: FuncOptions{
			List:       []string{"t", "i18next.t", "i18n.t"},
			Extensions: append([]string(nil), sourceExtensions...),
		},
		Trans: TransOptions{
			Component:  "Trans",
			I18nKey:    "i18nKey",
			Extensions: append([]string(nil), sourceExtensions...),
		},
		Resource: ResourceOptions{
			LoadPath:   "i18n/{{lng}}/{{ns}}.json",
			SavePath:   "i18n/{{lng}}/{{ns}}.json",
			JSONIndent: 2,
		},
	}
}

// WithDefaults fills every unset field from DefaultOptions. Set fields win.
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if len(o.Input) == 0 {
		o.Input = d.Input
	}
	if o.Output == "" {
		o.Output = d.Output
	}
	if len(o.Lngs) == 0 {
		o.Lngs = d.Lngs
	}
	if len(o.Ns) == 0 {
		o.Ns = d.Ns
	}
	if o.DefaultNs == "" {
		o.DefaultNs = o.Ns[0]
	}
	if len(o.Func.List) == 0 {
		o.Func.List = d.Func.List
	}
	if len(o.Func.Extensions) == 0 {
		o.Func.Extensions = d.Func.Extensions
	}
	if o.Trans.Component == "" {
		o.Trans.Component = d.Trans.Component
	}
	if o.Trans.I18nKey == "" {
		o.Trans.I18nKey = d.Trans.I18nKey
	}
	if len(o.Trans.Extensions) == 0 {
		o.Trans.Extensions = d.Trans.Extensions
	}
	if o.Resource.SavePath == "" {
		o.Resource.SavePath = d.Resource.SavePath
	}
	if o.Resource.LoadPath == "" {
		o.Resource.LoadPath = o.Resource.SavePath
	}
	if o.Resource.JSONIndent <= 0 {
		o.Resource.JSONIndent = d.Resource.JSONIndent
	}
	return o
}

// ResourcePath is the saved resource file for the primary language and the
// default namespace. This is the file read back after a scan.
func ResourcePath(o Options) string {
	o = o.WithDefaults()
	return filepath.Join(o.Output, expandPath(o.Resource.SavePath, o.Lngs[0], o.DefaultNs))
}

func expandPath(p, lng, ns string) string {
	p = strings.ReplaceAll(p, lngPlaceholder, lng)
	return strings.ReplaceAll(p, nsPlaceholder, ns)
}

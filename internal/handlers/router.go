package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/mandclu-acquia/next-drupal-interface-18n/internal/core"
	"github.com/mandclu-acquia/next-drupal-interface-18n/internal/middleware"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	Translator core.TranslationService
	Locales    []string
	Namespace  string
	TitleKey   string
	IsDev      bool
	DevTarget  string
	DistDir    string
}

// NewRouter routes pages through the language detector, /api/ to the
// translations endpoint, and everything else to the dev server in dev mode
// or to files under DistDir in production.
func NewRouter(opts RouterOptions) (http.Handler, error) {
	defaultLocale := "en"
	if len(opts.Locales) > 0 {
		defaultLocale = opts.Locales[0]
	}

	page := NewHTMLHandler(opts.Translator, defaultLocale, opts.Namespace, opts.IsDev, opts.DevTarget, opts.DistDir)
	page.TitleKey = opts.TitleKey
	langAwareHTML := middleware.LanguageDetector(opts.Locales)(page)
	api := NewTranslationHandler(opts.Translator, defaultLocale)

	var assets http.Handler
	if opts.IsDev {
		proxy, err := DevProxyHandler(opts.DevTarget)
		if err != nil {
			return nil, err
		}
		assets = proxy
	} else {
		assets = staticFiles(opts.DistDir)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		switch {
		case strings.HasPrefix(path, "/api/"):
			api.ServeHTTP(w, r)
		case path == "/" || path == "/index.html":
			langAwareHTML.ServeHTTP(w, r)
		default:
			if _, ok := middleware.PathLocale(path, opts.Locales); ok && !looksLikeFile(path) {
				langAwareHTML.ServeHTTP(w, r)
				return
			}
			assets.ServeHTTP(w, r)
		}
	}), nil
}

// staticFiles serves regular files from dir and 404s everything else.
func staticFiles(dir string) http.Handler {
	fs := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info, err := os.Stat(filepath.Join(dir, filepath.FromSlash(filepath.Clean("/"+r.URL.Path))))
		if err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	})
}

func looksLikeFile(path string) bool {
	return filepath.Ext(path) != ""
}

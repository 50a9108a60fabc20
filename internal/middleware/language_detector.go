package middleware

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

type LanguageKey string

const CtxLanguageKey LanguageKey = "language"

// LanguageFromContext returns the language set by LanguageDetector, or
// fallback when the request never passed through it.
func LanguageFromContext(ctx context.Context, fallback string) string {
	if lang, ok := ctx.Value(CtxLanguageKey).(string); ok && lang != "" {
		return lang
	}
	return fallback
}

// LanguageDetector checks the URL path and Accept-Language header and sets
// the chosen locale in the request context. The first locale is the default
// and is served without a path prefix; the others live under /{locale}/.
func LanguageDetector(locales []string) func(http.Handler) http.Handler {
	tags := make([]language.Tag, 0, len(locales))
	for _, l := range locales {
		tags = append(tags, language.Make(l))
	}
	matcher := language.NewMatcher(tags)
	defaultLocale := "en"
	if len(locales) > 0 {
		defaultLocale = locales[0]
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path

			if lang, ok := PathLocale(path, locales); ok {
				next.ServeHTTP(w, withLanguage(r, lang))
				return
			}

			// Only the site root redirects on browser preference.
			if path == "/" || path == "/index.html" {
				if lang := preferred(r.Header.Get("Accept-Language"), matcher, locales); lang != "" && lang != defaultLocale {
					http.Redirect(w, r, "/"+lang+"/", http.StatusFound)
					return
				}
			}

			next.ServeHTTP(w, withLanguage(r, defaultLocale))
		})
	}
}

// PathLocale reports the non-default locale a path is prefixed with.
func PathLocale(path string, locales []string) (string, bool) {
	for _, l := range locales[min(1, len(locales)):] {
		if path == "/"+l || strings.HasPrefix(path, "/"+l+"/") {
			return l, true
		}
	}
	return "", false
}

func preferred(accept string, matcher language.Matcher, locales []string) string {
	if accept == "" || len(locales) == 0 {
		return ""
	}
	desired, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(desired) == 0 {
		return ""
	}
	_, idx, conf := matcher.Match(desired...)
	if conf == language.No {
		return ""
	}
	return locales[idx]
}

func withLanguage(r *http.Request, lang string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), CtxLanguageKey, lang))
}

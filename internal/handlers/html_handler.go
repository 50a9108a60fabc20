package handlers

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-resty/resty/v2"
	"golang.org/x/xerrors"

	"github.com/mandclu-acquia/next-drupal-interface-18n/internal/core"
	"github.com/mandclu-acquia/next-drupal-interface-18n/internal/middleware"
)

// InitialState is injected into the page as window.__INITIAL_STATE__ so the
// front end can initialise i18next without a second request.
type InitialState struct {
	Lang      string          `json:"lang"`
	Namespace string          `json:"namespace"`
	Resources core.Namespaces `json:"resources"`
}

type HTMLHandler struct {
	Translator    core.TranslationService
	DefaultLocale string
	Namespace     string
	// TitleKey, when set, replaces the page <title> with that key's
	// translation from the default namespace.
	TitleKey  string
	IsDev     bool
	DevTarget string
	DistDir   string

	dev *resty.Client
}

func NewHTMLHandler(t core.TranslationService, defaultLocale, namespace string, isDev bool, devTarget, distDir string) *HTMLHandler {
	return &HTMLHandler{
		Translator:    t,
		DefaultLocale: defaultLocale,
		Namespace:     namespace,
		IsDev:         isDev,
		DevTarget:     strings.TrimSuffix(devTarget, "/"),
		DistDir:       distDir,
		dev:           resty.New(),
	}
}

func (h *HTMLHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	lang := middleware.LanguageFromContext(r.Context(), h.DefaultLocale)

	translations, err := lookup(h.Translator, lang, h.DefaultLocale)
	if err != nil {
		log.Warnf("no translations for %s: %s", lang, err)
		translations = core.Namespaces{}
	}

	page, err := h.template(r)
	if err != nil {
		log.Errorf("load page template: %s", err)
		if h.IsDev {
			http.Error(w, "Failed to connect to dev server", http.StatusBadGateway)
		} else {
			http.Error(w, "index.html not found", http.StatusInternalServerError)
		}
		return
	}

	out, err := Inject(page, InitialState{Lang: lang, Namespace: h.Namespace, Resources: translations}, h.title(translations))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write([]byte(out)); err != nil {
		log.Debugf("write page: %s", err)
	}
}

// template fetches index.html from the dev server, trying the request path
// then the root, or reads it from the dist directory.
func (h *HTMLHandler) template(r *http.Request) (string, error) {
	if !h.IsDev {
		data, err := os.ReadFile(filepath.Join(h.DistDir, "index.html"))
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	var lastErr error
	for _, p := range []string{r.URL.Path, "/"} {
		resp, err := h.dev.R().SetContext(r.Context()).Get(h.DevTarget + p)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.IsError() {
			lastErr = xerrors.Errorf("dev server returned %s for %s", resp.Status(), p)
			continue
		}
		return resp.String(), nil
	}
	return "", lastErr
}

func (h *HTMLHandler) title(translations core.Namespaces) string {
	if h.TitleKey == "" {
		return ""
	}
	return translations[h.Namespace][h.TitleKey]
}

// Inject sets the html lang attribute, adds the initial state script before
// </head> and, when title is not empty, replaces the page title.
func Inject(page string, state InitialState, title string) (string, error) {
	payload, err := json.Marshal(state)
	if err != nil {
		return "", xerrors.Errorf("encode initial state: %w", err)
	}

	page = setLang(page, state.Lang)

	// json.Marshal escapes <, > and & so the payload cannot close the script.
	script := fmt.Sprintf("<script>window.__INITIAL_STATE__ = %s;</script>", payload)
	if strings.Contains(page, "</head>") {
		page = strings.Replace(page, "</head>", script+"</head>", 1)
	} else {
		page += script
	}

	if title != "" {
		start := strings.Index(page, "<title>")
		end := strings.Index(page, "</title>")
		if start >= 0 && end > start {
			page = page[:start] + "<title>" + html.EscapeString(title) + "</title>" + page[end+len("</title>"):]
		}
	}
	return page, nil
}

var (
	htmlTagRe  = regexp.MustCompile(`(?i)<html(?:\s[^>]*)?>`)
	langAttrRe = regexp.MustCompile(`(?i)\slang\s*=\s*(?:"[^"]*"|'[^']*'|[^\s>]+)`)
)

// setLang sets the lang attribute of the first <html> tag, replacing any
// existing value and keeping the other attributes.
func setLang(page, lang string) string {
	loc := htmlTagRe.FindStringIndex(page)
	if loc == nil {
		return page
	}
	tag := page[loc[0]:loc[1]]
	attr := fmt.Sprintf(` lang="%s"`, html.EscapeString(lang))
	if langAttrRe.MatchString(tag) {
		tag = langAttrRe.ReplaceAllLiteralString(tag, attr)
	} else {
		tag = tag[:len("<html")] + attr + tag[len("<html"):]
	}
	return page[:loc[0]] + tag + page[loc[1]:]
}

// DevProxyHandler proxies everything else (assets) to the dev server.
func DevProxyHandler(target string) (http.Handler, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, xerrors.Errorf("dev target %q: %w", target, err)
	}
	return httputil.NewSingleHostReverseProxy(u), nil
}

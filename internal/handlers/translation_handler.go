package handlers

import (
	"encoding/json"
	"net/http"

	logging "github.com/ipfs/go-log/v2"

	"github.com/mandclu-acquia/next-drupal-interface-18n/internal/core"
)

var log = logging.Logger("handlers")

type TranslationHandler struct {
	Translator    core.TranslationService
	DefaultLocale string
}

func NewTranslationHandler(t core.TranslationService, defaultLocale string) *TranslationHandler {
	return &TranslationHandler{
		Translator:    t,
		DefaultLocale: defaultLocale,
	}
}

// ServeHTTP answers /api/translations?lang=fr with that language's
// namespaces, falling back to the default locale.
func (h *TranslationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	lang := r.URL.Query().Get("lang")
	if lang == "" {
		lang = h.DefaultLocale
	}

	translations, err := lookup(h.Translator, lang, h.DefaultLocale)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(translations); err != nil {
		log.Warnf("encode translations for %s: %s", lang, err)
	}
}

func lookup(t core.TranslationService, lang, fallback string) (core.Namespaces, error) {
	translations, err := t.GetTranslations(lang)
	if err == nil {
		return translations, nil
	}
	if lang == fallback {
		return nil, err
	}
	log.Debugf("no translations for %s, using %s: %s", lang, fallback, err)
	return t.GetTranslations(fallback)
}

package core

import "context"

// Translation is one interface string for one language, as sourced from Drupal.
type Translation struct {
	Source      string `json:"source"`
	Translation string `json:"translation"`
	Langcode    string `json:"langcode"`
}

// Resources maps a source string to its translated value.
type Resources map[string]string

// Namespaces groups resources by i18next namespace.
type Namespaces map[string]Resources

// Table is the i18next resource table keyed by language code.
type Table map[string]Namespaces

// TranslationService defines the contract for loading and retrieving translations.
type TranslationService interface {
	// LoadTranslations builds the translation table from its source.
	LoadTranslations(ctx context.Context) error
	// GetTranslations returns the namespaces for a specific language.
	// Returns an error if the language is not loaded.
	GetTranslations(lang string) (Namespaces, error)
}

package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/mandclu-acquia/next-drupal-interface-18n/internal/core"
	"github.com/mandclu-acquia/next-drupal-interface-18n/internal/i18n"
)

// TranslationQuerier returns every stored translation record.
type TranslationQuerier interface {
	AllTranslations(ctx context.Context) ([]core.Translation, error)
}

// TableTranslationService serves the i18next table built from stored
// translation nodes.
type TableTranslationService struct {
	querier   TranslationQuerier
	locales   []string
	namespace string
	cache     core.Table
	mu        sync.RWMutex
}

func NewTableTranslationService(querier TranslationQuerier, locales []string, namespace string) *TableTranslationService {
	return &TableTranslationService{
		querier:   querier,
		locales:   locales,
		namespace: namespace,
		cache:     core.Table{},
	}
}

// LoadTranslations queries the store and rebuilds the table.
func (s *TableTranslationService) LoadTranslations(ctx context.Context) error {
	records, err := s.querier.AllTranslations(ctx)
	if err != nil {
		return fmt.Errorf("failed to query translations: %w", err)
	}

	table, err := i18n.ProcessTranslationNodes(records, s.locales, s.namespace)
	if err != nil {
		return fmt.Errorf("failed to build translation table: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = table
	return nil
}

func (s *TableTranslationService) GetTranslations(lang string) (core.Namespaces, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.cache[lang]
	if !ok {
		// Strict retrieval; callers pick their own fallback.
		return nil, fmt.Errorf("translations not found for language: %s", lang)
	}
	return data, nil
}

// Table returns the loaded table. Callers must not modify it.
func (s *TableTranslationService) Table() core.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache
}

// Locales returns the configured locales, default first.
func (s *TableTranslationService) Locales() []string {
	return s.locales
}

// Namespace returns the default namespace.
func (s *TableTranslationService) Namespace() string {
	return s.namespace
}

package i18n

import (
	"sort"

	"github.com/samber/lo"
	"go.uber.org/multierr"
	"golang.org/x/xerrors"

	"github.com/mandclu-acquia/next-drupal-interface-18n/internal/core"
)

var (
	// ErrUnconfiguredLocale is returned for a record whose langcode is not a
	// configured locale.
	ErrUnconfiguredLocale = xerrors.New("translation for unconfigured locale")
	// ErrMissingLocale is returned when a configured locale has no table entry.
	ErrMissingLocale = xerrors.New("configured locale missing from translation table")
)

// ProcessTranslationNodes maps flat records into the i18next resource table.
// Every configured locale is seeded with an empty namespace, so a locale with
// no records still appears. Records for any other langcode are rejected; the
// error lists each offending langcode once.
func ProcessTranslationNodes(records []core.Translation, locales []string, namespace string) (core.Table, error) {
	table := make(core.Table, len(locales))
	for _, locale := range locales {
		table[locale] = core.Namespaces{namespace: core.Resources{}}
	}

	var errs error
	rejected := map[string]struct{}{}
	for _, record := range records {
		namespaces, ok := table[record.Langcode]
		if !ok {
			if _, seen := rejected[record.Langcode]; !seen {
				rejected[record.Langcode] = struct{}{}
				errs = multierr.Append(errs, xerrors.Errorf("%w: %q", ErrUnconfiguredLocale, record.Langcode))
			}
			continue
		}
		namespaces[namespace][record.Source] = record.Translation
	}
	if errs != nil {
		return nil, errs
	}
	return table, nil
}

// Languages returns the table's language codes in sorted order.
func Languages(table core.Table) []string {
	langs := lo.Keys(table)
	sort.Strings(langs)
	return langs
}

// Count returns the number of (language, namespace, key) entries.
func Count(table core.Table) int {
	n := 0
	for _, namespaces := range table {
		for _, resources := range namespaces {
			n += len(resources)
		}
	}
	return n
}

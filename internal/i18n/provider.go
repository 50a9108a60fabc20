package i18n

import (
	"sort"

	"github.com/samber/lo"
	"golang.org/x/xerrors"

	"github.com/mandclu-acquia/next-drupal-interface-18n/internal/core"
)

// Provide registers each configured locale's resources from table into a new
// runtime. The first locale is the fallback. Registration happens once; the
// returned runtime is never refreshed from the table again.
func Provide(table core.Table, locales []string, namespace string) (*Runtime, error) {
	if len(locales) == 0 {
		return nil, xerrors.New("no locales configured")
	}
	rt, err := NewRuntime(locales[0], namespace)
	if err != nil {
		return nil, err
	}

	for _, locale := range locales {
		namespaces, ok := table[locale]
		if !ok {
			return nil, xerrors.Errorf("%w: %q", ErrMissingLocale, locale)
		}
		if err := rt.AddResources(locale, namespace, namespaces[namespace]); err != nil {
			return nil, err
		}
		others := lo.Without(lo.Keys(namespaces), namespace)
		sort.Strings(others)
		for _, ns := range others {
			if err := rt.AddResources(locale, ns, namespaces[ns]); err != nil {
				return nil, err
			}
		}
	}
	return rt, nil
}

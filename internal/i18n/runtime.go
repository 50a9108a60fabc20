package i18n

import (
	"sort"
	"strings"
	"sync"

	"github.com/samber/lo"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"golang.org/x/xerrors"

	"github.com/mandclu-acquia/next-drupal-interface-18n/internal/core"
)

// Runtime is an i18n runtime backed by an x/text message catalog.
// Keys outside the default namespace are addressed as "ns:key".
type Runtime struct {
	mu        sync.RWMutex
	builder   *catalog.Builder
	fallback  string
	namespace string
	resources core.Table
}

// NewRuntime returns an empty runtime. fallback is the locale used when a
// key is missing for the requested one.
func NewRuntime(fallback, defaultNamespace string) (*Runtime, error) {
	tag, err := language.Parse(fallback)
	if err != nil {
		return nil, xerrors.Errorf("parse fallback locale %q: %w", fallback, err)
	}
	return &Runtime{
		builder:   catalog.NewBuilder(catalog.Fallback(tag)),
		fallback:  fallback,
		namespace: defaultNamespace,
		resources: core.Table{},
	}, nil
}

// AddResources registers resources for lang under namespace ns.
func (r *Runtime) AddResources(lang, ns string, resources core.Resources) error {
	tag, err := language.Parse(lang)
	if err != nil {
		return xerrors.Errorf("parse locale %q: %w", lang, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	namespaces, ok := r.resources[lang]
	if !ok {
		namespaces = core.Namespaces{}
		r.resources[lang] = namespaces
	}
	target, ok := namespaces[ns]
	if !ok {
		target = core.Resources{}
		namespaces[ns] = target
	}

	keys := lo.Keys(resources)
	sort.Strings(keys)
	for _, key := range keys {
		value := resources[key]
		target[key] = value
		// catalog messages are format strings; Drupal placeholders like %name must stay literal
		if err := r.builder.SetString(tag, r.catalogKey(ns, key), strings.ReplaceAll(value, "%", "%%")); err != nil {
			return xerrors.Errorf("register %s %s:%s: %w", lang, ns, key, err)
		}
	}
	return nil
}

// T translates key for lang, falling back to the fallback locale and then to
// the key itself.
func (r *Runtime) T(lang, key string) string {
	ns, k := r.split(key)

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, l := range []string{lang, r.fallback} {
		if value, ok := r.resources[l][ns][k]; ok {
			return value
		}
	}
	return k
}

// Printer returns an x/text printer bound to the runtime catalog.
func (r *Runtime) Printer(lang string) *message.Printer {
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.Make(r.fallback)
	}
	return message.NewPrinter(tag, message.Catalog(r.builder))
}

// Languages lists the locales with registered resources.
func (r *Runtime) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Languages(r.resources)
}

// Resources returns a copy of the resources registered for lang and ns.
func (r *Runtime) Resources(lang, ns string) core.Resources {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := core.Resources{}
	for k, v := range r.resources[lang][ns] {
		out[k] = v
	}
	return out
}

func (r *Runtime) split(key string) (string, string) {
	if ns, k, ok := strings.Cut(key, ":"); ok {
		if r.hasNamespace(ns) {
			return ns, k
		}
	}
	return r.namespace, key
}

func (r *Runtime) hasNamespace(ns string) bool {
	if ns == r.namespace {
		return true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, namespaces := range r.resources {
		if _, ok := namespaces[ns]; ok {
			return true
		}
	}
	return false
}

func (r *Runtime) catalogKey(ns, key string) string {
	if ns == r.namespace {
		return key
	}
	return ns + ":" + key
}

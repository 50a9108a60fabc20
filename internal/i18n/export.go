package i18n

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/samber/lo"
	"golang.org/x/xerrors"

	"github.com/mandclu-acquia/next-drupal-interface-18n/internal/core"
)

// Export writes the table as i18next bundle files, one per language and
// namespace at dir/{lng}/{ns}.json, and returns the written paths in order.
func Export(table core.Table, dir string) ([]string, error) {
	var written []string
	for _, lang := range Languages(table) {
		namespaces := lo.Keys(table[lang])
		sort.Strings(namespaces)
		for _, ns := range namespaces {
			p := filepath.Join(dir, lang, ns+".json")
			if err := writeBundle(p, table[lang][ns]); err != nil {
				return written, err
			}
			written = append(written, p)
		}
	}
	return written, nil
}

func writeBundle(p string, resources core.Resources) error {
	if resources == nil {
		resources = core.Resources{}
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return xerrors.Errorf("make bundle dir: %w", err)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resources); err != nil {
		return xerrors.Errorf("encode bundle %s: %w", p, err)
	}
	if err := os.WriteFile(p, buf.Bytes(), 0o644); err != nil {
		return xerrors.Errorf("write bundle %s: %w", p, err)
	}
	return nil
}

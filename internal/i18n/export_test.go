package i18n

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mandclu-acquia/next-drupal-interface-18n/internal/core"
)

func TestExport(t *testing.T) {
	dir := t.TempDir()
	table := core.Table{
		"fr": {"translation": {"hello": "bonjour", "a&b": "<b>gras</b>"}},
		"en": {"translation": {}},
	}

	written, err := Export(table, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "en", "translation.json"),
		filepath.Join(dir, "fr", "translation.json"),
	}, written)

	en, err := os.ReadFile(written[0])
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(en))

	fr, err := os.ReadFile(written[1])
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a&b\": \"<b>gras</b>\",\n  \"hello\": \"bonjour\"\n}\n", string(fr))
}

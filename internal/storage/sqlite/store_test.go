package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mandclu-acquia/next-drupal-interface-18n/internal/core"
	"github.com/mandclu-acquia/next-drupal-interface-18n/internal/nodes"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "nodes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(context.Background(), "  ")
	require.Error(t, err)
}

func TestOpenTwiceAppliesMigrationsOnce(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nodes.db")

	first, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, first.ReplaceNodes(ctx, []nodes.Node{nodes.Process("fr", "hello", "bonjour")}))
	require.NoError(t, first.Close())

	second, err := Open(ctx, path)
	require.NoError(t, err)
	defer second.Close()

	count, err := second.CountNodes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCreateTypes(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	_, ok, err := store.TypeDefinition(ctx, nodes.TypeName)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.CreateTypes(ctx, nodes.TypeName, nodes.SchemaSDL))
	require.NoError(t, store.CreateTypes(ctx, nodes.TypeName, nodes.SchemaSDL))

	sdl, ok, err := store.TypeDefinition(ctx, nodes.TypeName)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, sdl, "type DrupalTranslation implements Node")
}

func TestReplaceNodesAndGet(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	want := nodes.Process("fr", "hello", "bonjour")
	require.NoError(t, store.ReplaceNodes(ctx, []nodes.Node{want}))

	got, ok, err := store.getNode(ctx, want.ID)
	require.NoError(t, err)
	require.True(t, ok)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("node mismatch (-want +got):\n%s", diff)
	}
	require.NoError(t, got.Verify())

	_, ok, err = store.getNode(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReplaceNodesUpsertsDuplicates(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.ReplaceNodes(ctx, []nodes.Node{
		nodes.Process("fr", "hello", "salut"),
		nodes.Process("fr", "hello", "bonjour"),
	}))

	all, err := store.AllTranslations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.Translation{{Source: "hello", Translation: "bonjour", Langcode: "fr"}}, all)
}

func TestReplaceNodesDropsPreviousSet(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.CreateTypes(ctx, nodes.TypeName, nodes.SchemaSDL))
	require.NoError(t, store.ReplaceNodes(ctx, []nodes.Node{nodes.Process("fr", "stale", "vieux")}))
	require.NoError(t, store.ReplaceNodes(ctx, []nodes.Node{nodes.Process("fr", "hello", "bonjour")}))

	all, err := store.AllTranslations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.Translation{{Source: "hello", Translation: "bonjour", Langcode: "fr"}}, all)

	_, ok, err := store.TypeDefinition(ctx, nodes.TypeName)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReplaceNodesRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	require.NoError(t, store.ReplaceNodes(ctx, []nodes.Node{nodes.Process("fr", "hello", "bonjour")}))

	err := store.ReplaceNodes(ctx, []nodes.Node{
		nodes.Process("de", "hello", "hallo"),
		{},
	})
	require.Error(t, err)

	all, err := store.AllTranslations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.Translation{{Source: "hello", Translation: "bonjour", Langcode: "fr"}}, all)
}

func TestReplaceNodesCancelledKeepsPreviousSet(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.ReplaceNodes(context.Background(), []nodes.Node{nodes.Process("fr", "hello", "bonjour")}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, store.ReplaceNodes(ctx, []nodes.Node{nodes.Process("de", "hello", "hallo")}))

	count, err := store.CountNodes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAllTranslationsOrdered(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	all, err := store.AllTranslations(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	require.NoError(t, store.ReplaceNodes(ctx, []nodes.Node{
		nodes.Process("fr", "zebra", "zèbre"),
		nodes.Process("de", "hello", "hallo"),
		nodes.Process("fr", "apple", "pomme"),
	}))

	all, err = store.AllTranslations(ctx)
	require.NoError(t, err)
	want := []core.Translation{
		{Source: "hello", Translation: "hallo", Langcode: "de"},
		{Source: "apple", Translation: "pomme", Langcode: "fr"},
		{Source: "zebra", Translation: "zèbre", Langcode: "fr"},
	}
	if diff := cmp.Diff(want, all); diff != "" {
		t.Fatalf("translations mismatch (-want +got):\n%s", diff)
	}
}

func TestAllTranslationsRejectsTamperedContent(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	n := nodes.Process("fr", "hello", "bonjour")
	require.NoError(t, store.ReplaceNodes(ctx, []nodes.Node{n}))

	_, err := store.db.ExecContext(ctx, "UPDATE translation_nodes SET content = ? WHERE id = ?",
		`{"source":"hello","translation":"salut","langcode":"fr"}`, n.ID)
	require.NoError(t, err)

	_, err = store.AllTranslations(ctx)
	require.Error(t, err)
}

func TestExtractUp(t *testing.T) {
	content := "-- +migrate Up\nCREATE TABLE a (id INT);\n-- +migrate Down\nDROP TABLE a;\n"
	assert.Equal(t, "\nCREATE TABLE a (id INT);\n", extractUp(content))
	assert.Equal(t, "SELECT 1;", extractUp("SELECT 1;"))
}

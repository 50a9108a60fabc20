package scanner

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, name, body string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
}

func readResource(t *testing.T, p string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	out := map[string]any{}
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func keyNames(keys []Key) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k.Key)
	}
	return out
}

func TestScanFindsGreeting(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/components/header.js", `
import { useTranslation } from "react-i18next"

export const Header = () => {
  const { t } = useTranslation()
  return <h1>{t("greeting")}</h1>
}
`)

	res, err := New(root, Options{}).Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"src/components/header.js"}, res.Files)
	assert.Equal(t, []string{"greeting"}, keyNames(res.Keys))
	assert.Equal(t, 6, res.Keys[0].Line)

	resources := readResource(t, filepath.Join(root, "i18n", "en", "translation.json"))
	assert.Equal(t, map[string]any{"greeting": ""}, resources)
}

func TestScanExtractionForms(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/b.tsx", `
type Props = { count: number }
export function Cart({ count }: Props): JSX.Element {
  const label: string = i18n.t('Items in cart', "Articles")
  return (
    <div title={t(`+"`Checkout`"+`)}>
      <Trans i18nKey="Welcome back">Welcome back</Trans>
      <Trans i18nKey={'Your order'} />
      {i18next.t("Escaped \"quote\" and é")}
      {t(`+"`Hello ${name}`"+`)}
      {t(dynamicKey)}
      {format("not a key")}
    </div>
  )
}
`)
	writeFile(t, root, "src/a.js", `export const x = t("First file")`)

	res, err := New(root, Options{}).Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"src/a.js", "src/b.tsx"}, res.Files)
	want := []string{
		"First file",
		"Items in cart",
		"Checkout",
		"Welcome back",
		"Your order",
		"Escaped \"quote\" and é",
	}
	if diff := cmp.Diff(want, keyNames(res.Keys)); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "Articles", res.Keys[1].DefaultValue)
}

func TestScanInputPatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/app.ts", `t("kept")`)
	writeFile(t, root, "src/node_modules/lib/index.js", `t("vendored")`)
	writeFile(t, root, "src/styles.css", `t("not source")`)
	writeFile(t, root, "other/skip.js", `t("outside input")`)

	res, err := New(root, Options{}).Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"src/app.ts"}, res.Files)
	assert.Equal(t, []string{"kept"}, keyNames(res.Keys))
}

func TestScanInvalidPattern(t *testing.T) {
	_, err := New(t.TempDir(), Options{Input: []string{"src/[.js"}}).Scan(context.Background())
	require.Error(t, err)
}

func TestScanMergesExistingResources(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/app.js", `t("new key"); t("kept key", "ignored default")`)
	writeFile(t, root, "i18n/en/translation.json", `{"kept key": "Existing value", "stale": "still here"}`)

	_, err := New(root, Options{DefaultValue: "__TODO__"}).Scan(context.Background())
	require.NoError(t, err)

	got := readResource(t, filepath.Join(root, "i18n", "en", "translation.json"))
	want := map[string]any{
		"kept key": "Existing value",
		"stale":    "still here",
		"new key":  "__TODO__",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("resources mismatch (-want +got):\n%s", diff)
	}
}

func TestScanLanguagesNamespacesAndSeparators(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/app.js", `
t("menu.file.open", "Open")
t("admin:Save")
`)
	opts := Options{
		Lngs:         []string{"en", "fr"},
		NsSeparator:  ":",
		KeySeparator: ".",
		Resource:     ResourceOptions{SavePath: "locales/{{lng}}/{{ns}}.json"},
	}

	res, err := New(root, opts).Scan(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Written, 4)

	en := readResource(t, filepath.Join(root, "locales", "en", "translation.json"))
	assert.Equal(t, map[string]any{"menu": map[string]any{"file": map[string]any{"open": "Open"}}}, en)

	fr := readResource(t, filepath.Join(root, "locales", "fr", "translation.json"))
	assert.Equal(t, map[string]any{"menu": map[string]any{"file": map[string]any{"open": ""}}}, fr)

	admin := readResource(t, filepath.Join(root, "locales", "fr", "admin.json"))
	assert.Equal(t, map[string]any{"Save": ""}, admin)
}

func TestScanCancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/app.js", `t("x")`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(root, Options{}).Scan(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestSetKeyConflicts(t *testing.T) {
	resources := map[string]any{"a": "leaf"}
	require.Error(t, setKey(resources, "a.b", ".", ""))

	resources = map[string]any{"a": map[string]any{"b": ""}}
	require.Error(t, setKey(resources, "a", ".", ""))

	require.NoError(t, setKey(resources, "c", "", "v"))
	assert.Equal(t, "v", resources["c"])
}

func TestResourcePath(t *testing.T) {
	opts := Options{Output: "build", Lngs: []string{"fr", "en"}}
	assert.Equal(t, filepath.Join("build", "i18n", "fr", "translation.json"), ResourcePath(opts))

	s := New("/site", Options{Resource: ResourceOptions{SavePath: "translations.json"}})
	assert.Equal(t, filepath.Join("/site", "translations.json"), s.ResourcePath())
}

func TestWithDefaultsKeepsUserValues(t *testing.T) {
	o := Options{
		Input: []string{"app/**/*.js"},
		Ns:    []string{"common", "admin"},
		Func:  FuncOptions{List: []string{"__"}},
	}.WithDefaults()

	assert.Equal(t, []string{"app/**/*.js"}, o.Input)
	assert.Equal(t, "common", o.DefaultNs)
	assert.Equal(t, []string{"__"}, o.Func.List)
	assert.Equal(t, []string{"en"}, o.Lngs)
	assert.Equal(t, o.Resource.SavePath, o.Resource.LoadPath)
}

func TestScanTransWithJSXAttributes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/page.jsx", `
export const Page = () => (
  <>
    <Trans components={{ b: <b />, link: <a href="/x" /> }} i18nKey="deep">
      Hello <b>world</b>
    </Trans>
    <Trans
      values={{ count: n > 1 ? n : 1 }}
      title="a > b"
      i18nKey={"multi line"}
    />
    <Trans ns="admin" data-i18nKey="not this" />
    <TransList i18nKey="other component" />
  </>
)
`)

	res, err := New(root, Options{}).Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"deep", "multi line"}, keyNames(res.Keys))
	assert.Equal(t, 4, res.Keys[0].Line)
	assert.Equal(t, 7, res.Keys[1].Line)
}

func TestScanUnicodeCodePointEscapes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/app.js", `
t("smile \u{1F600}")
t('café')
t("bad \u{110000}")
t("empty \u{}")
`)

	res, err := New(root, Options{}).Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"smile 😀", "café"}, keyNames(res.Keys))
}

func TestScanDollarPrefixedFunction(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/app.ts", `const a = $t("from dollar"); const b = at("not a call")`)

	res, err := New(root, Options{}).Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"from dollar"}, keyNames(res.Keys))
}

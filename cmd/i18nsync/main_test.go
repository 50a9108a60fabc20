package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeDrupal(t *testing.T, pushed *[]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /interface-translations", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "editor", user)
		assert.Equal(t, "secret", pass)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"fr": {"hello": "bonjour"}}`))
	})
	mux.HandleFunc("POST /interface-translations/add", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(pushed))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message": "1 string added"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeConfig(t *testing.T, dir, baseURL string) string {
	t.Helper()
	p := filepath.Join(dir, "i18nsync.toml")
	body := fmt.Sprintf(`
base_url = %q
locales = ["en", "fr"]
store_path = %q

[basic_auth]
username = "editor"
password = "secret"
`, baseURL, filepath.Join(dir, "nodes.db"))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	err := app.Run(append([]string{"i18nsync"}, args...))
	return out.String(), err
}

func TestSourceExportTranslate(t *testing.T) {
	t.Setenv("DRUPAL_I18N_OTEL_ENDPOINT", "")
	dir := t.TempDir()
	cfg := writeConfig(t, dir, fakeDrupal(t, new([]string)).URL)

	_, err := run(t, "--config", cfg, "source")
	require.NoError(t, err)

	out := filepath.Join(dir, "locales")
	_, err = run(t, "--config", cfg, "export", "--out", out)
	require.NoError(t, err)

	fr, err := os.ReadFile(filepath.Join(out, "fr", "translation.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"hello": "bonjour"}`, string(fr))
	en, err := os.ReadFile(filepath.Join(out, "en", "translation.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(en))

	got, err := run(t, "--config", cfg, "translate", "--lang", "fr", "hello")
	require.NoError(t, err)
	assert.Equal(t, "bonjour\n", got)

	got, err = run(t, "--config", cfg, "translate", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", got)
}

func TestPush(t *testing.T) {
	t.Setenv("DRUPAL_I18N_OTEL_ENDPOINT", "")
	dir := t.TempDir()
	var pushed []string
	cfg := writeConfig(t, dir, fakeDrupal(t, &pushed).URL)

	src := filepath.Join(dir, "src", "index.jsx")
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0o755))
	require.NoError(t, os.WriteFile(src, []byte(`const Page = () => <h1>{t("greeting")}</h1>`), 0o644))

	_, err := run(t, "--config", cfg, "push", "--root", dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"greeting"}, pushed)
}

func TestInvalidConfig(t *testing.T) {
	p := filepath.Join(t.TempDir(), "i18nsync.toml")
	require.NoError(t, os.WriteFile(p, []byte(`locales = []`), 0o644))

	_, err := run(t, "--config", p, "source")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_url is required")
}

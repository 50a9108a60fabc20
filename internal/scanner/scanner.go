// Package scanner extracts translatable strings from front-end sources and
// writes them as i18next JSON resources, compatible with i18next-scanner output.
package scanner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	logging "github.com/ipfs/go-log/v2"
	"github.com/samber/lo"
	"golang.org/x/xerrors"
)

var log = logging.Logger("scanner")

// Result reports what a scan found and wrote.
type Result struct {
	Files   []string
	Keys    []Key
	Written []string
}

// Scanner runs scans relative to Root.
type Scanner struct {
	Root string
	Opts Options
}

// New returns a scanner rooted at root, with defaults merged into opts.
func New(root string, opts Options) *Scanner {
	if root == "" {
		root = "."
	}
	return &Scanner{Root: root, Opts: opts.WithDefaults()}
}

// ResourcePath is the file holding primary-language, default-namespace keys.
func (s *Scanner) ResourcePath() string {
	return s.resolve(ResourcePath(s.Opts))
}

// Scan expands the input globs, extracts keys from every matched file in
// path order and writes one resource file per language and namespace.
func (s *Scanner) Scan(ctx context.Context) (Result, error) {
	files, err := s.match()
	if err != nil {
		return Result{}, err
	}

	ext := newExtractor(s.Opts)
	res := Result{Files: files}
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		keys, err := s.scanFile(ext, file)
		if err != nil {
			return Result{}, err
		}
		res.Keys = append(res.Keys, keys...)
	}
	log.Debugf("scanned %d files, found %d keys", len(files), len(res.Keys))

	written, err := s.write(res.Keys)
	if err != nil {
		return Result{}, err
	}
	res.Written = written
	return res, nil
}

func (s *Scanner) match() ([]string, error) {
	fsys := os.DirFS(s.Root)

	var include, exclude []string
	for _, pattern := range s.Opts.Input {
		pattern = strings.TrimSpace(pattern)
		if neg, ok := strings.CutPrefix(pattern, "!"); ok {
			exclude = append(exclude, cleanPattern(neg))
			continue
		}
		include = append(include, cleanPattern(pattern))
	}

	seen := map[string]struct{}{}
	for _, pattern := range include {
		if !doublestar.ValidatePattern(pattern) {
			return nil, xerrors.Errorf("invalid input pattern %q", pattern)
		}
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, xerrors.Errorf("glob %q: %w", pattern, err)
		}
		for _, m := range matches {
			if excluded(m, exclude) {
				continue
			}
			seen[m] = struct{}{}
		}
	}

	files := lo.Keys(seen)
	sort.Strings(files)
	return files, nil
}

func excluded(name string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

func cleanPattern(p string) string {
	p = filepath.ToSlash(p)
	for strings.HasPrefix(p, "./") {
		p = strings.TrimPrefix(p, "./")
	}
	return p
}

func (s *Scanner) scanFile(ext *extractor, file string) ([]Key, error) {
	data, err := os.ReadFile(s.resolve(file))
	if err != nil {
		return nil, xerrors.Errorf("read %s: %w", file, err)
	}
	src := string(data)
	fileExt := strings.ToLower(path.Ext(file))

	var raw []rawKey
	if lo.Contains(s.Opts.Func.Extensions, fileExt) {
		raw = append(raw, ext.funcKeys(src)...)
	}
	if lo.Contains(s.Opts.Trans.Extensions, fileExt) {
		raw = append(raw, ext.transKeys(src)...)
	}
	sort.SliceStable(raw, func(i, j int) bool { return raw[i].offset < raw[j].offset })

	keys := make([]Key, 0, len(raw))
	for _, rk := range raw {
		ns, key := s.splitNamespace(rk.key)
		keys = append(keys, Key{
			Namespace:    ns,
			Key:          key,
			DefaultValue: rk.defaultValue,
			File:         file,
			Line:         lineAt(src, rk.offset),
		})
	}
	return keys, nil
}

func (s *Scanner) splitNamespace(key string) (string, string) {
	if sep := s.Opts.NsSeparator; sep != "" {
		if ns, k, ok := strings.Cut(key, sep); ok && ns != "" && k != "" {
			return ns, k
		}
	}
	return s.Opts.DefaultNs, key
}

// write merges keys into the existing resources of every (lng, ns) pair and
// saves them. Existing values are never overwritten.
func (s *Scanner) write(keys []Key) ([]string, error) {
	namespaces := append([]string(nil), s.Opts.Ns...)
	for _, k := range keys {
		if !lo.Contains(namespaces, k.Namespace) {
			namespaces = append(namespaces, k.Namespace)
		}
	}

	var written []string
	for i, lng := range s.Opts.Lngs {
		for _, ns := range namespaces {
			resources, err := s.load(lng, ns)
			if err != nil {
				return nil, err
			}
			for _, k := range keys {
				if k.Namespace != ns {
					continue
				}
				value := s.Opts.DefaultValue
				if i == 0 && k.DefaultValue != "" {
					value = k.DefaultValue
				}
				if err := setKey(resources, k.Key, s.Opts.KeySeparator, value); err != nil {
					log.Warnf("%s:%d: %s", k.File, k.Line, err)
				}
			}

			out := s.resolve(filepath.Join(s.Opts.Output, expandPath(s.Opts.Resource.SavePath, lng, ns)))
			if err := writeJSON(out, resources, s.Opts.Resource.JSONIndent); err != nil {
				return nil, err
			}
			written = append(written, out)
		}
	}
	return written, nil
}

func (s *Scanner) load(lng, ns string) (map[string]any, error) {
	p := s.resolve(filepath.Join(s.Opts.Output, expandPath(s.Opts.Resource.LoadPath, lng, ns)))
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, xerrors.Errorf("read resource %s: %w", p, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}, nil
	}
	resources := map[string]any{}
	if err := json.Unmarshal(data, &resources); err != nil {
		log.Warnf("ignoring unparsable resource %s: %s", p, err)
		return map[string]any{}, nil
	}
	return resources, nil
}

// setKey stores value under key unless already present. With a separator
// the key is split into nested objects.
func setKey(resources map[string]any, key, sep, value string) error {
	parts := []string{key}
	if sep != "" {
		parts = strings.Split(key, sep)
	}
	node := resources
	for i, part := range parts {
		last := i == len(parts)-1
		existing, ok := node[part]
		if last {
			if ok {
				if _, isObj := existing.(map[string]any); isObj {
					return xerrors.Errorf("key %q conflicts with a nested object", key)
				}
				return nil
			}
			node[part] = value
			return nil
		}
		if !ok {
			child := map[string]any{}
			node[part] = child
			node = child
			continue
		}
		child, isObj := existing.(map[string]any)
		if !isObj {
			return xerrors.Errorf("key %q conflicts with an existing value at %q", key, part)
		}
		node = child
	}
	return nil
}

func writeJSON(p string, v any, indent int) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return xerrors.Errorf("make resource dir: %w", err)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", strings.Repeat(" ", indent))
	if err := enc.Encode(v); err != nil {
		return xerrors.Errorf("encode resource %s: %w", p, err)
	}
	if err := os.WriteFile(p, buf.Bytes(), 0o644); err != nil {
		return xerrors.Errorf("write resource %s: %w", p, err)
	}
	return nil
}

func (s *Scanner) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.Root, p)
}

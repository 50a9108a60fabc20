package scanner

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Key is one translatable string found in a source file.
type Key struct {
	Namespace    string
	Key          string
	DefaultValue string
	File         string
	Line         int
}

type extractor struct {
	funcRe  *regexp.Regexp
	transRe *regexp.Regexp
	i18nKey string
}

func newExtractor(o Options) *extractor {
	names := append([]string(nil), o.Func.List...)
	// longest first so "i18n.t" wins over "t" at the same offset
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })
	quoted := make([]string, 0, len(names))
	for _, name := range names {
		quoted = append(quoted, regexp.QuoteMeta(name))
	}

	e := &extractor{}
	if len(quoted) > 0 {
		// same boundary as i18next-scanner, so $t( matches
		e.funcRe = regexp.MustCompile(`(?:^|[^A-Za-z0-9_])(?:` + strings.Join(quoted, "|") + `)\s*\(`)
	}
	if o.Trans.Component != "" && o.Trans.I18nKey != "" {
		e.transRe = regexp.MustCompile(`<` + regexp.QuoteMeta(o.Trans.Component) + `\b`)
		e.i18nKey = o.Trans.I18nKey
	}
	return e
}

// funcKeys finds calls to the configured functions whose first argument is a
// string literal. A second string literal argument is the default value.
func (e *extractor) funcKeys(src string) []rawKey {
	if e.funcRe == nil {
		return nil
	}
	var out []rawKey
	for _, loc := range e.funcRe.FindAllStringIndex(src, -1) {
		key, end, ok := parseLiteral(src, loc[1])
		if !ok || key == "" {
			continue
		}
		rk := rawKey{key: key, offset: loc[1]}
		if rest := skipSpace(src, end); rest < len(src) && src[rest] == ',' {
			if def, _, ok := parseLiteral(src, rest+1); ok {
				rk.defaultValue = def
			}
		}
		out = append(out, rk)
	}
	return out
}

// transKeys finds i18nKey attributes on the configured Trans component.
func (e *extractor) transKeys(src string) []rawKey {
	if e.transRe == nil {
		return nil
	}
	var out []rawKey
	for _, loc := range e.transRe.FindAllStringIndex(src, -1) {
		if key, ok := e.attrValue(src, loc[1]); ok && key != "" {
			out = append(out, rawKey{key: key, offset: loc[0]})
		}
	}
	return out
}

// attrValue walks an opening tag from pos to its closing '>' and returns the
// literal value of the i18nKey attribute. Braces and quotes are tracked so
// JSX inside other attribute expressions does not end the tag early.
func (e *extractor) attrValue(src string, pos int) (string, bool) {
	depth := 0
	for i := pos; i < len(src); {
		c := src[i]
		switch {
		case c == '"' || c == '\'' || c == '`':
			i = skipQuoted(src, i)
		case c == '{':
			depth++
			i++
		case c == '}':
			depth--
			i++
		case c == '>' && depth <= 0:
			return "", false
		case depth == 0 && e.attrStart(src, i):
			j := skipSpace(src, i+len(e.i18nKey))
			if j >= len(src) || src[j] != '=' {
				i += len(e.i18nKey)
				continue
			}
			return attrLiteral(src, skipSpace(src, j+1))
		default:
			i++
		}
	}
	return "", false
}

func (e *extractor) attrStart(src string, i int) bool {
	if !strings.HasPrefix(src[i:], e.i18nKey) || i == 0 || !isSpace(src[i-1]) {
		return false
	}
	end := i + len(e.i18nKey)
	return end >= len(src) || !isIdentByte(src[end])
}

// attrLiteral reads "key", 'key' or {"key"} at pos. JSX attribute strings
// are taken verbatim; expression containers hold a JS literal.
func attrLiteral(src string, pos int) (string, bool) {
	if pos >= len(src) {
		return "", false
	}
	switch q := src[pos]; q {
	case '"', '\'':
		end := strings.IndexByte(src[pos+1:], q)
		if end < 0 {
			return "", false
		}
		return src[pos+1 : pos+1+end], true
	case '{':
		key, end, ok := parseLiteral(src, pos+1)
		if !ok {
			return "", false
		}
		if end = skipSpace(src, end); end >= len(src) || src[end] != '}' {
			return "", false
		}
		return key, true
	}
	return "", false
}

// skipQuoted returns the index just past the string starting at src[i].
func skipQuoted(src string, i int) int {
	quote := src[i]
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case quote:
			return j + 1
		}
	}
	return len(src)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '-' || c == '$' ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

type rawKey struct {
	key          string
	defaultValue string
	offset       int
}

// parseLiteral reads a JS string literal starting at or after pos. Template
// literals are accepted only without interpolation.
func parseLiteral(src string, pos int) (string, int, bool) {
	pos = skipSpace(src, pos)
	if pos >= len(src) {
		return "", pos, false
	}
	quote := src[pos]
	if quote != '"' && quote != '\'' && quote != '`' {
		return "", pos, false
	}

	var b strings.Builder
	for i := pos + 1; i < len(src); {
		c := src[i]
		switch {
		case c == quote:
			return b.String(), i + 1, true
		case c == '\\':
			if i+1 >= len(src) {
				return "", i, false
			}
			n := unescape(src, i+1, &b)
			if n == 0 {
				return "", i, false
			}
			i += 1 + n
		case c == '\n' && quote != '`':
			return "", i, false
		case c == '$' && quote == '`' && i+1 < len(src) && src[i+1] == '{':
			return "", i, false
		default:
			r, size := utf8.DecodeRuneInString(src[i:])
			b.WriteRune(r)
			i += size
		}
	}
	return "", len(src), false
}

// unescape writes the escape sequence starting at src[i] (just past the
// backslash) and returns how many bytes it consumed.
func unescape(src string, i int, b *strings.Builder) int {
	switch c := src[i]; c {
	case 'n':
		b.WriteByte('\n')
	case 't':
		b.WriteByte('\t')
	case 'r':
		b.WriteByte('\r')
	case 'b':
		b.WriteByte('\b')
	case 'f':
		b.WriteByte('\f')
	case 'v':
		b.WriteByte('\v')
	case '0':
		b.WriteByte(0)
	case '\n':
		// line continuation
	case 'u':
		if i+1 < len(src) && src[i+1] == '{' {
			end := strings.IndexByte(src[i+2:], '}')
			if end < 1 || end > 6 {
				return 0
			}
			v, err := strconv.ParseUint(src[i+2:i+2+end], 16, 32)
			if err != nil || v > utf8.MaxRune {
				return 0
			}
			b.WriteRune(rune(v))
			return end + 3
		}
		if i+5 <= len(src) {
			if v, err := strconv.ParseUint(src[i+1:i+5], 16, 32); err == nil {
				b.WriteRune(rune(v))
				return 5
			}
		}
		return 0
	case 'x':
		if i+3 <= len(src) {
			if v, err := strconv.ParseUint(src[i+1:i+3], 16, 8); err == nil {
				b.WriteRune(rune(v))
				return 3
			}
		}
		return 0
	default:
		r, size := utf8.DecodeRuneInString(src[i:])
		b.WriteRune(r)
		return size
	}
	return 1
}

func skipSpace(src string, pos int) int {
	for pos < len(src) {
		switch src[pos] {
		case ' ', '\t', '\n', '\r':
			pos++
		default:
			return pos
		}
	}
	return pos
}

func lineAt(src string, offset int) int {
	return strings.Count(src[:offset], "\n") + 1
}

// Package alias generates the table and column aliases of one compilation.
//
// A Namespace is created per top-level compilation and must not be shared
// between concurrent compilations. Aliases are deterministic for a given
// sequence of Generate calls and never repeat within a kind.
package alias

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Kind separates alias sequences. Table and column aliases live in distinct
// SQL scopes, so they are allocated independently.
type Kind string

// Alias kinds.
const (
	Table  Kind = "table"
	Column Kind = "column"
)

// reserved holds short SQL keywords a minified alias must not collide with.
var reserved = map[string]struct{}{
	"as": {}, "at": {}, "by": {}, "do": {}, "go": {}, "if": {}, "in": {}, "is": {},
	"no": {}, "of": {}, "on": {}, "or": {}, "to": {},
	"add": {}, "all": {}, "and": {}, "any": {}, "asc": {}, "end": {}, "for": {},
	"key": {}, "not": {}, "row": {}, "set": {}, "top": {}, "use": {},
}

// Namespace allocates collision-free identifiers.
type Namespace struct {
	minify bool
	maxLen int
	used   map[Kind]map[string]struct{}
	seq    map[Kind]int
}

// New returns a Namespace. When minify is set, aliases are short mnemonic
// identifiers; otherwise they are derived from the base name. maxLen bounds
// the alias length; zero means unbounded.
func New(minify bool, maxLen int) *Namespace {
	return &Namespace{
		minify: minify,
		maxLen: maxLen,
		used:   make(map[Kind]map[string]struct{}),
		seq:    make(map[Kind]int),
	}
}

// Minify reports whether the namespace produces shortened aliases.
func (n *Namespace) Minify() bool {
	return n.minify
}

// Generate returns a fresh alias of the given kind for base.
func (n *Namespace) Generate(kind Kind, base string) string {
	used, ok := n.used[kind]
	if !ok {
		used = make(map[string]struct{})
		n.used[kind] = used
	}
	var alias string
	if n.minify {
		alias = n.nextMnemonic(kind, used)
	} else {
		alias = n.derive(Sanitize(base), used)
	}
	used[alias] = struct{}{}
	return alias
}

func (n *Namespace) nextMnemonic(kind Kind, used map[string]struct{}) string {
	for {
		cand := mnemonic(n.seq[kind])
		n.seq[kind]++
		if _, ok := reserved[cand]; ok {
			continue
		}
		if _, ok := used[cand]; !ok {
			return cand
		}
	}
}

func (n *Namespace) derive(base string, used map[string]struct{}) string {
	cand := n.truncate(base, 0)
	for i := 1; ; i++ {
		if _, ok := used[cand]; !ok {
			return cand
		}
		suffix := "_" + strconv.Itoa(i)
		cand = n.truncate(base, len(suffix)) + suffix
	}
}

func (n *Namespace) truncate(s string, reserve int) string {
	if n.maxLen <= 0 {
		return s
	}
	limit := n.maxLen - reserve
	if limit < 1 {
		limit = 1
	}
	if len(s) > limit {
		return s[:limit]
	}
	return s
}

// mnemonic maps 0, 1, ... 25, 26 ... to a, b, ... z, aa ...
func mnemonic(i int) string {
	var b []byte
	for i++; i > 0; i /= 26 {
		i--
		b = append(b, byte('a'+i%26))
	}
	for l, r := 0, len(b)-1; l < r; l, r = l+1, r-1 {
		b[l], b[r] = b[r], b[l]
	}
	return string(b)
}

// Sanitize turns an arbitrary base name into a plain SQL identifier:
// accents are dropped, anything outside [A-Za-z0-9_] becomes '_' and a
// leading digit is prefixed with '_'.
func Sanitize(base string) string {
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if s, _, err := transform.String(stripMarks, base); err == nil {
		base = s
	}
	var b strings.Builder
	b.Grow(len(base) + 1)
	for i, r := range base {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || r == '_'):
			b.WriteRune(r)
		case r < unicode.MaxASCII && unicode.IsDigit(r):
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

package interp

import (
	"strconv"
	"strings"
)

type Match string

const (
	MatchContains Match = "contains"
	MatchIs       Match = "is"
	MatchMatches  Match = "matches"
	MatchValue    Match = "value"
	MatchCount    Match = "count"
	MatchRegex    Match = "regex"
)

const (
	ComparatorOctet        = "i;octet"
	ComparatorASCIICaseMap = "i;ascii-casemap"
	ComparatorASCIINumeric = "i;ascii-numeric"

	DefaultComparator = ComparatorASCIICaseMap
)

// Comparator implements the equality, substring, wildcard and ordering
// functions of an RFC 4790 collation.
type Comparator interface {
	Name() string
	Supports(m Match) bool
	Equals(value, key string) bool
	Contains(value, key string) bool
	// Matches reports whether value matches the wildcard pattern. "*"
	// matches any run of characters, "?" a single one and "\" escapes the
	// next character.
	Matches(value, pattern string) bool
	// Compare orders value relative to key: negative, zero or positive.
	Compare(value, key string) int
}

var comparators = []struct {
	comparator Comparator
	implicit   bool
}{
	{octetComparator{}, true},
	{asciiCaseMapComparator{}, true},
	{asciiNumericComparator{}, false},
}

type octetComparator struct{}

func (octetComparator) Name() string        { return ComparatorOctet }
func (octetComparator) Supports(Match) bool { return true }

func (octetComparator) Equals(v, k string) bool {
	return v == k
}

func (octetComparator) Contains(v, k string) bool {
	return strings.Contains(v, k)
}

func (octetComparator) Matches(v, pattern string) bool {
	return globMatch([]byte(pattern), []byte(v), func(a, b byte) bool { return a == b })
}

func (octetComparator) Compare(v, k string) int {
	return strings.Compare(v, k)
}

type asciiCaseMapComparator struct{}

func (asciiCaseMapComparator) Name() string        { return ComparatorASCIICaseMap }
func (asciiCaseMapComparator) Supports(Match) bool { return true }

func (asciiCaseMapComparator) Equals(v, k string) bool {
	return toLowerASCII(v) == toLowerASCII(k)
}

func (asciiCaseMapComparator) Contains(v, k string) bool {
	return strings.Contains(toLowerASCII(v), toLowerASCII(k))
}

func (asciiCaseMapComparator) Matches(v, pattern string) bool {
	return globMatch([]rune(pattern), []rune(v), func(a, b rune) bool {
		return lowerASCII(a) == lowerASCII(b)
	})
}

func (asciiCaseMapComparator) Compare(v, k string) int {
	return strings.Compare(toLowerASCII(v), toLowerASCII(k))
}

type asciiNumericComparator struct{}

func (asciiNumericComparator) Name() string { return ComparatorASCIINumeric }

// Supports reports false for substring, wildcard and regex matching, which
// RFC 4790 does not define for i;ascii-numeric.
func (asciiNumericComparator) Supports(m Match) bool {
	switch m {
	case MatchIs, MatchValue, MatchCount:
		return true
	}
	return false
}

func (c asciiNumericComparator) Equals(v, k string) bool {
	return c.Compare(v, k) == 0
}

func (asciiNumericComparator) Contains(string, string) bool { return false }
func (asciiNumericComparator) Matches(string, string) bool  { return false }

// Compare treats strings not starting with a digit as positive infinity.
func (asciiNumericComparator) Compare(v, k string) int {
	lhs, rhs := numericValue(v), numericValue(k)
	switch {
	case lhs == nil && rhs == nil:
		return 0
	case lhs == nil:
		return 1
	case rhs == nil:
		return -1
	case *lhs < *rhs:
		return -1
	case *lhs > *rhs:
		return 1
	}
	return 0
}

func numericValue(s string) *uint64 {
	// https://www.rfc-editor.org/rfc/rfc4790.html#section-9.1

	end := 0
	for end < len(s) && '0' <= s[end] && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return nil
	}
	digit, err := strconv.ParseUint(s[:end], 10, 64)
	if err != nil {
		return nil
	}
	return &digit
}

func lowerASCII(r rune) rune {
	if 'A' <= r && r <= 'Z' {
		return r + 'a' - 'A'
	}
	return r
}

func toLowerASCII(s string) string {
	hasUpper := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		hasUpper = hasUpper || ('A' <= c && c <= 'Z')
	}
	if !hasUpper {
		return s
	}
	var (
		b   strings.Builder
		pos int
	)
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
			if pos < i {
				b.WriteString(s[pos:i])
			}
			b.WriteByte(c)
			pos = i + 1
		}
	}
	if pos < len(s) {
		b.WriteString(s[pos:])
	}
	return b.String()
}

type globKind int

const (
	globLiteral globKind = iota
	globOne
	globAny
)

type globElem[T byte | rune] struct {
	kind globKind
	c    T
}

func compileGlob[T byte | rune](pattern []T) []globElem[T] {
	elems := make([]globElem[T], 0, len(pattern))
	for i := 0; i < len(pattern); i++ {
		switch c := pattern[i]; c {
		case '*':
			if n := len(elems); n != 0 && elems[n-1].kind == globAny {
				continue
			}
			elems = append(elems, globElem[T]{kind: globAny})
		case '?':
			elems = append(elems, globElem[T]{kind: globOne})
		case '\\':
			// A trailing backslash matches itself.
			if i+1 < len(pattern) {
				i++
			}
			elems = append(elems, globElem[T]{kind: globLiteral, c: pattern[i]})
		default:
			// "[" has no special meaning.
			elems = append(elems, globElem[T]{kind: globLiteral, c: c})
		}
	}
	return elems
}

// globMatch matches value against a wildcard pattern, backtracking to the
// last "*" on mismatch.
func globMatch[T byte | rune](pattern, value []T, eq func(a, b T) bool) bool {
	elems := compileGlob(pattern)

	p, v := 0, 0
	star, starV := -1, 0
	for v < len(value) {
		if p < len(elems) {
			switch e := elems[p]; e.kind {
			case globAny:
				star, starV = p, v
				p++
				continue
			case globOne:
				p++
				v++
				continue
			case globLiteral:
				if eq(e.c, value[v]) {
					p++
					v++
					continue
				}
			}
		}
		if star == -1 {
			return false
		}
		p = star + 1
		starV++
		v = starV
	}
	for p < len(elems) && elems[p].kind == globAny {
		p++
	}
	return p == len(elems)
}

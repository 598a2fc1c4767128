package interp

import (
	"strconv"
	"strings"

	"github.com/sieveworks/go-sieve/parser"
)

// Relational is a relational operator of RFC 5231.
type Relational string

const (
	RelGreaterThan    Relational = "gt"
	RelGreaterOrEqual Relational = "ge"
	RelLessThan       Relational = "lt"
	RelLessOrEqual    Relational = "le"
	RelEqual          Relational = "eq"
	RelNotEqual       Relational = "ne"
)

func (r Relational) valid() bool {
	switch r {
	case RelGreaterThan, RelGreaterOrEqual, RelLessThan, RelLessOrEqual, RelEqual, RelNotEqual:
		return true
	}
	return false
}

// holds reports whether the operator is satisfied by the result of a
// comparison of value against key.
func (r Relational) holds(cmp int) bool {
	switch r {
	case RelGreaterThan:
		return cmp > 0
	case RelGreaterOrEqual:
		return cmp >= 0
	case RelLessThan:
		return cmp < 0
	case RelLessOrEqual:
		return cmp <= 0
	case RelEqual:
		return cmp == 0
	case RelNotEqual:
		return cmp != 0
	}
	return false
}

// matcherTest is the common part of tests that compare strings against a
// key list using a match type and a comparator.
type matcherTest struct {
	comparator     Comparator
	comparatorName string
	match          Match
	matchCnt       int
	relational     Relational
	key            []string
	keyRegex       []*SafeRegexMatcher
}

func newMatcherTest() matcherTest {
	return matcherTest{
		comparatorName: DefaultComparator,
		match:          MatchIs,
	}
}

func (t *matcherTest) setMatch(m Match) {
	t.match = m
	t.matchCnt++
}

func (t *matcherTest) addSpecTags(s *Spec) *Spec {
	if s.Tags == nil {
		s.Tags = make(map[string]SpecTag, 7)
	}
	s.Tags["comparator"] = SpecTag{
		NeedsValue:  true,
		MinStrCount: 1,
		MaxStrCount: 1,
		MatchStr: func(val []string) {
			t.comparatorName = val[0]
		},
	}
	s.Tags["is"] = SpecTag{
		MatchBool: func() { t.setMatch(MatchIs) },
	}
	s.Tags["contains"] = SpecTag{
		MatchBool: func() { t.setMatch(MatchContains) },
	}
	s.Tags["matches"] = SpecTag{
		MatchBool: func() { t.setMatch(MatchMatches) },
	}
	s.Tags["regex"] = SpecTag{
		MatchBool: func() { t.setMatch(MatchRegex) },
	}
	s.Tags["value"] = SpecTag{
		NeedsValue:  true,
		MinStrCount: 1,
		MaxStrCount: 1,
		MatchStr: func(val []string) {
			t.setMatch(MatchValue)
			t.relational = Relational(strings.ToLower(val[0]))
		},
	}
	s.Tags["count"] = SpecTag{
		NeedsValue:  true,
		MinStrCount: 1,
		MaxStrCount: 1,
		MatchStr: func(val []string) {
			t.setMatch(MatchCount)
			t.relational = Relational(strings.ToLower(val[0]))
		},
	}
	return s
}

// setKey finishes loading: it resolves the comparator, checks that the
// extensions used by the tags were required and compiles regexes.
func (t *matcherTest) setKey(s *Script, coord parser.Coordinate, k []string) error {
	t.key = k

	if t.matchCnt > 1 {
		return syntaxErrorf(coord, "multiple match types are not allowed")
	}

	entry, err := s.reg.Comparators.Lookup(t.comparatorName)
	if err != nil {
		return &LookupError{Kind: "comparator", Name: t.comparatorName, Coord: coord}
	}
	if !entry.Implicit {
		if err := s.requireExtension(entry.Extension, coord); err != nil {
			return err
		}
	}
	t.comparator = entry.Impl

	switch t.match {
	case MatchValue, MatchCount:
		if err := s.requireExtension("relational", coord); err != nil {
			return err
		}
		if !t.relational.valid() {
			return syntaxErrorf(coord, "invalid relational operator %q", t.relational)
		}
	case MatchRegex:
		if err := s.requireExtension("regex", coord); err != nil {
			return err
		}
	}

	if !t.comparator.Supports(t.match) {
		return syntaxErrorf(coord, "comparator %s does not support :%s", t.comparator.Name(), t.match)
	}

	if t.match == MatchRegex {
		caseFold := t.comparator.Name() == ComparatorASCIICaseMap
		t.keyRegex = make([]*SafeRegexMatcher, 0, len(k))
		for _, pattern := range k {
			re, err := CompileSafeRegex(pattern, caseFold, s.opts.regexLimits())
			if err != nil {
				return syntaxErrorf(coord, "%v", err)
			}
			t.keyRegex = append(t.keyRegex, re)
		}
	}
	return nil
}

func (t matcherTest) isCount() bool {
	return t.match == MatchCount
}

// tryMatch reports whether value matches any of the keys.
func (t matcherTest) tryMatch(value string) bool {
	if t.match == MatchRegex {
		for _, re := range t.keyRegex {
			if re.Match(value) {
				return true
			}
		}
		return false
	}

	for _, key := range t.key {
		var ok bool
		switch t.match {
		case MatchIs:
			ok = t.comparator.Equals(value, key)
		case MatchContains:
			ok = t.comparator.Contains(value, key)
		case MatchMatches:
			ok = t.comparator.Matches(value, key)
		case MatchValue:
			ok = t.relational.holds(t.comparator.Compare(value, key))
		}
		if ok {
			return true
		}
	}
	return false
}

// countMatches compares the number of values against the keys using the
// :count relational operator.
func (t matcherTest) countMatches(count uint64) bool {
	value := strconv.FormatUint(count, 10)
	for _, key := range t.key {
		if t.relational.holds(t.comparator.Compare(value, key)) {
			return true
		}
	}
	return false
}

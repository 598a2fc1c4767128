package interp

import (
	"strings"

	"github.com/sieveworks/go-sieve/parser"
)

// SpecTag describes a tagged argument (":name") accepted by a command or
// test.
type SpecTag struct {
	// NeedsValue means the tag is followed by a string, string list or
	// number argument.
	NeedsValue  bool
	MinStrCount int
	MaxStrCount int // zero means unlimited

	MatchStr  func(val []string)
	MatchNum  func(val int64)
	MatchBool func()
}

// SpecPosArg describes a positional argument.
type SpecPosArg struct {
	Optional    bool
	MinStrCount int
	MaxStrCount int // zero means unlimited

	MatchStr func(val []string)
	MatchNum func(val int64)
}

// Spec is the argument layout of a command or test. LoadSpec binds parsed
// arguments to it.
type Spec struct {
	Tags map[string]SpecTag
	Pos  []SpecPosArg

	// AddTest is called for the test (or each test of a test list) given to
	// the command. If nil, tests are not accepted.
	AddTest func(Test)
	// MultipleTests means a parenthesized test list is expected instead of
	// a single test.
	MultipleTests bool

	// AddBlock receives the loaded block. If nil, a block is not accepted.
	AddBlock func(Block)
}

func stringArg(arg parser.Arg) ([]string, bool) {
	switch a := arg.(type) {
	case parser.StringArg:
		return []string{a.Value}, true
	case parser.StringListArg:
		return a.Values, true
	}
	return nil, false
}

func checkStrCount(coord parser.Coordinate, what string, val []string, min, max int) error {
	if len(val) < min {
		return syntaxErrorf(coord, "%s: at least %d strings required, got %d", what, min, len(val))
	}
	if max != 0 && len(val) > max {
		if max == 1 {
			return syntaxErrorf(coord, "%s: single string required, got string list", what)
		}
		return syntaxErrorf(coord, "%s: at most %d strings allowed, got %d", what, max, len(val))
	}
	return nil
}

func matchValue(coord parser.Coordinate, what string, arg parser.Arg, minStr, maxStr int, matchStr func([]string), matchNum func(int64)) error {
	if num, ok := arg.(parser.NumberArg); ok {
		if matchNum == nil {
			return syntaxErrorf(coord, "%s: unexpected number", what)
		}
		matchNum(num.Value)
		return nil
	}
	if val, ok := stringArg(arg); ok {
		if matchStr == nil {
			return syntaxErrorf(coord, "%s: number required, got string", what)
		}
		if err := checkStrCount(coord, what, val, minStr, maxStr); err != nil {
			return err
		}
		matchStr(val)
		return nil
	}
	return syntaxErrorf(coord, "%s: unexpected tagged argument", what)
}

// LoadSpec binds the arguments, tests and block of a command or test to spec.
// Tagged arguments must come before positional ones.
func LoadSpec(s *Script, spec *Spec, coord parser.Coordinate, args *parser.Arguments, block *parser.Block) error {
	if args == nil {
		args = &parser.Arguments{}
	}

	seen := make(map[string]struct{})
	i := 0
	for ; i < len(args.Args); i++ {
		tag, ok := args.Args[i].(parser.TagArg)
		if !ok {
			break
		}
		name := strings.ToLower(tag.Name)
		tagSpec, ok := spec.Tags[name]
		if !ok {
			return syntaxErrorf(tag.Coord, "unknown tagged argument :%s", tag.Name)
		}
		if _, dup := seen[name]; dup {
			return syntaxErrorf(tag.Coord, "duplicate tagged argument :%s", tag.Name)
		}
		seen[name] = struct{}{}

		if !tagSpec.NeedsValue {
			if tagSpec.MatchBool != nil {
				tagSpec.MatchBool()
			}
			continue
		}

		i++
		if i >= len(args.Args) {
			return syntaxErrorf(tag.Coord, "tagged argument :%s requires a value", tag.Name)
		}
		err := matchValue(args.Args[i].Coordinate(), ":"+name, args.Args[i],
			tagSpec.MinStrCount, tagSpec.MaxStrCount, tagSpec.MatchStr, tagSpec.MatchNum)
		if err != nil {
			return err
		}
	}

	pos := args.Args[i:]
	if len(pos) > len(spec.Pos) {
		return syntaxErrorf(pos[len(spec.Pos)].Coordinate(), "too many arguments")
	}
	for j, posSpec := range spec.Pos {
		if j >= len(pos) {
			if posSpec.Optional {
				continue
			}
			return syntaxErrorf(coord, "too few arguments: %d required, got %d", requiredPos(spec.Pos), len(pos))
		}
		arg := pos[j]
		if tag, ok := arg.(parser.TagArg); ok {
			return syntaxErrorf(tag.Coord, "tagged argument :%s after positional arguments", tag.Name)
		}
		err := matchValue(arg.Coordinate(), "argument", arg,
			posSpec.MinStrCount, posSpec.MaxStrCount, posSpec.MatchStr, posSpec.MatchNum)
		if err != nil {
			return err
		}
	}

	if err := loadSpecTests(s, spec, coord, args.Tests); err != nil {
		return err
	}

	if block != nil {
		if spec.AddBlock == nil {
			return syntaxErrorf(block.Coord, "unexpected block")
		}
		loaded, err := s.loadBlock(block, false)
		if err != nil {
			return err
		}
		spec.AddBlock(loaded)
	} else if spec.AddBlock != nil {
		return syntaxErrorf(coord, "block required")
	}

	return nil
}

func requiredPos(pos []SpecPosArg) int {
	n := 0
	for _, p := range pos {
		if !p.Optional {
			n++
		}
	}
	return n
}

func loadSpecTests(s *Script, spec *Spec, coord parser.Coordinate, list *parser.TestList) error {
	if list == nil {
		if spec.AddTest != nil {
			return syntaxErrorf(coord, "test required")
		}
		return nil
	}
	if spec.AddTest == nil {
		return syntaxErrorf(list.Coord, "unexpected test")
	}
	if spec.MultipleTests && !list.Parenthesized {
		return syntaxErrorf(list.Coord, "test list required")
	}
	if !spec.MultipleTests && (list.Parenthesized || len(list.Tests) != 1) {
		return syntaxErrorf(list.Coord, "single test required, got test list")
	}

	for _, t := range list.Tests {
		loaded, err := s.loadTest(t)
		if err != nil {
			return err
		}
		spec.AddTest(loaded)
	}
	return nil
}

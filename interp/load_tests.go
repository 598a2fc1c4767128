package interp

import (
	"strings"

	"github.com/sieveworks/go-sieve/parser"
)

// addressPartTags adds the address-part tags shared by the address and
// envelope tests.
func addressPartTags(spec *Spec, part *AddressPart, count *int, subaddress *bool) *Spec {
	set := func(p AddressPart) func() {
		return func() {
			*part = p
			*count++
			if p == User || p == Detail {
				*subaddress = true
			}
		}
	}
	if spec.Tags == nil {
		spec.Tags = make(map[string]SpecTag, 5)
	}
	spec.Tags["all"] = SpecTag{MatchBool: set(All)}
	spec.Tags["localpart"] = SpecTag{MatchBool: set(LocalPart)}
	spec.Tags["domain"] = SpecTag{MatchBool: set(Domain)}
	// RFC 5233 subaddress extension
	spec.Tags["user"] = SpecTag{MatchBool: set(User)}
	spec.Tags["detail"] = SpecTag{MatchBool: set(Detail)}
	return spec
}

func checkAddressPart(s *Script, coord parser.Coordinate, count int, subaddress bool) error {
	if count > 1 {
		return syntaxErrorf(coord, "multiple address-parts are not allowed")
	}
	if subaddress {
		return s.requireExtension("subaddress", coord)
	}
	return nil
}

func loadAddressTest(s *Script, test *parser.Test) (Test, error) {
	loaded := AddressTest{
		matcherTest: newMatcherTest(),
		AddressPart: All,
	}
	var (
		key        []string
		partCount  int
		subaddress bool
	)
	spec := addressPartTags(&Spec{
		Pos: []SpecPosArg{
			{
				MatchStr: func(val []string) {
					loaded.Header = val
				},
				MinStrCount: 1,
			},
			{
				MatchStr: func(val []string) {
					key = val
				},
				MinStrCount: 1,
			},
		},
	}, &loaded.AddressPart, &partCount, &subaddress)
	err := LoadSpec(s, loaded.addSpecTags(spec), test.Coord, test.Args, nil)
	if err != nil {
		return nil, err
	}

	if err := loaded.setKey(s, test.Coord, key); err != nil {
		return nil, err
	}
	if err := checkAddressPart(s, test.Coord, partCount, subaddress); err != nil {
		return nil, err
	}
	return loaded, nil
}

func loadAllOfTest(s *Script, test *parser.Test) (Test, error) {
	loaded := AllOfTest{}
	err := LoadSpec(s, &Spec{
		AddTest: func(t Test) {
			loaded.Tests = append(loaded.Tests, t)
		},
		MultipleTests: true,
	}, test.Coord, test.Args, nil)
	return loaded, err
}

func loadAnyOfTest(s *Script, test *parser.Test) (Test, error) {
	loaded := AnyOfTest{}
	err := LoadSpec(s, &Spec{
		AddTest: func(t Test) {
			loaded.Tests = append(loaded.Tests, t)
		},
		MultipleTests: true,
	}, test.Coord, test.Args, nil)
	return loaded, err
}

func loadEnvelopeTest(s *Script, test *parser.Test) (Test, error) {
	loaded := EnvelopeTest{
		matcherTest: newMatcherTest(),
		AddressPart: All,
	}
	var (
		key        []string
		partCount  int
		subaddress bool
	)
	spec := addressPartTags(&Spec{
		Pos: []SpecPosArg{
			{
				MatchStr: func(val []string) {
					loaded.Field = val
				},
				MinStrCount: 1,
			},
			{
				MatchStr: func(val []string) {
					key = val
				},
				MinStrCount: 1,
			},
		},
	}, &loaded.AddressPart, &partCount, &subaddress)
	err := LoadSpec(s, loaded.addSpecTags(spec), test.Coord, test.Args, nil)
	if err != nil {
		return nil, err
	}

	for _, field := range loaded.Field {
		switch strings.ToLower(field) {
		case "from", "to":
		default:
			return nil, syntaxErrorf(test.Coord, "envelope: unsupported envelope-part %q", field)
		}
	}

	if err := loaded.setKey(s, test.Coord, key); err != nil {
		return nil, err
	}
	if err := checkAddressPart(s, test.Coord, partCount, subaddress); err != nil {
		return nil, err
	}
	return loaded, nil
}

func loadExistsTest(s *Script, test *parser.Test) (Test, error) {
	loaded := ExistsTest{}
	err := LoadSpec(s, &Spec{
		Pos: []SpecPosArg{
			{
				MatchStr: func(val []string) {
					loaded.Fields = val
				},
				MinStrCount: 1,
			},
		},
	}, test.Coord, test.Args, nil)
	return loaded, err
}

func loadFalseTest(s *Script, test *parser.Test) (Test, error) {
	loaded := FalseTest{}
	err := LoadSpec(s, &Spec{}, test.Coord, test.Args, nil)
	return loaded, err
}

func loadTrueTest(s *Script, test *parser.Test) (Test, error) {
	loaded := TrueTest{}
	err := LoadSpec(s, &Spec{}, test.Coord, test.Args, nil)
	return loaded, err
}

func loadHeaderTest(s *Script, test *parser.Test) (Test, error) {
	loaded := HeaderTest{matcherTest: newMatcherTest()}
	var key []string
	err := LoadSpec(s, loaded.addSpecTags(&Spec{
		Pos: []SpecPosArg{
			{
				MatchStr: func(val []string) {
					loaded.Header = val
				},
				MinStrCount: 1,
			},
			{
				MatchStr: func(val []string) {
					key = val
				},
				MinStrCount: 1,
			},
		},
	}), test.Coord, test.Args, nil)
	if err != nil {
		return nil, err
	}

	if err := loaded.setKey(s, test.Coord, key); err != nil {
		return nil, err
	}
	return loaded, nil
}

func loadNotTest(s *Script, test *parser.Test) (Test, error) {
	loaded := NotTest{}
	err := LoadSpec(s, &Spec{
		AddTest: func(t Test) {
			loaded.Test = t
		},
	}, test.Coord, test.Args, nil)
	return loaded, err
}

func loadSizeTest(s *Script, test *parser.Test) (Test, error) {
	loaded := SizeTest{}
	err := LoadSpec(s, &Spec{
		Tags: map[string]SpecTag{
			"under": {
				MatchBool: func() { loaded.Under = true },
			},
			"over": {
				MatchBool: func() { loaded.Over = true },
			},
		},
		Pos: []SpecPosArg{
			{
				MatchNum: func(i int64) {
					loaded.Size = i
				},
			},
		},
	}, test.Coord, test.Args, nil)
	if err != nil {
		return nil, err
	}
	if loaded.Under == loaded.Over {
		return nil, syntaxErrorf(test.Coord, "size: exactly one of :under or :over is required")
	}
	return loaded, nil
}

func loadBodyTest(s *Script, test *parser.Test) (Test, error) {
	loaded := BodyTest{
		matcherTest: newMatcherTest(),
		Transform:   BodyText,
	}
	var (
		key        []string
		transforms int
	)
	err := LoadSpec(s, loaded.addSpecTags(&Spec{
		Tags: map[string]SpecTag{
			"raw": {
				MatchBool: func() {
					loaded.Transform = BodyRaw
					transforms++
				},
			},
			"text": {
				MatchBool: func() {
					loaded.Transform = BodyText
					transforms++
				},
			},
			"content": {
				NeedsValue:  true,
				MinStrCount: 1,
				MatchStr: func(val []string) {
					loaded.Transform = BodyContent
					loaded.ContentTypes = val
					transforms++
				},
			},
		},
		Pos: []SpecPosArg{
			{
				MatchStr: func(val []string) {
					key = val
				},
				MinStrCount: 1,
			},
		},
	}), test.Coord, test.Args, nil)
	if err != nil {
		return nil, err
	}
	if transforms > 1 {
		return nil, syntaxErrorf(test.Coord, "body: multiple transforms are not allowed")
	}

	if err := loaded.setKey(s, test.Coord, key); err != nil {
		return nil, err
	}
	if loaded.isCount() {
		return nil, syntaxErrorf(test.Coord, "body: :count is not allowed")
	}
	return loaded, nil
}

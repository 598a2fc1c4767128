package interp

import (
	"fmt"
	"slices"
	"strings"
)

// Entry is a single registered implementation.
type Entry[T any] struct {
	Name string
	// Extension is the capability string scripts must require before using
	// the entry. Empty for commands and tests every implementation supports.
	Extension string
	// Implicit entries are usable without require even though they have an
	// extension name (e.g. comparator-i;octet).
	Implicit bool
	Impl     T
}

// Registry maps names to implementations. Names are case-insensitive.
//
// A Registry is filled once during construction and only read afterwards, so
// it can be shared by concurrent evaluations without locking.
type Registry[T any] struct {
	kind    string
	entries map[string]Entry[T]
}

func newRegistry[T any](kind string) *Registry[T] {
	return &Registry[T]{kind: kind, entries: make(map[string]Entry[T])}
}

// Register adds or replaces an entry. It must not be called once the
// registry is in use by scripts.
func (r *Registry[T]) Register(e Entry[T]) {
	e.Name = strings.ToLower(e.Name)
	e.Extension = strings.ToLower(e.Extension)
	r.entries[e.Name] = e
}

func (r *Registry[T]) remove(name string) {
	delete(r.entries, name)
}

func (r *Registry[T]) Lookup(name string) (Entry[T], error) {
	e, ok := r.entries[strings.ToLower(name)]
	if !ok {
		return Entry[T]{}, &LookupError{Kind: r.kind, Name: name}
	}
	return e, nil
}

func (r *Registry[T]) IsSupported(name string) bool {
	_, ok := r.entries[strings.ToLower(name)]
	return ok
}

// Extensions returns the sorted extension names that must be declared with
// require before use.
func (r *Registry[T]) Extensions() []string {
	var exts []string
	for _, e := range r.entries {
		if e.Extension == "" || e.Implicit {
			continue
		}
		if !slices.Contains(exts, e.Extension) {
			exts = append(exts, e.Extension)
		}
	}
	slices.Sort(exts)
	return exts
}

func (r *Registry[T]) features(into map[string]struct{}) {
	for _, e := range r.entries {
		if e.Extension != "" {
			into[e.Extension] = struct{}{}
		}
	}
}

// Registries is the set of commands, tests and comparators available to
// scripts.
type Registries struct {
	Commands    *Registry[CmdLoader]
	Tests       *Registry[TestLoader]
	Comparators *Registry[Comparator]

	// tagExtensions are capabilities that only add tagged arguments to
	// existing commands and tests.
	tagExtensions map[string]struct{}
}

var tagExtensions = []string{"copy", "regex", "relational", "subaddress"}

// NewRegistries builds the registries. If opts.EnabledExtensions is nil all
// known extensions are enabled, otherwise only the listed ones are.
func NewRegistries(opts *Options) (*Registries, error) {
	r := &Registries{
		Commands:      newRegistry[CmdLoader]("command"),
		Tests:         newRegistry[TestLoader]("test"),
		Comparators:   newRegistry[Comparator]("comparator"),
		tagExtensions: make(map[string]struct{}),
	}
	for name, e := range commands {
		e.Name = name
		r.Commands.Register(e)
	}
	for name, e := range tests {
		e.Name = name
		r.Tests.Register(e)
	}
	for _, c := range comparators {
		r.Comparators.Register(Entry[Comparator]{
			Name:      c.comparator.Name(),
			Extension: "comparator-" + c.comparator.Name(),
			Implicit:  c.implicit,
			Impl:      c.comparator,
		})
	}
	for _, ext := range tagExtensions {
		r.tagExtensions[ext] = struct{}{}
	}

	if opts == nil || opts.EnabledExtensions == nil {
		return r, nil
	}

	known := r.allFeatures()
	enabled := make(map[string]struct{}, len(opts.EnabledExtensions))
	for _, ext := range opts.EnabledExtensions {
		ext = strings.ToLower(ext)
		if _, ok := known[ext]; !ok {
			return nil, fmt.Errorf("interp: unknown extension %q", ext)
		}
		enabled[ext] = struct{}{}
	}

	for name, e := range r.Commands.entries {
		if e.Extension != "" && !e.Implicit {
			if _, ok := enabled[e.Extension]; !ok {
				r.Commands.remove(name)
			}
		}
	}
	for name, e := range r.Tests.entries {
		if e.Extension != "" && !e.Implicit {
			if _, ok := enabled[e.Extension]; !ok {
				r.Tests.remove(name)
			}
		}
	}
	for name, e := range r.Comparators.entries {
		if !e.Implicit {
			if _, ok := enabled[e.Extension]; !ok {
				r.Comparators.remove(name)
			}
		}
	}
	for ext := range r.tagExtensions {
		if _, ok := enabled[ext]; !ok {
			delete(r.tagExtensions, ext)
		}
	}

	return r, nil
}

func (r *Registries) allFeatures() map[string]struct{} {
	all := make(map[string]struct{})
	r.Commands.features(all)
	r.Tests.features(all)
	r.Comparators.features(all)
	for ext := range r.tagExtensions {
		all[ext] = struct{}{}
	}
	return all
}

// Supports reports whether feature can be named in a require command: a
// registered command or test, or a capability such as a comparator or a tag
// extension.
func (r *Registries) Supports(feature string) bool {
	if r.Commands.IsSupported(feature) || r.Tests.IsSupported(feature) {
		return true
	}
	_, ok := r.allFeatures()[strings.ToLower(feature)]
	return ok
}

// Extensions lists every capability the registries support, sorted. This is
// what a server would advertise as its Sieve capabilities.
func (r *Registries) Extensions() []string {
	all := r.allFeatures()
	exts := make([]string, 0, len(all))
	for ext := range all {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

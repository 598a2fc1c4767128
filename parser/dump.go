package parser

import (
	"io"

	"github.com/davecgh/go-spew/spew"
)

var dumpConfig = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	DisableMethods:          true,
	SortKeys:                true,
}

// Dump writes a human-readable rendition of a syntax tree node.
func Dump(w io.Writer, node interface{}) {
	dumpConfig.Fdump(w, node)
}

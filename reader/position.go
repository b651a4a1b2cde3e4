// Package reader turns Pongascript source text into interp.Value trees.
// It knows nothing about evaluation; it is the only package in this
// module allowed to depend on both interp (to build Values) and the
// standard library's text-scanning facilities.
package reader

import "fmt"

// Position identifies a location in source text, 1-based in both
// fields to match editor conventions (and go/scanner.Position, which
// this type otherwise mirrors in miniature).
type Position struct {
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

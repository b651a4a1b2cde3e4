package reader

import (
	"fmt"
	"sort"
	"strings"
)

// Error is one malformed-input complaint, tagged with where it was
// found.
type Error struct {
	Pos Position
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

// ErrorList collects every Error found in a parse, rather than stopping
// at the first one — modeled directly on go/scanner.ErrorList, which
// the standard library's own parsers use for exactly this reason: a
// single run should report as much as it can about a malformed file.
type ErrorList []*Error

// Add appends a new Error to the list.
func (l *ErrorList) Add(pos Position, format string, args ...any) {
	*l = append(*l, &Error{Pos: pos, Msg: fmt.Sprintf(format, args...)})
}

func (l ErrorList) Len() int      { return len(l) }
func (l ErrorList) Swap(i, j int) { l[i], l[j] = l[j], l[i] }
func (l ErrorList) Less(i, j int) bool {
	if l[i].Pos.Line != l[j].Pos.Line {
		return l[i].Pos.Line < l[j].Pos.Line
	}
	return l[i].Pos.Column < l[j].Pos.Column
}

// Sort orders the list by position, for stable, readable output.
func (l ErrorList) Sort() { sort.Sort(l) }

// Err returns l as an error, or nil if l is empty.
func (l ErrorList) Err() error {
	if len(l) == 0 {
		return nil
	}
	return l
}

func (l ErrorList) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s (and %d more)", l[0], len(l)-1)
	return b.String()
}

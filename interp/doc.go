// Package interp implements the Pongascript evaluator: a tagged value
// model, a managed heap with mark-and-sweep collection, chained
// environment frames, and an explicit-stack tree-walking evaluator.
//
// The package accepts a value tree produced by an external reader (see the
// sibling reader package) and evaluates it. It has no knowledge of source
// text or file systems. An Interpreter is not safe for concurrent use:
// Eval takes no lock, and callers run one evaluation at a time.
package interp

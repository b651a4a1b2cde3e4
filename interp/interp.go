package interp

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Options configures a new Interpreter: a small bag of knobs the
// embedder sets once at construction time rather than a long argument
// list.
type Options struct {
	// GCInterval is how long the heap lets garbage accumulate between
	// opportunistic collections. Zero selects defaultGCInterval.
	GCInterval time.Duration
	// MaxStackSize bounds evaluator call depth before StackOverflow is
	// raised. Zero selects DefaultMaxStackSize.
	MaxStackSize int
	// Stdout is where the display builtin writes. Defaults to
	// os.Stdout.
	Stdout io.Writer
}

// New builds an Interpreter with its standard library already
// installed.
func New(opts Options) *Interpreter {
	gcInterval := opts.GCInterval
	if gcInterval == 0 {
		gcInterval = defaultGCInterval
	}
	maxStack := opts.MaxStackSize
	if maxStack <= 0 {
		maxStack = DefaultMaxStackSize
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	heap := NewHeap(gcInterval)
	it := &Interpreter{Heap: heap, Env: NewEnv(heap), Stdout: stdout, maxStack: maxStack}
	heap.SetRootsFn(it.gcRoots)
	InstallStdlib(it)
	return it
}

// ReadFunc supplies one line of input to the REPL loop; ok is false at
// end of input. interp has no opinion on where lines come from — a
// bufio.Scanner, a readline library, a network connection — that
// decision belongs to the embedder (cmd/pong), keeping this package free
// of terminal-handling dependencies.
type ReadFunc func() (line string, ok bool, err error)

// ParseFunc turns one line of source text into a Value ready for Eval.
// interp cannot do this itself without importing the reader package,
// which would create an import cycle (reader builds interp.Value
// trees); cmd/pong supplies the real implementation.
type ParseFunc func(source string) (Value, error)

// REPLOptions configures Interpreter.REPL.
type REPLOptions struct {
	Prompt string
	Read   ReadFunc
	Parse  ParseFunc
	Out    io.Writer
}

// lastBindingName is the identifier the REPL rebinds after every
// successful top-level evaluation that produced a non-Null value.
const lastBindingName = "last"

// REPL runs a read-eval-print loop until Read reports end of input,
// the context is canceled, or Read returns a fatal error. One goroutine
// owns the loop, run under an errgroup derived from ctx. Cancellation is
// checked before each prompt; a Read already in progress is not
// interrupted, so REPL returns only after that Read comes back.
func (it *Interpreter) REPL(ctx context.Context, ro REPLOptions) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return it.runREPL(ctx, ro)
	})
	return g.Wait()
}

func (it *Interpreter) runREPL(ctx context.Context, ro REPLOptions) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if ro.Prompt != "" && ro.Out != nil {
			fmt.Fprint(ro.Out, ro.Prompt)
		}

		line, ok, err := ro.Read()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		switch strings.TrimSpace(line) {
		case "":
			continue
		case ":env":
			it.printEnv(ro.Out)
			continue
		}

		v, err := ro.Parse(line)
		if err != nil {
			fmt.Fprintln(ro.Out, err)
			continue
		}

		result, err := it.Eval(v)
		if err != nil {
			fmt.Fprintln(ro.Out, err)
			continue
		}

		if !result.IsNull() {
			_ = it.Env.Define(lastBindingName, result)
		}
		fmt.Fprintln(ro.Out, Display(result, it.resolveRef))
	}
}

// printEnv implements the ":env" REPL meta-command: every binding
// visible from the current frame, one per line, nearest shadowing
// farthest.
func (it *Interpreter) printEnv(out io.Writer) {
	snap, err := it.Env.Snapshot()
	if err != nil {
		fmt.Fprintln(out, err)
		return
	}
	for _, e := range snap {
		fmt.Fprintf(out, "%s: %s\n", e.Key, Display(e.Val, it.resolveRef))
	}
}

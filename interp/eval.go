package interp

import "io"

// BuiltinFunc is the shape of every entry in an Interpreter's builtin
// registry. It receives already-evaluated arguments; HFunc values never
// see unevaluated syntax.
type BuiltinFunc func(it *Interpreter, args []Value) (Value, error)

// keywords are dispatched structurally at the head of a Sexpr rather
// than resolved through the environment — shadowing one with a variable
// binding of the same name has no effect on its special-form behavior.
var keywords = map[string]bool{
	"define": true, "set!": true, "if": true, "lambda": true, "let": true,
	"begin": true, "quote": true, "and": true, "or": true, "while": true, "for": true,
}

// Interpreter ties together a Heap, an Env, and a builtin registry. It
// is the unit of evaluation: one Interpreter is one running program.
type Interpreter struct {
	Heap *Heap
	Env  *Env

	// Stdout is where the display builtin writes. Defaults to
	// os.Stdout; embedders (and tests) point it elsewhere.
	Stdout io.Writer

	builtins     []BuiltinFunc
	builtinNames []string

	maxStack int

	// frames is the stack of live Eval activations, innermost last.
	// Heap.Collect roots through every activation's instruction and
	// data stacks (see gcRoots) so a collection triggered
	// mid-evaluation — by a builtin's own allocation, say — sees every
	// value still pending in any work list, including an outer Eval
	// suspended under a builtin that re-entered the evaluator
	// (cmd/pong's "load", which runs file forms from inside an
	// already-running Eval).
	frames []evalFrame

	// scratch roots values that have been popped off the data stack but
	// not yet reattached to anything the collector can see — argument
	// slices mid-Call, collected elements awaiting their container's
	// allocation. A collection triggered by that very allocation (or by
	// one a builtin performs) traces scratch alongside the stacks, so
	// the popped values' referents cannot be swept out from under the
	// instruction consuming them. It nests because a builtin holding
	// scratch-rooted args may re-enter Eval, whose instructions root
	// their own popped values.
	scratch [][]Value
}

// RegisterBuiltin installs fn under name in the registry and binds name
// to the resulting HFunc in the root environment, returning that value.
// cmd/pong uses this hook to add builtins interp itself has no business
// defining, such as (load "path"), which needs the reader package and
// the filesystem — neither of which interp depends on.
func (it *Interpreter) RegisterBuiltin(name string, fn BuiltinFunc) Value {
	handle := len(it.builtins)
	it.builtins = append(it.builtins, fn)
	it.builtinNames = append(it.builtinNames, name)
	hv := HFuncValue(handle)
	_ = it.Env.Define(name, hv)
	return hv
}

// BuiltinName returns the registered name for a builtin handle, for
// embedders rendering HFunc values more helpfully than the bare
// #<builtin:N> form Display falls back to.
func (it *Interpreter) BuiltinName(handle int) string {
	if handle < 0 || handle >= len(it.builtinNames) {
		return "?"
	}
	return it.builtinNames[handle]
}

// evalFrame pairs the two stacks of one Eval activation.
type evalFrame struct {
	ins  *insStack
	data *dataStack
}

// gcRoots is the Heap's rootsFn, wired up once in New. Besides the
// environment's root and current frames, it walks every Value sitting
// on each live data stack and every heap id an in-flight Instruction
// keeps alive — an intermediate Ref pending on a work list is as live
// as a binding. frames is empty between Eval calls (e.g. while the
// REPL is blocked on Read), in which case only the environment frames
// root the collection.
func (it *Interpreter) gcRoots() []int {
	roots := []int{it.Env.Root(), it.Env.Current()}
	visit := func(id int) { roots = append(roots, id) }
	for _, f := range it.frames {
		for _, v := range f.data.items {
			v.traceRefs(visit)
		}
		for _, ins := range f.ins.items {
			ins.traceRefs(visit)
		}
	}
	for _, vs := range it.scratch {
		for _, v := range vs {
			v.traceRefs(visit)
		}
	}
	return roots
}

func (it *Interpreter) pushScratch(vs []Value) { it.scratch = append(it.scratch, vs) }

func (it *Interpreter) popScratch() { it.scratch = it.scratch[:len(it.scratch)-1] }

// Eval evaluates v against the interpreter's current environment and
// returns the resulting value, or an *Error. It drives an explicit
// instruction-stack/data-stack work list rather than recursing through
// Go's own call stack, so neither a deeply nested expression nor a
// long-running loop grows anything but this stack.
// Heap.Allocate/AllocateFrame/Take each check DueForCollection
// themselves (heap.go), rooted via gcRoots, so a collection can run
// mid-evaluation and reclaim garbage produced inside a still-running
// loop.
func (it *Interpreter) Eval(v Value) (Value, error) {
	ins := newInsStack(it.maxStack)
	data := &dataStack{}

	it.frames = append(it.frames, evalFrame{ins: ins, data: data})
	defer func() { it.frames = it.frames[:len(it.frames)-1] }()

	// An error unwinds past any pending PopEnv instructions, so the
	// active frame pointer is put back by hand — the REPL keeps
	// evaluating after a failure and must not be left inside a dead
	// scope.
	savedEnv := it.Env.Current()

	if err := ins.push(Instruction{Op: OpEval, Value: v}); err != nil {
		return Value{}, err
	}
	for {
		instr, ok := ins.pop()
		if !ok {
			break
		}
		if err := it.step(instr, ins, data); err != nil {
			it.Env.SetCurrent(savedEnv)
			return Value{}, err
		}
		// The data stack is bounded like the instruction stack; one
		// instruction pushes at most a handful of values, so checking
		// here keeps push itself infallible.
		if len(data.items) > ins.max {
			it.Env.SetCurrent(savedEnv)
			return Value{}, newError(KindStackOverflow, "evaluator data stack exceeded %d entries", ins.max)
		}
	}
	return data.pop()
}

// step executes one instruction, pushing whatever follow-up instructions
// and data it produces. This is the evaluator's only dispatch point —
// every Op in instr.go is both constructed and consumed somewhere in
// this file.
func (it *Interpreter) step(instr Instruction, ins *insStack, data *dataStack) error {
	switch instr.Op {
	case OpEval:
		return it.stepEval(instr.Value, ins, data)
	case OpCall:
		return it.stepCall(instr, data)
	case OpDispatchCall:
		return it.stepDispatch(instr.Exprs, ins, data)
	case OpPushEnv:
		return it.stepPushEnv(instr, data)
	case OpPopEnv:
		it.Env.SetCurrent(instr.EnvID)
		return nil
	case OpDefine:
		v, err := data.pop()
		if err != nil {
			return err
		}
		if err := it.Env.Define(instr.Name, v); err != nil {
			return err
		}
		// define and set! are executed for their binding effect; each
		// leaves Null so sequences see exactly one value per form.
		data.push(Null)
		return nil
	case OpSet:
		v, err := data.pop()
		if err != nil {
			return err
		}
		if err := it.Env.Set(instr.Name, v); err != nil {
			return err
		}
		data.push(Null)
		return nil
	case OpCollectArray:
		vals, err := popN(data, instr.N)
		if err != nil {
			return err
		}
		data.push(it.collectInto(ArrayValue(vals)))
		return nil
	case OpCollectList:
		vals, err := popN(data, instr.N)
		if err != nil {
			return err
		}
		data.push(it.collectInto(ListValue(vals)))
		return nil
	case OpCollectObject:
		vals, err := popN(data, len(instr.Names))
		if err != nil {
			return err
		}
		fields := make([]Entry, len(instr.Names))
		for i, name := range instr.Names {
			fields[i] = Entry{Key: name, Val: vals[i]}
		}
		data.push(it.collectInto(ObjectValue(fields)))
		return nil
	case OpPopStack:
		_, err := data.pop()
		return err
	case OpIfBranch:
		return it.stepIfBranch(instr, ins, data)
	case OpAndStep:
		return it.stepAndStep(instr, ins, data)
	case OpOrStep:
		return it.stepOrStep(instr, ins, data)
	case OpWhileStep:
		return it.stepWhileStep(instr, ins, data)
	case OpForSetup:
		return it.stepForSetup(instr, ins, data)
	case OpForStep:
		return it.stepForStep(instr, ins, data)
	default:
		return newError(KindOther, "unknown instruction %s", instr.Op)
	}
}

// collectInto heap-allocates a freshly collected container and returns
// the Ref the data stack carries in its place. The container is
// scratch-rooted across the allocation since its elements are no longer
// on the data stack.
func (it *Interpreter) collectInto(container Value) Value {
	it.pushScratch([]Value{container})
	id := it.Heap.Allocate(container)
	it.popScratch()
	return RefValue(id)
}

// stepEval dispatches one OpEval on Value.Kind, pushing follow-up
// instructions instead of recursing: compound shapes (arrays, lists,
// objects, sexprs) queue their pieces as OpEval instructions plus a
// collecting continuation rather than evaluating them through a nested
// Go call.
func (it *Interpreter) stepEval(v Value, ins *insStack, data *dataStack) error {
	switch v.Kind {
	case KNull, KTrue, KFalse, KNumber, KChar, KSymbol, KHFunc:
		data.push(v)
		return nil

	case KString, KCFunc, KMFunc:
		// Non-copy self-evaluating values reach the data stack behind a
		// fresh Ref so later aliases share identity.
		data.push(RefValue(it.Heap.Allocate(v)))
		return nil

	case KIdentifier:
		r, err := it.evalIdentifier(v.Str)
		if err != nil {
			return err
		}
		data.push(r)
		return nil

	case KArray:
		if err := ins.push(Instruction{Op: OpCollectArray, N: len(v.Items)}); err != nil {
			return err
		}
		for i := len(v.Items) - 1; i >= 0; i-- {
			if err := ins.push(Instruction{Op: OpEval, Value: v.Items[i]}); err != nil {
				return err
			}
		}
		return nil

	case KList:
		if err := ins.push(Instruction{Op: OpCollectList, N: len(v.Items)}); err != nil {
			return err
		}
		for i := len(v.Items) - 1; i >= 0; i-- {
			if err := ins.push(Instruction{Op: OpEval, Value: v.Items[i]}); err != nil {
				return err
			}
		}
		return nil

	case KObject:
		names := make([]string, len(v.Fields))
		for i, e := range v.Fields {
			names[i] = e.Key
		}
		if err := ins.push(Instruction{Op: OpCollectObject, Names: names}); err != nil {
			return err
		}
		for i := len(v.Fields) - 1; i >= 0; i-- {
			if err := ins.push(Instruction{Op: OpEval, Value: v.Fields[i].Val}); err != nil {
				return err
			}
		}
		return nil

	case KSexpr:
		return it.stepSexpr(v.Items, ins, data)

	case KRef:
		// Dereference once: a copy referent is pushed by value, anything
		// else keeps the Ref so identity survives re-evaluation.
		h, err := it.Heap.Get(v.Ref)
		if err != nil {
			return err
		}
		val := h.Value()
		h.Release()
		if val.IsCopy() {
			data.push(val)
		} else {
			data.push(v)
		}
		return nil

	default:
		return newError(KindOther, "cannot evaluate value of kind %s", v.Kind)
	}
}

// evalIdentifier resolves name and, on the first read of a non-copy
// binding, rewrites the binding in place as a heap Ref and returns that
// Ref, so every subsequent read — and every alias captured by a closure
// before this point — shares one identity. Copy values come back by
// value; an already-promoted binding comes back as its Ref unchanged.
func (it *Interpreter) evalIdentifier(name string) (Value, error) {
	v, err := it.Env.Get(name)
	if err != nil {
		return Value{}, err
	}
	if v.Kind == KRef || v.IsCopy() {
		return v, nil
	}
	ref := RefValue(it.Heap.Allocate(v))
	if err := it.Env.Set(name, ref); err != nil {
		return Value{}, err
	}
	return ref, nil
}

// stepSexpr either dispatches a keyword form structurally or queues the
// head for evaluation followed by an OpDispatchCall continuation, which
// decides how to treat the arguments once the head's value (and
// therefore its Kind: HFunc, CFunc, or MFunc) is known. A compound head
// expression (e.g. ((if c f g) 1 2)) needs this two-step shape — unlike
// a bare identifier head, its Kind can't be predicted before it runs.
func (it *Interpreter) stepSexpr(items []Value, ins *insStack, data *dataStack) error {
	if len(items) == 0 {
		data.push(Null)
		return nil
	}
	head := items[0]
	rest := items[1:]

	if name, ok := head.AsIdentifier(); ok && keywords[name] {
		return it.stepKeyword(name, rest, ins, data)
	}

	if err := ins.push(Instruction{Op: OpDispatchCall, Exprs: rest}); err != nil {
		return err
	}
	return ins.push(Instruction{Op: OpEval, Value: head})
}

// stepDispatch runs once the call's head has been evaluated. HFunc and
// CFunc arguments are evaluated left to right (queued via OpEval,
// reverse-index-pushed so the leftmost runs first); MFunc arguments are
// pushed as raw unevaluated syntax instead — an MFunc body receives
// forms, not values.
func (it *Interpreter) stepDispatch(exprs []Value, ins *insStack, data *dataStack) error {
	fn, err := data.pop()
	if err != nil {
		return err
	}
	// A closure read out of a binding arrives as a Ref to its promoted
	// heap form; the dispatch needs the function payload itself.
	if fn.Kind == KRef {
		if fn, err = it.Deref(fn); err != nil {
			return err
		}
	}

	switch fn.Kind {
	case KHFunc:
		if err := ins.push(Instruction{Op: OpCall, N: len(exprs), Value: fn}); err != nil {
			return err
		}
		for i := len(exprs) - 1; i >= 0; i-- {
			if err := ins.push(Instruction{Op: OpEval, Value: exprs[i]}); err != nil {
				return err
			}
		}
		return nil

	case KCFunc:
		if len(exprs) != len(fn.Params) {
			return newError(KindArity, "expected %d argument(s), got %d", len(fn.Params), len(exprs))
		}
		saved := it.Env.Current()
		bh, err := it.Heap.Get(fn.Body)
		if err != nil {
			return err
		}
		body := bh.Value()
		bh.Release()

		if err := ins.push(Instruction{Op: OpPopEnv, EnvID: saved}); err != nil {
			return err
		}
		if err := ins.push(Instruction{Op: OpEval, Value: body}); err != nil {
			return err
		}
		// The new frame chains to the closure's captured environment
		// (fn.EnvID), not the caller's current frame — that's what
		// makes this lexical rather than dynamic scoping.
		if err := ins.push(Instruction{Op: OpPushEnv, Names: fn.Params, EnvID: fn.EnvID}); err != nil {
			return err
		}
		for i := len(exprs) - 1; i >= 0; i-- {
			if err := ins.push(Instruction{Op: OpEval, Value: exprs[i]}); err != nil {
				return err
			}
		}
		return nil

	case KMFunc:
		if len(exprs) != len(fn.Params) {
			return newError(KindArity, "expected %d argument(s), got %d", len(fn.Params), len(exprs))
		}
		saved := it.Env.Current()
		bh, err := it.Heap.Get(fn.Body)
		if err != nil {
			return err
		}
		body := bh.Value()
		bh.Release()

		if err := ins.push(Instruction{Op: OpPopEnv, EnvID: saved}); err != nil {
			return err
		}
		if err := ins.push(Instruction{Op: OpEval, Value: body}); err != nil {
			return err
		}
		// MFuncValue carries no captured EnvID, so its frame chains to
		// the caller's current frame, same as let.
		if err := ins.push(Instruction{Op: OpPushEnv, Names: fn.Params, EnvID: saved}); err != nil {
			return err
		}
		for i := 0; i < len(exprs); i++ {
			data.push(exprs[i])
		}
		return nil

	default:
		return newError(KindType, "cannot call value of kind %s", fn.Kind)
	}
}

// stepCall runs a builtin once its arguments have been evaluated and its
// own continuation pops off the instruction stack.
func (it *Interpreter) stepCall(instr Instruction, data *dataStack) error {
	args, err := popN(data, instr.N)
	if err != nil {
		return err
	}
	// Args live only in this slice until the builtin returns; root them
	// in case the builtin allocates (or re-enters Eval) and a collection
	// comes due mid-call.
	it.pushScratch(args)
	result, err := it.callBuiltin(instr.Value.Handle, args)
	it.popScratch()
	if err != nil {
		return err
	}
	data.push(result)
	return nil
}

// Deref reads through a Ref to the value it names; non-Ref values come
// back unchanged. Ref arguments are never auto-dereferenced on the way
// into a builtin, so any builtin that needs the underlying value reads
// it through the heap itself; embedders likewise use Deref to unwrap
// Eval's result when the final expression produced a shared value.
func (it *Interpreter) Deref(v Value) (Value, error) {
	for v.Kind == KRef {
		h, err := it.Heap.Get(v.Ref)
		if err != nil {
			return Value{}, err
		}
		inner := h.Value()
		h.Release()
		v = inner
	}
	return v, nil
}

func (it *Interpreter) callBuiltin(handle int, args []Value) (Value, error) {
	if handle < 0 || handle >= len(it.builtins) {
		return Value{}, newError(KindReference, "unknown builtin handle %d", handle)
	}
	return it.builtins[handle](it, args)
}

// stepPushEnv pops len(Names) values (restored to left-to-right order
// by popN) and binds them to Names in a fresh frame chained to EnvID,
// making that frame current.
func (it *Interpreter) stepPushEnv(instr Instruction, data *dataStack) error {
	vals, err := popN(data, len(instr.Names))
	if err != nil {
		return err
	}
	// Root both the parameter values and the outer frame across the
	// frame allocation: the instruction that carried EnvID has already
	// been popped, so a closure's captured frame may have no other
	// reference at this instant.
	it.pushScratch(append(vals[:len(vals):len(vals)], RefValue(instr.EnvID)))
	frameID := it.Env.PushChildOf(instr.EnvID)
	it.popScratch()
	for i, name := range instr.Names {
		if err := it.Env.Bind(frameID, name, vals[i]); err != nil {
			return err
		}
	}
	return nil
}

// stepKeyword builds the instruction sequence for one special form. None
// of these recurse through Go — each pushes a small, fixed number of
// instructions and returns, leaving the work-list loop to drive the
// rest, in the same push-a-continuation-then-push-its-dependency shape
// Call and the Collect* ops use.
func (it *Interpreter) stepKeyword(name string, rest []Value, ins *insStack, data *dataStack) error {
	switch name {
	case "define":
		if len(rest) >= 1 {
			if _, ok := rest[0].AsSexpr(); ok {
				// (define (f args...) body...) is sugar for
				// (define f (lambda (args...) (begin body...))).
				return it.stepDefineFunc(rest, data)
			}
		}
		if len(rest) != 2 {
			return newError(KindArity, "define expects 2 arguments, got %d", len(rest))
		}
		if rest[0].Kind != KIdentifier {
			return newError(KindType, "define: first argument must be an identifier")
		}
		if err := ins.push(Instruction{Op: OpDefine, Name: rest[0].Str}); err != nil {
			return err
		}
		return ins.push(Instruction{Op: OpEval, Value: rest[1]})

	case "set!":
		if len(rest) != 2 {
			return newError(KindArity, "set! expects 2 arguments, got %d", len(rest))
		}
		if rest[0].Kind != KIdentifier {
			return newError(KindType, "set!: first argument must be an identifier")
		}
		if err := ins.push(Instruction{Op: OpSet, Name: rest[0].Str}); err != nil {
			return err
		}
		return ins.push(Instruction{Op: OpEval, Value: rest[1]})

	case "if":
		if len(rest) < 2 || len(rest) > 3 {
			return newError(KindArity, "if expects 2 or 3 arguments, got %d", len(rest))
		}
		elseExpr := Null
		if len(rest) == 3 {
			elseExpr = rest[2]
		}
		if err := ins.push(Instruction{Op: OpIfBranch, Value: rest[1], Value2: elseExpr}); err != nil {
			return err
		}
		return ins.push(Instruction{Op: OpEval, Value: rest[0]})

	case "lambda":
		if len(rest) != 2 {
			return newError(KindArity, "lambda expects 2 arguments, got %d", len(rest))
		}
		params, err := paramNames(rest[0])
		if err != nil {
			return err
		}
		bodyID := it.Heap.Allocate(rest[1])
		data.push(CFuncValue(params, bodyID, it.Env.Current()))
		return nil

	case "let":
		return it.stepLet(rest, ins, data)

	case "begin":
		return pushSequence(ins, rest)

	case "quote":
		if len(rest) != 1 {
			return newError(KindArity, "quote expects 1 argument, got %d", len(rest))
		}
		data.push(rest[0])
		return nil

	case "and":
		if len(rest) == 0 {
			data.push(True)
			return nil
		}
		first, remaining := rest[0], rest[1:]
		if err := ins.push(Instruction{Op: OpAndStep, Exprs: remaining}); err != nil {
			return err
		}
		return ins.push(Instruction{Op: OpEval, Value: first})

	case "or":
		if len(rest) == 0 {
			data.push(False)
			return nil
		}
		first, remaining := rest[0], rest[1:]
		if err := ins.push(Instruction{Op: OpOrStep, Exprs: remaining}); err != nil {
			return err
		}
		return ins.push(Instruction{Op: OpEval, Value: first})

	case "while":
		if len(rest) < 1 {
			return newError(KindArity, "while expects at least 1 argument")
		}
		cond, body := rest[0], rest[1:]
		data.push(Null)
		if err := ins.push(Instruction{Op: OpWhileStep, Value: cond, Exprs: body}); err != nil {
			return err
		}
		return ins.push(Instruction{Op: OpEval, Value: cond})

	case "for":
		return it.stepForKeyword(rest, ins, data)

	default:
		return newError(KindOther, "unhandled keyword %q", name)
	}
}

// stepDefineFunc desugars (define (f args...) body...) into a direct
// global binding of f to the closure (lambda (args...) (begin body...)),
// capturing the current frame exactly as the lambda keyword would.
func (it *Interpreter) stepDefineFunc(rest []Value, data *dataStack) error {
	sig := rest[0]
	if len(sig.Items) == 0 || sig.Items[0].Kind != KIdentifier {
		return newError(KindType, "define: function signature must start with a name")
	}
	if len(rest) < 2 {
		return newError(KindArity, "define: function form needs a body")
	}
	name := sig.Items[0].Str
	params, err := paramNames(SexprValue(sig.Items[1:]))
	if err != nil {
		return err
	}
	body := rest[1]
	if len(rest) > 2 {
		items := append([]Value{IdentifierValue("begin")}, rest[1:]...)
		body = SexprValue(items)
	}
	bodyID := it.Heap.Allocate(body)
	if err := it.Env.Define(name, CFuncValue(params, bodyID, it.Env.Current())); err != nil {
		return err
	}
	data.push(Null)
	return nil
}

func paramNames(v Value) ([]string, error) {
	switch v.Kind {
	case KArray, KList, KSexpr:
	default:
		return nil, newError(KindType, "expected a parameter list")
	}
	names := make([]string, len(v.Items))
	for i, p := range v.Items {
		if p.Kind != KIdentifier {
			return nil, newError(KindType, "parameter list must contain identifiers")
		}
		names[i] = p.Str
	}
	return names, nil
}

func isPair(v Value) bool {
	return (v.Kind == KSexpr || v.Kind == KList) && len(v.Items) == 2
}

// stepLet evaluates each binding's value expression in the enclosing
// environment (queued left to right, before OpPushEnv runs), then pushes
// a frame lexically nested in the current scope before the body runs,
// and OpPopEnv restores the enclosing frame afterwards. The body may be
// several forms, sequenced like begin.
func (it *Interpreter) stepLet(rest []Value, ins *insStack, data *dataStack) error {
	if len(rest) < 2 {
		return newError(KindArity, "let expects a binding list and a body, got %d argument(s)", len(rest))
	}
	bindings := rest[0]
	if bindings.Kind != KSexpr && bindings.Kind != KList && bindings.Kind != KArray {
		return newError(KindType, "let: expected a binding list")
	}

	names := make([]string, len(bindings.Items))
	valExprs := make([]Value, len(bindings.Items))
	for i, b := range bindings.Items {
		if !isPair(b) {
			return newError(KindType, "let: each binding must be a (name value) pair")
		}
		if b.Items[0].Kind != KIdentifier {
			return newError(KindType, "let: binding name must be an identifier")
		}
		names[i] = b.Items[0].Str
		valExprs[i] = b.Items[1]
	}

	saved := it.Env.Current()
	if err := ins.push(Instruction{Op: OpPopEnv, EnvID: saved}); err != nil {
		return err
	}
	if err := pushSequence(ins, rest[1:]); err != nil {
		return err
	}
	if err := ins.push(Instruction{Op: OpPushEnv, Names: names, EnvID: saved}); err != nil {
		return err
	}
	for i := len(valExprs) - 1; i >= 0; i-- {
		if err := ins.push(Instruction{Op: OpEval, Value: valExprs[i]}); err != nil {
			return err
		}
	}
	return nil
}

// pushSequence queues exprs for left-to-right evaluation, discarding
// every intermediate result via an interspersed OpPopStack so only the
// last expression's value remains on the data stack. An empty sequence
// evaluates to Null. Shared by begin, while's body, and for's body.
func pushSequence(ins *insStack, exprs []Value) error {
	if len(exprs) == 0 {
		return ins.push(Instruction{Op: OpEval, Value: Null})
	}
	if err := ins.push(Instruction{Op: OpEval, Value: exprs[len(exprs)-1]}); err != nil {
		return err
	}
	for i := len(exprs) - 2; i >= 0; i-- {
		if err := ins.push(Instruction{Op: OpPopStack}); err != nil {
			return err
		}
		if err := ins.push(Instruction{Op: OpEval, Value: exprs[i]}); err != nil {
			return err
		}
	}
	return nil
}

// stepIfBranch runs once the condition has been evaluated, choosing
// between the two already-known branch expressions. Value2 defaults to
// Null for a two-armed if, so a falsy condition with no else branch
// yields Null.
func (it *Interpreter) stepIfBranch(instr Instruction, ins *insStack, data *dataStack) error {
	cond, err := data.pop()
	if err != nil {
		return err
	}
	branch := instr.Value2
	if cond.Truthy() {
		branch = instr.Value
	}
	return ins.push(Instruction{Op: OpEval, Value: branch})
}

// stepAndStep runs after one operand has been evaluated: a falsy value
// short-circuits the whole form with that value; otherwise, if operands
// remain, the next one is queued, and if none remain the last truthy
// value is the form's result.
func (it *Interpreter) stepAndStep(instr Instruction, ins *insStack, data *dataStack) error {
	v, err := data.pop()
	if err != nil {
		return err
	}
	if !v.Truthy() {
		data.push(v)
		return nil
	}
	if len(instr.Exprs) == 0 {
		data.push(v)
		return nil
	}
	next, remaining := instr.Exprs[0], instr.Exprs[1:]
	if err := ins.push(Instruction{Op: OpAndStep, Exprs: remaining}); err != nil {
		return err
	}
	return ins.push(Instruction{Op: OpEval, Value: next})
}

// stepOrStep is and's mirror: the first truthy operand short-circuits
// the form, and running out of operands yields False.
func (it *Interpreter) stepOrStep(instr Instruction, ins *insStack, data *dataStack) error {
	v, err := data.pop()
	if err != nil {
		return err
	}
	if v.Truthy() {
		data.push(v)
		return nil
	}
	if len(instr.Exprs) == 0 {
		data.push(False)
		return nil
	}
	next, remaining := instr.Exprs[0], instr.Exprs[1:]
	if err := ins.push(Instruction{Op: OpOrStep, Exprs: remaining}); err != nil {
		return err
	}
	return ins.push(Instruction{Op: OpEval, Value: next})
}

// stepWhileStep runs after the loop condition has been (re-)evaluated.
// The data stack carries one sentinel slot for the loop (initialized to
// Null before the first check, replaced by each iteration's body value)
// so its depth stays constant across iterations; a falsy condition
// swaps whatever the final iteration left there for Null, the whole
// form's result. A truthy condition discards
// the stale sentinel, queues the body (producing a fresh one), then
// re-queues the condition and this same continuation — the instruction
// stack's depth also stays constant, which is what lets a collection
// triggered mid-loop see a bounded work list.
func (it *Interpreter) stepWhileStep(instr Instruction, ins *insStack, data *dataStack) error {
	cond, err := data.pop()
	if err != nil {
		return err
	}
	if !cond.Truthy() {
		if _, err := data.pop(); err != nil {
			return err
		}
		data.push(Null)
		return nil
	}
	if _, err := data.pop(); err != nil {
		return err
	}
	if err := ins.push(Instruction{Op: OpWhileStep, Value: instr.Value, Exprs: instr.Exprs}); err != nil {
		return err
	}
	if err := ins.push(Instruction{Op: OpEval, Value: instr.Value}); err != nil {
		return err
	}
	return pushSequence(ins, instr.Exprs)
}

// stepForKeyword implements (for var in list body...), with a literal
// "in" token, binding var into one frame that is reused across every
// iteration.
func (it *Interpreter) stepForKeyword(rest []Value, ins *insStack, data *dataStack) error {
	if len(rest) < 3 {
		return newError(KindArity, "for expects at least 3 arguments")
	}
	if rest[0].Kind != KIdentifier {
		return newError(KindType, "for: loop variable must be an identifier")
	}
	if rest[1].Kind != KIdentifier || rest[1].Str != "in" {
		return newError(KindType, "for: expected 'in' after the loop variable")
	}
	varName := rest[0].Str
	iterExpr := rest[2]
	body := rest[3:]

	data.push(Null)
	if err := ins.push(Instruction{Op: OpForSetup, Name: varName, Body: body}); err != nil {
		return err
	}
	return ins.push(Instruction{Op: OpEval, Value: iterExpr})
}

// stepForSetup runs once the iterable expression has been evaluated: it
// validates the result and allocates the one frame the loop variable is
// bound into for every iteration.
func (it *Interpreter) stepForSetup(instr Instruction, ins *insStack, data *dataStack) error {
	iterable, err := data.pop()
	if err != nil {
		return err
	}
	if iterable.Kind == KRef {
		if iterable, err = it.Deref(iterable); err != nil {
			return err
		}
	}
	if iterable.Kind != KArray && iterable.Kind != KList {
		return newError(KindType, "for: expected an array or list to iterate, got %s", iterable.Kind)
	}
	saved := it.Env.Current()
	it.pushScratch(iterable.Items)
	frameID := it.Env.PushChild()
	it.popScratch()
	if err := ins.push(Instruction{Op: OpPopEnv, EnvID: saved}); err != nil {
		return err
	}
	return it.forAdvance(instr.Name, iterable.Items, instr.Body, frameID, ins, data)
}

func (it *Interpreter) stepForStep(instr Instruction, ins *insStack, data *dataStack) error {
	return it.forAdvance(instr.Name, instr.Items, instr.Body, instr.EnvID, ins, data)
}

// forAdvance binds the next element of items (if any) into frameID and
// queues its iteration of body, followed by an OpForStep continuation
// for the remaining elements. Exhausting items swaps the last
// iteration's sentinel for Null — the whole form's result — and lets
// whatever runs below this loop on the instruction stack (ultimately
// the OpPopEnv stepForSetup already queued) continue.
func (it *Interpreter) forAdvance(name string, items []Value, body []Value, frameID int, ins *insStack, data *dataStack) error {
	if len(items) == 0 {
		if _, err := data.pop(); err != nil {
			return err
		}
		data.push(Null)
		return nil
	}
	item, rest := items[0], items[1:]
	if _, err := data.pop(); err != nil {
		return err
	}
	if err := it.Env.Bind(frameID, name, item); err != nil {
		return err
	}
	if err := ins.push(Instruction{Op: OpForStep, Name: name, Items: rest, Body: body, EnvID: frameID}); err != nil {
		return err
	}
	return pushSequence(ins, body)
}

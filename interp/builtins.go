package interp

import (
	"fmt"
	"os"
)

// InstallStdlib registers the core builtin procedures every Pongascript
// program gets for free. New calls this once per fresh Interpreter;
// cmd/pong then layers its own filesystem-backed builtins (load, etc.)
// on top via RegisterBuiltin.
func InstallStdlib(it *Interpreter) {
	it.RegisterBuiltin("car", builtinCar)
	it.RegisterBuiltin("cdr", builtinCdr)
	it.RegisterBuiltin("cons", builtinCons)
	it.RegisterBuiltin("null?", builtinIsNull)
	it.RegisterBuiltin("list?", builtinIsList)
	it.RegisterBuiltin("pair?", builtinIsPair)
	it.RegisterBuiltin("number?", builtinIsNumber)
	it.RegisterBuiltin("procedure?", builtinIsProcedure)

	it.RegisterBuiltin("+", arith(Number.Add))
	it.RegisterBuiltin("-", arith(Number.Sub))
	it.RegisterBuiltin("*", arith(Number.Mul))
	it.RegisterBuiltin("/", arithErr(Number.Div))
	it.RegisterBuiltin("modulo", arithErr(Number.Modulo))

	it.RegisterBuiltin("=", compare(func(c int) bool { return c == 0 }))
	it.RegisterBuiltin("<", compare(func(c int) bool { return c < 0 }))
	it.RegisterBuiltin("<=", compare(func(c int) bool { return c <= 0 }))
	it.RegisterBuiltin(">", compare(func(c int) bool { return c > 0 }))
	it.RegisterBuiltin(">=", compare(func(c int) bool { return c >= 0 }))

	it.RegisterBuiltin("sqrt", builtinSqrt)
	it.RegisterBuiltin("floor", builtinFloor)
	it.RegisterBuiltin("ceiling", builtinCeiling)

	it.RegisterBuiltin("vector->list", builtinVectorToList)
	it.RegisterBuiltin("list->vector", builtinListToVector)

	it.RegisterBuiltin("equal?", builtinEqual)
	it.RegisterBuiltin("eqv?", builtinEqv)
	it.RegisterBuiltin("not", builtinNot)

	it.RegisterBuiltin("display", builtinDisplay)
}

func arityError(name string, want, got int) error {
	return newError(KindArity, "%s: expected %d argument(s), got %d", name, want, got)
}

func typeError(name, expected string, v Value) error {
	return newError(KindType, "%s: expected %s, got %s", name, expected, v.Kind)
}

// oneArg validates a single-argument builtin call and reads the
// argument through the heap: Ref arguments arrive as Refs, never
// pre-dereferenced.
func oneArg(it *Interpreter, name string, args []Value) (Value, error) {
	if len(args) != 1 {
		return Value{}, arityError(name, 1, len(args))
	}
	return it.Deref(args[0])
}

func builtinCar(it *Interpreter, args []Value) (Value, error) {
	v, err := oneArg(it, "car", args)
	if err != nil {
		return Value{}, err
	}
	if v.Kind != KList && v.Kind != KArray {
		return Value{}, typeError("car", "a list or array", v)
	}
	if len(v.Items) == 0 {
		return Value{}, newError(KindType, "car: empty %s", v.Kind)
	}
	return v.Items[0], nil
}

func builtinCdr(it *Interpreter, args []Value) (Value, error) {
	v, err := oneArg(it, "cdr", args)
	if err != nil {
		return Value{}, err
	}
	if v.Kind != KList && v.Kind != KArray {
		return Value{}, typeError("cdr", "a list or array", v)
	}
	if len(v.Items) == 0 {
		return Value{}, newError(KindType, "cdr: empty %s", v.Kind)
	}
	rest := make([]Value, len(v.Items)-1)
	copy(rest, v.Items[1:])
	if v.Kind == KArray {
		return ArrayValue(rest), nil
	}
	return ListValue(rest), nil
}

func builtinCons(it *Interpreter, args []Value) (Value, error) {
	if len(args) != 2 {
		return Value{}, arityError("cons", 2, len(args))
	}
	head := args[0]
	tail, err := it.Deref(args[1])
	if err != nil {
		return Value{}, err
	}
	switch tail.Kind {
	case KList:
		items := append([]Value{head}, tail.Items...)
		return ListValue(items), nil
	case KNull:
		return ListValue([]Value{head}), nil
	default:
		return Value{}, typeError("cons", "a list or '()", tail)
	}
}

func builtinIsNull(it *Interpreter, args []Value) (Value, error) {
	v, err := oneArg(it, "null?", args)
	if err != nil {
		return Value{}, err
	}
	if v.IsNull() {
		return True, nil
	}
	if (v.Kind == KList || v.Kind == KArray) && len(v.Items) == 0 {
		return True, nil
	}
	return False, nil
}

func builtinIsList(it *Interpreter, args []Value) (Value, error) {
	v, err := oneArg(it, "list?", args)
	if err != nil {
		return Value{}, err
	}
	return Bool(v.Kind == KList || v.IsNull()), nil
}

func builtinIsPair(it *Interpreter, args []Value) (Value, error) {
	v, err := oneArg(it, "pair?", args)
	if err != nil {
		return Value{}, err
	}
	return Bool((v.Kind == KList || v.Kind == KArray) && len(v.Items) > 0), nil
}

func builtinIsNumber(it *Interpreter, args []Value) (Value, error) {
	v, err := oneArg(it, "number?", args)
	if err != nil {
		return Value{}, err
	}
	return Bool(v.Kind == KNumber), nil
}

func builtinIsProcedure(it *Interpreter, args []Value) (Value, error) {
	v, err := oneArg(it, "procedure?", args)
	if err != nil {
		return Value{}, err
	}
	return Bool(v.IsFunc()), nil
}

// numericArgs reads every argument through the heap and checks each is a
// Number, shared by the arithmetic and comparison builtins.
func numericArgs(it *Interpreter, what string, args []Value) ([]Number, error) {
	nums := make([]Number, len(args))
	for i, a := range args {
		v, err := it.Deref(a)
		if err != nil {
			return nil, err
		}
		n, ok := v.AsNumber()
		if !ok {
			return nil, typeError(what, "a number", v)
		}
		nums[i] = n
	}
	return nums, nil
}

// arith builds a variadic left-fold builtin over op (+, -, *), requiring
// at least one numeric argument.
func arith(op func(a, b Number) Number) BuiltinFunc {
	return func(it *Interpreter, args []Value) (Value, error) {
		if len(args) == 0 {
			return Value{}, newError(KindArity, "expected at least 1 argument, got 0")
		}
		nums, err := numericArgs(it, "arithmetic", args)
		if err != nil {
			return Value{}, err
		}
		acc := nums[0]
		for _, n := range nums[1:] {
			acc = op(acc, n)
		}
		return NumberValue(acc), nil
	}
}

// arithErr is like arith but for operators (/, modulo) that can fail,
// e.g. on division by zero.
func arithErr(op func(a, b Number) (Number, error)) BuiltinFunc {
	return func(it *Interpreter, args []Value) (Value, error) {
		if len(args) < 2 {
			return Value{}, newError(KindArity, "expected at least 2 arguments, got %d", len(args))
		}
		nums, err := numericArgs(it, "arithmetic", args)
		if err != nil {
			return Value{}, err
		}
		acc := nums[0]
		for _, n := range nums[1:] {
			r, err := op(acc, n)
			if err != nil {
				return Value{}, newError(KindArithmetic, "%v", err)
			}
			acc = r
		}
		return NumberValue(acc), nil
	}
}

func compare(pred func(c int) bool) BuiltinFunc {
	return func(it *Interpreter, args []Value) (Value, error) {
		if len(args) < 2 {
			return Value{}, newError(KindArity, "expected at least 2 arguments, got %d", len(args))
		}
		nums, err := numericArgs(it, "comparison", args)
		if err != nil {
			return Value{}, err
		}
		for i := 0; i < len(nums)-1; i++ {
			if !pred(nums[i].Compare(nums[i+1])) {
				return False, nil
			}
		}
		return True, nil
	}
}

func numArg(it *Interpreter, name string, args []Value) (Number, error) {
	v, err := oneArg(it, name, args)
	if err != nil {
		return Number{}, err
	}
	if v.Kind != KNumber {
		return Number{}, typeError(name, "a number", v)
	}
	return v.Num, nil
}

func builtinSqrt(it *Interpreter, args []Value) (Value, error) {
	n, err := numArg(it, "sqrt", args)
	if err != nil {
		return Value{}, err
	}
	return NumberValue(n.Sqrt()), nil
}

func builtinFloor(it *Interpreter, args []Value) (Value, error) {
	n, err := numArg(it, "floor", args)
	if err != nil {
		return Value{}, err
	}
	return NumberValue(n.Floor()), nil
}

func builtinCeiling(it *Interpreter, args []Value) (Value, error) {
	n, err := numArg(it, "ceiling", args)
	if err != nil {
		return Value{}, err
	}
	return NumberValue(n.Ceiling()), nil
}

func builtinVectorToList(it *Interpreter, args []Value) (Value, error) {
	v, err := oneArg(it, "vector->list", args)
	if err != nil {
		return Value{}, err
	}
	if v.Kind != KArray {
		return Value{}, typeError("vector->list", "an array", v)
	}
	items := make([]Value, len(v.Items))
	copy(items, v.Items)
	return ListValue(items), nil
}

func builtinListToVector(it *Interpreter, args []Value) (Value, error) {
	v, err := oneArg(it, "list->vector", args)
	if err != nil {
		return Value{}, err
	}
	if v.Kind != KList {
		return Value{}, typeError("list->vector", "a list", v)
	}
	items := make([]Value, len(v.Items))
	copy(items, v.Items)
	return ArrayValue(items), nil
}

// deepEqual compares two values structurally, reading through Refs at
// every level: the data stack carries collected containers behind Refs,
// and their elements may themselves be promoted bindings.
func (it *Interpreter) deepEqual(a, b Value) bool {
	var err error
	if a, err = it.Deref(a); err != nil {
		return false
	}
	if b, err = it.Deref(b); err != nil {
		return false
	}
	if a.Kind == KNumber && b.Kind == KNumber {
		return a.Num.Eq(b.Num)
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KNull, KTrue, KFalse:
		return true
	case KChar:
		return a.Ch == b.Ch
	case KString, KSymbol, KIdentifier:
		return a.Str == b.Str
	case KArray, KList, KSexpr:
		if len(a.Items) != len(b.Items) {
			return false
		}
		for i := range a.Items {
			if !it.deepEqual(a.Items[i], b.Items[i]) {
				return false
			}
		}
		return true
	case KObject:
		if len(a.Fields) != len(b.Fields) {
			return false
		}
		// Field order carries no meaning: match each key of a by name.
		for _, fa := range a.Fields {
			found := false
			for _, fb := range b.Fields {
				if fa.Key == fb.Key {
					found = it.deepEqual(fa.Val, fb.Val)
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	case KHFunc:
		return a.Handle == b.Handle
	default:
		return false
	}
}

func builtinEqual(it *Interpreter, args []Value) (Value, error) {
	if len(args) != 2 {
		return Value{}, arityError("equal?", 2, len(args))
	}
	return Bool(it.deepEqual(args[0], args[1])), nil
}

// builtinEqv is eqv? — two Refs naming the same heap cell are eqv?
// without looking at the payload; everything else falls through to the
// same structural comparison equal? uses. A freshly built list and a
// freshly built vector carrying the same elements are eqv?, so eqv?
// cannot simply report false on distinct cells — it reads through
// them.
func builtinEqv(it *Interpreter, args []Value) (Value, error) {
	if len(args) != 2 {
		return Value{}, arityError("eqv?", 2, len(args))
	}
	a, b := args[0], args[1]
	if a.Kind == KRef && b.Kind == KRef && a.Ref == b.Ref {
		return True, nil
	}
	return Bool(it.deepEqual(a, b)), nil
}

func builtinNot(it *Interpreter, args []Value) (Value, error) {
	if len(args) != 1 {
		return Value{}, arityError("not", 1, len(args))
	}
	return Bool(!args[0].Truthy()), nil
}

// builtinDisplay writes each argument to the interpreter's Stdout,
// resolving Refs through the heap while rendering, and returns Null.
func builtinDisplay(it *Interpreter, args []Value) (Value, error) {
	out := it.Stdout
	if out == nil {
		out = os.Stdout
	}
	for _, a := range args {
		fmt.Fprintln(out, Display(a, it.resolveRef))
	}
	return Null, nil
}

func (it *Interpreter) resolveRef(id int) (Value, bool) {
	h, err := it.Heap.Get(id)
	if err != nil {
		return Value{}, false
	}
	v := h.Value()
	h.Release()
	return v, true
}

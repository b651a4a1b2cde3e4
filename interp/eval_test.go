package interp

import "testing"

func ident(s string) Value { return IdentifierValue(s) }

func num(n int64) Value { return NumberValue(Int(n)) }

func sx(items ...Value) Value { return SexprValue(items) }

func mustEval(t *testing.T, it *Interpreter, v Value) Value {
	t.Helper()
	r, err := it.Eval(v)
	if err != nil {
		t.Fatalf("eval error: %v", err)
	}
	return r
}

func TestArithmeticAndComparison(t *testing.T) {
	it := New(Options{})
	r := mustEval(t, it, sx(ident("+"), num(1), num(2), num(3)))
	if r.Num.I != 6 {
		t.Fatalf("(+ 1 2 3) = %v, want 6", r)
	}
	r = mustEval(t, it, sx(ident("<"), num(1), num(2)))
	if r.Kind != KTrue {
		t.Fatalf("(< 1 2) = %v, want #t", r)
	}
}

func TestDivisionByZeroRaisesArithmeticError(t *testing.T) {
	it := New(Options{})
	_, err := it.Eval(sx(ident("/"), num(1), num(0)))
	if err == nil {
		t.Fatal("expected an error")
	}
	ie, ok := err.(*Error)
	if !ok || ie.Kind != KindArithmetic {
		t.Fatalf("got %v, want ArithmeticError", err)
	}
}

func TestIfBranches(t *testing.T) {
	it := New(Options{})
	r := mustEval(t, it, sx(ident("if"), True, num(1), num(2)))
	if r.Num.I != 1 {
		t.Fatalf("got %v, want 1", r)
	}
	r = mustEval(t, it, sx(ident("if"), False, num(1), num(2)))
	if r.Num.I != 2 {
		t.Fatalf("got %v, want 2", r)
	}
}

func TestDefineAndSet(t *testing.T) {
	it := New(Options{})
	mustEval(t, it, sx(ident("define"), ident("x"), num(10)))
	r := mustEval(t, it, ident("x"))
	if r.Num.I != 10 {
		t.Fatalf("x = %v, want 10", r)
	}
	mustEval(t, it, sx(ident("set!"), ident("x"), num(20)))
	r = mustEval(t, it, ident("x"))
	if r.Num.I != 20 {
		t.Fatalf("x = %v, want 20", r)
	}
}

func TestSetUndefinedIsReferenceErrorEndToEnd(t *testing.T) {
	it := New(Options{})
	_, err := it.Eval(sx(ident("set!"), ident("nope"), num(1)))
	ie, ok := err.(*Error)
	if !ok || ie.Kind != KindReference {
		t.Fatalf("got %v, want ReferenceError", err)
	}
}

func TestLambdaDefineAndCall(t *testing.T) {
	it := New(Options{})
	// (define add (lambda (a b) (+ a b)))
	mustEval(t, it, sx(ident("define"), ident("add"),
		sx(ident("lambda"), sx(ident("a"), ident("b")), sx(ident("+"), ident("a"), ident("b")))))
	r := mustEval(t, it, sx(ident("add"), num(3), num(4)))
	if r.Num.I != 7 {
		t.Fatalf("(add 3 4) = %v, want 7", r)
	}
}

func TestClosureOverMutationCounter(t *testing.T) {
	it := New(Options{})
	// (define make-counter
	//   (lambda () (let ((n 0)) (lambda () (begin (set! n (+ n 1)) n)))))
	innerLambda := sx(ident("lambda"), sx(),
		sx(ident("begin"),
			sx(ident("set!"), ident("n"), sx(ident("+"), ident("n"), num(1))),
			ident("n")))
	letForm := sx(ident("let"), sx(sx(ident("n"), num(0))), innerLambda)
	makeCounter := sx(ident("lambda"), sx(), letForm)

	mustEval(t, it, sx(ident("define"), ident("make-counter"), makeCounter))
	mustEval(t, it, sx(ident("define"), ident("counter"), sx(ident("make-counter"))))

	r := mustEval(t, it, sx(ident("counter")))
	if r.Num.I != 1 {
		t.Fatalf("first call = %v, want 1", r)
	}
	r = mustEval(t, it, sx(ident("counter")))
	if r.Num.I != 2 {
		t.Fatalf("second call = %v, want 2 (state must persist across calls)", r)
	}
}

func TestWhileLoop(t *testing.T) {
	it := New(Options{})
	mustEval(t, it, sx(ident("define"), ident("i"), num(0)))
	mustEval(t, it, sx(ident("define"), ident("acc"), num(0)))
	mustEval(t, it, sx(ident("while"), sx(ident("<"), ident("i"), num(5)),
		sx(ident("set!"), ident("acc"), sx(ident("+"), ident("acc"), ident("i"))),
		sx(ident("set!"), ident("i"), sx(ident("+"), ident("i"), num(1)))))
	r := mustEval(t, it, ident("acc"))
	if r.Num.I != 10 {
		t.Fatalf("acc = %v, want 10 (0+1+2+3+4)", r)
	}
}

func TestForInSum(t *testing.T) {
	it := New(Options{})
	mustEval(t, it, sx(ident("define"), ident("total"), num(0)))
	list := ListValue([]Value{num(1), num(2), num(3), num(4)})
	mustEval(t, it, sx(ident("define"), ident("xs"), sx(ident("quote"), list)))
	mustEval(t, it, sx(ident("for"), ident("x"), ident("in"), ident("xs"),
		sx(ident("set!"), ident("total"), sx(ident("+"), ident("total"), ident("x")))))
	r := mustEval(t, it, ident("total"))
	if r.Num.I != 10 {
		t.Fatalf("total = %v, want 10", r)
	}
}

func TestVectorListRoundtrip(t *testing.T) {
	it := New(Options{})
	arr := ArrayValue([]Value{num(1), num(2), num(3)})
	lst := mustEval(t, it, sx(ident("vector->list"), sx(ident("quote"), arr)))
	if lst.Kind != KList || len(lst.Items) != 3 {
		t.Fatalf("vector->list gave %v", lst)
	}
	back := mustEval(t, it, sx(ident("list->vector"), sx(ident("quote"), lst)))
	if back.Kind != KArray || len(back.Items) != 3 {
		t.Fatalf("list->vector gave %v", back)
	}
}

func TestDeepNestedSexprNoHostOverflow(t *testing.T) {
	it := New(Options{MaxStackSize: 1_000_000})
	// Build (+ 1 (+ 1 (+ 1 ... 0))) nested 5000 deep.
	v := num(0)
	const depth = 5000
	for i := 0; i < depth; i++ {
		v = sx(ident("+"), num(1), v)
	}
	r, err := it.Eval(v)
	if err != nil {
		t.Fatalf("deep nesting failed: %v", err)
	}
	if r.Num.I != depth {
		t.Fatalf("got %v, want %d", r, depth)
	}
}

func TestStackOverflowIsReported(t *testing.T) {
	it := New(Options{MaxStackSize: 16})
	v := num(0)
	for i := 0; i < 1000; i++ {
		v = sx(ident("+"), num(1), v)
	}
	_, err := it.Eval(v)
	if err == nil {
		t.Fatal("expected a StackOverflow error")
	}
	ie, ok := err.(*Error)
	if !ok || ie.Kind != KindStackOverflow {
		t.Fatalf("got %v, want StackOverflow", err)
	}
}

func TestListLiteralCollectsToHeapRef(t *testing.T) {
	it := New(Options{})
	r := mustEval(t, it, ListValue([]Value{num(1), num(2), num(3)}))
	if r.Kind != KRef {
		t.Fatalf("a list literal should evaluate to a heap Ref, got %v", r.Kind)
	}
	inner, err := it.Deref(r)
	if err != nil {
		t.Fatal(err)
	}
	if inner.Kind != KList || len(inner.Items) != 3 {
		t.Fatalf("ref target = %v", inner)
	}
}

func TestIdentifierPromotionSharesIdentity(t *testing.T) {
	it := New(Options{})
	lst := ListValue([]Value{num(1), num(2)})
	mustEval(t, it, sx(ident("define"), ident("xs"), sx(ident("quote"), lst)))

	r1 := mustEval(t, it, ident("xs"))
	r2 := mustEval(t, it, ident("xs"))
	if r1.Kind != KRef || r2.Kind != KRef {
		t.Fatalf("reads of a non-copy binding should yield Refs, got %v and %v", r1.Kind, r2.Kind)
	}
	if r1.Ref != r2.Ref {
		t.Fatalf("both reads should share one heap cell, got %d and %d", r1.Ref, r2.Ref)
	}
}

func TestDefineFunctionSugar(t *testing.T) {
	it := New(Options{})
	// (define (add a b) (+ a b))
	mustEval(t, it, sx(ident("define"),
		sx(ident("add"), ident("a"), ident("b")),
		sx(ident("+"), ident("a"), ident("b"))))
	r := mustEval(t, it, sx(ident("add"), num(3), num(4)))
	if r.Num.I != 7 {
		t.Fatalf("(add 3 4) = %v, want 7", r)
	}
}

func TestDefineFunctionSugarMultiBody(t *testing.T) {
	it := New(Options{})
	mustEval(t, it, sx(ident("define"), ident("hits"), num(0)))
	// (define (bump x) (set! hits (+ hits 1)) (+ x 1))
	mustEval(t, it, sx(ident("define"),
		sx(ident("bump"), ident("x")),
		sx(ident("set!"), ident("hits"), sx(ident("+"), ident("hits"), num(1))),
		sx(ident("+"), ident("x"), num(1))))
	r := mustEval(t, it, sx(ident("bump"), num(41)))
	if r.Num.I != 42 {
		t.Fatalf("(bump 41) = %v, want 42", r)
	}
	if got := mustEval(t, it, ident("hits")); got.Num.I != 1 {
		t.Fatalf("hits = %v, want 1", got)
	}
}

func TestMFuncReceivesUnevaluatedArguments(t *testing.T) {
	it := New(Options{})
	// An MFunc whose body just reads its parameter back: the caller's
	// argument form must arrive as raw syntax, not as its value.
	bodyID := it.Heap.Allocate(ident("x"))
	if err := it.Env.Define("grab", MFuncValue([]string{"x"}, bodyID)); err != nil {
		t.Fatal(err)
	}
	r := mustEval(t, it, sx(ident("grab"), sx(ident("+"), num(1), num(2))))
	inner, err := it.Deref(r)
	if err != nil {
		t.Fatal(err)
	}
	if inner.Kind != KSexpr || len(inner.Items) != 3 {
		t.Fatalf("grab should see the raw (+ 1 2) form, got %v", inner)
	}
}

func TestAndOrShortCircuit(t *testing.T) {
	it := New(Options{})
	if r := mustEval(t, it, sx(ident("and"), num(1), num(2), num(3))); r.Num.I != 3 {
		t.Fatalf("(and 1 2 3) = %v, want 3", r)
	}
	// The call to the unbound identifier must never be evaluated.
	if r := mustEval(t, it, sx(ident("and"), False, sx(ident("boom")))); r.Kind != KFalse {
		t.Fatalf("(and #f (boom)) = %v, want #f", r)
	}
	if r := mustEval(t, it, sx(ident("or"), False, num(5))); r.Num.I != 5 {
		t.Fatalf("(or #f 5) = %v, want 5", r)
	}
	if r := mustEval(t, it, sx(ident("or"), num(5), sx(ident("boom")))); r.Num.I != 5 {
		t.Fatalf("(or 5 (boom)) = %v, want 5", r)
	}
	if r := mustEval(t, it, sx(ident("and"))); r.Kind != KTrue {
		t.Fatalf("(and) = %v, want #t", r)
	}
	if r := mustEval(t, it, sx(ident("or"))); r.Kind != KFalse {
		t.Fatalf("(or) = %v, want #f", r)
	}
}

func TestQuoteSuppressesEvaluation(t *testing.T) {
	it := New(Options{})
	r := mustEval(t, it, sx(ident("quote"), sx(ident("+"), num(1), num(2))))
	if r.Kind != KSexpr || len(r.Items) != 3 {
		t.Fatalf("quote should return the raw Sexpr, got %v", r)
	}
}

func TestEuler3LargestPrimeFactor(t *testing.T) {
	it := New(Options{MaxStackSize: 1_000_000})
	// Largest prime factor of 600851475143 computed by repeated trial
	// division using while/set!.
	mustEval(t, it, sx(ident("define"), ident("n"), num(600851475143)))
	mustEval(t, it, sx(ident("define"), ident("d"), num(2)))
	mustEval(t, it, sx(ident("define"), ident("largest"), num(1)))
	mustEval(t, it, sx(ident("while"), sx(ident(">"), ident("n"), num(1)),
		sx(ident("while"), sx(ident("="), sx(ident("modulo"), ident("n"), ident("d")), num(0)),
			sx(ident("set!"), ident("n"), sx(ident("/"), ident("n"), ident("d"))),
			sx(ident("set!"), ident("largest"), ident("d"))),
		sx(ident("set!"), ident("d"), sx(ident("+"), ident("d"), num(1)))))
	r := mustEval(t, it, ident("largest"))
	if r.Num.I != 6857 {
		t.Fatalf("largest prime factor = %v, want 6857", r)
	}
}

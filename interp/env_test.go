package interp

import "testing"

func TestDefineGoesToRootRegardlessOfDepth(t *testing.T) {
	h := NewHeap(0)
	e := NewEnv(h)
	child := e.PushChild()
	e.SetCurrent(child)

	if err := e.Define("x", NumberValue(Int(1))); err != nil {
		t.Fatal(err)
	}

	rh, err := h.Get(e.Root())
	if err != nil {
		t.Fatal(err)
	}
	defer rh.Release()
	if _, ok := rh.Frame().Bindings["x"]; !ok {
		t.Fatal("define should have bound x in the root frame")
	}
}

func TestGetWalksOuterChain(t *testing.T) {
	h := NewHeap(0)
	e := NewEnv(h)
	if err := e.Define("x", NumberValue(Int(1))); err != nil {
		t.Fatal(err)
	}
	child := e.PushChild()
	e.SetCurrent(child)

	v, err := e.Get("x")
	if err != nil {
		t.Fatal(err)
	}
	if v.Num.I != 1 {
		t.Fatalf("got %v, want 1", v)
	}
}

func TestPopReturnsToOuterAndFailsAtRoot(t *testing.T) {
	h := NewHeap(0)
	e := NewEnv(h)
	root := e.Current()
	e.PushChild()
	if err := e.Pop(); err != nil {
		t.Fatal(err)
	}
	if e.Current() != root {
		t.Fatalf("current = %d after pop, want root %d", e.Current(), root)
	}
	if err := e.Pop(); err == nil {
		t.Fatal("popping the root frame should fail")
	}
}

func TestSetUndefinedIsReferenceError(t *testing.T) {
	h := NewHeap(0)
	e := NewEnv(h)
	err := e.Set("nope", NumberValue(Int(1)))
	if err == nil {
		t.Fatal("expected an error")
	}
	ie, ok := err.(*Error)
	if !ok || ie.Kind != KindReference {
		t.Fatalf("got %v, want a ReferenceError", err)
	}
}

func TestSetMutatesNearestBinding(t *testing.T) {
	h := NewHeap(0)
	e := NewEnv(h)
	if err := e.Define("x", NumberValue(Int(1))); err != nil {
		t.Fatal(err)
	}
	child := e.PushChild()
	e.Bind(child, "x", NumberValue(Int(2)))

	if err := e.Set("x", NumberValue(Int(3))); err != nil {
		t.Fatal(err)
	}
	v, _ := e.Get("x")
	if v.Num.I != 3 {
		t.Fatalf("got %v, want 3 (nearest binding should shadow root)", v)
	}
	rootH, _ := h.Get(e.Root())
	defer rootH.Release()
	if rootH.Frame().Bindings["x"].Num.I != 1 {
		t.Fatal("set! should not have touched the shadowed root binding")
	}
}

func TestSnapshotIsNearestFirstDeduplicated(t *testing.T) {
	h := NewHeap(0)
	e := NewEnv(h)
	if err := e.Define("x", NumberValue(Int(1))); err != nil {
		t.Fatal(err)
	}
	child := e.PushChild()
	e.Bind(child, "x", NumberValue(Int(2)))
	e.Bind(child, "y", NumberValue(Int(9)))

	snap, err := e.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	seen := map[string]Value{}
	for _, entry := range snap {
		if _, ok := seen[entry.Key]; ok {
			t.Fatalf("snapshot lists %q more than once", entry.Key)
		}
		seen[entry.Key] = entry.Val
	}
	if seen["x"].Num.I != 2 {
		t.Fatalf("snapshot x = %v, want the shadowing value 2", seen["x"])
	}
	if seen["y"].Num.I != 9 {
		t.Fatalf("snapshot y = %v, want 9", seen["y"])
	}
}

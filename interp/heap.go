package interp

import "time"

// defaultGCInterval is the default opportunistic collection interval:
// allocations and takes check it and collect when it has elapsed.
const defaultGCInterval = 5 * time.Second

// marker is a cell's mark-sweep state. ChildrenNotSeen flags a cell
// whose own mark is set but whose children are still being traced,
// which is what makes cyclic structures safe to walk.
type marker uint8

const (
	markUnseen marker = iota
	markChildrenNotSeen
	markSeen
)

// borrowKind is which of Free/Shared(n)/Unique a cell's borrow state
// is in.
type borrowKind uint8

const (
	borrowFree borrowKind = iota
	borrowShared
	borrowUnique
)

type borrowState struct {
	kind borrowKind
	n    int // valid only when kind == borrowShared; always >= 1
}

// cell is one managed heap slot. Its payload is either a Value or a
// *Frame — the heap is shared between the two because both need
// identity, mark-sweep tracing, and the same borrow discipline.
type cell struct {
	id      int
	payload any
	mark    marker
	borrow  borrowState
}

func (c *cell) traceRefs(visit func(int)) {
	switch p := c.payload.(type) {
	case Value:
		p.traceRefs(visit)
	case *Frame:
		p.traceRefs(visit)
	}
}

// Heap is the managed heap backing all non-copy Pongascript values and
// all environment frames: monotone-id cells, per-cell borrow state, and
// mark-and-sweep collection.
type Heap struct {
	cells      map[int]*cell
	nextID     int
	lastGC     time.Time
	gcInterval time.Duration

	// rootsFn, once set by an owning Interpreter (see
	// Interpreter.gcRoots), lets Allocate/AllocateFrame/Take each
	// trigger a collection themselves instead of only at a top-level
	// Eval boundary.
	rootsFn func() []int
}

// SetRootsFn installs the callback Allocate/AllocateFrame/Take use to
// find the collector's roots when a collection comes due. Called once
// by New after the Interpreter owning this heap exists.
func (h *Heap) SetRootsFn(fn func() []int) { h.rootsFn = fn }

// maybeCollect runs a collection if one is due and a root-producing
// callback has been installed. Heap tests construct a Heap directly
// without calling SetRootsFn, so rootsFn is nil there and this is a
// no-op, matching their expectation of manually driving Collect.
func (h *Heap) maybeCollect() {
	if h.rootsFn != nil && h.DueForCollection() {
		h.Collect(h.rootsFn())
	}
}

// NewHeap creates an empty heap. A zero or negative interval disables the
// opportunistic collection trigger (collection can still be forced via
// Heap.Collect).
func NewHeap(gcInterval time.Duration) *Heap {
	return &Heap{
		cells:      make(map[int]*cell),
		gcInterval: gcInterval,
		lastGC:     time.Now(),
	}
}

// Len reports the number of live cells. Used by tests asserting the
// heap settles to the live set after enough collections.
func (h *Heap) Len() int { return len(h.cells) }

func (h *Heap) allocate(payload any) int {
	id := h.nextID
	h.nextID++
	h.cells[id] = &cell{id: id, payload: payload}
	return id
}

// Allocate stores v and returns its new heap id, first running an
// opportunistic collection if one is due.
func (h *Heap) Allocate(v Value) int {
	h.maybeCollect()
	return h.allocate(v)
}

// AllocateFrame stores f and returns its new heap id, first running an
// opportunistic collection if one is due.
func (h *Heap) AllocateFrame(f *Frame) int {
	h.maybeCollect()
	return h.allocate(f)
}

// ReadHandle is a scoped read borrow on a heap cell. It must be
// released (via Release) before the instruction boundary ends: the
// heap has zero outstanding handles at every instruction boundary.
type ReadHandle struct {
	heap *Heap
	id   int
}

// Value returns the cell's payload as a Value. Panics if the cell does
// not hold a Value (a Frame read must use Frame instead) — this is a
// host programming error, not a language-level one.
func (h *ReadHandle) Value() Value {
	c := h.heap.cells[h.id]
	return c.payload.(Value)
}

// Frame returns the cell's payload as a *Frame.
func (h *ReadHandle) Frame() *Frame {
	c := h.heap.cells[h.id]
	return c.payload.(*Frame)
}

// Release drops the read borrow.
func (h *ReadHandle) Release() {
	c, ok := h.heap.cells[h.id]
	if !ok {
		return
	}
	if c.borrow.kind == borrowShared {
		if c.borrow.n <= 1 {
			c.borrow = borrowState{}
		} else {
			c.borrow.n--
		}
	}
}

// WriteHandle is a scoped, exclusive write borrow on a heap cell.
type WriteHandle struct {
	heap *Heap
	id   int
}

// Value returns the cell's current payload as a Value.
func (h *WriteHandle) Value() Value {
	return h.heap.cells[h.id].payload.(Value)
}

// Frame returns the cell's current payload as a *Frame.
func (h *WriteHandle) Frame() *Frame {
	return h.heap.cells[h.id].payload.(*Frame)
}

// SetValue replaces the cell's payload.
func (h *WriteHandle) SetValue(v Value) {
	h.heap.cells[h.id].payload = v
}

// Release drops the write borrow.
func (h *WriteHandle) Release() {
	if c, ok := h.heap.cells[h.id]; ok {
		c.borrow = borrowState{}
	}
}

// Get acquires a read handle on id. Fails with ReferenceError if the id
// is dead, and with Other ("not available") if the cell is currently
// held Unique.
func (h *Heap) Get(id int) (*ReadHandle, error) {
	c, ok := h.cells[id]
	if !ok {
		return nil, &Error{Kind: KindReference, Message: referenceNotFound(id)}
	}
	if c.borrow.kind == borrowUnique {
		return nil, &Error{Kind: KindOther, Message: "heap cell not available (held uniquely)"}
	}
	if c.borrow.kind == borrowShared {
		c.borrow.n++
	} else {
		c.borrow = borrowState{kind: borrowShared, n: 1}
	}
	return &ReadHandle{heap: h, id: id}, nil
}

// GetMut acquires a write handle on id. Fails with ReferenceError if the
// id is dead, and with Other ("not available") if the cell is currently
// borrowed at all.
func (h *Heap) GetMut(id int) (*WriteHandle, error) {
	c, ok := h.cells[id]
	if !ok {
		return nil, &Error{Kind: KindReference, Message: referenceNotFound(id)}
	}
	if c.borrow.kind != borrowFree {
		return nil, &Error{Kind: KindOther, Message: "heap cell not available (already borrowed)"}
	}
	c.borrow = borrowState{kind: borrowUnique}
	return &WriteHandle{heap: h, id: id}, nil
}

// Take removes id from the heap and returns its payload, transferring
// ownership to the caller. The id becomes dead until Reinsert restores
// it (used by the take-then-return pattern that mutates a value without
// holding a borrow handle across the mutation).
func (h *Heap) Take(id int) (any, error) {
	h.maybeCollect()
	c, ok := h.cells[id]
	if !ok {
		return nil, &Error{Kind: KindReference, Message: referenceNotFound(id)}
	}
	if c.borrow.kind != borrowFree {
		return nil, &Error{Kind: KindOther, Message: "heap cell not available (already borrowed)"}
	}
	delete(h.cells, id)
	return c.payload, nil
}

// Reinsert restores a previously-Taken id with a (possibly new) payload.
func (h *Heap) Reinsert(id int, payload any) {
	h.cells[id] = &cell{id: id, payload: payload}
}

func referenceNotFound(id int) string {
	return "reference " + itoa(id) + " not found"
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// DueForCollection reports whether the opportunistic GC interval has
// elapsed since the last collection.
func (h *Heap) DueForCollection() bool {
	if h.gcInterval <= 0 {
		return false
	}
	return time.Since(h.lastGC) > h.gcInterval
}

// Collect runs a full mark-and-sweep pass rooted at roots. Every cell
// reachable from a root is kept; every other cell is dropped.
// Surviving cells are reset to Unseen for the next cycle. Collect must
// only be called when no borrow handle is live anywhere in the
// interpreter — the evaluator enforces this by never suspending
// mid-instruction.
func (h *Heap) Collect(roots []int) {
	h.lastGC = time.Now()

	var mark func(id int)
	mark = func(id int) {
		c, ok := h.cells[id]
		if !ok || c.mark != markUnseen {
			return
		}
		c.mark = markChildrenNotSeen
		c.traceRefs(mark)
		c.mark = markSeen
	}
	for _, r := range roots {
		mark(r)
	}

	for id, c := range h.cells {
		if c.mark != markSeen {
			delete(h.cells, id)
		} else {
			c.mark = markUnseen
		}
	}
}

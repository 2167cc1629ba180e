// Package heap implements the reference-counted object heap and its
// incremental sweep (spec §4.5): a fixed-capacity slab of cells with a
// free-list of reclaimed slot indices, sized from a configured byte budget
// divided by a preset per-cell overhead.
//
// Grounded on the teacher's internal/interp/runtime/{refcount.go,pool.go}:
// increment/decrement-with-callback refcounting and pool-style slot reuse,
// generalized from object pooling to a full heap of handles.
package heap

import (
	"fmt"

	"github.com/loxiemachine/loxie/internal/value"
)

// Default per-cell overhead and budget, used to derive slot capacity
// (capacity = byteBudget / cellOverhead) when a Heap is created with
// NewDefault.
const (
	DefaultByteBudget = 1 << 20 // 1 MiB
	DefaultCellBytes  = 64
)

// CellTag discriminates the heap value union: Varchar, Instance, or Empty
// (spec §3).
type CellTag byte

const (
	CellEmpty CellTag = iota
	CellVarchar
	CellInstance
)

// Cell is one heap object: a tagged union plus its reference count. Per
// spec §3 the refcount is a signed 16-bit counter, initially 0.
type Cell struct {
	Tag      CellTag
	Text     string
	Fields   []value.Value
	RefCount int16
}

// Heap is the fixed-capacity object slab plus free-list described in spec
// §4.5. Invariant: live cells + len(freeList) + (capacity - highWater) ==
// capacity at all times; equivalently, highWater + len(freeList) never
// exceeds capacity after accounting for reused slots.
type Heap struct {
	cells     []Cell
	freeList  []int32
	capacity  int
	overhead  int
	budget    int
	liveCount int
}

// New creates a Heap whose capacity is budget/cellOverhead.
func New(budget, cellOverhead int) *Heap {
	if cellOverhead <= 0 {
		cellOverhead = DefaultCellBytes
	}
	slots := budget / cellOverhead
	if slots <= 0 {
		slots = 1
	}
	return &Heap{capacity: slots, overhead: cellOverhead, budget: budget}
}

// NewDefault creates a Heap using the package's default budget/overhead.
func NewDefault() *Heap { return New(DefaultByteBudget, DefaultCellBytes) }

// Capacity returns the maximum number of live cells the heap can hold.
func (h *Heap) Capacity() int { return h.capacity }

// LiveCount returns the number of cells currently allocated (not on the
// free list and not beyond the high-water mark).
func (h *Heap) LiveCount() int { return h.liveCount }

func (h *Heap) allocSlot() (int32, error) {
	if n := len(h.freeList); n > 0 {
		idx := h.freeList[n-1]
		h.freeList = h.freeList[:n-1]
		h.liveCount++
		return idx, nil
	}
	if len(h.cells) >= h.capacity {
		h.maybeSweep(nil)
		if len(h.freeList) > 0 {
			idx := h.freeList[len(h.freeList)-1]
			h.freeList = h.freeList[:len(h.freeList)-1]
			h.liveCount++
			return idx, nil
		}
		return 0, fmt.Errorf("heap: capacity %d exhausted", h.capacity)
	}
	h.cells = append(h.cells, Cell{})
	h.liveCount++
	return int32(len(h.cells) - 1), nil
}

// MakeVarchar allocates a new heap cell holding text and returns its
// handle, refcount initialized to 0 (spec §4.5).
func (h *Heap) MakeVarchar(text string) (int32, error) {
	idx, err := h.allocSlot()
	if err != nil {
		return value.NullRef, err
	}
	h.cells[idx] = Cell{Tag: CellVarchar, Text: text}
	return idx, nil
}

// MakeInstance allocates a new heap cell holding fieldCount Empty-valued
// fields, returning its handle (spec §4.4 MakeHeapObject).
func (h *Heap) MakeInstance(fieldCount int) (int32, error) {
	idx, err := h.allocSlot()
	if err != nil {
		return value.NullRef, err
	}
	h.cells[idx] = Cell{Tag: CellInstance, Fields: make([]value.Value, fieldCount)}
	return idx, nil
}

// Get returns the cell at handle, or an error if it is out of range.
func (h *Heap) Get(handle int32) (*Cell, error) {
	if handle < 0 || int(handle) >= len(h.cells) {
		return nil, fmt.Errorf("heap: invalid handle %d", handle)
	}
	return &h.cells[handle], nil
}

// Incref bumps the refcount of handle. A push of a HeapRef increments its
// target's refcount (spec §3 Lifecycles).
func (h *Heap) Incref(handle int32) {
	if handle == value.NullRef {
		return
	}
	if cell, err := h.Get(handle); err == nil {
		cell.RefCount++
	}
}

// Decref drops the refcount of handle. A pop of a HeapRef decrements it
// (spec §3 Lifecycles); the cell becomes sweep-eligible, not immediately
// freed, once its count reaches 0.
func (h *Heap) Decref(handle int32) {
	if handle == value.NullRef {
		return
	}
	if cell, err := h.Get(handle); err == nil && cell.RefCount > 0 {
		cell.RefCount--
	}
}

// maybeSweep is triggered when total per-cell overhead exceeds the budget
// (spec §4.5). liveRoots, when non-nil, is the set of handles still
// reachable from the operand stack; handles not passed are assumed to have
// already had their refcount maintained by push/pop and are swept purely
// by refcount.
func (h *Heap) maybeSweep(liveRoots []int32) {
	if len(h.cells)*h.overhead <= h.budget && len(h.cells) < h.capacity {
		return
	}
	h.Sweep(liveRoots)
}

// Sweep scans every cell, resets zero-refcount ones to Empty, and returns
// their slots to the free list (spec §4.5, §8 property 6).
func (h *Heap) Sweep(liveRoots []int32) int {
	protected := make(map[int32]bool, len(liveRoots))
	for _, r := range liveRoots {
		protected[r] = true
	}
	freed := 0
	for i := range h.cells {
		idx := int32(i)
		if h.cells[i].Tag == CellEmpty {
			continue
		}
		if protected[idx] {
			continue
		}
		if h.cells[i].RefCount <= 0 {
			h.cells[i] = Cell{}
			h.freeList = append(h.freeList, idx)
			h.liveCount--
			freed++
		}
	}
	return freed
}

// ForceReclaim runs a total reclamation of every cell regardless of
// refcount, used at engine shutdown (spec §4.5).
func (h *Heap) ForceReclaim() {
	for i := range h.cells {
		if h.cells[i].Tag != CellEmpty {
			h.cells[i] = Cell{}
			h.freeList = append(h.freeList, int32(i))
			h.liveCount--
		}
	}
}

// AllRefCountsZero reports whether every allocated cell's refcount is 0,
// the postcondition spec §8 property 6 checks after a program terminates.
func (h *Heap) AllRefCountsZero() bool {
	for i := range h.cells {
		if h.cells[i].Tag != CellEmpty && h.cells[i].RefCount != 0 {
			return false
		}
	}
	return true
}

package vm

import "github.com/loxiemachine/loxie/internal/heap"

// Config configures the engine explicitly — no package-level globals, per
// spec §9's "no global mutable state" note — matching the teacher's
// defaultStackCapacity/defaultFrameCapacity constants in vm_core.go.
type Config struct {
	StackCapacity int
	FrameCapacity int
	HeapBudget    int
	CellOverhead  int
}

// DefaultConfig returns the engine's documented defaults (spec §5: the
// operand stack and the heap are both bounded; exceeding either is a
// reported error rather than an unbounded allocation).
func DefaultConfig() Config {
	return Config{
		StackCapacity: 4096,
		FrameCapacity: 512,
		HeapBudget:    heap.DefaultByteBudget,
		CellOverhead:  heap.DefaultCellBytes,
	}
}

package vm

import "github.com/loxiemachine/loxie/internal/value"

// Frame is the spec's call frame: (caller_id, return_ip, saved_rbp,
// instance_handle_or_-1). Arguments for the callee reside on the operand
// stack at rbp+i; the instance (for InstanceCall/a constructor's own
// MakeHeapObject) is carried as an auxiliary field rather than an extra
// argument slot (spec §9 OQ2).
type Frame struct {
	CallerID int
	ReturnIP int
	SavedRBP int
	Instance int32
}

const noInstance = value.NullRef

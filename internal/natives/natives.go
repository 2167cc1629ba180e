// Package natives implements the foreign-native-function boundary (spec
// §6): a registry of natives identified by name with a fixed arity, plus
// the concrete string and I/O bundle the original Rust prototype shipped
// (SPEC_FULL.md §11.1, grounded on original_source's utils/bundle.rs,
// loxie_stdio.rs, and loxie_varchar.rs).
//
// A native reads its arguments off the VM's operand stack (top = last
// argument, spec §6) and must leave the stack balanced by net +1: it pushes
// exactly one result. The registry is a plain borrowed value, never a
// singleton (spec §9).
package natives

import (
	"bufio"
	"fmt"
	"io"

	"github.com/loxiemachine/loxie/internal/heap"
	"github.com/loxiemachine/loxie/internal/value"
)

// Brief is the spec's NativeBrief: a native's id and declared arity.
type Brief struct {
	ID    int
	Arity int
}

// Func is a native implementation. It is handed the engine's Stack
// interface rather than the concrete VM type, so this package never
// imports internal/vm (avoiding a cycle: vm imports natives to look up
// Briefs by id).
type Func func(s Stack) error

// Stack is the minimal operand-stack and heap surface a native needs: pop
// its arguments (in declaration order, top = last argument), push its
// single result, and allocate heap strings (spec §6 native protocol).
type Stack interface {
	Pop() (value.Value, error)
	Push(value.Value)
	Heap() *heap.Heap
}

type entry struct {
	name  string
	brief Brief
	fn    Func
}

// Bundle is a registry of natives keyed by name, implementing
// semantic.NativeLookup and providing id-indexed dispatch for the VM.
type Bundle struct {
	byName map[string]int
	byID   []entry
	out    io.Writer
	in     *bufio.Reader
}

// NewBundle creates a Bundle with the standard string and I/O natives
// registered, writing to out and reading from in.
func NewBundle(out io.Writer, in io.Reader) *Bundle {
	b := &Bundle{byName: make(map[string]int), out: out, in: bufio.NewReader(in)}
	registerStrings(b)
	registerIO(b)
	return b
}

func (b *Bundle) register(name string, arity int, fn Func) {
	id := len(b.byID)
	b.byID = append(b.byID, entry{name: name, brief: Brief{ID: id, Arity: arity}, fn: fn})
	b.byName[name] = id
}

// Lookup implements semantic.NativeLookup.
func (b *Bundle) Lookup(name string) (arity int, id int, ok bool) {
	id, ok = b.byName[name]
	if !ok {
		return 0, 0, false
	}
	return b.byID[id].brief.Arity, id, true
}

// Brief returns the Brief for a registered native id.
func (b *Bundle) Brief(id int) Brief { return b.byID[id].brief }

// Call invokes the native at id against s.
func (b *Bundle) Call(id int, s Stack) error {
	if id < 0 || id >= len(b.byID) {
		return fmt.Errorf("natives: unknown native id %d", id)
	}
	return b.byID[id].fn(s)
}

// Count returns the number of registered natives.
func (b *Bundle) Count() int { return len(b.byID) }

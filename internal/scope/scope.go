// Package scope implements the lexical scope stack and per-class blueprint
// tables used by the semantic analyzer (spec §3, §4.1).
//
// Grounded on the teacher's internal/semantic/symbol_table.go: a slice of
// stacked scope maps with push/pop, plus a separate table keyed by class
// name/id for member lookup.
package scope

import "github.com/loxiemachine/loxie/internal/types"

// ValueCategory classifies whether a note denotes an assignable storage
// location. Only Identity values are assignable (spec §3).
type ValueCategory int

const (
	Identity ValueCategory = iota
	Temporary
	Anything
	Unknown
)

// NoteKind discriminates the SemanticNote sum type (spec §3).
type NoteKind int

const (
	Dud NoteKind = iota
	DataValue
	Callable
	Method
	Constructor
	ClassEntity
)

// Note is the scope-stack entry, SemanticNote from the spec. Only the
// fields relevant to Kind are meaningful.
type Note struct {
	Kind      NoteKind
	Type      types.TypeID  // DataValue, ClassEntity
	Category  ValueCategory // DataValue, ClassEntity
	ParamType []types.TypeID
	RetType   types.TypeID
	ProcID    int // global procedure id for Callable/Method/Constructor
	MethodIdx int // method slot for Method/Constructor
	ClassID   int // ClassEntity, Method, Constructor: owning/returned class
	IsNative  bool
	NativeID  int
}

func (n Note) Arity() int { return len(n.ParamType) }

// Scope is one lexical level: global, or one function/block nesting.
type Scope struct {
	entries map[string]Note
}

func newScope() *Scope { return &Scope{entries: make(map[string]Note)} }

// Stack is the analyzer's lexical environment: a global scope plus stacked
// inner scopes (spec §2).
type Stack struct {
	scopes []*Scope
}

// NewStack creates a Stack with just the global scope pushed.
func NewStack() *Stack {
	s := &Stack{}
	s.Push()
	return s
}

// Push enters a fresh lexical scope (e.g. a function/method body).
func (s *Stack) Push() { s.scopes = append(s.scopes, newScope()) }

// Pop leaves the innermost scope. Popping the global scope is a caller bug.
func (s *Stack) Pop() {
	if len(s.scopes) > 1 {
		s.scopes = s.scopes[:len(s.scopes)-1]
	}
}

// Declare binds name in the innermost scope. It reports false if name is
// already declared in that same scope (spec §8 property 8: shadowing within
// one scope is an error; shadowing an outer scope is allowed).
func (s *Stack) Declare(name string, note Note) bool {
	top := s.scopes[len(s.scopes)-1]
	if _, exists := top.entries[name]; exists {
		return false
	}
	top.entries[name] = note
	return true
}

// Resolve searches from the innermost scope outward to the global scope.
func (s *Stack) Resolve(name string) (Note, bool) {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if n, ok := s.scopes[i].entries[name]; ok {
			return n, true
		}
	}
	return Note{}, false
}

// DeclareGlobal binds name directly in the global (outermost) scope,
// used by pass 1 to record top-level declarations ahead of pass 2.
func (s *Stack) DeclareGlobal(name string, note Note) bool {
	global := s.scopes[0]
	if _, exists := global.entries[name]; exists {
		return false
	}
	global.entries[name] = note
	return true
}

// Member is one class blueprint entry (spec §3, §4.1): a field offset or a
// (method-slot, global-procedure-id) pair, carrying an access flag.
type Member struct {
	IsMethod      bool
	IsConstructor bool
	FieldIdx      int
	MethodIdx     int
	ProcID        int
	Type          types.TypeID // field type, or method return type
	ParamType     []types.TypeID
	Exposed       bool
}

// Blueprint is a class's semantic record: ordered field layout plus method
// table, each member access-flagged (spec §3, §4.1).
type Blueprint struct {
	ClassID     int
	FieldOrder  []string
	FieldIndex  map[string]int
	Members     map[string]Member
	NextMethod  int
}

func NewBlueprint(classID int) *Blueprint {
	return &Blueprint{
		ClassID:    classID,
		FieldIndex: make(map[string]int),
		Members:    make(map[string]Member),
	}
}

// AddField interns a new field, assigning the next field index.
func (b *Blueprint) AddField(name string, typ types.TypeID, exposed bool) (int, bool) {
	if _, exists := b.Members[name]; exists {
		return 0, false
	}
	idx := len(b.FieldOrder)
	b.FieldOrder = append(b.FieldOrder, name)
	b.FieldIndex[name] = idx
	b.Members[name] = Member{FieldIdx: idx, Type: typ, Exposed: exposed}
	return idx, true
}

// AddMethod interns a new method or constructor, assigning the next method
// slot and recording its global procedure id.
func (b *Blueprint) AddMethod(name string, procID int, retType types.TypeID, paramTypes []types.TypeID, exposed, isConstructor bool) (int, bool) {
	if _, exists := b.Members[name]; exists {
		return 0, false
	}
	slot := b.NextMethod
	b.NextMethod++
	b.Members[name] = Member{
		IsMethod: true, IsConstructor: isConstructor, MethodIdx: slot, ProcID: procID,
		Type: retType, ParamType: paramTypes, Exposed: exposed,
	}
	return slot, true
}

// BlueprintTable maps class ids to their blueprint, interned by the
// analyzer's types.Registry.
type BlueprintTable struct {
	byClassID map[int]*Blueprint
}

func NewBlueprintTable() *BlueprintTable {
	return &BlueprintTable{byClassID: make(map[int]*Blueprint)}
}

func (t *BlueprintTable) GetOrCreate(classID int) *Blueprint {
	if bp, ok := t.byClassID[classID]; ok {
		return bp
	}
	bp := NewBlueprint(classID)
	t.byClassID[classID] = bp
	return bp
}

func (t *BlueprintTable) Get(classID int) (*Blueprint, bool) {
	bp, ok := t.byClassID[classID]
	return bp, ok
}

// Package types implements the Type/Operator Model (spec §2, §3): primitive
// type tags, interned class type descriptors, and operator tags with their
// arity and semantic flags.
//
// Grounded on the teacher's internal/types package: a small enum of
// primitive tags plus an interning table for user-defined (class) types,
// addressed everywhere else by a small integer id rather than by pointer.
package types

// Tag enumerates the primitive type tags plus the "class" and "any" tags.
// A concrete class is further identified by a ClassID (see TypeID below).
type Tag int

const (
	Int Tag = iota
	Float
	Char
	Bool
	StringTag
	Any
	ClassTag
	Void // functions declared without a return type, and statements with no value
)

func (t Tag) String() string {
	switch t {
	case Int:
		return "int"
	case Float:
		return "float"
	case Char:
		return "char"
	case Bool:
		return "bool"
	case StringTag:
		return "string"
	case Any:
		return "any"
	case ClassTag:
		return "class"
	case Void:
		return "void"
	default:
		return "?"
	}
}

// TypeID identifies a concrete type: a primitive tag, or a class tag plus
// the interned class id.
type TypeID struct {
	Tag     Tag
	ClassID int // meaningful only when Tag == ClassTag
}

func Primitive(tag Tag) TypeID { return TypeID{Tag: tag} }

func Class(classID int) TypeID { return TypeID{Tag: ClassTag, ClassID: classID} }

// Equal reports whether two type ids name the same type. Per spec §8
// property 2 this must be symmetric, which falls out of plain struct
// equality here.
func (t TypeID) Equal(o TypeID) bool { return t == o }

func (t TypeID) IsNumeric() bool { return t.Tag == Int || t.Tag == Float }

func (t TypeID) String() string {
	if t.Tag == ClassTag {
		return "class#" + itoa(t.ClassID)
	}
	return t.Tag.String()
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

// Registry interns class type ids by name, so every reference to a class
// resolves to the same TypeID.ClassID across the whole program (spec §3,
// Class blueprint).
type Registry struct {
	names  []string
	byName map[string]int
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]int)}
}

// Intern returns the class id for name, creating a fresh one if this is the
// first time name is seen.
func (r *Registry) Intern(name string) int {
	if id, ok := r.byName[name]; ok {
		return id
	}
	id := len(r.names)
	r.names = append(r.names, name)
	r.byName[name] = id
	return id
}

// Lookup returns the class id for name without creating one.
func (r *Registry) Lookup(name string) (int, bool) {
	id, ok := r.byName[name]
	return id, ok
}

func (r *Registry) Name(id int) string {
	if id < 0 || id >= len(r.names) {
		return "<unknown class>"
	}
	return r.names[id]
}

// Operator tags, carrying arity and the homogeneous/access/call partition
// used by the semantic analyzer (spec §4.1).
type OperatorKind int

const (
	OpHomogeneous OperatorKind = iota // '*','/','+','-','==','!=','<','>','='
	OpAccessKind                      // '.'
)

// Operator describes one operator's arity and category.
type Operator struct {
	Name  string
	Arity int
	Kind  OperatorKind
}

var (
	Add    = Operator{Name: "+", Arity: 2, Kind: OpHomogeneous}
	Sub    = Operator{Name: "-", Arity: 2, Kind: OpHomogeneous}
	Mul    = Operator{Name: "*", Arity: 2, Kind: OpHomogeneous}
	Div    = Operator{Name: "/", Arity: 2, Kind: OpHomogeneous}
	CmpEq  = Operator{Name: "==", Arity: 2, Kind: OpHomogeneous}
	CmpNe  = Operator{Name: "!=", Arity: 2, Kind: OpHomogeneous}
	CmpLt  = Operator{Name: "<", Arity: 2, Kind: OpHomogeneous}
	CmpGt  = Operator{Name: ">", Arity: 2, Kind: OpHomogeneous}
	Assign = Operator{Name: "=", Arity: 2, Kind: OpHomogeneous}
	Access = Operator{Name: ".", Arity: 2, Kind: OpAccessKind}
	Neg    = Operator{Name: "-", Arity: 1, Kind: OpHomogeneous}
)

// Package value defines Value, the fixed-size, value-copyable stack cell
// tagged union of spec §3, shared by the heap, natives, and VM packages so
// none of them need to import each other just to pass values around.
package value

import "fmt"

// Tag discriminates the Value union's active variant.
type Tag byte

const (
	Empty Tag = iota
	Bool
	Char
	Int
	Float
	HeapRef
)

// NullRef is the HeapRef handle denoting null (spec §3).
const NullRef int32 = -1

// Value is the tagged union stack cell: Empty, Bool, Char (8-bit), Int
// (32-bit signed), Float (32-bit), or HeapRef (32-bit object handle).
// Equality/ordering requires identical tags; HeapRef equality compares
// handles, not heap contents (spec §3).
type Value struct {
	Tag    Tag
	Bool_  bool
	Char_  byte
	Int_   int32
	Float_ float32
	Ref    int32
}

func MakeEmpty() Value          { return Value{Tag: Empty} }
func MakeBool(b bool) Value     { return Value{Tag: Bool, Bool_: b} }
func MakeChar(c byte) Value     { return Value{Tag: Char, Char_: c} }
func MakeInt(i int32) Value     { return Value{Tag: Int, Int_: i} }
func MakeFloat(f float32) Value { return Value{Tag: Float, Float_: f} }
func MakeRef(h int32) Value     { return Value{Tag: HeapRef, Ref: h} }

// Test implements spec §8 property 1: numerically nonzero / true / a
// non-null handle is "truthy", everything else is not.
func (v Value) Test() bool {
	switch v.Tag {
	case Bool:
		return v.Bool_
	case Char:
		return v.Char_ != 0
	case Int:
		return v.Int_ != 0
	case Float:
		return v.Float_ != 0
	case HeapRef:
		return v.Ref != NullRef
	default:
		return false
	}
}

// Eq reports value equality; it requires identical tags (spec §3) and is
// symmetric by construction (spec §8 property 2).
func (v Value) Eq(o Value) (bool, bool) {
	if v.Tag != o.Tag {
		return false, false
	}
	switch v.Tag {
	case Bool:
		return v.Bool_ == o.Bool_, true
	case Char:
		return v.Char_ == o.Char_, true
	case Int:
		return v.Int_ == o.Int_, true
	case Float:
		return v.Float_ == o.Float_, true
	case HeapRef:
		return v.Ref == o.Ref, true
	default:
		return true, true
	}
}

// Lt reports whether v < o for ordered primitive types (int/float/char);
// the second return is false if the types don't support ordering or don't
// match.
func (v Value) Lt(o Value) (bool, bool) {
	if v.Tag != o.Tag {
		return false, false
	}
	switch v.Tag {
	case Char:
		return v.Char_ < o.Char_, true
	case Int:
		return v.Int_ < o.Int_, true
	case Float:
		return v.Float_ < o.Float_, true
	default:
		return false, false
	}
}

func (v Value) String() string {
	switch v.Tag {
	case Empty:
		return "<empty>"
	case Bool:
		return fmt.Sprintf("%t", v.Bool_)
	case Char:
		return fmt.Sprintf("%q", rune(v.Char_))
	case Int:
		return fmt.Sprintf("%d", v.Int_)
	case Float:
		return fmt.Sprintf("%g", v.Float_)
	case HeapRef:
		if v.Ref == NullRef {
			return "null"
		}
		return fmt.Sprintf("ref#%d", v.Ref)
	default:
		return "?"
	}
}

func (t Tag) String() string {
	switch t {
	case Empty:
		return "empty"
	case Bool:
		return "bool"
	case Char:
		return "char"
	case Int:
		return "int"
	case Float:
		return "float"
	case HeapRef:
		return "heapref"
	default:
		return "?"
	}
}

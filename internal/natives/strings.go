package natives

import (
	"fmt"

	"github.com/loxiemachine/loxie/internal/value"
)

// textOf dereferences a HeapRef argument to its Varchar text, per
// original_source's utils/loxie_varchar.rs.
func textOf(s Stack, v value.Value) (string, error) {
	if v.Tag != value.HeapRef {
		return "", fmt.Errorf("natives: expected a string argument, got %s", v.Tag)
	}
	cell, err := s.Heap().Get(v.Ref)
	if err != nil {
		return "", err
	}
	return cell.Text, nil
}

func pushString(s Stack, text string) error {
	handle, err := s.Heap().MakeVarchar(text)
	if err != nil {
		return err
	}
	s.Push(value.MakeRef(handle))
	return nil
}

// registerStrings registers the string natives: concatenation, length,
// substring, and char-at, matching the arithmetic-over-strings bundle
// named in spec §1's Out-of-scope collaborators and supplemented from
// original_source's loxie_varchar.rs.
func registerStrings(b *Bundle) {
	b.register("strConcat", 2, func(s Stack) error {
		rhs, err := s.Pop()
		if err != nil {
			return err
		}
		lhs, err := s.Pop()
		if err != nil {
			return err
		}
		lt, err := textOf(s, lhs)
		if err != nil {
			return err
		}
		rt, err := textOf(s, rhs)
		if err != nil {
			return err
		}
		return pushString(s, lt+rt)
	})

	b.register("strLen", 1, func(s Stack) error {
		v, err := s.Pop()
		if err != nil {
			return err
		}
		text, err := textOf(s, v)
		if err != nil {
			return err
		}
		s.Push(value.MakeInt(int32(len(text))))
		return nil
	})

	b.register("strSub", 3, func(s Stack) error {
		length, err := s.Pop()
		if err != nil {
			return err
		}
		start, err := s.Pop()
		if err != nil {
			return err
		}
		v, err := s.Pop()
		if err != nil {
			return err
		}
		if length.Tag != value.Int || start.Tag != value.Int {
			return fmt.Errorf("natives: strSub expects integer start/length")
		}
		text, err := textOf(s, v)
		if err != nil {
			return err
		}
		from := int(start.Int_)
		to := from + int(length.Int_)
		if from < 0 || to > len(text) || from > to {
			return fmt.Errorf("natives: strSub range out of bounds")
		}
		return pushString(s, text[from:to])
	})

	b.register("strCharAt", 2, func(s Stack) error {
		idx, err := s.Pop()
		if err != nil {
			return err
		}
		v, err := s.Pop()
		if err != nil {
			return err
		}
		if idx.Tag != value.Int {
			return fmt.Errorf("natives: strCharAt expects an integer index")
		}
		text, err := textOf(s, v)
		if err != nil {
			return err
		}
		if idx.Int_ < 0 || int(idx.Int_) >= len(text) {
			return fmt.Errorf("natives: strCharAt index out of range")
		}
		s.Push(value.MakeChar(text[idx.Int_]))
		return nil
	})
}

package natives

import (
	"fmt"
	"strings"

	"github.com/loxiemachine/loxie/internal/value"
)

// registerIO registers the print/println/readline bundle named in spec §1
// and grounded on original_source's utils/loxie_stdio.rs.
func registerIO(b *Bundle) {
	b.register("print", 1, func(s Stack) error {
		v, err := s.Pop()
		if err != nil {
			return err
		}
		text, err := displayString(s, v)
		if err != nil {
			return err
		}
		fmt.Fprint(b.out, text)
		s.Push(value.MakeInt(0))
		return nil
	})

	b.register("println", 1, func(s Stack) error {
		v, err := s.Pop()
		if err != nil {
			return err
		}
		text, err := displayString(s, v)
		if err != nil {
			return err
		}
		fmt.Fprintln(b.out, text)
		s.Push(value.MakeInt(0))
		return nil
	})

	b.register("readline", 0, func(s Stack) error {
		line, err := b.in.ReadString('\n')
		if err != nil && line == "" {
			return pushString(s, "")
		}
		return pushString(s, strings.TrimRight(line, "\r\n"))
	})
}

// displayString renders any Value as text for print/println, dereferencing
// heap strings and formatting primitives directly.
func displayString(s Stack, v value.Value) (string, error) {
	if v.Tag == value.HeapRef {
		return textOf(s, v)
	}
	return v.String(), nil
}

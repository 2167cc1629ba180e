// Package dump renders a compiled bytecode.Program as a JSON document
// (SPEC_FULL.md §10.4's "loxie run --json" surface), built
// incrementally with sjson rather than marshaled through
// a mirror struct tree, and queried back with gjson.
//
// The teacher persists a compiled unit as a binary .dwc file instead;
// spec §6 rules out any persisted VM state, so there is no direct
// teacher analogue to adapt here. The two libraries are still the
// teacher's own transitive JSON dependency put to direct, first-class
// use instead of left unwired.
package dump

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/loxiemachine/loxie/internal/bytecode"
)

// Program renders p as a JSON document: entry procedure id, the
// flattened preload string table, and one object per procedure carrying
// its constant pool and disassembled instruction list.
func Program(p *bytecode.Program) ([]byte, error) {
	doc := []byte("{}")
	var err error

	doc, err = sjson.SetBytes(doc, "entry_proc", p.EntryProc)
	if err != nil {
		return nil, fmt.Errorf("dump: entry_proc: %w", err)
	}
	doc, err = sjson.SetBytes(doc, "preload", p.Preload)
	if err != nil {
		return nil, fmt.Errorf("dump: preload: %w", err)
	}

	for i, proc := range p.Procedures {
		base := fmt.Sprintf("procedures.%d", i)
		doc, err = setProcedure(doc, base, proc)
		if err != nil {
			return nil, err
		}
	}
	return []byte(gjson.Parse(string(doc)).Raw), nil
}

func setProcedure(doc []byte, base string, proc *bytecode.Procedure) ([]byte, error) {
	fields := map[string]any{
		base + ".id":          proc.ID,
		base + ".name":        proc.Name,
		base + ".param_count": proc.ParamCount,
		base + ".is_ctor":     proc.IsCtor,
		base + ".class_id":    proc.ClassID,
		base + ".field_count": proc.FieldCount,
	}
	var err error
	for path, v := range fields {
		doc, err = sjson.SetBytes(doc, path, v)
		if err != nil {
			return nil, fmt.Errorf("dump: %s: %w", path, err)
		}
	}

	for i, c := range proc.Chunk.Constants {
		path := fmt.Sprintf("%s.constants.%d", base, i)
		doc, err = sjson.SetBytes(doc, path, c.String())
		if err != nil {
			return nil, fmt.Errorf("dump: %s: %w", path, err)
		}
	}

	for i, instr := range proc.Chunk.Code {
		path := fmt.Sprintf("%s.code.%d", base, i)
		doc, err = sjson.SetBytes(doc, path, bytecode.FormatInstr(instr))
		if err != nil {
			return nil, fmt.Errorf("dump: %s: %w", path, err)
		}
	}
	return doc, nil
}

// Query resolves a gjson path against a dumped document, used by tests
// to assert on a specific field without parsing the whole document.
func Query(doc []byte, path string) gjson.Result {
	return gjson.GetBytes(doc, path)
}

// Package semantic implements the two-pass semantic analyzer (spec §4.1):
// pass 1 ("prepass") records global and class declarations; pass 2 type-
// checks bodies and resolves names against the prepass tables.
//
// Grounded on the teacher's internal/semantic/analyzer.go two-pass split
// and internal/errors diagnostic shape (adapted here as internal/diag).
package semantic

import (
	"fmt"

	"github.com/loxiemachine/loxie/internal/ast"
	"github.com/loxiemachine/loxie/internal/diag"
	"github.com/loxiemachine/loxie/internal/scope"
	"github.com/loxiemachine/loxie/internal/types"
)

// NativeLookup is the foreign-native registry the analyzer consults once a
// name is not found in class or lexical scope (spec §4.1). It is borrowed,
// never a singleton (spec §9).
type NativeLookup interface {
	Lookup(name string) (arity int, id int, ok bool)
}

// Result is everything later pipeline stages need from a successful
// analysis: the interned class registry, class blueprints, and the global
// procedure table.
type Result struct {
	Classes    *types.Registry
	Blueprints *scope.BlueprintTable
	Procs      *ProcTable
}

// Analyzer performs the two-pass check over every translation unit's AST.
type Analyzer struct {
	natives NativeLookup
	sources map[string]string // unit path -> source text, for diagnostics

	classes    *types.Registry
	blueprints *scope.BlueprintTable
	procs      *ProcTable
	scopes     *scope.Stack

	declaredClasses map[string]bool // class names seen by prepassClass, for duplicate detection

	currentClassID int // -1 when no class context is active
	diags          []*diag.Diagnostic
	curFile        string
}

// NewAnalyzer creates an Analyzer. sources maps each translation unit's
// path to its full text, used only to render diagnostics.
func NewAnalyzer(natives NativeLookup, sources map[string]string) *Analyzer {
	return &Analyzer{
		natives:         natives,
		sources:         sources,
		classes:         types.NewRegistry(),
		blueprints:      scope.NewBlueprintTable(),
		procs:           newProcTable(),
		scopes:          scope.NewStack(),
		declaredClasses: make(map[string]bool),
		currentClassID:  -1,
	}
}

// Diagnostics returns every diagnostic collected during Analyze.
func (a *Analyzer) Diagnostics() []*diag.Diagnostic { return a.diags }

func (a *Analyzer) addErr(pos ast.Node, lexeme, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	a.diags = append(a.diags, diag.New(pos.Pos(), a.curFile, a.sources[a.curFile], lexeme, msg))
}

// Analyze runs both passes over prog and returns the compiled tables, or an
// error summarizing how many diagnostics were produced (spec §4.1 failure
// semantics: multiple diagnostics may be emitted, but the overall compile
// fails as one signal to the driver).
func (a *Analyzer) Analyze(prog *ast.Program) (*Result, error) {
	a.prepass(prog)
	a.pass2(prog)

	if len(a.diags) > 0 {
		return nil, fmt.Errorf("semantic analysis failed with %d error(s)", len(a.diags))
	}
	return &Result{Classes: a.classes, Blueprints: a.blueprints, Procs: a.procs}, nil
}

// ---- Pass 1: prepass ----

func (a *Analyzer) prepass(prog *ast.Program) {
	for _, unit := range prog.Units {
		a.curFile = unit.Path
		for _, decl := range unit.Decls {
			switch d := decl.(type) {
			case *ast.FunDecl:
				a.prepassFun(d)
			case *ast.ClassDecl:
				a.prepassClass(d)
			case *ast.ImportDecl:
				// resolved by the loader before analysis runs.
			}
		}
	}
}

func (a *Analyzer) resolveTypeRef(t *ast.TypeRef) types.TypeID {
	if t == nil {
		return types.Primitive(types.Void)
	}
	switch t.Name {
	case "int":
		return types.Primitive(types.Int)
	case "float":
		return types.Primitive(types.Float)
	case "char":
		return types.Primitive(types.Char)
	case "bool":
		return types.Primitive(types.Bool)
	case "string":
		return types.Primitive(types.StringTag)
	case "any":
		return types.Primitive(types.Any)
	case "void":
		return types.Primitive(types.Void)
	default:
		return types.Class(a.classes.Intern(t.Name))
	}
}

func (a *Analyzer) paramTypes(params []ast.Param) []types.TypeID {
	out := make([]types.TypeID, len(params))
	for i, p := range params {
		out[i] = a.resolveTypeRef(p.Type)
	}
	return out
}

func (a *Analyzer) prepassFun(d *ast.FunDecl) {
	ret := a.resolveTypeRef(d.RetType)
	params := a.paramTypes(d.Params)
	id := a.procs.register(ProcInfo{
		Name: d.Name, Kind: ProcFunction, ClassID: -1,
		ParamTypes: params, RetType: ret, FunDecl: d,
	}, d)

	note := scope.Note{Kind: scope.Callable, ParamType: params, RetType: ret, ProcID: id}
	if !a.scopes.DeclareGlobal(d.Name, note) {
		a.addErr(d, d.Name, "duplicate declaration of %q", d.Name)
	}
}

func (a *Analyzer) prepassClass(d *ast.ClassDecl) {
	if a.declaredClasses[d.Name] {
		a.addErr(d, d.Name, "duplicate declaration of %q", d.Name)
	}
	a.declaredClasses[d.Name] = true

	classID := a.classes.Intern(d.Name)
	bp := a.blueprints.GetOrCreate(classID)

	for _, f := range d.Fields {
		ftype := a.resolveTypeRef(f.Type)
		if _, ok := bp.AddField(f.Name, ftype, f.Access == ast.Exposed); !ok {
			a.addErr(f, f.Name, "duplicate member %q in class %q", f.Name, d.Name)
		}
	}

	for _, m := range d.Methods {
		var ret types.TypeID
		if m.IsConstructor {
			ret = types.Class(classID)
		} else {
			ret = a.resolveTypeRef(m.RetType)
		}
		params := a.paramTypes(m.Params)
		kind := ProcMethod
		if m.IsConstructor {
			kind = ProcConstructor
		}
		procID := a.procs.register(ProcInfo{
			Name: m.Name, Kind: kind, ClassID: classID,
			ParamTypes: params, RetType: ret, MethodDecl: m,
		}, m)

		if _, ok := bp.AddMethod(m.Name, procID, ret, params, m.Access == ast.Exposed, m.IsConstructor); !ok {
			a.addErr(m, m.Name, "duplicate member %q in class %q", m.Name, d.Name)
		}
	}
}

// ---- Pass 2: body check ----

func (a *Analyzer) pass2(prog *ast.Program) {
	for _, unit := range prog.Units {
		a.curFile = unit.Path
		for _, decl := range unit.Decls {
			switch d := decl.(type) {
			case *ast.FunDecl:
				a.checkFun(d)
			case *ast.ClassDecl:
				a.checkClass(d)
			}
		}
	}
}

func (a *Analyzer) checkFun(d *ast.FunDecl) {
	a.currentClassID = -1
	a.scopes.Push()
	defer a.scopes.Pop()

	for i, p := range d.Params {
		note := scope.Note{Kind: scope.DataValue, Type: a.paramTypes(d.Params)[i], Category: scope.Identity}
		if !a.scopes.Declare(p.Name, note) {
			a.addErr(d, p.Name, "duplicate parameter %q", p.Name)
		}
	}
	for _, s := range d.Body {
		a.checkStmt(s)
	}
}

func (a *Analyzer) checkClass(d *ast.ClassDecl) {
	classID, _ := a.classes.Lookup(d.Name)
	for _, m := range d.Methods {
		a.currentClassID = classID
		a.scopes.Push()

		params := a.paramTypes(m.Params)
		for i, p := range m.Params {
			note := scope.Note{Kind: scope.DataValue, Type: params[i], Category: scope.Identity}
			if !a.scopes.Declare(p.Name, note) {
				a.addErr(m, p.Name, "duplicate parameter %q", p.Name)
			}
		}
		for _, s := range m.Body {
			a.checkStmt(s)
		}
		a.scopes.Pop()
	}
	a.currentClassID = -1
}

func (a *Analyzer) checkStmt(s ast.Stmt) {
	switch st := s.(type) {
	case *ast.VarDeclStmt:
		declType := a.resolveTypeRef(st.Type)
		if st.Init != nil {
			initNote := a.checkExpr(st.Init)
			if declType.Tag != types.Any && !declType.Equal(initNote.Type) {
				a.addErr(st, st.Name, "cannot assign %s to variable of type %s", initNote.Type, declType)
			}
		}
		note := scope.Note{Kind: scope.DataValue, Type: declType, Category: scope.Identity}
		if !a.scopes.Declare(st.Name, note) {
			a.addErr(st, st.Name, "duplicate declaration of %q in this scope", st.Name)
		}
	case *ast.ExprStmt:
		a.checkExpr(st.X)
	case *ast.ReturnStmt:
		if st.Value != nil {
			a.checkExpr(st.Value)
		}
	case *ast.IfStmt:
		cond := a.checkExpr(st.Cond)
		if cond.Type.Tag != types.Bool {
			a.addErr(st, "if", "condition must be bool, got %s", cond.Type)
		}
		a.scopes.Push()
		for _, s2 := range st.Then {
			a.checkStmt(s2)
		}
		a.scopes.Pop()
		if st.Else != nil {
			a.scopes.Push()
			for _, s2 := range st.Else {
				a.checkStmt(s2)
			}
			a.scopes.Pop()
		}
	case *ast.WhileStmt:
		cond := a.checkExpr(st.Cond)
		if cond.Type.Tag != types.Bool {
			a.addErr(st, "while", "condition must be bool, got %s", cond.Type)
		}
		a.scopes.Push()
		for _, s2 := range st.Body {
			a.checkStmt(s2)
		}
		a.scopes.Pop()
	case *ast.BlockStmt:
		a.scopes.Push()
		for _, s2 := range st.Stmts {
			a.checkStmt(s2)
		}
		a.scopes.Pop()
	}
}

// resolveName implements spec §4.1's name resolution order: class members
// first when a class context is active, then lexical scope outward, then
// the native registry.
func (a *Analyzer) resolveName(name string) (scope.Note, bool) {
	if a.currentClassID >= 0 {
		if bp, ok := a.blueprints.Get(a.currentClassID); ok {
			if mem, ok := bp.Members[name]; ok {
				return memberNote(mem, a.currentClassID), true
			}
		}
	}
	if note, ok := a.scopes.Resolve(name); ok {
		if note.Kind == scope.DataValue {
			note.Category = scope.Identity
		}
		return note, true
	}
	if a.natives != nil {
		if arity, id, ok := a.natives.Lookup(name); ok {
			params := make([]types.TypeID, arity)
			for i := range params {
				params[i] = types.Primitive(types.Any)
			}
			return scope.Note{Kind: scope.Callable, IsNative: true, NativeID: id, ParamType: params, RetType: types.Primitive(types.Any)}, true
		}
	}
	return scope.Note{}, false
}

func memberNote(mem scope.Member, classID int) scope.Note {
	if mem.IsConstructor {
		return scope.Note{Kind: scope.Constructor, ClassID: classID, ParamType: mem.ParamType, RetType: mem.Type, ProcID: mem.ProcID, MethodIdx: mem.MethodIdx}
	}
	if mem.IsMethod {
		return scope.Note{Kind: scope.Method, ClassID: classID, ParamType: mem.ParamType, RetType: mem.Type, ProcID: mem.ProcID, MethodIdx: mem.MethodIdx}
	}
	return scope.Note{Kind: scope.DataValue, Type: mem.Type, Category: scope.Identity}
}

// checkExpr type-checks an expression and returns the note describing its
// result (type + value category), per spec §4.1.
func (a *Analyzer) checkExpr(e ast.Expr) scope.Note {
	switch ex := e.(type) {
	case *ast.IntLit:
		return scope.Note{Kind: scope.DataValue, Type: types.Primitive(types.Int), Category: scope.Temporary}
	case *ast.FloatLit:
		return scope.Note{Kind: scope.DataValue, Type: types.Primitive(types.Float), Category: scope.Temporary}
	case *ast.CharLit:
		return scope.Note{Kind: scope.DataValue, Type: types.Primitive(types.Char), Category: scope.Temporary}
	case *ast.BoolLit:
		return scope.Note{Kind: scope.DataValue, Type: types.Primitive(types.Bool), Category: scope.Temporary}
	case *ast.StringLit:
		return scope.Note{Kind: scope.DataValue, Type: types.Primitive(types.StringTag), Category: scope.Temporary}
	case *ast.Ident:
		note, ok := a.resolveName(ex.Name)
		if !ok {
			a.addErr(ex, ex.Name, "undefined name %q", ex.Name)
			return scope.Note{Kind: scope.Dud}
		}
		return note
	case *ast.UnaryExpr:
		inner := a.checkExpr(ex.X)
		if !inner.Type.IsNumeric() {
			a.addErr(ex, "-", "unary - requires a numeric operand, got %s", inner.Type)
		}
		return scope.Note{Kind: scope.DataValue, Type: inner.Type, Category: scope.Temporary}
	case *ast.BinaryExpr:
		return a.checkBinary(ex)
	case *ast.CallExpr:
		return a.checkCall(ex)
	case *ast.NewExpr:
		return a.checkNew(ex)
	default:
		return scope.Note{Kind: scope.Dud}
	}
}

func (a *Analyzer) checkBinary(ex *ast.BinaryExpr) scope.Note {
	switch ex.Op {
	case ast.OpAccess:
		return a.checkAccess(ex)
	case ast.OpAssign:
		lhs := a.checkExpr(ex.Left)
		rhs := a.checkExpr(ex.Right)
		if lhs.Category != scope.Identity {
			a.addErr(ex, "=", "left-hand side of assignment is not assignable")
		}
		if lhs.Type.Tag != types.Any && !lhs.Type.Equal(rhs.Type) {
			a.addErr(ex, "=", "cannot assign %s to %s", rhs.Type, lhs.Type)
		}
		return scope.Note{Kind: scope.DataValue, Type: lhs.Type, Category: scope.Temporary}
	default:
		lhs := a.checkExpr(ex.Left)
		rhs := a.checkExpr(ex.Right)
		if !lhs.Type.Equal(rhs.Type) {
			a.addErr(ex, opLexeme(ex.Op), "operand type mismatch: %s vs %s", lhs.Type, rhs.Type)
		}
		switch ex.Op {
		case ast.OpEq, ast.OpNotEq, ast.OpLt, ast.OpGt:
			return scope.Note{Kind: scope.DataValue, Type: types.Primitive(types.Bool), Category: scope.Temporary}
		default:
			return scope.Note{Kind: scope.DataValue, Type: lhs.Type, Category: scope.Temporary}
		}
	}
}

func opLexeme(op ast.BinaryOp) string {
	switch op {
	case ast.OpAdd:
		return "+"
	case ast.OpSub:
		return "-"
	case ast.OpMul:
		return "*"
	case ast.OpDiv:
		return "/"
	case ast.OpEq:
		return "=="
	case ast.OpNotEq:
		return "!="
	case ast.OpLt:
		return "<"
	case ast.OpGt:
		return ">"
	default:
		return "?"
	}
}

func (a *Analyzer) checkAccess(ex *ast.BinaryExpr) scope.Note {
	savedClass := a.currentClassID
	left := a.checkExpr(ex.Left)
	a.currentClassID = savedClass
	if left.Kind != scope.DataValue || left.Type.Tag != types.ClassTag {
		a.addErr(ex, ".", "left side of '.' must be a class instance")
		return scope.Note{Kind: scope.Dud}
	}
	classID := left.Type.ClassID
	bp, ok := a.blueprints.Get(classID)
	if !ok {
		a.addErr(ex, ".", "unknown class in member access")
		return scope.Note{Kind: scope.Dud}
	}

	switch right := ex.Right.(type) {
	case *ast.Ident:
		mem, ok := bp.Members[right.Name]
		if !ok {
			a.addErr(right, right.Name, "class %q has no member %q", a.classes.Name(classID), right.Name)
			return scope.Note{Kind: scope.Dud}
		}
		if !mem.Exposed && a.currentClassID != classID {
			a.addErr(right, right.Name, "member %q is private", right.Name)
		}
		return memberNote(mem, classID)
	case *ast.CallExpr:
		calleeIdent, ok := right.Callee.(*ast.Ident)
		if !ok {
			a.addErr(right, ".", "invalid method call")
			return scope.Note{Kind: scope.Dud}
		}
		mem, ok := bp.Members[calleeIdent.Name]
		if !ok || !mem.IsMethod {
			a.addErr(right, calleeIdent.Name, "class %q has no method %q", a.classes.Name(classID), calleeIdent.Name)
			return scope.Note{Kind: scope.Dud}
		}
		if !mem.Exposed && a.currentClassID != classID {
			a.addErr(right, calleeIdent.Name, "method %q is private", calleeIdent.Name)
		}
		a.checkArgs(right, mem.ParamType, right.Args)
		return scope.Note{Kind: scope.DataValue, Type: mem.Type, Category: scope.Temporary}
	default:
		a.addErr(ex, ".", "invalid right-hand side of '.'")
		return scope.Note{Kind: scope.Dud}
	}
}

func (a *Analyzer) checkArgs(at ast.Node, paramTypes []types.TypeID, args []ast.Expr) {
	if len(args) != len(paramTypes) {
		a.addErr(at, "", "expected %d argument(s), got %d", len(paramTypes), len(args))
	}
	for i, arg := range args {
		argNote := a.checkExpr(arg)
		if i >= len(paramTypes) {
			continue
		}
		want := paramTypes[i]
		if want.Tag != types.Any && !want.Equal(argNote.Type) {
			a.addErr(arg, "", "argument %d: expected %s, got %s", i+1, want, argNote.Type)
		}
	}
}

func (a *Analyzer) checkCall(ex *ast.CallExpr) scope.Note {
	calleeIdent, ok := ex.Callee.(*ast.Ident)
	if !ok {
		// Callee is itself an access expression (obj.method(...)); the
		// access-level case above already type-checked the call.
		return a.checkExpr(ex.Callee)
	}
	note, ok := a.resolveName(calleeIdent.Name)
	if !ok {
		a.addErr(ex, calleeIdent.Name, "undefined function %q", calleeIdent.Name)
		return scope.Note{Kind: scope.Dud}
	}
	if note.Kind != scope.Callable && note.Kind != scope.Method && note.Kind != scope.Constructor {
		a.addErr(ex, calleeIdent.Name, "%q is not callable", calleeIdent.Name)
		return scope.Note{Kind: scope.Dud}
	}
	a.checkArgs(ex, note.ParamType, ex.Args)
	return scope.Note{Kind: scope.DataValue, Type: note.RetType, Category: scope.Temporary}
}

func (a *Analyzer) checkNew(ex *ast.NewExpr) scope.Note {
	classID, ok := a.classes.Lookup(ex.ClassName)
	if !ok {
		a.addErr(ex, ex.ClassName, "unknown class %q", ex.ClassName)
		return scope.Note{Kind: scope.Dud}
	}
	bp, _ := a.blueprints.Get(classID)
	mem, ok := bp.Members[ex.ClassName]
	if !ok || !mem.IsConstructor {
		if len(ex.Args) != 0 {
			a.addErr(ex, ex.ClassName, "class %q has no constructor accepting arguments", ex.ClassName)
		}
		for _, arg := range ex.Args {
			a.checkExpr(arg)
		}
		return scope.Note{Kind: scope.DataValue, Type: types.Class(classID), Category: scope.Temporary}
	}
	a.checkArgs(ex, mem.ParamType, ex.Args)
	return scope.Note{Kind: scope.DataValue, Type: types.Class(classID), Category: scope.Temporary}
}

package ir

import (
	"github.com/loxiemachine/loxie/internal/ast"
	"github.com/loxiemachine/loxie/internal/scope"
	"github.com/loxiemachine/loxie/internal/semantic"
	"github.com/loxiemachine/loxie/internal/types"
	"github.com/loxiemachine/loxie/internal/value"
)

// Want selects whether lowerExpr must leave a freshly pushed value on the
// stack (WantValue) or may return an existing storage locator without
// emitting anything (WantLocator) — spec §4.2's skip-emit rewriting
// algebra (DESIGN.md OQ1). Compound expressions (arithmetic, calls, new)
// have no storage locator of their own, so WantLocator degrades to a push
// for them automatically; only a literal or a named local honors the skip
// (a field read always emits GetSelf + Push).
type Want int

const (
	WantValue Want = iota
	WantLocator
)

// funcEmitter holds the per-procedure lowering state: the block under
// construction, the live operand-stack offset (rso) relative to the
// frame base, and the name bindings accumulated as locals are declared.
type funcEmitter struct {
	proc *Procedure
	cfg  *CFG
	cur  *Block
	rso  int

	locals     map[string]Locator
	localTypes map[string]types.TypeID

	selfClassID int // class id of the enclosing method/constructor, -1 for a free function
	isCtor      bool

	blueprints  *scope.BlueprintTable
	classes     *types.Registry
	procs       *semantic.ProcTable
	funcsByName map[string]int
	natives     semantic.NativeLookup
}

// EmitProgram lowers every analyzed procedure into IR, producing the
// Program the bytecode emitter linearizes next (spec §2, §4.2).
func EmitProgram(res *semantic.Result, natives semantic.NativeLookup) *Program {
	funcsByName := make(map[string]int)
	for _, p := range res.Procs.All() {
		if p.Kind == semantic.ProcFunction {
			funcsByName[p.Name] = p.ID
		}
	}

	prog := &Program{EntryProc: -1}
	for _, info := range res.Procs.All() {
		proc := emitProc(info, res.Blueprints, res.Classes, res.Procs, funcsByName, natives)
		prog.Procedures = append(prog.Procedures, proc)
		if info.Kind == semantic.ProcFunction && info.Name == "main" {
			prog.EntryProc = info.ID
		}
	}
	return prog
}

func emitProc(info semantic.ProcInfo, blueprints *scope.BlueprintTable, classes *types.Registry, procs *semantic.ProcTable, funcsByName map[string]int, natives semantic.NativeLookup) *Procedure {
	proc := &Procedure{ID: info.ID, Name: info.Name, ParamCount: len(info.ParamTypes), ClassID: info.ClassID}
	isCtor := info.Kind == semantic.ProcConstructor
	proc.IsCtor = isCtor

	var body []ast.Stmt
	var paramNames []string
	if info.Kind == semantic.ProcFunction {
		body = info.FunDecl.Body
		for _, p := range info.FunDecl.Params {
			paramNames = append(paramNames, p.Name)
		}
	} else {
		body = info.MethodDecl.Body
		for _, p := range info.MethodDecl.Params {
			paramNames = append(paramNames, p.Name)
		}
	}
	if isCtor {
		if bp, ok := blueprints.Get(info.ClassID); ok {
			proc.FieldCount = len(bp.FieldOrder)
		}
	}

	fe := &funcEmitter{
		proc: proc, cfg: &CFG{},
		locals: make(map[string]Locator), localTypes: make(map[string]types.TypeID),
		selfClassID: -1, isCtor: isCtor,
		blueprints: blueprints, classes: classes, procs: procs, funcsByName: funcsByName, natives: natives,
	}
	if info.Kind != semantic.ProcFunction {
		fe.selfClassID = info.ClassID
	}
	proc.CFG = fe.cfg
	fe.cur = fe.cfg.NewBlock()

	for i, name := range paramNames {
		loc := Locator{Region: TempStack, Index: int32(i)}
		fe.locals[name] = loc
		fe.localTypes[name] = info.ParamTypes[i]
	}
	fe.rso = len(paramNames)

	if isCtor {
		fe.emit(Unary(OpMakeHeapObject, Locator{Region: Immediate, Index: int32(proc.FieldCount)}))
		fe.push()
	}

	for _, s := range body {
		fe.lowerStmt(s)
	}

	if !blockTerminated(fe.cur) {
		if isCtor {
			fe.emit(Nonary(OpLeave))
		} else {
			fe.emit(Unary(OpReturn, fe.internConstLocator(value.MakeEmpty())))
		}
	}
	return proc
}

func blockTerminated(b *Block) bool {
	if len(b.Instrs) == 0 {
		return false
	}
	op := b.Instrs[len(b.Instrs)-1].Op
	return op == OpReturn || op == OpLeave
}

// ---- small helpers ----

func (fe *funcEmitter) emit(i Instr)      { fe.cur.Emit(i) }
func (fe *funcEmitter) push()             { fe.rso++ }
func (fe *funcEmitter) top() Locator      { return Locator{Region: TempStack, Index: int32(fe.rso - 1)} }
func (fe *funcEmitter) freshTop(l Locator) bool {
	return l.Region == TempStack && int(l.Index) == fe.rso-1
}
func (fe *funcEmitter) internConstLocator(v value.Value) Locator {
	return Locator{Region: Immediate, Index: fe.proc.internConst(v)}
}
func immArity(n int) Locator { return Locator{Region: Immediate, Index: int32(n)} }

// collapseBelowTop removes the stack slot at `below` by overwriting it
// with the current top value and popping the now-duplicate top — the
// standard "drop the element just beneath the result" idiom used when an
// instance handle was pushed ahead of a call's arguments (spec §4.2: the
// instance operand of an InstanceCall should not itself leak onto the
// stack once the call has returned).
func (fe *funcEmitter) collapseBelowTop(below Locator) Locator {
	top := fe.top()
	fe.emit(Binary(OpReplace, below, top))
	fe.emit(Unary(OpPop, Locator{}))
	fe.rso--
	return below
}

func (fe *funcEmitter) resolveTypeRef(t *ast.TypeRef) types.TypeID {
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
		return types.Class(fe.classes.Intern(t.Name))
	}
}

func defaultValueFor(t types.TypeID) value.Value {
	switch t.Tag {
	case types.Int:
		return value.MakeInt(0)
	case types.Float:
		return value.MakeFloat(0)
	case types.Char:
		return value.MakeChar(0)
	case types.Bool:
		return value.MakeBool(false)
	case types.StringTag, types.ClassTag:
		return value.MakeRef(value.NullRef)
	default:
		return value.MakeEmpty()
	}
}

// resolveIdent implements the emission-time counterpart of spec §4.1's
// name resolution order: class members first when a class context is
// active, then locals, then the global procedure table, then natives.
func (fe *funcEmitter) resolveIdent(name string) (kind string, loc Locator) {
	if fe.selfClassID >= 0 {
		if bp, ok := fe.blueprints.Get(fe.selfClassID); ok {
			if mem, ok := bp.Members[name]; ok {
				if mem.IsMethod {
					return "selfmethod", Locator{Region: Methods, Index: int32(mem.ProcID)}
				}
				return "field", Locator{Region: Field, Index: int32(mem.FieldIdx)}
			}
		}
	}
	if l, ok := fe.locals[name]; ok {
		return "local", l
	}
	if id, ok := fe.funcsByName[name]; ok {
		return "func", Locator{Region: Functions, Index: int32(id)}
	}
	if fe.natives != nil {
		if _, id, ok := fe.natives.Lookup(name); ok {
			return "native", Locator{Region: Natives, Index: int32(id)}
		}
	}
	return "", Locator{}
}

// typeOf is a minimal, emission-time re-resolution of an expression's
// static type, mirroring semantic.Analyzer.checkExpr closely enough to
// find the class id behind a member access — the analyzer's own notes
// aren't retained on the AST, and re-deriving just the type (not full
// diagnostics) here is simpler than threading a side table through two
// passes for a program already known to type-check.
func (fe *funcEmitter) typeOf(e ast.Expr) types.TypeID {
	switch ex := e.(type) {
	case *ast.IntLit:
		return types.Primitive(types.Int)
	case *ast.FloatLit:
		return types.Primitive(types.Float)
	case *ast.CharLit:
		return types.Primitive(types.Char)
	case *ast.BoolLit:
		return types.Primitive(types.Bool)
	case *ast.StringLit:
		return types.Primitive(types.StringTag)
	case *ast.Ident:
		if fe.selfClassID >= 0 {
			if bp, ok := fe.blueprints.Get(fe.selfClassID); ok {
				if mem, ok := bp.Members[ex.Name]; ok {
					return mem.Type
				}
			}
		}
		if t, ok := fe.localTypes[ex.Name]; ok {
			return t
		}
		if id, ok := fe.funcsByName[ex.Name]; ok {
			return fe.procs.Get(id).RetType
		}
		return types.Primitive(types.Any)
	case *ast.UnaryExpr:
		return fe.typeOf(ex.X)
	case *ast.BinaryExpr:
		if ex.Op == ast.OpAccess {
			left := fe.typeOf(ex.Left)
			if left.Tag != types.ClassTag {
				return types.Primitive(types.Any)
			}
			bp, ok := fe.blueprints.Get(left.ClassID)
			if !ok {
				return types.Primitive(types.Any)
			}
			switch r := ex.Right.(type) {
			case *ast.Ident:
				if mem, ok := bp.Members[r.Name]; ok {
					return mem.Type
				}
			case *ast.CallExpr:
				if id, ok := r.Callee.(*ast.Ident); ok {
					if mem, ok := bp.Members[id.Name]; ok {
						return mem.Type
					}
				}
			}
			return types.Primitive(types.Any)
		}
		if ex.Op == ast.OpAssign {
			return fe.typeOf(ex.Left)
		}
		switch ex.Op {
		case ast.OpEq, ast.OpNotEq, ast.OpLt, ast.OpGt:
			return types.Primitive(types.Bool)
		default:
			return fe.typeOf(ex.Left)
		}
	case *ast.CallExpr:
		if id, ok := ex.Callee.(*ast.Ident); ok {
			if pid, ok := fe.funcsByName[id.Name]; ok {
				return fe.procs.Get(pid).RetType
			}
		}
		return types.Primitive(types.Any)
	case *ast.NewExpr:
		if cid, ok := fe.classes.Lookup(ex.ClassName); ok {
			return types.Class(cid)
		}
		return types.Primitive(types.Any)
	default:
		return types.Primitive(types.Any)
	}
}

// ---- statements ----

func (fe *funcEmitter) lowerStmt(s ast.Stmt) {
	switch st := s.(type) {
	case *ast.VarDeclStmt:
		declType := fe.resolveTypeRef(st.Type)
		var loc Locator
		if st.Init != nil {
			loc = fe.lowerExpr(st.Init, WantValue)
		} else {
			fe.emit(Unary(OpLoadConst, fe.internConstLocator(defaultValueFor(declType))))
			fe.push()
			loc = fe.top()
		}
		fe.locals[st.Name] = loc
		fe.localTypes[st.Name] = declType

	case *ast.ExprStmt:
		if be, ok := st.X.(*ast.BinaryExpr); ok && be.Op == ast.OpAssign {
			fe.lowerAssign(be, false)
			return
		}
		fe.lowerExpr(st.X, WantValue)
		fe.emit(Unary(OpPop, Locator{}))
		fe.rso--

	case *ast.ReturnStmt:
		if fe.isCtor {
			if st.Value != nil {
				fe.lowerExpr(st.Value, WantValue)
				fe.emit(Unary(OpPop, Locator{}))
				fe.rso--
			}
			fe.emit(Nonary(OpLeave))
			return
		}
		var loc Locator
		if st.Value != nil {
			loc = fe.lowerExpr(st.Value, WantValue)
		} else {
			loc = fe.internConstLocator(value.MakeEmpty())
		}
		fe.emit(Unary(OpReturn, loc))

	case *ast.IfStmt:
		fe.lowerIf(st)

	case *ast.WhileStmt:
		fe.lowerWhile(st)

	case *ast.BlockStmt:
		for _, s2 := range st.Stmts {
			fe.lowerStmt(s2)
		}
	}
}

func (fe *funcEmitter) lowerIf(st *ast.IfStmt) {
	pre := fe.cur
	condLoc := fe.lowerExpr(st.Cond, WantValue)
	fe.rso-- // JumpElse consumes the condition
	pre.Emit(Binary(OpJumpElse, condLoc, NoLocator))

	trueBlock := fe.cfg.NewBlock()
	pre.Truthy = trueBlock.ID
	fe.cur = trueBlock
	savedRso := fe.rso
	for _, s := range st.Then {
		fe.lowerStmt(s)
	}
	trueEnd := fe.cur
	trueFallsThrough := !blockTerminated(trueEnd)
	if trueFallsThrough {
		trueEnd.Emit(Unary(OpJump, NoLocator))
		trueEnd.Emit(Nonary(OpNop))
		trueEnd.Emit(Nonary(OpGenPatch))
	}
	fe.rso = savedRso

	var falseEnd *Block
	if st.Else != nil {
		falseBlock := fe.cfg.NewBlock()
		pre.Falsy = falseBlock.ID
		fe.cur = falseBlock
		if !trueFallsThrough {
			// No Jump/Nop/GenPatch ended the true branch, so the
			// JumpElse lands here instead.
			falseBlock.Emit(Nonary(OpNop))
			falseBlock.Emit(Nonary(OpGenPatch))
		}
		for _, s := range st.Else {
			fe.lowerStmt(s)
		}
		falseEnd = fe.cur
		fe.rso = savedRso
	}

	join := fe.cfg.NewBlock()
	join.Emit(Nonary(OpNop))
	if trueFallsThrough || st.Else == nil {
		join.Emit(Nonary(OpGenPatch))
	}
	if trueFallsThrough {
		trueEnd.Truthy = join.ID
	}
	if st.Else != nil {
		if !blockTerminated(falseEnd) {
			falseEnd.Truthy = join.ID
		}
	} else {
		pre.Falsy = join.ID
	}
	fe.cur = join
}

func (fe *funcEmitter) lowerWhile(st *ast.WhileStmt) {
	pre := fe.cur
	loop := fe.cfg.NewBlock()
	// Falls through from whatever block preceded the loop; no explicit
	// jump is needed to enter it since it is laid out immediately next.
	pre.Truthy = loop.ID
	fe.cur = loop
	loop.Emit(Nonary(OpNop))
	loop.Emit(Nonary(OpGenBeginLoop))
	savedRso := fe.rso
	condLoc := fe.lowerExpr(st.Cond, WantValue)
	fe.rso--
	loop.Emit(Binary(OpJumpElse, condLoc, NoLocator))

	body := fe.cfg.NewBlock()
	loop.Truthy = body.ID
	fe.cur = body
	for _, s := range st.Body {
		fe.lowerStmt(s)
	}
	bodyEnd := fe.cur
	if !blockTerminated(bodyEnd) {
		bodyEnd.Emit(Unary(OpJump, NoLocator))
		bodyEnd.Emit(Nonary(OpGenPatchBack))
		bodyEnd.Truthy = loop.ID
	}
	fe.rso = savedRso

	exit := fe.cfg.NewBlock()
	exit.Emit(Nonary(OpNop))
	exit.Emit(Nonary(OpGenPatch))
	loop.Falsy = exit.ID
	fe.cur = exit
}

// lowerAssign lowers `lhs = rhs`. When keepResult is true the assignment's
// value (a fresh read of the left-hand side taken after the write
// completes) is left on the stack, matching its use as a sub-expression;
// a bare `lhs = rhs;` statement passes keepResult=false and lowers fully
// balanced.
func (fe *funcEmitter) lowerAssign(ex *ast.BinaryExpr, keepResult bool) Locator {
	switch left := ex.Left.(type) {
	case *ast.Ident:
		kind, lloc := fe.resolveIdent(left.Name)
		switch kind {
		case "field":
			fe.emit(Nonary(OpGetSelf))
			fe.push()
			rhsLoc := fe.lowerExpr(ex.Right, WantValue)
			fe.emit(Binary(OpReplace, Locator{Region: Field, Index: lloc.Index}, rhsLoc))
			fe.rso -= 2
		default: // "local"
			rhsLoc := fe.lowerExpr(ex.Right, WantLocator)
			fe.emit(Binary(OpReplace, lloc, rhsLoc))
			if fe.freshTop(rhsLoc) {
				fe.emit(Unary(OpPop, Locator{}))
				fe.rso--
			}
		}
	case *ast.BinaryExpr: // obj.field = rhs
		fieldIdent := left.Right.(*ast.Ident)
		objType := fe.typeOf(left.Left)
		bp, _ := fe.blueprints.Get(objType.ClassID)
		mem := bp.Members[fieldIdent.Name]
		fe.lowerInstanceOperand(left.Left)
		rhsLoc := fe.lowerExpr(ex.Right, WantValue)
		fe.emit(Binary(OpReplace, Locator{Region: Field, Index: int32(mem.FieldIdx)}, rhsLoc))
		fe.rso -= 2
	}
	if keepResult {
		return fe.lowerExpr(ex.Left, WantValue)
	}
	return Locator{}
}

// lowerInstanceOperand always leaves a fresh instance handle at the top
// of the stack, for convention used by field reads/writes (spec §4.2:
// "MakeHeapObject... produces a fresh instance handle consumed as the
// implicit first operand of member accesses").
func (fe *funcEmitter) lowerInstanceOperand(objExpr ast.Expr) Locator {
	return fe.lowerExpr(objExpr, WantValue)
}

// lowerInstanceLocatorForCall lowers an InstanceCall's receiver with
// skip-emit discipline: a simple local is referenced directly without a
// redundant push, while a compound receiver expression is evaluated (and
// must be collapsed off the stack once the call returns).
func (fe *funcEmitter) lowerInstanceLocatorForCall(objExpr ast.Expr) (Locator, bool) {
	before := fe.rso
	loc := fe.lowerExpr(objExpr, WantLocator)
	return loc, fe.rso == before+1
}

// ---- expressions ----

func (fe *funcEmitter) lowerExpr(e ast.Expr, want Want) Locator {
	switch ex := e.(type) {
	case *ast.IntLit:
		return fe.lowerLiteral(fe.proc.internConst(value.MakeInt(ex.Value)), want)
	case *ast.FloatLit:
		return fe.lowerLiteral(fe.proc.internConst(value.MakeFloat(ex.Value)), want)
	case *ast.CharLit:
		return fe.lowerLiteral(fe.proc.internConst(value.MakeChar(ex.Value)), want)
	case *ast.BoolLit:
		return fe.lowerLiteral(fe.proc.internConst(value.MakeBool(ex.Value)), want)
	case *ast.StringLit:
		fe.emit(Unary(OpMakeHeapValue, Locator{Region: Immediate, Index: fe.internString(ex.Value)}))
		fe.push()
		return fe.top()
	case *ast.Ident:
		return fe.lowerIdent(ex, want)
	case *ast.UnaryExpr:
		loc := fe.lowerExpr(ex.X, WantValue)
		fe.emit(Unary(OpNeg, loc))
		return loc
	case *ast.BinaryExpr:
		return fe.lowerBinary(ex, want)
	case *ast.CallExpr:
		return fe.lowerCall(ex)
	case *ast.NewExpr:
		return fe.lowerNew(ex)
	default:
		return fe.internConstLocator(value.MakeEmpty())
	}
}

func (fe *funcEmitter) lowerLiteral(constIdx int32, want Want) Locator {
	loc := Locator{Region: Immediate, Index: constIdx}
	if want == WantLocator {
		return loc
	}
	fe.emit(Unary(OpLoadConst, loc))
	fe.push()
	return fe.top()
}

// internString interns a source string into the procedure's string table
// (kept separately from the Value constant pool, since a string literal
// must be materialized into a fresh heap cell at run time rather than
// read in place — see ir.Procedure.Strings).
func (fe *funcEmitter) internString(s string) int32 {
	for i, existing := range fe.proc.Strings {
		if existing == s {
			return int32(i)
		}
	}
	fe.proc.Strings = append(fe.proc.Strings, s)
	return int32(len(fe.proc.Strings) - 1)
}

func (fe *funcEmitter) lowerIdent(ex *ast.Ident, want Want) Locator {
	kind, loc := fe.resolveIdent(ex.Name)
	switch kind {
	case "local":
		if want == WantLocator {
			return loc
		}
		fe.emit(Unary(OpPush, loc))
		fe.push()
		return fe.top()
	case "field":
		fe.emit(Nonary(OpGetSelf))
		fe.push()
		fe.emit(Unary(OpPush, Locator{Region: Field, Index: loc.Index}))
		return fe.top()
	case "func", "native", "selfmethod":
		return loc
	default:
		return fe.internConstLocator(value.MakeEmpty())
	}
}

func (fe *funcEmitter) lowerBinary(ex *ast.BinaryExpr, want Want) Locator {
	switch ex.Op {
	case ast.OpAssign:
		return fe.lowerAssign(ex, true)
	case ast.OpAccess:
		return fe.lowerAccess(ex)
	default:
		fe.lowerExpr(ex.Left, WantValue)
		fe.lowerExpr(ex.Right, WantValue)
		fe.emit(Nonary(mapBinOp(ex.Op)))
		fe.rso -= 2
		fe.push()
		return fe.top()
	}
}

func mapBinOp(op ast.BinaryOp) Op {
	switch op {
	case ast.OpAdd:
		return OpAdd
	case ast.OpSub:
		return OpSub
	case ast.OpMul:
		return OpMul
	case ast.OpDiv:
		return OpDiv
	case ast.OpEq:
		return OpCmpEq
	case ast.OpNotEq:
		return OpCmpNe
	case ast.OpLt:
		return OpCmpLt
	case ast.OpGt:
		return OpCmpGt
	default:
		return OpNop
	}
}

func (fe *funcEmitter) lowerAccess(ex *ast.BinaryExpr) Locator {
	if call, ok := ex.Right.(*ast.CallExpr); ok {
		return fe.lowerInstanceCall(ex.Left, call)
	}
	ident := ex.Right.(*ast.Ident)
	return fe.lowerFieldRead(ex.Left, ident)
}

func (fe *funcEmitter) lowerFieldRead(objExpr ast.Expr, fieldIdent *ast.Ident) Locator {
	objType := fe.typeOf(objExpr)
	bp, _ := fe.blueprints.Get(objType.ClassID)
	mem := bp.Members[fieldIdent.Name]
	fe.lowerInstanceOperand(objExpr)
	fe.emit(Unary(OpPush, Locator{Region: Field, Index: int32(mem.FieldIdx)}))
	return fe.top()
}

func (fe *funcEmitter) lowerInstanceCall(objExpr ast.Expr, call *ast.CallExpr) Locator {
	objType := fe.typeOf(objExpr)
	bp, _ := fe.blueprints.Get(objType.ClassID)
	calleeIdent := call.Callee.(*ast.Ident)
	mem := bp.Members[calleeIdent.Name]

	instanceLoc, needsCollapse := fe.lowerInstanceLocatorForCall(objExpr)
	for _, a := range call.Args {
		fe.lowerExpr(a, WantValue)
	}
	arity := len(call.Args)
	fe.emit(Ternary(OpInstanceCall, instanceLoc, Locator{Region: Methods, Index: int32(mem.ProcID)}, immArity(arity)))
	fe.rso -= arity
	fe.push()
	if needsCollapse {
		return fe.collapseBelowTop(instanceLoc)
	}
	return fe.top()
}

func (fe *funcEmitter) lowerCall(ex *ast.CallExpr) Locator {
	id, ok := ex.Callee.(*ast.Ident)
	if !ok {
		return fe.lowerExpr(ex.Callee, WantValue)
	}
	kind, calleeLoc := fe.resolveIdent(id.Name)
	arity := len(ex.Args)

	switch kind {
	case "func":
		for _, a := range ex.Args {
			fe.lowerExpr(a, WantValue)
		}
		fe.emit(Binary(OpCall, calleeLoc, immArity(arity)))
		fe.rso -= arity
		fe.push()
		return fe.top()
	case "native":
		for _, a := range ex.Args {
			fe.lowerExpr(a, WantValue)
		}
		fe.emit(Unary(OpNativeCall, calleeLoc))
		fe.rso -= arity
		fe.push()
		return fe.top()
	case "selfmethod":
		fe.emit(Nonary(OpGetSelf))
		fe.push()
		selfLoc := fe.top()
		for _, a := range ex.Args {
			fe.lowerExpr(a, WantValue)
		}
		fe.emit(Ternary(OpInstanceCall, selfLoc, calleeLoc, immArity(arity)))
		fe.rso -= arity
		fe.push()
		return fe.collapseBelowTop(selfLoc)
	default:
		return fe.internConstLocator(value.MakeEmpty())
	}
}

func (fe *funcEmitter) lowerNew(ex *ast.NewExpr) Locator {
	classID, _ := fe.classes.Lookup(ex.ClassName)
	bp, _ := fe.blueprints.Get(classID)
	ctor, hasCtor := bp.Members[ex.ClassName]

	if !hasCtor || !ctor.IsConstructor {
		fe.emit(Unary(OpMakeHeapObject, Locator{Region: Immediate, Index: int32(len(bp.FieldOrder))}))
		fe.push()
		return fe.top()
	}

	for _, a := range ex.Args {
		fe.lowerExpr(a, WantValue)
	}
	arity := len(ex.Args)
	fe.emit(Binary(OpCall, Locator{Region: Functions, Index: int32(ctor.ProcID)}, immArity(arity)))
	fe.rso -= arity
	fe.push()
	return fe.top()
}

// Package ast defines Loxie's abstract syntax tree.
//
// Node types are a plain sum type (interfaces implemented by concrete
// structs) rather than a graph with parent pointers, matching spec §9:
// consumers type-switch on the concrete node and carry their own mutable
// state, rather than the AST calling back into a dispatch table.
package ast

import "github.com/loxiemachine/loxie/internal/token"

// Node is any AST node; every node knows where it came from in the source.
type Node interface {
	Pos() token.Position
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Decl is a top-level declaration: a function, a class, or an import.
type Decl interface {
	Node
	declNode()
}

// TranslationUnit is one parsed file's declarations.
type TranslationUnit struct {
	Path  string
	Decls []Decl
}

// Program is the concatenation of every translation unit's declarations,
// produced by the loader's import DFS (spec §6) before semantic analysis
// runs once over the whole list (spec §4.1).
type Program struct {
	Units []*TranslationUnit
}

// AllDecls returns every declaration across every unit, in unit order.
func (p *Program) AllDecls() []Decl {
	var out []Decl
	for _, u := range p.Units {
		out = append(out, u.Decls...)
	}
	return out
}

// ---- Declarations ----

type TypeRef struct {
	PosVal token.Position
	Name   string // "int", "float", "char", "bool", "string", "any", or a class name
}

func (t *TypeRef) Pos() token.Position { return t.PosVal }

type Param struct {
	Name string
	Type *TypeRef
}

// FunDecl is a free function declaration.
type FunDecl struct {
	PosVal  token.Position
	Name    string
	Params  []Param
	RetType *TypeRef // nil when the declaration omits a return type; resolved as void
	Body    []Stmt
}

func (d *FunDecl) Pos() token.Position { return d.PosVal }
func (d *FunDecl) declNode()           {}

// AccessFlag mirrors the spec's member visibility flag.
type AccessFlag int

const (
	Exposed AccessFlag = iota
	Hidden
)

// FieldDecl is a class field.
type FieldDecl struct {
	PosVal token.Position
	Name   string
	Type   *TypeRef
	Access AccessFlag
}

func (d *FieldDecl) Pos() token.Position { return d.PosVal }

// MethodDecl is a class method or constructor. IsConstructor distinguishes
// the two; a constructor's RetType, if one is written, is ignored (a
// constructor always produces the new instance).
type MethodDecl struct {
	PosVal        token.Position
	Name          string
	Params        []Param
	RetType       *TypeRef
	Body          []Stmt
	Access        AccessFlag
	IsConstructor bool
}

func (d *MethodDecl) Pos() token.Position { return d.PosVal }

// ClassDecl is a user-defined class: flat, final, no inheritance (spec §9).
type ClassDecl struct {
	PosVal  token.Position
	Name    string
	Fields  []*FieldDecl
	Methods []*MethodDecl
}

func (d *ClassDecl) Pos() token.Position { return d.PosVal }
func (d *ClassDecl) declNode()           {}

// ImportDecl names a bare identifier resolved by the loader (spec §6).
type ImportDecl struct {
	PosVal token.Position
	Name   string
}

func (d *ImportDecl) Pos() token.Position { return d.PosVal }
func (d *ImportDecl) declNode()           {}

// ---- Statements ----

type VarDeclStmt struct {
	PosVal token.Position
	Name   string
	Type   *TypeRef
	Init   Expr
}

func (s *VarDeclStmt) Pos() token.Position { return s.PosVal }
func (s *VarDeclStmt) stmtNode()           {}

type ExprStmt struct {
	PosVal token.Position
	X      Expr
}

func (s *ExprStmt) Pos() token.Position { return s.PosVal }
func (s *ExprStmt) stmtNode()           {}

type ReturnStmt struct {
	PosVal token.Position
	Value  Expr // nil for bare `return;`
}

func (s *ReturnStmt) Pos() token.Position { return s.PosVal }
func (s *ReturnStmt) stmtNode()           {}

type IfStmt struct {
	PosVal token.Position
	Cond   Expr
	Then   []Stmt
	Else   []Stmt // nil if no else branch
}

func (s *IfStmt) Pos() token.Position { return s.PosVal }
func (s *IfStmt) stmtNode()           {}

type WhileStmt struct {
	PosVal token.Position
	Cond   Expr
	Body   []Stmt
}

func (s *WhileStmt) Pos() token.Position { return s.PosVal }
func (s *WhileStmt) stmtNode()           {}

// BlockStmt groups statements without introducing an AST-level scope marker
// beyond what the semantic analyzer itself pushes.
type BlockStmt struct {
	PosVal token.Position
	Stmts  []Stmt
}

func (s *BlockStmt) Pos() token.Position { return s.PosVal }
func (s *BlockStmt) stmtNode()           {}

// ---- Expressions ----

type IntLit struct {
	PosVal token.Position
	Value  int32
}

func (e *IntLit) Pos() token.Position { return e.PosVal }
func (e *IntLit) exprNode()           {}

type FloatLit struct {
	PosVal token.Position
	Value  float32
}

func (e *FloatLit) Pos() token.Position { return e.PosVal }
func (e *FloatLit) exprNode()           {}

type CharLit struct {
	PosVal token.Position
	Value  byte
}

func (e *CharLit) Pos() token.Position { return e.PosVal }
func (e *CharLit) exprNode()           {}

type BoolLit struct {
	PosVal token.Position
	Value  bool
}

func (e *BoolLit) Pos() token.Position { return e.PosVal }
func (e *BoolLit) exprNode()           {}

type StringLit struct {
	PosVal token.Position
	Value  string
}

func (e *StringLit) Pos() token.Position { return e.PosVal }
func (e *StringLit) exprNode()           {}

// Ident is a bare name reference.
type Ident struct {
	PosVal token.Position
	Name   string
}

func (e *Ident) Pos() token.Position { return e.PosVal }
func (e *Ident) exprNode()           {}

// BinaryOp enumerates the source-level binary operators; the semantic
// analyzer partitions these into homogeneous/access/call categories
// per spec §4.1.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpEq
	OpNotEq
	OpLt
	OpGt
	OpAssign
	OpAccess // '.'
)

type BinaryExpr struct {
	PosVal token.Position
	Op     BinaryOp
	Left   Expr
	Right  Expr
}

func (e *BinaryExpr) Pos() token.Position { return e.PosVal }
func (e *BinaryExpr) exprNode()           {}

type UnaryExpr struct {
	PosVal token.Position
	X      Expr
}

func (e *UnaryExpr) Pos() token.Position { return e.PosVal }
func (e *UnaryExpr) exprNode()           {}

// CallExpr invokes a callee (a name, or the result of an access expression)
// with a fixed argument list.
type CallExpr struct {
	PosVal token.Position
	Callee Expr
	Args   []Expr
}

func (e *CallExpr) Pos() token.Position { return e.PosVal }
func (e *CallExpr) exprNode()           {}

// NewExpr constructs an instance of a named class.
type NewExpr struct {
	PosVal    token.Position
	ClassName string
	Args      []Expr
}

func (e *NewExpr) Pos() token.Position { return e.PosVal }
func (e *NewExpr) exprNode()           {}

// Package parser is a recursive-descent parser for Loxie source text.
//
// Like the lexer, the parser is an external collaborator per the spec: the
// core only consumes the ast.Program it produces. It follows the teacher's
// parser idiom of accumulating string errors rather than returning them,
// so a caller can report every syntax error found in one pass.
package parser

import (
	"fmt"
	"strconv"

	"github.com/loxiemachine/loxie/internal/ast"
	"github.com/loxiemachine/loxie/internal/lexer"
	"github.com/loxiemachine/loxie/internal/token"
)

type Parser struct {
	l       *lexer.Lexer
	cur     token.Token
	peekTok token.Token
	errors  []string
}

// New creates a Parser reading from l.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	p.next()
	p.next()
	return p
}

func (p *Parser) next() {
	p.cur = p.peekTok
	p.peekTok = p.l.Next()
}

// Errors returns every syntax error accumulated so far.
func (p *Parser) Errors() []string { return p.errors }

func (p *Parser) errorf(pos token.Position, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	p.errors = append(p.errors, fmt.Sprintf("%d:%d: %s", pos.Line, pos.Column, msg))
}

func (p *Parser) expect(k token.Kind) token.Token {
	tok := p.cur
	if p.cur.Kind != k {
		p.errorf(p.cur.Pos, "expected %s, got %q", k, p.cur.Lexeme)
	} else {
		p.next()
	}
	return tok
}

// ParseUnit parses one translation unit (one source file's worth of
// declarations).
func (p *Parser) ParseUnit(path string) *ast.TranslationUnit {
	unit := &ast.TranslationUnit{Path: path}
	for p.cur.Kind != token.EOF {
		if d := p.parseDecl(); d != nil {
			unit.Decls = append(unit.Decls, d)
		} else {
			p.next()
		}
	}
	return unit
}

func (p *Parser) parseDecl() ast.Decl {
	switch p.cur.Kind {
	case token.Import:
		return p.parseImport()
	case token.Fun:
		return p.parseFun()
	case token.Class:
		return p.parseClass()
	default:
		p.errorf(p.cur.Pos, "expected declaration, got %q", p.cur.Lexeme)
		return nil
	}
}

func (p *Parser) parseImport() ast.Decl {
	pos := p.cur.Pos
	p.next() // 'import'
	name := p.expect(token.Ident).Lexeme
	p.expect(token.Semicolon)
	return &ast.ImportDecl{PosVal: pos, Name: name}
}

func (p *Parser) parseTypeRef() *ast.TypeRef {
	pos := p.cur.Pos
	name := p.expect(token.Ident).Lexeme
	return &ast.TypeRef{PosVal: pos, Name: name}
}

func (p *Parser) parseParams() []ast.Param {
	p.expect(token.LParen)
	var params []ast.Param
	for p.cur.Kind != token.RParen && p.cur.Kind != token.EOF {
		name := p.expect(token.Ident).Lexeme
		p.expect(token.Colon)
		typ := p.parseTypeRef()
		params = append(params, ast.Param{Name: name, Type: typ})
		if p.cur.Kind == token.Comma {
			p.next()
		}
	}
	p.expect(token.RParen)
	return params
}

func (p *Parser) parseFun() ast.Decl {
	pos := p.cur.Pos
	p.next() // 'fun'
	name := p.expect(token.Ident).Lexeme
	params := p.parseParams()
	var ret *ast.TypeRef
	if p.cur.Kind == token.Colon {
		p.next()
		ret = p.parseTypeRef()
	}
	body := p.parseBlock()
	return &ast.FunDecl{PosVal: pos, Name: name, Params: params, RetType: ret, Body: body}
}

func (p *Parser) parseClass() ast.Decl {
	pos := p.cur.Pos
	p.next() // 'class'
	name := p.expect(token.Ident).Lexeme
	p.expect(token.LBrace)

	decl := &ast.ClassDecl{PosVal: pos, Name: name}
	for p.cur.Kind != token.RBrace && p.cur.Kind != token.EOF {
		access := ast.Exposed
		if p.cur.Kind == token.Private {
			access = ast.Hidden
			p.next()
		} else if p.cur.Kind == token.Public {
			p.next()
		}

		switch p.cur.Kind {
		case token.Let:
			fpos := p.cur.Pos
			p.next()
			fname := p.expect(token.Ident).Lexeme
			p.expect(token.Colon)
			ftyp := p.parseTypeRef()
			p.expect(token.Semicolon)
			decl.Fields = append(decl.Fields, &ast.FieldDecl{PosVal: fpos, Name: fname, Type: ftyp, Access: access})
		case token.Fun:
			mpos := p.cur.Pos
			p.next()
			mname := p.expect(token.Ident).Lexeme
			isCtor := mname == name
			params := p.parseParams()
			var ret *ast.TypeRef
			if p.cur.Kind == token.Colon {
				p.next()
				ret = p.parseTypeRef()
			}
			body := p.parseBlock()
			decl.Methods = append(decl.Methods, &ast.MethodDecl{
				PosVal: mpos, Name: mname, Params: params, RetType: ret,
				Body: body, Access: access, IsConstructor: isCtor,
			})
		default:
			p.errorf(p.cur.Pos, "expected field or method, got %q", p.cur.Lexeme)
			p.next()
		}
	}
	p.expect(token.RBrace)
	return decl
}

func (p *Parser) parseBlock() []ast.Stmt {
	p.expect(token.LBrace)
	var stmts []ast.Stmt
	for p.cur.Kind != token.RBrace && p.cur.Kind != token.EOF {
		stmts = append(stmts, p.parseStmt())
	}
	p.expect(token.RBrace)
	return stmts
}

func (p *Parser) parseStmt() ast.Stmt {
	switch p.cur.Kind {
	case token.Let:
		return p.parseVarDecl()
	case token.Return:
		return p.parseReturn()
	case token.If:
		return p.parseIf()
	case token.While:
		return p.parseWhile()
	case token.LBrace:
		pos := p.cur.Pos
		return &ast.BlockStmt{PosVal: pos, Stmts: p.parseBlock()}
	default:
		return p.parseExprStmt()
	}
}

func (p *Parser) parseVarDecl() ast.Stmt {
	pos := p.cur.Pos
	p.next() // 'let'
	name := p.expect(token.Ident).Lexeme
	p.expect(token.Colon)
	typ := p.parseTypeRef()
	var init ast.Expr
	if p.cur.Kind == token.Assign {
		p.next()
		init = p.parseExpr(lowest)
	}
	p.expect(token.Semicolon)
	return &ast.VarDeclStmt{PosVal: pos, Name: name, Type: typ, Init: init}
}

func (p *Parser) parseReturn() ast.Stmt {
	pos := p.cur.Pos
	p.next() // 'return'
	var val ast.Expr
	if p.cur.Kind != token.Semicolon {
		val = p.parseExpr(lowest)
	}
	p.expect(token.Semicolon)
	return &ast.ReturnStmt{PosVal: pos, Value: val}
}

func (p *Parser) parseIf() ast.Stmt {
	pos := p.cur.Pos
	p.next() // 'if'
	cond := p.parseExpr(lowest)
	then := p.parseBlock()
	var els []ast.Stmt
	if p.cur.Kind == token.Else {
		p.next()
		if p.cur.Kind == token.If {
			els = []ast.Stmt{p.parseIf()}
		} else {
			els = p.parseBlock()
		}
	}
	return &ast.IfStmt{PosVal: pos, Cond: cond, Then: then, Else: els}
}

func (p *Parser) parseWhile() ast.Stmt {
	pos := p.cur.Pos
	p.next() // 'while'
	cond := p.parseExpr(lowest)
	body := p.parseBlock()
	return &ast.WhileStmt{PosVal: pos, Cond: cond, Body: body}
}

func (p *Parser) parseExprStmt() ast.Stmt {
	pos := p.cur.Pos
	x := p.parseExpr(lowest)
	p.expect(token.Semicolon)
	return &ast.ExprStmt{PosVal: pos, X: x}
}

// Precedence levels for the expression parser (precedence-climbing).
const (
	lowest = iota
	assignPrec
	equalsPrec
	compPrec
	sumPrec
	productPrec
	accessPrec
	callPrec
)

func precedenceOf(k token.Kind) int {
	switch k {
	case token.Assign:
		return assignPrec
	case token.Eq, token.NotEq:
		return equalsPrec
	case token.Lt, token.Gt:
		return compPrec
	case token.Plus, token.Minus:
		return sumPrec
	case token.Star, token.Slash:
		return productPrec
	case token.Dot:
		return accessPrec
	case token.LParen:
		return callPrec
	default:
		return lowest
	}
}

func (p *Parser) parseExpr(minPrec int) ast.Expr {
	left := p.parsePrefix()
	for precedenceOf(p.cur.Kind) > minPrec {
		switch p.cur.Kind {
		case token.LParen:
			left = p.parseCall(left)
		default:
			left = p.parseBinary(left)
		}
	}
	return left
}

func (p *Parser) parseBinary(left ast.Expr) ast.Expr {
	opTok := p.cur
	prec := precedenceOf(opTok.Kind)
	var op ast.BinaryOp
	switch opTok.Kind {
	case token.Plus:
		op = ast.OpAdd
	case token.Minus:
		op = ast.OpSub
	case token.Star:
		op = ast.OpMul
	case token.Slash:
		op = ast.OpDiv
	case token.Eq:
		op = ast.OpEq
	case token.NotEq:
		op = ast.OpNotEq
	case token.Lt:
		op = ast.OpLt
	case token.Gt:
		op = ast.OpGt
	case token.Assign:
		op = ast.OpAssign
	case token.Dot:
		op = ast.OpAccess
	}
	p.next()
	// Assignment is right-associative; access/arithmetic are left-associative.
	nextMin := prec
	if op == ast.OpAssign {
		nextMin = prec - 1
	}
	right := p.parseExpr(nextMin)
	return &ast.BinaryExpr{PosVal: opTok.Pos, Op: op, Left: left, Right: right}
}

func (p *Parser) parseCall(callee ast.Expr) ast.Expr {
	pos := p.cur.Pos
	p.next() // '('
	var args []ast.Expr
	for p.cur.Kind != token.RParen && p.cur.Kind != token.EOF {
		args = append(args, p.parseExpr(lowest))
		if p.cur.Kind == token.Comma {
			p.next()
		}
	}
	p.expect(token.RParen)
	return &ast.CallExpr{PosVal: pos, Callee: callee, Args: args}
}

func (p *Parser) parsePrefix() ast.Expr {
	tok := p.cur
	switch tok.Kind {
	case token.IntLit:
		p.next()
		v, err := strconv.ParseInt(tok.Lexeme, 10, 32)
		if err != nil {
			p.errorf(tok.Pos, "invalid integer literal %q", tok.Lexeme)
		}
		return &ast.IntLit{PosVal: tok.Pos, Value: int32(v)}
	case token.FloatLit:
		p.next()
		v, err := strconv.ParseFloat(tok.Lexeme, 32)
		if err != nil {
			p.errorf(tok.Pos, "invalid float literal %q", tok.Lexeme)
		}
		return &ast.FloatLit{PosVal: tok.Pos, Value: float32(v)}
	case token.CharLit:
		p.next()
		var b byte
		if len(tok.Lexeme) > 0 {
			b = tok.Lexeme[0]
		}
		return &ast.CharLit{PosVal: tok.Pos, Value: b}
	case token.TrueLit:
		p.next()
		return &ast.BoolLit{PosVal: tok.Pos, Value: true}
	case token.FalseLit:
		p.next()
		return &ast.BoolLit{PosVal: tok.Pos, Value: false}
	case token.StringLit:
		p.next()
		return &ast.StringLit{PosVal: tok.Pos, Value: tok.Lexeme}
	case token.Ident:
		p.next()
		return &ast.Ident{PosVal: tok.Pos, Name: tok.Lexeme}
	case token.Minus:
		p.next()
		x := p.parseExpr(productPrec)
		return &ast.UnaryExpr{PosVal: tok.Pos, X: x}
	case token.New:
		p.next()
		name := p.expect(token.Ident).Lexeme
		p.expect(token.LParen)
		var args []ast.Expr
		for p.cur.Kind != token.RParen && p.cur.Kind != token.EOF {
			args = append(args, p.parseExpr(lowest))
			if p.cur.Kind == token.Comma {
				p.next()
			}
		}
		p.expect(token.RParen)
		return &ast.NewExpr{PosVal: tok.Pos, ClassName: name, Args: args}
	case token.LParen:
		p.next()
		x := p.parseExpr(lowest)
		p.expect(token.RParen)
		return x
	default:
		p.errorf(tok.Pos, "unexpected token %q in expression", tok.Lexeme)
		p.next()
		return &ast.IntLit{PosVal: tok.Pos, Value: 0}
	}
}

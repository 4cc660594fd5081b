// Package parser implements the GAL recursive-descent parser (spec §4.6): a
// Pratt expression parser, one-token lookahead, per-function local scope
// tracking, and a recovery-token multiset so a single pass can report many
// syntax errors instead of aborting on the first one.
package parser

import (
	"fmt"

	"github.com/galang-lang/gal/ast"
	"github.com/galang-lang/gal/lexer"
	"github.com/galang-lang/gal/token"
)

// Diagnostic is one recorded parse error (spec §7: "Parse errors ...
// recorded into parse_result.errors").
type Diagnostic struct {
	Location token.Location
	Message  string
}

// Result is everything the compiler needs from a parse: the chunk AST, any
// diagnostics gathered during error recovery, and ambient metadata (hot
// comments, strictness) carried from the lexer.
type Result struct {
	Chunk       *ast.Block
	Diagnostics []Diagnostic
	HotComments []string
	// Strict reflects a `#!strict` hot comment (spec §6 SPEC_FULL
	// supplement); GAL has no type checker, so this is exposed for an
	// embedder-level consumer rather than acted on internally.
	Strict bool
}

// funcState tracks per-function compilation context: loop depth and
// whether this is the chunk's root function (spec §4.6).
type funcState struct {
	isRoot    bool
	loopDepth int
}

// localVar records a declared local's position in the parser's open-locals
// stack.
type localVar struct {
	name  string
	depth int
}

// Parser implements the grammar in spec §4.6.
type Parser struct {
	lex *lexer.Lexer
	cur token.Token

	funcs []*funcState
	scope int
	locals []localVar

	diagnostics []Diagnostic
}

// Parse parses a full chunk (spec grammar: `chunk := block EOF`).
func Parse(src string) *Result {
	p := &Parser{lex: lexer.New(src)}
	p.advance()
	p.funcs = append(p.funcs, &funcState{isRoot: true})

	block := p.block()
	p.expect(token.Eof, "end of file")

	return &Result{
		Chunk:       block,
		Diagnostics: p.diagnostics,
		HotComments: p.lex.HotComments,
		Strict:      containsStrict(p.lex.HotComments),
	}
}

func containsStrict(comments []string) bool {
	for _, c := range comments {
		if c == "strict" {
			return true
		}
	}
	return false
}

func (p *Parser) advance() token.Token {
	prev := p.cur
	p.cur = p.lex.Next()
	return prev
}

func (p *Parser) at(k token.Kind) bool { return p.cur.Kind == k }

func (p *Parser) accept(k token.Kind) (token.Token, bool) {
	if p.at(k) {
		return p.advance(), true
	}
	return token.Token{}, false
}

func (p *Parser) expect(k token.Kind, what string) token.Token {
	if p.at(k) {
		return p.advance()
	}
	p.errorf("expected %s, got %s", what, p.cur.Kind)
	return p.cur
}

func (p *Parser) errorf(format string, args ...interface{}) {
	p.diagnostics = append(p.diagnostics, Diagnostic{
		Location: p.cur.Location,
		Message:  fmt.Sprintf(format, args...),
	})
}

// recoverySet is the "match-recovery token multiset" of spec §4.6: on a
// syntax error the parser consumes tokens until it finds one of these.
var recoverySet = map[token.Kind]bool{
	token.Semicolon:       true,
	token.KeywordEnd:      true,
	token.KeywordElse:     true,
	token.KeywordElseif:   true,
	token.KeywordUntil:    true,
	token.Eof:             true,
	token.KeywordFunction: true,
	token.KeywordLocal:    true,
	token.KeywordIf:       true,
	token.KeywordReturn:   true,
}

func (p *Parser) recover() {
	for !recoverySet[p.cur.Kind] {
		p.advance()
	}
}

func (p *Parser) here() token.Location {
	return token.Location{Begin: p.cur.Location.Begin, End: p.cur.Location.Begin}
}

func (p *Parser) span(start token.Position) token.Location {
	return token.Location{Begin: start, End: p.cur.Location.Begin}
}

// ---- Blocks & statements ----

func blockEnds(k token.Kind) bool {
	switch k {
	case token.Eof, token.KeywordEnd, token.KeywordElse, token.KeywordElseif, token.KeywordUntil:
		return true
	}
	return false
}

func (p *Parser) block() *ast.Block {
	start := p.cur.Location.Begin
	depthBefore := len(p.locals)
	p.scope++
	var stats []ast.Stat
	for !blockEnds(p.cur.Kind) {
		before := len(p.diagnostics)
		st := p.statement()
		if st != nil {
			stats = append(stats, st)
		}
		if _, ok := p.accept(token.Semicolon); ok {
			// optional separator
		}
		if len(p.diagnostics) > before {
			p.recover()
		}
		if st == nil && len(p.diagnostics) == before {
			// statement() returned nil without an error: avoid infinite loop.
			break
		}
	}
	hasScope := len(p.locals) > depthBefore
	p.locals = p.locals[:depthBefore]
	p.scope--
	b := ast.NewBlock(p.span(start), stats)
	b.HasScope = hasScope
	return b
}

func (p *Parser) statement() ast.Stat {
	start := p.cur.Location.Begin
	switch p.cur.Kind {
	case token.KeywordIf:
		return p.ifStat()
	case token.KeywordWhile:
		return p.whileStat()
	case token.KeywordRepeat:
		return p.repeatStat()
	case token.KeywordFor:
		return p.forStat()
	case token.KeywordDo:
		p.advance()
		b := p.block()
		p.expect(token.KeywordEnd, "'end'")
		return b
	case token.KeywordBreak:
		p.advance()
		if len(p.funcs) > 0 && p.funcs[len(p.funcs)-1].loopDepth == 0 {
			p.errorf("'break' outside a loop")
		}
		return ast.NewBreakStat(p.span(start))
	case token.KeywordContinue:
		p.advance()
		if len(p.funcs) > 0 && p.funcs[len(p.funcs)-1].loopDepth == 0 {
			p.errorf("'continue' outside a loop")
		}
		return ast.NewContinueStat(p.span(start))
	case token.KeywordReturn:
		return p.returnStat()
	case token.KeywordFunction:
		return p.functionStat()
	case token.KeywordLocal:
		return p.localStat()
	case token.KeywordDeclare:
		return p.declareStat()
	case token.KeywordUsing, token.KeywordExport:
		return p.typeAliasStat()
	default:
		return p.exprOrAssignStat()
	}
}

func (p *Parser) withLoop(fn func() *ast.Block) *ast.Block {
	fs := p.funcs[len(p.funcs)-1]
	fs.loopDepth++
	b := fn()
	fs.loopDepth--
	return b
}

func (p *Parser) ifStat() ast.Stat {
	start := p.cur.Location.Begin
	p.advance() // if
	cond := p.expr()
	p.expect(token.KeywordThen, "'then'")
	then := p.block()
	var elseIfs []ast.ElseIf
	for p.at(token.KeywordElseif) {
		p.advance()
		c := p.expr()
		p.expect(token.KeywordThen, "'then'")
		elseIfs = append(elseIfs, ast.ElseIf{Cond: c, Body: p.block()})
	}
	var els *ast.Block
	if _, ok := p.accept(token.KeywordElse); ok {
		els = p.block()
	}
	p.expect(token.KeywordEnd, "'end'")
	return ast.NewIfStat(p.span(start), cond, then, elseIfs, els)
}

func (p *Parser) whileStat() ast.Stat {
	start := p.cur.Location.Begin
	p.advance()
	cond := p.expr()
	p.expect(token.KeywordDo, "'do'")
	body := p.withLoop(p.block)
	p.expect(token.KeywordEnd, "'end'")
	return ast.NewWhileStat(p.span(start), cond, body)
}

func (p *Parser) repeatStat() ast.Stat {
	start := p.cur.Location.Begin
	p.advance()
	body := p.withLoop(p.block)
	p.expect(token.KeywordUntil, "'until'")
	cond := p.expr()
	return ast.NewRepeatStat(p.span(start), body, cond)
}

func (p *Parser) forStat() ast.Stat {
	start := p.cur.Location.Begin
	p.advance() // for
	first := p.expect(token.Name, "identifier").Payload
	if _, ok := p.accept(token.Assign); ok {
		from := p.expr()
		p.expect(token.Comma, "','")
		limit := p.expr()
		var step ast.Expr
		if _, ok := p.accept(token.Comma); ok {
			step = p.expr()
		}
		p.expect(token.KeywordDo, "'do'")
		outer := len(p.locals)
		p.declareLocal(first)
		body := p.withLoop(p.block)
		p.locals = p.locals[:outer]
		p.expect(token.KeywordEnd, "'end'")
		return ast.NewNumericForStat(p.span(start), ast.Binding{Name: first}, from, limit, step, body)
	}

	names := []string{first}
	for {
		if _, ok := p.accept(token.Comma); !ok {
			break
		}
		names = append(names, p.expect(token.Name, "identifier").Payload)
	}
	p.expect(token.KeywordIn, "'in'")
	exprs := p.exprList()
	p.expect(token.KeywordDo, "'do'")
	outer := len(p.locals)
	bindings := make([]ast.Binding, len(names))
	for i, n := range names {
		bindings[i] = ast.Binding{Name: n}
		p.declareLocal(n)
	}
	body := p.withLoop(p.block)
	p.locals = p.locals[:outer]
	p.expect(token.KeywordEnd, "'end'")
	return ast.NewGenericForStat(p.span(start), bindings, exprs, body)
}

func (p *Parser) returnStat() ast.Stat {
	start := p.cur.Location.Begin
	p.advance()
	var values []ast.Expr
	if !blockEnds(p.cur.Kind) && !p.at(token.Semicolon) {
		values = p.exprList()
	}
	return ast.NewReturnStat(p.span(start), values)
}

func (p *Parser) functionStat() ast.Stat {
	start := p.cur.Location.Begin
	p.advance() // function
	chain := []string{p.expect(token.Name, "identifier").Payload}
	isMethod := false
	for p.at(token.Dot) || p.at(token.Colon) {
		if p.at(token.Colon) {
			p.advance()
			chain = append(chain, p.expect(token.Name, "identifier").Payload)
			isMethod = true
			break
		}
		p.advance() // '.'
		chain = append(chain, p.expect(token.Name, "identifier").Payload)
	}
	fn := p.functionBody(isMethod)
	return ast.NewFunctionStat(p.span(start), chain, isMethod, fn)
}

func (p *Parser) functionBody(self bool) *ast.FunctionLiteral {
	start := p.cur.Location.Begin
	p.expect(token.LParen, "'('")
	var params []ast.Binding
	if self {
		params = append(params, ast.Binding{Name: "self"})
	}
	variadic := false
	for !p.at(token.RParen) {
		if p.at(token.Name) {
			name := p.advance().Payload
			var typ ast.Type
			if _, ok := p.accept(token.Colon); ok {
				typ = p.typeExpr()
			}
			params = append(params, ast.Binding{Name: name, Type: typ})
		}
		if _, ok := p.accept(token.Comma); !ok {
			break
		}
	}
	p.expect(token.RParen, "')'")
	if _, ok := p.accept(token.Colon); ok {
		p.typeExpr() // return type annotation, not retained on FunctionLiteral
	}

	p.funcs = append(p.funcs, &funcState{})
	localsBefore := len(p.locals)
	for _, param := range params {
		p.declareLocal(param.Name)
	}
	body := p.block()
	p.locals = p.locals[:localsBefore]
	p.funcs = p.funcs[:len(p.funcs)-1]

	p.expect(token.KeywordEnd, "'end'")
	fn := ast.NewFunctionLiteral(p.span(start), params, variadic, body)
	fn.SelfParam = self
	return fn
}

func (p *Parser) localStat() ast.Stat {
	start := p.cur.Location.Begin
	p.advance() // local
	if _, ok := p.accept(token.KeywordFunction); ok {
		name := p.expect(token.Name, "identifier").Payload
		p.declareLocal(name)
		fn := p.functionBody(false)
		return ast.NewLocalFunctionStat(p.span(start), name, fn)
	}

	var bindings []ast.Binding
	for {
		name := p.expect(token.Name, "identifier").Payload
		var typ ast.Type
		if _, ok := p.accept(token.Colon); ok {
			typ = p.typeExpr()
		}
		bindings = append(bindings, ast.Binding{Name: name, Type: typ})
		if _, ok := p.accept(token.Comma); !ok {
			break
		}
	}
	var values []ast.Expr
	if _, ok := p.accept(token.Assign); ok {
		values = p.exprList()
	}
	for _, b := range bindings {
		p.declareLocal(b.Name)
	}
	return ast.NewLocalStat(p.span(start), bindings, values)
}

func (p *Parser) declareStat() ast.Stat {
	start := p.cur.Location.Begin
	p.advance() // declare
	switch {
	case p.at(token.KeywordFunction):
		p.advance()
		name := p.expect(token.Name, "identifier").Payload
		p.expect(token.LParen, "'('")
		var params []ast.Binding
		for !p.at(token.RParen) {
			pname := p.expect(token.Name, "identifier").Payload
			var typ ast.Type
			if _, ok := p.accept(token.Colon); ok {
				typ = p.typeExpr()
			}
			params = append(params, ast.Binding{Name: pname, Type: typ})
			if _, ok := p.accept(token.Comma); !ok {
				break
			}
		}
		p.expect(token.RParen, "')'")
		var ret ast.Type
		if _, ok := p.accept(token.Arrow); ok {
			ret = p.typeExpr()
		}
		return ast.NewDeclareStat(p.span(start), ast.DeclareStat{What: ast.DeclareFunction, Name: name, Params: params, Return: ret})
	case p.at(token.Name):
		name := p.advance().Payload
		p.expect(token.Colon, "':'")
		typ := p.typeExpr()
		return ast.NewDeclareStat(p.span(start), ast.DeclareStat{What: ast.DeclareVariable, Name: name, Return: typ})
	default:
		p.errorf("expected 'function' or identifier after 'declare'")
		return ast.NewErrorStat(p.span(start), "malformed declare")
	}
}

func (p *Parser) typeAliasStat() ast.Stat {
	start := p.cur.Location.Begin
	export := false
	if _, ok := p.accept(token.KeywordExport); ok {
		export = true
	}
	p.expect(token.KeywordUsing, "'using'")
	name := p.expect(token.Name, "identifier").Payload
	var generics []string
	if _, ok := p.accept(token.Lt); ok {
		for {
			generics = append(generics, p.expect(token.Name, "identifier").Payload)
			if _, ok := p.accept(token.Comma); !ok {
				break
			}
		}
		p.expect(token.Gt, "'>'")
	}
	p.expect(token.Assign, "'='")
	typ := p.typeExpr()
	return ast.NewTypeAliasStat(p.span(start), export, name, generics, typ)
}

func (p *Parser) exprOrAssignStat() ast.Stat {
	start := p.cur.Location.Begin
	first := p.suffixedExpr()

	if compound, op, ok := p.compoundAssignOp(); ok {
		_ = compound
		value := p.expr()
		return ast.NewCompoundAssignStat(p.span(start), first, op, value)
	}

	if p.at(token.Assign) || p.at(token.Comma) {
		targets := []ast.Expr{first}
		for {
			if _, ok := p.accept(token.Comma); !ok {
				break
			}
			targets = append(targets, p.suffixedExpr())
		}
		p.expect(token.Assign, "'='")
		values := p.exprList()
		return ast.NewAssignStat(p.span(start), targets, values)
	}

	if _, ok := first.(*ast.Call); !ok {
		p.errorf("syntax error: expected statement")
		return ast.NewErrorStat(p.span(start), "expected statement")
	}
	return ast.NewExprStat(p.span(start), first)
}

func (p *Parser) compoundAssignOp() (bool, ast.BinaryOp, bool) {
	switch p.cur.Kind {
	case token.PlusEq:
		p.advance()
		return true, ast.BinAdd, true
	case token.MinusEq:
		p.advance()
		return true, ast.BinSub, true
	case token.StarEq:
		p.advance()
		return true, ast.BinMul, true
	case token.SlashEq:
		p.advance()
		return true, ast.BinDiv, true
	case token.PercentEq:
		p.advance()
		return true, ast.BinMod, true
	case token.CaretEq:
		p.advance()
		return true, ast.BinPow, true
	}
	return false, 0, false
}

func (p *Parser) declareLocal(name string) {
	p.locals = append(p.locals, localVar{name: name, depth: p.scope})
}

func (p *Parser) exprList() []ast.Expr {
	list := []ast.Expr{p.expr()}
	for {
		if _, ok := p.accept(token.Comma); !ok {
			break
		}
		list = append(list, p.expr())
	}
	return list
}

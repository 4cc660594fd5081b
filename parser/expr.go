package parser

import (
	"github.com/galang-lang/gal/ast"
	"github.com/galang-lang/gal/token"
)

// Precedence levels from spec §4.6:
// ternary < or < and < bit_or < bit_xor < bit_and < eq < cmp < shift < add < mul < unary < pow
const (
	precNone = iota
	precTernary
	precOr
	precAnd
	precBitOr
	precBitXor
	precBitAnd
	precEq
	precCmp
	precConcat
	precShift
	precAdd
	precMul
	precUnary
	precPow
)

type binOpInfo struct {
	op    ast.BinaryOp
	prec  int
	right bool // right-associative (only ** in GAL)
}

var binOps = map[token.Kind]binOpInfo{
	token.KeywordOr:  {ast.BinOr, precOr, false},
	token.KeywordAnd: {ast.BinAnd, precAnd, false},
	token.Eq:         {ast.BinEq, precEq, false},
	token.Ne:         {ast.BinNe, precEq, false},
	token.Lt:         {ast.BinLt, precCmp, false},
	token.Le:         {ast.BinLe, precCmp, false},
	token.Gt:         {ast.BinGt, precCmp, false},
	token.Ge:         {ast.BinGe, precCmp, false},
	token.Concat:     {ast.BinConcat, precConcat, true},
	token.Plus:       {ast.BinAdd, precAdd, false},
	token.Minus:      {ast.BinSub, precAdd, false},
	token.Star:       {ast.BinMul, precMul, false},
	token.Slash:      {ast.BinDiv, precMul, false},
	token.Percent:    {ast.BinMod, precMul, false},
	token.Caret:      {ast.BinPow, precPow, true},
}

// expr parses a full expression, including the ternary `cond if then else
// else` conditional form (spec §4.7 IfExpr) at the lowest precedence level.
func (p *Parser) expr() ast.Expr {
	return p.binaryExpr(precTernary)
}

func (p *Parser) binaryExpr(minPrec int) ast.Expr {
	left := p.unaryExpr()
	for {
		info, ok := binOps[p.cur.Kind]
		if !ok || info.prec < minPrec {
			break
		}
		start := left.Loc().Begin
		p.advance()
		nextMin := info.prec + 1
		if info.right {
			nextMin = info.prec
		}
		right := p.binaryExpr(nextMin)
		left = ast.NewBinary(p.span(start), info.op, left, right)
	}
	return left
}

func (p *Parser) unaryExpr() ast.Expr {
	start := p.cur.Location.Begin
	switch p.cur.Kind {
	case token.KeywordNot:
		p.advance()
		return ast.NewUnary(p.span(start), ast.UnaryNot, p.unaryExpr())
	case token.Minus:
		p.advance()
		return ast.NewUnary(p.span(start), ast.UnaryNeg, p.unaryExpr())
	}
	return p.ifExprOrSimple()
}

// ifExprOrSimple handles the postfix-position `if cond then a else b`
// conditional expression form alongside the ordinary simple expressions.
func (p *Parser) ifExprOrSimple() ast.Expr {
	if p.at(token.KeywordIf) {
		start := p.cur.Location.Begin
		p.advance()
		cond := p.expr()
		p.expect(token.KeywordThen, "'then'")
		then := p.expr()
		p.expect(token.KeywordElse, "'else'")
		els := p.expr()
		return ast.NewIfExpr(p.span(start), cond, then, els)
	}
	return p.withTypeAssertion(p.simpleExpr)
}

// withTypeAssertion wraps a postfix `:: Type` assertion (Luau-style, spec
// §4.7 TypeAssertion) around whatever base form fn produces.
func (p *Parser) withTypeAssertion(fn func() ast.Expr) ast.Expr {
	start := p.cur.Location.Begin
	e := fn()
	for p.at(token.DoubleColon) {
		p.advance()
		t := p.typeExpr()
		e = ast.NewTypeAssertion(p.span(start), e, t)
	}
	return e
}

func (p *Parser) simpleExpr() ast.Expr {
	start := p.cur.Location.Begin
	switch p.cur.Kind {
	case token.KeywordNull:
		p.advance()
		return ast.NewConstantNull(p.span(start))
	case token.KeywordUndefined:
		p.advance()
		return ast.NewConstantNull(p.span(start))
	case token.KeywordTrue:
		p.advance()
		return ast.NewConstantBool(p.span(start), true)
	case token.KeywordFalse:
		p.advance()
		return ast.NewConstantBool(p.span(start), false)
	case token.Number:
		tok := p.advance()
		return ast.NewConstantNumber(p.span(start), tok.Number)
	case token.String, token.RawString:
		tok := p.advance()
		return ast.NewConstantString(p.span(start), tok.Payload)
	case token.KeywordFunction:
		p.advance()
		return p.functionBody(false)
	case token.LBrace:
		return p.tableConstructor()
	default:
		return p.suffixedExpr()
	}
}

// primaryExpr parses a name reference or a parenthesized expression — the
// left edge of a suffixedExpr chain.
func (p *Parser) primaryExpr() ast.Expr {
	start := p.cur.Location.Begin
	switch p.cur.Kind {
	case token.Name:
		tok := p.advance()
		if p.isLocal(tok.Payload) {
			return ast.NewLocalRef(p.span(start), tok.Payload)
		}
		return ast.NewGlobalRef(p.span(start), tok.Payload)
	case token.LParen:
		p.advance()
		inner := p.expr()
		p.expect(token.RParen, "')'")
		return inner
	default:
		p.errorf("unexpected token %s in expression", p.cur.Kind)
		tok := p.advance()
		return ast.NewConstantNull(token.Location{Begin: tok.Location.Begin, End: tok.Location.End})
	}
}

func (p *Parser) isLocal(name string) bool {
	for i := len(p.locals) - 1; i >= 0; i-- {
		if p.locals[i].name == name {
			return true
		}
	}
	return false
}

// suffixedExpr parses primary followed by any chain of `.name`, `[expr]`,
// `(args)`, and `:name(args)` suffixes (spec §4.6 grammar: prefixexp).
func (p *Parser) suffixedExpr() ast.Expr {
	start := p.cur.Location.Begin
	e := p.primaryExpr()
	for {
		switch p.cur.Kind {
		case token.Dot:
			p.advance()
			name := p.expect(token.Name, "field name").Payload
			e = ast.NewIndexName(p.span(start), e, name)
		case token.LBracket:
			p.advance()
			idx := p.expr()
			p.expect(token.RBracket, "']'")
			e = ast.NewIndexExpr(p.span(start), e, idx)
		case token.Colon:
			p.advance()
			name := p.expect(token.Name, "method name").Payload
			args := p.callArgs()
			e = ast.NewCall(p.span(start), e, args, name)
		case token.LParen, token.String, token.LBrace:
			args := p.callArgs()
			e = ast.NewCall(p.span(start), e, args, "")
		default:
			return e
		}
	}
}

func (p *Parser) callArgs() []ast.Expr {
	switch p.cur.Kind {
	case token.String:
		tok := p.advance()
		return []ast.Expr{ast.NewConstantString(tok.Location, tok.Payload)}
	case token.LBrace:
		return []ast.Expr{p.tableConstructor()}
	default:
		p.expect(token.LParen, "'('")
		var args []ast.Expr
		if !p.at(token.RParen) {
			args = p.exprList()
		}
		p.expect(token.RParen, "')'")
		return args
	}
}

func (p *Parser) tableConstructor() ast.Expr {
	start := p.cur.Location.Begin
	p.expect(token.LBrace, "'{'")
	var items []ast.TableItem
	for !p.at(token.RBrace) {
		switch {
		case p.at(token.LBracket):
			p.advance()
			key := p.expr()
			p.expect(token.RBracket, "']'")
			p.expect(token.Assign, "'='")
			val := p.expr()
			items = append(items, ast.TableItem{Kind: ast.TableItemGeneral, Key: key, Value: val})
		case p.at(token.Name) && p.lex.Peek().Kind == token.Assign:
			nameTok := p.advance()
			p.advance() // '='
			val := p.expr()
			key := ast.NewConstantString(nameTok.Location, nameTok.Payload)
			items = append(items, ast.TableItem{Kind: ast.TableItemRecord, Key: key, Value: val})
		default:
			items = append(items, ast.TableItem{Kind: ast.TableItemList, Value: p.expr()})
		}
		if _, ok := p.accept(token.Comma); !ok {
			if _, ok := p.accept(token.Semicolon); !ok {
				break
			}
		}
	}
	p.expect(token.RBrace, "'}'")
	return ast.NewTableConstructor(p.span(start), items)
}

package parser

import (
	"github.com/galang-lang/gal/ast"
	"github.com/galang-lang/gal/token"
)

// typeExpr parses a type annotation (spec §4.7 Type nodes): named types with
// optional generics, table types, function types, and union/intersection
// combinators, in that increasing-precedence order (union binds loosest).
func (p *Parser) typeExpr() ast.Type {
	return p.unionType()
}

func (p *Parser) unionType() ast.Type {
	start := p.cur.Location.Begin
	first := p.intersectionType()
	if !p.at(token.KeywordOr) {
		return first
	}
	options := []ast.Type{first}
	for {
		if _, ok := p.accept(token.KeywordOr); !ok {
			break
		}
		options = append(options, p.intersectionType())
	}
	return ast.NewUnionType(p.span(start), options)
}

func (p *Parser) intersectionType() ast.Type {
	start := p.cur.Location.Begin
	first := p.primaryType()
	if !p.at(token.KeywordAnd) {
		return first
	}
	options := []ast.Type{first}
	for {
		if _, ok := p.accept(token.KeywordAnd); !ok {
			break
		}
		options = append(options, p.primaryType())
	}
	return ast.NewIntersectionType(p.span(start), options)
}

func (p *Parser) primaryType() ast.Type {
	start := p.cur.Location.Begin
	switch p.cur.Kind {
	case token.LParen:
		return p.functionType(start)
	case token.LBrace:
		return p.tableType(start)
	case token.Name:
		name := p.advance().Payload
		var generics []ast.Type
		if _, ok := p.accept(token.Lt); ok {
			for {
				generics = append(generics, p.typeExpr())
				if _, ok := p.accept(token.Comma); !ok {
					break
				}
			}
			p.expect(token.Gt, "'>'")
		}
		return ast.NewNamedType(p.span(start), name, generics)
	default:
		p.errorf("expected type, got %s", p.cur.Kind)
		p.advance()
		return ast.NewNamedType(p.span(start), "unknown", nil)
	}
}

func (p *Parser) functionType(start token.Position) ast.Type {
	p.advance() // '('
	var params []ast.Type
	var variadic ast.Type
	for !p.at(token.RParen) {
		if _, ok := p.accept(token.Dot); ok {
			p.expect(token.Dot, "'.'")
			p.expect(token.Dot, "'.'")
			variadic = p.typeExpr()
		} else {
			params = append(params, p.typeExpr())
		}
		if _, ok := p.accept(token.Comma); !ok {
			break
		}
	}
	p.expect(token.RParen, "')'")
	p.expect(token.Arrow, "'->'")
	var ret []ast.Type
	if _, ok := p.accept(token.LParen); ok {
		for !p.at(token.RParen) {
			ret = append(ret, p.typeExpr())
			if _, ok := p.accept(token.Comma); !ok {
				break
			}
		}
		p.expect(token.RParen, "')'")
	} else {
		ret = append(ret, p.typeExpr())
	}
	return ast.NewFunctionType(p.span(start), nil, params, variadic, ret)
}

func (p *Parser) tableType(start token.Position) ast.Type {
	p.advance() // '{'
	var props []ast.TableTypeProp
	var indexer ast.Type
	for !p.at(token.RBrace) {
		if _, ok := p.accept(token.LBracket); ok {
			p.typeExpr() // index key type, GAL tables are always string|number keyed
			p.expect(token.RBracket, "']'")
			p.expect(token.Colon, "':'")
			indexer = p.typeExpr()
		} else {
			name := p.expect(token.Name, "identifier").Payload
			p.expect(token.Colon, "':'")
			props = append(props, ast.TableTypeProp{Name: name, Type: p.typeExpr()})
		}
		if _, ok := p.accept(token.Comma); !ok {
			if _, ok := p.accept(token.Semicolon); !ok {
				break
			}
		}
	}
	p.expect(token.RBrace, "'}'")
	return ast.NewTableType(p.span(start), props, indexer)
}

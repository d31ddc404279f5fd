package formula

import (
	"strconv"

	"github.com/teranos/reflow/errors"
	"github.com/teranos/reflow/object"
)

// Parse parses formula source text into an expression tree. A bare
// identifier references a property on owner; a dotted identifier
// references a sibling object's property ("Obj.Prop" or "Obj.Prop.0").
//
// Grammar:
//
//	expr    := term (('+'|'-') term)*
//	term    := unary (('*'|'/'|'%') unary)*
//	unary   := '-' unary | primary
//	primary := NUMBER [unit] | STRING | reference | call | '(' expr ')'
func Parse(owner *object.Object, src string) (*Expr, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}

	p := &parser{owner: owner, toks: toks}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, errors.NewParse("unexpected trailing input %q at offset %d", p.peek().text, p.peek().pos)
	}
	return e, nil
}

type parser struct {
	owner *object.Object
	toks  []token
	pos   int
}

func (p *parser) peek() token { return p.toks[p.pos] }
func (p *parser) peekAt(n int) token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}
func (p *parser) next() token { t := p.toks[p.pos]; p.pos++; return t }

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	t := p.next()
	if t.kind != kind {
		return token{}, errors.NewParse("expected %s at offset %d, got %q", what, t.pos, t.text)
	}
	return t, nil
}

func (p *parser) parseExpr() (*Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOp && (p.peek().text == "+" || p.peek().text == "-") {
		op := p.next().text
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &Expr{Kind: KindBinary, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseTerm() (*Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOp && (p.peek().text == "*" || p.peek().text == "/" || p.peek().text == "%") {
		op := p.next().text
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &Expr{Kind: KindBinary, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (*Expr, error) {
	if p.peek().kind == tokOp && p.peek().text == "-" {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Expr{Kind: KindUnary, Op: "-", Left: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (*Expr, error) {
	t := p.peek()
	switch t.kind {
	case tokNumber:
		p.next()
		e := &Expr{Kind: KindNumber, Num: t.num}
		// An identifier directly after a number is a unit suffix, unless it
		// opens a call
		if p.peek().kind == tokIdent && p.peekAt(1).kind != tokLParen {
			e.Unit = p.next().text
		}
		return e, nil

	case tokString:
		p.next()
		return &Expr{Kind: KindString, Str: t.text}, nil

	case tokLParen:
		p.next()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return e, nil

	case tokIdent:
		if p.peekAt(1).kind == tokLParen {
			return p.parseCall()
		}
		return p.parseReference()

	default:
		return nil, errors.NewParse("unexpected token %q at offset %d", t.text, t.pos)
	}
}

func (p *parser) parseCall() (*Expr, error) {
	name := p.next().text
	if _, err := p.expect(tokLParen, "'('"); err != nil {
		return nil, err
	}

	call := &Expr{Kind: KindCall, Fn: name}
	if p.peek().kind == tokRParen {
		p.next()
		return call, nil
	}
	for {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)
		if p.peek().kind == tokComma {
			p.next()
			continue
		}
		break
	}
	if _, err := p.expect(tokRParen, "')'"); err != nil {
		return nil, err
	}
	return call, nil
}

// parseReference consumes IDENT ('.' (IDENT|NUMBER))* and builds a
// reference path. A single identifier binds to the owner object.
func (p *parser) parseReference() (*Expr, error) {
	first := p.next().text

	var components []string
	for p.peek().kind == tokDot {
		p.next()
		t := p.next()
		switch t.kind {
		case tokIdent:
			components = append(components, t.text)
		case tokNumber:
			// List index component; must be a non-negative integer
			if t.num != float64(int(t.num)) || t.num < 0 {
				return nil, errors.NewParse("invalid index %q at offset %d", t.text, t.pos)
			}
			components = append(components, strconv.Itoa(int(t.num)))
		default:
			return nil, errors.NewParse("expected path component at offset %d, got %q", t.pos, t.text)
		}
	}

	var ref object.Path
	if len(components) == 0 {
		if p.owner == nil {
			return nil, errors.NewParse("bare reference %q requires an owner object", first)
		}
		ref = object.Path{Object: p.owner.Name(), Property: first}
	} else {
		ref = object.Path{Object: first, Property: components[0], Sub: components[1:]}
	}
	if len(ref.Sub) == 0 {
		ref.Sub = nil
	}
	return &Expr{Kind: KindReference, Ref: ref}, nil
}

package formula

import "fmt"

// The grammar is a single expression over numbers, the declared argument
// identifiers, member access, calls, |x| magnitude bars, superscript powers
// and the operators + - * / ^ (power binds tightest, right associative).

type node interface{}

type numberNode struct{ v float64 }

type identNode struct{ name string }

type memberNode struct {
	obj  node
	name string
}

type callNode struct {
	callee node
	args   []node
}

type negNode struct{ x node }

type absNode struct{ x node }

type binaryNode struct {
	op rune // one of + - * / ^
	l  node
	r  node
}

type parser struct {
	toks []token
	i    int
}

func parse(src string) (node, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	expr, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("unexpected trailing input at offset %d", p.peek().pos)
	}
	return expr, nil
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) expect(k tokenKind, what string) error {
	if p.peek().kind != k {
		return fmt.Errorf("expected %s at offset %d", what, p.peek().pos)
	}
	p.next()
	return nil
}

// Binding powers: additive 10, multiplicative 20, power 30 (right assoc).
func binding(k tokenKind) (prec int, op rune) {
	switch k {
	case tokPlus:
		return 10, '+'
	case tokMinus:
		return 10, '-'
	case tokStar:
		return 20, '*'
	case tokSlash:
		return 20, '/'
	case tokCaret:
		return 30, '^'
	}
	return 0, 0
}

func (p *parser) expr(minPrec int) (node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		prec, op := binding(p.peek().kind)
		if prec == 0 || prec < minPrec {
			return left, nil
		}
		p.next()
		// Right associativity for '^' comes from recursing at equal
		// precedence; the others recurse one level tighter.
		nextMin := prec + 1
		if op == '^' {
			nextMin = prec
		}
		right, err := p.expr(nextMin)
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: op, l: left, r: right}
	}
}

func (p *parser) unary() (node, error) {
	if p.peek().kind == tokMinus {
		p.next()
		// The operand includes '^' so -z^2 negates the power.
		x, err := p.expr(30)
		if err != nil {
			return nil, err
		}
		return negNode{x: x}, nil
	}
	return p.postfix()
}

func (p *parser) postfix() (node, error) {
	x, err := p.primary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().kind {
		case tokDot:
			p.next()
			t := p.peek()
			if t.kind != tokIdent {
				return nil, fmt.Errorf("expected member name at offset %d", t.pos)
			}
			p.next()
			x = memberNode{obj: x, name: t.text}
		case tokLParen:
			p.next()
			var args []node
			if p.peek().kind != tokRParen {
				for {
					arg, err := p.expr(0)
					if err != nil {
						return nil, err
					}
					args = append(args, arg)
					if p.peek().kind != tokComma {
						break
					}
					p.next()
				}
			}
			if err := p.expect(tokRParen, "')'"); err != nil {
				return nil, err
			}
			x = callNode{callee: x, args: args}
		case tokSuper:
			t := p.next()
			x = binaryNode{op: '^', l: x, r: numberNode{v: t.num}}
		default:
			return x, nil
		}
	}
}

func (p *parser) primary() (node, error) {
	t := p.peek()
	switch t.kind {
	case tokNumber:
		p.next()
		return numberNode{v: t.num}, nil
	case tokIdent:
		p.next()
		return identNode{name: t.text}, nil
	case tokLParen:
		p.next()
		x, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return x, nil
	case tokPipe:
		p.next()
		x, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokPipe, "closing '|'"); err != nil {
			return nil, err
		}
		return absNode{x: x}, nil
	case tokEOF:
		return nil, fmt.Errorf("unexpected end of formula")
	default:
		return nil, fmt.Errorf("unexpected token at offset %d", t.pos)
	}
}

package calc

import "strconv"

// Grammar, loosest binding first:
//
//	expr    = term { ("+" | "-") term }
//	term    = unary { ("*" | "/") unary }
//	unary   = ("-" | "+") unary | power
//	power   = postfix [ "^" unary ]           (right-associative)
//	postfix = primary { "%" }
//	primary = number | ident [ "(" args ")" ] | "(" expr ")"
//	args    = expr { "," expr }
//
// A percent node is kept as the direct operand of the enclosing binary
// operator so that evaluation can apply percent-of-base semantics for
// + and -.

type node interface {
	eval() (float64, error)
}

type numberNode struct {
	value float64
}

type unaryNode struct {
	op      Token
	operand node
}

type binaryNode struct {
	op          Token
	left, right node
}

type percentNode struct {
	operand node
	pos     int
}

type identNode struct {
	name string
	pos  int
}

type callNode struct {
	name string
	pos  int
	args []node
}

type parser struct {
	toks []Token
	pos  int
}

// parse consumes the whole token stream and returns the expression tree.
func parse(toks []Token) (node, error) {
	p := &parser{toks: toks}
	if p.cur().Kind == EOF {
		return nil, errorf(SyntaxError, p.cur().Pos, "empty expression")
	}
	n, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.cur().Kind != EOF {
		return nil, errorf(SyntaxError, p.cur().Pos, "unexpected %s", p.cur().Kind)
	}
	return n, nil
}

func (p *parser) cur() Token { return p.toks[p.pos] }
func (p *parser) advance()   { p.pos++ }

func (p *parser) parseExpr() (node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == Plus || p.cur().Kind == Minus {
		op := p.cur()
		p.advance()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseTerm() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == Star || p.cur().Kind == Slash {
		op := p.cur()
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (node, error) {
	if p.cur().Kind == Minus || p.cur().Kind == Plus {
		op := p.cur()
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if op.Kind == Plus {
			return operand, nil
		}
		return &unaryNode{op: op, operand: operand}, nil
	}
	return p.parsePower()
}

func (p *parser) parsePower() (node, error) {
	base, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if p.cur().Kind == Caret {
		op := p.cur()
		p.advance()
		// The exponent recurses through unary so that 2^-3 and 2^3^2
		// (right-associative) both parse.
		exp, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &binaryNode{op: op, left: base, right: exp}, nil
	}
	return base, nil
}

func (p *parser) parsePostfix() (node, error) {
	n, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == Percent {
		n = &percentNode{operand: n, pos: p.cur().Pos}
		p.advance()
	}
	return n, nil
}

func (p *parser) parsePrimary() (node, error) {
	tok := p.cur()
	switch tok.Kind {
	case Number:
		p.advance()
		v, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			return nil, errorf(SyntaxError, tok.Pos, "bad number %q", tok.Literal)
		}
		return &numberNode{value: v}, nil

	case Ident:
		p.advance()
		if p.cur().Kind != LeftParen {
			return &identNode{name: tok.Literal, pos: tok.Pos}, nil
		}
		p.advance() // consume (
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		if p.cur().Kind != RightParen {
			return nil, errorf(SyntaxError, p.cur().Pos, "expected ), got %s", p.cur().Kind)
		}
		p.advance()
		return &callNode{name: tok.Literal, pos: tok.Pos, args: args}, nil

	case LeftParen:
		p.advance()
		n, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.cur().Kind != RightParen {
			return nil, errorf(SyntaxError, p.cur().Pos, "expected ), got %s", p.cur().Kind)
		}
		p.advance()
		return n, nil
	}

	return nil, errorf(SyntaxError, tok.Pos, "unexpected %s", tok.Kind)
}

func (p *parser) parseArgs() ([]node, error) {
	var args []node
	if p.cur().Kind == RightParen {
		return args, nil
	}
	for {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.cur().Kind != Comma {
			return args, nil
		}
		p.advance()
	}
}

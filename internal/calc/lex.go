package calc

type lexer struct {
	input string
	pos   int
}

// lex splits input into tokens, ending with an EOF token. It fails with a
// SyntaxError pointing at the first character it doesn't recognize.
func lex(input string) ([]Token, error) {
	l := &lexer{input: input}
	var toks []Token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Kind == EOF {
			return toks, nil
		}
	}
}

func (l *lexer) next() (Token, error) {
	for l.pos < len(l.input) && isSpace(l.input[l.pos]) {
		l.pos++
	}
	if l.pos >= len(l.input) {
		return Token{Kind: EOF, Pos: l.pos}, nil
	}

	start := l.pos
	c := l.input[l.pos]

	switch {
	case isDigit(c):
		return l.number(), nil
	case isAlpha(c):
		return l.ident(), nil
	}

	l.pos++
	switch c {
	case '+':
		return Token{Kind: Plus, Literal: "+", Pos: start}, nil
	case '-':
		return Token{Kind: Minus, Literal: "-", Pos: start}, nil
	case '*':
		// Accept ** as an alias for ^.
		if l.pos < len(l.input) && l.input[l.pos] == '*' {
			l.pos++
			return Token{Kind: Caret, Literal: "**", Pos: start}, nil
		}
		return Token{Kind: Star, Literal: "*", Pos: start}, nil
	case '/':
		return Token{Kind: Slash, Literal: "/", Pos: start}, nil
	case '^':
		return Token{Kind: Caret, Literal: "^", Pos: start}, nil
	case '%':
		return Token{Kind: Percent, Literal: "%", Pos: start}, nil
	case '(':
		return Token{Kind: LeftParen, Literal: "(", Pos: start}, nil
	case ')':
		return Token{Kind: RightParen, Literal: ")", Pos: start}, nil
	case ',':
		return Token{Kind: Comma, Literal: ",", Pos: start}, nil
	}

	return Token{}, errorf(SyntaxError, start, "unexpected character %q", c)
}

func (l *lexer) number() Token {
	start := l.pos
	for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
		l.pos++
	}
	if l.pos < len(l.input) && l.input[l.pos] == '.' {
		l.pos++
		for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
			l.pos++
		}
	}
	return Token{Kind: Number, Literal: l.input[start:l.pos], Pos: start}
}

func (l *lexer) ident() Token {
	start := l.pos
	for l.pos < len(l.input) && (isAlpha(l.input[l.pos]) || isDigit(l.input[l.pos])) {
		l.pos++
	}
	return Token{Kind: Ident, Literal: l.input[start:l.pos], Pos: start}
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }
func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isAlpha(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

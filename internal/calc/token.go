// Package calc implements a safe arithmetic expression evaluator.
//
// It supports the four basic operations, parentheses, exponentiation with ^
// (or **), postfix percent with add-tax semantics (100+10% is 110, not
// 100.1), a fixed allow-list of mathematical functions and the constants pi
// and e. Trigonometric functions operate on degrees.
//
// Expressions are parsed into a tree and evaluated by walking it; user input
// is never handed to any general-purpose evaluator. The evaluator is pure
// and safe for concurrent use.
package calc

import "fmt"

// Kind is a lexical token kind.
type Kind int

// Token kinds.
const (
	EOF Kind = iota
	Number
	Ident
	Plus
	Minus
	Star
	Slash
	Caret
	Percent
	LeftParen
	RightParen
	Comma
)

var kindNames = map[Kind]string{
	EOF:        "end of expression",
	Number:     "number",
	Ident:      "identifier",
	Plus:       "+",
	Minus:      "-",
	Star:       "*",
	Slash:      "/",
	Caret:      "^",
	Percent:    "%",
	LeftParen:  "(",
	RightParen: ")",
	Comma:      ",",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Token is a single lexical token with its byte offset in the input.
type Token struct {
	Kind    Kind
	Literal string
	Pos     int
}

// ErrorKind classifies evaluation failures. The set is closed: callers map
// each kind to a user-facing message.
type ErrorKind int

// Error kinds.
const (
	SyntaxError ErrorKind = iota
	DivisionByZero
	UnknownFunction
	DomainError
)

func (k ErrorKind) String() string {
	switch k {
	case SyntaxError:
		return "syntax error"
	case DivisionByZero:
		return "division by zero"
	case UnknownFunction:
		return "unknown function"
	case DomainError:
		return "domain error"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is an evaluation failure at a position in the input.
type Error struct {
	Kind ErrorKind
	Pos  int // byte offset in the input
	msg  string
}

func (e *Error) Error() string {
	if e.msg != "" {
		return fmt.Sprintf("%s at position %d: %s", e.Kind, e.Pos, e.msg)
	}
	return fmt.Sprintf("%s at position %d", e.Kind, e.Pos)
}

func errorf(kind ErrorKind, pos int, format string, args ...any) *Error {
	return &Error{Kind: kind, Pos: pos, msg: fmt.Sprintf(format, args...)}
}

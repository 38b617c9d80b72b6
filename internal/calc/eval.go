package calc

import (
	"math"
	"strconv"
	"strings"
)

// Evaluate parses and evaluates a single arithmetic expression.
//
// On failure it returns a *Error whose Kind is one of SyntaxError,
// DivisionByZero, UnknownFunction or DomainError.
func Evaluate(expr string) (float64, error) {
	toks, err := lex(expr)
	if err != nil {
		return 0, err
	}
	n, err := parse(toks)
	if err != nil {
		return 0, err
	}
	v, err := n.eval()
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errorf(DomainError, 0, "result is not a finite number")
	}
	return v, nil
}

func (n *numberNode) eval() (float64, error) { return n.value, nil }

func (n *unaryNode) eval() (float64, error) {
	v, err := n.operand.eval()
	if err != nil {
		return 0, err
	}
	return -v, nil
}

// percentNode standing on its own (or under * and /) is a plain fraction:
// 25% is 0.25. Under + and - the enclosing binaryNode intercepts it and
// applies percent-of-base semantics instead.
func (n *percentNode) eval() (float64, error) {
	v, err := n.operand.eval()
	if err != nil {
		return 0, err
	}
	return v / 100, nil
}

func (n *binaryNode) eval() (float64, error) {
	l, err := n.left.eval()
	if err != nil {
		return 0, err
	}

	// 100+10% adds 10% of 100, and 200-5% subtracts 5% of 200.
	if pct, ok := n.right.(*percentNode); ok && (n.op.Kind == Plus || n.op.Kind == Minus) {
		p, err := pct.operand.eval()
		if err != nil {
			return 0, err
		}
		if n.op.Kind == Plus {
			return l + l*p/100, nil
		}
		return l - l*p/100, nil
	}

	r, err := n.right.eval()
	if err != nil {
		return 0, err
	}

	switch n.op.Kind {
	case Plus:
		return l + r, nil
	case Minus:
		return l - r, nil
	case Star:
		return l * r, nil
	case Slash:
		if r == 0 {
			return 0, errorf(DivisionByZero, n.op.Pos, "cannot divide by zero")
		}
		return l / r, nil
	case Caret:
		v := math.Pow(l, r)
		if math.IsNaN(v) {
			return 0, errorf(DomainError, n.op.Pos, "%v^%v is undefined", l, r)
		}
		return v, nil
	}
	return 0, errorf(SyntaxError, n.op.Pos, "unexpected operator %s", n.op.Kind)
}

func (n *identNode) eval() (float64, error) {
	if v, ok := constants[strings.ToLower(n.name)]; ok {
		return v, nil
	}
	return 0, errorf(UnknownFunction, n.pos, "unknown constant %q", n.name)
}

func (n *callNode) eval() (float64, error) {
	fn, ok := functions[strings.ToLower(n.name)]
	if !ok {
		return 0, errorf(UnknownFunction, n.pos, "unknown function %q", n.name)
	}
	if len(n.args) != fn.arity {
		return 0, errorf(SyntaxError, n.pos, "%s expects %d argument(s), got %d", strings.ToLower(n.name), fn.arity, len(n.args))
	}
	args := make([]float64, len(n.args))
	for i, arg := range n.args {
		v, err := arg.eval()
		if err != nil {
			return 0, err
		}
		args[i] = v
	}
	v := fn.apply(args)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errorf(DomainError, n.pos, "%s is undefined for this argument", strings.ToLower(n.name))
	}
	return v, nil
}

type function struct {
	arity int
	apply func(args []float64) float64
}

// Allow-list of callable functions. Trigonometric functions take and return
// degrees: sin(90) is 1.
var functions = map[string]function{
	"sqrt":  {1, func(a []float64) float64 { return math.Sqrt(a[0]) }},
	"abs":   {1, func(a []float64) float64 { return math.Abs(a[0]) }},
	"round": {1, func(a []float64) float64 { return math.Round(a[0]) }},
	"floor": {1, func(a []float64) float64 { return math.Floor(a[0]) }},
	"ceil":  {1, func(a []float64) float64 { return math.Ceil(a[0]) }},
	"exp":   {1, func(a []float64) float64 { return math.Exp(a[0]) }},
	"log":   {1, func(a []float64) float64 { return math.Log10(a[0]) }},
	"ln":    {1, func(a []float64) float64 { return math.Log(a[0]) }},
	"sin":   {1, func(a []float64) float64 { return math.Sin(radians(a[0])) }},
	"cos":   {1, func(a []float64) float64 { return math.Cos(radians(a[0])) }},
	"tan":   {1, func(a []float64) float64 { return math.Tan(radians(a[0])) }},
	"asin":  {1, func(a []float64) float64 { return degrees(math.Asin(a[0])) }},
	"acos":  {1, func(a []float64) float64 { return degrees(math.Acos(a[0])) }},
	"atan":  {1, func(a []float64) float64 { return degrees(math.Atan(a[0])) }},
	"pow":   {2, func(a []float64) float64 { return math.Pow(a[0], a[1]) }},
	"factorial": {1, func(a []float64) float64 {
		// Only defined for non-negative integers; NaN maps to DomainError.
		if a[0] < 0 || a[0] != math.Trunc(a[0]) {
			return math.NaN()
		}
		return math.Gamma(a[0] + 1)
	}},
}

var constants = map[string]float64{
	"pi": math.Pi,
	"e":  math.E,
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }

// Format renders a result the way a calculator display would: integral
// values lose the fractional part, tiny and huge values use 6 significant
// digits, everything else is rounded to 10 decimal places with trailing
// zeros trimmed.
func Format(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	if abs := math.Abs(v); abs < 0.0001 || abs > 1e10 {
		return strconv.FormatFloat(v, 'g', 6, 64)
	}
	r := math.Round(v*1e10) / 1e10
	if r == math.Trunc(r) {
		return strconv.FormatFloat(r, 'f', -1, 64)
	}
	s := strconv.FormatFloat(r, 'f', 10, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

// Looks reports whether text plausibly is an arithmetic expression: it
// consists only of characters the lexer accepts and contains a digit or
// the constant pi. The bot uses it to decide whether free-form chat text
// should be evaluated at all.
func Looks(text string) bool {
	hasDigit := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case isDigit(c):
			hasDigit = true
		case isSpace(c) || isAlpha(c):
		case c == '+' || c == '-' || c == '*' || c == '/' || c == '^' ||
			c == '%' || c == '(' || c == ')' || c == ',' || c == '.':
		default:
			return false
		}
	}
	return hasDigit || strings.Contains(strings.ToLower(text), "pi")
}

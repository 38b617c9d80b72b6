package calc

import (
	"errors"
	"math"
	"testing"

	"github.com/armcalc/armcalc/internal/testutil"
)

func TestLex(t *testing.T) {
	toks, err := lex("2 + sqrt(16) ** 2%")
	if err != nil {
		t.Fatalf("lex: %v", err)
	}

	want := []struct {
		kind    Kind
		literal string
	}{
		{Number, "2"},
		{Plus, "+"},
		{Ident, "sqrt"},
		{LeftParen, "("},
		{Number, "16"},
		{RightParen, ")"},
		{Caret, "**"},
		{Number, "2"},
		{Percent, "%"},
		{EOF, ""},
	}

	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, w := range want {
		if toks[i].Kind != w.kind {
			t.Fatalf("tokens[%d]: want kind %s, got %s", i, w.kind, toks[i].Kind)
		}
		if toks[i].Literal != w.literal {
			t.Fatalf("tokens[%d]: want literal %q, got %q", i, w.literal, toks[i].Literal)
		}
	}
}

func TestLexBadCharacter(t *testing.T) {
	_, err := lex("2@3")
	var calcErr *Error
	if !errors.As(err, &calcErr) {
		t.Fatalf("want *Error, got %v", err)
	}
	testutil.AssertEqual(t, calcErr.Kind, SyntaxError)
	testutil.AssertEqual(t, calcErr.Pos, 1)
}

func TestEvaluate(t *testing.T) {
	cases := map[string]struct {
		expr string
		want float64
	}{
		"addition":            {"2 + 2", 4},
		"subtraction":         {"10 - 3", 7},
		"multiplication":      {"6 * 7", 42},
		"division":            {"20 / 4", 5},
		"precedence":          {"2+3*4", 14},
		"parentheses":         {"(2 + 3) * 4", 20},
		"complex":             {"(10 + 5) * 2 - 8 / 4", 28},
		"negative numbers":    {"-5 + 10", 5},
		"decimals":            {"3.14 * 2", 6.28},
		"power caret":         {"2^8", 256},
		"power double star":   {"2**10", 1024},
		"power right assoc":   {"2^3^2", 512},
		"negative exponent":   {"2^-1", 0.5},
		"unary minus binds":   {"-2^2", -4},
		"percent addition":    {"100 + 10%", 110},
		"percent subtraction": {"200 - 5%", 190},
		"percent of sum":      {"100 + 50 + 10%", 165},
		"percent multiply":    {"50 * 10%", 5},
		"percent divide":      {"100 / 10%", 1000},
		"standalone percent":  {"25%", 0.25},
		"sqrt":                {"sqrt(16)", 4},
		"sqrt irrational":     {"sqrt(2)", math.Sqrt2},
		"sin degrees":         {"sin(90)", 1},
		"sin zero":            {"sin(0)", 0},
		"cos degrees":         {"cos(0)", 1},
		"tan degrees":         {"tan(45)", 1},
		"asin degrees":        {"asin(1)", 90},
		"log base 10":         {"log(100)", 2},
		"ln of e":             {"ln(e)", 1},
		"abs":                 {"abs(-42)", 42},
		"round":               {"round(3.7)", 4},
		"floor":               {"floor(3.7)", 3},
		"ceil":                {"ceil(3.2)", 4},
		"pow two args":        {"pow(2, 10)", 1024},
		"factorial":           {"factorial(5)", 120},
		"factorial of zero":   {"factorial(0)", 1},
		"pi":                  {"pi", math.Pi},
		"e":                   {"e", math.E},
		"pi expression":       {"2 * pi", 2 * math.Pi},
		"case insensitive":    {"SQRT(16)", 4},
		"whitespace":          {"  2   +2 ", 4},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := Evaluate(tc.expr)
			if err != nil {
				t.Fatalf("Evaluate(%q): %v", tc.expr, err)
			}
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("Evaluate(%q) = %v, want %v", tc.expr, got, tc.want)
			}
		})
	}
}

func TestEvaluateErrors(t *testing.T) {
	cases := map[string]struct {
		expr string
		kind ErrorKind
	}{
		"empty":                {"", SyntaxError},
		"trailing operator":    {"2+", SyntaxError},
		"doubled operator":     {"2 + * 2", SyntaxError},
		"unmatched open paren": {"(2+3", SyntaxError},
		"unmatched close":      {"2+3)", SyntaxError},
		"bad character":        {"2@3", SyntaxError},
		"missing argument":     {"sqrt()", SyntaxError},
		"too many arguments":   {"sqrt(1, 2)", SyntaxError},
		"division by zero":     {"10/0", DivisionByZero},
		"zero by zero":         {"0/0", DivisionByZero},
		"division by percent":  {"10/0%", DivisionByZero},
		"unknown function":     {"frob(5)", UnknownFunction},
		"unknown constant":     {"x + 1", UnknownFunction},
		"sqrt of negative":     {"sqrt(-1)", DomainError},
		"ln of zero":           {"ln(0)", DomainError},
		"asin out of range":    {"asin(2)", DomainError},
		"fractional power":     {"(-1)^0.5", DomainError},
		"factorial negative":   {"factorial(-1)", DomainError},
		"factorial fractional": {"factorial(2.5)", DomainError},
		"factorial overflow":   {"factorial(200)", DomainError},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Evaluate(tc.expr)
			if err == nil {
				t.Fatalf("Evaluate(%q) succeeded, want %s", tc.expr, tc.kind)
			}
			var calcErr *Error
			if !errors.As(err, &calcErr) {
				t.Fatalf("Evaluate(%q): want *Error, got %v", tc.expr, err)
			}
			testutil.AssertEqual(t, calcErr.Kind, tc.kind)
		})
	}
}

// Every eval call must be independent, so racing them is safe. Run with
// -race to verify.
func TestEvaluateConcurrent(t *testing.T) {
	done := make(chan error, 8)
	for j := 0; j < 8; j++ {
		go func() {
			for k := 0; k < 100; k++ {
				if _, err := Evaluate("sqrt(16) + 100 + 10%"); err != nil {
					done <- err
					return
				}
			}
			done <- nil
		}()
	}
	for j := 0; j < 8; j++ {
		if err := <-done; err != nil {
			t.Fatal(err)
		}
	}
}

func TestFormat(t *testing.T) {
	cases := map[string]struct {
		v    float64
		want string
	}{
		"integer":        {4, "4"},
		"large integer":  {1073741824, "1073741824"},
		"third":          {1.0 / 3.0, "0.3333333333"},
		"trailing zeros": {2.5, "2.5"},
		"tiny":           {0.00001234, "1.234e-05"},
		"negative":       {-42, "-42"},
		"artifact":       {0.1 + 0.2, "0.3"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, Format(tc.v), tc.want)
		})
	}
}

func TestLooks(t *testing.T) {
	testutil.AssertEqual(t, Looks("2+2"), true)
	testutil.AssertEqual(t, Looks("pi*2"), true)
	testutil.AssertEqual(t, Looks("hello world"), false)
}

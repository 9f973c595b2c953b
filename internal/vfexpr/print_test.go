package vfexpr

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestPrintAddsParensForRightAssociativeAmbiguity(t *testing.T) {
	// a - (b - c) must keep parens: without them, "a - b - c" would parse
	// left-associatively to (a - b) - c, a different value.
	inner := Binary("-", Identifier("b"), Identifier("c"))
	outer := Binary("-", Identifier("a"), inner)
	got := Print(outer)
	want := "a - (b - c)"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestPrintOmitsParensForLeftAssociativeChain(t *testing.T) {
	// (a - b) - c prints without parens since left-assoc is the default.
	inner := Binary("-", Identifier("a"), Identifier("b"))
	outer := Binary("-", inner, Identifier("c"))
	got := Print(outer)
	want := "a - b - c"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestPrintMultiplicationBindsTighterThanAddition(t *testing.T) {
	// a + b * c needs no parens; (a + b) * c must keep them.
	mulFirst := Binary("+", Identifier("a"), Binary("*", Identifier("b"), Identifier("c")))
	if got := Print(mulFirst); got != "a + b * c" {
		t.Fatalf("got %q", got)
	}
	addFirst := Binary("*", Binary("+", Identifier("a"), Identifier("b")), Identifier("c"))
	if got := Print(addFirst); got != "(a + b) * c" {
		t.Fatalf("got %q", got)
	}
}

func TestPrintMemberAndCall(t *testing.T) {
	m := Member(Identifier("datum"), Identifier("x"), false)
	if got := Print(m); got != "datum.x" {
		t.Fatalf("got %q", got)
	}
	c := Call(Identifier("length"), m)
	if got := Print(c); got != "length(datum.x)" {
		t.Fatalf("got %q", got)
	}
}

func TestPrintConditional(t *testing.T) {
	cond := Conditional(Identifier("a"), Identifier("b"), Identifier("c"))
	if got := Print(cond); got != "a ? b : c" {
		t.Fatalf("got %q", got)
	}
}

// TestPrintBalancedParensProperty generates random nested binary trees and
// checks the printed output always has balanced, well-nested parentheses —
// a necessary (if not sufficient) condition for round-trippability given
// the parser itself is an external collaborator outside this module.
func TestPrintBalancedParensProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	ops := []string{"+", "-", "*", "/"}
	names := []string{"a", "b", "c", "d"}

	var build func(depth int, seed int) *Node
	build = func(depth int, seed int) *Node {
		if depth <= 0 {
			return Identifier(names[seed%len(names)])
		}
		op := ops[seed%len(ops)]
		left := build(depth-1, seed*7+1)
		right := build(depth-1, seed*13+3)
		return Binary(op, left, right)
	}

	properties.Property("printed expression has balanced parentheses", prop.ForAll(
		func(depth, seed int) bool {
			if depth < 0 {
				depth = -depth
			}
			depth = depth % 5
			tree := build(depth, seed)
			s := Print(tree)
			return balanced(s)
		},
		gen.IntRange(0, 4),
		gen.Int(),
	))

	properties.TestingRun(t)
}

func balanced(s string) bool {
	depth := 0
	for _, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		}
		if depth < 0 {
			return false
		}
	}
	return depth == 0
}

func TestLiteralEqualityNaN(t *testing.T) {
	nan := Number(nanValue())
	if !nan.Literal.Equal(nan.Literal) {
		t.Fatalf("expected NaN to equal itself under total ordering")
	}
	if !strings.Contains(Print(nan), "NaN") {
		t.Fatalf("expected NaN literal to print as NaN, got %q", Print(nan))
	}
}

func nanValue() float64 {
	var zero float64
	return zero / zero
}

package vfcompile

import (
	"testing"

	"github.com/vegafusion/vegafusion-go/internal/vfconfig"
	"github.com/vegafusion/vegafusion-go/internal/vfexpr"
)

func row(vals map[string]any) map[string]any { return vals }

func TestCompileStringConcatenationPlus(t *testing.T) {
	cfg := NewConfig(vfconfig.DefaultTzConfig())
	n := vfexpr.Binary("+", vfexpr.String("a"), vfexpr.Number(1))
	expr, err := Compile(n, cfg, nil)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	v, err := expr.Eval(row(nil))
	if err != nil {
		t.Fatalf("eval error: %v", err)
	}
	if v != "a1" {
		t.Fatalf("expected string concatenation 'a1', got %v", v)
	}
}

func TestCompileNumericPlus(t *testing.T) {
	cfg := NewConfig(vfconfig.DefaultTzConfig())
	n := vfexpr.Binary("+", vfexpr.Number(1), vfexpr.Number(2))
	expr, _ := Compile(n, cfg, nil)
	v, _ := expr.Eval(row(nil))
	if v.(float64) != 3 {
		t.Fatalf("expected 3, got %v", v)
	}
}

func TestCompileStrictEqualityTypeMismatch(t *testing.T) {
	cfg := NewConfig(vfconfig.DefaultTzConfig())
	n := vfexpr.Binary("===", vfexpr.String("1"), vfexpr.Number(1))
	expr, _ := Compile(n, cfg, nil)
	v, _ := expr.Eval(row(nil))
	if v.(bool) {
		t.Fatalf("expected === between string and number to be false")
	}
}

func TestCompileLooseEqualityCoercesNumbers(t *testing.T) {
	cfg := NewConfig(vfconfig.DefaultTzConfig())
	n := vfexpr.Binary("==", vfexpr.String("1"), vfexpr.Number(1))
	expr, _ := Compile(n, cfg, nil)
	v, _ := expr.Eval(row(nil))
	if !v.(bool) {
		t.Fatalf("expected == between \"1\" and 1 to coerce to true")
	}
}

func TestCompileLogicalAndShortCircuitsToValue(t *testing.T) {
	cfg := NewConfig(vfconfig.DefaultTzConfig())
	n := vfexpr.Logical("&&", vfexpr.Number(0), vfexpr.String("x"))
	expr, _ := Compile(n, cfg, nil)
	v, _ := expr.Eval(row(nil))
	if v.(float64) != 0 {
		t.Fatalf("expected && to short-circuit to the falsy left value 0, got %v", v)
	}
}

func TestCompileMemberAccessOnDatum(t *testing.T) {
	cfg := NewConfig(vfconfig.DefaultTzConfig())
	n := vfexpr.Member(vfexpr.Identifier("datum"), vfexpr.Identifier("x"), false)
	expr, err := Compile(n, cfg, []string{"x"})
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	v, _ := expr.Eval(row(map[string]any{"x": 42.0}))
	if v.(float64) != 42.0 {
		t.Fatalf("expected 42, got %v", v)
	}
}

func TestCompileMemberAccessMissingColumnYieldsNull(t *testing.T) {
	cfg := NewConfig(vfconfig.DefaultTzConfig())
	n := vfexpr.Member(vfexpr.Identifier("datum"), vfexpr.Identifier("missing"), false)
	expr, err := Compile(n, cfg, []string{"x"})
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	v, _ := expr.Eval(row(map[string]any{"x": 1.0}))
	if v != nil {
		t.Fatalf("expected nil for missing column, got %v", v)
	}
}

func TestCompileUnresolvedIdentifierErrors(t *testing.T) {
	cfg := NewConfig(vfconfig.DefaultTzConfig())
	n := vfexpr.Identifier("nope")
	_, err := Compile(n, cfg, nil)
	if err == nil {
		t.Fatalf("expected compilation error for unresolved identifier")
	}
}

func TestCompileLengthCallable(t *testing.T) {
	cfg := NewConfig(vfconfig.DefaultTzConfig())
	n := vfexpr.Call(vfexpr.Identifier("length"), vfexpr.String("hello"))
	expr, err := Compile(n, cfg, nil)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	v, _ := expr.Eval(row(nil))
	if v.(int64) != 5 {
		t.Fatalf("expected length 5, got %v", v)
	}
}

func TestCompileIndexOfCallableOverArray(t *testing.T) {
	cfg := NewConfig(vfconfig.DefaultTzConfig())
	n := vfexpr.Call(vfexpr.Identifier("indexof"),
		vfexpr.Array(vfexpr.Number(10), vfexpr.Number(20), vfexpr.Number(30)), vfexpr.Number(20))
	expr, err := Compile(n, cfg, nil)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	v, err := expr.Eval(row(nil))
	if err != nil {
		t.Fatalf("eval error: %v", err)
	}
	if v.(int64) != 1 {
		t.Fatalf("expected index 1, got %v", v)
	}
}

func TestCompileIndexOfCallableMissingValueReturnsNegativeOne(t *testing.T) {
	cfg := NewConfig(vfconfig.DefaultTzConfig())
	n := vfexpr.Call(vfexpr.Identifier("indexof"),
		vfexpr.Array(vfexpr.Number(10), vfexpr.Number(20)), vfexpr.Number(99))
	expr, err := Compile(n, cfg, nil)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	v, _ := expr.Eval(row(nil))
	if v.(int64) != -1 {
		t.Fatalf("expected -1 for an absent value, got %v", v)
	}
}

func TestCompileIndexOfCallableOverString(t *testing.T) {
	cfg := NewConfig(vfconfig.DefaultTzConfig())
	n := vfexpr.Call(vfexpr.Identifier("indexof"), vfexpr.String("hello world"), vfexpr.String("world"))
	expr, err := Compile(n, cfg, nil)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	v, _ := expr.Eval(row(nil))
	if v.(int64) != 6 {
		t.Fatalf("expected index 6, got %v", v)
	}
}

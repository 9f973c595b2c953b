package vfcompile

import (
	"fmt"
	"math"
	"strconv"

	"github.com/vegafusion/vegafusion-go/internal/vferrors"
	"github.com/vegafusion/vegafusion-go/internal/vfexpr"
	"github.com/vegafusion/vegafusion-go/internal/vfplan"
)

// Compile lowers an expression IR node to a vfplan.ScalarExpr evaluable
// against rows of a table whose columns are named columns. cfg supplies
// signal values, data constants, callables, and the JS-style constant
// catalog (spec.md §4.1).
func Compile(n *vfexpr.Node, cfg *CompilationConfig, columns []string) (vfplan.ScalarExpr, error) {
	if n == nil {
		return vfplan.ScalarExpr{}, vferrors.New(vferrors.KindCompilation, "nil expression node")
	}
	switch n.Kind {
	case vfexpr.KindLiteral:
		return compileLiteral(n), nil
	case vfexpr.KindIdentifier:
		return compileIdentifier(n, cfg, columns)
	case vfexpr.KindUnary:
		return compileUnary(n, cfg, columns)
	case vfexpr.KindBinary:
		return compileBinary(n, cfg, columns)
	case vfexpr.KindLogical:
		return compileLogical(n, cfg, columns)
	case vfexpr.KindConditional:
		return compileConditional(n, cfg, columns)
	case vfexpr.KindMember:
		return compileMember(n, cfg, columns)
	case vfexpr.KindCall:
		return compileCall(n, cfg, columns)
	case vfexpr.KindArray:
		return compileArray(n, cfg, columns)
	case vfexpr.KindObject:
		return compileObject(n, cfg, columns)
	}
	return vfplan.ScalarExpr{}, vferrors.Newf(vferrors.KindCompilation, "unsupported expression kind %d", n.Kind)
}

func compileLiteral(n *vfexpr.Node) vfplan.ScalarExpr {
	lit := n.Literal
	switch lit.Kind {
	case vfexpr.LitString:
		v := lit.Str
		return constExpr("literal", v)
	case vfexpr.LitNumber:
		v := lit.Num
		return constExpr("literal", v)
	case vfexpr.LitBoolean:
		v := lit.Bool
		return constExpr("literal", v)
	default:
		return constExpr("literal", nil)
	}
}

func constExpr(name string, v any) vfplan.ScalarExpr {
	return vfplan.ScalarExpr{Name: name, Eval: func(map[string]any) (any, error) { return v, nil }}
}

func compileIdentifier(n *vfexpr.Node, cfg *CompilationConfig, columns []string) (vfplan.ScalarExpr, error) {
	name := n.Name
	if v, ok := cfg.Constants[name]; ok {
		return constExpr(name, v), nil
	}
	if v, ok := cfg.Signals[name]; ok {
		return constExpr(name, v), nil
	}
	for _, c := range columns {
		if c == name {
			return vfplan.ScalarExpr{Name: name, Eval: func(row map[string]any) (any, error) { return row[name], nil }}, nil
		}
	}
	return vfplan.ScalarExpr{}, vferrors.Newf(vferrors.KindCompilation, "unresolved identifier %q", name)
}

func compileUnary(n *vfexpr.Node, cfg *CompilationConfig, columns []string) (vfplan.ScalarExpr, error) {
	arg, err := Compile(n.Arg, cfg, columns)
	if err != nil {
		return vfplan.ScalarExpr{}, err
	}
	op := n.Op
	return vfplan.ScalarExpr{Name: "unary" + op, Eval: func(row map[string]any) (any, error) {
		v, err := arg.Eval(row)
		if err != nil {
			return nil, err
		}
		switch op {
		case "+":
			return toNumber(v), nil
		case "-":
			return -toNumber(v), nil
		case "!":
			return !vfplan.Truthy(v), nil
		}
		return nil, vferrors.Newf(vferrors.KindCompilation, "unsupported unary operator %q", op)
	}}, nil
}

func compileBinary(n *vfexpr.Node, cfg *CompilationConfig, columns []string) (vfplan.ScalarExpr, error) {
	left, err := Compile(n.Left, cfg, columns)
	if err != nil {
		return vfplan.ScalarExpr{}, err
	}
	right, err := Compile(n.Right, cfg, columns)
	if err != nil {
		return vfplan.ScalarExpr{}, err
	}
	op := n.Op
	return vfplan.ScalarExpr{Name: "binary" + op, Eval: func(row map[string]any) (any, error) {
		lv, err := left.Eval(row)
		if err != nil {
			return nil, err
		}
		rv, err := right.Eval(row)
		if err != nil {
			return nil, err
		}
		return evalBinary(op, lv, rv)
	}}, nil
}

func evalBinary(op string, lv, rv any) (any, error) {
	switch op {
	case "+":
		if isString(lv) || isString(rv) {
			return toStringJS(lv) + toStringJS(rv), nil
		}
		return toNumber(lv) + toNumber(rv), nil
	case "-":
		return toNumber(lv) - toNumber(rv), nil
	case "*":
		return toNumber(lv) * toNumber(rv), nil
	case "/":
		return toNumber(lv) / toNumber(rv), nil
	case "%":
		return math.Mod(toNumber(lv), toNumber(rv)), nil
	case "==":
		return looseEqual(lv, rv), nil
	case "!=":
		return !looseEqual(lv, rv), nil
	case "===":
		return strictEqual(lv, rv), nil
	case "!==":
		return !strictEqual(lv, rv), nil
	case "<":
		return compareNumOrStr(lv, rv) < 0, nil
	case "<=":
		return compareNumOrStr(lv, rv) <= 0, nil
	case ">":
		return compareNumOrStr(lv, rv) > 0, nil
	case ">=":
		return compareNumOrStr(lv, rv) >= 0, nil
	}
	return nil, vferrors.Newf(vferrors.KindCompilation, "unsupported binary operator %q", op)
}

func compileLogical(n *vfexpr.Node, cfg *CompilationConfig, columns []string) (vfplan.ScalarExpr, error) {
	left, err := Compile(n.Left, cfg, columns)
	if err != nil {
		return vfplan.ScalarExpr{}, err
	}
	right, err := Compile(n.Right, cfg, columns)
	if err != nil {
		return vfplan.ScalarExpr{}, err
	}
	isAnd := n.Op == "&&"
	return vfplan.ScalarExpr{Name: "logical" + n.Op, Eval: func(row map[string]any) (any, error) {
		lv, err := left.Eval(row)
		if err != nil {
			return nil, err
		}
		lb, lIsBool := lv.(bool)
		// Short-circuit: && stops on falsy left, || stops on truthy left.
		if isAnd && !vfplan.Truthy(lv) {
			return lv, nil
		}
		if !isAnd && vfplan.Truthy(lv) {
			return lv, nil
		}
		rv, err := right.Eval(row)
		if err != nil {
			return nil, err
		}
		_, rIsBool := rv.(bool)
		// If either side is non-boolean, the result is the *value* of the
		// selected side, returned as is: when one side is boolean and the
		// other is not, no cast between the two types is applied.
		if lIsBool && !rIsBool {
			return rv, nil
		}
		if !lIsBool && rIsBool {
			return rv.(bool), nil
		}
		return rv, nil
	}}, nil
}

func compileConditional(n *vfexpr.Node, cfg *CompilationConfig, columns []string) (vfplan.ScalarExpr, error) {
	test, err := Compile(n.Test, cfg, columns)
	if err != nil {
		return vfplan.ScalarExpr{}, err
	}
	cons, err := Compile(n.Consequent, cfg, columns)
	if err != nil {
		return vfplan.ScalarExpr{}, err
	}
	alt, err := Compile(n.Alternate, cfg, columns)
	if err != nil {
		return vfplan.ScalarExpr{}, err
	}
	return vfplan.ScalarExpr{Name: "conditional", Eval: func(row map[string]any) (any, error) {
		tv, err := test.Eval(row)
		if err != nil {
			return nil, err
		}
		if vfplan.Truthy(tv) {
			return cons.Eval(row)
		}
		return alt.Eval(row)
	}}, nil
}

func compileMember(n *vfexpr.Node, cfg *CompilationConfig, columns []string) (vfplan.ScalarExpr, error) {
	// `datum.x` / `datum[x]` becomes a column reference to x; missing
	// column yields a typed NULL rather than a compile error (spec.md §4.1).
	if !n.Computed && n.Object.Kind == vfexpr.KindIdentifier && n.Object.Name == "datum" {
		field := n.Property.Name
		return vfplan.ScalarExpr{Name: "datum." + field, Eval: func(row map[string]any) (any, error) {
			return row[field], nil
		}}, nil
	}
	if n.Computed && n.Object.Kind == vfexpr.KindIdentifier && n.Object.Name == "datum" {
		prop, err := Compile(n.Property, cfg, columns)
		if err != nil {
			return vfplan.ScalarExpr{}, err
		}
		return vfplan.ScalarExpr{Name: "datum[]", Eval: func(row map[string]any) (any, error) {
			pv, err := prop.Eval(row)
			if err != nil {
				return nil, err
			}
			return memberAccess(row, pv)
		}}, nil
	}
	obj, err := Compile(n.Object, cfg, columns)
	if err != nil {
		return vfplan.ScalarExpr{}, err
	}
	if n.Computed {
		prop, err := Compile(n.Property, cfg, columns)
		if err != nil {
			return vfplan.ScalarExpr{}, err
		}
		return vfplan.ScalarExpr{Name: "member[]", Eval: func(row map[string]any) (any, error) {
			ov, err := obj.Eval(row)
			if err != nil {
				return nil, err
			}
			pv, err := prop.Eval(row)
			if err != nil {
				return nil, err
			}
			return memberAccess(ov, pv)
		}}, nil
	}
	field := n.Property.Name
	return vfplan.ScalarExpr{Name: "member." + field, Eval: func(row map[string]any) (any, error) {
		ov, err := obj.Eval(row)
		if err != nil {
			return nil, err
		}
		return memberAccess(ov, field)
	}}, nil
}

func memberAccess(obj, key any) (any, error) {
	switch o := obj.(type) {
	case map[string]any:
		return o[fmt.Sprintf("%v", key)], nil
	case []any:
		idx, ok := toIndex(key)
		if !ok || idx < 0 || idx >= len(o) {
			return nil, nil
		}
		return o[idx], nil
	default:
		return nil, nil
	}
}

func toIndex(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

func compileCall(n *vfexpr.Node, cfg *CompilationConfig, columns []string) (vfplan.ScalarExpr, error) {
	if n.Callee.Kind != vfexpr.KindIdentifier {
		return vfplan.ScalarExpr{}, vferrors.New(vferrors.KindCompilation, "call target must be a named function")
	}
	name := n.Callee.Name
	fn, ok := cfg.Callables[name]
	if !ok {
		return vfplan.ScalarExpr{}, vferrors.Newf(vferrors.KindCompilation, "unknown callable %q", name)
	}
	args := make([]*vfplan.ScalarExpr, len(n.Arguments))
	for i, a := range n.Arguments {
		compiled, err := Compile(a, cfg, columns)
		if err != nil {
			return vfplan.ScalarExpr{}, err
		}
		args[i] = &compiled
	}
	return fn(args, cfg, columns)
}

func compileArray(n *vfexpr.Node, cfg *CompilationConfig, columns []string) (vfplan.ScalarExpr, error) {
	elems := make([]vfplan.ScalarExpr, len(n.Elements))
	for i, e := range n.Elements {
		compiled, err := Compile(e, cfg, columns)
		if err != nil {
			return vfplan.ScalarExpr{}, err
		}
		elems[i] = compiled
	}
	return vfplan.ScalarExpr{Name: "array", Type: 0, Eval: func(row map[string]any) (any, error) {
		out := make([]any, len(elems))
		for i, e := range elems {
			v, err := e.Eval(row)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}}, nil
}

func compileObject(n *vfexpr.Node, cfg *CompilationConfig, columns []string) (vfplan.ScalarExpr, error) {
	type kv struct {
		key   string
		value vfplan.ScalarExpr
	}
	entries := make([]kv, len(n.Properties))
	for i, p := range n.Properties {
		var key string
		if p.Computed {
			// computed keys are resolved per-row below
			key = ""
		} else if p.Key.Kind == vfexpr.KindIdentifier {
			key = p.Key.Name
		} else if p.Key.Kind == vfexpr.KindLiteral && p.Key.Literal.Kind == vfexpr.LitString {
			key = p.Key.Literal.Str
		}
		val, err := Compile(p.Value, cfg, columns)
		if err != nil {
			return vfplan.ScalarExpr{}, err
		}
		entries[i] = kv{key: key, value: val}
	}
	return vfplan.ScalarExpr{Name: "object", Eval: func(row map[string]any) (any, error) {
		out := make(map[string]any, len(entries))
		for _, e := range entries {
			v, err := e.value.Eval(row)
			if err != nil {
				return nil, err
			}
			out[e.key] = v
		}
		return out, nil
	}}, nil
}

// --- JS-subset coercion helpers ---

func isString(v any) bool { _, ok := v.(string); return ok }

func toNumber(v any) float64 {
	switch x := v.(type) {
	case nil:
		return 0
	case bool:
		if x {
			return 1
		}
		return 0
	case int64:
		return float64(x)
	case int:
		return float64(x)
	case float64:
		return x
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		nan := math.NaN()
		return nan
	}
}

func toStringJS(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case bool:
		if x {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// looseEqual implements `==`/`!=`: string vs string is string equality;
// otherwise both sides are coerced to number (spec.md §4.1).
func looseEqual(a, b any) bool {
	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	if aIsStr && bIsStr {
		return as == bs
	}
	if a == nil && b == nil {
		return true
	}
	return toNumber(a) == toNumber(b)
}

// strictEqual implements `===`/`!==`: false if operand types aren't
// numerically compatible and not equal in type (spec.md §4.1).
func strictEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	default:
		_, aNum := toFloatOK(a)
		_, bNum := toFloatOK(b)
		if aNum && bNum {
			af, _ := toFloatOK(a)
			bf, _ := toFloatOK(b)
			return af == bf
		}
		return false
	}
}

func toFloatOK(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

func compareNumOrStr(a, b any) int {
	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	if aIsStr && bIsStr {
		switch {
		case as < bs:
			return -1
		case as > bs:
			return 1
		default:
			return 0
		}
	}
	af, bf := toNumber(a), toNumber(b)
	switch {
	case af < bf:
		return -1
	case af > bf:
		return 1
	default:
		return 0
	}
}

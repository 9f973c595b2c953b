package vfcompile

import (
	"time"

	"github.com/vegafusion/vegafusion-go/internal/vferrors"
	"github.com/vegafusion/vegafusion-go/internal/vfplan"
)

// installStandardCallables registers the fixed catalog of scalar
// functions spec.md §4.1 names: length(), indexof(), the datetime
// builtins, and the selection-store helpers
// vlSelectionTest/vlSelectionResolve.
func installStandardCallables(cfg *CompilationConfig) {
	cfg.Callables["length"] = callLength
	cfg.Callables["isValid"] = callIsValid
	cfg.Callables["isNaN"] = callIsNaN
	cfg.Callables["indexof"] = callIndexOf

	cfg.Callables["datetime"] = callDatetime
	cfg.Callables["toDate"] = callToDate
	for _, part := range []string{"year", "quarter", "month", "date", "day", "hours", "minutes", "seconds", "milliseconds"} {
		cfg.Callables[part] = makeDatePartCallable(part, false)
		cfg.Callables["utc"+part] = makeDatePartCallable(part, true)
	}

	cfg.Callables["vlSelectionTest"] = callSelectionTest
	cfg.Callables["vlSelectionResolve"] = callSelectionResolve
}

// callLength dispatches on runtime type: string length, list length, or
// fixed-size list arity (spec.md §4.1).
func callLength(args []*vfplan.ScalarExpr, _ *CompilationConfig, _ []string) (vfplan.ScalarExpr, error) {
	if len(args) != 1 {
		return vfplan.ScalarExpr{}, vferrors.New(vferrors.KindCompilation, "length() takes exactly one argument")
	}
	arg := *args[0]
	return vfplan.ScalarExpr{Name: "length", Eval: func(row map[string]any) (any, error) {
		v, err := arg.Eval(row)
		if err != nil {
			return nil, err
		}
		switch x := v.(type) {
		case string:
			return int64(len([]rune(x))), nil
		case []any:
			return int64(len(x)), nil
		case nil:
			return nil, nil
		default:
			return nil, vferrors.Newf(vferrors.KindCompilation, "length() unsupported for type %T", v)
		}
	}}, nil
}

func callIsValid(args []*vfplan.ScalarExpr, _ *CompilationConfig, _ []string) (vfplan.ScalarExpr, error) {
	arg := *args[0]
	return vfplan.ScalarExpr{Name: "isValid", Eval: func(row map[string]any) (any, error) {
		v, err := arg.Eval(row)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return false, nil
		}
		if f, ok := v.(float64); ok {
			return f == f, nil
		}
		return true, nil
	}}, nil
}

func callIsNaN(args []*vfplan.ScalarExpr, _ *CompilationConfig, _ []string) (vfplan.ScalarExpr, error) {
	arg := *args[0]
	return vfplan.ScalarExpr{Name: "isNaN", Eval: func(row map[string]any) (any, error) {
		v, err := arg.Eval(row)
		if err != nil {
			return nil, err
		}
		n := toNumber(v)
		return n != n, nil
	}}, nil
}

// callIndexOf returns the first index of value within array (or the first
// index of substring within a string), -1 if absent — array/indexof.rs's
// numeric-vs-string dispatch, minus the Arrow columnar batching since this
// evaluator runs one row at a time.
func callIndexOf(args []*vfplan.ScalarExpr, _ *CompilationConfig, _ []string) (vfplan.ScalarExpr, error) {
	if len(args) != 2 {
		return vfplan.ScalarExpr{}, vferrors.New(vferrors.KindCompilation, "indexof() takes exactly two arguments")
	}
	haystack, needle := *args[0], *args[1]
	return vfplan.ScalarExpr{Name: "indexof", Eval: func(row map[string]any) (any, error) {
		h, err := haystack.Eval(row)
		if err != nil {
			return nil, err
		}
		n, err := needle.Eval(row)
		if err != nil {
			return nil, err
		}
		switch hv := h.(type) {
		case []any:
			for i, v := range hv {
				if looseEqual(v, n) {
					return int64(i), nil
				}
			}
			return int64(-1), nil
		case string:
			sub, ok := n.(string)
			if !ok {
				return int64(-1), nil
			}
			idx := indexOfRune(hv, sub)
			return int64(idx), nil
		default:
			return int64(-1), nil
		}
	}}, nil
}

func indexOfRune(s, sub string) int {
	runes := []rune(s)
	subRunes := []rune(sub)
	for i := 0; i+len(subRunes) <= len(runes); i++ {
		match := true
		for j, r := range subRunes {
			if runes[i+j] != r {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// callDatetime builds a UTC-millisecond timestamp from (year, month, day,
// hours, minutes, seconds, ms) arguments, or parses a single string/number
// argument, honoring cfg.Tz's input-timezone discipline (spec.md §6).
func callDatetime(args []*vfplan.ScalarExpr, cfg *CompilationConfig, _ []string) (vfplan.ScalarExpr, error) {
	tz := cfg.Tz
	argsCopy := args
	return vfplan.ScalarExpr{Name: "datetime", Type: 0, Eval: func(row map[string]any) (any, error) {
		vals := make([]any, len(argsCopy))
		for i, a := range argsCopy {
			v, err := (*a).Eval(row)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		if len(vals) == 1 {
			return parseDatetime(vals[0], tz.InputTz())
		}
		return buildDatetime(vals, tz.InputTz())
	}}, nil
}

func callToDate(args []*vfplan.ScalarExpr, cfg *CompilationConfig, _ []string) (vfplan.ScalarExpr, error) {
	return callDatetime(args, cfg, nil)
}

func parseDatetime(v any, inputTz string) (any, error) {
	switch x := v.(type) {
	case string:
		loc, err := time.LoadLocation(inputTz)
		if err != nil {
			loc = time.UTC
		}
		layouts := []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}
		for _, layout := range layouts {
			if t, err := time.ParseInLocation(layout, x, loc); err == nil {
				return t.UTC().UnixMilli(), nil
			}
		}
		return nil, vferrors.Newf(vferrors.KindCompilation, "unparseable datetime string %q", x)
	case float64:
		return int64(x), nil
	case int64:
		return x, nil
	default:
		return nil, vferrors.Newf(vferrors.KindCompilation, "unsupported datetime() argument type %T", v)
	}
}

func buildDatetime(vals []any, inputTz string) (any, error) {
	get := func(i int, def int) int {
		if i >= len(vals) || vals[i] == nil {
			return def
		}
		return int(toNumber(vals[i]))
	}
	loc, err := time.LoadLocation(inputTz)
	if err != nil {
		loc = time.UTC
	}
	year := get(0, 1970)
	month := get(1, 0) + 1
	day := get(2, 1)
	hour := get(3, 0)
	minute := get(4, 0)
	sec := get(5, 0)
	ms := get(6, 0)
	t := time.Date(year, time.Month(month), day, hour, minute, sec, ms*int(time.Millisecond), loc)
	return t.UTC().UnixMilli(), nil
}

func makeDatePartCallable(part string, utc bool) Callable {
	return func(args []*vfplan.ScalarExpr, cfg *CompilationConfig, _ []string) (vfplan.ScalarExpr, error) {
		if len(args) != 1 {
			return vfplan.ScalarExpr{}, vferrors.Newf(vferrors.KindCompilation, "%s() takes exactly one argument", part)
		}
		arg := *args[0]
		tz := cfg.Tz
		name := part
		if utc {
			name = "utc" + part
		}
		return vfplan.ScalarExpr{Name: name, Eval: func(row map[string]any) (any, error) {
			v, err := arg.Eval(row)
			if err != nil {
				return nil, err
			}
			ms, ok := toInt64(v)
			if !ok {
				return nil, nil
			}
			t := time.UnixMilli(ms).UTC()
			if !utc {
				loc, err := time.LoadLocation(tz.LocalTz)
				if err == nil {
					t = t.In(loc)
				}
			}
			return int64(datePartValue(part, t)), nil
		}}, nil
	}
}

func datePartValue(part string, t time.Time) int {
	switch part {
	case "year":
		return t.Year()
	case "quarter":
		return (int(t.Month())-1)/3 + 1
	case "month":
		return int(t.Month()) - 1
	case "date":
		return t.Day()
	case "day":
		return int(t.Weekday())
	case "hours":
		return t.Hour()
	case "minutes":
		return t.Minute()
	case "seconds":
		return t.Second()
	case "milliseconds":
		return t.Nanosecond() / int(time.Millisecond)
	}
	return 0
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case float64:
		return int64(x), true
	}
	return 0, false
}

// callSelectionTest synthesizes a boolean predicate over `datum` from a
// selection-store table (columns {unit, fields, values}): truthy iff the
// row's projected field values match any stored selection tuple
// (spec.md §4.1, GLOSSARY "Selection store").
func callSelectionTest(args []*vfplan.ScalarExpr, cfg *CompilationConfig, _ []string) (vfplan.ScalarExpr, error) {
	if len(args) < 1 {
		return vfplan.ScalarExpr{}, vferrors.New(vferrors.KindCompilation, "vlSelectionTest() requires a store name argument")
	}
	storeArg := *args[0]
	return vfplan.ScalarExpr{Name: "vlSelectionTest", Eval: func(row map[string]any) (any, error) {
		storeName, err := storeArg.Eval(row)
		if err != nil {
			return nil, err
		}
		name, ok := storeName.(string)
		if !ok {
			return false, nil
		}
		ref, ok := cfg.Data[name]
		if !ok || ref.Table == nil {
			return false, nil
		}
		fieldsCol := ref.Table.Col("fields")
		valuesCol := ref.Table.Col("values")
		for i := 0; i < ref.Table.NumRows(); i++ {
			fields, _ := fieldsCol[i].([]any)
			values, _ := valuesCol[i].([]any)
			if selectionRowMatches(row, fields, values) {
				return true, nil
			}
		}
		return false, nil
	}}, nil
}

func selectionRowMatches(row map[string]any, fields, values []any) bool {
	if len(fields) != len(values) || len(fields) == 0 {
		return false
	}
	for i, f := range fields {
		fname, ok := f.(string)
		if !ok {
			return false
		}
		if !looseEqual(row[fname], values[i]) {
			return false
		}
	}
	return true
}

// callSelectionResolve synthesizes a struct of resolved field
// ranges/sets from a selection-store table.
func callSelectionResolve(args []*vfplan.ScalarExpr, cfg *CompilationConfig, _ []string) (vfplan.ScalarExpr, error) {
	if len(args) < 1 {
		return vfplan.ScalarExpr{}, vferrors.New(vferrors.KindCompilation, "vlSelectionResolve() requires a store name argument")
	}
	storeArg := *args[0]
	return vfplan.ScalarExpr{Name: "vlSelectionResolve", Eval: func(row map[string]any) (any, error) {
		storeName, err := storeArg.Eval(row)
		if err != nil {
			return nil, err
		}
		name, ok := storeName.(string)
		if !ok {
			return map[string]any{}, nil
		}
		ref, ok := cfg.Data[name]
		if !ok || ref.Table == nil {
			return map[string]any{}, nil
		}
		fieldsCol := ref.Table.Col("fields")
		valuesCol := ref.Table.Col("values")
		resolved := map[string]any{}
		for i := 0; i < ref.Table.NumRows(); i++ {
			fields, _ := fieldsCol[i].([]any)
			values, _ := valuesCol[i].([]any)
			for j, f := range fields {
				fname, ok := f.(string)
				if !ok || j >= len(values) {
					continue
				}
				resolved[fname] = mergeResolved(resolved[fname], values[j])
			}
		}
		return resolved, nil
	}}, nil
}

func mergeResolved(existing, v any) any {
	if existing == nil {
		return []any{v}
	}
	list, ok := existing.([]any)
	if !ok {
		return existing
	}
	return append(list, v)
}

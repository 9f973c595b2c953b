// Package vfvalue defines TaskValue — the sum type of Scalar or Table that
// flows through every task graph node (spec.md §3) — and a minimal
// columnar Table representation standing in for the externally supplied
// Arrow columnar library (spec.md §1 scopes Arrow itself out of the
// core; this package only needs a typed, ordered, columnar shape to
// carry values between transforms).
package vfvalue

import (
	"fmt"
	"sort"
)

// DataType enumerates the scalar types a column or scalar value may hold.
type DataType int

const (
	TypeNull DataType = iota
	TypeBool
	TypeInt64
	TypeFloat64
	TypeString
	TypeTimestampMs // UTC milliseconds since epoch, per spec.md §6 timezone discipline
	TypeList
	// TypeMixed marks a column whose rows hold more than one JSON scalar
	// type (e.g. [1, "two"]). Reserved for inline datasets ingested
	// verbatim (spec.md §4.7) — every other ingestion path infers a single
	// type per column, which is correct for data a transform will compute
	// over.
	TypeMixed
)

func (t DataType) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeBool:
		return "bool"
	case TypeInt64:
		return "int64"
	case TypeFloat64:
		return "float64"
	case TypeString:
		return "string"
	case TypeTimestampMs:
		return "timestamp_ms"
	case TypeList:
		return "list"
	case TypeMixed:
		return "mixed"
	default:
		return "unknown"
	}
}

// Field names and types one column of a Schema.
type Field struct {
	Name string
	Type DataType
}

// Schema is an ordered list of fields.
type Schema struct {
	Fields []Field
}

// IndexOf returns the position of name in the schema, or -1.
func (s Schema) IndexOf(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Has reports whether the schema contains name.
func (s Schema) Has(name string) bool { return s.IndexOf(name) >= 0 }

// Names returns the schema's field names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Project returns a new schema restricted to (and ordered by) names.
func (s Schema) Project(names []string) Schema {
	out := Schema{Fields: make([]Field, 0, len(names))}
	for _, n := range names {
		if i := s.IndexOf(n); i >= 0 {
			out.Fields = append(out.Fields, s.Fields[i])
		}
	}
	return out
}

// RowOrderColumn is the distinguished column synthesized on entry to
// preserve input order across operations that would otherwise be
// unordered, and stripped before results cross a task-graph boundary
// (spec.md §3).
const RowOrderColumn = "__row_order__"

// Table is an ordered, columnar, in-memory table that stands in for the
// Arrow RecordBatch-backed representation the core would use in
// production (see package doc).
type Table struct {
	Schema Schema
	// Columns holds one slice per field, indexed the same as Schema.Fields.
	// Values are boxed as nil, bool, int64, float64, string, or []any (for
	// TypeList) for simplicity; callers should type-assert using the
	// column's declared DataType rather than a runtime type switch alone,
	// since a null is always represented as untyped nil regardless of
	// column type.
	Columns [][]any
}

// NewTable builds a Table from a schema and column-major data. All
// columns must have equal length; NewTable panics otherwise since a
// length mismatch is an internal invariant violation, never a user error.
func NewTable(schema Schema, columns [][]any) *Table {
	n := -1
	for _, col := range columns {
		if n == -1 {
			n = len(col)
		} else if len(col) != n {
			panic(fmt.Sprintf("vfvalue: column length mismatch: %d vs %d", n, len(col)))
		}
	}
	return &Table{Schema: schema, Columns: columns}
}

// NumRows returns the table's row count.
func (t *Table) NumRows() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0])
}

// Col returns the column data for name, or nil if absent.
func (t *Table) Col(name string) []any {
	i := t.Schema.IndexOf(name)
	if i < 0 {
		return nil
	}
	return t.Columns[i]
}

// Row returns row i as a name->value map; convenient for expression
// evaluation and tests, at the cost of an allocation per row.
func (t *Table) Row(i int) map[string]any {
	row := make(map[string]any, len(t.Schema.Fields))
	for c, f := range t.Schema.Fields {
		row[f.Name] = t.Columns[c][i]
	}
	return row
}

// WithRowOrder returns a copy of t with a synthesized __row_order__ column
// appended, used by window-based row numbering to preserve order across
// otherwise-unordered operators (spec.md §3).
func (t *Table) WithRowOrder() *Table {
	if t.Schema.Has(RowOrderColumn) {
		return t
	}
	n := t.NumRows()
	order := make([]any, n)
	for i := range order {
		order[i] = int64(i)
	}
	schema := Schema{Fields: append(append([]Field{}, t.Schema.Fields...), Field{Name: RowOrderColumn, Type: TypeInt64})}
	cols := append(append([][]any{}, t.Columns...), order)
	return &Table{Schema: schema, Columns: cols}
}

// StripRowOrder returns a copy of t with the __row_order__ column removed,
// restoring it to the ordering implied by its row order but without the
// bookkeeping column, as required before results cross a task-graph
// boundary.
func (t *Table) StripRowOrder() *Table {
	idx := t.Schema.IndexOf(RowOrderColumn)
	if idx < 0 {
		return t
	}
	return t.SelectColumns(removeAt(t.Schema.Names(), idx))
}

func removeAt(ss []string, i int) []string {
	out := make([]string, 0, len(ss)-1)
	out = append(out, ss[:i]...)
	out = append(out, ss[i+1:]...)
	return out
}

// SelectColumns returns a new Table containing only the named columns, in
// the given order (used by project() and projection pushdown).
func (t *Table) SelectColumns(names []string) *Table {
	schema := t.Schema.Project(names)
	cols := make([][]any, len(schema.Fields))
	for i, f := range schema.Fields {
		cols[i] = t.Col(f.Name)
	}
	return &Table{Schema: schema, Columns: cols}
}

// WithColumn returns a copy of t with column name set to data (replacing
// it if it already exists, appending otherwise) — used by formula().
func (t *Table) WithColumn(name string, typ DataType, data []any) *Table {
	idx := t.Schema.IndexOf(name)
	if idx >= 0 {
		schema := Schema{Fields: append([]Field{}, t.Schema.Fields...)}
		schema.Fields[idx] = Field{Name: name, Type: typ}
		cols := append([][]any{}, t.Columns...)
		cols[idx] = data
		return &Table{Schema: schema, Columns: cols}
	}
	schema := Schema{Fields: append(append([]Field{}, t.Schema.Fields...), Field{Name: name, Type: typ})}
	cols := append(append([][]any{}, t.Columns...), data)
	return &Table{Schema: schema, Columns: cols}
}

// Filter returns a new Table containing only the rows for which keep[i]
// is true.
func (t *Table) Filter(keep []bool) *Table {
	cols := make([][]any, len(t.Columns))
	for c := range t.Columns {
		out := make([]any, 0, len(keep))
		for i, k := range keep {
			if k {
				out = append(out, t.Columns[c][i])
			}
		}
		cols[c] = out
	}
	return &Table{Schema: t.Schema, Columns: cols}
}

// TakeRows returns a new Table containing rows at the given indices, in
// that order — used by collect(), sort-based stack/window, and row-limit
// truncation.
func (t *Table) TakeRows(indices []int) *Table {
	cols := make([][]any, len(t.Columns))
	for c := range t.Columns {
		out := make([]any, len(indices))
		for i, idx := range indices {
			out[i] = t.Columns[c][idx]
		}
		cols[c] = out
	}
	return &Table{Schema: t.Schema, Columns: cols}
}

// Limit returns the first n rows of t (used by row-limit enforcement,
// spec.md §4.7).
func (t *Table) Limit(n int) *Table {
	if n >= t.NumRows() {
		return t
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return t.TakeRows(idx)
}

// SortIndices returns a permutation of [0, NumRows) ordered by the given
// comparator, stable (ties keep input order) — the basis for collect(),
// stack(), and window() ordering.
func (t *Table) SortIndices(less func(i, j int) bool) []int {
	idx := make([]int, t.NumRows())
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return less(idx[a], idx[b]) })
	return idx
}

// Clone returns a shallow copy of t (new Columns slice of header, shared
// element slices) — Arrow arrays are reference-counted and shared
// copy-on-write at the real Arrow layer (spec.md §9); this mirrors that by
// never mutating an existing Column slice in place.
func (t *Table) Clone() *Table {
	cols := make([][]any, len(t.Columns))
	copy(cols, t.Columns)
	return &Table{Schema: Schema{Fields: append([]Field{}, t.Schema.Fields...)}, Columns: cols}
}

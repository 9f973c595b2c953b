// Package vfexpr defines the ESTree-like expression IR used by the
// compiler (spec.md §4.1): literals, identifiers, unary/binary/logical
// operators, conditionals, member access, calls, arrays, and objects.
package vfexpr

import "fmt"

// Kind tags the variant of a Node.
type Kind int

const (
	KindLiteral Kind = iota
	KindIdentifier
	KindUnary
	KindBinary
	KindLogical
	KindConditional
	KindMember
	KindCall
	KindArray
	KindObject
)

// Span records the source text range a node was parsed from, used only
// for diagnostics — never consulted during compilation or printing.
type Span struct {
	Start, End int
}

// Power is a (left, right) binding-power pair; higher binds tighter. Print
// does not read it: it derives parentheses from each node's operator.
type Power struct {
	Left, Right int
}

// LiteralValue is the sum of the JS literal value kinds.
type LiteralValue struct {
	// exactly one of these is "set"; Kind says which
	Kind   LiteralKind
	Str    string
	Num    float64
	Bool   bool
	IsNull bool
}

type LiteralKind int

const (
	LitString LiteralKind = iota
	LitNumber
	LitBoolean
	LitNull
)

// Equal compares two literal values using the total ordering spec.md §4.1
// requires (NaN compares/hashes consistently with itself, rather than
// stdlib's "NaN != NaN").
func (v LiteralValue) Equal(o LiteralValue) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case LitString:
		return v.Str == o.Str
	case LitNumber:
		if numIsNaN(v.Num) && numIsNaN(o.Num) {
			return true
		}
		return v.Num == o.Num
	case LitBoolean:
		return v.Bool == o.Bool
	case LitNull:
		return true
	}
	return false
}

func numIsNaN(f float64) bool { return f != f }

// Property is a single key/value pair of an Object node. Computed marks
// `{[expr]: value}` keys.
type Property struct {
	Key      Node
	Value    Node
	Computed bool
}

// Node is the ESTree-like IR node. Exactly one field-group is populated
// per Kind; this trades a little memory for a flat, allocation-friendly,
// switchable representation instead of an interface-per-variant.
type Node struct {
	Kind  Kind
	Span  Span
	Power Power

	// Literal
	Literal LiteralValue

	// Identifier
	Name string

	// Unary: Op applied to Arg (Prefix always true per the JS subset used)
	// Binary/Logical: Op applied to Left, Right
	Op    string
	Arg   *Node
	Left  *Node
	Right *Node

	// Conditional
	Test       *Node
	Consequent *Node
	Alternate  *Node

	// Member: Object[.Property | [Computed Property]]
	Object   *Node
	Property *Node
	Computed bool

	// Call
	Callee    *Node
	Arguments []*Node

	// Array
	Elements []*Node

	// Object
	Properties []Property
}

// String constructs a string literal node.
func String(s string) *Node { return &Node{Kind: KindLiteral, Literal: LiteralValue{Kind: LitString, Str: s}} }

// Number constructs a numeric literal node.
func Number(n float64) *Node { return &Node{Kind: KindLiteral, Literal: LiteralValue{Kind: LitNumber, Num: n}} }

// Boolean constructs a boolean literal node.
func Boolean(b bool) *Node { return &Node{Kind: KindLiteral, Literal: LiteralValue{Kind: LitBoolean, Bool: b}} }

// Null constructs the null literal node.
func Null() *Node { return &Node{Kind: KindLiteral, Literal: LiteralValue{Kind: LitNull, IsNull: true}} }

// Identifier constructs an identifier node.
func Identifier(name string) *Node { return &Node{Kind: KindIdentifier, Name: name} }

// Unary constructs a unary expression node (+, -, !).
func Unary(op string, arg *Node) *Node { return &Node{Kind: KindUnary, Op: op, Arg: arg} }

// Binary constructs a binary expression node.
func Binary(op string, left, right *Node) *Node {
	return &Node{Kind: KindBinary, Op: op, Left: left, Right: right}
}

// Logical constructs a logical expression node (&&, ||).
func Logical(op string, left, right *Node) *Node {
	return &Node{Kind: KindLogical, Op: op, Left: left, Right: right}
}

// Conditional constructs a ternary expression node.
func Conditional(test, cons, alt *Node) *Node {
	return &Node{Kind: KindConditional, Test: test, Consequent: cons, Alternate: alt}
}

// Member constructs a member-access node: computed for `a[b]`, non-computed
// for `a.b` (in which case property should be an Identifier).
func Member(object, property *Node, computed bool) *Node {
	return &Node{Kind: KindMember, Object: object, Property: property, Computed: computed}
}

// Call constructs a call-expression node.
func Call(callee *Node, args ...*Node) *Node {
	return &Node{Kind: KindCall, Callee: callee, Arguments: args}
}

// Array constructs an array-literal node.
func Array(elements ...*Node) *Node { return &Node{Kind: KindArray, Elements: elements} }

// Object constructs an object-literal node.
func Object(props ...Property) *Node { return &Node{Kind: KindObject, Properties: props} }

// String is a debug rendering, not the printer (see Print in print.go).
func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s(%s)", kindName(n.Kind), Print(n))
}

func kindName(k Kind) string {
	switch k {
	case KindLiteral:
		return "Literal"
	case KindIdentifier:
		return "Identifier"
	case KindUnary:
		return "Unary"
	case KindBinary:
		return "Binary"
	case KindLogical:
		return "Logical"
	case KindConditional:
		return "Conditional"
	case KindMember:
		return "Member"
	case KindCall:
		return "Call"
	case KindArray:
		return "Array"
	case KindObject:
		return "Object"
	default:
		return "Unknown"
	}
}

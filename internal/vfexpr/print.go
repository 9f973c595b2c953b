package vfexpr

import (
	"fmt"
	"strconv"
	"strings"
)

// precedence returns the binding power of n's operator for printing
// purposes. Higher binds tighter. Matches the subset of JS operator
// precedence spec.md §4.1 requires for unambiguous round-trip printing.
func precedence(n *Node) int {
	switch n.Kind {
	case KindLiteral, KindIdentifier, KindArray, KindObject:
		return 20
	case KindMember, KindCall:
		return 18
	case KindUnary:
		return 15
	case KindBinary:
		switch n.Op {
		case "*", "/", "%":
			return 13
		case "+", "-":
			return 12
		case "<", "<=", ">", ">=":
			return 9
		case "==", "!=", "===", "!==":
			return 8
		}
		return 8
	case KindLogical:
		if n.Op == "&&" {
			return 4
		}
		return 3
	case KindConditional:
		return 2
	}
	return 0
}

// Print renders n back to a JavaScript-subset expression string,
// inserting parentheses exactly where binding power requires to make
// print(parse(s)) round-trip to an equivalent AST (spec.md §8).
func Print(n *Node) string {
	var b strings.Builder
	printNode(&b, n, 0)
	return b.String()
}

func printNode(b *strings.Builder, n *Node, minPrec int) {
	if n == nil {
		return
	}
	prec := precedence(n)
	needParens := prec < minPrec
	if needParens {
		b.WriteByte('(')
	}
	switch n.Kind {
	case KindLiteral:
		printLiteral(b, n.Literal)
	case KindIdentifier:
		b.WriteString(n.Name)
	case KindUnary:
		b.WriteString(n.Op)
		printNode(b, n.Arg, prec)
	case KindBinary, KindLogical:
		printNode(b, n.Left, prec)
		b.WriteByte(' ')
		b.WriteString(n.Op)
		b.WriteByte(' ')
		// right side needs prec+1 for left-associative operators so that
		// `a - (b - c)` keeps its parens while `(a - b) - c` does not.
		printNode(b, n.Right, prec+1)
	case KindConditional:
		printNode(b, n.Test, prec+1)
		b.WriteString(" ? ")
		printNode(b, n.Consequent, 0)
		b.WriteString(" : ")
		printNode(b, n.Alternate, 0)
	case KindMember:
		printNode(b, n.Object, prec)
		if n.Computed {
			b.WriteByte('[')
			printNode(b, n.Property, 0)
			b.WriteByte(']')
		} else {
			b.WriteByte('.')
			b.WriteString(n.Property.Name)
		}
	case KindCall:
		printNode(b, n.Callee, prec)
		b.WriteByte('(')
		for i, arg := range n.Arguments {
			if i > 0 {
				b.WriteString(", ")
			}
			printNode(b, arg, 0)
		}
		b.WriteByte(')')
	case KindArray:
		b.WriteByte('[')
		for i, el := range n.Elements {
			if i > 0 {
				b.WriteString(", ")
			}
			printNode(b, el, 0)
		}
		b.WriteByte(']')
	case KindObject:
		b.WriteByte('{')
		for i, p := range n.Properties {
			if i > 0 {
				b.WriteString(", ")
			}
			if p.Computed {
				b.WriteByte('[')
				printNode(b, p.Key, 0)
				b.WriteByte(']')
			} else {
				printNode(b, p.Key, 0)
			}
			b.WriteString(": ")
			printNode(b, p.Value, 0)
		}
		b.WriteByte('}')
	}
	if needParens {
		b.WriteByte(')')
	}
}

func printLiteral(b *strings.Builder, v LiteralValue) {
	switch v.Kind {
	case LitString:
		b.WriteString(strconv.Quote(v.Str))
	case LitNumber:
		if numIsNaN(v.Num) {
			b.WriteString("NaN")
			return
		}
		b.WriteString(formatNumber(v.Num))
	case LitBoolean:
		if v.Bool {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case LitNull:
		b.WriteString("null")
	}
}

func formatNumber(f float64) string {
	return fmt.Sprintf("%g", f)
}

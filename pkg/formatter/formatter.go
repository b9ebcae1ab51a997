// Package formatter renders Quill syntax trees back to canonical source and
// to an indented tree dump.
package formatter

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/quill-lang/quill/pkg/ast"
)

const indent = "  "

// Precedence table for arithmetic operators (higher = tighter binding)
var precedence = map[ast.ArithOp]int{
	ast.OpAdd: 1, ast.OpSub: 1,
	ast.OpMul: 2, ast.OpDiv: 2, ast.OpMod: 2,
}

func needsParens(child ast.Node, parentOp ast.ArithOp, isRight bool) bool {
	bin, ok := child.(*ast.BinaryExpr)
	if !ok {
		return false
	}
	childPrec := precedence[bin.Op]
	parentPrec := precedence[parentOp]
	if childPrec < parentPrec {
		return true
	}
	// Left-associative: a same-precedence right operand keeps its parens
	return childPrec == parentPrec && isRight
}

// Format pretty-prints a Quill program back to source code.
func Format(program *ast.Program) string {
	if program == nil || program.Body == nil || len(program.Body.Nodes) == 0 {
		return ""
	}
	lines := make([]string, 0, len(program.Body.Nodes))
	for _, n := range program.Body.Nodes {
		lines = append(lines, formatStmt(n, 0))
	}
	return strings.Join(lines, "\n") + "\n"
}

// HasComments reports whether source contains a '#' comment outside string
// literals. Formatting drops comments.
func HasComments(source string) bool {
	for _, line := range strings.Split(source, "\n") {
		var quote byte
		for i := 0; i < len(line); i++ {
			c := line[i]
			switch {
			case quote != 0:
				if c == quote {
					quote = 0
				}
			case c == '"' || c == '\'':
				quote = c
			case c == '#':
				return true
			}
		}
	}
	return false
}

func formatStmt(n ast.Node, depth int) string {
	prefix := strings.Repeat(indent, depth)
	switch stmt := n.(type) {
	case *ast.VarAssign:
		return prefix + stmt.Name + " = " + formatExpr(stmt.Value)
	case *ast.ListAssign:
		return prefix + stmt.Name + " = " + formatList(stmt.Elements, depth)
	case *ast.Push:
		return prefix + "push(" + stmt.Name + ", " + formatExpr(stmt.Value) + ")"
	case *ast.Print:
		return prefix + "print(" + formatExpr(stmt.Value) + ")"
	case *ast.Return:
		return prefix + "return " + formatExpr(stmt.Value)
	case *ast.FuncDef:
		return fmt.Sprintf("%sfunction %s(%s) %s",
			prefix, stmt.Name, strings.Join(stmt.Params, ", "), formatBlock(stmt.Body, depth))
	case *ast.If:
		var sb strings.Builder
		sb.WriteString(prefix + "if " + formatExpr(stmt.Cond) + " " + formatBlock(stmt.Body, depth))
		for _, ei := range stmt.ElseIfs {
			sb.WriteString(" else if " + formatExpr(ei.Cond) + " " + formatBlock(ei.Body, depth))
		}
		if stmt.Else != nil {
			sb.WriteString(" else " + formatBlock(stmt.Else.Body, depth))
		}
		return sb.String()
	case *ast.ForiLoop:
		if stmt.Setup == nil || stmt.Setup.Init == nil {
			return prefix + "# invalid counted loop"
		}
		return fmt.Sprintf("%sfor %s = %s to %s %s", prefix,
			stmt.Setup.Init.Name, formatExpr(stmt.Setup.Init.Value),
			formatExpr(stmt.Setup.Limit), formatBlock(stmt.Body, depth))
	case *ast.ForeachLoop:
		if stmt.Setup == nil {
			return prefix + "# invalid iterate loop"
		}
		return fmt.Sprintf("%sforeach %s in %s %s", prefix,
			stmt.Setup.Element, stmt.Setup.Collection, formatBlock(stmt.Body, depth))
	}
	return prefix + formatExpr(n)
}

func formatBlock(b *ast.Block, depth int) string {
	if b == nil || len(b.Nodes) == 0 {
		return "{}"
	}
	lines := make([]string, len(b.Nodes))
	for i, n := range b.Nodes {
		lines[i] = formatStmt(n, depth+1)
	}
	return "{\n" + strings.Join(lines, "\n") + "\n" + strings.Repeat(indent, depth) + "}"
}

func formatExpr(n ast.Node) string {
	switch expr := n.(type) {
	case *ast.NumLiteral:
		return strconv.FormatInt(expr.Value, 10)
	case *ast.FloatLiteral:
		return formatFloatLiteral(expr.Value)
	case *ast.StrLiteral:
		return quoteString(expr.Value)
	case *ast.Var:
		return expr.Name
	case *ast.ListIndex:
		return expr.Name + "[" + formatExpr(expr.Index) + "]"
	case *ast.Pop:
		return "pop(" + expr.Name + ")"
	case *ast.Len:
		return "len(" + formatExpr(expr.Value) + ")"
	case *ast.FuncCall:
		args := make([]string, len(expr.Args))
		for i, a := range expr.Args {
			args[i] = formatExpr(a)
		}
		return expr.Name + "(" + strings.Join(args, ", ") + ")"
	case *ast.Condition:
		return formatExpr(expr.Left) + " " + string(expr.Op) + " " + formatExpr(expr.Right)
	case *ast.BinaryExpr:
		leftStr := formatExpr(expr.Left)
		rightStr := formatExpr(expr.Right)
		if needsParens(expr.Left, expr.Op, false) {
			leftStr = "(" + leftStr + ")"
		}
		if needsParens(expr.Right, expr.Op, true) {
			rightStr = "(" + rightStr + ")"
		}
		return leftStr + " " + string(expr.Op) + " " + rightStr
	}
	return ""
}

// quoteString picks the delimiter the lexer can read back: double quotes
// unless the text itself contains one.
func quoteString(s string) string {
	if strings.ContainsRune(s, '"') {
		return "'" + s + "'"
	}
	return `"` + s + `"`
}

// formatFloatLiteral renders a float in plain decimal notation; the lexer
// has no exponent syntax.
func formatFloatLiteral(value float64) string {
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return strconv.FormatFloat(value, 'f', -1, 64)
	}

	raw := strconv.FormatFloat(value, 'g', -1, 64)
	if strings.ContainsAny(raw, "eE") {
		raw = expandScientificNotation(raw)
	}
	if !strings.Contains(raw, ".") {
		raw += ".0"
	}
	return raw
}

func expandScientificNotation(value string) string {
	lower := strings.ToLower(value)
	parts := strings.SplitN(lower, "e", 2)
	if len(parts) != 2 {
		return value
	}

	mantissa := parts[0]
	exponent, err := strconv.Atoi(parts[1])
	if err != nil {
		return value
	}

	sign := ""
	digits := mantissa
	if strings.HasPrefix(digits, "-") {
		sign = "-"
		digits = digits[1:]
	} else if strings.HasPrefix(digits, "+") {
		digits = digits[1:]
	}

	dotIdx := strings.Index(digits, ".")
	intPart := digits
	fracPart := ""
	if dotIdx >= 0 {
		intPart = digits[:dotIdx]
		fracPart = digits[dotIdx+1:]
	}

	compact := intPart + fracPart
	decimalIndex := len(intPart) + exponent

	if decimalIndex <= 0 {
		return sign + "0." + strings.Repeat("0", -decimalIndex) + compact
	}
	if decimalIndex >= len(compact) {
		return sign + compact + strings.Repeat("0", decimalIndex-len(compact)) + ".0"
	}
	return sign + compact[:decimalIndex] + "." + compact[decimalIndex:]
}

func formatList(elems []ast.Node, depth int) string {
	if len(elems) == 0 {
		return "[]"
	}

	// Try inline first
	inlineParts := make([]string, len(elems))
	for i, e := range elems {
		inlineParts[i] = formatExpr(e)
	}
	inline := "[" + strings.Join(inlineParts, ", ") + "]"
	if len(inline) <= 72 {
		return inline
	}

	// Multi-line
	inner := strings.Repeat(indent, depth+1)
	outer := strings.Repeat(indent, depth)
	parts := make([]string, len(elems))
	for i, e := range elems {
		parts[i] = inner + formatExpr(e)
	}
	return "[\n" + strings.Join(parts, ",\n") + "\n" + outer + "]"
}

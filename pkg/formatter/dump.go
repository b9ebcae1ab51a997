package formatter

import (
	"strconv"
	"strings"

	"github.com/quill-lang/quill/pkg/ast"
)

// Dump renders a program as an indented tree: one node per line, its kind
// tag followed by any leaf values, children indented below.
func Dump(program *ast.Program) string {
	var sb strings.Builder
	sb.WriteString(ast.KindProgram)
	sb.WriteByte('\n')
	if program != nil {
		dumpNodes(&sb, blockNodes(program.Body), 1)
	}
	return sb.String()
}

func dumpNodes(sb *strings.Builder, nodes []ast.Node, depth int) {
	for _, n := range nodes {
		dumpNode(sb, n, depth)
	}
}

func dumpLine(sb *strings.Builder, depth int, tag string, leaves ...string) {
	sb.WriteString(strings.Repeat(indent, depth))
	sb.WriteString(tag)
	for _, l := range leaves {
		sb.WriteByte(' ')
		sb.WriteString(l)
	}
	sb.WriteByte('\n')
}

func dumpBlock(sb *strings.Builder, b *ast.Block, depth int) {
	dumpLine(sb, depth, ast.KindBlock)
	dumpNodes(sb, blockNodes(b), depth+1)
}

func dumpNode(sb *strings.Builder, n ast.Node, depth int) {
	switch node := n.(type) {
	case nil:
		dumpLine(sb, depth, "none")
	case *ast.NumLiteral:
		dumpLine(sb, depth, node.Kind(), strconv.FormatInt(node.Value, 10))
	case *ast.FloatLiteral:
		dumpLine(sb, depth, node.Kind(), formatFloatLiteral(node.Value))
	case *ast.StrLiteral:
		dumpLine(sb, depth, node.Kind(), strconv.Quote(node.Value))
	case *ast.Var:
		dumpLine(sb, depth, node.Kind(), node.Name)
	case *ast.Pop:
		dumpLine(sb, depth, node.Kind(), node.Name)
	case *ast.VarAssign:
		dumpLine(sb, depth, node.Kind(), node.Name)
		dumpNode(sb, node.Value, depth+1)
	case *ast.ListAssign:
		dumpLine(sb, depth, node.Kind(), node.Name)
		dumpNodes(sb, node.Elements, depth+1)
	case *ast.ListIndex:
		dumpLine(sb, depth, node.Kind(), node.Name)
		dumpNode(sb, node.Index, depth+1)
	case *ast.Push:
		dumpLine(sb, depth, node.Kind(), node.Name)
		dumpNode(sb, node.Value, depth+1)
	case *ast.Print:
		dumpLine(sb, depth, node.Kind())
		dumpNode(sb, node.Value, depth+1)
	case *ast.Len:
		dumpLine(sb, depth, node.Kind())
		dumpNode(sb, node.Value, depth+1)
	case *ast.Return:
		dumpLine(sb, depth, node.Kind())
		dumpNode(sb, node.Value, depth+1)
	case *ast.Condition:
		dumpLine(sb, depth, node.Kind())
		dumpNode(sb, node.Left, depth+1)
		dumpNode(sb, node.Right, depth+1)
	case *ast.BinaryExpr:
		dumpLine(sb, depth, node.Kind())
		dumpNode(sb, node.Left, depth+1)
		dumpNode(sb, node.Right, depth+1)
	case *ast.FuncCall:
		dumpLine(sb, depth, node.Kind(), node.Name)
		dumpNodes(sb, node.Args, depth+1)
	case *ast.FuncDef:
		dumpLine(sb, depth, node.Kind(), node.Name, "("+strings.Join(node.Params, ", ")+")")
		dumpBlock(sb, node.Body, depth+1)
	case *ast.If:
		dumpLine(sb, depth, node.Kind())
		dumpNode(sb, node.Cond, depth+1)
		dumpBlock(sb, node.Body, depth+1)
		for _, ei := range node.ElseIfs {
			dumpNode(sb, ei, depth+1)
		}
		if node.Else != nil {
			dumpNode(sb, node.Else, depth+1)
		}
	case *ast.ElseIf:
		dumpLine(sb, depth, node.Kind())
		dumpNode(sb, node.Cond, depth+1)
		dumpBlock(sb, node.Body, depth+1)
	case *ast.Else:
		dumpLine(sb, depth, node.Kind())
		dumpBlock(sb, node.Body, depth+1)
	case *ast.ForiLoop:
		dumpLine(sb, depth, node.Kind())
		if node.Setup != nil {
			dumpNode(sb, node.Setup, depth+1)
		}
		dumpBlock(sb, node.Body, depth+1)
	case *ast.ForiLoopSetup:
		dumpLine(sb, depth, node.Kind())
		if node.Init != nil {
			dumpNode(sb, node.Init, depth+1)
		}
		dumpNode(sb, node.Limit, depth+1)
	case *ast.ForeachLoop:
		dumpLine(sb, depth, node.Kind())
		if node.Setup != nil {
			dumpNode(sb, node.Setup, depth+1)
		}
		dumpBlock(sb, node.Body, depth+1)
	case *ast.ForeachLoopSetup:
		dumpLine(sb, depth, node.Kind(), node.Element, node.Collection)
	case *ast.Block:
		dumpBlock(sb, node, depth)
	default:
		dumpLine(sb, depth, n.Kind())
	}
}

func blockNodes(b *ast.Block) []ast.Node {
	if b == nil {
		return nil
	}
	return b.Nodes
}

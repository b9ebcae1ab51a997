// Package validator implements structural checks of Quill programs that do
// not require running them.
package validator

import (
	"fmt"

	"github.com/quill-lang/quill/pkg/ast"
	"github.com/quill-lang/quill/pkg/diagnostics"
)

// scope holds the function definitions visible at one nesting level: the
// program body or a function body, including definitions inside its
// conditional and loop blocks.
type scope struct {
	funcs  map[string][]*ast.FuncDef
	parent *scope
}

func newScope(parent *scope) *scope {
	return &scope{funcs: make(map[string][]*ast.FuncDef), parent: parent}
}

// lookup returns the definitions of name at the nearest level that has any.
func (s *scope) lookup(name string) []*ast.FuncDef {
	if defs := s.funcs[name]; len(defs) > 0 {
		return defs
	}
	if s.parent != nil {
		return s.parent.lookup(name)
	}
	return nil
}

func (s *scope) add(fn *ast.FuncDef) {
	s.funcs[fn.Name] = append(s.funcs[fn.Name], fn)
}

type validator struct {
	diags   []diagnostics.Diagnostic
	fnNames map[string]bool
	fnDepth int
}

// Validate checks a parsed program and returns its diagnostics. Duplicate
// parameters are errors; the remaining findings are warnings because the
// runtime may still succeed.
func Validate(program *ast.Program) []diagnostics.Diagnostic {
	v := &validator{fnNames: make(map[string]bool)}
	if program == nil || program.Body == nil {
		return nil
	}
	collectNames(program.Body.Nodes, v.fnNames)
	v.validateBlock(program.Body, newScope(nil))
	return v.diags
}

func (v *validator) addDiag(code, msg string, span ast.Span) {
	v.diags = append(v.diags, diagnostics.MakeDiag(code, msg, &span, ""))
}

func (v *validator) addWarning(code, msg string, span ast.Span) {
	v.diags = append(v.diags, diagnostics.MakeWarning(code, msg, &span))
}

// collectNames records every function name defined anywhere in nodes.
func collectNames(nodes []ast.Node, names map[string]bool) {
	for _, n := range nodes {
		forEachBlock(n, func(b *ast.Block) { collectNames(b.Nodes, names) })
		if fn, ok := n.(*ast.FuncDef); ok {
			names[fn.Name] = true
		}
	}
}

// collectLevel adds the definitions of one nesting level to sc, descending
// into conditional and loop blocks but not into function bodies.
func collectLevel(nodes []ast.Node, sc *scope) {
	for _, n := range nodes {
		if fn, ok := n.(*ast.FuncDef); ok {
			sc.add(fn)
			continue
		}
		forEachBlock(n, func(b *ast.Block) { collectLevel(b.Nodes, sc) })
	}
}

// forEachBlock calls fn for each statement block directly owned by n.
func forEachBlock(n ast.Node, fn func(*ast.Block)) {
	visit := func(b *ast.Block) {
		if b != nil {
			fn(b)
		}
	}
	switch s := n.(type) {
	case *ast.FuncDef:
		visit(s.Body)
	case *ast.If:
		visit(s.Body)
		for _, ei := range s.ElseIfs {
			visit(ei.Body)
		}
		if s.Else != nil {
			visit(s.Else.Body)
		}
	case *ast.ForiLoop:
		visit(s.Body)
	case *ast.ForeachLoop:
		visit(s.Body)
	}
}

func (v *validator) validateBlock(b *ast.Block, sc *scope) {
	if b == nil {
		return
	}
	collectLevel(b.Nodes, sc)
	v.validateNodes(b.Nodes, sc)
}

func (v *validator) validateNodes(nodes []ast.Node, sc *scope) {
	for _, n := range nodes {
		v.validateNode(n, sc)
	}
}

func (v *validator) validateNode(n ast.Node, sc *scope) {
	switch s := n.(type) {
	case nil:

	case *ast.FuncDef:
		seen := make(map[string]bool, len(s.Params))
		for _, p := range s.Params {
			if seen[p] {
				v.addDiag(diagnostics.EDupParam,
					fmt.Sprintf("duplicate parameter '%s' in function '%s'", p, s.Name), s.Span)
			}
			seen[p] = true
		}
		v.fnDepth++
		v.validateBlock(s.Body, newScope(sc))
		v.fnDepth--

	case *ast.FuncCall:
		v.validateCall(s, sc)
		v.validateNodes(s.Args, sc)

	case *ast.Return:
		if v.fnDepth == 0 {
			v.addWarning(diagnostics.WReturnOutsideFunction,
				"'return' outside of a function stores a value nobody reads", s.Span)
		}
		v.validateNode(s.Value, sc)

	case *ast.If:
		v.validateNode(s.Cond, sc)
		v.validateNodes(blockNodes(s.Body), sc)
		for _, ei := range s.ElseIfs {
			v.validateNode(ei.Cond, sc)
			v.validateNodes(blockNodes(ei.Body), sc)
		}
		if s.Else != nil {
			v.validateNodes(blockNodes(s.Else.Body), sc)
		}

	case *ast.ForiLoop:
		if s.Setup != nil {
			if s.Setup.Init != nil {
				v.validateNode(s.Setup.Init.Value, sc)
			}
			v.validateNode(s.Setup.Limit, sc)
		}
		v.validateNodes(blockNodes(s.Body), sc)

	case *ast.ForeachLoop:
		v.validateNodes(blockNodes(s.Body), sc)

	case *ast.VarAssign:
		v.validateNode(s.Value, sc)
	case *ast.ListAssign:
		v.validateNodes(s.Elements, sc)
	case *ast.ListIndex:
		v.validateNode(s.Index, sc)
	case *ast.Push:
		v.validateNode(s.Value, sc)
	case *ast.Print:
		v.validateNode(s.Value, sc)
	case *ast.Len:
		v.validateNode(s.Value, sc)
	case *ast.Condition:
		v.validateNode(s.Left, sc)
		v.validateNode(s.Right, sc)
	case *ast.BinaryExpr:
		v.validateNode(s.Left, sc)
		v.validateNode(s.Right, sc)
	}
}

func (v *validator) validateCall(call *ast.FuncCall, sc *scope) {
	if !v.fnNames[call.Name] {
		v.addWarning(diagnostics.WUndefinedFunction,
			fmt.Sprintf("function '%s' is never defined", call.Name), call.Span)
		return
	}
	defs := sc.lookup(call.Name)
	if len(defs) != 1 {
		return
	}
	if want := len(defs[0].Params); want != len(call.Args) {
		v.addWarning(diagnostics.WParameterCount,
			fmt.Sprintf("%s() takes %d argument(s) but %d are given", call.Name, want, len(call.Args)), call.Span)
	}
}

func blockNodes(b *ast.Block) []ast.Node {
	if b == nil {
		return nil
	}
	return b.Nodes
}

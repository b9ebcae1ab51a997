package ast

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ToTuple converts a node into its tuple form: a tag-first array such as
// ["print", ["str", "hi"]]. Blocks and programs become plain arrays of
// tuples, absent nodes become nil.
func ToTuple(n Node) any {
	switch n := n.(type) {
	case nil:
		return nil
	case *Program:
		if n == nil {
			return nil
		}
		return blockTuple(n.Body)
	case *Block:
		return blockTuple(n)
	case *NumLiteral:
		return []any{KindNum, n.Value}
	case *FloatLiteral:
		return []any{KindFloat, n.Value}
	case *StrLiteral:
		return []any{KindStr, n.Value}
	case *VarAssign:
		return []any{KindVarAssign, n.Name, ToTuple(n.Value)}
	case *Var:
		return []any{KindVar, n.Name}
	case *ListAssign:
		return []any{KindListAssign, n.Name, nodesTuple(n.Elements)}
	case *ListIndex:
		return []any{KindListIndex, n.Name, ToTuple(n.Index)}
	case *Pop:
		return []any{KindPop, n.Name}
	case *Push:
		return []any{KindPush, n.Name, ToTuple(n.Value)}
	case *If:
		var elseIfs any
		if len(n.ElseIfs) > 0 {
			items := make([]any, len(n.ElseIfs))
			for i, ei := range n.ElseIfs {
				items[i] = ToTuple(ei)
			}
			elseIfs = items
		}
		var elseTuple any
		if n.Else != nil {
			elseTuple = ToTuple(n.Else)
		}
		return []any{KindIf, ToTuple(n.Cond), blockTuple(n.Body), elseIfs, elseTuple}
	case *ElseIf:
		return []any{KindElseIf, ToTuple(n.Cond), blockTuple(n.Body)}
	case *Else:
		return []any{KindElse, blockTuple(n.Body)}
	case *Condition:
		return []any{n.Kind(), ToTuple(n.Left), ToTuple(n.Right)}
	case *BinaryExpr:
		return []any{n.Kind(), ToTuple(n.Left), ToTuple(n.Right)}
	case *FuncDef:
		var params any
		if len(n.Params) > 0 {
			ps := make([]any, len(n.Params))
			for i, p := range n.Params {
				ps[i] = p
			}
			params = ps
		}
		return []any{KindFuncDef, n.Name, params, blockTuple(n.Body)}
	case *FuncCall:
		return []any{KindFuncCall, n.Name, nodesTuple(n.Args)}
	case *Return:
		return []any{KindReturn, ToTuple(n.Value)}
	case *ForiLoop:
		return []any{KindForiLoop, ToTuple(n.Setup), blockTuple(n.Body)}
	case *ForiLoopSetup:
		return []any{KindForiLoopSetup, ToTuple(n.Init), ToTuple(n.Limit)}
	case *ForeachLoop:
		return []any{KindForeachLoop, ToTuple(n.Setup), blockTuple(n.Body)}
	case *ForeachLoopSetup:
		return []any{KindForeachLoopSetup, n.Element, n.Collection}
	case *Print:
		return []any{KindPrint, ToTuple(n.Value)}
	case *Len:
		return []any{KindLen, ToTuple(n.Value)}
	}
	return nil
}

func blockTuple(b *Block) any {
	if b == nil {
		return nil
	}
	return nodesTuple(b.Nodes)
}

func nodesTuple(nodes []Node) any {
	if nodes == nil {
		return nil
	}
	out := make([]any, len(nodes))
	for i, n := range nodes {
		out[i] = ToTuple(n)
	}
	return out
}

// EncodeJSON renders a program in tuple form as JSON.
func EncodeJSON(p *Program) ([]byte, error) {
	t := ToTuple(p)
	if t == nil {
		t = []any{}
	}
	return json.Marshal(t)
}

// DecodeJSON parses a tuple-form JSON document into a program. Spans of the
// decoded nodes carry only the file name.
func DecodeJSON(data []byte, filename string) (*Program, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("tree: %w", err)
	}
	d := &tupleDecoder{span: Span{File: filename}}
	body, err := d.block(raw)
	if err != nil {
		return nil, err
	}
	if body == nil {
		body = &Block{Span: d.span}
	}
	return &Program{Span: d.span, Body: body}, nil
}

// FromTuple decodes a single tuple-form node (as produced by encoding/json
// with UseNumber) into a Node.
func FromTuple(raw any) (Node, error) {
	d := &tupleDecoder{}
	return d.node(raw)
}

type tupleDecoder struct {
	span Span
}

func (d *tupleDecoder) errorf(format string, args ...any) error {
	return fmt.Errorf("tree: "+format, args...)
}

// block accepts either an array of tuples or a single tuple.
func (d *tupleDecoder) block(raw any) (*Block, error) {
	if raw == nil {
		return nil, nil
	}
	arr, ok := raw.([]any)
	if !ok {
		return nil, d.errorf("expected node sequence, got %T", raw)
	}
	if len(arr) > 0 {
		if _, isTag := arr[0].(string); isTag {
			n, err := d.node(raw)
			if err != nil {
				return nil, err
			}
			return &Block{Span: d.span, Nodes: []Node{n}}, nil
		}
	}
	nodes := make([]Node, 0, len(arr))
	for _, item := range arr {
		n, err := d.node(item)
		if err != nil {
			return nil, err
		}
		if n != nil {
			nodes = append(nodes, n)
		}
	}
	return &Block{Span: d.span, Nodes: nodes}, nil
}

func (d *tupleDecoder) nodeList(raw any) ([]Node, error) {
	if raw == nil {
		return nil, nil
	}
	arr, ok := raw.([]any)
	if !ok {
		return nil, d.errorf("expected node list, got %T", raw)
	}
	out := make([]Node, len(arr))
	for i, item := range arr {
		n, err := d.node(item)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func (d *tupleDecoder) node(raw any) (Node, error) {
	if raw == nil {
		return nil, nil
	}
	arr, ok := raw.([]any)
	if !ok || len(arr) == 0 {
		return nil, d.errorf("expected tagged tuple, got %v", raw)
	}
	tag, ok := arr[0].(string)
	if !ok {
		// A nested sequence of statements.
		return d.block(raw)
	}
	args := arr[1:]
	need := func(n int) error {
		if len(args) < n {
			return d.errorf("%s: expected %d children, got %d", tag, n, len(args))
		}
		return nil
	}
	sp := d.span

	switch {
	case tag == KindNum:
		if err := need(1); err != nil {
			return nil, err
		}
		v, err := d.int(args[0])
		if err != nil {
			return nil, err
		}
		return &NumLiteral{Span: sp, Value: v}, nil

	case tag == KindFloat:
		if err := need(1); err != nil {
			return nil, err
		}
		num, ok := args[0].(json.Number)
		if !ok {
			return nil, d.errorf("float: expected number, got %v", args[0])
		}
		f, err := num.Float64()
		if err != nil {
			return nil, d.errorf("float: %v", err)
		}
		return &FloatLiteral{Span: sp, Value: f}, nil

	case tag == KindStr:
		if err := need(1); err != nil {
			return nil, err
		}
		s, err := d.str(args[0])
		if err != nil {
			return nil, err
		}
		return &StrLiteral{Span: sp, Value: s}, nil

	case tag == KindVarAssign:
		if err := need(2); err != nil {
			return nil, err
		}
		name, err := d.str(args[0])
		if err != nil {
			return nil, err
		}
		val, err := d.node(args[1])
		if err != nil {
			return nil, err
		}
		return &VarAssign{Span: sp, Name: name, Value: val}, nil

	case tag == KindVar || tag == KindPop:
		if err := need(1); err != nil {
			return nil, err
		}
		name, err := d.str(args[0])
		if err != nil {
			return nil, err
		}
		if tag == KindPop {
			return &Pop{Span: sp, Name: name}, nil
		}
		return &Var{Span: sp, Name: name}, nil

	case tag == KindListAssign:
		if err := need(1); err != nil {
			return nil, err
		}
		name, err := d.str(args[0])
		if err != nil {
			return nil, err
		}
		var elems []Node
		if len(args) > 1 {
			if elems, err = d.nodeList(args[1]); err != nil {
				return nil, err
			}
		}
		return &ListAssign{Span: sp, Name: name, Elements: elems}, nil

	case tag == KindListIndex || tag == KindPush:
		if err := need(2); err != nil {
			return nil, err
		}
		name, err := d.str(args[0])
		if err != nil {
			return nil, err
		}
		val, err := d.node(args[1])
		if err != nil {
			return nil, err
		}
		if tag == KindPush {
			return &Push{Span: sp, Name: name, Value: val}, nil
		}
		return &ListIndex{Span: sp, Name: name, Index: val}, nil

	case tag == KindIf:
		if err := need(2); err != nil {
			return nil, err
		}
		cond, err := d.node(args[0])
		if err != nil {
			return nil, err
		}
		body, err := d.block(args[1])
		if err != nil {
			return nil, err
		}
		n := &If{Span: sp, Cond: cond, Body: body}
		if len(args) > 2 && args[2] != nil {
			list, ok := args[2].([]any)
			if !ok {
				return nil, d.errorf("if_stmt: expected else_if list, got %v", args[2])
			}
			for _, item := range list {
				ein, err := d.node(item)
				if err != nil {
					return nil, err
				}
				ei, ok := ein.(*ElseIf)
				if !ok {
					return nil, d.errorf("if_stmt: expected else_if, got %T", ein)
				}
				n.ElseIfs = append(n.ElseIfs, ei)
			}
		}
		if len(args) > 3 && args[3] != nil {
			en, err := d.node(args[3])
			if err != nil {
				return nil, err
			}
			e, ok := en.(*Else)
			if !ok {
				return nil, d.errorf("if_stmt: expected else, got %T", en)
			}
			n.Else = e
		}
		return n, nil

	case tag == KindElseIf:
		if err := need(2); err != nil {
			return nil, err
		}
		cond, err := d.node(args[0])
		if err != nil {
			return nil, err
		}
		body, err := d.block(args[1])
		if err != nil {
			return nil, err
		}
		return &ElseIf{Span: sp, Cond: cond, Body: body}, nil

	case tag == KindElse:
		if err := need(1); err != nil {
			return nil, err
		}
		body, err := d.block(args[0])
		if err != nil {
			return nil, err
		}
		return &Else{Span: sp, Body: body}, nil

	case strings.HasPrefix(tag, ConditionPrefix):
		op := RelOp(strings.TrimPrefix(tag, ConditionPrefix))
		switch op {
		case OpEq, OpNe, OpGt, OpLt, OpGe, OpLe:
		default:
			return nil, d.errorf("unknown condition %q", tag)
		}
		left, right, err := d.pair(tag, args)
		if err != nil {
			return nil, err
		}
		return &Condition{Span: sp, Op: op, Left: left, Right: right}, nil

	case tag == string(OpAdd) || tag == string(OpSub) || tag == string(OpMul) ||
		tag == string(OpDiv) || tag == string(OpMod):
		left, right, err := d.pair(tag, args)
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{Span: sp, Op: ArithOp(tag), Left: left, Right: right}, nil

	case tag == KindFuncDef:
		if err := need(3); err != nil {
			return nil, err
		}
		name, err := d.str(args[0])
		if err != nil {
			return nil, err
		}
		var params []string
		if args[1] != nil {
			list, ok := args[1].([]any)
			if !ok {
				return nil, d.errorf("func_def: expected parameter list, got %v", args[1])
			}
			for _, p := range list {
				s, err := d.str(p)
				if err != nil {
					return nil, err
				}
				params = append(params, s)
			}
		}
		body, err := d.block(args[2])
		if err != nil {
			return nil, err
		}
		return &FuncDef{Span: sp, Name: name, Params: params, Body: body}, nil

	case tag == KindFuncCall:
		if err := need(1); err != nil {
			return nil, err
		}
		name, err := d.str(args[0])
		if err != nil {
			return nil, err
		}
		var callArgs []Node
		if len(args) > 1 {
			if callArgs, err = d.nodeList(args[1]); err != nil {
				return nil, err
			}
		}
		return &FuncCall{Span: sp, Name: name, Args: callArgs}, nil

	case tag == KindReturn || tag == KindPrint || tag == KindLen:
		if err := need(1); err != nil {
			return nil, err
		}
		val, err := d.node(args[0])
		if err != nil {
			return nil, err
		}
		switch tag {
		case KindReturn:
			return &Return{Span: sp, Value: val}, nil
		case KindPrint:
			return &Print{Span: sp, Value: val}, nil
		}
		return &Len{Span: sp, Value: val}, nil

	case tag == KindForiLoop:
		if err := need(2); err != nil {
			return nil, err
		}
		sn, err := d.node(args[0])
		if err != nil {
			return nil, err
		}
		setup, ok := sn.(*ForiLoopSetup)
		if !ok {
			return nil, d.errorf("fori_loop: expected fori_loop_setup, got %T", sn)
		}
		body, err := d.block(args[1])
		if err != nil {
			return nil, err
		}
		return &ForiLoop{Span: sp, Setup: setup, Body: body}, nil

	case tag == KindForiLoopSetup:
		if err := need(2); err != nil {
			return nil, err
		}
		in, err := d.node(args[0])
		if err != nil {
			return nil, err
		}
		init, ok := in.(*VarAssign)
		if !ok {
			return nil, d.errorf("fori_loop_setup: expected var_assign, got %T", in)
		}
		limit, err := d.node(args[1])
		if err != nil {
			return nil, err
		}
		return &ForiLoopSetup{Span: sp, Init: init, Limit: limit}, nil

	case tag == KindForeachLoop:
		if err := need(2); err != nil {
			return nil, err
		}
		sn, err := d.node(args[0])
		if err != nil {
			return nil, err
		}
		setup, ok := sn.(*ForeachLoopSetup)
		if !ok {
			return nil, d.errorf("foreach_loop: expected foreach_loop_setup, got %T", sn)
		}
		body, err := d.block(args[1])
		if err != nil {
			return nil, err
		}
		return &ForeachLoop{Span: sp, Setup: setup, Body: body}, nil

	case tag == KindForeachLoopSetup:
		if err := need(2); err != nil {
			return nil, err
		}
		elem, err := d.str(args[0])
		if err != nil {
			return nil, err
		}
		coll, err := d.str(args[1])
		if err != nil {
			return nil, err
		}
		return &ForeachLoopSetup{Span: sp, Element: elem, Collection: coll}, nil
	}

	return nil, d.errorf("unknown node kind %q", tag)
}

func (d *tupleDecoder) pair(tag string, args []any) (Node, Node, error) {
	if len(args) < 2 {
		return nil, nil, d.errorf("%s: expected 2 operands, got %d", tag, len(args))
	}
	left, err := d.node(args[0])
	if err != nil {
		return nil, nil, err
	}
	right, err := d.node(args[1])
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

func (d *tupleDecoder) str(raw any) (string, error) {
	s, ok := raw.(string)
	if !ok {
		return "", d.errorf("expected string, got %v", raw)
	}
	return s, nil
}

func (d *tupleDecoder) int(raw any) (int64, error) {
	switch v := raw.(type) {
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return 0, d.errorf("num: %v", err)
		}
		return i, nil
	case float64:
		return int64(v), nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	}
	return 0, d.errorf("num: expected integer, got %v", raw)
}

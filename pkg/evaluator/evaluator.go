package evaluator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/quill-lang/quill/pkg/ast"
	"github.com/quill-lang/quill/pkg/diagnostics"
)

// TraceEventType identifies the type of a trace event.
type TraceEventType string

const (
	TraceRunStart    TraceEventType = "run_start"
	TraceRunEnd      TraceEventType = "run_end"
	TraceFnCallStart TraceEventType = "fn_call_start"
	TraceFnCallEnd   TraceEventType = "fn_call_end"
	TraceLoopStart   TraceEventType = "loop_start"
	TraceLoopEnd     TraceEventType = "loop_end"
	TracePrint       TraceEventType = "print"
	TraceError       TraceEventType = "error"
)

// TraceEvent represents a single trace event emitted during execution.
type TraceEvent struct {
	Timestamp string         `json:"ts"`
	RunID     string         `json:"runId"`
	Event     TraceEventType `json:"event"`
	Span      *ast.Span      `json:"span,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// ExecOptions configures program execution.
type ExecOptions struct {
	// Env is the initial environment. A fresh one is used when nil.
	Env *Env
	// Stdout receives one line per print. Nil discards; lines are still
	// collected in ExecResult.Output.
	Stdout io.Writer
	// Stderr receives one "Kind: message" line per runtime diagnostic as it
	// happens. Nil discards.
	Stderr io.Writer
	Trace  func(event TraceEvent)
	RunID  string
	// EarlyReturn makes return unwind to the enclosing call boundary.
	EarlyReturn   bool
	MaxIterations int64
	// MaxCallDepth defaults to DefaultMaxCallDepth when zero.
	MaxCallDepth int
	Logger       *slog.Logger
}

// ExecResult holds the result of a program execution.
type ExecResult struct {
	Env         *Env
	Value       Value
	Output      []string
	Diagnostics []diagnostics.Diagnostic
	// Terminated is true when a fatal error stopped the run.
	Terminated bool
	Stats      BudgetTracker
}

// RuntimeError is a fatal error that terminates a run.
type RuntimeError struct {
	Code    string
	Message string
	Span    *ast.Span
}

func (e *RuntimeError) Error() string {
	return e.Message
}

// Diagnostic converts the error into a fatal-severity diagnostic.
func (e *RuntimeError) Diagnostic() diagnostics.Diagnostic {
	d := diagnostics.MakeDiag(e.Code, e.Message, e.Span, "")
	d.Severity = diagnostics.SeverityFatal
	return d
}

// returnSignal unwinds evaluation to the call boundary when early return
// is enabled.
type returnSignal struct {
	value Value
}

func (r *returnSignal) Error() string {
	return "return outside of a call boundary"
}

type evaluator struct {
	ctx     context.Context
	opts    ExecOptions
	env     *Env
	path    Path
	frames  []Path
	output  []string
	diags   []diagnostics.Diagnostic
	budget  Budget
	tracker BudgetTracker
	log     *slog.Logger
}

var stripQuotes = strings.NewReplacer(`"`, "", "'", "")

func spanOf(n ast.Node) *ast.Span {
	s := n.NodeSpan()
	return &s
}

func (ev *evaluator) emit(event TraceEventType, span *ast.Span, data map[string]any) {
	if ev.opts.Trace != nil {
		ev.opts.Trace(TraceEvent{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			RunID:     ev.opts.RunID,
			Event:     event,
			Span:      span,
			Data:      data,
		})
	}
}

// recoverable reports a diagnostic and lets the run continue. The caller
// yields the sentinel value.
func (ev *evaluator) recoverable(code, msg string, span *ast.Span) Value {
	d := diagnostics.MakeDiag(code, msg, span, "")
	ev.diags = append(ev.diags, d)
	if ev.opts.Stderr != nil {
		fmt.Fprintln(ev.opts.Stderr, d.Line())
	}
	ev.log.Debug("recoverable error", "code", code, "msg", msg, "path", ev.path.String())
	ev.emit(TraceError, span, map[string]any{"code": code, "message": msg, "fatal": false})
	return Int{Value: 0}
}

func (ev *evaluator) fatal(code, msg string, span *ast.Span) error {
	return &RuntimeError{Code: code, Message: msg, Span: span}
}

// Execute runs a program and returns the final environment, the printed
// lines and the diagnostics. A fatal error is returned alongside a result
// with Terminated set.
func Execute(ctx context.Context, program *ast.Program, opts ExecOptions) (*ExecResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	env := opts.Env
	if env == nil {
		env = NewEnv()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	ev := &evaluator{
		ctx:  ctx,
		opts: opts,
		env:  env,
		budget: Budget{
			MaxIterations: opts.MaxIterations,
			MaxCallDepth:  opts.MaxCallDepth,
		},
		log: logger,
	}
	if ev.budget.MaxCallDepth <= 0 {
		ev.budget.MaxCallDepth = DefaultMaxCallDepth
	}

	var span *ast.Span
	if program != nil {
		span = spanOf(program)
	}
	ev.emit(TraceRunStart, span, nil)

	var val Value = None{}
	var err error
	if program != nil {
		val, err = ev.evalBlock(program.Body)
	}

	var rs *returnSignal
	if errors.As(err, &rs) {
		val, err = rs.value, nil
	}

	result := &ExecResult{
		Env:    env,
		Value:  val,
		Output: ev.output,
		Stats:  ev.tracker,
	}

	if err != nil {
		var rtErr *RuntimeError
		if !errors.As(err, &rtErr) {
			rtErr = &RuntimeError{Code: diagnostics.EType, Message: err.Error()}
		}
		d := rtErr.Diagnostic()
		ev.diags = append(ev.diags, d)
		if opts.Stderr != nil {
			fmt.Fprintln(opts.Stderr, d.Line())
		}
		ev.emit(TraceError, rtErr.Span, map[string]any{"code": rtErr.Code, "message": rtErr.Message, "fatal": true})
		result.Terminated = true
		result.Diagnostics = ev.diags
		ev.emit(TraceRunEnd, span, map[string]any{"terminated": true})
		return result, rtErr
	}

	result.Diagnostics = ev.diags
	ev.emit(TraceRunEnd, span, map[string]any{"terminated": false})
	return result, nil
}

func (ev *evaluator) evalBlock(b *ast.Block) (Value, error) {
	var last Value = None{}
	if b == nil {
		return last, nil
	}
	for _, n := range b.Nodes {
		v, err := ev.eval(n)
		if err != nil {
			return nil, err
		}
		last = v
	}
	return last, nil
}

func (ev *evaluator) eval(node ast.Node) (Value, error) {
	switch n := node.(type) {
	case nil:
		return None{}, nil

	case *ast.Program:
		return ev.evalBlock(n.Body)

	case *ast.Block:
		return ev.evalBlock(n)

	case *ast.NumLiteral:
		return Int{Value: n.Value}, nil

	case *ast.FloatLiteral:
		return Float{Value: n.Value}, nil

	case *ast.StrLiteral:
		return Str{Value: n.Value}, nil

	case *ast.VarAssign:
		v, err := ev.eval(n.Value)
		if err != nil {
			return nil, err
		}
		ev.env.Define(ev.path, n.Name, v)
		return Str{Value: n.Name}, nil

	case *ast.Var:
		if v, ok := ev.env.Resolve(ev.path, n.Name); ok {
			return v, nil
		}
		return ev.recoverable(diagnostics.EUndefinedVariable,
			fmt.Sprintf("undefined variable '%s'", n.Name), spanOf(n)), nil

	case *ast.ListAssign:
		items := make([]Value, 0, len(n.Elements))
		for _, e := range n.Elements {
			v, err := ev.eval(e)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		ev.env.Define(ev.path, n.Name, NewList(items...))
		return Str{Value: n.Name}, nil

	case *ast.ListIndex:
		return ev.evalListIndex(n)

	case *ast.Push:
		return ev.evalPush(n)

	case *ast.Pop:
		return ev.evalPop(n)

	case *ast.If:
		return ev.evalIf(n)

	case *ast.ElseIf:
		cond, err := ev.eval(n.Cond)
		if err != nil {
			return nil, err
		}
		if Truthiness(cond) {
			return ev.evalBlock(n.Body)
		}
		return None{}, nil

	case *ast.Else:
		return ev.evalBlock(n.Body)

	case *ast.Condition:
		return ev.evalCondition(n)

	case *ast.BinaryExpr:
		return ev.evalBinary(n)

	case *ast.FuncDef:
		ev.env.DefineFunc(ev.path, n.Name, &Func{Name: n.Name, Params: n.Params, Body: n.Body})
		return None{}, nil

	case *ast.FuncCall:
		return ev.evalCall(n)

	case *ast.Return:
		v, err := ev.eval(n.Value)
		if err != nil {
			return nil, err
		}
		ev.env.SetReturn(ev.frame(), v)
		if ev.opts.EarlyReturn {
			return nil, &returnSignal{value: v}
		}
		return v, nil

	case *ast.ForiLoop:
		return ev.evalFori(n)

	case *ast.ForeachLoop:
		return ev.evalForeach(n)

	case *ast.ForiLoopSetup:
		if n.Init != nil {
			if _, err := ev.eval(n.Init); err != nil {
				return nil, err
			}
		}
		return ev.eval(n.Limit)

	case *ast.ForeachLoopSetup:
		return None{}, nil

	case *ast.Print:
		return ev.evalPrint(n)

	case *ast.Len:
		return ev.evalLen(n)
	}

	return nil, ev.fatal(diagnostics.EType, fmt.Sprintf("unsupported node kind '%s'", node.Kind()), spanOf(node))
}

// frame returns the path of the innermost active call, or the root.
func (ev *evaluator) frame() Path {
	if len(ev.frames) == 0 {
		return nil
	}
	return ev.frames[len(ev.frames)-1]
}

// --- Lists ---

func (ev *evaluator) resolveList(name string, span *ast.Span) (*List, error) {
	v, _ := ev.env.Resolve(ev.path, name)
	list, ok := v.(*List)
	if !ok {
		return nil, ev.fatal(diagnostics.EType,
			fmt.Sprintf("'%s' is %s, not a list", name, TypeName(v)), span)
	}
	return list, nil
}

func (ev *evaluator) evalListIndex(n *ast.ListIndex) (Value, error) {
	span := spanOf(n)
	if _, ok := ev.env.Resolve(ev.path, n.Name); !ok {
		return ev.recoverable(diagnostics.EUndefinedVariable,
			fmt.Sprintf("undefined variable '%s'", n.Name), span), nil
	}
	list, err := ev.resolveList(n.Name, span)
	if err != nil {
		return nil, err
	}
	idxVal, err := ev.eval(n.Index)
	if err != nil {
		return nil, err
	}
	idx, ok := idxVal.(Int)
	if !ok {
		return nil, ev.fatal(diagnostics.EType,
			fmt.Sprintf("list index must be int, not %s", TypeName(idxVal)), span)
	}
	item, ok := list.At(idx.Value)
	if !ok {
		return ev.recoverable(diagnostics.EIndex,
			fmt.Sprintf("list index %d out of range for '%s' (length %d)", idx.Value, n.Name, list.Len()), span), nil
	}
	return item, nil
}

func (ev *evaluator) evalPush(n *ast.Push) (Value, error) {
	span := spanOf(n)
	if _, ok := ev.env.Resolve(ev.path, n.Name); !ok {
		return nil, ev.fatal(diagnostics.EUndefinedVariable,
			fmt.Sprintf("cannot push to undefined variable '%s'", n.Name), span)
	}
	list, err := ev.resolveList(n.Name, span)
	if err != nil {
		return nil, err
	}
	v, err := ev.eval(n.Value)
	if err != nil {
		return nil, err
	}
	list.Push(v)
	return None{}, nil
}

func (ev *evaluator) evalPop(n *ast.Pop) (Value, error) {
	span := spanOf(n)
	if _, ok := ev.env.Resolve(ev.path, n.Name); !ok {
		return ev.recoverable(diagnostics.EUndefinedVariable,
			fmt.Sprintf("undefined variable '%s'", n.Name), span), nil
	}
	list, err := ev.resolveList(n.Name, span)
	if err != nil {
		return nil, err
	}
	v, ok := list.Pop()
	if !ok {
		return ev.recoverable(diagnostics.EIndex,
			fmt.Sprintf("pop from empty list '%s'", n.Name), span), nil
	}
	return v, nil
}

// --- Control flow ---

func (ev *evaluator) evalIf(n *ast.If) (Value, error) {
	cond, err := ev.eval(n.Cond)
	if err != nil {
		return nil, err
	}
	if Truthiness(cond) {
		return ev.evalBlock(n.Body)
	}
	for _, ei := range n.ElseIfs {
		if ei == nil {
			continue
		}
		c, err := ev.eval(ei.Cond)
		if err != nil {
			return nil, err
		}
		if Truthiness(c) {
			return ev.evalBlock(ei.Body)
		}
	}
	if n.Else != nil {
		return ev.evalBlock(n.Else.Body)
	}
	return None{}, nil
}

// --- Functions ---

func (ev *evaluator) evalCall(n *ast.FuncCall) (Value, error) {
	span := spanOf(n)
	fn, ok := ev.env.ResolveFunc(ev.path, n.Name)
	if !ok {
		return ev.recoverable(diagnostics.EUndefinedFunction,
			fmt.Sprintf("undefined function '%s'", n.Name), span), nil
	}
	if len(n.Args) != len(fn.Params) {
		return nil, ev.fatal(diagnostics.EParameterCount,
			fmt.Sprintf("%s() takes %d argument(s) but %d were given", n.Name, len(fn.Params), len(n.Args)), span)
	}

	args := make([]Value, len(n.Args))
	for i, a := range n.Args {
		v, err := ev.eval(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	if err := ev.enterCall(n.Name, span); err != nil {
		return nil, err
	}
	defer ev.exitCall()

	caller := ev.path
	callPath := caller.Push(n.Name)
	ev.path = callPath
	ev.frames = append(ev.frames, callPath)

	scope := ev.env.Ensure(callPath)
	for i, p := range fn.Params {
		scope.Bind(p, args[i])
	}

	ev.emit(TraceFnCallStart, span, map[string]any{"fn": n.Name, "depth": ev.tracker.Depth})
	_, err := ev.evalBlock(fn.Body)

	var ret Value = None{}
	if s, ok := ev.env.Get(callPath); ok && s.Return() != nil {
		ret = s.Return()
	}
	ev.env.EndCall(callPath)
	ev.frames = ev.frames[:len(ev.frames)-1]
	ev.path = caller
	ev.emit(TraceFnCallEnd, span, map[string]any{"fn": n.Name})

	if err != nil {
		var rs *returnSignal
		if !errors.As(err, &rs) {
			return nil, err
		}
	}
	return ret, nil
}

// --- Loops ---

func (ev *evaluator) evalFori(n *ast.ForiLoop) (Value, error) {
	span := spanOf(n)
	if n.Setup == nil || n.Setup.Init == nil {
		return nil, ev.fatal(diagnostics.EType, "counted loop is missing its setup", span)
	}
	name := n.Setup.Init.Name

	outer := ev.path
	loopPath := outer.Push(ForiMarker)
	ev.path = loopPath
	defer func() {
		ev.env.Delete(loopPath)
		ev.path = outer
	}()

	if _, err := ev.eval(n.Setup.Init); err != nil {
		return nil, err
	}
	limit, err := ev.eval(n.Setup.Limit)
	if err != nil {
		return nil, err
	}
	cur, _ := ev.env.Resolve(loopPath, name)
	if _, ok := numeric(cur); !ok {
		return nil, ev.fatal(diagnostics.EType,
			fmt.Sprintf("loop variable '%s' must be a number, not %s", name, TypeName(cur)), span)
	}
	if _, ok := numeric(limit); !ok {
		return nil, ev.fatal(diagnostics.EType,
			fmt.Sprintf("loop limit must be a number, not %s", TypeName(limit)), span)
	}

	ev.emit(TraceLoopStart, span, map[string]any{"kind": "fori", "var": name})
	for numericLess(cur, limit) {
		if err := ev.checkIterationBudget(span); err != nil {
			return nil, err
		}
		ev.env.Define(loopPath, name, cur)
		if _, err := ev.evalBlock(n.Body); err != nil {
			return nil, err
		}
		cur = increment(cur)
	}
	ev.emit(TraceLoopEnd, span, map[string]any{"kind": "fori", "var": name})
	return None{}, nil
}

func numericLess(a, b Value) bool {
	if ai, ok := a.(Int); ok {
		if bi, ok := b.(Int); ok {
			return ai.Value < bi.Value
		}
	}
	af, _ := numeric(a)
	bf, _ := numeric(b)
	return af < bf
}

func increment(v Value) Value {
	switch val := v.(type) {
	case Int:
		return Int{Value: val.Value + 1}
	case Float:
		return Float{Value: val.Value + 1}
	}
	return v
}

func (ev *evaluator) evalForeach(n *ast.ForeachLoop) (Value, error) {
	span := spanOf(n)
	if n.Setup == nil {
		return nil, ev.fatal(diagnostics.EType, "iterate loop is missing its setup", span)
	}
	elem, collName := n.Setup.Element, n.Setup.Collection

	outer := ev.path
	loopPath := outer.Push(ForeachMarker)
	ev.path = loopPath
	defer func() {
		ev.env.Delete(loopPath)
		ev.path = outer
	}()

	coll, ok := ev.env.Resolve(loopPath, collName)
	if !ok {
		ev.recoverable(diagnostics.EUndefinedVariable,
			fmt.Sprintf("undefined variable '%s'", collName), span)
		return None{}, nil
	}

	var items []Value
	switch c := coll.(type) {
	case *List:
		items = c.Snapshot()
	case Str:
		items = make([]Value, 0, utf8.RuneCountInString(c.Value))
		for _, r := range c.Value {
			items = append(items, Str{Value: string(r)})
		}
	default:
		return nil, ev.fatal(diagnostics.EType,
			fmt.Sprintf("cannot iterate over %s '%s'", TypeName(coll), collName), span)
	}

	ev.emit(TraceLoopStart, span, map[string]any{"kind": "foreach", "var": elem, "count": len(items)})
	for _, item := range items {
		if err := ev.checkIterationBudget(span); err != nil {
			return nil, err
		}
		ev.env.Define(loopPath, elem, item)
		if _, err := ev.evalBlock(n.Body); err != nil {
			return nil, err
		}
	}
	ev.emit(TraceLoopEnd, span, map[string]any{"kind": "foreach", "var": elem})
	return None{}, nil
}

// --- Built-ins ---

func (ev *evaluator) evalPrint(n *ast.Print) (Value, error) {
	v, err := ev.eval(n.Value)
	if err != nil {
		return nil, err
	}
	line := stripQuotes.Replace(Render(v))
	ev.output = append(ev.output, line)
	ev.tracker.Prints++
	if ev.opts.Stdout != nil {
		fmt.Fprintln(ev.opts.Stdout, line)
	}
	ev.emit(TracePrint, spanOf(n), map[string]any{"text": line})
	return None{}, nil
}

func (ev *evaluator) evalLen(n *ast.Len) (Value, error) {
	v, err := ev.eval(n.Value)
	if err != nil {
		return nil, err
	}
	switch val := v.(type) {
	case Str:
		return Int{Value: int64(utf8.RuneCountInString(val.Value))}, nil
	case *List:
		return Int{Value: int64(len(val.Items))}, nil
	}
	return nil, ev.fatal(diagnostics.EType,
		fmt.Sprintf("object of type %s has no len()", TypeName(v)), spanOf(n))
}

// --- Conditions ---

func (ev *evaluator) evalCondition(n *ast.Condition) (Value, error) {
	left, err := ev.eval(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := ev.eval(n.Right)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case ast.OpEq:
		return Bool{Value: DeepEqual(left, right)}, nil
	case ast.OpNe:
		return Bool{Value: !DeepEqual(left, right)}, nil
	}

	holds, ok := compareValues(n.Op, left, right)
	if !ok {
		return nil, ev.fatal(diagnostics.EType,
			fmt.Sprintf("'%s' not supported between %s and %s", n.Op, TypeName(left), TypeName(right)), spanOf(n))
	}
	return Bool{Value: holds}, nil
}

// compareValues applies an ordering operator to two numbers or two strings.
// ok is false when the operands cannot be ordered.
func compareValues(op ast.RelOp, a, b Value) (holds, ok bool) {
	if as, isStr := a.(Str); isStr {
		bs, isStr := b.(Str)
		if !isStr {
			return false, false
		}
		return ordered(op, strings.Compare(as.Value, bs.Value)), true
	}
	if ai, isInt := a.(Int); isInt {
		if bi, isInt := b.(Int); isInt {
			cmp := 0
			if ai.Value < bi.Value {
				cmp = -1
			} else if ai.Value > bi.Value {
				cmp = 1
			}
			return ordered(op, cmp), true
		}
	}
	af, aok := numeric(a)
	bf, bok := numeric(b)
	if !aok || !bok {
		return false, false
	}
	switch op {
	case ast.OpGt:
		return af > bf, true
	case ast.OpLt:
		return af < bf, true
	case ast.OpGe:
		return af >= bf, true
	case ast.OpLe:
		return af <= bf, true
	}
	return false, false
}

func ordered(op ast.RelOp, cmp int) bool {
	switch op {
	case ast.OpGt:
		return cmp > 0
	case ast.OpLt:
		return cmp < 0
	case ast.OpGe:
		return cmp >= 0
	case ast.OpLe:
		return cmp <= 0
	}
	return false
}

// --- Arithmetic ---

func (ev *evaluator) evalBinary(n *ast.BinaryExpr) (Value, error) {
	left, err := ev.eval(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := ev.eval(n.Right)
	if err != nil {
		return nil, err
	}
	span := spanOf(n)

	if n.Op == ast.OpAdd {
		switch l := left.(type) {
		case Str:
			if r, ok := right.(Str); ok {
				return Str{Value: l.Value + r.Value}, nil
			}
		case *List:
			if r, ok := right.(*List); ok {
				items := make([]Value, 0, len(l.Items)+len(r.Items))
				items = append(items, l.Items...)
				items = append(items, r.Items...)
				return NewList(items...), nil
			}
		}
	}

	_, lnum := numeric(left)
	_, rnum := numeric(right)
	if !lnum || !rnum {
		return nil, ev.fatal(diagnostics.EType,
			fmt.Sprintf("unsupported operand types for %s: %s and %s", n.Op, TypeName(left), TypeName(right)), span)
	}

	li, lInt := left.(Int)
	ri, rInt := right.(Int)
	if lInt && rInt {
		return ev.intArith(n.Op, li.Value, ri.Value, span)
	}
	lf, _ := numeric(left)
	rf, _ := numeric(right)
	return ev.floatArith(n.Op, lf, rf, span)
}

func (ev *evaluator) intArith(op ast.ArithOp, a, b int64, span *ast.Span) (Value, error) {
	switch op {
	case ast.OpAdd:
		return Int{Value: a + b}, nil
	case ast.OpSub:
		return Int{Value: a - b}, nil
	case ast.OpMul:
		return Int{Value: a * b}, nil
	case ast.OpDiv:
		if b == 0 {
			return nil, ev.fatal(diagnostics.EZeroDivision, "division by zero", span)
		}
		return Float{Value: float64(a) / float64(b)}, nil
	case ast.OpMod:
		if b == 0 {
			return nil, ev.fatal(diagnostics.EZeroDivision, "integer modulo by zero", span)
		}
		r := a % b
		if r != 0 && (r < 0) != (b < 0) {
			r += b
		}
		return Int{Value: r}, nil
	}
	return nil, ev.fatal(diagnostics.EType, fmt.Sprintf("unknown operator '%s'", op), span)
}

func (ev *evaluator) floatArith(op ast.ArithOp, a, b float64, span *ast.Span) (Value, error) {
	switch op {
	case ast.OpAdd:
		return Float{Value: a + b}, nil
	case ast.OpSub:
		return Float{Value: a - b}, nil
	case ast.OpMul:
		return Float{Value: a * b}, nil
	case ast.OpDiv:
		if b == 0 {
			return nil, ev.fatal(diagnostics.EZeroDivision, "float division by zero", span)
		}
		return Float{Value: a / b}, nil
	case ast.OpMod:
		if b == 0 {
			return nil, ev.fatal(diagnostics.EZeroDivision, "float modulo by zero", span)
		}
		r := math.Mod(a, b)
		if r != 0 && (r < 0) != (b < 0) {
			r += b
		}
		return Float{Value: r}, nil
	}
	return nil, ev.fatal(diagnostics.EType, fmt.Sprintf("unknown operator '%s'", op), span)
}

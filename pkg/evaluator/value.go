// Package evaluator implements the Quill runtime: values, the scope-path
// environment and the tree-walking evaluator.
package evaluator

import (
	"math"
	"strconv"
	"strings"

	"github.com/quill-lang/quill/pkg/ast"
)

// Value is the interface for all Quill runtime values.
// Use the sealed marker method to restrict implementations to this package.
type Value interface {
	value() // sealed marker
}

// None is the absence of a value.
type None struct{}

func (None) value() {}

// Bool is the result of a relational condition.
type Bool struct {
	Value bool
}

func (Bool) value() {}

// Int is a 64-bit signed integer. Arithmetic wraps on overflow.
type Int struct {
	Value int64
}

func (Int) value() {}

// Float is a 64-bit floating point number.
type Float struct {
	Value float64
}

func (Float) value() {}

// Str is an immutable string.
type Str struct {
	Value string
}

func (Str) value() {}

// List is an ordered, mutable sequence. Lists are shared by reference:
// every binding holding the same *List observes push and pop.
type List struct {
	Items []Value
}

func (*List) value() {}

// Func is a user-defined function: an ordered parameter list and a body.
type Func struct {
	Name   string
	Params []string
	Body   *ast.Block
}

func (*Func) value() {}

// NewNone returns the none value.
func NewNone() Value {
	return None{}
}

// NewBool creates a boolean value.
func NewBool(b bool) Value {
	return Bool{Value: b}
}

// NewInt creates an integer value.
func NewInt(n int64) Value {
	return Int{Value: n}
}

// NewFloat creates a float value.
func NewFloat(f float64) Value {
	return Float{Value: f}
}

// NewStr creates a string value.
func NewStr(s string) Value {
	return Str{Value: s}
}

// NewList creates a list value. The slice is used as-is, not copied.
func NewList(items ...Value) *List {
	return &List{Items: items}
}

// Len returns the number of elements.
func (l *List) Len() int {
	return len(l.Items)
}

// Push appends v to the end of the list.
func (l *List) Push(v Value) {
	l.Items = append(l.Items, v)
}

// Pop removes and returns the last element.
func (l *List) Pop() (Value, bool) {
	if len(l.Items) == 0 {
		return nil, false
	}
	last := l.Items[len(l.Items)-1]
	l.Items[len(l.Items)-1] = nil
	l.Items = l.Items[:len(l.Items)-1]
	return last, true
}

// At returns the element at index i; negative indexes count from the end.
func (l *List) At(i int64) (Value, bool) {
	n := int64(len(l.Items))
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return nil, false
	}
	return l.Items[i], true
}

// Snapshot returns a copy of the current elements.
func (l *List) Snapshot() []Value {
	out := make([]Value, len(l.Items))
	copy(out, l.Items)
	return out
}

// Truthiness returns the boolean interpretation of a value.
// none, false, 0, 0.0, "" and [] are falsy; everything else is truthy.
func Truthiness(v Value) bool {
	switch val := v.(type) {
	case nil, None:
		return false
	case Bool:
		return val.Value
	case Int:
		return val.Value != 0
	case Float:
		return val.Value != 0
	case Str:
		return val.Value != ""
	case *List:
		return len(val.Items) > 0
	default:
		return true
	}
}

// TypeName returns the user-facing name of a value's type.
func TypeName(v Value) string {
	switch v.(type) {
	case nil, None:
		return "none"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case Str:
		return "str"
	case *List:
		return "list"
	case *Func:
		return "function"
	default:
		return "unknown"
	}
}

// Render formats a value for output.
func Render(v Value) string {
	var sb strings.Builder
	render(&sb, v, false, nil)
	return sb.String()
}

func render(sb *strings.Builder, v Value, quoted bool, seen map[*List]bool) {
	switch val := v.(type) {
	case nil, None:
		sb.WriteString("None")
	case Bool:
		if val.Value {
			sb.WriteString("True")
		} else {
			sb.WriteString("False")
		}
	case Int:
		sb.WriteString(strconv.FormatInt(val.Value, 10))
	case Float:
		sb.WriteString(FormatFloat(val.Value))
	case Str:
		if quoted {
			sb.WriteString(quote(val.Value))
		} else {
			sb.WriteString(val.Value)
		}
	case *List:
		if seen[val] {
			sb.WriteString("[...]")
			return
		}
		if seen == nil {
			seen = make(map[*List]bool)
		}
		seen[val] = true
		sb.WriteByte('[')
		for i, item := range val.Items {
			if i > 0 {
				sb.WriteString(", ")
			}
			render(sb, item, true, seen)
		}
		sb.WriteByte(']')
		delete(seen, val)
	case *Func:
		sb.WriteString("<function ")
		sb.WriteString(val.Name)
		sb.WriteByte('>')
	}
}

func quote(s string) string {
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		return `"` + s + `"`
	}
	return "'" + s + "'"
}

// FormatFloat renders a float in its shortest round-trip form, keeping a
// trailing ".0" on integral values. Exponent notation is used below 1e-4
// and from 1e16 up.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

// numeric extracts a float64 from an Int or Float.
func numeric(v Value) (float64, bool) {
	switch val := v.(type) {
	case Int:
		return float64(val.Value), true
	case Float:
		return val.Value, true
	}
	return 0, false
}

// DeepEqual compares two values structurally. Ints and floats compare
// numerically; values of other differing kinds are unequal. A pair of lists
// already under comparison counts as equal, so self-containing lists compare
// without recursing forever.
func DeepEqual(a, b Value) bool {
	return deepEqual(a, b, nil)
}

func deepEqual(a, b Value, seen map[[2]*List]bool) bool {
	if a == nil {
		a = None{}
	}
	if b == nil {
		b = None{}
	}

	switch av := a.(type) {
	case None:
		_, ok := b.(None)
		return ok

	case Bool:
		bv, ok := b.(Bool)
		return ok && av.Value == bv.Value

	case Int:
		switch bv := b.(type) {
		case Int:
			return av.Value == bv.Value
		case Float:
			return float64(av.Value) == bv.Value
		}
		return false

	case Float:
		bf, ok := numeric(b)
		return ok && av.Value == bf

	case Str:
		bv, ok := b.(Str)
		return ok && av.Value == bv.Value

	case *List:
		bv, ok := b.(*List)
		if !ok {
			return false
		}
		if av == bv {
			return true
		}
		if len(av.Items) != len(bv.Items) {
			return false
		}
		pair := [2]*List{av, bv}
		if seen[pair] {
			return true
		}
		if seen == nil {
			seen = make(map[[2]*List]bool)
		}
		seen[pair] = true
		for i := range av.Items {
			if !deepEqual(av.Items[i], bv.Items[i], seen) {
				return false
			}
		}
		return true

	case *Func:
		bv, ok := b.(*Func)
		return ok && av == bv
	}

	return false
}

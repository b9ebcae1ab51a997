package evaluator_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quill-lang/quill/pkg/evaluator"
)

func TestTruthiness(t *testing.T) {
	tests := []struct {
		value    evaluator.Value
		expected bool
	}{
		{evaluator.NewNone(), false},
		{evaluator.NewBool(false), false},
		{evaluator.NewBool(true), true},
		{evaluator.NewInt(0), false},
		{evaluator.NewInt(-1), true},
		{evaluator.NewFloat(0), false},
		{evaluator.NewFloat(0.5), true},
		{evaluator.NewStr(""), false},
		{evaluator.NewStr("a"), true},
		{evaluator.NewList(), false},
		{evaluator.NewList(evaluator.NewInt(0)), true},
		{&evaluator.Func{Name: "f"}, true},
	}

	for i, tt := range tests {
		assert.Equal(t, tt.expected, evaluator.Truthiness(tt.value), "case %d: %s", i, evaluator.TypeName(tt.value))
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		value    evaluator.Value
		expected string
	}{
		{evaluator.NewInt(42), "42"},
		{evaluator.NewInt(-7), "-7"},
		{evaluator.NewFloat(3), "3.0"},
		{evaluator.NewFloat(2.5), "2.5"},
		{evaluator.NewFloat(0.30000000000000004), "0.30000000000000004"},
		{evaluator.NewFloat(1e16), "1e+16"},
		{evaluator.NewFloat(1234567), "1234567.0"},
		{evaluator.NewFloat(math.Inf(-1)), "-inf"},
		{evaluator.NewStr("hi"), "hi"},
		{evaluator.NewBool(true), "True"},
		{evaluator.NewBool(false), "False"},
		{evaluator.NewNone(), "None"},
		{evaluator.NewList(), "[]"},
		{evaluator.NewList(evaluator.NewInt(1), evaluator.NewStr("a"), evaluator.NewList(evaluator.NewFloat(2))), "[1, 'a', [2.0]]"},
		{evaluator.NewList(evaluator.NewStr("it's")), `["it's"]`},
		{&evaluator.Func{Name: "add"}, "<function add>"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, evaluator.Render(tt.value))
	}
}

func TestRenderCyclicList(t *testing.T) {
	xs := evaluator.NewList(evaluator.NewInt(1))
	xs.Push(xs)
	assert.Equal(t, "[1, [...]]", evaluator.Render(xs))
}

func TestDeepEqual(t *testing.T) {
	assert.True(t, evaluator.DeepEqual(evaluator.NewInt(1), evaluator.NewFloat(1)))
	assert.True(t, evaluator.DeepEqual(evaluator.NewFloat(2), evaluator.NewInt(2)))
	assert.False(t, evaluator.DeepEqual(evaluator.NewInt(1), evaluator.NewStr("1")))
	assert.True(t, evaluator.DeepEqual(evaluator.NewNone(), nil))
	assert.False(t, evaluator.DeepEqual(evaluator.NewBool(false), evaluator.NewInt(0)))

	a := evaluator.NewList(evaluator.NewInt(1), evaluator.NewList(evaluator.NewStr("x")))
	b := evaluator.NewList(evaluator.NewInt(1), evaluator.NewList(evaluator.NewStr("x")))
	assert.True(t, evaluator.DeepEqual(a, b))
	b.Push(evaluator.NewInt(3))
	assert.False(t, evaluator.DeepEqual(a, b))

	c := evaluator.NewList(evaluator.NewInt(1))
	c.Push(c)
	d := evaluator.NewList(evaluator.NewInt(1))
	d.Push(d)
	assert.True(t, evaluator.DeepEqual(c, d))
	e := evaluator.NewList(evaluator.NewInt(2))
	e.Push(e)
	assert.False(t, evaluator.DeepEqual(c, e))

	f := &evaluator.Func{Name: "f"}
	assert.True(t, evaluator.DeepEqual(f, f))
	assert.False(t, evaluator.DeepEqual(f, &evaluator.Func{Name: "f"}))
}

func TestListOps(t *testing.T) {
	xs := evaluator.NewList(evaluator.NewInt(1), evaluator.NewInt(2))
	xs.Push(evaluator.NewInt(3))
	assert.Equal(t, 3, xs.Len())

	v, ok := xs.At(-1)
	require.True(t, ok)
	assert.Equal(t, evaluator.NewInt(3), v)
	_, ok = xs.At(3)
	assert.False(t, ok)
	_, ok = xs.At(-4)
	assert.False(t, ok)

	snap := xs.Snapshot()
	v, ok = xs.Pop()
	require.True(t, ok)
	assert.Equal(t, evaluator.NewInt(3), v)
	assert.Len(t, snap, 3)
	assert.Equal(t, 2, xs.Len())

	empty := evaluator.NewList()
	_, ok = empty.Pop()
	assert.False(t, ok)
}

func TestTypeName(t *testing.T) {
	assert.Equal(t, "int", evaluator.TypeName(evaluator.NewInt(1)))
	assert.Equal(t, "float", evaluator.TypeName(evaluator.NewFloat(1)))
	assert.Equal(t, "str", evaluator.TypeName(evaluator.NewStr("")))
	assert.Equal(t, "list", evaluator.TypeName(evaluator.NewList()))
	assert.Equal(t, "none", evaluator.TypeName(nil))
	assert.Equal(t, "function", evaluator.TypeName(&evaluator.Func{}))
}

func TestValueJSON(t *testing.T) {
	v := evaluator.NewList(evaluator.NewInt(1), evaluator.NewFloat(2), evaluator.NewStr("a"), evaluator.NewNone(), evaluator.NewBool(true))
	out, err := evaluator.ValueToJSON(v)
	require.NoError(t, err)
	assert.Equal(t, `[1,2.0,"a",null,true]`, string(out))

	out, err = evaluator.ValueToJSON(evaluator.NewStr("<b>&</b>"))
	require.NoError(t, err)
	assert.Equal(t, `"<b>&</b>"`, string(out))
}

func TestSnapshotToJSONKeepsMarkup(t *testing.T) {
	env := evaluator.NewEnv()
	env.Define(nil, "tag", evaluator.NewStr("<b>"))
	env.Define(nil, "xs", evaluator.NewList(evaluator.NewStr("a>b")))
	out, err := evaluator.SnapshotToJSON(env)
	require.NoError(t, err)
	assert.Equal(t, `{"tag":"<b>","xs":["a>b"]}`, string(out))
}

func TestEnvFromJSON(t *testing.T) {
	env, err := evaluator.EnvFromJSON([]byte(`{"n": 3, "f": 1.5, "s": "hi", "xs": [1, [2.0]], "nothing": null}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"f", "n", "nothing", "s", "xs"}, env.Names())

	n, _ := env.Resolve(nil, "n")
	assert.Equal(t, evaluator.NewInt(3), n)
	f, _ := env.Resolve(nil, "f")
	assert.Equal(t, evaluator.NewFloat(1.5), f)
	xs, _ := env.Resolve(nil, "xs")
	assert.Equal(t, "[1, [2.0]]", evaluator.Render(xs))

	out, err := evaluator.SnapshotToJSON(env)
	require.NoError(t, err)
	assert.JSONEq(t, `{"n": 3, "f": 1.5, "s": "hi", "xs": [1, [2.0]], "nothing": null}`, string(out))

	_, err = evaluator.EnvFromJSON([]byte(`{"obj": {"a": 1}}`))
	assert.Error(t, err)
	_, err = evaluator.EnvFromJSON([]byte(`[1]`))
	assert.Error(t, err)
}

package evaluator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quill-lang/quill/pkg/evaluator"
)

func TestPathPushDoesNotAlias(t *testing.T) {
	base := make(evaluator.Path, 0, 8)
	base = append(base, "f")
	a := base.Push("g")
	b := base.Push("h")
	assert.Equal(t, evaluator.Path{"f", "g"}, a)
	assert.Equal(t, evaluator.Path{"f", "h"}, b)
	assert.Equal(t, evaluator.Path{"f"}, a.Parent())
	assert.Equal(t, "<root>", evaluator.Path(nil).String())
	assert.Equal(t, "f/@fori", base.Push(evaluator.ForiMarker).String())
}

func TestEnsureGetDelete(t *testing.T) {
	env := evaluator.NewEnv()
	_, ok := env.Get(evaluator.Path{"a", "b"})
	assert.False(t, ok)

	s := env.Ensure(evaluator.Path{"a", "b"})
	require.NotNil(t, s)
	got, ok := env.Get(evaluator.Path{"a", "b"})
	require.True(t, ok)
	assert.Same(t, s, got)
	_, ok = env.Get(evaluator.Path{"a"})
	assert.True(t, ok, "intermediate levels are created")

	env.Delete(evaluator.Path{"a"})
	_, ok = env.Get(evaluator.Path{"a", "b"})
	assert.False(t, ok)

	// no-ops
	env.Delete(evaluator.Path{"missing", "x"})
	env.Delete(nil)
	_, ok = env.Get(nil)
	assert.True(t, ok)
}

func TestResolveChain(t *testing.T) {
	env := evaluator.NewEnv()
	env.Define(nil, "x", evaluator.NewInt(1))
	env.Define(evaluator.Path{"f"}, "y", evaluator.NewInt(2))
	env.Define(evaluator.Path{"f", "@fori"}, "x", evaluator.NewInt(3))

	v, ok := env.Resolve(evaluator.Path{"f", "@fori"}, "x")
	require.True(t, ok)
	assert.Equal(t, evaluator.NewInt(3), v, "inner binding shadows")

	v, ok = env.Resolve(evaluator.Path{"f"}, "x")
	require.True(t, ok)
	assert.Equal(t, evaluator.NewInt(1), v)

	v, ok = env.Resolve(evaluator.Path{"f", "@fori", "missing"}, "y")
	require.True(t, ok, "lookup walks existing levels")
	assert.Equal(t, evaluator.NewInt(2), v)

	_, ok = env.Resolve(nil, "y")
	assert.False(t, ok, "outer levels never see inner bindings")
}

func TestFunctionDefinitionsAreNotVariables(t *testing.T) {
	env := evaluator.NewEnv()
	fn := &evaluator.Func{Name: "f", Params: []string{"a"}}
	env.DefineFunc(nil, "f", fn)

	_, ok := env.Resolve(nil, "f")
	assert.False(t, ok)
	assert.Empty(t, env.Snapshot())
	assert.Equal(t, []string{"f"}, env.Functions())

	got, ok := env.ResolveFunc(evaluator.Path{"g", "@foreach"}, "f")
	require.True(t, ok)
	assert.Same(t, fn, got)
}

func TestResolveFuncNearestFirst(t *testing.T) {
	env := evaluator.NewEnv()
	outer := &evaluator.Func{Name: "g"}
	inner := &evaluator.Func{Name: "g"}
	env.DefineFunc(nil, "g", outer)
	env.DefineFunc(evaluator.Path{"f"}, "g", inner)

	got, ok := env.ResolveFunc(evaluator.Path{"f"}, "g")
	require.True(t, ok)
	assert.Same(t, inner, got)

	got, ok = env.ResolveFunc(nil, "g")
	require.True(t, ok)
	assert.Same(t, outer, got)

	_, ok = env.ResolveFunc(nil, "nope")
	assert.False(t, ok)
}

func TestEndCall(t *testing.T) {
	env := evaluator.NewEnv()
	fn := &evaluator.Func{Name: "f"}
	env.DefineFunc(nil, "f", fn)

	call := evaluator.Path{"f"}
	env.Define(call, "a", evaluator.NewInt(1))
	env.Ensure(call.Push("@fori"))
	env.SetReturn(call, evaluator.NewInt(9))

	env.EndCall(call)
	s, ok := env.Get(call)
	require.True(t, ok, "scope with a definition survives")
	assert.Same(t, fn, s.Def())
	assert.Empty(t, s.Names())
	assert.Nil(t, s.Return())
	_, ok = env.Get(call.Push("@fori"))
	assert.False(t, ok)

	transient := evaluator.Path{"@foreach", "f"}
	env.Define(transient, "a", evaluator.NewInt(1))
	env.EndCall(transient)
	_, ok = env.Get(transient)
	assert.False(t, ok, "scope without a definition is deleted")
}

func TestSnapshotIsACopy(t *testing.T) {
	env := evaluator.NewEnv()
	env.Define(nil, "b", evaluator.NewInt(2))
	env.Define(nil, "a", evaluator.NewInt(1))
	env.Define(evaluator.Path{"f"}, "local", evaluator.NewInt(3))

	snap := env.Snapshot()
	assert.Len(t, snap, 2)
	delete(snap, "a")
	assert.Equal(t, []string{"a", "b"}, env.Names())
}

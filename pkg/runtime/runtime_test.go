package runtime_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quill-lang/quill/pkg/config"
	"github.com/quill-lang/quill/pkg/diagnostics"
	"github.com/quill-lang/quill/pkg/evaluator"
	"github.com/quill-lang/quill/pkg/lexer"
	"github.com/quill-lang/quill/pkg/runtime"
)

func TestRun(t *testing.T) {
	var stdout bytes.Buffer
	rt := runtime.New(runtime.WithStdout(&stdout))
	res, err := rt.Run(context.Background(), `x = 2
print(x * 21)`, "main.ql")
	require.NoError(t, err)
	assert.Equal(t, []string{"42"}, res.Output)
	assert.Equal(t, "42\n", stdout.String())
	assert.False(t, res.Terminated)
}

func TestRunParseError(t *testing.T) {
	rt := runtime.New()
	_, err := rt.Run(context.Background(), `print(`, "bad.ql")
	var derr *runtime.DiagnosticError
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, diagnostics.EParse, derr.Diagnostics[0].Code)
}

func TestRunValidatorErrorBlocks(t *testing.T) {
	rt := runtime.New()
	_, err := rt.Run(context.Background(), `function f(a, a) { return a }`, "dup.ql")
	var derr *runtime.DiagnosticError
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, diagnostics.EDupParam, derr.Diagnostics[0].Code)
	assert.Contains(t, derr.Error(), "DuplicateParameterError: ")
}

func TestRunValidatorWarningsDoNotBlock(t *testing.T) {
	var stderr bytes.Buffer
	rt := runtime.New(runtime.WithStderr(&stderr))
	res, err := rt.Run(context.Background(), `print(nope())
print("after")`, "warn.ql")
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "after"}, res.Output)
	assert.Equal(t, "UndefinedFunctionError: undefined function 'nope'\n", stderr.String())
}

func TestRunFatal(t *testing.T) {
	var stderr bytes.Buffer
	rt := runtime.New(runtime.WithStderr(&stderr))
	res, err := rt.Run(context.Background(), `print(1 / 0)`, "fatal.ql")
	var rtErr *evaluator.RuntimeError
	require.True(t, errors.As(err, &rtErr))
	assert.Equal(t, diagnostics.EZeroDivision, rtErr.Code)
	require.NotNil(t, res)
	assert.True(t, res.Terminated)
	assert.Equal(t, "ZeroDivisionError: division by zero\n", stderr.String())
}

func TestConfigDrivesExecution(t *testing.T) {
	cfg := config.Default()
	cfg.EarlyReturn = true
	cfg.MaxIterations = 2

	rt := runtime.New(runtime.WithConfig(cfg))
	res, err := rt.Run(context.Background(), `function f() {
  return 1
  print("skipped")
}
print(f())`, "early.ql")
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, res.Output)

	_, err = rt.Run(context.Background(), `for i = 0 to 5 { print(i) }`, "budget.ql")
	var rtErr *evaluator.RuntimeError
	require.True(t, errors.As(err, &rtErr))
	assert.Equal(t, diagnostics.EBudget, rtErr.Code)
}

func TestConfigTimeout(t *testing.T) {
	cfg := config.Default()
	cfg.Timeout = "1ns"
	rt := runtime.New(runtime.WithConfig(cfg))
	_, err := rt.Run(context.Background(), `for i = 0 to 100000000 { x = i }`, "slow.ql")
	var rtErr *evaluator.RuntimeError
	require.True(t, errors.As(err, &rtErr))
	assert.Equal(t, diagnostics.ECancelled, rtErr.Code)
}

func TestOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	cfg := config.Default()
	cfg.OutputFile = path

	var stdout bytes.Buffer
	rt := runtime.New(runtime.WithConfig(cfg), runtime.WithStdout(&stdout))
	_, err := rt.Run(context.Background(), `print("a")
print("b")`, "out.ql")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", string(data))
	assert.Equal(t, "a\nb\n", stdout.String())
}

func TestPersistentEnv(t *testing.T) {
	env := evaluator.NewEnv()
	rt := runtime.New(runtime.WithEnv(env))
	_, err := rt.Run(context.Background(), `function double(n) { return n * 2 }
x = 4`, "one.ql")
	require.NoError(t, err)

	res, err := rt.Run(context.Background(), `print(double(x))`, "two.ql")
	require.NoError(t, err)
	assert.Equal(t, []string{"8"}, res.Output)
	assert.Same(t, env, rt.Env())
	assert.Equal(t, []string{"double"}, env.Functions())
}

func TestFreshEnvPerRun(t *testing.T) {
	rt := runtime.New()
	_, err := rt.Run(context.Background(), `x = 4`, "one.ql")
	require.NoError(t, err)
	res, err := rt.Run(context.Background(), `print(x)`, "two.ql")
	require.NoError(t, err)
	assert.Equal(t, []string{"0"}, res.Output)
	assert.Nil(t, rt.Env())
}

func TestTraceAndRunID(t *testing.T) {
	var events []evaluator.TraceEvent
	rt := runtime.New(
		runtime.WithRunID("abc"),
		runtime.WithTrace(func(ev evaluator.TraceEvent) { events = append(events, ev) }),
	)
	_, err := rt.Run(context.Background(), `print(1)`, "t.ql")
	require.NoError(t, err)
	require.Len(t, events, 3)
	for _, ev := range events {
		assert.Equal(t, "abc", ev.RunID)
	}
	assert.Equal(t, evaluator.TracePrint, events[1].Event)
}

func TestLogger(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	rt := runtime.New(runtime.WithLogger(logger))
	_, err := rt.Run(context.Background(), `x = "a" - 1`, "log.ql")
	require.Error(t, err)
	out := logs.String()
	assert.Contains(t, out, "run start")
	assert.Contains(t, out, "run terminated")
	assert.Contains(t, out, "code=TypeError")
}

func TestCheck(t *testing.T) {
	rt := runtime.New()
	assert.Empty(t, rt.Check(`print(1)`, "ok.ql"))

	diags := rt.Check(`return 1`, "warn.ql")
	require.Len(t, diags, 1)
	assert.Equal(t, diagnostics.WReturnOutsideFunction, diags[0].Code)

	diags = rt.Check(`x = `, "bad.ql")
	require.NotEmpty(t, diags)
	assert.Equal(t, diagnostics.EParse, diags[0].Code)
}

func TestFormat(t *testing.T) {
	rt := runtime.New()
	out, err := rt.Format(`x=1+2`, "f.ql")
	require.NoError(t, err)
	assert.Equal(t, "x = 1 + 2\n", out)

	_, err = rt.Format(`x = (`, "f.ql")
	assert.Error(t, err)
}

func TestTokens(t *testing.T) {
	rt := runtime.New()
	toks, err := rt.Tokens(`print(1)`, "t.ql")
	require.NoError(t, err)
	require.Len(t, toks, 5)
	assert.Equal(t, lexer.TokPrint, toks[0].Type)
	assert.Equal(t, lexer.TokEOF, toks[4].Type)

	_, err = rt.Tokens(`x = "open`, "t.ql")
	var derr *runtime.DiagnosticError
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, diagnostics.ELex, derr.Diagnostics[0].Code)
}

func TestTree(t *testing.T) {
	rt := runtime.New()
	prog, err := rt.Tree(`print(1)`, "t.ql")
	require.NoError(t, err)
	require.Len(t, prog.Body.Nodes, 1)

	_, err = rt.Tree(`print(`, "t.ql")
	assert.Error(t, err)
}

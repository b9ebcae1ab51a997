package validator_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quill-lang/quill/pkg/diagnostics"
	"github.com/quill-lang/quill/pkg/parser"
	"github.com/quill-lang/quill/pkg/validator"
)

// mustParseAndValidate parses source and validates, returning diagnostics
// from validation only. It fatals on parse errors so test cases focus on
// validator behavior.
func mustParseAndValidate(t *testing.T, source string) []diagnostics.Diagnostic {
	t.Helper()
	prog, parseErrs := parser.Parse(source, "test.ql")
	if len(parseErrs) > 0 {
		t.Fatalf("unexpected parse error: %s", parseErrs[0].Message)
	}
	return validator.Validate(prog)
}

// assertNoDiags asserts zero diagnostics were produced.
func assertNoDiags(t *testing.T, diags []diagnostics.Diagnostic) {
	t.Helper()
	if len(diags) != 0 {
		var msgs []string
		for _, d := range diags {
			msgs = append(msgs, d.Line())
		}
		t.Errorf("expected no diagnostics, got %d:\n  %s", len(diags), strings.Join(msgs, "\n  "))
	}
}

func codes(diags []diagnostics.Diagnostic) []string {
	out := make([]string, len(diags))
	for i, d := range diags {
		out[i] = d.Code
	}
	return out
}

func TestValidProgram(t *testing.T) {
	diags := mustParseAndValidate(t, `
function fib(n) {
  if n < 2 {
    return n
  } else {
    return fib(n - 1) + fib(n - 2)
  }
}
xs = [fib(1), fib(2)]
for i = 0 to 10 { push(xs, fib(i)) }
foreach x in xs { print(x) }`)
	assertNoDiags(t, diags)
}

func TestEmptyProgram(t *testing.T) {
	assertNoDiags(t, mustParseAndValidate(t, ""))
	assert.Nil(t, validator.Validate(nil))
}

func TestDuplicateParameter(t *testing.T) {
	diags := mustParseAndValidate(t, `function f(a, b, a) { return a }`)
	assert.Equal(t, []string{diagnostics.EDupParam}, codes(diags))
	assert.Equal(t, diagnostics.SeverityError, diags[0].Severity)
	assert.Contains(t, diags[0].Message, "'a'")
	assert.True(t, diagnostics.HasErrors(diags))
}

func TestUndefinedFunction(t *testing.T) {
	diags := mustParseAndValidate(t, `print(missing(1))`)
	assert.Equal(t, []string{diagnostics.WUndefinedFunction}, codes(diags))
	assert.True(t, diags[0].IsWarning())
	assert.False(t, diagnostics.HasErrors(diags))
	if assert.NotNil(t, diags[0].Span) {
		assert.Equal(t, 1, diags[0].Span.StartLine)
	}
}

func TestCallBeforeDefinitionIsKnown(t *testing.T) {
	// Defined later in the program: the run may still fail, but the name
	// exists so the validator stays quiet.
	diags := mustParseAndValidate(t, `function main() { return helper(2) }
function helper(x) { return x * 2 }
print(main())`)
	assertNoDiags(t, diags)
}

func TestParameterCount(t *testing.T) {
	diags := mustParseAndValidate(t, `function add(a, b) { return a + b }
print(add(1))
print(add(1, 2, 3))
print(add(1, 2))`)
	assert.Equal(t, []string{diagnostics.WParameterCount, diagnostics.WParameterCount}, codes(diags))
	assert.Contains(t, diags[0].Message, "takes 2 argument(s) but 1 are given")
}

func TestParameterCountSkipsAmbiguousDefinitions(t *testing.T) {
	diags := mustParseAndValidate(t, `if mode == 1 {
  function f(a) { return a }
} else {
  function f(a, b) { return b }
}
print(f(1))`)
	assertNoDiags(t, diags)
}

func TestNestedDefinitionShadows(t *testing.T) {
	diags := mustParseAndValidate(t, `function g(a) { return a }
function outer() {
  function g(a, b) { return b }
  return g(1, 2)
}
print(g(1))
print(outer())`)
	assertNoDiags(t, diags)

	diags = mustParseAndValidate(t, `function g(a) { return a }
function outer() {
  function g(a, b) { return b }
  return g(1)
}`)
	assert.Equal(t, []string{diagnostics.WParameterCount}, codes(diags))
}

func TestNestedCallsInArguments(t *testing.T) {
	diags := mustParseAndValidate(t, `function one(a) { return a }
print(one(nope()))
x = len(one(1, 2))`)
	assert.Equal(t, []string{diagnostics.WUndefinedFunction, diagnostics.WParameterCount}, codes(diags))
}

func TestReturnOutsideFunction(t *testing.T) {
	diags := mustParseAndValidate(t, `x = 1
return x
function f() { for i = 0 to 3 { if i > 1 { return i } } }`)
	assert.Equal(t, []string{diagnostics.WReturnOutsideFunction}, codes(diags))
	if assert.NotNil(t, diags[0].Span) {
		assert.Equal(t, 2, diags[0].Span.StartLine)
	}
}

func TestChecksInsideControlFlow(t *testing.T) {
	diags := mustParseAndValidate(t, `for i = 0 to a() {
  foreach x in xs {
    if b() == 1 { print(1) } else if c() { print(2) } else { print(d()) }
  }
}`)
	assert.Equal(t, []string{
		diagnostics.WUndefinedFunction,
		diagnostics.WUndefinedFunction,
		diagnostics.WUndefinedFunction,
		diagnostics.WUndefinedFunction,
	}, codes(diags))
}

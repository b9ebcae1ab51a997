package formatter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quill-lang/quill/pkg/ast"
	"github.com/quill-lang/quill/pkg/formatter"
	"github.com/quill-lang/quill/pkg/parser"
)

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, diags := parser.Parse(src, "test.ql")
	require.Empty(t, diags)
	return prog
}

func TestFormatCanonical(t *testing.T) {
	src := `x=1;y = 2.50
names=['a' ,"b"]
function add(a,b){return a+b}
if x<y{print("lt")}else if x==y {print('eq')} else{print(x)}
for i=0 to len(names){ push(names, i*2) }
foreach n in names {print(n)}
print(add(x,-3))`

	want := `x = 1
y = 2.5
names = ["a", "b"]
function add(a, b) {
  return a + b
}
if x < y {
  print("lt")
} else if x == y {
  print("eq")
} else {
  print(x)
}
for i = 0 to len(names) {
  push(names, i * 2)
}
foreach n in names {
  print(n)
}
print(add(x, -3))
`
	assert.Equal(t, want, formatter.Format(mustParse(t, src)))
}

func TestFormatParentheses(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"x = (1 + 2) * 3", "x = (1 + 2) * 3\n"},
		{"x = 1 + 2 * 3", "x = 1 + 2 * 3\n"},
		{"x = 1 - (2 - 3)", "x = 1 - (2 - 3)\n"},
		{"x = (1 - 2) - 3", "x = 1 - 2 - 3\n"},
		{"x = 8 / (4 % 3)", "x = 8 / (4 % 3)\n"},
		{"x = -(a + b)", "x = 0 - (a + b)\n"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, tt.want, formatter.Format(mustParse(t, tt.src)))
		})
	}
}

func TestFormatStrings(t *testing.T) {
	got := formatter.Format(mustParse(t, `print('say "hi"')
print("it's")`))
	assert.Equal(t, "print('say \"hi\"')\nprint(\"it's\")\n", got)
}

func TestFormatEmptyBlocks(t *testing.T) {
	got := formatter.Format(mustParse(t, `function f() {}
xs = []`))
	assert.Equal(t, "function f() {}\nxs = []\n", got)
}

func TestFormatNestedIndent(t *testing.T) {
	got := formatter.Format(mustParse(t, `function outer(n) { for i = 0 to n { if i > 1 { print(i) } } }`))
	want := `function outer(n) {
  for i = 0 to n {
    if i > 1 {
      print(i)
    }
  }
}
`
	assert.Equal(t, want, got)
}

func TestFormatLongList(t *testing.T) {
	src := `xs = ["alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf", "hotel"]`
	want := `xs = [
  "alpha",
  "bravo",
  "charlie",
  "delta",
  "echo",
  "foxtrot",
  "golf",
  "hotel"
]
`
	assert.Equal(t, want, formatter.Format(mustParse(t, src)))
}

func TestFormatFloats(t *testing.T) {
	prog := &ast.Program{Body: &ast.Block{Nodes: []ast.Node{
		&ast.Print{Value: &ast.FloatLiteral{Value: 1e21}},
		&ast.Print{Value: &ast.FloatLiteral{Value: 0.00001}},
		&ast.Print{Value: &ast.FloatLiteral{Value: 3}},
	}}}
	assert.Equal(t, "print(1000000000000000000000.0)\nprint(0.00001)\nprint(3.0)\n", formatter.Format(prog))
}

func TestFormatRoundTrip(t *testing.T) {
	sources := []string{
		`x = 10 % 3 - -4 * (2 + y)`,
		`function fib(n) { if n < 2 { return n } else { return fib(n - 1) + fib(n - 2) } }
print(fib(10))`,
		`xs = [1, 2.5, "s", len(word), pop(ys), zs[0]]`,
		`if a { print(1) } else if b != c { print(2) }`,
		`for i = 0.5 to 10 { foreach c in word { print(c) } }`,
	}
	for _, src := range sources {
		first := mustParse(t, src)
		formatted := formatter.Format(first)
		second := mustParse(t, formatted)
		assert.Equal(t, ast.ToTuple(first), ast.ToTuple(second), "round trip of %q", src)
		assert.Equal(t, formatted, formatter.Format(second), "format is idempotent for %q", src)
	}
}

func TestFormatEmptyProgram(t *testing.T) {
	assert.Equal(t, "", formatter.Format(mustParse(t, "")))
}

func TestHasComments(t *testing.T) {
	assert.True(t, formatter.HasComments("# header\nx = 1"))
	assert.True(t, formatter.HasComments("x = 1 # trailing"))
	assert.False(t, formatter.HasComments(`x = "# not a comment"`))
	assert.False(t, formatter.HasComments(`x = 'a "# b'`))
	assert.False(t, formatter.HasComments("x = 1"))
}

func TestDump(t *testing.T) {
	got := formatter.Dump(mustParse(t, `x = 1 + 2
function f(a, b) { return a }
if x > 2 { print("big") } else { print(f(x, 1)) }
foreach c in s { push(out, c) }`))
	want := `program
  var_assign x
    +
      num 1
      num 2
  func_def f (a, b)
    block
      return
        var a
  if_stmt
    condition_>
      var x
      num 2
    block
      print
        str "big"
    else
      block
        print
          func_call f
            var x
            num 1
  foreach_loop
    foreach_loop_setup c s
    block
      push out
        var c
`
	assert.Equal(t, want, got)
}

func TestDumpCountedLoop(t *testing.T) {
	got := formatter.Dump(mustParse(t, `for i = 0 to 3 { print(i) }`))
	want := `program
  fori_loop
    fori_loop_setup
      var_assign i
        num 0
      num 3
    block
      print
        var i
`
	assert.Equal(t, want, got)
}

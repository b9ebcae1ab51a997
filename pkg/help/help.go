// Package help holds the text shown by `quill help`.
package help

import (
	"fmt"
	"sort"
	"strings"
)

// Version is the language version reported by the quick reference.
const Version = "v0.3"

// QUICKREF is printed by `quill help` without a topic.
const QUICKREF = `Quill ` + Version + ` quick reference

  x = 1 + 2 * 3              assign (ints wrap, / always yields a float)
  xs = [1, "two", 3.0]       list literal
  push(xs, 4)  pop(xs)       mutate a list in place
  xs[0]  xs[-1]  len(xs)     index, count
  print(x)                   one line per call, quotes stripped
  if x < 3 { } else if x == 3 { } else { }
  for i = 0 to 10 { }        i = 0..9, limit evaluated once
  foreach c in word { }      list elements or string characters
  function f(a, b) { return a + b }

Commands: run, check, fmt, tokens, tree, trace, repl, config, help

Topics (quill help <topic>):
  syntax       statements and expressions
  types        values, truthiness and operators
  flow         conditionals and loops
  functions    definitions, calls and return
  builtins     print, len, push, pop and indexing
  diagnostics  error kinds and exit codes
  config       .quill.yaml settings
  examples     complete programs
`

// TopicList fixes the order topics are listed in.
var TopicList = []string{"syntax", "types", "flow", "functions", "builtins", "diagnostics", "config", "examples"}

// Topics maps a topic name to its text.
var Topics = map[string]string{
	"syntax": `SYNTAX

Statements are separated by newlines or ';'. '#' starts a comment.

  name = expr                      assignment
  name = [expr, expr, ...]         list assignment
  print(expr)  push(name, expr)    built-in statements
  return expr                      store the enclosing call's result
  if cond { ... }                  see 'flow'
  function name(a, b) { ... }      see 'functions'

Expressions: integers (42), floats (4.2, a digit is required after '.'),
strings ("double" or 'single', no escapes), names, name[expr], name(args),
pop(name), len(expr), parentheses and the operators + - * / %.
A condition is an expression optionally compared with == != > < >= <=.
`,

	"types": `TYPES

  int      64-bit, wraps on overflow
  float    64-bit; printed with a trailing .0 when integral
  str      immutable text
  list     mutable, shared by every name that holds it
  bool     produced by comparisons, printed True / False
  none     result of a function that never returned

Falsy: 0, 0.0, "", [], none, False. Everything else is truthy.

  int op int      + - * %: int;  /: float
  mixed numbers   float
  str + str       concatenation
  list + list     a new list
  anything else   TypeError

== and != compare structurally (1 == 1.0). Ordering works between
numbers or between strings; other pairs are a TypeError.
`,

	"flow": `FLOW

  if cond { ... } else if cond { ... } else { ... }
      the first truthy branch runs

  for i = start to limit { ... }
      i takes start, start+1, ... while i < limit
      start and limit must be numbers; limit is evaluated once
      assigning to i in the body does not change the iteration

  foreach x in name { ... }
      name holds a list (iterated over a snapshot) or a string
      (iterated by character); an undefined name skips the loop

Variables assigned inside a loop body live in the loop's own scope and
are gone when the loop ends. Use push() to collect results.
`,

	"functions": `FUNCTIONS

  function area(w, h) {
    return w * h
  }
  print(area(3, 4))

Arguments are evaluated by the caller; the argument count must match
exactly (ParameterCountError). A call sees its parameters, its own
assignments and, failing those, the names of its callers.
Assignments inside a call are discarded when it returns.

return stores the call's result and, by default, execution of the body
continues; the last return executed wins. Set early_return: true in
.quill.yaml to leave the function at the first return.
Functions may be defined inside functions; recursion is bounded by
max_call_depth.
`,

	"builtins": `BUILTINS

  print(expr)        writes the rendered value and a newline
  len(expr)          characters of a string or elements of a list
  push(name, expr)   append to the list held by name
  pop(name)          remove and return the last element
  name[i]            element i; negative i counts from the end
`,

	"diagnostics": `DIAGNOSTICS

Recoverable (reported, the expression yields 0, the run continues):
  UndefinedVariableError  UndefinedFunctionError  IndexError

Fatal (the run stops):
  TypeError  ParameterCountError  ZeroDivisionError
  RecursionError  BudgetError  CancelledError

Static (quill check): LexError, ParseError, DuplicateParameterError,
and the warnings UndefinedFunctionWarning, ParameterCountWarning,
ReturnOutsideFunctionWarning.

Exit codes: 0 ok, 1 usage/IO/config, 2 lex/parse/check errors,
4 fatal runtime error. Use --pretty for source locations and --json for
machine-readable output.
`,

	"config": `CONFIG

Looked up in order: --config <path>, ./.quill.yaml, ~/.quill/config.yaml.

  early_return: false      return leaves the function immediately
  max_iterations: 0        loop iteration budget per run (0 = none)
  max_call_depth: 10000    nested call limit
  timeout: ""              e.g. 5s; cancels the run when exceeded
  log_level: warn          debug, info, warn, error
  log_format: text         text or json (written to stderr)
  output_file: ""          also write printed lines to this file
  history_file: ""         REPL history

quill config prints the effective settings.
`,

	"examples": `EXAMPLES

  # factorial
  function fact(n) {
    if n <= 1 { return 1 } else { return n * fact(n - 1) }
  }
  print(fact(10))

  # collect squares
  squares = []
  for i = 0 to 5 { push(squares, i * i) }
  print(squares)

  # reverse a word
  word = "quill"
  letters = []
  foreach c in word { push(letters, c) }
  for i = 0 to len(word) { print(pop(letters)) }
`,
}

// MatchTopic resolves a topic by exact name or unique prefix.
func MatchTopic(query string) (string, string, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if content, ok := Topics[query]; ok {
		return query, content, nil
	}
	var matches []string
	if query != "" {
		for _, name := range TopicList {
			if strings.HasPrefix(name, query) {
				matches = append(matches, name)
			}
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], Topics[matches[0]], nil
	case 0:
		return "", "", fmt.Errorf("unknown help topic '%s'", query)
	default:
		sort.Strings(matches)
		return "", "", fmt.Errorf("ambiguous help topic '%s': %s", query, strings.Join(matches, ", "))
	}
}

// BuiltinIndex lists the built-in operations with a one-line summary each.
func BuiltinIndex() string {
	entries := [][2]string{
		{"len", "length of a string or list"},
		{"pop", "remove and return the last element of a list"},
		{"print", "write a value followed by a newline"},
		{"push", "append a value to a list"},
		{"index", "name[i], element access with negative indexes"},
	}
	var sb strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&sb, "  %-6s %s\n", e[0], e[1])
	}
	fmt.Fprintf(&sb, "Total: %d built-ins\n", len(entries))
	return sb.String()
}

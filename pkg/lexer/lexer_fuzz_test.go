package lexer

import (
	"testing"
)

// FuzzTokenize feeds random inputs to the lexer to catch panics.
func FuzzTokenize(f *testing.F) {
	seeds := []string{
		`if else for foreach to in function print return push pop len`,
		`42 3.14 0 10.`,
		`"hello" 'world' "it's"`,
		`== != >= <= > < = + - * / %`,
		`( ) { } [ ] , ;`,
		`x foo bar_baz myVar`,
		`# this is a comment`,
		`for i = 0 to 10 { print(i) }`,
		`function add(a, b) { return a + b }`,
		``,
		"\t\n\r",
		`"unterminated`,
		`'mixed"`,
		`@#$^&`,
		"\x00",
		"\"\xff\"",
	}

	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, input string) {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("Tokenize panicked on input %q: %v", input, r)
				}
			}()
			tokens, err := Tokenize(input, "fuzz.ql")
			if err == nil && (len(tokens) == 0 || tokens[len(tokens)-1].Type != TokEOF) {
				t.Fatalf("token stream for %q does not end in EOF", input)
			}
		}()
	})
}

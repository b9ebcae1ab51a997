package lexer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// helper to tokenize and fail on error
func mustTokenize(t *testing.T, source string) []Token {
	t.Helper()
	tokens, err := Tokenize(source, "test.ql")
	require.NoError(t, err)
	require.NotEmpty(t, tokens)
	require.Equal(t, TokEOF, tokens[len(tokens)-1].Type, "last token is not EOF")
	return tokens[:len(tokens)-1]
}

func types(tokens []Token) []TokenType {
	out := make([]TokenType, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Type
	}
	return out
}

func TestEmptyInput(t *testing.T) {
	assert.Empty(t, mustTokenize(t, ""))
	assert.Empty(t, mustTokenize(t, "  \n\t # only a comment\n"))
}

func TestKeywords(t *testing.T) {
	tests := []struct {
		keyword  string
		expected TokenType
	}{
		{"if", TokIf},
		{"else", TokElse},
		{"for", TokFor},
		{"foreach", TokForeach},
		{"to", TokTo},
		{"in", TokIn},
		{"function", TokFunction},
		{"print", TokPrint},
		{"return", TokReturn},
		{"push", TokPush},
		{"pop", TokPop},
		{"len", TokLen},
	}
	for _, tt := range tests {
		t.Run(tt.keyword, func(t *testing.T) {
			tokens := mustTokenize(t, tt.keyword)
			require.Len(t, tokens, 1)
			assert.Equal(t, tt.expected, tokens[0].Type)
			assert.True(t, tokens[0].Type.IsKeyword())
		})
	}
}

func TestIdentifiers(t *testing.T) {
	tokens := mustTokenize(t, "x _tmp foo_bar2 iffy format")
	require.Len(t, tokens, 5)
	for _, tok := range tokens {
		assert.Equal(t, TokIdent, tok.Type, tok.Value)
	}
	assert.Equal(t, "iffy", tokens[3].Value)
}

func TestNumbers(t *testing.T) {
	tokens := mustTokenize(t, "42 3.14 0 10.25")
	assert.Equal(t, []TokenType{TokIntLit, TokFloatLit, TokIntLit, TokFloatLit}, types(tokens))
	assert.Equal(t, "3.14", tokens[1].Value)
	assert.Equal(t, "10.25", tokens[3].Value)
}

func TestTrailingDotIsError(t *testing.T) {
	_, err := Tokenize("7.", "test.ql")
	require.Error(t, err)
}

func TestStrings(t *testing.T) {
	tokens := mustTokenize(t, `"hello" 'world' "it's" '"q"'`)
	require.Len(t, tokens, 4)
	assert.Equal(t, "hello", tokens[0].Value)
	assert.Equal(t, "world", tokens[1].Value)
	assert.Equal(t, "it's", tokens[2].Value)
	assert.Equal(t, `"q"`, tokens[3].Value)
	for _, tok := range tokens {
		assert.Equal(t, TokStringLit, tok.Type)
	}
}

func TestUnicodeString(t *testing.T) {
	tokens := mustTokenize(t, `"héllo wörld"`)
	require.Len(t, tokens, 1)
	assert.Equal(t, "héllo wörld", tokens[0].Value)
}

func TestOperators(t *testing.T) {
	tokens := mustTokenize(t, "== != >= <= > < = + - * / %")
	assert.Equal(t, []TokenType{
		TokEqEq, TokBangEq, TokGtEq, TokLtEq, TokGt, TokLt, TokAssign,
		TokPlus, TokMinus, TokStar, TokSlash, TokPercent,
	}, types(tokens))
}

func TestPunctuation(t *testing.T) {
	tokens := mustTokenize(t, "( ) { } [ ] , ;")
	assert.Equal(t, []TokenType{
		TokLParen, TokRParen, TokLBrace, TokRBrace, TokLBracket, TokRBracket, TokComma, TokSemicolon,
	}, types(tokens))
}

func TestStatement(t *testing.T) {
	tokens := mustTokenize(t, "for i = 0 to len(xs) { print(xs[i]) } # done")
	assert.Equal(t, []TokenType{
		TokFor, TokIdent, TokAssign, TokIntLit, TokTo, TokLen, TokLParen, TokIdent, TokRParen,
		TokLBrace, TokPrint, TokLParen, TokIdent, TokLBracket, TokIdent, TokRBracket, TokRParen, TokRBrace,
	}, types(tokens))
}

func TestSpans(t *testing.T) {
	tokens := mustTokenize(t, "x = 1\n  print(x)")
	require.Len(t, tokens, 7)

	assert.Equal(t, 1, tokens[0].Span.StartLine)
	assert.Equal(t, 1, tokens[0].Span.StartCol)
	assert.Equal(t, 2, tokens[0].Span.EndCol)
	assert.Equal(t, "test.ql", tokens[0].Span.File)

	pr := tokens[3]
	assert.Equal(t, TokPrint, pr.Type)
	assert.Equal(t, 2, pr.Span.StartLine)
	assert.Equal(t, 3, pr.Span.StartCol)
	assert.Equal(t, 8, pr.Span.EndCol)
}

func TestLexErrors(t *testing.T) {
	cases := map[string]string{
		"unterminated double": `"abc`,
		"unterminated single": `'abc`,
		"mismatched quotes":   `"abc'`,
		"newline in string":   "\"ab\ncd\"",
		"bare bang":           `x ! y`,
		"unknown char":        `x = @`,
		"invalid utf8":        "\"\xff\"",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Tokenize(src, "test.ql")
			require.Error(t, err)
			var lexErr *LexError
			require.True(t, errors.As(err, &lexErr))
			assert.Equal(t, "LexError", lexErr.Diag.Code)
			assert.NotNil(t, lexErr.Diag.Span)
		})
	}
}

func TestTokenString(t *testing.T) {
	tokens := mustTokenize(t, `x = "hi"`)
	assert.Equal(t, `type=ID, value="x"`, tokens[0].String())
	assert.Equal(t, `type=ASSIGN, value="="`, tokens[1].String())
	assert.Equal(t, `type=STRING, value="hi"`, tokens[2].String())
}

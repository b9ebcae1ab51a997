// Package lexer implements the Quill tokenizer.
package lexer

import (
	"fmt"
	"unicode/utf8"

	"github.com/quill-lang/quill/pkg/ast"
	"github.com/quill-lang/quill/pkg/diagnostics"
)

// TokenType identifies the type of a lexer token.
type TokenType int

const (
	// Keywords
	TokIf TokenType = iota
	TokElse
	TokFor
	TokForeach
	TokTo
	TokIn
	TokFunction
	TokPrint
	TokReturn
	TokPush
	TokPop
	TokLen

	// Literals
	TokIntLit
	TokFloatLit
	TokStringLit

	// Identifiers
	TokIdent

	// Punctuation
	TokLBrace    // {
	TokRBrace    // }
	TokLBracket  // [
	TokRBracket  // ]
	TokLParen    // (
	TokRParen    // )
	TokComma     // ,
	TokSemicolon // ;
	TokAssign    // =

	// Comparison operators
	TokEqEq   // ==
	TokBangEq // !=
	TokGtEq   // >=
	TokLtEq   // <=
	TokGt     // >
	TokLt     // <

	// Arithmetic operators
	TokPlus    // +
	TokMinus   // -
	TokStar    // *
	TokSlash   // /
	TokPercent // %

	// Special
	TokEOF
)

var tokenNames = map[TokenType]string{
	TokIf: "IF", TokElse: "ELSE", TokFor: "FOR", TokForeach: "FOREACH", TokTo: "TO",
	TokIn: "IN", TokFunction: "FUNC", TokPrint: "PRINT", TokReturn: "RETURN",
	TokPush: "PUSH", TokPop: "POP", TokLen: "LEN",
	TokIntLit: "NUMBER", TokFloatLit: "FLOAT", TokStringLit: "STRING", TokIdent: "ID",
	TokLBrace: "{", TokRBrace: "}", TokLBracket: "[", TokRBracket: "]",
	TokLParen: "(", TokRParen: ")", TokComma: ",", TokSemicolon: ";", TokAssign: "ASSIGN",
	TokEqEq: "EQUAL", TokBangEq: "NEQUAL", TokGtEq: "GREQ", TokLtEq: "SMEQ",
	TokGt: "GRT", TokLt: "SMT",
	TokPlus: "+", TokMinus: "-", TokStar: "*", TokSlash: "/", TokPercent: "%",
	TokEOF: "EOF",
}

// String returns the token type's display name.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// IsKeyword reports whether the token type is a reserved word.
func (t TokenType) IsKeyword() bool {
	return t >= TokIf && t <= TokLen
}

// Keyword returns the reserved word for a keyword token type, or "".
func (t TokenType) Keyword() string {
	for word, typ := range keywords {
		if typ == t {
			return word
		}
	}
	return ""
}

// Token represents a single lexer token.
type Token struct {
	Type  TokenType
	Value string
	Span  ast.Span
}

// String renders the token the way `quill tokens` prints it.
func (t Token) String() string {
	return fmt.Sprintf("type=%s, value=%q", t.Type, t.Value)
}

var keywords = map[string]TokenType{
	"if":       TokIf,
	"else":     TokElse,
	"for":      TokFor,
	"foreach":  TokForeach,
	"to":       TokTo,
	"in":       TokIn,
	"function": TokFunction,
	"print":    TokPrint,
	"return":   TokReturn,
	"push":     TokPush,
	"pop":      TokPop,
	"len":      TokLen,
}

type scanner struct {
	source   string
	filename string
	pos      int
	line     int
	col      int
}

func newScanner(source, filename string) *scanner {
	return &scanner{
		source:   source,
		filename: filename,
		pos:      0,
		line:     1,
		col:      1,
	}
}

func (s *scanner) atEnd() bool {
	return s.pos >= len(s.source)
}

func (s *scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.source[s.pos]
}

func (s *scanner) peekAt(offset int) byte {
	p := s.pos + offset
	if p >= len(s.source) {
		return 0
	}
	return s.source[p]
}

func (s *scanner) advance() byte {
	ch := s.source[s.pos]
	s.pos++
	if ch == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return ch
}

func (s *scanner) span(startLine, startCol int) ast.Span {
	return ast.Span{
		File:      s.filename,
		StartLine: startLine,
		StartCol:  startCol,
		EndLine:   s.line,
		EndCol:    s.col,
	}
}

func (s *scanner) skipWhitespaceAndComments() {
	for !s.atEnd() {
		ch := s.peek()
		if ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' {
			s.advance()
		} else if ch == '#' {
			for !s.atEnd() && s.peek() != '\n' {
				s.advance()
			}
		} else {
			break
		}
	}
}

func isAlpha(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isAlphaNumeric(ch byte) bool {
	return isAlpha(ch) || isDigit(ch)
}

// scanString reads a string delimited by ' or ". The closing quote must match
// the opening one. There are no escape sequences.
func (s *scanner) scanString() (Token, error) {
	startLine, startCol := s.line, s.col
	quote := s.advance()
	start := s.pos

	for !s.atEnd() {
		ch := s.peek()
		if ch == quote {
			text := s.source[start:s.pos]
			s.advance() // closing quote
			return Token{
				Type:  TokStringLit,
				Value: text,
				Span:  s.span(startLine, startCol),
			}, nil
		}
		if ch == '\n' {
			return Token{}, s.lexError(startLine, startCol, "unterminated string literal")
		}
		r, size := utf8.DecodeRuneInString(s.source[s.pos:])
		if r == utf8.RuneError && size == 1 {
			return Token{}, s.lexError(startLine, startCol, "invalid UTF-8 character in string")
		}
		for i := 0; i < size; i++ {
			s.advance()
		}
	}
	return Token{}, s.lexError(startLine, startCol, "unterminated string literal")
}

func (s *scanner) scanNumber() Token {
	startLine, startCol := s.line, s.col
	startPos := s.pos
	isFloat := false

	for !s.atEnd() && isDigit(s.peek()) {
		s.advance()
	}

	// A fractional part needs at least one digit after the dot.
	if s.peek() == '.' && isDigit(s.peekAt(1)) {
		isFloat = true
		s.advance()
		for !s.atEnd() && isDigit(s.peek()) {
			s.advance()
		}
	}

	tokType := TokIntLit
	if isFloat {
		tokType = TokFloatLit
	}
	return Token{
		Type:  tokType,
		Value: s.source[startPos:s.pos],
		Span:  s.span(startLine, startCol),
	}
}

func (s *scanner) scanIdentOrKeyword() Token {
	startLine, startCol := s.line, s.col
	startPos := s.pos

	for !s.atEnd() && isAlphaNumeric(s.peek()) {
		s.advance()
	}

	text := s.source[startPos:s.pos]
	tokType := TokIdent
	if kw, ok := keywords[text]; ok {
		tokType = kw
	}
	return Token{
		Type:  tokType,
		Value: text,
		Span:  s.span(startLine, startCol),
	}
}

func (s *scanner) lexError(line, col int, msg string) error {
	diag := diagnostics.MakeDiag(
		diagnostics.ELex,
		msg,
		&ast.Span{File: s.filename, StartLine: line, StartCol: col, EndLine: line, EndCol: col + 1},
		"",
	)
	return &LexError{Diag: diag}
}

// LexError wraps a diagnostic for lex errors.
type LexError struct {
	Diag diagnostics.Diagnostic
}

func (e *LexError) Error() string {
	return e.Diag.Message
}

var singleCharTokens = map[byte]TokenType{
	'{': TokLBrace,
	'}': TokRBrace,
	'[': TokLBracket,
	']': TokRBracket,
	'(': TokLParen,
	')': TokRParen,
	',': TokComma,
	';': TokSemicolon,
	'+': TokPlus,
	'-': TokMinus,
	'*': TokStar,
	'/': TokSlash,
	'%': TokPercent,
}

func (s *scanner) nextToken() (Token, error) {
	s.skipWhitespaceAndComments()

	if s.atEnd() {
		return Token{
			Type:  TokEOF,
			Value: "",
			Span:  s.span(s.line, s.col),
		}, nil
	}

	ch := s.peek()
	startLine, startCol := s.line, s.col

	if typ, ok := singleCharTokens[ch]; ok {
		s.advance()
		return Token{Type: typ, Value: string(ch), Span: s.span(startLine, startCol)}, nil
	}

	// One or two character operators
	switch ch {
	case '=':
		s.advance()
		if s.peek() == '=' {
			s.advance()
			return Token{Type: TokEqEq, Value: "==", Span: s.span(startLine, startCol)}, nil
		}
		return Token{Type: TokAssign, Value: "=", Span: s.span(startLine, startCol)}, nil

	case '!':
		s.advance()
		if s.peek() == '=' {
			s.advance()
			return Token{Type: TokBangEq, Value: "!=", Span: s.span(startLine, startCol)}, nil
		}
		return Token{}, s.lexError(startLine, startCol, "unexpected character '!'")

	case '>':
		s.advance()
		if s.peek() == '=' {
			s.advance()
			return Token{Type: TokGtEq, Value: ">=", Span: s.span(startLine, startCol)}, nil
		}
		return Token{Type: TokGt, Value: ">", Span: s.span(startLine, startCol)}, nil

	case '<':
		s.advance()
		if s.peek() == '=' {
			s.advance()
			return Token{Type: TokLtEq, Value: "<=", Span: s.span(startLine, startCol)}, nil
		}
		return Token{Type: TokLt, Value: "<", Span: s.span(startLine, startCol)}, nil
	}

	if isDigit(ch) {
		return s.scanNumber(), nil
	}

	if ch == '"' || ch == '\'' {
		return s.scanString()
	}

	if isAlpha(ch) {
		return s.scanIdentOrKeyword(), nil
	}

	r, _ := utf8.DecodeRuneInString(s.source[s.pos:])
	s.advance()
	return Token{}, s.lexError(startLine, startCol, fmt.Sprintf("unexpected character '%c'", r))
}

// Tokenize breaks source code into a slice of tokens ending with TokEOF.
func Tokenize(source, filename string) ([]Token, error) {
	s := newScanner(source, filename)
	var tokens []Token

	for {
		tok, err := s.nextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokEOF {
			break
		}
	}

	return tokens, nil
}

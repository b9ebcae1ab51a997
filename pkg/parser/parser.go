// Package parser implements the Quill language parser.
package parser

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/quill-lang/quill/pkg/ast"
	"github.com/quill-lang/quill/pkg/diagnostics"
	"github.com/quill-lang/quill/pkg/lexer"
)

type parser struct {
	tokens []lexer.Token
	pos    int
	diags  []diagnostics.Diagnostic
}

// Parse tokenizes source and parses it into a syntax tree.
// Parsing stops at the first error; a nil program is returned with the diagnostics.
func Parse(source, filename string) (*ast.Program, []diagnostics.Diagnostic) {
	tokens, err := lexer.Tokenize(source, filename)
	if err != nil {
		var le *lexer.LexError
		if errors.As(err, &le) {
			return nil, []diagnostics.Diagnostic{le.Diag}
		}
		return nil, []diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.ELex, err.Error(), nil, "")}
	}

	p := &parser{tokens: tokens, pos: 0}
	prog := p.parseProgram()
	if len(p.diags) > 0 {
		return nil, p.diags
	}
	return prog, nil
}

func (p *parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *parser) peek() lexer.TokenType {
	return p.current().Type
}

func (p *parser) peekAt(offset int) lexer.TokenType {
	idx := p.pos + offset
	if idx >= len(p.tokens) {
		return lexer.TokEOF
	}
	return p.tokens[idx].Type
}

func (p *parser) advance() lexer.Token {
	tok := p.current()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *parser) expect(typ lexer.TokenType) (lexer.Token, bool) {
	tok := p.current()
	if tok.Type != typ {
		p.addError(fmt.Sprintf("expected %s, got %s", tokenName(typ), describe(tok)), &tok.Span)
		return tok, false
	}
	return p.advance(), true
}

func (p *parser) addError(msg string, span *ast.Span) {
	p.diags = append(p.diags, diagnostics.MakeDiag(diagnostics.EParse, msg, span, ""))
}

func (p *parser) spanFrom(start ast.Span) ast.Span {
	prev := start
	if p.pos > 0 {
		prev = p.tokens[p.pos-1].Span
	}
	return ast.Span{
		File:      start.File,
		StartLine: start.StartLine,
		StartCol:  start.StartCol,
		EndLine:   prev.EndLine,
		EndCol:    prev.EndCol,
	}
}

func spanFromTo(start, end ast.Span) ast.Span {
	return ast.Span{
		File:      start.File,
		StartLine: start.StartLine,
		StartCol:  start.StartCol,
		EndLine:   end.EndLine,
		EndCol:    end.EndCol,
	}
}

func tokenName(t lexer.TokenType) string {
	switch t {
	case lexer.TokIdent:
		return "identifier"
	case lexer.TokStringLit:
		return "string"
	case lexer.TokIntLit:
		return "integer"
	case lexer.TokFloatLit:
		return "float"
	case lexer.TokAssign:
		return "'='"
	case lexer.TokEOF:
		return "end of file"
	}
	if t.IsKeyword() {
		return fmt.Sprintf("'%s'", t.Keyword())
	}
	return fmt.Sprintf("'%s'", t)
}

func describe(tok lexer.Token) string {
	if tok.Type == lexer.TokEOF {
		return "end of file"
	}
	return fmt.Sprintf("'%s'", tok.Value)
}

// --- Program and blocks ---

func (p *parser) parseProgram() *ast.Program {
	startSpan := p.current().Span

	body := &ast.Block{Span: startSpan}
	for p.peek() != lexer.TokEOF {
		if p.peek() == lexer.TokSemicolon {
			p.advance()
			continue
		}
		stmt := p.parseStmt()
		if stmt == nil {
			return nil
		}
		body.Nodes = append(body.Nodes, stmt)
	}
	body.Span = p.spanFrom(startSpan)

	return &ast.Program{
		Span: body.Span,
		Body: body,
	}
}

func (p *parser) parseBlock() *ast.Block {
	start, ok := p.expect(lexer.TokLBrace)
	if !ok {
		return nil
	}
	block := &ast.Block{}
	for p.peek() != lexer.TokRBrace && p.peek() != lexer.TokEOF {
		if p.peek() == lexer.TokSemicolon {
			p.advance()
			continue
		}
		stmt := p.parseStmt()
		if stmt == nil {
			return nil
		}
		block.Nodes = append(block.Nodes, stmt)
	}
	if _, ok := p.expect(lexer.TokRBrace); !ok {
		return nil
	}
	block.Span = p.spanFrom(start.Span)
	return block
}

// --- Statements ---

func (p *parser) parseStmt() ast.Node {
	switch p.peek() {
	case lexer.TokFor:
		return p.parseFori()
	case lexer.TokForeach:
		return p.parseForeach()
	case lexer.TokIf:
		return p.parseIf()
	case lexer.TokFunction:
		return p.parseFuncDef()
	case lexer.TokPrint:
		return p.parsePrint()
	case lexer.TokReturn:
		return p.parseReturn()
	case lexer.TokPush:
		return p.parsePush()
	case lexer.TokElse:
		tok := p.current()
		p.addError("'else' without a matching 'if'", &tok.Span)
		return nil
	case lexer.TokIdent:
		if p.peekAt(1) == lexer.TokAssign {
			return p.parseAssign()
		}
	}
	return p.parseExpr()
}

func (p *parser) parseAssign() ast.Node {
	name := p.advance()
	p.advance() // consume '='

	if p.peek() == lexer.TokLBracket {
		elems, ok := p.parseListLiteral()
		if !ok {
			return nil
		}
		return &ast.ListAssign{
			Span:     p.spanFrom(name.Span),
			Name:     name.Value,
			Elements: elems,
		}
	}

	value := p.parseExpr()
	if value == nil {
		return nil
	}
	return &ast.VarAssign{
		Span:  spanFromTo(name.Span, value.NodeSpan()),
		Name:  name.Value,
		Value: value,
	}
}

// parseListLiteral parses "[" [expr ("," expr)*] "]". An empty literal yields nil.
func (p *parser) parseListLiteral() ([]ast.Node, bool) {
	p.advance() // consume '['
	var elems []ast.Node
	for p.peek() != lexer.TokRBracket {
		elem := p.parseExpr()
		if elem == nil {
			return nil, false
		}
		elems = append(elems, elem)
		if p.peek() != lexer.TokComma {
			break
		}
		p.advance()
	}
	if _, ok := p.expect(lexer.TokRBracket); !ok {
		return nil, false
	}
	return elems, true
}

func (p *parser) parseFori() ast.Node {
	start := p.advance() // consume 'for'
	name, ok := p.expect(lexer.TokIdent)
	if !ok {
		return nil
	}
	if _, ok := p.expect(lexer.TokAssign); !ok {
		return nil
	}
	initVal := p.parseExpr()
	if initVal == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokTo); !ok {
		return nil
	}
	limit := p.parseExpr()
	if limit == nil {
		return nil
	}
	setup := &ast.ForiLoopSetup{
		Span: spanFromTo(name.Span, limit.NodeSpan()),
		Init: &ast.VarAssign{
			Span:  spanFromTo(name.Span, initVal.NodeSpan()),
			Name:  name.Value,
			Value: initVal,
		},
		Limit: limit,
	}
	body := p.parseBlock()
	if body == nil {
		return nil
	}
	return &ast.ForiLoop{
		Span:  p.spanFrom(start.Span),
		Setup: setup,
		Body:  body,
	}
}

func (p *parser) parseForeach() ast.Node {
	start := p.advance() // consume 'foreach'
	elem, ok := p.expect(lexer.TokIdent)
	if !ok {
		return nil
	}
	if _, ok := p.expect(lexer.TokIn); !ok {
		return nil
	}
	coll, ok := p.expect(lexer.TokIdent)
	if !ok {
		return nil
	}
	body := p.parseBlock()
	if body == nil {
		return nil
	}
	return &ast.ForeachLoop{
		Span: p.spanFrom(start.Span),
		Setup: &ast.ForeachLoopSetup{
			Span:       spanFromTo(elem.Span, coll.Span),
			Element:    elem.Value,
			Collection: coll.Value,
		},
		Body: body,
	}
}

func (p *parser) parseIf() ast.Node {
	start := p.advance() // consume 'if'
	cond := p.parseCond()
	if cond == nil {
		return nil
	}
	body := p.parseBlock()
	if body == nil {
		return nil
	}
	stmt := &ast.If{Cond: cond, Body: body}

	for p.peek() == lexer.TokElse {
		elseTok := p.advance()
		if p.peek() == lexer.TokIf {
			p.advance()
			eiCond := p.parseCond()
			if eiCond == nil {
				return nil
			}
			eiBody := p.parseBlock()
			if eiBody == nil {
				return nil
			}
			stmt.ElseIfs = append(stmt.ElseIfs, &ast.ElseIf{
				Span: p.spanFrom(elseTok.Span),
				Cond: eiCond,
				Body: eiBody,
			})
			continue
		}
		elseBody := p.parseBlock()
		if elseBody == nil {
			return nil
		}
		stmt.Else = &ast.Else{Span: p.spanFrom(elseTok.Span), Body: elseBody}
		break
	}

	stmt.Span = p.spanFrom(start.Span)
	return stmt
}

func (p *parser) parseFuncDef() ast.Node {
	start := p.advance() // consume 'function'
	name, ok := p.expect(lexer.TokIdent)
	if !ok {
		return nil
	}
	if _, ok := p.expect(lexer.TokLParen); !ok {
		return nil
	}
	var params []string
	for p.peek() != lexer.TokRParen {
		param, ok := p.expect(lexer.TokIdent)
		if !ok {
			return nil
		}
		params = append(params, param.Value)
		if p.peek() != lexer.TokComma {
			break
		}
		p.advance()
	}
	if _, ok := p.expect(lexer.TokRParen); !ok {
		return nil
	}
	body := p.parseBlock()
	if body == nil {
		return nil
	}
	return &ast.FuncDef{
		Span:   p.spanFrom(start.Span),
		Name:   name.Value,
		Params: params,
		Body:   body,
	}
}

func (p *parser) parsePrint() ast.Node {
	start := p.advance() // consume 'print'
	value := p.parseParenExpr()
	if value == nil {
		return nil
	}
	return &ast.Print{Span: p.spanFrom(start.Span), Value: value}
}

func (p *parser) parseReturn() ast.Node {
	start := p.advance() // consume 'return'
	value := p.parseExpr()
	if value == nil {
		return nil
	}
	return &ast.Return{Span: spanFromTo(start.Span, value.NodeSpan()), Value: value}
}

func (p *parser) parsePush() ast.Node {
	start := p.advance() // consume 'push'
	if _, ok := p.expect(lexer.TokLParen); !ok {
		return nil
	}
	name, ok := p.expect(lexer.TokIdent)
	if !ok {
		return nil
	}
	if _, ok := p.expect(lexer.TokComma); !ok {
		return nil
	}
	value := p.parseExpr()
	if value == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokRParen); !ok {
		return nil
	}
	return &ast.Push{Span: p.spanFrom(start.Span), Name: name.Value, Value: value}
}

// --- Conditions and expressions ---

var relOps = map[lexer.TokenType]ast.RelOp{
	lexer.TokEqEq:   ast.OpEq,
	lexer.TokBangEq: ast.OpNe,
	lexer.TokGt:     ast.OpGt,
	lexer.TokLt:     ast.OpLt,
	lexer.TokGtEq:   ast.OpGe,
	lexer.TokLtEq:   ast.OpLe,
}

// parseCond parses expr [relop expr]. Without an operator the bare
// expression is the condition and is tested for truthiness.
func (p *parser) parseCond() ast.Node {
	left := p.parseExpr()
	if left == nil {
		return nil
	}
	op, ok := relOps[p.peek()]
	if !ok {
		return left
	}
	p.advance()
	right := p.parseExpr()
	if right == nil {
		return nil
	}
	return &ast.Condition{
		Span:  spanFromTo(left.NodeSpan(), right.NodeSpan()),
		Op:    op,
		Left:  left,
		Right: right,
	}
}

func (p *parser) parseExpr() ast.Node {
	left := p.parseTerm()
	if left == nil {
		return nil
	}

	for {
		var op ast.ArithOp
		switch p.peek() {
		case lexer.TokPlus:
			op = ast.OpAdd
		case lexer.TokMinus:
			op = ast.OpSub
		default:
			return left
		}
		p.advance()
		right := p.parseTerm()
		if right == nil {
			return nil
		}
		left = &ast.BinaryExpr{
			Span:  spanFromTo(left.NodeSpan(), right.NodeSpan()),
			Op:    op,
			Left:  left,
			Right: right,
		}
	}
}

func (p *parser) parseTerm() ast.Node {
	left := p.parseUnary()
	if left == nil {
		return nil
	}

	for {
		var op ast.ArithOp
		switch p.peek() {
		case lexer.TokStar:
			op = ast.OpMul
		case lexer.TokSlash:
			op = ast.OpDiv
		case lexer.TokPercent:
			op = ast.OpMod
		default:
			return left
		}
		p.advance()
		right := p.parseUnary()
		if right == nil {
			return nil
		}
		left = &ast.BinaryExpr{
			Span:  spanFromTo(left.NodeSpan(), right.NodeSpan()),
			Op:    op,
			Left:  left,
			Right: right,
		}
	}
}

// parseUnary folds a minus in front of a numeric literal into the literal;
// any other operand becomes 0 - operand.
func (p *parser) parseUnary() ast.Node {
	if p.peek() != lexer.TokMinus {
		return p.parsePrimary()
	}
	start := p.advance()

	switch p.peek() {
	case lexer.TokIntLit:
		tok := p.advance()
		val, err := strconv.ParseInt("-"+tok.Value, 10, 64)
		if err != nil {
			p.addError(fmt.Sprintf("integer literal -%s out of range", tok.Value), &tok.Span)
			return nil
		}
		return &ast.NumLiteral{Span: spanFromTo(start.Span, tok.Span), Value: val}
	case lexer.TokFloatLit:
		tok := p.advance()
		val, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			p.addError(fmt.Sprintf("invalid float literal -%s", tok.Value), &tok.Span)
			return nil
		}
		return &ast.FloatLiteral{Span: spanFromTo(start.Span, tok.Span), Value: -val}
	}

	operand := p.parseUnary()
	if operand == nil {
		return nil
	}
	return &ast.BinaryExpr{
		Span:  spanFromTo(start.Span, operand.NodeSpan()),
		Op:    ast.OpSub,
		Left:  &ast.NumLiteral{Span: start.Span, Value: 0},
		Right: operand,
	}
}

func (p *parser) parsePrimary() ast.Node {
	switch p.peek() {
	case lexer.TokLParen:
		return p.parseParenExpr()

	case lexer.TokIntLit:
		tok := p.advance()
		val, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			p.addError(fmt.Sprintf("integer literal %s out of range", tok.Value), &tok.Span)
			return nil
		}
		return &ast.NumLiteral{Span: tok.Span, Value: val}

	case lexer.TokFloatLit:
		tok := p.advance()
		val, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			p.addError(fmt.Sprintf("invalid float literal %s", tok.Value), &tok.Span)
			return nil
		}
		return &ast.FloatLiteral{Span: tok.Span, Value: val}

	case lexer.TokStringLit:
		tok := p.advance()
		return &ast.StrLiteral{Span: tok.Span, Value: tok.Value}

	case lexer.TokPop:
		start := p.advance()
		if _, ok := p.expect(lexer.TokLParen); !ok {
			return nil
		}
		name, ok := p.expect(lexer.TokIdent)
		if !ok {
			return nil
		}
		if _, ok := p.expect(lexer.TokRParen); !ok {
			return nil
		}
		return &ast.Pop{Span: p.spanFrom(start.Span), Name: name.Value}

	case lexer.TokLen:
		start := p.advance()
		value := p.parseParenExpr()
		if value == nil {
			return nil
		}
		return &ast.Len{Span: p.spanFrom(start.Span), Value: value}

	case lexer.TokIdent:
		return p.parseIdentExpr()

	default:
		tok := p.current()
		p.addError(fmt.Sprintf("unexpected %s", describe(tok)), &tok.Span)
		return nil
	}
}

func (p *parser) parseParenExpr() ast.Node {
	if _, ok := p.expect(lexer.TokLParen); !ok {
		return nil
	}
	expr := p.parseExpr()
	if expr == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokRParen); !ok {
		return nil
	}
	return expr
}

// parseIdentExpr parses a variable reference, an index "name[expr]" or a
// call "name(args)".
func (p *parser) parseIdentExpr() ast.Node {
	name := p.advance()

	switch p.peek() {
	case lexer.TokLBracket:
		p.advance()
		index := p.parseExpr()
		if index == nil {
			return nil
		}
		if _, ok := p.expect(lexer.TokRBracket); !ok {
			return nil
		}
		return &ast.ListIndex{Span: p.spanFrom(name.Span), Name: name.Value, Index: index}

	case lexer.TokLParen:
		p.advance()
		var args []ast.Node
		for p.peek() != lexer.TokRParen {
			arg := p.parseExpr()
			if arg == nil {
				return nil
			}
			args = append(args, arg)
			if p.peek() != lexer.TokComma {
				break
			}
			p.advance()
		}
		if _, ok := p.expect(lexer.TokRParen); !ok {
			return nil
		}
		return &ast.FuncCall{Span: p.spanFrom(name.Span), Name: name.Value, Args: args}
	}

	return &ast.Var{Span: name.Span, Name: name.Value}
}

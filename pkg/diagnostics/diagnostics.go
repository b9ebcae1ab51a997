// Package diagnostics defines Quill diagnostic types for lex, parse,
// validation and runtime errors.
package diagnostics

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/quill-lang/quill/pkg/ast"
)

// Diagnostic codes. The code doubles as the error-kind prefix of every
// diagnostic line written to the error channel.
const (
	ELex    = "LexError"
	EParse  = "ParseError"
	EIO     = "IOError"
	EConfig = "ConfigError"

	EUndefinedVariable = "UndefinedVariableError"
	EUndefinedFunction = "UndefinedFunctionError"
	EIndex             = "IndexError"
	EType              = "TypeError"
	EParameterCount    = "ParameterCountError"
	EZeroDivision      = "ZeroDivisionError"
	ERecursion         = "RecursionError"
	EBudget            = "BudgetError"
	ECancelled         = "CancelledError"

	EDupParam              = "DuplicateParameterError"
	WUndefinedFunction     = "UndefinedFunctionWarning"
	WParameterCount        = "ParameterCountWarning"
	WReturnOutsideFunction = "ReturnOutsideFunctionWarning"
)

// Severity grades a diagnostic.
type Severity string

const (
	// SeverityFatal diagnostics stop the run.
	SeverityFatal Severity = "fatal"
	// SeverityError diagnostics are reported and execution continues.
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic represents a lex, parse, validation, or runtime diagnostic.
type Diagnostic struct {
	Code     string    `json:"code"`
	Message  string    `json:"message"`
	Severity Severity  `json:"severity,omitempty"`
	Span     *ast.Span `json:"span,omitempty"`
	Hint     string    `json:"hint,omitempty"`
}

// MakeDiag creates a new error-severity Diagnostic.
func MakeDiag(code, message string, span *ast.Span, hint string) Diagnostic {
	return Diagnostic{
		Code:     code,
		Message:  message,
		Severity: SeverityError,
		Span:     span,
		Hint:     hint,
	}
}

// MakeWarning creates a new warning-severity Diagnostic.
func MakeWarning(code, message string, span *ast.Span) Diagnostic {
	return Diagnostic{Code: code, Message: message, Severity: SeverityWarning, Span: span}
}

// IsWarning reports whether the diagnostic does not block execution.
func (d Diagnostic) IsWarning() bool {
	return d.Severity == SeverityWarning
}

// Line renders the diagnostic as a single "Kind: message" line.
func (d Diagnostic) Line() string {
	return fmt.Sprintf("%s: %s", d.Code, d.Message)
}

// Style selects how diagnostics are rendered.
type Style int

const (
	StyleLine Style = iota
	StylePretty
	StyleJSON
)

// FormatDiagnostic formats a single diagnostic for display.
func FormatDiagnostic(d Diagnostic, style Style) string {
	switch style {
	case StyleJSON:
		b, _ := json.Marshal(d)
		return string(b)
	case StylePretty:
		loc := "<unknown>"
		if d.Span != nil {
			loc = fmt.Sprintf("%s:%d:%d", d.Span.File, d.Span.StartLine, d.Span.StartCol)
		}
		label := "error"
		if d.Severity == SeverityWarning {
			label = "warning"
		}
		out := fmt.Sprintf("%s[%s]: %s\n  --> %s", label, d.Code, d.Message, loc)
		if d.Hint != "" {
			out += fmt.Sprintf("\n  hint: %s", d.Hint)
		}
		return out
	}
	return d.Line()
}

// FormatDiagnostics formats a slice of diagnostics for display.
func FormatDiagnostics(diags []Diagnostic, style Style) string {
	if style == StyleJSON {
		if diags == nil {
			diags = []Diagnostic{}
		}
		b, _ := json.Marshal(diags)
		return string(b)
	}
	sep := "\n"
	if style == StylePretty {
		sep = "\n\n"
	}
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = FormatDiagnostic(d, style)
	}
	return strings.Join(parts, sep)
}

// HasErrors reports whether any diagnostic is more severe than a warning.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if !d.IsWarning() {
			return true
		}
	}
	return false
}

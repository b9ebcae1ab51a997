// Package runtime provides the top-level Quill runtime orchestrator.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/quill-lang/quill/pkg/ast"
	"github.com/quill-lang/quill/pkg/config"
	"github.com/quill-lang/quill/pkg/diagnostics"
	"github.com/quill-lang/quill/pkg/evaluator"
	"github.com/quill-lang/quill/pkg/formatter"
	"github.com/quill-lang/quill/pkg/lexer"
	"github.com/quill-lang/quill/pkg/parser"
	"github.com/quill-lang/quill/pkg/validator"
)

// Result holds the outcome of a program execution.
type Result struct {
	Env         *evaluator.Env
	Value       evaluator.Value
	Output      []string
	Diagnostics []diagnostics.Diagnostic
	Terminated  bool
	Stats       evaluator.BudgetTracker
}

// Runtime wires together all Quill components for program execution.
type Runtime struct {
	cfg    *config.Config
	stdout io.Writer
	stderr io.Writer
	trace  func(event evaluator.TraceEvent)
	logger *slog.Logger
	runID  string
	env    *evaluator.Env
}

// Option is a functional option for configuring the Runtime.
type Option func(*Runtime)

// WithConfig sets the effective configuration.
func WithConfig(cfg *config.Config) Option {
	return func(rt *Runtime) {
		if cfg != nil {
			rt.cfg = cfg
		}
	}
}

// WithStdout sets the writer that receives printed lines.
func WithStdout(w io.Writer) Option {
	return func(rt *Runtime) {
		rt.stdout = w
	}
}

// WithStderr sets the writer that receives runtime diagnostic lines.
func WithStderr(w io.Writer) Option {
	return func(rt *Runtime) {
		rt.stderr = w
	}
}

// WithTrace sets the trace callback.
func WithTrace(fn func(event evaluator.TraceEvent)) Option {
	return func(rt *Runtime) {
		rt.trace = fn
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(rt *Runtime) {
		if l != nil {
			rt.logger = l
		}
	}
}

// WithRunID sets the run ID for trace events.
func WithRunID(id string) Option {
	return func(rt *Runtime) {
		rt.runID = id
	}
}

// WithEnv makes every run start from env and leave its bindings there.
func WithEnv(env *evaluator.Env) Option {
	return func(rt *Runtime) {
		rt.env = env
	}
}

// New creates a new Runtime with the given options.
// By default the built-in configuration is used and logs are discarded.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		cfg:    config.Default(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		runID:  "cli",
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Config returns the effective configuration.
func (rt *Runtime) Config() *config.Config {
	return rt.cfg
}

// Env returns the persistent environment, or nil when each run starts fresh.
func (rt *Runtime) Env() *evaluator.Env {
	return rt.env
}

// Run parses, validates, and executes a Quill program. Validator warnings
// do not block execution.
func (rt *Runtime) Run(ctx context.Context, source, filename string) (*Result, error) {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return nil, &DiagnosticError{Diagnostics: diags}
	}

	vDiags := validator.Validate(program)
	if diagnostics.HasErrors(vDiags) {
		return nil, &DiagnosticError{Diagnostics: vDiags}
	}
	for _, d := range vDiags {
		rt.logger.Debug("validator warning", "code", d.Code, "msg", d.Message)
	}

	return rt.RunProgram(ctx, program)
}

// RunProgram executes an already parsed program. A fatal runtime error is
// returned together with the partial result.
func (rt *Runtime) RunProgram(ctx context.Context, program *ast.Program) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if d := rt.cfg.TimeoutDuration(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	stdout := rt.stdout
	if rt.cfg.OutputFile != "" {
		f, err := os.Create(rt.cfg.OutputFile)
		if err != nil {
			return nil, fmt.Errorf("output file: %w", err)
		}
		defer f.Close()
		if stdout != nil {
			stdout = io.MultiWriter(stdout, f)
		} else {
			stdout = f
		}
	}

	file := ""
	if program != nil {
		file = program.Span.File
	}
	logger := rt.logger.With("runId", rt.runID)
	logger.Debug("run start", "file", file)
	start := time.Now()

	res, err := evaluator.Execute(ctx, program, evaluator.ExecOptions{
		Env:           rt.env,
		Stdout:        stdout,
		Stderr:        rt.stderr,
		Trace:         rt.trace,
		RunID:         rt.runID,
		EarlyReturn:   rt.cfg.EarlyReturn,
		MaxIterations: rt.cfg.MaxIterations,
		MaxCallDepth:  rt.cfg.MaxCallDepth,
		Logger:        logger,
	})

	result := &Result{
		Env:         res.Env,
		Value:       res.Value,
		Output:      res.Output,
		Diagnostics: res.Diagnostics,
		Terminated:  res.Terminated,
		Stats:       res.Stats,
	}

	if err != nil {
		var rtErr *evaluator.RuntimeError
		if errors.As(err, &rtErr) {
			logger.Info("run terminated", "code", rtErr.Code, "msg", rtErr.Message,
				"elapsed", time.Since(start))
		}
		return result, err
	}
	logger.Debug("run end",
		"elapsed", time.Since(start),
		"diagnostics", len(res.Diagnostics),
		"iterations", res.Stats.Iterations,
		"calls", res.Stats.Calls)
	return result, nil
}

// Check parses and validates a Quill program without executing it.
func (rt *Runtime) Check(source, filename string) []diagnostics.Diagnostic {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return diags
	}
	return validator.Validate(program)
}

// Format parses and formats a Quill program.
func (rt *Runtime) Format(source, filename string) (string, error) {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return "", &DiagnosticError{Diagnostics: diags}
	}
	return formatter.Format(program), nil
}

// Tokens lexes a Quill program. The trailing EOF token is included.
func (rt *Runtime) Tokens(source, filename string) ([]lexer.Token, error) {
	toks, err := lexer.Tokenize(source, filename)
	if err != nil {
		var lexErr *lexer.LexError
		if errors.As(err, &lexErr) {
			return nil, &DiagnosticError{Diagnostics: []diagnostics.Diagnostic{lexErr.Diag}}
		}
		return nil, err
	}
	return toks, nil
}

// Tree parses a Quill program into its syntax tree.
func (rt *Runtime) Tree(source, filename string) (*ast.Program, error) {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return nil, &DiagnosticError{Diagnostics: diags}
	}
	return program, nil
}

// DiagnosticError wraps diagnostics as an error.
type DiagnosticError struct {
	Diagnostics []diagnostics.Diagnostic
}

func (e *DiagnosticError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = d.Line()
	}
	return strings.Join(msgs, "; ")
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/quill-lang/quill/pkg/ast"
	"github.com/quill-lang/quill/pkg/config"
	"github.com/quill-lang/quill/pkg/diagnostics"
	"github.com/quill-lang/quill/pkg/evaluator"
	"github.com/quill-lang/quill/pkg/runtime"
	"github.com/quill-lang/quill/pkg/validator"
)

const (
	promptMain = "quill> "
	promptCont = "  ...> "
)

const replHelp = `REPL commands:
  :help          show this text
  :env           list global bindings and functions
  :reset         forget every binding and function
  :load <file>   run a file in the current session
  :quit          leave (Ctrl-D works too)
Input continues on the next line while a '{', '(' or '[' is open.
`

// session is the state of one interactive session. The environment persists
// across inputs until :reset.
type session struct {
	cfg    *config.Config
	out    io.Writer
	errOut io.Writer
	logger *slog.Logger
	env    *evaluator.Env
	rt     *runtime.Runtime
}

func newSession(cfg *config.Config, out, errOut io.Writer, logger *slog.Logger) *session {
	s := &session{cfg: cfg, out: out, errOut: errOut, logger: logger}
	s.reset()
	return s
}

func (s *session) reset() {
	s.env = evaluator.NewEnv()
	s.rt = runtime.New(
		runtime.WithConfig(s.cfg),
		runtime.WithEnv(s.env),
		runtime.WithStdout(s.out),
		runtime.WithStderr(s.errOut),
		runtime.WithLogger(s.logger),
		runtime.WithRunID("repl"),
	)
}

// eval runs one input. The value of a trailing bare expression is echoed.
func (s *session) eval(ctx context.Context, source, filename string) {
	program, err := s.rt.Tree(source, filename)
	if err != nil {
		s.report(err)
		return
	}
	if diags := validator.Validate(program); diagnostics.HasErrors(diags) {
		fmt.Fprintln(s.errOut, diagnostics.FormatDiagnostics(diags, diagnostics.StyleLine))
		return
	}

	res, err := s.rt.RunProgram(ctx, program)
	if err != nil {
		var rtErr *evaluator.RuntimeError
		if !errors.As(err, &rtErr) {
			s.report(err)
		}
		return
	}

	nodes := program.Body.Nodes
	if len(nodes) == 0 || !ast.IsExpr(nodes[len(nodes)-1]) {
		return
	}
	if _, none := res.Value.(evaluator.None); none || res.Value == nil {
		return
	}
	fmt.Fprintln(s.out, evaluator.Render(res.Value))
}

func (s *session) report(err error) {
	var diagErr *runtime.DiagnosticError
	if errors.As(err, &diagErr) {
		fmt.Fprintln(s.errOut, diagnostics.FormatDiagnostics(diagErr.Diagnostics, diagnostics.StyleLine))
		return
	}
	fmt.Fprintln(s.errOut, err.Error())
}

// command handles a ':' line. It reports whether the session should end.
func (s *session) command(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case ":quit", ":q", ":exit":
		return true
	case ":help", ":h":
		fmt.Fprint(s.out, replHelp)
	case ":reset":
		s.reset()
		fmt.Fprintln(s.out, "environment cleared")
	case ":env":
		s.printEnv()
	case ":load":
		if len(fields) < 2 {
			fmt.Fprintln(s.errOut, "usage: :load <file>")
			return false
		}
		path := strings.Join(fields[1:], " ")
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(s.errOut, "IOError: cannot read file: %s\n", path)
			return false
		}
		s.eval(ctx, string(data), path)
	default:
		fmt.Fprintf(s.errOut, "unknown command %s (try :help)\n", fields[0])
	}
	return false
}

// handle runs one input under its own interrupt context, so Ctrl-C cancels
// the running program and returns to the prompt. It reports whether the
// session should end.
func (s *session) handle(trimmed, input string) bool {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if strings.HasPrefix(trimmed, ":") {
		return s.command(ctx, trimmed)
	}
	s.eval(ctx, input, "<repl>")
	return false
}

func (s *session) printEnv() {
	snap := s.env.Snapshot()
	for _, name := range s.env.Names() {
		fmt.Fprintf(s.out, "%s = %s\n", name, evaluator.Render(snap[name]))
	}
	for _, name := range s.env.Functions() {
		fmt.Fprintf(s.out, "function %s\n", name)
	}
}

// needsMore reports whether src has an unclosed bracket outside strings
// and comments.
func needsMore(src string) bool {
	depth := 0
	var quote rune
	inComment := false
	for _, r := range src {
		switch {
		case inComment:
			if r == '\n' {
				inComment = false
			}
		case quote != 0:
			if r == quote || r == '\n' {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '#':
			inComment = true
		case r == '{' || r == '(' || r == '[':
			depth++
		case r == '}' || r == ')' || r == ']':
			depth--
		}
	}
	return depth > 0
}

// readInput reads lines until the brackets balance. io.EOF ends the session;
// Ctrl-C drops the pending input.
func readInput(ln *liner.State) (string, error) {
	var buf strings.Builder
	prompt := promptMain
	for {
		line, err := ln.Prompt(prompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				return "", nil
			}
			return "", err
		}
		buf.WriteString(line)
		if !needsMore(buf.String()) {
			return buf.String(), nil
		}
		buf.WriteByte('\n')
		prompt = promptCont
	}
}

func historyPath(cfg *config.Config) string {
	if cfg.HistoryFile != "" {
		return cfg.HistoryFile
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".quill_history")
}

func (c *cli) cmdRepl(args []string) int {
	var configPath string
	for i := 0; i < len(args); i++ {
		if args[i] == "--config" {
			v, ok := takeValue(args, &i)
			if !ok {
				fmt.Fprintln(c.stderr, "error: --config requires a value")
				return exitUsage
			}
			configPath = v
		}
	}

	cfg, code := c.loadConfig(configPath)
	if code != exitOK {
		return code
	}
	logger := cfg.NewLogger(c.stderr)
	s := newSession(cfg, c.stdout, c.stderr, logger)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	hist := historyPath(cfg)
	if hist != "" {
		if f, err := os.Open(hist); err == nil {
			_, _ = ln.ReadHistory(f)
			f.Close()
		}
	}

	fmt.Fprintf(c.stdout, "Quill REPL. Type :help for commands.\n")
	for {
		input, err := readInput(ln)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Warn("read input", "err", err)
			}
			fmt.Fprintln(c.stdout)
			break
		}
		trimmed := strings.TrimSpace(input)
		if trimmed == "" {
			continue
		}
		ln.AppendHistory(input)
		if s.handle(trimmed, input) {
			break
		}
	}

	if hist != "" {
		if f, err := os.Create(hist); err == nil {
			_, _ = ln.WriteHistory(f)
			f.Close()
		} else {
			logger.Debug("write history", "path", hist, "err", err)
		}
	}
	return exitOK
}

// Command quill is the Quill interpreter CLI.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/quill-lang/quill/pkg/ast"
	"github.com/quill-lang/quill/pkg/config"
	"github.com/quill-lang/quill/pkg/diagnostics"
	"github.com/quill-lang/quill/pkg/evaluator"
	"github.com/quill-lang/quill/pkg/formatter"
	"github.com/quill-lang/quill/pkg/help"
	"github.com/quill-lang/quill/pkg/runtime"
)

// Exit codes.
const (
	exitOK      = 0
	exitUsage   = 1
	exitStatic  = 2
	exitRuntime = 4
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	c := &cli{stdin: stdin, stdout: stdout, stderr: stderr}
	if len(args) < 1 {
		fmt.Fprintln(stderr, "usage: quill <command> [options]")
		fmt.Fprintln(stderr, "commands: run, check, fmt, tokens, tree, trace, repl, config, help")
		return exitUsage
	}

	cmd := args[0]
	switch cmd {
	case "run":
		return c.cmdRun(args[1:])
	case "check":
		return c.cmdCheck(args[1:])
	case "fmt":
		return c.cmdFmt(args[1:])
	case "tokens":
		return c.cmdTokens(args[1:])
	case "tree":
		return c.cmdTree(args[1:])
	case "trace":
		return c.cmdTrace(args[1:])
	case "repl":
		return c.cmdRepl(args[1:])
	case "config":
		return c.cmdConfig(args[1:])
	case "help", "--help", "-h":
		return c.cmdHelp(args[1:])
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", cmd)
		return exitUsage
	}
}

// takeValue returns the argument following a flag, advancing i.
func takeValue(args []string, i *int) (string, bool) {
	if *i+1 >= len(args) {
		return "", false
	}
	*i++
	return args[*i], true
}

func diagStyle(pretty, jsonOut bool) diagnostics.Style {
	switch {
	case jsonOut:
		return diagnostics.StyleJSON
	case pretty:
		return diagnostics.StylePretty
	}
	return diagnostics.StyleLine
}

func (c *cli) printDiags(diags []diagnostics.Diagnostic, style diagnostics.Style) {
	fmt.Fprintln(c.stderr, diagnostics.FormatDiagnostics(diags, style))
}

func (c *cli) ioError(msg string, style diagnostics.Style) int {
	diag := diagnostics.MakeDiag(diagnostics.EIO, msg, nil, "")
	c.printDiags([]diagnostics.Diagnostic{diag}, style)
	return exitUsage
}

func (c *cli) loadConfig(path string) (*config.Config, int) {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	cfg, err := config.Load(path, cwd)
	if err != nil {
		diag := diagnostics.MakeDiag(diagnostics.EConfig, err.Error(), nil, "")
		c.printDiags([]diagnostics.Diagnostic{diag}, diagnostics.StyleLine)
		return nil, exitUsage
	}
	return cfg, exitOK
}

func (c *cli) readSource(file string, style diagnostics.Style) (string, string, int) {
	if file == "-" {
		data, err := io.ReadAll(c.stdin)
		if err != nil {
			fmt.Fprintf(c.stderr, "error reading stdin: %s\n", err)
			return "", "", exitUsage
		}
		return string(data), "<stdin>", exitOK
	}

	source, err := os.ReadFile(file)
	if err != nil {
		return "", "", c.ioError(fmt.Sprintf("cannot read file: %s", file), style)
	}
	return string(source), file, exitOK
}

func (c *cli) cmdRun(args []string) int {
	var file, configPath, tracePath, envPath string
	pretty, jsonOut, dumpEnv, treeInput, earlyReturn := false, false, false, false, false
	maxIterations := int64(-1)

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--pretty":
			pretty = true
		case "--json":
			jsonOut = true
		case "--dump-env":
			dumpEnv = true
		case "--tree":
			treeInput = true
		case "--early-return":
			earlyReturn = true
		case "--trace", "--env", "--config", "--max-iterations":
			flag := args[i]
			v, ok := takeValue(args, &i)
			if !ok {
				fmt.Fprintf(c.stderr, "error: %s requires a value\n", flag)
				return exitUsage
			}
			switch flag {
			case "--trace":
				tracePath = v
			case "--env":
				envPath = v
			case "--config":
				configPath = v
			case "--max-iterations":
				n, err := strconv.ParseInt(v, 10, 64)
				if err != nil || n < 0 {
					fmt.Fprintf(c.stderr, "error: --max-iterations expects a non-negative integer, got %q\n", v)
					return exitUsage
				}
				maxIterations = n
			}
		default:
			if args[i] == "-" || !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(c.stderr, "usage: quill run <file> [--pretty|--json] [--trace <out.jsonl>] [--env <bindings.json>] [--tree] [--dump-env] [--early-return] [--max-iterations <n>] [--config <path>]")
		return exitUsage
	}
	style := diagStyle(pretty, jsonOut)

	cfg, code := c.loadConfig(configPath)
	if code != exitOK {
		return code
	}
	if earlyReturn {
		cfg.EarlyReturn = true
	}
	if maxIterations >= 0 {
		cfg.MaxIterations = maxIterations
	}

	source, filename, code := c.readSource(file, style)
	if code != exitOK {
		return code
	}

	opts := []runtime.Option{
		runtime.WithConfig(cfg),
		runtime.WithStdout(c.stdout),
		runtime.WithLogger(cfg.NewLogger(c.stderr)),
	}
	// Line-style diagnostics stream as they happen; the other styles are
	// rendered once the run is over.
	if style == diagnostics.StyleLine {
		opts = append(opts, runtime.WithStderr(c.stderr))
	}

	if tracePath != "" {
		tf, err := os.Create(tracePath)
		if err != nil {
			return c.ioError(fmt.Sprintf("cannot create trace file: %s", tracePath), style)
		}
		defer tf.Close()
		w := bufio.NewWriter(tf)
		defer w.Flush()
		enc := json.NewEncoder(w)
		opts = append(opts,
			runtime.WithRunID(fmt.Sprintf("run-%d", time.Now().UnixNano())),
			runtime.WithTrace(func(ev evaluator.TraceEvent) { _ = enc.Encode(ev) }))
	}

	if envPath != "" {
		data, err := os.ReadFile(envPath)
		if err != nil {
			return c.ioError(fmt.Sprintf("cannot read file: %s", envPath), style)
		}
		env, err := evaluator.EnvFromJSON(data)
		if err != nil {
			diag := diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("%s: %s", envPath, err), nil, "")
			c.printDiags([]diagnostics.Diagnostic{diag}, style)
			return exitUsage
		}
		opts = append(opts, runtime.WithEnv(env))
	}

	rt := runtime.New(opts...)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var result *runtime.Result
	var execErr error
	if treeInput {
		program, err := ast.DecodeJSON([]byte(source), filename)
		if err != nil {
			diag := diagnostics.MakeDiag(diagnostics.EParse, err.Error(), nil, "")
			c.printDiags([]diagnostics.Diagnostic{diag}, style)
			return exitStatic
		}
		result, execErr = rt.RunProgram(ctx, program)
	} else {
		result, execErr = rt.Run(ctx, source, filename)
	}

	if execErr != nil {
		var diagErr *runtime.DiagnosticError
		if errors.As(execErr, &diagErr) {
			c.printDiags(diagErr.Diagnostics, style)
			return exitStatic
		}
		var rtErr *evaluator.RuntimeError
		if errors.As(execErr, &rtErr) {
			if style != diagnostics.StyleLine && result != nil {
				c.printDiags(result.Diagnostics, style)
			}
			return exitRuntime
		}
		fmt.Fprintln(c.stderr, execErr.Error())
		return exitUsage
	}

	if style != diagnostics.StyleLine && len(result.Diagnostics) > 0 {
		c.printDiags(result.Diagnostics, style)
	}

	if dumpEnv {
		data, err := evaluator.SnapshotToJSON(result.Env)
		if err != nil {
			fmt.Fprintf(c.stderr, "error serializing environment: %s\n", err)
			return exitRuntime
		}
		fmt.Fprintln(c.stdout, string(data))
	}

	return exitOK
}

func (c *cli) cmdCheck(args []string) int {
	var file string
	pretty, jsonOut := false, false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--pretty":
			pretty = true
		case "--json":
			jsonOut = true
		default:
			if args[i] == "-" || !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(c.stderr, "usage: quill check <file> [--pretty|--json]")
		return exitUsage
	}
	style := diagStyle(pretty, jsonOut)

	source, filename, code := c.readSource(file, style)
	if code != exitOK {
		return code
	}

	rt := runtime.New()
	diags := rt.Check(source, filename)
	if len(diags) > 0 {
		c.printDiags(diags, style)
		if diagnostics.HasErrors(diags) {
			return exitStatic
		}
		return exitOK
	}

	if jsonOut {
		fmt.Fprintln(c.stdout, "[]")
	} else {
		fmt.Fprintln(c.stdout, "No errors found.")
	}
	return exitOK
}

func (c *cli) cmdFmt(args []string) int {
	var file string
	write := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--write":
			write = true
		default:
			if !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(c.stderr, "usage: quill fmt <file> [--write]")
		return exitUsage
	}

	source, filename, code := c.readSource(file, diagnostics.StyleLine)
	if code != exitOK {
		return code
	}

	rt := runtime.New()
	formatted, fmtErr := rt.Format(source, filename)
	if fmtErr != nil {
		var diagErr *runtime.DiagnosticError
		if errors.As(fmtErr, &diagErr) {
			c.printDiags(diagErr.Diagnostics, diagnostics.StyleLine)
			return exitStatic
		}
		fmt.Fprintln(c.stderr, fmtErr.Error())
		return exitStatic
	}

	if formatter.HasComments(source) {
		fmt.Fprintln(c.stderr, "warning: comments are not preserved by the formatter")
	}

	if write {
		if err := os.WriteFile(file, []byte(formatted), 0o644); err != nil {
			fmt.Fprintf(c.stderr, "error writing file: %s\n", err)
			return exitUsage
		}
	} else {
		fmt.Fprint(c.stdout, formatted)
	}
	return exitOK
}

func (c *cli) cmdTokens(args []string) int {
	var file string
	for _, arg := range args {
		if arg == "-" || !strings.HasPrefix(arg, "-") {
			file = arg
		}
	}
	if file == "" {
		fmt.Fprintln(c.stderr, "usage: quill tokens <file>")
		return exitUsage
	}

	source, filename, code := c.readSource(file, diagnostics.StyleLine)
	if code != exitOK {
		return code
	}

	toks, err := runtime.New().Tokens(source, filename)
	if err != nil {
		var diagErr *runtime.DiagnosticError
		if errors.As(err, &diagErr) {
			c.printDiags(diagErr.Diagnostics, diagnostics.StyleLine)
		} else {
			fmt.Fprintln(c.stderr, err.Error())
		}
		return exitStatic
	}
	w := bufio.NewWriter(c.stdout)
	for _, tok := range toks {
		fmt.Fprintln(w, tok.String())
	}
	if err := w.Flush(); err != nil {
		return exitUsage
	}
	return exitOK
}

func (c *cli) cmdTree(args []string) int {
	var file string
	jsonOut := false
	for _, arg := range args {
		switch {
		case arg == "--json":
			jsonOut = true
		case arg == "-" || !strings.HasPrefix(arg, "-"):
			file = arg
		}
	}
	if file == "" {
		fmt.Fprintln(c.stderr, "usage: quill tree <file> [--json]")
		return exitUsage
	}

	source, filename, code := c.readSource(file, diagnostics.StyleLine)
	if code != exitOK {
		return code
	}

	program, err := runtime.New().Tree(source, filename)
	if err != nil {
		var diagErr *runtime.DiagnosticError
		if errors.As(err, &diagErr) {
			c.printDiags(diagErr.Diagnostics, diagnostics.StyleLine)
		} else {
			fmt.Fprintln(c.stderr, err.Error())
		}
		return exitStatic
	}

	if jsonOut {
		data, err := ast.EncodeJSON(program)
		if err != nil {
			fmt.Fprintf(c.stderr, "error serializing tree: %s\n", err)
			return exitUsage
		}
		fmt.Fprintln(c.stdout, string(data))
		return exitOK
	}
	fmt.Fprint(c.stdout, formatter.Dump(program))
	return exitOK
}

func (c *cli) cmdTrace(args []string) int {
	var file string
	textOutput := false

	for _, arg := range args {
		switch arg {
		case "--json":
			textOutput = false
		case "--text":
			textOutput = true
		default:
			if !strings.HasPrefix(arg, "-") {
				file = arg
			}
		}
	}

	if file == "" {
		fmt.Fprintln(c.stderr, "usage: quill trace <file.jsonl> [--json|--text]")
		return exitUsage
	}

	f, err := os.Open(file)
	if err != nil {
		return c.ioError(fmt.Sprintf("cannot read file: %s", file), diagnostics.StyleLine)
	}
	defer f.Close()

	summary := computeTraceSummary(f)

	if textOutput {
		printTraceSummaryText(c.stdout, summary)
	} else {
		b, _ := json.Marshal(summary)
		fmt.Fprintln(c.stdout, string(b))
	}
	return exitOK
}

func (c *cli) cmdHelp(args []string) int {
	showIndex := false
	topic := ""
	for _, arg := range args {
		if arg == "--index" {
			showIndex = true
		} else if !strings.HasPrefix(arg, "-") {
			topic = arg
		}
	}

	if showIndex {
		if topic != "" && topic != "builtins" {
			fmt.Fprintln(c.stderr, "error: --index is only supported for the builtins topic")
			return exitUsage
		}
		fmt.Fprint(c.stdout, help.BuiltinIndex())
		return exitOK
	}

	if topic == "" {
		fmt.Fprint(c.stdout, help.QUICKREF)
		return exitOK
	}

	_, content, err := help.MatchTopic(topic)
	if err != nil {
		fmt.Fprintf(c.stderr, "%s\nAvailable topics: %s\n", err, strings.Join(help.TopicList, ", "))
		return exitUsage
	}
	fmt.Fprint(c.stdout, content)
	return exitOK
}

func (c *cli) cmdConfig(args []string) int {
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
	data, err := cfg.Marshal()
	if err != nil {
		fmt.Fprintf(c.stderr, "error serializing config: %s\n", err)
		return exitUsage
	}
	source := cfg.Source
	if source == "" {
		source = "defaults"
	}
	fmt.Fprintf(c.stdout, "# source: %s\n%s", source, data)
	return exitOK
}

// TraceSummary aggregates an NDJSON trace written by `quill run --trace`.
type TraceSummary struct {
	RunID       string         `json:"runId"`
	TotalEvents int            `json:"totalEvents"`
	FnCalls     int            `json:"fnCalls"`
	CallsByName map[string]int `json:"callsByName"`
	Loops       int            `json:"loops"`
	Prints      int            `json:"prints"`
	Errors      int            `json:"errors"`
	Terminated  bool           `json:"terminated"`
	StartTime   string         `json:"startTime,omitempty"`
	EndTime     string         `json:"endTime,omitempty"`
	DurationMs  float64        `json:"durationMs"`
}

func computeTraceSummary(r io.Reader) *TraceSummary {
	summary := &TraceSummary{
		CallsByName: make(map[string]int),
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var event evaluator.TraceEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue // skip invalid lines
		}

		summary.TotalEvents++
		if summary.RunID == "" {
			summary.RunID = event.RunID
		}

		switch event.Event {
		case evaluator.TraceRunStart:
			if summary.StartTime == "" {
				summary.StartTime = event.Timestamp
			}
		case evaluator.TraceRunEnd:
			summary.EndTime = event.Timestamp
		case evaluator.TraceFnCallStart:
			summary.FnCalls++
			if name, ok := event.Data["fn"].(string); ok {
				summary.CallsByName[name]++
			}
		case evaluator.TraceLoopStart:
			summary.Loops++
		case evaluator.TracePrint:
			summary.Prints++
		case evaluator.TraceError:
			summary.Errors++
			if fatal, ok := event.Data["fatal"].(bool); ok && fatal {
				summary.Terminated = true
			}
		}
	}

	if summary.StartTime != "" && summary.EndTime != "" {
		start, err1 := parseTime(summary.StartTime)
		end, err2 := parseTime(summary.EndTime)
		if err1 == nil && err2 == nil {
			summary.DurationMs = float64(end.Sub(start).Microseconds()) / 1000
		}
	}

	return summary
}

func printTraceSummaryText(w io.Writer, s *TraceSummary) {
	fmt.Fprintf(w, "Run: %s\n", s.RunID)
	fmt.Fprintf(w, "Events: %d\n", s.TotalEvents)
	fmt.Fprintf(w, "Calls: %d\n", s.FnCalls)
	names := make([]string, 0, len(s.CallsByName))
	for name := range s.CallsByName {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s: %d\n", name, s.CallsByName[name])
	}
	fmt.Fprintf(w, "Loops: %d\n", s.Loops)
	fmt.Fprintf(w, "Prints: %d\n", s.Prints)
	fmt.Fprintf(w, "Errors: %d\n", s.Errors)
	if s.Terminated {
		fmt.Fprintln(w, "Terminated: yes")
	}
	if s.DurationMs > 0 {
		fmt.Fprintf(w, "Duration: %.3fms\n", s.DurationMs)
	}
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("cannot parse time: %s", s)
}

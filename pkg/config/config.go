// Package config loads Quill settings from YAML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the project-level configuration file looked up in the
// working directory.
const FileName = ".quill.yaml"

// Config holds the effective settings for the CLI, the runtime and the REPL.
type Config struct {
	EarlyReturn   bool   `yaml:"early_return"`
	MaxIterations int64  `yaml:"max_iterations"`
	MaxCallDepth  int    `yaml:"max_call_depth"`
	Timeout       string `yaml:"timeout,omitempty"`
	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`
	OutputFile    string `yaml:"output_file,omitempty"`
	HistoryFile   string `yaml:"history_file,omitempty"`

	// Source is the file the settings came from; empty for defaults.
	Source string `yaml:"-"`
}

// Default returns the built-in settings used when no file is found.
func Default() *Config {
	return &Config{
		MaxCallDepth: 10000,
		LogLevel:     "warn",
		LogFormat:    "text",
	}
}

// ValidationError aggregates configuration problems.
type ValidationError struct {
	Path   string
	Issues []string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("config: invalid settings")
	if e.Path != "" {
		b.WriteString(" in ")
		b.WriteString(e.Path)
	}
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

// Load resolves the configuration. Precedence: explicit path (must exist)
// → ./.quill.yaml in dir → ~/.quill/config.yaml → defaults.
func Load(explicit, dir string) (*Config, error) {
	if explicit != "" {
		return LoadFile(explicit)
	}

	projectPath := filepath.Join(dir, FileName)
	if fileExists(projectPath) {
		return LoadFile(projectPath)
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		userPath := filepath.Join(homeDir, ".quill", "config.yaml")
		if fileExists(userPath) {
			return LoadFile(userPath)
		}
	}

	return Default(), nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// LoadFile reads one YAML file over the defaults. Unknown keys are rejected.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			verr.Path = path
			return nil, verr
		}
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Source = path
	return cfg, nil
}

// Parse decodes YAML settings over the defaults and validates them.
// An empty document yields the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var issues []string
	if c.MaxIterations < 0 {
		issues = append(issues, "max_iterations must not be negative")
	}
	if c.MaxCallDepth < 0 {
		issues = append(issues, "max_call_depth must not be negative")
	}
	if _, ok := levels[strings.ToLower(c.LogLevel)]; !ok {
		issues = append(issues, fmt.Sprintf("log_level %q is not one of debug, info, warn, error", c.LogLevel))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		issues = append(issues, fmt.Sprintf("log_format %q is not one of text, json", c.LogFormat))
	}
	if c.Timeout != "" {
		if d, err := time.ParseDuration(c.Timeout); err != nil || d < 0 {
			issues = append(issues, fmt.Sprintf("timeout %q is not a valid duration", c.Timeout))
		}
	}
	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Level returns the slog level for LogLevel, warn when unset.
func (c *Config) Level() slog.Level {
	if l, ok := levels[strings.ToLower(c.LogLevel)]; ok {
		return l
	}
	return slog.LevelWarn
}

// TimeoutDuration returns the run timeout; zero means none.
func (c *Config) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// NewLogger builds a slog logger writing to w in the configured format.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.Level()}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Marshal renders the settings as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

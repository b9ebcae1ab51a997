// Package testutil provides shared test helpers for Quill Go tests.
package testutil

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/quill-lang/quill/pkg/config"
)

// ScenariosDir is the scenario directory relative to the module root.
const ScenariosDir = "testdata/scenarios"

// Suite is one scenario file: a named group of cases.
type Suite struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Cases       []Case `yaml:"cases"`
}

// Case is a single program with its expected outcome.
type Case struct {
	Name    string         `yaml:"name"`
	Command string         `yaml:"command,omitempty"` // run (default) or check
	Source  string         `yaml:"source"`
	Config  map[string]any `yaml:"config,omitempty"`
	Env     map[string]any `yaml:"env,omitempty"` // initial root bindings
	Skip    string         `yaml:"skip,omitempty"`
	Expect  Expect         `yaml:"expect"`
}

// Expect describes what a case must produce. Unset fields are not checked.
type Expect struct {
	Exit           int            `yaml:"exit"`
	Stdout         *string        `yaml:"stdout,omitempty"`
	Stderr         *string        `yaml:"stderr,omitempty"`
	StderrContains []string       `yaml:"stderr_contains,omitempty"`
	Codes          []string       `yaml:"codes,omitempty"`
	Env            map[string]any `yaml:"env,omitempty"` // subset of the final root bindings
}

// LoadedCase is a case together with the suite and file it came from.
type LoadedCase struct {
	File  string
	Suite string
	Case  Case
}

// ID names the case for t.Run.
func (lc LoadedCase) ID() string {
	return lc.Suite + "/" + lc.Case.Name
}

// CommandName returns the command a case exercises.
func (c Case) CommandName() string {
	if c.Command == "" {
		return "run"
	}
	return c.Command
}

// Settings builds the effective configuration for a case by running its
// config mapping through the regular config parser.
func (c Case) Settings() (*config.Config, error) {
	if len(c.Config) == 0 {
		return config.Default(), nil
	}
	data, err := yaml.Marshal(c.Config)
	if err != nil {
		return nil, err
	}
	return config.Parse(data)
}

// LoadSuite decodes one scenario file. Unknown keys are rejected.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var s Suite
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = filepath.Base(path[:len(path)-len(filepath.Ext(path))])
	}
	for i, c := range s.Cases {
		if c.Name == "" {
			return nil, fmt.Errorf("%s: case %d has no name", path, i)
		}
		switch c.CommandName() {
		case "run", "check":
		default:
			return nil, fmt.Errorf("%s: case %s: unknown command %q", path, c.Name, c.Command)
		}
	}
	return &s, nil
}

// LoadAll walks root and loads every .yaml file, in path order.
func LoadAll(root string) ([]LoadedCase, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".yaml" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	var loaded []LoadedCase
	for _, path := range paths {
		suite, err := LoadSuite(path)
		if err != nil {
			return nil, err
		}
		rel, _ := filepath.Rel(root, path)
		for _, c := range suite.Cases {
			loaded = append(loaded, LoadedCase{File: rel, Suite: suite.Name, Case: c})
		}
	}
	return loaded, nil
}

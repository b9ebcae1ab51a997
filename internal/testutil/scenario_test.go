package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSuite(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "suite.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSuite(t *testing.T) {
	path := writeSuite(t, `
name: demo
cases:
  - name: hello
    source: print("hi")
    config:
      early_return: true
    expect:
      stdout: "hi\n"
  - name: checked
    command: check
    source: return 1
    expect:
      codes: [ReturnOutsideFunctionWarning]
`)
	s, err := LoadSuite(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", s.Name)
	require.Len(t, s.Cases, 2)
	assert.Equal(t, "run", s.Cases[0].CommandName())
	require.NotNil(t, s.Cases[0].Expect.Stdout)
	assert.Equal(t, "hi\n", *s.Cases[0].Expect.Stdout)
	assert.Nil(t, s.Cases[1].Expect.Stdout)

	cfg, err := s.Cases[0].Settings()
	require.NoError(t, err)
	assert.True(t, cfg.EarlyReturn)
}

func TestLoadSuiteRejects(t *testing.T) {
	tests := map[string]string{
		"unknown key":     "cases:\n  - name: a\n    sorce: x\n",
		"missing name":    "cases:\n  - source: x\n",
		"unknown command": "cases:\n  - name: a\n    command: fly\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadSuite(writeSuite(t, content))
			assert.Error(t, err)
		})
	}
}

func TestSettingsRejectsBadConfig(t *testing.T) {
	c := Case{Name: "a", Config: map[string]any{"log_format": "xml"}}
	_, err := c.Settings()
	assert.Error(t, err)
}

func TestLoadAllScenarios(t *testing.T) {
	cases, err := LoadAll(filepath.Join("..", "..", ScenariosDir))
	require.NoError(t, err)
	assert.NotEmpty(t, cases)
	seen := map[string]bool{}
	for _, c := range cases {
		assert.False(t, seen[c.ID()], "duplicate case %s", c.ID())
		seen[c.ID()] = true
	}
}

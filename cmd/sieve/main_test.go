package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testRules = `routes:
  - id: 0
    name: default
    patterns: ["legacy"]
  - id: 1
    name: admin-api
    patterns: ["DROP TABLE", "rm -rf"]
  - id: 2
    name: public
    patterns: []
`

// writeRules writes content to a rule file in a temporary directory.
func writeRules(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "routes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// restore resets a flag variable when the test ends.
func restore[T any](t *testing.T, p *T) {
	t.Helper()
	saved := *p
	t.Cleanup(func() { *p = saved })
}

func TestRootCommand_Subcommands(t *testing.T) {
	for _, name := range []string{"serve", "check", "encode", "routes", "history", "version"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		require.Equal(t, name, cmd.Name())
	}
}

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runEncodeWith(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	err := runEncode(cmd, args)
	return strings.TrimSpace(buf.String()), err
}

func TestRunEncode_Patterns(t *testing.T) {
	out, err := runEncodeWith(t, "DROP TABLE", "rm -rf")
	require.NoError(t, err)
	assert.Equal(t, "WyJEUk9QIFRBQkxFIiwicm0gLXJmIl0=", out)
}

func TestRunEncode_NoPatterns(t *testing.T) {
	out, err := runEncodeWith(t)
	require.NoError(t, err)
	assert.Equal(t, "W10=", out)
}

func TestRunEncode_FromRules(t *testing.T) {
	restore(t, &encodeRulesPath)
	restore(t, &encodeRoute)
	encodeRulesPath = writeRules(t, testRules)
	encodeRoute = 1

	out, err := runEncodeWith(t)
	require.NoError(t, err)
	assert.Equal(t, "WyJEUk9QIFRBQkxFIiwicm0gLXJmIl0=", out)

	encodeRoute = 9
	_, err = runEncodeWith(t)
	assert.ErrorContains(t, err, "route 9 not found")

	encodeRoute = 1
	_, err = runEncodeWith(t, "extra")
	assert.Error(t, err)
}

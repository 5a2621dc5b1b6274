// Package main provides end-to-end tests for the leapdplyr CLI.
package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapdplyr/internal/cli"
	"github.com/leapstack-labs/leapdplyr/internal/cli/testutil"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version", "--history=")
	require.NoError(t, err)
	assert.Contains(t, out, "leapdplyr v")
	assert.Contains(t, out, "dplyr engine v")
	assert.Contains(t, out, "duckdb")
	assert.Contains(t, out, "postgres")
}

func TestHelpCommand(t *testing.T) {
	out, err := run(t, "--help")
	require.NoError(t, err)
	for _, want := range []string{"transpile", "query", "repl", "check", "history", "version"} {
		assert.Contains(t, out, want)
	}
}

func TestTranspileCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    []string
		wantErr string
	}{
		{
			name: "whole statement",
			args: []string{"orders %>% filter(amount > 10) %>% select(id)"},
			want: []string{"SELECT id FROM orders WHERE amount > 10"},
		},
		{
			name: "embedded",
			args: []string{"SELECT count(*) FROM (| orders %>% head(2) |) o"},
			want: []string{"SELECT count(*) FROM (SELECT * FROM orders LIMIT 2) o"},
		},
		{
			name: "not a pipeline",
			args: []string{"SELECT 1"},
			want: []string{"SELECT 1"},
		},
		{
			name:    "security rejection",
			args:    []string{"orders %>% filter(system('ls'))"},
			wantErr: "[SecurityRejected]",
		},
		{
			name:    "no input",
			args:    nil,
			wantErr: "nothing to transpile",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"transpile", "--history="}, tt.args...)
			out, err := run(t, args...)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			for _, want := range tt.want {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestQueryCommand(t *testing.T) {
	cfgPath := testutil.SetupTestProject(t)

	out, err := run(t, "query", "--config", cfgPath, "--format", "csv",
		"orders %>% filter(amount > 10) %>% select(id) %>% arrange(id)")
	require.NoError(t, err)
	assert.Contains(t, out, "id\n2\n3\n")

	out, err = run(t, "query", "--config", cfgPath, "--format", "json",
		"orders %>% count(region) %>% arrange(region)")
	require.NoError(t, err)
	testutil.AssertNoANSI(t, out)
	assert.Contains(t, out, `"region": "north"`)
	assert.Contains(t, out, `"n": 2`)

	_, err = run(t, "query", "--config", cfgPath, "orders %>% pivot_longer(x)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[UnsupportedOperation]")

	out, err = run(t, "history", "--config", cfgPath, "--stats")
	require.NoError(t, err)
	assert.Contains(t, out, "OK")
	assert.Contains(t, out, "UnsupportedOperation")

	out, err = run(t, "history", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "orders %>% pivot_longer(x)")
}

func TestCheckCommand(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.dplyr")
	bad := filepath.Join(dir, "bad.dplyr")
	plain := filepath.Join(dir, "plain.sql")
	require.NoError(t, os.WriteFile(good, []byte("orders %>% head(3);\n"), 0600))
	require.NoError(t, os.WriteFile(bad, []byte("orders %>% filter(\n"), 0600))
	require.NoError(t, os.WriteFile(plain, []byte("SELECT 1;\n"), 0600))

	out, err := run(t, "check", "--history=", good, bad, plain, filepath.Join(dir, "missing.dplyr"))
	require.Error(t, err)
	assert.Equal(t, "2 of 4 files failed", err.Error())

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "ok    "+good, lines[0])
	assert.Equal(t, "FAIL  "+bad+": SyntaxError", lines[1])
	assert.Equal(t, "skip  "+plain+" (no pipeline)", lines[2])
	assert.Contains(t, lines[3], "NullOrMalformedInput")

	_, err = run(t, "check", "--history=", good)
	assert.NoError(t, err)
}

func TestInvalidConfig(t *testing.T) {
	_, err := run(t, "transpile", "--history=", "--log-level", "loud", "t %>% head()")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"testing"
)

// OrdersCSV is the seed loaded by SetupTestProject as table "orders".
const OrdersCSV = `id,region,amount
1,north,5
2,south,20
3,north,30
`

// SetupTestProject creates a temporary project whose config loads OrdersCSV
// into an in-memory DuckDB and keeps history next to the config file.
// Returns the config file path.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	seedsDir := filepath.Join(tmpDir, "seeds")
	if err := os.MkdirAll(seedsDir, 0750); err != nil {
		t.Fatalf("failed to create directory %s: %v", seedsDir, err)
	}

	csvPath := filepath.Join(seedsDir, "orders.csv")
	if err := os.WriteFile(csvPath, []byte(OrdersCSV), 0600); err != nil {
		t.Fatalf("failed to create orders.csv: %v", err)
	}

	cfg := fmt.Sprintf(`host:
  type: duckdb
  params:
    tables:
      orders: %q
history:
  path: .leapdplyr/history.db
`, csvPath)
	cfgPath := filepath.Join(tmpDir, "leapdplyr.yaml")
	if err := os.WriteFile(cfgPath, []byte(cfg), 0600); err != nil {
		t.Fatalf("failed to create leapdplyr.yaml: %v", err)
	}
	return cfgPath
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// Package core defines the shared language of the leapdplyr system.
//
// This package contains:
//   - The error taxonomy (Kind, Error) shared by every pipeline stage
//   - Transpiler options and their limits
//   - Host engine data shapes (HostConfig, Column, Schema, Rows)
//   - FragmentContext, the unit carried through transpilation and diagnostics
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core

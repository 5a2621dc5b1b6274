package duckdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	tests := []struct {
		name    string
		input   map[string]any
		want    *Params
		wantErr bool
	}{
		{
			name:  "nil params returns empty struct",
			input: nil,
			want:  &Params{},
		},
		{
			name:  "empty map returns empty struct",
			input: map[string]any{},
			want:  &Params{},
		},
		{
			name: "extensions only",
			input: map[string]any{
				"extensions": []any{"httpfs", "json"},
			},
			want: &Params{Extensions: []string{"httpfs", "json"}},
		},
		{
			name: "settings are weakly typed",
			input: map[string]any{
				"settings": map[string]any{
					"memory_limit": "4GB",
					"threads":      4,
				},
			},
			want: &Params{Settings: map[string]string{"memory_limit": "4GB", "threads": "4"}},
		},
		{
			name: "tables",
			input: map[string]any{
				"tables": map[string]any{"orders": "data/orders.csv"},
			},
			want: &Params{Tables: map[string]string{"orders": "data/orders.csv"}},
		},
		{
			name:    "unknown key is rejected",
			input:   map[string]any{"secrets": []any{}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseParams(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

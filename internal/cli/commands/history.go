package commands

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int
	var stats, wipe bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded query outcomes",
		Long: `Show the outcome of recent queries run with query or repl.

History is stored in the SQLite database at history.path and is disabled when
the path is empty.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd, true)
			if err != nil {
				return err
			}
			defer cleanup()
			if cc.History == nil {
				return errors.New("history is disabled (set history.path or DPLYR_HISTORY_PATH)")
			}

			ctx := cmd.Context()
			w := cmd.OutOrStdout()
			switch {
			case wipe:
				if err := cc.History.Clear(ctx); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(w, "history cleared")
			case stats:
				counts, err := cc.History.CountByKind(ctx)
				if err != nil {
					return err
				}
				kinds := make([]string, 0, len(counts))
				for k := range counts {
					kinds = append(kinds, k)
				}
				sort.Strings(kinds)
				for _, k := range kinds {
					_, _ = fmt.Fprintf(w, "%-22s %d\n", k, counts[k])
				}
			default:
				entries, err := cc.History.Recent(ctx, limit)
				if err != nil {
					return err
				}
				renderHistory(w, entries)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	cmd.Flags().BoolVar(&stats, "stats", false, "Show counts per outcome")
	cmd.Flags().BoolVar(&wipe, "clear", false, "Delete all entries")
	return cmd
}

package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdplyr/pkg/fragment"
)

// NewTranspileCommand creates the transpile command.
func NewTranspileCommand() *cobra.Command {
	var input string
	var stats bool

	cmd := &cobra.Command{
		Use:   "transpile [TEXT]",
		Short: "Print the SQL generated for a pipeline",
		Long: `Print the SQL generated for a whole-statement pipeline or for a SQL
statement with pipelines embedded in (| ... |) markers.

Nothing is executed. Text without the %>% chain operator is printed unchanged.`,
		Example: `  leapdplyr transpile "orders %>% select(id, amount) %>% arrange(desc(amount))"
  leapdplyr transpile -i report.sql
  echo "t %>% head(3)" | leapdplyr transpile`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, ok, err := readInput(cmd, args, input)
			if err != nil {
				return err
			}
			if !ok || strings.TrimSpace(text) == "" {
				return errors.New("nothing to transpile: pass TEXT, --input or pipe to stdin")
			}

			cc, cleanup, err := NewCommandContext(cmd, false)
			if err != nil {
				return err
			}
			defer cleanup()

			sql, err := cc.Extension.Transpile(cmd.Context(), cc.Session, fragment.StripTrailingSemicolons(text))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), sql)
			if stats {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), cc.Session.CacheStats().String())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Read the text from file")
	cmd.Flags().BoolVar(&stats, "stats", false, "Print transpile cache statistics to stderr")
	return cmd
}

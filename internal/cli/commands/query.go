package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/leapstack-labs/leapdplyr/internal/history"
	"github.com/leapstack-labs/leapdplyr/pkg/accept"
	"github.com/leapstack-labs/leapdplyr/pkg/core"
	"github.com/leapstack-labs/leapdplyr/pkg/fragment"
	"github.com/leapstack-labs/leapdplyr/pkg/session"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Format  string
	Input   string
	ShowSQL bool
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [TEXT]",
		Short: "Run a statement through the host engine",
		Long: `Run a statement against the configured host engine.

Statements containing the %>% chain operator are transpiled first, either
whole or inside (| ... |) markers. Anything else is passed to the host
unchanged.

When invoked without arguments on a terminal, enters interactive REPL mode.`,
		Example: `  # Whole-statement pipeline
  leapdplyr query "orders %>% filter(amount > 10) %>% count(region)"

  # Pipeline embedded in SQL
  leapdplyr query "SELECT * FROM (| orders %>% head(5) |) o"

  # Output as JSON
  leapdplyr query "orders %>% head()" --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: table, json, csv, md (default from config)")
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read the statement from file")
	cmd.Flags().BoolVar(&opts.ShowSQL, "show-sql", false, "Print the generated SQL before the result")

	return cmd
}

func runQuery(cmd *cobra.Command, args []string, opts *QueryOptions) error {
	text, ok, err := readInput(cmd, args, opts.Input)
	if err != nil {
		return err
	}

	cc, cleanup, err := NewCommandContext(cmd, true)
	if err != nil {
		return err
	}
	defer cleanup()

	format := opts.Format
	if format == "" {
		format = cc.Cfg.Output
	}
	if !ok {
		return runREPL(cmd, cc, format)
	}

	res, err := execute(cmd.Context(), cc, cc.Session, text)
	if err != nil {
		return err
	}
	if opts.ShowSQL && res.Pipeline {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "-- %s\n", res.SQL)
	}
	return renderResult(cmd.OutOrStdout(), res, format)
}

// execute runs text on sess and records the outcome in history.
func execute(ctx context.Context, cc *CommandContext, sess *session.Session, text string) (*accept.Result, error) {
	start := time.Now()
	res, err := cc.Extension.Run(ctx, sess, text)

	if cc.History != nil {
		e := &history.Entry{
			SessionID: sess.ID,
			Query:     text,
			Duration:  time.Since(start),
		}
		if err != nil {
			e.Kind = core.KindOf(err).String()
			e.Message = err.Error()
			e.Pipeline = fragment.HasChain(text)
		} else {
			e.SQL = res.SQL
			e.Pipeline = res.Pipeline
			e.RowCount = len(res.Rows)
		}
		if herr := cc.History.Record(ctx, e); herr != nil {
			cc.Logger.Warn("failed to record history", "error", herr)
		}
	}
	return res, err
}

// readInput returns the statement from args, a file or piped stdin.
// ok is false when there is no input and stdin is a terminal.
func readInput(cmd *cobra.Command, args []string, file string) (text string, ok bool, err error) {
	switch {
	case len(args) > 0:
		return strings.Join(args, " "), true, nil
	case file != "":
		content, err := os.ReadFile(file)
		if err != nil {
			return "", false, fmt.Errorf("failed to read file: %w", err)
		}
		return string(content), true, nil
	}

	in := cmd.InOrStdin()
	if f, isFile := in.(*os.File); isFile && term.IsTerminal(int(f.Fd())) {
		return "", false, nil
	}
	content, err := io.ReadAll(in)
	if err != nil {
		return "", false, fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(content), true, nil
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdplyr/pkg/session"
	"github.com/leapstack-labs/leapdplyr/pkg/transpile"
)

const (
	replPrompt     = "dplyr> "
	replContPrompt = "  ...> "
)

// NewReplCommand creates the repl command.
func NewReplCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive session",
		Long: `Start an interactive session against the configured host engine.

All statements share one session, so repeated pipelines are served from the
transpile cache. Statements end with a semicolon.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd, true)
			if err != nil {
				return err
			}
			defer cleanup()
			if format == "" {
				format = cc.Cfg.Output
			}
			return runREPL(cmd, cc, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: table, json, csv, md (default from config)")
	return cmd
}

// replState is the mutable state of one REPL.
type replState struct {
	cc      *CommandContext
	sess    *session.Session
	format  string
	showSQL bool
	out     io.Writer
	errOut  io.Writer
}

func runREPL(cmd *cobra.Command, cc *CommandContext, format string) error {
	ctx := cmd.Context()
	st := &replState{
		cc:     cc,
		sess:   cc.Session,
		format: format,
		out:    cmd.OutOrStdout(),
		errOut: cmd.ErrOrStderr(),
	}

	var historyFile string
	if cc.Cfg.History.Path != "" && cc.Cfg.History.Path != ":memory:" {
		historyFile = filepath.Join(filepath.Dir(cc.Cfg.History.Path), "repl_history")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     historyFile,
		AutoComplete:    newCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintf(st.out, "leapdplyr %s (host: %s)\n", cc.Engine.Version(), cc.Host.Name())
	_, _ = fmt.Fprintln(st.out, "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(st.out)

	var buf strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			buf.Reset()
			rl.SetPrompt(replPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if buf.Len() == 0 && strings.HasPrefix(line, ".") {
			if quit := st.dot(ctx, line); quit {
				break
			}
			continue
		}

		buf.WriteString(line)
		if !strings.HasSuffix(line, ";") {
			buf.WriteString("\n")
			rl.SetPrompt(replContPrompt)
			continue
		}
		rl.SetPrompt(replPrompt)

		text := buf.String()
		buf.Reset()
		st.run(ctx, text)
		_, _ = fmt.Fprintln(st.out)
	}
	return nil
}

// run executes one statement and prints the result or the diagnostic.
func (st *replState) run(ctx context.Context, text string) {
	res, err := execute(ctx, st.cc, st.sess, strings.TrimSuffix(strings.TrimSpace(text), ";"))
	if err != nil {
		_, _ = fmt.Fprintf(st.errOut, "Error: %v\n", err)
		return
	}
	if st.showSQL && res.Pipeline {
		_, _ = fmt.Fprintf(st.out, "-- %s\n", res.SQL)
	}
	if err := renderResult(st.out, res, st.format); err != nil {
		_, _ = fmt.Fprintf(st.errOut, "Error: %v\n", err)
	}
}

// dot handles a dot-command and reports whether the REPL should exit.
func (st *replState) dot(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(st.out)

	case ".cache":
		if len(parts) > 1 && parts[1] == "clear" {
			st.sess.ClearCache()
			_, _ = fmt.Fprintln(st.out, "cache cleared")
			return false
		}
		writeCacheStats(st.out, st.sess.CacheStats())

	case ".history":
		if st.cc.History == nil {
			_, _ = fmt.Fprintln(st.errOut, "history is disabled")
			return false
		}
		n := 10
		if len(parts) > 1 {
			v, err := strconv.Atoi(parts[1])
			if err != nil || v <= 0 {
				_, _ = fmt.Fprintln(st.errOut, "Usage: .history [n]")
				return false
			}
			n = v
		}
		entries, err := st.cc.History.Recent(ctx, n)
		if err != nil {
			_, _ = fmt.Fprintf(st.errOut, "Error: %v\n", err)
			return false
		}
		renderHistory(st.out, entries)

	case ".sql":
		st.showSQL = !st.showSQL
		_, _ = fmt.Fprintf(st.out, "show sql: %t\n", st.showSQL)

	case ".format":
		if len(parts) < 2 {
			_, _ = fmt.Fprintf(st.out, "format: %s\n", st.format)
			return false
		}
		st.format = parts[1]

	default:
		_, _ = fmt.Fprintf(st.errOut, "Unknown command: %s (type .help for commands)\n", parts[0])
	}
	return false
}

// writeCacheStats prints the counters, warning when the cache is not paying off.
func writeCacheStats(w io.Writer, stats transpile.CacheStats) {
	_, _ = fmt.Fprintln(w, stats.String())
	switch {
	case stats.ShouldClear():
		_, _ = fmt.Fprintln(w, "warning: hit rate below 10%, consider .cache clear")
	case stats.Effective():
		_, _ = fmt.Fprintln(w, "cache is effective")
	}
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help            Show this help message
  .cache [clear]   Show or clear the session's transpile cache
  .history [n]     Show the last n recorded queries (default 10)
  .sql             Toggle printing of generated SQL
  .format [fmt]    Show or set the output format (table, json, csv, md)
  .quit / .exit    Exit the REPL

Tips:
  - Statements must end with a semicolon (;)
  - Pipelines use %>% and may be embedded in SQL with (| ... |)
  - Use arrow keys to navigate history
`
	_, _ = fmt.Fprintln(w, help)
}

// newCompleter completes dot-commands.
func newCompleter() *readline.PrefixCompleter {
	items := []readline.PrefixCompleterInterface{
		readline.PcItem(".help"),
		readline.PcItem(".cache", readline.PcItem("clear")),
		readline.PcItem(".history"),
		readline.PcItem(".sql"),
		readline.PcItem(".format",
			readline.PcItem("table"), readline.PcItem("json"),
			readline.PcItem("csv"), readline.PcItem("md")),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	}
	return readline.NewPrefixCompleter(items...)
}

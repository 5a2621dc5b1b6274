package commands

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapdplyr/pkg/core"
	"github.com/leapstack-labs/leapdplyr/pkg/fragment"
)

// checkResult is the outcome for one file.
type checkResult struct {
	Path string
	SQL  string
	Skip bool
	Err  error
}

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	var verbose bool
	var jobs int

	cmd := &cobra.Command{
		Use:   "check FILE...",
		Short: "Validate and transpile pipeline files without running them",
		Long: `Screen and transpile every pipeline in each file. Files are checked
concurrently and independently; one failing file does not stop the others.

Exits with an error if any file fails.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup, err := NewCommandContext(cmd, false)
			if err != nil {
				return err
			}
			defer cleanup()

			results, err := checkFiles(cmd, cc, args, jobs)
			if err != nil {
				return err
			}
			return reportCheck(cmd.OutOrStdout(), results, verbose)
		},
	}

	cmd.Flags().BoolVar(&verbose, "verbose", false, "Print generated SQL and full diagnostics")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "Files checked in parallel (default GOMAXPROCS)")
	return cmd
}

// checkFiles transpiles each file on its own session. Results are in input order.
func checkFiles(cmd *cobra.Command, cc *CommandContext, paths []string, jobs int) ([]checkResult, error) {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	results := make([]checkResult, len(paths))

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(jobs)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res := checkResult{Path: path}
			content, err := os.ReadFile(path)
			switch {
			case err != nil:
				res.Err = core.Errorf(core.KindNullOrMalformedInput, "failed to read %s: %v", path, err)
			case !fragment.HasChain(string(content)):
				res.Skip = true
			default:
				sess := cc.NewSession()
				res.SQL, res.Err = cc.Extension.Transpile(ctx, sess, fragment.StripTrailingSemicolons(string(content)))
				cc.CloseSession(sess)
			}
			if res.Err != nil {
				cc.Logger.Debug("check failed", "path", path, "kind", core.KindOf(res.Err).String())
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func reportCheck(w io.Writer, results []checkResult, verbose bool) error {
	failed := 0
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
			if verbose {
				_, _ = fmt.Fprintf(w, "FAIL  %s\n%v\n", r.Path, r.Err)
			} else {
				_, _ = fmt.Fprintf(w, "FAIL  %s: %s\n", r.Path, core.KindOf(r.Err))
			}
		case r.Skip:
			_, _ = fmt.Fprintf(w, "skip  %s (no pipeline)\n", r.Path)
		default:
			_, _ = fmt.Fprintf(w, "ok    %s\n", r.Path)
			if verbose {
				_, _ = fmt.Fprintf(w, "      %s\n", r.SQL)
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}

// Package cli provides the command-line interface for leapdplyr.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdplyr/internal/cli/commands"
	"github.com/leapstack-labs/leapdplyr/internal/config"
	"github.com/leapstack-labs/leapdplyr/internal/logging"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.3.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "leapdplyr",
		Short: "leapdplyr - dplyr pipelines for SQL engines",
		Long: `leapdplyr transpiles dplyr-style %>% pipelines to SQL and runs them on
DuckDB or PostgreSQL.

Pipelines can be whole statements or embedded in ordinary SQL between
(| and |) markers. Every fragment is screened before it is transpiled.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			logger, err := newLogger(cmd, cfg)
			if err != nil {
				return err
			}
			if cfg.File != "" {
				logger.Debug("using config file", "path", cfg.File)
			}

			ctx := commands.WithConfig(cmd.Context(), cfg)
			ctx = commands.WithLogger(ctx, logger)
			cmd.SetContext(ctx)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
dplyr pipelines for DuckDB and PostgreSQL
`)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: nearest ./leapdplyr.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug diagnostics")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (error|warning|info|debug|trace)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format (text|json)")
	rootCmd.PersistentFlags().String("host", "", "Host engine (duckdb|postgres)")
	rootCmd.PersistentFlags().String("database", "", "Host database (DuckDB path, empty for in-memory)")
	rootCmd.PersistentFlags().String("history", "", "Path to history database (empty disables)")
	rootCmd.PersistentFlags().Bool("strict", false, "Reject functions the transpiler does not know")
	rootCmd.PersistentFlags().Bool("preserve-comments", false, "Keep pipeline comments in generated SQL")
	rootCmd.PersistentFlags().Int("max-input-length", 0, "Maximum fragment size in bytes")
	rootCmd.PersistentFlags().Int("max-processing-time-ms", 0, "Per-fragment transpile budget in milliseconds")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format (table|json|csv|md)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"table", "json", "csv", "md"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"error", "warning", "info", "debug", "trace"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("host", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"duckdb", "postgres"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewTranspileCommand())
	rootCmd.AddCommand(commands.NewQueryCommand())
	rootCmd.AddCommand(commands.NewReplCommand())
	rootCmd.AddCommand(commands.NewCheckCommand())
	rootCmd.AddCommand(commands.NewHistoryCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// newLogger builds the stderr logger. --debug raises the level to at least debug.
func newLogger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if cfg.Debug && level > slog.LevelDebug {
		level = slog.LevelDebug
	}
	return logging.New(cmd.ErrOrStderr(), level, logging.Format(cfg.LogFormat)), nil
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for leapdplyr.

To load completions:

Bash:
  $ source <(leapdplyr completion bash)

Zsh:
  $ leapdplyr completion zsh > "${fpath[1]}/_leapdplyr"

Fish:
  $ leapdplyr completion fish | source

PowerShell:
  PS> leapdplyr completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
}

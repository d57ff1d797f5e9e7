package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/hgsim/internal/ir"
)

// RootOptions holds the persistent flags shared by every command.
type RootOptions struct {
	Verbose bool
	Format  string // "text" or "json"
}

// ValidFormats lists the accepted --format values.
var ValidFormats = []string{"text", "json"}

// NewRootCommand assembles the hgsim command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "hgsim",
		Short:   "hgsim - stochastic hypergraph rewriting",
		Version: fmt.Sprintf("%s (records v%s)", ir.EngineVersion, ir.IRVersion),
		Long: `A stochastic hypergraph rewriting simulator.

Each step seeds at the lowest active node, finds a connected pattern around it,
applies one randomly chosen rule (Split, Toggle Add, Toggle Remove) and
compacts orphaned nodes. Runs are seeded and can be recorded to SQLite,
replayed, traced and rendered as Graphviz DOT.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (debug logs, diagnostics on stderr)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json)")

	cmd.AddCommand(
		NewRunCommand(opts),
		NewReplayCommand(opts),
		NewTraceCommand(opts),
		NewValidateCommand(opts),
		NewTestCommand(opts),
	)

	return cmd
}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

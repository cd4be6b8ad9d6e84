package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tartinelabs/banneton/internal/archive"
	"github.com/tartinelabs/banneton/internal/store"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	From string
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace the database contents from an archive directory",
		Long: `Validate an archive directory and restore it into the database.

Every checksum is verified and every file schema-checked before any
row is touched. The restore itself runs in a single transaction:
existing rows are deleted in reverse dependency order, then archive
records are inserted in dependency order. Any structural problem rolls
the whole thing back.

Records whose references name natural keys missing from the archive
are skipped with a warning; warnings alone still exit 0.

Example:
  banneton import --db ./bakery.db --from ./archive
  banneton import --from ./archive --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "", "archive directory to read (required)")
	_ = cmd.MarkFlagRequired("from")

	return cmd
}

func runImport(opts *ImportOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if err := checkArchiveDir(opts.From); err != nil {
		return err
	}

	st, err := store.Open(opts.DatabasePath())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	sum, err := archive.NewImporter(st, archive.DefaultRegistry()).Import(ctx, opts.From)
	if err != nil {
		_ = formatter.Error(archiveErrorCode(err), err.Error(), nil)
		return WrapExitError(ExitFailure, "import failed", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(sum)
	}

	fmt.Fprintf(formatter.Writer, "✓ Imported %d records, skipped %d\n", sum.TotalImported(), sum.TotalSkipped())
	fmt.Fprintln(formatter.Writer)
	for _, c := range sum.Counts {
		fmt.Fprintf(formatter.Writer, "  %-22s %d imported, %d skipped\n", c.EntityType, c.Imported, c.Skipped)
	}

	if len(sum.Warnings) > 0 {
		fmt.Fprintln(formatter.Writer)
		fmt.Fprintf(formatter.Writer, "Warnings: %d record(s) skipped\n", len(sum.Warnings))
		for _, w := range sum.Warnings {
			fmt.Fprintf(formatter.Writer, "  %s\n", w)
		}
	}

	return nil
}

// checkArchiveDir rejects paths that do not exist or are not
// directories before any database work starts.
func checkArchiveDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("archive directory not found: %s", dir))
	}
	if !info.IsDir() {
		return NewExitError(ExitCommandError, fmt.Sprintf("not a directory: %s", dir))
	}
	return nil
}

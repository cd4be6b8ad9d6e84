package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tartinelabs/banneton/internal/archive"
	"github.com/tartinelabs/banneton/internal/store"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Out string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the database to an archive directory",
		Long: `Export every entity type to a directory of JSON files plus a manifest.

Records carry natural keys (slugs, codes) instead of database row ids,
are ordered deterministically, and are checksummed in the manifest, so
the same data always produces the same bytes.

Example:
  banneton export --db ./bakery.db --out ./archive
  banneton export --out ./archive --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Out, "out", "", "archive directory to write (default export_dir from config)")

	return cmd
}

func runExport(opts *ExportOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	out := opts.Out
	if out == "" {
		out = opts.Config().ExportDir
	}
	if out == "" {
		return NewExitError(ExitCommandError, "no archive directory: pass --out or set export_dir in the config file")
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

	manifest, err := archive.NewExporter(st, archive.DefaultRegistry()).Export(ctx, out)
	if err != nil {
		_ = formatter.Error(archiveErrorCode(err), err.Error(), nil)
		return WrapExitError(ExitFailure, "export failed", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(manifest.Files)
	}

	fmt.Fprintf(formatter.Writer, "✓ Exported %d records across %d entity types\n", manifest.TotalRecords(), len(manifest.Files))
	fmt.Fprintln(formatter.Writer)
	for _, fd := range manifest.Files {
		fmt.Fprintf(formatter.Writer, "  %-22s %d\n", fd.EntityType, fd.RecordCount)
	}
	fmt.Fprintln(formatter.Writer)
	fmt.Fprintf(formatter.Writer, "Manifest: %s\n", filepath.Join(out, archive.ManifestName))
	return nil
}

// archiveErrorCode maps an error to the code reported in JSON output.
func archiveErrorCode(err error) string {
	if ae, ok := archive.AsArchiveError(err); ok {
		return string(ae.Code)
	}
	return "COMMAND_ERROR"
}

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tartinelabs/banneton/internal/archive"
	"github.com/tartinelabs/banneton/internal/store"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	Against string
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check an archive against the current database",
		Long: `Re-export the database with the archive's timestamp and compare the
two directories byte for byte.

A clean verify proves the archive and the database describe exactly
the same data. Exits 0 on a full match, 1 with a listing of differing,
missing or extra files.

Example:
  banneton verify --db ./bakery.db --against ./archive`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Against, "against", "", "archive directory to compare (required)")
	_ = cmd.MarkFlagRequired("against")

	return cmd
}

func runVerify(opts *VerifyOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if err := checkArchiveDir(opts.Against); err != nil {
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

	rep, err := archive.Verify(ctx, st, archive.DefaultRegistry(), opts.Against)
	if err != nil {
		_ = formatter.Error(archiveErrorCode(err), err.Error(), nil)
		return WrapExitError(ExitFailure, "verify failed", err)
	}

	if rep.Clean() {
		if formatter.Format == "json" {
			return formatter.Success(rep)
		}
		fmt.Fprintf(formatter.Writer, "✓ Archive matches the database (%d files)\n", len(rep.Files))
		return nil
	}

	return outputVerifyMismatch(formatter, rep)
}

// outputVerifyMismatch reports a failed verify and maps it to exit
// code 1.
func outputVerifyMismatch(formatter *OutputFormatter, rep *archive.VerifyReport) error {
	bad := 0
	for _, f := range rep.Files {
		if f.Status != archive.StatusMatch {
			bad++
		}
	}

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   rep,
			Error: &CLIError{
				Code:    "VERIFY_MISMATCH",
				Message: fmt.Sprintf("%d file(s) do not match", bad),
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("verify failed: %d file(s) do not match", bad))
	}

	fmt.Fprintln(formatter.Writer, "✗ Archive does not match the database")
	fmt.Fprintln(formatter.Writer)
	for _, f := range rep.Files {
		if f.Status == archive.StatusMatch {
			continue
		}
		fmt.Fprintf(formatter.Writer, "  %-24s %s\n", f.File, f.Status)
	}
	fmt.Fprintln(formatter.Writer)
	fmt.Fprintf(formatter.Writer, "Verify Summary: %d of %d files match\n", len(rep.Files)-bad, len(rep.Files))

	return NewExitError(ExitFailure, fmt.Sprintf("verify failed: %d file(s) do not match", bad))
}

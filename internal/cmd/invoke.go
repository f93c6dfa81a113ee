package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/s3relocate/internal/observability"
	"github.com/3leaps/s3relocate/internal/runner"
	"github.com/3leaps/s3relocate/pkg/notification"
	"github.com/3leaps/s3relocate/pkg/output"
	"github.com/3leaps/s3relocate/pkg/provider"
	"github.com/3leaps/s3relocate/pkg/relocate"
)

var (
	invokeEvent  string
	invokeOutput string
	invokeDryRun bool
)

var invokeCmd = &cobra.Command{
	Use:   "invoke",
	Short: "Relocate the objects named in one event notification document",
	Long: `Read an S3 event notification document (the JSON body Lambda receives)
and relocate every record in order. One JSONL record is written per
processed notification, followed by an error record when the batch
aborted and a closing summary.

Examples:
  s3relocate invoke --event event.json --source-bucket in --destination-bucket out
  cat event.json | s3relocate invoke --event -
  s3relocate invoke --event event.json --dry-run`,
	RunE: runInvoke,
}

func init() {
	rootCmd.AddCommand(invokeCmd)
	invokeCmd.Flags().StringVarP(&invokeEvent, "event", "e", "", "Event document path, or - for stdin (required)")
	invokeCmd.Flags().StringVarP(&invokeOutput, "output", "o", "stdout", "Output destination: stdout or file:PATH")
	invokeCmd.Flags().BoolVar(&invokeDryRun, "dry-run", false, "Show what would be relocated without calling S3")
	_ = invokeCmd.MarkFlagRequired("event")
}

func runInvoke(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	data, err := readEvent(invokeEvent, cmd.InOrStdin())
	if err != nil {
		observability.CLILogger.Error("Failed to read event", zap.String("event", invokeEvent), zap.Error(err))
		if errors.Is(err, os.ErrNotExist) {
			return exitError(foundry.ExitFileNotFound, "Event file not found", err)
		}
		return exitError(foundry.ExitFileReadError, "Failed to read event", err)
	}

	batch, decodeErr := notification.Decode(data)
	if invokeDryRun {
		if decodeErr != nil {
			return exitError(foundry.ExitInvalidArgument, "Invalid event document", decodeErr)
		}
		return showInvokePlan(cmd, batch)
	}

	id := runner.NewInvocationID()
	writer, cleanup, err := createWriter(invokeOutput, id, cmd.OutOrStdout())
	if err != nil {
		observability.CLILogger.Error("Failed to create writer", zap.Error(err))
		return exitError(foundry.ExitFileWriteError, "Failed to create output", err)
	}
	defer cleanup()

	// Records are still written after cancellation so the output explains
	// where the batch stopped.
	reportCtx := context.WithoutCancel(ctx)

	if decodeErr != nil {
		observability.CLILogger.Error("Invalid event document", zap.String("invocation_id", id), zap.Error(decodeErr))
		if err := output.Report(reportCtx, writer, nil, decodeErr); err != nil {
			return exitError(foundry.ExitFileWriteError, "Failed to write output", err)
		}
		return exitError(foundry.ExitInvalidArgument, "Invalid event document", decodeErr)
	}

	rel, closeProviders, err := newRelocator(ctx, appConfig)
	if err != nil {
		observability.CLILogger.Error("Failed to initialize relocator", zap.Error(err))
		if reportErr := output.Report(reportCtx, writer, nil, err); reportErr != nil {
			return exitError(foundry.ExitFileWriteError, "Failed to write output", reportErr)
		}
		return exitError(runExitCode(err), "Failed to initialize relocator", err)
	}
	defer closeProviders()

	sum, runErr := runner.New(rel, runner.WithLogger(observability.CLILogger)).Run(ctx, id, batch)
	if err := output.Report(reportCtx, writer, sum, runErr); err != nil {
		return exitError(foundry.ExitFileWriteError, "Failed to write output", err)
	}
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			return exitError(foundry.ExitSignalInt, "Relocation cancelled", runErr)
		}
		return exitError(runExitCode(runErr), "Relocation aborted", runErr)
	}
	return nil
}

// readEvent reads the event document from path, or from stdin for "-".
func readEvent(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// createWriter creates the JSONL writer for dest.
// Returns the writer, a cleanup function, and any error.
func createWriter(dest, invocationID string, stdout io.Writer) (output.Writer, func(), error) {
	if dest == "" || dest == "stdout" {
		w := output.NewJSONLWriter(stdout, invocationID, string(provider.ProviderS3))
		return w, func() { _ = w.Close() }, nil
	}

	path := strings.TrimPrefix(dest, "file:")
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file %s: %w", path, err)
	}

	w := output.NewJSONLWriter(f, invocationID, string(provider.ProviderS3))
	cleanup := func() {
		_ = w.Close()
		_ = f.Close()
	}
	return w, cleanup, nil
}

// showInvokePlan prints what a run would do without touching S3.
func showInvokePlan(cmd *cobra.Command, batch notification.Batch) error {
	rc := appConfig.RelocateConfig()
	if err := rc.Validate(); err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid relocation configuration", err)
	}
	if rc.Verify == "" {
		rc.Verify = relocate.DefaultConfig().Verify
	}

	printf(cmd, "=== Relocation Plan (dry-run) ===\n\n")
	printf(cmd, "Source:      %s\n", rc.SourceBucket)
	printf(cmd, "Destination: %s\n", rc.DestinationBucket)
	printf(cmd, "Verify:      %s\n", rc.Verify)
	if rc.RateLimit > 0 {
		printf(cmd, "Rate Limit:  %.1f/s\n", rc.RateLimit)
	}
	printf(cmd, "\nRecords: %d\n", len(batch))
	for i, n := range batch {
		if pattern, ok := rc.MatchSkip(n.Key); ok {
			printf(cmd, "  [%d] skip      %s (matches %s)\n", i, n.Key, pattern)
			continue
		}
		printf(cmd, "  [%d] relocate  %s\n", i, n.Key)
	}
	printf(cmd, "\nEvent validated successfully. Remove --dry-run to execute.\n")
	return nil
}

package cmd

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/s3relocate/internal/observability"
	"github.com/3leaps/s3relocate/internal/runner"
	"github.com/3leaps/s3relocate/pkg/notification"
	"github.com/3leaps/s3relocate/pkg/output"
	"github.com/3leaps/s3relocate/pkg/relocate"
)

var lambdaCmd = &cobra.Command{
	Use:   "lambda",
	Short: "Serve AWS Lambda invocations",
	Long: `Start the AWS Lambda runtime loop. Each invocation receives an S3 event
notification and moves every referenced object to the destination bucket.

The root command does the same when AWS_LAMBDA_RUNTIME_API is set, so the
binary can be deployed as a Lambda bootstrap without arguments.`,
	RunE: runLambda,
}

func init() {
	rootCmd.AddCommand(lambdaCmd)
}

// batchRunner is the part of runner.Runner the entry points use.
type batchRunner interface {
	Run(ctx context.Context, invocationID string, batch notification.Batch) (*relocate.Summary, error)
	Reject(invocationID string, err error)
}

var _ batchRunner = (*runner.Runner)(nil)

func runLambda(cmd *cobra.Command, args []string) error {
	rel, cleanup, err := newRelocator(commandContext(cmd), appConfig)
	if err != nil {
		observability.CLILogger.Error("Failed to initialize relocator", zap.Error(err))
		return exitError(runExitCode(err), "Failed to initialize relocator", err)
	}
	defer cleanup()

	rc := rel.Config()
	observability.CLILogger.Info("Lambda handler starting",
		zap.String("source_bucket", rc.SourceBucket),
		zap.String("destination_bucket", rc.DestinationBucket),
		zap.String("verify", string(rc.Verify)))

	lambda.Start(newLambdaHandler(runner.New(rel, runner.WithLogger(observability.CLILogger))))
	return nil
}

// newLambdaHandler returns the function registered with the Lambda runtime.
// A returned error fails the invocation so the event source can retry it.
func newLambdaHandler(r batchRunner) func(context.Context, events.S3Event) (output.SummaryRecord, error) {
	return func(ctx context.Context, evt events.S3Event) (output.SummaryRecord, error) {
		id := invocationID(ctx)

		batch, err := notification.FromS3Event(evt)
		if err != nil {
			r.Reject(id, err)
			return output.SummaryRecord{Failed: true}, err
		}

		sum, err := r.Run(ctx, id, batch)
		return output.NewSummaryRecord(sum, err != nil), err
	}
}

// invocationID prefers the Lambda request ID so log lines correlate with
// the platform's own records.
func invocationID(ctx context.Context) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	return runner.NewInvocationID()
}

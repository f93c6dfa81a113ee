package cmd

import (
	"context"
	"fmt"
	"runtime"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/s3relocate/internal/observability"
	"github.com/3leaps/s3relocate/pkg/provider"
)

// doctorProbeKey is looked up in each bucket; a NotFound answer proves the
// bucket is reachable with the current credentials.
const doctorProbeKey = ".s3relocate-doctor-probe"

var doctorS3 bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long: `Run diagnostic checks on the environment and configuration and suggest
fixes for common issues.

Examples:
  s3relocate doctor        # Local checks only
  s3relocate doctor --s3   # Also check AWS credentials and bucket access`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorS3, "s3", false, "Check AWS credentials and reach both buckets")
}

// doctorReport numbers checks and remembers whether any failed.
type doctorReport struct {
	log   *zap.Logger
	num   int
	total int
	ok    bool
}

func (r *doctorReport) pass(check, detail string, fields ...zap.Field) {
	r.num++
	r.log.Info(fmt.Sprintf("[%d/%d] Checking %s... ✅ %s", r.num, r.total, check, detail), fields...)
}

func (r *doctorReport) warn(check, detail string, fields ...zap.Field) {
	r.num++
	r.log.Warn(fmt.Sprintf("[%d/%d] Checking %s... ⚠️  %s", r.num, r.total, check, detail), fields...)
}

func (r *doctorReport) fail(check, detail string, fields ...zap.Field) {
	r.num++
	r.ok = false
	r.log.Error(fmt.Sprintf("[%d/%d] Checking %s... ❌ %s", r.num, r.total, check, detail), fields...)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	log := observability.CLILogger
	log.Info("=== " + serviceName + " doctor ===")
	log.Info("")
	log.Info("Running diagnostic checks...")
	log.Info("")

	report := &doctorReport{log: log, total: 5, ok: true}
	if doctorS3 {
		report.total = 8
	}

	goVersion := runtime.Version()
	if goVersion >= "go1.23" {
		report.pass("Go version", goVersion, zap.String("go_version", goVersion))
	} else {
		report.warn("Go version", goVersion+" (recommended: go1.23+)", zap.String("go_version", goVersion))
	}

	version := crucible.GetVersion()
	if version.Crucible != "" {
		report.pass("Crucible access", "v"+version.Crucible, zap.String("crucible_version", version.Crucible))
	} else {
		report.fail("Crucible access", "Cannot access Crucible")
	}
	if version.Gofulmen != "" {
		report.pass("Gofulmen access", "v"+version.Gofulmen, zap.String("gofulmen_version", version.Gofulmen))
	} else {
		report.fail("Gofulmen access", "Cannot access Gofulmen")
	}

	rc := appConfig.RelocateConfig()
	if err := rc.Validate(); err != nil {
		report.fail("relocation config", err.Error(), zap.Error(err))
		printRelocationConfigHelp(log)
	} else {
		report.pass("relocation config", rc.SourceBucket+" -> "+rc.DestinationBucket,
			zap.String("source_bucket", rc.SourceBucket),
			zap.String("destination_bucket", rc.DestinationBucket))
	}

	runtimeName := "local"
	if inLambdaRuntime() {
		runtimeName = "lambda"
	}
	report.pass("environment", fmt.Sprintf("%s/%s (%s)", runtime.GOOS, runtime.GOARCH, runtimeName),
		zap.String("os", runtime.GOOS),
		zap.String("arch", runtime.GOARCH),
		zap.String("runtime", runtimeName))

	if doctorS3 {
		runS3Checks(commandContext(cmd), report)
	}

	log.Info("")
	if report.ok {
		log.Info("✅ All checks passed! Your " + serviceName + " installation is healthy.")
	} else {
		log.Warn("⚠️  Some checks failed. Review the output above for details.")
	}
	log.Info("")
	log.Info("=== End Diagnostics ===")

	if !report.ok {
		return exitError(exitFailure, "Diagnostic checks failed", nil)
	}
	return nil
}

// runS3Checks checks AWS credentials and that both buckets answer.
func runS3Checks(ctx context.Context, report *doctorReport) {
	log := report.log
	log.Info("")
	log.Info("S3 Provider Checks:")

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if appConfig.S3.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(appConfig.S3.Region))
	}
	if appConfig.S3.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(appConfig.S3.Profile))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		report.fail("AWS credentials", "Cannot load AWS config", zap.Error(err))
		printAWSCredentialsHelp(log)
		return
	}

	creds, err := cfg.Credentials.Retrieve(ctx)
	if err != nil {
		report.fail("AWS credentials", "Cannot retrieve credentials", zap.Error(err))
		printAWSCredentialsHelp(log)
		return
	}
	source := creds.Source
	if source == "" {
		source = "unknown"
	}
	report.pass("AWS credentials", "Found credentials",
		zap.String("access_key", maskAccessKey(creds.AccessKeyID)),
		zap.String("source", source))

	rc := appConfig.RelocateConfig()
	if err := rc.Validate(); err != nil {
		report.fail("bucket access", "Skipped: relocation config is invalid")
		return
	}
	src, dst, err := newProviders(ctx, appConfig)
	if err != nil {
		report.fail("bucket access", "Cannot create S3 client", zap.Error(err))
		return
	}
	defer func() { _ = src.Close() }()

	checkBucket(ctx, report, "source bucket", rc.SourceBucket, src)
	checkBucket(ctx, report, "destination bucket", rc.DestinationBucket, dst)
}

// checkBucket reports whether p's bucket answers a HEAD for the probe key.
func checkBucket(ctx context.Context, report *doctorReport, check, bucket string, p provider.Provider) {
	_, err := p.Head(ctx, doctorProbeKey)
	switch {
	case err == nil, provider.IsNotFound(err):
		report.pass(check, bucket, zap.String("bucket", bucket))
	case provider.IsAccessDenied(err):
		// HEAD of a missing key is 403 without s3:ListBucket.
		report.warn(check, bucket+" (access denied; cannot confirm)", zap.String("bucket", bucket), zap.Error(err))
	case provider.IsBucketNotFound(err):
		report.fail(check, bucket+" does not exist", zap.String("bucket", bucket))
	default:
		report.fail(check, bucket+" unreachable", zap.String("bucket", bucket), zap.Error(err))
	}
}

// maskAccessKey masks all but the last 4 characters of an access key.
func maskAccessKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

// printAWSCredentialsHelp prints help for configuring AWS credentials.
func printAWSCredentialsHelp(log *zap.Logger) {
	log.Info("")
	log.Info("To configure AWS credentials:")
	log.Info("  1. Set AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY environment variables, or")
	log.Info("  2. Run 'aws configure' to set up a profile, or")
	log.Info("  3. Use IAM role when running on AWS infrastructure")
	log.Info("")
	log.Info("For S3-compatible storage (MinIO, LocalStack, moto), also set:")
	log.Info("  - S3RELOCATE_S3_ENDPOINT or use --endpoint flag")
	log.Info("")
}

func printRelocationConfigHelp(log *zap.Logger) {
	log.Info("")
	log.Info("To configure the buckets:")
	log.Info("  - Set SOURCE_BUCKET and DESTINATION_BUCKET, or")
	log.Info("  - Pass --source-bucket and --destination-bucket, or")
	log.Info("  - Add relocation.source_bucket and relocation.destination_bucket to s3relocate.yaml")
	log.Info("")
}

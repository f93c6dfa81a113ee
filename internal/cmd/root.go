package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"

	"github.com/3leaps/s3relocate/internal/config"
	"github.com/3leaps/s3relocate/internal/observability"
	"github.com/3leaps/s3relocate/internal/server/handlers"
)

const serviceName = "s3relocate"

// VersionInfo holds build metadata injected by main.
type VersionInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

var (
	cfgFile      string
	logLevel     string
	logProfile   string
	verbose      bool
	sourceBucket string
	destBucket   string
	s3Endpoint   string
	s3Region     string
	verifyMode   string
	skipPatterns []string
	rateLimit    float64

	versionInfo = VersionInfo{Version: "dev", Commit: "unknown", BuildDate: "unknown"}

	// appConfig is the configuration loaded by PersistentPreRunE.
	appConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   serviceName,
	Short: "Move S3 objects to another bucket on event notifications",
	Long: `s3relocate consumes S3 event notifications and moves every referenced
object from the source bucket to the destination bucket under the same key:
copy, confirm, then delete the source.

Run with no subcommand inside AWS Lambda to serve invocations. Outside
Lambda, use 'invoke' for a single event document or 'serve' for the
webhook server.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initApp,
	RunE:              runRoot,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default ./s3relocate.yaml when present)")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&logProfile, "log-profile", "", "Log profile: structured or console")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Shorthand for --log-level=debug")

	pf.StringVar(&sourceBucket, "source-bucket", "", "Bucket objects are moved from")
	pf.StringVar(&destBucket, "destination-bucket", "", "Bucket objects are moved to")
	pf.StringVar(&s3Endpoint, "endpoint", "", "Custom S3 endpoint (LocalStack, MinIO, moto)")
	pf.StringVar(&s3Region, "region", "", "AWS region")
	pf.StringVar(&verifyMode, "verify", "", "Confirmation before deleting the source: head or none")
	pf.StringSliceVar(&skipPatterns, "skip", nil, "Glob of keys to leave in place (repeatable)")
	pf.Float64Var(&rateLimit, "rate-limit", 0, "Maximum relocations per second (0 = unlimited)")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// SetVersionInfo records build metadata for the version command and the
// /version endpoint.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
	rootCmd.Version = version
	handlers.SetBuildInfo(version, commit, buildDate)
}

// initApp loads configuration and initializes loggers before any command.
func initApp(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFile(commandContext(cmd), cfgFile, flagOverrides(cmd))
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Failed to load configuration", err)
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	if err := observability.InitLoggers(serviceName, cfg.Logging.Level, cfg.Logging.Profile); err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid logging configuration", err)
	}

	appConfig = cfg
	return nil
}

// flagOverrides collects the persistent flags set on the command line as
// a config override map.
func flagOverrides(cmd *cobra.Command) map[string]any {
	relocation := map[string]any{}
	s3 := map[string]any{}
	logging := map[string]any{}

	flags := cmd.Flags()
	if flags.Changed("source-bucket") {
		relocation["source_bucket"] = sourceBucket
	}
	if flags.Changed("destination-bucket") {
		relocation["destination_bucket"] = destBucket
	}
	if flags.Changed("verify") {
		relocation["verify"] = verifyMode
	}
	if flags.Changed("skip") {
		relocation["skip_patterns"] = skipPatterns
	}
	if flags.Changed("rate-limit") {
		relocation["rate_limit"] = rateLimit
	}
	if flags.Changed("endpoint") {
		s3["endpoint"] = s3Endpoint
	}
	if flags.Changed("region") {
		s3["region"] = s3Region
	}
	if flags.Changed("log-level") {
		logging["level"] = logLevel
	}
	if flags.Changed("log-profile") {
		logging["profile"] = logProfile
	}

	out := map[string]any{}
	for name, section := range map[string]map[string]any{
		"relocation": relocation,
		"s3":         s3,
		"logging":    logging,
	} {
		if len(section) > 0 {
			out[name] = section
		}
	}
	return out
}

func runRoot(cmd *cobra.Command, args []string) error {
	if inLambdaRuntime() {
		return runLambda(cmd, args)
	}
	return cmd.Help()
}

// inLambdaRuntime reports whether the process was started by the Lambda
// runtime.
func inLambdaRuntime() bool {
	return os.Getenv("AWS_LAMBDA_RUNTIME_API") != ""
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printf(cmd *cobra.Command, format string, args ...any) {
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}

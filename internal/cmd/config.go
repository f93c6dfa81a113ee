package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configFormat string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults, the config file, environment
variables and flags have been applied.`,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.Flags().StringVar(&configFormat, "format", "yaml", "Output format: yaml or json")
}

func runConfig(cmd *cobra.Command, args []string) error {
	var (
		out []byte
		err error
	)
	switch configFormat {
	case "yaml":
		out, err = yaml.Marshal(appConfig)
	case "json":
		out, err = json.MarshalIndent(appConfig, "", "  ")
		out = append(out, '\n')
	default:
		return exitError(foundry.ExitInvalidArgument, "Invalid --format value", fmt.Errorf("unsupported format: %s", configFormat))
	}
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Failed to encode configuration", err)
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

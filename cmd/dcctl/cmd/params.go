package cmd

import (
	"github.com/spf13/cobra"

	"github.com/distcompute/dcctl/internal/common"
	"github.com/distcompute/dcctl/internal/dcctl"
	"github.com/distcompute/dcctl/pkg/client"
)

// initParams merges flags, config files and environment into params.
func initParams(cmd *cobra.Command, params *dcctl.Params) error {
	flags := cmd.Flags()

	cfgFile, err := flags.GetString("config")
	if err != nil {
		return err
	}
	if err := client.LoadCommandlineArgsFromConfigFile(cfgFile); err != nil {
		return err
	}

	logLevel, err := flags.GetString("logLevel")
	if err != nil {
		return err
	}
	if err := common.SetLogLevel(logLevel); err != nil {
		return err
	}

	details, err := client.ExtractCommandlineApiConnectionDetails()
	if err != nil {
		return err
	}
	params.ApiConnectionDetails = details

	if params.Output, err = flags.GetString("output"); err != nil {
		return err
	}
	if params.MetricsFile, err = flags.GetString("metricsFile"); err != nil {
		return err
	}
	return nil
}

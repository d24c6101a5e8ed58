package client

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/distcompute/dcctl/internal/common"
	"github.com/distcompute/dcctl/internal/common/config"
)

const (
	EnvPrefix         = "DCCTL"
	DefaultConfigName = ".dcctl"
	defaultsFileName  = "dcctl-defaults.yaml"
)

func AddApiConnectionCommandlineArgs(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()
	flags.String("baseUrl", "http://localhost:8000", "base url of the compute platform backend")
	flags.Duration("timeout", common.DefaultRequestTimeout, "timeout of ordinary requests")
	flags.Duration("downloadTimeout", common.DefaultDownloadTimeout, "timeout of result downloads")
	flags.Duration("uploadTimeout", common.DefaultUploadTimeout, "timeout of a single upload chunk")
	flags.String("chunkSize", "100Mi", "size of the chunks large files are uploaded in")
	flags.Uint("getRetries", 2, "additional attempts for read requests that received no response")
	flags.String("tokenStore", "keyring", "where the session is kept between runs: keyring or memory")
	for _, name := range []string{"baseUrl", "timeout", "downloadTimeout", "uploadTimeout", "chunkSize", "getRetries", "tokenStore"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
}

func LoadCommandlineArgsFromConfigFile(cfgFile string) error {
	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("[LoadCommandlineArgsFromConfigFile] error finding executable path: %s", err)
	}
	viper.SetConfigFile(filepath.Join(filepath.Dir(exePath), defaultsFileName))
	if err := viper.ReadInConfig(); err != nil {
		switch err.(type) {
		case viper.ConfigFileNotFoundError:
		case *os.PathError:
			// No default config is fine
		default:
			return fmt.Errorf("[LoadCommandlineArgsFromConfigFile] error reading config file %s: %s", viper.ConfigFileUsed(), err)
		}
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return fmt.Errorf("[LoadCommandlineArgsFromConfigFile] error getting user home directory: %s", err)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(DefaultConfigName)
	}

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.MergeInConfig(); err != nil {
		switch err.(type) {
		case viper.ConfigFileNotFoundError:
			// This only occurs when looking for the default .dcctl file and it is not present
		default:
			return fmt.Errorf("[LoadCommandlineArgsFromConfigFile] error reading config file %s: %s", viper.ConfigFileUsed(), err)
		}
	}
	return nil
}

// ExtractCommandlineApiConnectionDetails decodes the merged flags, config files and environment.
func ExtractCommandlineApiConnectionDetails() (*ApiConnectionDetails, error) {
	return ExtractApiConnectionDetails(viper.GetViper())
}

func ExtractApiConnectionDetails(v *viper.Viper) (*ApiConnectionDetails, error) {
	details := &ApiConnectionDetails{}
	if err := v.Unmarshal(details, config.CustomHooks...); err != nil {
		return nil, errors.Wrap(err, "error decoding connection settings")
	}
	if err := config.Validate(details); err != nil {
		return nil, errors.Wrap(err, "invalid connection settings")
	}
	return details, nil
}

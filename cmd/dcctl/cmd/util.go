package cmd

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/distcompute/dcctl/internal/common"
)

// quantityFlag reads a flag holding a size such as 512Mi and returns it in bytes. An unset flag is 0.
func quantityFlag(flags *pflag.FlagSet, name string) (int64, error) {
	raw, err := flags.GetString(name)
	if err != nil {
		return 0, fmt.Errorf("error reading %s: %s", name, err)
	}
	if raw == "" {
		return 0, nil
	}
	n, err := common.ParseBytes(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", name, err)
	}
	return n, nil
}

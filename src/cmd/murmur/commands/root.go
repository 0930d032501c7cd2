package commands

import (
	"github.com/spf13/cobra"
)

var (
	_config = NewDefaultCLIConfig()
)

//RootCmd is the root command for murmur
var RootCmd = &cobra.Command{
	Use:              "murmur",
	Short:            "peer-to-peer timelines",
	TraverseChildren: true,
}

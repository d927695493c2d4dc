package mapcmd

import (
	"github.com/spf13/cobra"
)

// MapCmd is the parent command for location map operations
var MapCmd = &cobra.Command{
	Use:   "map",
	Short: "Manage the location map client",
	Long:  `Commands for preparing the map provider used for location evidence.`,
}

func init() {
	MapCmd.AddCommand(initCmd)
}

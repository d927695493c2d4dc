package access

import (
	"github.com/spf13/cobra"
)

// AccessCmd is the parent command for access policy operations
var AccessCmd = &cobra.Command{
	Use:   "access",
	Short: "Evaluate route access for the current session",
	Long:  `Commands for checking which screens the signed-in user may reach.`,
}

func init() {
	AccessCmd.AddCommand(checkCmd)
}

package auth

import (
	"os"

	"github.com/spf13/cobra"
)

// AuthCmd is the parent command for auth operations
var AuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage authentication",
	Long:  `Commands for signing in, signing out and inspecting the stored session.`,
}

func init() {
	AuthCmd.AddCommand(loginCmd)
	AuthCmd.AddCommand(logoutCmd)
	AuthCmd.AddCommand(statusCmd)
}

// nonInteractive reports whether prompts are disabled.
func nonInteractive() bool {
	return os.Getenv("ROLLCALL_NON_INTERACTIVE") == "1"
}

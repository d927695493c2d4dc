package auth

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/terraconstructs/rollcall/cmd/rollcall/internal/config"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget stored credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.MustFromContext(cmd.Context())
		manager, err := cfg.ClientProvider.Manager()
		if err != nil {
			return err
		}
		manager.Logout()
		pterm.Success.Println("Logged out successfully")
		return nil
	},
}

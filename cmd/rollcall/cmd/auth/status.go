package auth

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/terraconstructs/rollcall/cmd/rollcall/internal/config"
)

var offline bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display authentication status",
	Long: `Shows the stored session. Unless --offline is given the token is
validated against the server first, and an expired session is cleared.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.MustFromContext(cmd.Context())

		store, err := cfg.ClientProvider.Store()
		if err != nil {
			return err
		}
		creds, err := store.Load()
		if err != nil {
			return fmt.Errorf("failed to read credentials: %w", err)
		}
		if !creds.Restorable() {
			return fmt.Errorf("not logged in")
		}

		pterm.DefaultSection.Println("Authentication Status")
		if exp, ok := creds.ExpiresAt(); ok {
			pterm.Info.Printf("Token expires at: %s\n", exp.Local().Format(time.RFC1123))
			if creds.IsExpired() {
				pterm.Warning.Println("The stored token has expired.")
			}
		}

		if offline {
			printUser(creds.User.Email, creds.User.DisplayName(), string(creds.User.Role), creds.User.IsProfileComplete)
			return nil
		}

		session, err := cfg.ClientProvider.Restore(cmd.Context())
		if err != nil {
			return err
		}
		if !session.IsAuthenticated {
			return fmt.Errorf("session expired; please run `rollcall auth login`")
		}
		pterm.Success.Println("Token accepted by server")
		printUser(session.User.Email, session.User.DisplayName(), string(session.Role()), session.ProfileComplete())
		return nil
	},
}

func printUser(email, name, role string, complete bool) {
	profile := "incomplete"
	if complete {
		profile = "complete"
	}
	_ = pterm.DefaultTable.WithData(pterm.TableData{
		{"EMAIL", "NAME", "ROLE", "PROFILE"},
		{email, name, role, profile},
	}).WithHasHeader().Render()
}

func init() {
	statusCmd.Flags().BoolVar(&offline, "offline", false, "Show stored credentials without contacting the server")
}

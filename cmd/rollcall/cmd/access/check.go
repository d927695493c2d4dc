package access

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/terraconstructs/rollcall/cmd/rollcall/internal/config"
	"github.com/terraconstructs/rollcall/pkg/sdk"
)

var (
	roles           string
	allowIncomplete bool
	public          bool
	guestOnly       bool
	fallback        string
	offline         bool
)

var checkCmd = &cobra.Command{
	Use:   "check PATH",
	Short: "Decide whether the current session may open PATH",
	Long: `Evaluates the route guard for PATH against the stored session and prints
RENDER, REDIRECT or LOADING. The session is validated and the profile
re-checked against the server unless --offline is given.

Examples:
  rollcall access check /events/new --roles admin,organizer
  rollcall access check /profile --allow-incomplete`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.MustFromContext(cmd.Context())
		path := args[0]

		required, err := sdk.ParseRoles(roles)
		if err != nil {
			return err
		}
		route := sdk.Route{
			RequiredRoles:          required,
			AllowIncompleteProfile: allowIncomplete,
			Public:                 public,
			GuestOnly:              guestOnly,
			Fallback:               fallback,
		}

		var decision sdk.Decision
		if offline {
			store, err := cfg.ClientProvider.Store()
			if err != nil {
				return err
			}
			creds, err := store.Load()
			if err != nil {
				return fmt.Errorf("failed to read credentials: %w", err)
			}
			decision = sdk.Evaluate(offlineInput(creds, path), route)
		} else {
			if _, err := cfg.ClientProvider.Restore(cmd.Context()); err != nil {
				return err
			}
			manager, err := cfg.ClientProvider.Manager()
			if err != nil {
				return err
			}
			decision = sdk.NewGate(manager).Navigate(cmd.Context(), path, route)
		}

		printDecision(path, decision)
		return nil
	},
}

func offlineInput(creds *sdk.Credentials, path string) sdk.Input {
	in := sdk.Input{CurrentPath: path}
	if creds.Restorable() {
		in.IsAuthenticated = true
		in.Role = creds.User.Role
		in.ProfileComplete = creds.User.IsProfileComplete
	}
	return in
}

func printDecision(path string, d sdk.Decision) {
	switch d.Outcome {
	case sdk.OutcomeRender:
		pterm.Success.Printf("%s %s\n", d.Outcome, path)
	case sdk.OutcomeRedirect:
		pterm.Warning.Printf("%s %s -> %s\n", d.Outcome, path, d.Target)
		if d.Reason != "" {
			pterm.Info.Println(d.Reason)
		}
	default:
		pterm.Info.Printf("%s %s\n", d.Outcome, path)
	}
}

func init() {
	checkCmd.Flags().StringVar(&roles, "roles", "", "Comma-separated roles allowed on the route (admin, organizer, student)")
	checkCmd.Flags().BoolVar(&allowIncomplete, "allow-incomplete", false, "Do not require a complete profile")
	checkCmd.Flags().BoolVar(&public, "public", false, "Route is reachable without signing in")
	checkCmd.Flags().BoolVar(&guestOnly, "guest-only", false, "Route is for signed-out users (login screen)")
	checkCmd.Flags().StringVar(&fallback, "fallback", "", "Redirect target when the role is not allowed")
	checkCmd.Flags().BoolVar(&offline, "offline", false, "Evaluate against stored credentials without contacting the server")
}

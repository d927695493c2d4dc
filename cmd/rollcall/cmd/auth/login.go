package auth

import (
	"errors"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/terraconstructs/rollcall/cmd/rollcall/internal/config"
	"github.com/terraconstructs/rollcall/pkg/sdk"
)

var (
	email    string
	password string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the attendance platform",
	Long: `Signs in with email and password and stores the resulting tokens.

Missing values are prompted for interactively. The password can also be
supplied through ROLLCALL_PASSWORD for scripted use.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.MustFromContext(cmd.Context())

		in, err := loginInput()
		if err != nil {
			return err
		}

		manager, err := cfg.ClientProvider.Manager()
		if err != nil {
			return err
		}

		result := manager.Login(cmd.Context(), in)
		if !result.Success {
			return errors.New(result.Error)
		}

		session := manager.Session()
		pterm.Success.Printf("Signed in as %s (%s)\n", session.User.DisplayName(), session.Role())
		if result.RedirectTo == manager.Paths().Profile {
			pterm.Warning.Println("Your profile is incomplete; finish it before checking in to events.")
		}
		pterm.Info.Printf("Next screen: %s\n", result.RedirectTo)
		return nil
	},
}

func loginInput() (sdk.LoginInput, error) {
	in := sdk.LoginInput{Email: email, Password: password}
	if in.Password == "" {
		in.Password = os.Getenv("ROLLCALL_PASSWORD")
	}
	if in.Email != "" && in.Password != "" {
		return in, nil
	}
	if nonInteractive() {
		return in, fmt.Errorf("--email and --password are required in non-interactive mode")
	}

	var err error
	if in.Email == "" {
		in.Email, err = pterm.DefaultInteractiveTextInput.Show("Email")
		if err != nil {
			return in, fmt.Errorf("failed to show interactive prompt: %w", err)
		}
	}
	if in.Password == "" {
		in.Password, err = pterm.DefaultInteractiveTextInput.WithMask("*").Show("Password")
		if err != nil {
			return in, fmt.Errorf("failed to show interactive prompt: %w", err)
		}
	}
	return in, nil
}

func init() {
	loginCmd.Flags().StringVar(&email, "email", "", "Account email")
	loginCmd.Flags().StringVar(&password, "password", "", "Account password (prefer ROLLCALL_PASSWORD)")
}

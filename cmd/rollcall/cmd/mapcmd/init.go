package mapcmd

import (
	"context"
	"errors"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/terraconstructs/rollcall/cmd/rollcall/internal/config"
	"github.com/terraconstructs/rollcall/pkg/sdk/capture"
)

var showToken bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Obtain a map provider access token",
	Long: `Initializes the map client. A token configured through map_token
(or ROLLCALL_MAP_TOKEN) is used as is; otherwise one is requested from the
server's token endpoint with the stored credentials.

A missing token is reported as a warning: location features degrade, they do
not fail.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.MustFromContext(cmd.Context())

		api, err := cfg.ClientProvider.SDKClient()
		if err != nil {
			return err
		}

		handle := capture.NewMapHandle(cfg.Settings.MapToken)
		location := capture.NewLocation(api, []capture.MapClient{handle}, capture.WithLogger(cfg.Logger))

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		ready, err := location.Initialize(ctx)
		if errors.Is(err, capture.ErrTokenNotConfigured) {
			pterm.Warning.Printf("Map unavailable: %v\n", err)
			return nil
		}
		if err != nil {
			return err
		}

		token := ready.Token
		if !showToken {
			token = mask(token)
		}
		pterm.Success.Printf("Map client ready (token %s)\n", token)
		return nil
	},
}

func mask(token string) string {
	if len(token) <= 8 {
		return "********"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

func init() {
	initCmd.Flags().BoolVar(&showToken, "show-token", false, "Print the full token")
}

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/terraconstructs/rollcall/cmd/rollcall/cmd/access"
	"github.com/terraconstructs/rollcall/cmd/rollcall/cmd/auth"
	"github.com/terraconstructs/rollcall/cmd/rollcall/cmd/capture"
	"github.com/terraconstructs/rollcall/cmd/rollcall/cmd/mapcmd"
	"github.com/terraconstructs/rollcall/cmd/rollcall/cmd/serve"
	"github.com/terraconstructs/rollcall/cmd/rollcall/internal/client"
	"github.com/terraconstructs/rollcall/cmd/rollcall/internal/config"
	"github.com/terraconstructs/rollcall/internal/logging"
)

var (
	serverURL  string
	configPath string
	logLevel   string
	logFormat  string
	storageDir string
)

var rootCmd = &cobra.Command{
	Use:   "rollcall",
	Short: "Rollcall - event attendance client",
	Long: `rollcall is the command-line client for the event attendance platform.
Use it to sign in, inspect your session, check which screens your role can
reach, prepare photo evidence and run a guarded kiosk server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		overrides := map[string]any{}
		flags := cmd.Flags()
		if flags.Changed("server") {
			overrides["server_url"] = serverURL
		}
		if flags.Changed("log-level") {
			overrides["log_level"] = logLevel
		}
		if flags.Changed("log-format") {
			overrides["log_format"] = logFormat
		}
		if flags.Changed("storage-dir") {
			overrides["storage_dir"] = storageDir
		}

		path, required := configPath, flags.Changed("config")
		if path == "" {
			path = defaultConfigPath()
		}
		settings, err := config.Load(path, required, overrides)
		if err != nil {
			return err
		}

		logger := logging.New(logging.Config{
			Level:  settings.LogLevel,
			Format: logging.Format(settings.LogFormat),
			Output: os.Stderr,
		})

		cfg := &config.GlobalConfig{
			Settings:       settings,
			Logger:         logger,
			ClientProvider: client.NewProvider(settings.ServerURL, settings.StorageDir, logger),
		}
		cmd.SetContext(config.InjectConfig(cmd.Context(), cfg))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if cfg, ok := config.FromContext(cmd.Context()); ok {
			cfg.ClientProvider.Close()
		}
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "rollcall", "config.yaml")
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8000", "Attendance API server URL (also ROLLCALL_SERVER_URL)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/rollcall/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")
	rootCmd.PersistentFlags().StringVar(&storageDir, "storage-dir", "", "Credential directory (default ~/.rollcall)")
	rootCmd.AddCommand(auth.AuthCmd)
	rootCmd.AddCommand(access.AccessCmd)
	rootCmd.AddCommand(capture.CaptureCmd)
	rootCmd.AddCommand(mapcmd.MapCmd)
	rootCmd.AddCommand(serve.ServeCmd)
}

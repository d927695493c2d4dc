package capture

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/terraconstructs/rollcall/cmd/rollcall/internal/config"
	sdkcapture "github.com/terraconstructs/rollcall/pkg/sdk/capture"
)

var (
	maxSizeMB    float64
	allowedTypes []string
	maxFiles     int
)

var validateCmd = &cobra.Command{
	Use:   "validate FILE...",
	Short: "Check files against the upload rules",
	Long: `Validates every file independently against size, type and count limits.
Each file is reported on its own; one bad file does not hide the others.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := config.MustFromContext(cmd.Context()).Logger

		table := pterm.TableData{{"FILE", "TYPE", "SIZE", "RESULT"}}
		unreadable := 0
		files := make([]sdkcapture.File, 0, len(args))
		for _, path := range args {
			f, err := sdkcapture.OpenFile(path)
			if err != nil {
				logger.Debug("unreadable file", "path", path, "error", err)
				table = append(table, []string{path, "-", "-", pterm.Red(flatten(err))})
				unreadable++
				continue
			}
			files = append(files, f)
		}

		opts := sdkcapture.FileOptions{
			MaxSize:      int64(maxSizeMB * (1 << 20)),
			AllowedTypes: allowedTypes,
			MaxFiles:     maxFiles,
		}
		sel := sdkcapture.HandleFileSelection(files, opts)

		for _, r := range sel.Results {
			result := pterm.Green("ok")
			if !r.Success {
				result = pterm.Red(flatten(r.Err))
			}
			table = append(table, []string{r.File.Name, r.File.Type, fmt.Sprintf("%d", r.File.Size), result})
		}
		_ = pterm.DefaultTable.WithHasHeader().WithData(table).Render()

		if failed := len(sel.Failed()) + unreadable; failed > 0 {
			return fmt.Errorf("%d of %d file(s) rejected", failed, len(args))
		}
		return nil
	},
}

func flatten(err error) string {
	if err == nil {
		return ""
	}
	return strings.ReplaceAll(err.Error(), "\n", "; ")
}

func init() {
	validateCmd.Flags().Float64Var(&maxSizeMB, "max-size", 5, "Maximum size per file in MiB (0 for no limit)")
	validateCmd.Flags().StringSliceVar(&allowedTypes, "types", sdkcapture.DefaultFileOptions.AllowedTypes, "Allowed media types; wildcards such as image/* are accepted")
	validateCmd.Flags().IntVar(&maxFiles, "max-files", 0, "Maximum number of accepted files (0 for no limit)")
}

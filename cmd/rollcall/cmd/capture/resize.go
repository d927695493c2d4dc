package capture

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	sdkcapture "github.com/terraconstructs/rollcall/pkg/sdk/capture"
)

var (
	maxWidth  int
	maxHeight int
	quality   float64
	format    string
	outPath   string
)

var resizeCmd = &cobra.Command{
	Use:   "resize FILE",
	Short: "Downscale an image to fit upload bounds",
	Long: `Decodes FILE, scales it to fit within --max-width x --max-height keeping the
aspect ratio, and re-encodes it. Images already within bounds are never
enlarged.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := sdkcapture.OpenFile(args[0])
		if err != nil {
			return err
		}

		out, err := sdkcapture.ResizeImage(f, sdkcapture.ResizeOptions{
			MaxWidth:  maxWidth,
			MaxHeight: maxHeight,
			Quality:   quality,
			Format:    format,
		})
		if err != nil {
			return err
		}

		dest := outPath
		if dest == "" {
			dest = defaultOutput(args[0], out.Format)
		}
		if err := os.WriteFile(dest, out.Data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", dest, err)
		}

		pterm.Success.Printf("Wrote %s (%dx%d, %s, %d bytes)\n", dest, out.Width, out.Height, out.Format, len(out.Data))
		return nil
	},
}

func defaultOutput(src, format string) string {
	ext := ".jpg"
	if format == "image/png" {
		ext = ".png"
	}
	base := strings.TrimSuffix(src, filepath.Ext(src))
	return base + "-resized" + ext
}

func init() {
	resizeCmd.Flags().IntVar(&maxWidth, "max-width", sdkcapture.DefaultResizeOptions.MaxWidth, "Maximum output width in pixels")
	resizeCmd.Flags().IntVar(&maxHeight, "max-height", sdkcapture.DefaultResizeOptions.MaxHeight, "Maximum output height in pixels")
	resizeCmd.Flags().Float64Var(&quality, "quality", sdkcapture.DefaultResizeOptions.Quality, "JPEG quality between 0 and 1")
	resizeCmd.Flags().StringVar(&format, "format", sdkcapture.DefaultResizeOptions.Format, "Output format: image/jpeg or image/png")
	resizeCmd.Flags().StringVarP(&outPath, "output", "o", "", "Output path (default FILE-resized.jpg)")
}

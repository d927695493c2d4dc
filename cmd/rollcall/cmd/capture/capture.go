package capture

import (
	"github.com/spf13/cobra"
)

// CaptureCmd is the parent command for photo evidence operations
var CaptureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Prepare photo evidence for check-in",
	Long:  `Commands for validating and resizing images before they are uploaded as attendance evidence.`,
}

func init() {
	CaptureCmd.AddCommand(validateCmd)
	CaptureCmd.AddCommand(resizeCmd)
}

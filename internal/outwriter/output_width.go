package outwriter

import (
	"os"

	"github.com/huangsam/qualgate/internal/contract"
	"golang.org/x/term"
)

// getMaxTableTextWidth calculates the maximum width for free text (issues, messages)
// in table output based on terminal width.
func getMaxTableTextWidth(cfg *contract.Config) int {
	var termWidth int

	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		termWidth = cfg.Width
	}

	if termWidth == 0 {
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			termWidth = 80 // Conservative default for narrow terminals and CI
		} else {
			termWidth = detectedWidth
		}
	}

	// Name + Score + Threshold + Verdict columns with borders/padding
	baseWidth := 50
	if cfg.Detailed {
		baseWidth += 12 // Time column
	}

	available := termWidth - baseWidth
	if available < 20 {
		return 20
	}
	if available > 90 {
		return 90
	}
	return available
}

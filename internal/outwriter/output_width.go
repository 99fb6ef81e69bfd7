package outwriter

import (
	"os"

	"github.com/huangsam/prscore/internal/contract"
	"golang.org/x/term"
)

const (
	defaultTermWidth = 80
	minTextWidth     = 15
	maxTextWidth     = 70
)

// getMaxTextWidth returns the width left for a free-text column once the fixed
// columns of a table are reserved.
func getMaxTextWidth(cfg *contract.Config, reserved int) int {
	termWidth := cfg.Width
	if termWidth <= 0 {
		detected, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detected <= 0 {
			termWidth = defaultTermWidth // CI and pipes
		} else {
			termWidth = detected
		}
	}

	// Borders, separators and padding
	available := termWidth - reserved - 20
	return max(minTextWidth, min(available, maxTextWidth))
}

package outwriter

import (
	"os"

	"github.com/huangsam/hourglass/internal/contract"
	"golang.org/x/term"
)

// getMaxTextWidth calculates the maximum width for free-text columns
// (repository, title) in timeline tables based on terminal width.
func getMaxTextWidth(cfg *contract.Config) int {
	var termWidth int

	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		termWidth = cfg.Width
	}

	if termWidth == 0 { // Not set by override
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			// Conservative default for narrow terminals and CI
			termWidth = 80
		} else {
			termWidth = detectedWidth
		}
	}

	// Timestamp + User + Source + Kind + Reference with borders/padding
	baseWidth := 75

	// The two free-text columns share what is left
	available := (termWidth - baseWidth) / 2
	if available < 12 {
		return 12
	}
	if available > 60 {
		return 60
	}
	return available
}

// truncateText shortens s to maxWidth runes with a trailing ellipsis.
func truncateText(s string, maxWidth int) string {
	runes := []rune(s)
	if len(runes) <= maxWidth || maxWidth <= 3 {
		return s
	}
	return string(runes[:maxWidth-3]) + "..."
}

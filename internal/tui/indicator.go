package tui

import (
	"fmt"

	"github.com/mmcdole/perch/internal/activity"
	"github.com/mmcdole/perch/internal/tui/styles"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// RenderSpinner renders a loading spinner
func RenderSpinner(frame int) string {
	if frame < 0 {
		frame = -frame
	}
	return styles.SpinnerStyle.Render(spinnerFrames[frame%len(spinnerFrames)])
}

// RenderIndicator renders the header sync indicator for status
func RenderIndicator(status activity.Status, frame int) string {
	switch status {
	case activity.Syncing:
		return RenderSpinner(frame) + " " + styles.DimStyle.Render("syncing")
	case activity.Success:
		return styles.SuccessStyle.Render(styles.SuccessChar + " synced")
	case activity.Error:
		return styles.ErrorStyle.Render(styles.ErrorChar + " sync failed")
	default:
		return styles.DimStyle.Render(styles.IdleChar)
	}
}

// RenderPendingBadge renders the queued-writes badge, or "" when none
func RenderPendingBadge(pending int) string {
	if pending <= 0 {
		return ""
	}
	return styles.BadgeStyle.Render(fmt.Sprintf("%d pending", pending))
}

package cli

import (
	"github.com/fatih/color"

	"github.com/roach88/tasksync/internal/checklist"
)

// Sprint color functions for text output. fatih/color disables them when
// stdout is not a terminal or NO_COLOR is set.
var (
	bold   = color.New(color.Bold).SprintFunc()
	dim    = color.New(color.Faint).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
)

// statusMark renders a status as a checkbox.
func statusMark(s checklist.Status) string {
	switch s {
	case checklist.StatusCompleted:
		return green("[x]")
	case checklist.StatusInProgress:
		return yellow("[-]")
	default:
		return "[ ]"
	}
}

func yesNo(b bool) string {
	if b {
		return yellow("yes")
	}
	return green("no")
}

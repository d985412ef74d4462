package ui

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

// Sprint color functions for building styled strings.
var (
	Bold        = color.New(color.Bold).SprintFunc()
	Dim         = color.New(color.Faint).SprintFunc()
	Cyan        = color.New(color.FgCyan).SprintFunc()
	Green       = color.New(color.FgGreen).SprintFunc()
	Red         = color.New(color.FgRed).SprintFunc()
	Yellow      = color.New(color.FgYellow).SprintFunc()
	Magenta     = color.New(color.FgMagenta).SprintFunc()
	BoldCyan    = color.New(color.Bold, color.FgCyan).SprintFunc()
	BoldGreen   = color.New(color.Bold, color.FgGreen).SprintFunc()
	BoldRed     = color.New(color.Bold, color.FgRed).SprintFunc()
	BoldYellow  = color.New(color.Bold, color.FgYellow).SprintFunc()
	BoldMagenta = color.New(color.Bold, color.FgMagenta).SprintFunc()
	BoldWhite   = color.New(color.Bold, color.FgWhite).SprintFunc()
)

// PrintLogo renders the colored AnimTycoon logo to stderr.
func PrintLogo() {
	w := os.Stderr
	frame := color.New(color.FgCyan)
	cells := color.New(color.FgYellow)
	sep := color.New(color.FgCyan)
	brand := color.New(color.Bold, color.FgMagenta)
	tag := color.New(color.Faint)

	fmt.Fprintln(w)
	frame.Fprintln(w, "   +------------------------------+")
	cells.Fprintln(w, "   |  ▣  ▣  ▣  ▣  ▣  ▣  ▣  ▣  ▣  |")
	sep.Fprintln(w, "   |==============================|")
	brand.Fprintln(w, "   |  A N I M  T Y C O O N        |")
	sep.Fprintln(w, "   |==============================|")
	cells.Fprintln(w, "   |  ▣  ▣  ▣  ▣  ▣  ▣  ▣  ▣  ▣  |")
	frame.Fprintln(w, "   +------------------------------+")
	tag.Fprintf(w, "   %s Production schedule resolution\n", Dim("🎬"))
	fmt.Fprintln(w)
}

// taskColors is a palette of distinct bold colors for differentiating tasks.
var taskColors = []func(a ...interface{}) string{
	BoldMagenta,
	BoldCyan,
	BoldYellow,
	BoldGreen,
	color.New(color.Bold, color.FgHiBlue).SprintFunc(),
	color.New(color.Bold, color.FgHiRed).SprintFunc(),
}

// taskColorIndex hashes a task ID to a palette index.
func taskColorIndex(taskID string) int {
	var h uint32
	for _, c := range taskID {
		h = h*31 + uint32(c)
	}
	return int(h % uint32(len(taskColors)))
}

// TaskPrefix returns a colored [task-id] prefix string.
// Each task ID gets a distinct color from the palette.
func TaskPrefix(taskID string) string {
	c := taskColors[taskColorIndex(taskID)]
	return Dim("[") + c(taskID) + Dim("]")
}

// RiskIcon returns a colored icon for a risk level in compact table display.
func RiskIcon(level string) string {
	switch level {
	case "on_track":
		return Green("✓")
	case "at_risk":
		return Yellow("◐")
	case "late":
		return Red("✗")
	default:
		return Dim("◌")
	}
}

// RiskLabel returns a colored risk level string.
func RiskLabel(level string) string {
	switch level {
	case "on_track":
		return Green("on track")
	case "at_risk":
		return BoldYellow("at risk")
	case "late":
		return BoldRed("late")
	default:
		return Dim(level)
	}
}

// ReasonLabel returns a colored conflict reason string.
func ReasonLabel(reason string) string {
	switch reason {
	case "capacity_deficit":
		return Yellow("capacity deficit")
	case "capability_mismatch":
		return Red("capability mismatch")
	case "calendar_exhaustion":
		return Magenta("calendar exhaustion")
	default:
		return Dim(reason)
	}
}

package logging

import "github.com/fatih/color"

// Level letters are colored per level; the header (timestamp and caller) is
// dimmed. fatih/color disables itself when the destination is not a terminal.
var (
	headerColor = color.New(color.FgWhite)

	errorColor = color.New(color.FgRed, color.Bold)
	warnColor  = color.New(color.FgRed)
	infoColor  = color.New(color.Reset)
	debugColor = color.New(color.FgGreen)
	traceColor = color.New(color.FgYellow)
)

// DisableColor turns off colored output for every logger. Used by tests and by
// the CLI's --no-color flag.
func DisableColor() {
	color.NoColor = true
}

package diagnostics

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/fatih/color"
)

type colorer interface {
	title() *color.Color
	highlight() *color.Color
	label() string
}

type errorColorer struct{}

func (errorColorer) title() *color.Color     { return color.New(color.FgRed, color.Bold) }
func (errorColorer) highlight() *color.Color { return color.New(color.FgRed, color.Bold) }
func (errorColorer) label() string           { return "error" }

type warningColorer struct{}

func (warningColorer) title() *color.Color     { return color.New(color.FgYellow, color.Bold) }
func (warningColorer) highlight() *color.Color { return color.New(color.FgYellow, color.Bold) }
func (warningColorer) label() string           { return "warning" }

// writePretty renders a single diagnostic with its source context, rustc
// style: message, file arrow, the offending line and a caret underline.
func writePretty(buf *bytes.Buffer, fileName, text string, span Span, message string, c colorer) {
	lineNum := strings.Count(text[:clamp(span.Start, len(text))], "\n")
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")

	lineStart := 0
	for i := 0; i < lineNum; i++ {
		if idx := strings.Index(text[lineStart:], "\n"); idx >= 0 {
			lineStart += idx + 1
		}
	}

	descColor := color.New(color.Bold)
	arrowColor := color.New(color.FgCyan, color.Bold)
	fileColor := color.New(color.Underline)
	gutterColor := color.New(color.FgCyan, color.Bold)

	c.title().Fprint(buf, c.label())
	fmt.Fprint(buf, ": ")
	descColor.Fprintf(buf, "%s\n", message)
	arrowColor.Fprint(buf, "  --> ")
	fileColor.Fprintf(buf, "%s:%d\n", fileName, lineNum+1)
	gutterColor.Fprint(buf, "   | \n")

	if lineNum < len(lines) {
		line := lines[lineNum]
		startInLine := clamp(span.Start-lineStart, len(line))
		endInLine := clamp(startInLine+(span.End-span.Start), len(line))

		gutterColor.Fprintf(buf, "%2d | ", lineNum+1)
		fmt.Fprint(buf, line[:startInLine])
		c.highlight().Fprint(buf, line[startInLine:endInLine])
		fmt.Fprintf(buf, "%s\n", line[endInLine:])

		gutterColor.Fprint(buf, "   | ")
		fmt.Fprint(buf, strings.Repeat(" ", startInLine))
		if endInLine > startInLine {
			c.highlight().Fprintf(buf, "%s\n", strings.Repeat("^", endInLine-startInLine))
		} else {
			c.highlight().Fprint(buf, "^\n")
		}
	}

	gutterColor.Fprint(buf, "   | \n")
}

func clamp(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// Package ui renders terminal output for the schemaforge commands.
package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/pterm/pterm"

	"github.com/schemaforge/schemaforge/diagnostics"
	"github.com/schemaforge/schemaforge/migrate/diff"
)

var (
	// Colors
	PrimaryColor   = lipgloss.Color("#00D9FF")
	SuccessColor   = lipgloss.Color("#00FF88")
	WarningColor   = lipgloss.Color("#FFB800")
	ErrorColor     = lipgloss.Color("#FF4444")
	SecondaryColor = lipgloss.Color("#6C757D")

	// Styles
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true).
			MarginBottom(1)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)

	InfoStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor)

	SecondaryStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor)
)

// PrintHeader prints a boxed title with a subtitle underneath.
func PrintHeader(title string, subtitle string) {
	width := 80
	if w := pterm.GetTerminalWidth(); w > 0 {
		width = w
	}

	header := lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Padding(1, 2).
		Render(
			lipgloss.JoinVertical(
				lipgloss.Center,
				TitleStyle.Render(title),
				SecondaryStyle.Render(subtitle),
			),
		)

	fmt.Println(header)
	fmt.Println()
}

// PrintSuccess prints a success message.
func PrintSuccess(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	fmt.Println(SuccessStyle.Render("✓ " + message))
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, ErrorStyle.Render("✗ "+message))
}

// PrintWarning prints a warning message.
func PrintWarning(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	fmt.Println(WarningStyle.Render("⚠ " + message))
}

// PrintInfo prints an informational message.
func PrintInfo(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	fmt.Println(InfoStyle.Render("ℹ " + message))
}

// PrintStep prints a step indicator like [2/5].
func PrintStep(step int, total int, message string) {
	stepStyle := lipgloss.NewStyle().
		Foreground(SecondaryColor).
		Render(fmt.Sprintf("[%d/%d]", step, total))

	fmt.Printf("%s %s\n", stepStyle, message)
}

// PrintTable prints a table using pterm.
func PrintTable(headers []string, rows [][]string) {
	tableData := pterm.TableData{headers}
	tableData = append(tableData, rows...)
	pterm.DefaultTable.WithHasHeader().WithData(tableData).Render()
}

// PrintList prints a bulleted list.
func PrintList(items []string) {
	for _, item := range items {
		fmt.Printf("  • %s\n", item)
	}
}

// PrintMarkdown renders markdown content with glamour.
func PrintMarkdown(content string) error {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return err
	}

	out, err := r.Render(content)
	if err != nil {
		return err
	}

	fmt.Print(out)
	return nil
}

// PrintBox prints content in a rounded box under a title.
func PrintBox(title string, content string) {
	width := 80
	if w := pterm.GetTerminalWidth(); w > 0 {
		width = w
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Padding(1, 2).
		Width(width).
		Render(
			lipgloss.JoinVertical(
				lipgloss.Left,
				TitleStyle.Render(title),
				content,
			),
		)

	fmt.Println(box)
}

// ProgressBar returns a progress bar sized for total steps.
func ProgressBar(total int) *pterm.ProgressbarPrinter {
	return pterm.DefaultProgressbar.WithTotal(total)
}

// Spinner starts and returns a spinner with the given message.
func Spinner(message string) (*pterm.SpinnerPrinter, error) {
	spinner := pterm.DefaultSpinner.WithText(message)
	return spinner.Start()
}

// PrintSection prints an underlined section header.
func PrintSection(title string) {
	width := 80
	if w := pterm.GetTerminalWidth(); w > 0 {
		width = w
	}

	section := lipgloss.NewStyle().
		Width(width).
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(SecondaryColor).
		Padding(0, 0, 1, 0).
		Render(title)

	fmt.Println(section)
}

// PrintSQL prints SQL statements in a styled block.
func PrintSQL(statements []string) {
	codeStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(SecondaryColor).
		Padding(1).
		Width(80)

	fmt.Println(SecondaryStyle.Render(" sql "))
	fmt.Println(codeStyle.Render(strings.Join(statements, "\n")))
}

// PrintPlan prints a migration plan as a step table, marking destructive
// steps and listing the plan's warnings.
func PrintPlan(plan *diff.Plan) {
	if plan.IsEmpty() {
		PrintInfo("No changes detected, database is in sync")
		return
	}

	rows := make([][]string, 0, len(plan.Steps))
	for i, step := range plan.Steps {
		marker := ""
		if step.Destructive {
			marker = WarningStyle.Render("destructive")
		}
		if step.RequiresDataMigration {
			marker = ErrorStyle.Render("data migration")
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			string(step.Kind),
			step.Describe(),
			marker,
		})
	}
	PrintTable([]string{"#", "Kind", "Change", ""}, rows)

	for _, w := range plan.Warnings {
		PrintWarning("%s", w)
	}
}

// PrintDiagnostics prints validation errors and warnings in source order.
func PrintDiagnostics(diags *diagnostics.Diagnostics) {
	for _, e := range diags.Errors() {
		PrintError("%s", e.Message())
	}
	for _, w := range diags.Warnings() {
		PrintWarning("%s", w.Message())
	}
}

// ColorPrint writes formatted output through a fatih/color printer.
func ColorPrint(c *color.Color, format string, args ...interface{}) {
	c.Printf(format, args...)
}

// ColorPrinters returns the printers shared by commands that bypass lipgloss.
func ColorPrinters() map[string]*color.Color {
	return map[string]*color.Color{
		"success": color.New(color.FgGreen, color.Bold),
		"error":   color.New(color.FgRed, color.Bold),
		"warning": color.New(color.FgYellow, color.Bold),
		"info":    color.New(color.FgCyan),
		"primary": color.New(color.FgCyan, color.Bold),
	}
}

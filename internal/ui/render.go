package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Detail is one key/value row in a result box
type Detail struct {
	Key   string
	Value string
}

// Printer writes result boxes to a writer
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
	}
}

// SetWidth overrides the detected terminal width
func (p *Printer) SetWidth(width int) *Printer {
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}
	p.width = width
	return p
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// PrintSuccess prints a success result box
func (p *Printer) PrintSuccess(title string, details []Detail) {
	p.Println(RenderSuccessBox(title, details, p.width))
}

// PrintError prints an error result box with troubleshooting tips
func (p *Printer) PrintError(title string, err error, troubleshooting []string) {
	p.Println(RenderErrorBox(title, err, troubleshooting, p.width))
}

// RenderSuccessBox renders a success result box
func RenderSuccessBox(title string, details []Detail, width int) string {
	var lines []string

	lines = append(lines, "")
	lines = append(lines, SuccessTitleStyle.Render(SuccessMarker+"  "+title))
	lines = append(lines, "")

	for _, d := range details {
		lines = append(lines, ResultKeyStyle.Render(d.Key+":")+" "+ResultValueStyle.Render(d.Value))
	}
	if len(details) > 0 {
		lines = append(lines, "")
	}

	return SuccessBoxStyle(width).Render(strings.Join(lines, "\n"))
}

// RenderErrorBox renders an error result box with troubleshooting
func RenderErrorBox(title string, err error, troubleshooting []string, width int) string {
	var lines []string

	lines = append(lines, "")
	lines = append(lines, ErrorTitleStyle.Render(FailureMarker+"  "+title))
	lines = append(lines, "")

	if err != nil {
		lines = append(lines, ErrorMessageStyle.Render("Error: "+err.Error()))
		lines = append(lines, "")
	}

	if len(troubleshooting) > 0 {
		troubleLines := []string{TroubleshootingTitleStyle.Render("Troubleshooting:")}
		for _, tip := range troubleshooting {
			troubleLines = append(troubleLines, TroubleshootingItemStyle.Render("• "+tip))
		}
		lines = append(lines, TroubleshootingBoxStyle(width).Render(strings.Join(troubleLines, "\n")))
		lines = append(lines, "")
	}

	return ErrorBoxStyle(width).Render(strings.Join(lines, "\n"))
}

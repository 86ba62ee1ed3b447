package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/sokinpui/recon/model"
)

var (
	HeaderColor  = color.New(color.FgBlue, color.Bold)
	InfoColor    = color.New(color.FgCyan)
	SuccessColor = color.New(color.FgGreen)
	WarningColor = color.New(color.FgYellow)
	ErrorColor   = color.New(color.FgRed)
	PathColor    = color.New(color.FgYellow)
	FaintColor   = color.New(color.Faint)
)

// Output is where console messages go.
var Output io.Writer = os.Stderr

func Header(format string, a ...interface{}) {
	HeaderColor.Fprintf(Output, format+"\n", a...)
}

func Info(format string, a ...interface{}) {
	InfoColor.Fprintf(Output, format+"\n", a...)
}

func Success(format string, a ...interface{}) {
	SuccessColor.Fprintf(Output, format+"\n", a...)
}

func Warning(format string, a ...interface{}) {
	WarningColor.Fprintf(Output, format+"\n", a...)
}

func Error(format string, a ...interface{}) {
	ErrorColor.Fprintf(Output, format+"\n", a...)
}

func Path(format string, a ...interface{}) {
	PathColor.Fprintf(Output, "  "+format+"\n", a...)
}

// --- Summaries ---

// PrintSummary prints the outcome of a run.
func PrintSummary(s model.Summary) {
	Header("\n--- Reconcile Summary ---")
	if s.Message != "" {
		Info("%s", s.Message)
	}
	if s.Strategy != "" {
		FaintColor.Fprintf(Output, "extracted via %s\n", s.Strategy)
	}

	if len(s.Created) == 0 && len(s.Modified) == 0 && len(s.Deleted) == 0 && len(s.Failed) == 0 {
		Info("No files were updated.")
	}
	printList(SuccessColor, "Created %d new file(s):", s.Created)
	printList(SuccessColor, "Modified %d file(s):", s.Modified)
	printList(WarningColor, "Deleted %d file(s):", s.Deleted)
	printList(ErrorColor, "Failed to process %d file(s):", s.Failed)

	for _, p := range s.Previews {
		PrintPreview(p)
	}
}

func printList(c *color.Color, title string, files []string) {
	if len(files) == 0 {
		return
	}
	c.Fprintf(Output, title+"\n", len(files))
	for _, f := range files {
		fmt.Fprintf(Output, "  - %s\n", f)
	}
}

// PrintPreview prints a line diff with added and removed lines colored.
func PrintPreview(diff string) {
	fmt.Fprintln(Output)
	for _, line := range strings.SplitAfter(diff, "\n") {
		switch {
		case line == "":
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			HeaderColor.Fprint(Output, line)
		case strings.HasPrefix(line, "+"):
			SuccessColor.Fprint(Output, line)
		case strings.HasPrefix(line, "-"):
			ErrorColor.Fprint(Output, line)
		default:
			fmt.Fprint(Output, line)
		}
	}
}

// --- Progress Bar ---

type ProgressBar struct {
	total   int
	prefix  string
	current int
}

func NewProgressBar(total int, prefix string) *ProgressBar {
	return &ProgressBar{total: total, prefix: prefix}
}

func (p *ProgressBar) Start() {
	p.draw()
}

// Set moves the bar to current.
func (p *ProgressBar) Set(current int) {
	p.current = current
	p.draw()
}

func (p *ProgressBar) Finish() {
	fmt.Fprintln(Output)
}

func (p *ProgressBar) draw() {
	if p.total == 0 {
		return
	}
	const barLength = 40
	percent := float64(p.current) / float64(p.total)
	filledLength := int(percent * barLength)
	bar := strings.Repeat("█", filledLength) + strings.Repeat("-", barLength-filledLength)

	percentStr := fmt.Sprintf("%.1f%%", percent*100)
	countStr := fmt.Sprintf("[%d/%d]", p.current, p.total)

	fmt.Fprintf(Output, "\r%s |%s| %s %s", p.prefix, bar, countStr, percentStr)
}

package ui

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/sokinpui/recon/model"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevNoColor := Output, color.NoColor
	Output, color.NoColor = &buf, true
	t.Cleanup(func() { Output, color.NoColor = prevOut, prevNoColor })
	return &buf
}

func TestPrintSummary(t *testing.T) {
	buf := capture(t)
	PrintSummary(model.Summary{
		Created:  []string{"a.go"},
		Deleted:  []string{"b.go"},
		Failed:   []string{"c.go"},
		Message:  "Applied 2 edit(s)",
		Strategy: "fenced_block",
	})

	out := buf.String()
	assert.Contains(t, out, "Applied 2 edit(s)")
	assert.Contains(t, out, "extracted via fenced_block")
	assert.Contains(t, out, "Created 1 new file(s):\n  - a.go\n")
	assert.Contains(t, out, "Deleted 1 file(s):\n  - b.go\n")
	assert.Contains(t, out, "Failed to process 1 file(s):\n  - c.go\n")
	assert.NotContains(t, out, "Modified")
}

func TestPrintSummaryEmpty(t *testing.T) {
	buf := capture(t)
	PrintSummary(model.Summary{})
	assert.Contains(t, buf.String(), "No files were updated.")
}

func TestProgressBar(t *testing.T) {
	buf := capture(t)
	bar := NewProgressBar(4, "Writing")
	bar.Start()
	bar.Set(1)
	bar.Set(4)
	bar.Finish()
	assert.Contains(t, buf.String(), "[1/4] 25.0%")
	assert.Contains(t, buf.String(), "[4/4] 100.0%")
}

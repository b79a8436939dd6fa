package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

// ProgressBar shows how many collected items have finished, split into
// passed and failed
type ProgressBar struct {
	bar   *progressbar.ProgressBar
	label string
	total int
}

// NewProgressBar creates a progress bar for count items on stderr
func NewProgressBar(count int) *ProgressBar {
	return NewProgressBarTo(os.Stderr, "Running items", count)
}

// NewProgressBarTo creates a progress bar writing to w
func NewProgressBarTo(w io.Writer, label string, count int) *ProgressBar {
	p := &ProgressBar{label: label, total: count}
	p.bar = progressbar.NewOptions(count,
		progressbar.OptionSetDescription(p.describe(0, 0)),
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        color.CyanString("█"),
			SaucerHead:    color.CyanString("█"),
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(w),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
	return p
}

func (p *ProgressBar) describe(successCount, failCount int) string {
	return color.CyanString("%s: ", p.label) +
		color.GreenString("[passed: %d", successCount) +
		" | " +
		color.RedString("failed: %d]", failCount) +
		fmt.Sprintf(" of %d", p.total)
}

// Update updates the progress bar with success and failure counts
func (p *ProgressBar) Update(successCount, failCount int) {
	p.bar.Set(successCount + failCount)
	p.bar.Describe(p.describe(successCount, failCount))
}

// Finish completes the progress bar
func (p *ProgressBar) Finish() {
	p.bar.Finish()
}

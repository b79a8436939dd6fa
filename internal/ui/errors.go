package ui

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"nbtp/internal/config"
	"nbtp/internal/domain"
	"nbtp/internal/storage"
)

const maxTraceLines = 30

// ErrorViewer displays failures in an interactive TUI
type ErrorViewer struct {
	config  *config.Config
	storage storage.Storage
}

// NewErrorViewer creates a new ErrorViewer
func NewErrorViewer(cfg *config.Config, st storage.Storage) *ErrorViewer {
	return &ErrorViewer{
		config:  cfg,
		storage: st,
	}
}

// View displays failures in an interactive TUI. Toggling R marks a failure
// resolved and persists it
func (ev *ErrorViewer) View(results *domain.ResultsOutput) error {
	if len(results.Details) == 0 {
		color.Green("✓ No test failures found!")
		return nil
	}

	app := tview.NewApplication()

	list := tview.NewList().
		ShowSecondaryText(false).
		SetHighlightFullLine(true)

	for i := range results.Details {
		list.AddItem(listItemText(results.Details[i], i), "", 0, nil)
	}

	list.SetMainTextColor(tview.Styles.PrimaryTextColor).
		SetSelectedTextColor(tcell.ColorWhite).
		SetSelectedBackgroundColor(tcell.ColorDarkCyan).
		SetSecondaryTextColor(tview.Styles.SecondaryTextColor)

	// Stats header above the details (path and item)
	statsView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false).
		SetWordWrap(false)

	detailsView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(true).
		SetWordWrap(true)

	detailsContainer := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(detailsView, 0, 1, false).
		AddItem(tview.NewBox(), 2, 0, false)

	rightSide := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(statsView, 3, 0, false).
		AddItem(detailsContainer, 0, 1, false)

	// list on left (1/3), details on right (2/3)
	flex := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(list, 0, 1, true).
		AddItem(rightSide, 0, 2, false)

	headerView := tview.NewTextView().
		SetTextAlign(tview.AlignCenter).
		SetDynamicColors(true)

	updateHeader := func() {
		headerView.SetText(headerText(results.Details))
	}
	updateHeader()

	updateDetails := func() {
		index := list.GetCurrentItem()
		if index >= 0 && index < len(results.Details) {
			failure := results.Details[index]
			statsView.SetText(formatFailureStats(failure, index+1))
			detailsView.SetText(formatFailureDetails(failure))
			detailsView.ScrollToBeginning()
		}
	}

	var saveErr error
	list.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyUp, tcell.KeyDown:
			return event
		case tcell.KeyEnter, tcell.KeyRight:
			app.SetFocus(detailsView)
			return nil
		case tcell.KeyCtrlC:
			app.Stop()
			return nil
		case tcell.KeyRune:
			if event.Rune() == 'r' || event.Rune() == 'R' {
				index := list.GetCurrentItem()
				if index >= 0 && index < len(results.Details) {
					results.Details[index].Resolved = !results.Details[index].Resolved
					list.SetItemText(index, listItemText(results.Details[index], index), "")
					updateHeader()
					updateDetails()
					saveErr = ev.storage.SaveOutput(results)
				}
				return nil
			}
			if event.Rune() == 'q' {
				app.Stop()
				return nil
			}
		}
		return event
	})

	detailsView.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyLeft, tcell.KeyEsc:
			app.SetFocus(list)
			return nil
		case tcell.KeyCtrlC:
			app.Stop()
			return nil
		}
		return event
	})

	list.SetChangedFunc(func(int, string, string, rune) {
		updateDetails()
	})
	updateDetails()

	mainLayout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(headerView, 1, 0, false).
		AddItem(tview.NewBox(), 1, 0, false).
		AddItem(flex, 0, 1, true)

	if err := app.SetRoot(mainLayout, true).SetFocus(list).Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	if saveErr != nil {
		return fmt.Errorf("failed to save resolved status: %w", saveErr)
	}
	return nil
}

func headerText(failures []domain.Failure) string {
	unresolved := 0
	for _, f := range failures {
		if !f.Resolved {
			unresolved++
		}
	}
	return fmt.Sprintf(" Failures (%d total, %d unresolved) | Use ↑↓ to navigate, [yellow]R[white] to mark resolved, → to view details, ← to go back, q to exit ",
		len(failures), unresolved)
}

func listItemText(failure domain.Failure, index int) string {
	name := failure.TestName
	if name == "" {
		name = fmt.Sprintf("Failure %d", index+1)
	}
	name = tview.Escape(name)
	marker := ""
	if failure.Kind == domain.KindCollection {
		marker = "[red]![white] "
	}
	if failure.Resolved {
		return fmt.Sprintf("[gray]✓ [yellow]%d.[gray] %s%s[white]", index+1, marker, name)
	}
	return fmt.Sprintf("[yellow]%d.[white] %s%s", index+1, marker, name)
}

// formatFailureDetails formats a failure using tview color tags
func formatFailureDetails(failure domain.Failure) string {
	var b strings.Builder

	if failure.Kind == domain.KindCollection {
		fmt.Fprintf(&b, "[red]✗ Collection error: %s[white]\n\n", tview.Escape(failure.FilePath))
	} else {
		fmt.Fprintf(&b, "[red]✗ Test: %s[white]\n\n", tview.Escape(failure.TestName))
	}

	fmt.Fprintf(&b, "[cyan]File: %s[white]\n", tview.Escape(failure.FilePath))
	if failure.Cell > 0 {
		fmt.Fprintf(&b, "[yellow]Location: %s[white]\n", tview.Escape(failure.Location()))
	}
	if failure.Group != "" {
		fmt.Fprintf(&b, "[cyan]Group: %s[white]\n", tview.Escape(failure.Group))
	}
	b.WriteString("\n")

	if failure.EName != "" {
		fmt.Fprintf(&b, "[yellow]Exception:[white] %s", tview.Escape(failure.EName))
		if failure.EValue != "" {
			fmt.Fprintf(&b, ": %s", tview.Escape(failure.EValue))
		}
		b.WriteString("\n\n")
	}

	if failure.Message != "" {
		fmt.Fprintf(&b, "[yellow]Message:[white]\n%s\n\n", tview.Escape(failure.Message))
	}

	if len(failure.Traceback) > 0 {
		b.WriteString("[yellow]Traceback:[white]\n")
		for i, line := range failure.Traceback {
			if i == maxTraceLines {
				fmt.Fprintf(&b, "  [gray]... and %d more lines[white]\n", len(failure.Traceback)-maxTraceLines)
				break
			}
			fmt.Fprintf(&b, "  %s\n", tview.Escape(line))
		}
	}

	return b.String()
}

// formatFailureStats formats the stats header for a failure
func formatFailureStats(failure domain.Failure, number int) string {
	path := failure.FilePath
	if path == "" {
		path = "Unknown path"
	}
	item := strings.TrimPrefix(failure.TestName, failure.FilePath+"::")
	if failure.Kind == domain.KindCollection || item == "" {
		item = fmt.Sprintf("#%d", number)
	}
	return fmt.Sprintf("[cyan]path:[white] [yellow]%s[white]::[yellow]%s[white]\n",
		tview.Escape(path), tview.Escape(item))
}

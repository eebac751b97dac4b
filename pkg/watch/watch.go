// Package watch implements `casm watch`: a live tview dashboard over the
// resolver's fixpoint iteration, driven by resolver.Driver's OnPass
// hook. Grounded on lookbusy1344-arm_emulator/debugger/tui.go's
// TextView-per-panel layout and tcell input-capture handling.
package watch

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/hlorenzi/customasm-go/pkg/asmast"
	"github.com/hlorenzi/customasm-go/pkg/resolver"
	"github.com/hlorenzi/customasm-go/pkg/ruledef"
)

// Dashboard is the running TUI: one panel tracking pass/iteration
// counters, one tracking bank positions, one tracking symbol resolution
// counts.
type Dashboard struct {
	app       *tview.Application
	passView  *tview.TextView
	bankView  *tview.TextView
	symView   *tview.TextView
	logView   *tview.TextView
	passCount int
}

// NewDashboard builds the layout but does not start the event loop.
func NewDashboard() *Dashboard {
	d := &Dashboard{app: tview.NewApplication()}

	d.passView = tview.NewTextView().SetDynamicColors(true)
	d.passView.SetBorder(true).SetTitle(" Pass ")

	d.bankView = tview.NewTextView().SetDynamicColors(true)
	d.bankView.SetBorder(true).SetTitle(" Banks ")

	d.symView = tview.NewTextView().SetDynamicColors(true)
	d.symView.SetBorder(true).SetTitle(" Symbols ")

	d.logView = tview.NewTextView().SetDynamicColors(true).SetScrollable(true)
	d.logView.SetBorder(true).SetTitle(" Log ")

	top := tview.NewFlex().
		AddItem(d.passView, 0, 1, false).
		AddItem(d.bankView, 0, 2, false).
		AddItem(d.symView, 0, 1, false)

	layout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(top, 9, 0, false).
		AddItem(d.logView, 0, 1, false)

	d.app.SetRoot(layout, true)
	d.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyCtrlC || event.Rune() == 'q' {
			d.app.Stop()
			return nil
		}
		return event
	})
	return d
}

// onPass renders one PassStats snapshot. Called from the resolver's own
// goroutine by way of Driver.OnPass, so every field access is wrapped in
// QueueUpdateDraw to stay on tview's event-loop thread.
func (d *Dashboard) onPass(stats resolver.PassStats) {
	d.app.QueueUpdateDraw(func() {
		d.passCount++
		kind := "resolve"
		if stats.IsFirstIteration {
			kind = "first"
		}
		if stats.IsLastIteration {
			kind = "final"
		}
		fmt.Fprintf(d.passView, "[yellow]#%d[white] (%s)\nchanged: %v\n", stats.Iteration, kind, stats.AnyChanged)

		d.bankView.Clear()
		for _, b := range stats.Banks {
			name := b.Name
			if name == "" {
				name = "(default)"
			}
			fmt.Fprintf(d.bankView, "%-12s pos=%-6d high=%d\n", name, b.CurPosition, b.HighestPosition)
		}

		d.symView.Clear()
		fmt.Fprintf(d.symView, "resolved %d/%d\n", stats.ResolvedSymbols, stats.TotalSymbols)

		line := fmt.Sprintf("pass %d: %d/%d symbols resolved, changed=%v\n",
			stats.Iteration, stats.ResolvedSymbols, stats.TotalSymbols, stats.AnyChanged)
		fmt.Fprint(d.logView, line)
		d.logView.ScrollToEnd()
	})
}

// Run drives program through ruledefs on a Driver wired to this
// dashboard, rendering each pass as it happens, and exits the event loop
// once resolution finishes (after a short delay so the final pass stays
// visible) or the user presses q/Ctrl-C.
func Run(ruledefs *ruledef.Set, program *asmast.TopLevel, opts resolver.Options) error {
	d := NewDashboard()
	driver := resolver.NewDriver(ruledefs, nil, opts)
	driver.OnPass = d.onPass

	done := make(chan error, 1)
	go func() {
		err := driver.Run(program)
		if err == nil && driver.Report.HasErrors() {
			err = fmt.Errorf("%s", strings.Join(driver.Report.Strings(), "\n"))
		}
		time.Sleep(500 * time.Millisecond)
		d.app.QueueUpdateDraw(func() {})
		done <- err
		d.app.Stop()
	}()

	if err := d.app.Run(); err != nil {
		return err
	}
	return <-done
}

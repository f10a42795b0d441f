// Package tui implements the interactive session monitor backed by tview.
package tui

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/example/deskd/internal/api"
	"github.com/example/deskd/internal/session"
)

const (
	tableTitle  = "Sessions"
	outputTitle = "Output"

	defaultPollInterval = time.Second
	// outputTail bounds how much of a session's output the pane retains.
	outputTail = 64 * 1024
)

// Client is the slice of the daemon API the monitor needs.
type Client interface {
	ListSessions(ctx context.Context) (*api.SessionListResult, error)
	ReadOutput(ctx context.Context, sessionID int64, cursor *int64, timeout time.Duration) (*api.ReadResult, error)
	Terminate(ctx context.Context, sessionID int64) (*api.TerminateResult, error)
}

// Option configures UI behaviour.
type Option func(*UI)

// WithPollInterval overrides how often the monitor refreshes.
func WithPollInterval(d time.Duration) Option {
	return func(u *UI) {
		if d > 0 {
			u.pollInterval = d
		}
	}
}

// UI coordinates the interactive session monitor.
type UI struct {
	app    *tview.Application
	pages  *tview.Pages
	table  *tview.Table
	output *tview.TextView

	client       Client
	pollInterval time.Duration

	mu       sync.RWMutex
	sessions []session.Info
	selected int64
	tail     string
	cursor   int64
	err      string

	outputFocused bool

	cancelMu sync.Mutex
	cancel   context.CancelFunc

	wg       sync.WaitGroup
	stopOnce sync.Once
	done     chan struct{}
}

// New constructs a UI polling the supplied client.
func New(client Client, opts ...Option) *UI {
	app := tview.NewApplication()
	table := tview.NewTable().SetFixed(1, 1).SetSelectable(true, false)
	table.SetBorder(true).SetTitle(tableTitle)

	output := tview.NewTextView().SetDynamicColors(false).SetWrap(false)
	output.SetBorder(true).SetTitle(outputTitle)
	output.SetChangedFunc(func() {
		app.Draw()
	})

	flex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(table, 0, 2, true).
		AddItem(output, 0, 3, false)

	pages := tview.NewPages().AddPage("main", flex, true, true)

	ui := &UI{
		app:          app,
		pages:        pages,
		table:        table,
		output:       output,
		client:       client,
		pollInterval: defaultPollInterval,
		done:         make(chan struct{}),
	}

	for _, opt := range opts {
		opt(ui)
	}

	table.SetSelectionChangedFunc(func(row, column int) {
		ui.mu.Lock()
		ui.syncSelectionLocked(row)
		ui.mu.Unlock()
	})

	app.SetRoot(pages, true)
	app.SetInputCapture(ui.handleKey)

	ui.mu.Lock()
	ui.refreshTableLocked()
	ui.mu.Unlock()

	return ui
}

// Done returns a channel that is closed when the UI stops.
func (u *UI) Done() <-chan struct{} {
	return u.done
}

// Run starts the tview application and polls the daemon until Stop is invoked
// or the provided context is cancelled.
func (u *UI) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	u.cancelMu.Lock()
	u.cancel = cancel
	u.cancelMu.Unlock()

	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		u.pollLoop(ctx)
	}()

	go func() {
		<-ctx.Done()
		u.Stop()
	}()

	err := u.app.Run()

	u.cancelMu.Lock()
	cancel = u.cancel
	u.cancel = nil
	u.cancelMu.Unlock()
	if cancel != nil {
		cancel()
	}

	u.wg.Wait()
	u.Stop()

	return err
}

// Stop terminates the application loop and releases resources.
func (u *UI) Stop() {
	u.stopOnce.Do(func() {
		u.cancelMu.Lock()
		cancel := u.cancel
		u.cancel = nil
		u.cancelMu.Unlock()
		if cancel != nil {
			cancel()
		}
		u.app.Stop()
		close(u.done)
	})
}

func (u *UI) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(u.pollInterval)
	defer ticker.Stop()

	u.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			u.poll(ctx)
		}
	}
}

// poll refreshes the session list and the selected session's output tail.
func (u *UI) poll(ctx context.Context) {
	result, err := u.client.ListSessions(ctx)

	u.mu.Lock()
	if err != nil {
		u.err = err.Error()
		u.mu.Unlock()
		u.queueRefresh(false)
		return
	}
	u.err = ""
	u.sessions = result.Sessions
	if u.selected == 0 && len(result.Sessions) > 0 {
		u.selected = result.Sessions[0].ID
	}
	selected := u.selected
	cursor := u.cursor
	u.mu.Unlock()

	if selected != 0 {
		res, err := u.client.ReadOutput(ctx, selected, &cursor, 0)
		u.mu.Lock()
		if err == nil && u.selected == selected {
			u.tail = trimTail(u.tail + res.NewOutput)
			u.cursor = res.Cursor
		}
		u.mu.Unlock()
	}

	u.queueRefresh(true)
}

func trimTail(s string) string {
	if len(s) <= outputTail {
		return s
	}
	return s[len(s)-outputTail:]
}

func (u *UI) handleKey(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyEnter:
		u.toggleFocus()
		return nil
	case tcell.KeyUp, tcell.KeyDown:
		return event
	case tcell.KeyRune:
		switch event.Rune() {
		case 'q', 'Q':
			go u.Stop()
			return nil
		case 'k', 'K':
			u.killSelected()
			return nil
		}
	}
	return event
}

func (u *UI) toggleFocus() {
	if u.outputFocused {
		u.app.SetFocus(u.table)
	} else {
		u.app.SetFocus(u.output)
	}
	u.outputFocused = !u.outputFocused
}

// killSelected force-terminates the highlighted session. The next poll picks
// up the resulting state change.
func (u *UI) killSelected() {
	u.mu.RLock()
	selected := u.selected
	u.mu.RUnlock()
	if selected == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := u.client.Terminate(ctx, selected); err != nil {
			u.mu.Lock()
			u.err = err.Error()
			u.mu.Unlock()
			u.queueRefresh(false)
		}
	}()
}

func (u *UI) queueRefresh(updateOutput bool) {
	u.app.QueueUpdateDraw(func() {
		u.mu.Lock()
		defer u.mu.Unlock()
		u.refreshTableLocked()
		if updateOutput {
			u.renderOutputLocked()
		}
	})
}

func (u *UI) refreshTableLocked() {
	u.table.Clear()

	headers := []string{"ID", "STATUS", "PID", "RUNTIME", "OUTPUT", "COMMAND"}
	for col, header := range headers {
		cell := tview.NewTableCell(header).
			SetSelectable(false).
			SetAttributes(tcell.AttrBold)
		u.table.SetCell(0, col, cell)
	}

	if u.err != "" {
		u.table.SetTitle(fmt.Sprintf("%s [error: %s]", tableTitle, u.err))
	} else {
		u.table.SetTitle(tableTitle)
	}

	selectedRow := 0
	for row, info := range u.sessions {
		command := info.Command
		if len(command) > 60 {
			command = command[:57] + "..."
		}
		status := string(info.Status)
		if info.ExitCode != nil {
			status = fmt.Sprintf("%s (%d)", status, *info.ExitCode)
		}
		values := []string{
			fmt.Sprintf("%d", info.ID),
			status,
			fmt.Sprintf("%d", info.PID),
			fmt.Sprintf("%.1fs", info.RuntimeSeconds),
			fmt.Sprintf("%dB", info.OutputBytes),
			command,
		}
		for col, value := range values {
			cell := tview.NewTableCell(value)
			if col == 0 {
				cell = cell.SetReference(info.ID)
			}
			u.table.SetCell(row+1, col, cell)
		}
		if info.ID == u.selected {
			selectedRow = row + 1
		}
	}

	if len(u.sessions) == 0 {
		u.selected = 0
		u.table.Select(0, 0)
		return
	}
	if selectedRow == 0 {
		selectedRow = 1
		u.selected = u.sessions[0].ID
		u.resetOutputLocked()
	}
	u.table.Select(selectedRow, 0)
}

func (u *UI) renderOutputLocked() {
	u.output.Clear()
	if u.selected == 0 {
		u.output.SetTitle(outputTitle)
		return
	}
	u.output.SetTitle(fmt.Sprintf("%s (session %d)", outputTitle, u.selected))
	fmt.Fprint(u.output, u.tail)
	u.output.ScrollToEnd()
}

func (u *UI) syncSelectionLocked(row int) {
	if row <= 0 || row-1 >= len(u.sessions) {
		return
	}
	id := u.sessions[row-1].ID
	if id != u.selected {
		u.selected = id
		u.resetOutputLocked()
	}
}

// resetOutputLocked discards the tail so the next poll replays the newly
// selected session from the start of its retained output.
func (u *UI) resetOutputLocked() {
	u.tail = ""
	u.cursor = 0
}

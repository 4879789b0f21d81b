/*
 *   Copyright (c) 2026 Anton Brekhov
 *   All rights reserved.
 */
package tui

import (
	"fmt"

	"github.com/abrekhov/cloudserver/pkg/transfer"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// State represents the current state of the TUI
type State int

const (
	StateWaiting State = iota
	StateUpload
	StateDone
	StateCanceled
	StateError
)

// Model is the main Bubble Tea model
type Model struct {
	waiting   *WaitingModel
	upload    *UploadModel
	cancel    func()
	err       error
	checksum  string
	width     int
	height    int
	state     State
	canceling bool
}

// NewModel creates a new TUI model for the task described by snap.
// cancel is invoked once when the user asks to stop the upload.
func NewModel(snap transfer.Snapshot, target string, cancel func()) Model {
	return Model{
		state:   StateWaiting,
		waiting: NewWaitingModel(snap.Name, target, snap.Metrics.TotalBytes),
		upload:  NewUploadModel(snap.Name, snap.Path, snap.Metrics.TotalBytes),
		cancel:  cancel,
		width:   80,
		height:  24,
	}
}

// Init starts the waiting spinner
func (m Model) Init() tea.Cmd {
	return m.waiting.Init()
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.waiting.width = msg.Width
		m.waiting.height = msg.Height
		*m.upload, _ = m.upload.Update(msg)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.cancel == nil || m.state > StateUpload {
				return m, tea.Quit
			}
			if !m.canceling {
				m.canceling = true
				m.cancel()
				status := StatusMsg{Status: "Canceling..."}
				*m.waiting, _ = m.waiting.Update(status)
				*m.upload, _ = m.upload.Update(status)
			}
			return m, nil
		}

	case SnapshotMsg:
		return m.applySnapshot(msg)
	}

	var cmd tea.Cmd
	switch m.state {
	case StateWaiting:
		*m.waiting, cmd = m.waiting.Update(msg)
	case StateUpload:
		*m.upload, cmd = m.upload.Update(msg)
	case StateDone, StateCanceled, StateError:
		// Terminal states, no further updates needed
	}

	return m, cmd
}

func (m Model) applySnapshot(msg SnapshotMsg) (tea.Model, tea.Cmd) {
	switch msg.Status {
	case transfer.StatusPending:
		return m, nil
	case transfer.StatusInProgress:
		m.state = StateUpload
		*m.upload, _ = m.upload.Update(msg)
		return m, nil
	case transfer.StatusCompleted:
		*m.upload, _ = m.upload.Update(msg)
		m.checksum = msg.Checksum
		m.state = StateDone
	case transfer.StatusCanceled:
		m.state = StateCanceled
	default:
		m.state = StateError
		m.err = msg.Err
		if m.err == nil {
			m.err = fmt.Errorf("upload ended in state %s", msg.Status)
		}
	}
	return m, tea.Quit
}

// Err returns the failure the upload ended with, if any
func (m Model) Err() error {
	return m.err
}

// View renders the UI
func (m Model) View() string {
	switch m.state {
	case StateWaiting:
		return m.waiting.View()
	case StateUpload:
		return m.upload.View()
	case StateDone:
		return m.doneView()
	case StateCanceled:
		return m.canceledView()
	case StateError:
		return m.errorView()
	}
	return ""
}

func (m Model) doneView() string {
	s := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("10")).
		MarginTop(1).
		MarginBottom(1)

	return s.Render(fmt.Sprintf("✓ Upload complete! sha256 %s", m.checksum))
}

func (m Model) canceledView() string {
	s := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("11")).
		MarginTop(1).
		MarginBottom(1)

	return s.Render("✗ Upload canceled")
}

func (m Model) errorView() string {
	s := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("9")).
		MarginTop(1).
		MarginBottom(1)

	return s.Render(fmt.Sprintf("✗ Error: %v", m.err))
}

// Run shows the progress of task until it is terminal. start is launched
// once snapshots can be delivered; cancel is wired to q and ctrl+c.
func Run(task *transfer.UploadTask, target string, cancel func(), start func()) error {
	p := tea.NewProgram(NewModel(task.Snapshot(), target, cancel))
	unsubscribe := task.Subscribe(func(s transfer.Snapshot) {
		p.Send(SnapshotMsg(s))
	})
	defer unsubscribe()

	go start()
	final, err := p.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(Model); ok {
		return m.Err()
	}
	return nil
}

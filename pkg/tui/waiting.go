/*
 *   Copyright (c) 2026 Anton Brekhov
 *   All rights reserved.
 */
package tui

import (
	"fmt"
	"strings"

	"github.com/abrekhov/cloudserver/pkg/transfer"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// WaitingModel is shown while the upload waits for a free slot
type WaitingModel struct {
	spinner  spinner.Model
	filename string
	target   string
	status   string
	filesize int64
	width    int
	height   int
}

// NewWaitingModel creates a new waiting screen model
func NewWaitingModel(filename, target string, filesize int64) *WaitingModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return &WaitingModel{
		filename: filename,
		target:   target,
		filesize: filesize,
		spinner:  s,
		status:   "Waiting for a free upload slot...",
		width:    80,
		height:   24,
	}
}

// Init starts the spinner
func (m *WaitingModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles messages for the waiting screen
func (m *WaitingModel) Update(msg tea.Msg) (WaitingModel, tea.Cmd) {
	switch msg := msg.(type) {
	case StatusMsg:
		m.status = msg.Status
		return *m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return *m, cmd
	}

	return *m, nil
}

// View renders the waiting screen
func (m *WaitingModel) View() string {
	var b strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		MarginTop(1).
		MarginBottom(1)

	b.WriteString(titleStyle.Render("☁ CloudServer Upload"))
	b.WriteString("\n\n")

	infoStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("7"))

	fileInfo := fmt.Sprintf("File: %s", m.filename)
	if m.filesize > 0 {
		fileInfo += fmt.Sprintf(" (%s)", transfer.FormatSize(m.filesize))
	}
	b.WriteString(infoStyle.Render(fileInfo))
	b.WriteString("\n")
	b.WriteString(infoStyle.Render(fmt.Sprintf("Target: %s", m.target)))
	b.WriteString("\n\n")

	statusStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(statusStyle.Render(m.status))
	b.WriteString("\n\n")

	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Italic(true)
	b.WriteString(helpStyle.Render("Press q to cancel."))

	return b.String()
}

// StatusMsg replaces the status line of the current screen
type StatusMsg struct {
	Status string
}

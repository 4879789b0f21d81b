/*
 *   Copyright (c) 2026 Anton Brekhov
 *   All rights reserved.
 */
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/abrekhov/cloudserver/pkg/transfer"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// UploadModel represents the upload progress screen
type UploadModel struct {
	filename string
	path     string
	status   string
	progress progress.Model
	metrics  transfer.ProgressMetrics
	filesize int64
	width    int
	height   int
}

// NewUploadModel creates a new upload screen model
func NewUploadModel(filename, path string, filesize int64) *UploadModel {
	p := progress.New(progress.WithDefaultGradient())
	p.Width = 60

	return &UploadModel{
		filename: filename,
		path:     path,
		filesize: filesize,
		progress: p,
		width:    80,
		height:   24,
		status:   "Uploading...",
	}
}

// Init initializes the upload model
func (m *UploadModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the upload screen
func (m *UploadModel) Update(msg tea.Msg) (UploadModel, tea.Cmd) {
	switch msg := msg.(type) {
	case SnapshotMsg:
		m.metrics = msg.Metrics
		return *m, nil

	case StatusMsg:
		m.status = msg.Status
		return *m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.width > 20 {
			m.progress.Width = min(m.width-20, 60)
		}
		return *m, nil
	}

	return *m, nil
}

// View renders the upload screen
func (m *UploadModel) View() string {
	var b strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		MarginTop(1).
		MarginBottom(1)

	b.WriteString(titleStyle.Render("☁ Upload in Progress"))
	b.WriteString("\n\n")

	infoStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("7"))

	b.WriteString(infoStyle.Render(fmt.Sprintf("File: %s", m.filename)))
	b.WriteString("\n")
	b.WriteString(infoStyle.Render(fmt.Sprintf("Destination: %s", m.path)))
	b.WriteString("\n")
	b.WriteString(infoStyle.Render(fmt.Sprintf("Size: %s", transfer.FormatSize(m.filesize))))
	b.WriteString("\n\n")

	b.WriteString(m.progress.ViewAs(m.metrics.Percentage / 100))
	b.WriteString("\n\n")

	statsStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("14"))

	b.WriteString(statsStyle.Render(fmt.Sprintf("Uploaded: %s / %s (%.1f%%)",
		transfer.FormatSize(m.metrics.ProcessedBytes),
		transfer.FormatSize(m.filesize),
		m.metrics.Percentage)))
	b.WriteString("\n")

	if m.metrics.BytesPerSecond > 0 {
		b.WriteString(statsStyle.Render(fmt.Sprintf("Speed: %s", transfer.FormatSpeed(m.metrics.BytesPerSecond))))
		b.WriteString("\n")
	}

	if m.metrics.ETASeconds > 0 {
		eta := time.Duration(m.metrics.ETASeconds * float64(time.Second))
		b.WriteString(statsStyle.Render(fmt.Sprintf("ETA: %s", transfer.FormatDuration(eta))))
		b.WriteString("\n")
	}

	elapsed := time.Duration(m.metrics.ElapsedSeconds * float64(time.Second))
	b.WriteString(statsStyle.Render(fmt.Sprintf("Elapsed: %s", transfer.FormatDuration(elapsed))))
	b.WriteString("\n\n")

	statusStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	b.WriteString(statusStyle.Render(m.status))

	return b.String()
}

// SnapshotMsg carries a task snapshot into the program
type SnapshotMsg transfer.Snapshot

package ui

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MomoPi-Dark/CONVERT-IMG-PDF/internal/cli/hooks"
	"github.com/MomoPi-Dark/CONVERT-IMG-PDF/pkg/converter"
)

// listHeightMargin is the rows taken by header, progress line and footer.
const listHeightMargin = 5

// Model is the bubbletea model of a conversion run.
type Model struct {
	list     list.Model
	spinner  spinner.Model
	progress progress.Model

	width       int
	height      int
	initialized bool
	version     string

	unitItems    []listItem
	summary      Summary
	phaseMessage string
	currentLabel string
	percent      float64
	fatalError   string

	// cancel stops the run; the model quits once the run reports completion.
	cancel     context.CancelFunc
	cancelling bool
	quitting   bool

	listUpdatePending bool
}

type listItem struct {
	name     string
	kind     converter.UnitKind
	status   converter.Status
	output   string
	pages    int
	message  string
	duration time.Duration
}

// Summary holds the counters shown in the footer.
type Summary struct {
	ConvertedCount int
	SkippedCount   int
	FailedCount    int
	StartTime      time.Time
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		listHeight := m.height - listHeightMargin
		if listHeight < 1 {
			listHeight = 1
		}
		m.list.SetSize(m.width, listHeight)
		m.progress.Width = max(10, m.width-4)
		m.initialized = true

	case tea.KeyMsg:
		if m.quitting {
			return m, nil
		}
		switch msg.String() {
		case "ctrl+c", "q":
			if m.cancelling || m.cancel == nil {
				m.quitting = true
				return m, tea.Quit
			}
			m.cancelling = true
			m.phaseMessage = "Cancelling..."
			m.cancel()
			return m, nil
		}
		var listCmd tea.Cmd
		m.list, listCmd = m.list.Update(msg)
		cmds = append(cmds, listCmd)

	case spinner.TickMsg:
		if m.quitting {
			return m, nil
		}
		var spinnerCmd tea.Cmd
		m.spinner, spinnerCmd = m.spinner.Update(msg)
		cmds = append(cmds, spinnerCmd)

	case hooks.StateChangeMsg:
		if !m.cancelling {
			m.phaseMessage = phaseFor(msg.State)
		}

	case hooks.ProgressMsg:
		m.currentLabel = msg.Label
		if msg.Total > 0 {
			m.percent = float64(msg.Processed) / float64(msg.Total)
		}

	case hooks.UnitDoneMsg:
		e := msg.Entry
		m.unitItems = append(m.unitItems, listItem{
			name:     e.Name,
			kind:     e.Kind,
			status:   e.Status,
			output:   e.OutputPath,
			pages:    e.Pages,
			message:  unitMessage(e),
			duration: time.Duration(e.DurationMs) * time.Millisecond,
		})
		m.incrementSummaryCount(e.Status)
		cmds = append(cmds, m.debounceListUpdate())

	case hooks.RunCompleteMsg:
		s := msg.Report.Summary
		m.phaseMessage = "Complete"
		if s.Cancelled {
			m.phaseMessage = "Cancelled"
		}
		m.summary.ConvertedCount = s.SucceededCount
		m.summary.SkippedCount = s.SkippedCount
		m.summary.FailedCount = s.FailedCount
		if s.FatalError != "" {
			m.fatalError = "Fatal Error: " + s.FatalError
		}
		m.quitting = true
		return m, tea.Quit

	case UpdateListMsg:
		m.listUpdatePending = false
		items := make([]list.Item, len(m.unitItems))
		for i, item := range m.unitItems {
			items[i] = item
		}
		cmds = append(cmds, m.list.SetItems(items))
		m.list.Select(len(items) - 1)
	}

	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.initialized {
		return "Initializing..."
	}

	headerLeft := "Image to PDF Converter"
	if m.version != "" {
		headerLeft += " v" + m.version
	}
	headerRight := m.phaseMessage
	if m.phaseMessage != "Complete" && m.phaseMessage != "Cancelled" {
		headerRight = m.spinner.View() + " " + m.phaseMessage
	}
	headerCenter := ""
	if w := m.width - lipgloss.Width(headerLeft) - lipgloss.Width(headerRight) - HeaderStyle.GetHorizontalPadding(); w > 0 {
		headerCenter = lipgloss.PlaceHorizontal(w, lipgloss.Center, " ")
	}
	header := HeaderStyle.Width(m.width).Render(lipgloss.JoinHorizontal(lipgloss.Top, headerLeft, headerCenter, headerRight))

	progressLine := m.progress.ViewAs(m.percent)
	current := CurrentStyle.Render(m.currentLabel)

	elapsed := time.Since(m.summary.StartTime).Round(time.Second)
	footerLeft := fmt.Sprintf("Converted: %d | Skipped: %d | Failed: %d | Elapsed: %s",
		m.summary.ConvertedCount, m.summary.SkippedCount, m.summary.FailedCount, elapsed)
	footerRight := "q: cancel"
	footerCenter := ""
	if w := m.width - lipgloss.Width(footerLeft) - lipgloss.Width(footerRight) - FooterStyle.GetHorizontalPadding(); w > 0 {
		footerCenter = lipgloss.PlaceHorizontal(w, lipgloss.Center, " ")
	}
	footer := FooterStyle.Width(m.width).Render(lipgloss.JoinHorizontal(lipgloss.Bottom, footerLeft, footerCenter, footerRight))

	sections := []string{header, progressLine, current, m.list.View()}
	if m.fatalError != "" {
		sections = append(sections, StatusStyleFailed.Render(m.fatalError))
	}
	sections = append(sections, footer)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// NewModel creates the TUI model. cancel is called when the user quits
// before the run is over; version is shown in the header.
func NewModel(version string, cancel context.CancelFunc) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ColorStatusProcessing)

	delegate := list.NewDefaultDelegate()
	delegate.SetSpacing(0)
	delegate.ShowDescription = true
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(ColorSelectedFg).
		Background(ColorSelectedBg).
		Bold(true).
		Padding(0, 0, 0, 1)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(ColorSelectedDescFg).
		Background(ColorSelectedBg).
		Padding(0, 0, 0, 1)
	delegate.Styles.NormalTitle = delegate.Styles.NormalTitle.
		Foreground(ColorNormalFg).Padding(0, 0, 0, 1)
	delegate.Styles.NormalDesc = delegate.Styles.NormalDesc.
		Foreground(ColorNormalDescFg).Padding(0, 0, 0, 1)

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowTitle(false)
	l.SetShowFilter(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	return Model{
		list:         l,
		spinner:      s,
		progress:     progress.New(progress.WithDefaultGradient()),
		version:      version,
		summary:      Summary{StartTime: time.Now()},
		phaseMessage: "Initializing...",
		unitItems:    make([]listItem, 0, 64),
		cancel:       cancel,
	}
}

func phaseFor(state converter.State) string {
	switch state {
	case converter.StateClassifying:
		return "Scanning input..."
	case converter.StateConverting:
		return "Converting..."
	case converter.StateFinalizing:
		return "Finalizing..."
	case converter.StateDone:
		return "Complete"
	default:
		return "Initializing..."
	}
}

func unitMessage(e converter.LedgerEntry) string {
	switch e.Status {
	case converter.StatusFailed:
		return e.ErrorMessage
	case converter.StatusSkipped:
		return e.Reason
	}
	return ""
}

func (m *Model) incrementSummaryCount(status converter.Status) {
	switch status {
	case converter.StatusConverted:
		m.summary.ConvertedCount++
	case converter.StatusSkipped:
		m.summary.SkippedCount++
	case converter.StatusFailed:
		m.summary.FailedCount++
	}
}

// --- list.Item ---

func (i listItem) FilterValue() string { return i.name }

func (i listItem) Title() string { return i.name }

func (i listItem) Description() string {
	var statusStyle lipgloss.Style
	statusIcon := " "
	switch i.status {
	case converter.StatusConverted:
		statusStyle = StatusStyleSuccess
		statusIcon = "✓"
	case converter.StatusFailed:
		statusStyle = StatusStyleFailed
		statusIcon = "✗"
	case converter.StatusSkipped:
		statusStyle = StatusStyleSkipped
		statusIcon = "⊘"
	default:
		statusStyle = StatusStylePending
	}

	statusStr := statusStyle.Render(fmt.Sprintf("[%s]", statusIcon))
	details := i.message
	if i.status == converter.StatusConverted {
		details = filepath.Base(i.output)
		if i.pages > 1 {
			details += fmt.Sprintf(" (%d pages)", i.pages)
		}
		if d := formatDuration(i.duration); d != "" {
			details += " " + d
		}
	}
	return fmt.Sprintf("%s %s", statusStr, details)
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		if d == 0 {
			return ""
		}
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// UpdateListMsg rebuilds the list from the collected unit items.
type UpdateListMsg struct{}

const listUpdateDebounceDuration = 50 * time.Millisecond

// debounceListUpdate schedules at most one pending list rebuild.
func (m *Model) debounceListUpdate() tea.Cmd {
	if m.listUpdatePending {
		return nil
	}
	m.listUpdatePending = true
	return tea.Tick(listUpdateDebounceDuration, func(time.Time) tea.Msg {
		return UpdateListMsg{}
	})
}

// --- Styles ---

const (
	ColorHeaderFg = lipgloss.Color("252")
	ColorHeaderBg = lipgloss.Color("62")

	ColorFooterFg = lipgloss.Color("252")
	ColorFooterBg = lipgloss.Color("56")

	ColorNormalFg     = lipgloss.Color("250")
	ColorNormalDescFg = lipgloss.Color("244")

	ColorSelectedFg     = lipgloss.Color("255")
	ColorSelectedBg     = lipgloss.Color("56")
	ColorSelectedDescFg = lipgloss.Color("248")

	ColorStatusSuccess    = lipgloss.Color("40")
	ColorStatusFailed     = lipgloss.Color("196")
	ColorStatusSkipped    = lipgloss.Color("214")
	ColorStatusPending    = lipgloss.Color("244")
	ColorStatusProcessing = lipgloss.Color("205")
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorHeaderFg).
			Background(ColorHeaderBg).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorFooterFg).
			Background(ColorFooterBg).
			Padding(0, 1)

	CurrentStyle = lipgloss.NewStyle().Foreground(ColorNormalDescFg).Padding(0, 1)

	StatusStyleSuccess    = lipgloss.NewStyle().Foreground(ColorStatusSuccess)
	StatusStyleFailed     = lipgloss.NewStyle().Foreground(ColorStatusFailed)
	StatusStyleSkipped    = lipgloss.NewStyle().Foreground(ColorStatusSkipped)
	StatusStylePending    = lipgloss.NewStyle().Foreground(ColorStatusPending)
)

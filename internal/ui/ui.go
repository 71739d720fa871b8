// package ui renders live mix generation progress as a terminal UI.
//
// The model consumes orchestrator update snapshots and draws the stage,
// the progress bar and the final tracklist. It never mutates the session;
// cancellation goes back through the orchestrator.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/duskview/aidj/internal/mix"
	"github.com/duskview/aidj/internal/session"
)

// keyMap defines the key bindings for the progress view.
type keyMap struct {
	cancel key.Binding
	quit   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		cancel: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "cancel"),
		),
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

type sessionUpdateMsg session.Update

// Model is the generation progress TUI.
type Model struct {
	orch    *session.Orchestrator
	prompt  string
	current session.Update
	bar     progress.Model
	spin    spinner.Model
	help    help.Model
	keys    keyMap
	width   int
}

// NewModel creates a progress model for an already started session.
func NewModel(orch *session.Orchestrator, prompt string) *Model {
	bar := progress.New(progress.WithDefaultGradient())
	spin := spinner.New(spinner.WithSpinner(spinner.Dot))
	return &Model{
		orch:   orch,
		prompt: prompt,
		current: session.Update{
			State:  orch.State(),
			Record: orch.Record(),
		},
		bar:  bar,
		spin: spin,
		help: help.New(),
		keys: newKeyMap(),
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.waitForUpdate())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = min(msg.Width-8, 60)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.quit):
			if !m.current.State.Terminal() {
				m.orch.Cancel()
			}
			return m, tea.Quit
		case key.Matches(msg, m.keys.cancel):
			if !m.current.State.Terminal() {
				m.orch.Cancel()
			}
			return m, nil
		}
		return m, nil

	case sessionUpdateMsg:
		m.current = session.Update(msg)
		if m.current.State.Terminal() {
			return m, tea.Quit
		}
		return m, m.waitForUpdate()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

// waitForUpdate blocks on the orchestrator's update channel.
func (m *Model) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		return sessionUpdateMsg(<-m.orch.Updates())
	}
}

func (m *Model) View() string {
	switch m.current.State {
	case session.StateComplete:
		return m.renderResult()
	case session.StateError:
		return styles.err.Render(fmt.Sprintf("Generation failed: %v", m.current.Err)) + "\n"
	case session.StateCancelled:
		return styles.warn.Render("Generation cancelled") + "\n"
	default:
		return m.renderProgress()
	}
}

func (m *Model) renderProgress() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("Generating mix"))
	b.WriteString("\n")
	b.WriteString(styles.detail.Render(m.prompt))
	b.WriteString("\n\n")

	record := m.current.Record
	b.WriteString(fmt.Sprintf("%s %s", m.spin.View(), stageLabel(record.Stage)))
	if m.current.State == session.StateStreamingFallback {
		b.WriteString(styles.warn.Render("  [fallback stream]"))
	}
	b.WriteString("\n")
	b.WriteString(m.bar.ViewAs(float64(record.Percent) / 100))
	b.WriteString("\n")

	if record.Detail != "" {
		b.WriteString(styles.detail.Render(record.Detail))
		b.WriteString("\n")
	}
	if record.CurrentItem != "" {
		line := record.CurrentItem
		if record.Source != "" {
			line = fmt.Sprintf("%s (%s)", line, record.Source)
		}
		b.WriteString(styles.detail.Render("now: " + line))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.cancel, m.keys.quit}))
	b.WriteString("\n")
	return b.String()
}

func (m *Model) renderResult() string {
	result := m.current.Result
	if result == nil {
		return styles.err.Render("Completed without a result") + "\n"
	}

	var b strings.Builder
	b.WriteString(styles.ok.Render("Mix ready"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("URL:      %s\n", result.MixURL))
	b.WriteString(fmt.Sprintf("Duration: %dm%02ds\n", result.DurationSeconds/60, result.DurationSeconds%60))
	if result.TargetBPM > 0 {
		b.WriteString(fmt.Sprintf("BPM:      %.0f\n", result.TargetBPM))
	}
	b.WriteString("\n")
	for i, track := range result.Tracks {
		b.WriteString(fmt.Sprintf("%2d. %s - %s", i+1, track.Artist, track.Title))
		if track.Transition != nil {
			b.WriteString(styles.detail.Render(fmt.Sprintf("  → %s (%d bars)", track.Transition.Type, track.Transition.Bars)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func stageLabel(s mix.Stage) string {
	switch s {
	case mix.StageIdle:
		return "Waiting for stream..."
	case mix.StageInterpreting:
		return "Interpreting prompt"
	case mix.StageFetching:
		return "Selecting tracks"
	case mix.StageDownloading:
		return "Downloading audio"
	case mix.StageAnalyzing:
		return "Analyzing tempo and keys"
	case mix.StageRendering:
		return "Rendering transitions"
	case mix.StageUploading:
		return "Uploading mix"
	default:
		return s.String()
	}
}

// Package player renders a story in the terminal as an interactive Bubble
// Tea program. Engine callbacks are bridged into the program's message loop
// through a buffered channel; keys issue semantic commands back to the
// engine.
package player

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aretw0/cadence"
	"github.com/aretw0/cadence/internal/presentation/tui"
	"github.com/aretw0/cadence/pkg/domain"
	"github.com/aretw0/cadence/pkg/ports"
)

// Messages bridged from engine callbacks.
type beatMsg struct {
	id    domain.BeatID
	index int
	state domain.BeatState
}

type indicatorsMsg struct {
	fills []float64
}

type controlKind int

const (
	controlRestart controlKind = iota
	controlContinue
	controlInput
)

type controlMsg struct {
	kind    controlKind
	visible bool
}

// forwarder is the ports.Presenter handed to the engine. Callbacks run on
// engine goroutines (navigation calls and the progress clock), so they only
// enqueue messages. Sends never block: a stalled UI drops repaints rather
// than stalling the clock.
type forwarder struct {
	events chan tea.Msg
}

var _ ports.Presenter = (*forwarder)(nil)

func (f *forwarder) send(msg tea.Msg) {
	select {
	case f.events <- msg:
	default:
	}
}

func (f *forwarder) ApplyBeatState(state domain.BeatState, id domain.BeatID, index int) {
	f.send(beatMsg{id: id, index: index, state: state})
}

func (f *forwarder) RenderIndicators(fills []float64) {
	f.send(indicatorsMsg{fills: fills})
}

func (f *forwarder) ShowRestartControl() { f.send(controlMsg{kind: controlRestart, visible: true}) }
func (f *forwarder) HideRestartControl() { f.send(controlMsg{kind: controlRestart, visible: false}) }
func (f *forwarder) ShowContinueAffordance() {
	f.send(controlMsg{kind: controlContinue, visible: true})
}
func (f *forwarder) HideContinueAffordance() {
	f.send(controlMsg{kind: controlContinue, visible: false})
}
func (f *forwarder) EnableInput()  { f.send(controlMsg{kind: controlInput, visible: true}) }
func (f *forwarder) DisableInput() { f.send(controlMsg{kind: controlInput, visible: false}) }

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#6d28d9", Dark: "#a78bfa"})
	counterStyle = lipgloss.NewStyle().Faint(true)
	helpStyle    = lipgloss.NewStyle().Faint(true)
	pausedStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#fbbf24"))
	endStyle     = lipgloss.NewStyle().Bold(true)
)

// Options configure the terminal player.
type Options struct {
	// Render converts beat markdown for display. Nil shows the body raw.
	Render func(string) (string, error)
}

// Model is the Bubble Tea state for terminal playback. It is a value type;
// Update returns modified copies in the usual Bubble Tea style.
type Model struct {
	story  *cadence.Story
	events chan tea.Msg
	render func(string) (string, error)

	title string
	body  string
	index int
	size  int
	fills []float64

	status       domain.StoryStatus
	paused       bool
	inputOn      bool
	showRestart  bool
	showContinue bool

	width    int
	quitting bool
}

// New builds a player model. Hand Presenter to the engine when constructing
// the story, then attach the running story with WithStory.
func New(opts Options) Model {
	return Model{
		events:  make(chan tea.Msg, 64),
		render:  opts.Render,
		width:   80,
		inputOn: true,
		status:  domain.StatusNotStarted,
	}
}

// Presenter returns the callback surface that bridges engine events into
// the program's message loop.
func (m Model) Presenter() ports.Presenter {
	return &forwarder{events: m.events}
}

// WithStory attaches the story the keys will drive.
func (m Model) WithStory(story *cadence.Story) Model {
	m.story = story
	m.size = story.Size()
	return m
}

// Init starts the story once the program is consuming events, so the first
// beat paint is not lost.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.startStory, m.awaitEvent)
}

func (m Model) startStory() tea.Msg {
	if m.story.State().Status == domain.StatusNotStarted {
		m.story.Start(context.Background())
	}
	return nil
}

// awaitEvent is the channel subscription: each delivered engine message
// re-arms it from Update.
func (m Model) awaitEvent() tea.Msg {
	return <-m.events
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case beatMsg:
		m.index = msg.index
		m.title = msg.state.Title()
		if m.title == "" {
			m.title = string(msg.id)
		}
		m.body = msg.state.Content()
		if m.render != nil && m.body != "" {
			if out, err := m.render(m.body); err == nil {
				m.body = out
			}
		}
		m = m.syncState()
		return m, m.awaitEvent

	case indicatorsMsg:
		m.fills = msg.fills
		return m, m.awaitEvent

	case controlMsg:
		switch msg.kind {
		case controlRestart:
			m.showRestart = msg.visible
		case controlContinue:
			m.showContinue = msg.visible
		case controlInput:
			m.inputOn = msg.visible
		}
		m = m.syncState()
		return m, m.awaitEvent

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctx := context.Background()

	switch msg.String() {
	case "q", "esc", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case " ", "right", "enter", "l":
		if m.status == domain.StatusEnded && m.showContinue {
			// The end-card continue affordance: tapping goes around again.
			m.story.Restart(ctx)
		} else if m.inputOn {
			m.story.Advance(ctx, 1)
		}

	case "left", "h":
		if m.inputOn {
			m.story.Retreat(ctx, 1)
		}

	case "p":
		// First press starts a hold, the second releases it. Release
		// timing decides tap (advance) versus hold (just resume).
		if m.story.State().Paused {
			m.story.Handle(ctx, domain.CommandPauseEnd)
		} else {
			m.story.Handle(ctx, domain.CommandPauseStart)
		}

	case "r":
		m.story.Restart(ctx)

	case "e":
		m.story.End(ctx)
	}

	return m.syncState(), nil
}

// syncState refreshes the cached snapshot fields View reads.
func (m Model) syncState() Model {
	st := m.story.State()
	m.status = st.Status
	m.paused = st.Paused
	return m
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n  ")
	b.WriteString(titleStyle.Render(m.title))
	if m.size > 0 {
		b.WriteString(counterStyle.Render(fmt.Sprintf("  %d/%d", m.index+1, m.size)))
	}
	b.WriteString("\n\n  ")
	b.WriteString(tui.RenderGauge(m.fills, m.width-4))
	b.WriteString("\n")

	if m.body != "" {
		b.WriteString("\n")
		b.WriteString(strings.TrimRight(m.body, "\n"))
		b.WriteString("\n")
	}

	b.WriteString("\n  ")
	b.WriteString(m.statusLine())
	b.WriteString("\n  ")
	b.WriteString(helpStyle.Render(m.helpLine()))
	b.WriteString("\n")
	return b.String()
}

func (m Model) statusLine() string {
	switch {
	case m.status == domain.StatusEnded && m.showContinue:
		return endStyle.Render("The end.") + helpStyle.Render("  tap space to go again")
	case m.status == domain.StatusEnded:
		return endStyle.Render("The end.")
	case m.paused:
		return pausedStyle.Render("paused")
	default:
		return ""
	}
}

func (m Model) helpLine() string {
	if m.status == domain.StatusEnded {
		return "r restart · q quit"
	}
	help := "space next · ← prev · p hold · q quit"
	if m.showRestart {
		help = "space next · ← prev · p hold · r restart · q quit"
	}
	return help
}

// Run plays a started or startable story until the user quits, then closes
// the program screen. The caller still owns story shutdown.
func Run(model Model) error {
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

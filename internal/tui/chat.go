// Package tui is the interactive chat screen. It drives the assistant from
// key presses and redraws whenever the conversation store reports a change.
package tui

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textinput"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/raphaelgruber/partchat/internal/assistant"
	"github.com/raphaelgruber/partchat/internal/conversation"
	"github.com/raphaelgruber/partchat/internal/metrics"
	"github.com/raphaelgruber/partchat/internal/render"
)

// Rows taken by everything except the message viewport, and by the stats
// panel when it is shown.
const (
	chromeHeight = 6
	statsHeight  = 7
)

const (
	cmdNew  = "/new"
	cmdQuit = "/quit"
)

// storeEventMsg carries one conversation store event.
type storeEventMsg struct {
	ev conversation.Event
}

type startedMsg struct{ err error }

type sendDoneMsg struct{ err error }

type resetDoneMsg struct{ err error }

// Model is the bubbletea model for the chat screen.
type Model struct {
	ctx       context.Context
	assistant *assistant.Assistant
	renderer  *render.Renderer
	metrics   *metrics.Collector
	events    <-chan conversation.Event
	logger    *slog.Logger
	theme     render.Theme

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	width, height int
	showStats     bool
	quitting      bool
}

// New creates the chat model. The store subscription lives as long as ctx.
// Pass a nil collector to disable the stats panel.
func New(ctx context.Context, a *assistant.Assistant, r *render.Renderer, mc *metrics.Collector, logger *slog.Logger) Model {
	if logger == nil {
		logger = slog.Default()
	}

	ti := textinput.New()
	ti.Placeholder = "Ask about a part, a model number, or an installation... (Enter to send)"
	ti.Prompt = "› "
	ti.Focus()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))

	events, _ := a.Store().Subscribe(ctx)

	return Model{
		ctx:       ctx,
		assistant: a,
		renderer:  r,
		metrics:   mc,
		events:    events,
		logger:    logger.With("component", "tui"),
		theme:     r.Theme,
		input:     ti,
		viewport:  viewport.New(viewport.WithWidth(80), viewport.WithHeight(20)),
		spinner:   sp,
	}
}

// Init starts the session and begins listening for store events.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.startCmd(), m.waitForEvent(), m.spinner.Tick)
}

// Update handles messages and returns the updated model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		m.refresh(false)
		return m, nil

	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c":
			return m.quit()
		case "ctrl+n":
			return m, m.resetCmd()
		case "ctrl+s":
			m.showStats = !m.showStats
			m.resize()
			return m, nil
		case "enter":
			return m.submit()
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case storeEventMsg:
		follow := msg.ev.Type == conversation.EventAppended || msg.ev.Type == conversation.EventReplaced
		m.refresh(follow)
		return m, m.waitForEvent()

	case startedMsg:
		if msg.err != nil {
			m.logger.Error("session start failed", "error", msg.err)
		}
		return m, nil

	case sendDoneMsg:
		if msg.err != nil && !errors.Is(msg.err, assistant.ErrStaleResponse) && !errors.Is(msg.err, assistant.ErrSendPending) {
			m.logger.Warn("send finished with error", "error", msg.err)
		}
		return m, nil

	case resetDoneMsg:
		if msg.err != nil {
			m.logger.Warn("reset ignored", "error", msg.err)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the chat screen.
func (m Model) View() tea.View {
	if m.quitting {
		return tea.NewView("")
	}
	return tea.NewView(m.renderContent())
}

func (m Model) renderContent() string {
	var b strings.Builder

	b.WriteString(m.header())
	b.WriteString("\n")
	if banner := m.assistant.Store().Banner(); banner != "" {
		b.WriteString(m.theme.ErrorStyle().Render("! " + banner))
	}
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	if m.showStats && m.metrics != nil {
		b.WriteString(render.Stats(m.theme, m.metrics.Snapshot()))
		b.WriteString("\n")
	}
	b.WriteString(m.status())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.theme.HintStyle().Render("enter send · ctrl+n or /new new chat · ctrl+s stats · ctrl+c or /quit exit"))
	return b.String()
}

func (m Model) header() string {
	s := m.assistant.Session()
	title := m.theme.TitleStyle().Render("PartSelect assistant")
	id := s.ID
	if id == "" {
		id = "no session"
	}
	return title + " " + m.theme.HintStyle().Render(s.State.String()+" · "+id)
}

func (m Model) status() string {
	if m.assistant.Store().Pending() {
		return m.spinner.View() + " " + m.theme.HintStyle().Render("Thinking...")
	}
	return ""
}

// submit handles enter. While a turn is pending the input is left
// untouched so nothing the user typed is lost.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	switch text {
	case "":
		return m, nil
	case cmdQuit:
		return m.quit()
	case cmdNew:
		m.input.Reset()
		return m, m.resetCmd()
	}
	if m.assistant.Store().Pending() {
		return m, nil
	}
	m.input.Reset()
	return m, m.sendCmd(text)
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	return m, tea.Quit
}

func (m *Model) resize() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	h := m.height - chromeHeight
	if m.showStats && m.metrics != nil {
		h -= statsHeight
	}
	m.viewport.SetWidth(m.width)
	m.viewport.SetHeight(max(h, 3))
	m.input.SetWidth(max(m.width-4, 10))
	m.renderer.Width = m.width
}

// refresh re-renders the log into the viewport. follow scrolls to the
// newest message.
func (m *Model) refresh(follow bool) {
	content := m.renderer.Messages(m.assistant.Store().Messages())
	if m.width > 0 {
		content = lipgloss.NewStyle().Width(m.width).Render(content)
	}
	m.viewport.SetContent(content)
	if follow {
		m.viewport.GotoBottom()
	}
}

func (m Model) waitForEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return storeEventMsg{ev: ev}
	}
}

func (m Model) startCmd() tea.Cmd {
	a, ctx := m.assistant, m.ctx
	return func() tea.Msg {
		return startedMsg{err: a.Start(ctx)}
	}
}

func (m Model) sendCmd(text string) tea.Cmd {
	a, ctx := m.assistant, m.ctx
	return func() tea.Msg {
		return sendDoneMsg{err: a.Send(ctx, text)}
	}
}

func (m Model) resetCmd() tea.Cmd {
	a, ctx := m.assistant, m.ctx
	return func() tea.Msg {
		return resetDoneMsg{err: a.Reset(ctx)}
	}
}

// Run shows the chat screen until the user quits.
func Run(ctx context.Context, a *assistant.Assistant, r *render.Renderer, mc *metrics.Collector, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(New(ctx, a, r, mc, logger), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/user/agentcore/pkg/agentcli"
)

// agentRefreshInterval is how often the availability grid re-polls
// /api/agents. The WebSocket stream itself needs no polling.
const agentRefreshInterval = 5 * time.Second

const maxTimelineLines = 500

type tickMsg time.Time

type agentsMsg struct {
	snapshot map[agentcli.AgentKind]agentcli.Availability
	err      error
}

type recentProjectsMsg struct {
	projects []string
	err      error
}

// Model is the Bubble Tea model for the orchestrator dashboard.
type Model struct {
	addr    string
	project string

	agents   map[agentcli.AgentKind]agentcli.Availability
	agentErr error

	client    *wsClient
	connected bool
	wsErr     error

	lines    []string
	viewport viewport.Model
	spinner  spinner.Model

	width, height int
	ready         bool
}

func newModel(addr, project string) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return Model{
		addr:    strings.TrimRight(addr, "/"),
		project: project,
		spinner: s,
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(agentRefreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func fetchAgentsCmd(addr string) tea.Cmd {
	return func() tea.Msg {
		snapshot, err := fetchAgents(context.Background(), addr)
		return agentsMsg{snapshot: snapshot, err: err}
	}
}

func fetchRecentProjectsCmd(addr string) tea.Cmd {
	return func() tea.Msg {
		projects, err := fetchRecentProjects(context.Background(), addr)
		return recentProjectsMsg{projects: projects, err: err}
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{spinner.Tick, fetchAgentsCmd(m.addr), tickCmd()}
	if m.project != "" {
		cmds = append(cmds, connectWSCmd(m.addr, m.project))
	} else {
		cmds = append(cmds, fetchRecentProjectsCmd(m.addr))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			if m.client != nil {
				m.client.close()
			}
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		headerHeight := 4
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-headerHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - headerHeight
		}
		m.viewport.SetContent(strings.Join(m.lines, "\n"))

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tickMsg:
		return m, tea.Batch(fetchAgentsCmd(m.addr), tickCmd())

	case agentsMsg:
		m.agents, m.agentErr = msg.snapshot, msg.err

	case recentProjectsMsg:
		if msg.err != nil {
			m.wsErr = msg.err
			return m, nil
		}
		if len(msg.projects) == 0 {
			m.wsErr = fmt.Errorf("no active projects to tail")
			return m, nil
		}
		m.project = msg.projects[0]
		return m, connectWSCmd(m.addr, m.project)

	case wsConnectedMsg:
		if msg.err != nil {
			m.wsErr = msg.err
			m.connected = false
			return m, nil
		}
		m.client = msg.client
		m.connected = true
		m.wsErr = nil
		return m, waitForEventCmd(m.client)

	case wsEventMsg:
		ev, err := decodeEvent(wireEnvelope(msg))
		if err == nil {
			m.appendLine(renderEvent(ev))
		}
		return m, waitForEventCmd(m.client)

	case wsClosedMsg:
		m.connected = false
		m.wsErr = msg.err
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) appendLine(line string) {
	m.lines = append(m.lines, line)
	if len(m.lines) > maxTimelineLines {
		m.lines = m.lines[len(m.lines)-maxTimelineLines:]
	}
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	m.viewport.GotoBottom()
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return m.spinner.View() + " starting up..."
	}
	return m.renderHeader() + "\n" + m.viewport.View()
}

func (m Model) renderHeader() string {
	theme := DefaultTheme()

	var connStatus string
	switch {
	case m.connected:
		connStatus = lipgloss.NewStyle().Foreground(theme.Success).Render("connected")
	case m.wsErr != nil:
		connStatus = lipgloss.NewStyle().Foreground(theme.Error).Render("disconnected: " + m.wsErr.Error())
	default:
		connStatus = m.spinner.View() + " connecting"
	}

	project := m.project
	if project == "" {
		project = "(none)"
	}

	statusLine := lipgloss.JoinHorizontal(lipgloss.Left,
		lipgloss.NewStyle().Bold(true).Foreground(theme.Primary).Render("orchestrator-tui"),
		lipgloss.NewStyle().Render("  project: "+project+"  "),
		connStatus,
	)

	return statusLine + "\n" + m.renderAgentGrid(theme)
}

func (m Model) renderAgentGrid(theme Theme) string {
	if m.agentErr != nil {
		return lipgloss.NewStyle().Foreground(theme.Error).Render("agents: " + m.agentErr.Error())
	}

	kinds := []agentcli.AgentKind{agentcli.Claude, agentcli.Cursor, agentcli.Codex, agentcli.Gemini, agentcli.Qwen}
	var cells []string
	for _, kind := range kinds {
		a, ok := m.agents[kind]
		style := lipgloss.NewStyle().Foreground(theme.Muted)
		label := string(kind) + ":?"
		if ok {
			if a.Installed {
				style = lipgloss.NewStyle().Foreground(theme.Success)
				label = fmt.Sprintf("%s:%s", kind, a.Version)
			} else {
				style = lipgloss.NewStyle().Foreground(theme.Error)
				label = string(kind) + ":down"
			}
		}
		cells = append(cells, style.Render(label))
	}
	return strings.Join(cells, "  ")
}

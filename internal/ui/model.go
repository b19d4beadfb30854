// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package ui implements the interactive `blender>` session on top of Bubble
// Tea. Each submitted line becomes one Blender run whose output is streamed
// into a scrollable pane.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"blender-engine/internal/engine"
	"blender-engine/internal/logger"
	"blender-engine/internal/runner"
	"blender-engine/internal/util"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Prompt is shown in front of the input line.
const Prompt = "blender> "

// Layout rows outside the output pane: header, pane border, input, footer.
const chromeHeight = 1 + 2 + 1 + 1

// Model is the interactive session state.
type Model struct {
	agent  *engine.BlenderAgent
	keymap KeyMap

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	outputContent string
	history       []string
	// historyPos indexes history while browsing; len(history) means the
	// line being edited.
	historyPos int
	draft      string

	running    bool
	current    string
	started    time.Time
	cancel     context.CancelFunc
	outputChan <-chan runner.OutputLine
	errorChan  <-chan error

	width, height int
	ready         bool
	quitting      bool
}

// NewModel returns a session that runs commands through agent.
func NewModel(agent *engine.BlenderAgent) *Model {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render(Prompt)
	ti.Placeholder = "type a command, or help"
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = statusStyle

	m := &Model{
		agent:    agent,
		keymap:   DefaultKeyMap,
		input:    ti,
		spinner:  sp,
		viewport: viewport.New(80, 20),
	}
	m.appendOutput(titleStyle.Render("Blender interactive mode") + "\n" + "Type 'help' for available commands.\n")
	return m
}

func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}

	case channelsAvailableMsg:
		m.outputChan = msg.outChan
		m.errorChan = msg.errChan
		return m, waitForOutputCmd(m.outputChan)

	case outputLineMsg:
		line := msg.line.Line
		if msg.line.IsError {
			line = stderrStyle.Render(line)
		}
		m.appendOutput(line + "\n")
		return m, waitForOutputCmd(m.outputChan)

	case outputClosedMsg:
		return m, waitForErrorCmd(m.errorChan)

	case stepFinishedMsg:
		m.finishRun(msg.err)
		return m, nil

	case spinner.TickMsg:
		if m.running {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	// The viewport's own key bindings would fire on typed letters.
	if _, isKey := msg.(tea.KeyMsg); !isKey {
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	paneHeight := max(height-chromeHeight, 3)
	m.viewport.Width = max(width-2, 10)
	m.viewport.Height = paneHeight
	m.input.Width = max(width-len(Prompt)-1, 10)
	m.ready = true
	m.viewport.GotoBottom()
}

// handleKey returns handled=false for keys that belong to the text input.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keymap.Quit):
		if m.running {
			m.cancelRun()
			return nil, true
		}
		m.quitting = true
		return tea.Quit, true
	case key.Matches(msg, m.keymap.Cancel):
		if m.running {
			m.cancelRun()
		}
		return nil, true
	case key.Matches(msg, m.keymap.PgUp):
		m.scroll(-m.viewport.Height / 2)
		return nil, true
	case key.Matches(msg, m.keymap.PgDown):
		m.scroll(m.viewport.Height / 2)
		return nil, true
	case key.Matches(msg, m.keymap.Clear):
		m.clearOutput()
		return nil, true
	}

	if m.running {
		return nil, true
	}

	switch {
	case key.Matches(msg, m.keymap.Submit):
		return m.submit(), true
	case key.Matches(msg, m.keymap.PrevLine):
		m.browseHistory(-1)
		return nil, true
	case key.Matches(msg, m.keymap.NextLine):
		m.browseHistory(1)
		return nil, true
	}
	return nil, false
}

func (m *Model) browseHistory(delta int) {
	if len(m.history) == 0 {
		return
	}
	if m.historyPos == len(m.history) {
		m.draft = m.input.Value()
	}
	m.historyPos = min(max(m.historyPos+delta, 0), len(m.history))
	if m.historyPos == len(m.history) {
		m.input.SetValue(m.draft)
	} else {
		m.input.SetValue(m.history[m.historyPos])
	}
	m.input.CursorEnd()
}

func (m *Model) submit() tea.Cmd {
	line := strings.TrimSpace(m.input.Value())
	m.input.Reset()
	if line != "" && (len(m.history) == 0 || m.history[len(m.history)-1] != line) {
		m.history = append(m.history, line)
	}
	m.historyPos = len(m.history)
	m.draft = ""
	if line == "" {
		return nil
	}
	m.appendOutput(promptStyle.Render(Prompt) + line + "\n")

	cmd, err := ParseCommand(line)
	if err != nil {
		m.appendOutput(errorStyle.Render("Error: "+err.Error()) + "\n")
		return nil
	}
	switch cmd.Kind {
	case CommandHelp:
		m.appendOutput(HelpText())
	case CommandClear:
		m.clearOutput()
	case CommandQuit:
		m.quitting = true
		return tea.Quit
	case CommandRun:
		return m.startRun(cmd)
	}
	return nil
}

func (m *Model) startRun(cmd Command) tea.Cmd {
	if m.agent == nil {
		m.appendOutput(errorStyle.Render("Error: no Blender session configured") + "\n")
		return nil
	}
	step, err := m.agent.Step(cmd.Op)
	if err != nil {
		m.appendOutput(errorStyle.Render("Error: "+err.Error()) + "\n")
		return nil
	}
	if m.agent.DryRun {
		m.showDryRun(step)
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.running = true
	m.current = step.Name
	m.started = time.Now()
	host := step.Target.ServerName
	m.appendOutput(stepStyle.Render(fmt.Sprintf("--- Running %s on %s ---", step.Name, host)) + "\n")
	logger.Info("Interactive run started", "operation", step.Name, "host", host)
	return tea.Batch(runStepCmd(ctx, step), m.spinner.Tick)
}

// showDryRun prints the script and command of step instead of running it.
func (m *Model) showDryRun(step runner.Step) {
	argv := step.Invocation.Command()
	m.appendOutput(stepStyle.Render(fmt.Sprintf("--- Script (%s) ---", step.Name)) + "\n")
	m.appendOutput(strings.TrimRight(step.Invocation.Code, "\n") + "\n")
	m.appendOutput(stepStyle.Render(fmt.Sprintf("--- Command (%s) ---", step.Target.ServerName)) + "\n")
	m.appendOutput(util.ShellCommand(argv[0], argv[1:]) + "\n")
}

func (m *Model) cancelRun() {
	if m.cancel != nil {
		m.cancel()
	}
}

func (m *Model) finishRun(err error) {
	elapsed := time.Since(m.started).Round(10 * time.Millisecond)
	if err != nil {
		m.appendOutput(errorStyle.Render(fmt.Sprintf("--- %s failed after %s: %v ---", m.current, elapsed, err)) + "\n")
		logger.Warn("Interactive run failed", "operation", m.current, "error", err)
	} else {
		m.appendOutput(successStyle.Render(fmt.Sprintf("--- %s completed in %s ---", m.current, elapsed)) + "\n")
	}
	if m.cancel != nil {
		m.cancel()
	}
	m.running = false
	m.cancel = nil
	m.outputChan = nil
	m.errorChan = nil
}

func (m *Model) scroll(lines int) {
	m.viewport.SetYOffset(m.viewport.YOffset + lines)
}

func (m *Model) appendOutput(s string) {
	m.outputContent += s
	m.viewport.SetContent(m.outputContent)
	m.viewport.GotoBottom()
}

func (m *Model) clearOutput() {
	m.outputContent = ""
	m.viewport.SetContent("")
}

// Output returns everything written to the output pane.
func (m *Model) Output() string { return m.outputContent }

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	header := titleStyle.Render("blender-engine")
	if m.agent != nil {
		header += " " + serverNameStyle.Render("("+m.agent.Target.ServerName+")")
		if m.agent.BlendFile != "" {
			header += " " + footerStyle.Render(m.agent.BlendFile)
		}
	}
	body := mainContentBorderStyle.Render(m.viewport.View())
	return lipgloss.JoinVertical(lipgloss.Left, header, body, m.input.View(), m.footer())
}

func (m *Model) footer() string {
	if m.running {
		return m.spinner.View() + statusStyle.Render(fmt.Sprintf(" Running %s... ", m.current)) +
			helpEntry(m.keymap.Cancel)
	}
	sep := footerSeparatorStyle.Render(" | ")
	return strings.Join([]string{
		helpEntry(m.keymap.Submit),
		helpEntry(m.keymap.PrevLine) + "/" + helpEntry(m.keymap.NextLine),
		helpEntry(m.keymap.PgUp),
		helpEntry(m.keymap.Clear),
		helpEntry(m.keymap.Quit),
	}, sep)
}

func helpEntry(b key.Binding) string {
	h := b.Help()
	return footerKeyStyle.Render(h.Key) + footerStyle.Render(" "+h.Desc)
}

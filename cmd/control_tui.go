// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/thermoscope/pkg/ircam"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	colorful "github.com/lucasb-eyer/go-colorful"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

const (
	maxLogEntries = 100

	// Terminals report key presses but not releases. A held key repeats,
	// so the hold ends once no repeat arrived for holdTimeout.
	holdTimeout       = 600 * time.Millisecond
	holdCheckInterval = 100 * time.Millisecond
)

// Focus states
const (
	focusCommands = iota
	focusChains
)

// keyAction binds a key to a control action, a catalog command or a hold
type keyAction struct {
	action  string
	command string
	hold    string
	label   string
}

// controlKeys is the key dispatch table of the TUI
var controlKeys = map[string]keyAction{
	"+": {action: "zoomIn", label: "zoom in"},
	"=": {action: "zoomIn", label: "zoom in"},
	"-": {action: "zoomOut", label: "zoom out"},
	"z": {action: "zoomCycle", label: "zoom cycle"},
	"1": {action: "zoomWide", label: "zoom wide"},
	"2": {action: "zoomMiddle", label: "zoom middle"},
	"3": {action: "zoomNarrow", label: "zoom narrow"},
	"c": {action: "color", label: "colour"},
	"w": {action: "whiteHot", label: "white hot"},
	"W": {action: "blackHot", label: "black hot"},
	"b": {action: "brightness", label: "brightness +"},
	"B": {action: "brightnessDown", label: "brightness -"},
	"t": {action: "contrast", label: "contrast +"},
	"T": {action: "contrastDown", label: "contrast -"},
	"m": {action: "mide", label: "mide +"},
	"M": {action: "mideDown", label: "mide -"},
	"a": {command: ircam.CommandAutoFocus, label: "auto focus"},
	"x": {command: ircam.CommandCalibrate, label: "calibrate"},
	"n": {hold: ircam.CommandFocusNear, label: "focus near (hold)"},
	"f": {hold: ircam.CommandFocusFar, label: "focus far (hold)"},
}

// controlKeyOrder is the order of the key legend
var controlKeyOrder = []string{"+", "-", "z", "1", "2", "3", "c", "w", "W", "b", "B", "t", "T", "m", "M", "a", "x", "n", "f"}

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// commandItem is a catalog entry in the command list
type commandItem struct {
	entry ircam.Entry
	frame string
	color lipgloss.Color
}

// Implement list.Item interface
func (c commandItem) Title() string {
	return lipgloss.NewStyle().Foreground(c.color).Render("■ ") + c.entry.Label
}
func (c commandItem) Description() string { return c.frame }
func (c commandItem) FilterValue() string { return c.entry.ID }

// chainItem is a command chain in the chain list
type chainItem struct {
	chain ircam.Chain
}

// Implement list.Item interface
func (c chainItem) Title() string       { return c.chain.Label }
func (c chainItem) Description() string { return formatSteps(c.chain.Steps) }
func (c chainItem) FilterValue() string { return c.chain.ID }

type errorLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// controlModel is the Bubble Tea model for the control TUI
type controlModel struct {
	ctx      context.Context
	session  *ircam.Session
	connInfo string

	commandList list.Model
	chainList   list.Model
	focused     int

	// Focus hold
	held         string
	holdDeadline time.Time

	runningChain string
	errorLog     []errorLogEntry

	// UI state
	width          int
	height         int
	showHelp       bool
	quitting       bool
	connectionLost bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type controlTickMsg time.Time

type holdCheckMsg time.Time

type logEntryMsg errorLogEntry

type connectionLostMsg struct{}

type reconnectedMsg struct {
	connInfo string
}

type sentMsg struct {
	label string
	err   error
}

type chainDoneMsg struct {
	id  string
	err error
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

// buttonColor spreads n hues evenly around the colour wheel, so a
// command keeps its colour as long as the catalog does not change
func buttonColor(i, n int) lipgloss.Color {
	if n <= 0 {
		n = 1
	}
	hue := 360.0 / float64(n) * float64(i)
	return lipgloss.Color(colorful.Hsl(hue, 0.65, 0.55).Hex())
}

func newListModel(title string, items []list.Item) list.Model {
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)
	l := list.New(items, delegate, 32, 12)
	l.Title = title
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	return l
}

func initialControlModel(ctx context.Context, session *ircam.Session, chains []ircam.Chain, connInfo string) controlModel {
	entries := session.Catalog().Entries()
	commands := make([]list.Item, len(entries))
	for i, e := range entries {
		frame, err := ircam.Frame(session.Variant(), e.Data)
		desc := ircam.FormatHex(frame)
		if err != nil {
			desc = err.Error()
		}
		commands[i] = commandItem{entry: e, frame: desc, color: buttonColor(i, len(entries))}
	}

	chainItems := make([]list.Item, len(chains))
	for i, c := range chains {
		chainItems[i] = chainItem{chain: c}
	}

	return controlModel{
		ctx:         ctx,
		session:     session,
		connInfo:    connInfo,
		commandList: newListModel("Commands", commands),
		chainList:   newListModel("Chains", chainItems),
		focused:     focusCommands,
		errorLog:    make([]errorLogEntry, 0),
		width:       80,
		height:      24,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m controlModel) Init() tea.Cmd {
	return controlTickCmd()
}

func controlTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return controlTickMsg(t)
	})
}

func holdCheckCmd() tea.Cmd {
	return tea.Tick(holdCheckInterval, func(t time.Time) tea.Msg {
		return holdCheckMsg(t)
	})
}

func (m controlModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateListSize()

	case controlTickMsg:
		// Redraw for statistics
		return m, controlTickCmd()

	case holdCheckMsg:
		if m.held == "" {
			return m, nil
		}
		if time.Time(msg).After(m.holdDeadline) {
			return m, m.releaseHold()
		}
		return m, holdCheckCmd()

	case logEntryMsg:
		m.addLogEntry(errorLogEntry(msg))

	case sentMsg:
		if msg.err != nil && !errors.Is(msg.err, ircam.ErrUnknownCommand) && !errors.Is(msg.err, ircam.ErrNotConnected) {
			m.addLog(fmt.Sprintf("%s failed: %v", msg.label, msg.err), true)
		}

	case chainDoneMsg:
		m.runningChain = ""
		if msg.err != nil {
			m.addLog(fmt.Sprintf("Chain %s aborted: %v", msg.id, msg.err), true)
		} else {
			m.addLog(fmt.Sprintf("Chain %s done", msg.id), false)
		}

	case connectionLostMsg:
		m.connectionLost = true
		m.held = ""
		m.addLog("Connection lost - reconnecting...", true)

	case reconnectedMsg:
		m.connectionLost = false
		m.connInfo = msg.connInfo
		m.addLog("Reconnected", false)
	}

	return m, nil
}

func (m *controlModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "q", "ctrl+c":
		m.quitting = true
		if m.held != "" {
			return m, tea.Sequence(m.releaseHold(), tea.Quit)
		}
		return m, tea.Quit

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "tab", "shift+tab":
		m.focused = (m.focused + 1) % 2
		return m, nil

	case " ", "esc":
		return m, m.releaseHold()

	case "enter":
		return m, m.sendSelected()
	}

	if k, ok := controlKeys[key]; ok {
		if m.connectionLost {
			m.addLog("Cannot send command: connection lost", true)
			return m, nil
		}
		switch {
		case k.hold != "":
			return m, m.pressHold(k.hold)
		case k.command != "":
			return m, m.sendCommand(k.command)
		default:
			return m, m.dispatch(k.action)
		}
	}

	var cmd tea.Cmd
	if m.focused == focusCommands {
		m.commandList, cmd = m.commandList.Update(msg)
	} else {
		m.chainList, cmd = m.chainList.Update(msg)
	}
	return m, cmd
}

//////////////////////////////////////////////////////////////
// Commands
//////////////////////////////////////////////////////////////

func (m *controlModel) dispatch(action string) tea.Cmd {
	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		return sentMsg{label: action, err: session.Dispatch(ctx, action)}
	}
}

func (m *controlModel) sendCommand(name string) tea.Cmd {
	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		return sentMsg{label: name, err: session.SendCommand(ctx, name)}
	}
}

func (m *controlModel) sendSelected() tea.Cmd {
	if m.connectionLost {
		m.addLog("Cannot send command: connection lost", true)
		return nil
	}

	if m.focused == focusCommands {
		item, ok := m.commandList.SelectedItem().(commandItem)
		if !ok {
			return nil
		}
		return m.sendCommand(item.entry.ID)
	}

	item, ok := m.chainList.SelectedItem().(chainItem)
	if !ok {
		return nil
	}
	if m.runningChain != "" {
		m.addLog(fmt.Sprintf("Chain %s queued behind %s", item.chain.ID, m.runningChain), false)
	}
	m.runningChain = item.chain.ID

	session, ctx, chain := m.session, m.ctx, item.chain
	return func() tea.Msg {
		return chainDoneMsg{id: chain.ID, err: session.RunChain(ctx, chain, chain.ID)}
	}
}

// pressHold starts a focus hold, or extends it on key repeat
func (m *controlModel) pressHold(hold string) tea.Cmd {
	now := time.Now()
	if m.held == hold {
		m.holdDeadline = now.Add(holdTimeout)
		return nil
	}

	m.held = hold
	m.holdDeadline = now.Add(holdTimeout)

	session, ctx := m.session, m.ctx
	press := func() tea.Msg {
		return sentMsg{label: hold, err: session.Press(ctx, hold)}
	}
	return tea.Batch(press, holdCheckCmd())
}

func (m *controlModel) releaseHold() tea.Cmd {
	if m.held == "" {
		return nil
	}
	hold := m.held
	m.held = ""

	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		return sentMsg{label: ircam.CommandFocusStop, err: session.Release(ctx, hold)}
	}
}

//////////////////////////////////////////////////////////////
// View
//////////////////////////////////////////////////////////////

const (
	listWidth      = 34
	minPanelWidth  = 24
	minEventLines  = 4
	viewChromeRows = 26
)

var (
	colorAccent = lipgloss.Color("12")
	colorMuted  = lipgloss.Color("241")
	colorGood   = lipgloss.Color("10")
	colorWarn   = lipgloss.Color("11")
	colorBad    = lipgloss.Color("9")
	colorBorder = lipgloss.Color("240")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Background(lipgloss.Color("235")).Padding(0, 1)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	labelStyle   = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	valueStyle   = lipgloss.NewStyle().Foreground(colorGood)
	warnStyle    = lipgloss.NewStyle().Foreground(colorWarn)
	badStyle     = lipgloss.NewStyle().Foreground(colorBad).Bold(true)
	panelStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorBorder).Padding(0, 1)
	focusedPanel = panelStyle.BorderForeground(colorAccent)
)

func (m controlModel) View() string {
	if m.quitting {
		return "Releasing controls...\n"
	}

	status := m.connInfo
	if m.connectionLost {
		status = warnStyle.Render("RECONNECTING...")
	}
	header := titleStyle.Render("THERMOSCOPE CONTROL") + " " +
		mutedStyle.Render(fmt.Sprintf("| %s | %s | q=quit Tab=switch ?=keys", status, m.session.Variant()))

	commandPanel, chainPanel := panelStyle, focusedPanel
	if m.focused == focusCommands {
		commandPanel, chainPanel = focusedPanel, panelStyle
	}

	side := m.renderStatePanel()
	if m.showHelp {
		side = m.renderKeyMap()
	}
	sideWidth := max(m.width-2*listWidth-10, minPanelWidth)

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		commandPanel.Width(listWidth).Render(m.commandList.View()), " ",
		chainPanel.Width(listWidth).Render(m.chainList.View()), " ",
		panelStyle.Width(sideWidth).Render(side))

	return lipgloss.JoinVertical(lipgloss.Left,
		header, "",
		body, "",
		m.renderStatisticsBar(), "",
		m.renderEventLog())
}

//////////////////////////////////////////////////////////////
// View Helpers
//////////////////////////////////////////////////////////////

var (
	zoomNames  = [...]string{"wide", "middle", "narrow"}
	colorNames = [...]string{"black hot", "white hot"}
)

func row(label, value string) string {
	return fmt.Sprintf("%s %s", labelStyle.Render(fmt.Sprintf("%-11s", label)), valueStyle.Render(value))
}

func (m controlModel) renderStatePanel() string {
	state := m.session.State()

	lines := []string{
		row("Link:", m.session.Link().State().String()),
		row("Zoom:", zoomNames[state.Zoom]),
		row("Colour:", colorNames[state.Color]),
		row("Brightness:", levelBar(state.Brightness, ircam.FieldBrightness.Size())),
		row("Contrast:", levelBar(state.Contrast, ircam.FieldContrast.Size())),
		row("Mide:", levelBar(state.Mide, ircam.FieldMide.Size())),
	}
	if m.held != "" {
		lines = append(lines, "", warnStyle.Render("Holding "+m.held))
	}
	if m.runningChain != "" {
		lines = append(lines, "", warnStyle.Render("Running chain "+m.runningChain))
	}
	return strings.Join(lines, "\n")
}

func levelBar(level, size int) string {
	return fmt.Sprintf("%-2d %s%s", level, strings.Repeat("█", level+1), strings.Repeat("░", size-level-1))
}

func (m controlModel) renderKeyMap() string {
	lines := []string{labelStyle.Render("KEYS")}
	for _, key := range controlKeyOrder {
		lines = append(lines, labelStyle.Render(fmt.Sprintf("%-3s", key))+" "+controlKeys[key].label)
	}
	lines = append(lines, mutedStyle.Render("space/esc releases a hold"))
	return strings.Join(lines, "\n")
}

func (m controlModel) renderStatisticsBar() string {
	stats := m.session.Stats()

	errCount := valueStyle.Render("0")
	if n := stats.WriteErrors + stats.UnknownCommands; n > 0 {
		errCount = badStyle.Render(fmt.Sprint(n))
	}

	fields := []string{
		labelStyle.Render("Sent:") + " " + valueStyle.Render(fmt.Sprint(stats.FramesSent)),
		labelStyle.Render("Bytes:") + " " + valueStyle.Render(fmt.Sprintf("%d/%d", stats.BytesSent, stats.BytesReceived)),
		labelStyle.Render("Pings:") + " " + valueStyle.Render(fmt.Sprint(stats.Pings)),
		labelStyle.Render("Errors:") + " " + errCount,
		labelStyle.Render("Uptime:") + " " + valueStyle.Render(stats.Elapsed.Round(time.Second).String()),
	}
	return panelStyle.Width(m.width - 4).Render(strings.Join(fields, "  "))
}

func (m controlModel) renderEventLog() string {
	lines := []string{labelStyle.Render("EVENTS")}

	visible := m.errorLog
	if n := max(m.height-viewChromeRows, minEventLines); len(visible) > n {
		visible = visible[len(visible)-n:]
	}

	if len(visible) == 0 {
		lines = append(lines, mutedStyle.Render("  (no events yet)"))
	}
	for _, entry := range visible {
		icon := warnStyle.Render("i")
		if entry.isError {
			icon = badStyle.Render("x")
		}
		lines = append(lines, fmt.Sprintf("%s %s %s", mutedStyle.Render(entry.timestamp.Format("15:04:05.000")), icon, entry.message))
	}

	return panelStyle.Width(m.width - 4).Render(strings.Join(lines, "\n"))
}

//////////////////////////////////////////////////////////////
// Helpers
//////////////////////////////////////////////////////////////

func (m *controlModel) addLog(message string, isError bool) {
	m.addLogEntry(errorLogEntry{timestamp: time.Now(), message: message, isError: isError})
}

func (m *controlModel) addLogEntry(entry errorLogEntry) {
	m.errorLog = append(m.errorLog, entry)
	if len(m.errorLog) > maxLogEntries {
		m.errorLog = m.errorLog[len(m.errorLog)-maxLogEntries:]
	}
}

func (m *controlModel) updateListSize() {
	h := m.height - 16
	if h < 6 {
		h = 6
	}
	m.commandList.SetSize(listWidth-2, h)
	m.chainList.SetSize(listWidth-2, h)
}

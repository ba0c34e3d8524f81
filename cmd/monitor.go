// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Taimur Islam Khan

package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/taimurislamkhan/ushs-link/pkg/api/models"
	"github.com/taimurislamkhan/ushs-link/pkg/store"
	"github.com/taimurislamkhan/ushs-link/pkg/wire"
)

var monitorURL string

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live TUI view of the work cell state",
	Long: `Connect to a running ushs-link service and show the work cell state
live: link status, cycle progress, tip telemetry, work position and the
home screen data. Updates arrive as API notifications.

Press 'q' to quit.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().StringVarP(&monitorURL, "url", "u", "", "API websocket URL (default ws://127.0.0.1:<api port>/api)")
}

// Messages
type stateMsg store.Document
type stagesMsg store.Stages
type tipsMsg [wire.TipCount]store.TipRecord
type workPositionMsg store.WorkPosition
type homeScreenMsg wire.HomeScreen
type linkStateMsg struct {
	connected bool
	path      string
}
type linkErrorMsg string
type socketClosedMsg struct{ err error }

type eventLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

type monitorModel struct {
	url  string
	msgs <-chan tea.Msg
	spin spinner.Model

	haveState bool
	connected bool
	linkPath  string
	stages    store.Stages
	tips      [wire.TipCount]store.TipRecord
	wp        store.WorkPosition
	home      wire.HomeScreen

	events        []eventLogEntry
	maxLogEntries int
	width         int
	height        int
	quitting      bool
	socketErr     error
}

func newMonitorModel(url string, msgs <-chan tea.Msg) monitorModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return monitorModel{
		url:           url,
		msgs:          msgs,
		spin:          sp,
		maxLogEntries: 100,
		width:         80,
		height:        24,
	}
}

func listen(msgs <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg { return <-msgs }
}

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(
		listen(m.msgs),
		m.spin.Tick,
		tea.EnterAltScreen,
	)
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case stateMsg:
		doc := store.Document(msg)
		m.haveState = true
		m.stages = doc.CycleProgress
		m.tips = doc.Tips
		m.wp = doc.WorkPosition
		m.home = doc.HomeScreen
		return m, listen(m.msgs)

	case stagesMsg:
		m.stages = store.Stages(msg)
		return m, listen(m.msgs)

	case tipsMsg:
		m.tips = msg
		return m, listen(m.msgs)

	case workPositionMsg:
		m.wp = store.WorkPosition(msg)
		return m, listen(m.msgs)

	case homeScreenMsg:
		m.home = wire.HomeScreen(msg)
		return m, listen(m.msgs)

	case linkStateMsg:
		m.connected = msg.connected
		m.linkPath = msg.path
		if msg.connected {
			m.addLogEntry(fmt.Sprintf("link connected: %s", msg.path), false)
		} else {
			m.addLogEntry("link disconnected", false)
		}
		return m, listen(m.msgs)

	case linkErrorMsg:
		m.addLogEntry(string(msg), true)
		return m, listen(m.msgs)

	case socketClosedMsg:
		m.socketErr = msg.err
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

func (m *monitorModel) addLogEntry(message string, isError bool) {
	m.events = append(m.events, eventLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})
	if len(m.events) > m.maxLogEntries {
		m.events = m.events[len(m.events)-m.maxLogEntries:]
	}
}

func (m monitorModel) View() string {
	if m.quitting {
		if m.socketErr != nil {
			return fmt.Sprintf("Connection lost: %v\n", m.socketErr)
		}
		return "Shutting down...\n"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	dimStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("240"))

	activeStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11")).
		Bold(true)

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	var s strings.Builder
	s.WriteString(titleStyle.Render("USHS-LINK - WORK CELL MONITOR"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("API: %s | Press 'q' to quit", m.url)))
	s.WriteString("\n\n")

	// Link status
	if m.connected {
		s.WriteString(valueStyle.Render(fmt.Sprintf("✓ Controller connected (%s)", m.linkPath)))
	} else {
		s.WriteString(errorStyle.Render("✗ Controller disconnected"))
	}
	s.WriteString("\n\n")

	if !m.haveState {
		s.WriteString(m.spin.View())
		s.WriteString(headerStyle.Render(" waiting for state..."))
		s.WriteString("\n")
		return s.String()
	}

	// Cycle progress
	stageParts := []struct {
		name  string
		state store.StageState
	}{
		{"home", m.stages.Home},
		{"work position", m.stages.WorkPosition},
		{"encoder zero", m.stages.EncoderZero},
		{"heat", m.stages.Heat},
		{"cool", m.stages.Cool},
		{"cycle complete", m.stages.CycleComplete},
	}
	stageLine := strings.Builder{}
	for i, st := range stageParts {
		if i > 0 {
			stageLine.WriteString(dimStyle.Render(" → "))
		}
		switch st.state {
		case store.StageDone:
			stageLine.WriteString(valueStyle.Render("✓ " + st.name))
		case store.StageActive:
			stageLine.WriteString(activeStyle.Render(m.spin.View() + st.name))
		default:
			stageLine.WriteString(dimStyle.Render("○ " + st.name))
		}
	}
	s.WriteString(labelStyle.Render("Cycle:"))
	s.WriteString("\n")
	s.WriteString(boxStyle.Render(stageLine.String()))
	s.WriteString("\n\n")

	// Tips
	tipContent := strings.Builder{}
	tipContent.WriteString(headerStyle.Render(
		fmt.Sprintf("%-4s %-7s %8s %9s %6s %9s", "Tip", "Active", "Joules", "Dist", "Heat%", "Energy SP")))
	tipContent.WriteString("\n")
	for i, tip := range m.tips {
		active := dimStyle.Render("no")
		if tip.Active {
			active = valueStyle.Render("yes")
		}
		tipContent.WriteString(fmt.Sprintf("%-4d %-7s %8.1f %9.2f %6.0f %9.2f\n",
			i+1, active, tip.Joules, tip.Distance, tip.HeatPercentage, tip.EnergySetpoint))
	}
	s.WriteString(labelStyle.Render("Tips:"))
	s.WriteString("\n")
	s.WriteString(boxStyle.Render(strings.TrimRight(tipContent.String(), "\n")))
	s.WriteString("\n\n")

	// Work position and home screen
	wpContent := fmt.Sprintf("%s %s   %s %s   %s %s",
		labelStyle.Render("Position:"), valueStyle.Render(fmt.Sprintf("%.2f mm", m.wp.CurrentPosition)),
		labelStyle.Render("Setpoint:"), valueStyle.Render(fmt.Sprintf("%.2f mm", m.wp.Setpoint)),
		labelStyle.Render("Speed:"), valueStyle.Render(m.wp.SpeedMode),
	)
	s.WriteString(boxStyle.Render(wpContent))
	s.WriteString("\n\n")

	homeContent := fmt.Sprintf("%s %s   %s %.0f%%",
		labelStyle.Render("Banner:"), valueStyle.Render(m.home.BannerText),
		labelStyle.Render("Progress:"), m.home.Percentage,
	)
	if m.home.SpinnerActive {
		homeContent += "   " + m.spin.View() + m.home.ProcessingText
	}
	s.WriteString(boxStyle.Render(homeContent))
	s.WriteString("\n\n")

	// Event log
	s.WriteString(labelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	logHeight := m.height - 22
	if logHeight < 3 {
		logHeight = 3
	}
	startIdx := len(m.events) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	logContent := strings.Builder{}
	if len(m.events) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.events); i++ {
			entry := m.events[i]
			timestamp := entry.timestamp.Format("15:04:05.000")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					errorStyle.Render("✗ "+entry.message),
				))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					valueStyle.Render("ℹ "+entry.message),
				))
			}
		}
	}
	s.WriteString(boxStyle.Width(m.width - 4).Render(strings.TrimRight(logContent.String(), "\n")))

	return s.String()
}

// wsEnvelope covers both response and notification shapes on one socket.
type wsEnvelope struct {
	JSONRPC string              `json:"jsonrpc"`
	ID      *uuid.UUID          `json:"id,omitempty"`
	Method  string              `json:"method,omitempty"`
	Params  json.RawMessage     `json:"params,omitempty"`
	Result  json.RawMessage     `json:"result,omitempty"`
	Error   *models.ErrorObject `json:"error,omitempty"`
}

func readSocket(conn *websocket.Conn, msgs chan<- tea.Msg) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			msgs <- socketClosedMsg{err: err}
			return
		}

		var env wsEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}

		if env.Method != "" {
			if msg := notificationMsg(env); msg != nil {
				msgs <- msg
			}
			continue
		}

		if env.Error != nil {
			msgs <- linkErrorMsg(env.Error.Message)
			continue
		}
		if env.Result != nil {
			var doc store.Document
			if err := json.Unmarshal(env.Result, &doc); err == nil {
				msgs <- stateMsg(doc)
			}
		}
	}
}

func notificationMsg(env wsEnvelope) tea.Msg {
	switch env.Method {
	case models.NotificationLinkConnected:
		var p models.ConnectedParams
		_ = json.Unmarshal(env.Params, &p)
		return linkStateMsg{connected: true, path: p.Path}
	case models.NotificationLinkDisconnected:
		var p models.ConnectedParams
		_ = json.Unmarshal(env.Params, &p)
		return linkStateMsg{connected: false, path: p.Path}
	case models.NotificationLinkError:
		var p models.ErrorParams
		_ = json.Unmarshal(env.Params, &p)
		return linkErrorMsg(p.Message)
	case models.NotificationCycleProgressChanged:
		var p store.Stages
		if json.Unmarshal(env.Params, &p) == nil {
			return stagesMsg(p)
		}
	case models.NotificationTipDataChanged:
		var p [wire.TipCount]store.TipRecord
		if json.Unmarshal(env.Params, &p) == nil {
			return tipsMsg(p)
		}
	case models.NotificationWorkPositionChanged:
		var p store.WorkPosition
		if json.Unmarshal(env.Params, &p) == nil {
			return workPositionMsg(p)
		}
	case models.NotificationHomeScreenChanged:
		var p wire.HomeScreen
		if json.Unmarshal(env.Params, &p) == nil {
			return homeScreenMsg(p)
		}
	}
	return nil
}

func runMonitor(cmd *cobra.Command, args []string) error {
	url := monitorURL
	if url == "" {
		url = fmt.Sprintf("ws://127.0.0.1:%d/api", cfg.APIPort())
	}

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer conn.Close()

	msgs := make(chan tea.Msg, 32)
	go readSocket(conn, msgs)

	// request the current state up front, updates arrive as notifications
	id := uuid.New()
	req := models.RequestObject{
		JSONRPC: "2.0",
		ID:      &id,
		Method:  models.MethodStateRead,
	}
	if err := conn.WriteJSON(req); err != nil {
		return fmt.Errorf("request state: %w", err)
	}

	// keep log lines off the alternate screen
	zerolog.SetGlobalLevel(zerolog.ErrorLevel)

	p := tea.NewProgram(newMonitorModel(url, msgs))
	_, err = p.Run()
	return err
}

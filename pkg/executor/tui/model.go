package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/entrhq/pilot/pkg/types"
)

// finishedMsg is sent when the engine reports the execution is over.
type finishedMsg struct{}

// model is the bubbletea state for one task run.
type model struct {
	channels *types.AgentChannels
	task     string

	spinner spinner.Model
	busy    bool
	done    bool

	// transcript lines, already styled.
	lines []string

	// thinkingLine is the index into lines of the in-flight thinking
	// text for each message id, so updates replace instead of append.
	thinkingLine map[string]int

	// pendingInput is the human-input request currently awaiting a
	// y/n answer, if any.
	pendingInput *types.AgentEvent

	width  int
	height int

	tokensUsed int
}

func initialModel(channels *types.AgentChannels, task string) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = taskStyle
	return model{
		channels:     channels,
		task:         task,
		spinner:      sp,
		thinkingLine: make(map[string]int),
		width:        80,
		height:       24,
	}
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case *types.AgentEvent:
		return m.handleEvent(msg)

	case finishedMsg:
		m.done = true
		return m, nil
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.pendingInput != nil {
		switch msg.String() {
		case "y", "Y":
			m.channels.Input <- types.NewHumanInputResponseInput(m.pendingInput.RequestID, types.HumanActionDone)
			m.pendingInput = nil
		case "n", "N", "esc":
			m.channels.Input <- types.NewHumanInputResponseInput(m.pendingInput.RequestID, types.HumanActionAbort)
			m.pendingInput = nil
		}
		return m, nil
	}

	switch msg.String() {
	case "q", "ctrl+c":
		if m.done {
			return m, tea.Quit
		}
		m.channels.Input <- types.NewCancelInput()
		return m, nil
	case "enter":
		if m.done {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m model) handleEvent(event *types.AgentEvent) (tea.Model, tea.Cmd) {
	switch event.Type {
	case types.EventTypeThinkingUpdate:
		line := thinkingTUIStyle.Render(lastLine(event.Content))
		if idx, ok := m.thinkingLine[event.MessageID]; ok {
			m.lines[idx] = line
		} else {
			m.lines = append(m.lines, line)
			m.thinkingLine[event.MessageID] = len(m.lines) - 1
		}

	case types.EventTypeAssistantMessage:
		if idx, ok := m.thinkingLine[event.MessageID]; ok {
			m.lines[idx] = assistantStyle.Render(event.Content)
			delete(m.thinkingLine, event.MessageID)
		} else {
			m.lines = append(m.lines, assistantStyle.Render(event.Content))
		}

	case types.EventTypeNarration:
		m.lines = append(m.lines, narrationTUIStyle.Render(event.Content))

	case types.EventTypeToolCall:
		m.lines = append(m.lines, toolLineStyle.Render("→ "+event.ToolName))

	case types.EventTypeToolResultError:
		m.lines = append(m.lines, toolErrLineStyle.Render(fmt.Sprintf("✗ %s: %v", event.ToolName, event.Error)))

	case types.EventTypePlanCreated:
		if event.Plan != nil {
			m.lines = append(m.lines, narrationTUIStyle.Render(fmt.Sprintf("Plan (cycle %d)", event.Plan.Cycle)))
			for i, step := range event.Plan.Steps {
				m.lines = append(m.lines, todoLineStyle.Render(fmt.Sprintf("  %d. %s", i+1, step)))
			}
		}

	case types.EventTypeTodoUpdate:
		for _, line := range strings.Split(event.Content, "\n") {
			m.lines = append(m.lines, todoLineStyle.Render(line))
		}

	case types.EventTypeHumanInputRequest:
		m.pendingInput = event

	case types.EventTypeError:
		m.lines = append(m.lines, errorLineStyle.Render(fmt.Sprintf("Error: %v", event.Error)))

	case types.EventTypeTokenUsage:
		if event.TokenUsage != nil {
			m.tokensUsed += event.TokenUsage.TotalTokens
		}

	case types.EventTypeUpdateBusy:
		m.busy = event.IsBusy

	case types.EventTypeTurnEnd:
		m.done = true
		m.busy = false
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("pilot"))
	b.WriteString("  ")
	b.WriteString(taskStyle.Render(m.task))
	b.WriteString("\n\n")

	// Show as many transcript lines as fit above the status area.
	visible := m.height - 6
	if visible < 1 {
		visible = 1
	}
	lines := m.lines
	if len(lines) > visible {
		lines = lines[len(lines)-visible:]
	}
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n")

	if m.pendingInput != nil {
		prompt := fmt.Sprintf("%s\n\nDone? press y to continue, n to abort", m.pendingInput.Prompt)
		b.WriteString("\n")
		b.WriteString(humanInputBoxStyle.Render(prompt))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.statusBar())
	return b.String()
}

func (m model) statusBar() string {
	switch {
	case m.pendingInput != nil:
		return statusBarStyle.Render("waiting for you · y confirm · n abort")
	case m.done:
		return statusBarStyle.Render(fmt.Sprintf("finished · %d tokens · press enter to exit", m.tokensUsed))
	case m.busy:
		return statusBarStyle.Render(fmt.Sprintf("%s working · %d tokens · q to cancel", m.spinner.View(), m.tokensUsed))
	default:
		return statusBarStyle.Render("q to cancel")
	}
}

// lastLine keeps streaming thinking output to a single line.
func lastLine(content string) string {
	content = strings.TrimRight(content, "\n")
	if idx := strings.LastIndex(content, "\n"); idx >= 0 {
		content = content[idx+1:]
	}
	return content
}

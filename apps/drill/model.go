package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"

	"github.com/trezcool/hesabu/core/player"
)

const (
	keyCtrlC = "ctrl+c"
	keyLeft  = "left"
	keyRight = "right"
	keySpace = " "
)

var keyCommands = map[string]string{
	keySpace: "toggle",
	"a":      "answer",
	"n":      "next",
	keyRight: "next",
	"p":      "previous",
	keyLeft:  "previous",
	"h":      "home",
	"q":      "home",
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F59E0B"))
	tokenStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(1, 6).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7C3AED"))
	answerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#10B981"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
)

// controller is the part of a player.Session the drill drives.
type controller interface {
	Do(ctx context.Context, name string) (player.State, error)
	Updates() <-chan player.State
}

type (
	stateMsg  player.State
	closedMsg struct{}
	errMsg    struct{ err error }
)

type model struct {
	ctx   context.Context
	ctrl  controller
	bell  io.Writer
	state player.State
	beeps int
	err   error

	width  int
	height int
}

func newModel(ctx context.Context, ctrl controller, bell io.Writer) model {
	return model{ctx: ctx, ctrl: ctrl, bell: bell}
}

func (m model) Init() tea.Cmd {
	return m.waitForState()
}

// waitForState delivers the next published State, or closedMsg once the session stopped.
func (m model) waitForState() tea.Cmd {
	return func() tea.Msg {
		st, ok := <-m.ctrl.Updates()
		if !ok {
			return closedMsg{}
		}
		return stateMsg(st)
	}
}

// send runs a session command. Resulting states arrive through the updates.
func (m model) send(name string) tea.Cmd {
	return func() tea.Msg {
		if _, err := m.ctrl.Do(m.ctx, name); err != nil {
			if errors.Is(err, player.ErrClosed) {
				return closedMsg{}
			}
			return errMsg{err}
		}
		return nil
	}
}

func (m model) ring() tea.Cmd {
	return func() tea.Msg {
		_, _ = fmt.Fprint(m.bell, "\a")
		return nil
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		key := msg.String()
		if key == keyCtrlC {
			return m, tea.Quit
		}
		if name, ok := keyCommands[key]; ok {
			m.err = nil
			return m, m.send(name)
		}
		return m, nil

	case stateMsg:
		st := player.State(msg)
		cmds := []tea.Cmd{m.waitForState()}
		if st.Beeps > m.beeps {
			cmds = append(cmds, m.ring())
		}
		m.state, m.beeps = st, st.Beeps
		if st.Phase == player.PhaseFinished {
			return m, tea.Quit
		}
		return m, tea.Batch(cmds...)

	case closedMsg:
		return m, tea.Quit

	case errMsg:
		m.err = msg.err
		return m, nil
	}
	return m, nil
}

func (m model) View() string {
	st := m.state
	var b strings.Builder

	b.WriteString(titleStyle.Render(st.AssignmentID))
	if st.QuestionCount > 0 {
		b.WriteString("  ")
		b.WriteString(labelStyle.Render(fmt.Sprintf("Question %s", st.QuestionLabel)))
		b.WriteString(dimStyle.Render(fmt.Sprintf(" (%d/%d)", st.QuestionIndex+1, st.QuestionCount)))
	}
	b.WriteString("\n\n")

	switch st.Phase {
	case player.PhaseLoading:
		b.WriteString(dimStyle.Render("Loading..."))
	case player.PhaseFinished:
		b.WriteString(dimStyle.Render("Done."))
	case player.PhaseCompleted:
		b.WriteString(tokenStyle.Render("Completed!"))
	case player.PhaseAnswerRevealed:
		b.WriteString(tokenStyle.Render(answerStyle.Render(st.Answer)))
	default:
		b.WriteString(tokenStyle.Render(st.Display))
	}
	b.WriteString("\n\n")

	if st.Paused {
		b.WriteString(labelStyle.Render("Paused"))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render(m.help()))

	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, b.String())
	}
	return b.String()
}

func (m model) help() string {
	st := m.state
	var keys []string
	switch {
	case !st.Completed:
		if st.Paused {
			keys = append(keys, "space: continue")
		} else {
			keys = append(keys, "space: pause")
		}
	case !st.AnswerRevealed:
		keys = append(keys, "a: answer")
	}
	if st.CanPrevious {
		keys = append(keys, "p/←: previous")
	}
	if st.CanNext {
		keys = append(keys, "n/→: next")
	}
	if st.CanHome {
		keys = append(keys, "h: home")
	}
	keys = append(keys, "q: quit")
	return strings.Join(keys, "   ")
}

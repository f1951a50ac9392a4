// Package console provides a live, read-only TUI for watching a running
// core: register file, PC, Ibox/Cbox lifecycle, and issue-queue occupancy,
// refreshed on a timer. It is built the way the teacher's single-step
// 6502 debugger was — a bubbletea model driving a lipgloss layout — but
// generalized from a step-one-instruction-and-redraw debugger into a
// ticking monitor suited to a core that runs its own goroutines
// (cpu.CPU.Run) rather than being single-stepped from the UI thread.
package console

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"axp21264/cbox"
	"axp21264/cpu"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

type model struct {
	core *cpu.CPU
	quit bool
}

// Init starts the periodic refresh; the core itself is expected to
// already be running in its own goroutines via cpu.CPU.Run.
func (m model) Init() tea.Cmd {
	return tick()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.core.Halt()
			m.quit = true
			return m, tea.Quit
		}
	case tickMsg:
		if !m.core.IsRunning() {
			return m, nil
		}
		return m, tick()
	}
	return m, nil
}

func (m model) registerPanel() string {
	ib := m.core.Ibox
	var b strings.Builder
	fmt.Fprintln(&b, headerStyle.Render("registers"))
	for i := 0; i < 8; i++ {
		fmt.Fprintf(&b, "%s %016x   %s %016x\n",
			labelStyle.Render(fmt.Sprintf("r%-2d", i)), ib.IntRF[ib.IntRen.Map[i]],
			labelStyle.Render(fmt.Sprintf("r%-2d", i+8)), ib.IntRF[ib.IntRen.Map[i+8]])
	}
	return boxStyle.Render(b.String())
}

func (m model) statusPanel() string {
	ib := m.core.Ibox
	cb := m.core.Cbox
	var b strings.Builder
	fmt.Fprintln(&b, headerStyle.Render("core"))
	fmt.Fprintf(&b, "%s %016x\n", labelStyle.Render("pc    "), ib.PC)
	fmt.Fprintf(&b, "%s %v\n", labelStyle.Render("pal   "), ib.PALMode)
	fmt.Fprintf(&b, "%s %v\n", labelStyle.Render("halted"), ib.Halted())
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("cbox  "), cboxState(cb))
	fmt.Fprintf(&b, "%s %d\n", labelStyle.Render("iq len"), ib.IQ.Len())
	fmt.Fprintf(&b, "%s %d\n", labelStyle.Render("fq len"), ib.FQ.Len())
	return boxStyle.Render(b.String())
}

func cboxState(cb *cbox.Cbox) string {
	return cb.State().String()
}

func (m model) View() string {
	if m.quit {
		return ""
	}
	return lipgloss.JoinVertical(
		lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, m.statusPanel(), m.registerPanel()),
		"",
		labelStyle.Render("q to quit"),
	)
}

// Run starts the interactive monitor attached to an already-constructed
// core. It blocks until the user quits.
func Run(core *cpu.CPU) error {
	_, err := tea.NewProgram(model{core: core}).Run()
	return err
}

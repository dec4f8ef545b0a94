package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/wippyai/nanocore-host/state"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	regStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	haltedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFB86C"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type monitorModel struct {
	m     *machine
	input textinput.Model
	log   []string
	err   error
}

func newMonitorModel(m *machine) *monitorModel {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "step | run [n] | break <addr> | poll | reset | quit"
	ti.Width = 60
	ti.Focus()
	return &monitorModel{m: m, input: ti}
}

func (m *monitorModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "enter":
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if line == "quit" || line == "q" {
				return m, tea.Quit
			}
			if line != "" {
				m.runCommand(line)
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *monitorModel) runCommand(line string) {
	m.err = nil
	fields := strings.Fields(line)
	args := fields[1:]

	switch fields[0] {
	case "step", "s":
		n := uint64(1)
		if len(args) > 0 {
			n = m.parseNum(args[0])
		}
		for done := uint64(0); done < n && m.err == nil; done++ {
			code, err := m.m.inst.Step()
			if err != nil {
				m.err = err
				return
			}
			if code != 0 {
				m.say("stopped: %s", code)
				break
			}
		}

	case "run", "r":
		var budget uint64
		if len(args) > 0 {
			budget = m.parseNum(args[0])
		}
		if m.err != nil {
			return
		}
		code, err := m.m.inst.Run(budget)
		if err != nil {
			m.err = err
			return
		}
		m.say("exit: %s", code)

	case "break", "b":
		if len(args) != 1 {
			m.err = fmt.Errorf("usage: break <addr>")
			return
		}
		addr := m.parseNum(args[0])
		if m.err == nil {
			m.m.inst.SetBreakpoint(addr)
			m.say("breakpoint at 0x%x", addr)
		}

	case "clear":
		if len(args) == 0 {
			m.m.inst.ClearBreakpoints()
			m.say("all breakpoints cleared")
			return
		}
		addr := m.parseNum(args[0])
		if m.err == nil {
			m.m.inst.ClearBreakpoint(addr)
			m.say("cleared 0x%x", addr)
		}

	case "poll", "p":
		ev, ok := m.m.inst.PollEvent()
		if !ok {
			m.say("no pending events")
			return
		}
		m.say("event: %s", ev)

	case "reset":
		if err := m.m.inst.Reset(); err != nil {
			m.err = err
			return
		}
		m.say("reset")

	case "reg":
		if len(args) != 2 {
			m.err = fmt.Errorf("usage: reg <n> <value>")
			return
		}
		idx, err := strconv.Atoi(args[0])
		if err != nil {
			m.err = err
			return
		}
		v := m.parseNum(args[1])
		if m.err != nil {
			return
		}
		if err := m.m.inst.SetRegister(idx, v); err != nil {
			m.err = err
			return
		}
		m.say("R%d = 0x%x", idx, v)

	case "mem", "x":
		if len(args) < 1 {
			m.err = fmt.Errorf("usage: mem <addr> [len]")
			return
		}
		addr := m.parseNum(args[0])
		size := uint64(16)
		if len(args) > 1 {
			size = m.parseNum(args[1])
		}
		if m.err != nil {
			return
		}
		data, err := m.m.inst.ReadMemory(addr, size)
		if err != nil {
			m.err = err
			return
		}
		m.say("0x%x: % x", addr, data)

	case "save":
		if len(args) != 1 {
			m.err = fmt.Errorf("usage: save <path>")
			return
		}
		if err := state.Save(args[0], m.m.inst.State()); err != nil {
			m.err = err
			return
		}
		m.say("state saved to %s", args[0])

	default:
		m.err = fmt.Errorf("unknown command %q", fields[0])
	}
}

func (m *monitorModel) parseNum(s string) uint64 {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		m.err = fmt.Errorf("bad number %q", s)
		return 0
	}
	return v
}

func (m *monitorModel) say(format string, args ...any) {
	m.log = append(m.log, fmt.Sprintf(format, args...))
	if len(m.log) > 8 {
		m.log = m.log[len(m.log)-8:]
	}
}

func (m *monitorModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("NanoCore Monitor"))
	if m.m.source != "" {
		b.WriteString(" ")
		b.WriteString(m.m.source)
	}
	b.WriteString("\n\n")

	st := m.m.inst.State()
	status := "running"
	if st.Halted() {
		status = haltedStyle.Render("halted")
	}
	b.WriteString(fmt.Sprintf("PC %s  SP %s  Flags %s  [%s]\n",
		valueStyle.Render(fmt.Sprintf("0x%08x", st.PC)),
		valueStyle.Render(fmt.Sprintf("0x%08x", st.SP)),
		valueStyle.Render(fmt.Sprintf("0x%02x", st.Flags)),
		status))
	b.WriteString(fmt.Sprintf("instructions %d  cycles %d  pending events %d\n\n",
		st.Perf[state.PerfInstructions],
		st.Perf[state.PerfCycles],
		m.m.inst.PendingEvents()))

	// Non-zero registers, four per row.
	var cells []string
	for n, v := range st.GPRs {
		if v != 0 {
			cells = append(cells, fmt.Sprintf("%s=%s",
				regStyle.Render(fmt.Sprintf("R%-2d", n)),
				valueStyle.Render(fmt.Sprintf("0x%x", v))))
		}
	}
	for n := 0; n < len(cells); n += 4 {
		end := n + 4
		if end > len(cells) {
			end = len(cells)
		}
		b.WriteString("  " + strings.Join(cells[n:end], "  ") + "\n")
	}

	if bps := m.m.inst.Breakpoints(); len(bps) > 0 {
		sort.Slice(bps, func(i, j int) bool { return bps[i] < bps[j] })
		var parts []string
		for _, addr := range bps {
			parts = append(parts, fmt.Sprintf("0x%x", addr))
		}
		b.WriteString("breakpoints: " + strings.Join(parts, ", ") + "\n")
	}
	b.WriteString("\n")

	for _, line := range m.log {
		b.WriteString(line)
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("step • run [n] • break <addr> • clear • poll • reg <n> <v> • mem <addr> • save <path> • quit"))

	return b.String()
}

func runInteractive(m *machine) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("interactive mode needs a terminal")
	}
	p := tea.NewProgram(newMonitorModel(m), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

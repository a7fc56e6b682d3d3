// Command zrun is a minimal terminal host for the Z-machine engine in
// internal/zvm. Unlike the teacher's split-window, colour-aware TUI it
// renders a single scrolling transcript (v6 windowing is out of
// scope), but keeps the same Bubble Tea/Bubbles/Lipgloss stack and the
// same save-file convention.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/haldane-ifs/zengine/internal/zvm"
)

var baseAppStyle = lipgloss.NewStyle()

var statusBarStyle = lipgloss.NewStyle().
	Background(lipgloss.Color("#222222")).
	Foreground(lipgloss.Color("#DDDDDD"))

var errorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#FF0000")).
	Bold(true)

// stepMsg wraps whatever zvm.Step last returned, so Update can react
// to it like any other tea.Msg.
type stepMsg struct{ result zvm.StepResult }

func pump(m model) tea.Cmd {
	return func() tea.Msg {
		return stepMsg{result: m.vm.Step(m.resume)}
	}
}

type model struct {
	vm       *zvm.VM
	romPath  string
	resume   zvm.Resume
	width    int
	height   int
	input    textinput.Model
	awaiting awaitKind

	transcript strings.Builder
	status     zvm.StatusLine
	fatal      string
	quit       bool
}

type awaitKind int

const (
	awaitNone awaitKind = iota
	awaitLine
	awaitChar
)

func newModel(vm *zvm.VM, romPath string) model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Focus()
	return model{vm: vm, romPath: romPath, input: ti}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tea.SetWindowTitle(filepath.Base(m.romPath)), pump(m))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.Width = m.width - len(m.input.Prompt) - 1
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch m.awaiting {
		case awaitLine:
			if msg.Type == tea.KeyEnter {
				line := m.input.Value()
				m.input.SetValue("")
				m.transcript.WriteString("> " + line + "\n")
				m.resume = zvm.Resume{Line: line}
				m.awaiting = awaitNone
				return m, pump(m)
			}
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		case awaitChar:
			m.resume = zvm.Resume{Char: keyToZSCII(msg)}
			m.awaiting = awaitNone
			return m, pump(m)
		}
		return m, nil

	case stepMsg:
		return m.handleStep(msg.result)
	}
	return m, nil
}

func (m model) handleStep(result zvm.StepResult) (tea.Model, tea.Cmd) {
	switch r := result.(type) {
	case zvm.Output:
		m.transcript.WriteString(r.Text)
		return m, pump(m)

	case zvm.StatusLine:
		m.status = r
		return m, pump(m)

	case zvm.NeedLine:
		m.awaiting = awaitLine
		return m, nil

	case zvm.NeedChar:
		m.awaiting = awaitChar
		return m, nil

	case zvm.Save:
		err := os.WriteFile(m.defaultSaveFilename(), r.Bytes, 0644)
		m.resume = zvm.Resume{SaveOK: err == nil}
		return m, pump(m)

	case zvm.Restore:
		data, err := os.ReadFile(m.defaultSaveFilename())
		if err != nil {
			m.resume = zvm.Resume{RestoreData: nil}
		} else {
			m.resume = zvm.Resume{RestoreData: data}
		}
		return m, pump(m)

	case zvm.Done:
		m.quit = true
		if r.Err != nil {
			m.fatal = r.Err.Error()
		}
		return m, tea.Quit
	}
	return m, nil
}

// defaultSaveFilename derives a save filename from the ROM file path,
// replacing the .z* extension with .sav, e.g. "zork1.z3" -> "zork1.sav".
func (m model) defaultSaveFilename() string {
	if m.romPath == "" {
		return "game.sav"
	}
	base := filepath.Base(m.romPath)
	ext := filepath.Ext(base)
	if len(ext) >= 2 && (ext[1] == 'z' || ext[1] == 'Z') {
		base = base[:len(base)-len(ext)]
	}
	return base + ".sav"
}

func (m model) View() string {
	if m.fatal != "" {
		return fmt.Sprintf("\n%s\n\n%s\n", errorStyle.Render("Z-Machine Error:"), m.fatal)
	}
	if m.quit {
		return "\n" + baseAppStyle.Render("Story finished.") + "\n"
	}
	if m.width == 0 {
		return "Initializing..."
	}

	s := strings.Builder{}
	if m.status.RoomName != "" {
		s.WriteString(statusBarStyle.Width(m.width).Render(renderStatusLine(m.width, m.status)))
		s.WriteString("\n")
	}
	s.WriteString(wordwrap.String(m.transcript.String(), m.width))
	if m.awaiting == awaitLine {
		s.WriteString("\n" + m.input.View())
	}
	return s.String()
}

func renderStatusLine(width int, s zvm.StatusLine) string {
	right := fmt.Sprintf("Score: %d    Moves: %d", s.Score, s.Turns)
	if s.IsTimeGame {
		right = fmt.Sprintf("Time: %02d:%02d", s.Score, s.Turns)
	}
	if len(right) >= width {
		return right[:width]
	}
	if len(s.RoomName)+len(right)+1 >= width {
		return fmt.Sprintf("%s %s", s.RoomName[:width-len(right)-1], right)
	}
	pad := width - len(s.RoomName) - len(right)
	return s.RoomName + strings.Repeat(" ", pad) + right
}

// keyToZSCII maps a Bubble Tea key event to the ZSCII code read_char
// expects, per §3.8 of the Standard: printable runes pass through,
// special keys map to their function-key codes.
func keyToZSCII(msg tea.KeyMsg) uint8 {
	switch msg.Type {
	case tea.KeyUp:
		return 129
	case tea.KeyDown:
		return 130
	case tea.KeyLeft:
		return 131
	case tea.KeyRight:
		return 132
	case tea.KeyEnter:
		return 13
	case tea.KeyDelete, tea.KeyBackspace:
		return 8
	case tea.KeyEscape:
		return 27
	}
	runes := msg.Runes
	if len(runes) == 1 {
		return uint8(runes[0])
	}
	return 0
}

func main() {
	var romPath string
	flag.StringVar(&romPath, "rom", "", "path to a .z3/.z5/.z8 story file")
	flag.Parse()

	if romPath == "" {
		fmt.Fprintln(os.Stderr, "usage: zrun -rom <path>")
		os.Exit(1)
	}

	storyBytes, err := os.ReadFile(romPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading %s: %s\n", romPath, err)
		os.Exit(1)
	}

	vm := zvm.New(storyBytes, zvm.Options{
		StatusCapable: true,
		UndoSupported: true,
		ScreenCols:    80,
		ScreenRows:    24,
	})

	prog := tea.NewProgram(newModel(vm, romPath))
	if _, err := prog.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "zrun: %s\n", err)
		os.Exit(1)
	}
}

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/wry-frost/zm3/internal/storypicker"
	"github.com/wry-frost/zm3/zcore"
	"github.com/wry-frost/zm3/zmachine"
)

var (
	romFilePath   string
	seed          int64
	transcriptOut string
)

// textPresentation is the bridge between zmachine.Presentation and bubbletea's
// message-driven Update loop: the interpreter runs on its own goroutine
// (started by runInterpreter's tea.Cmd) and hands text/status/clear/quit over
// to Update via textOut, statusOut, clearOut and quitOut, while TryReadLine
// blocks on lineIn until Update
// delivers a line the user typed.
type textPresentation struct {
	textOut   chan string
	statusOut chan [2]string
	clearOut  chan struct{}
	quitOut   chan struct{}
	faultOut  chan *zmachine.Fault
	lineIn    chan string
	wantInput chan struct{}
}

func newTextPresentation() *textPresentation {
	return &textPresentation{
		textOut:   make(chan string),
		statusOut: make(chan [2]string),
		clearOut:  make(chan struct{}),
		quitOut:   make(chan struct{}),
		faultOut:  make(chan *zmachine.Fault, 1),
		lineIn:    make(chan string),
		wantInput: make(chan struct{}),
	}
}

func (p *textPresentation) Clear()                       { p.clearOut <- struct{}{} }
func (p *textPresentation) PrintMain(text string)         { p.textOut <- text }
func (p *textPresentation) PrintStatus(left, right string) { p.statusOut <- [2]string{left, right} }
func (p *textPresentation) Quit()                         { close(p.quitOut) }

// TryReadLine blocks on its own channel rather than polling: this
// presentation already dedicates runInterpreter's goroutine solely to
// driving the interpreter, so waiting here costs nothing else. Step itself
// never blocks — it's this implementation's choice to.
func (p *textPresentation) TryReadLine() (string, bool) {
	p.wantInput <- struct{}{}
	return <-p.lineIn, true
}

func (p *textPresentation) RunLoop(step func() bool) {
	for step() {
	}
}

type textUpdateMessage string
type statusUpdateMessage [2]string
type clearMessage struct{}
type inputRequestMessage struct{}
type interpreterQuitMessage struct{}
type runtimeFaultMessage struct{ fault *zmachine.Fault }

type runStoryModel struct {
	pres            *textPresentation
	machine         *zmachine.Machine
	romBytes        []byte
	romFilePath     string
	statusLeft      string
	statusRight     string
	outputLines     []string
	waitingForInput bool
	inputBox        textinput.Model
	width           int
	height          int
	fault           string
}

func runInterpreter(m *zmachine.Machine, pres *textPresentation) tea.Cmd {
	return func() tea.Msg {
		defer func() {
			if r := recover(); r != nil {
				pres.faultOut <- m.Recover(r)
			}
		}()
		m.Run(pres)
		return nil
	}
}

func waitForInterpreter(p *textPresentation) tea.Cmd {
	return func() tea.Msg {
		select {
		case text := <-p.textOut:
			return textUpdateMessage(text)
		case status := <-p.statusOut:
			return statusUpdateMessage(status)
		case <-p.clearOut:
			return clearMessage{}
		case <-p.wantInput:
			return inputRequestMessage{}
		case <-p.quitOut:
			return interpreterQuitMessage{}
		case fault := <-p.faultOut:
			return runtimeFaultMessage{fault: fault}
		}
	}
}

func (m runStoryModel) Init() tea.Cmd {
	return tea.Batch(
		runInterpreter(m.machine, m.pres),
		waitForInterpreter(m.pres),
		tea.SetWindowTitle(romFilePath),
		tea.WindowSize(),
	)
}

func (m runStoryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.waitingForInput && msg.Type == tea.KeyEnter {
			line := m.inputBox.Value()
			m.outputLines = append(m.outputLines, "> "+line)
			m.waitingForInput = false
			m.inputBox.SetValue("")
			m.pres.lineIn <- line
			return m, waitForInterpreter(m.pres)
		}

	case textUpdateMessage:
		m.outputLines = append(m.outputLines, strings.Split(string(msg), "\n")...)
		return m, waitForInterpreter(m.pres)

	case statusUpdateMessage:
		m.statusLeft, m.statusRight = msg[0], msg[1]
		return m, waitForInterpreter(m.pres)

	case clearMessage:
		m.outputLines = nil
		return m, waitForInterpreter(m.pres)

	case inputRequestMessage:
		m.waitingForInput = true
		return m, nil

	case interpreterQuitMessage:
		return m, tea.Quit

	case runtimeFaultMessage:
		m.fault = msg.fault.Error()
		return m, tea.Quit
	}

	if m.waitingForInput {
		m.inputBox, cmd = m.inputBox.Update(msg)
	}
	return m, cmd
}

func (m runStoryModel) View() string {
	if m.fault != "" {
		errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true)
		return fmt.Sprintf("\n%s\n\n%s\n", errorStyle.Render("Interpreter fault:"), m.fault)
	}
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	statusBarStyle := lipgloss.NewStyle().Reverse(true).Width(m.width)

	var s strings.Builder
	if m.statusLeft != "" || m.statusRight != "" {
		s.WriteString(statusBarStyle.Render(statusLine(m.width, m.statusLeft, m.statusRight)))
		s.WriteString("\n")
	}

	body := wordwrap.String(strings.Join(m.outputLines, "\n"), m.width)
	lines := strings.Split(body, "\n")
	bodyHeight := m.height - 2
	if len(lines) > bodyHeight {
		lines = lines[len(lines)-bodyHeight:]
	}
	s.WriteString(strings.Join(lines, "\n"))

	if m.waitingForInput {
		s.WriteString("\n" + m.inputBox.View())
	}

	return s.String()
}

func statusLine(width int, left, right string) string {
	if len(left)+len(right)+1 >= width {
		if len(right) >= width {
			return right[:width]
		}
		return left[:width-len(right)-1] + " " + right
	}
	return left + strings.Repeat(" ", width-len(left)-len(right)) + right
}

func newApplicationModel(core *zcore.Core, romBytes []byte, romPath string) tea.Model {
	ti := textinput.New()
	ti.Focus()
	ti.CharLimit = 200
	ti.Width = 40
	ti.Prompt = ""

	pres := newTextPresentation()
	runSeed := seed
	if runSeed == 0 {
		runSeed = time.Now().UnixNano()
	}
	m := zmachine.New(core, runSeed)

	if transcriptOut != "" {
		f, err := os.OpenFile(transcriptOut, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			m.SetTranscriptWriter(f)
		}
	}

	return runStoryModel{
		pres:        pres,
		machine:     m,
		romBytes:    romBytes,
		romFilePath: romPath,
		inputBox:    ti,
	}
}

func init() {
	flag.StringVar(&romFilePath, "rom", "", "The path of a z-machine story file (v1-3)")
	flag.Int64Var(&seed, "seed", 0, "Deterministic RNG seed (0 means seed from host entropy)")
	flag.StringVar(&transcriptOut, "transcript", "", "Optional file to append output_stream 2 transcript text to")
	flag.Parse()
}

func main() {
	var model tea.Model

	if romFilePath != "" {
		romFileBytes, err := os.ReadFile(romFilePath)
		if err != nil {
			panic(err)
		}
		core, err := zcore.LoadCore(romFileBytes)
		if err != nil {
			fmt.Println("Error loading story:", err)
			os.Exit(1)
		}
		model = newApplicationModel(core, romFileBytes, romFilePath)
	} else {
		cacheDir, _ := os.UserCacheDir()
		if cacheDir != "" {
			cacheDir = filepath.Join(cacheDir, "zm3")
		}
		model = storypicker.NewUIModel(newApplicationModel, cacheDir)
	}

	tui := tea.NewProgram(model)
	final, err := tui.Run()
	if err != nil {
		fmt.Println("Error running program:", err)
		os.Exit(1)
	}
	if story, ok := final.(runStoryModel); ok && story.fault != "" {
		os.Exit(1)
	}
}

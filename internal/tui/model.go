// Package tui is the interactive front end: a file picker that leads to a
// report screen, modeled as a two-state machine.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jward/execscan"
)

// State is the screen the UI is on.
type State int

const (
	// StateStartup shows the prompt and the file picker.
	StateStartup State = iota
	// StateResults shows the report for the chosen file.
	StateResults
)

func (s State) String() string {
	switch s {
	case StateStartup:
		return "startup"
	case StateResults:
		return "results"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ClassifyFunc produces the report for one file. It runs inside a tea.Cmd.
type ClassifyFunc func(ctx context.Context, path string) (execscan.Report, error)

const startupPrompt = "Choose a Python file to find out how much of it actually runs."

type reportMsg struct {
	report execscan.Report
}

type errMsg struct {
	path string
	err  error
}

// Model is the bubbletea model. All UI state lives here; the classifier
// keeps none.
type Model struct {
	ctx        context.Context
	state      State
	dir        string
	extensions []string
	classify   ClassifyFunc
	keys       KeyMap

	picker  filepicker.Model
	height  int
	loading string

	report execscan.Report
	err    error
}

// New creates a Model in StateStartup browsing dir for files with the given
// extensions.
func New(ctx context.Context, dir string, extensions []string, classify ClassifyFunc) Model {
	m := Model{
		ctx:        ctx,
		state:      StateStartup,
		dir:        dir,
		extensions: extensions,
		classify:   classify,
		keys:       DefaultKeyMap(),
	}
	m.picker = m.newPicker()
	return m
}

func (m Model) newPicker() filepicker.Model {
	fp := filepicker.New()
	fp.CurrentDirectory = m.dir
	fp.AllowedTypes = m.extensions
	fp.AutoHeight = false
	if m.height > 0 {
		fp.Height = m.pickerHeight()
	}
	return fp
}

func (m Model) pickerHeight() int {
	return max(3, m.height-8)
}

// State returns the current screen.
func (m Model) State() State {
	return m.state
}

// Report returns the report shown on the Results screen.
func (m Model) Report() execscan.Report {
	return m.report
}

// Err returns the last classification error shown on the Startup screen.
func (m Model) Err() error {
	return m.err
}

func (m Model) Init() tea.Cmd {
	return m.picker.Init()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
		m.picker.Height = m.pickerHeight()

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		if m.state == StateResults {
			if key.Matches(msg, m.keys.Again) {
				return m.chooseAnother()
			}
			return m, nil
		}

	case reportMsg:
		m.state = StateResults
		m.report = msg.report
		m.loading = ""
		m.err = nil
		return m, nil

	case errMsg:
		// Failures keep the user on the picker.
		m.loading = ""
		m.err = fmt.Errorf("%s: %w", msg.path, msg.err)
		return m, nil
	}

	if m.state != StateStartup {
		return m, nil
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)

	if didSelect, path := m.picker.DidSelectFile(msg); didSelect {
		m.loading = path
		m.err = nil
		return m, tea.Batch(cmd, m.classifyCmd(path))
	}
	if didSelect, path := m.picker.DidSelectDisabledFile(msg); didSelect {
		m.err = fmt.Errorf("%s is not a supported file (want %s)", path, strings.Join(m.extensions, ", "))
		return m, cmd
	}
	return m, cmd
}

// chooseAnother is the Results -> Startup transition with a fresh picker.
func (m Model) chooseAnother() (tea.Model, tea.Cmd) {
	m.state = StateStartup
	m.report = execscan.Report{}
	m.err = nil
	m.picker = m.newPicker()
	return m, m.picker.Init()
}

func (m Model) classifyCmd(path string) tea.Cmd {
	ctx, classify := m.ctx, m.classify
	return func() tea.Msg {
		rep, err := classify(ctx, path)
		if err != nil {
			return errMsg{path: path, err: err}
		}
		return reportMsg{report: rep}
	}
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("execscan"))
	b.WriteString("\n")

	switch m.state {
	case StateResults:
		b.WriteString(SubtitleStyle.Render(m.report.Path))
		b.WriteString("\n")
		b.WriteString(BoxStyle.Render(m.renderReport()))
		b.WriteString("\n")
		b.WriteString(HelpStyle.Render(m.keys.ResultsHelpText()))
	default:
		b.WriteString(SubtitleStyle.Render(startupPrompt))
		b.WriteString("\n")
		b.WriteString(m.picker.View())
		if m.loading != "" {
			b.WriteString("\nClassifying " + m.loading + "...")
		}
		if m.err != nil {
			b.WriteString("\n")
			b.WriteString(ErrorStyle.Render("Error: " + m.err.Error()))
		}
		b.WriteString("\n")
		b.WriteString(HelpStyle.Render(m.keys.PickerHelpText()))
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderReport() string {
	rep := m.report
	if rep.Blank || rep.Remark == "" {
		return rep.Message()
	}
	body := strings.TrimSuffix(rep.Message(), "\n"+rep.Remark)
	return body + "\n" + ratingStyle(rep.Rating).Render(rep.Remark)
}

// Run starts the UI and blocks until the user quits or ctx is cancelled.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

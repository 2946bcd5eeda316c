// Copyright 2026 The perfmodel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/perfmodel/perfmodel/experiment"
	"github.com/perfmodel/perfmodel/expfmt"
	"github.com/perfmodel/perfmodel/progress"
	"github.com/perfmodel/perfmodel/report"
)

// A dialog is one queued report. Warnings render as notices below
// the report; the other categories render as a box that captures
// input until dismissed.
type dialog struct {
	cat  Category
	text string
}

// loadMsg carries the result of a load started from the window.
type loadMsg struct {
	exp *experiment.Experiment
	err error
}

// model is the session window. All state changes happen in Update;
// the session is only touched from there.
type model struct {
	s     *Session
	input textinput.Model
	spin  spinner.Model

	width    int
	working  bool
	report   string
	notices  []string
	dialogs  []dialog
	fatal    bool
	quitting bool
}

func newModel(s *Session) model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "path to an experiment file"
	ti.CharLimit = 512
	ti.Width = 60
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := model{s: s, input: ti, spin: sp, width: 80}
	m.renderReport()
	return m.drain()
}

// drain moves reports queued on the session into the window state.
func (m model) drain() model {
	for _, d := range m.s.pending {
		if d.cat == Warning {
			m.notices = append(m.notices, d.text)
		} else {
			m.dialogs = append(m.dialogs, d)
		}
	}
	m.s.pending = nil
	return m
}

func (m *model) renderReport() {
	if m.s.exp == nil || m.s.set == nil {
		m.report = ""
		return
	}
	var b strings.Builder
	report.Text(&b, m.s.exp, m.s.set, report.LevelAll)
	m.report = b.String()
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case spinner.TickMsg:
		if !m.working {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case loadMsg:
		m.working = false
		if msg.err != nil {
			// A bad path or file typed into the window leaves
			// the session usable.
			m.s.report(Recoverable, msg.err)
		} else {
			m.s.install(msg.exp)
			m.renderReport()
		}
		return m.drain(), nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.quitting = true
		return m, tea.Quit
	}

	// A blocking dialog captures all input until dismissed.
	if len(m.dialogs) > 0 {
		switch msg.Type {
		case tea.KeyEnter, tea.KeyEsc, tea.KeySpace:
			d := m.dialogs[0]
			m.dialogs = m.dialogs[1:]
			if d.cat == Fatal {
				m.fatal = true
				m.quitting = true
				return m, tea.Quit
			}
		}
		return m, nil
	}

	if m.working {
		return m, nil
	}

	switch msg.Type {
	case tea.KeyEsc:
		m.quitting = true
		return m, tea.Quit

	case tea.KeyEnter:
		path := strings.TrimSpace(m.input.Value())
		if path == "" {
			return m, nil
		}
		m.working = true
		m.input.SetValue("")
		return m, tea.Batch(m.spin.Tick, loadCmd(path))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// loadCmd reads the file on a program goroutine and delivers the
// result back into Update. The reader is picked from the file name:
// ".json" selects the JSON reader, ".sqlite" and ".db" the legacy
// reader, anything else the text reader.
func loadCmd(path string) tea.Cmd {
	read := expfmt.ReadTextFile
	switch {
	case strings.HasSuffix(path, ".json"):
		read = expfmt.ReadJSONFile
	case strings.HasSuffix(path, ".sqlite"), strings.HasSuffix(path, ".db"):
		read = expfmt.ReadLegacyFile
	}
	return func() tea.Msg {
		exp, err := read(path, progress.Discard)
		return loadMsg{exp: exp, err: err}
	}
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	dialogStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)

	dialogTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("196"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("perfmodel"))
	b.WriteString("\n\n")

	if m.report != "" {
		b.WriteString(m.report)
		b.WriteString("\n")
	} else if !m.working {
		b.WriteString(emptyStyle.Render("No experiment loaded."))
		b.WriteString("\n\n")
	}

	for _, n := range m.notices {
		b.WriteString(noticeStyle.Render("warning: " + n))
		b.WriteString("\n")
	}
	if len(m.notices) > 0 {
		b.WriteString("\n")
	}

	if len(m.dialogs) > 0 {
		d := m.dialogs[0]
		w := m.width - 4
		if w > 76 {
			w = 76
		}
		body := dialogTitleStyle.Render(d.cat.String()) + "\n" +
			d.text + "\n\n" +
			helpStyle.Render("press enter to continue")
		b.WriteString(dialogStyle.Width(w).Render(body))
		b.WriteString("\n")
		return b.String()
	}

	if m.working {
		b.WriteString(m.spin.View())
		b.WriteString(" loading\n")
		return b.String()
	}

	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("enter: load file   esc: quit"))
	b.WriteString("\n")
	return b.String()
}

package tui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dorkyrobot/cftp/internal/output"
)

// ErrInterrupted is returned by ReadLine when the user presses Ctrl+C.
var ErrInterrupted = errors.New("interrupted")

// Completer returns the candidate replacements for the last word of line.
type Completer func(line string) []string

// LineReader reads one command line at a time. ReadLine returns io.EOF when
// input ends.
type LineReader interface {
	ReadLine(prompt string) (string, error)
}

// NewLineReader returns an interactive editor when in is a terminal and a
// plain line scanner otherwise.
func NewLineReader(in *os.File, out io.Writer, complete Completer) LineReader {
	if output.IsTTY(in) {
		return &Editor{In: in, Out: out, Complete: complete}
	}
	return newPlainReader(in)
}

// Editor is an interactive line editor with history and tab completion.
type Editor struct {
	In       io.Reader
	Out      io.Writer
	Complete Completer
	History  []string
}

func (e *Editor) ReadLine(prompt string) (string, error) {
	m := newLineModel(prompt, e.History, e.Complete)
	final, err := tea.NewProgram(m, tea.WithInput(e.In), tea.WithOutput(e.Out)).Run()
	if err != nil {
		return "", fmt.Errorf("reading line: %w", err)
	}

	lm := final.(lineModel)
	switch {
	case lm.eof:
		return "", io.EOF
	case lm.interrupted:
		return "", ErrInterrupted
	}

	line := lm.input.Value()
	if strings.TrimSpace(line) != "" {
		e.History = append(e.History, line)
	}
	return line, nil
}

type plainReader struct {
	scanner *bufio.Scanner
}

func newPlainReader(r io.Reader) *plainReader {
	return &plainReader{scanner: bufio.NewScanner(r)}
}

func (p *plainReader) ReadLine(string) (string, error) {
	if p.scanner.Scan() {
		return p.scanner.Text(), nil
	}
	if err := p.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

type lineModel struct {
	input    textinput.Model
	complete Completer

	history []string
	histPos int
	draft   string

	candidates []string

	done        bool
	eof         bool
	interrupted bool
}

func newLineModel(prompt string, history []string, complete Completer) lineModel {
	ti := textinput.New()
	ti.Prompt = prompt
	ti.Focus()
	return lineModel{
		input:    ti,
		complete: complete,
		history:  history,
		histPos:  len(history),
	}
}

func (m lineModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m lineModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.done = true
			m.candidates = nil
			return m, tea.Quit
		case tea.KeyCtrlC:
			m.interrupted = true
			m.candidates = nil
			return m, tea.Quit
		case tea.KeyCtrlD:
			if m.input.Value() == "" {
				m.eof = true
				return m, tea.Quit
			}
			return m, nil
		case tea.KeyTab:
			m.tab()
			return m, nil
		case tea.KeyUp:
			m.recall(-1)
			return m, nil
		case tea.KeyDown:
			m.recall(1)
			return m, nil
		}
		m.candidates = nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m lineModel) View() string {
	if m.done || m.interrupted || m.eof {
		return m.input.Prompt + m.input.Value() + "\n"
	}
	v := m.input.View()
	if len(m.candidates) > 0 {
		v += "\n" + strings.Join(m.candidates, "  ")
	}
	return v
}

// tab replaces the last word with the only candidate, or with the longest
// prefix shared by all candidates and lists them.
func (m *lineModel) tab() {
	m.candidates = nil
	if m.complete == nil {
		return
	}

	line := m.input.Value()
	start := strings.LastIndexByte(line, ' ') + 1
	word := line[start:]

	matches := m.complete(line)
	switch len(matches) {
	case 0:
		return
	case 1:
		m.setValue(line[:start] + matches[0])
	default:
		if common := commonPrefix(matches); len(common) > len(word) {
			m.setValue(line[:start] + common)
		}
		m.candidates = matches
	}
}

func (m *lineModel) recall(step int) {
	pos := m.histPos + step
	if pos < 0 || pos > len(m.history) {
		return
	}
	if m.histPos == len(m.history) {
		m.draft = m.input.Value()
	}
	m.histPos = pos
	if pos == len(m.history) {
		m.setValue(m.draft)
		return
	}
	m.setValue(m.history[pos])
}

func (m *lineModel) setValue(v string) {
	m.input.SetValue(v)
	m.input.CursorEnd()
}

func commonPrefix(words []string) string {
	if len(words) == 0 {
		return ""
	}
	prefix := words[0]
	for _, w := range words[1:] {
		for !strings.HasPrefix(w, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
	}
	return prefix
}

package ui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrCancelled is returned when the user aborts a prompt with esc or ctrl+c.
var ErrCancelled = errors.New("prompt cancelled")

var (
	promptTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.AdaptiveColor{Light: "#C2410C", Dark: "#FB923C"})

	promptSelectedStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#4ADE80"})

	promptUnselectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "#57534E", Dark: "#A8A29E"})

	promptCursorStyle = promptTitleStyle

	promptErrorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"})

	promptDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#A8A29E", Dark: "#57534E"})
)

const (
	cursorMark     = "❯ "
	toggleHelp     = "← → to choose • enter to confirm • esc to cancel"
	listHelp       = "↑ ↓ to move • enter to select • esc to cancel"
	textHelp       = "enter to confirm • esc to cancel"
	secretHintText = "existing value"
)

// promptState is the confirm/cancel bookkeeping shared by every prompt.
type promptState struct {
	confirmed bool
	cancelled bool
}

func (s promptState) accepted() bool { return s.confirmed && !s.cancelled }

// handleExit marks the prompt finished for enter and the cancel keys.
// allowQ also treats q as cancel, which text inputs must not do.
func (s *promptState) handleExit(key string, allowQ bool) bool {
	switch key {
	case "enter":
		s.confirmed = true
		return true
	case "ctrl+c", "esc":
		s.cancelled = true
		return true
	case "q":
		if allowQ {
			s.cancelled = true
			return true
		}
	}
	return false
}

// renderPrompt lays out title, description, body and key help.
func renderPrompt(title, description, body, help string) string {
	var b strings.Builder
	b.WriteString(promptTitleStyle.Render("? "+title) + "\n")
	if description != "" {
		b.WriteString(promptDimStyle.Render("  "+description) + "\n")
	}
	b.WriteString("\n")
	b.WriteString(body)
	b.WriteString("\n")
	b.WriteString(promptDimStyle.Render("  " + help))
	return b.String()
}

// choice renders one option with or without the cursor.
func choice(label string, active bool) string {
	if active {
		return promptCursorStyle.Render(cursorMark) + promptSelectedStyle.Render(label)
	}
	return "  " + promptUnselectedStyle.Render(label)
}

// runPrompt runs model to completion and hands the final model to result.
func runPrompt[M tea.Model, T any](model M, result func(M) (T, bool)) (T, error) {
	var zero T
	final, err := tea.NewProgram(model).Run()
	if err != nil {
		return zero, err
	}
	m, ok := final.(M)
	if !ok {
		return zero, ErrCancelled
	}
	value, accepted := result(m)
	if !accepted {
		return zero, ErrCancelled
	}
	return value, nil
}

// YesNoPrompt is a two-way toggle between Yes and No.
type YesNoPrompt struct {
	promptState
	question    string
	description string
	yes         bool
}

// NewYesNoPrompt starts on Yes when defaultYes is set.
func NewYesNoPrompt(question, description string, defaultYes bool) *YesNoPrompt {
	return &YesNoPrompt{question: question, description: description, yes: defaultYes}
}

func (m YesNoPrompt) Init() tea.Cmd { return nil }

func (m YesNoPrompt) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "left", "h", "y", "Y":
		m.yes = true
	case "right", "l", "n", "N":
		m.yes = false
	case "tab":
		m.yes = !m.yes
	default:
		if m.handleExit(key.String(), true) {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m YesNoPrompt) View() string {
	body := choice("Yes", m.yes) + "    " + choice("No", !m.yes) + "\n"
	return renderPrompt(m.question, m.description, body, toggleHelp)
}

// Result returns the choice and whether it was confirmed.
func (m YesNoPrompt) Result() (bool, bool) {
	return m.yes, m.accepted()
}

// RunYesNoPrompt asks question and returns ErrCancelled if the user backs out.
func RunYesNoPrompt(question, description string, defaultYes bool) (bool, error) {
	return runPrompt(*NewYesNoPrompt(question, description, defaultYes), YesNoPrompt.Result)
}

// SelectOption is one entry in a SelectPrompt.
type SelectOption struct {
	Label       string
	Value       string
	Description string
}

// SelectPrompt picks one option from a vertical list.
type SelectPrompt struct {
	promptState
	title       string
	description string
	options     []SelectOption
	cursor      int
}

// NewSelectPrompt places the cursor on the option whose Value equals
// defaultValue, or on the first option.
func NewSelectPrompt(title, description string, options []SelectOption, defaultValue string) *SelectPrompt {
	p := &SelectPrompt{title: title, description: description, options: options}
	for i, opt := range options {
		if opt.Value == defaultValue {
			p.cursor = i
			break
		}
	}
	return p
}

func (m SelectPrompt) Init() tea.Cmd { return nil }

func (m SelectPrompt) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "up", "k":
		m.cursor = max(m.cursor-1, 0)
	case "down", "j":
		m.cursor = min(m.cursor+1, len(m.options)-1)
	default:
		if m.handleExit(key.String(), true) {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m SelectPrompt) View() string {
	var body strings.Builder
	for i, opt := range m.options {
		body.WriteString(choice(opt.Label, i == m.cursor))
		if i == m.cursor && opt.Description != "" {
			body.WriteString(promptDimStyle.Render(" - " + opt.Description))
		}
		body.WriteString("\n")
	}
	return renderPrompt(m.title, m.description, body.String(), listHelp)
}

// Result returns the highlighted option and whether it was confirmed.
func (m SelectPrompt) Result() (SelectOption, bool) {
	if m.cursor < 0 || m.cursor >= len(m.options) {
		return SelectOption{}, false
	}
	return m.options[m.cursor], m.accepted()
}

// RunSelectPrompt asks the user to pick one of options.
func RunSelectPrompt(title, description string, options []SelectOption, defaultValue string) (SelectOption, error) {
	return runPrompt(*NewSelectPrompt(title, description, options, defaultValue), SelectPrompt.Result)
}

// TextInputOptions configures a text input prompt.
type TextInputOptions struct {
	Description string
	Placeholder string
	Default     string
	// Secret masks the typed characters.
	Secret bool
	// Error is shown under the input, typically why the previous answer was rejected.
	Error string
}

// TextInputPrompt reads a single line of free text.
type TextInputPrompt struct {
	promptState
	title string
	opts  TextInputOptions
	input textinput.Model
}

// NewTextInputPrompt prefills non-secret defaults. Secret defaults are
// only announced, never echoed.
func NewTextInputPrompt(title string, opts TextInputOptions) *TextInputPrompt {
	ti := textinput.New()
	ti.Placeholder = opts.Placeholder
	ti.CharLimit = 256
	ti.Width = 50
	ti.Focus()

	if opts.Secret {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
	} else if opts.Default != "" {
		ti.SetValue(opts.Default)
	}

	return &TextInputPrompt{title: title, opts: opts, input: ti}
}

func (m TextInputPrompt) Init() tea.Cmd { return textinput.Blink }

func (m TextInputPrompt) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && m.handleExit(key.String(), false) {
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m TextInputPrompt) View() string {
	var body strings.Builder
	body.WriteString("  " + m.input.View() + "\n")

	if m.opts.Error != "" {
		body.WriteString(promptErrorStyle.Render("  ✖ "+m.opts.Error) + "\n")
	}
	if m.opts.Default != "" && m.input.Value() == "" {
		hint := m.opts.Default
		if m.opts.Secret {
			hint = secretHintText
		}
		body.WriteString(promptDimStyle.Render("  Press enter to use: "+hint) + "\n")
	}
	return renderPrompt(m.title, m.opts.Description, body.String(), textHelp)
}

// Result returns the trimmed input, falling back to the default.
func (m TextInputPrompt) Result() (string, bool) {
	value := strings.TrimSpace(m.input.Value())
	if value == "" {
		value = m.opts.Default
	}
	return value, m.accepted()
}

// RunTextInputPrompt reads one line of text from the user.
func RunTextInputPrompt(title string, opts TextInputOptions) (string, error) {
	return runPrompt(*NewTextInputPrompt(title, opts), TextInputPrompt.Result)
}

package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	outMu sync.Mutex
	out   io.Writer = os.Stdout
)

// SetOutput redirects all printed output. A nil writer restores stdout.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	outMu.Lock()
	defer outMu.Unlock()
	out = w
}

func output() io.Writer {
	outMu.Lock()
	defer outMu.Unlock()
	return out
}

func printLine(s string) {
	fmt.Fprintln(output(), s)
}

// isTerminal reports whether the output is an interactive terminal.
func isTerminal() bool {
	f, ok := output().(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#00AA00", Dark: "#00FF00"})
	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#CC6600", Dark: "#FFAA00"})
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF0000"})
	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#0066CC", Dark: "#00AAFF"})
	accentStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#7D56F4", Dark: "#AD8EE6"})
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#999999"})
	valueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#333333", Dark: "#FFFFFF"})
)

// Spinner shows progress for a long running step. On a non-terminal
// output it degrades to a single line.
type Spinner struct {
	msg string
	s   *spinner.Spinner
}

func NewSpinner(message string) *Spinner {
	return &Spinner{msg: message}
}

func (s *Spinner) Start() {
	if s == nil || s.s != nil {
		return
	}
	if !isTerminal() {
		printLine(infoStyle.Render("…") + " " + s.msg)
		return
	}
	s.s = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(output()))
	s.s.Suffix = " " + s.msg
	s.s.Start()
}

// Stop halts the animation and prints the outcome line.
func (s *Spinner) Stop(err error) {
	if s == nil {
		return
	}
	if s.s != nil {
		s.s.Stop()
		s.s = nil
	}
	if err != nil {
		Error(s.msg)
		return
	}
	Success(s.msg)
}

// Success prints a success message with checkmark
func Success(msg string) {
	printLine(successStyle.Render("✔") + " " + msg)
}

// Warn prints a warning message
func Warn(msg string) {
	printLine(warningStyle.Render("⚠") + " " + msg)
}

// Error prints an error message
func Error(msg string) {
	printLine(errorLine(msg))
}

// ErrorTo prints an error message to w, typically stderr.
func ErrorTo(w io.Writer, msg string) {
	fmt.Fprintln(w, errorLine(msg))
}

func errorLine(msg string) string {
	return errorStyle.Render("✖") + " " + msg
}

// Info prints an info message
func Info(msg string) {
	printLine(infoStyle.Render("ℹ") + " " + msg)
}

// Header prints a styled header
func Header(text string) {
	printLine(accentStyle.MarginBottom(1).Render("  " + text))
}

// Highlight prints a label/value pair
func Highlight(label, value string) {
	printLine("  " + labelStyle.Render(label+":") + " " + valueStyle.Render(value))
}

// Box prints text in a styled box
func Box(title, content string) {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.AdaptiveColor{Light: "#7D56F4", Dark: "#AD8EE6"}).
		Padding(0, 1)

	if title != "" {
		printLine(accentStyle.Render("  " + title))
	}
	printLine(boxStyle.Render(content))
}

package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestYesNoPrompt_Update(t *testing.T) {
	tests := []struct {
		name       string
		defaultYes bool
		keys       []tea.KeyMsg
		wantValue  bool
		wantOK     bool
	}{
		{"enter keeps default yes", true, []tea.KeyMsg{{Type: tea.KeyEnter}}, true, true},
		{"n then enter", true, []tea.KeyMsg{keyRunes("n"), {Type: tea.KeyEnter}}, false, true},
		{"tab toggles", false, []tea.KeyMsg{{Type: tea.KeyTab}, {Type: tea.KeyEnter}}, true, true},
		{"esc cancels", true, []tea.KeyMsg{{Type: tea.KeyEsc}}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m tea.Model = *NewYesNoPrompt("Skip AWS?", "", tt.defaultYes)
			for _, k := range tt.keys {
				m, _ = m.Update(k)
			}

			value, ok := m.(YesNoPrompt).Result()
			if value != tt.wantValue || ok != tt.wantOK {
				t.Errorf("Result() = (%v, %v), want (%v, %v)", value, ok, tt.wantValue, tt.wantOK)
			}
		})
	}
}

func TestSelectPrompt_DefaultAndNavigation(t *testing.T) {
	options := []SelectOption{
		{Label: "npm", Value: "npm"},
		{Label: "pnpm", Value: "pnpm"},
		{Label: "yarn", Value: "yarn"},
	}

	var m tea.Model = *NewSelectPrompt("Package manager", "", options, "pnpm")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	got, ok := m.(SelectPrompt).Result()
	if !ok || got.Value != "pnpm" {
		t.Fatalf("default selection = (%v, %v), want pnpm", got, ok)
	}

	m = *NewSelectPrompt("Package manager", "", options, "missing")
	m, _ = m.Update(keyRunes("j"))
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	got, ok = m.(SelectPrompt).Result()
	if !ok || got.Value != "yarn" {
		t.Errorf("navigated selection = (%v, %v), want yarn", got, ok)
	}
}

func TestTextInputPrompt_Default(t *testing.T) {
	var m tea.Model = *NewTextInputPrompt("Mount route", TextInputOptions{Default: "cms"})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	value, ok := m.(TextInputPrompt).Result()
	if !ok || value != "cms" {
		t.Errorf("Result() = (%q, %v), want (cms, true)", value, ok)
	}
}

func TestTextInputPrompt_SecretDefaultNotEchoed(t *testing.T) {
	p := *NewTextInputPrompt("Secret", TextInputOptions{Default: "hunter2-secret", Secret: true, Error: "required"})

	view := p.View()
	if strings.Contains(view, "hunter2-secret") {
		t.Errorf("secret default leaked into view:\n%s", view)
	}
	if !strings.Contains(view, "required") {
		t.Errorf("validation error missing from view:\n%s", view)
	}

	var m tea.Model = p
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if value, _ := m.(TextInputPrompt).Result(); value != "hunter2-secret" {
		t.Errorf("Result() = %q, want secret default", value)
	}
}

func TestTextInputPrompt_QIsText(t *testing.T) {
	var m tea.Model = *NewTextInputPrompt("Bucket name", TextInputOptions{})
	m, _ = m.Update(keyRunes("q"))
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	value, ok := m.(TextInputPrompt).Result()
	if !ok || value != "q" {
		t.Errorf("Result() = (%q, %v), want (q, true)", value, ok)
	}
}

func TestStepTable(t *testing.T) {
	rendered := StepTable([]StepRow{
		{Name: "locate app directory", Status: StatusDone, Duration: 3 * time.Millisecond, Detail: "app"},
		{Name: "install packages", Status: StatusFailed, Duration: 2 * time.Second, Detail: "npm exited with status 1"},
		{Name: "launch dev server", Status: StatusSkipped},
	})

	for _, want := range []string{"locate app directory", "install packages", "npm exited with status 1", "3ms", "2s", "Step"} {
		if !strings.Contains(rendered, want) {
			t.Errorf("table missing %q:\n%s", want, rendered)
		}
	}
}

func TestPrinters(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	Success("installed")
	Warn("duplicated key")
	Highlight("Port", "3001")
	s := NewSpinner("cloning")
	s.Start()
	s.Stop(errors.New("boom"))

	out := buf.String()
	for _, want := range []string{"installed", "duplicated key", "Port:", "3001", "cloning"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestBrowserCommand(t *testing.T) {
	tests := []struct {
		goos string
		want string
	}{
		{"darwin", "open"},
		{"linux", "xdg-open"},
		{"windows", "rundll32"},
	}
	for _, tt := range tests {
		name, args, err := browserCommand(tt.goos, "http://localhost:3000/cms")
		if err != nil || name != tt.want || args[len(args)-1] != "http://localhost:3000/cms" {
			t.Errorf("browserCommand(%q) = %q %v %v", tt.goos, name, args, err)
		}
	}

	if _, _, err := browserCommand("plan9", "http://x"); err == nil {
		t.Error("expected error for unsupported platform")
	}
}

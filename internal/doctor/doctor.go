// Package doctor runs the pre-flight checks that must pass before the
// installer touches the host project.
package doctor

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/johnpolacek/create-bucket-cms/internal/provisioner"
)

// ToolStatus represents the status of one required command-line tool
type ToolStatus struct {
	Name      string
	Installed bool
	Version   string
	Path      string
	Hint      string
}

// Diagnosis contains the full pre-flight results
type Diagnosis struct {
	Manager provisioner.PackageManager
	Tools   []ToolStatus
	Healthy bool
	Issues  []string
}

// Err summarises the issues as a single error, or nil when healthy.
func (d Diagnosis) Err() error {
	if d.Healthy {
		return nil
	}
	return fmt.Errorf("pre-flight failed: %s", strings.Join(d.Issues, "; "))
}

// Checker resolves tools on the PATH. The zero value uses os/exec.
type Checker struct {
	LookPath func(file string) (string, error)
	Version  func(path string) string
}

// Diagnose checks node, git and the selected package manager.
func Diagnose(manager provisioner.PackageManager) Diagnosis {
	return Checker{}.Diagnose(manager)
}

// Diagnose checks node, git and the selected package manager.
func (c Checker) Diagnose(manager provisioner.PackageManager) Diagnosis {
	d := Diagnosis{Manager: manager, Healthy: true}

	required := []struct {
		name string
		hint string
	}{
		{"node", "Please install Node.js from https://nodejs.org"},
		{"git", "Please install git from https://git-scm.com"},
		{string(manager), provisioner.InstallHint(manager)},
	}

	for _, r := range required {
		status := c.check(r.name)
		if !status.Installed {
			status.Hint = r.hint
			d.Healthy = false
			d.Issues = append(d.Issues, fmt.Sprintf("%s is not installed. %s", r.name, r.hint))
		}
		d.Tools = append(d.Tools, status)
	}

	return d
}

func (c Checker) check(name string) ToolStatus {
	lookPath := c.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	version := c.Version
	if version == nil {
		version = toolVersion
	}

	status := ToolStatus{Name: name}
	path, err := lookPath(name)
	if err != nil {
		return status
	}
	status.Installed = true
	status.Path = path
	status.Version = version(path)
	return status
}

// toolVersion runs `<tool> --version`; failures leave the version blank.
func toolVersion(path string) string {
	output, err := exec.Command(path, "--version").Output()
	if err != nil {
		return ""
	}
	first, _, _ := strings.Cut(strings.TrimSpace(string(output)), "\n")
	return first
}

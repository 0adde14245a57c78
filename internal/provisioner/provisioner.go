package provisioner

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// PackageManager represents a detected package manager
type PackageManager string

const (
	NPM  PackageManager = "npm"
	PNPM PackageManager = "pnpm"
	Yarn PackageManager = "yarn"
	Bun  PackageManager = "bun"
)

// Managers lists the supported package managers in prompt order.
var Managers = []PackageManager{NPM, PNPM, Yarn, Bun}

// ParsePackageManager maps a user answer onto a supported manager.
func ParsePackageManager(s string) (PackageManager, bool) {
	for _, m := range Managers {
		if strings.EqualFold(strings.TrimSpace(s), string(m)) {
			return m, true
		}
	}
	return "", false
}

// PackageManagerInfo is what the project root says about its package manager.
type PackageManagerInfo struct {
	Manager PackageManager
	// LockFile is the file the manager was detected from, empty for the npm fallback.
	LockFile string
}

// lockFiles are checked in priority order: pnpm > bun > yarn > npm.
var lockFiles = []struct {
	name    string
	manager PackageManager
}{
	{"pnpm-lock.yaml", PNPM},
	{"pnpm-workspace.yaml", PNPM},
	{"bun.lockb", Bun},
	{"bun.lock", Bun},
	{"yarn.lock", Yarn},
	{"package-lock.json", NPM},
}

// DetectPackageManager checks for lock files in the project root and returns
// the package manager the project already uses. npm is the fallback.
func DetectPackageManager(projectPath string) PackageManagerInfo {
	for _, lf := range lockFiles {
		if _, err := os.Stat(filepath.Join(projectPath, lf.name)); err == nil {
			return PackageManagerInfo{Manager: lf.manager, LockFile: lf.name}
		}
	}
	return PackageManagerInfo{Manager: NPM}
}

// InstallHint returns the installation hint for a package manager
func InstallHint(manager PackageManager) string {
	switch manager {
	case PNPM:
		return "Please run 'corepack enable pnpm' to continue."
	case Yarn:
		return "Please run 'corepack enable yarn' to continue."
	case Bun:
		return "Please install bun from https://bun.sh or run 'curl -fsSL https://bun.sh/install | bash'"
	case NPM:
		return "Please install Node.js from https://nodejs.org"
	default:
		return ""
	}
}

// AddCommand builds the command that adds pkgs to the project in dir.
func AddCommand(manager PackageManager, dir string, pkgs []string) Command {
	verb := "add"
	if manager == NPM {
		verb = "install"
	}
	return Command{
		Name: string(manager),
		Args: append([]string{verb}, pkgs...),
		Dir:  dir,
	}
}

// DevCommand builds the interactive dev-server command listening on port.
func DevCommand(manager PackageManager, dir string, port int) Command {
	return Command{
		Name:        string(manager),
		Args:        []string{"run", "dev"},
		Dir:         dir,
		Env:         []string{"PORT=" + strconv.Itoa(port)},
		Interactive: true,
	}
}

// CloneCommand builds a shallow git clone of repoURL into dest.
func CloneCommand(repoURL, dest string) Command {
	return Command{
		Name: "git",
		Args: []string{"clone", "--depth", "1", repoURL, dest},
	}
}

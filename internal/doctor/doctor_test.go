package doctor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnpolacek/create-bucket-cms/internal/provisioner"
)

func fakeChecker(installed ...string) Checker {
	set := map[string]bool{}
	for _, name := range installed {
		set[name] = true
	}
	return Checker{
		LookPath: func(file string) (string, error) {
			if set[file] {
				return "/usr/bin/" + file, nil
			}
			return "", errors.New("not found")
		},
		Version: func(path string) string { return "v1.0.0" },
	}
}

func TestDiagnose(t *testing.T) {
	tests := []struct {
		name      string
		installed []string
		manager   provisioner.PackageManager
		healthy   bool
		issues    int
	}{
		{name: "all present", installed: []string{"node", "git", "npm"}, manager: provisioner.NPM, healthy: true},
		{name: "missing pnpm", installed: []string{"node", "git", "npm"}, manager: provisioner.PNPM, issues: 1},
		{name: "missing git", installed: []string{"node", "yarn"}, manager: provisioner.Yarn, issues: 1},
		{name: "nothing installed", manager: provisioner.Bun, issues: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := fakeChecker(tt.installed...).Diagnose(tt.manager)

			assert.Equal(t, tt.healthy, d.Healthy)
			assert.Len(t, d.Issues, tt.issues)
			require.Len(t, d.Tools, 3)
			assert.Equal(t, string(tt.manager), d.Tools[2].Name)
			if tt.healthy {
				assert.NoError(t, d.Err())
			} else {
				assert.Error(t, d.Err())
			}
		})
	}
}

func TestDiagnose_ReportsPathAndHint(t *testing.T) {
	d := fakeChecker("node", "git").Diagnose(provisioner.PNPM)

	assert.Equal(t, "/usr/bin/node", d.Tools[0].Path)
	assert.Equal(t, "v1.0.0", d.Tools[0].Version)
	assert.False(t, d.Tools[2].Installed)
	assert.Contains(t, d.Tools[2].Hint, "corepack enable pnpm")
	assert.Contains(t, d.Err().Error(), "pnpm is not installed")
}

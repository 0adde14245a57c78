package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/johnpolacek/create-bucket-cms/internal/ui"
)

// Version information (can be set at build time)
var (
	version = "0.1.0"
)

// newRootCmd builds the command that installs Bucket CMS into the Next.js
// project in the current (or given) directory.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-bucket-cms",
		Short: "Add Bucket CMS to an existing Next.js project",
		Long: `create-bucket-cms installs Bucket CMS into an existing Next.js
App Router project. It:
  - finds the app directory and installs the CMS dependencies
  - copies the admin UI, API routes and the matching auth adapter
  - writes the AWS settings to .env.local
  - starts the dev server and opens the CMS in your browser

Template files are staged first and only written to the project once the
staged tree is complete, so a failed run leaves nothing half-installed.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.NoArgs(cmd, args); err != nil {
				return invalidInput(stepParseArgs, err)
			}
			return nil
		},
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runInstall,
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return invalidInput(stepParseArgs, err)
	})
	registerInstallFlags(cmd)
	return cmd
}

// execute runs cmd, reports a failure on stderr and returns the exit code.
func execute(cmd *cobra.Command, stderr io.Writer) int {
	err := cmd.Execute()
	if err != nil {
		ui.ErrorTo(stderr, err.Error())
	}
	return ExitCode(err)
}

func main() {
	os.Exit(execute(newRootCmd(), os.Stderr))
}

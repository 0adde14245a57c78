package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/johnpolacek/create-bucket-cms/internal/answers"
	"github.com/johnpolacek/create-bucket-cms/internal/config"
	"github.com/johnpolacek/create-bucket-cms/internal/fetch"
	"github.com/johnpolacek/create-bucket-cms/internal/logging"
	"github.com/johnpolacek/create-bucket-cms/internal/orchestrator"
	"github.com/johnpolacek/create-bucket-cms/internal/ui"
)

// Steps reported for failures before the installation starts.
const (
	stepParseArgs    = "parse arguments"
	stepLoadConfig   = "load configuration"
	stepChooseAnswer = "choose answer source"
)

// invalidInput classifies a CLI-level failure as a validation error.
func invalidInput(step string, err error) error {
	return &orchestrator.StepError{Step: step, Kind: orchestrator.KindValidation, Err: err}
}

// errNoAnswers is returned when stdin is not a terminal and no answers
// file was given.
var errNoAnswers = errors.New("stdin is not a terminal; pass --answers FILE to run non-interactively")

func registerInstallFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("dir", "d", ".", "Path to the Next.js project")
	cmd.Flags().StringP("answers", "a", "", "YAML or TOML file answering every prompt")
	cmd.Flags().Bool("no-dev-server", false, "Do not start the dev server after installing")
	cmd.Flags().Bool("no-browser", false, "Do not open the CMS in a browser")
	cmd.Flags().IntP("start-port", "p", config.DefaultStartPort, "First port to try for the dev server")
	cmd.Flags().BoolP("verbose", "v", false, "Log every step to stderr")
}

// loadConfig layers flags over environment overrides and defaults.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, invalidInput(stepLoadConfig, err)
	}

	flags := cmd.Flags()
	cfg.ProjectDir, _ = flags.GetString("dir")
	cfg.AnswersFile, _ = flags.GetString("answers")
	cfg.NoDevServer, _ = flags.GetBool("no-dev-server")
	cfg.NoBrowser, _ = flags.GetBool("no-browser")
	cfg.Verbose, _ = flags.GetBool("verbose")
	if flags.Changed("start-port") {
		cfg.StartPort, _ = flags.GetInt("start-port")
	}

	if err := cfg.Validate(); err != nil {
		return nil, invalidInput(stepLoadConfig, fmt.Errorf("invalid configuration: %w", err))
	}
	return cfg, nil
}

// answerProvider picks the answers file when given, otherwise the
// interactive prompts.
func answerProvider(cfg *config.Config, stdinIsTerminal bool) (answers.Provider, error) {
	if cfg.AnswersFile != "" {
		p, err := answers.FromFile(cfg.AnswersFile)
		if err != nil {
			return nil, invalidInput(stepChooseAnswer, err)
		}
		return p, nil
	}
	if !stdinIsTerminal {
		return nil, invalidInput(stepChooseAnswer, errNoAnswers)
	}
	return answers.NewTerminal(), nil
}

func runInstall(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	level := logging.LevelWarn
	if cfg.Verbose {
		level = logging.LevelDebug
	}
	logging.InitForCLI(level, os.Stderr)

	provider, err := answerProvider(cfg, term.IsTerminal(int(os.Stdin.Fd())))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ui.Header("Bucket CMS")

	o, err := orchestrator.New(orchestrator.OptionsFromConfig(cfg), orchestrator.Dependencies{
		Answers: provider,
		Fetcher: fetch.NewHTTPFetcher(fetch.DefaultOptions(cfg.FetchTimeout)),
	})
	if err != nil {
		return err
	}

	res, err := o.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			ui.Warn("Installation interrupted")
		}
		return err
	}

	logging.Info("CLI", "installed %d files into %s", len(res.Installed), res.ProjectRoot)
	return nil
}

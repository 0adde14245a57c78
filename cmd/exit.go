package main

import (
	"context"
	"errors"

	"github.com/johnpolacek/create-bucket-cms/internal/orchestrator"
)

// Process exit codes.
const (
	ExitOK          = 0
	ExitUnexpected  = 1
	ExitValidation  = 2
	ExitFetch       = 3
	ExitProcess     = 4
	ExitFileSystem  = 5
	ExitPrompt      = 6
	ExitInterrupted = 130
)

var kindExitCodes = map[orchestrator.Kind]int{
	orchestrator.KindValidation: ExitValidation,
	orchestrator.KindFetch:      ExitFetch,
	orchestrator.KindProcess:    ExitProcess,
	orchestrator.KindFileSystem: ExitFileSystem,
	orchestrator.KindPrompt:     ExitPrompt,
}

// ExitCode maps a run error onto the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, context.Canceled) {
		return ExitInterrupted
	}
	var stepErr *orchestrator.StepError
	if errors.As(err, &stepErr) {
		if code, ok := kindExitCodes[stepErr.Kind]; ok {
			return code
		}
	}
	return ExitUnexpected
}

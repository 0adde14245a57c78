package orchestrator

import (
	"errors"
	"fmt"

	"github.com/johnpolacek/create-bucket-cms/internal/answers"
)

// Kind classifies why a step failed.
type Kind string

const (
	// KindValidation covers a host project or environment that does not qualify.
	KindValidation Kind = "validation"
	// KindFetch covers the remote manifest being unreachable or malformed.
	KindFetch Kind = "fetch"
	// KindFileSystem covers copy, rename, remove and write failures.
	KindFileSystem Kind = "filesystem"
	// KindProcess covers child processes that failed or exited non-zero.
	KindProcess Kind = "process"
	// KindPrompt covers cancelled or unusable answers.
	KindPrompt Kind = "prompt"
)

// ErrLocked is returned when another installer holds the project lock.
var ErrLocked = errors.New("another installation is already running in this project")

// StepError records which step failed and why.
type StepError struct {
	Step string
	Kind Kind
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// classify lets answer failures surface as prompt errors from any step.
func classify(kind Kind, err error) Kind {
	var invalid *answers.InvalidAnswerError
	if errors.Is(err, answers.ErrCancelled) || errors.As(err, &invalid) {
		return KindPrompt
	}
	return kind
}

// Package answers defines how the installer obtains its configuration
// answers. The orchestrator only sees the Provider interface. The CLI
// plugs in a terminal provider or a file-backed one, and tests plug in
// a static map.
package answers

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrCancelled is returned when the user aborts a prompt.
var ErrCancelled = errors.New("installation cancelled")

// Kind selects how a question is presented.
type Kind int

const (
	Text Kind = iota
	// Secret input is masked and never echoed back.
	Secret
	// Confirm answers are "yes" or "no".
	Confirm
	// Select answers are one of Options.
	Select
)

// Confirm answers.
const (
	Yes = "yes"
	No  = "no"
)

// Question is one prompt.
type Question struct {
	Key         string
	Prompt      string
	Description string
	Kind        Kind
	Default     string
	Options     []string
	// Optional questions accept an empty answer.
	Optional bool
	// Validate rejects unusable answers. It runs after defaults are applied.
	Validate func(string) error
}

// Provider answers questions.
type Provider interface {
	Ask(ctx context.Context, q Question) (string, error)
}

// InvalidAnswerError reports an answer that failed validation in a
// non-interactive provider.
type InvalidAnswerError struct {
	Key    string
	Answer string
	Err    error
}

func (e *InvalidAnswerError) Error() string {
	return fmt.Sprintf("invalid answer for %s: %v", e.Key, e.Err)
}

func (e *InvalidAnswerError) Unwrap() error { return e.Err }

// Check normalises answer and applies the question's rules.
func (q Question) Check(answer string) (string, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		answer = q.Default
	}

	switch q.Kind {
	case Confirm:
		switch strings.ToLower(answer) {
		case "y", "yes", "true":
			return Yes, nil
		case "n", "no", "false", "":
			return No, nil
		default:
			return "", fmt.Errorf("answer yes or no, got %q", answer)
		}
	case Select:
		for _, opt := range q.Options {
			if strings.EqualFold(answer, opt) {
				return opt, nil
			}
		}
		return "", fmt.Errorf("choose one of %s", strings.Join(q.Options, ", "))
	}

	if answer == "" {
		if q.Optional {
			return "", nil
		}
		return "", errors.New("a value is required")
	}
	if strings.ContainsAny(answer, "\r\n") {
		return "", errors.New("must be a single line")
	}
	if q.Validate != nil {
		if err := q.Validate(answer); err != nil {
			return "", err
		}
	}
	return answer, nil
}

// IsYes reports whether a Confirm answer is affirmative.
func IsYes(answer string) bool {
	return answer == Yes
}

// Static answers from a fixed map, falling back to each question's
// default. Invalid answers are errors, never re-prompted.
type Static struct {
	Answers map[string]string
	// Asked records question keys in the order they were asked.
	Asked []string
}

// NewStatic returns a provider backed by answers.
func NewStatic(answers map[string]string) *Static {
	return &Static{Answers: answers}
}

func (s *Static) Ask(ctx context.Context, q Question) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.Asked = append(s.Asked, q.Key)

	raw := s.Answers[q.Key]
	answer, err := q.Check(raw)
	if err != nil {
		return "", &InvalidAnswerError{Key: q.Key, Answer: raw, Err: err}
	}
	return answer, nil
}

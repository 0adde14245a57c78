package answers

import (
	"context"
	"errors"
	"fmt"

	"github.com/johnpolacek/create-bucket-cms/internal/blueprint"
	"github.com/johnpolacek/create-bucket-cms/internal/ui"
)

// FromFile returns a Static provider loaded from a YAML or TOML answers file.
func FromFile(path string) (*Static, error) {
	bp, err := blueprint.Read(path)
	if err != nil {
		return nil, fmt.Errorf("loading answers: %w", err)
	}
	return NewStatic(fromBlueprint(bp)), nil
}

func fromBlueprint(bp blueprint.Blueprint) map[string]string {
	m := map[string]string{
		KeyPackageManager:  bp.PackageManager,
		KeyRoute:           bp.Route,
		KeySkipAWS:         No,
		KeyAccessKeyID:     bp.AWS.AccessKeyID,
		KeySecretAccessKey: bp.AWS.SecretAccessKey,
		KeyRegion:          bp.AWS.Region,
		KeyBucket:          bp.AWS.Bucket,
		KeyOpenAIAPIKey:    bp.OpenAIAPIKey,
	}
	if bp.SkipAWS {
		m[KeySkipAWS] = Yes
	}
	return m
}

// Terminal prompts interactively. Invalid answers are re-asked with the
// validation message shown under the input.
type Terminal struct{}

// NewTerminal returns the interactive provider.
func NewTerminal() *Terminal {
	return &Terminal{}
}

func (t *Terminal) Ask(ctx context.Context, q Question) (string, error) {
	var lastErr string
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		raw, err := prompt(q, lastErr)
		if errors.Is(err, ui.ErrCancelled) {
			return "", ErrCancelled
		}
		if err != nil {
			return "", fmt.Errorf("prompting for %s: %w", q.Key, err)
		}

		answer, err := q.Check(raw)
		if err == nil {
			return answer, nil
		}
		lastErr = err.Error()
	}
}

func prompt(q Question, lastErr string) (string, error) {
	switch q.Kind {
	case Confirm:
		yes, err := ui.RunYesNoPrompt(q.Prompt, q.Description, IsYes(q.Default))
		if err != nil {
			return "", err
		}
		if yes {
			return Yes, nil
		}
		return No, nil
	case Select:
		options := make([]ui.SelectOption, 0, len(q.Options))
		for _, opt := range q.Options {
			options = append(options, ui.SelectOption{Label: opt, Value: opt})
		}
		selected, err := ui.RunSelectPrompt(q.Prompt, q.Description, options, q.Default)
		if err != nil {
			return "", err
		}
		return selected.Value, nil
	default:
		return ui.RunTextInputPrompt(q.Prompt, textInputOptions(q, lastErr))
	}
}

// optionalPlaceholder hints that an optional question may be left empty.
const optionalPlaceholder = "optional, press enter to skip"

func textInputOptions(q Question, lastErr string) ui.TextInputOptions {
	opts := ui.TextInputOptions{
		Description: q.Description,
		Default:     q.Default,
		Secret:      q.Kind == Secret,
		Error:       lastErr,
	}
	if q.Optional && q.Default == "" {
		opts.Placeholder = optionalPlaceholder
	}
	return opts
}

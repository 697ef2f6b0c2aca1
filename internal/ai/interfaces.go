package ai

import "context"

// TextGenerator is the slice of the model client the orchestrator depends
// on. Generate returns the reply text for a single-turn prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

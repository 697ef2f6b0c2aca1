package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/dvloznov/ledgerbook/internal/domain"
)

// Gemini talks to the Google generative language API. It satisfies
// TextGenerator for the orchestrator and adds a model listing probe used by
// diagnostics surfaces.
type Gemini struct {
	client *genai.Client
	model  string
}

var _ TextGenerator = (*Gemini)(nil)

// NewGemini builds a client for the given model name, defaulting to
// DefaultModelName. Credentials come from the environment (GEMINI_API_KEY
// or GOOGLE_API_KEY), which is the SDK's own resolution order.
func NewGemini(ctx context.Context, model string) (*Gemini, error) {
	if model == "" {
		model = DefaultModelName
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

// Generate sends a single-turn prompt and returns the reply text. Transport
// failures and empty replies both surface as transient call errors.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", &domain.TransientCallError{Op: "generate", Err: err}
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", &domain.TransientCallError{Op: "generate", Err: errors.New("empty response from model")}
	}
	return text, nil
}

// ListModels returns the names of models that support text generation.
func (g *Gemini) ListModels(ctx context.Context) ([]string, error) {
	var names []string
	for model, err := range g.client.Models.All(ctx) {
		if err != nil {
			return nil, fmt.Errorf("list models: %w", err)
		}
		for _, action := range model.SupportedActions {
			if action == "generateContent" {
				names = append(names, model.Name)
				break
			}
		}
	}
	return names, nil
}

// ModelName reports which model requests are sent to.
func (g *Gemini) ModelName() string { return g.model }

package llm

import "context"

// Generator sends one prompt to a language model and returns its raw reply.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	// Name is the vendor, e.g. "gemini".
	Name() string
	// Model is the vendor model, e.g. "gemini-pro".
	Model() string
}

// HealthChecker is implemented by generators that can verify their backend
// without running a full extraction.
type HealthChecker interface {
	Healthy(ctx context.Context) error
}

// ModelIdentifier renders "<vendor>-<model>".
func ModelIdentifier(g Generator) string {
	return g.Name() + "-" + g.Model()
}

package llm

import "context"

// Provider generates a grounded answer from the user query and the assembled
// source context. An empty contextBlock is valid: the model is instructed to
// fall back to general knowledge and say so.
type Provider interface {
	Generate(ctx context.Context, query string, contextBlock string) (string, error)
}

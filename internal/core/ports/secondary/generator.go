package secondary

import "context"

// Generator turns a user prompt into a human readable explanation and the
// script the worker will render.
type Generator interface {
	Generate(ctx context.Context, prompt string) (explanation string, code string, err error)
}

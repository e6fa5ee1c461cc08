package ollama

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnreachable means the inference server did not answer a status query.
	ErrUnreachable = errors.New("inference server unreachable")
	// ErrGeneration means a generation request failed or returned no text.
	ErrGeneration = errors.New("generation failed")
)

// ModelNotFoundError is returned when the requested model is not installed.
type ModelNotFoundError struct {
	Model     string
	Available []string
}

func (e *ModelNotFoundError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("model %q not available (server has no models)", e.Model)
	}
	return fmt.Sprintf("model %q not available; available models: %s", e.Model, strings.Join(e.Available, ", "))
}

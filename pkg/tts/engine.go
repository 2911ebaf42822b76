package tts

import (
	"context"
	"fmt"
)

// Engine converts text in a given language into encoded audio bytes.
type Engine interface {
	Synthesize(ctx context.Context, text, language string) ([]byte, error)
	Name() string
}

// SynthesisError reports that every configured engine failed for a request.
type SynthesisError struct {
	Attempts []string
	Last     error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("speech synthesis failed after %d engine(s): %v", len(e.Attempts), e.Last)
}

func (e *SynthesisError) Unwrap() error {
	return e.Last
}

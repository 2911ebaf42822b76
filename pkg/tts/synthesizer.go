package tts

import (
	"context"
	"fmt"
	"strings"
)

// Synthesizer turns chat messages into audio. It preprocesses markdown out
// of the text, consults the cache, then tries each engine in order until one
// succeeds.
type Synthesizer struct {
	engines []Engine
	cache   *AudioCache
}

func NewSynthesizer(cache *AudioCache, engines ...Engine) *Synthesizer {
	return &Synthesizer{engines: engines, cache: cache}
}

// NewDefaultSynthesizer wires the standard engine chain: Google Translate
// first, StreamElements as fallback.
func NewDefaultSynthesizer() *Synthesizer {
	return NewSynthesizer(
		NewAudioCache(DefaultCacheCapacity),
		NewGoogleEngine(),
		NewStreamElementsEngine(),
	)
}

// Speak synthesizes the given message in the given language and returns MP3
// bytes. Results are cached per (preprocessed text, language) pair.
func (s *Synthesizer) Speak(ctx context.Context, text, language string) ([]byte, error) {
	speakable := PrepareForSpeech(text)
	if strings.TrimSpace(speakable) == "" {
		return nil, fmt.Errorf("nothing to speak after preprocessing")
	}
	if language == "" {
		language = "en"
	}

	if audio, ok := s.cache.Get(speakable, language); ok {
		return audio, nil
	}

	var (
		attempts []string
		lastErr  error
	)
	for _, engine := range s.engines {
		audio, err := engine.Synthesize(ctx, speakable, language)
		if err == nil && len(audio) > 0 {
			s.cache.Put(speakable, language, audio)
			return audio, nil
		}
		if err == nil {
			err = fmt.Errorf("engine %s returned empty audio", engine.Name())
		}
		attempts = append(attempts, engine.Name())
		lastErr = err
	}
	return nil, &SynthesisError{Attempts: attempts, Last: lastErr}
}

// CacheSize reports how many clips are currently cached.
func (s *Synthesizer) CacheSize() int {
	return s.cache.Len()
}

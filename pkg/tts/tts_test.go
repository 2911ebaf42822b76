package tts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrepareForSpeechStripsMarkdown(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bold", "this is **important** stuff", "this is important stuff"},
		{"italic", "a *subtle* hint", "a subtle hint"},
		{"inline code", "call `len(x)` here", "call len(x) here"},
		{"heading", "## Summary\ntext", "Summary\ntext"},
		{"list markers", "- first\n- second\n1. third", "first\nsecond\nthird"},
		{"url", "see https://example.com/page for details", "see link for details"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PrepareForSpeech(tt.input))
		})
	}
}

func TestPrepareForSpeechRemovesFencedCode(t *testing.T) {
	input := "Here is how:\n```go\nfmt.Println(\"hi\")\n```\nThat is all."
	out := PrepareForSpeech(input)
	assert.NotContains(t, out, "fmt.Println")
	assert.Contains(t, out, "code block omitted")
	assert.Contains(t, out, "That is all.")
}

func TestPrepareForSpeechTruncatesLongText(t *testing.T) {
	long := strings.Repeat("word ", 1000)
	out := PrepareForSpeech(long)
	assert.True(t, strings.HasSuffix(out, truncationNotice))
	assert.LessOrEqual(t, len([]rune(out)), maxSpeechLength+len([]rune(truncationNotice)))
}

func TestPrepareForSpeechIsIdempotent(t *testing.T) {
	inputs := []string{
		"**bold** and *italic* with `code` and https://example.com",
		strings.Repeat("long sentence here. ", 200),
		"plain text already",
	}
	for _, input := range inputs {
		once := PrepareForSpeech(input)
		twice := PrepareForSpeech(once)
		assert.Equal(t, once, twice)
	}
}

func TestAudioCacheFIFOEviction(t *testing.T) {
	cache := NewAudioCache(50)
	for i := 0; i < 51; i++ {
		cache.Put(fmt.Sprintf("text-%d", i), "en", []byte{byte(i)})
	}

	assert.Equal(t, 50, cache.Len())

	_, ok := cache.Get("text-0", "en")
	assert.False(t, ok, "oldest entry should be evicted")

	_, ok = cache.Get("text-1", "en")
	assert.True(t, ok)
	_, ok = cache.Get("text-50", "en")
	assert.True(t, ok)
}

func TestAudioCacheHitDoesNotRefreshPosition(t *testing.T) {
	cache := NewAudioCache(2)
	cache.Put("a", "en", []byte("a"))
	cache.Put("b", "en", []byte("b"))

	// Touch the oldest entry, then insert. FIFO still evicts "a".
	_, _ = cache.Get("a", "en")
	cache.Put("c", "en", []byte("c"))

	_, ok := cache.Get("a", "en")
	assert.False(t, ok)
	_, ok = cache.Get("b", "en")
	assert.True(t, ok)
}

func TestAudioCacheKeyIncludesLanguage(t *testing.T) {
	cache := NewAudioCache(10)
	cache.Put("hello", "en", []byte("english"))
	cache.Put("hello", "es", []byte("spanish"))

	en, _ := cache.Get("hello", "en")
	es, _ := cache.Get("hello", "es")
	assert.Equal(t, []byte("english"), en)
	assert.Equal(t, []byte("spanish"), es)
}

type stubEngine struct {
	name  string
	audio []byte
	err   error
	calls int
}

func (s *stubEngine) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	s.calls++
	return s.audio, s.err
}

func (s *stubEngine) Name() string { return s.name }

func TestSynthesizerFallsBackToSecondEngine(t *testing.T) {
	primary := &stubEngine{name: "primary", err: errors.New("service unavailable")}
	fallback := &stubEngine{name: "fallback", audio: []byte("mp3")}
	synth := NewSynthesizer(NewAudioCache(10), primary, fallback)

	audio, err := synth.Speak(context.Background(), "hello there", "en")

	assert.NoError(t, err)
	assert.Equal(t, []byte("mp3"), audio)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)
}

func TestSynthesizerReturnsSynthesisErrorWhenAllFail(t *testing.T) {
	primary := &stubEngine{name: "primary", err: errors.New("boom")}
	fallback := &stubEngine{name: "fallback", err: errors.New("also boom")}
	synth := NewSynthesizer(NewAudioCache(10), primary, fallback)

	_, err := synth.Speak(context.Background(), "hello", "en")

	var synthErr *SynthesisError
	assert.ErrorAs(t, err, &synthErr)
	assert.Equal(t, []string{"primary", "fallback"}, synthErr.Attempts)
}

func TestSynthesizerServesCachedAudio(t *testing.T) {
	engine := &stubEngine{name: "primary", audio: []byte("mp3")}
	synth := NewSynthesizer(NewAudioCache(10), engine)

	_, err := synth.Speak(context.Background(), "hello", "en")
	assert.NoError(t, err)
	_, err = synth.Speak(context.Background(), "hello", "en")
	assert.NoError(t, err)

	assert.Equal(t, 1, engine.calls, "second call should hit the cache")
	assert.Equal(t, 1, synth.CacheSize())
}

func TestSynthesizerRejectsEmptyResult(t *testing.T) {
	synth := NewSynthesizer(NewAudioCache(10), &stubEngine{name: "primary"})

	_, err := synth.Speak(context.Background(), "``````", "en")
	assert.Error(t, err)
}

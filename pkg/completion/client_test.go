package completion

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"u-tutor-be/pkg/llm"
)

type fakeProvider struct {
	reply    string
	err      error
	lastMsgs []llm.Message
	lastOpts llm.Options
}

func (f *fakeProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	f.lastMsgs = history
	f.lastOpts = llm.Options{}
	for _, opt := range options {
		opt(&f.lastOpts)
	}
	return f.reply, f.err
}

func (f *fakeProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return f.reply, f.err
}

func (f *fakeProvider) Stream(ctx context.Context, history []llm.Message, options ...llm.Option) (<-chan string, <-chan error) {
	f.lastMsgs = history
	deltaCh := make(chan string, 8)
	errCh := make(chan error, 1)
	go func() {
		defer close(deltaCh)
		defer close(errCh)
		if f.err != nil {
			errCh <- f.err
			return
		}
		for _, word := range strings.SplitAfter(f.reply, " ") {
			deltaCh <- word
		}
		errCh <- nil
	}()
	return deltaCh, errCh
}

func TestGetResponsePrependsSystemMessage(t *testing.T) {
	fake := &fakeProvider{reply: "hello there"}
	client := NewClient(fake, 0.7)

	reply, err := client.GetResponse(context.Background(), []llm.Message{
		{Role: "user", Content: "hi"},
	})

	assert.NoError(t, err)
	assert.Equal(t, "hello there", reply)
	assert.Len(t, fake.lastMsgs, 2)
	assert.Equal(t, "system", fake.lastMsgs[0].Role)
	assert.Contains(t, fake.lastMsgs[0].Content, "Jake")
	assert.Equal(t, 0.7, fake.lastOpts.Temperature)
}

func TestSetPersonaTakesEffectOnNextCall(t *testing.T) {
	fake := &fakeProvider{reply: "ok"}
	client := NewClient(fake, 0.5)

	client.SetPersona(PersonaConcise)
	_, err := client.GetResponse(context.Background(), []llm.Message{{Role: "user", Content: "hi"}})

	assert.NoError(t, err)
	assert.Equal(t, personaPresets[PersonaConcise], fake.lastMsgs[0].Content)
}

func TestSetPersonaIgnoresUnknownPreset(t *testing.T) {
	fake := &fakeProvider{reply: "ok"}
	client := NewClient(fake, 0.5)

	client.SetPersona("does-not-exist")
	_, _ = client.GetResponse(context.Background(), []llm.Message{{Role: "user", Content: "hi"}})

	assert.Equal(t, defaultSystemMessage, fake.lastMsgs[0].Content)
}

func TestStreamResponseCollectsFragments(t *testing.T) {
	fake := &fakeProvider{reply: "one two three"}
	client := NewClient(fake, 0.5)

	deltaCh, errCh := client.StreamResponse(context.Background(), []llm.Message{
		{Role: "user", Content: "count"},
	})

	var full strings.Builder
	for delta := range deltaCh {
		full.WriteString(delta)
	}
	assert.NoError(t, <-errCh)
	assert.Equal(t, "one two three", full.String())
}

func TestTranslateReturnsOriginalOnFailure(t *testing.T) {
	fake := &fakeProvider{err: errors.New("connection refused")}
	client := NewClient(fake, 0.5)

	out := client.Translate(context.Background(), "Hello world", "es")
	assert.Equal(t, "Hello world", out)
}

func TestTranslateReturnsOriginalOnEmptyReply(t *testing.T) {
	fake := &fakeProvider{reply: "   "}
	client := NewClient(fake, 0.5)

	out := client.Translate(context.Background(), "Hello world", "fr")
	assert.Equal(t, "Hello world", out)
}

func TestTranslateSkipsEmptyTarget(t *testing.T) {
	fake := &fakeProvider{reply: "should not be used"}
	client := NewClient(fake, 0.5)

	out := client.Translate(context.Background(), "Hello", "")
	assert.Equal(t, "Hello", out)
}

func TestGenerateTitleTrimsQuotesAndCapsLength(t *testing.T) {
	fake := &fakeProvider{reply: `"Math: Solving Quadratic Equations"`}
	client := NewClient(fake, 0.5)

	title := client.GenerateTitle(context.Background(), []llm.Message{
		{Role: "user", Content: "how do I solve x^2 + 3x = 0?"},
	})

	assert.Equal(t, "Math: Solving Quadratic Equations", title)
	assert.LessOrEqual(t, len(title), MaxTitleLength)
}

func TestGenerateTitleFallsBackToTruncation(t *testing.T) {
	fake := &fakeProvider{err: errors.New("rate limit exceeded")}
	client := NewClient(fake, 0.5)

	long := strings.Repeat("a", 80)
	title := client.GenerateTitle(context.Background(), []llm.Message{
		{Role: "user", Content: long},
	})

	assert.Equal(t, strings.Repeat("a", 50)+"...", title)
}

func TestTruncateTitle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", "New Conversation"},
		{"whitespace", "   ", "New Conversation"},
		{"short", "Hello tutor", "Hello tutor"},
		{"exactly fifty", strings.Repeat("x", 50), strings.Repeat("x", 50)},
		{"long", strings.Repeat("y", 60), strings.Repeat("y", 50) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TruncateTitle(tt.input))
		})
	}
}

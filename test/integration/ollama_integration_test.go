package integration

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"u-tutor-be/pkg/completion"
	"u-tutor-be/pkg/llm"
	"u-tutor-be/pkg/llm/ollama"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultOllamaBaseURL = "http://localhost:11434"

func ollamaBaseURL() string {
	if v := os.Getenv("OLLAMA_BASE_URL"); v != "" {
		return v
	}
	return defaultOllamaBaseURL
}

func ollamaModel() string {
	if v := os.Getenv("LLM_MODEL"); v != "" {
		return v
	}
	return "llama3"
}

func requireOllama(t *testing.T) {
	t.Helper()
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(ollamaBaseURL() + "/api/tags")
	if err != nil {
		t.Skipf("Skipping integration test: Ollama not reachable at %s", ollamaBaseURL())
	}
	resp.Body.Close()
}

func TestOllamaChat(t *testing.T) {
	requireOllama(t)

	provider := ollama.NewOllamaProvider(ollamaBaseURL(), ollamaModel())

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	reply, err := provider.Chat(ctx, []llm.Message{
		{Role: "user", Content: "Reply with exactly the word: pong"},
	}, llm.WithTemperature(0))
	require.NoError(t, err)
	assert.NotEmpty(t, reply)
	t.Logf("Ollama reply: %s", reply)
}

func TestOllamaStream(t *testing.T) {
	requireOllama(t)

	provider := ollama.NewOllamaProvider(ollamaBaseURL(), ollamaModel())

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	deltaCh, errCh := provider.Stream(ctx, []llm.Message{
		{Role: "user", Content: "Count from 1 to 5, digits only."},
	}, llm.WithTemperature(0))

	var full string
	var fragments int
	for delta := range deltaCh {
		full += delta
		fragments++
	}
	require.NoError(t, <-errCh)
	assert.NotEmpty(t, full)
	assert.Greater(t, fragments, 0)
	t.Logf("Streamed %d fragments: %s", fragments, full)
}

func TestOllamaTutorTurn(t *testing.T) {
	requireOllama(t)

	provider := ollama.NewOllamaProvider(ollamaBaseURL(), ollamaModel())
	client := completion.NewClient(provider, 0.7)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	reply, err := client.GetResponse(ctx, []llm.Message{
		{Role: "user", Content: "In one sentence, what is photosynthesis?"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, reply)
	t.Logf("Tutor reply: %s", reply)
}

package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	googleTTSEndpoint = "https://translate.google.com/translate_tts"
	// The endpoint rejects long inputs, so text is synthesized in chunks
	// and the MP3 segments concatenated.
	googleChunkLimit = 200
)

// GoogleEngine synthesizes speech via the public Google Translate TTS
// endpoint. Output is MP3.
type GoogleEngine struct {
	baseURL string
	client  *http.Client
}

func NewGoogleEngine() *GoogleEngine {
	return &GoogleEngine{
		baseURL: googleTTSEndpoint,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (e *GoogleEngine) Name() string { return "google" }

func (e *GoogleEngine) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty text")
	}
	if language == "" {
		language = "en"
	}

	var audio bytes.Buffer
	for _, chunk := range splitChunks(text, googleChunkLimit) {
		segment, err := e.fetchChunk(ctx, chunk, language)
		if err != nil {
			return nil, err
		}
		audio.Write(segment)
	}
	return audio.Bytes(), nil
}

func (e *GoogleEngine) fetchChunk(ctx context.Context, chunk, language string) ([]byte, error) {
	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("client", "tw-ob")
	params.Set("tl", language)
	params.Set("q", chunk)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64)")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("tts request returned status %d: %s", resp.StatusCode, string(body))
	}
	return io.ReadAll(resp.Body)
}

// splitChunks breaks text into pieces no longer than limit runes, preferring
// sentence and word boundaries so the synthesized audio stays natural.
func splitChunks(text string, limit int) []string {
	var chunks []string
	remaining := []rune(strings.TrimSpace(text))
	for len(remaining) > 0 {
		if len(remaining) <= limit {
			chunks = append(chunks, string(remaining))
			break
		}
		cut := limit
		window := remaining[:limit]
		if idx := lastIndexAny(window, ".!?\n"); idx > limit/2 {
			cut = idx + 1
		} else if idx := lastIndexAny(window, " "); idx > 0 {
			cut = idx + 1
		}
		chunks = append(chunks, strings.TrimSpace(string(remaining[:cut])))
		remaining = remaining[cut:]
	}
	return chunks
}

func lastIndexAny(window []rune, set string) int {
	for i := len(window) - 1; i >= 0; i-- {
		if strings.ContainsRune(set, window[i]) {
			return i
		}
	}
	return -1
}

package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const streamElementsEndpoint = "https://api.streamelements.com/kappa/v2/speech"

// voiceByLanguage maps language codes to StreamElements voice names.
var voiceByLanguage = map[string]string{
	"en": "Brian",
	"es": "Conchita",
	"fr": "Celine",
	"de": "Hans",
	"it": "Carla",
	"pt": "Vitoria",
	"nl": "Ruben",
	"ja": "Mizuki",
	"ko": "Seoyeon",
	"zh": "Zhiyu",
	"ru": "Maxim",
	"pl": "Jacek",
	"tr": "Filiz",
}

// StreamElementsEngine synthesizes speech via the StreamElements public
// speech API. Used as a fallback when the primary engine is unavailable.
type StreamElementsEngine struct {
	baseURL string
	client  *http.Client
}

func NewStreamElementsEngine() *StreamElementsEngine {
	return &StreamElementsEngine{
		baseURL: streamElementsEndpoint,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (e *StreamElementsEngine) Name() string { return "streamelements" }

func (e *StreamElementsEngine) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty text")
	}

	voice, ok := voiceByLanguage[language]
	if !ok {
		voice = voiceByLanguage["en"]
	}

	params := url.Values{}
	params.Set("voice", voice)
	params.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

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

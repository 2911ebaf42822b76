package service

import (
	"context"
	"encoding/base64"

	"u-tutor-be/internal/constant"
	"u-tutor-be/internal/dto"
	"u-tutor-be/internal/pkg/logger"
	"u-tutor-be/pkg/completion"
	"u-tutor-be/pkg/events"
	"u-tutor-be/pkg/tts"
)

type ISpeechService interface {
	Speak(ctx context.Context, request *dto.SpeakRequest) (*dto.SpeakResponse, error)
}

type speechService struct {
	synthesizer      *tts.Synthesizer
	completionClient *completion.Client
	eventPublisher   IEventPublisher
	logger           logger.ILogger
}

func NewSpeechService(
	synthesizer *tts.Synthesizer,
	completionClient *completion.Client,
	eventPublisher IEventPublisher,
	log logger.ILogger,
) ISpeechService {
	return &speechService{
		synthesizer:      synthesizer,
		completionClient: completionClient,
		eventPublisher:   eventPublisher,
		logger:           log,
	}
}

// Speak synthesizes audio for a message, optionally translating it into the
// target language first. Translation is best-effort: when it fails the
// original text is spoken instead.
func (s *speechService) Speak(ctx context.Context, request *dto.SpeakRequest) (*dto.SpeakResponse, error) {
	language := request.Language
	if language == "" {
		language = constant.DefaultLanguage
	}

	text := request.Text
	if request.Translate && language != constant.DefaultLanguage {
		text = s.completionClient.Translate(ctx, text, language)
	}

	cachedBefore := s.synthesizer.CacheSize()
	audio, err := s.synthesizer.Speak(ctx, text, language)
	if err != nil {
		s.logger.Warn("SpeechService", "Synthesis failed", map[string]interface{}{
			"language": language,
			"error":    err.Error(),
		})
		return nil, err
	}
	cached := s.synthesizer.CacheSize() == cachedBefore

	if s.eventPublisher != nil {
		if pubErr := s.eventPublisher.Publish(ctx, events.NewSpeechSynthesized(nil, language, len(audio), cached)); pubErr != nil {
			s.logger.Warn("SpeechService", "Failed to publish synthesis event", map[string]interface{}{
				"error": pubErr.Error(),
			})
		}
	}

	return &dto.SpeakResponse{
		Audio:    base64.StdEncoding.EncodeToString(audio),
		Language: language,
		Cached:   cached,
	}, nil
}

package service

import (
	"context"
	"fmt"
	"strings"

	"u-tutor-be/internal/constant"
	"u-tutor-be/internal/dto"
	"u-tutor-be/internal/pkg/logger"
	"u-tutor-be/internal/pkg/mailer"
	"u-tutor-be/internal/repository/specification"
	"u-tutor-be/internal/repository/unitofwork"
	"u-tutor-be/pkg/events"
	"u-tutor-be/pkg/export"
	"u-tutor-be/pkg/llm"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IEventPublisher sends domain events to the event bus.
type IEventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type IConversationService interface {
	GetAllConversations(ctx context.Context) ([]*dto.GetAllConversationsResponse, error)
	GetHistory(ctx context.Context, conversationId uuid.UUID) ([]*dto.GetConversationHistoryResponse, error)
	Rename(ctx context.Context, conversationId uuid.UUID, title string) error
	Delete(ctx context.Context, conversationId uuid.UUID) error
	Search(ctx context.Context, query string) ([]*dto.GetAllConversationsResponse, error)
	Stats(ctx context.Context) (*dto.ConversationStatsResponse, error)
	Export(ctx context.Context, conversationId uuid.UUID) (*dto.ExportConversationResponse, error)
	EmailTranscript(ctx context.Context, conversationId uuid.UUID, recipient string) error
}

type conversationService struct {
	uowFactory     unitofwork.RepositoryFactory
	emailService   mailer.IEmailService
	eventPublisher IEventPublisher
	logger         logger.ILogger
}

func NewConversationService(
	uowFactory unitofwork.RepositoryFactory,
	emailService mailer.IEmailService,
	eventPublisher IEventPublisher,
	log logger.ILogger,
) IConversationService {
	return &conversationService{
		uowFactory:     uowFactory,
		emailService:   emailService,
		eventPublisher: eventPublisher,
		logger:         log,
	}
}

func (s *conversationService) GetAllConversations(ctx context.Context) ([]*dto.GetAllConversationsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	conversations, err := uow.ConversationRepository().FindAll(ctx,
		specification.OrderBy{Field: "updated_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.GetAllConversationsResponse, 0, len(conversations))
	for _, c := range conversations {
		res = append(res, &dto.GetAllConversationsResponse{
			Id:        c.Id,
			Title:     c.Title,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		})
	}
	return res, nil
}

func (s *conversationService) GetHistory(ctx context.Context, conversationId uuid.UUID) ([]*dto.GetConversationHistoryResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	conversation, err := uow.ConversationRepository().FindOne(ctx, specification.ByID{ID: conversationId})
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		return nil, gorm.ErrRecordNotFound
	}

	messages, err := uow.MessageRepository().FindAll(ctx,
		specification.ByConversationID{ConversationID: conversationId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.GetConversationHistoryResponse, 0, len(messages))
	for _, m := range messages {
		res = append(res, &dto.GetConversationHistoryResponse{
			Id:        m.Id,
			Role:      m.Role,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}
	return res, nil
}

func (s *conversationService) Rename(ctx context.Context, conversationId uuid.UUID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("title must not be empty")
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.ConversationRepository().Rename(ctx, conversationId, title)
}

// Delete removes the conversation and its messages in one transaction.
func (s *conversationService) Delete(ctx context.Context, conversationId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}

	if err := uow.MessageRepository().DeleteAllByConversationId(ctx, conversationId); err != nil {
		uow.Rollback()
		return err
	}
	if err := uow.ConversationRepository().Delete(ctx, conversationId); err != nil {
		uow.Rollback()
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	if s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, events.NewConversationDeleted(conversationId)); err != nil {
			s.logger.Warn("ConversationService", "Failed to publish deletion event", map[string]interface{}{
				"conversation_id": conversationId,
				"error":           err.Error(),
			})
		}
	}
	return nil
}

func (s *conversationService) Search(ctx context.Context, query string) ([]*dto.GetAllConversationsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	conversations, err := uow.ConversationRepository().FindAll(ctx,
		specification.TitleContains{Substring: strings.TrimSpace(query)},
		specification.OrderBy{Field: "updated_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.GetAllConversationsResponse, 0, len(conversations))
	for _, c := range conversations {
		res = append(res, &dto.GetAllConversationsResponse{
			Id:        c.Id,
			Title:     c.Title,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		})
	}
	return res, nil
}

func (s *conversationService) Stats(ctx context.Context) (*dto.ConversationStatsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	totalConversations, err := uow.ConversationRepository().Count(ctx)
	if err != nil {
		return nil, err
	}
	totalMessages, err := uow.MessageRepository().Count(ctx)
	if err != nil {
		return nil, err
	}
	userMessages, err := uow.MessageRepository().Count(ctx,
		specification.FilterBy{Field: "role", Value: constant.MessageRoleUser},
	)
	if err != nil {
		return nil, err
	}
	assistantMessages, err := uow.MessageRepository().Count(ctx,
		specification.FilterBy{Field: "role", Value: constant.MessageRoleAssistant},
	)
	if err != nil {
		return nil, err
	}

	res := &dto.ConversationStatsResponse{
		TotalConversations: totalConversations,
		TotalMessages:      totalMessages,
		UserMessages:       userMessages,
		AssistantMessages:  assistantMessages,
	}
	if totalConversations > 0 {
		res.AvgMessagesPerConv = float64(totalMessages) / float64(totalConversations)
	}

	latest, err := uow.ConversationRepository().FindAll(ctx,
		specification.OrderBy{Field: "updated_at", Desc: true},
		specification.Pagination{Limit: 1, Offset: 0},
	)
	if err != nil {
		return nil, err
	}
	if len(latest) > 0 {
		res.LatestConversation = &dto.GetAllConversationsResponse{
			Id:        latest[0].Id,
			Title:     latest[0].Title,
			CreatedAt: latest[0].CreatedAt,
			UpdatedAt: latest[0].UpdatedAt,
		}
	}

	return res, nil
}

func (s *conversationService) buildTranscript(ctx context.Context, conversationId uuid.UUID) (*export.Transcript, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	conversation, err := uow.ConversationRepository().FindOne(ctx, specification.ByID{ID: conversationId})
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		return nil, gorm.ErrRecordNotFound
	}

	messages, err := uow.MessageRepository().FindAll(ctx,
		specification.ByConversationID{ConversationID: conversationId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	transcript := &export.Transcript{
		Title:     conversation.Title,
		CreatedAt: conversation.CreatedAt,
		Messages:  make([]llm.Message, 0, len(messages)),
	}
	for _, m := range messages {
		transcript.Messages = append(transcript.Messages, llm.Message{Role: m.Role, Content: m.Content})
	}
	return transcript, nil
}

func (s *conversationService) Export(ctx context.Context, conversationId uuid.UUID) (*dto.ExportConversationResponse, error) {
	transcript, err := s.buildTranscript(ctx, conversationId)
	if err != nil {
		return nil, err
	}

	return &dto.ExportConversationResponse{
		Filename: export.Filename(transcript.Title),
		Markdown: export.Markdown(*transcript),
	}, nil
}

func (s *conversationService) EmailTranscript(ctx context.Context, conversationId uuid.UUID, recipient string) error {
	transcript, err := s.buildTranscript(ctx, conversationId)
	if err != nil {
		return err
	}

	subject := "U-Tutor transcript: " + transcript.Title
	if err := s.emailService.SendTranscript(recipient, subject, export.Markdown(*transcript)); err != nil {
		s.logger.Error("ConversationService", "Failed to email transcript", map[string]interface{}{
			"conversation_id": conversationId,
			"error":           err.Error(),
		})
		return err
	}

	s.logger.Info("ConversationService", "Transcript emailed", map[string]interface{}{
		"conversation_id": conversationId,
	})
	return nil
}

package service

import (
	"context"
	"encoding/json"

	"u-tutor-be/internal/dto"
	"u-tutor-be/internal/entity"
	"u-tutor-be/internal/pkg/logger"
	"u-tutor-be/internal/repository/memory"
	"u-tutor-be/internal/repository/specification"
	"u-tutor-be/internal/repository/unitofwork"
	"u-tutor-be/internal/websocket"
	"u-tutor-be/pkg/chat"
	"u-tutor-be/pkg/completion"
	"u-tutor-be/pkg/events"
	"u-tutor-be/pkg/llm"
	"u-tutor-be/pkg/store"

	"github.com/google/uuid"
)

type IChatService interface {
	SendMessage(ctx context.Context, request *dto.SendMessageRequest) (*dto.SendMessageResponse, error)
	Regenerate(ctx context.Context, sessionId string) (*dto.SendMessageResponse, error)
	Cancel(ctx context.Context, sessionId string) error
	SwitchConversation(ctx context.Context, sessionId string, conversationId uuid.UUID) (*dto.SessionStateResponse, error)
	NewConversation(ctx context.Context, sessionId string) (*dto.SessionStateResponse, error)
	DeleteConversation(ctx context.Context, sessionId string, conversationId uuid.UUID) error
	SubmitSuggestion(ctx context.Context, request *dto.SendMessageRequest) (*dto.SendMessageResponse, error)
	SessionState(ctx context.Context, sessionId string) (*dto.SessionStateResponse, error)
	UpdateSettings(ctx context.Context, request *dto.UpdateSettingsRequest) error
}

type chatService struct {
	controller       *chat.Controller
	completionClient *completion.Client
	sessionRepo      *memory.SessionRepository
	hub              *websocket.Hub
	publisherService IPublisherService
	logger           logger.ILogger
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	completionClient *completion.Client,
	sessionRepo *memory.SessionRepository,
	hub *websocket.Hub,
	publisherService IPublisherService,
	eventPublisher IEventPublisher,
	log logger.ILogger,
) IChatService {
	adapter := &gormConversationStore{
		uowFactory:     uowFactory,
		eventPublisher: eventPublisher,
		logger:         log,
	}
	return &chatService{
		controller:       chat.NewController(adapter, completionClient),
		completionClient: completionClient,
		sessionRepo:      sessionRepo,
		hub:              hub,
		publisherService: publisherService,
		logger:           log,
	}
}

// SendMessage accepts a user message and drives the full turn: persist,
// stream the reply to the session's websocket, persist the reply.
func (s *chatService) SendMessage(ctx context.Context, request *dto.SendMessageRequest) (*dto.SendMessageResponse, error) {
	sess := s.sessionRepo.GetOrCreate(request.SessionId)

	hadConversation := sess.ConversationID != nil
	if err := s.controller.Submit(ctx, sess, request.Message); err != nil {
		return nil, err
	}
	s.sessionRepo.Save(sess)

	reply, err := s.generate(ctx, sess)
	if err != nil {
		return nil, err
	}

	// A conversation created by this turn gets its model-generated title
	// asynchronously once the first exchange is complete.
	if !hadConversation && sess.ConversationID != nil {
		s.requestTitleGeneration(ctx, *sess.ConversationID)
	}

	res := &dto.SendMessageResponse{Reply: reply}
	if sess.ConversationID != nil {
		res.ConversationId = *sess.ConversationID
	}
	return res, nil
}

func (s *chatService) Regenerate(ctx context.Context, sessionId string) (*dto.SendMessageResponse, error) {
	sess := s.sessionRepo.GetOrCreate(sessionId)

	if err := s.controller.RegenerateLast(sess); err != nil {
		return nil, err
	}
	s.sessionRepo.Save(sess)

	reply, err := s.generate(ctx, sess)
	if err != nil {
		return nil, err
	}

	res := &dto.SendMessageResponse{Reply: reply}
	if sess.ConversationID != nil {
		res.ConversationId = *sess.ConversationID
	}
	return res, nil
}

// generate runs the streamed completion, mirroring fragments to the
// websocket hub, and reports terminal frames there as well.
func (s *chatService) generate(ctx context.Context, sess *store.Session) (string, error) {
	reply, err := s.controller.ContinueGeneration(ctx, sess, func(delta string) {
		s.hub.SendToSession(websocket.StreamEvent{
			Type:      "fragment",
			SessionID: sess.ID,
			Data:      delta,
		})
	})
	s.sessionRepo.Save(sess)

	if err != nil {
		frame := websocket.StreamEvent{Type: "error", SessionID: sess.ID}
		if cErr, ok := err.(*chat.CompletionError); ok {
			frame.Data = map[string]interface{}{
				"kind":    string(cErr.Kind),
				"message": cErr.UserMessage(),
			}
		}
		s.hub.SendToSession(frame)
		return "", err
	}

	if reply != "" {
		s.hub.SendToSession(websocket.StreamEvent{
			Type:      "done",
			SessionID: sess.ID,
			Data:      reply,
		})
	}
	return reply, nil
}

func (s *chatService) Cancel(ctx context.Context, sessionId string) error {
	sess, found := s.sessionRepo.Get(sessionId)
	if !found {
		return nil
	}

	s.controller.CancelForNavigation(sess)
	s.sessionRepo.Save(sess)

	s.hub.SendToSession(websocket.StreamEvent{
		Type:      "cancelled",
		SessionID: sessionId,
	})
	return nil
}

func (s *chatService) SwitchConversation(ctx context.Context, sessionId string, conversationId uuid.UUID) (*dto.SessionStateResponse, error) {
	sess := s.sessionRepo.GetOrCreate(sessionId)

	if err := s.controller.SwitchConversation(ctx, sess, conversationId); err != nil {
		return nil, err
	}
	s.sessionRepo.Save(sess)

	// A message submitted while the switch was settling is replayed now.
	if err := s.controller.SubmitPending(ctx, sess); err != nil {
		s.logger.Warn("ChatService", "Pending message replay failed", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
	}
	s.sessionRepo.Save(sess)

	return sessionStateResponse(sess), nil
}

func (s *chatService) NewConversation(ctx context.Context, sessionId string) (*dto.SessionStateResponse, error) {
	sess := s.sessionRepo.GetOrCreate(sessionId)

	s.controller.StartNewConversation(sess)
	s.sessionRepo.Save(sess)

	return sessionStateResponse(sess), nil
}

func (s *chatService) DeleteConversation(ctx context.Context, sessionId string, conversationId uuid.UUID) error {
	sess := s.sessionRepo.GetOrCreate(sessionId)

	if err := s.controller.DeleteConversation(ctx, sess, conversationId); err != nil {
		return err
	}
	s.sessionRepo.Save(sess)
	return nil
}

// SubmitSuggestion queues a suggestion click and replays it. While the
// session is still generating the text stays queued; the next navigation
// command picks it up.
func (s *chatService) SubmitSuggestion(ctx context.Context, request *dto.SendMessageRequest) (*dto.SendMessageResponse, error) {
	sess := s.sessionRepo.GetOrCreate(request.SessionId)

	s.controller.QueueMessage(sess, request.Message)
	s.sessionRepo.Save(sess)

	if sess.AwaitingResponse {
		return &dto.SendMessageResponse{}, nil
	}

	hadConversation := sess.ConversationID != nil
	if err := s.controller.SubmitPending(ctx, sess); err != nil {
		return nil, err
	}
	s.sessionRepo.Save(sess)

	reply, err := s.generate(ctx, sess)
	if err != nil {
		return nil, err
	}

	if !hadConversation && sess.ConversationID != nil {
		s.requestTitleGeneration(ctx, *sess.ConversationID)
	}

	res := &dto.SendMessageResponse{Reply: reply}
	if sess.ConversationID != nil {
		res.ConversationId = *sess.ConversationID
	}
	return res, nil
}

func (s *chatService) SessionState(ctx context.Context, sessionId string) (*dto.SessionStateResponse, error) {
	sess := s.sessionRepo.GetOrCreate(sessionId)
	return sessionStateResponse(sess), nil
}

func (s *chatService) UpdateSettings(ctx context.Context, request *dto.UpdateSettingsRequest) error {
	sess := s.sessionRepo.GetOrCreate(request.SessionId)

	if request.Persona != "" {
		s.completionClient.SetPersona(request.Persona)
		sess.Persona = request.Persona
	}
	if request.Temperature != nil {
		s.completionClient.SetTemperature(*request.Temperature)
		sess.Temperature = *request.Temperature
	}
	if request.Language != "" {
		sess.Language = request.Language
	}
	s.sessionRepo.Save(sess)
	return nil
}

func (s *chatService) requestTitleGeneration(ctx context.Context, conversationId uuid.UUID) {
	payload, err := json.Marshal(dto.GenerateTitleMessage{ConversationId: conversationId})
	if err != nil {
		return
	}
	if err := s.publisherService.Publish(ctx, payload); err != nil {
		s.logger.Warn("ChatService", "Failed to enqueue title generation", map[string]interface{}{
			"conversation_id": conversationId,
			"error":           err.Error(),
		})
	}
}

func sessionStateResponse(sess *store.Session) *dto.SessionStateResponse {
	messages := make([]dto.MessageView, 0, len(sess.Messages))
	for _, m := range sess.Messages {
		messages = append(messages, dto.MessageView{Role: m.Role, Content: m.Content})
	}
	return &dto.SessionStateResponse{
		SessionId:           sess.ID,
		ConversationId:      sess.ConversationID,
		Messages:            messages,
		AwaitingResponse:    sess.AwaitingResponse,
		GenerationCancelled: sess.GenerationCancelled,
		PendingMessage:      sess.PendingMessage,
	}
}

// gormConversationStore adapts the unit-of-work repositories to the chat
// controller's persistence contract.
type gormConversationStore struct {
	uowFactory     unitofwork.RepositoryFactory
	eventPublisher IEventPublisher
	logger         logger.ILogger
}

func (g *gormConversationStore) CreateConversation(ctx context.Context, title string) (uuid.UUID, error) {
	uow := g.uowFactory.NewUnitOfWork(ctx)

	conversation := &entity.Conversation{Title: title}
	if err := uow.ConversationRepository().Create(ctx, conversation); err != nil {
		return uuid.Nil, err
	}

	g.publishEvent(ctx, events.NewConversationCreated(conversation.Id, title))
	return conversation.Id, nil
}

// AppendMessage writes the message row and bumps the parent conversation's
// updated_at in the same transaction.
func (g *gormConversationStore) AppendMessage(ctx context.Context, conversationID uuid.UUID, role, content string) error {
	uow := g.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}

	msg := &entity.Message{
		ConversationId: conversationID,
		Role:           role,
		Content:        content,
	}
	if err := uow.MessageRepository().Create(ctx, msg); err != nil {
		uow.Rollback()
		return err
	}
	if err := uow.ConversationRepository().Touch(ctx, conversationID); err != nil {
		uow.Rollback()
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	g.publishEvent(ctx, events.NewMessageAppended(conversationID, role, len(content)))
	return nil
}

func (g *gormConversationStore) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]llm.Message, error) {
	uow := g.uowFactory.NewUnitOfWork(ctx)

	rows, err := uow.MessageRepository().FindAll(ctx,
		specification.ByConversationID{ConversationID: conversationID},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	messages := make([]llm.Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, llm.Message{Role: row.Role, Content: row.Content})
	}
	return messages, nil
}

func (g *gormConversationStore) DeleteConversation(ctx context.Context, conversationID uuid.UUID) error {
	uow := g.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}

	if err := uow.MessageRepository().DeleteAllByConversationId(ctx, conversationID); err != nil {
		uow.Rollback()
		return err
	}
	if err := uow.ConversationRepository().Delete(ctx, conversationID); err != nil {
		uow.Rollback()
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	g.publishEvent(ctx, events.NewConversationDeleted(conversationID))
	return nil
}

func (g *gormConversationStore) publishEvent(ctx context.Context, event events.Event) {
	if g.eventPublisher == nil {
		return
	}
	if err := g.eventPublisher.Publish(ctx, event); err != nil {
		g.logger.Warn("ChatService", "Failed to publish event", map[string]interface{}{
			"event_type": event.EventType(),
			"error":      err.Error(),
		})
	}
}

var _ chat.ConversationStore = (*gormConversationStore)(nil)

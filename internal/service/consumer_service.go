package service

import (
	"context"
	"encoding/json"
	"log"

	"u-tutor-be/internal/dto"
	"u-tutor-be/internal/repository/specification"
	"u-tutor-be/internal/repository/unitofwork"
	"u-tutor-be/internal/websocket"
	"u-tutor-be/pkg/completion"
	"u-tutor-be/pkg/events"
	"u-tutor-be/pkg/llm"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService generates conversation titles in the background: once a
// conversation has its first exchange, a job is published and this consumer
// asks the model for a short descriptive title.
type consumerService struct {
	pubSub           *gochannel.GoChannel
	topicName        string
	uowFactory       unitofwork.RepositoryFactory
	completionClient *completion.Client
	hub              *websocket.Hub
	eventPublisher   IEventPublisher
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	completionClient *completion.Client,
	hub *websocket.Hub,
	eventPublisher IEventPublisher,
) IConsumerService {
	return &consumerService{
		pubSub:           pubSub,
		topicName:        topicName,
		uowFactory:       uowFactory,
		completionClient: completionClient,
		hub:              hub,
		eventPublisher:   eventPublisher,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.GenerateTitleMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal title job: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	log.Printf("[INFO] Generating title for conversation %s", payload.ConversationId)

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	conversation, err := uow.ConversationRepository().FindOne(ctx, specification.ByID{ID: payload.ConversationId})
	if err != nil {
		log.Printf("[ERROR] Failed to load conversation %s: %v", payload.ConversationId, err)
		msg.Nack() // Nack for retriable errors
		return
	}
	if conversation == nil {
		log.Printf("[WARN] Conversation %s no longer exists", payload.ConversationId)
		msg.Ack()
		return
	}

	rows, err := uow.MessageRepository().FindAll(ctx,
		specification.ByConversationID{ConversationID: payload.ConversationId},
		specification.OrderBy{Field: "created_at", Desc: false},
		specification.Pagination{Limit: 4, Offset: 0},
	)
	if err != nil {
		log.Printf("[ERROR] Failed to load messages for %s: %v", payload.ConversationId, err)
		msg.Nack()
		return
	}
	if len(rows) == 0 {
		msg.Ack()
		return
	}

	history := make([]llm.Message, 0, len(rows))
	for _, row := range rows {
		history = append(history, llm.Message{Role: row.Role, Content: row.Content})
	}

	title := cs.completionClient.GenerateTitle(ctx, history)
	if title == "" || title == conversation.Title {
		msg.Ack()
		return
	}

	if err := uow.ConversationRepository().Rename(ctx, payload.ConversationId, title); err != nil {
		log.Printf("[ERROR] Failed to rename conversation %s: %v", payload.ConversationId, err)
		msg.Nack()
		return
	}

	if cs.eventPublisher != nil {
		if err := cs.eventPublisher.Publish(ctx, events.NewTitleGenerated(payload.ConversationId, title)); err != nil {
			log.Printf("[WARN] Failed to publish title event for %s: %v", payload.ConversationId, err)
		}
	}

	// Every connected tab learns the new title.
	cs.hub.Broadcast(websocket.StreamEvent{
		Type: "title_updated",
		Data: map[string]interface{}{
			"conversation_id": payload.ConversationId.String(),
			"title":           title,
		},
	})

	msg.Ack()
}

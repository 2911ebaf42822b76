package service

import (
	"context"

	"u-tutor-be/internal/pkg/logger"
	"u-tutor-be/pkg/events"

	pktNats "u-tutor-be/pkg/nats"
)

// AuditService consumes every domain event from the bus and writes it to the
// structured log, giving an append-only trail of conversation activity.
type AuditService struct {
	subscriber *pktNats.Subscriber
	logger     logger.ILogger
}

func NewAuditService(subscriber *pktNats.Subscriber, log logger.ILogger) *AuditService {
	return &AuditService{
		subscriber: subscriber,
		logger:     log,
	}
}

// Start subscribes to all tutor events with a durable consumer. It returns
// after registration; handling happens on the NATS delivery goroutine.
func (s *AuditService) Start() error {
	return s.subscriber.Subscribe("tutor.>", "tutor-audit", func(ctx context.Context, event events.Event) error {
		s.logger.Info("Audit", "Event: "+event.EventType(), event.Payload())
		return nil
	})
}

package bootstrap

import (
	"context"
	"log"
	"time"

	"u-tutor-be/internal/config"
	"u-tutor-be/internal/controller"
	"u-tutor-be/internal/pkg/logger"
	"u-tutor-be/internal/pkg/mailer"
	"u-tutor-be/internal/repository/memory"
	"u-tutor-be/internal/repository/unitofwork"
	"u-tutor-be/internal/service"
	"u-tutor-be/internal/websocket"
	"u-tutor-be/pkg/completion"
	"u-tutor-be/pkg/llm/factory"
	"u-tutor-be/pkg/tts"

	pktNats "u-tutor-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController         controller.IChatController
	ConversationController controller.IConversationController
	SpeechController       controller.ISpeechController

	// Background services (exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets
	WebSocketHub *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.SenderName,
	)

	// 2. Event bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. LLM provider and completion client
	apiKey := cfg.Ai.OpenAIKey
	if cfg.Ai.LLMProvider == "huggingface" {
		apiKey = cfg.Ai.HuggingFaceKey
	}
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		apiKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	completionClient := completion.NewClient(llmProvider, cfg.Tutor.Temperature)
	completionClient.SetPersona(cfg.Tutor.Persona)

	// Speech synthesis with bounded audio cache
	synthesizer := tts.NewDefaultSynthesizer()

	// In-memory session storage
	sessionRepo := memory.NewSessionRepository(time.Duration(cfg.Tutor.SessionIdleExpiry) * time.Minute)

	// 4. Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	var eventPublisher service.IEventPublisher
	if natsPub != nil {
		eventPublisher = natsPub
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// WebSocket hub
	wsLogger := logger.NewIsolatedLogger("logs/stream.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 5. Services
	publisherService := service.NewPublisherService(pubSub, cfg.Tutor.TitleTopic)

	chatService := service.NewChatService(
		uowFactory,
		completionClient,
		sessionRepo,
		wsHub,
		publisherService,
		eventPublisher,
		sysLogger,
	)

	conversationService := service.NewConversationService(
		uowFactory,
		emailService,
		eventPublisher,
		sysLogger,
	)

	speechService := service.NewSpeechService(
		synthesizer,
		completionClient,
		eventPublisher,
		sysLogger,
	)

	// Durable audit trail of domain events
	if natsSub != nil {
		auditService := service.NewAuditService(natsSub, sysLogger)
		if err := auditService.Start(); err != nil {
			log.Printf("[WARN] Failed to start audit consumer: %v", err)
		}
	}

	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Tutor.TitleTopic,
		uowFactory,
		completionClient,
		wsHub,
		eventPublisher,
	)

	// 6. Controllers
	return &Container{
		ChatController:         controller.NewChatController(chatService, wsHub, sysLogger),
		ConversationController: controller.NewConversationController(conversationService),
		SpeechController:       controller.NewSpeechController(speechService),

		ConsumerService: consumerService,
		WebSocketHub:    wsHub,
	}
}

package integration

import (
	"context"
	"log"
	"os"
	"testing"

	"u-tutor-be/internal/entity"
	"u-tutor-be/internal/repository/specification"
	"u-tutor-be/internal/repository/unitofwork"
	"u-tutor-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
)

func TestGormConnection(t *testing.T) {
	// Load .env from root
	err := godotenv.Load("../../.env")
	if err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}

	// Verify Wiring
	uowFactory := unitofwork.NewRepositoryFactory(gormDB)
	uow := uowFactory.NewUnitOfWork(context.Background())

	assert.NotNil(t, uow.ConversationRepository())
	assert.NotNil(t, uow.MessageRepository())

	// Basic Ping
	sqlDB, _ := gormDB.DB()
	err = sqlDB.Ping()
	assert.NoError(t, err)
	t.Log("Successfully connected to DB and initialized UnitOfWork Factory")

	t.Run("Check Conversation Repository", func(t *testing.T) {
		count, err := uow.ConversationRepository().Count(context.Background())
		assert.NoError(t, err)
		t.Logf("Conversation count: %d", count)
	})

	t.Run("Check Message Repository", func(t *testing.T) {
		count, err := uow.MessageRepository().Count(context.Background())
		assert.NoError(t, err)
		t.Logf("Message count: %d", count)
	})

	t.Run("Check Transactional Conversation Exchange", func(t *testing.T) {
		ctx := context.Background()

		conversationId := uuid.New()
		conversation := &entity.Conversation{
			Id:    conversationId,
			Title: "Integration Test Conversation " + uuid.New().String(),
		}

		err := uow.Begin(ctx)
		assert.NoError(t, err)
		defer uow.Rollback()

		err = uow.ConversationRepository().Create(ctx, conversation)
		assert.NoError(t, err)

		userMsg := &entity.Message{
			Id:             uuid.New(),
			ConversationId: conversationId,
			Role:           "user",
			Content:        "What is photosynthesis?",
		}
		err = uow.MessageRepository().Create(ctx, userMsg)
		assert.NoError(t, err)

		assistantMsg := &entity.Message{
			Id:             uuid.New(),
			ConversationId: conversationId,
			Role:           "assistant",
			Content:        "Photosynthesis is how plants convert light into energy.",
		}
		err = uow.MessageRepository().Create(ctx, assistantMsg)
		assert.NoError(t, err)

		err = uow.Commit()
		assert.NoError(t, err)

		// Read back outside the transaction
		rows, err := uow.MessageRepository().FindAll(ctx,
			specification.ByConversationID{ConversationID: conversationId},
			specification.OrderBy{Field: "created_at", Desc: false},
		)
		assert.NoError(t, err)
		assert.Len(t, rows, 2)
		if len(rows) == 2 {
			assert.Equal(t, "user", rows[0].Role)
			assert.Equal(t, "assistant", rows[1].Role)
		}

		// Cleanup
		err = uow.MessageRepository().DeleteAllByConversationId(ctx, conversationId)
		assert.NoError(t, err)
		err = uow.ConversationRepository().Delete(ctx, conversationId)
		assert.NoError(t, err)

		t.Log("Successfully created Conversation with Messages in Transaction")
	})
}

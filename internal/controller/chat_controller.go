package controller

import (
	"u-tutor-be/internal/dto"
	"u-tutor-be/internal/pkg/logger"
	"u-tutor-be/internal/pkg/serverutils"
	"u-tutor-be/internal/service"
	internalWS "u-tutor-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	SendMessage(ctx *fiber.Ctx) error
	Pending(ctx *fiber.Ctx) error
	Regenerate(ctx *fiber.Ctx) error
	Cancel(ctx *fiber.Ctx) error
	Switch(ctx *fiber.Ctx) error
	NewConversation(ctx *fiber.Ctx) error
	DeleteConversation(ctx *fiber.Ctx) error
	SessionState(ctx *fiber.Ctx) error
	UpdateSettings(ctx *fiber.Ctx) error
	Stream(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService service.IChatService
	hub         *internalWS.Hub
	logger      logger.ILogger
}

func NewChatController(chatService service.IChatService, hub *internalWS.Hub, log logger.ILogger) IChatController {
	return &chatController{
		chatService: chatService,
		hub:         hub,
		logger:      log,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Post("message", c.SendMessage)
	h.Post("pending", c.Pending)
	h.Post("regenerate", c.Regenerate)
	h.Post("cancel", c.Cancel)
	h.Post("switch", c.Switch)
	h.Post("new", c.NewConversation)
	h.Delete("conversation/:id", c.DeleteConversation)
	h.Get("session/:id", c.SessionState)
	h.Put("settings", c.UpdateSettings)
	h.Get("stream/:session_id", c.Stream)
}

func (c *chatController) SendMessage(ctx *fiber.Ctx) error {
	var req dto.SendMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatService.SendMessage(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success send message", res))
}

// Pending accepts a suggestion click; the message is queued if the session
// is mid-generation and submitted otherwise.
func (c *chatController) Pending(ctx *fiber.Ctx) error {
	var req dto.SendMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatService.SubmitSuggestion(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success queue suggestion", res))
}

func (c *chatController) Regenerate(ctx *fiber.Ctx) error {
	var req dto.RegenerateRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatService.Regenerate(ctx.UserContext(), req.SessionId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success regenerate response", res))
}

func (c *chatController) Cancel(ctx *fiber.Ctx) error {
	var req dto.CancelRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.chatService.Cancel(ctx.UserContext(), req.SessionId); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success cancel generation", nil))
}

func (c *chatController) Switch(ctx *fiber.Ctx) error {
	var req dto.SwitchConversationRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatService.SwitchConversation(ctx.UserContext(), req.SessionId, req.ConversationId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success switch conversation", res))
}

func (c *chatController) NewConversation(ctx *fiber.Ctx) error {
	var req dto.NewConversationRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatService.NewConversation(ctx.UserContext(), req.SessionId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success start new conversation", res))
}

func (c *chatController) DeleteConversation(ctx *fiber.Ctx) error {
	idParam := ctx.Params("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid conversation id")
	}

	sessionId := ctx.Query("session_id")
	if sessionId == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Missing session_id query parameter")
	}

	if err := c.chatService.DeleteConversation(ctx.UserContext(), sessionId, id); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete conversation", nil))
}

func (c *chatController) SessionState(ctx *fiber.Ctx) error {
	sessionId := ctx.Params("id")

	res, err := c.chatService.SessionState(ctx.UserContext(), sessionId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get session state", res))
}

func (c *chatController) UpdateSettings(ctx *fiber.Ctx) error {
	var req dto.UpdateSettingsRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.chatService.UpdateSettings(ctx.UserContext(), &req); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success update settings", nil))
}

// Stream upgrades the connection and subscribes the browser tab to its
// session's generation events.
func (c *chatController) Stream(ctx *fiber.Ctx) error {
	sessionId := ctx.Params("session_id")
	if sessionId == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Missing session id")
	}

	if websocket.IsWebSocketUpgrade(ctx) {
		return websocket.New(func(conn *websocket.Conn) {
			c.logger.Info("ChatController", "Starting WebSocket session", map[string]interface{}{"session_id": sessionId})
			internalWS.ServeWs(c.hub, conn, sessionId)
			c.logger.Info("ChatController", "WebSocket session ended", map[string]interface{}{"session_id": sessionId})
		})(ctx)
	}
	return fiber.ErrUpgradeRequired
}

package handlers

import (
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type ChatHandler struct {
	chatService *services.ChatService
}

func NewChatHandler(chatService *services.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) Conversations(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}

	convs, err := h.chatService.Conversations(userID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, convs)
}

func (h *ChatHandler) Messages(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	partnerID, err := paramUUID(c, "partnerId")
	if err != nil {
		return fail(c, err)
	}
	var q dto.PageQuery
	if err := parseQuery(c, &q); err != nil {
		return fail(c, err)
	}

	msgs, err := h.chatService.Messages(userID, partnerID, q)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, msgs)
}

func (h *ChatHandler) Send(c *fiber.Ctx) error {
	senderID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	var req dto.SendMessageRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, err)
	}

	msg, err := h.chatService.Send(senderID, &req)
	if err != nil {
		return fail(c, err)
	}
	return created(c, msg)
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"studybuddy/internal/app"
	"studybuddy/internal/transport/http/response"
)

type ChatHandler struct {
	chatService *app.ChatService
}

type AskRequest struct {
	SessionID uint   `json:"session_id"`
	Question  string `json:"question" binding:"required"`
}

type PageAskRequest struct {
	DocumentID uint   `json:"document_id" binding:"required,gt=0"`
	Page       int    `json:"page" binding:"required"`
	EndPage    int    `json:"end_page"`
	Question   string `json:"question" binding:"required"`
}

func NewChatHandler(chatService *app.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) Ask(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.chatService.Ask(c.Request.Context(), app.AskInput{
		UserID:    userID,
		SessionID: req.SessionID,
		Question:  req.Question,
	})
	if err != nil {
		writeError(c, err, "ask failed")
		return
	}
	response.OK(c, result)
}

func (h *ChatHandler) AskPage(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req PageAskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.chatService.AskPage(c.Request.Context(), app.PageAskInput{
		UserID:     userID,
		DocumentID: req.DocumentID,
		Page:       req.Page,
		EndPage:    req.EndPage,
		Question:   req.Question,
	})
	if err != nil {
		writeError(c, err, "ask page failed")
		return
	}
	response.OK(c, result)
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kmit-fdms/fdms/internal/services"
)

type ChatHandler struct {
	svc services.ChatService
}

func NewChatHandler(svc services.ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

func (h *ChatHandler) Ask(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, badRequest("ChatHandler.Ask", "invalid request body", err))
		return
	}

	res, err := h.svc.Ask(c.Request.Context(), req.SessionID, req.Message)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ChatHandler) Logs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	rows, err := h.svc.Logs(c.Request.Context(), c.Param("session_id"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

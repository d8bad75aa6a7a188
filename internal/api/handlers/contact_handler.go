package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kmit-fdms/fdms/internal/models"
	"github.com/kmit-fdms/fdms/internal/services"
)

type ContactHandler struct {
	svc services.ContactService
}

func NewContactHandler(svc services.ContactService) *ContactHandler {
	return &ContactHandler{svc: svc}
}

type contactRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Feedback string `json:"feedback"`
}

func (h *ContactHandler) Submit(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, badRequest("ContactHandler.Submit", "invalid request body", err))
		return
	}

	m, err := h.svc.Submit(c.Request.Context(), &models.ContactMessage{
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
		Feedback: req.Feedback,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Contact message received",
		"contact": m,
	})
}

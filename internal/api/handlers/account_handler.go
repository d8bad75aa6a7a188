package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kmit-fdms/fdms/internal/services"
)

type AccountHandler struct {
	svc services.AccountService
}

func NewAccountHandler(svc services.AccountService) *AccountHandler {
	return &AccountHandler{svc: svc}
}

func (h *AccountHandler) Signup(c *gin.Context) {
	var req services.SignupInput
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, badRequest("AccountHandler.Signup", "invalid request body", err))
		return
	}

	res, err := h.svc.Signup(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AccountHandler) Login(c *gin.Context) {
	var req services.LoginInput
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, badRequest("AccountHandler.Login", "invalid request body", err))
		return
	}
	req.UserAgent = c.Request.UserAgent()
	req.IP = c.ClientIP()

	res, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AccountHandler) List(c *gin.Context) {
	out, err := h.svc.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

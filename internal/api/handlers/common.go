package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kmit-fdms/fdms/internal/utils"
)

type APIError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

// writeError renders err as {code, message}. 5xx details stay in the request
// log, never in the response.
func writeError(c *gin.Context, err error) {
	status := utils.HTTPStatus(err)
	_ = c.Error(err)

	var ae *utils.AppError
	if errors.As(err, &ae) {
		msg := ae.Message
		if status >= http.StatusInternalServerError && ae.Code == utils.CodeInternal {
			msg = "internal server error"
		}
		c.JSON(status, APIError{
			Code:    ae.Code,
			Message: msg,
		})
		return
	}

	c.JSON(status, APIError{
		Code:    utils.CodeInternal,
		Message: http.StatusText(status),
	})
}

func badRequest(op, msg string, err error) error {
	return utils.E(utils.CodeInvalidArgument, op, msg, err)
}

package handler

import (
	"errors"
	"net/http"

	"relay-chat/internal/transport/httpdto"
	relay_errors "relay-chat/pkg/errors"

	"github.com/gin-gonic/gin"
)

func httpStatus(err error) int {
	switch {
	case errors.Is(err, relay_errors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, relay_errors.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, relay_errors.ErrPermission):
		return http.StatusForbidden
	case errors.Is(err, relay_errors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, relay_errors.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, relay_errors.ErrTransport):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, relay_errors.ErrValidation):
		return "INVALID_REQUEST"
	case errors.Is(err, relay_errors.ErrUnauthorized):
		return "UNAUTHORIZED"
	case errors.Is(err, relay_errors.ErrPermission):
		return "FORBIDDEN"
	case errors.Is(err, relay_errors.ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, relay_errors.ErrAlreadyExists):
		return "ALREADY_EXISTS"
	case errors.Is(err, relay_errors.ErrTransport):
		return "TRANSPORT_ERROR"
	default:
		return "INTERNAL_ERROR"
	}
}

func respondError(c *gin.Context, err error) {
	c.JSON(httpStatus(err), httpdto.NewErrorResponse(err.Error(), errorCode(err)))
}

func respondUnauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
}

func respondInvalid(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(msg, "INVALID_REQUEST"))
}

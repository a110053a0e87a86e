package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"studybuddy/internal/app"
	"studybuddy/internal/apperr"
	"studybuddy/internal/pkg/reqctx"
	"studybuddy/internal/transport/http/middleware"
	"studybuddy/internal/transport/http/response"
)

// writeError maps service errors to a response. fallback is the message for
// errors that carry nothing fit for users.
func writeError(c *gin.Context, err error, fallback string) {
	errorID := reqctx.RequestID(c.Request.Context())
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrSessionNotFound):
		response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, err.Error())
	case errors.Is(err, app.ErrDocumentNotFound):
		response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
	case errors.Is(err, app.ErrPageNotFound):
		response.Error(c, http.StatusNotFound, response.CodePageNotFound, err.Error())
	default:
		appErr, ok := apperr.As(err)
		if !ok {
			response.ErrorWithID(c, http.StatusInternalServerError, response.CodeInternalServer, fallback, errorID)
			return
		}
		switch appErr.Kind {
		case apperr.KindValidation:
			response.Error(c, http.StatusBadRequest, response.CodeValidation, appErr.Message)
		case apperr.KindFileProcessing:
			response.ErrorWithID(c, http.StatusUnprocessableEntity, response.CodeFileProcessing, appErr.Message, errorID)
		case apperr.KindDatabase:
			response.ErrorWithID(c, http.StatusServiceUnavailable, response.CodeDatabase, appErr.Message, errorID)
		default:
			response.ErrorWithID(c, http.StatusInternalServerError, response.CodeInternalServer, appErr.Message, errorID)
		}
	}
}

func getUserIDFromContext(c *gin.Context) (uint, bool) {
	userIDAny, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}
	userID, ok := userIDAny.(uint)
	return userID, ok
}

func parseUintParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return uint(v), true
}

package util

import (
	"errors"
	"net/http"
	"quiz_engine_backend/internal/model"
	"quiz_engine_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response is the envelope of every API reply.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func ErrorWithData(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Unauthorized")
}

func Forbidden(c *gin.Context) {
	Error(c, http.StatusForbidden, "Forbidden")
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}

func LogInternalError(c *gin.Context, err error) {
	logger.Log.Error("Internal server error",
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	InternalServerError(c)
}

// RespondError maps domain errors onto HTTP statuses.
func RespondError(c *gin.Context, err error) {
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve):
		ErrorWithData(c, http.StatusUnprocessableEntity, ve.Error(), ve)
	case errors.Is(err, ErrInsufficientSource):
		Error(c, http.StatusUnprocessableEntity, ErrInsufficientSource.Error())
	case errors.Is(err, ErrQuizNotFound),
		errors.Is(err, ErrAttemptNotFound),
		errors.Is(err, ErrSessionNotFound):
		Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrDuplicateAttempt),
		errors.Is(err, ErrSessionBusy),
		errors.Is(err, ErrSessionClosed),
		errors.Is(err, ErrInvalidTransition):
		Error(c, http.StatusConflict, err.Error())
	case errors.Is(err, ErrPermissionDenied):
		Forbidden(c)
	case errors.Is(err, ErrPositionOutOfRange),
		errors.Is(err, ErrInvalidAnswer),
		errors.Is(err, ErrIncompleteAnswers):
		BadRequest(c, err.Error())
	case errors.Is(err, ErrGeneratorUnavailable):
		logger.Log.Warn("draft generator unavailable", zap.Error(err))
		Error(c, http.StatusBadGateway, ErrGeneratorUnavailable.Error())
	default:
		LogInternalError(c, err)
	}
}

package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// JSONResponse defines the uniform structure for API responses.
type JSONResponse struct {
	Code    int         `json:"code"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Respond writes a JSON response with the given status code.
func Respond(ctx *gin.Context, status int, code int, message string, data interface{}) {
	ctx.JSON(status, JSONResponse{
		Code:    code,
		Error:   kindForStatus(status),
		Message: message,
		Data:    data,
	})
}

// Success returns a standard success response.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, http.StatusOK, 0, "success", data)
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, code, message, nil)
}

// Fail maps err onto the error taxonomy and writes the envelope.
// Causes of server-side failures are logged, never returned to the client.
func Fail(ctx *gin.Context, err error) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = Internal("unexpected error", err)
	}
	status := appErr.Kind.Status()
	if status >= http.StatusInternalServerError && Logger != nil {
		Logger.Error("request failed",
			zap.String("path", ctx.FullPath()),
			zap.String("kind", string(appErr.Kind)),
			zap.String("message", appErr.Message),
			zap.Error(appErr.Err),
		)
	}
	ctx.JSON(status, JSONResponse{
		Code:    appErr.Kind.Code(),
		Error:   string(appErr.Kind),
		Message: appErr.Message,
	})
}

func kindForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return string(KindInvalidInput)
	case http.StatusUnauthorized:
		return string(KindUnauthorized)
	case http.StatusForbidden:
		return string(KindForbidden)
	case http.StatusNotFound:
		return string(KindNotFound)
	case http.StatusTooManyRequests:
		return string(KindRateLimited)
	}
	if status >= http.StatusInternalServerError {
		return string(KindInternal)
	}
	return ""
}

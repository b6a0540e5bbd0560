package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/logger"
)

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the stable kind and the message.
type ErrorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// statusFor maps a domain kind to an HTTP status.
func statusFor(kind string) int {
	switch kind {
	case "invalid_argument", "invalid_input", "unsupported_format", "invalid_configuration":
		return http.StatusBadRequest
	case "not_found":
		return http.StatusNotFound
	case "generation_failure", "embedding_failure":
		return http.StatusBadGateway
	case "index_unavailable":
		return http.StatusServiceUnavailable
	case "extraction_failure":
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		logger.Warn("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorBody{Error: ErrorDetail{Kind: kind, Message: err.Error()}})
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorBody{
		Error: ErrorDetail{Kind: "invalid_argument", Message: message},
	})
}

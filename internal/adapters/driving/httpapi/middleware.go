package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/docqa/internal/logger"
)

// LoggerMiddleware logs each request at Info once it completes.
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		logger.Info("%s %s -> %d (%d bytes, %s)",
			c.Request.Method, path, c.Writer.Status(), c.Writer.Size(), time.Since(start))
		if errs := c.Errors.ByType(gin.ErrorTypePrivate).String(); errs != "" {
			logger.Debug("request errors: %s", errs)
		}
	}
}

// CORSMiddleware allows any origin, as the API carries no credentials.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Origin, Cache-Control")
		h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

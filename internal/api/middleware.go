package api

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/3grands/habitflow/internal/errors"
	"github.com/3grands/habitflow/internal/logger"
	"github.com/3grands/habitflow/internal/metrics"
	"github.com/3grands/habitflow/internal/validation"
)

// maxBodyBytes bounds every request body read by the security filter
const maxBodyBytes = 1 << 20

// SecurityFilter rejects any JSON body containing a malicious pattern before it reaches
// a handler. The body is restored for the handler after scanning.
func SecurityFilter() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body == nil || c.Request.Method == http.MethodGet {
			c.Next()
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(body))

		if err := validation.ScanJSON(body); err != nil {
			kind := "malformed"
			var threat *validation.Threat
			if apperrors.As(err, &threat) {
				kind = string(threat.Kind)
			}
			metrics.RecordRejected(kind)
			logger.Warn("request rejected by security filter", "path", c.Request.URL.Path, "kind", kind)
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		c.Next()
	}
}

// RequestLogger logs every completed request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}

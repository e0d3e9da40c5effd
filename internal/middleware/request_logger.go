package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/busticket-client/internal/utils"
)

// RequestIDHeader carries the id of a BFF request
const RequestIDHeader = "X-Request-ID"

// RequestLogger logs every request with its latency and the caller's device
func RequestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)

		c.Next()

		device := utils.ParseUserAgent(utils.UserAgent(c))
		entry := logger.WithFields(logrus.Fields{
			"request_id":  requestID,
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"status":      c.Writer.Status(),
			"latency_ms":  time.Since(start).Milliseconds(),
			"client_ip":   utils.ClientIP(c),
			"device_type": device.DeviceType,
			"platform":    device.Platform,
			"browser":     device.Browser,
		})
		if c.FullPath() == "" {
			entry = entry.WithField("path", c.Request.URL.Path)
		}
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			entry.Error("Request failed")
		case status >= 400:
			entry.Warn("Request rejected")
		default:
			entry.Info("Request handled")
		}
	}
}

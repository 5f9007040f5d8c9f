package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Logger is a Gin middleware that logs every request with method, path,
// status code, and latency via logrus instead of the standard logger.
func Logger() gin.HandlerFunc {
	log := logrus.WithField("component", "api")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"client":   c.ClientIP(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
		}).Info("request")
	}
}

// Recovery recovers from a panic in a later handler, logs it in a structured
// way, and answers 500 with a JSON error body.
func Recovery() gin.HandlerFunc {
	log := logrus.WithField("component", "api")
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.WithField("panic", err).Error("panic recovered")
				c.AbortWithStatusJSON(500, response{Error: strPtr("internal server error")})
			}
		}()
		c.Next()
	}
}

// CORS allows the single configured origin (or "*") to call /cmd from a
// browser.
func CORS(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", allowedOrigin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

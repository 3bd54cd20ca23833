// Package api exposes the reminder operations over HTTP for the agent's tool
// client: POST /reminders, DELETE /reminders[/:id], GET /reminders.
package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func NewRouter(svc Service) *gin.Engine {
	r := gin.New()
	r.Use(requestLogger(), gin.Recovery())

	h := &handlers{svc: svc}
	r.POST("/reminders", h.createReminder)
	r.DELETE("/reminders/:id", h.deleteReminderByID)
	r.DELETE("/reminders", h.deleteReminderByDescription)
	r.GET("/reminders", h.listReminders)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// requestLogger emits one structured access log line per request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		ev := log.Info()
		if c.Writer.Status() >= 500 {
			ev = log.Error()
		} else if c.Writer.Status() >= 400 {
			ev = log.Warn()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

// backend-go/internal/api/middleware/logger.go
package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger logs one line per request with the decision selection it carried.
// Server errors log at error level, client errors at warn.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := log.Info()
		switch {
		case status >= http.StatusInternalServerError:
			event = log.Error()
		case status >= http.StatusBadRequest:
			event = log.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("route", c.FullPath()).
			Str("path", c.Request.URL.Path).
			Dict("selection", selectionFields(c)).
			Str("ip", c.ClientIP()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("request served")
	}
}

// selectionFields collects the supplier and week a request was scoped to.
func selectionFields(c *gin.Context) *zerolog.Event {
	d := zerolog.Dict()
	if s := c.Query("supplier"); s != "" {
		d.Str("supplier", s)
	}
	for _, key := range []string{"year", "week"} {
		if v := c.Param(key); v != "" {
			d.Str(key, v)
		} else if v := c.Query(key); v != "" {
			d.Str(key, v)
		}
	}
	if code := c.Param("code"); code != "" {
		d.Str("product_code", code)
	}
	return d
}

// Recovery turns a handler panic into a 500 and logs it.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().
					Interface("error", err).
					Str("route", c.FullPath()).
					Msg("recovered from panic")
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}

// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/scamark/backend-go/internal/api/handlers"
	"github.com/andresuchdata/scamark/backend-go/internal/api/middleware"
	"github.com/andresuchdata/scamark/backend-go/internal/auth"
	"github.com/andresuchdata/scamark/backend-go/internal/repository"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Services struct {
	Repo repository.DecisionRepository
	Auth *auth.Service
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services == nil {
		return router
	}

	// restricted routes only require a token when auth is configured
	restricted := []gin.HandlerFunc{}
	if services.Auth != nil {
		authHandler := handlers.NewAuthHandler(services.Auth)
		authGroup := apiGroup.Group("/auth")
		{
			authGroup.POST("/signin", authHandler.SignIn)
			authGroup.POST("/signup", authHandler.SignUp)
			authGroup.POST("/signout", authHandler.SignOut)
			authGroup.GET("/me", authHandler.Me)
		}
		restricted = append(restricted, authHandler.RequireToken())
	}

	if services.Repo != nil {
		h := handlers.NewDecisionHandler(services.Repo)

		apiGroup.GET("/suppliers", h.GetSuppliers)

		weeksGroup := apiGroup.Group("/weeks")
		{
			weeksGroup.GET("", h.GetAvailableWeeks)
			weeksGroup.GET("/extend", h.GetExtendedWeeks)
			weeksGroup.GET("/check", h.CheckWeek)
			weeksGroup.GET("/:year", h.GetAvailableWeeksForYear)
		}

		decisionsGroup := apiGroup.Group("/decisions/:year/:week")
		{
			decisionsGroup.GET("", h.GetDecisions)
			decisionsGroup.GET("/suggestions", h.GetSuggestions)
		}

		apiGroup.GET("/stats/:year/:week", h.GetStats)
		apiGroup.GET("/palmares", h.GetPalmares)

		rupturesGroup := apiGroup.Group("/ruptures/:code")
		{
			rupturesGroup.GET("", h.GetRuptures)
			rupturesGroup.GET("/summary", h.GetRuptureSummary)
		}

		apiGroup.GET("/search", h.Search)

		protected := apiGroup.Group("", restricted...)
		{
			protected.GET("/profile/:uid", h.GetProfile)
			protected.DELETE("/cache", h.ClearCache)
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}

package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kmit-fdms/fdms/internal/api/handlers"
	"github.com/kmit-fdms/fdms/internal/api/middleware"
)

type Deps struct {
	Profile *handlers.ProfileHandler
	Account *handlers.AccountHandler
	Contact *handlers.ContactHandler
	Chat    *handlers.ChatHandler
	WS      *handlers.WSHandler

	// AuthRequired puts profile mutations and account listing behind JWTAuth.
	AuthRequired bool
	JWTSecret    string

	AllowedOrigins []string
	// StaticDir is served at /certificates and /uploads when set.
	StaticDir string
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.Use(cors.New(corsConfig(d.AllowedOrigins)))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	if d.StaticDir != "" {
		r.Static("/certificates", d.StaticDir)
		r.Static("/uploads", d.StaticDir)
	}

	// guards pass straight through unless auth is required
	authed := func(h gin.HandlerFunc) []gin.HandlerFunc { return []gin.HandlerFunc{h} }
	manager := authed
	if d.AuthRequired {
		jwt := middleware.JWTAuth(d.JWTSecret)
		authed = func(h gin.HandlerFunc) []gin.HandlerFunc {
			return []gin.HandlerFunc{jwt, h}
		}
		manager = func(h gin.HandlerFunc) []gin.HandlerFunc {
			return []gin.HandlerFunc{jwt, middleware.RequireManager(), h}
		}
	}

	profiles := r.Group("/profiles")
	{
		profiles.GET("", d.Profile.List)
		profiles.GET("/:id", d.Profile.Get)
		profiles.GET("/:id/documents", d.Profile.ListDocuments)
		profiles.POST("", authed(d.Profile.Create)...)
		profiles.PUT("/:id", authed(d.Profile.Update)...)
		profiles.POST("/:id/documents", authed(d.Profile.AttachDocuments)...)
		profiles.DELETE("/:id", manager(d.Profile.Delete)...)
	}

	accounts := r.Group("/accounts")
	{
		accounts.POST("/signup", d.Account.Signup)
		accounts.POST("/login", d.Account.Login)
		accounts.GET("", manager(d.Account.List)...)
	}

	r.POST("/contact", d.Contact.Submit)

	r.POST("/chat", d.Chat.Ask)
	r.GET("/chat/:session_id/logs", d.Chat.Logs)
	r.GET("/ws/chat", d.WS.Chat)

	// paths used by the existing dashboard pages
	r.POST("/addProfile", authed(d.Profile.Create)...)
	r.GET("/getProfiles", d.Profile.List)
	r.GET("/getProfile/:id", d.Profile.Get)
	r.GET("/getProfileByName", d.Profile.FindByName)
	r.PUT("/updateProfile/:id", authed(d.Profile.Update)...)
	r.DELETE("/deleteProfile/:id", manager(d.Profile.Delete)...)
	r.POST("/signup", d.Account.Signup)
	r.POST("/login", d.Account.Login)
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type", "Content-Length", "Accept-Encoding", "Authorization", "accept", "origin", "Cache-Control", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	wildcard := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			wildcard = true
		}
	}
	if wildcard {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}

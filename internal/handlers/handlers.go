package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"ecommerce/api/internal/config"
	"ecommerce/api/internal/middleware"
	"ecommerce/api/internal/models"
	"ecommerce/api/internal/service"
)

var adminOnly = []models.Role{models.RoleAdmin}

type Pinger interface {
	Ping(ctx context.Context) error
}

type HandlerSet struct {
	log   zerolog.Logger
	cfg   *config.AppConfig
	auth  *service.AuthService
	users *service.UserService
	store Pinger
	cache *redis.Client
}

func NewHandlerSet(
	log zerolog.Logger,
	cfg *config.AppConfig,
	auth *service.AuthService,
	users *service.UserService,
	store Pinger,
	cache *redis.Client,
) HandlerSet {
	return HandlerSet{
		log:   log,
		cfg:   cfg,
		auth:  auth,
		users: users,
		store: store,
		cache: cache,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	requireAuth := middleware.Auth(h.auth)

	v1 := router.Group("/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/signup", h.Signup)
		auth.POST("/login", h.Login)
		auth.POST("/forgotPassword", h.ForgotPassword)
		auth.POST("/verifyResetCode", h.VerifyResetCode)
		auth.POST("/resetPassword", h.ResetPassword)
		auth.POST("/refreshToken", h.RefreshToken)
		auth.POST("/logout", requireAuth, h.Logout)
		auth.POST("/kick-user/:userId", requireAuth, middleware.RequireRoles(adminOnly), h.KickUser)

		users := v1.Group("/users")
		users.Use(requireAuth)
		users.GET("/me", h.Me)
		users.PUT("/changeMyPassword", h.ChangeMyPassword)
		users.PUT("/updateMe", h.UpdateMe)
		users.DELETE("/deleteMe", h.DeleteMe)

		requireAdmin := middleware.RequireRoles(adminOnly)
		users.POST("", requireAdmin, h.CreateUser)
		users.GET("/:id", requireAdmin, h.GetUser)
		users.PUT("/:id", requireAdmin, h.UpdateUser)
		users.PUT("/:id/changePassword", requireAdmin, h.ChangeUserPassword)
	}
}

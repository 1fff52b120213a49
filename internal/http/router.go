// Package http exposes the callback server used by the web-based
// verification flow.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"paladin-guard-backend/internal/common/config"
	"paladin-guard-backend/internal/common/logger"
	"paladin-guard-backend/internal/http/middleware"
)

// LinkIssuer creates one-time invite links for a group.
type LinkIssuer interface {
	CreateInviteLink(ctx context.Context, chatID int64, memberLimit int) (string, error)
}

type callbackRequest struct {
	Data   string `json:"data" binding:"required"`
	ChatID int64  `json:"chat_id" binding:"required"`
}

// NewRouter builds the gin engine serving the verification callback and
// the web-app API.
func NewRouter(cfg *config.Config, links LinkIssuer, api *API) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.Server.Origin},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Telegram-Init-Data"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(middleware.InitData(cfg.Telegram.BotToken, time.Hour, cfg.Debug))

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ping": "Pong"})
	})

	router.POST("/callback", func(c *gin.Context) {
		var req callbackRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "something went wrong"})
			return
		}

		link, err := links.CreateInviteLink(c.Request.Context(), req.ChatID, 1)
		if err != nil {
			logger.Error().Err(err).Int64("chat_id", req.ChatID).Msg("failed to issue invite link")
			c.JSON(http.StatusBadRequest, gin.H{"error": "something went wrong"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"inviteLink": link})
	})

	if api != nil {
		api.register(router)
	}

	return router
}

package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "paladin-guard-backend/internal/common/errors"
	"paladin-guard-backend/internal/common/logger"
	"paladin-guard-backend/internal/features/ai"
	analyticsService "paladin-guard-backend/internal/features/analytics/service"
	guardmodels "paladin-guard-backend/internal/features/guard/models"
	guardrepo "paladin-guard-backend/internal/features/guard/repository"
	"paladin-guard-backend/internal/features/market"
	pollService "paladin-guard-backend/internal/features/poll/service"
	verificationService "paladin-guard-backend/internal/features/verification/service"
	"paladin-guard-backend/internal/http/middleware"
)

// API bundles the services exposed over the web-app surface.
type API struct {
	Verifier  *verificationService.Service
	Polls     *pollService.Service
	Analytics *analyticsService.Service
	Assistant *ai.Client
	Market    *market.Client
	Guards    guardrepo.GuardRepository
}

var statusNames = map[verificationService.Status]string{
	verificationService.StatusGranted:           "granted",
	verificationService.StatusGrantedLinkFailed: "granted_link_failed",
	verificationService.StatusDenied:            "denied",
	verificationService.StatusError:             "error",
}

func (a *API) register(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		v1.POST("/verify/begin", a.beginVerification)
		v1.POST("/verify", a.verify)
		v1.POST("/governance/verify", a.governanceVerify)
		v1.POST("/polls", a.createPoll)
		v1.POST("/polls/vote", a.vote)
		v1.GET("/analytics/:chat_id", a.analyticsReport)
		v1.POST("/ask", a.ask)
		v1.PATCH("/guards/:chat_id/tokens-required", a.adjustTokensRequired)
	}
}

func userID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(middleware.UserIDCtxParam)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

func renderAppError(c *gin.Context, err error) {
	if appErr, ok := apperrors.AsAppError(err); ok {
		status := http.StatusBadRequest
		if appErr.IsNotFound() {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": appErr.Message, "code": appErr.Code})
		return
	}
	logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong"})
}

type beginRequest struct {
	ChatID int64 `json:"chat_id" binding:"required"`
}

func (a *API) beginVerification(c *gin.Context) {
	var req beginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "something went wrong"})
		return
	}
	uid, ok := userID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing init_data"})
		return
	}

	flow, err := a.Verifier.Begin(c.Request.Context(), req.ChatID, uid)
	if err != nil {
		renderAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"prompt":       flow.Prompt(),
		"requires_web": flow.RequiresWebVerification(),
	})
}

type verifyRequest struct {
	ChatID  int64  `json:"chat_id" binding:"required"`
	TxnHash string `json:"txn_hash" binding:"required"`
}

func (a *API) verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "something went wrong"})
		return
	}
	uid, ok := userID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing init_data"})
		return
	}

	flow, err := a.Verifier.Begin(c.Request.Context(), req.ChatID, uid)
	if err != nil {
		renderAppError(c, err)
		return
	}
	outcome := a.Verifier.Submit(c.Request.Context(), flow, req.TxnHash)
	c.JSON(http.StatusOK, gin.H{
		"status":     statusNames[outcome.Status],
		"message":    outcome.Message,
		"inviteLink": outcome.InviteLink,
	})
}

func (a *API) governanceVerify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "something went wrong"})
		return
	}
	uid, ok := userID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing init_data"})
		return
	}

	outcome := a.Verifier.StandaloneVerify(c.Request.Context(), req.ChatID, uid, req.TxnHash)
	c.JSON(http.StatusOK, gin.H{
		"status":  statusNames[outcome.Status],
		"message": outcome.Message,
	})
}

type createPollRequest struct {
	ChatID    int64  `json:"chat_id" binding:"required"`
	MessageID int64  `json:"message_id"`
	Input     string `json:"input" binding:"required"`
}

func (a *API) createPoll(c *gin.Context) {
	var req createPollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "something went wrong"})
		return
	}

	poll, err := a.Polls.Create(c.Request.Context(), req.ChatID, req.MessageID, req.Input)
	if err != nil {
		renderAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"poll": poll, "tally": poll.Tally()})
}

type voteRequest struct {
	ChatID   int64 `json:"chat_id" binding:"required"`
	OptionID int   `json:"option_id" binding:"required"`
}

func (a *API) vote(c *gin.Context) {
	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "something went wrong"})
		return
	}
	uid, ok := userID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing init_data"})
		return
	}

	poll, err := a.Polls.Vote(c.Request.Context(), req.ChatID, uid, req.OptionID)
	if err != nil {
		renderAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"poll": poll, "tally": poll.Tally()})
}

func (a *API) analyticsReport(c *gin.Context) {
	chatID, err := parseChatID(c.Param("chat_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "something went wrong"})
		return
	}

	activity, err := a.Analytics.Report(c.Request.Context(), chatID)
	if err != nil {
		renderAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"activity": activity,
		"summary":  activity.Summary(),
	})
}

type askRequest struct {
	ChatID   int64  `json:"chat_id" binding:"required"`
	Question string `json:"question" binding:"required"`
}

func (a *API) ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "something went wrong"})
		return
	}

	guard, err := a.Guards.GetByChatID(c.Request.Context(), req.ChatID)
	if err != nil {
		renderAppError(c, err)
		return
	}

	trainingData := ""
	marketSummary := ""
	if guard.PortalData != nil {
		trainingData = guard.PortalData.TrainingData
		marketSummary = a.marketSummary(c.Request.Context(), guard.PortalData)
	}

	answer, err := a.Assistant.Answer(c.Request.Context(), trainingData, marketSummary, req.Question)
	if err != nil {
		renderAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": answer})
}

// marketSummary fetches live token data for the guard's governance
// contract. Best effort, answers still work without market context.
func (a *API) marketSummary(ctx context.Context, portal *guardmodels.PortalData) string {
	if a.Market == nil || portal.GovernanceParams == nil || portal.GovernanceParams.CA == "" {
		return ""
	}
	pair, err := a.Market.TokenPair(ctx, portal.GovernanceParams.CA)
	if err != nil {
		logger.Warn().Err(err).Str("ca", portal.GovernanceParams.CA).Msg("failed to fetch market data")
		return ""
	}
	return pair.Summary()
}

func parseChatID(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}

type adjustTokensRequest struct {
	TokensRequired int64 `json:"tokens_required" binding:"required"`
}

func (a *API) adjustTokensRequired(c *gin.Context) {
	chatID, err := parseChatID(c.Param("chat_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "something went wrong"})
		return
	}

	var req adjustTokensRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "something went wrong"})
		return
	}

	if err := a.Guards.UpdateTokensRequired(c.Request.Context(), chatID, req.TokensRequired); err != nil {
		renderAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tokensRequired": req.TokensRequired})
}

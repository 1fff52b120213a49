package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"paladin-guard-backend/internal/chain"
	"paladin-guard-backend/internal/common/config"
	"paladin-guard-backend/internal/common/logger"
	"paladin-guard-backend/internal/features/ai"
	analyticsRedis "paladin-guard-backend/internal/features/analytics/repository/redis"
	analyticsService "paladin-guard-backend/internal/features/analytics/service"
	guardRedis "paladin-guard-backend/internal/features/guard/repository/redis"
	"paladin-guard-backend/internal/features/market"
	pollRedis "paladin-guard-backend/internal/features/poll/repository/redis"
	pollService "paladin-guard-backend/internal/features/poll/service"
	sweepService "paladin-guard-backend/internal/features/sweep/service"
	verificationService "paladin-guard-backend/internal/features/verification/service"
	guardhttp "paladin-guard-backend/internal/http"
	"paladin-guard-backend/internal/platform/redis"
	"paladin-guard-backend/internal/platform/telegram"
)

func main() {
	cfg := config.Load()
	logger.Init("paladin-guard-backend", cfg.Debug)

	logger.Info().Bool("debug", cfg.Debug).Msg("starting guard backend")

	ctx := context.Background()
	redisClient, err := redis.Open(ctx, cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()

	guardRepo := guardRedis.NewGuardRepository(redisClient.Client)
	txnRepo := guardRedis.NewVerifiedTxnRepository(redisClient.Client)
	pollRepo := pollRedis.NewPollRepository(redisClient.Client)
	analyticsRepo := analyticsRedis.NewAnalyticsRepository(redisClient.Client)

	evm, err := chain.NewEVMAdapter(cfg.Chains.EthereumRPC)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to ethereum rpc")
	}
	chains := chain.NewRegistry()
	chains.Register(chain.ETH, evm)
	chains.Register(chain.SOL, chain.NewSolanaAdapter(cfg.Chains.SolanaRPC, cfg.Chains.IndexerBase, cfg.Chains.IndexerAPIKey))

	telegramClient := telegram.NewClient(cfg.Telegram.BotToken)

	api := &guardhttp.API{
		Verifier:  verificationService.NewService(guardRepo, txnRepo, chains, telegramClient),
		Polls:     pollService.NewService(pollRepo, guardRepo),
		Analytics: analyticsService.NewService(analyticsRepo),
		Assistant: ai.NewClient(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model),
		Market:    market.NewClient(cfg.Market.BaseURL),
		Guards:    guardRepo,
	}

	sweeper := sweepService.NewService(guardRepo, txnRepo, chains, telegramClient, cfg.Sweep.Interval)
	sweeper.Start()
	defer sweeper.Stop()

	router := guardhttp.NewRouter(cfg, telegramClient, api)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("starting http server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
	}

	logger.Info().Msg("server exited")
}

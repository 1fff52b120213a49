package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"paladin-guard-backend/internal/chain"
	"paladin-guard-backend/internal/common/logger"
	"paladin-guard-backend/internal/features/guard/models"
	"paladin-guard-backend/internal/features/guard/repository"
)

const (
	// Maximum number of holders checked concurrently within one guard.
	maxConcurrentChecks = 10

	sweepCompleteMessage = "Token holders verification complete, next check in 1 hour! ✅"
	removedMemberMessage = "User does not hold token, banning user %d"
)

// HoldingChecker is the subset of chain resolution the sweep needs.
type HoldingChecker interface {
	HoldsFungible(ctx context.Context, c chain.Chain, wallet, token string, required int64) bool
}

// Moderator covers the Telegram calls used to remove lapsed holders.
type Moderator interface {
	GetMemberStatus(ctx context.Context, chatID, userID int64) (string, error)
	BanChatMember(ctx context.Context, chatID, userID int64) error
	UnbanChatMember(ctx context.Context, chatID, userID int64) error
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Service periodically re-checks token holdings for every token-gated
// group and kicks members whose balance dropped below the requirement.
type Service struct {
	ctx      context.Context
	cancel   context.CancelFunc
	guards   repository.GuardRepository
	txns     repository.VerifiedTxnRepository
	chains   HoldingChecker
	mod      Moderator
	interval time.Duration
	wg       sync.WaitGroup
	sem      chan struct{}
}

func NewService(
	guards repository.GuardRepository,
	txns repository.VerifiedTxnRepository,
	chains HoldingChecker,
	mod Moderator,
	interval time.Duration,
) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		ctx:      ctx,
		cancel:   cancel,
		guards:   guards,
		txns:     txns,
		chains:   chains,
		mod:      mod,
		interval: interval,
		sem:      make(chan struct{}, maxConcurrentChecks),
	}
}

func (s *Service) Start() {
	logger.Info().Dur("interval", s.interval).Msg("starting holdings sweep")
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := s.RunOnce(s.ctx); err != nil {
					logger.Error().Err(err).Msg("holdings sweep failed")
				}
			case <-s.ctx.Done():
				return
			}
		}
	}()
}

func (s *Service) Stop() {
	logger.Info().Msg("stopping holdings sweep")
	s.cancel()
	s.wg.Wait()
	logger.Info().Msg("holdings sweep stopped")
}

// RunOnce sweeps every token-only guard. Failures in one group do not
// stop the sweep of the others.
func (s *Service) RunOnce(ctx context.Context) error {
	guards, err := s.guards.ListByType(ctx, models.GuardTokenOnly)
	if err != nil {
		return err
	}

	for _, guard := range guards {
		if err := s.sweepGuard(ctx, guard); err != nil {
			logger.Error().Err(err).Int64("chat_id", guard.ChatID).Msg("failed to sweep group")
		}
	}
	return nil
}

func (s *Service) sweepGuard(ctx context.Context, guard *models.Guard) error {
	txns, err := s.txns.ListByChat(ctx, guard.ChatID)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	for _, txn := range txns {
		wg.Add(1)
		s.sem <- struct{}{}
		go func(txn *models.VerifiedTxn) {
			defer wg.Done()
			defer func() { <-s.sem }()
			s.checkHolder(ctx, guard, txn)
		}(txn)
	}
	wg.Wait()

	if err := s.mod.SendMessage(ctx, guard.ChatID, sweepCompleteMessage); err != nil {
		logger.Warn().Err(err).Int64("chat_id", guard.ChatID).Msg("failed to send sweep summary")
	}
	return nil
}

func (s *Service) checkHolder(ctx context.Context, guard *models.Guard, txn *models.VerifiedTxn) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Int64("user_id", txn.UserID).Msg("holder check panicked")
		}
	}()

	if s.chains.HoldsFungible(ctx, guard.Parameters.Chain, txn.WalletAddress, guard.Parameters.TokenAddress, guard.Parameters.TokensRequired) {
		return
	}

	logger.Info().
		Int64("chat_id", guard.ChatID).
		Int64("user_id", txn.UserID).
		Str("wallet", txn.WalletAddress).
		Msg("holder fell below requirement, removing")

	// Drop the verification record first so the member can re-verify
	// after topping the wallet back up.
	if err := s.txns.Delete(ctx, guard.ChatID, txn.WalletAddress); err != nil {
		logger.Error().Err(err).Int64("user_id", txn.UserID).Msg("failed to delete verification record")
		return
	}

	status, err := s.mod.GetMemberStatus(ctx, guard.ChatID, txn.UserID)
	if err != nil {
		logger.Error().Err(err).Int64("user_id", txn.UserID).Msg("failed to fetch member status")
		return
	}
	if status != "member" {
		return
	}

	// Ban then unban: removes the member without leaving them
	// permanently blocked from rejoining once they re-verify.
	if err := s.mod.BanChatMember(ctx, guard.ChatID, txn.UserID); err != nil {
		logger.Error().Err(err).Int64("user_id", txn.UserID).Msg("failed to remove member")
		return
	}
	if err := s.mod.SendMessage(ctx, guard.ChatID, fmt.Sprintf(removedMemberMessage, txn.UserID)); err != nil {
		logger.Warn().Err(err).Int64("user_id", txn.UserID).Msg("failed to announce removal")
	}
	if err := s.mod.UnbanChatMember(ctx, guard.ChatID, txn.UserID); err != nil {
		logger.Error().Err(err).Int64("user_id", txn.UserID).Msg("failed to lift removal ban")
	}
}

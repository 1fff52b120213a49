package service

import (
	"context"

	"paladin-guard-backend/internal/chain"
	"paladin-guard-backend/internal/common/logger"
	"paladin-guard-backend/internal/features/guard/models"
)

// Governance verification requires at least this many tokens for ERC20
// portals; NFT portals require a single holding.
const governanceTokenThreshold = 2

const governanceAdminTitle = "✓"

// StandaloneVerify runs the governance-only verification path: no invite
// link is issued, the user is instead promoted to a restricted admin role
// and recorded in the guard's verified-user set. Governance contracts are
// EVM-only.
func (s *Service) StandaloneVerify(ctx context.Context, chatID, userID int64, txnHash string) Outcome {
	guard, err := s.guards.GetByChatID(ctx, chatID)
	if err != nil {
		return Outcome{Status: StatusError, Message: msgNotGovernanceGroup}
	}
	if guard.GuardType != models.GuardNormalVerification ||
		guard.PortalData == nil || guard.PortalData.GovernanceParams == nil || guard.PortalData.GovernanceParams.CA == "" {
		return Outcome{Status: StatusError, Message: msgNotGovernanceGroup}
	}
	gov := guard.PortalData.GovernanceParams

	wallet, err := s.chains.ResolveSelfTransfer(ctx, chain.ETH, txnHash)
	if err != nil {
		if chain.IsInvalidTxn(err) {
			return Outcome{Status: StatusError, Message: err.Error()}
		}
		logger.Error().Err(err).Int64("chat_id", chatID).Msg("standalone transaction resolution failed")
		return Outcome{Status: StatusError, Message: msgStandaloneFailed}
	}

	switch gov.Type {
	case "ERC721":
		if !s.chains.HoldsNonFungible(ctx, chain.ETH, wallet, gov.CA) {
			return Outcome{Status: StatusDenied, Message: msgStandaloneNoNFT, WalletAddress: wallet}
		}
	default: // ERC20
		if !s.chains.HoldsFungible(ctx, chain.ETH, wallet, gov.CA, governanceTokenThreshold) {
			return Outcome{Status: StatusDenied, Message: msgStandaloneNoTokens, WalletAddress: wallet}
		}
	}

	// Promotion is best-effort; verification stands even when the bot lacks
	// the rights to assign the role.
	if err := s.messenger.PromoteMember(ctx, chatID, userID, governanceAdminTitle); err != nil {
		logger.Warn().Err(err).Int64("chat_id", chatID).Int64("user_id", userID).Msg("failed to promote governance participant")
	}

	if err := s.guards.AppendVerifiedUser(ctx, chatID, userID); err != nil {
		logger.Error().Err(err).Int64("chat_id", chatID).Int64("user_id", userID).Msg("failed to record verified user")
		return Outcome{Status: StatusError, Message: msgStandaloneFailed}
	}

	return Outcome{Status: StatusGranted, Message: msgStandaloneVerified, WalletAddress: wallet}
}

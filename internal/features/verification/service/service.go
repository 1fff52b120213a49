// Package service drives verification attempts against a chat's guard
// policy. The surrounding conversation layer owns the waiting: it calls
// Begin, shows the flow's prompt, collects the user's transaction hash and
// hands it to Submit. Submit is idempotent with respect to retries: a
// wallet can pass for a given chat at most once.
package service

import (
	"context"

	"github.com/google/uuid"

	"paladin-guard-backend/internal/chain"
	apperrors "paladin-guard-backend/internal/common/errors"
	"paladin-guard-backend/internal/common/logger"
	"paladin-guard-backend/internal/features/guard/models"
	"paladin-guard-backend/internal/features/guard/repository"
)

// Status is the terminal outcome class of a verification attempt.
type Status int

const (
	// StatusGranted means all required predicates held and an invite link
	// was issued.
	StatusGranted Status = iota
	// StatusGrantedLinkFailed means verification succeeded but the invite
	// link could not be issued. Not a denial.
	StatusGrantedLinkFailed
	// StatusDenied means a predicate did not hold or the wallet was reused.
	StatusDenied
	// StatusError means the attempt could not be evaluated; the user may
	// retry with a different transaction.
	StatusError
)

// Outcome is the result the conversation layer renders back to the user.
type Outcome struct {
	Status        Status
	Message       string
	InviteLink    string
	WalletAddress string
}

// Flow is the per-attempt context carried between the prompt step and the
// submit step. It holds a snapshot of the guard so both steps evaluate the
// same policy.
type Flow struct {
	ID     string
	ChatID int64
	UserID int64
	Guard  *models.Guard
}

// Prompt returns the instruction message for the flow's policy.
func (f *Flow) Prompt() string {
	return f.Guard.Prompt()
}

// RequiresWebVerification reports whether this guard verifies through the
// web portal instead of a transaction-hash reply.
func (f *Flow) RequiresWebVerification() bool {
	return f.Guard.GuardType == models.GuardNormalVerification
}

type Service struct {
	guards    repository.GuardRepository
	txns      repository.VerifiedTxnRepository
	chains    ChainResolver
	messenger Messenger
}

func NewService(guards repository.GuardRepository, txns repository.VerifiedTxnRepository, chains ChainResolver, messenger Messenger) *Service {
	return &Service{
		guards:    guards,
		txns:      txns,
		chains:    chains,
		messenger: messenger,
	}
}

// Begin starts a verification attempt for the user against the chat's
// guard. Fails when the chat is not guarded.
func (s *Service) Begin(ctx context.Context, chatID, userID int64) (*Flow, error) {
	guard, err := s.guards.GetByChatID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return &Flow{
		ID:     uuid.New().String(),
		ChatID: chatID,
		UserID: userID,
		Guard:  guard,
	}, nil
}

// Submit evaluates the submitted transaction hash against the flow's policy
// and produces a terminal outcome. All required predicates must hold;
// payment never substitutes for a configured holding requirement.
func (s *Service) Submit(ctx context.Context, flow *Flow, txnHash string) Outcome {
	guard := flow.Guard
	if flow.RequiresWebVerification() {
		return Outcome{Status: StatusError, Message: msgUseWebVerification}
	}

	params := guard.Parameters
	guardType := guard.GuardType

	var wallet string
	var err error
	if guardType.NeedsPayment() {
		wallet, err = s.chains.ResolvePayment(ctx, params.Chain, txnHash, params.WalletAddress, params.TxnAmount)
	} else {
		wallet, err = s.chains.ResolveSelfTransfer(ctx, params.Chain, txnHash)
	}
	if err != nil {
		if chain.IsInvalidTxn(err) {
			// The adapter's message is user-facing; surface it verbatim.
			return Outcome{Status: StatusError, Message: err.Error()}
		}
		logger.Error().Err(err).Int64("chat_id", flow.ChatID).Msg("transaction resolution failed")
		return Outcome{Status: StatusError, Message: msgVerificationFailed}
	}

	// Anti-replay: one wallet grants access to a chat at most once,
	// regardless of who submits it or how often.
	existing, err := s.txns.FindByWallet(ctx, flow.ChatID, wallet)
	if err != nil {
		logger.Error().Err(err).Int64("chat_id", flow.ChatID).Msg("verified txn lookup failed")
		return Outcome{Status: StatusError, Message: msgVerificationFailed}
	}
	if existing != nil {
		return Outcome{Status: StatusDenied, Message: msgWalletAlreadyVerified, WalletAddress: wallet}
	}

	if guardType.NeedsToken() {
		if !s.chains.HoldsFungible(ctx, params.Chain, wallet, params.TokenAddress, params.TokensRequired) {
			return Outcome{
				Status:        StatusDenied,
				Message:       doesNotHoldTokenMessage(params.TokensRequired, params.TokenAddress),
				WalletAddress: wallet,
			}
		}
	}
	if guardType.NeedsNFT() {
		if !s.chains.HoldsNonFungible(ctx, params.Chain, wallet, params.NFTAddress) {
			return Outcome{
				Status:        StatusDenied,
				Message:       doesNotHoldNFTMessage(params.NFTAddress),
				WalletAddress: wallet,
			}
		}
	}

	txn := &models.VerifiedTxn{
		ChatID:        flow.ChatID,
		UserID:        flow.UserID,
		WalletAddress: wallet,
		TxnHash:       txnHash,
		GuardType:     guardType,
	}
	if err := s.txns.Create(ctx, txn); err != nil {
		if appErr, ok := apperrors.AsAppError(err); ok && appErr.Code == apperrors.ErrCodeWalletReused {
			return Outcome{Status: StatusDenied, Message: msgWalletAlreadyVerified, WalletAddress: wallet}
		}
		logger.Error().Err(err).Int64("chat_id", flow.ChatID).Msg("verified txn create failed")
		return Outcome{Status: StatusError, Message: msgVerificationFailed}
	}

	link, err := s.messenger.CreateInviteLink(ctx, flow.ChatID, 1)
	if err != nil {
		// The user is verified; a link failure must stay visible as its own
		// outcome rather than masquerading as a denial.
		logger.Error().Err(err).Int64("chat_id", flow.ChatID).Msg("invite link issuance failed after verification")
		return Outcome{Status: StatusGrantedLinkFailed, Message: msgCouldntGenerateLink, WalletAddress: wallet}
	}

	logger.Info().
		Int64("chat_id", flow.ChatID).
		Int64("user_id", flow.UserID).
		Str("wallet", wallet).
		Str("guard_type", string(guardType)).
		Msg("verification granted")

	return Outcome{
		Status:        StatusGranted,
		Message:       chatLinkMessage(link),
		InviteLink:    link,
		WalletAddress: wallet,
	}
}

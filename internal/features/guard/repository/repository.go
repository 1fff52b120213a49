package repository

import (
	"context"

	"paladin-guard-backend/internal/features/guard/models"
)

// GuardRepository stores guard policies keyed by chat id.
type GuardRepository interface {
	Create(ctx context.Context, guard *models.Guard) error
	GetByChatID(ctx context.Context, chatID int64) (*models.Guard, error)
	ListByType(ctx context.Context, guardType models.GuardType) ([]*models.Guard, error)
	// AppendVerifiedUser adds the user to the guard's governance set with
	// set semantics (appending an existing id is a no-op).
	AppendVerifiedUser(ctx context.Context, chatID, userID int64) error
	// UpdateTokensRequired adjusts the holding threshold on an existing guard.
	UpdateTokensRequired(ctx context.Context, chatID int64, tokensRequired int64) error
}

// VerifiedTxnRepository stores successful verification records. A
// (chat, wallet) pair maps to at most one record.
type VerifiedTxnRepository interface {
	Create(ctx context.Context, txn *models.VerifiedTxn) error
	// FindByWallet returns nil without error when no record exists.
	FindByWallet(ctx context.Context, chatID int64, walletAddress string) (*models.VerifiedTxn, error)
	ListByChat(ctx context.Context, chatID int64) ([]*models.VerifiedTxn, error)
	Delete(ctx context.Context, chatID int64, walletAddress string) error
}

package repository

import (
	"context"

	"paladin-guard-backend/internal/features/poll/models"
)

// PollRepository persists governance polls.
type PollRepository interface {
	Create(ctx context.Context, poll *models.Poll) error
	GetByID(ctx context.Context, id string) (*models.Poll, error)
	GetActiveByChat(ctx context.Context, chatID int64) (*models.Poll, error)
	Update(ctx context.Context, poll *models.Poll) error
	Delete(ctx context.Context, id string) error
}

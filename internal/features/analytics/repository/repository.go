package repository

import (
	"context"

	"paladin-guard-backend/internal/features/analytics/models"
)

// AnalyticsRepository persists per-chat activity aggregates.
type AnalyticsRepository interface {
	Get(ctx context.Context, chatID int64) (*models.ChatActivity, error)
	Save(ctx context.Context, activity *models.ChatActivity) error
}

package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	apperrors "paladin-guard-backend/internal/common/errors"
	"paladin-guard-backend/internal/features/analytics/models"
	"paladin-guard-backend/internal/features/analytics/repository"
)

const keyActivity = "analytics:%d"

type analyticsRepository struct {
	client *redis.Client
}

func NewAnalyticsRepository(client *redis.Client) repository.AnalyticsRepository {
	return &analyticsRepository{client: client}
}

func (r *analyticsRepository) Get(ctx context.Context, chatID int64) (*models.ChatActivity, error) {
	data, err := r.client.Get(ctx, fmt.Sprintf(keyActivity, chatID)).Bytes()
	if err == redis.Nil {
		return models.NewChatActivity(chatID), nil
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("activity get", err)
	}

	var activity models.ChatActivity
	if err := json.Unmarshal(data, &activity); err != nil {
		return nil, apperrors.NewDatabaseError("activity unmarshal", err)
	}
	if activity.ByUser == nil {
		activity.ByUser = make(map[int64]int64)
	}
	if activity.Usernames == nil {
		activity.Usernames = make(map[int64]string)
	}
	return &activity, nil
}

func (r *analyticsRepository) Save(ctx context.Context, activity *models.ChatActivity) error {
	data, err := json.Marshal(activity)
	if err != nil {
		return apperrors.NewDatabaseError("activity marshal", err)
	}
	if err := r.client.Set(ctx, fmt.Sprintf(keyActivity, activity.ChatID), data, 0).Err(); err != nil {
		return apperrors.NewDatabaseError("activity save", err)
	}
	return nil
}

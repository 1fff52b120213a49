package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	apperrors "paladin-guard-backend/internal/common/errors"
	"paladin-guard-backend/internal/features/poll/models"
	"paladin-guard-backend/internal/features/poll/repository"
)

const (
	keyPoll       = "poll:%s"
	keyActivePoll = "poll:active:%d"
)

type pollRepository struct {
	client *redis.Client
}

func NewPollRepository(client *redis.Client) repository.PollRepository {
	return &pollRepository{client: client}
}

func (r *pollRepository) Create(ctx context.Context, poll *models.Poll) error {
	data, err := json.Marshal(poll)
	if err != nil {
		return apperrors.NewDatabaseError("poll marshal", err)
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, fmt.Sprintf(keyPoll, poll.ID), data, 0)
	pipe.Set(ctx, fmt.Sprintf(keyActivePoll, poll.ChatID), poll.ID, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.NewDatabaseError("poll create", err)
	}
	return nil
}

func (r *pollRepository) GetByID(ctx context.Context, id string) (*models.Poll, error) {
	data, err := r.client.Get(ctx, fmt.Sprintf(keyPoll, id)).Bytes()
	if err == redis.Nil {
		return nil, apperrors.New(apperrors.ErrCodePollNotFound, fmt.Sprintf("Poll %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("poll get", err)
	}

	var poll models.Poll
	if err := json.Unmarshal(data, &poll); err != nil {
		return nil, apperrors.NewDatabaseError("poll unmarshal", err)
	}
	return &poll, nil
}

func (r *pollRepository) GetActiveByChat(ctx context.Context, chatID int64) (*models.Poll, error) {
	id, err := r.client.Get(ctx, fmt.Sprintf(keyActivePoll, chatID)).Result()
	if err == redis.Nil {
		return nil, apperrors.New(apperrors.ErrCodePollNotFound, fmt.Sprintf("No active poll for chat %d", chatID))
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("active poll get", err)
	}
	return r.GetByID(ctx, id)
}

func (r *pollRepository) Update(ctx context.Context, poll *models.Poll) error {
	data, err := json.Marshal(poll)
	if err != nil {
		return apperrors.NewDatabaseError("poll marshal", err)
	}
	if err := r.client.Set(ctx, fmt.Sprintf(keyPoll, poll.ID), data, 0).Err(); err != nil {
		return apperrors.NewDatabaseError("poll update", err)
	}
	return nil
}

func (r *pollRepository) Delete(ctx context.Context, id string) error {
	poll, err := r.GetByID(ctx, id)
	if err != nil {
		if appErr, ok := apperrors.AsAppError(err); ok && appErr.IsNotFound() {
			return nil
		}
		return err
	}

	pipe := r.client.Pipeline()
	pipe.Del(ctx, fmt.Sprintf(keyPoll, id))
	pipe.Del(ctx, fmt.Sprintf(keyActivePoll, poll.ChatID))
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.NewDatabaseError("poll delete", err)
	}
	return nil
}

package service

import (
	"context"
	"time"

	"paladin-guard-backend/internal/features/analytics/models"
	"paladin-guard-backend/internal/features/analytics/repository"
)

// Service tracks message activity per group.
type Service struct {
	repo repository.AnalyticsRepository
	now  func() time.Time
}

func NewService(repo repository.AnalyticsRepository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// RecordMessage counts one message for the user in the chat's activity
// aggregate, bucketed by the hour of day it arrived.
func (s *Service) RecordMessage(ctx context.Context, chatID, userID int64, username string) error {
	activity, err := s.repo.Get(ctx, chatID)
	if err != nil {
		return err
	}

	activity.Hourly[s.now().UTC().Hour()]++
	activity.ByUser[userID]++
	activity.Total++
	if username != "" {
		activity.Usernames[userID] = username
	}
	return s.repo.Save(ctx, activity)
}

// Report returns the chat's activity aggregate.
func (s *Service) Report(ctx context.Context, chatID int64) (*models.ChatActivity, error) {
	return s.repo.Get(ctx, chatID)
}

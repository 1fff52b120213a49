package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "paladin-guard-backend/internal/common/errors"
	guardrepo "paladin-guard-backend/internal/features/guard/repository"
	"paladin-guard-backend/internal/features/poll/models"
	"paladin-guard-backend/internal/features/poll/repository"
)

const maxOptions = 5

// Service manages governance polls. Voting is restricted to members
// recorded in the group guard's verified-user set.
type Service struct {
	polls  repository.PollRepository
	guards guardrepo.GuardRepository
}

func NewService(polls repository.PollRepository, guards guardrepo.GuardRepository) *Service {
	return &Service{polls: polls, guards: guards}
}

// ParsePollInput parses the poll creation format:
//
//	Question text
//	- First option
//	- Second option
//
// At least two and at most five options are required.
func ParsePollInput(input string) (string, []string, error) {
	lines := strings.Split(strings.TrimSpace(input), "\n")
	var question string
	var options []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "-") {
			opt := strings.TrimSpace(strings.TrimPrefix(line, "-"))
			if opt != "" {
				options = append(options, opt)
			}
			continue
		}
		if question == "" {
			question = line
		}
	}

	if question == "" {
		return "", nil, apperrors.New(apperrors.ErrCodeValidation, "Poll question is missing")
	}
	if len(options) < 2 {
		return "", nil, apperrors.New(apperrors.ErrCodeValidation, "Poll needs at least two options")
	}
	if len(options) > maxOptions {
		return "", nil, apperrors.New(apperrors.ErrCodeValidation, "Poll supports at most five options")
	}
	return question, options, nil
}

// Create parses the raw poll input and stores a new poll for the chat.
func (s *Service) Create(ctx context.Context, chatID, messageID int64, input string) (*models.Poll, error) {
	question, optionTexts, err := ParsePollInput(input)
	if err != nil {
		return nil, err
	}

	options := make([]models.Option, len(optionTexts))
	for i, text := range optionTexts {
		options[i] = models.Option{ID: i + 1, Text: text}
	}

	poll := &models.Poll{
		ID:        uuid.New().String(),
		ChatID:    chatID,
		MessageID: messageID,
		Question:  question,
		Options:   options,
		CreatedAt: time.Now().Unix(),
	}
	if err := s.polls.Create(ctx, poll); err != nil {
		return nil, err
	}
	return poll, nil
}

// Vote records a single vote by a verified member on the chat's active
// poll and returns the updated poll.
func (s *Service) Vote(ctx context.Context, chatID, userID int64, optionID int) (*models.Poll, error) {
	guard, err := s.guards.GetByChatID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if guard.PortalData == nil || !guard.PortalData.HasVerifiedUser(userID) {
		return nil, apperrors.New(apperrors.ErrCodeNotVerified, "Only verified members can vote, complete verification first!")
	}

	poll, err := s.polls.GetActiveByChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if poll.HasVoted(userID) {
		return nil, apperrors.New(apperrors.ErrCodeAlreadyVoted, "You have already voted in this poll!")
	}

	voted := false
	for i := range poll.Options {
		if poll.Options[i].ID == optionID {
			poll.Options[i].Votes++
			voted = true
			break
		}
	}
	if !voted {
		return nil, apperrors.New(apperrors.ErrCodeValidation, "Unknown poll option")
	}

	poll.Voters = append(poll.Voters, userID)
	if err := s.polls.Update(ctx, poll); err != nil {
		return nil, err
	}
	return poll, nil
}

// Close deletes the chat's active poll and returns its final state.
func (s *Service) Close(ctx context.Context, chatID int64) (*models.Poll, error) {
	poll, err := s.polls.GetActiveByChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if err := s.polls.Delete(ctx, poll.ID); err != nil {
		return nil, err
	}
	return poll, nil
}

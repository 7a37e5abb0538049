package service

import (
	"context"

	"github.com/BloggingApp/comment-service/internal/model"
	"github.com/BloggingApp/comment-service/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type notificationService struct {
	logger *zap.Logger
	repo   *repository.Repository
}

func newNotificationService(logger *zap.Logger, repo *repository.Repository) Notification {
	return &notificationService{
		logger: logger,
		repo:   repo,
	}
}

// Notifications are not cached: they change on every comment mutation and the
// listing is already a cheap indexed query.
func (s *notificationService) FindUserNotifications(ctx context.Context, userID uuid.UUID, limit int, offset int) ([]*model.Notification, error) {
	maxLimit(&limit)

	notifications, err := s.repo.Postgres.Notification.FindUserNotifications(ctx, userID, limit, offset)
	if err != nil && err != pgx.ErrNoRows {
		s.logger.Sugar().Errorf("failed to find user(%s) notifications from postgres: %s", userID.String(), err.Error())
		return nil, ErrInternal
	}

	return notifications, nil
}

package service

import (
	"context"

	"github.com/BloggingApp/comment-service/internal/dto"
	"github.com/BloggingApp/comment-service/internal/model"
	"github.com/BloggingApp/comment-service/internal/repository"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const MAX_LIMIT = 5

func maxLimit(limit *int) {
	if *limit > MAX_LIMIT || *limit <= 0 {
		*limit = MAX_LIMIT
	}
}

type Article interface {
	FindByID(ctx context.Context, id int64) (*model.FullArticle, error)
	FindAuthorArticles(ctx context.Context, authorID uuid.UUID, limit int, offset int) ([]*model.FullArticle, error)
}

type Comment interface {
	Create(ctx context.Context, authorID uuid.UUID, input dto.CreateCommentDto) (*model.Comment, error)
	Delete(ctx context.Context, commentID int64, requesterID uuid.UUID) error
	FindArticleComments(ctx context.Context, articleID int64, limit int, offset int) ([]*model.FullComment, error)
	FindCommentReplies(ctx context.Context, commentID int64, limit int, offset int) ([]*model.FullComment, error)
}

type Notification interface {
	FindUserNotifications(ctx context.Context, userID uuid.UUID, limit int, offset int) ([]*model.Notification, error)
}

type UserCache interface {
	CreateOrGet(ctx context.Context, id uuid.UUID, accessToken string) (*model.CachedUser, error)
	Create(ctx context.Context, cachedUser model.CachedUser) error
	Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.CachedUser, error)
	StartConsume(ctx context.Context)
}

// Publisher is the slice of the rabbitmq connection the services need.
type Publisher interface {
	Publish(ctx context.Context, queue string, body []byte) error
	Consume(queue string) (<-chan amqp.Delivery, error)
}

type Service struct {
	Article
	Comment
	Notification
	UserCache
}

func New(logger *zap.Logger, repo *repository.Repository, mq Publisher) *Service {
	return &Service{
		Article:      newArticleService(logger, repo),
		Comment:      newCommentService(logger, repo, mq),
		Notification: newNotificationService(logger, repo),
		UserCache:    newUserCacheService(logger, repo, mq),
	}
}

func (s *Service) StartConsumeAll(ctx context.Context) {
	go s.UserCache.StartConsume(ctx)
}

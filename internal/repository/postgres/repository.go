package postgres

import (
	"context"

	"github.com/BloggingApp/comment-service/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
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
	GetOwner(ctx context.Context, id int64) (uuid.UUID, error)
	IncrViews(ctx context.Context, id int64) error
	AddComments(ctx context.Context, id int64, totalDelta int64, parentDelta int64) error
}

type Comment interface {
	Create(ctx context.Context, comment model.Comment) (*model.Comment, error)
	FindByID(ctx context.Context, id int64) (*model.Comment, error)
	FindArticleComments(ctx context.Context, articleID int64, limit int, offset int) ([]*model.FullComment, error)
	FindCommentReplies(ctx context.Context, commentID int64, limit int, offset int) ([]*model.FullComment, error)
	FindChildrenIDs(ctx context.Context, parentIDs []int64) ([]int64, error)
	AppendChild(ctx context.Context, parentID int64, childID int64) error
	RemoveChild(ctx context.Context, parentID int64, childID int64) error
	DeleteMany(ctx context.Context, ids []int64) (int64, error)
}

type Notification interface {
	Create(ctx context.Context, notification model.Notification) (*model.Notification, error)
	DeleteByComments(ctx context.Context, commentIDs []int64) error
	FindUserNotifications(ctx context.Context, userID uuid.UUID, limit int, offset int) ([]*model.Notification, error)
}

type UserCache interface {
	Create(ctx context.Context, cachedUser model.CachedUser) error
	Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.CachedUser, error)
}

type PostgresRepository struct {
	Article
	Comment
	Notification
	UserCache
}

func New(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{
		Article:      newArticleRepo(db),
		Comment:      newCommentRepo(db),
		Notification: newNotificationRepo(db),
		UserCache:    newUserCacheRepo(db),
	}
}

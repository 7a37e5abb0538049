package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/BloggingApp/comment-service/internal/dto"
	"github.com/BloggingApp/comment-service/internal/model"
	"github.com/BloggingApp/comment-service/internal/rabbitmq"
	"github.com/BloggingApp/comment-service/internal/repository"
	"github.com/BloggingApp/comment-service/internal/repository/redisrepo"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const MAX_COMMENT_BODY_LEN = 5000

type commentService struct {
	logger *zap.Logger
	repo   *repository.Repository
	events Publisher
}

func newCommentService(logger *zap.Logger, repo *repository.Repository, events Publisher) Comment {
	return &commentService{
		logger: logger,
		repo:   repo,
		events: events,
	}
}

func (s *commentService) Create(ctx context.Context, authorID uuid.UUID, input dto.CreateCommentDto) (*model.Comment, error) {
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, ErrEmptyComment
	}
	if utf8.RuneCountInString(body) > MAX_COMMENT_BODY_LEN {
		return nil, ErrCommentTooLong
	}

	articleOwnerID, err := s.repo.Postgres.Article.GetOwner(ctx, input.ArticleID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrArticleNotFound
		}

		s.logger.Sugar().Errorf("failed to get article(%d) owner: %s", input.ArticleID, err.Error())
		return nil, ErrInternal
	}

	// The notification target is resolved before the write: the article author
	// for a top-level comment, the parent comment's author for a reply.
	notificationType := model.NotificationTypeComment
	notificationTarget := articleOwnerID
	var parent *model.Comment
	if input.ParentID != nil {
		parent, err = s.repo.Postgres.Comment.FindByID(ctx, *input.ParentID)
		if err != nil {
			if err == pgx.ErrNoRows {
				return nil, ErrCommentNotFound
			}

			s.logger.Sugar().Errorf("failed to find parent comment(%d): %s", *input.ParentID, err.Error())
			return nil, ErrInternal
		}
		if parent.ArticleID != input.ArticleID {
			return nil, ErrParentMismatch
		}

		notificationType = model.NotificationTypeReply
		notificationTarget = parent.AuthorID
	}

	comment := model.Comment{
		ParentID:        input.ParentID,
		ArticleID:       input.ArticleID,
		ArticleAuthorID: articleOwnerID,
		AuthorID:        authorID,
		Body:            body,
	}

	createdComment, err := s.repo.Postgres.Comment.Create(ctx, comment)
	if err != nil {
		s.logger.Sugar().Errorf("failed to create user(%s) comment on article(%d): %s", authorID.String(), input.ArticleID, err.Error())
		return nil, ErrInternal
	}

	// Everything past the primary write is best-effort: the created comment is
	// returned even if a follow-up mutation fails, and the failure is logged so
	// the inconsistency can be reconciled out of band.
	if parent != nil {
		if err := s.repo.Postgres.Comment.AppendChild(ctx, parent.ID, createdComment.ID); err != nil {
			s.logger.Sugar().Errorf("failed to append child(%d) to comment(%d): %s", createdComment.ID, parent.ID, err.Error())
		}
	}

	parentDelta := int64(1)
	if createdComment.IsReply() {
		parentDelta = 0
	}
	if err := s.repo.Postgres.Article.AddComments(ctx, input.ArticleID, 1, parentDelta); err != nil {
		s.logger.Sugar().Errorf("failed to increment article(%d) comment counters: %s", input.ArticleID, err.Error())
	}

	if notificationTarget != authorID {
		s.notifyCreated(ctx, notificationType, notificationTarget, createdComment)
	}

	s.invalidateCommentPages(ctx, createdComment)

	return createdComment, nil
}

func (s *commentService) notifyCreated(ctx context.Context, notificationType model.NotificationType, targetUserID uuid.UUID, comment *model.Comment) {
	notification, err := s.repo.Postgres.Notification.Create(ctx, model.Notification{
		Type:         notificationType,
		ArticleID:    comment.ArticleID,
		CommentID:    comment.ID,
		TargetUserID: targetUserID,
		ActorID:      comment.AuthorID,
	})
	if err != nil {
		s.logger.Sugar().Errorf("failed to create notification for comment(%d): %s", comment.ID, err.Error())
		return
	}

	msg := dto.MQNotificationMsg{
		Type:         notification.Type,
		ArticleID:    notification.ArticleID,
		CommentID:    notification.CommentID,
		TargetUserID: notification.TargetUserID,
		ActorID:      notification.ActorID,
		CreatedAt:    notification.CreatedAt,
	}
	msgJSON, err := json.Marshal(msg)
	if err != nil {
		s.logger.Sugar().Errorf("failed to marshal notification(%d) event: %s", notification.ID, err.Error())
		return
	}

	if err := s.events.Publish(ctx, rabbitmq.NOTIFICATIONS_QUEUE, msgJSON); err != nil {
		s.logger.Sugar().Errorf("failed to publish notification(%d) event: %s", notification.ID, err.Error())
	}
}

func (s *commentService) Delete(ctx context.Context, commentID int64, requesterID uuid.UUID) error {
	comment, err := s.repo.Postgres.Comment.FindByID(ctx, commentID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrCommentNotFound
		}

		s.logger.Sugar().Errorf("failed to find comment(%d): %s", commentID, err.Error())
		return ErrInternal
	}

	if requesterID != comment.AuthorID && requesterID != comment.ArticleAuthorID {
		return ErrNoPermission
	}

	// Iterative worklist instead of recursion: collect the whole subtree level
	// by level before deleting anything, so the cascade depth is bounded by
	// round trips, not stack frames.
	ids := []int64{comment.ID}
	frontier := []int64{comment.ID}
	for len(frontier) > 0 {
		children, err := s.repo.Postgres.Comment.FindChildrenIDs(ctx, frontier)
		if err != nil {
			s.logger.Sugar().Errorf("failed to collect descendants of comment(%d): %s", commentID, err.Error())
			return ErrInternal
		}

		ids = append(ids, children...)
		frontier = children
	}

	if comment.IsReply() {
		if err := s.repo.Postgres.Comment.RemoveChild(ctx, *comment.ParentID, comment.ID); err != nil {
			s.logger.Sugar().Errorf("failed to detach comment(%d) from parent(%d): %s", comment.ID, *comment.ParentID, err.Error())
		}
	}

	removed, err := s.repo.Postgres.Comment.DeleteMany(ctx, ids)
	if err != nil {
		s.logger.Sugar().Errorf("failed to delete comment(%d) subtree: %s", commentID, err.Error())
		return ErrInternal
	}
	if removed == 0 {
		return ErrCommentNotFound
	}

	parentDelta := int64(-1)
	if comment.IsReply() {
		parentDelta = 0
	}
	if err := s.repo.Postgres.Article.AddComments(ctx, comment.ArticleID, -removed, parentDelta); err != nil {
		s.logger.Sugar().Errorf("failed to decrement article(%d) comment counters: %s", comment.ArticleID, err.Error())
	}

	if err := s.repo.Postgres.Notification.DeleteByComments(ctx, ids); err != nil {
		s.logger.Sugar().Errorf("failed to delete notifications of comment(%d) subtree: %s", commentID, err.Error())
	}

	s.invalidateCommentPages(ctx, comment)

	return nil
}

func (s *commentService) FindArticleComments(ctx context.Context, articleID int64, limit int, offset int) ([]*model.FullComment, error) {
	maxLimit(&limit)

	cachedComments, err := redisrepo.GetMany[model.FullComment](s.repo.Redis.Default, ctx, redisrepo.ArticleCommentsKey(articleID, limit, offset))
	if err == nil {
		return cachedComments, nil
	}
	if err != redis.Nil {
		s.logger.Sugar().Errorf("failed to get article(%d) comments from redis: %s", articleID, err.Error())
		return nil, ErrInternal
	}

	comments, err := s.repo.Postgres.Comment.FindArticleComments(ctx, articleID, limit, offset)
	if err != nil && err != pgx.ErrNoRows {
		s.logger.Sugar().Errorf("failed to find article(%d) comments from postgres: %s", articleID, err.Error())
		return nil, ErrInternal
	}

	if err := s.repo.Redis.Default.SetJSON(ctx, redisrepo.ArticleCommentsKey(articleID, limit, offset), comments, time.Minute); err != nil {
		s.logger.Sugar().Errorf("failed to set article(%d) comments in redis: %s", articleID, err.Error())
		return nil, ErrInternal
	}

	return comments, nil
}

func (s *commentService) FindCommentReplies(ctx context.Context, commentID int64, limit int, offset int) ([]*model.FullComment, error) {
	maxLimit(&limit)

	cachedReplies, err := redisrepo.GetMany[model.FullComment](s.repo.Redis.Default, ctx, redisrepo.CommentRepliesKey(commentID, limit, offset))
	if err == nil {
		return cachedReplies, nil
	}
	if err != redis.Nil {
		s.logger.Sugar().Errorf("failed to get comment(%d) replies from redis: %s", commentID, err.Error())
		return nil, ErrInternal
	}

	replies, err := s.repo.Postgres.Comment.FindCommentReplies(ctx, commentID, limit, offset)
	if err != nil && err != pgx.ErrNoRows {
		s.logger.Sugar().Errorf("failed to find comment(%d) replies from postgres: %s", commentID, err.Error())
		return nil, ErrInternal
	}

	if err := s.repo.Redis.Default.SetJSON(ctx, redisrepo.CommentRepliesKey(commentID, limit, offset), replies, time.Minute); err != nil {
		s.logger.Sugar().Errorf("failed to set comment(%d) replies in redis: %s", commentID, err.Error())
		return nil, ErrInternal
	}

	return replies, nil
}

// invalidateCommentPages drops the cached listing pages a mutation may have
// made stale: the article's root pages, the parent's reply pages (when the
// comment is a reply) and the article itself (its counters changed).
func (s *commentService) invalidateCommentPages(ctx context.Context, comment *model.Comment) {
	patterns := []string{
		redisrepo.ArticleCommentsPattern(comment.ArticleID),
		redisrepo.ArticleKey(comment.ArticleID),
	}
	if comment.IsReply() {
		patterns = append(patterns, redisrepo.CommentRepliesPattern(*comment.ParentID))
	}

	for _, pattern := range patterns {
		keys, err := s.repo.Redis.Default.Keys(ctx, pattern).Result()
		if err != nil {
			s.logger.Sugar().Errorf("failed to list redis keys(%s): %s", pattern, err.Error())
			continue
		}
		if len(keys) == 0 {
			continue
		}

		if err := s.repo.Redis.Default.Del(ctx, keys...).Err(); err != nil {
			s.logger.Sugar().Errorf("failed to delete redis keys(%s): %s", pattern, err.Error())
		}
	}
}

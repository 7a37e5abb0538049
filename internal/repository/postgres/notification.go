package postgres

import (
	"context"
	"time"

	"github.com/BloggingApp/comment-service/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type notificationRepo struct {
	db *pgxpool.Pool
}

func newNotificationRepo(db *pgxpool.Pool) Notification {
	return &notificationRepo{
		db: db,
	}
}

func (r *notificationRepo) Create(ctx context.Context, notification model.Notification) (*model.Notification, error) {
	notification.CreatedAt = time.Now()
	notification.Seen = false
	if err := r.db.QueryRow(
		ctx,
		"INSERT INTO notifications(type, article_id, comment_id, target_user_id, actor_id, seen, created_at) VALUES($1, $2, $3, $4, $5, $6, $7) RETURNING id",
		notification.Type,
		notification.ArticleID,
		notification.CommentID,
		notification.TargetUserID,
		notification.ActorID,
		notification.Seen,
		notification.CreatedAt,
	).Scan(&notification.ID); err != nil {
		return nil, err
	}

	return &notification, nil
}

func (r *notificationRepo) DeleteByComments(ctx context.Context, commentIDs []int64) error {
	_, err := r.db.Exec(ctx, "DELETE FROM notifications WHERE comment_id = ANY($1)", commentIDs)
	return err
}

func (r *notificationRepo) FindUserNotifications(ctx context.Context, userID uuid.UUID, limit int, offset int) ([]*model.Notification, error) {
	maxLimit(&limit)

	rows, err := r.db.Query(
		ctx,
		`SELECT
		n.id, n.type, n.article_id, n.comment_id, n.target_user_id, n.actor_id, n.seen, n.created_at
		FROM notifications n
		WHERE n.target_user_id = $1
		ORDER BY n.created_at DESC, n.id DESC
		LIMIT $2
		OFFSET $3`,
		userID,
		limit,
		offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []*model.Notification
	for rows.Next() {
		var notification model.Notification
		if err := rows.Scan(
			&notification.ID,
			&notification.Type,
			&notification.ArticleID,
			&notification.CommentID,
			&notification.TargetUserID,
			&notification.ActorID,
			&notification.Seen,
			&notification.CreatedAt,
		); err != nil {
			return nil, err
		}

		notifications = append(notifications, &notification)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return notifications, nil
}

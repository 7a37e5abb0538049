package model

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationTypeComment NotificationType = "comment" // top-level comment on an article
	NotificationTypeReply   NotificationType = "reply"   // reply to an existing comment
)

type Notification struct {
	ID           int64            `json:"id"`
	Type         NotificationType `json:"type"`
	ArticleID    int64            `json:"article_id"`
	CommentID    int64            `json:"comment_id"`
	TargetUserID uuid.UUID        `json:"target_user_id"`
	ActorID      uuid.UUID        `json:"actor_id"`
	Seen         bool             `json:"seen"`
	CreatedAt    time.Time        `json:"created_at"`
}

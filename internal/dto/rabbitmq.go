package dto

import (
	"time"

	"github.com/BloggingApp/comment-service/internal/model"
	"github.com/google/uuid"
)

type MQNotificationMsg struct {
	Type         model.NotificationType `json:"type"`
	ArticleID    int64                  `json:"article_id"`
	CommentID    int64                  `json:"comment_id"`
	TargetUserID uuid.UUID              `json:"target_user_id"`
	ActorID      uuid.UUID              `json:"actor_id"`
	CreatedAt    time.Time              `json:"created_at"`
}

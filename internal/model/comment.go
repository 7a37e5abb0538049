package model

import (
	"time"

	"github.com/google/uuid"
)

type Comment struct {
	ID              int64     `json:"id"`
	ParentID        *int64    `json:"parent_id"`
	ArticleID       int64     `json:"article_id"`
	ArticleAuthorID uuid.UUID `json:"article_author_id"`
	AuthorID        uuid.UUID `json:"author_id"`
	Body            string    `json:"body"`
	ChildrenIDs     []int64   `json:"children_ids"`
	CreatedAt       time.Time `json:"created_at"`
}

// IsReply reports whether the comment is nested under another comment.
func (c *Comment) IsReply() bool {
	return c.ParentID != nil
}

type FullComment struct {
	Comment Comment    `json:"comment"`
	Author  UserAuthor `json:"author"`
}

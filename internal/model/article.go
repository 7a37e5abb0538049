package model

import (
	"time"

	"github.com/google/uuid"
)

type Article struct {
	ID                  int64     `json:"id"`
	AuthorID            uuid.UUID `json:"author_id"`
	Title               string    `json:"title"`
	Content             string    `json:"content"`
	Views               int64     `json:"views"`
	TotalComments       int64     `json:"total_comments"`
	TotalParentComments int64     `json:"total_parent_comments"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

type FullArticle struct {
	Article Article    `json:"article"`
	Author  UserAuthor `json:"author"`
}

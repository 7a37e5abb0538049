package dto

type CreateCommentDto struct {
	ArticleID int64  `json:"article_id" binding:"required"`
	ParentID  *int64 `json:"parent_id"`
	Body      string `json:"body" binding:"required,min=1"`
}

type GetCommentsDto struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

package dto

type GetArticlesDto struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

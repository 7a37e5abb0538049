package service

import "errors"

var (
	ErrInternal        = errors.New("internal server error")
	ErrEmptyComment    = errors.New("comment body must not be empty")
	ErrCommentTooLong  = errors.New("comment body is too long")
	ErrCommentNotFound = errors.New("comment not found")
	ErrArticleNotFound = errors.New("article not found")
	ErrParentMismatch  = errors.New("parent comment belongs to another article")
	ErrNoPermission    = errors.New("no permission to perform this action")
)

package handler

import "errors"

var (
	errNotAuthorized    = errors.New("user is not authorized")
	errInvalidArticleID = errors.New("invalid article ID")
	errInvalidID        = errors.New("invalid ID")
)

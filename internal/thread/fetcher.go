package thread

import (
	"context"

	"github.com/BloggingApp/comment-service/internal/model"
	"github.com/BloggingApp/comment-service/internal/service"
)

// Fetcher is the slice of the comment surface a session pulls pages from.
type Fetcher interface {
	FetchRoots(ctx context.Context, articleID int64, limit int, offset int) ([]*model.FullComment, error)
	FetchReplies(ctx context.Context, commentID int64, limit int, offset int) ([]*model.FullComment, error)
}

// ServiceFetcher adapts the comment service to the Fetcher contract, for
// sessions living in the same process as the store (server-side rendering,
// tests).
type ServiceFetcher struct {
	comments service.Comment
}

func NewServiceFetcher(comments service.Comment) *ServiceFetcher {
	return &ServiceFetcher{
		comments: comments,
	}
}

func (f *ServiceFetcher) FetchRoots(ctx context.Context, articleID int64, limit int, offset int) ([]*model.FullComment, error) {
	return f.comments.FindArticleComments(ctx, articleID, limit, offset)
}

func (f *ServiceFetcher) FetchReplies(ctx context.Context, commentID int64, limit int, offset int) ([]*model.FullComment, error) {
	return f.comments.FindCommentReplies(ctx, commentID, limit, offset)
}

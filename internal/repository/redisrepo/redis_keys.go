package redisrepo

import "fmt"

const (
	ARTICLE_KEY          = "article:%d"                   // <articleID>
	AUTHOR_ARTICLES_KEY  = "author:%s-articles:%d:%d"     // <authorID>:<limit>:<offset>
	ARTICLE_COMMENTS_KEY = "article:%d-comments:%d:%d"    // <articleID>:<limit>:<offset>
	COMMENT_REPLIES_KEY  = "comment:%d-replies:%d:%d"     // <commentID>:<limit>:<offset>
	USER_CACHE_KEY       = "user-cache:%s"                // <userID>
)

func ArticleKey(articleID int64) string {
	return fmt.Sprintf(ARTICLE_KEY, articleID)
}

func AuthorArticlesKey(authorID string, limit int, offset int) string {
	return fmt.Sprintf(AUTHOR_ARTICLES_KEY, authorID, limit, offset)
}

func ArticleCommentsKey(articleID int64, limit int, offset int) string {
	return fmt.Sprintf(ARTICLE_COMMENTS_KEY, articleID, limit, offset)
}

func CommentRepliesKey(commentID int64, limit int, offset int) string {
	return fmt.Sprintf(COMMENT_REPLIES_KEY, commentID, limit, offset)
}

func UserCacheKey(userID string) string {
	return fmt.Sprintf(USER_CACHE_KEY, userID)
}

// Patterns for the mutation paths to invalidate every cached page at once.

func ArticleCommentsPattern(articleID int64) string {
	return fmt.Sprintf("article:%d-comments:*", articleID)
}

func CommentRepliesPattern(commentID int64) string {
	return fmt.Sprintf("comment:%d-replies:*", commentID)
}

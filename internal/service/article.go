package service

import (
	"context"
	"time"

	"github.com/BloggingApp/comment-service/internal/model"
	"github.com/BloggingApp/comment-service/internal/repository"
	"github.com/BloggingApp/comment-service/internal/repository/redisrepo"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type articleService struct {
	logger *zap.Logger
	repo   *repository.Repository
}

func newArticleService(logger *zap.Logger, repo *repository.Repository) Article {
	return &articleService{
		logger: logger,
		repo:   repo,
	}
}

func (s *articleService) FindByID(ctx context.Context, id int64) (*model.FullArticle, error) {
	cachedArticle, err := redisrepo.Get[model.FullArticle](s.repo.Redis.Default, ctx, redisrepo.ArticleKey(id))
	if err == nil {
		if cachedArticle != nil {
			s.incrViews(cachedArticle.Article.ID)
		}
		return cachedArticle, nil
	}
	if err != redis.Nil {
		s.logger.Sugar().Errorf("failed to get article(%d) from redis: %s", id, err.Error())
		return nil, ErrInternal
	}

	article, err := s.repo.Postgres.Article.FindByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrArticleNotFound
		}

		s.logger.Sugar().Errorf("failed to find article(%d) from postgres: %s", id, err.Error())
		return nil, ErrInternal
	}

	if err := s.repo.Redis.Default.SetJSON(ctx, redisrepo.ArticleKey(id), article, time.Hour); err != nil {
		s.logger.Sugar().Errorf("failed to set article(%d) in redis: %s", id, err.Error())
		return nil, ErrInternal
	}

	s.incrViews(article.Article.ID)

	return article, nil
}

func (s *articleService) incrViews(articleID int64) {
	go func(id int64) {
		ctx := context.Background()
		if err := s.repo.Postgres.Article.IncrViews(ctx, id); err != nil {
			s.logger.Sugar().Errorf("failed to increment views for article(%d): %s", id, err.Error())
		}
	}(articleID)
}

func (s *articleService) FindAuthorArticles(ctx context.Context, authorID uuid.UUID, limit int, offset int) ([]*model.FullArticle, error) {
	maxLimit(&limit)

	cachedArticles, err := redisrepo.GetMany[model.FullArticle](s.repo.Redis.Default, ctx, redisrepo.AuthorArticlesKey(authorID.String(), limit, offset))
	if err == nil {
		return cachedArticles, nil
	}
	if err != redis.Nil {
		s.logger.Sugar().Errorf("failed to get author(%s) articles from redis: %s", authorID.String(), err.Error())
		return nil, ErrInternal
	}

	articles, err := s.repo.Postgres.Article.FindAuthorArticles(ctx, authorID, limit, offset)
	if err != nil && err != pgx.ErrNoRows {
		s.logger.Sugar().Errorf("failed to find author(%s) articles from postgres: %s", authorID.String(), err.Error())
		return nil, ErrInternal
	}

	if err := s.repo.Redis.Default.SetJSON(ctx, redisrepo.AuthorArticlesKey(authorID.String(), limit, offset), articles, time.Hour); err != nil {
		s.logger.Sugar().Errorf("failed to set author(%s) articles in redis: %s", authorID.String(), err.Error())
		return nil, ErrInternal
	}

	return articles, nil
}

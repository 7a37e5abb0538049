package postgres

import (
	"context"

	"github.com/BloggingApp/comment-service/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type articleRepo struct {
	db *pgxpool.Pool
}

func newArticleRepo(db *pgxpool.Pool) Article {
	return &articleRepo{
		db: db,
	}
}

func (r *articleRepo) FindByID(ctx context.Context, id int64) (*model.FullArticle, error) {
	var article model.FullArticle
	if err := r.db.QueryRow(
		ctx,
		`SELECT
		a.id, a.author_id, a.title, a.content, a.views, a.total_comments, a.total_parent_comments, a.created_at, a.updated_at, u.username, u.display_name, u.avatar_url
		FROM articles a
		JOIN cached_users u ON a.author_id = u.id
		WHERE a.id = $1`,
		id,
	).Scan(
		&article.Article.ID,
		&article.Article.AuthorID,
		&article.Article.Title,
		&article.Article.Content,
		&article.Article.Views,
		&article.Article.TotalComments,
		&article.Article.TotalParentComments,
		&article.Article.CreatedAt,
		&article.Article.UpdatedAt,
		&article.Author.Username,
		&article.Author.DisplayName,
		&article.Author.AvatarURL,
	); err != nil {
		return nil, err
	}

	return &article, nil
}

func (r *articleRepo) FindAuthorArticles(ctx context.Context, authorID uuid.UUID, limit int, offset int) ([]*model.FullArticle, error) {
	maxLimit(&limit)

	rows, err := r.db.Query(
		ctx,
		`SELECT
		a.id, a.author_id, a.title, a.content, a.views, a.total_comments, a.total_parent_comments, a.created_at, a.updated_at, u.username, u.display_name, u.avatar_url
		FROM articles a
		JOIN cached_users u ON a.author_id = u.id
		WHERE a.author_id = $1
		ORDER BY a.created_at DESC, a.id DESC
		LIMIT $2
		OFFSET $3`,
		authorID,
		limit,
		offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []*model.FullArticle
	for rows.Next() {
		var article model.FullArticle
		if err := rows.Scan(
			&article.Article.ID,
			&article.Article.AuthorID,
			&article.Article.Title,
			&article.Article.Content,
			&article.Article.Views,
			&article.Article.TotalComments,
			&article.Article.TotalParentComments,
			&article.Article.CreatedAt,
			&article.Article.UpdatedAt,
			&article.Author.Username,
			&article.Author.DisplayName,
			&article.Author.AvatarURL,
		); err != nil {
			return nil, err
		}

		articles = append(articles, &article)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return articles, nil
}

func (r *articleRepo) GetOwner(ctx context.Context, id int64) (uuid.UUID, error) {
	var ownerID uuid.UUID
	if err := r.db.QueryRow(ctx, "SELECT a.author_id FROM articles a WHERE a.id = $1", id).Scan(&ownerID); err != nil {
		return uuid.Nil, err
	}

	return ownerID, nil
}

func (r *articleRepo) IncrViews(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, "UPDATE articles SET views = views + 1 WHERE id = $1", id)
	return err
}

// AddComments applies the counter deltas in a single statement so that
// concurrent creates and deletes cannot lose updates.
func (r *articleRepo) AddComments(ctx context.Context, id int64, totalDelta int64, parentDelta int64) error {
	_, err := r.db.Exec(
		ctx,
		"UPDATE articles SET total_comments = total_comments + $1, total_parent_comments = total_parent_comments + $2 WHERE id = $3",
		totalDelta,
		parentDelta,
		id,
	)
	return err
}

package postgres

import (
	"context"
	"time"

	"github.com/BloggingApp/comment-service/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type commentRepo struct {
	db *pgxpool.Pool
}

func newCommentRepo(db *pgxpool.Pool) Comment {
	return &commentRepo{
		db: db,
	}
}

func (r *commentRepo) Create(ctx context.Context, comment model.Comment) (*model.Comment, error) {
	comment.CreatedAt = time.Now()
	comment.ChildrenIDs = nil
	if err := r.db.QueryRow(
		ctx,
		"INSERT INTO comments(parent_id, article_id, article_author_id, author_id, body, created_at) VALUES($1, $2, $3, $4, $5, $6) RETURNING id",
		comment.ParentID,
		comment.ArticleID,
		comment.ArticleAuthorID,
		comment.AuthorID,
		comment.Body,
		comment.CreatedAt,
	).Scan(&comment.ID); err != nil {
		return nil, err
	}

	return &comment, nil
}

func (r *commentRepo) FindByID(ctx context.Context, id int64) (*model.Comment, error) {
	var comment model.Comment
	if err := r.db.QueryRow(
		ctx,
		"SELECT c.id, c.parent_id, c.article_id, c.article_author_id, c.author_id, c.body, c.children_ids, c.created_at FROM comments c WHERE c.id = $1",
		id,
	).Scan(
		&comment.ID,
		&comment.ParentID,
		&comment.ArticleID,
		&comment.ArticleAuthorID,
		&comment.AuthorID,
		&comment.Body,
		&comment.ChildrenIDs,
		&comment.CreatedAt,
	); err != nil {
		return nil, err
	}

	return &comment, nil
}

func (r *commentRepo) FindArticleComments(ctx context.Context, articleID int64, limit int, offset int) ([]*model.FullComment, error) {
	maxLimit(&limit)

	rows, err := r.db.Query(
		ctx,
		`SELECT
		c.id, c.parent_id, c.article_id, c.article_author_id, c.author_id, c.body, c.children_ids, c.created_at, u.username, u.display_name, u.avatar_url
		FROM comments c
		JOIN cached_users u ON c.author_id = u.id
		WHERE c.article_id = $1 AND c.parent_id IS NULL
		ORDER BY c.created_at DESC, c.id DESC
		LIMIT $2
		OFFSET $3`,
		articleID,
		limit,
		offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanFullComments(rows)
}

func (r *commentRepo) FindCommentReplies(ctx context.Context, commentID int64, limit int, offset int) ([]*model.FullComment, error) {
	maxLimit(&limit)

	rows, err := r.db.Query(
		ctx,
		`SELECT
		c.id, c.parent_id, c.article_id, c.article_author_id, c.author_id, c.body, c.children_ids, c.created_at, u.username, u.display_name, u.avatar_url
		FROM comments c
		JOIN cached_users u ON c.author_id = u.id
		WHERE c.parent_id = $1
		ORDER BY c.created_at DESC, c.id DESC
		LIMIT $2
		OFFSET $3`,
		commentID,
		limit,
		offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanFullComments(rows)
}

func (r *commentRepo) FindChildrenIDs(ctx context.Context, parentIDs []int64) ([]int64, error) {
	rows, err := r.db.Query(ctx, "SELECT id FROM comments WHERE parent_id = ANY($1)", parentIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}

func (r *commentRepo) AppendChild(ctx context.Context, parentID int64, childID int64) error {
	_, err := r.db.Exec(
		ctx,
		"UPDATE comments SET children_ids = array_append(children_ids, $1) WHERE id = $2",
		childID,
		parentID,
	)
	return err
}

func (r *commentRepo) RemoveChild(ctx context.Context, parentID int64, childID int64) error {
	_, err := r.db.Exec(
		ctx,
		"UPDATE comments SET children_ids = array_remove(children_ids, $1) WHERE id = $2",
		childID,
		parentID,
	)
	return err
}

func (r *commentRepo) DeleteMany(ctx context.Context, ids []int64) (int64, error) {
	res, err := r.db.Exec(ctx, "DELETE FROM comments WHERE id = ANY($1)", ids)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected(), nil
}

func scanFullComments(rows pgx.Rows) ([]*model.FullComment, error) {
	var comments []*model.FullComment
	for rows.Next() {
		var comment model.FullComment
		if err := rows.Scan(
			&comment.Comment.ID,
			&comment.Comment.ParentID,
			&comment.Comment.ArticleID,
			&comment.Comment.ArticleAuthorID,
			&comment.Comment.AuthorID,
			&comment.Comment.Body,
			&comment.Comment.ChildrenIDs,
			&comment.Comment.CreatedAt,
			&comment.Author.Username,
			&comment.Author.DisplayName,
			&comment.Author.AvatarURL,
		); err != nil {
			return nil, err
		}

		comments = append(comments, &comment)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return comments, nil
}

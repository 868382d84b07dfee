package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/startblog/apiserver/types"
)

const postColumns = `
	p.id, p.title, p.slug, p.summary, p.content, p.author_id, u.username,
	p.is_published, p.published_at, p.created_at, p.updated_at`

// PostRepository handles persistence for blog posts.
type PostRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) *PostRepository {
	return &PostRepository{db: db}
}

// List returns posts ordered by newest first. When publishedOnly is
// set, drafts are excluded and ordering switches to publication date,
// which is what the public blog page shows.
func (r *PostRepository) List(ctx context.Context, offset, limit int, publishedOnly bool) ([]types.Post, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	countQuery := `SELECT COUNT(1) FROM posts`
	listQuery := `
		SELECT ` + postColumns + `
		FROM posts p
		JOIN users u ON u.id = p.author_id
		ORDER BY p.created_at DESC
		OFFSET $1 LIMIT $2`
	if publishedOnly {
		countQuery = `SELECT COUNT(1) FROM posts WHERE is_published`
		listQuery = `
			SELECT ` + postColumns + `
			FROM posts p
			JOIN users u ON u.id = p.author_id
			WHERE p.is_published
			ORDER BY p.published_at DESC
			OFFSET $1 LIMIT $2`
	}

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx, listQuery, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	posts := make([]types.Post, 0, limit)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, 0, err
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return posts, total, nil
}

func (r *PostRepository) Get(ctx context.Context, id int) (types.Post, error) {
	const query = `
		SELECT ` + postColumns + `
		FROM posts p
		JOIN users u ON u.id = p.author_id
		WHERE p.id = $1`
	return r.getOne(ctx, query, id)
}

// GetBySlug returns a published post by its slug. Drafts are not
// reachable through slugs; the public API treats them as absent.
func (r *PostRepository) GetBySlug(ctx context.Context, slug string) (types.Post, error) {
	const query = `
		SELECT ` + postColumns + `
		FROM posts p
		JOIN users u ON u.id = p.author_id
		WHERE p.slug = $1 AND p.is_published`
	return r.getOne(ctx, query, slug)
}

// SlugExists reports whether any post already uses the slug.
func (r *PostRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM posts WHERE slug = $1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, slug).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PostRepository) Create(ctx context.Context, post types.Post) (types.Post, error) {
	now := time.Now()
	post.CreatedAt = now
	post.UpdatedAt = now
	if post.IsPublished && post.PublishedAt == nil {
		post.PublishedAt = &now
	}

	const query = `
		INSERT INTO posts (title, slug, summary, content, author_id, is_published, published_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		post.Title,
		post.Slug,
		post.Summary,
		post.Content,
		post.AuthorID,
		post.IsPublished,
		post.PublishedAt,
		post.CreatedAt,
		post.UpdatedAt,
	).Scan(&post.ID); err != nil {
		return types.Post{}, err
	}
	return post, nil
}

func (r *PostRepository) Update(ctx context.Context, post types.Post) (types.Post, error) {
	now := time.Now()
	post.UpdatedAt = now
	if post.IsPublished && post.PublishedAt == nil {
		post.PublishedAt = &now
	}

	const query = `
		UPDATE posts
		SET title = $1,
			slug = $2,
			summary = $3,
			content = $4,
			is_published = $5,
			published_at = COALESCE(published_at, $6),
			updated_at = $7
		WHERE id = $8`
	result, err := r.db.ExecContext(
		ctx,
		query,
		post.Title,
		post.Slug,
		post.Summary,
		post.Content,
		post.IsPublished,
		post.PublishedAt,
		post.UpdatedAt,
		post.ID,
	)
	if err != nil {
		return types.Post{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Post{}, err
	}
	if affected == 0 {
		return types.Post{}, ErrNotFound
	}
	return post, nil
}

func (r *PostRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM posts WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostRepository) getOne(ctx context.Context, query string, arg any) (types.Post, error) {
	post, err := scanPost(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Post{}, ErrNotFound
		}
		return types.Post{}, err
	}
	return post, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (types.Post, error) {
	var post types.Post
	var publishedAt sql.NullTime
	err := row.Scan(
		&post.ID,
		&post.Title,
		&post.Slug,
		&post.Summary,
		&post.Content,
		&post.AuthorID,
		&post.AuthorUsername,
		&post.IsPublished,
		&publishedAt,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	if err != nil {
		return types.Post{}, err
	}
	if publishedAt.Valid {
		post.PublishedAt = &publishedAt.Time
	}
	return post, nil
}

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/startblog/apiserver/internal/events"
	"github.com/startblog/apiserver/types"
)

// ErrSlugTaken is returned when a post title collides with an existing
// slug.
var ErrSlugTaken = errors.New("a post with this title already exists")

// PostRepository defines persistence operations for posts.
type PostRepository interface {
	List(ctx context.Context, offset, limit int, publishedOnly bool) ([]types.Post, int, error)
	Get(ctx context.Context, id int) (types.Post, error)
	GetBySlug(ctx context.Context, slug string) (types.Post, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	Create(ctx context.Context, post types.Post) (types.Post, error)
	Update(ctx context.Context, post types.Post) (types.Post, error)
	Delete(ctx context.Context, id int) error
}

// PostService encapsulates post use-cases. Mutations publish post.*
// events after the change commits; event delivery is best-effort and
// never fails the mutation.
type PostService struct {
	repo PostRepository
	bus  *events.Bus
}

func NewPostService(repo PostRepository, bus *events.Bus) *PostService {
	return &PostService{repo: repo, bus: bus}
}

func (s *PostService) List(ctx context.Context, offset, limit int, publishedOnly bool) ([]types.Post, int, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return s.repo.List(ctx, offset, limit, publishedOnly)
}

func (s *PostService) Get(ctx context.Context, id int) (types.Post, error) {
	return s.repo.Get(ctx, id)
}

func (s *PostService) GetBySlug(ctx context.Context, slug string) (types.Post, error) {
	return s.repo.GetBySlug(ctx, slug)
}

// Create derives the slug from the title and rejects duplicates.
func (s *PostService) Create(ctx context.Context, post types.Post, actor string) (types.Post, error) {
	post.Slug = Slugify(post.Title)
	taken, err := s.repo.SlugExists(ctx, post.Slug)
	if err != nil {
		return types.Post{}, fmt.Errorf("check slug: %w", err)
	}
	if taken {
		return types.Post{}, ErrSlugTaken
	}

	created, err := s.repo.Create(ctx, post)
	if err != nil {
		return types.Post{}, err
	}

	s.bus.Publish(ctx, events.PostEvent(events.PostCreated, created.ID, actor))
	return created, nil
}

// Update applies title, summary, content and publication changes. The
// slug stays stable so published URLs do not break on retitle.
func (s *PostService) Update(ctx context.Context, id int, title, summary, content string, isPublished bool, actor string) (types.Post, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Post{}, err
	}

	existing.Title = title
	existing.Summary = summary
	existing.Content = content
	existing.IsPublished = isPublished

	updated, err := s.repo.Update(ctx, existing)
	if err != nil {
		return types.Post{}, err
	}

	s.bus.Publish(ctx, events.PostEvent(events.PostUpdated, updated.ID, actor))
	return updated, nil
}

func (s *PostService) Delete(ctx context.Context, id int, actor string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.bus.Publish(ctx, events.PostEvent(events.PostDeleted, id, actor))
	return nil
}

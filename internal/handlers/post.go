package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/startblog/apiserver/internal/services"
	"github.com/startblog/apiserver/internal/store"
	"github.com/startblog/apiserver/types"
)

// PostHandler provides HTTP handlers for blog posts, both the public
// read-only surface and the admin CRUD surface.
type PostHandler struct {
	postService *services.PostService
}

// NewPostHandler constructs a handler with the provided service.
func NewPostHandler(postService *services.PostService) *PostHandler {
	return &PostHandler{postService: postService}
}

// PublicPostRouter registers the unauthenticated blog routes.
func PublicPostRouter(r chi.Router, postService *services.PostService) {
	handler := NewPostHandler(postService)

	r.Get("/", handler.ListPublished)
	r.Get("/{slug}", handler.GetBySlug)
}

// AdminPostRouter registers the admin CRUD routes. Every route requires
// a valid access token carrying the admin role.
func AdminPostRouter(r chi.Router, postService *services.PostService, adminOnly func(http.Handler) http.Handler) {
	handler := NewPostHandler(postService)

	r.Use(adminOnly)
	r.Get("/", handler.ListAll)
	r.Post("/", handler.Create)
	r.Route("/{postID}", func(r chi.Router) {
		r.Get("/", handler.Get)
		r.Put("/", handler.Update)
		r.Delete("/", handler.Delete)
	})
}

type PostListResponse struct {
	Items []types.Post `json:"items"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
	Total int          `json:"total"`
}

// ListPublished returns published posts, newest publication first.
func (h *PostHandler) ListPublished(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, true)
}

// ListAll returns every post including drafts, for the admin dashboard.
func (h *PostHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, false)
}

func (h *PostHandler) list(w http.ResponseWriter, r *http.Request, publishedOnly bool) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, total, err := h.postService.List(r.Context(), offset, limit, publishedOnly)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list posts")
		return
	}

	writeJSON(w, http.StatusOK, PostListResponse{
		Items: items,
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

// GetBySlug returns a single published post.
func (h *PostHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	post, err := h.postService.GetBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch post")
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// Get returns a single post by id, drafts included.
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parsePostID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	post, err := h.postService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch post")
		return
	}

	writeJSON(w, http.StatusOK, post)
}

type PostRequest struct {
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	Content     string `json:"content"`
	IsPublished bool   `json:"is_published"`
}

func (p *PostRequest) validate() error {
	p.Title = strings.TrimSpace(p.Title)
	p.Summary = strings.TrimSpace(p.Summary)
	if p.Title == "" || p.Summary == "" || strings.TrimSpace(p.Content) == "" {
		return errors.New("title, content, and summary are required")
	}
	return nil
}

// Create makes a new post authored by the caller.
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	authorID, err := userIDFromClaims(claims)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req PostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.postService.Create(r.Context(), types.Post{
		Title:       req.Title,
		Summary:     req.Summary,
		Content:     req.Content,
		AuthorID:    authorID,
		IsPublished: req.IsPublished,
	}, claims.Subject)
	if err != nil {
		if errors.Is(err, services.ErrSlugTaken) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create post")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// Update rewrites a post's content and publication state.
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parsePostID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req PostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.postService.Update(r.Context(), id, req.Title, req.Summary, req.Content, req.IsPublished, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update post")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// Delete removes a post.
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parsePostID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.postService.Delete(r.Context(), id, claims.Subject); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete post")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parsePostID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "postID"))
	if err != nil || id < 1 {
		return 0, errors.New("invalid post id")
	}
	return id, nil
}

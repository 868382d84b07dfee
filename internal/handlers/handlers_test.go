package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/startblog/apiserver/internal/events"
	"github.com/startblog/apiserver/internal/revocation"
	"github.com/startblog/apiserver/internal/services"
	"github.com/startblog/apiserver/internal/store"
	"github.com/startblog/apiserver/internal/token"
	"github.com/startblog/apiserver/types"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memUserRepo struct {
	users  map[int]types.User
	nextID int
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[int]types.User), nextID: 1}
}

func (r *memUserRepo) GetByID(ctx context.Context, id int) (types.User, error) {
	u, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (r *memUserRepo) GetByUsername(ctx context.Context, username string) (types.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *memUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	user.ID = r.nextID
	r.nextID++
	r.users[user.ID] = user
	return user, nil
}

func (r *memUserRepo) Update(ctx context.Context, user types.User) (types.User, error) {
	if _, ok := r.users[user.ID]; !ok {
		return types.User{}, store.ErrNotFound
	}
	r.users[user.ID] = user
	return user, nil
}

func (r *memUserRepo) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	u, ok := r.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.PasswordChangedAt = time.Now()
	r.users[id] = u
	return nil
}

func (r *memUserRepo) Delete(ctx context.Context, id int) error {
	if _, ok := r.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

type memPostRepo struct {
	posts  map[int]types.Post
	nextID int
}

func newMemPostRepo() *memPostRepo {
	return &memPostRepo{posts: make(map[int]types.Post), nextID: 1}
}

func (r *memPostRepo) List(ctx context.Context, offset, limit int, publishedOnly bool) ([]types.Post, int, error) {
	out := make([]types.Post, 0, len(r.posts))
	for _, p := range r.posts {
		if publishedOnly && !p.IsPublished {
			continue
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

func (r *memPostRepo) Get(ctx context.Context, id int) (types.Post, error) {
	p, ok := r.posts[id]
	if !ok {
		return types.Post{}, store.ErrNotFound
	}
	return p, nil
}

func (r *memPostRepo) GetBySlug(ctx context.Context, slug string) (types.Post, error) {
	for _, p := range r.posts {
		if p.Slug == slug && p.IsPublished {
			return p, nil
		}
	}
	return types.Post{}, store.ErrNotFound
}

func (r *memPostRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	for _, p := range r.posts {
		if p.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (r *memPostRepo) Create(ctx context.Context, post types.Post) (types.Post, error) {
	post.ID = r.nextID
	r.nextID++
	r.posts[post.ID] = post
	return post, nil
}

func (r *memPostRepo) Update(ctx context.Context, post types.Post) (types.Post, error) {
	if _, ok := r.posts[post.ID]; !ok {
		return types.Post{}, store.ErrNotFound
	}
	r.posts[post.ID] = post
	return post, nil
}

func (r *memPostRepo) Delete(ctx context.Context, id int) error {
	if _, ok := r.posts[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.posts, id)
	return nil
}

// testEnv wires the handlers onto an in-memory backend the same way the
// server does, minus the external processes.
type testEnv struct {
	router *chi.Mux
	users  *memUserRepo
	posts  *memPostRepo
	codec  *token.Codec
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	codec, err := token.NewCodec("handler-test-secret")
	require.NoError(t, err)

	users := newMemUserRepo()
	posts := newMemPostRepo()
	bus := events.NewBus(nil)

	authService := services.NewAuthService(users, codec, revocation.NewMemoryStore(), bus, 15*time.Minute, 7*24*time.Hour, 8)
	userService := services.NewUserService(users)
	postService := services.NewPostService(posts, bus)
	authorizer := services.NewAuthorizer(codec)

	router := chi.NewRouter()
	router.Get("/healthz", Healthz)
	router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			AuthRouter(r, authService, userService, authorizer)
		})
		r.Route("/posts", func(r chi.Router) {
			PublicPostRouter(r, postService)
		})
		r.Route("/admin/posts", func(r chi.Router) {
			AdminPostRouter(r, postService, RequireRole(authorizer, types.RoleAdmin))
		})
	})

	return &testEnv{router: router, users: users, posts: posts, codec: codec}
}

func (e *testEnv) addUser(t *testing.T, username, password string, role types.Role) types.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user, err := e.users.Create(context.Background(), types.User{
		Username:     username,
		Email:        username + "@example.com",
		Role:         role,
		PasswordHash: string(hash),
	})
	require.NoError(t, err)
	return user
}

func (e *testEnv) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T, username, password string) LoginResponse {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var parsed LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	return parsed
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

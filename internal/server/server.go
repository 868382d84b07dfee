package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/startblog/apiserver/config"
	"github.com/startblog/apiserver/internal/db"
	"github.com/startblog/apiserver/internal/events"
	"github.com/startblog/apiserver/internal/handlers"
	"github.com/startblog/apiserver/internal/mq"
	"github.com/startblog/apiserver/internal/revocation"
	"github.com/startblog/apiserver/internal/services"
	"github.com/startblog/apiserver/internal/storage"
	"github.com/startblog/apiserver/internal/store"
	"github.com/startblog/apiserver/internal/token"
	"github.com/startblog/apiserver/types"
)

// Server wraps the HTTP server, router and owned connections.
type Server struct {
	httpServer  *http.Server
	router      *chi.Mux
	db          *sql.DB
	redisClient *redis.Client
	broker      *mq.MQ
}

// New constructs a fully wired Server: database, revocation store,
// event bus with its listeners, services and routes.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	codec, err := token.NewCodec(cfg.Auth.JWTSecret)
	if err != nil {
		return nil, err
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	srv := &Server{db: dbConn}

	revocations, err := srv.buildRevocationStore(ctx, cfg)
	if err != nil {
		_ = srv.closeResources()
		return nil, err
	}

	bus := events.NewBus(logger)
	bus.Subscribe(events.Wildcard, events.LogListener(logger))
	if err := srv.attachForwarder(ctx, cfg, bus); err != nil {
		_ = srv.closeResources()
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	postRepo := store.NewPostRepository(dbConn)

	userService := services.NewUserService(userRepo)
	postService := services.NewPostService(postRepo, bus)
	authService := services.NewAuthService(
		userRepo,
		codec,
		revocations,
		bus,
		cfg.Auth.AccessTokenTTL,
		cfg.Auth.RefreshTokenTTL,
		cfg.Auth.MinPasswordLength,
	)
	authorizer := services.NewAuthorizer(codec)

	mediaStorage, err := srv.buildMediaStorage(ctx, cfg)
	if err != nil {
		_ = srv.closeResources()
		return nil, err
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/api", func(r chi.Router) {
		handlers.SiteRouter(r)
		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, authService, userService, authorizer)
		})
		r.Route("/posts", func(r chi.Router) {
			handlers.PublicPostRouter(r, postService)
		})
		r.Route("/admin/posts", func(r chi.Router) {
			handlers.AdminPostRouter(r, postService, handlers.RequireRole(authorizer, types.RoleAdmin))
		})
		if mediaStorage != nil {
			r.Route("/admin/media", func(r chi.Router) {
				handlers.MediaUploadRouter(r, mediaStorage, handlers.RequireRole(authorizer, types.RoleAdmin))
			})
			r.Route("/media", func(r chi.Router) {
				handlers.MediaServeRouter(r, mediaStorage)
			})
		}
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	srv.router = router
	srv.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return srv, nil
}

// Router exposes the chi router for route registration and tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	_ = s.closeResources()
	return s.httpServer.Close()
}

func (s *Server) buildRevocationStore(ctx context.Context, cfg config.Config) (revocation.Store, error) {
	switch cfg.Auth.RevocationBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis unreachable: %w", err)
		}
		s.redisClient = client
		return revocation.NewRedisStore(client), nil
	case "memory", "":
		return revocation.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown revocation backend %q", cfg.Auth.RevocationBackend)
	}
}

func (s *Server) attachForwarder(ctx context.Context, cfg config.Config, bus *events.Bus) error {
	var backend mq.Backend
	var err error

	switch cfg.Events.Backend {
	case "rabbitmq":
		backend, err = mq.NewRabbitBackend(cfg.RabbitMQ)
	case "pubsub":
		backend, err = mq.NewPubSubBackend(ctx, cfg.PubSub)
	case "none", "":
		return nil
	default:
		return fmt.Errorf("unknown events backend %q", cfg.Events.Backend)
	}
	if err != nil {
		return err
	}

	s.broker = mq.New(backend)
	bus.Subscribe(events.Wildcard, events.Forwarder(s.broker, cfg.Events.ForwardTimeout))
	return nil
}

func (s *Server) buildMediaStorage(ctx context.Context, cfg config.Config) (*storage.MediaStore, error) {
	var backend storage.Backend
	var err error

	switch cfg.Media.Backend {
	case "minio":
		backend, err = storage.NewMinioBackend(cfg.Minio)
	case "gcs":
		backend, err = storage.NewGCSBackend(ctx, cfg.GCS)
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown media backend %q", cfg.Media.Backend)
	}
	if err != nil {
		return nil, err
	}

	media := storage.NewMediaStore(backend)
	if err := media.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return media, nil
}

func (s *Server) closeResources() error {
	if s.broker != nil {
		_ = s.broker.Close()
	}
	if s.redisClient != nil {
		_ = s.redisClient.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return nil
}

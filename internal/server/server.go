package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/booklend/apiserver/config"
	"github.com/booklend/apiserver/internal/db"
	"github.com/booklend/apiserver/internal/handlers"
	"github.com/booklend/apiserver/internal/mq"
	"github.com/booklend/apiserver/internal/services"
	"github.com/booklend/apiserver/internal/storage"
	"github.com/booklend/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	broker     *mq.MQ
	logger     *zap.Logger
}

// New constructs a Server with its full dependency graph: store, services,
// optional event broker and cover storage, and the route table.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Auth.Secret == "" {
		return nil, errors.New("auth secret is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	broker, err := mq.FromConfig(ctx, cfg.Broker)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	covers, err := storage.FromConfig(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	if covers != nil {
		if err := covers.EnsureBucket(ctx); err != nil {
			_ = dbConn.Close()
			return nil, err
		}
	}

	authorRepo := store.NewAuthorRepository(dbConn)
	libraryRepo := store.NewLibraryRepository(dbConn)
	bookRepo := store.NewBookRepository(dbConn)
	userRepo := store.NewUserRepository(dbConn)
	rentalRepo := store.NewRentalRepository(dbConn)

	events := services.NewEventPublisher(broker, cfg.Broker.Channel, logger)

	authorService := services.NewAuthorService(authorRepo)
	libraryService := services.NewLibraryService(libraryRepo)
	bookService := services.NewBookService(bookRepo, covers)
	userService := services.NewUserService(userRepo, logger)
	rentalService := services.NewRentalService(rentalRepo, bookRepo, events, logger)

	authMiddleware := handlers.RequireAuth(cfg.Auth)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, userService, cfg.Auth)
	})
	router.Route("/authors", func(r chi.Router) {
		handlers.AuthorRouter(r, authorService, authMiddleware)
	})
	router.Route("/libraries", func(r chi.Router) {
		handlers.LibraryRouter(r, libraryService, authMiddleware)
	})
	router.Route("/books", func(r chi.Router) {
		handlers.BookRouter(r, bookService, authMiddleware)
	})
	router.Route("/users", func(r chi.Router) {
		handlers.UserRouter(r, userService, authMiddleware)
	})
	router.Route("/rentals", func(r chi.Router) {
		handlers.RentalRouter(r, rentalService, authMiddleware)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		broker:     broker,
		logger:     logger,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting server", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.broker != nil {
		_ = s.broker.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}

// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"log/slog"
	"time"

	_ "pictogram/docs" // swagger docs
	"pictogram/internal/cache"
	"pictogram/internal/config"
	"pictogram/internal/featureflags"
	"pictogram/internal/imaging"
	"pictogram/internal/mailer"
	"pictogram/internal/middleware"
	"pictogram/internal/models"
	"pictogram/internal/repository"
	"pictogram/internal/service"
	"pictogram/internal/session"
	"pictogram/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// BodyLimit caps request bodies; uploads are additionally checked against IMAGE_MAX_UPLOAD_SIZE_MB.
const BodyLimit = 16 * 1024 * 1024

// Deps are the already-initialized collaborators a Server is built from.
type Deps struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Blobs  storage.BlobStore
	Mailer mailer.Mailer
	Images *imaging.Pool
	// MediaDir is served under /media when blobs live on local disk.
	MediaDir string
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	store          *repository.Store
	sessions       *session.Issuer
	featureFlags   *featureflags.Manager
	mediaDir       string
	authService    *service.AuthService
	userService    *service.UserService
	graphService   *service.GraphService
	postService    *service.PostService
	storyService   *service.StoryService
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// The bootstrap layer establishes DB, Redis, blob storage and mail delivery.
func NewServerWithDeps(cfg *config.Config, deps Deps) (*Server, error) {
	store := repository.NewStore(deps.DB)
	flags := featureflags.NewManager(cfg.FeatureFlags)
	c := cache.New(deps.Redis, time.Duration(cfg.CacheTTLSeconds)*time.Second)

	mail := deps.Mailer
	if mail == nil {
		mail = mailer.NewLogMailer(middleware.Logger)
	}
	images := service.NewImageService(deps.Images, deps.Blobs, flags, cfg)

	server := &Server{
		config:         cfg,
		db:             deps.DB,
		redis:          deps.Redis,
		promMiddleware: middleware.InitMetrics("pictogram-api"),
		store:          store,
		sessions:       session.NewIssuer(cfg.JWTSecret, time.Duration(cfg.JWTExpiresInDays)*24*time.Hour, deps.Redis),
		featureFlags:   flags,
		mediaDir:       deps.MediaDir,
	}
	server.authService = service.NewAuthService(store.Users, mail, c, cfg.AppURL)
	server.userService = service.NewUserService(store, images, deps.Blobs, c)
	server.graphService = service.NewGraphService(store, deps.Blobs, c)
	server.postService = service.NewPostService(store, images, deps.Blobs, c)
	server.storyService = service.NewStoryService(store.Stories, images, c)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	app.Use(middleware.TracingMiddleware())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so browser clients still receive CORS
	// headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     "GET,POST,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they should be handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return models.RespondWithError(c, fiber.StatusTooManyRequests,
				fiber.NewError(fiber.StatusTooManyRequests, "Too many requests, please try again later."))
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	prefix := s.config.APIPrefix
	if prefix == "" {
		prefix = "/api"
	}
	api := app.Group(prefix)

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Pictogram Backend Metrics Dashboard",
	}))

	// Swagger documentation
	api.Get("/swagger/*", swagger.HandlerDefault)

	if s.mediaDir != "" {
		app.Static("/media", s.mediaDir, fiber.Static{MaxAge: 3600})
	}

	auth := s.AuthRequired()

	// User routes; specific paths are registered before the generic ones
	users := api.Group("/users")
	users.Get("/", s.GetUsers)
	users.Get("/id/:id", s.GetUserByID)
	users.Get("/username/:username", s.GetUserByUsername)
	users.Get("/search/:username", middleware.RateLimit(
		s.redis, 30, time.Minute, "search"), s.SearchUsers)
	users.Post("/signup", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	users.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)
	users.Post("/forgot-password", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "forgot_password"), s.ForgotPassword)
	users.Patch("/reset-password/:token", s.ResetPassword)

	users.Get("/authorization/current-user", auth, s.GetCurrentUser)
	users.Post("/follow/:username", auth, s.Follow)
	users.Post("/unfollow/:username", auth, s.Unfollow)
	users.Post("/upload", auth, middleware.RateLimit(
		s.redis, 10, 10*time.Minute, "upload_photo"), s.UploadPhoto)
	users.Post("/remove", auth, s.RemovePhoto)
	users.Post("/logout", auth, s.Logout)
	users.Patch("/update", auth, s.UpdateMe)
	users.Patch("/change-email", auth, s.ChangeEmail)
	users.Patch("/change-password", auth, s.ChangePassword)
	users.Get("/notifications", auth, s.GetNotifications)
	users.Patch("/notifications/seen", auth, s.MarkNotificationsSeen)
	users.Delete("/deactivate", auth, s.DeactivateMe)
	users.Delete("/delete", auth, s.DeleteMe)

	// Post routes
	posts := api.Group("/posts")
	posts.Get("/", s.GetPosts)
	posts.Post("/upload", auth, middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "create_post"), s.CreatePost)
	posts.Post("/like/:id", auth, s.LikePost)
	posts.Post("/update/:id", auth, s.UpdatePost)
	posts.Delete("/delete/:id", auth, s.DeletePost)
	posts.Post("/comments/:id", auth, middleware.RateLimit(
		s.redis, 20, time.Minute, "create_comment"), s.CreateComment)
	posts.Delete("/comments/:id", auth, s.DeleteComment)
	// Generic /:id route must be last
	posts.Get("/:id", s.GetPost)

	// Story routes
	stories := api.Group("/stories")
	stories.Get("/", s.GetStories)
	stories.Post("/upload", auth, middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "create_story"), s.CreateStory)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	// Redis only backs caching, revocation and rate limits, so it does not gate readiness.
	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"version": "1.0.0",
		"status":  overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AuthRequired returns the authentication middleware. The credential is read
// from the Authorization header, falling back to the session cookie. Inactive
// users still authenticate so they can delete or reactivate their account.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := session.BearerToken(c)
		if token == "" {
			token = c.Cookies(session.CookieName)
		}

		claims, err := s.sessions.Verify(c.UserContext(), token)
		if err != nil {
			return err
		}

		user, err := s.store.Users.GetByID(c.UserContext(), claims.UserID)
		if err != nil {
			if models.IsCode(err, models.CodeNotFound) {
				return models.NewUnauthorizedError(session.MsgNotLoggedIn)
			}
			return err
		}

		c.Locals(localUser, user)
		c.Locals(localClaims, claims)
		middleware.WithUserID(c, user.ID)

		return c.Next()
	}
}

// ErrorHandler is the single translator from handler errors to the error
// envelope. Store duplicate-key errors become conflicts.
func ErrorHandler(c *fiber.Ctx, err error) error {
	err = repository.TranslateError(err)
	status := models.StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "unhandled error",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
		if !models.IsCode(err, models.CodeInternal) {
			err = models.NewInternalError(err)
		}
	}
	return models.RespondWithError(c, status, err)
}

// NewApp builds the Fiber app with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Pictogram API",
		BodyLimit:    BodyLimit,
		ErrorHandler: ErrorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start starts the server
func (s *Server) Start() error {
	s.app = s.NewApp()

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Warn("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if cerr := sqlDB.Close(); cerr != nil {
				middleware.Logger.Warn("error closing sql DB", slog.String("error", cerr.Error()))
			}
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Warn("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}

package routes

import (
	"context"
	"errors"
	"time"

	"github.com/acadbuddy/acadbuddy-api/internal/config"
	"github.com/acadbuddy/acadbuddy-api/internal/handlers"
	"github.com/acadbuddy/acadbuddy-api/internal/metrics"
	"github.com/acadbuddy/acadbuddy-api/internal/middleware"
	"github.com/acadbuddy/acadbuddy-api/internal/repository"
	"github.com/acadbuddy/acadbuddy-api/internal/services"
	chatws "github.com/acadbuddy/acadbuddy-api/internal/websocket"
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const studyAssistantPath = "/functions/v1/study-assistant"

// Dependencies are the long lived resources the HTTP surface is built on.
type Dependencies struct {
	Config    *config.Config
	DB        *pgxpool.Pool
	Hub       *chatws.Hub
	Publisher services.MessagePublisher
	Location  *time.Location
	Log       *zap.Logger
}

// RegisterRoutes wires repositories, services and handlers onto app. ctx
// bounds background work started here.
func RegisterRoutes(ctx context.Context, app *fiber.App, deps Dependencies) error {
	if deps.Config == nil || deps.DB == nil || deps.Hub == nil {
		return errors.New("routes: config, database and hub are required")
	}
	cfg := deps.Config
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}

	userRepo := repository.NewUserRepository(deps.DB)
	profileRepo := repository.NewProfileRepository(deps.DB)
	messageRepo := repository.NewMessageRepository(deps.DB)
	sessionRepo := repository.NewSessionRepository(deps.DB)
	availabilityRepo := repository.NewAvailabilityRepository(deps.DB)
	contactRepo := repository.NewContactRepository(deps.DB)

	var storageService services.StorageService
	if cfg.StorageEnabled() {
		storageService = services.NewSupabaseStorageService(cfg.SupabaseURL, cfg.SupabaseBucket, cfg.SupabaseServiceKey)
	}

	authService := services.NewAuthService(deps.DB, userRepo, profileRepo, cfg.JWTSecret)
	profileService := services.NewProfileService(profileRepo, storageService, log)
	chatService := services.NewChatService(messageRepo, profileRepo, deps.Publisher, log, deps.Location)
	sessionService := services.NewSessionService(sessionRepo, profileRepo, deps.Location)
	availabilityService := services.NewAvailabilityService(availabilityRepo)
	mentorService := services.NewMentorService(profileRepo, availabilityRepo, contactRepo)
	dashboardService := services.NewDashboardService(sessionService, sessionRepo, profileRepo, contactRepo, availabilityRepo)
	assistantService := services.NewAssistantService(services.AssistantConfig{
		GatewayURL:  cfg.AIGatewayURL,
		APIKey:      cfg.AIAPIKey,
		Model:       cfg.AIModel,
		MaxFailures: cfg.CBMaxFailures,
		OpenTimeout: time.Duration(cfg.CBTimeoutSec) * time.Second,
	}, log)

	authHandler := handlers.NewAuthHandler(authService, log)
	profileHandler := handlers.NewProfileHandler(profileService, log)
	chatHandler := handlers.NewChatHandler(chatService, deps.Hub, cfg.JWTSecret, deps.Location, log)
	sessionHandler := handlers.NewSessionHandler(sessionService)
	mentorHandler := handlers.NewMentorHandler(mentorService, profileService, authService, log)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService, availabilityService, log)
	assistantHandler := handlers.NewAssistantHandler(assistantService, log)

	assistantLimiter := middleware.NewIPRateLimiter(cfg.AssistantRatePerMin, 5, log)
	go assistantLimiter.Cleanup(ctx, 5*time.Minute)

	if cfg.EnableMetrics {
		metrics.Init()
		app.Get("/metrics", metrics.Handler())
	}

	assistantCORS := middleware.StrictCORS(middleware.OriginPolicy{
		Origins:  cfg.AllowedOrigins,
		Suffixes: cfg.AllowedSuffixes,
	})
	app.Use(studyAssistantPath, assistantCORS)
	app.Post(studyAssistantPath, assistantLimiter.Handler(), assistantHandler.Chat)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/signup", authHandler.Signup)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	api.Use("/v1/ws", chatHandler.WebSocketAuth)
	api.Get("/v1/ws", websocket.New(chatHandler.HandleWebSocket))

	authProtected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	profile := authProtected.Group("/profile")
	profile.Get("", profileHandler.GetProfile)
	profile.Put("", profileHandler.UpdateProfile)
	profile.Post("/avatar", profileHandler.UploadAvatar)

	mentors := authProtected.Group("/mentors")
	mentors.Get("", mentorHandler.ListMentors)
	mentors.Post("/apply", mentorHandler.Apply)
	mentors.Get("/:id", mentorHandler.GetMentor)
	mentors.Post("/:id/contact", mentorHandler.ContactMentor)

	sessions := authProtected.Group("/sessions")
	sessions.Post("", sessionHandler.BookSession)
	sessions.Get("", sessionHandler.ListSessions)
	sessions.Get("/:id", sessionHandler.GetSession)
	sessions.Put("/:id/status", sessionHandler.UpdateStatus)

	dashboard := authProtected.Group("/dashboard")
	dashboard.Get("/student", dashboardHandler.Student)
	dashboard.Get("/mentor", dashboardHandler.Mentor)

	availability := authProtected.Group("/availability")
	availability.Get("", dashboardHandler.ListAvailability)
	availability.Post("/toggle", dashboardHandler.ToggleAvailability)

	conversations := authProtected.Group("/conversations")
	conversations.Get("", chatHandler.ListConversations)
	conversations.Get("/:partnerId/messages", chatHandler.OpenThread)

	messages := authProtected.Group("/messages")
	messages.Post("", chatHandler.SendMessage)
	messages.Post("/read", chatHandler.MarkRead)

	assistant := authProtected.Group("/assistant")
	assistant.Post("/chat", assistantLimiter.Handler(), assistantHandler.Chat)

	return nil
}

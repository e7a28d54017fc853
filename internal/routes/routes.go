package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/mapstorycreator/mapstory-backend/internal/config"
	"github.com/mapstorycreator/mapstory-backend/internal/handlers"
	"github.com/mapstorycreator/mapstory-backend/internal/middleware"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	mapHandler *handlers.MapHandler,
	markerHandler *handlers.MarkerHandler,
	healthHandler *handlers.HealthHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	// Users — register/login get a stricter limit: 10 req/min per IP
	users := api.Group("/users")
	users.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	users.Post("/register", authHandler.Register)
	users.Post("/login", authHandler.Login)
	users.Post("/refresh", authHandler.Refresh)

	api.Post("/users/logout", middleware.JWTProtected(cfg), authHandler.Logout)
	api.Delete("/users/account", middleware.JWTProtected(cfg), authHandler.DeleteAccount)
	api.Get("/users", authHandler.ListUsers)
	api.Get("/users/:id", authHandler.GetUser)

	// Maps — community listing and single-map reads are public; the single
	// map route takes an optional token so owners can open their private
	// maps and logged-in visitors get their like state.
	api.Get("/maps", mapHandler.List)
	api.Get("/maps/my-maps", middleware.JWTProtected(cfg), mapHandler.MyMaps)
	api.Get("/maps/:id", middleware.OptionalJWT(cfg), mapHandler.Get)
	api.Post("/maps", middleware.JWTProtected(cfg), mapHandler.Create)
	api.Put("/maps/:id", middleware.JWTProtected(cfg), mapHandler.Update)
	api.Delete("/maps/:id", middleware.JWTProtected(cfg), mapHandler.Delete)

	// Like protocol
	api.Post("/maps/:id/like", middleware.JWTProtected(cfg), mapHandler.Like)
	api.Delete("/maps/:id/like", middleware.JWTProtected(cfg), mapHandler.Unlike)

	// Markers
	api.Get("/markers", markerHandler.List)
	api.Get("/markers/:id", markerHandler.Get)
	api.Post("/markers", middleware.JWTProtected(cfg), markerHandler.Create)
	api.Put("/markers/:id", middleware.JWTProtected(cfg), markerHandler.Update)
	api.Delete("/markers/:id", middleware.JWTProtected(cfg), markerHandler.Delete)
}

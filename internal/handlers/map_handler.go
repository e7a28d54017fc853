package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/mapstorycreator/mapstory-backend/internal/auth"
	"github.com/mapstorycreator/mapstory-backend/internal/dto"
	"github.com/mapstorycreator/mapstory-backend/internal/models"
	"github.com/mapstorycreator/mapstory-backend/internal/services"
)

type MapHandler struct {
	mapService *services.MapService
}

func NewMapHandler(mapService *services.MapService) *MapHandler {
	return &MapHandler{mapService: mapService}
}

// List serves the community view: public maps only, with optional search,
// sorting, and pagination via query params.
func (h *MapHandler) List(c *fiber.Ctx) error {
	maps, err := h.mapService.List(services.ListMapsOptions{
		Search: c.Query("search"),
		SortBy: c.Query("sort_by"),
		Order:  c.Query("order"),
		Limit:  c.QueryInt("limit"),
		Offset: c.QueryInt("offset"),
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}
	return c.JSON(maps)
}

// MyMaps lists the authenticated user's maps regardless of visibility.
func (h *MapHandler) MyMaps(c *fiber.Ctx) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	maps, err := h.mapService.List(services.ListMapsOptions{
		OwnerID: userID,
		Search:  c.Query("search"),
		SortBy:  c.Query("sort_by"),
		Order:   c.Query("order"),
		Limit:   c.QueryInt("limit"),
		Offset:  c.QueryInt("offset"),
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}
	return c.JSON(maps)
}

// Get fetches a single map with its markers. Private maps are only visible
// to their owner. A successful fetch counts one view.
func (h *MapHandler) Get(c *fiber.Ctx) error {
	mapID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid map id",
		})
	}

	m, err := h.mapService.GetByID(mapID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}
	if m == nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "Map not found",
		})
	}

	viewerID := auth.OptionalUserID(c)
	if !m.IsPublic && viewerID != m.UserID {
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: true, Message: "Access denied to private map",
		})
	}

	// One view per successful fetch. The fetch already succeeded, so a
	// counter failure is logged, not surfaced.
	if views, err := h.mapService.IncrementViews(mapID); err != nil {
		slog.Error("failed to increment views", "map_id", mapID, "error", err)
	} else {
		m.Views = views
	}

	return c.JSON(dto.MapDetailResponse{
		Map:     *m,
		IsLiked: h.mapService.HasUserLiked(mapID, viewerID),
	})
}

func (h *MapHandler) Create(c *fiber.Ctx) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	var req dto.CreateMapRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	m, err := h.mapService.Create(userID, &req)
	if err != nil {
		if errors.Is(err, services.ErrMissingMapFields) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(m)
}

func (h *MapHandler) Update(c *fiber.Ctx) error {
	m, errResp := h.ownedMap(c)
	if errResp != nil {
		return errResp(c)
	}

	var req dto.UpdateMapRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	updated, err := h.mapService.Update(m.ID, &req)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}
	return c.JSON(updated)
}

func (h *MapHandler) Delete(c *fiber.Ctx) error {
	m, errResp := h.ownedMap(c)
	if errResp != nil {
		return errResp(c)
	}

	if err := h.mapService.Delete(m.ID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}
	return c.JSON(fiber.Map{"message": "Map deleted successfully"})
}

func (h *MapHandler) Like(c *fiber.Ctx) error {
	m, userID, errResp := h.likeableMap(c)
	if errResp != nil {
		return errResp(c)
	}

	likes, err := h.mapService.Like(m.ID, userID)
	if err != nil {
		if errors.Is(err, services.ErrAlreadyLiked) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		slog.Error("like failed", "map_id", m.ID, "user_id", userID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}

	return c.JSON(dto.LikeResponse{Likes: likes, IsLiked: true})
}

func (h *MapHandler) Unlike(c *fiber.Ctx) error {
	m, userID, errResp := h.likeableMap(c)
	if errResp != nil {
		return errResp(c)
	}

	likes, err := h.mapService.Unlike(m.ID, userID)
	if err != nil {
		if errors.Is(err, services.ErrNotLiked) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		slog.Error("unlike failed", "map_id", m.ID, "user_id", userID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}

	return c.JSON(dto.LikeResponse{Likes: likes, IsLiked: false})
}

// ownedMap resolves the :id param to a map owned by the caller, or returns
// the error response to send (invalid id, 404, 403).
func (h *MapHandler) ownedMap(c *fiber.Ctx) (*models.Map, func(*fiber.Ctx) error) {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return nil, respond(fiber.StatusUnauthorized, "Unauthorized")
	}

	mapID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, respond(fiber.StatusBadRequest, "Invalid map id")
	}

	m, err := h.mapService.GetByID(mapID)
	if err != nil {
		return nil, respond(fiber.StatusInternalServerError, "Internal server error")
	}
	if m == nil {
		return nil, respond(fiber.StatusNotFound, "Map not found")
	}
	if m.UserID != userID {
		return nil, respond(fiber.StatusForbidden, "You are not authorized to modify this map")
	}
	return m, nil
}

// likeableMap resolves the :id param to a map the caller may like: any
// public map, or the caller's own private map.
func (h *MapHandler) likeableMap(c *fiber.Ctx) (*models.Map, uuid.UUID, func(*fiber.Ctx) error) {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return nil, uuid.Nil, respond(fiber.StatusUnauthorized, "Unauthorized")
	}

	mapID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, uuid.Nil, respond(fiber.StatusBadRequest, "Invalid map id")
	}

	m, err := h.mapService.GetByID(mapID)
	if err != nil {
		return nil, uuid.Nil, respond(fiber.StatusInternalServerError, "Internal server error")
	}
	if m == nil {
		return nil, uuid.Nil, respond(fiber.StatusNotFound, "Map not found")
	}
	if !m.IsPublic && m.UserID != userID {
		return nil, uuid.Nil, respond(fiber.StatusForbidden, "Access denied to private map")
	}
	return m, userID, nil
}

func respond(status int, message string) func(*fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: message})
	}
}

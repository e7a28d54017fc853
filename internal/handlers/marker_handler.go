package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/mapstorycreator/mapstory-backend/internal/auth"
	"github.com/mapstorycreator/mapstory-backend/internal/dto"
	"github.com/mapstorycreator/mapstory-backend/internal/models"
	"github.com/mapstorycreator/mapstory-backend/internal/services"
)

type MarkerHandler struct {
	markerService *services.MarkerService
	mapService    *services.MapService
}

func NewMarkerHandler(markerService *services.MarkerService, mapService *services.MapService) *MarkerHandler {
	return &MarkerHandler{markerService: markerService, mapService: mapService}
}

// List returns the markers of one map in display order.
func (h *MarkerHandler) List(c *fiber.Ctx) error {
	mapID, err := uuid.Parse(c.Query("map_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "map_id query parameter is required",
		})
	}

	markers, err := h.markerService.ListByMap(mapID, c.Query("search"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}
	return c.JSON(markers)
}

func (h *MarkerHandler) Get(c *fiber.Ctx) error {
	markerID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid marker id",
		})
	}

	m, err := h.markerService.GetByID(markerID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}
	if m == nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "Marker not found",
		})
	}
	return c.JSON(m)
}

func (h *MarkerHandler) Create(c *fiber.Ctx) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	var req dto.CreateMarkerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	if errResp := h.checkMapOwnership(req.MapID, userID); errResp != nil {
		return errResp(c)
	}

	m, err := h.markerService.Create(&req)
	if err != nil {
		if errors.Is(err, services.ErrMissingMarkerFields) {
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

func (h *MarkerHandler) Update(c *fiber.Ctx) error {
	marker, errResp := h.ownedMarker(c)
	if errResp != nil {
		return errResp(c)
	}

	var req dto.UpdateMarkerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	updated, err := h.markerService.Update(marker.ID, &req)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}
	return c.JSON(updated)
}

func (h *MarkerHandler) Delete(c *fiber.Ctx) error {
	marker, errResp := h.ownedMarker(c)
	if errResp != nil {
		return errResp(c)
	}

	if err := h.markerService.Delete(marker.ID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}
	return c.JSON(fiber.Map{"message": "Marker deleted successfully"})
}

// ownedMarker resolves the :id param to a marker whose parent map is owned
// by the caller.
func (h *MarkerHandler) ownedMarker(c *fiber.Ctx) (*models.Marker, func(*fiber.Ctx) error) {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return nil, respond(fiber.StatusUnauthorized, "Unauthorized")
	}

	markerID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, respond(fiber.StatusBadRequest, "Invalid marker id")
	}

	marker, err := h.markerService.GetByID(markerID)
	if err != nil {
		return nil, respond(fiber.StatusInternalServerError, "Internal server error")
	}
	if marker == nil {
		return nil, respond(fiber.StatusNotFound, "Marker not found")
	}

	if errResp := h.checkMapOwnership(marker.MapID, userID); errResp != nil {
		return nil, errResp
	}
	return marker, nil
}

func (h *MarkerHandler) checkMapOwnership(mapID, userID uuid.UUID) func(*fiber.Ctx) error {
	m, err := h.mapService.GetByID(mapID)
	if err != nil {
		return respond(fiber.StatusInternalServerError, "Internal server error")
	}
	if m == nil {
		return respond(fiber.StatusNotFound, "Map not found")
	}
	if m.UserID != userID {
		return respond(fiber.StatusForbidden, "You are not authorized to modify this map's markers")
	}
	return nil
}

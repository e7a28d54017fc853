package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mapstorycreator/mapstory-backend/internal/dto"
	"github.com/mapstorycreator/mapstory-backend/internal/models"
	"gorm.io/gorm"
)

var ErrMissingMarkerFields = errors.New("map id, name, and coordinates are required")

// MarkerService owns reads and writes to the markers table.
type MarkerService struct {
	db *gorm.DB
}

func NewMarkerService(db *gorm.DB) *MarkerService {
	return &MarkerService{db: db}
}

func (s *MarkerService) Create(req *dto.CreateMarkerRequest) (*models.Marker, error) {
	if req.MapID == uuid.Nil || req.Name == "" || req.Latitude == nil || req.Longitude == nil {
		return nil, ErrMissingMarkerFields
	}

	orderIndex := 0
	if req.OrderIndex != nil {
		orderIndex = *req.OrderIndex
	}

	m := &models.Marker{
		MapID:       req.MapID,
		Name:        req.Name,
		Description: req.Description,
		Latitude:    *req.Latitude,
		Longitude:   *req.Longitude,
		ImageURL:    req.ImageURL,
		OrderIndex:  orderIndex,
	}

	if err := s.db.Create(m).Error; err != nil {
		return nil, fmt.Errorf("failed to create marker: %w", err)
	}
	return m, nil
}

// ListByMap returns the map's markers in display order, optionally narrowed
// by a case-insensitive substring search over name and description.
func (s *MarkerService) ListByMap(mapID uuid.UUID, search string) ([]models.Marker, error) {
	query := s.db.Where("map_id = ?", mapID)

	if search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	var markers []models.Marker
	if err := query.Order("order_index ASC, created_at ASC").Find(&markers).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch markers: %w", err)
	}
	return markers, nil
}

// GetByID returns (nil, nil) when no such marker exists.
func (s *MarkerService) GetByID(markerID uuid.UUID) (*models.Marker, error) {
	var m models.Marker
	err := s.db.First(&m, "id = ?", markerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch marker: %w", err)
	}
	return &m, nil
}

// Update applies a sparse patch; an empty patch is a read-through.
func (s *MarkerService) Update(markerID uuid.UUID, req *dto.UpdateMarkerRequest) (*models.Marker, error) {
	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Latitude != nil {
		updates["latitude"] = *req.Latitude
	}
	if req.Longitude != nil {
		updates["longitude"] = *req.Longitude
	}
	if req.ImageURL != nil {
		updates["image_url"] = *req.ImageURL
	}
	if req.OrderIndex != nil {
		updates["order_index"] = *req.OrderIndex
	}

	if len(updates) > 0 {
		if err := s.db.Model(&models.Marker{}).Where("id = ?", markerID).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update marker: %w", err)
		}
	}
	return s.GetByID(markerID)
}

// Delete is idempotent: deleting a non-existent id is not an error.
func (s *MarkerService) Delete(markerID uuid.UUID) error {
	return s.db.Where("id = ?", markerID).Delete(&models.Marker{}).Error
}

package services

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/mapstorycreator/mapstory-backend/internal/auth"
	"github.com/mapstorycreator/mapstory-backend/internal/dto"
	"github.com/mapstorycreator/mapstory-backend/internal/models"
	"gorm.io/gorm"
)

var (
	ErrMissingMapFields = errors.New("title, center coordinates, and zoom level are required")
	ErrAlreadyLiked     = errors.New("user has already liked this map")
	ErrNotLiked         = errors.New("user has not liked this map")
)

// likesFloorDecrement never drives the counter negative, even if the cached
// value has drifted from the user_likes rows.
var likesFloorDecrement = gorm.Expr("CASE WHEN likes > 0 THEN likes - 1 ELSE 0 END")

// sortColumns is an allow-list: sort and order arrive as identifiers, not
// bind parameters, so anything outside it falls back to created_at.
var sortColumns = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"title":      true,
}

// MapService owns all reads and writes to the maps table and its derived
// counters. Views and likes are mutated only here.
type MapService struct {
	db *gorm.DB
}

func NewMapService(db *gorm.DB) *MapService {
	return &MapService{db: db}
}

// ListMapsOptions narrows and orders a map listing. A zero OwnerID means
// "community view": public maps only.
type ListMapsOptions struct {
	OwnerID uuid.UUID
	Search  string
	SortBy  string
	Order   string
	Limit   int
	Offset  int
}

// MapWithAuthor is a map row joined with its author's username.
type MapWithAuthor struct {
	models.Map
	AuthorName string `json:"author_name"`
}

func (s *MapService) Create(userID uuid.UUID, req *dto.CreateMapRequest) (*models.Map, error) {
	if req.Title == "" || req.CenterLat == nil || req.CenterLng == nil || req.ZoomLevel == nil {
		return nil, ErrMissingMapFields
	}

	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	m := &models.Map{
		UserID:       userID,
		Title:        req.Title,
		Description:  req.Description,
		IsPublic:     isPublic,
		CenterLat:    *req.CenterLat,
		CenterLng:    *req.CenterLng,
		ZoomLevel:    *req.ZoomLevel,
		ThumbnailURL: req.ThumbnailURL,
	}

	if err := s.db.Create(m).Error; err != nil {
		return nil, fmt.Errorf("failed to create map: %w", err)
	}
	return m, nil
}

func (s *MapService) List(opts ListMapsOptions) ([]MapWithAuthor, error) {
	query := s.db.Model(&models.Map{}).
		Select("maps.*, users.username AS author_name").
		Joins("LEFT JOIN users ON users.id = maps.user_id")

	if opts.OwnerID != uuid.Nil {
		query = query.Scopes(auth.OwnedBy(opts.OwnerID))
	} else {
		query = query.Scopes(auth.PublicOnly())
	}

	if opts.Search != "" {
		pattern := "%" + strings.ToLower(opts.Search) + "%"
		query = query.Where("LOWER(maps.title) LIKE ? OR LOWER(maps.description) LIKE ?", pattern, pattern)
	}

	sortBy := opts.SortBy
	if !sortColumns[sortBy] {
		sortBy = "created_at"
	}
	order := strings.ToUpper(opts.Order)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	query = query.Order("maps." + sortBy + " " + order)

	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		query = query.Offset(opts.Offset)
	}

	var maps []MapWithAuthor
	if err := query.Scan(&maps).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch maps: %w", err)
	}
	return maps, nil
}

// GetByID returns the map with its markers eagerly loaded in display order,
// or (nil, nil) when no such map exists. Absence is an outcome, not an error.
func (s *MapService) GetByID(mapID uuid.UUID) (*models.Map, error) {
	var m models.Map
	err := s.db.
		Preload("Markers", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC, created_at ASC")
		}).
		First(&m, "id = ?", mapID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch map: %w", err)
	}
	return &m, nil
}

// Update applies a sparse patch over the patchable columns and refreshes
// updated_at. An empty patch is a read-through. Counters are not reachable
// from this path.
func (s *MapService) Update(mapID uuid.UUID, req *dto.UpdateMapRequest) (*models.Map, error) {
	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.IsPublic != nil {
		updates["is_public"] = *req.IsPublic
	}
	if req.CenterLat != nil {
		updates["center_lat"] = *req.CenterLat
	}
	if req.CenterLng != nil {
		updates["center_lng"] = *req.CenterLng
	}
	if req.ZoomLevel != nil {
		updates["zoom_level"] = *req.ZoomLevel
	}
	if req.ThumbnailURL != nil {
		updates["thumbnail_url"] = *req.ThumbnailURL
	}

	if len(updates) > 0 {
		if err := s.db.Model(&models.Map{}).Where("id = ?", mapID).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update map: %w", err)
		}
	}
	return s.GetByID(mapID)
}

// Delete removes the map together with its markers and like rows. Deleting a
// non-existent id is not an error.
func (s *MapService) Delete(mapID uuid.UUID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("map_id = ?", mapID).Delete(&models.Marker{}).Error; err != nil {
			return err
		}
		if err := tx.Where("map_id = ?", mapID).Delete(&models.UserLike{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", mapID).Delete(&models.Map{}).Error
	})
}

// IncrementViews adds one view unconditionally and returns the new count.
// View counting is per request, not deduplicated per viewer.
func (s *MapService) IncrementViews(mapID uuid.UUID) (int, error) {
	res := s.db.Model(&models.Map{}).Where("id = ?", mapID).
		Update("views", gorm.Expr("views + 1"))
	if res.Error != nil {
		return 0, fmt.Errorf("failed to increment views: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}

	var m models.Map
	if err := s.db.Select("views").First(&m, "id = ?", mapID).Error; err != nil {
		return 0, fmt.Errorf("failed to read view count: %w", err)
	}
	return m.Views, nil
}

// Like inserts the user's like row and increments the cached counter in one
// transaction, returning the post-increment count. A second like by the same
// user is rejected with ErrAlreadyLiked, including the case where a
// concurrent call wins the race: the unique index on (user_id, map_id) makes
// the loser's insert fail, the transaction rolls back, and the counter stays
// consistent with exactly one successful like.
func (s *MapService) Like(mapID, userID uuid.UUID) (int, error) {
	var existing models.UserLike
	err := s.db.Where("user_id = ? AND map_id = ?", userID, mapID).First(&existing).Error
	if err == nil {
		return 0, ErrAlreadyLiked
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("failed to check existing like: %w", err)
	}

	var likes int
	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.UserLike{UserID: userID, MapID: mapID}).Error; err != nil {
			return err
		}

		res := tx.Model(&models.Map{}).Where("id = ?", mapID).
			Update("likes", gorm.Expr("likes + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		var m models.Map
		if err := tx.Select("likes").First(&m, "id = ?", mapID).Error; err != nil {
			return err
		}
		likes = m.Likes
		return nil
	})
	if txErr != nil {
		if errors.Is(txErr, gorm.ErrDuplicatedKey) {
			return 0, ErrAlreadyLiked
		}
		return 0, fmt.Errorf("like transaction failed: %w", txErr)
	}
	return likes, nil
}

// Unlike is the symmetric operation: it deletes the like row and decrements
// the counter, floored at zero, in one transaction.
func (s *MapService) Unlike(mapID, userID uuid.UUID) (int, error) {
	var existing models.UserLike
	err := s.db.Where("user_id = ? AND map_id = ?", userID, mapID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrNotLiked
	}
	if err != nil {
		return 0, fmt.Errorf("failed to check existing like: %w", err)
	}

	var likes int
	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND map_id = ?", userID, mapID).Delete(&models.UserLike{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Raced with another unlike; nothing to undo.
			return ErrNotLiked
		}

		if err := tx.Model(&models.Map{}).Where("id = ?", mapID).
			Update("likes", likesFloorDecrement).Error; err != nil {
			return err
		}

		var m models.Map
		if err := tx.Select("likes").First(&m, "id = ?", mapID).Error; err != nil {
			return err
		}
		likes = m.Likes
		return nil
	})
	if txErr != nil {
		if errors.Is(txErr, ErrNotLiked) {
			return 0, ErrNotLiked
		}
		return 0, fmt.Errorf("unlike transaction failed: %w", txErr)
	}
	return likes, nil
}

// HasUserLiked reports whether the user has liked the map. Anonymous callers
// (uuid.Nil) and read failures degrade to false rather than erroring; liking
// status is meaningless for anonymous viewers.
func (s *MapService) HasUserLiked(mapID, userID uuid.UUID) bool {
	if userID == uuid.Nil {
		return false
	}

	var count int64
	if err := s.db.Model(&models.UserLike{}).
		Where("user_id = ? AND map_id = ?", userID, mapID).
		Count(&count).Error; err != nil {
		slog.Error("failed to check like status", "map_id", mapID, "user_id", userID, "error", err)
		return false
	}
	return count > 0
}

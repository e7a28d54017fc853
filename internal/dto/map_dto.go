package dto

import (
	"github.com/mapstorycreator/mapstory-backend/internal/models"
)

// CreateMapRequest uses pointers for the required numeric fields so that an
// absent field is distinguishable from a legitimate zero (the equator exists).
type CreateMapRequest struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	IsPublic     *bool    `json:"is_public"`
	CenterLat    *float64 `json:"center_lat"`
	CenterLng    *float64 `json:"center_lng"`
	ZoomLevel    *int     `json:"zoom_level"`
	ThumbnailURL string   `json:"thumbnail_url"`
}

// UpdateMapRequest is a sparse patch: only non-nil fields are applied.
// The counters (views, likes) are deliberately not representable here.
type UpdateMapRequest struct {
	Title        *string  `json:"title"`
	Description  *string  `json:"description"`
	IsPublic     *bool    `json:"is_public"`
	CenterLat    *float64 `json:"center_lat"`
	CenterLng    *float64 `json:"center_lng"`
	ZoomLevel    *int     `json:"zoom_level"`
	ThumbnailURL *string  `json:"thumbnail_url"`
}

// MapDetailResponse is a single map with its markers and the caller's like state.
type MapDetailResponse struct {
	models.Map
	IsLiked bool `json:"isLiked"`
}

// LikeResponse is the outcome of a like/unlike call.
type LikeResponse struct {
	Likes   int  `json:"likes"`
	IsLiked bool `json:"isLiked"`
}

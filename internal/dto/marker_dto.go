package dto

import "github.com/google/uuid"

type CreateMarkerRequest struct {
	MapID       uuid.UUID `json:"map_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Latitude    *float64  `json:"latitude"`
	Longitude   *float64  `json:"longitude"`
	ImageURL    string    `json:"image_url"`
	OrderIndex  *int      `json:"order_index"`
}

// UpdateMarkerRequest is a sparse patch: only non-nil fields are applied.
type UpdateMarkerRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	ImageURL    *string  `json:"image_url"`
	OrderIndex  *int     `json:"order_index"`
}

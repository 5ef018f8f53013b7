package handler

import "donorcal/internal/location"

type ListResponse struct {
	Locations []location.Location `json:"locations"`
	Total     int                 `json:"total"`
}

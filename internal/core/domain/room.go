package domain

import "time"

// RoomInfo is a point-in-time snapshot used by listing endpoints.
type RoomInfo struct {
	Name      RoomName   `json:"name"`
	UserCount int        `json:"user_count"`
	Users     []Identity `json:"users"`
	CreatedAt time.Time  `json:"created_at"`
}

package api

import "time"

// ErrorResponse is the JSON error view.
type ErrorResponse struct {
	Error     string `json:"error" yaml:"error"`
	Code      string `json:"code,omitempty" yaml:"code,omitempty"`
	ErrorCode int    `json:"error_code,omitempty" yaml:"error_code,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string `json:"status" yaml:"status"`
}

// ImageResponse describes one stored image without its payload.
type ImageResponse struct {
	ID         int64     `json:"id" yaml:"id"`
	OwnerID    int64     `json:"owner_id" yaml:"owner_id"`
	CreatorID  int64     `json:"creator_id" yaml:"creator_id"`
	Visibility string    `json:"visibility" yaml:"visibility"`
	MediaType  string    `json:"media_type" yaml:"media_type"`
	SizeBytes  int64     `json:"size_bytes" yaml:"size_bytes"`
	Label      string    `json:"label,omitempty" yaml:"label,omitempty"`
	Width      int       `json:"width" yaml:"width"`
	Height     int       `json:"height" yaml:"height"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
}

// ImageUploadRequest carries the form fields of POST /image.
type ImageUploadRequest struct {
	OwnerID   int64
	CreatorID int64
	Context   string
	Label     string
	Filename  string
}

// UserResponse describes one principal.
type UserResponse struct {
	ID             int64     `json:"id" yaml:"id"`
	Username       string    `json:"username" yaml:"username"`
	Role           string    `json:"role" yaml:"role"`
	Disabled       bool      `json:"disabled" yaml:"disabled"`
	ProfileImageID *int64    `json:"profile_image_id,omitempty" yaml:"profile_image_id,omitempty"`
	ImageCount     int       `json:"image_count" yaml:"image_count"`
	CreatedAt      time.Time `json:"created_at" yaml:"created_at"`
}

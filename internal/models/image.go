package models

import "time"

// Image is a stored picture together with its ownership metadata.
type Image struct {
	ID         int64      `json:"id"`
	OwnerID    int64      `json:"owner_id"`
	CreatorID  int64      `json:"creator_id"`
	Visibility Visibility `json:"visibility"`
	Content    []byte     `json:"-"`
	SizeBytes  int64      `json:"size_bytes"`
	Label      string     `json:"label,omitempty"`
	MediaType  string     `json:"media_type"`
	Width      int        `json:"width"`
	Height     int        `json:"height"`
	CreatedAt  time.Time  `json:"created_at"`
}

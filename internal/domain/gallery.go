package domain

import "time"

// GalleryEntry records one successfully generated variant for later review.
type GalleryEntry struct {
	CreatedAt       time.Time
	UserID          string
	ParseType       string
	CustomPrompt    string
	ImageURL        string
	OriginalImageID string
}

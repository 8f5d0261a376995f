package domain

import (
	"context"
	"time"
)

// UserRepository defines access methods for users.
type UserRepository interface {
	Create(ctx context.Context, userID string) error
	GetByID(ctx context.Context, userID string) (*User, error)
	SetPremium(ctx context.Context, userID string, expiresAt *time.Time) error
	CancelPremium(ctx context.Context, userID string) error
}

// UsageRepository records and counts generation usage events.
type UsageRepository interface {
	Append(ctx context.Context, userID string) error
	MonthlyCount(ctx context.Context, userID, month string) (int, error)
}

// GalleryRepository appends generated-variant records.
type GalleryRepository interface {
	Append(ctx context.Context, entry GalleryEntry) error
}

package repo

import (
	"context"

	"github.com/housing-coach-yuushi/ishitomo-linebot/internal/domain"
	"github.com/housing-coach-yuushi/ishitomo-linebot/internal/infra"
	"github.com/housing-coach-yuushi/ishitomo-linebot/internal/sqlinline"
)

// GalleryRepositoryPG implements domain.GalleryRepository.
type GalleryRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewGalleryRepository creates a new gallery repository backed by PostgreSQL.
func NewGalleryRepository(sql infra.SQLExecutor) *GalleryRepositoryPG {
	return &GalleryRepositoryPG{sql: sql}
}

// Append stores one generated-variant record.
func (r *GalleryRepositoryPG) Append(ctx context.Context, entry domain.GalleryEntry) error {
	_, err := r.sql.Exec(ctx, sqlinline.QInsertGalleryEntry,
		entry.UserID,
		entry.ParseType,
		entry.CustomPrompt,
		entry.ImageURL,
		entry.OriginalImageID,
	)
	return err
}

var _ domain.GalleryRepository = (*GalleryRepositoryPG)(nil)

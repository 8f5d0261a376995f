package repo

import (
	"context"

	"github.com/housing-coach-yuushi/ishitomo-linebot/internal/domain"
	"github.com/housing-coach-yuushi/ishitomo-linebot/internal/infra"
	"github.com/housing-coach-yuushi/ishitomo-linebot/internal/sqlinline"
)

// UsageRepositoryPG implements domain.UsageRepository.
type UsageRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewUsageRepository creates a new usage repository backed by PostgreSQL.
func NewUsageRepository(sql infra.SQLExecutor) *UsageRepositoryPG {
	return &UsageRepositoryPG{sql: sql}
}

// Append records one generation usage event for the user.
func (r *UsageRepositoryPG) Append(ctx context.Context, userID string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QInsertUsageEvent, userID)
	return err
}

// MonthlyCount returns how many generations the user ran in the given month (YYYY-MM).
func (r *UsageRepositoryPG) MonthlyCount(ctx context.Context, userID, month string) (int, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QCountMonthlyUsage, userID, month)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

var _ domain.UsageRepository = (*UsageRepositoryPG)(nil)

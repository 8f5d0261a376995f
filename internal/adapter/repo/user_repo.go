package repo

import (
	"context"
	"time"

	"github.com/housing-coach-yuushi/ishitomo-linebot/internal/domain"
	"github.com/housing-coach-yuushi/ishitomo-linebot/internal/infra"
	"github.com/housing-coach-yuushi/ishitomo-linebot/internal/sqlinline"
)

// UserRepositoryPG implements domain.UserRepository.
type UserRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewUserRepository creates a new user repository backed by PostgreSQL.
func NewUserRepository(sql infra.SQLExecutor) *UserRepositoryPG {
	return &UserRepositoryPG{sql: sql}
}

// Create registers a user if they are not known yet.
func (r *UserRepositoryPG) Create(ctx context.Context, userID string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QInsertUserIfAbsent, userID)
	return err
}

// GetByID fetches a user by their LINE user ID.
func (r *UserRepositoryPG) GetByID(ctx context.Context, userID string) (*domain.User, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectUserByID, userID)
	var user domain.User
	if err := row.Scan(&user.ID, &user.CreatedAt, &user.IsPremium, &user.PremiumExpiresAt); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// SetPremium marks the user as premium until expiresAt (nil means no expiry).
func (r *UserRepositoryPG) SetPremium(ctx context.Context, userID string, expiresAt *time.Time) error {
	_, err := r.sql.Exec(ctx, sqlinline.QSetUserPremium, userID, expiresAt)
	return err
}

// CancelPremium reverts the user to the free plan.
func (r *UserRepositoryPG) CancelPremium(ctx context.Context, userID string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QCancelUserPremium, userID)
	return err
}

var _ domain.UserRepository = (*UserRepositoryPG)(nil)

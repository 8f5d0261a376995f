package domain

import "time"

// User represents a LINE account registered with the bot.
type User struct {
	ID               string // LINE user ID
	CreatedAt        time.Time
	IsPremium        bool
	PremiumExpiresAt *time.Time
}

// PremiumActive reports whether the user currently holds a valid premium plan.
func (u User) PremiumActive(now time.Time) bool {
	if !u.IsPremium {
		return false
	}
	if u.PremiumExpiresAt == nil {
		return true
	}
	return now.Before(*u.PremiumExpiresAt)
}

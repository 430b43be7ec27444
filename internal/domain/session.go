package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session is the persisted form of a login session. The raw session id never
// reaches storage; TokenHash is a keyed hash of it.
type Session struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	TokenHash string    `gorm:"size:128;uniqueIndex;not null" json:"-"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	Email     string    `gorm:"size:255;not null" json:"email"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Session) Identity() Identity {
	return Identity{ID: s.UserID, Email: s.Email, Name: s.Name}
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"column:password;size:255;not null" json:"-"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}

func (User) TableName() string { return "user_registrations" }

// Identity is the non-secret projection of a user that is handed to clients
// and kept inside a session.
type Identity struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
}

func (i Identity) IsZero() bool {
	return i.ID == uuid.Nil || i.Email == ""
}

type UserView struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Email: u.Email, Name: u.Name}
}

func (u *User) View() UserView {
	return UserView{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt}
}

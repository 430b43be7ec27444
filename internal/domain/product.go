package domain

import (
	"time"

	"github.com/google/uuid"
)

type Product struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null;index:idx_products_name_type" json:"name"`
	Type      string    `gorm:"size:255;not null;index:idx_products_name_type" json:"type"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

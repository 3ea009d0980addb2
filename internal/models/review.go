package models

import "time"

// Review is a rating left by a user for a store.
type Review struct {
	ID       string    `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	StoreID  string    `json:"store_id" gorm:"type:varchar(36);not null;index" validate:"required"`
	AuthorID string    `json:"author_id" gorm:"type:varchar(36);not null;index" validate:"required"`
	Rating   int       `json:"rating" gorm:"not null" validate:"required,min=1,max=5"`
	Text     string    `json:"text" gorm:"type:text;not null" validate:"required,max=5000"`
	Created  time.Time `json:"created" gorm:"not null"`
}

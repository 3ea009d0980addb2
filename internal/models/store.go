package models

import "time"

// LocationPoint is the only geometry type a store location can have.
const LocationPoint = "Point"

// Location is a GeoJSON-like point with a street address.
type Location struct {
	Type    string  `json:"type" gorm:"type:varchar(16);not null;default:Point" validate:"eq=Point"`
	Lng     float64 `json:"lng" validate:"gte=-180,lte=180"`
	Lat     float64 `json:"lat" validate:"gte=-90,lte=90"`
	Address string  `json:"address" gorm:"type:varchar(255);not null" validate:"required,max=255"`
}

// Store represents a business listing.
type Store struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Name        string    `json:"name" gorm:"type:varchar(255);not null" validate:"required,max=255"`
	Slug        string    `json:"slug" gorm:"uniqueIndex;type:varchar(255);not null"`
	Description string    `json:"description" gorm:"type:text" validate:"max=5000"`
	Tags        []string  `json:"tags" gorm:"-" validate:"dive,required,max=100"`
	Created     time.Time `json:"created" gorm:"not null"`
	Location    Location  `json:"location" gorm:"embedded;embeddedPrefix:location_"`
	Photo       string    `json:"photo,omitempty" gorm:"type:varchar(255)"`
	AuthorID    string    `json:"author_id" gorm:"type:varchar(36);not null;index" validate:"required"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// StoreTag links a store to one of its tags.
type StoreTag struct {
	StoreID string `gorm:"primaryKey;type:varchar(36)"`
	Tag     string `gorm:"primaryKey;type:varchar(100);index"`
}

// TagCount is a tag with the number of stores using it.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int64  `json:"count"`
}

// RatedStore is a store annotated with its review aggregates.
type RatedStore struct {
	Store         `gorm:"embedded"`
	AverageRating float64 `json:"average_rating"`
	ReviewCount   int64   `json:"review_count"`
}

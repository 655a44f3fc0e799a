package models

import (
	"time"

	"gorm.io/gorm"
)

// Business is the profile of a user with role=business. Deleting a business
// leaves a tombstone so historical orders keep resolving.
type Business struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	UserID       uint           `json:"user_id" gorm:"uniqueIndex;not null"`
	User         *User          `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Name         string         `json:"name" gorm:"not null"`
	Address      string         `json:"address" gorm:"not null"`
	Phone        string         `json:"phone"`
	Description  string         `json:"description"`
	Cuisine      []string       `json:"cuisine" gorm:"serializer:json"`
	OpeningHours string         `json:"opening_hours"`
	ProfileImage string         `json:"profile_image"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// Location is a lat/long pair.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DeliveryPartner is the profile of a user with role=delivery.
type DeliveryPartner struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	UserID          uint      `json:"user_id" gorm:"uniqueIndex;not null"`
	User            *User     `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Phone           string    `json:"phone" gorm:"not null"`
	Vehicle         string    `json:"vehicle" gorm:"not null"`
	LicenseNumber   string    `json:"license_number,omitempty"`
	IsAvailable     bool      `json:"is_available" gorm:"default:true"`
	CurrentLocation *Location `json:"current_location,omitempty" gorm:"serializer:json"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

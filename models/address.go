package models

import (
	"time"

	"gorm.io/gorm"
)

// AddressLabel tags an address for display.
type AddressLabel string

const (
	LabelHome  AddressLabel = "home"
	LabelWork  AddressLabel = "work"
	LabelOther AddressLabel = "other"
)

func (l AddressLabel) Valid() bool {
	return l == LabelHome || l == LabelWork || l == LabelOther
}

// Address belongs to exactly one user. At most one address per user has
// IsDefault set; the store enforces it with a partial unique index where the
// dialect supports one.
type Address struct {
	ID                uint         `json:"id" gorm:"primaryKey"`
	UserID            uint         `json:"user_id" gorm:"not null;index"`
	Label             AddressLabel `json:"label" gorm:"not null;default:'home'"`
	Street            string       `json:"street"`
	City              string       `json:"city"`
	State             string       `json:"state"`
	Zip               string       `json:"zip"`
	Country           string       `json:"country" gorm:"default:'USA'"`
	Latitude          float64      `json:"latitude"`
	Longitude         float64      `json:"longitude"`
	IsDefault         bool         `json:"is_default" gorm:"not null;default:false"`
	IsBusinessAddress bool         `json:"is_business_address" gorm:"default:false"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
	// Deleted addresses stay readable from the orders that point at them.
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// ValidLatitude reports whether lat lies in [-90, 90].
func ValidLatitude(lat float64) bool { return lat >= -90 && lat <= 90 }

// ValidLongitude reports whether lng lies in [-180, 180].
func ValidLongitude(lng float64) bool { return lng >= -180 && lng <= 180 }

package models

import (
	"time"

	"gorm.io/gorm"
)

// RatingDistribution counts ratings per star bucket.
type RatingDistribution struct {
	One   int `json:"1" gorm:"column:one;not null;default:0"`
	Two   int `json:"2" gorm:"column:two;not null;default:0"`
	Three int `json:"3" gorm:"column:three;not null;default:0"`
	Four  int `json:"4" gorm:"column:four;not null;default:0"`
	Five  int `json:"5" gorm:"column:five;not null;default:0"`
}

// Add increments the bucket for a 1..5 rating. Out of range values are ignored.
func (d *RatingDistribution) Add(rating, n int) {
	switch rating {
	case 1:
		d.One += n
	case 2:
		d.Two += n
	case 3:
		d.Three += n
	case 4:
		d.Four += n
	case 5:
		d.Five += n
	}
}

type Product struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	BusinessID      uint      `json:"business_id" gorm:"not null;index:idx_product_business_category"`
	Business        *Business `json:"business,omitempty" gorm:"foreignKey:BusinessID"`
	Name            string    `json:"name" gorm:"not null;index"`
	Description     string    `json:"description" gorm:"not null"`
	Price           float64   `json:"price" gorm:"not null;check:price >= 0"`
	Category        string    `json:"category" gorm:"not null;index:idx_product_business_category"`
	Subcategory     string    `json:"subcategory,omitempty"`
	ImageURL        string    `json:"image_url,omitempty"`
	IsAvailable     bool      `json:"is_available" gorm:"default:true"`
	PreparationTime int       `json:"preparation_time" gorm:"default:15"`

	Calories      *float64 `json:"calories,omitempty"`
	Protein       *float64 `json:"protein,omitempty"`
	Carbohydrates *float64 `json:"carbohydrates,omitempty"`
	Fat           *float64 `json:"fat,omitempty"`
	Fiber         *float64 `json:"fiber,omitempty"`
	Sugar         *float64 `json:"sugar,omitempty"`
	Sodium        *float64 `json:"sodium,omitempty"`

	Allergens    []string `json:"allergens" gorm:"serializer:json"`
	Ingredients  []string `json:"ingredients" gorm:"serializer:json"`
	IsVegetarian bool     `json:"is_vegetarian" gorm:"default:false"`
	IsVegan      bool     `json:"is_vegan" gorm:"default:false"`
	IsSpicy      bool     `json:"is_spicy" gorm:"default:false"`
	SpiceLevel   int      `json:"spice_level" gorm:"default:0"`

	// Derived from product_ratings; rewritten only by the rating service.
	AverageRating      float64            `json:"average_rating" gorm:"default:0;index"`
	TotalRatings       int                `json:"total_ratings" gorm:"default:0"`
	RatingDistribution RatingDistribution `json:"rating_distribution" gorm:"embedded;embeddedPrefix:rating_"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// ProductRating is unique per (product, user).
type ProductRating struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	ProductID  uint      `json:"product_id" gorm:"not null;uniqueIndex:idx_rating_product_user;index:idx_rating_product_rating"`
	UserID     uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_rating_product_user"`
	User       *User     `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Rating     int       `json:"rating" gorm:"not null;index:idx_rating_product_rating"`
	Review     string    `json:"review,omitempty" gorm:"size:500"`
	OrderID    *uint     `json:"order_id,omitempty"`
	IsVerified bool      `json:"is_verified" gorm:"default:false;index"`
	Helpful    int       `json:"helpful" gorm:"default:0"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

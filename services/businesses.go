package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"food-delivery-backend/apperr"
	"food-delivery-backend/models"
)

type BusinessProfileInput struct {
	Name         *string   `json:"name" binding:"omitempty,min=1,max=100"`
	Address      *string   `json:"address" binding:"omitempty,max=255"`
	Phone        *string   `json:"phone" binding:"omitempty,max=30"`
	Description  *string   `json:"description" binding:"omitempty,max=1000"`
	Cuisine      *[]string `json:"cuisine"`
	OpeningHours *string   `json:"opening_hours"`
	ProfileImage *string   `json:"profile_image" binding:"omitempty,max=500"`
}

type BusinessService struct {
	db *gorm.DB
}

// businessOf loads the live business owned by userID.
func businessOf(db *gorm.DB, userID uint) (*models.Business, error) {
	var b models.Business
	if err := db.Where("user_id = ?", userID).First(&b).Error; err != nil {
		return nil, storeErr("business.lookup", "business profile", err)
	}
	return &b, nil
}

func (s *BusinessService) Profile(ctx context.Context, userID uint) (*models.Business, error) {
	var b models.Business
	err := s.db.WithContext(ctx).Preload("User").Where("user_id = ?", userID).First(&b).Error
	if err != nil {
		return nil, storeErr("business.profile", "business profile", err)
	}
	return &b, nil
}

func (s *BusinessService) UpdateProfile(ctx context.Context, userID uint, in BusinessProfileInput) (*models.Business, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	b, err := businessOf(s.db.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, apperr.Validation("name cannot be blank")
		}
		b.Name = strings.TrimSpace(*in.Name)
	}
	if in.Address != nil {
		b.Address = *in.Address
	}
	if in.Phone != nil {
		b.Phone = *in.Phone
	}
	if in.Description != nil {
		b.Description = *in.Description
	}
	if in.Cuisine != nil {
		b.Cuisine = *in.Cuisine
	}
	if in.OpeningHours != nil {
		b.OpeningHours = *in.OpeningHours
	}
	if in.ProfileImage != nil {
		b.ProfileImage = *in.ProfileImage
	}
	if err := s.db.WithContext(ctx).Save(b).Error; err != nil {
		return nil, apperr.Internal("business.update_profile", err)
	}
	return s.Profile(ctx, userID)
}

// Menu lists every live product of the caller's business, including
// unavailable ones.
func (s *BusinessService) Menu(ctx context.Context, userID uint) ([]models.Product, error) {
	db := s.db.WithContext(ctx)
	b, err := businessOf(db, userID)
	if err != nil {
		return nil, err
	}
	products := []models.Product{}
	if err := db.Where("business_id = ?", b.ID).Order("category, name").Find(&products).Error; err != nil {
		return nil, apperr.Internal("business.menu", err)
	}
	return products, nil
}

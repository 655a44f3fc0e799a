package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"food-delivery-backend/apperr"
	"food-delivery-backend/models"
)

type UpdateProfileInput struct {
	Name   *string        `json:"name" binding:"omitempty,min=1,max=100"`
	Phone  *string        `json:"phone" binding:"omitempty,max=30"`
	Gender *models.Gender `json:"gender" binding:"omitempty,gender"`
}

type UserService struct {
	db *gorm.DB
}

// Profile returns the user with their addresses, default first.
func (s *UserService) Profile(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Preload("Addresses", func(db *gorm.DB) *gorm.DB {
			return db.Order("is_default desc, created_at desc")
		}).
		First(&user, userID).Error
	if err != nil {
		return nil, storeErr("users.profile", "user", err)
	}
	return &user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uint, in UpdateProfileInput) (*models.User, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperr.Validation("name cannot be blank")
		}
		updates["name"] = name
	}
	if in.Phone != nil {
		updates["phone"] = strings.TrimSpace(*in.Phone)
	}
	if in.Gender != nil {
		updates["gender"] = *in.Gender
	}

	if len(updates) > 0 {
		res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(updates)
		if res.Error != nil {
			return nil, apperr.Internal("users.update_profile", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, apperr.NotFound("user not found")
		}
	}
	return s.Profile(ctx, userID)
}

package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"food-delivery-backend/apperr"
	"food-delivery-backend/models"
)

type DeliveryProfileInput struct {
	Phone           *string          `json:"phone" binding:"omitempty,min=1,max=30"`
	Vehicle         *string          `json:"vehicle" binding:"omitempty,min=1,max=50"`
	LicenseNumber   *string          `json:"license_number" binding:"omitempty,max=50"`
	IsAvailable     *bool            `json:"is_available"`
	CurrentLocation *models.Location `json:"current_location"`
}

type DeliveryService struct {
	db *gorm.DB
}

func normalizeLicense(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// partnerOf loads the delivery profile owned by userID.
func partnerOf(db *gorm.DB, userID uint) (*models.DeliveryPartner, error) {
	var p models.DeliveryPartner
	if err := db.Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, storeErr("delivery.lookup", "delivery profile", err)
	}
	return &p, nil
}

func (s *DeliveryService) Profile(ctx context.Context, userID uint) (*models.DeliveryPartner, error) {
	var p models.DeliveryPartner
	err := s.db.WithContext(ctx).Preload("User").Where("user_id = ?", userID).First(&p).Error
	if err != nil {
		return nil, storeErr("delivery.profile", "delivery profile", err)
	}
	return &p, nil
}

func (s *DeliveryService) UpdateProfile(ctx context.Context, userID uint, in DeliveryProfileInput) (*models.DeliveryPartner, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if loc := in.CurrentLocation; loc != nil {
		if !models.ValidLatitude(loc.Latitude) || !models.ValidLongitude(loc.Longitude) {
			return nil, apperr.Validation("current_location must have latitude in [-90, 90] and longitude in [-180, 180]")
		}
	}

	p, err := partnerOf(s.db.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}
	if in.Phone != nil {
		p.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Vehicle != nil {
		p.Vehicle = strings.TrimSpace(*in.Vehicle)
	}
	if in.LicenseNumber != nil {
		p.LicenseNumber = normalizeLicense(*in.LicenseNumber)
	}
	if in.IsAvailable != nil {
		p.IsAvailable = *in.IsAvailable
	}
	if in.CurrentLocation != nil {
		loc := *in.CurrentLocation
		p.CurrentLocation = &loc
	}
	if err := s.db.WithContext(ctx).Save(p).Error; err != nil {
		return nil, apperr.Internal("delivery.update_profile", err)
	}
	return s.Profile(ctx, userID)
}

package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"food-delivery-backend/apperr"
	"food-delivery-backend/models"
)

type AddressInput struct {
	Label             models.AddressLabel `json:"label" binding:"omitempty,address_label"`
	Street            string              `json:"street" binding:"required,max=200"`
	City              string              `json:"city" binding:"required,max=100"`
	State             string              `json:"state" binding:"required,max=100"`
	Zip               string              `json:"zip" binding:"required,max=20"`
	Country           string              `json:"country" binding:"max=100"`
	Latitude          *float64            `json:"latitude" binding:"required"`
	Longitude         *float64            `json:"longitude" binding:"required"`
	IsDefault         bool                `json:"is_default"`
	IsBusinessAddress bool                `json:"is_business_address"`
}

type AddressUpdate struct {
	Label             *models.AddressLabel `json:"label" binding:"omitempty,address_label"`
	Street            *string              `json:"street" binding:"omitempty,min=1,max=200"`
	City              *string              `json:"city" binding:"omitempty,min=1,max=100"`
	State             *string              `json:"state" binding:"omitempty,min=1,max=100"`
	Zip               *string              `json:"zip" binding:"omitempty,min=1,max=20"`
	Country           *string              `json:"country" binding:"omitempty,min=1,max=100"`
	Latitude          *float64             `json:"latitude"`
	Longitude         *float64             `json:"longitude"`
	IsDefault         *bool                `json:"is_default"`
	IsBusinessAddress *bool                `json:"is_business_address"`
}

// AddressService keeps at most one default address per user. Default
// switches for one user are serialized and run in a single transaction.
type AddressService struct {
	db    *gorm.DB
	locks *keyedMutex
}

func checkCoordinates(lat, lng *float64) error {
	if lat != nil && !models.ValidLatitude(*lat) {
		return apperr.Validation("latitude must be between -90 and 90")
	}
	if lng != nil && !models.ValidLongitude(*lng) {
		return apperr.Validation("longitude must be between -180 and 180")
	}
	return nil
}

// Create stores a new address. The first address of a user becomes the
// default.
func (s *AddressService) Create(ctx context.Context, userID uint, in AddressInput) (*models.Address, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if err := checkCoordinates(in.Latitude, in.Longitude); err != nil {
		return nil, err
	}

	a := &models.Address{
		UserID:            userID,
		Label:             in.Label,
		Street:            strings.TrimSpace(in.Street),
		City:              strings.TrimSpace(in.City),
		State:             strings.TrimSpace(in.State),
		Zip:               strings.TrimSpace(in.Zip),
		Country:           strings.TrimSpace(in.Country),
		Latitude:          *in.Latitude,
		Longitude:         *in.Longitude,
		IsBusinessAddress: in.IsBusinessAddress,
	}
	if a.Label == "" {
		a.Label = models.LabelHome
	}
	if a.Country == "" {
		a.Country = "USA"
	}

	unlock := s.locks.Lock(userKey(userID))
	defer unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Address{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
			return err
		}
		makeDefault := in.IsDefault || count == 0
		if err := tx.Create(a).Error; err != nil {
			return err
		}
		if makeDefault {
			return switchDefault(tx, userID, a.ID)
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("addresses.create", "address", err)
	}
	return s.Get(ctx, userID, a.ID)
}

// List returns the caller's addresses, default first.
func (s *AddressService) List(ctx context.Context, userID uint) ([]models.Address, error) {
	addresses := []models.Address{}
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("is_default desc, created_at desc, id desc").
		Find(&addresses).Error
	if err != nil {
		return nil, apperr.Internal("addresses.list", err)
	}
	return addresses, nil
}

// Get returns one of the caller's addresses. Addresses of other users are
// reported as missing.
func (s *AddressService) Get(ctx context.Context, userID, id uint) (*models.Address, error) {
	return ownedAddress(s.db.WithContext(ctx), userID, id)
}

// Default returns the caller's default address.
func (s *AddressService) Default(ctx context.Context, userID uint) (*models.Address, error) {
	var a models.Address
	err := s.db.WithContext(ctx).Where("user_id = ? AND is_default = ?", userID, true).First(&a).Error
	if err != nil {
		return nil, storeErr("addresses.default", "default address", err)
	}
	return &a, nil
}

func (s *AddressService) Update(ctx context.Context, userID, id uint, in AddressUpdate) (*models.Address, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if err := checkCoordinates(in.Latitude, in.Longitude); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Label != nil {
		updates["label"] = *in.Label
	}
	for col, v := range map[string]*string{
		"street":  in.Street,
		"city":    in.City,
		"state":   in.State,
		"zip":     in.Zip,
		"country": in.Country,
	} {
		if v != nil {
			updates[col] = strings.TrimSpace(*v)
		}
	}
	if in.Latitude != nil {
		updates["latitude"] = *in.Latitude
	}
	if in.Longitude != nil {
		updates["longitude"] = *in.Longitude
	}
	if in.IsBusinessAddress != nil {
		updates["is_business_address"] = *in.IsBusinessAddress
	}
	if in.IsDefault != nil && !*in.IsDefault {
		updates["is_default"] = false
	}

	unlock := s.locks.Lock(userKey(userID))
	defer unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := ownedAddress(tx, userID, id)
		if err != nil {
			return err
		}
		if len(updates) > 0 {
			if err := tx.Model(a).Updates(updates).Error; err != nil {
				return err
			}
		}
		if in.IsDefault != nil && *in.IsDefault {
			return switchDefault(tx, userID, a.ID)
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("addresses.update", "address", err)
	}
	return s.Get(ctx, userID, id)
}

// SetDefault makes id the caller's only default address.
func (s *AddressService) SetDefault(ctx context.Context, userID, id uint) (*models.Address, error) {
	unlock := s.locks.Lock(userKey(userID))
	defer unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := ownedAddress(tx, userID, id); err != nil {
			return err
		}
		return switchDefault(tx, userID, id)
	})
	if err != nil {
		return nil, storeErr("addresses.set_default", "address", err)
	}
	return s.Get(ctx, userID, id)
}

// Delete tombstones the address so orders keep their destination. When it
// was the default, the most recently created remaining address takes over.
func (s *AddressService) Delete(ctx context.Context, userID, id uint) error {
	unlock := s.locks.Lock(userKey(userID))
	defer unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := ownedAddress(tx, userID, id)
		if err != nil {
			return err
		}
		wasDefault := a.IsDefault
		if wasDefault {
			// The tombstone must not hold the user's one default slot.
			if err := tx.Model(a).Update("is_default", false).Error; err != nil {
				return err
			}
		}
		if err := tx.Delete(a).Error; err != nil {
			return err
		}
		if !wasDefault {
			return nil
		}
		var next models.Address
		err = tx.Where("user_id = ?", userID).Order("created_at desc, id desc").First(&next).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return switchDefault(tx, userID, next.ID)
	})
	return storeErr("addresses.delete", "address", err)
}

func ownedAddress(db *gorm.DB, userID, id uint) (*models.Address, error) {
	var a models.Address
	if err := db.Where("id = ? AND user_id = ?", id, userID).First(&a).Error; err != nil {
		return nil, storeErr("addresses.lookup", "address", err)
	}
	return &a, nil
}

// switchDefault clears every other default of the user, then sets id. The
// clear runs first so the one-default index never sees two rows.
func switchDefault(tx *gorm.DB, userID, id uint) error {
	err := tx.Model(&models.Address{}).
		Where("user_id = ? AND id <> ? AND is_default = ?", userID, id, true).
		Update("is_default", false).Error
	if err != nil {
		return err
	}
	res := tx.Model(&models.Address{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_default", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("address not found")
	}
	return nil
}

package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"food-delivery-backend/apperr"
	"food-delivery-backend/models"
)

type UserFilter struct {
	Page
	Role models.Role `form:"role"`
}

type UserPage struct {
	Users      []models.User `json:"users"`
	Pagination Pagination    `json:"pagination"`
}

type BusinessPage struct {
	Businesses []models.Business `json:"businesses"`
	Pagination Pagination        `json:"pagination"`
}

type PartnerPage struct {
	DeliveryPartners []models.DeliveryPartner `json:"delivery_partners"`
	Pagination       Pagination               `json:"pagination"`
}

// BusinessDeletion reports what a business deletion archived.
type BusinessDeletion struct {
	BusinessID       uint      `json:"business_id"`
	ProductsArchived int64     `json:"products_archived"`
	DeletedAt        time.Time `json:"deleted_at"`
}

type AdminService struct {
	db *gorm.DB
}

func (s *AdminService) Users(ctx context.Context, f UserFilter) (*UserPage, error) {
	if f.Role != "" && !f.Role.Valid() {
		return nil, apperr.Validation("role must be one of customer, business, delivery, admin")
	}
	p := f.Page.normalize()
	q := s.db.WithContext(ctx).Model(&models.User{})
	if f.Role != "" {
		q = q.Where("role = ?", f.Role)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, apperr.Internal("admin.users", err)
	}
	users := []models.User{}
	if err := q.Order("created_at desc, id desc").Limit(p.Limit).Offset(p.offset()).Find(&users).Error; err != nil {
		return nil, apperr.Internal("admin.users", err)
	}
	return &UserPage{Users: users, Pagination: paginate(p, total)}, nil
}

func (s *AdminService) Businesses(ctx context.Context, page Page) (*BusinessPage, error) {
	p := page.normalize()
	q := s.db.WithContext(ctx).Model(&models.Business{}).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, apperr.Internal("admin.businesses", err)
	}
	businesses := []models.Business{}
	err := q.Preload("User").Order("created_at desc, id desc").Limit(p.Limit).Offset(p.offset()).Find(&businesses).Error
	if err != nil {
		return nil, apperr.Internal("admin.businesses", err)
	}
	return &BusinessPage{Businesses: businesses, Pagination: paginate(p, total)}, nil
}

func (s *AdminService) DeliveryPartners(ctx context.Context, page Page) (*PartnerPage, error) {
	p := page.normalize()
	q := s.db.WithContext(ctx).Model(&models.DeliveryPartner{}).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, apperr.Internal("admin.delivery_partners", err)
	}
	partners := []models.DeliveryPartner{}
	err := q.Preload("User").Order("created_at desc, id desc").Limit(p.Limit).Offset(p.offset()).Find(&partners).Error
	if err != nil {
		return nil, apperr.Internal("admin.delivery_partners", err)
	}
	return &PartnerPage{DeliveryPartners: partners, Pagination: paginate(p, total)}, nil
}

// DeleteBusiness tombstones a business and every product it owns in one
// transaction. Orders keep resolving the business through Unscoped reads.
func (s *AdminService) DeleteBusiness(ctx context.Context, businessID uint) (*BusinessDeletion, error) {
	out := &BusinessDeletion{BusinessID: businessID}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var b models.Business
		if err := tx.First(&b, businessID).Error; err != nil {
			return err
		}
		res := tx.Where("business_id = ?", b.ID).Delete(&models.Product{})
		if res.Error != nil {
			return res.Error
		}
		out.ProductsArchived = res.RowsAffected
		if err := tx.Delete(&b).Error; err != nil {
			return err
		}
		var deleted models.Business
		if err := tx.Unscoped().Select("deleted_at").First(&deleted, b.ID).Error; err != nil {
			return err
		}
		out.DeletedAt = deleted.DeletedAt.Time
		return nil
	})
	if err != nil {
		return nil, storeErr("admin.delete_business", "business", err)
	}
	return out, nil
}

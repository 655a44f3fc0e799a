// Package services holds the business rules: ownership checks, the order
// lifecycle, rating aggregates and every multi-step write's transaction.
package services

import (
	"errors"
	"math"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"food-delivery-backend/apperr"
	"food-delivery-backend/auth"
	"food-delivery-backend/events"
)

// Services bundles every service sharing one store.
type Services struct {
	Auth       *AuthService
	Users      *UserService
	Businesses *BusinessService
	Delivery   *DeliveryService
	Catalog    *CatalogService
	Ratings    *RatingService
	Addresses  *AddressService
	Orders     *OrderService
	Admin      *AdminService
}

type Options struct {
	AdminSignupEnabled bool
}

func New(db *gorm.DB, tokens *auth.TokenManager, publisher events.Publisher, log *zap.Logger, opts Options) *Services {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Services{
		Auth:       &AuthService{db: db, tokens: tokens, adminSignup: opts.AdminSignupEnabled, log: log.Named("auth")},
		Users:      &UserService{db: db},
		Businesses: &BusinessService{db: db},
		Delivery:   &DeliveryService{db: db},
		Catalog:    &CatalogService{db: db},
		Ratings:    &RatingService{db: db, locks: newKeyedMutex()},
		Addresses:  &AddressService{db: db, locks: newKeyedMutex()},
		Orders:     &OrderService{db: db, locks: newKeyedMutex(), publisher: publisher, log: log.Named("orders")},
		Admin:      &AdminService{db: db},
	}
}

// storeErr maps a store failure onto the error taxonomy. what names the
// missing resource for not-found errors.
func storeErr(op, what string, err error) error {
	var ae *apperr.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ae):
		return ae
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFound("%s not found", what)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.Conflict("%s already exists", what)
	}
	return apperr.Internal(op, err)
}

// Page selects a window of a listing.
type Page struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

func (p Page) normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultPageSize
	}
	if p.Limit > maxPageSize {
		p.Limit = maxPageSize
	}
	return p
}

func (p Page) offset() int { return (p.Page - 1) * p.Limit }

// Pagination describes the window returned with a listing.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

func paginate(p Page, total int64) Pagination {
	pages := int((total + int64(p.Limit) - 1) / int64(p.Limit))
	return Pagination{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: pages,
		HasNext:    p.Page < pages,
		HasPrev:    p.Page > 1,
	}
}

func roundTo(x float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(x*pow) / pow
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// likePattern builds a substring pattern for matching against LOWER(column).
func likePattern(s string) string {
	return "%" + strings.ToLower(strings.TrimSpace(s)) + "%"
}

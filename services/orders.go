package services

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"food-delivery-backend/apperr"
	"food-delivery-backend/auth"
	"food-delivery-backend/events"
	"food-delivery-backend/models"
	"food-delivery-backend/statemachine"
)

type OrderItemInput struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,min=1,max=100"`
}

type PlaceOrderInput struct {
	BusinessID        uint             `json:"business_id" binding:"required"`
	Items             []OrderItemInput `json:"items" binding:"required,min=1,dive"`
	DeliveryAddressID *uint            `json:"delivery_address_id"`
	TotalPrice        *float64         `json:"total_price" binding:"omitempty,gte=0"`
	Notes             string           `json:"notes" binding:"max=500"`
}

type StatusInput struct {
	Status models.OrderStatus `json:"status" binding:"required,order_status"`
	Note   string             `json:"note" binding:"max=500"`
}

type AssignInput struct {
	OrderID           uint   `json:"order_id" binding:"required"`
	DeliveryPartnerID uint   `json:"delivery_partner_id" binding:"required"`
	Note              string `json:"note" binding:"max=500"`
}

type OrderFilter struct {
	Page
	Status            models.OrderStatus `form:"status"`
	CustomerID        uint               `form:"customer_id"`
	BusinessID        uint               `form:"business_id"`
	DeliveryPartnerID uint               `form:"delivery_partner_id"`
}

type OrderList struct {
	Orders     []models.Order             `json:"orders"`
	Summary    map[models.OrderStatus]int `json:"summary"`
	Pagination Pagination                 `json:"pagination"`
}

// priceTolerance is how far a client supplied total may drift from the
// computed one.
const priceTolerance = 0.005

// OrderService owns the order lifecycle. Every status change runs under a
// per-order lock, checks the state machine, bumps the order version with a
// compare-and-swap update and writes a history row in one transaction.
// Events are published after commit.
type OrderService struct {
	db        *gorm.DB
	locks     *keyedMutex
	publisher events.Publisher
	log       *zap.Logger
}

func withOrderDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items").
		Preload("Business", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("DeliveryPartner").
		Preload("DeliveryPartner.User", func(db *gorm.DB) *gorm.DB { return db.Select("id", "name", "phone") }).
		Preload("DeliveryAddress", func(db *gorm.DB) *gorm.DB { return db.Unscoped() })
}

// Place creates a pending order for the customer. Line items snapshot the
// product name and price; the total is computed from the snapshot.
func (s *OrderService) Place(ctx context.Context, customerID uint, in PlaceOrderInput) (*models.Order, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	var business models.Business
	if err := db.First(&business, in.BusinessID).Error; err != nil {
		return nil, storeErr("orders.place", "business", err)
	}

	ids := make([]uint, 0, len(in.Items))
	for _, it := range in.Items {
		ids = append(ids, it.ProductID)
	}
	var products []models.Product
	if err := db.Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, apperr.Internal("orders.place", err)
	}
	byID := make(map[uint]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	var (
		items []models.OrderItem
		total float64
	)
	for _, it := range in.Items {
		p, ok := byID[it.ProductID]
		if !ok || p.BusinessID != business.ID {
			return nil, apperr.Validation("product %d is not on the menu of business %d", it.ProductID, business.ID)
		}
		if !p.IsAvailable {
			return nil, apperr.Validation("product %q is not available", p.Name)
		}
		total += p.Price * float64(it.Quantity)
		items = append(items, models.OrderItem{
			ProductID: p.ID,
			Quantity:  it.Quantity,
			Price:     p.Price,
			Name:      p.Name,
		})
	}
	total = roundTo(total, 2)
	if in.TotalPrice != nil && math.Abs(*in.TotalPrice-total) > priceTolerance {
		return nil, apperr.Validation("total_price %.2f does not match the computed total %.2f", *in.TotalPrice, total)
	}

	addressID, err := s.deliveryAddress(db, customerID, in.DeliveryAddressID)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		CustomerID:        customerID,
		BusinessID:        business.ID,
		Status:            models.StatusPending,
		TotalPrice:        total,
		DeliveryAddressID: addressID,
		Notes:             in.Notes,
		Version:           1,
		Items:             items,
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		return tx.Create(&models.OrderStatusHistory{
			OrderID:   order.ID,
			ToStatus:  models.StatusPending,
			ChangedBy: customerID,
			ActorRole: models.RoleCustomer,
			Note:      "order placed",
		}).Error
	})
	if err != nil {
		return nil, apperr.Internal("orders.place", err)
	}

	s.publish(ctx, events.OrderEvent{
		Type:       events.OrderPlaced,
		OrderID:    order.ID,
		BusinessID: order.BusinessID,
		CustomerID: order.CustomerID,
		ToStatus:   models.StatusPending,
		ActorID:    customerID,
		ActorRole:  models.RoleCustomer,
		OccurredAt: order.CreatedAt,
	})
	return s.load(ctx, order.ID)
}

func (s *OrderService) deliveryAddress(db *gorm.DB, customerID uint, id *uint) (uint, error) {
	if id != nil {
		a, err := ownedAddress(db, customerID, *id)
		if err != nil {
			return 0, err
		}
		return a.ID, nil
	}
	var a models.Address
	err := db.Where("user_id = ? AND is_default = ?", customerID, true).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, apperr.Validation("delivery_address_id is required when no default address is set")
	}
	if err != nil {
		return 0, apperr.Internal("orders.delivery_address", err)
	}
	return a.ID, nil
}

// History lists the customer's orders, newest first.
func (s *OrderService) History(ctx context.Context, customerID uint) ([]models.Order, error) {
	return s.find(ctx, "orders.history", func(db *gorm.DB) *gorm.DB {
		return db.Where("customer_id = ?", customerID)
	})
}

// Track returns one of the customer's orders with its status history.
func (s *OrderService) Track(ctx context.Context, customerID, orderID uint) (*models.Order, error) {
	var order models.Order
	err := withOrderDetails(s.db.WithContext(ctx)).
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Where("id = ? AND customer_id = ?", orderID, customerID).
		First(&order).Error
	if err != nil {
		return nil, storeErr("orders.track", "order", err)
	}
	return &order, nil
}

// Cancel withdraws a customer's order while it is still pending.
func (s *OrderService) Cancel(ctx context.Context, id auth.Identity, orderID uint, note string) (*models.Order, error) {
	return s.apply(ctx, orderID, change{
		to:   models.StatusCancelled,
		by:   id,
		note: defaultNote(note, "cancelled by customer"),
		authorize: func(_ *gorm.DB, o *models.Order) error {
			if o.CustomerID != id.UserID {
				return apperr.NotFound("order not found")
			}
			return nil
		},
	})
}

// BusinessActive lists the orders of the caller's business that are not
// yet delivered or cancelled.
func (s *OrderService) BusinessActive(ctx context.Context, userID uint) ([]models.Order, error) {
	return s.businessOrders(ctx, userID, models.ActiveStatuses)
}

// BusinessHistory lists delivered and cancelled orders of the caller's
// business.
func (s *OrderService) BusinessHistory(ctx context.Context, userID uint) ([]models.Order, error) {
	return s.businessOrders(ctx, userID, models.TerminalStatuses)
}

func (s *OrderService) businessOrders(ctx context.Context, userID uint, statuses []models.OrderStatus) ([]models.Order, error) {
	b, err := businessOf(s.db.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}
	return s.find(ctx, "orders.business", func(db *gorm.DB) *gorm.DB {
		return db.Where("business_id = ? AND status IN ?", b.ID, statuses)
	})
}

// BusinessUpdateStatus lets the owning business accept, prepare or reject
// an order that has not been handed to a delivery partner.
func (s *OrderService) BusinessUpdateStatus(ctx context.Context, id auth.Identity, orderID uint, in StatusInput) (*models.Order, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	b, err := businessOf(s.db.WithContext(ctx), id.UserID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, orderID, change{
		to:   in.Status,
		by:   id,
		note: in.Note,
		authorize: func(_ *gorm.DB, o *models.Order) error {
			if o.BusinessID != b.ID {
				return apperr.NotFound("order not found")
			}
			if o.DeliveryPartnerID != nil {
				return apperr.Forbidden("order has been handed to a delivery partner")
			}
			return nil
		},
	})
}

// PartnerAssigned lists the caller's orders currently out for delivery.
func (s *OrderService) PartnerAssigned(ctx context.Context, userID uint) ([]models.Order, error) {
	return s.partnerOrders(ctx, userID, models.StatusOutForDelivery)
}

// PartnerHistory lists the orders the caller has delivered.
func (s *OrderService) PartnerHistory(ctx context.Context, userID uint) ([]models.Order, error) {
	return s.partnerOrders(ctx, userID, models.StatusDelivered)
}

func (s *OrderService) partnerOrders(ctx context.Context, userID uint, status models.OrderStatus) ([]models.Order, error) {
	p, err := partnerOf(s.db.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}
	return s.find(ctx, "orders.partner", func(db *gorm.DB) *gorm.DB {
		return db.Where("delivery_partner_id = ? AND status = ?", p.ID, status)
	})
}

// PartnerUpdateStatus moves an order assigned to the calling partner.
// Orders assigned to anyone else, or to nobody, are forbidden.
func (s *OrderService) PartnerUpdateStatus(ctx context.Context, id auth.Identity, orderID uint, in StatusInput) (*models.Order, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	p, err := partnerOf(s.db.WithContext(ctx), id.UserID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, orderID, change{
		to:   in.Status,
		by:   id,
		note: in.Note,
		authorize: func(_ *gorm.DB, o *models.Order) error {
			if o.DeliveryPartnerID == nil || *o.DeliveryPartnerID != p.ID {
				return apperr.Forbidden("order is not assigned to you")
			}
			return nil
		},
	})
}

// AdminUpdateStatus moves any non-terminal order forward or cancels it.
func (s *OrderService) AdminUpdateStatus(ctx context.Context, id auth.Identity, orderID uint, in StatusInput) (*models.Order, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	return s.apply(ctx, orderID, change{
		to:   in.Status,
		by:   id,
		note: in.Note,
		authorize: func(_ *gorm.DB, o *models.Order) error {
			if in.Status == models.StatusOutForDelivery && o.DeliveryPartnerID == nil {
				return apperr.Validation("assign a delivery partner to send the order out for delivery")
			}
			return nil
		},
	})
}

// Assign sets the delivery partner and forces the order to
// out_for_delivery from any non-terminal status.
func (s *OrderService) Assign(ctx context.Context, id auth.Identity, in AssignInput) (*models.Order, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	var partner models.DeliveryPartner
	if err := s.db.WithContext(ctx).First(&partner, in.DeliveryPartnerID).Error; err != nil {
		return nil, storeErr("orders.assign", "delivery partner", err)
	}
	return s.apply(ctx, in.OrderID, change{
		to:        models.StatusOutForDelivery,
		by:        id,
		note:      defaultNote(in.Note, "assigned by admin"),
		partnerID: &partner.ID,
	})
}

// AdminList returns one page of orders matching f plus a count per status
// over every order matching the non-status filters.
func (s *OrderService) AdminList(ctx context.Context, f OrderFilter) (*OrderList, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Validation("status must be one of %s", joinStatuses(models.OrderStatuses))
	}
	p := f.Page.normalize()

	base := s.db.WithContext(ctx).Model(&models.Order{})
	if f.CustomerID != 0 {
		base = base.Where("customer_id = ?", f.CustomerID)
	}
	if f.BusinessID != 0 {
		base = base.Where("business_id = ?", f.BusinessID)
	}
	if f.DeliveryPartnerID != 0 {
		base = base.Where("delivery_partner_id = ?", f.DeliveryPartnerID)
	}
	base = base.Session(&gorm.Session{})

	var counts []struct {
		Status models.OrderStatus
		Total  int
	}
	if err := base.Select("status, COUNT(*) AS total").Group("status").Scan(&counts).Error; err != nil {
		return nil, apperr.Internal("orders.admin_list", err)
	}
	summary := make(map[models.OrderStatus]int, len(models.OrderStatuses))
	for _, st := range models.OrderStatuses {
		summary[st] = 0
	}
	for _, c := range counts {
		summary[c.Status] = c.Total
	}

	q := base
	if f.Status != "" {
		q = base.Where("status = ?", f.Status).Session(&gorm.Session{})
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, apperr.Internal("orders.admin_list", err)
	}
	orders := []models.Order{}
	err := withOrderDetails(q).
		Preload("Customer", func(db *gorm.DB) *gorm.DB { return db.Select("id", "name", "email", "phone") }).
		Order("created_at desc, id desc").
		Limit(p.Limit).Offset(p.offset()).
		Find(&orders).Error
	if err != nil {
		return nil, apperr.Internal("orders.admin_list", err)
	}
	return &OrderList{Orders: orders, Summary: summary, Pagination: paginate(p, total)}, nil
}

// change describes one requested status transition.
type change struct {
	to   models.OrderStatus
	by   auth.Identity
	note string
	// partnerID marks a forced assignment.
	partnerID *uint
	// authorize runs against the locked order before the state machine.
	authorize func(tx *gorm.DB, o *models.Order) error
}

func (s *OrderService) apply(ctx context.Context, orderID uint, ch change) (*models.Order, error) {
	var (
		order models.Order
		from  models.OrderStatus
		now   time.Time
	)
	// The order lock covers the transaction only; publishing and reloading
	// happen after it is released.
	err := s.locked(orderKey(orderID), func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, orderID).Error; err != nil {
				return storeErr("orders.apply", "order", err)
			}
			if ch.authorize != nil {
				if err := ch.authorize(tx, &order); err != nil {
					return err
				}
			}

			from = order.Status
			if ch.partnerID != nil {
				if err := statemachine.CanForceAssign(from); err != nil {
					return err
				}
			} else if err := statemachine.CanTransition(from, ch.to, ch.by.Role); err != nil {
				return err
			}

			updates := map[string]interface{}{
				"status":  ch.to,
				"version": gorm.Expr("version + 1"),
			}
			if ch.partnerID != nil {
				updates["delivery_partner_id"] = *ch.partnerID
			}
			res := tx.Model(&models.Order{}).
				Where("id = ? AND version = ?", order.ID, order.Version).
				Updates(updates)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return apperr.Conflict("order was modified concurrently, retry")
			}

			h := models.OrderStatusHistory{
				OrderID:    order.ID,
				FromStatus: from,
				ToStatus:   ch.to,
				ChangedBy:  ch.by.UserID,
				ActorRole:  ch.by.Role,
				Note:       ch.note,
			}
			if err := tx.Create(&h).Error; err != nil {
				return err
			}
			now = h.CreatedAt
			return nil
		})
	})
	if err != nil {
		return nil, storeErr("orders.apply", "order", err)
	}

	evt := events.OrderEvent{
		Type:       events.OrderStatusChanged,
		OrderID:    order.ID,
		BusinessID: order.BusinessID,
		CustomerID: order.CustomerID,
		FromStatus: from,
		ToStatus:   ch.to,
		ActorID:    ch.by.UserID,
		ActorRole:  ch.by.Role,
		OccurredAt: now,
	}
	if ch.partnerID != nil {
		evt.Type = events.OrderAssigned
		evt.DeliveryPartnerID = ch.partnerID
	} else {
		evt.DeliveryPartnerID = order.DeliveryPartnerID
	}
	s.publish(ctx, evt)

	return s.load(ctx, order.ID)
}

func (s *OrderService) publish(ctx context.Context, evt events.OrderEvent) {
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.log.Warn("Failed to publish order event",
			zap.String("type", evt.Type),
			zap.Uint("order_id", evt.OrderID),
			zap.Error(err),
		)
	}
}

func (s *OrderService) load(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := withOrderDetails(s.db.WithContext(ctx)).
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		First(&order, id).Error
	if err != nil {
		return nil, storeErr("orders.load", "order", err)
	}
	return &order, nil
}

func (s *OrderService) find(ctx context.Context, op string, scope func(*gorm.DB) *gorm.DB) ([]models.Order, error) {
	orders := []models.Order{}
	err := withOrderDetails(s.db.WithContext(ctx)).
		Scopes(scope).
		Order("created_at desc, id desc").
		Find(&orders).Error
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	return orders, nil
}

func defaultNote(note, fallback string) string {
	if note == "" {
		return fallback
	}
	return note
}

func (s *OrderService) locked(key string, fn func() error) error {
	unlock := s.locks.Lock(key)
	defer unlock()
	return fn()
}

package models

import "time"

// OrderStatus represents all possible states of a food delivery order
type OrderStatus string

const (
	StatusPending        OrderStatus = "pending"
	StatusConfirmed      OrderStatus = "confirmed"
	StatusPreparing      OrderStatus = "preparing"
	StatusOutForDelivery OrderStatus = "out_for_delivery"
	StatusDelivered      OrderStatus = "delivered"
	StatusCancelled      OrderStatus = "cancelled"
)

// OrderStatuses is the closed set of statuses in lifecycle order, cancelled last.
var OrderStatuses = []OrderStatus{
	StatusPending,
	StatusConfirmed,
	StatusPreparing,
	StatusOutForDelivery,
	StatusDelivered,
	StatusCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, v := range OrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition may leave s.
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// ActiveStatuses are the statuses a business still has to act on.
var ActiveStatuses = []OrderStatus{StatusPending, StatusConfirmed, StatusPreparing, StatusOutForDelivery}

// TerminalStatuses are delivered and cancelled.
var TerminalStatuses = []OrderStatus{StatusDelivered, StatusCancelled}

// Order is placed by a customer against one business. Items and TotalPrice
// are fixed at creation. Version is bumped by every status change and guards
// concurrent transitions.
type Order struct {
	ID                uint                 `json:"id" gorm:"primaryKey"`
	CustomerID        uint                 `json:"customer_id" gorm:"not null;index"`
	Customer          *User                `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	BusinessID        uint                 `json:"business_id" gorm:"not null;index"`
	Business          *Business            `json:"business,omitempty" gorm:"foreignKey:BusinessID"`
	DeliveryPartnerID *uint                `json:"delivery_partner_id" gorm:"index"`
	DeliveryPartner   *DeliveryPartner     `json:"delivery_partner,omitempty" gorm:"foreignKey:DeliveryPartnerID"`
	Status            OrderStatus          `json:"status" gorm:"not null;default:'pending';index"`
	TotalPrice        float64              `json:"total_price" gorm:"not null"`
	DeliveryAddressID uint                 `json:"delivery_address_id" gorm:"not null"`
	DeliveryAddress   *Address             `json:"delivery_address,omitempty" gorm:"foreignKey:DeliveryAddressID"`
	Notes             string               `json:"notes,omitempty"`
	Version           int                  `json:"version" gorm:"not null;default:1"`
	Items             []OrderItem          `json:"items,omitempty" gorm:"foreignKey:OrderID"`
	StatusHistory     []OrderStatusHistory `json:"status_history,omitempty" gorm:"foreignKey:OrderID"`
	CreatedAt         time.Time            `json:"created_at" gorm:"index"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

type OrderItem struct {
	ID        uint    `json:"id" gorm:"primaryKey"`
	OrderID   uint    `json:"order_id" gorm:"not null;index"`
	ProductID uint    `json:"product_id" gorm:"not null;index"`
	Quantity  int     `json:"quantity" gorm:"not null"`
	Price     float64 `json:"price" gorm:"not null"` // snapshot price at time of order
	Name      string  `json:"name"`                  // snapshot name
}

// OrderStatusHistory records every status change of an order.
type OrderStatusHistory struct {
	ID         uint        `json:"id" gorm:"primaryKey"`
	OrderID    uint        `json:"order_id" gorm:"not null;index"`
	FromStatus OrderStatus `json:"from_status"`
	ToStatus   OrderStatus `json:"to_status" gorm:"not null"`
	ChangedBy  uint        `json:"changed_by"` // user ID who triggered the transition
	ActorRole  Role        `json:"actor_role"`
	Note       string      `json:"note"`
	CreatedAt  time.Time   `json:"created_at"`
}

// RevokedToken is a denylisted token id, kept until the token would have
// expired anyway.
type RevokedToken struct {
	TokenID   string    `gorm:"primaryKey;size:64"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

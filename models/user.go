package models

import (
	"time"
)

// Role is the closed set of actor kinds in the system.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleBusiness Role = "business"
	RoleDelivery Role = "delivery"
	RoleAdmin    Role = "admin"
)

// Roles lists every valid role.
var Roles = []Role{RoleCustomer, RoleBusiness, RoleDelivery, RoleAdmin}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleBusiness, RoleDelivery, RoleAdmin:
		return true
	}
	return false
}

// Capability names an operation class a role may be granted.
type Capability int

const (
	CapPlaceOrder Capability = iota + 1
	CapRateProduct
	CapManageAddresses
	CapManageCatalog
	CapFulfilOrders
	CapDeliverOrders
	CapAdminister
)

var capabilityNames = map[Capability]string{
	CapPlaceOrder:      "place_order",
	CapRateProduct:     "rate_product",
	CapManageAddresses: "manage_addresses",
	CapManageCatalog:   "manage_catalog",
	CapFulfilOrders:    "fulfil_orders",
	CapDeliverOrders:   "deliver_orders",
	CapAdminister:      "administer",
}

func (c Capability) String() string {
	if n, ok := capabilityNames[c]; ok {
		return n
	}
	return "unknown"
}

var grants = map[Role]map[Capability]bool{
	RoleCustomer: {CapPlaceOrder: true, CapRateProduct: true, CapManageAddresses: true},
	RoleBusiness: {CapManageCatalog: true, CapFulfilOrders: true, CapManageAddresses: true},
	RoleDelivery: {CapDeliverOrders: true, CapManageAddresses: true},
	RoleAdmin:    {CapAdminister: true, CapManageAddresses: true},
}

// Can reports whether the role has been granted the capability.
func (r Role) Can(c Capability) bool {
	return grants[r][c]
}

// Gender values accepted on the user profile.
type Gender string

const (
	GenderMale         Gender = "male"
	GenderFemale       Gender = "female"
	GenderOther        Gender = "other"
	GenderPreferNotSay Gender = "prefer_not_to_say"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther, GenderPreferNotSay:
		return true
	}
	return false
}

type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	Role         Role      `json:"role" gorm:"not null;default:'customer';index"`
	Phone        string    `json:"phone"`
	Gender       Gender    `json:"gender" gorm:"default:'prefer_not_to_say'"`
	Addresses    []Address `json:"addresses,omitempty" gorm:"foreignKey:UserID"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

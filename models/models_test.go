package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleCapabilities(t *testing.T) {
	tests := []struct {
		role Role
		cap  Capability
		want bool
	}{
		{RoleCustomer, CapPlaceOrder, true},
		{RoleCustomer, CapRateProduct, true},
		{RoleCustomer, CapManageCatalog, false},
		{RoleBusiness, CapManageCatalog, true},
		{RoleBusiness, CapPlaceOrder, false},
		{RoleDelivery, CapDeliverOrders, true},
		{RoleDelivery, CapAdminister, false},
		{RoleAdmin, CapAdminister, true},
		{RoleAdmin, CapDeliverOrders, false},
		{Role("superuser"), CapAdminister, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+tt.cap.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.role.Can(tt.cap))
		})
	}
	for _, r := range Roles {
		assert.True(t, r.Can(CapManageAddresses), r)
	}
}

func TestRoleValid(t *testing.T) {
	for _, r := range Roles {
		assert.True(t, r.Valid())
	}
	assert.False(t, Role("restaurant").Valid())
	assert.False(t, Role("").Valid())
}

func TestOrderStatus(t *testing.T) {
	assert.True(t, StatusOutForDelivery.Valid())
	assert.False(t, OrderStatus("out for delivery").Valid())
	assert.True(t, StatusDelivered.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusPreparing.Terminal())
}

func TestRatingDistributionAdd(t *testing.T) {
	var d RatingDistribution
	d.Add(5, 2)
	d.Add(1, 1)
	d.Add(6, 10)
	assert.Equal(t, RatingDistribution{One: 1, Five: 2}, d)
}

func TestCoordinates(t *testing.T) {
	assert.True(t, ValidLatitude(-90))
	assert.False(t, ValidLatitude(90.5))
	assert.True(t, ValidLongitude(180))
	assert.False(t, ValidLongitude(-181))
}

package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"food-delivery-backend/apperr"
	"food-delivery-backend/models"
)

func TestUserProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.customer(t)
	env.address(t, user, "1 Home St", false)

	gender := models.GenderFemale
	updated, err := env.svc.Users.UpdateProfile(ctx, user.UserID, UpdateProfileInput{
		Name:   ptr("Casey C."),
		Gender: &gender,
	})
	require.NoError(t, err)
	assert.Equal(t, "Casey C.", updated.Name)
	assert.Equal(t, models.GenderFemale, updated.Gender)
	assert.Len(t, updated.Addresses, 1)

	_, err = env.svc.Users.UpdateProfile(ctx, user.UserID, UpdateProfileInput{Name: ptr("   ")})
	requireKind(t, err, apperr.KindValidation)

	bad := models.Gender("unknown")
	_, err = env.svc.Users.UpdateProfile(ctx, user.UserID, UpdateProfileInput{Gender: &bad})
	requireKind(t, err, apperr.KindValidation)
}

func TestBusinessProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.business(t, "Taco Hut")

	b, err := env.svc.Businesses.UpdateProfile(ctx, owner.UserID, BusinessProfileInput{
		OpeningHours: ptr("10:00-22:00"),
		Cuisine:      &[]string{"mexican", "street food"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Taco Hut", b.Name)
	assert.Equal(t, "10:00-22:00", b.OpeningHours)
	assert.Equal(t, []string{"mexican", "street food"}, b.Cuisine)
	require.NotNil(t, b.User)

	customer := env.customer(t)
	_, err = env.svc.Businesses.Profile(ctx, customer.UserID)
	requireKind(t, err, apperr.KindNotFound)
}

func TestDeliveryProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	driver, partner := env.partner(t)
	assert.True(t, partner.IsAvailable)

	p, err := env.svc.Delivery.UpdateProfile(ctx, driver.UserID, DeliveryProfileInput{
		LicenseNumber:   ptr(" ab-123 "),
		IsAvailable:     ptr(false),
		CurrentLocation: &models.Location{Latitude: 41.9, Longitude: 12.5},
	})
	require.NoError(t, err)
	assert.Equal(t, "AB-123", p.LicenseNumber)
	assert.False(t, p.IsAvailable)
	require.NotNil(t, p.CurrentLocation)
	assert.Equal(t, 12.5, p.CurrentLocation.Longitude)

	_, err = env.svc.Delivery.UpdateProfile(ctx, driver.UserID, DeliveryProfileInput{
		CurrentLocation: &models.Location{Latitude: 10, Longitude: 200},
	})
	requireKind(t, err, apperr.KindValidation)
}

func TestAdminListings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.customer(t)
	env.customer(t)
	env.business(t, "Taco Hut")
	env.partner(t)

	users, err := env.svc.Admin.Users(ctx, UserFilter{Role: models.RoleCustomer})
	require.NoError(t, err)
	assert.Len(t, users.Users, 2)

	all, err := env.svc.Admin.Users(ctx, UserFilter{Page: Page{Limit: 3}})
	require.NoError(t, err)
	assert.Len(t, all.Users, 3)
	assert.Equal(t, int64(4), all.Pagination.Total)
	assert.True(t, all.Pagination.HasNext)

	_, err = env.svc.Admin.Users(ctx, UserFilter{Role: "wizard"})
	requireKind(t, err, apperr.KindValidation)

	businesses, err := env.svc.Admin.Businesses(ctx, Page{})
	require.NoError(t, err)
	require.Len(t, businesses.Businesses, 1)
	require.NotNil(t, businesses.Businesses[0].User)

	partners, err := env.svc.Admin.DeliveryPartners(ctx, Page{})
	require.NoError(t, err)
	assert.Len(t, partners.DeliveryPartners, 1)
}

func TestKeyedMutexReleasesKeys(t *testing.T) {
	k := newKeyedMutex()
	unlock := k.Lock("a")
	unlockB := k.Lock("b")
	assert.Len(t, k.locks, 2)
	unlock()
	unlockB()
	assert.Empty(t, k.locks)
}

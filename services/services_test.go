package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"food-delivery-backend/apperr"
	"food-delivery-backend/auth"
	"food-delivery-backend/config"
	"food-delivery-backend/events"
	"food-delivery-backend/models"
)

type testEnv struct {
	db     *gorm.DB
	svc    *Services
	tokens *auth.TokenManager
	events *events.Recorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := config.OpenDB(config.DBConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	tokens := auth.NewTokenManager([]byte("test-secret"), time.Hour, auth.NewGormDenylist(db))
	rec := &events.Recorder{}
	svc := New(db, tokens, rec, zaptest.NewLogger(t), Options{AdminSignupEnabled: true})
	return &testEnv{db: db, svc: svc, tokens: tokens, events: rec}
}

var seq int64

func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s%d@example.com", prefix, atomic.AddInt64(&seq, 1))
}

func (e *testEnv) identity(t *testing.T, res *AuthResult) auth.Identity {
	t.Helper()
	id, err := e.tokens.Verify(context.Background(), res.Token)
	require.NoError(t, err)
	return id
}

func (e *testEnv) customer(t *testing.T) auth.Identity {
	t.Helper()
	res, err := e.svc.Auth.Signup(context.Background(), SignupInput{
		Name: "Casey Customer", Email: uniqueEmail("customer"), Password: "secret1",
	})
	require.NoError(t, err)
	return e.identity(t, res)
}

func (e *testEnv) business(t *testing.T, name string) auth.Identity {
	t.Helper()
	res, err := e.svc.Auth.SignupBusiness(context.Background(), BusinessSignupInput{
		SignupInput:  SignupInput{Name: name, Email: uniqueEmail("business"), Password: "secret1"},
		BusinessName: name,
		Address:      "1 Main St",
	})
	require.NoError(t, err)
	return e.identity(t, res)
}

func (e *testEnv) businessID(t *testing.T, owner auth.Identity) uint {
	t.Helper()
	b, err := e.svc.Businesses.Profile(context.Background(), owner.UserID)
	require.NoError(t, err)
	return b.ID
}

func (e *testEnv) partner(t *testing.T) (auth.Identity, *models.DeliveryPartner) {
	t.Helper()
	res, err := e.svc.Auth.SignupDelivery(context.Background(), DeliverySignupInput{
		SignupInput: SignupInput{Name: "Dana Driver", Email: uniqueEmail("driver"), Password: "secret1", Phone: "555-0100"},
		Vehicle:     "bike",
	})
	require.NoError(t, err)
	id := e.identity(t, res)
	p, err := e.svc.Delivery.Profile(context.Background(), id.UserID)
	require.NoError(t, err)
	return id, p
}

func (e *testEnv) admin(t *testing.T) auth.Identity {
	t.Helper()
	res, err := e.svc.Auth.SignupAdmin(context.Background(), SignupInput{
		Name: "Ada Admin", Email: uniqueEmail("admin"), Password: "secret1",
	})
	require.NoError(t, err)
	return e.identity(t, res)
}

func (e *testEnv) product(t *testing.T, owner auth.Identity, name string, price float64) *models.Product {
	t.Helper()
	p, err := e.svc.Catalog.Create(context.Background(), owner.UserID, ProductInput{
		Name: name, Description: name + " description", Price: &price, Category: "mains",
	})
	require.NoError(t, err)
	return p
}

func (e *testEnv) address(t *testing.T, user auth.Identity, street string, def bool) *models.Address {
	t.Helper()
	lat, lng := 40.7, -74.0
	a, err := e.svc.Addresses.Create(context.Background(), user.UserID, AddressInput{
		Street: street, City: "Springfield", State: "IL", Zip: "62701",
		Latitude: &lat, Longitude: &lng, IsDefault: def,
	})
	require.NoError(t, err)
	return a
}

func requireKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, apperr.KindOf(err), "error: %v", err)
}

package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"food-delivery-backend/auth"
	"food-delivery-backend/config"
	"food-delivery-backend/events"
	"food-delivery-backend/handlers"
	"food-delivery-backend/routes"
	"food-delivery-backend/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type api struct {
	t      *testing.T
	router *gin.Engine
	events *events.Recorder
}

func newAPI(t *testing.T) *api {
	t.Helper()
	require.NoError(t, handlers.RegisterValidations())

	db, err := config.OpenDB(config.DBConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	log := zaptest.NewLogger(t)
	tokens := auth.NewTokenManager([]byte("test-secret"), time.Hour, auth.NewGormDenylist(db))
	rec := &events.Recorder{}
	svc := services.New(db, tokens, rec, log, services.Options{AdminSignupEnabled: true})

	r := routes.NewRouter(handlers.New(svc), routes.Options{
		Log:            log,
		Tokens:         tokens,
		Registry:       prometheus.NewRegistry(),
		RequestTimeout: 5 * time.Second,
	})
	return &api{t: t, router: r, events: rec}
}

// do sends body as JSON and decodes the response into out when non-nil.
func (a *api) do(method, path, token string, body, out interface{}) int {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	if out != nil {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return w.Code
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// expectError asserts the status and kind of a failing call.
func (a *api) expectError(method, path, token string, body interface{}, status int, kind string) {
	a.t.Helper()
	var res errorResponse
	code := a.do(method, path, token, body, &res)
	assert.Equal(a.t, status, code, res.Error)
	assert.Equal(a.t, kind, res.Kind)
	assert.NotEmpty(a.t, res.Error)
}

type authResponse struct {
	Token string `json:"token"`
	User  struct {
		ID   uint   `json:"id"`
		Name string `json:"name"`
		Role string `json:"role"`
	} `json:"user"`
}

var seq int

func (a *api) signup(path string, body map[string]interface{}) authResponse {
	a.t.Helper()
	seq++
	if _, ok := body["email"]; !ok {
		body["email"] = fmt.Sprintf("user%d@example.com", seq)
	}
	if _, ok := body["password"]; !ok {
		body["password"] = "secret1"
	}
	var res authResponse
	require.Equal(a.t, http.StatusCreated, a.do(http.MethodPost, path, "", body, &res))
	require.NotEmpty(a.t, res.Token)
	return res
}

func (a *api) customer() string {
	return a.signup("/api/auth/signup", map[string]interface{}{"name": "Casey Customer"}).Token
}

func (a *api) business(name string) string {
	return a.signup("/api/auth/business/signup", map[string]interface{}{
		"name": name, "business_name": name, "address": "1 Main St",
	}).Token
}

func (a *api) partner() (string, uint) {
	token := a.signup("/api/auth/delivery/signup", map[string]interface{}{
		"name": "Dana Driver", "vehicle": "bike",
	}).Token
	var res struct {
		DeliveryPartner struct {
			ID uint `json:"id"`
		} `json:"delivery_partner"`
	}
	require.Equal(a.t, http.StatusOK, a.do(http.MethodGet, "/api/delivery/profile", token, nil, &res))
	return token, res.DeliveryPartner.ID
}

func (a *api) admin() string {
	return a.signup("/api/auth/admin/signup", map[string]interface{}{"name": "Ada Admin"}).Token
}

type productResponse struct {
	Product struct {
		ID            uint    `json:"id"`
		BusinessID    uint    `json:"business_id"`
		Price         float64 `json:"price"`
		AverageRating float64 `json:"average_rating"`
		TotalRatings  int     `json:"total_ratings"`
	} `json:"product"`
}

func (a *api) product(token, name string, price float64) productResponse {
	a.t.Helper()
	var res productResponse
	code := a.do(http.MethodPost, "/api/business/products", token, map[string]interface{}{
		"name": name, "description": name, "price": price, "category": "mains",
	}, &res)
	require.Equal(a.t, http.StatusCreated, code)
	return res
}

func (a *api) address(token string) {
	a.t.Helper()
	code := a.do(http.MethodPost, "/api/addresses", token, map[string]interface{}{
		"street": "1 Home St", "city": "Springfield", "state": "IL", "zip": "62701",
		"latitude": 40.7, "longitude": -74.0,
	}, nil)
	require.Equal(a.t, http.StatusCreated, code)
}

type orderResponse struct {
	Order struct {
		ID                uint    `json:"id"`
		Status            string  `json:"status"`
		TotalPrice        float64 `json:"total_price"`
		DeliveryPartnerID *uint   `json:"delivery_partner_id"`
		Items             []struct {
			Name  string  `json:"name"`
			Price float64 `json:"price"`
		} `json:"items"`
	} `json:"order"`
}

type orderScenario struct {
	owner, customer string
	taco, chips     productResponse
	order           orderResponse
}

// placeOrder sets up Taco Hut with two products and a customer order of
// two of each, totalling 25.50.
func (a *api) placeOrder() orderScenario {
	a.t.Helper()
	s := orderScenario{owner: a.business("Taco Hut"), customer: a.customer()}
	s.taco = a.product(s.owner, "Taco", 8.5)
	s.chips = a.product(s.owner, "Chips", 4.25)
	a.address(s.customer)

	code := a.do(http.MethodPost, "/api/orders", s.customer, map[string]interface{}{
		"business_id": s.taco.Product.BusinessID,
		"items": []map[string]interface{}{
			{"product_id": s.taco.Product.ID, "quantity": 2},
			{"product_id": s.chips.Product.ID, "quantity": 2},
		},
		"total_price": 25.50,
	}, &s.order)
	require.Equal(a.t, http.StatusCreated, code)
	return s
}

func TestBusinessSignupThenProfile(t *testing.T) {
	a := newAPI(t)

	var res authResponse
	code := a.do(http.MethodPost, "/api/auth/business/signup", "", map[string]interface{}{
		"name": "Taco Hut", "email": "t@x.com", "password": "secret1",
	}, &res)
	require.Equal(t, http.StatusCreated, code)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "business", res.User.Role)

	var profile struct {
		Business struct {
			Name string `json:"name"`
		} `json:"business"`
	}
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/business/profile", res.Token, nil, &profile))
	assert.Equal(t, "Taco Hut", profile.Business.Name)

	a.expectError(http.MethodPost, "/api/auth/signup", "", map[string]interface{}{
		"name": "Again", "email": "T@X.com", "password": "secret1",
	}, http.StatusConflict, "duplicate_identity")
}

func TestOrderHistoryKeepsSnapshotPrice(t *testing.T) {
	a := newAPI(t)
	s := a.placeOrder()
	assert.Equal(t, "pending", s.order.Order.Status)
	assert.Equal(t, 25.50, s.order.Order.TotalPrice)

	code := a.do(http.MethodPut, fmt.Sprintf("/api/business/products/%d", s.taco.Product.ID), s.owner,
		map[string]interface{}{"price": 99.0}, nil)
	require.Equal(t, http.StatusOK, code)

	var history struct {
		Orders []struct {
			ID         uint    `json:"id"`
			Status     string  `json:"status"`
			TotalPrice float64 `json:"total_price"`
		} `json:"orders"`
	}
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/orders/history", s.customer, nil, &history))
	require.Len(t, history.Orders, 1)
	assert.Equal(t, s.order.Order.ID, history.Orders[0].ID)
	assert.Equal(t, "pending", history.Orders[0].Status)
	assert.Equal(t, 25.50, history.Orders[0].TotalPrice)

	a.expectError(http.MethodPost, "/api/orders", s.customer, map[string]interface{}{
		"business_id": s.taco.Product.BusinessID,
		"items":       []map[string]interface{}{{"product_id": s.chips.Product.ID, "quantity": 1}},
		"total_price": 1.00,
	}, http.StatusBadRequest, "validation_error")
}

func TestAdminAssignsPendingOrder(t *testing.T) {
	a := newAPI(t)
	s := a.placeOrder()
	admin := a.admin()
	driver, partnerID := a.partner()

	var res orderResponse
	code := a.do(http.MethodPost, "/api/admin/orders/assign", admin, map[string]interface{}{
		"order_id": s.order.Order.ID, "delivery_partner_id": partnerID,
	}, &res)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "out_for_delivery", res.Order.Status)
	require.NotNil(t, res.Order.DeliveryPartnerID)
	assert.Equal(t, partnerID, *res.Order.DeliveryPartnerID)

	var assigned struct {
		Count int `json:"count"`
	}
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/delivery/assigned-orders", driver, nil, &assigned))
	assert.Equal(t, 1, assigned.Count)

	other, _ := a.partner()
	path := fmt.Sprintf("/api/delivery/orders/%d/status", s.order.Order.ID)
	a.expectError(http.MethodPut, path, other, map[string]interface{}{"status": "delivered"},
		http.StatusForbidden, "forbidden")

	require.Equal(t, http.StatusOK, a.do(http.MethodPut, path, driver, map[string]interface{}{"status": "delivered"}, &res))
	assert.Equal(t, "delivered", res.Order.Status)

	a.expectError(http.MethodPut, fmt.Sprintf("/api/admin/orders/%d/status", s.order.Order.ID), admin,
		map[string]interface{}{"status": "cancelled"}, http.StatusUnprocessableEntity, "invalid_transition")

	evts := a.events.Events()
	require.Len(t, evts, 3)
	assert.Equal(t, events.OrderAssigned, evts[1].Type)
}

func TestRerateThroughAPI(t *testing.T) {
	a := newAPI(t)
	owner := a.business("Taco Hut")
	taco := a.product(owner, "Taco", 3)
	customer := a.customer()
	path := fmt.Sprintf("/api/products/%d", taco.Product.ID)

	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, path+"/rate", customer, map[string]interface{}{"rating": 5}, nil))
	require.Equal(t, http.StatusOK, a.do(http.MethodPost, path+"/rate", customer, map[string]interface{}{"rating": 3}, nil))

	var got productResponse
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, path, "", nil, &got))
	assert.Equal(t, 3.0, got.Product.AverageRating)
	assert.Equal(t, 1, got.Product.TotalRatings)

	var ratings struct {
		Ratings []struct {
			Rating int `json:"rating"`
		} `json:"ratings"`
	}
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, path+"/ratings", "", nil, &ratings))
	require.Len(t, ratings.Ratings, 1)
	assert.Equal(t, 3, ratings.Ratings[0].Rating)

	a.expectError(http.MethodPost, path+"/rate", customer, map[string]interface{}{"rating": 6},
		http.StatusBadRequest, "validation_error")
	a.expectError(http.MethodPost, path+"/rate", owner, map[string]interface{}{"rating": 4},
		http.StatusForbidden, "forbidden")
}

func TestBusinessIsolation(t *testing.T) {
	a := newAPI(t)
	s := a.placeOrder()
	rival := a.business("Pizza Place")

	a.expectError(http.MethodPut, fmt.Sprintf("/api/business/orders/%d/status", s.order.Order.ID), rival,
		map[string]interface{}{"status": "confirmed"}, http.StatusNotFound, "not_found")
	a.expectError(http.MethodPut, fmt.Sprintf("/api/business/products/%d", s.taco.Product.ID), rival,
		map[string]interface{}{"price": 1.0}, http.StatusNotFound, "not_found")

	var orders struct {
		Count int `json:"count"`
	}
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/business/orders", rival, nil, &orders))
	assert.Zero(t, orders.Count)
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/business/orders", s.owner, nil, &orders))
	assert.Equal(t, 1, orders.Count)
}

func TestAuthGate(t *testing.T) {
	a := newAPI(t)
	customer := a.customer()

	a.expectError(http.MethodGet, "/api/orders/history", "", nil, http.StatusUnauthorized, "unauthenticated")
	a.expectError(http.MethodGet, "/api/admin/users", customer, nil, http.StatusForbidden, "forbidden")
	a.expectError(http.MethodGet, "/api/orders/abc/track", customer, nil, http.StatusBadRequest, "validation_error")
	a.expectError(http.MethodPost, "/api/auth/login", "", map[string]interface{}{"email": "nobody@example.com", "password": "secret1"},
		http.StatusUnauthorized, "unauthenticated")
	a.expectError(http.MethodPost, "/api/auth/signup", "", map[string]interface{}{"name": "X", "email": "bad", "password": "1"},
		http.StatusBadRequest, "validation_error")

	var me struct {
		User struct {
			Role string `json:"role"`
		} `json:"user"`
	}
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/auth/me", customer, nil, &me))
	assert.Equal(t, "customer", me.User.Role)

	require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/api/auth/logout", customer, nil, nil))
	a.expectError(http.MethodGet, "/api/auth/me", customer, nil, http.StatusUnauthorized, "unauthenticated")
}

func TestCustomerCancelAndStateMachineInfo(t *testing.T) {
	a := newAPI(t)
	s := a.placeOrder()

	require.Equal(t, http.StatusOK, a.do(http.MethodPut, fmt.Sprintf("/api/business/orders/%d/status", s.order.Order.ID), s.owner,
		map[string]interface{}{"status": "confirmed"}, nil))
	a.expectError(http.MethodPut, fmt.Sprintf("/api/orders/%d/cancel", s.order.Order.ID), s.customer, nil,
		http.StatusUnprocessableEntity, "invalid_transition")

	var info struct {
		Transitions    []map[string]interface{} `json:"state_machine"`
		TerminalStates []string                 `json:"terminal_states"`
	}
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/state-machine", "", nil, &info))
	assert.NotEmpty(t, info.Transitions)
	assert.ElementsMatch(t, []string{"delivered", "cancelled"}, info.TerminalStates)

	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/health", "", nil, nil))
}

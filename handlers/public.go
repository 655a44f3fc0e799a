package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"food-delivery-backend/apperr"
	"food-delivery-backend/middleware"
	"food-delivery-backend/models"
	"food-delivery-backend/services"
	"food-delivery-backend/statemachine"
)

// ListProducts returns a filtered, sorted page of the catalog (public)
func (h *Handler) ListProducts(c *gin.Context) {
	var f services.ProductFilter
	if !bindQuery(c, &f) {
		return
	}
	page, err := h.svc.Catalog.List(c.Request.Context(), f)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// ListCategories returns the distinct product categories (public)
func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.svc.Catalog.Categories(c.Request.Context())
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

type searchQuery struct {
	services.Page
	Q string `form:"q"`
}

// SearchProducts matches available products by name, description or category
func (h *Handler) SearchProducts(c *gin.Context) {
	var q searchQuery
	if !bindQuery(c, &q) {
		return
	}
	page, err := h.svc.Catalog.Search(c.Request.Context(), q.Q, q.Page)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetBusinessProducts returns the menu of one business (public)
func (h *Handler) GetBusinessProducts(c *gin.Context) {
	businessID, ok := idParam(c, "businessId")
	if !ok {
		return
	}
	var available *bool
	if raw := c.Query("is_available"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			middleware.Error(c, apperr.Validation("is_available must be true or false"))
			return
		}
		available = &b
	}
	products, err := h.svc.Catalog.ByBusiness(c.Request.Context(), businessID, c.Query("category"), available)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(products), "products": products})
}

// GetProduct returns a single product (public)
func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	product, err := h.svc.Catalog.Get(c.Request.Context(), id)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

// GetStateMachineInfo returns the full state machine for informational purposes
func (h *Handler) GetStateMachineInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"state_machine":   statemachine.GetAllTransitions(),
		"statuses":        models.OrderStatuses,
		"terminal_states": models.TerminalStatuses,
		"description":     "Food Delivery Order Lifecycle State Machine",
	})
}

// Health reports liveness
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "Food Delivery Backend",
	})
}

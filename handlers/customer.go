package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"food-delivery-backend/middleware"
	"food-delivery-backend/services"
)

// GetProfile returns the caller's profile with their addresses
func (h *Handler) GetProfile(c *gin.Context) {
	user, err := h.svc.Users.Profile(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateProfile changes name, phone or gender
func (h *Handler) UpdateProfile(c *gin.Context) {
	var req services.UpdateProfileInput
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.svc.Users.UpdateProfile(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully", "user": user})
}

// ChangePassword replaces the password and rotates the token
func (h *Handler) ChangePassword(c *gin.Context) {
	var req services.ChangePasswordInput
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.Auth.ChangePassword(c.Request.Context(), caller(c), req)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully", "token": res.Token})
}

// PlaceOrder creates a new order (customer only)
func (h *Handler) PlaceOrder(c *gin.Context) {
	var req services.PlaceOrderInput
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.svc.Orders.Place(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Order placed successfully", "order": order})
}

// GetMyOrders returns the customer's order history, newest first
func (h *Handler) GetMyOrders(c *gin.Context) {
	orders, err := h.svc.Orders.History(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(orders), "orders": orders})
}

// TrackOrder returns one of the customer's orders with its status history
func (h *Handler) TrackOrder(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}
	order, err := h.svc.Orders.Track(c.Request.Context(), middleware.GetUserID(c), orderID)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

type cancelRequest struct {
	Note string `json:"note" binding:"max=500"`
}

// CancelOrder lets a customer withdraw a pending order
func (h *Handler) CancelOrder(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req cancelRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	order, err := h.svc.Orders.Cancel(c.Request.Context(), caller(c), orderID, req.Note)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order cancelled", "order": order})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"food-delivery-backend/middleware"
	"food-delivery-backend/services"
)

func (h *Handler) GetDeliveryProfile(c *gin.Context) {
	partner, err := h.svc.Delivery.Profile(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"delivery_partner": partner})
}

func (h *Handler) UpdateDeliveryProfile(c *gin.Context) {
	var req services.DeliveryProfileInput
	if !bindJSON(c, &req) {
		return
	}
	partner, err := h.svc.Delivery.UpdateProfile(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully", "delivery_partner": partner})
}

// GetAssignedOrders returns orders currently out for delivery with the caller
func (h *Handler) GetAssignedOrders(c *gin.Context) {
	orders, err := h.svc.Orders.PartnerAssigned(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(orders), "orders": orders})
}

// GetDeliveryHistory returns the caller's delivered orders
func (h *Handler) GetDeliveryHistory(c *gin.Context) {
	orders, err := h.svc.Orders.PartnerHistory(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(orders), "orders": orders})
}

// UpdateDeliveryStatus marks an assigned order delivered or cancelled
func (h *Handler) UpdateDeliveryStatus(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req services.StatusInput
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.svc.Orders.PartnerUpdateStatus(c.Request.Context(), caller(c), orderID, req)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order status updated to " + string(order.Status), "order": order})
}

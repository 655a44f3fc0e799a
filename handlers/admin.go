package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"food-delivery-backend/middleware"
	"food-delivery-backend/services"
)

// AdminGetAllOrders returns a filtered page of orders with a status summary
func (h *Handler) AdminGetAllOrders(c *gin.Context) {
	var f services.OrderFilter
	if !bindQuery(c, &f) {
		return
	}
	list, err := h.svc.Orders.AdminList(c.Request.Context(), f)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// AdminAssignOrder assigns a delivery partner, moving the order out for delivery
func (h *Handler) AdminAssignOrder(c *gin.Context) {
	var req services.AssignInput
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.svc.Orders.Assign(c.Request.Context(), caller(c), req)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order assigned successfully", "order": order})
}

// AdminForceOrderStatus moves an order along the lifecycle as admin
func (h *Handler) AdminForceOrderStatus(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req services.StatusInput
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.svc.Orders.AdminUpdateStatus(c.Request.Context(), caller(c), orderID, req)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order status updated to " + string(order.Status), "order": order})
}

// AdminGetAllUsers lists users, optionally by role
func (h *Handler) AdminGetAllUsers(c *gin.Context) {
	var f services.UserFilter
	if !bindQuery(c, &f) {
		return
	}
	page, err := h.svc.Admin.Users(c.Request.Context(), f)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) AdminGetAllBusinesses(c *gin.Context) {
	var p services.Page
	if !bindQuery(c, &p) {
		return
	}
	page, err := h.svc.Admin.Businesses(c.Request.Context(), p)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) AdminGetAllDeliveryPartners(c *gin.Context) {
	var p services.Page
	if !bindQuery(c, &p) {
		return
	}
	page, err := h.svc.Admin.DeliveryPartners(c.Request.Context(), p)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// AdminDeleteBusiness archives a business and its products
func (h *Handler) AdminDeleteBusiness(c *gin.Context) {
	businessID, ok := idParam(c, "id")
	if !ok {
		return
	}
	res, err := h.svc.Admin.DeleteBusiness(c.Request.Context(), businessID)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Business deleted", "deletion": res})
}

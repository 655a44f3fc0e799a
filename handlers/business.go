package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"food-delivery-backend/middleware"
	"food-delivery-backend/models"
	"food-delivery-backend/services"
)

// GetBusinessProfile returns the business owned by the caller
func (h *Handler) GetBusinessProfile(c *gin.Context) {
	business, err := h.svc.Businesses.Profile(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"business": business})
}

// UpdateBusinessProfile updates the caller's business details
func (h *Handler) UpdateBusinessProfile(c *gin.Context) {
	var req services.BusinessProfileInput
	if !bindJSON(c, &req) {
		return
	}
	business, err := h.svc.Businesses.UpdateProfile(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Business profile updated successfully", "business": business})
}

// GetMenu returns every product of the caller's business, available or not
func (h *Handler) GetMenu(c *gin.Context) {
	products, err := h.svc.Businesses.Menu(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(products), "menu": products})
}

// AddProduct adds a product to the caller's business
func (h *Handler) AddProduct(c *gin.Context) {
	var req services.ProductInput
	if !bindJSON(c, &req) {
		return
	}
	product, err := h.svc.Catalog.Create(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Product added successfully", "product": product})
}

// UpdateProduct changes a product the caller's business owns
func (h *Handler) UpdateProduct(c *gin.Context) {
	productID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req services.ProductUpdate
	if !bindJSON(c, &req) {
		return
	}
	product, err := h.svc.Catalog.Update(c.Request.Context(), middleware.GetUserID(c), productID, req)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product updated successfully", "product": product})
}

// DeleteProduct archives a product the caller's business owns
func (h *Handler) DeleteProduct(c *gin.Context) {
	productID, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Catalog.Delete(c.Request.Context(), middleware.GetUserID(c), productID); err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

// GetBusinessOrders returns the business's non-terminal orders
func (h *Handler) GetBusinessOrders(c *gin.Context) {
	orders, err := h.svc.Orders.BusinessActive(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		middleware.Error(c, err)
		return
	}

	// Group counts by status for the dashboard
	summary := map[models.OrderStatus]int{}
	for _, o := range orders {
		summary[o.Status]++
	}

	c.JSON(http.StatusOK, gin.H{
		"order_summary": summary,
		"count":         len(orders),
		"orders":        orders,
	})
}

// GetBusinessOrderHistory returns delivered and cancelled orders
func (h *Handler) GetBusinessOrderHistory(c *gin.Context) {
	orders, err := h.svc.Orders.BusinessHistory(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(orders), "orders": orders})
}

// UpdateOrderStatus handles the business's state transitions
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req services.StatusInput
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.svc.Orders.BusinessUpdateStatus(c.Request.Context(), caller(c), orderID, req)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order status updated to " + string(order.Status), "order": order})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"food-delivery-backend/middleware"
	"food-delivery-backend/services"
)

func (h *Handler) ListAddresses(c *gin.Context) {
	addresses, err := h.svc.Addresses.List(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(addresses), "addresses": addresses})
}

func (h *Handler) CreateAddress(c *gin.Context) {
	var req services.AddressInput
	if !bindJSON(c, &req) {
		return
	}
	address, err := h.svc.Addresses.Create(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Address added successfully", "address": address})
}

func (h *Handler) DefaultAddress(c *gin.Context) {
	address, err := h.svc.Addresses.Default(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": address})
}

func (h *Handler) GetAddress(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	address, err := h.svc.Addresses.Get(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": address})
}

func (h *Handler) UpdateAddress(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req services.AddressUpdate
	if !bindJSON(c, &req) {
		return
	}
	address, err := h.svc.Addresses.Update(c.Request.Context(), middleware.GetUserID(c), id, req)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Address updated successfully", "address": address})
}

// SetDefaultAddress makes the address the caller's only default
func (h *Handler) SetDefaultAddress(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	address, err := h.svc.Addresses.SetDefault(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Default address updated", "address": address})
}

func (h *Handler) DeleteAddress(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Addresses.Delete(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Address deleted successfully"})
}

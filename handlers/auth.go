package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"food-delivery-backend/middleware"
	"food-delivery-backend/services"
)

// Signup registers a customer account
func (h *Handler) Signup(c *gin.Context) {
	var req services.SignupInput
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.Auth.Signup(c.Request.Context(), req)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "User created successfully", "token": res.Token, "user": res.User})
}

// SignupBusiness registers a business owner together with the business profile
func (h *Handler) SignupBusiness(c *gin.Context) {
	var req services.BusinessSignupInput
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.Auth.SignupBusiness(c.Request.Context(), req)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Business account created successfully", "token": res.Token, "user": res.User})
}

// SignupDelivery registers a delivery partner
func (h *Handler) SignupDelivery(c *gin.Context) {
	var req services.DeliverySignupInput
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.Auth.SignupDelivery(c.Request.Context(), req)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Delivery partner account created successfully", "token": res.Token, "user": res.User})
}

// SignupAdmin registers an admin when admin signup is enabled
func (h *Handler) SignupAdmin(c *gin.Context) {
	var req services.SignupInput
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.Auth.SignupAdmin(c.Request.Context(), req)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Admin account created successfully", "token": res.Token, "user": res.User})
}

// Login authenticates a user and returns a token
func (h *Handler) Login(c *gin.Context) {
	var req services.LoginInput
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.Auth.Login(c.Request.Context(), req)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Login successful", "token": res.Token, "user": res.User})
}

// Logout revokes the presented token
func (h *Handler) Logout(c *gin.Context) {
	if err := h.svc.Auth.Logout(c.Request.Context(), caller(c)); err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me returns the authenticated user
func (h *Handler) Me(c *gin.Context) {
	user, err := h.svc.Auth.CurrentUser(c.Request.Context(), caller(c))
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

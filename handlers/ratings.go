package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"food-delivery-backend/middleware"
	"food-delivery-backend/services"
)

// RateProduct creates or replaces the caller's rating of a product
func (h *Handler) RateProduct(c *gin.Context) {
	productID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req services.RateInput
	if !bindJSON(c, &req) {
		return
	}
	rating, created, err := h.svc.Ratings.Rate(c.Request.Context(), middleware.GetUserID(c), productID, req)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	if created {
		c.JSON(http.StatusCreated, gin.H{"message": "Rating added successfully", "rating": rating})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Rating updated successfully", "rating": rating})
}

// ListRatings returns a page of a product's ratings with its aggregate
func (h *Handler) ListRatings(c *gin.Context) {
	productID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var f services.RatingFilter
	if !bindQuery(c, &f) {
		return
	}
	page, err := h.svc.Ratings.List(c.Request.Context(), productID, f)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) RatingStats(c *gin.Context) {
	productID, ok := idParam(c, "id")
	if !ok {
		return
	}
	stats, err := h.svc.Ratings.Stats(c.Request.Context(), productID)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

func (h *Handler) MyRating(c *gin.Context) {
	productID, ok := idParam(c, "id")
	if !ok {
		return
	}
	rating, err := h.svc.Ratings.Mine(c.Request.Context(), middleware.GetUserID(c), productID)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rating": rating})
}

func (h *Handler) UpdateMyRating(c *gin.Context) {
	productID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req services.RatingUpdate
	if !bindJSON(c, &req) {
		return
	}
	rating, err := h.svc.Ratings.UpdateMine(c.Request.Context(), middleware.GetUserID(c), productID, req)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Rating updated successfully", "rating": rating})
}

func (h *Handler) DeleteMyRating(c *gin.Context) {
	productID, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Ratings.DeleteMine(c.Request.Context(), middleware.GetUserID(c), productID); err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Rating deleted successfully"})
}

// MarkHelpful counts a helpful vote on a rating
func (h *Handler) MarkHelpful(c *gin.Context) {
	productID, ok := idParam(c, "id")
	if !ok {
		return
	}
	ratingID, ok := idParam(c, "ratingId")
	if !ok {
		return
	}
	helpful, err := h.svc.Ratings.MarkHelpful(c.Request.Context(), productID, ratingID)
	if err != nil {
		middleware.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Marked as helpful", "helpful": helpful})
}

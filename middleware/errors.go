package middleware

import (
	"github.com/gin-gonic/gin"

	"food-delivery-backend/apperr"
)

// Error writes err as {"error": ..., "kind": ...} with the status of its
// kind. The error is attached to the gin context so the request logger
// records the underlying cause.
func Error(c *gin.Context, err error) {
	e := apperr.From(c.HandlerName(), err)
	_ = c.Error(e)
	c.JSON(e.Status(), gin.H{"error": e.Message(), "kind": e.Kind})
}

// Abort is Error followed by c.Abort.
func Abort(c *gin.Context, err error) {
	Error(c, err)
	c.Abort()
}

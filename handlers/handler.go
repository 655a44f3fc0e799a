// Package handlers adapts HTTP requests onto the service layer.
package handlers

import (
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"food-delivery-backend/apperr"
	"food-delivery-backend/auth"
	"food-delivery-backend/middleware"
	"food-delivery-backend/services"
)

type Handler struct {
	svc *services.Services
}

func New(svc *services.Services) *Handler {
	return &Handler{svc: svc}
}

var registerOnce sync.Once

// RegisterValidations installs the domain validators on gin's binder so
// request bodies are checked with the same rules the services use.
func RegisterValidations() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		err = services.RegisterValidations(v)
	})
	return err
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		middleware.Error(c, services.ValidationError(err))
		return false
	}
	return true
}

func bindQuery(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		middleware.Error(c, services.ValidationError(err))
		return false
	}
	return true
}

// idParam parses a positive numeric path parameter.
func idParam(c *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		middleware.Error(c, apperr.Validation("invalid %s", name))
		return 0, false
	}
	return uint(n), true
}

func caller(c *gin.Context) auth.Identity {
	id, _ := middleware.CurrentIdentity(c)
	return id
}

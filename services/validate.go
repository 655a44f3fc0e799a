package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"food-delivery-backend/apperr"
	"food-delivery-backend/models"
)

// Input structs carry `binding` tags so the same rules run in gin's binder
// and again at the service boundary (CLI callers skip the binder).
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	if err := RegisterValidations(v); err != nil {
		panic(err)
	}
	return v
}

// RegisterValidations adds the domain validators and reports field names by
// their json tag.
func RegisterValidations(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	for tag, fn := range map[string]validator.Func{
		"order_status":  stringValid(func(s string) bool { return models.OrderStatus(s).Valid() }),
		"role":          stringValid(func(s string) bool { return models.Role(s).Valid() }),
		"gender":        stringValid(func(s string) bool { return models.Gender(s).Valid() }),
		"address_label": stringValid(func(s string) bool { return models.AddressLabel(s).Valid() }),
	} {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

func stringValid(ok func(string) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		f := fl.Field()
		if f.Kind() != reflect.String {
			return false
		}
		return ok(f.String())
	}
}

func validateInput(in interface{}) error {
	if err := validate.Struct(in); err != nil {
		return ValidationError(err)
	}
	return nil
}

// ValidationError turns a binder or validator failure into a
// validation_error with a readable message.
func ValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation("invalid request body: %v", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return apperr.Validation("%s", strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min", "gte":
		if fe.Kind() == reflect.String || fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must have at least %s characters or items", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		if fe.Kind() == reflect.String || fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must have at most %s characters or items", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "order_status":
		return fmt.Sprintf("%s must be one of %s", field, joinStatuses(models.OrderStatuses))
	case "role":
		return fmt.Sprintf("%s must be one of customer, business, delivery, admin", field)
	case "gender":
		return fmt.Sprintf("%s must be one of male, female, other, prefer_not_to_say", field)
	case "address_label":
		return fmt.Sprintf("%s must be one of home, work, other", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, fe.Param())
	}
	return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
}

func joinStatuses(ss []models.OrderStatus) string {
	parts := make([]string, len(ss))
	for i, s := range ss {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

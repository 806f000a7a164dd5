package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldErrors maps each failing field to a readable message. It returns nil
// when err is not a validation error.
func fieldErrors(err error) map[string]string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}

	out := make(map[string]string, len(ve))
	for _, fe := range ve {
		if _, seen := out[fe.Field()]; seen {
			continue
		}
		out[fe.Field()] = fieldMessage(fe)
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters long", field, fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at least %s item(s)", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters long", field, fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at most %s item(s)", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be %s or greater", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be %s or less", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "uuid":
		return fmt.Sprintf("%s must be a valid id", field)
	case "datetime":
		return fmt.Sprintf("%s must match the format %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// validateRequest writes a 400 with per-field messages when req is invalid.
// It returns true when the handler should stop.
func validateRequest(c *fiber.Ctx, req any) (bool, error) {
	err := validate.Struct(req)
	if err == nil {
		return false, nil
	}
	fields := fieldErrors(err)
	if fields == nil {
		return true, badRequest(c, "Invalid request body")
	}
	return true, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":  "Validation failed",
		"fields": fields,
	})
}

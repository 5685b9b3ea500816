package http

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"gridgame/internal/apperr"
)

var validate = validator.New()

// validationMiddleware parses the request body into the struct that
// matches method+path, validates it with go-playground/validator, and
// stashes the parsed, validated body in Locals for the handler to read
// back out. Grounded on the teacher's validationMiddleware, with the
// path switch updated for this module's routes.
func validationMiddleware(c *fiber.Ctx) error {
	method := c.Method()
	if method == fiber.MethodGet || method == fiber.MethodDelete || method == fiber.MethodOptions {
		return c.Next()
	}

	path := c.Path()
	var req any

	switch {
	case strings.HasSuffix(path, "/users") && method == fiber.MethodPost:
		req = &createUserRequest{}
	case strings.HasSuffix(path, "/sessions") && method == fiber.MethodPost:
		req = &createSessionRequest{}
	case strings.HasSuffix(path, "/join") && method == fiber.MethodPost:
		req = &joinSessionRequest{}
	case strings.HasSuffix(path, "/move") && method == fiber.MethodPost:
		req = &submitMoveRequest{}
	default:
		return c.Next()
	}

	if err := c.BodyParser(req); err != nil {
		return apperr.Validation(apperr.CodeInvalidRequest, "malformed request body")
	}

	if errs := validate.Struct(req); errs != nil {
		return apperr.Validation(apperr.CodeInvalidRequest, describeValidationErrors(errs))
	}

	c.Locals("validatedBody", req)
	return c.Next()
}

func describeValidationErrors(errs error) string {
	fieldErrs, ok := errs.(validator.ValidationErrors)
	if !ok {
		return errs.Error()
	}

	var details strings.Builder
	for _, fe := range fieldErrs {
		if details.Len() > 0 {
			details.WriteString("; ")
		}
		switch fe.Tag() {
		case "required":
			details.WriteString(fmt.Sprintf("%s is required", fe.Field()))
		case "oneof":
			details.WriteString(fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param()))
		case "min":
			if fe.Type().Kind() == reflect.String {
				details.WriteString(fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param()))
			} else {
				details.WriteString(fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
			}
		case "max":
			if fe.Type().Kind() == reflect.String {
				details.WriteString(fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
			} else {
				details.WriteString(fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param()))
			}
		case "gte":
			details.WriteString(fmt.Sprintf("%s must be >= %s", fe.Field(), fe.Param()))
		default:
			details.WriteString(fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
		}
	}
	return details.String()
}

func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

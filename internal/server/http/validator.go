package http

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"llmchess/internal/server/core"
)

var validate = newValidator()

// newValidator reports fields by their JSON names
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// bodyRoute maps a method and path suffix to the request type it carries
type bodyRoute struct {
	method   string
	suffix   string
	newBody  func() any
	optional bool // an empty body is a zero request
}

var bodyRoutes = []bodyRoute{
	{fiber.MethodPost, "/games", func() any { return &core.CreateGameRequest{} }, false},
	{fiber.MethodPut, "/players", func() any { return &core.ConfigurePlayersRequest{} }, false},
	{fiber.MethodPost, "/moves", func() any { return &core.MoveRequest{} }, false},
	{fiber.MethodPost, "/promotion", func() any { return &core.PromotionRequest{} }, false},
	{fiber.MethodPost, "/undo", func() any { return &core.UndoRequest{} }, true},
}

func matchBodyRoute(method, path string) (bodyRoute, bool) {
	for _, r := range bodyRoutes {
		if r.method == method && strings.HasSuffix(path, r.suffix) {
			return r, true
		}
	}
	return bodyRoute{}, false
}

// validationMiddleware parses and validates JSON bodies of the routes that take one.
// Handlers read the result back with validatedBody.
func validationMiddleware(c *fiber.Ctx) error {
	route, ok := matchBodyRoute(c.Method(), c.Path())
	if !ok {
		return c.Next()
	}

	body := route.newBody()
	if !(route.optional && len(c.Body()) == 0) {
		if err := c.BodyParser(body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
				Error:   "invalid request body",
				Code:    core.ErrInvalidRequest,
				Details: err.Error(),
			})
		}

		if err := validate.Struct(body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
				Error:   "validation failed",
				Code:    core.ErrInvalidRequest,
				Details: describeValidation(err),
			})
		}
	}

	c.Locals("validatedBody", body)
	c.Locals("validated", true)
	return c.Next()
}

func describeValidation(err error) string {
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describeField(fe))
	}
	return strings.Join(msgs, "; ")
}

func describeField(fe validator.FieldError) string {
	field := fe.Namespace()
	if _, rest, found := strings.Cut(field, "."); found {
		field = rest
	}

	unit := ""
	if fe.Kind() == reflect.String {
		unit = " characters"
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s%s", field, fe.Param(), unit)
	case "max":
		return fmt.Sprintf("%s must be at most %s%s", field, fe.Param(), unit)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

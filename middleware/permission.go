package middleware

import (
	"lms/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
)

// RequireRole lets the request through only when the token's role is one of
// roles. It must run after JWTMiddleware.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := c.Locals("userId").(uint); !ok {
			return JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized: User ID not found", nil)
		}
		role, _ := c.Locals("role").(string)
		for _, r := range roles {
			if r == role {
				return c.Next()
			}
		}
		return JsonResponse(c, fiber.StatusForbidden, false, "You do not have permission to access this resource!", nil)
	}
}

var kindStatus = map[apperr.Kind]int{
	apperr.NotFound:          fiber.StatusNotFound,
	apperr.Unauthorized:      fiber.StatusForbidden,
	apperr.Validation:        fiber.StatusUnprocessableEntity,
	apperr.AlreadySubmitted:  fiber.StatusConflict,
	apperr.IncompleteAnswers: fiber.StatusConflict,
	apperr.DeadlinePassed:    fiber.StatusForbidden,
	apperr.Configuration:     fiber.StatusInternalServerError,
}

// ErrorResponse writes err in the standard envelope. Unclassified errors never
// leak their text.
func ErrorResponse(c *fiber.Ctx, err error) error {
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Kind == apperr.Internal {
		return JsonResponse(c, fiber.StatusInternalServerError, false, "Something went wrong, please try again later!", nil)
	}
	status, ok := kindStatus[ae.Kind]
	if !ok {
		status = fiber.StatusInternalServerError
	}
	if ae.Kind == apperr.Validation && len(ae.Fields) > 0 {
		return JsonResponse(c, status, false, ae.Message, ae.Fields)
	}
	return JsonResponse(c, status, false, ae.Message, fiber.Map{"code": ae.Kind})
}

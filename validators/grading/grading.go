package gradingValidator

import (
	"lms/middleware"
	quizValidator "lms/validators/quiz"

	"github.com/gofiber/fiber/v2"
)

func Course() fiber.Handler {
	return func(c *fiber.Ctx) error {
		courseID, ok := quizValidator.ParseID(c, "course_id")
		if !ok {
			return middleware.ValidationErrorResponse(c, map[string]string{"course_id": "A valid course ID is required in the URL!"})
		}
		c.Locals("courseID", courseID)
		return c.Next()
	}
}

func Skill() fiber.Handler {
	return func(c *fiber.Ctx) error {
		skillID, ok := quizValidator.ParseID(c, "skill_id")
		if !ok {
			return middleware.ValidationErrorResponse(c, map[string]string{"skill_id": "A valid skill ID is required in the URL!"})
		}
		c.Locals("skillID", skillID)
		return c.Next()
	}
}

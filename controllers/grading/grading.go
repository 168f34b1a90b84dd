package gradingControllers

import (
	"lms/middleware"
	"lms/services/grading"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	engine *grading.Engine
}

func NewHandler(engine *grading.Engine) *Handler {
	return &Handler{engine: engine}
}

func (h *Handler) StudentCourseGrades(c *fiber.Ctx) error {
	userId, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	grade, err := h.engine.StudentCourseGrades(c.UserContext(), userId, c.Locals("courseID").(uint))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course grades fetched successfully!", grade)
}

// CourseStudentGrades is the instructor roster for one course.
func (h *Handler) CourseStudentGrades(c *fiber.Ctx) error {
	roster, err := h.engine.CourseStudentGrades(c.UserContext(), c.Locals("courseID").(uint))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Student grades fetched successfully!", roster)
}

func (h *Handler) StudentSkillAssessment(c *fiber.Ctx) error {
	userId, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	res, err := h.engine.StudentSkillAssessment(c.UserContext(), userId, c.Locals("skillID").(uint))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Skill assessment fetched successfully!", res)
}

func (h *Handler) StudentSummary(c *fiber.Ctx) error {
	userId, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	summary, err := h.engine.StudentSummary(c.UserContext(), userId)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Summary fetched successfully!", summary)
}

func (h *Handler) StudentCompetencyReport(c *fiber.Ctx) error {
	userId, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	report, err := h.engine.StudentCompetencyReport(c.UserContext(), userId)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Competency report fetched successfully!", report)
}

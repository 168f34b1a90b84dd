package gradeRoutes

import (
	gradingControllers "lms/controllers/grading"
	"lms/middleware"
	"lms/models"
	gradingValidator "lms/validators/grading"

	"github.com/gofiber/fiber/v2"
)

func SetupGradeRoutes(app *fiber.App, h *gradingControllers.Handler) {
	gradeGroup := app.Group("/grades", middleware.JWTMiddleware)

	gradeGroup.Get("/summary", h.StudentSummary)
	gradeGroup.Get("/competency", h.StudentCompetencyReport)
	gradeGroup.Get("/course/:course_id", gradingValidator.Course(), h.StudentCourseGrades)
	gradeGroup.Get("/course/:course_id/students",
		middleware.RequireRole(models.RoleInstructor, models.RoleAdmin),
		gradingValidator.Course(), h.CourseStudentGrades)
	gradeGroup.Get("/skill/:skill_id", gradingValidator.Skill(), h.StudentSkillAssessment)
}

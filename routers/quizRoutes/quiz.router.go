package quizRoutes

import (
	quizControllers "lms/controllers/quiz"
	"lms/middleware"
	quizValidator "lms/validators/quiz"

	"github.com/gofiber/fiber/v2"
)

func SetupQuizRoutes(app *fiber.App, h *quizControllers.Handler) {
	quizGroup := app.Group("/quiz", middleware.JWTMiddleware)

	quizGroup.Post("/activity/:activity_id/start", quizValidator.StartQuiz(), h.Start)
	quizGroup.Post("/attempt/:attempt_id/question/:question_id/answer", quizValidator.SubmitAnswer(), h.SubmitAnswer)
	quizGroup.Post("/attempt/:attempt_id/submit", quizValidator.Attempt(), h.Submit)
	quizGroup.Get("/attempt/:attempt_id/results", quizValidator.Attempt(), h.Results)
}

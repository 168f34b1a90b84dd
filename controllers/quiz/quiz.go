package quizControllers

import (
	"lms/middleware"
	quizService "lms/services/quiz"
	quizValidator "lms/validators/quiz"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	svc *quizService.Service
}

func NewHandler(svc *quizService.Service) *Handler {
	return &Handler{svc: svc}
}

// Start begins or resumes the caller's attempt on a quiz activity.
func (h *Handler) Start(c *fiber.Ctx) error {
	userId, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	activityID := c.Locals("activityID").(uint)

	res, err := h.svc.Start(c.UserContext(), userId, activityID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	switch {
	case res.AlreadyCompleted:
		return middleware.JsonResponse(c, fiber.StatusOK, true, "You have already completed this quiz!", res)
	case res.Resumed:
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Quiz attempt resumed!", res)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Quiz attempt started!", res)
}

func (h *Handler) SubmitAnswer(c *fiber.Ctx) error {
	userId, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	reqData, ok := c.Locals("validatedAnswer").(*quizValidator.AnswerPayload)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	answer, err := h.svc.SubmitAnswer(c.UserContext(), userId, c.Locals("attemptID").(uint), quizService.AnswerInput{
		QuestionID:       c.Locals("questionID").(uint),
		SelectedOptionID: reqData.SelectedOptionID,
		AnswerText:       reqData.AnswerText,
	})
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Answer saved!", answer)
}

func (h *Handler) Submit(c *fiber.Ctx) error {
	userId, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	res, err := h.svc.Submit(c.UserContext(), userId, c.Locals("attemptID").(uint))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, res.Message, res)
}

func (h *Handler) Results(c *fiber.Ctx) error {
	userId, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	res, err := h.svc.Results(c.UserContext(), userId, c.Locals("attemptID").(uint))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Quiz results fetched successfully!", res)
}

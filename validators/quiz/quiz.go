package quizValidator

import (
	"reflect"
	"strconv"
	"strings"

	"lms/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New()
	// report json names so the client sees the keys it sent
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// AnswerPayload is the body of an answer submission.
type AnswerPayload struct {
	SelectedOptionID *uint  `json:"selected_option_id" validate:"omitempty,gt=0"`
	AnswerText       string `json:"answer_text" validate:"required_without=SelectedOptionID,max=5000"`
}

func fieldErrors(err error) map[string]string {
	out := map[string]string{}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		out["body"] = "Invalid request body!"
		return out
	}
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required_without":
			out[fe.Field()] = "Provide answer_text or selected_option_id!"
		case "max":
			out[fe.Field()] = "Must not exceed " + fe.Param() + " characters!"
		case "gt":
			out[fe.Field()] = "Must be a positive id!"
		default:
			out[fe.Field()] = "Invalid value!"
		}
	}
	return out
}

// ParseID reads a positive integer path parameter.
func ParseID(c *fiber.Ctx, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Params(name))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func StartQuiz() fiber.Handler {
	return func(c *fiber.Ctx) error {
		activityID, ok := ParseID(c, "activity_id")
		if !ok {
			return middleware.ValidationErrorResponse(c, map[string]string{"activity_id": "A valid activity ID is required in the URL!"})
		}
		c.Locals("activityID", activityID)
		return c.Next()
	}
}

func Attempt() fiber.Handler {
	return func(c *fiber.Ctx) error {
		attemptID, ok := ParseID(c, "attempt_id")
		if !ok {
			return middleware.ValidationErrorResponse(c, map[string]string{"attempt_id": "A valid attempt ID is required in the URL!"})
		}
		c.Locals("attemptID", attemptID)
		return c.Next()
	}
}

func SubmitAnswer() fiber.Handler {
	return func(c *fiber.Ctx) error {
		errors := make(map[string]string)

		attemptID, ok := ParseID(c, "attempt_id")
		if !ok {
			errors["attempt_id"] = "A valid attempt ID is required in the URL!"
		}
		questionID, ok := ParseID(c, "question_id")
		if !ok {
			errors["question_id"] = "A valid question ID is required in the URL!"
		}

		reqData := new(AnswerPayload)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}
		reqData.AnswerText = strings.TrimSpace(reqData.AnswerText)
		if err := validate.Struct(reqData); err != nil {
			for k, v := range fieldErrors(err) {
				errors[k] = v
			}
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("attemptID", attemptID)
		c.Locals("questionID", questionID)
		c.Locals("validatedAnswer", reqData)
		return c.Next()
	}
}

package quizControllers_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lms/config"
	quizControllers "lms/controllers/quiz"
	"lms/middleware"
	"lms/models"
	courseModels "lms/models/course"
	"lms/routers/quizRoutes"
	quizService "lms/services/quiz"
	"lms/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type harness struct {
	app   *fiber.App
	token string
	quiz  *courseModels.Quiz
	act   *courseModels.Activity
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	config.AppConfig = &config.Config{JWTKey: "test-secret"}

	db := testutil.DB(t)
	clock := testutil.NewClock(time.Date(2026, 4, 20, 9, 0, 0, 0, time.UTC))
	student := testutil.SeedUser(t, db, "ana")
	course := testutil.SeedCourse(t, db, "Biology")
	mod := testutil.SeedModule(t, db, course.ID, "Cells", nil)
	due := clock.Now().Add(24 * time.Hour)
	act := testutil.SeedActivity(t, db, mod.ID, courseModels.ActivityQuiz, &due)
	quiz := testutil.SeedQuiz(t, db, act, 5, 5)

	svc := quizService.NewService(db, testutil.Logger(t), quizService.Options{Clock: clock.Now})
	app := fiber.New()
	quizRoutes.SetupQuizRoutes(app, quizControllers.NewHandler(svc))

	token, err := middleware.GenerateJWT(student.ID, models.RoleStudent)
	require.NoError(t, err)
	return &harness{app: app, token: token, quiz: quiz, act: act}
}

func (h *harness) do(t *testing.T, method, path, body string) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.token)
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func (h *harness) start(t *testing.T) uint {
	t.Helper()
	status, env := h.do(t, http.MethodPost, fmt.Sprintf("/quiz/activity/%d/start", h.act.ID), "")
	require.Equal(t, fiber.StatusCreated, status, env.Message)
	var res struct {
		Attempt struct {
			ID uint `json:"ID"`
		} `json:"attempt"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	return res.Attempt.ID
}

func (h *harness) answer(t *testing.T, attemptID uint, q courseModels.Question, optionIdx int) int {
	t.Helper()
	body := fmt.Sprintf(`{"selected_option_id": %d}`, q.Options[optionIdx].ID)
	status, _ := h.do(t, http.MethodPost, fmt.Sprintf("/quiz/attempt/%d/question/%d/answer", attemptID, q.ID), body)
	return status
}

func TestQuizFlowOverHTTP(t *testing.T) {
	h := newHarness(t)
	attemptID := h.start(t)

	status, env := h.do(t, http.MethodPost, fmt.Sprintf("/quiz/activity/%d/start", h.act.ID), "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Quiz attempt resumed!", env.Message)

	require.Equal(t, fiber.StatusOK, h.answer(t, attemptID, h.quiz.Questions[0], 0))

	// one of two answered
	status, env = h.do(t, http.MethodPost, fmt.Sprintf("/quiz/attempt/%d/submit", attemptID), "")
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Contains(t, env.Message, "1 of 2")

	require.Equal(t, fiber.StatusOK, h.answer(t, attemptID, h.quiz.Questions[1], 1))

	status, env = h.do(t, http.MethodPost, fmt.Sprintf("/quiz/attempt/%d/submit", attemptID), "")
	require.Equal(t, fiber.StatusOK, status, env.Message)
	var res quizService.SubmitResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 5.0, res.Score)
	assert.Equal(t, 50.0, res.PercentageScore)
	assert.False(t, res.Passed)

	status, _ = h.do(t, http.MethodPost, fmt.Sprintf("/quiz/attempt/%d/submit", attemptID), "")
	assert.Equal(t, fiber.StatusConflict, status)

	status, env = h.do(t, http.MethodGet, fmt.Sprintf("/quiz/attempt/%d/results", attemptID), "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.True(t, env.Status)

	status, env = h.do(t, http.MethodPost, fmt.Sprintf("/quiz/activity/%d/start", h.act.ID), "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "You have already completed this quiz!", env.Message)
}

func TestAnswerValidation(t *testing.T) {
	h := newHarness(t)
	attemptID := h.start(t)
	q := h.quiz.Questions[0]

	status, env := h.do(t, http.MethodPost, fmt.Sprintf("/quiz/attempt/%d/question/%d/answer", attemptID, q.ID), `{"answer_text": "   "}`)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	var fields map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &fields))
	assert.Contains(t, fields, "answer_text")

	status, _ = h.do(t, http.MethodPost, fmt.Sprintf("/quiz/attempt/abc/question/%d/answer", q.ID), `{"answer_text": "x"}`)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	// option from another question
	other := h.quiz.Questions[1].Options[0].ID
	status, _ = h.do(t, http.MethodPost, fmt.Sprintf("/quiz/attempt/%d/question/%d/answer", attemptID, q.ID), fmt.Sprintf(`{"selected_option_id": %d}`, other))
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
}

func TestUnknownActivityAndMissingToken(t *testing.T) {
	h := newHarness(t)

	status, env := h.do(t, http.MethodPost, "/quiz/activity/9999/start", "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.False(t, env.Status)

	h.token = "garbage"
	status, _ = h.do(t, http.MethodPost, fmt.Sprintf("/quiz/activity/%d/start", h.act.ID), "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

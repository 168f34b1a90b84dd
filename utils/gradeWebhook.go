package utils

import (
	"context"
	"time"

	"lms/logger"
	quizService "lms/services/quiz"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// GradeEvent is the body posted to the student information system.
type GradeEvent struct {
	EventID    string                      `json:"event_id"`
	EventType  string                      `json:"event_type"`
	OccurredAt time.Time                   `json:"occurred_at"`
	Submission quizService.SubmissionEvent `json:"submission"`
}

// GradeWebhook posts quiz submissions to an external SIS endpoint.
type GradeWebhook struct {
	url    string
	secret string
	client *resty.Client
	log    *logger.Logger
}

func NewGradeWebhook(url, secret string, baseLog *logger.Logger) *GradeWebhook {
	client := resty.New().
		SetTimeout(10*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetHeader("Content-Type", "application/json")
	return &GradeWebhook{url: url, secret: secret, client: client, log: baseLog.With("service", "GradeWebhook")}
}

// Send delivers one event and returns its id.
func (w *GradeWebhook) Send(ctx context.Context, ev quizService.SubmissionEvent) (string, error) {
	body := GradeEvent{
		EventID:    uuid.NewString(),
		EventType:  "quiz.submitted",
		OccurredAt: time.Now().UTC(),
		Submission: ev,
	}
	resp, err := w.client.R().
		SetContext(ctx).
		SetHeader("X-Webhook-Secret", w.secret).
		SetHeader("X-Event-Id", body.EventID).
		SetBody(body).
		Post(w.url)
	if err != nil {
		return body.EventID, errors.Wrap(err, "post grade event")
	}
	if resp.IsError() {
		return body.EventID, errors.Errorf("grade webhook returned %d: %s", resp.StatusCode(), resp.String())
	}
	return body.EventID, nil
}

// QuizSubmitted sends in the background so a slow SIS never holds up a submit.
func (w *GradeWebhook) QuizSubmitted(_ context.Context, ev quizService.SubmissionEvent) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		id, err := w.Send(ctx, ev)
		if err != nil {
			w.log.Warn("[GRADE-WEBHOOK] delivery failed", "event_id", id, "attempt_id", ev.AttemptID, "error", err)
			return
		}
		w.log.Info("[GRADE-WEBHOOK] delivered", "event_id", id, "attempt_id", ev.AttemptID)
	}()
}

package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeKVs(t *testing.T) {
	got := sanitizeKVs([]interface{}{"attempt_id", 7, "webhook_secret", "abc", "Authorization", "Bearer x", "dangling"})
	assert.Equal(t, []interface{}{
		"attempt_id", 7,
		"webhook_secret", "[REDACTED]",
		"Authorization", "[REDACTED]",
		"dangling",
	}, got)
}

func TestSanitizeKVs_GradingKeys(t *testing.T) {
	got := sanitizeKVs([]interface{}{"DB_DSN", "host=db password=x", "answer_text", "my essay", "score", 9.5})
	assert.Equal(t, []interface{}{
		"DB_DSN", "[REDACTED]",
		"answer_text", "[REDACTED]",
		"score", 9.5,
	}, got)
}

func TestNew(t *testing.T) {
	for _, mode := range []string{"dev", "prod", "test"} {
		l, err := New(mode)
		assert.NoError(t, err, mode)
		assert.NotNil(t, l.With("service", "x"))
	}
}

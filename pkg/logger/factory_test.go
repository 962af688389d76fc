package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardwise/notifq/pkg/logger"
)

type ctxKey string

func logLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	return record
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("json output with static attrs", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(
			logger.WithOutput(&buf),
			logger.WithFormat(logger.FormatJSON),
			logger.WithAttr(slog.String("service", "notifq")),
		)

		log.Info("queue started", slog.Int("workers", 3))

		record := logLine(t, &buf)
		assert.Equal(t, "queue started", record["msg"])
		assert.Equal(t, "notifq", record["service"])
		assert.Equal(t, float64(3), record["workers"])
	})

	t.Run("level filtering", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(
			logger.WithOutput(&buf),
			logger.WithLevel(slog.LevelWarn),
		)

		log.Info("hidden")
		assert.Empty(t, buf.Bytes())

		log.Warn("visible")
		assert.NotEmpty(t, buf.Bytes())
	})

	t.Run("context extractor injects attributes", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		key := ctxKey("request_id")
		log := logger.New(
			logger.WithOutput(&buf),
			logger.WithContextValue("request_id", key),
		)

		ctx := context.WithValue(context.Background(), key, "req-42")
		log.InfoContext(ctx, "handled")

		record := logLine(t, &buf)
		assert.Equal(t, "req-42", record["request_id"])
	})

	t.Run("invalid format panics", func(t *testing.T) {
		t.Parallel()

		assert.Panics(t, func() {
			logger.New(logger.WithFormat(logger.Format("yaml")))
		})
	})
}

func TestAttrHelpers(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithOutput(&buf),
		logger.WithFormat(logger.FormatText),
	)

	log.Info("delivery failed",
		logger.Error(errors.New("smtp timeout")),
		logger.WorkerID("worker-1"),
		logger.Attempt(2),
	)

	out := buf.String()
	assert.Contains(t, out, `error="smtp timeout"`)
	assert.Contains(t, out, "worker_id=worker-1")
	assert.Contains(t, out, "attempt=2")
}

func TestAttrHelpersEmptyValues(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.Attr{}, logger.Error(nil))
	assert.Equal(t, slog.Attr{}, logger.WorkerID(""))
	assert.Equal(t, slog.Attr{}, logger.NotificationID(nil))
	assert.Equal(t, slog.Attr{}, logger.UserID(nil))
	assert.Equal(t, slog.Attr{}, logger.Channel(nil))
}

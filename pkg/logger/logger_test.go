package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuconvo/auth/pkg/environment"
	"github.com/docuconvo/auth/pkg/logger"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	return m
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(logger.WithOutput(&buf))

	log.Debug("hidden")
	assert.Zero(t, buf.Len(), "debug is below the default level")

	log.Info("hello", slog.String("k", "v"))
	m := decode(t, &buf)
	assert.Equal(t, "hello", m["msg"])
	assert.Equal(t, "v", m["k"])
}

func TestWithEnvironment(t *testing.T) {
	t.Parallel()

	t.Run("development is text at debug", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		log := logger.New(logger.WithOutput(&buf), logger.WithEnvironment("dev", "authd"))
		log.Debug("visible")
		out := buf.String()
		assert.Contains(t, out, "msg=visible")
		assert.Contains(t, out, "service=authd")
		assert.Contains(t, out, "env=development")
	})

	t.Run("production is json at info", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		log := logger.New(logger.WithOutput(&buf), logger.WithEnvironment("production", "authd"))
		log.Debug("hidden")
		assert.Zero(t, buf.Len())
		log.Info("shown")
		m := decode(t, &buf)
		assert.Equal(t, "production", m["env"])
		assert.Equal(t, "authd", m["service"])
	})
}

func TestWithConfig(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithOutput(&buf),
		logger.WithEnvironment("production", "authd"),
		logger.WithConfig(logger.Config{Level: "debug", Format: "TEXT"}),
	)
	log.Debug("overridden")
	assert.Contains(t, buf.String(), "msg=overridden")

	assert.Panics(t, func() {
		logger.New(logger.WithConfig(logger.Config{Format: "xml"}))
	})
}

func TestContextExtractors(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithOutput(&buf),
		logger.WithContextExtractors(nil, environment.LoggerExtractor(), logger.RequestIDExtractor()),
	)

	var ctx context.Context
	h := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx = environment.WithContext(r.Context(), environment.Staging)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotNil(t, ctx)

	log.With(logger.Component("test")).InfoContext(ctx, "with context")
	m := decode(t, &buf)
	assert.Equal(t, "staging", m["env"])
	assert.Equal(t, "test", m["component"])
	assert.NotEmpty(t, m["request_id"])

	buf.Reset()
	log.InfoContext(context.Background(), "without")
	m = decode(t, &buf)
	assert.NotContains(t, m, "request_id")
	assert.NotContains(t, m, "env")
}

func TestAttrs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.Attr{}, logger.Error(nil))
	assert.Equal(t, "error", logger.Error(errors.New("boom")).Key)
	assert.Equal(t, slog.Attr{}, logger.UserID(nil))
	assert.Equal(t, "user_id", logger.UserID("u1").Key)
	assert.Equal(t, "google", logger.Provider("google").Value.String())

	tests := map[string]string{
		"jane@example.com": "j***@example.com",
		"a@b.c":            "a***@b.c",
		"not-an-email":     "***",
		"@example.com":     "***",
	}
	for in, want := range tests {
		assert.Equal(t, want, logger.Email(in).Value.String(), in)
	}
}

func TestDiscard(t *testing.T) {
	t.Parallel()
	log := logger.Discard()
	assert.NotPanics(t, func() { log.Error("dropped", logger.Error(errors.New("x"))) })
}

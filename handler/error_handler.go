package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/docuconvo/auth/pkg/logger"
)

func asHTTPError(err error) HTTPError {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return ErrInternal
}

// NewErrorHandler logs the error and answers with JSON or plain text
// depending on what the client accepts. Client errors are logged at warn
// level, server errors at error level.
func NewErrorHandler(log *slog.Logger) ErrorHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(ctx Context, err error) {
		r := ctx.Request()
		httpErr := asHTTPError(err)

		level := slog.LevelError
		if httpErr.Code < http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		log.LogAttrs(r.Context(), level, "request error",
			logger.RequestID(middleware.GetReqID(r.Context())),
			logger.Error(err),
			slog.Int("status_code", httpErr.Code),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			logger.Component("http"),
		)

		if WantsJSON(r) {
			_ = JSONError(httpErr).Render(ctx.ResponseWriter(), r)
			return
		}
		http.Error(ctx.ResponseWriter(), http.StatusText(httpErr.Code), httpErr.Code)
	}
}

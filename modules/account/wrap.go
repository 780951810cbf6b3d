package account

import (
	"net/http"

	"github.com/docuconvo/auth/handler"
	"github.com/docuconvo/auth/pkg/binder"
)

var (
	fromQuery = []handler.Bind{binder.Query()}
	// Body values win over query values.
	fromBody = []handler.Bind{binder.Query(), binder.Form(), binder.JSON()}
)

func wrap[R any](s *Service, h handler.HandlerFunc[R], binders ...handler.Bind) http.HandlerFunc {
	return handler.Wrap(h,
		handler.WithBinders[R](binders...),
		handler.WithErrorHandler[R](s.errorHandler),
	)
}

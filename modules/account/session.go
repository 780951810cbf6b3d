package account

import (
	"errors"

	"github.com/docuconvo/auth/handler"
	"github.com/docuconvo/auth/pkg/auth"
	"github.com/docuconvo/auth/pkg/logger"
)

// session returns the current session, or {} when signed out.
func (s *Service) session(ctx handler.Context, _ struct{}) handler.Response {
	sess, err := s.sessions.Session(ctx, ctx.ResponseWriter(), ctx.Request())
	if err != nil {
		if !errors.Is(err, auth.ErrNoSession) {
			s.log.WarnContext(ctx, "read session", logger.Error(err))
		}
		return handler.JSON(struct{}{})
	}
	return handler.JSON(sess)
}

type signOutRequest struct {
	CallbackURL string `form:"callbackUrl" query:"callbackUrl" json:"callbackUrl"`
	CSRFToken   string `form:"csrfToken" json:"csrfToken"`
}

func (s *Service) signOut(ctx handler.Context, req signOutRequest) handler.Response {
	if err := s.csrf.Verify(ctx.Request(), req.CSRFToken); err != nil {
		return handler.Error(err)
	}
	s.sessions.Clear(ctx.ResponseWriter())
	return s.redirect(ctx, auth.SafeRedirect(s.baseURL, req.CallbackURL))
}

package account

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/docuconvo/auth/handler"
	"github.com/docuconvo/auth/pkg/auth"
	"github.com/docuconvo/auth/pkg/logger"
)

type signInOAuthRequest struct {
	CallbackURL string `form:"callbackUrl" query:"callbackUrl" json:"callbackUrl"`
	CSRFToken   string `form:"csrfToken" json:"csrfToken"`
	// Link attaches the provider account to the signed-in user.
	Link bool `form:"link" query:"link" json:"link"`
}

func (s *Service) provider(r *http.Request) (OAuthProvider, bool) {
	p, ok := s.providers[chi.URLParam(r, "provider")]
	return p, ok
}

func (s *Service) signInOAuth(ctx handler.Context, req signInOAuthRequest) handler.Response {
	r := ctx.Request()
	p, ok := s.provider(r)
	if !ok {
		return s.redirect(ctx, s.signInURL(ErrorOAuthSignin))
	}
	if r.Method == http.MethodPost {
		if err := s.csrf.Verify(r, req.CSRFToken); err != nil {
			s.log.WarnContext(ctx, "oauth sign-in rejected", logger.Provider(p.Provider()), logger.Error(err))
			return s.redirect(ctx, s.signInURL("")+"?csrf=true")
		}
	}

	var linkUserID *uuid.UUID
	if req.Link {
		sess, err := s.sessions.Session(ctx, ctx.ResponseWriter(), r)
		if err != nil {
			return s.redirect(ctx, s.signInURL(ErrorSessionRequired))
		}
		id, err := uuid.Parse(sess.User.ID)
		if err != nil {
			return s.redirect(ctx, s.signInURL(ErrorSessionRequired))
		}
		linkUserID = &id
	}

	target, err := p.AuthURL(ctx, auth.SafeRedirect(s.baseURL, req.CallbackURL), linkUserID)
	if err != nil {
		s.log.ErrorContext(ctx, "start oauth flow", logger.Provider(p.Provider()), logger.Error(err))
		return s.redirect(ctx, s.signInURL(ErrorOAuthSignin))
	}
	if err := s.states.bind(ctx.ResponseWriter(), target); err != nil {
		s.log.ErrorContext(ctx, "bind oauth state", logger.Provider(p.Provider()), logger.Error(err))
		return s.redirect(ctx, s.signInURL(ErrorOAuthSignin))
	}
	return s.redirect(ctx, target)
}

type callbackOAuthRequest struct {
	Code  string `query:"code"`
	State string `query:"state"`
	Error string `query:"error"`
}

func (s *Service) callbackOAuth(ctx handler.Context, req callbackOAuthRequest) handler.Response {
	p, ok := s.provider(ctx.Request())
	if !ok {
		return handler.Redirect(s.signInURL(ErrorOAuthCallback))
	}
	stateErr := s.states.check(ctx.ResponseWriter(), ctx.Request(), req.State)
	if req.Error != "" {
		s.log.WarnContext(ctx, "provider returned error", logger.Provider(p.Provider()), slog.String("error", req.Error))
		if req.Error == "access_denied" {
			return handler.Redirect(s.signInURL(ErrorAccessDenied))
		}
		return handler.Redirect(s.signInURL(ErrorOAuthCallback))
	}

	if stateErr != nil {
		s.log.WarnContext(ctx, "oauth callback rejected", logger.Provider(p.Provider()), logger.Error(stateErr))
		return handler.Redirect(s.signInURL(ErrorOAuthSignin))
	}

	res, err := p.Callback(ctx, req.Code, req.State)
	if err != nil {
		code := oauthErrorCode(err)
		if code == ErrorOAuthCallback || code == ErrorConfiguration {
			s.log.ErrorContext(ctx, "oauth callback failed", logger.Provider(p.Provider()), logger.Error(err))
		} else {
			s.log.WarnContext(ctx, "oauth callback rejected", logger.Provider(p.Provider()), logger.Error(err))
		}
		return handler.Redirect(s.signInURL(code))
	}

	if _, err := s.sessions.Issue(ctx, ctx.ResponseWriter(), res.User); err != nil {
		s.log.ErrorContext(ctx, "issue session", logger.UserID(res.User.ID), logger.Error(err))
		return handler.Redirect(s.signInURL(ErrorDefault))
	}

	s.log.InfoContext(ctx, "signed in",
		logger.UserID(res.User.ID),
		logger.Provider(p.Provider()),
		slog.Bool("new_user", res.IsNewUser),
		slog.Bool("linked", res.Linked),
	)
	return handler.Redirect(auth.SafeRedirect(s.baseURL, res.CallbackURL))
}

func oauthErrorCode(err error) string {
	switch {
	case errors.Is(err, auth.ErrProviderNotConfigured):
		return ErrorConfiguration
	case errors.Is(err, auth.ErrOAuthAccountNotLinked), errors.Is(err, auth.ErrAccountAlreadyLinked):
		return ErrorOAuthAccountNotLinked
	case errors.Is(err, auth.ErrUnverifiedEmail):
		return ErrorAccessDenied
	case errors.Is(err, auth.ErrInvalidState), errors.Is(err, auth.ErrInvalidCode), errors.Is(err, auth.ErrInvalidProfile):
		return ErrorOAuthSignin
	default:
		return ErrorOAuthCallback
	}
}

type unlinkRequest struct {
	ProviderAccountID string `form:"providerAccountId" json:"providerAccountId"`
	CSRFToken         string `form:"csrfToken" json:"csrfToken"`
}

func (s *Service) unlink(ctx handler.Context, req unlinkRequest) handler.Response {
	r := ctx.Request()
	p, ok := s.provider(r)
	if !ok {
		return handler.JSONError(handler.ErrNotFound)
	}
	if err := s.csrf.Verify(r, req.CSRFToken); err != nil {
		return handler.JSONError(err)
	}

	sess, err := s.sessions.Session(ctx, ctx.ResponseWriter(), r)
	if err != nil {
		return handler.JSONError(handler.ErrUnauthorized.Wrap(err))
	}
	userID, err := uuid.Parse(sess.User.ID)
	if err != nil {
		return handler.JSONError(handler.ErrUnauthorized.Wrap(err))
	}

	if err := p.Unlink(ctx, userID, req.ProviderAccountID); err != nil {
		if errors.Is(err, auth.ErrAccountNotFound) {
			return handler.JSONError(handler.ErrNotFound.Wrap(err))
		}
		return handler.Error(err)
	}
	s.log.InfoContext(ctx, "account unlinked", logger.UserID(userID), logger.Provider(p.Provider()))
	return handler.Empty()
}

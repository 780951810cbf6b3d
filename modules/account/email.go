package account

import (
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/docuconvo/auth/handler"
	"github.com/docuconvo/auth/pkg/auth"
	"github.com/docuconvo/auth/pkg/logger"
)

type signInPageRequest struct {
	CallbackURL string `query:"callbackUrl"`
	Error       string `query:"error"`
}

func (s *Service) signInPage(ctx handler.Context, req signInPageRequest) handler.Response {
	tok, err := s.csrf.Token(ctx.ResponseWriter(), ctx.Request())
	if err != nil {
		return handler.Error(err)
	}
	return handler.Templ(signInPage(signInPageData{
		SiteName:    s.site.Name,
		CSRFToken:   tok,
		CallbackURL: req.CallbackURL,
		Error:       req.Error,
		Providers:   s.Providers(),
	}))
}

type signInEmailRequest struct {
	Email       string `form:"email" json:"email"`
	CallbackURL string `form:"callbackUrl" query:"callbackUrl" json:"callbackUrl"`
	CSRFToken   string `form:"csrfToken" json:"csrfToken"`
}

func (s *Service) signInEmail(ctx handler.Context, req signInEmailRequest) handler.Response {
	r := ctx.Request()
	if err := s.csrf.Verify(r, req.CSRFToken); err != nil {
		s.log.WarnContext(ctx, "magic link request rejected", logger.Error(err))
		return s.redirect(ctx, s.signInURL("")+"?csrf=true")
	}

	identifier, err := auth.NormalizeEmail(req.Email)
	if err != nil {
		return s.redirect(ctx, s.signInURL(ErrorEmailSignin))
	}
	if !s.limiter.Allow("email:"+identifier) || !s.limiter.Allow("ip:"+clientIP(r)) {
		s.log.WarnContext(ctx, "magic link request throttled", logger.Email(identifier))
		return s.redirect(ctx, s.signInURL(ErrorEmailSignin))
	}

	callbackURL := auth.SafeRedirect(s.baseURL, req.CallbackURL)
	if err := s.magic.RequestSignIn(ctx, identifier, callbackURL); err != nil {
		s.log.ErrorContext(ctx, "magic link request failed", logger.Email(identifier), logger.Error(err))
		return s.redirect(ctx, s.signInURL(ErrorEmailSignin))
	}

	return s.redirect(ctx, s.baseURL+"/auth/verify-request?provider=email&type=email")
}

func (s *Service) verifyRequest(_ handler.Context, _ struct{}) handler.Response {
	return handler.Templ(verifyRequestPage(s.site.Name, s.baseURL))
}

type callbackEmailRequest struct {
	Token       string `query:"token"`
	Email       string `query:"email"`
	CallbackURL string `query:"callbackUrl"`
}

func (s *Service) callbackEmail(ctx handler.Context, req callbackEmailRequest) handler.Response {
	user, isNew, err := s.magic.Verify(ctx, req.Email, req.Token)
	if err != nil {
		if !errors.Is(err, auth.ErrVerificationInvalid) && !errors.Is(err, auth.ErrVerificationExpired) {
			s.log.ErrorContext(ctx, "magic link verification failed", logger.Error(err))
		}
		return handler.Redirect(s.signInURL(ErrorVerification))
	}

	if _, err := s.sessions.Issue(ctx, ctx.ResponseWriter(), user); err != nil {
		s.log.ErrorContext(ctx, "issue session", logger.UserID(user.ID), logger.Error(err))
		return handler.Redirect(s.signInURL(ErrorDefault))
	}

	s.log.InfoContext(ctx, "signed in",
		logger.UserID(user.ID),
		logger.Provider(auth.ProviderEmail),
		slog.Bool("new_user", isNew),
	)
	return handler.Redirect(auth.SafeRedirect(s.baseURL, req.CallbackURL))
}

// clientIP is the remote address without the port. chi's RealIP middleware
// has already replaced it with the forwarded address when one is present.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

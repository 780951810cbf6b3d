// Command authd serves DocuConvo sign-in: magic links by email, Google
// OAuth and cookie sessions.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/docuconvo/auth/modules/account"
	"github.com/docuconvo/auth/pkg/auth"
	"github.com/docuconvo/auth/pkg/config"
	"github.com/docuconvo/auth/pkg/cookie"
	"github.com/docuconvo/auth/pkg/email"
	"github.com/docuconvo/auth/pkg/environment"
	"github.com/docuconvo/auth/pkg/httpserver"
	"github.com/docuconvo/auth/pkg/jwt"
	"github.com/docuconvo/auth/pkg/logger"
	"github.com/docuconvo/auth/pkg/site"
	"github.com/docuconvo/auth/pkg/throttle"
	"github.com/docuconvo/auth/pkg/tracing"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "authd:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var (
		app         appConfig
		logCfg      logger.Config
		traceCfg    tracing.Config
		siteCfg     site.Config
		httpCfg     httpserver.Config
		cookieCfg   cookie.Config
		sessionCfg  auth.SessionConfig
		magicCfg    auth.MagicLinkConfig
		googleCfg   auth.GoogleConfig
		mailCfg     email.Config
		throttleCfg throttle.Config
	)
	if err := errors.Join(
		config.Load(&app),
		config.Load(&logCfg),
		config.Load(&traceCfg),
		config.Load(&siteCfg),
		config.Load(&httpCfg),
		config.Load(&cookieCfg),
		config.Load(&sessionCfg),
		config.Load(&magicCfg),
		config.Load(&googleCfg),
		config.Load(&mailCfg),
		config.Load(&throttleCfg),
	); err != nil {
		return err
	}

	env := environment.Parse(app.Env)
	log := logger.New(
		logger.WithEnvironment(app.Env, traceCfg.ServiceName),
		logger.WithConfig(logCfg),
		logger.WithContextExtractors(logger.RequestIDExtractor(), environment.LoggerExtractor()),
	)

	shutdownTracing, err := tracing.Setup(ctx, traceCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.WithoutCancel(ctx)); err != nil {
			log.Error("shutdown tracing", logger.Error(err))
		}
	}()

	st, err := site.Load(siteCfg.Path)
	if err != nil {
		return err
	}

	b, err := openBackend(ctx, app.Storage, app.StateStore, log)
	if err != nil {
		return err
	}
	defer b.close(context.WithoutCancel(ctx), log)

	sender, err := newEmailSender(mailCfg, env, log)
	if err != nil {
		return err
	}
	mailer := auth.NewVerificationMailer(b.adapter, sender, st, auth.WithMailerLogger(log))
	magic := auth.NewMagicLinkService(b.adapter, mailer, app.Secret, st.BaseURL(),
		auth.WithMagicLinkLogger(log),
		auth.WithMagicLinkMaxAge(magicCfg.MaxAge),
	)

	codec, err := jwt.New([]byte(app.Secret), jwt.WithPurpose("session token"), jwt.WithIssuer(st.BaseURL()))
	if err != nil {
		return err
	}
	jar, err := cookie.NewFromConfig(cookieCfg)
	if err != nil {
		return err
	}
	sessions := auth.NewSessionManager(codec, jar, auth.NewCallbacks(b.adapter, auth.WithCallbacksLogger(log)),
		auth.WithSessionMaxAge(sessionCfg.MaxAge),
		auth.WithSessionUpdateAge(sessionCfg.UpdateAge),
		auth.WithSessionLogger(log),
	)

	if !googleCfg.Configured() {
		log.Warn("GOOGLE_CLIENT_ID or GOOGLE_CLIENT_SECRET is empty, Google sign-in will fail")
	}
	if googleCfg.RedirectURL == "" {
		googleCfg.RedirectURL = st.BaseURL() + "/auth/callback/google"
	}
	google := auth.NewOAuthService(b.adapter, b.states, auth.NewGoogleAdapter(googleCfg),
		auth.WithOAuthLogger(log),
		auth.WithStateTTL(googleCfg.StateTTL),
		auth.WithVerifiedOnly(googleCfg.VerifiedOnly),
	)

	limiter := throttle.NewFromConfig(throttleCfg)
	svc := account.New(st, magic, sessions, account.NewCSRF(jar),
		account.WithProvider(google),
		account.WithLimiter(limiter),
		account.WithLogger(log),
	)

	router := newRouter(routerDeps{
		env:              env,
		log:              log,
		account:          svc,
		sessions:         sessions,
		signInPath:       st.SignInPath,
		checks:           b.checks,
		readinessTimeout: app.ReadinessTimeout,
	})
	server := httpserver.New(httpCfg, httpserver.WithLogger(log))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(gctx, router) })
	var purgers []auth.StatePurger
	if sp, ok := b.states.(auth.StatePurger); ok {
		purgers = append(purgers, sp)
	}
	g.Go(func() error { return auth.RunJanitor(gctx, b.adapter, app.JanitorInterval, log, purgers...) })
	g.Go(func() error {
		limiter.Run(gctx, app.SweepInterval)
		return nil
	})
	return g.Wait()
}

// Package handler turns typed request handlers into http.HandlerFuncs.
//
// A HandlerFunc receives a Context and a request value filled by the
// configured binders, and returns a Response that knows how to render itself:
//
//	type signInRequest struct {
//		Email string `form:"email"`
//	}
//
//	r.Post("/signin", handler.Wrap(func(ctx handler.Context, req signInRequest) handler.Response {
//		return handler.Redirect("/verify-request")
//	}, handler.WithBinders[signInRequest](binder.Form())))
//
// Redirects and templ components are sent as Server-Sent Events when the
// request comes from a DataStar client, so the same handler serves plain
// form posts and progressive enhancement.
package handler

// Package gateway holds the Auth Gateway implementations and the future
// adapter the form controller uses to call them without blocking.
package gateway

import (
	"context"
	"fmt"

	"github.com/nfrund/durian/internal/domain"
)

// Result is what a single gateway call resolves to. Exactly one of Err or the
// success fields is meaningful.
type Result struct {
	Session  *domain.Session
	Redirect string
	Err      error
}

// Call is a blocking gateway invocation.
type Call func(ctx context.Context) Result

// Go runs call on its own goroutine and delivers its Result on the returned
// channel exactly once. A panic inside call is delivered as an error.
func Go(ctx context.Context, call Call) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		var res Result
		defer func() {
			if r := recover(); r != nil {
				res = Result{Err: fmt.Errorf("gateway: call panicked: %v", r)}
			}
			out <- res
		}()
		res = call(ctx)
	}()
	return out
}

// SignIn adapts AuthGateway.SignInWithCredentials to a Call.
func SignIn(gw domain.AuthGateway, creds domain.Credentials) Call {
	return func(ctx context.Context) Result {
		sess, err := gw.SignInWithCredentials(ctx, creds)
		return Result{Session: sess, Err: err}
	}
}

// SignUp adapts AuthGateway.SignUpWithCredentials to a Call.
func SignUp(gw domain.AuthGateway, reg domain.Registration) Call {
	return func(ctx context.Context) Result {
		sess, err := gw.SignUpWithCredentials(ctx, reg)
		return Result{Session: sess, Err: err}
	}
}

// Social adapts AuthGateway.SignInWithSocialProvider to a Call.
func Social(gw domain.AuthGateway, provider domain.SocialProvider, callbackURL string) Call {
	return func(ctx context.Context) Result {
		redirect, err := gw.SignInWithSocialProvider(ctx, provider, callbackURL)
		if err != nil {
			return Result{Err: err}
		}
		if redirect == nil {
			return Result{}
		}
		return Result{Redirect: redirect.URL}
	}
}

package worker

import "context"

// Bind fixes the argument of fn, producing a func()
func Bind[A any](fn func(A), arg A) func() {
	if fn == nil {
		return nil
	}
	return func() { fn(arg) }
}

// BindErr fixes the argument of fn, producing a func() error
func BindErr[A any](fn func(A) error, arg A) func() error {
	if fn == nil {
		return nil
	}
	return func() error { return fn(arg) }
}

// BindCtx fixes the trailing argument of fn, producing a
// func(context.Context) error
func BindCtx[A any](fn func(context.Context, A) error, arg A) func(context.Context) error {
	if fn == nil {
		return nil
	}
	return func(ctx context.Context) error { return fn(ctx, arg) }
}

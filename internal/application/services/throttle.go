package services

import "context"

// LoginThrottle limits password guessing per username.
type LoginThrottle interface {
	// Check returns ErrTooManyAttempts while username is locked out.
	Check(ctx context.Context, username string) error
	RecordFailure(ctx context.Context, username string) error
	Reset(ctx context.Context, username string) error
}

type noopThrottle struct{}

// NoopLoginThrottle never limits. It is used when Redis is not configured.
func NoopLoginThrottle() LoginThrottle {
	return noopThrottle{}
}

func (noopThrottle) Check(context.Context, string) error         { return nil }
func (noopThrottle) RecordFailure(context.Context, string) error { return nil }
func (noopThrottle) Reset(context.Context, string) error         { return nil }

package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	apperrors "github.com/ruziba3vich/toolshed/pkg/errors"
)

const loginFailPrefix = "login_fail:"

// LoginThrottle counts failed password logins per username and refuses
// further attempts once the limit is reached inside the window.
type LoginThrottle struct {
	client      *Client
	maxFailures int64
	window      time.Duration
}

func NewLoginThrottle(client *Client, maxFailures int, window time.Duration) *LoginThrottle {
	return &LoginThrottle{
		client:      client,
		maxFailures: int64(maxFailures),
		window:      window,
	}
}

// Check returns ErrTooManyAttempts when username is locked out.
func (t *LoginThrottle) Check(ctx context.Context, username string) error {
	val, err := t.client.Get(ctx, loginFailPrefix+username)
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil
		}
		return apperrors.Wrap(err, "failed to read login failures")
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return apperrors.Wrap(err, "invalid login failure counter")
	}
	if count >= t.maxFailures {
		return apperrors.ErrTooManyAttempts
	}
	return nil
}

// RecordFailure counts one failed attempt. The window starts at the first
// failure and is not extended by later ones.
func (t *LoginThrottle) RecordFailure(ctx context.Context, username string) error {
	if _, err := t.client.IncrWithin(ctx, loginFailPrefix+username, t.window); err != nil {
		return apperrors.Wrap(err, "failed to record login failure")
	}
	return nil
}

// Reset clears the counter after a successful login.
func (t *LoginThrottle) Reset(ctx context.Context, username string) error {
	if err := t.client.Delete(ctx, loginFailPrefix+username); err != nil {
		return apperrors.Wrap(err, "failed to reset login failures")
	}
	return nil
}

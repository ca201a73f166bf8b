// Package denylist rejects credentials that are still cryptographically valid.
//
// Two namespaces share one expiring key-value store: token entries revoke a single
// access token for its remaining lifetime, user entries revoke everything a user
// currently holds for a fixed window. Store failures never surface as errors:
// reads fail open and writes report a boolean outcome.
package denylist

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"ecommerce/api/internal/security"
)

const (
	tokenPrefix = "token:"
	userPrefix  = "user:"

	DefaultUserTTL = time.Hour
)

var errTimeout = errors.New("denylist store timeout")

// Store is the expiring key-value contract the denylist needs.
type Store interface {
	Set(ctx context.Context, key string, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// Recorder observes store calls that degraded to the fallback outcome.
type Recorder interface {
	DenylistFallback(op string, reason string)
}

type Timeouts struct {
	Read   time.Duration
	Write  time.Duration
	Delete time.Duration
}

var DefaultTimeouts = Timeouts{
	Read:   500 * time.Millisecond,
	Write:  time.Second,
	Delete: 500 * time.Millisecond,
}

type Denylist struct {
	store    Store
	timeouts Timeouts
	recorder Recorder
	log      zerolog.Logger
	now      func() time.Time
}

type Option func(*Denylist)

func WithClock(now func() time.Time) Option {
	return func(d *Denylist) { d.now = now }
}

func WithRecorder(r Recorder) Option {
	return func(d *Denylist) {
		if r != nil {
			d.recorder = r
		}
	}
}

func New(store Store, timeouts Timeouts, log zerolog.Logger, opts ...Option) *Denylist {
	if timeouts.Read <= 0 {
		timeouts.Read = DefaultTimeouts.Read
	}
	if timeouts.Write <= 0 {
		timeouts.Write = DefaultTimeouts.Write
	}
	if timeouts.Delete <= 0 {
		timeouts.Delete = DefaultTimeouts.Delete
	}

	d := &Denylist{
		store:    store,
		timeouts: timeouts,
		recorder: noopRecorder{},
		log:      log.With().Str("component", "denylist").Logger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// BlacklistToken denies token until its own expiry. Already expired or
// undecodable tokens need no entry and count as success.
func (d *Denylist) BlacklistToken(ctx context.Context, token string) bool {
	expiresAt, ok := security.TokenExpiry(token)
	if !ok {
		return true
	}

	// Whole seconds, rounded down, so the entry never outlives the token.
	ttl := time.Duration(expiresAt.Unix()-d.now().Unix()) * time.Second
	if ttl <= 0 {
		return true
	}

	err := d.call(ctx, d.timeouts.Write, func(ctx context.Context) error {
		return d.store.Set(ctx, tokenPrefix+token, ttl)
	})
	if err != nil {
		d.fallback("blacklist_token", err)
		return false
	}
	return true
}

// IsTokenBlacklisted fails open: store errors and timeouts report false.
func (d *Denylist) IsTokenBlacklisted(ctx context.Context, token string) bool {
	return d.exists(ctx, "is_token_blacklisted", tokenPrefix+token)
}

func (d *Denylist) BlacklistUser(ctx context.Context, userID string, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = DefaultUserTTL
	}

	err := d.call(ctx, d.timeouts.Write, func(ctx context.Context) error {
		return d.store.Set(ctx, userPrefix+userID, ttl)
	})
	if err != nil {
		d.fallback("blacklist_user", err)
		return false
	}
	return true
}

// IsUserBlacklisted fails open like IsTokenBlacklisted.
func (d *Denylist) IsUserBlacklisted(ctx context.Context, userID string) bool {
	return d.exists(ctx, "is_user_blacklisted", userPrefix+userID)
}

func (d *Denylist) RemoveUserFromBlacklist(ctx context.Context, userID string) bool {
	err := d.call(ctx, d.timeouts.Delete, func(ctx context.Context) error {
		return d.store.Delete(ctx, userPrefix+userID)
	})
	if err != nil {
		d.fallback("remove_user", err)
		return false
	}
	return true
}

func (d *Denylist) exists(ctx context.Context, op string, key string) bool {
	var found bool
	err := d.call(ctx, d.timeouts.Read, func(ctx context.Context) error {
		ok, err := d.store.Exists(ctx, key)
		if err != nil {
			return err
		}
		found = ok
		return nil
	})
	if err != nil {
		d.fallback(op, err)
		return false
	}
	return found
}

// call bounds fn by timeout even when the store ignores its context. The
// parent's cancellation is dropped: a disconnecting client must not abort a
// revocation half way.
func (d *Denylist) call(parent context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn(ctx)
	}()

	select {
	case err := <-done:
		if errors.Is(err, context.DeadlineExceeded) {
			return errTimeout
		}
		return err
	case <-ctx.Done():
		return errTimeout
	}
}

func (d *Denylist) fallback(op string, err error) {
	reason := "error"
	if errors.Is(err, errTimeout) {
		reason = "timeout"
	}
	d.recorder.DenylistFallback(op, reason)
	d.log.Warn().Err(err).Str("op", op).Str("reason", reason).Msg("denylist store unavailable, using fallback")
}

type noopRecorder struct{}

func (noopRecorder) DenylistFallback(string, string) {}

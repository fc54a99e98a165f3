package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"timeledger/internal/model"
)

type options struct {
	now      func() time.Time
	staleCap time.Duration
}

type Option func(*options)

// WithClock overrides the time source. Tests use it to pin "now".
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithStaleCap overrides how long a clock session may stay open.
func WithStaleCap(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.staleCap = d
		}
	}
}

func newOptions(opts []Option) options {
	o := options{now: time.Now, staleCap: DefaultStaleCap}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Notifier receives workflow events. Implementations are best-effort and must not block
// the calling operation on delivery failures.
type Notifier interface {
	LeaveReviewed(ctx context.Context, req *model.LeaveRequest)
	LeaveGranted(ctx context.Context, req *model.LeaveRequest)
	SessionAutoClosed(ctx context.Context, s *model.ClockSession, hours decimal.Decimal)
}

type NopNotifier struct{}

func (NopNotifier) LeaveReviewed(context.Context, *model.LeaveRequest)                      {}
func (NopNotifier) LeaveGranted(context.Context, *model.LeaveRequest)                       {}
func (NopNotifier) SessionAutoClosed(context.Context, *model.ClockSession, decimal.Decimal) {}

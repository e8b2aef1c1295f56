package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/wonny/sales-etl/internal/contracts"
	"github.com/wonny/sales-etl/pkg/config"
	"github.com/wonny/sales-etl/pkg/httputil"
	"github.com/wonny/sales-etl/pkg/logger"
)

// ErrRateLimited is returned when an alert is dropped by the throttle
var ErrRateLimited = errors.New("alert rate limit exceeded")

// Channel is one alert delivery route
type Channel interface {
	Name() string
	Enabled() bool
	Send(ctx context.Context, message string) error
}

// Dispatcher fans an alert out to every enabled channel
// ⭐ SSOT: 알림 발송은 여기서만
type Dispatcher struct {
	channels []Channel
	limiter  *rate.Limiter
	timeout  time.Duration
	logger   *logger.Logger
}

// NewDispatcher wires the Slack and email channels from configuration
func NewDispatcher(cfg config.NotifyConfig, log *logger.Logger) *Dispatcher {
	client := httputil.New(cfg.Timeout, log)
	channels := []Channel{
		NewSlackChannel(cfg.SlackWebhookURL, client),
		NewEmailChannel(cfg),
	}
	return New(channels, cfg.MaxPerMinute, cfg.Timeout, log)
}

// New creates a dispatcher over explicit channels. maxPerMinute <= 0
// disables throttling.
func New(channels []Channel, maxPerMinute int, timeout time.Duration, log *logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.Nop()
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if maxPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(maxPerMinute)), maxPerMinute)
	}

	return &Dispatcher{
		channels: channels,
		limiter:  limiter,
		timeout:  timeout,
		logger:   log,
	}
}

// Enabled returns the names of the configured channels
func (d *Dispatcher) Enabled() []string {
	var names []string
	for _, ch := range d.channels {
		if ch.Enabled() {
			names = append(names, ch.Name())
		}
	}
	return names
}

// Notify sends message to every enabled channel concurrently. With no
// channel configured it is a no-op. Channel failures are joined into one
// error; a failing channel never stops the others.
func (d *Dispatcher) Notify(ctx context.Context, message string) error {
	var active []Channel
	for _, ch := range d.channels {
		if ch.Enabled() {
			active = append(active, ch)
		}
	}
	if len(active) == 0 {
		d.logger.Debug("No alert channel configured, skipping notification")
		return nil
	}

	if !d.limiter.Allow() {
		d.logger.Warn("Alert dropped by rate limit")
		return &contracts.NotificationError{Channel: "dispatcher", Err: ErrRateLimited}
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	var (
		mu   sync.Mutex
		errs []error
		g    errgroup.Group
	)

	for _, ch := range active {
		ch := ch
		g.Go(func() error {
			if err := ch.Send(ctx, message); err != nil {
				mu.Lock()
				errs = append(errs, &contracts.NotificationError{Channel: ch.Name(), Err: err})
				mu.Unlock()
				return nil
			}
			d.logger.WithField("channel", ch.Name()).Info("Alert delivered")
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

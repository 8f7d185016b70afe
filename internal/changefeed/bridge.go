package changefeed

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BloggingApp/realtime-notifications/internal/metrics"
	"go.uber.org/zap"
)

const closeTimeout = 5 * time.Second

type Config struct {
	Channel        string
	MaxReconnects  int
	ReconnectDelay time.Duration
}

// Sender receives decoded notifications. hub.Registry implements it.
type Sender interface {
	Send(userID string, payload []byte) int
}

// Bridge forwards change feed events to live sessions.
//
// Lifecycle: Start opens the subscription, Run consumes it until ctx is done
// or the subscription is lost for good, Stop releases it. Stop is safe in
// every state.
type Bridge struct {
	logger     *zap.Logger
	subscriber Subscriber
	sender     Sender
	cfg        Config

	mu      sync.Mutex
	sub     Subscription
	cancel  context.CancelFunc
	stopped chan struct{}

	listening atomic.Bool
}

func NewBridge(logger *zap.Logger, subscriber Subscriber, sender Sender, cfg Config) *Bridge {
	return &Bridge{
		logger:     logger,
		subscriber: subscriber,
		sender:     sender,
		cfg:        cfg,
	}
}

// Start opens the subscription. It fails with a *ConnectivityError when the
// source is unreachable.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sub != nil {
		return nil
	}

	sub, err := b.subscriber.Subscribe(ctx, b.cfg.Channel)
	if err != nil {
		return &ConnectivityError{Op: "subscribe", Err: err}
	}
	b.sub = sub
	b.listening.Store(true)

	b.logger.Sugar().Infof("listening for change events on channel(%s)", b.cfg.Channel)

	return nil
}

// Run consumes events until ctx is done (returns nil) or the subscription is
// lost and cannot be re-established (returns a *ConnectivityError).
func (b *Bridge) Run(ctx context.Context) error {
	b.mu.Lock()
	if b.sub == nil {
		b.mu.Unlock()
		return ErrNotStarted
	}
	if b.cancel != nil {
		b.mu.Unlock()
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	stopped := make(chan struct{})
	b.cancel = cancel
	b.stopped = stopped
	sub := b.sub
	b.mu.Unlock()

	defer func() {
		cancel()
		b.mu.Lock()
		b.cancel = nil
		b.stopped = nil
		b.mu.Unlock()
		close(stopped)
	}()

	for {
		notification, err := sub.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			sub, err = b.resubscribe(ctx, err)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			continue
		}

		b.handle([]byte(notification.Payload))
	}
}

// Listening reports whether the bridge currently holds a live subscription.
func (b *Bridge) Listening() bool {
	return b.listening.Load()
}

// Stop ends a running Run and closes the subscription.
func (b *Bridge) Stop() {
	b.mu.Lock()
	cancel, stopped := b.cancel, b.stopped
	b.mu.Unlock()

	if cancel != nil {
		cancel()
		<-stopped
	}

	b.mu.Lock()
	sub := b.sub
	b.sub = nil
	b.mu.Unlock()

	b.listening.Store(false)

	if sub == nil {
		return
	}

	ctx, cancelClose := context.WithTimeout(context.Background(), closeTimeout)
	defer cancelClose()
	if err := sub.Close(ctx); err != nil {
		b.logger.Sugar().Warnf("failed to close change feed subscription: %s", err.Error())
	}

	b.logger.Info("change feed bridge stopped")
}

func (b *Bridge) handle(payload []byte) {
	event, err := DecodeEvent(payload)
	if err != nil {
		metrics.ChangeEvents.WithLabelValues(metrics.OutcomeMalformed).Inc()
		b.logger.Sugar().Warnf("dropping change event: %s", err.Error())
		return
	}

	body, err := json.Marshal(event.Notification.Live())
	if err != nil {
		metrics.ChangeEvents.WithLabelValues(metrics.OutcomeMalformed).Inc()
		b.logger.Sugar().Errorf("failed to encode notification(%d): %s", event.Notification.ID, err.Error())
		return
	}

	delivered := b.sender.Send(event.UserID, body)
	if delivered == 0 {
		metrics.ChangeEvents.WithLabelValues(metrics.OutcomeDropped).Inc()
		b.logger.Sugar().Debugf("no live sessions for user(%s), notification(%d) stays in backlog", event.UserID, event.Notification.ID)
		return
	}

	metrics.ChangeEvents.WithLabelValues(metrics.OutcomeDelivered).Inc()
	b.logger.Sugar().Debugf("notification(%d) pushed to %d session(s) of user(%s)", event.Notification.ID, delivered, event.UserID)
}

// resubscribe replaces a lost subscription. Events emitted while disconnected
// are not recovered here; clients get them from backlog replay on reconnect.
func (b *Bridge) resubscribe(ctx context.Context, cause error) (Subscription, error) {
	b.listening.Store(false)
	metrics.Resubscriptions.Inc()
	b.logger.Sugar().Errorf("change feed subscription lost on channel(%s): %s", b.cfg.Channel, cause.Error())

	b.mu.Lock()
	old := b.sub
	b.sub = nil
	b.mu.Unlock()
	if old != nil {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		old.Close(closeCtx)
		cancel()
	}

	lastErr := cause
	for attempt := 1; attempt <= b.cfg.MaxReconnects; attempt++ {
		timer := time.NewTimer(b.cfg.ReconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		sub, err := b.subscriber.Subscribe(ctx, b.cfg.Channel)
		if err != nil {
			lastErr = err
			b.logger.Sugar().Warnf("failed to resubscribe to channel(%s), attempt %d/%d: %s", b.cfg.Channel, attempt, b.cfg.MaxReconnects, err.Error())
			continue
		}

		b.mu.Lock()
		b.sub = sub
		b.mu.Unlock()
		b.listening.Store(true)

		b.logger.Sugar().Infof("resubscribed to channel(%s) after %d attempt(s)", b.cfg.Channel, attempt)
		return sub, nil
	}

	return nil, &ConnectivityError{Op: "listen", Err: lastErr}
}

package changefeed

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BloggingApp/realtime-notifications/internal/metrics"
	"github.com/BloggingApp/realtime-notifications/internal/model"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSubscription struct {
	events chan string
	fail   chan error
	closed atomic.Int32
}

func newFakeSubscription() *fakeSubscription {
	return &fakeSubscription{
		events: make(chan string, 16),
		fail:   make(chan error, 1),
	}
}

func (s *fakeSubscription) WaitForNotification(ctx context.Context) (*pgconn.Notification, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case err := <-s.fail:
		return nil, err
	case payload := <-s.events:
		return &pgconn.Notification{Channel: "new_notification", Payload: payload}, nil
	}
}

func (s *fakeSubscription) Close(context.Context) error {
	s.closed.Add(1)
	return nil
}

type fakeSubscriber struct {
	mu    sync.Mutex
	errs  []error
	subs  []*fakeSubscription
	calls int
}

func (s *fakeSubscriber) Subscribe(_ context.Context, _ string) (Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, err
		}
	}

	sub := newFakeSubscription()
	s.subs = append(s.subs, sub)
	return sub, nil
}

func (s *fakeSubscriber) latest() *fakeSubscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.subs) == 0 {
		return nil
	}
	return s.subs[len(s.subs)-1]
}

func (s *fakeSubscriber) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

type delivery struct {
	userID  string
	payload []byte
}

type recordingSender struct {
	sent chan delivery
}

func (s *recordingSender) Send(userID string, payload []byte) int {
	s.sent <- delivery{userID: userID, payload: payload}
	return 1
}

func newTestBridge(subscriber Subscriber, cfg Config) (*Bridge, *recordingSender) {
	sender := &recordingSender{sent: make(chan delivery, 16)}
	if cfg.Channel == "" {
		cfg.Channel = "new_notification"
	}
	return NewBridge(zap.NewNop(), subscriber, sender, cfg), sender
}

func runBridge(t *testing.T, b *Bridge) <-chan error {
	t.Helper()
	errc := make(chan error, 1)
	go func() {
		errc <- b.Run(context.Background())
	}()
	return errc
}

func receive(t *testing.T, sender *recordingSender) delivery {
	t.Helper()
	select {
	case d := <-sender.sent:
		return d
	case <-time.After(5 * time.Second):
		t.Fatal("no delivery")
		return delivery{}
	}
}

func TestBridge_StartFailureIsConnectivityError(t *testing.T) {
	subscriber := &fakeSubscriber{errs: []error{errors.New("connection refused")}}
	b, _ := newTestBridge(subscriber, Config{})

	err := b.Start(context.Background())

	var connErr *ConnectivityError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "subscribe", connErr.Op)
	assert.False(t, b.Listening())

	assert.NotPanics(t, b.Stop)
}

func TestBridge_StopWithoutStart(t *testing.T) {
	b, _ := newTestBridge(&fakeSubscriber{}, Config{})

	assert.NotPanics(t, func() {
		b.Stop()
		b.Stop()
	})
	assert.ErrorIs(t, b.Run(context.Background()), ErrNotStarted)
}

func TestBridge_MalformedEventDoesNotKillSubscription(t *testing.T) {
	subscriber := &fakeSubscriber{}
	b, sender := newTestBridge(subscriber, Config{})
	require.NoError(t, b.Start(context.Background()))
	errc := runBridge(t, b)
	malformed := metrics.ChangeEvents.WithLabelValues(metrics.OutcomeMalformed)
	malformedBefore := testutil.ToFloat64(malformed)

	sub := subscriber.latest()
	sub.events <- `not json`
	sub.events <- `{"notification":{"id":1,"created_at":"2025-01-02T03:04:05Z"}}`
	sub.events <- validPayload

	d := receive(t, sender)
	assert.Equal(t, "u1", d.userID)
	assert.Equal(t, float64(2), testutil.ToFloat64(malformed)-malformedBefore)

	var live model.LiveNotification
	require.NoError(t, json.Unmarshal(d.payload, &live))
	assert.Equal(t, int64(42), live.ID)
	assert.Equal(t, "Hi", live.Title)
	assert.Equal(t, "m", live.Message)
	assert.Equal(t, "info", live.Type)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(d.payload, &raw))
	assert.NotContains(t, raw, "user_id")
	assert.NotContains(t, raw, "is_read")

	select {
	case extra := <-sender.sent:
		t.Fatalf("unexpected delivery: %+v", extra)
	default:
	}

	b.Stop()
	assert.NoError(t, <-errc)
	assert.Equal(t, int32(1), sub.closed.Load())
}

func TestBridge_ResubscribesAfterLoss(t *testing.T) {
	subscriber := &fakeSubscriber{}
	b, sender := newTestBridge(subscriber, Config{MaxReconnects: 3, ReconnectDelay: time.Millisecond})
	require.NoError(t, b.Start(context.Background()))
	errc := runBridge(t, b)

	first := subscriber.latest()
	first.fail <- errors.New("connection reset by peer")

	require.Eventually(t, func() bool { return subscriber.count() == 2 }, 5*time.Second, time.Millisecond)
	assert.Equal(t, int32(1), first.closed.Load())

	subscriber.latest().events <- validPayload
	assert.Equal(t, "u1", receive(t, sender).userID)
	assert.True(t, b.Listening())

	b.Stop()
	assert.NoError(t, <-errc)
}

func TestBridge_SurfacesPermanentLoss(t *testing.T) {
	subscriber := &fakeSubscriber{errs: []error{nil, errors.New("refused"), errors.New("refused")}}
	b, _ := newTestBridge(subscriber, Config{MaxReconnects: 2, ReconnectDelay: time.Millisecond})
	require.NoError(t, b.Start(context.Background()))
	errc := runBridge(t, b)

	subscriber.latest().fail <- errors.New("connection reset by peer")

	select {
	case err := <-errc:
		var connErr *ConnectivityError
		require.ErrorAs(t, err, &connErr)
		assert.Equal(t, "listen", connErr.Op)
	case <-time.After(5 * time.Second):
		t.Fatal("bridge did not surface the lost subscription")
	}
	assert.False(t, b.Listening())

	assert.NotPanics(t, b.Stop)
}

func TestBridge_RunTwiceIsRejected(t *testing.T) {
	subscriber := &fakeSubscriber{}
	b, sender := newTestBridge(subscriber, Config{})
	require.NoError(t, b.Start(context.Background()))
	errc := runBridge(t, b)

	subscriber.latest().events <- validPayload
	receive(t, sender)

	assert.ErrorIs(t, b.Run(context.Background()), ErrAlreadyRunning)

	b.Stop()
	assert.NoError(t, <-errc)
}

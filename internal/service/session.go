package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/BloggingApp/realtime-notifications/internal/config"
	"github.com/BloggingApp/realtime-notifications/internal/hub"
	"github.com/BloggingApp/realtime-notifications/internal/metrics"
	"github.com/BloggingApp/realtime-notifications/internal/repository"
	"github.com/BloggingApp/realtime-notifications/internal/repository/postgres"
	"go.uber.org/zap"
)

type SessionState int

const (
	StateConnecting SessionState = iota
	StateRegistered
	StateReplaying
	StateIdle
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateRegistered:
		return "registered"
	case StateReplaying:
		return "replaying"
	case StateIdle:
		return "idle"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("SessionState(%d)", int(s))
}

// LiveConn is an accepted client connection.
type LiveConn interface {
	hub.Session
	// SendWait queues payload, waiting for room until ctx is done.
	SendWait(ctx context.Context, payload []byte) error
	// Receive blocks for the next client message.
	Receive() ([]byte, error)
}

type sessionService struct {
	logger        *zap.Logger
	repo          *repository.Repository
	registry      *hub.Registry
	ascending     bool
	backlogLimit  int
	pendingLimit  int
	replayTimeout time.Duration
}

func newSessionService(logger *zap.Logger, cfg config.SessionConfig, repo *repository.Repository, registry *hub.Registry) Session {
	return &sessionService{
		logger:        logger,
		repo:          repo,
		registry:      registry,
		ascending:     cfg.BacklogOrder != "desc",
		backlogLimit:  cfg.BacklogLimit,
		pendingLimit:  cfg.PendingLimit,
		replayTimeout: cfg.ReplayTimeout,
	}
}

// Serve registers the connection before reading the backlog, so a
// notification created in between reaches the client live, through the
// replay, or both. Clients must tolerate duplicates by id. Live payloads
// that arrive during the replay are delivered right after it.
func (s *sessionService) Serve(ctx context.Context, userID string, conn LiveConn) error {
	state := StateConnecting
	log := s.logger.With(zap.String("user_id", userID), zap.String("session_id", conn.ID()))

	gate := newReplayGate(conn, s.pendingLimit)
	s.registry.Register(userID, gate)
	state = StateRegistered
	log.Debug("session registered")

	defer func() {
		s.registry.Unregister(userID, gate)
		conn.Close()
		log.Debug("session closed", zap.Stringer("from_state", state))
	}()

	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	state = StateReplaying
	if err := s.replay(ctx, userID, gate); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		log.Warn("backlog replay failed", zap.Error(err))
		return err
	}

	state = StateIdle
	for {
		msg, err := conn.Receive()
		if err != nil {
			if errors.Is(err, hub.ErrPeerClosed) || errors.Is(err, hub.ErrSessionClosed) || ctx.Err() != nil {
				return nil
			}
			return &hub.SessionIOError{SessionID: conn.ID(), Op: "receive", Err: err}
		}
		log.Debug("ignoring client message", zap.Int("size", len(msg)))
	}
}

func (s *sessionService) replay(ctx context.Context, userID string, gate *replayGate) error {
	if s.replayTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.replayTimeout)
		defer cancel()
	}

	backlog, err := s.repo.Postgres.Notification.ListByUser(ctx, userID, postgres.ListOptions{
		UnreadOnly: true,
		Ascending:  s.ascending,
		Limit:      s.backlogLimit,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBacklogUnavailable, err)
	}

	metrics.BacklogSize.Observe(float64(len(backlog)))

	for _, n := range backlog {
		payload, err := json.Marshal(n.Live())
		if err != nil {
			return err
		}
		if err := gate.SendWait(ctx, payload); err != nil {
			return &hub.SessionIOError{SessionID: gate.ID(), Op: "replay", Err: err}
		}
	}

	if err := gate.open(ctx); err != nil {
		return &hub.SessionIOError{SessionID: gate.ID(), Op: "replay", Err: err}
	}

	return nil
}

package hub

import (
	"errors"
	"sync"

	"github.com/BloggingApp/realtime-notifications/internal/metrics"
	"go.uber.org/zap"
)

// Session is a live connection handle. The registry only tracks membership;
// the owner of the session controls its lifecycle.
type Session interface {
	ID() string
	// Send queues payload for delivery without blocking. An error means the
	// session can no longer be written to.
	Send(payload []byte) error
	Close() error
}

// Registry maps user ids to their live sessions.
// Each user has its own lock, so operations on different users never contend.
type Registry struct {
	logger *zap.Logger
	users  sync.Map // user id -> *userSessions
	owners sync.Map // session id -> user id
}

type userSessions struct {
	mu       sync.Mutex
	sessions map[string]Session
	// pruned is set once the entry has been removed from the users map.
	// A pruned entry must not receive new sessions.
	pruned bool
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		logger: logger,
	}
}

// Register adds session to the set of userID. Registering the same session
// again is a no-op. A session registered under another user is moved.
func (r *Registry) Register(userID string, session Session) {
	if prev, loaded := r.owners.Swap(session.ID(), userID); loaded && prev.(string) != userID {
		r.remove(prev.(string), session)
	}

	for {
		val, _ := r.users.LoadOrStore(userID, &userSessions{sessions: make(map[string]Session)})
		us := val.(*userSessions)

		us.mu.Lock()
		if us.pruned {
			us.mu.Unlock()
			continue
		}

		if _, exists := us.sessions[session.ID()]; !exists {
			if len(us.sessions) == 0 {
				metrics.LiveUsers.Inc()
			}
			us.sessions[session.ID()] = session
			metrics.LiveSessions.Inc()
		}
		us.mu.Unlock()
		return
	}
}

// Unregister removes session from the set of userID. It reports whether the
// session was registered; absent users or sessions are not an error.
func (r *Registry) Unregister(userID string, session Session) bool {
	r.owners.CompareAndDelete(session.ID(), userID)
	return r.remove(userID, session)
}

func (r *Registry) remove(userID string, session Session) bool {
	val, ok := r.users.Load(userID)
	if !ok {
		return false
	}
	us := val.(*userSessions)

	us.mu.Lock()
	defer us.mu.Unlock()

	if _, exists := us.sessions[session.ID()]; !exists {
		return false
	}
	delete(us.sessions, session.ID())
	metrics.LiveSessions.Dec()
	r.pruneLocked(userID, us)

	return true
}

// pruneLocked drops the entry of userID once its set is empty. us.mu must be held.
func (r *Registry) pruneLocked(userID string, us *userSessions) {
	if len(us.sessions) > 0 || us.pruned {
		return
	}
	us.pruned = true
	r.users.CompareAndDelete(userID, us)
	metrics.LiveUsers.Dec()
}

// Send delivers payload to every session of userID and returns how many
// sessions accepted it. Sessions that fail are unregistered and closed;
// failures are never returned to the caller. No sessions means no-op.
func (r *Registry) Send(userID string, payload []byte) int {
	val, ok := r.users.Load(userID)
	if !ok {
		return 0
	}
	us := val.(*userSessions)

	var failed []Session
	delivered := 0

	us.mu.Lock()
	for id, session := range us.sessions {
		if err := session.Send(payload); err != nil {
			r.logger.Sugar().Warnf("failed to send to user(%s) session(%s), evicting: %s", userID, id, err.Error())
			metrics.SendFailures.WithLabelValues(failureReason(err)).Inc()
			delete(us.sessions, id)
			metrics.LiveSessions.Dec()
			failed = append(failed, session)
			continue
		}
		delivered++
	}
	r.pruneLocked(userID, us)
	us.mu.Unlock()

	for _, session := range failed {
		r.owners.CompareAndDelete(session.ID(), userID)
		session.Close()
	}

	metrics.Deliveries.Add(float64(delivered))

	return delivered
}

// Sessions returns the ids of the sessions registered for userID.
func (r *Registry) Sessions(userID string) []string {
	val, ok := r.users.Load(userID)
	if !ok {
		return nil
	}
	us := val.(*userSessions)

	us.mu.Lock()
	defer us.mu.Unlock()

	ids := make([]string, 0, len(us.sessions))
	for id := range us.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Users returns the number of users with at least one registered session.
func (r *Registry) Users() int {
	n := 0
	r.users.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// CloseAll closes every registered session. Sessions unregister themselves
// as their handlers observe the close.
func (r *Registry) CloseAll() {
	r.users.Range(func(_, val any) bool {
		us := val.(*userSessions)

		us.mu.Lock()
		sessions := make([]Session, 0, len(us.sessions))
		for _, session := range us.sessions {
			sessions = append(sessions, session)
		}
		us.mu.Unlock()

		for _, session := range sessions {
			session.Close()
		}
		return true
	})
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrSendBufferFull):
		return "buffer_full"
	case errors.Is(err, ErrSessionClosed):
		return "closed"
	default:
		return "io"
	}
}

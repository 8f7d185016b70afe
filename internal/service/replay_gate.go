package service

import (
	"context"
	"sync"

	"github.com/BloggingApp/realtime-notifications/internal/hub"
)

const defaultPendingLimit = 1024

// replayGate is what the registry sees of a session. While the backlog is
// being replayed, live payloads are parked in a pending list instead of
// competing with the replay for the connection's send queue.
type replayGate struct {
	LiveConn

	mu        sync.Mutex
	replaying bool
	pending   [][]byte
	limit     int
}

func newReplayGate(conn LiveConn, limit int) *replayGate {
	if limit <= 0 {
		limit = defaultPendingLimit
	}
	return &replayGate{
		LiveConn:  conn,
		replaying: true,
		limit:     limit,
	}
}

func (g *replayGate) Send(payload []byte) error {
	g.mu.Lock()
	if g.replaying {
		defer g.mu.Unlock()
		if len(g.pending) >= g.limit {
			return hub.ErrSendBufferFull
		}
		g.pending = append(g.pending, payload)
		return nil
	}
	g.mu.Unlock()

	return g.LiveConn.Send(payload)
}

// open flushes the parked payloads in arrival order and then lets live sends
// through directly.
func (g *replayGate) open(ctx context.Context) error {
	for {
		g.mu.Lock()
		batch := g.pending
		g.pending = nil
		if len(batch) == 0 {
			g.replaying = false
			g.mu.Unlock()
			return nil
		}
		g.mu.Unlock()

		for _, payload := range batch {
			if err := g.LiveConn.SendWait(ctx, payload); err != nil {
				return err
			}
		}
	}
}

func (g *replayGate) parked() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}

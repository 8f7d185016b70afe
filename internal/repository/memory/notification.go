// Package memory is an in-process notification store with the semantics of
// the postgres store. It is a test double: test suites use it in place of a
// database and no production command wires it.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/BloggingApp/realtime-notifications/internal/model"
	"github.com/BloggingApp/realtime-notifications/internal/repository/postgres"
)

type Store struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]model.Notification
	err    error
	now    func() time.Time

	// OnInsert runs after every insert, like the database trigger.
	OnInsert func(n model.Notification)
}

var _ postgres.Notification = (*Store)(nil)

func New() *Store {
	return &Store{
		rows: make(map[int64]model.Notification),
		now:  time.Now,
	}
}

// FailWith makes every following call return err. nil restores normal operation.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *Store) Insert(_ context.Context, n model.Notification) (*model.Notification, error) {
	s.mu.Lock()
	if s.err != nil {
		s.mu.Unlock()
		return nil, s.err
	}
	s.nextID++
	n.ID = s.nextID
	n.IsRead = false
	// keep created_at strictly increasing so ordering is deterministic
	n.CreatedAt = s.now().UTC().Add(time.Duration(n.ID) * time.Microsecond)
	s.rows[n.ID] = n
	hook := s.OnInsert
	s.mu.Unlock()

	if hook != nil {
		hook(n)
	}

	return &n, nil
}

func (s *Store) ListByUser(_ context.Context, userID string, opts postgres.ListOptions) ([]*model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}

	var out []*model.Notification
	for _, n := range s.rows {
		if n.UserID != userID || (opts.UnreadOnly && n.IsRead) {
			continue
		}
		n := n
		out = append(out, &n)
	}

	sort.Slice(out, func(i, j int) bool {
		if opts.Ascending {
			return out[i].ID < out[j].ID
		}
		return out[i].ID > out[j].ID
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}

	return out, nil
}

func (s *Store) MarkRead(_ context.Context, id int64) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", false, s.err
	}

	n, ok := s.rows[id]
	if !ok {
		return "", false, nil
	}
	n.IsRead = true
	s.rows[id] = n
	return n.UserID, true, nil
}

func (s *Store) Delete(_ context.Context, id int64) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", false, s.err
	}

	n, ok := s.rows[id]
	if !ok {
		return "", false, nil
	}
	delete(s.rows, id)
	return n.UserID, true, nil
}

func (s *Store) DeleteReadBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}

	var deleted int64
	for id, n := range s.rows {
		if n.IsRead && n.CreatedAt.Before(cutoff) {
			delete(s.rows, id)
			deleted++
		}
	}
	return deleted, nil
}

// Backdate moves the creation time of id; used to exercise retention.
func (s *Store) Backdate(id int64, createdAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.rows[id]; ok {
		n.CreatedAt = createdAt
		s.rows[id] = n
	}
}

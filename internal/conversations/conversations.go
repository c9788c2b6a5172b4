// Package conversations stores each user's AI chat mode flag and the history
// of completed exchanges.
package conversations

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/m3rciful/relaybot/core/logger"
	"github.com/m3rciful/relaybot/internal/docstore"
)

// DocumentName is the storage name of the conversations document.
const DocumentName = "conversations"

// ErrInactive is returned by Append when the user's chat mode is off.
var ErrInactive = errors.New("conversations: chat mode inactive")

// Exchange is one prompt/answer pair.
type Exchange struct {
	User      string    `json:"user"`
	Assistant string    `json:"assistant"`
	At        time.Time `json:"at"`
}

// State is the per-user conversation record.
type State struct {
	Active  bool       `json:"active"`
	History []Exchange `json:"history"`
}

// Store maps user ids to conversation state.
type Store struct {
	doc *docstore.Document[State]
	now func() time.Time
}

// NewStore binds the store to a storage backend.
func NewStore(backend docstore.Backend) *Store {
	return &Store{
		doc: docstore.NewDocument[State](backend, DocumentName),
		now: time.Now,
	}
}

func key(id int64) string { return strconv.FormatInt(id, 10) }

func normalize(s State) State {
	if s.History == nil {
		s.History = []Exchange{}
	}
	return s
}

// Get returns the persisted state or the inactive default.
func (s *Store) Get(ctx context.Context, id int64) State {
	return normalize(s.doc.Snapshot(ctx)[key(id)])
}

// Put replaces the user's state, keeping every other user's entry as stored.
func (s *Store) Put(ctx context.Context, id int64, state State) error {
	return s.doc.Update(ctx, func(entries map[string]State) error {
		entries[key(id)] = normalize(state)
		return nil
	})
}

// Reset turns chat mode off in one locked update, creating the record when
// absent and keeping the stored history. It returns the resulting state.
func (s *Store) Reset(ctx context.Context, id int64) (State, error) {
	var out State
	err := s.doc.Update(ctx, func(entries map[string]State) error {
		st, ok := entries[key(id)]
		out = normalize(st)
		out.Active = false
		if ok && !st.Active {
			return docstore.ErrNoChange
		}
		entries[key(id)] = out
		return nil
	})
	if err != nil {
		return State{}, err
	}
	return out, nil
}

// Deactivate turns chat mode off. Unknown users and already inactive users
// cause no write.
func (s *Store) Deactivate(ctx context.Context, id int64) error {
	return s.doc.Update(ctx, func(entries map[string]State) error {
		st, ok := entries[key(id)]
		if !ok || !st.Active {
			return docstore.ErrNoChange
		}
		st.Active = false
		entries[key(id)] = normalize(st)
		return nil
	})
}

// Activate turns chat mode on, creating the record when absent.
func (s *Store) Activate(ctx context.Context, id int64) error {
	return s.doc.Update(ctx, func(entries map[string]State) error {
		st, ok := entries[key(id)]
		if ok && st.Active {
			return docstore.ErrNoChange
		}
		st.Active = true
		entries[key(id)] = normalize(st)
		return nil
	})
}

// Append records a completed exchange when the latest stored state is active.
// It returns ErrInactive and writes nothing otherwise.
func (s *Store) Append(ctx context.Context, id int64, ex Exchange) (State, error) {
	if ex.At.IsZero() {
		ex.At = s.now().UTC()
	}
	var out State
	err := s.doc.Update(ctx, func(entries map[string]State) error {
		st, ok := entries[key(id)]
		if !ok || !st.Active {
			return ErrInactive
		}
		st.History = append(st.History, ex)
		entries[key(id)] = st
		out = st
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrInactive) {
			logger.Error(ctx, "service.conversations", "conversations.append",
				slog.String("status", "error"),
				slog.String("err", err.Error()),
			)
		}
		return State{}, err
	}
	logger.Debug(ctx, "service.conversations", "conversations.append",
		slog.String("status", "ok"),
		slog.Int("history_len", len(out.History)),
	)
	return out, nil
}

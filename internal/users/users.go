// Package users keeps the durable registry of Telegram users who pressed
// /start, together with a monotonic usage counter.
package users

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/m3rciful/relaybot/core/logger"
	"github.com/m3rciful/relaybot/internal/docstore"
)

// DocumentName is the storage name of the registry document.
const DocumentName = "users"

// Profile is one registry record.
type Profile struct {
	Username   string `json:"username,omitempty"`
	FirstName  string `json:"first_name,omitempty"`
	UsageCount int    `json:"usage_count"`
}

// Stats summarizes the registry.
type Stats struct {
	Users      int
	TotalUsage int
}

// Registry maps user ids to profiles.
type Registry struct {
	doc *docstore.Document[Profile]
}

// NewRegistry binds the registry to a storage backend.
func NewRegistry(backend docstore.Backend) *Registry {
	return &Registry{doc: docstore.NewDocument[Profile](backend, DocumentName)}
}

// Key converts a Telegram id into the registry key.
func Key(id int64) string {
	return strconv.FormatInt(id, 10)
}

// GetOrCreate returns the stored profile or defaults with a zero counter. It
// never writes.
func (r *Registry) GetOrCreate(ctx context.Context, id int64, defaults Profile) Profile {
	if p, ok := r.doc.Snapshot(ctx)[Key(id)]; ok {
		return p
	}
	defaults.UsageCount = 0
	return defaults
}

// RecordUsage increments the usage counter of id, creating the record from
// defaults when absent, and persists the registry.
func (r *Registry) RecordUsage(ctx context.Context, id int64, defaults Profile) (Profile, error) {
	var updated Profile
	err := r.doc.Update(ctx, func(entries map[string]Profile) error {
		p, ok := entries[Key(id)]
		if !ok {
			p = defaults
			p.UsageCount = 0
		}
		p.UsageCount++
		entries[Key(id)] = p
		updated = p
		return nil
	})
	if err != nil {
		logger.Error(ctx, "service.users", "users.record_usage",
			slog.String("status", "error"),
			slog.String("err", err.Error()),
		)
		return Profile{}, err
	}
	logger.Debug(ctx, "service.users", "users.record_usage",
		slog.String("status", "ok"),
		slog.Int("usage_count", updated.UsageCount),
	)
	return updated, nil
}

// Stats reports the number of known users and the sum of their counters.
func (r *Registry) Stats(ctx context.Context) Stats {
	var s Stats
	for _, p := range r.doc.Snapshot(ctx) {
		s.Users++
		s.TotalUsage += p.UsageCount
	}
	return s
}

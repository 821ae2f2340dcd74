package health

import (
	"context"
	"database/sql"
	"time"
)

const pingTimeout = 2 * time.Second

// Service reports process readiness.
type Service struct {
	db *sql.DB
}

// NewService constructs a health service. db may be nil when run history is in memory.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Status returns the health payload and whether every dependency is reachable.
func (s *Service) Status(ctx context.Context) (map[string]any, bool) {
	if s == nil || s.db == nil {
		return map[string]any{"ok": true, "database": "disabled"}, true
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.db.PingContext(pingCtx); err != nil {
		return map[string]any{"ok": false, "database": "unreachable"}, false
	}
	return map[string]any{"ok": true, "database": "ok"}, true
}

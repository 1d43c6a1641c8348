package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/dimitrije/taskdeck-api/internal/database"
)

// Recorder receives every denied check or rejected mutation. Implementations
// are best-effort: recording must never block the calling operation and
// its failures are never surfaced to the caller.
//
// Capability denials and role denials use distinct vocabularies
// (none/view/edit/delete vs owner/admin/member/viewer), so they land in
// distinct columns.
type Recorder interface {
	RecordDenial(ctx context.Context, actorID uuid.UUID, action string, resourceID uuid.UUID, required, actual string)
	RecordRoleDenial(ctx context.Context, actorID uuid.UUID, action string, resourceID uuid.UUID, requiredRole, actualRole string)
}

type Denial struct {
	ActorID            uuid.UUID
	Action             string
	ResourceID         uuid.UUID
	RequiredCapability string
	ActualCapability   string
	RequiredRole       string
	ActualRole         string
}

// PostgresRecorder persists denials to the audit_denials table through a
// buffered channel; when the buffer is full the denial is dropped rather
// than stalling the operation that triggered it.
type PostgresRecorder struct {
	db      *database.DB
	denials chan Denial
	done    chan struct{}
}

func NewPostgresRecorder(db *database.DB) *PostgresRecorder {
	return &PostgresRecorder{
		db:      db,
		denials: make(chan Denial, 256),
		done:    make(chan struct{}),
	}
}

func (r *PostgresRecorder) RecordDenial(ctx context.Context, actorID uuid.UUID, action string, resourceID uuid.UUID, required, actual string) {
	r.enqueue(Denial{ActorID: actorID, Action: action, ResourceID: resourceID, RequiredCapability: required, ActualCapability: actual})
}

func (r *PostgresRecorder) RecordRoleDenial(ctx context.Context, actorID uuid.UUID, action string, resourceID uuid.UUID, requiredRole, actualRole string) {
	r.enqueue(Denial{ActorID: actorID, Action: action, ResourceID: resourceID, RequiredRole: requiredRole, ActualRole: actualRole})
}

func (r *PostgresRecorder) enqueue(denial Denial) {
	select {
	case r.denials <- denial:
	default:
		// Buffer full, drop
	}
}

func (r *PostgresRecorder) Run() {
	for denial := range r.denials {
		_, err := r.db.Pool.Exec(context.Background(), `
			INSERT INTO audit_denials (actor_id, action, resource_id, required_capability, actual_capability, required_role, actual_role)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, denial.ActorID, denial.Action, denial.ResourceID,
			nullable(denial.RequiredCapability), nullable(denial.ActualCapability),
			nullable(denial.RequiredRole), nullable(denial.ActualRole))
		if err != nil {
			log.Printf("audit: failed to record denial: %v", err)
		}
	}
	close(r.done)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Close stops the recorder after draining buffered denials.
func (r *PostgresRecorder) Close() {
	close(r.denials)
	<-r.done
}

// DeleteOlderThan removes denial records older than age. Used by the
// periodic retention sweep in main.
func (r *PostgresRecorder) DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	result, err := r.db.Pool.Exec(ctx, `
		DELETE FROM audit_denials WHERE created_at < $1
	`, time.Now().Add(-age))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

// Noop discards every denial. Useful in tests that do not assert on audit.
type Noop struct{}

func (Noop) RecordDenial(context.Context, uuid.UUID, string, uuid.UUID, string, string) {}

func (Noop) RecordRoleDenial(context.Context, uuid.UUID, string, uuid.UUID, string, string) {}

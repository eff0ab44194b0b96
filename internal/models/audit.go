// internal/models/audit.go
package models

import (
	"context"
	"database/sql"
	"encoding/json"
)

// AuditEvent is one row of audit_log.
type AuditEvent struct {
	EventType    string
	ResourceType string
	ResourceID   string
	ActorID      string
	Details      map[string]interface{}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// WriteAudit inserts e using tx, so the row commits or rolls back with the change it describes.
func WriteAudit(ctx context.Context, tx execer, e AuditEvent) error {
	details := e.Details
	if details == nil {
		details = map[string]interface{}{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO audit_log (event_type, resource_type, resource_id, actor_id, details) VALUES ($1, $2, $3, $4, $5)`,
		e.EventType, e.ResourceType, e.ResourceID, e.ActorID, string(raw))
	return err
}

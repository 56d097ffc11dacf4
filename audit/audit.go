// Package audit writes immutable business events and transactional outbox
// rows. Writers run inside the caller's transaction so a mutation and its
// trail commit or roll back together.
package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Timeline appends events to the ledger's audit trail.
type Timeline struct{}

func NewTimeline() *Timeline {
	return &Timeline{}
}

// Append inserts an event for the given entity inside tx.
func (t *Timeline) Append(ctx context.Context, tx pgx.Tx, entityID, eventType string, actorID *string, payload map[string]any) error {
	if entityID == "" || eventType == "" {
		return fmt.Errorf("audit: entity id and event type required")
	}

	payloadBytes, err := json.Marshal(ensurePayload(payload))
	if err != nil {
		return fmt.Errorf("audit: marshal event payload: %w", err)
	}

	var actor any
	if actorID != nil && *actorID != "" {
		actor = *actorID
	}

	const insertSQL = `
		INSERT INTO events (entity_id, type, payload, actor_id)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := tx.Exec(ctx, insertSQL, entityID, eventType, payloadBytes, actor); err != nil {
		return fmt.Errorf("audit: insert event: %w", err)
	}
	return nil
}

// Outbox enqueues messages for an external relay to publish.
type Outbox struct{}

func NewOutbox() *Outbox {
	return &Outbox{}
}

// Enqueue inserts an outbox message inside tx.
func (o *Outbox) Enqueue(ctx context.Context, tx pgx.Tx, topic string, payload map[string]any) error {
	if topic == "" {
		return fmt.Errorf("audit: outbox topic required")
	}

	payloadBytes, err := json.Marshal(ensurePayload(payload))
	if err != nil {
		return fmt.Errorf("audit: marshal outbox payload: %w", err)
	}

	const insertSQL = `
		INSERT INTO outbox (topic, payload)
		VALUES ($1, $2)
	`
	if _, err := tx.Exec(ctx, insertSQL, topic, payloadBytes); err != nil {
		return fmt.Errorf("audit: insert outbox message: %w", err)
	}
	return nil
}

func ensurePayload(payload map[string]any) map[string]any {
	if payload == nil {
		return map[string]any{}
	}
	return payload
}

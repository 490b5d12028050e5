// Package audit defines the change trail kept for every document mutation.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"tradebook/internal/core/id"
)

// Action represents the type of audited operation.
type Action string

const (
	ActionPost         Action = "post"
	ActionReplaceLines Action = "replace_lines"
	ActionUpdateHeader Action = "update_header"
	ActionAmend        Action = "amend"
	ActionDelete       Action = "delete"
)

// Entry is one recorded change.
type Entry struct {
	ID         id.ID           `json:"id"`
	EntityType string          `json:"entity_type"`
	EntityID   id.ID           `json:"entity_id"`
	Action     Action          `json:"action"`
	RequestID  string          `json:"request_id,omitempty"`
	Changes    json.RawMessage `json:"changes"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Recorder writes and reads the audit trail. Record joins the caller's
// transaction when one is present in ctx.
type Recorder interface {
	Record(ctx context.Context, entityType string, entityID id.ID, action Action, changes map[string]any) error
	History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]Entry, error)
}

// Diff calculates the difference between old and new entity states.
func Diff(oldState, newState map[string]any) map[string]any {
	changes := make(map[string]any)

	for key, newVal := range newState {
		oldVal, exists := oldState[key]
		if !exists {
			changes[key] = map[string]any{"old": nil, "new": newVal}
		} else if !equal(oldVal, newVal) {
			changes[key] = map[string]any{"old": oldVal, "new": newVal}
		}
	}

	for key, oldVal := range oldState {
		if _, exists := newState[key]; !exists {
			changes[key] = map[string]any{"old": oldVal, "new": nil}
		}
	}

	return changes
}

// equal compares values by their JSON encoding.
func equal(a, b any) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(ja) == string(jb)
}

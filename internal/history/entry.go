package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Kind of a finished item in the history log.
type Kind string

const (
	KindActivity Kind = "activity"
	KindWorkout  Kind = "workout"
)

func (k Kind) IsValid() bool {
	switch k {
	case KindActivity, KindWorkout:
		return true
	default:
		return false
	}
}

func (k Kind) String() string {
	return string(k)
}

// Entry is a finished activity session or workout, serialized at hand-off time.
type Entry struct {
	ID         string          `json:"id"`
	Kind       Kind            `json:"kind"`
	Name       string          `json:"name"`
	FinishedAt time.Time       `json:"finishedAt"`
	Payload    json.RawMessage `json:"payload"`
}

// NewEntry marshals the payload into a new history entry.
func NewEntry(id string, kind Kind, name string, finishedAt time.Time, payload any) (Entry, error) {
	payloadJson, err := json.Marshal(payload)
	if err != nil {
		return Entry{}, fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	return Entry{
		ID:         id,
		Kind:       kind,
		Name:       name,
		FinishedAt: finishedAt,
		Payload:    payloadJson,
	}, nil
}

// Decode unmarshals the entry payload into dst.
func (e Entry) Decode(dst any) error {
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return fmt.Errorf("unmarshal %s entry %s: %w", e.Kind, e.ID, err)
	}
	return nil
}

// Store is the append-only history log. List returns the newest entries first;
// a limit <= 0 means no limit.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	List(ctx context.Context, kind Kind, limit int) ([]Entry, error)
}

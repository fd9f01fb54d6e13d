package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/model"
)

// payloadField is the stream entry field holding the JSON-encoded change.
const payloadField = "payload"

// ErrInvalidPayload means a stream entry does not hold a valid change.
var ErrInvalidPayload = errors.New("invalid change payload")

// NewChange builds a change event for a committed write.
func NewChange(table string, op model.ChangeOp, recordID int64) model.Change {
	return model.Change{
		ID:       ulid.Make().String(),
		Table:    table,
		Op:       op,
		RecordID: recordID,
		At:       time.Now().UTC(),
	}
}

// encodeChange returns the stream entry values for change.
func encodeChange(change model.Change) (map[string]any, error) {
	data, err := json.Marshal(change)
	if err != nil {
		return nil, fmt.Errorf("marshal change: %w", err)
	}
	return map[string]any{payloadField: string(data)}, nil
}

// decodeChange parses stream entry values back into a change.
func decodeChange(values map[string]any) (model.Change, error) {
	var change model.Change

	payload, ok := values[payloadField].(string)
	if !ok {
		return change, fmt.Errorf("%w: %s field missing or not a string", ErrInvalidPayload, payloadField)
	}
	if err := json.Unmarshal([]byte(payload), &change); err != nil {
		return change, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if err := validateChange(change); err != nil {
		return change, err
	}

	return change, nil
}

func validateChange(change model.Change) error {
	if change.ID == "" || change.Table == "" {
		return fmt.Errorf("%w: id and table are required", ErrInvalidPayload)
	}
	switch change.Op {
	case model.ChangeInsert, model.ChangeUpdate, model.ChangeDelete:
	default:
		return fmt.Errorf("%w: unknown op %q", ErrInvalidPayload, change.Op)
	}
	return nil
}

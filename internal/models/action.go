package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Service identifies a remote resource family
type Service string

const (
	ServiceComplaints Service = "complaints"
)

// Operation is the kind of write an action performs
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// QueuedAction представляет одно отложенное намерение записи.
// Создается Enqueuer'ом, изменяется только Replay Engine (Attempts, LastError)
// и удаляется им же после подтверждения сервером.
type QueuedAction struct {
	EnqueuedAt time.Time // EnqueuedAt время постановки в очередь (порядок и отображение)
	Payload    Payload   // Payload типизированное тело операции
	LocalID    string    // LocalID уникальный на устройстве идентификатор (UUIDv7)
	Service    Service   // Service целевое семейство ресурсов
	Operation  Operation // Operation create | update | delete
	LastError  string    // LastError причина последней неудачи
	Attempts   int       // Attempts количество попыток доставки
}

// NewQueuedAction builds an action for payload with zero attempts
func NewQueuedAction(localID string, payload Payload, enqueuedAt time.Time) QueuedAction {
	kind := payload.Kind()
	return QueuedAction{
		LocalID:    localID,
		Service:    kind.Service,
		Operation:  kind.Operation,
		Payload:    payload,
		EnqueuedAt: enqueuedAt,
	}
}

// Kind returns the service/operation pair of the action
func (a QueuedAction) Kind() Kind {
	return Kind{Service: a.Service, Operation: a.Operation}
}

// LocalIdentifier returns the temporary identifier surfaced to the UI
func (a QueuedAction) LocalIdentifier() Identifier {
	return Local(a.LocalID)
}

// IdempotencyKey is the client-supplied key the server deduplicates creates by
func (a QueuedAction) IdempotencyKey() string {
	return a.LocalID
}

// Validate checks action-level invariants and the payload itself
func (a QueuedAction) Validate() error {
	if a.LocalID == "" {
		return errors.New("local id is required")
	}
	if a.Payload == nil {
		return fmt.Errorf("%w: payload is required", ErrInvalidPayload)
	}
	if a.Payload.Kind() != a.Kind() {
		return fmt.Errorf("%w: payload kind %s does not match action %s", ErrInvalidPayload, a.Payload.Kind(), a.Kind())
	}
	return a.Payload.Validate()
}

type queuedActionJSON struct {
	EnqueuedAt time.Time       `json:"enqueued_at"`
	LocalID    string          `json:"local_id"`
	Service    Service         `json:"service"`
	Operation  Operation       `json:"operation"`
	LastError  string          `json:"last_error,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	Attempts   int             `json:"attempts"`
}

// MarshalJSON encodes the action with its payload inlined
func (a QueuedAction) MarshalJSON() ([]byte, error) {
	var payload json.RawMessage
	if a.Payload != nil {
		data, err := json.Marshal(a.Payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		payload = data
	}

	return json.Marshal(queuedActionJSON{
		EnqueuedAt: a.EnqueuedAt,
		LocalID:    a.LocalID,
		Service:    a.Service,
		Operation:  a.Operation,
		LastError:  a.LastError,
		Payload:    payload,
		Attempts:   a.Attempts,
	})
}

// UnmarshalJSON decodes the action, dispatching the payload on service/operation
func (a *QueuedAction) UnmarshalJSON(data []byte) error {
	var raw queuedActionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode queued action: %w", err)
	}

	payload, err := DecodePayload(Kind{Service: raw.Service, Operation: raw.Operation}, raw.Payload)
	if err != nil {
		return fmt.Errorf("action %s: %w", raw.LocalID, err)
	}

	*a = QueuedAction{
		EnqueuedAt: raw.EnqueuedAt,
		Payload:    payload,
		LocalID:    raw.LocalID,
		Service:    raw.Service,
		Operation:  raw.Operation,
		LastError:  raw.LastError,
		Attempts:   raw.Attempts,
	}
	return nil
}

// FailedAction is a quarantined action that needs manual resolution
type FailedAction struct {
	FailedAt  time.Time    `json:"failed_at"`
	Reason    string       `json:"reason"`
	Action    QueuedAction `json:"action"`
	Exhausted bool         `json:"exhausted"` // true если исчерпан лимит повторов, а не ошибка 4xx
}

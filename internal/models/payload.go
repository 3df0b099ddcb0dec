package models

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Jaffar451/site-justice-mobile-sub001/internal/validation"
)

// ErrUnknownPayload indicates that no payload type is registered for a service/operation pair
var ErrUnknownPayload = errors.New("unknown payload kind")

// ErrInvalidPayload indicates that payload content failed validation
var ErrInvalidPayload = errors.New("invalid payload")

// Kind identifies the shape of a payload
type Kind struct {
	Service   Service
	Operation Operation
}

func (k Kind) String() string {
	return string(k.Service) + "." + string(k.Operation)
}

// Payload kinds known to the client
var (
	KindComplaintCreate = Kind{Service: ServiceComplaints, Operation: OperationCreate}
	KindComplaintUpdate = Kind{Service: ServiceComplaints, Operation: OperationUpdate}
	KindComplaintDelete = Kind{Service: ServiceComplaints, Operation: OperationDelete}
)

// Payload is the typed body of a queued write intent.
// Every implementation maps to exactly one Kind.
type Payload interface {
	Kind() Kind
	Validate() error
}

// Targeted is implemented by payloads that act on an existing record
type Targeted interface {
	Payload
	TargetID() Identifier
	WithTarget(id Identifier) Payload
}

// ComplaintCreate files a new complaint
type ComplaintCreate struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category,omitempty"`
	Location    string   `json:"location,omitempty"`
	Attachments []string `json:"attachments,omitempty"` // ссылки на уже загруженные файлы
}

func (ComplaintCreate) Kind() Kind { return KindComplaintCreate }

func (p ComplaintCreate) Validate() error {
	checks := []error{
		validation.ValidateTitle(p.Title),
		validation.ValidateDescription(p.Description),
		validation.ValidateCategory(p.Category),
		validation.ValidateLocation(p.Location),
		validation.ValidateAttachments(p.Attachments),
	}
	for _, err := range checks {
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
	}
	return nil
}

// ComplaintUpdate patches an existing complaint. Nil fields are left untouched.
type ComplaintUpdate struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Category    *string    `json:"category,omitempty"`
	Location    *string    `json:"location,omitempty"`
	Target      Identifier `json:"target"`
}

func (ComplaintUpdate) Kind() Kind { return KindComplaintUpdate }

func (p ComplaintUpdate) Validate() error {
	if p.Target.IsZero() {
		return fmt.Errorf("%w: update target is required", ErrInvalidPayload)
	}
	if p.Title == nil && p.Description == nil && p.Category == nil && p.Location == nil {
		return fmt.Errorf("%w: nothing to update", ErrInvalidPayload)
	}
	var checks []error
	if p.Title != nil {
		checks = append(checks, validation.ValidateTitle(*p.Title))
	}
	if p.Description != nil {
		checks = append(checks, validation.ValidateDescription(*p.Description))
	}
	if p.Category != nil {
		checks = append(checks, validation.ValidateCategory(*p.Category))
	}
	if p.Location != nil {
		checks = append(checks, validation.ValidateLocation(*p.Location))
	}
	for _, err := range checks {
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
	}
	return nil
}

func (p ComplaintUpdate) TargetID() Identifier { return p.Target }

func (p ComplaintUpdate) WithTarget(id Identifier) Payload {
	p.Target = id
	return p
}

// Apply returns c with the patch applied
func (p ComplaintUpdate) Apply(c Complaint) Complaint {
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Category != nil {
		c.Category = *p.Category
	}
	if p.Location != nil {
		c.Location = *p.Location
	}
	return c
}

// ComplaintDelete withdraws a complaint
type ComplaintDelete struct {
	Reason string     `json:"reason,omitempty"`
	Target Identifier `json:"target"`
}

func (ComplaintDelete) Kind() Kind { return KindComplaintDelete }

func (p ComplaintDelete) Validate() error {
	if p.Target.IsZero() {
		return fmt.Errorf("%w: delete target is required", ErrInvalidPayload)
	}
	return nil
}

func (p ComplaintDelete) TargetID() Identifier { return p.Target }

func (p ComplaintDelete) WithTarget(id Identifier) Payload {
	p.Target = id
	return p
}

// DecodePayload decodes raw JSON into the payload type registered for kind
func DecodePayload(kind Kind, raw json.RawMessage) (Payload, error) {
	switch kind {
	case KindComplaintCreate:
		var p ComplaintCreate
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to decode %s payload: %w", kind, err)
		}
		return p, nil
	case KindComplaintUpdate:
		var p ComplaintUpdate
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to decode %s payload: %w", kind, err)
		}
		return p, nil
	case KindComplaintDelete:
		var p ComplaintDelete
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to decode %s payload: %w", kind, err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownPayload, kind)
	}
}

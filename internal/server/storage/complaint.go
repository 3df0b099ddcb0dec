package storage

import (
	"context"
	"time"

	"github.com/Jaffar451/site-justice-mobile-sub001/internal/models"
)

// NewComplaint is a complaint about to be created
type NewComplaint struct {
	CreatedAt      time.Time
	IdempotencyKey string
	Title          string
	Description    string
	Category       string
	Location       string
	Attachments    []string
}

//go:generate moq -out complaintstorage_mock.go . ComplaintStorage

// ComplaintStorage defines interface for complaint persistence
type ComplaintStorage interface {
	// CreateComplaint inserts c unless a complaint with the same idempotency key
	// exists. Returns the stored record and whether it was created by this call.
	CreateComplaint(ctx context.Context, c NewComplaint) (*models.Complaint, bool, error)

	// GetComplaint retrieves a complaint by id.
	// Returns ErrComplaintNotFound for unknown ids and ErrComplaintDeleted for withdrawn ones.
	GetComplaint(ctx context.Context, id string) (*models.Complaint, error)

	// ListComplaints returns complaints that are not withdrawn, oldest first
	ListComplaints(ctx context.Context) ([]models.Complaint, error)

	// UpdateComplaint applies patch to a complaint that is not withdrawn
	UpdateComplaint(ctx context.Context, id string, patch models.ComplaintUpdate, at time.Time) (*models.Complaint, error)

	// DeleteComplaint withdraws a complaint. Withdrawing twice is not an error.
	// Returns ErrComplaintNotFound for unknown ids.
	DeleteComplaint(ctx context.Context, id, reason string, at time.Time) error
}

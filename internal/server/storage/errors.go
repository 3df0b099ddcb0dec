package storage

import "errors"

// Common storage errors
var (
	// ErrComplaintNotFound indicates that complaint was not found in storage
	ErrComplaintNotFound = errors.New("complaint not found")

	// ErrComplaintDeleted indicates that complaint was withdrawn
	ErrComplaintDeleted = errors.New("complaint withdrawn")
)

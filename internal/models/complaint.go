package models

import (
	"errors"
	"time"
)

// ErrNotFound indicates that a record does not exist on the server or locally
var ErrNotFound = errors.New("not found")

// Complaint statuses as returned by the complaints service
const (
	ComplaintStatusReceived    = "received"
	ComplaintStatusUnderReview = "under_review"
	ComplaintStatusClosed      = "closed"
)

// Complaint представляет жалобу (plainte), как ее хранит сервер.
type Complaint struct {
	CreatedAt   time.Time `json:"created_at"`  // CreatedAt время регистрации на сервере
	UpdatedAt   time.Time `json:"updated_at"`  // UpdatedAt время последнего изменения
	ID          string    `json:"id"`          // ID серверный идентификатор
	Title       string    `json:"title"`       // Title краткое описание (например, "Vol de moto")
	Description string    `json:"description"` // Description подробности происшествия
	Category    string    `json:"category"`    // Category категория (theft, assault, ...)
	Location    string    `json:"location"`    // Location место происшествия в свободной форме
	Status      string    `json:"status"`      // Status статус рассмотрения
	ClientRef   string    `json:"client_ref"`  // ClientRef ключ идемпотентности, с которым запись была создана
}

package api

import "time"

// Complaint представляет жалобу на сервере
type Complaint struct {
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Location    string    `json:"location,omitempty"`
	Status      string    `json:"status"`
	ClientRef   string    `json:"client_ref,omitempty"` // Idempotency-Key запроса на создание
}

// CreateComplaintRequest представляет запрос на подачу жалобы
type CreateComplaintRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category,omitempty"`
	Location    string   `json:"location,omitempty"`
	Attachments []string `json:"attachments,omitempty"`
}

// UpdateComplaintRequest представляет частичное обновление; nil поля не меняются
type UpdateComplaintRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
	Location    *string `json:"location,omitempty"`
}

// ListComplaintsResponse представляет список жалоб
type ListComplaintsResponse struct {
	Complaints []Complaint `json:"complaints"`
}

// Package api contains the wire types shared by the complaints client and server.
package api

// Заголовки протокола
const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderAuthorization  = "Authorization"
)

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error,omitempty"`   // код ошибки
	Message string `json:"message,omitempty"` // сообщение для пользователя
}

// HealthResponse представляет ответ health endpoint
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

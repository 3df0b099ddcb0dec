package replay

import (
	"context"

	"github.com/Jaffar451/site-justice-mobile-sub001/internal/models"
)

// Request is a single delivery of a queued action to the server
type Request struct {
	Payload        models.Payload   // Payload с уже разрешенным Remote target
	LocalID        string           // LocalID действия в очереди
	IdempotencyKey string           // IdempotencyKey отправляется серверу для дедупликации
	Service        models.Service   // Service семейство ресурсов
	Operation      models.Operation // Operation create | update | delete
}

// Kind returns the service/operation pair of the request
func (r Request) Kind() models.Kind {
	return models.Kind{Service: r.Service, Operation: r.Operation}
}

// Result is the acknowledgement of a successful delivery
type Result struct {
	// ServerID is the server-assigned id, set for creates
	ServerID string
}

// Executor delivers requests to the remote services.
// A returned error should be a *DeliveryError; any other error is treated as transient.
//
//go:generate moq -out executor_mock.go . Executor
type Executor interface {
	Execute(ctx context.Context, req Request) (*Result, error)
}

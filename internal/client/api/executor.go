package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Jaffar451/site-justice-mobile-sub001/internal/client/replay"
	"github.com/Jaffar451/site-justice-mobile-sub001/internal/models"
	"github.com/Jaffar451/site-justice-mobile-sub001/pkg/api"
)

var _ replay.Executor = (*Client)(nil)

// Execute delivers a queued action over HTTP and classifies the outcome.
// 5xx, 408, 429 and network failures are transient, any other 4xx is permanent.
func (c *Client) Execute(ctx context.Context, req replay.Request) (*replay.Result, error) {
	switch p := req.Payload.(type) {
	case models.ComplaintCreate:
		created, err := c.CreateComplaint(ctx, req.IdempotencyKey, api.CreateComplaintRequest{
			Title:       p.Title,
			Description: p.Description,
			Category:    p.Category,
			Location:    p.Location,
			Attachments: p.Attachments,
		})
		if err != nil {
			return nil, classify(err)
		}
		return &replay.Result{ServerID: created.ID}, nil

	case models.ComplaintUpdate:
		if !p.Target.IsRemote() {
			return nil, fmt.Errorf("%w: %s", replay.ErrUnresolvedTarget, p.Target)
		}
		updated, err := c.UpdateComplaint(ctx, req.IdempotencyKey, p.Target.RemoteID(), api.UpdateComplaintRequest{
			Title:       p.Title,
			Description: p.Description,
			Category:    p.Category,
			Location:    p.Location,
		})
		if err != nil {
			return nil, classify(err)
		}
		return &replay.Result{ServerID: updated.ID}, nil

	case models.ComplaintDelete:
		if !p.Target.IsRemote() {
			return nil, fmt.Errorf("%w: %s", replay.ErrUnresolvedTarget, p.Target)
		}
		err := c.DeleteComplaint(ctx, req.IdempotencyKey, p.Target.RemoteID(), p.Reason)
		// Уже удалена - цель достигнута
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, classify(err)
		}
		return &replay.Result{ServerID: p.Target.RemoteID()}, nil

	default:
		return nil, replay.NewPermanentError(0, fmt.Sprintf("%v: %s", models.ErrUnknownPayload, req.Kind()))
	}
}

func classify(err error) error {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		return replay.NewTransientError(err)
	}

	switch {
	case httpErr.StatusCode >= 500,
		httpErr.StatusCode == http.StatusTooManyRequests,
		httpErr.StatusCode == http.StatusRequestTimeout:
		return &replay.DeliveryError{Kind: replay.Transient, StatusCode: httpErr.StatusCode, Detail: httpErr.Message, Err: err}
	default:
		return &replay.DeliveryError{Kind: replay.Permanent, StatusCode: httpErr.StatusCode, Detail: httpErr.Message, Err: err}
	}
}

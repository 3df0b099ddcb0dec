package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Jaffar451/site-justice-mobile-sub001/internal/models"
	"github.com/Jaffar451/site-justice-mobile-sub001/internal/server/storage"
	"github.com/Jaffar451/site-justice-mobile-sub001/pkg/api"
)

// maxBodySize ограничивает размер тела запроса
const maxBodySize = 1 << 20

// ComplaintHandler handles the complaints resource
type ComplaintHandler struct {
	logger  *slog.Logger
	storage storage.ComplaintStorage
	now     func() time.Time
}

// NewComplaintHandler creates a new complaints handler
func NewComplaintHandler(logger *slog.Logger, storage storage.ComplaintStorage) *ComplaintHandler {
	return &ComplaintHandler{
		logger:  logger,
		storage: storage,
		now:     time.Now,
	}
}

// Create обрабатывает POST /api/v1/complaints.
// Повтор с тем же Idempotency-Key возвращает исходную запись со статусом 200.
func (h *ComplaintHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	key := r.Header.Get(api.HeaderIdempotencyKey)
	if key == "" {
		sendError(w, h.logger, api.HeaderIdempotencyKey+" header is required", http.StatusBadRequest)
		return
	}

	var req api.CreateComplaintRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode create request", slog.Any("error", err))
		sendError(w, h.logger, "invalid request body", http.StatusBadRequest)
		return
	}

	payload := models.ComplaintCreate{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Location:    req.Location,
		Attachments: req.Attachments,
	}
	if err := payload.Validate(); err != nil {
		sendError(w, h.logger, err.Error(), http.StatusBadRequest)
		return
	}

	c, created, err := h.storage.CreateComplaint(ctx, storage.NewComplaint{
		IdempotencyKey: key,
		Title:          payload.Title,
		Description:    payload.Description,
		Category:       payload.Category,
		Location:       payload.Location,
		Attachments:    payload.Attachments,
		CreatedAt:      h.now(),
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to create complaint", slog.Any("error", err))
		sendError(w, h.logger, "internal server error", http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		h.logger.InfoContext(ctx, "complaint created", slog.String("id", c.ID))
	} else {
		h.logger.InfoContext(ctx, "complaint create replayed", slog.String("id", c.ID))
	}

	sendJSON(w, h.logger, toAPI(c), status)
}

// List обрабатывает GET /api/v1/complaints
func (h *ComplaintHandler) List(w http.ResponseWriter, r *http.Request) {
	complaints, err := h.storage.ListComplaints(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list complaints", slog.Any("error", err))
		sendError(w, h.logger, "internal server error", http.StatusInternalServerError)
		return
	}

	resp := api.ListComplaintsResponse{Complaints: make([]api.Complaint, 0, len(complaints))}
	for i := range complaints {
		resp.Complaints = append(resp.Complaints, toAPI(&complaints[i]))
	}

	sendJSON(w, h.logger, resp, http.StatusOK)
}

// Get обрабатывает GET /api/v1/complaints/{id}
func (h *ComplaintHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.storage.GetComplaint(r.Context(), r.PathValue("id"))
	if err != nil {
		h.storageError(w, r, err)
		return
	}
	sendJSON(w, h.logger, toAPI(c), http.StatusOK)
}

// Update обрабатывает PATCH /api/v1/complaints/{id}
func (h *ComplaintHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	var req api.UpdateComplaintRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode update request", slog.Any("error", err))
		sendError(w, h.logger, "invalid request body", http.StatusBadRequest)
		return
	}

	patch := models.ComplaintUpdate{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Location:    req.Location,
		Target:      models.Remote(id),
	}
	if err := patch.Validate(); err != nil {
		sendError(w, h.logger, err.Error(), http.StatusBadRequest)
		return
	}

	c, err := h.storage.UpdateComplaint(ctx, id, patch, h.now())
	if err != nil {
		h.storageError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "complaint updated", slog.String("id", id))
	sendJSON(w, h.logger, toAPI(c), http.StatusOK)
}

// Delete обрабатывает DELETE /api/v1/complaints/{id}?reason=...
// Повторный отзыв возвращает 204.
func (h *ComplaintHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	if err := h.storage.DeleteComplaint(ctx, id, r.URL.Query().Get("reason"), h.now()); err != nil {
		h.storageError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "complaint withdrawn", slog.String("id", id))
	w.WriteHeader(http.StatusNoContent)
}

func (h *ComplaintHandler) storageError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, storage.ErrComplaintNotFound) || errors.Is(err, storage.ErrComplaintDeleted) {
		sendError(w, h.logger, "complaint not found", http.StatusNotFound)
		return
	}
	h.logger.ErrorContext(r.Context(), "complaint storage failed",
		slog.String("id", r.PathValue("id")),
		slog.Any("error", err))
	sendError(w, h.logger, "internal server error", http.StatusInternalServerError)
}

func toAPI(c *models.Complaint) api.Complaint {
	return api.Complaint{
		CreatedAt:   c.CreatedAt.UTC(),
		UpdatedAt:   c.UpdatedAt.UTC(),
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		Category:    c.Category,
		Location:    c.Location,
		Status:      c.Status,
		ClientRef:   c.ClientRef,
	}
}

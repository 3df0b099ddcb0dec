package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Jaffar451/site-justice-mobile-sub001/internal/models"
	"github.com/Jaffar451/site-justice-mobile-sub001/internal/server/storage"
)

const complaintColumns = `
	id, idempotency_key, title, description, category, location,
	status, deleted, created_at, updated_at
`

// CreateComplaint inserts a complaint keyed by its idempotency key.
// A repeated key returns the original record with created=false and
// does not consume an id.
func (s *Storage) CreateComplaint(ctx context.Context, c storage.NewComplaint) (*models.Complaint, bool, error) {
	attachments, err := json.Marshal(c.Attachments)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal attachments: %w", err)
	}
	if c.Attachments == nil {
		attachments = []byte("[]")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Ключ уже использован - возвращаем исходную запись
	existing, err := getComplaintByKey(ctx, tx, c.IdempotencyKey)
	switch {
	case err == nil:
		if err := tx.Commit(); err != nil {
			return nil, false, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return existing, false, nil
	case !errors.Is(err, storage.ErrComplaintNotFound):
		return nil, false, err
	}

	query := `
		INSERT INTO complaints (
			idempotency_key, title, description, category, location,
			attachments, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	if _, err := tx.ExecContext(ctx, query,
		c.IdempotencyKey,
		c.Title,
		c.Description,
		c.Category,
		c.Location,
		string(attachments),
		models.ComplaintStatusReceived,
		c.CreatedAt.Unix(),
		c.CreatedAt.Unix(),
	); err != nil {
		return nil, false, fmt.Errorf("failed to insert complaint: %w", err)
	}

	stored, err := getComplaintByKey(ctx, tx, c.IdempotencyKey)
	if err != nil {
		return nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return stored, true, nil
}

// rowQuerier is implemented by *sql.DB and *sql.Tx
type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getComplaintByKey(ctx context.Context, q rowQuerier, key string) (*models.Complaint, error) {
	query := `SELECT ` + complaintColumns + ` FROM complaints WHERE idempotency_key = ?`

	c, _, err := scanComplaint(q.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrComplaintNotFound
		}
		return nil, fmt.Errorf("failed to get complaint by key: %w", err)
	}
	return c, nil
}

// GetComplaint retrieves a complaint by id
func (s *Storage) GetComplaint(ctx context.Context, id string) (*models.Complaint, error) {
	rowID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, storage.ErrComplaintNotFound
	}

	query := `SELECT ` + complaintColumns + ` FROM complaints WHERE id = ?`

	c, deleted, err := scanComplaint(s.db.QueryRowContext(ctx, query, rowID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrComplaintNotFound
		}
		return nil, fmt.Errorf("failed to get complaint: %w", err)
	}
	if deleted {
		return nil, storage.ErrComplaintDeleted
	}

	return c, nil
}

// ListComplaints returns complaints that are not withdrawn, oldest first
func (s *Storage) ListComplaints(ctx context.Context) ([]models.Complaint, error) {
	query := `SELECT ` + complaintColumns + ` FROM complaints WHERE deleted = 0 ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query complaints: %w", err)
	}
	defer rows.Close()

	complaints := make([]models.Complaint, 0)
	for rows.Next() {
		c, _, err := scanComplaint(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan complaint: %w", err)
		}
		complaints = append(complaints, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating complaints: %w", err)
	}

	return complaints, nil
}

// UpdateComplaint applies patch and bumps updated_at
func (s *Storage) UpdateComplaint(ctx context.Context, id string, patch models.ComplaintUpdate, at time.Time) (*models.Complaint, error) {
	current, err := s.GetComplaint(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := patch.Apply(*current)

	query := `
		UPDATE complaints
		SET title = ?, description = ?, category = ?, location = ?, updated_at = ?
		WHERE id = ? AND deleted = 0
	`

	result, err := s.db.ExecContext(ctx, query,
		updated.Title,
		updated.Description,
		updated.Category,
		updated.Location,
		at.Unix(),
		current.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update complaint: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, storage.ErrComplaintDeleted
	}

	updated.UpdatedAt = time.Unix(at.Unix(), 0)
	return &updated, nil
}

// DeleteComplaint marks a complaint as withdrawn (soft delete)
func (s *Storage) DeleteComplaint(ctx context.Context, id, reason string, at time.Time) error {
	rowID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return storage.ErrComplaintNotFound
	}

	query := `
		UPDATE complaints
		SET deleted = 1, withdraw_reason = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query, reason, at.Unix(), rowID)
	if err != nil {
		return fmt.Errorf("failed to delete complaint: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return storage.ErrComplaintNotFound
	}

	return nil
}

// rowScanner is implemented by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanComplaint(row rowScanner) (*models.Complaint, bool, error) {
	var (
		c                    models.Complaint
		id                   int64
		deleted              int
		createdAt, updatedAt int64
	)

	err := row.Scan(
		&id,
		&c.ClientRef,
		&c.Title,
		&c.Description,
		&c.Category,
		&c.Location,
		&c.Status,
		&deleted,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, false, err
	}

	c.ID = strconv.FormatInt(id, 10)
	c.CreatedAt = time.Unix(createdAt, 0)
	c.UpdatedAt = time.Unix(updatedAt, 0)

	return &c, deleted != 0, nil
}

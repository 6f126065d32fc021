package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ondutypro/onduty-api/internal/models"
)

const requestColumns = `id, user_id, user_name, date, shift, reason, instructor_id, instructor_name,
       manager_id, manager_name, status, image_url, handled_by, handled_at, created_at, updated_at`

// RequestRepository persists duty requests.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create inserts a new request row.
func (r *RequestRepository) Create(ctx context.Context, req *models.Request) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Status == "" {
		req.Status = models.StatusPending
	}
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now
	const query = `INSERT INTO requests
	(id, user_id, user_name, date, shift, reason, instructor_id, instructor_name, manager_id, manager_name, status, image_url, handled_by, handled_at, created_at, updated_at)
	VALUES (:id, :user_id, :user_name, :date, :shift, :reason, :instructor_id, :instructor_name, :manager_id, :manager_name, :status, :image_url, :handled_by, :handled_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return nil
}

// GetByID fetches a request by identifier.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE id = $1`
	var req models.Request
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// List returns requests matching the filter, newest created first.
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.Request, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(`SELECT ` + requestColumns + ` FROM requests`)

	conditions := make([]string, 0, 3)
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.ManagerID != "" {
		args = append(args, filter.ManagerID)
		conditions = append(conditions, fmt.Sprintf("manager_id = $%d", len(args)))
	}
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var requests []models.Request
	if err := r.db.SelectContext(ctx, &requests, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return requests, nil
}

// TransitionParams groups the columns written on a status transition.
type TransitionParams struct {
	ID        string
	Status    models.RequestStatus
	HandledBy string
	HandledAt time.Time
}

// Transition moves a pending request into a terminal state, recording
// attribution. The pending guard makes the transition atomic: a request
// already decided by a concurrent actor yields sql.ErrNoRows.
func (r *RequestRepository) Transition(ctx context.Context, params TransitionParams) error {
	query := fmt.Sprintf(`UPDATE requests
	SET status = :status, handled_by = :handled_by, handled_at = :handled_at, updated_at = :handled_at
	WHERE id = :id AND status = '%s'`, models.StatusPending)
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":         params.ID,
		"status":     params.Status,
		"handled_by": params.HandledBy,
		"handled_at": params.HandledAt,
	})
	if err != nil {
		return fmt.Errorf("transition request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check transition rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateFields patches owner-editable fields while the request is pending.
func (r *RequestRepository) UpdateFields(ctx context.Context, id string, reason, imageURL *string) error {
	setParts := []string{"updated_at = :updated_at"}
	params := map[string]interface{}{
		"id":         id,
		"updated_at": time.Now().UTC(),
	}
	if reason != nil {
		setParts = append(setParts, "reason = :reason")
		params["reason"] = *reason
	}
	if imageURL != nil {
		setParts = append(setParts, "image_url = :image_url")
		params["image_url"] = *imageURL
	}
	query := fmt.Sprintf("UPDATE requests SET %s WHERE id = :id AND status = '%s'",
		strings.Join(setParts, ", "), models.StatusPending)
	result, err := r.db.NamedExecContext(ctx, query, params)
	if err != nil {
		return fmt.Errorf("update request fields: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a request outright.
func (r *RequestRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check delete rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

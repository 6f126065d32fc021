// Package sync keeps a local working set of duty requests reconciled with a
// remote store. Reads come from memory, writes land locally first and are
// propagated to the remote in the background. A propagation failure never
// blocks or fails the caller; the local copy stays authoritative until the
// next successful refresh.
package sync

import (
	"context"
	"fmt"
	"strings"
	gosync "sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ondutypro/onduty-api/internal/access"
	"github.com/ondutypro/onduty-api/internal/dto"
	"github.com/ondutypro/onduty-api/internal/models"
	appErrors "github.com/ondutypro/onduty-api/pkg/errors"
	"github.com/ondutypro/onduty-api/pkg/jobs"
)

const tmpIDPrefix = "tmp-"

// IsTemporaryID reports whether the id was assigned locally and has not yet
// been replaced by a server id.
func IsTemporaryID(id string) bool {
	return strings.HasPrefix(id, tmpIDPrefix)
}

// RemoteStore is the remote API surface the reconciler propagates to.
type RemoteStore interface {
	ListRequests(ctx context.Context, query dto.RequestQuery) ([]models.Request, error)
	CreateRequest(ctx context.Context, payload dto.CreateRequestRequest) (*models.Request, error)
	UpdateRequest(ctx context.Context, id string, patch dto.UpdateRequestRequest) (*models.Request, error)
	DeleteRequest(ctx context.Context, id string) error
	ListUsers(ctx context.Context) ([]models.User, error)
}

// LocalStore mirrors the working set to durable local storage.
type LocalStore interface {
	LoadRequests() ([]models.Request, error)
	SaveRequests([]models.Request) error
	LoadUsers() ([]models.User, error)
	SaveUsers([]models.User) error
}

// Config sizes the background propagation pool.
type Config struct {
	Workers    int
	BufferSize int
}

// Option customises the reconciler.
type Option func(*Reconciler)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// Reconciler owns the in-memory working set and the sync queue.
type Reconciler struct {
	local     LocalStore
	remote    RemoteStore
	logger    *zap.Logger
	validator *validator.Validate
	now       func() time.Time

	queue *jobs.Queue

	mu       gosync.RWMutex
	requests []models.Request
	users    []models.User
}

const (
	jobTypeCreate  = "request.create"
	jobTypeUpdate  = "request.update"
	jobTypeDelete  = "request.delete"
	jobTypeRefresh = "refresh"
)

type createPayload struct {
	TempID  string
	Payload dto.CreateRequestRequest
}

type updatePayload struct {
	ID    string
	Patch dto.UpdateRequestRequest
}

type deletePayload struct {
	ID string
}

// NewReconciler builds a reconciler over the given stores.
func NewReconciler(local LocalStore, remote RemoteStore, logger *zap.Logger, cfg Config, opts ...Option) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Reconciler{
		local:     local,
		remote:    remote,
		logger:    logger,
		validator: validator.New(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	// MaxRetries stays zero: every propagation gets exactly one attempt and
	// a failure is only logged, never replayed.
	r.queue = jobs.NewQueue("sync", r.handleJob, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		Logger:     logger,
	})
	return r
}

// Start loads the local working set synchronously, starts the propagation
// workers and schedules a background remote refresh.
func (r *Reconciler) Start(ctx context.Context) error {
	requests, err := r.local.LoadRequests()
	if err != nil {
		return fmt.Errorf("load local requests: %w", err)
	}
	users, err := r.local.LoadUsers()
	if err != nil {
		return fmt.Errorf("load local users: %w", err)
	}

	r.mu.Lock()
	r.requests = requests
	r.users = users
	r.mu.Unlock()

	r.queue.Start(ctx)
	r.enqueue(jobs.Job{ID: uuid.NewString(), Type: jobTypeRefresh})
	return nil
}

// Stop drains the propagation workers.
func (r *Reconciler) Stop() {
	r.queue.Stop()
}

// Requests returns a snapshot of the working set.
func (r *Reconciler) Requests() []models.Request {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Request, len(r.requests))
	copy(out, r.requests)
	return out
}

// Users returns a snapshot of the cached user directory.
func (r *Reconciler) Users() []models.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.User, len(r.users))
	copy(out, r.users)
	return out
}

// Refresh pulls the remote state and, when the remote answered with data,
// replaces the working set with it. An empty remote answer leaves the local
// copy untouched so a cold remote cannot wipe offline work.
func (r *Reconciler) Refresh(ctx context.Context) error {
	requests, err := r.remote.ListRequests(ctx, dto.RequestQuery{})
	if err != nil {
		return err
	}
	if len(requests) > 0 {
		r.mu.Lock()
		r.requests = requests
		r.mu.Unlock()
		if err := r.local.SaveRequests(requests); err != nil {
			r.logger.Sugar().Warnw("failed to mirror requests locally", "error", err)
		}
	}

	users, err := r.remote.ListUsers(ctx)
	if err != nil {
		return err
	}
	if len(users) > 0 {
		r.mu.Lock()
		r.users = users
		r.mu.Unlock()
		if err := r.local.SaveUsers(users); err != nil {
			r.logger.Sugar().Warnw("failed to mirror users locally", "error", err)
		}
	}
	return nil
}

// CreateRequest records a new request locally under a temporary id and
// schedules its creation on the remote. The returned copy carries the
// temporary id until the remote assigns a real one.
func (r *Reconciler) CreateRequest(actor *models.User, payload dto.CreateRequestRequest) (*models.Request, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := r.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date, shift, reason and instructor are required")
	}

	now := r.now().UTC()
	request := models.Request{
		ID:           tmpIDPrefix + uuid.NewString(),
		UserID:       actor.ID,
		UserName:     actor.Name,
		Date:         payload.Date,
		Shift:        payload.Shift,
		Reason:       payload.Reason,
		InstructorID: payload.InstructorID,
		Status:       models.StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if payload.ManagerID != "" {
		managerID := payload.ManagerID
		request.ManagerID = &managerID
	}
	if payload.ImageURL != "" {
		imageURL := payload.ImageURL
		request.ImageURL = &imageURL
	}

	r.mu.Lock()
	r.requests = append([]models.Request{request}, r.requests...)
	snapshot := make([]models.Request, len(r.requests))
	copy(snapshot, r.requests)
	r.mu.Unlock()

	if err := r.local.SaveRequests(snapshot); err != nil {
		return nil, fmt.Errorf("save local requests: %w", err)
	}

	r.enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    jobTypeCreate,
		Payload: createPayload{TempID: request.ID, Payload: payload},
	})
	return &request, nil
}

// UpdateRequest applies a patch to the local copy and schedules the same
// patch on the remote. Status changes go through the access gate, are only
// allowed while the request is pending, and record the actor as handler; a
// refused transition leaves the record untouched.
func (r *Reconciler) UpdateRequest(actor *models.User, id string, patch dto.UpdateRequestRequest) (*models.Request, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	r.mu.Lock()
	idx := r.indexOfLocked(id)
	if idx < 0 {
		r.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
	}

	request := r.requests[idx]
	if patch.Status != nil {
		op, ok := transitionOp(*patch.Status)
		if !ok {
			r.mu.Unlock()
			return nil, appErrors.Clone(appErrors.ErrValidation, "status must be accepted, rejected or revoked")
		}
		if request.Status != models.StatusPending {
			r.mu.Unlock()
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
				fmt.Sprintf("cannot move request from %s to %s", request.Status, *patch.Status))
		}
		claims := &models.JWTClaims{UserID: actor.ID, Name: actor.Name, Role: actor.Role}
		if err := access.Can(claims, &request, op); err != nil {
			r.mu.Unlock()
			return nil, err
		}
		handledAt := r.now().UTC()
		handledBy := actor.Name
		request.Status = *patch.Status
		request.HandledBy = &handledBy
		request.HandledAt = &handledAt
	}
	if patch.Reason != nil {
		request.Reason = *patch.Reason
	}
	if patch.ImageURL != nil {
		request.ImageURL = patch.ImageURL
	}
	request.UpdatedAt = r.now().UTC()
	r.requests[idx] = request
	snapshot := make([]models.Request, len(r.requests))
	copy(snapshot, r.requests)
	r.mu.Unlock()

	if err := r.local.SaveRequests(snapshot); err != nil {
		return nil, fmt.Errorf("save local requests: %w", err)
	}

	// A request the remote has never seen is reconciled by its pending
	// create job instead.
	if !IsTemporaryID(id) {
		r.enqueue(jobs.Job{
			ID:      uuid.NewString(),
			Type:    jobTypeUpdate,
			Payload: updatePayload{ID: id, Patch: patch},
		})
	}
	return &request, nil
}

// DeleteRequest removes the local copy and schedules the remote delete.
func (r *Reconciler) DeleteRequest(actor *models.User, id string) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}

	r.mu.Lock()
	idx := r.indexOfLocked(id)
	if idx < 0 {
		r.mu.Unlock()
		return appErrors.Clone(appErrors.ErrNotFound, "request not found")
	}
	r.requests = append(r.requests[:idx], r.requests[idx+1:]...)
	snapshot := make([]models.Request, len(r.requests))
	copy(snapshot, r.requests)
	r.mu.Unlock()

	if err := r.local.SaveRequests(snapshot); err != nil {
		return fmt.Errorf("save local requests: %w", err)
	}

	if !IsTemporaryID(id) {
		r.enqueue(jobs.Job{
			ID:      uuid.NewString(),
			Type:    jobTypeDelete,
			Payload: deletePayload{ID: id},
		})
	}
	return nil
}

// transitionOp maps a target status onto the gate operation that authorizes it.
func transitionOp(status models.RequestStatus) (access.Operation, bool) {
	switch status {
	case models.StatusAccepted:
		return access.OpAccept, true
	case models.StatusRejected:
		return access.OpReject, true
	case models.StatusRevoked:
		return access.OpRevoke, true
	}
	return "", false
}

func (r *Reconciler) indexOfLocked(id string) int {
	for i := range r.requests {
		if r.requests[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *Reconciler) enqueue(job jobs.Job) {
	if err := r.queue.Enqueue(job); err != nil {
		r.logger.Sugar().Warnw("failed to schedule sync job", "type", job.Type, "error", err)
	}
}

func (r *Reconciler) handleJob(ctx context.Context, job jobs.Job) error {
	switch job.Type {
	case jobTypeRefresh:
		return r.Refresh(ctx)
	case jobTypeCreate:
		payload, ok := job.Payload.(createPayload)
		if !ok {
			return fmt.Errorf("unexpected payload %T for %s", job.Payload, job.Type)
		}
		created, err := r.remote.CreateRequest(ctx, payload.Payload)
		if err != nil {
			return err
		}
		r.adoptServerCopy(payload.TempID, created)
		return nil
	case jobTypeUpdate:
		payload, ok := job.Payload.(updatePayload)
		if !ok {
			return fmt.Errorf("unexpected payload %T for %s", job.Payload, job.Type)
		}
		_, err := r.remote.UpdateRequest(ctx, payload.ID, payload.Patch)
		return err
	case jobTypeDelete:
		payload, ok := job.Payload.(deletePayload)
		if !ok {
			return fmt.Errorf("unexpected payload %T for %s", job.Payload, job.Type)
		}
		return r.remote.DeleteRequest(ctx, payload.ID)
	default:
		return fmt.Errorf("unknown job type %s", job.Type)
	}
}

// adoptServerCopy swaps the temporary local record for the server-assigned
// one once a create has been accepted remotely.
func (r *Reconciler) adoptServerCopy(tempID string, created *models.Request) {
	if created == nil {
		return
	}

	r.mu.Lock()
	idx := r.indexOfLocked(tempID)
	if idx < 0 {
		// Deleted locally before the create landed remotely. The next
		// refresh resolves the divergence.
		r.mu.Unlock()
		r.logger.Sugar().Warnw("temporary request vanished before adoption", "temp_id", tempID, "server_id", created.ID)
		return
	}
	r.requests[idx] = *created
	snapshot := make([]models.Request, len(r.requests))
	copy(snapshot, r.requests)
	r.mu.Unlock()

	if err := r.local.SaveRequests(snapshot); err != nil {
		r.logger.Sugar().Warnw("failed to mirror adopted request locally", "error", err)
	}
}

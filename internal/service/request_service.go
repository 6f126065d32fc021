package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ondutypro/onduty-api/internal/access"
	"github.com/ondutypro/onduty-api/internal/dto"
	"github.com/ondutypro/onduty-api/internal/models"
	"github.com/ondutypro/onduty-api/internal/repository"
	appErrors "github.com/ondutypro/onduty-api/pkg/errors"
	"github.com/ondutypro/onduty-api/pkg/export"
)

const dateLayout = "2006-01-02"

type requestStore interface {
	Create(ctx context.Context, req *models.Request) error
	GetByID(ctx context.Context, id string) (*models.Request, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.Request, error)
	Transition(ctx context.Context, params repository.TransitionParams) error
	UpdateFields(ctx context.Context, id string, reason, imageURL *string) error
	Delete(ctx context.Context, id string) error
}

type reviewerStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type listCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// RequestService owns the request lifecycle: creation, the pending →
// accepted/rejected/revoked state machine with handler attribution, and
// deletion. Every operation consults the access gate before touching state.
type RequestService struct {
	repo      requestStore
	users     reviewerStore
	audit     auditLogger
	cache     listCache
	cacheTTL  time.Duration
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// RequestServiceOption configures the service.
type RequestServiceOption func(*RequestService)

// WithListCache enables Redis-backed caching of list queries.
func WithListCache(cache listCache, ttl time.Duration) RequestServiceOption {
	return func(s *RequestService) {
		s.cache = cache
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithMetrics wires lifecycle and cache counters.
func WithMetrics(metrics *MetricsService) RequestServiceOption {
	return func(s *RequestService) {
		s.metrics = metrics
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) RequestServiceOption {
	return func(s *RequestService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewRequestService constructs the service.
func NewRequestService(repo requestStore, users reviewerStore, audit auditLogger, logger *zap.Logger, opts ...RequestServiceOption) *RequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &RequestService{
		repo:      repo,
		users:     users,
		audit:     audit,
		validator: validator.New(),
		logger:    logger,
		cacheTTL:  5 * time.Minute,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Create validates and stores a new pending request on behalf of the actor.
func (s *RequestService) Create(ctx context.Context, req dto.CreateRequestRequest, actor *models.JWTClaims) (*models.Request, error) {
	if err := access.CanCreate(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date, shift, reason and instructor are required")
	}
	if !req.Shift.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "shift must be morning, afternoon or night")
	}
	if _, err := time.Parse(dateLayout, req.Date); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be formatted YYYY-MM-DD")
	}

	instructor, err := s.users.FindByID(ctx, req.InstructorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "instructor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve instructor")
	}
	if instructor.Role != models.RoleInstructor && instructor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assigned reviewer is not an instructor")
	}

	request := &models.Request{
		UserID:         actor.UserID,
		UserName:       actor.Name,
		Date:           req.Date,
		Shift:          req.Shift,
		Reason:         strings.TrimSpace(req.Reason),
		InstructorID:   instructor.ID,
		InstructorName: instructor.Name,
		Status:         models.StatusPending,
		CreatedAt:      s.now(),
	}
	if req.ManagerID != "" {
		manager, err := s.users.FindByID(ctx, req.ManagerID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "manager not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve manager")
		}
		if manager.Role != models.RoleManager {
			return nil, appErrors.Clone(appErrors.ErrValidation, "assigned secondary reviewer is not a manager")
		}
		request.ManagerID = &manager.ID
		request.ManagerName = &manager.Name
	}
	if req.ImageURL != "" {
		imageURL := req.ImageURL
		request.ImageURL = &imageURL
	}

	if err := s.repo.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create request")
	}

	s.invalidateListCache(ctx)
	s.emitAudit(ctx, actor, models.AuditActionRequestCreate, request.ID, request)
	return request, nil
}

// List returns requests matching the query, narrowed to what the actor may see.
func (s *RequestService) List(ctx context.Context, query dto.RequestQuery, actor *models.JWTClaims) ([]models.Request, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	filter := models.RequestFilter{
		ManagerID: query.ManagerID,
		Status:    query.Status,
		Limit:     query.Limit,
		Offset:    query.Offset,
	}

	requests, err := s.listCached(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	// Visibility is evaluated per actor on every call, after the shared
	// cache read.
	return access.Filter(actor, requests), nil
}

// Get returns a single request the actor is allowed to see.
func (s *RequestService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Request, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	request, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !access.Visible(actor, request) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "request is not visible to you")
	}
	return request, nil
}

// Accept moves a pending request to accepted.
func (s *RequestService) Accept(ctx context.Context, id string, actor *models.JWTClaims) (*models.Request, error) {
	return s.transition(ctx, id, models.StatusAccepted, access.OpAccept, models.AuditActionRequestAccept, actor)
}

// Reject moves a pending request to rejected.
func (s *RequestService) Reject(ctx context.Context, id string, actor *models.JWTClaims) (*models.Request, error) {
	return s.transition(ctx, id, models.StatusRejected, access.OpReject, models.AuditActionRequestReject, actor)
}

// Revoke lets the original requester withdraw a pending request.
func (s *RequestService) Revoke(ctx context.Context, id string, actor *models.JWTClaims) (*models.Request, error) {
	return s.transition(ctx, id, models.StatusRevoked, access.OpRevoke, models.AuditActionRequestRevoke, actor)
}

// Update patches a request. A status in the payload routes through the
// lifecycle engine; field edits are owner-only and pending-only.
func (s *RequestService) Update(ctx context.Context, id string, req dto.UpdateRequestRequest, actor *models.JWTClaims) (*models.Request, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if req.Status != nil {
		switch *req.Status {
		case models.StatusAccepted:
			return s.Accept(ctx, id, actor)
		case models.StatusRejected:
			return s.Reject(ctx, id, actor)
		case models.StatusRevoked:
			return s.Revoke(ctx, id, actor)
		default:
			return nil, appErrors.Clone(appErrors.ErrValidation, "status must be accepted, rejected or revoked")
		}
	}
	if req.Reason == nil && req.ImageURL == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "nothing to update")
	}

	request, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.UserID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the requester may edit")
	}
	if request.Status != models.StatusPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "request is no longer editable")
	}

	if err := s.repo.UpdateFields(ctx, id, req.Reason, req.ImageURL); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "request is no longer editable")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update request")
	}

	s.invalidateListCache(ctx)
	return s.load(ctx, id)
}

// Delete removes a request outright, in any state, with no undo.
func (s *RequestService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	request, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := access.Can(actor, request, access.OpDelete); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete request")
	}
	s.invalidateListCache(ctx)
	s.emitAudit(ctx, actor, models.AuditActionRequestDelete, id, request)
	return nil
}

// Export renders the actor-visible requests as CSV or PDF.
func (s *RequestService) Export(ctx context.Context, format string, actor *models.JWTClaims) ([]byte, string, error) {
	requests, err := s.List(ctx, dto.RequestQuery{}, actor)
	if err != nil {
		return nil, "", err
	}

	dataset := export.Dataset{
		Headers: []string{"Date", "Shift", "Student", "Instructor", "Status", "Handled By"},
	}
	for _, r := range requests {
		handledBy := ""
		if r.HandledBy != nil {
			handledBy = *r.HandledBy
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Date":       r.Date,
			"Shift":      string(r.Shift),
			"Student":    r.UserName,
			"Instructor": r.InstructorName,
			"Status":     string(r.Status),
			"Handled By": handledBy,
		})
	}

	switch strings.ToLower(format) {
	case "", "csv":
		payload, err := export.RenderCSV(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "text/csv", nil
	case "pdf":
		payload, err := export.RenderPDF(dataset, "Duty Requests")
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

func (s *RequestService) transition(ctx context.Context, id string, target models.RequestStatus, op access.Operation, action models.AuditAction, actor *models.JWTClaims) (*models.Request, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	request, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.Can(actor, request, op); err != nil {
		return nil, err
	}
	if request.Status != models.StatusPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot move request from %s to %s", request.Status, target))
	}

	handledAt := s.now()
	err = s.repo.Transition(ctx, repository.TransitionParams{
		ID:        id,
		Status:    target,
		HandledBy: actor.Name,
		HandledAt: handledAt,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Lost the race against a concurrent decision.
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "request was already handled")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to transition request")
	}

	handledBy := actor.Name
	request.Status = target
	request.HandledBy = &handledBy
	request.HandledAt = &handledAt
	request.UpdatedAt = handledAt

	if s.metrics != nil {
		s.metrics.ObserveTransition(string(target))
	}
	s.invalidateListCache(ctx)
	s.emitAudit(ctx, actor, action, id, request)
	return request, nil
}

func (s *RequestService) load(ctx context.Context, id string) (*models.Request, error) {
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	return request, nil
}

func (s *RequestService) listCached(ctx context.Context, filter models.RequestFilter) ([]models.Request, error) {
	if s.cache == nil {
		return s.repo.List(ctx, filter)
	}

	key := listCacheKey(filter)
	var cached []models.Request
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		if s.metrics != nil {
			s.metrics.CacheHit()
		}
		return cached, nil
	} else if !errors.Is(err, repository.ErrCacheMiss) {
		s.logger.Warn("request list cache read failed", zap.Error(err))
	}
	if s.metrics != nil {
		s.metrics.CacheMiss()
	}

	requests, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, requests, s.cacheTTL); err != nil {
		s.logger.Warn("request list cache write failed", zap.Error(err))
	}
	return requests, nil
}

func (s *RequestService) invalidateListCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "requests:list:*"); err != nil {
		s.logger.Warn("request list cache invalidation failed", zap.Error(err))
	}
}

func (s *RequestService) emitAudit(ctx context.Context, actor *models.JWTClaims, action models.AuditAction, resourceID string, payload interface{}) {
	if s.audit == nil {
		return
	}
	values, _ := json.Marshal(payload)
	log := &models.AuditLog{
		Action:     action,
		Resource:   "requests",
		ResourceID: &resourceID,
		NewValues:  values,
	}
	if actor != nil {
		userID := actor.UserID
		log.UserID = &userID
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record request audit log", zap.Error(err))
	}
}

func listCacheKey(filter models.RequestFilter) string {
	statuses := make([]string, 0, len(filter.Status))
	for _, st := range filter.Status {
		statuses = append(statuses, string(st))
	}
	sort.Strings(statuses)
	return fmt.Sprintf("requests:list:user=%s:manager=%s:status=%s:limit=%d:offset=%d",
		filter.UserID, filter.ManagerID, strings.Join(statuses, ","), filter.Limit, filter.Offset)
}

// Package access centralizes role- and assignment-based authorization for
// duty requests. Every mutating and listing operation consults the gate; the
// checks are pure functions of (actor, request, operation) and are evaluated
// on every call, never cached.
package access

import (
	"github.com/ondutypro/onduty-api/internal/models"
	appErrors "github.com/ondutypro/onduty-api/pkg/errors"
)

// Operation identifies an action the gate can authorize.
type Operation string

const (
	OpCreate Operation = "create"
	OpAccept Operation = "accept"
	OpReject Operation = "reject"
	OpRevoke Operation = "revoke"
	OpDelete Operation = "delete"
)

// CanCreate allows only students to submit new requests.
func CanCreate(actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleStudent {
		return appErrors.Clone(appErrors.ErrForbidden, "only students may submit requests")
	}
	return nil
}

// Can authorizes an operation on an existing request. It never inspects the
// request status: lifecycle ordering is the state machine's concern.
func Can(actor *models.JWTClaims, req *models.Request, op Operation) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if req == nil {
		return appErrors.ErrNotFound
	}

	switch op {
	case OpAccept, OpReject:
		if !actor.Role.Reviewer() {
			return appErrors.Clone(appErrors.ErrForbidden, "role may not decide requests")
		}
		if actor.Role == models.RoleAdmin {
			return nil
		}
		if req.InstructorID == actor.UserID || req.AssignedManager() == actor.UserID {
			return nil
		}
		return appErrors.Clone(appErrors.ErrForbidden, "request is not assigned to you")
	case OpRevoke:
		if req.UserID != actor.UserID {
			return appErrors.Clone(appErrors.ErrForbidden, "only the requester may revoke")
		}
		return nil
	case OpDelete:
		if actor.Role.Reviewer() || req.UserID == actor.UserID {
			return nil
		}
		return appErrors.Clone(appErrors.ErrForbidden, "not allowed to delete this request")
	default:
		return appErrors.ErrForbidden
	}
}

// Visible reports whether the actor may see the request in listings.
// Students see their own, instructors and admins see all, managers see
// requests routed to them.
func Visible(actor *models.JWTClaims, req *models.Request) bool {
	if actor == nil || req == nil {
		return false
	}
	switch actor.Role {
	case models.RoleInstructor, models.RoleAdmin:
		return true
	case models.RoleManager:
		return req.AssignedManager() == actor.UserID
	case models.RoleStudent:
		return req.UserID == actor.UserID
	}
	return false
}

// Filter returns the subset of requests visible to the actor, preserving order.
func Filter(actor *models.JWTClaims, reqs []models.Request) []models.Request {
	out := make([]models.Request, 0, len(reqs))
	for i := range reqs {
		if Visible(actor, &reqs[i]) {
			out = append(out, reqs[i])
		}
	}
	return out
}

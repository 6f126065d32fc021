package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ondutypro/onduty-api/internal/models"
	appErrors "github.com/ondutypro/onduty-api/pkg/errors"
)

func claims(id string, role models.UserRole) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: role, Name: "User " + id}
}

func strptr(s string) *string { return &s }

func sampleRequest() *models.Request {
	return &models.Request{
		ID:           "req-1",
		UserID:       "student-1",
		InstructorID: "instructor-1",
		ManagerID:    strptr("manager-1"),
		Status:       models.StatusPending,
	}
}

func TestCanCreate(t *testing.T) {
	require.NoError(t, CanCreate(claims("student-1", models.RoleStudent)))

	err := CanCreate(claims("instructor-1", models.RoleInstructor))
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))

	err = CanCreate(nil)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))
}

func TestCanDecide(t *testing.T) {
	req := sampleRequest()

	tests := []struct {
		name    string
		actor   *models.JWTClaims
		op      Operation
		allowed bool
	}{
		{"assigned instructor accepts", claims("instructor-1", models.RoleInstructor), OpAccept, true},
		{"assigned manager rejects", claims("manager-1", models.RoleManager), OpReject, true},
		{"admin accepts without assignment", claims("admin-1", models.RoleAdmin), OpAccept, true},
		{"unassigned instructor denied", claims("instructor-2", models.RoleInstructor), OpAccept, false},
		{"unassigned manager denied", claims("manager-2", models.RoleManager), OpReject, false},
		{"student cannot decide own request", claims("student-1", models.RoleStudent), OpAccept, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Can(tt.actor, req, tt.op)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))
			}
		})
	}
}

func TestCanRevokeOwnerOnly(t *testing.T) {
	req := sampleRequest()

	require.NoError(t, Can(claims("student-1", models.RoleStudent), req, OpRevoke))

	err := Can(claims("student-2", models.RoleStudent), req, OpRevoke)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))

	// Even reviewers cannot revoke on the requester's behalf.
	err = Can(claims("admin-1", models.RoleAdmin), req, OpRevoke)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))
}

func TestCanDelete(t *testing.T) {
	req := sampleRequest()

	require.NoError(t, Can(claims("student-1", models.RoleStudent), req, OpDelete))
	require.NoError(t, Can(claims("instructor-2", models.RoleInstructor), req, OpDelete))

	err := Can(claims("student-2", models.RoleStudent), req, OpDelete)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))
}

func TestVisible(t *testing.T) {
	req := sampleRequest()

	assert.True(t, Visible(claims("student-1", models.RoleStudent), req))
	assert.False(t, Visible(claims("student-2", models.RoleStudent), req))
	assert.True(t, Visible(claims("instructor-9", models.RoleInstructor), req))
	assert.True(t, Visible(claims("admin-1", models.RoleAdmin), req))
	assert.True(t, Visible(claims("manager-1", models.RoleManager), req))
	assert.False(t, Visible(claims("manager-2", models.RoleManager), req))
}

func TestFilterPreservesOrder(t *testing.T) {
	reqs := []models.Request{
		{ID: "a", UserID: "student-1"},
		{ID: "b", UserID: "student-2"},
		{ID: "c", UserID: "student-1"},
	}
	visible := Filter(claims("student-1", models.RoleStudent), reqs)
	require.Len(t, visible, 2)
	assert.Equal(t, "a", visible[0].ID)
	assert.Equal(t, "c", visible[1].ID)
}

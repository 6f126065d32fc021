package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ondutypro/onduty-api/internal/dto"
	"github.com/ondutypro/onduty-api/internal/models"
	appErrors "github.com/ondutypro/onduty-api/pkg/errors"
)

type fullUserStoreStub struct {
	users  map[string]*models.User
	filter models.UserFilter
}

func newFullUserStoreStub(users ...*models.User) *fullUserStoreStub {
	s := &fullUserStoreStub{users: make(map[string]*models.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fullUserStoreStub) List(ctx context.Context, filter models.UserFilter) ([]models.User, error) {
	s.filter = filter
	result := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		result = append(result, *u)
	}
	return result, nil
}

func (s *fullUserStoreStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		copy := *u
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *fullUserStoreStub) UpdateName(ctx context.Context, id, name string) error {
	u, ok := s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.Name = name
	return nil
}

func (s *fullUserStoreStub) Delete(ctx context.Context, id string) error {
	if _, ok := s.users[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.users, id)
	return nil
}

func TestUserServiceListFiltersRole(t *testing.T) {
	store := newFullUserStoreStub(&models.User{ID: "u1", Name: "Ira", Role: models.RoleInstructor})
	svc := NewUserService(store, &auditStub{}, nil)

	role := models.RoleInstructor
	users, err := svc.List(context.Background(), dto.UserQuery{Role: &role}, studentClaims())
	require.NoError(t, err)
	assert.Len(t, users, 1)
	require.NotNil(t, store.filter.Role)
	assert.Equal(t, models.RoleInstructor, *store.filter.Role)
}

func TestUserServiceGetNotFound(t *testing.T) {
	svc := NewUserService(newFullUserStoreStub(), &auditStub{}, nil)

	_, err := svc.Get(context.Background(), "missing", studentClaims())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestUserServiceUpdateSelfOnly(t *testing.T) {
	store := newFullUserStoreStub(&models.User{ID: "student-1", Name: "Sam"})
	svc := NewUserService(store, &auditStub{}, nil)

	updated, err := svc.Update(context.Background(), "student-1", dto.UpdateUserRequest{Name: "Sam S."}, studentClaims())
	require.NoError(t, err)
	assert.Equal(t, "Sam S.", updated.Name)

	other := &models.JWTClaims{UserID: "student-2", Role: models.RoleStudent}
	_, err = svc.Update(context.Background(), "student-1", dto.UpdateUserRequest{Name: "Hijack"}, other)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))
}

func TestUserServiceDelete(t *testing.T) {
	store := newFullUserStoreStub(&models.User{ID: "student-1", Name: "Sam"})
	audit := &auditStub{}
	svc := NewUserService(store, audit, nil)

	other := &models.JWTClaims{UserID: "student-2", Role: models.RoleStudent}
	err := svc.Delete(context.Background(), "student-1", other)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))

	require.NoError(t, svc.Delete(context.Background(), "student-1", studentClaims()))
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionUserDelete, audit.logs[0].Action)

	admin := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	err = svc.Delete(context.Background(), "student-1", admin)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

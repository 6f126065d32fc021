package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ondutypro/onduty-api/internal/dto"
	"github.com/ondutypro/onduty-api/internal/middleware"
	"github.com/ondutypro/onduty-api/internal/models"
	appErrors "github.com/ondutypro/onduty-api/pkg/errors"
)

type requestServiceMock struct {
	createResp *models.Request
	createErr  error
	listResp   []models.Request
	listQuery  dto.RequestQuery
	getResp    *models.Request
	getErr     error
	decideResp *models.Request
	decideErr  error
	deleteErr  error
}

func (m *requestServiceMock) Create(ctx context.Context, req dto.CreateRequestRequest, actor *models.JWTClaims) (*models.Request, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	return m.createResp, nil
}

func (m *requestServiceMock) List(ctx context.Context, query dto.RequestQuery, actor *models.JWTClaims) ([]models.Request, error) {
	m.listQuery = query
	return m.listResp, nil
}

func (m *requestServiceMock) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Request, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.getResp, nil
}

func (m *requestServiceMock) Update(ctx context.Context, id string, req dto.UpdateRequestRequest, actor *models.JWTClaims) (*models.Request, error) {
	if m.decideErr != nil {
		return nil, m.decideErr
	}
	return m.decideResp, nil
}

func (m *requestServiceMock) Accept(ctx context.Context, id string, actor *models.JWTClaims) (*models.Request, error) {
	if m.decideErr != nil {
		return nil, m.decideErr
	}
	return m.decideResp, nil
}

func (m *requestServiceMock) Reject(ctx context.Context, id string, actor *models.JWTClaims) (*models.Request, error) {
	if m.decideErr != nil {
		return nil, m.decideErr
	}
	return m.decideResp, nil
}

func (m *requestServiceMock) Revoke(ctx context.Context, id string, actor *models.JWTClaims) (*models.Request, error) {
	if m.decideErr != nil {
		return nil, m.decideErr
	}
	return m.decideResp, nil
}

func (m *requestServiceMock) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	return m.deleteErr
}

func (m *requestServiceMock) Export(ctx context.Context, format string, actor *models.JWTClaims) ([]byte, string, error) {
	return []byte("Date,Shift\n"), "text/csv", nil
}

func testContext(t *testing.T, method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, target, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func studentContext(c *gin.Context) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "student-1", Name: "Sam Student", Role: models.RoleStudent})
}

func TestRequestHandlerCreate(t *testing.T) {
	svc := &requestServiceMock{createResp: &models.Request{ID: "req-1", Status: models.StatusPending}}
	h := NewRequestHandler(svc)

	body, _ := json.Marshal(dto.CreateRequestRequest{
		Date: "2026-03-20", Shift: models.ShiftMorning, Reason: "exam", InstructorID: "instructor-1",
	})
	c, w := testContext(t, http.MethodPost, "/requests", body)
	studentContext(c)

	h.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"pending"`)
}

func TestRequestHandlerCreateInvalidBody(t *testing.T) {
	h := NewRequestHandler(&requestServiceMock{})
	c, w := testContext(t, http.MethodPost, "/requests", []byte(`not json`))
	studentContext(c)

	h.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequestHandlerCreateUnauthenticated(t *testing.T) {
	h := NewRequestHandler(&requestServiceMock{})
	c, w := testContext(t, http.MethodPost, "/requests", []byte(`{}`))

	h.Create(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequestHandlerListParsesQuery(t *testing.T) {
	svc := &requestServiceMock{}
	h := NewRequestHandler(svc)
	c, w := testContext(t, http.MethodGet, "/requests?status=pending,accepted&managerId=m1&limit=10", nil)
	studentContext(c)

	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "m1", svc.listQuery.ManagerID)
	assert.Equal(t, []models.RequestStatus{models.StatusPending, models.StatusAccepted}, svc.listQuery.Status)
	assert.Equal(t, 10, svc.listQuery.Limit)
}

func TestRequestHandlerListRejectsUnknownStatus(t *testing.T) {
	h := NewRequestHandler(&requestServiceMock{})
	c, w := testContext(t, http.MethodGet, "/requests?status=bogus", nil)
	studentContext(c)

	h.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequestHandlerAccept(t *testing.T) {
	handled := "Ira Instructor"
	svc := &requestServiceMock{decideResp: &models.Request{ID: "req-1", Status: models.StatusAccepted, HandledBy: &handled}}
	h := NewRequestHandler(svc)
	c, w := testContext(t, http.MethodPost, "/requests/req-1/accept", nil)
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "instructor-1", Name: handled, Role: models.RoleInstructor})

	h.Accept(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"accepted"`)
	assert.Contains(t, w.Body.String(), `"handledBy":"Ira Instructor"`)
}

func TestRequestHandlerAcceptConflict(t *testing.T) {
	svc := &requestServiceMock{decideErr: appErrors.Clone(appErrors.ErrInvalidTransition, "request was already handled")}
	h := NewRequestHandler(svc)
	c, w := testContext(t, http.MethodPost, "/requests/req-1/accept", nil)
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "instructor-1", Role: models.RoleInstructor})

	h.Accept(c)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_TRANSITION")
}

func TestRequestHandlerGetNotFound(t *testing.T) {
	svc := &requestServiceMock{getErr: appErrors.Clone(appErrors.ErrNotFound, "request not found")}
	h := NewRequestHandler(svc)
	c, w := testContext(t, http.MethodGet, "/requests/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	studentContext(c)

	h.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRequestHandlerDelete(t *testing.T) {
	h := NewRequestHandler(&requestServiceMock{})
	c, w := testContext(t, http.MethodDelete, "/requests/req-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}
	studentContext(c)

	h.Delete(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "deleted")
}

func TestRequestHandlerExport(t *testing.T) {
	h := NewRequestHandler(&requestServiceMock{})
	c, w := testContext(t, http.MethodGet, "/requests/export?format=csv", nil)
	studentContext(c)

	h.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
}

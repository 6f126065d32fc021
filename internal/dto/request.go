package dto

import "github.com/ondutypro/onduty-api/internal/models"

// CreateRequestRequest is the payload for submitting a duty request.
type CreateRequestRequest struct {
	Date         string       `json:"date" validate:"required"`
	Shift        models.Shift `json:"shift" validate:"required"`
	Reason       string       `json:"reason" validate:"required"`
	InstructorID string       `json:"instructorId" validate:"required"`
	ManagerID    string       `json:"managerId"`
	ImageURL     string       `json:"imageUrl"`
}

// UpdateRequestRequest patches a request. A status change routes through the
// lifecycle engine; other fields are owner-editable while the request is
// still pending.
type UpdateRequestRequest struct {
	Status   *models.RequestStatus `json:"status"`
	Reason   *string               `json:"reason"`
	ImageURL *string               `json:"imageUrl"`
}

// RequestQuery captures list filters from the transport layer.
type RequestQuery struct {
	ManagerID string
	Status    []models.RequestStatus
	Limit     int
	Offset    int
}

package models

import "time"

// Shift enumerates the duty shifts a request can target.
type Shift string

const (
	ShiftMorning   Shift = "morning"
	ShiftAfternoon Shift = "afternoon"
	ShiftNight     Shift = "night"
)

// Valid reports whether the shift is one of the known values.
func (s Shift) Valid() bool {
	switch s {
	case ShiftMorning, ShiftAfternoon, ShiftNight:
		return true
	}
	return false
}

// RequestStatus captures the workflow states of a duty request.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusAccepted RequestStatus = "accepted"
	StatusRejected RequestStatus = "rejected"
	StatusRevoked  RequestStatus = "revoked"
)

// Valid reports whether the status is one of the known values.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected, StatusRevoked:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s RequestStatus) Terminal() bool {
	return s == StatusAccepted || s == StatusRejected || s == StatusRevoked
}

// Request is a shift-change/leave request submitted by a student.
// UserID, UserName and CreatedAt never change after creation. Status moves
// away from pending exactly once; HandledBy and HandledAt are both nil until
// that transition and are always set together.
type Request struct {
	ID             string        `db:"id" json:"id"`
	UserID         string        `db:"user_id" json:"userId"`
	UserName       string        `db:"user_name" json:"userName"`
	Date           string        `db:"date" json:"date"`
	Shift          Shift         `db:"shift" json:"shift"`
	Reason         string        `db:"reason" json:"reason"`
	InstructorID   string        `db:"instructor_id" json:"instructorId"`
	InstructorName string        `db:"instructor_name" json:"instructorName"`
	ManagerID      *string       `db:"manager_id" json:"managerId,omitempty"`
	ManagerName    *string       `db:"manager_name" json:"managerName,omitempty"`
	Status         RequestStatus `db:"status" json:"status"`
	ImageURL       *string       `db:"image_url" json:"imageUrl,omitempty"`
	HandledBy      *string       `db:"handled_by" json:"handledBy,omitempty"`
	HandledAt      *time.Time    `db:"handled_at" json:"handledAt,omitempty"`
	CreatedAt      time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updatedAt"`
}

// AssignedManager returns the manager id or empty when none is assigned.
func (r *Request) AssignedManager() string {
	if r.ManagerID == nil {
		return ""
	}
	return *r.ManagerID
}

// RequestFilter constrains listing queries.
type RequestFilter struct {
	UserID    string
	ManagerID string
	Status    []RequestStatus
	Limit     int
	Offset    int
}

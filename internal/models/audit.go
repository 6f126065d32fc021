package models

import "time"

// AuditAction labels audit log entries.
type AuditAction string

const (
	AuditActionLogin         AuditAction = "LOGIN"
	AuditActionRegister      AuditAction = "REGISTER"
	AuditActionUserDelete    AuditAction = "USER_DELETE"
	AuditActionRequestCreate AuditAction = "REQUEST_CREATE"
	AuditActionRequestAccept AuditAction = "REQUEST_ACCEPT"
	AuditActionRequestReject AuditAction = "REQUEST_REJECT"
	AuditActionRequestRevoke AuditAction = "REQUEST_REVOKE"
	AuditActionRequestDelete AuditAction = "REQUEST_DELETE"
)

// AuditLog records who did what to which resource.
type AuditLog struct {
	ID         string      `db:"id" json:"id"`
	UserID     *string     `db:"user_id" json:"userId,omitempty"`
	Action     AuditAction `db:"action" json:"action"`
	Resource   string      `db:"resource" json:"resource"`
	ResourceID *string     `db:"resource_id" json:"resourceId,omitempty"`
	OldValues  []byte      `db:"old_values" json:"oldValues,omitempty"`
	NewValues  []byte      `db:"new_values" json:"newValues,omitempty"`
	IPAddress  string      `db:"ip_address" json:"ipAddress,omitempty"`
	UserAgent  string      `db:"user_agent" json:"userAgent,omitempty"`
	CreatedAt  time.Time   `db:"created_at" json:"createdAt"`
}

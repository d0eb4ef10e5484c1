package domain

import "time"

// SubjectType differentiates the kinds of callers a token can represent.
type SubjectType string

const (
	SubjectTypeStaff  SubjectType = "STAFF"
	SubjectTypeSystem SubjectType = "SYSTEM"
)

// IssuedToken is the result of a successful login.
type IssuedToken struct {
	AccessToken string
	SubjectID   string
	Subject     SubjectType
	Role        StaffRole
	ExpiresAt   time.Time
}

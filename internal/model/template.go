package model

import (
	"strings"
	"time"
)

type TemplateCategory string

const (
	CategoryTransactional  TemplateCategory = "transactional"
	CategoryMarketing      TemplateCategory = "marketing"
	CategoryOTP            TemplateCategory = "otp"
	CategoryAuthentication TemplateCategory = "authentication"
)

type TemplateApproval string

const (
	TemplateApproved TemplateApproval = "approved"
	TemplateRejected TemplateApproval = "rejected"
	TemplatePending  TemplateApproval = "pending"
)

// ParseTemplateApproval maps provider template-status strings. Unknown values
// are reported as not-ok so the caller can drop the event.
func ParseTemplateApproval(s string) (TemplateApproval, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "APPROVED":
		return TemplateApproved, true
	case "REJECTED":
		return TemplateRejected, true
	case "PENDING", "IN_APPEAL":
		return TemplatePending, true
	default:
		return "", false
	}
}

// Template is a provider-approved message skeleton. Name+Language is unique;
// the body mixes positional ({{1}}) and named ({{key}}) placeholders.
type Template struct {
	ID        int64            `db:"id"`
	Name      string           `db:"name"`
	Language  string           `db:"language"`
	Body      string           `db:"body"`
	Variables string           `db:"variables"` // declared names, JSON array
	Category  TemplateCategory `db:"category"`
	Approval  TemplateApproval `db:"approval"`
	CreatedAt time.Time        `db:"created_at"`
	UpdatedAt time.Time        `db:"updated_at"`
}

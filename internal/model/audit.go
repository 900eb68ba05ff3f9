package model

import "slices"

// AuditStatus is the overall verdict of a wiring audit
type AuditStatus string

const (
	AuditPass              AuditStatus = "Pass"
	AuditAttentionRequired AuditStatus = "Attention Required"
	AuditFail              AuditStatus = "Fail"
)

// AuditStatuses lists every allowed audit status
var AuditStatuses = []AuditStatus{AuditPass, AuditAttentionRequired, AuditFail}

// Valid reports whether s is one of the allowed statuses
func (s AuditStatus) Valid() bool {
	return slices.Contains(AuditStatuses, s)
}

// AuditResult is the advisory outcome of auditing one reference image.
// It is shown to the operator and never persisted.
type AuditResult struct {
	ComplianceScore int         `json:"complianceScore"`
	Observations    []string    `json:"observations"`
	Recommendations []string    `json:"recommendations"`
	Status          AuditStatus `json:"status"`
}

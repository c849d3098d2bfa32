package handler

import (
	"strings"

	dErrors "mintgate/pkg/domain-errors"
)

// SatisfyRequest is the HTTP request body for POST
// /requirements/{instanceID}/satisfy.
type SatisfyRequest struct {
	VerifierID   string   `json:"verifier_id"`
	EvidenceRefs []string `json:"evidence_refs"`
}

// Validate checks the request.
func (r *SatisfyRequest) Validate() error {
	r.VerifierID = strings.TrimSpace(r.VerifierID)
	if r.VerifierID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "verifier_id is required")
	}
	return nil
}

// ExceptionRequest is the HTTP request body for POST
// /requirements/{instanceID}/exception.
type ExceptionRequest struct {
	Reason     string `json:"reason"`
	VerifierID string `json:"verifier_id"`
}

// Validate checks the request.
func (r *ExceptionRequest) Validate() error {
	r.Reason = strings.TrimSpace(r.Reason)
	r.VerifierID = strings.TrimSpace(r.VerifierID)
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "reason is required")
	}
	if r.VerifierID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "verifier_id is required")
	}
	return nil
}

// AcknowledgeRequest is the HTTP request body for POST
// /requirements/{instanceID}/acknowledge.
type AcknowledgeRequest struct {
	By     string `json:"by"`
	Reason string `json:"reason"`
}

// Validate checks the request.
func (r *AcknowledgeRequest) Validate() error {
	r.By = strings.TrimSpace(r.By)
	if r.By == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "by is required")
	}
	return nil
}

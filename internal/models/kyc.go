package models

import (
	"strings"
	"time"

	pkgerrors "github.com/honeynil/invest-ledger/pkg/errors"
)

// KYCStatus is both the submission state and the user-level verification flag.
// KYCStatusNone only ever appears on users.
type KYCStatus string

const (
	KYCStatusNone     KYCStatus = "none"
	KYCStatusPending  KYCStatus = "pending"
	KYCStatusApproved KYCStatus = "approved"
	KYCStatusRejected KYCStatus = "rejected"
)

func (s KYCStatus) Terminal() bool {
	return s == KYCStatusApproved || s == KYCStatusRejected
}

type DocumentType string

const (
	DocumentPassport       DocumentType = "passport"
	DocumentNationalID     DocumentType = "national_id"
	DocumentDriversLicense DocumentType = "drivers_license"
)

func (d DocumentType) Valid() bool {
	return d == DocumentPassport || d == DocumentNationalID || d == DocumentDriversLicense
}

type KYCDecision string

const (
	DecisionApprove KYCDecision = "approve"
	DecisionReject  KYCDecision = "reject"
)

// Outcome maps a review decision to the terminal status it produces.
func (d KYCDecision) Outcome() (KYCStatus, bool) {
	switch d {
	case DecisionApprove:
		return KYCStatusApproved, true
	case DecisionReject:
		return KYCStatusRejected, true
	}
	return "", false
}

type KYCSubmission struct {
	ID              int64        `json:"id"`
	UserID          int64        `json:"user_id"`
	FullName        string       `json:"full_name"`
	DateOfBirth     *time.Time   `json:"date_of_birth,omitempty"`
	Nationality     string       `json:"nationality,omitempty"`
	Address         string       `json:"address,omitempty"`
	DocumentType    DocumentType `json:"document_type"`
	DocumentNumber  string       `json:"document_number"`
	DocumentRefs    []string     `json:"document_refs"`
	Status          KYCStatus    `json:"status"`
	RejectionReason string       `json:"rejection_reason,omitempty"`
	SubmittedAt     time.Time    `json:"submitted_at"`
	ReviewedAt      *time.Time   `json:"reviewed_at,omitempty"`
	ReviewedBy      *int64       `json:"reviewed_by,omitempty"`
}

func (k *KYCSubmission) Validate() error {
	if strings.TrimSpace(k.FullName) == "" || strings.TrimSpace(k.DocumentNumber) == "" {
		return pkgerrors.ErrInvalidInput
	}
	if !k.DocumentType.Valid() || len(k.DocumentRefs) == 0 {
		return pkgerrors.ErrInvalidInput
	}
	return nil
}

package handler

import (
	"strings"
	"time"

	"github.com/honeynil/invest-ledger/internal/models"
	service "github.com/honeynil/invest-ledger/internal/services"
	pkgerrors "github.com/honeynil/invest-ledger/pkg/errors"
	"github.com/shopspring/decimal"
)

// Amounts decode from JSON numbers or strings; responses always carry
// two-decimal strings.

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type creditRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

type investRequest struct {
	PlanID int64           `json:"plan_id"`
	Amount decimal.Decimal `json:"amount"`
}

type copyRequest struct {
	MasterID          int64           `json:"master_id"`
	Amount            decimal.Decimal `json:"amount"`
	AllocationPercent int             `json:"allocation_percent"`
	AutoCopy          bool            `json:"auto_copy"`
	CopyOpenPositions bool            `json:"copy_open_positions"`
}

type withdrawRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method"`
}

type planRequest struct {
	Name           string           `json:"name"`
	Description    string           `json:"description"`
	ROIPercent     decimal.Decimal  `json:"roi_percent"`
	DurationMonths int              `json:"duration_months"`
	MinAmount      decimal.Decimal  `json:"min_amount"`
	MaxAmount      *decimal.Decimal `json:"max_amount"`
	RiskLevel      models.RiskLevel `json:"risk_level"`
}

func (req planRequest) plan() *models.InvestmentPlan {
	plan := &models.InvestmentPlan{
		Name:           strings.TrimSpace(req.Name),
		Description:    req.Description,
		ROIPercent:     req.ROIPercent,
		DurationMonths: req.DurationMonths,
		MinAmount:      req.MinAmount,
		RiskLevel:      req.RiskLevel,
	}
	if req.MaxAmount != nil {
		plan.MaxAmount = decimal.NewNullDecimal(*req.MaxAmount)
	}
	return plan
}

type traderRequest struct {
	DisplayName   string           `json:"display_name"`
	MinCopyAmount decimal.Decimal  `json:"min_copy_amount"`
	RiskLevel     models.RiskLevel `json:"risk_level"`
}

type kycRequest struct {
	FullName       string              `json:"full_name"`
	DateOfBirth    string              `json:"date_of_birth"`
	Nationality    string              `json:"nationality"`
	Address        string              `json:"address"`
	DocumentType   models.DocumentType `json:"document_type"`
	DocumentNumber string              `json:"document_number"`
	DocumentRefs   []string            `json:"document_refs"`
}

func (req kycRequest) input() (service.KYCSubmissionInput, error) {
	in := service.KYCSubmissionInput{
		FullName:       req.FullName,
		Nationality:    req.Nationality,
		Address:        req.Address,
		DocumentType:   req.DocumentType,
		DocumentNumber: req.DocumentNumber,
		DocumentRefs:   req.DocumentRefs,
	}
	if req.DateOfBirth != "" {
		dob, err := time.Parse(time.DateOnly, req.DateOfBirth)
		if err != nil {
			return in, pkgerrors.ErrInvalidInput
		}
		in.DateOfBirth = &dob
	}
	return in, nil
}

type reviewRequest struct {
	Decision models.KYCDecision `json:"decision"`
	Reason   string             `json:"reason"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(models.MoneyPlaces)
}

func mapSlice[T, R any](in []T, fn func(*T) R) []R {
	out := make([]R, 0, len(in))
	for i := range in {
		out = append(out, fn(&in[i]))
	}
	return out
}

type userResponse struct {
	ID        int64            `json:"id"`
	Username  string           `json:"username"`
	Role      models.Role      `json:"role"`
	KYCStatus models.KYCStatus `json:"kyc_status"`
}

func newUserResponse(u *models.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, Role: u.Role, KYCStatus: u.KYCStatus}
}

type walletResponse struct {
	UserID    int64     `json:"user_id"`
	Balance   string    `json:"balance"`
	Currency  string    `json:"currency"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newWalletResponse(w *models.Wallet) walletResponse {
	return walletResponse{UserID: w.UserID, Balance: money(w.Balance), Currency: w.Currency, UpdatedAt: w.UpdatedAt}
}

type transactionResponse struct {
	ID          int64                    `json:"id"`
	Kind        models.TransactionKind   `json:"kind"`
	Amount      string                   `json:"amount"`
	Currency    string                   `json:"currency"`
	Description string                   `json:"description"`
	Reference   string                   `json:"reference,omitempty"`
	Status      models.TransactionStatus `json:"status"`
	CreatedAt   time.Time                `json:"created_at"`
}

func newTransactionResponse(tx *models.Transaction) transactionResponse {
	return transactionResponse{
		ID:          tx.ID,
		Kind:        tx.Kind,
		Amount:      money(tx.Amount),
		Currency:    tx.Currency,
		Description: tx.Description,
		Reference:   tx.Reference,
		Status:      tx.Status,
		CreatedAt:   tx.CreatedAt,
	}
}

type planResponse struct {
	ID             int64            `json:"id"`
	Name           string           `json:"name"`
	Description    string           `json:"description,omitempty"`
	ROIPercent     string           `json:"roi_percent"`
	DurationMonths int              `json:"duration_months"`
	MinAmount      string           `json:"min_amount"`
	MaxAmount      *string          `json:"max_amount"`
	RiskLevel      models.RiskLevel `json:"risk_level,omitempty"`
}

func newPlanResponse(p *models.InvestmentPlan) planResponse {
	resp := planResponse{
		ID:             p.ID,
		Name:           p.Name,
		Description:    p.Description,
		ROIPercent:     p.ROIPercent.String(),
		DurationMonths: p.DurationMonths,
		MinAmount:      money(p.MinAmount),
		RiskLevel:      p.RiskLevel,
	}
	if p.MaxAmount.Valid {
		maxAmount := money(p.MaxAmount.Decimal)
		resp.MaxAmount = &maxAmount
	}
	return resp
}

type traderResponse struct {
	ID            int64            `json:"id"`
	DisplayName   string           `json:"display_name"`
	MinCopyAmount string           `json:"min_copy_amount"`
	RiskLevel     models.RiskLevel `json:"risk_level,omitempty"`
}

func newTraderResponse(t *models.TraderProfile) traderResponse {
	return traderResponse{ID: t.ID, DisplayName: t.DisplayName, MinCopyAmount: money(t.MinCopyAmount), RiskLevel: t.RiskLevel}
}

type investmentResponse struct {
	ID            int64                   `json:"id"`
	PlanID        int64                   `json:"plan_id"`
	PlanName      string                  `json:"plan_name"`
	Amount        string                  `json:"amount"`
	ROIPercent    string                  `json:"roi_percent"`
	StartDate     string                  `json:"start_date"`
	EndDate       string                  `json:"end_date"`
	Status        models.InvestmentStatus `json:"status"`
	AccruedProfit string                  `json:"accrued_profit"`
}

func newInvestmentResponse(inv *models.OngoingInvestment) investmentResponse {
	return investmentResponse{
		ID:            inv.ID,
		PlanID:        inv.PlanID,
		PlanName:      inv.PlanName,
		Amount:        money(inv.Amount),
		ROIPercent:    inv.ROIPercent.String(),
		StartDate:     inv.StartDate.Format(time.DateOnly),
		EndDate:       inv.EndDate.Format(time.DateOnly),
		Status:        inv.Status,
		AccruedProfit: money(inv.AccruedProfit),
	}
}

type copyResponse struct {
	ID                int64             `json:"id"`
	MasterID          int64             `json:"master_id"`
	Amount            string            `json:"amount"`
	AllocationPercent int               `json:"allocation_percent"`
	AutoCopy          bool              `json:"auto_copy"`
	CopyOpenPositions bool              `json:"copy_open_positions"`
	StartDate         string            `json:"start_date"`
	Status            models.CopyStatus `json:"status"`
}

func newCopyResponse(rel *models.CopyRelationship) copyResponse {
	return copyResponse{
		ID:                rel.ID,
		MasterID:          rel.MasterID,
		Amount:            money(rel.Amount),
		AllocationPercent: rel.AllocationPercent,
		AutoCopy:          rel.AutoCopy,
		CopyOpenPositions: rel.CopyOpenPositions,
		StartDate:         rel.StartDate.Format(time.DateOnly),
		Status:            rel.Status,
	}
}

type kycResponse struct {
	ID              int64               `json:"id"`
	UserID          int64               `json:"user_id"`
	FullName        string              `json:"full_name"`
	DocumentType    models.DocumentType `json:"document_type"`
	Status          models.KYCStatus    `json:"status"`
	RejectionReason string              `json:"rejection_reason,omitempty"`
	SubmittedAt     time.Time           `json:"submitted_at"`
	ReviewedAt      *time.Time          `json:"reviewed_at,omitempty"`
}

func newKYCResponse(s *models.KYCSubmission) kycResponse {
	return kycResponse{
		ID:              s.ID,
		UserID:          s.UserID,
		FullName:        s.FullName,
		DocumentType:    s.DocumentType,
		Status:          s.Status,
		RejectionReason: s.RejectionReason,
		SubmittedAt:     s.SubmittedAt,
		ReviewedAt:      s.ReviewedAt,
	}
}

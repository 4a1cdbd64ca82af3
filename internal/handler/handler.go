package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/honeynil/invest-ledger/internal/infrastructure/auth"
	"github.com/honeynil/invest-ledger/internal/models"
	service "github.com/honeynil/invest-ledger/internal/services"
	pkgerrors "github.com/honeynil/invest-ledger/pkg/errors"
)

// Services are the core collaborators the HTTP surface delegates to.
type Services struct {
	Auth         service.AuthService
	Wallets      service.WalletService
	Transactions service.TransactionService
	Catalog      service.CatalogService
	Investments  service.InvestmentService
	Copies       service.CopyTradingService
	Withdrawals  service.WithdrawalService
	KYC          service.KYCService
}

type Handler struct {
	svc Services
}

func NewHandler(s Services) *Handler {
	return &Handler{svc: s}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) RegisterPublicRoutes(r *mux.Router) {
	r.HandleFunc("/auth/register", h.Register).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)
}

// RegisterProtectedRoutes expects r to sit behind the auth middleware.
// Admin routes are role-checked by the services.
func (h *Handler) RegisterProtectedRoutes(r *mux.Router) {
	r.HandleFunc("/wallet", h.GetBalance).Methods(http.MethodGet)
	r.HandleFunc("/transactions", h.ListTransactions).Methods(http.MethodGet)

	r.HandleFunc("/plans", h.ListPlans).Methods(http.MethodGet)
	r.HandleFunc("/plans/{id:[0-9]+}", h.GetPlan).Methods(http.MethodGet)

	r.HandleFunc("/investments", h.Invest).Methods(http.MethodPost)
	r.HandleFunc("/investments", h.ListInvestments).Methods(http.MethodGet)
	r.HandleFunc("/investments/{id:[0-9]+}", h.GetInvestment).Methods(http.MethodGet)

	r.HandleFunc("/copy", h.Copy).Methods(http.MethodPost)
	r.HandleFunc("/copy", h.ListCopies).Methods(http.MethodGet)

	r.HandleFunc("/withdrawals", h.Withdraw).Methods(http.MethodPost)

	r.HandleFunc("/kyc", h.SubmitKYC).Methods(http.MethodPost)
	r.HandleFunc("/kyc", h.GetKYC).Methods(http.MethodGet)

	admin := r.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/plans", h.CreatePlan).Methods(http.MethodPost)
	admin.HandleFunc("/plans/{id:[0-9]+}", h.UpdatePlan).Methods(http.MethodPut)
	admin.HandleFunc("/traders/{id:[0-9]+}", h.UpsertTrader).Methods(http.MethodPut)
	admin.HandleFunc("/wallets/{userId:[0-9]+}/credit", h.CreditWallet).Methods(http.MethodPost)
	admin.HandleFunc("/kyc", h.ListKYC).Methods(http.MethodGet)
	admin.HandleFunc("/kyc/{id:[0-9]+}/review", h.ReviewKYC).Methods(http.MethodPost)
}

// statusFor maps the error taxonomy onto HTTP.
func statusFor(err error) int {
	switch {
	case errors.Is(err, pkgerrors.ErrStorage):
		return http.StatusInternalServerError
	case errors.Is(err, pkgerrors.ErrInvalidAmount),
		errors.Is(err, pkgerrors.ErrInvalidInput),
		errors.Is(err, pkgerrors.ErrBelowMinimum),
		errors.Is(err, pkgerrors.ErrAboveMaximum),
		errors.Is(err, pkgerrors.ErrInvalidTransactionStatus),
		errors.Is(err, pkgerrors.ErrInvalidTransactionType):
		return http.StatusBadRequest
	case errors.Is(err, pkgerrors.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, pkgerrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pkgerrors.ErrAlreadyReviewed),
		errors.Is(err, pkgerrors.ErrInvalidTransition),
		errors.Is(err, pkgerrors.ErrUsernameExists):
		return http.StatusConflict
	case errors.Is(err, pkgerrors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, pkgerrors.ErrUnauthorized), errors.Is(err, pkgerrors.ErrInvalidCredentials):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = pkgerrors.ErrInternal.Error()
	}
	h.writeJSON(w, status, errorResponse{Error: msg})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return pkgerrors.ErrInvalidInput
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgerrors.ErrInvalidInput
	}
	return id, nil
}

// principal reads the caller injected by the auth middleware.
func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (models.Principal, bool) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		h.writeError(w, r, pkgerrors.ErrUnauthorized)
	}
	return p, ok
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.svc.Auth.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, newUserResponse(user))
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	token, err := h.svc.Auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	wallet, err := h.svc.Wallets.GetBalance(r.Context(), p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newWalletResponse(wallet))
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	txs, err := h.svc.Transactions.List(r.Context(), p, r.URL.Query().Get("kind"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, mapSlice(txs, newTransactionResponse))
}

func (h *Handler) CreditWallet(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	userID, err := pathID(r, "userId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req creditRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	tx, err := h.svc.Wallets.Credit(r.Context(), p, userID, req.Amount, req.Description)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, newTransactionResponse(tx))
}

func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.principal(w, r); !ok {
		return
	}

	plans, err := h.svc.Catalog.ListPlans(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, mapSlice(plans, newPlanResponse))
}

func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.principal(w, r); !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	plan, err := h.svc.Catalog.GetPlan(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newPlanResponse(plan))
}

func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req planRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	plan := req.plan()
	if err := h.svc.Catalog.CreatePlan(r.Context(), p, plan); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, newPlanResponse(plan))
}

func (h *Handler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req planRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	plan := req.plan()
	plan.ID = id
	if err := h.svc.Catalog.UpdatePlan(r.Context(), p, plan); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newPlanResponse(plan))
}

func (h *Handler) UpsertTrader(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req traderRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	profile := &models.TraderProfile{
		ID:            id,
		DisplayName:   req.DisplayName,
		MinCopyAmount: req.MinCopyAmount,
		RiskLevel:     req.RiskLevel,
	}
	if err := h.svc.Catalog.UpsertTrader(r.Context(), p, profile); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newTraderResponse(profile))
}

func (h *Handler) Invest(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req investRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	inv, err := h.svc.Investments.Invest(r.Context(), p, req.PlanID, req.Amount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, newInvestmentResponse(inv))
}

func (h *Handler) ListInvestments(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	invs, err := h.svc.Investments.List(r.Context(), p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, mapSlice(invs, newInvestmentResponse))
}

func (h *Handler) GetInvestment(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	inv, err := h.svc.Investments.Get(r.Context(), p, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newInvestmentResponse(inv))
}

func (h *Handler) Copy(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req copyRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	rel, err := h.svc.Copies.Copy(r.Context(), p, service.CopyRequest{
		MasterID:          req.MasterID,
		Amount:            req.Amount,
		AllocationPercent: req.AllocationPercent,
		AutoCopy:          req.AutoCopy,
		CopyOpenPositions: req.CopyOpenPositions,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, newCopyResponse(rel))
}

func (h *Handler) ListCopies(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	rels, err := h.svc.Copies.List(r.Context(), p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, mapSlice(rels, newCopyResponse))
}

func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req withdrawRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	tx, err := h.svc.Withdrawals.Withdraw(r.Context(), p, req.Amount, req.Method)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, newTransactionResponse(tx))
}

func (h *Handler) SubmitKYC(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req kycRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	sub, err := h.svc.KYC.Submit(r.Context(), p, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, newKYCResponse(sub))
}

func (h *Handler) GetKYC(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	sub, err := h.svc.KYC.GetLatest(r.Context(), p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newKYCResponse(sub))
}

func (h *Handler) ListKYC(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	status := models.KYCStatus(r.URL.Query().Get("status"))
	subs, err := h.svc.KYC.ListByStatus(r.Context(), p, status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, mapSlice(subs, newKYCResponse))
}

func (h *Handler) ReviewKYC(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req reviewRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	sub, err := h.svc.KYC.Review(r.Context(), p, id, req.Decision, req.Reason)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newKYCResponse(sub))
}

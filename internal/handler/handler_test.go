package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/honeynil/invest-ledger/internal/infrastructure/auth"
	"github.com/honeynil/invest-ledger/internal/models"
	"github.com/honeynil/invest-ledger/internal/repository/memory"
	service "github.com/honeynil/invest-ledger/internal/services"
	pkgerrors "github.com/honeynil/invest-ledger/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var admin = models.Principal{ID: 1000, Role: models.RoleAdmin}

type testServer struct {
	t      *testing.T
	router *mux.Router
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.NewStore()
	h := NewHandler(Services{
		Auth:         service.NewAuthService(store, nil, "secret", time.Hour, "USD"),
		Wallets:      service.NewWalletService(store, nil),
		Transactions: service.NewTransactionService(store),
		Catalog:      service.NewCatalogService(store, nil, time.Hour),
		Investments:  service.NewInvestmentService(store, nil),
		Copies:       service.NewCopyTradingService(store, nil),
		Withdrawals:  service.NewWithdrawalService(store, nil),
		KYC:          service.NewKYCService(store, nil),
	})

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	h.RegisterPublicRoutes(api)
	h.RegisterProtectedRoutes(api)
	return &testServer{t: t, router: r}
}

// do sends body as JSON on behalf of p; a nil p sends an anonymous request.
func (s *testServer) do(method, path string, p *models.Principal, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if p != nil {
		req = req.WithContext(auth.WithPrincipal(req.Context(), *p))
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// signup registers a user and funds the wallet through the admin endpoint.
func (s *testServer) signup(name, balance string) models.Principal {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/auth/register", nil, map[string]string{"username": name, "password": "password"})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	user := decodeBody[userResponse](s.t, rec)

	if balance != "0" {
		rec = s.do(http.MethodPost, "/api/admin/wallets/"+itoa(user.ID)+"/credit", &admin, map[string]string{"amount": balance})
		require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	return models.Principal{ID: user.ID, Role: user.Role}
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		pkgerrors.ErrInvalidAmount:                        http.StatusBadRequest,
		pkgerrors.ErrBelowMinimum:                         http.StatusBadRequest,
		pkgerrors.ErrAboveMaximum:                         http.StatusBadRequest,
		pkgerrors.ErrInvalidInput:                         http.StatusBadRequest,
		pkgerrors.ErrInsufficientFunds:                    http.StatusUnprocessableEntity,
		pkgerrors.ErrPlanNotFound:                         http.StatusNotFound,
		pkgerrors.ErrMasterNotFound:                       http.StatusNotFound,
		pkgerrors.ErrAlreadyReviewed:                      http.StatusConflict,
		pkgerrors.ErrInvalidTransition:                    http.StatusConflict,
		pkgerrors.ErrUsernameExists:                       http.StatusConflict,
		pkgerrors.ErrForbidden:                            http.StatusForbidden,
		pkgerrors.ErrInvalidCredentials:                   http.StatusUnauthorized,
		pkgerrors.Storage("query", assert.AnError):        http.StatusInternalServerError,
		pkgerrors.Storage("query", pkgerrors.ErrNotFound): http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, statusFor(err), err.Error())
	}
}

func TestHandler_WalletAndHistory(t *testing.T) {
	s := newTestServer(t)
	alice := s.signup("alice", "1000.5")

	rec := s.do(http.MethodGet, "/api/wallet", &alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	wallet := decodeBody[walletResponse](t, rec)
	assert.Equal(t, "1000.50", wallet.Balance)
	assert.Equal(t, "USD", wallet.Currency)

	rec = s.do(http.MethodGet, "/api/transactions?kind=deposit", &alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	txs := decodeBody[[]transactionResponse](t, rec)
	require.Len(t, txs, 1)
	assert.Equal(t, "1000.50", txs[0].Amount)

	rec = s.do(http.MethodGet, "/api/transactions?kind=transfer", &alice, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/api/wallet", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/api/admin/wallets/"+itoa(alice.ID)+"/credit", &alice, map[string]string{"amount": "10"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandler_InvestFlow(t *testing.T) {
	s := newTestServer(t)
	alice := s.signup("alice", "500")

	rec := s.do(http.MethodPost, "/api/admin/plans", &admin, `{"name":"Gold","roi_percent":"12.5","duration_months":6,"min_amount":100,"max_amount":"5000","risk_level":"medium"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	plan := decodeBody[planResponse](t, rec)
	require.NotNil(t, plan.MaxAmount)
	assert.Equal(t, "5000.00", *plan.MaxAmount)

	rec = s.do(http.MethodGet, "/api/plans", &alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]planResponse](t, rec), 1)

	rec = s.do(http.MethodPost, "/api/investments", &alice, map[string]any{"plan_id": plan.ID, "amount": 50})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, pkgerrors.ErrBelowMinimum.Error(), decodeBody[errorResponse](t, rec).Error)

	rec = s.do(http.MethodPost, "/api/investments", &alice, map[string]any{"plan_id": plan.ID, "amount": "600"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(http.MethodPost, "/api/investments", &alice, map[string]any{"plan_id": 999, "amount": "200"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPost, "/api/investments", &alice, map[string]any{"plan_id": plan.ID, "amount": "500"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	inv := decodeBody[investmentResponse](t, rec)
	assert.Equal(t, "500.00", inv.Amount)
	assert.Equal(t, "0.00", inv.AccruedProfit)
	assert.Equal(t, models.InvestmentActive, inv.Status)

	rec = s.do(http.MethodGet, "/api/investments/"+itoa(inv.ID), &alice, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	bob := s.signup("bob", "0")
	rec = s.do(http.MethodGet, "/api/investments/"+itoa(inv.ID), &bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/api/wallet", &alice, nil)
	assert.Equal(t, "0.00", decodeBody[walletResponse](t, rec).Balance)

	rec = s.do(http.MethodPost, "/api/investments", &alice, `{"plan_id":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_CopyAndWithdraw(t *testing.T) {
	s := newTestServer(t)
	master := s.signup("master", "0")
	alice := s.signup("alice", "1000")

	rec := s.do(http.MethodPut, "/api/admin/traders/"+itoa(master.ID), &admin, map[string]string{"display_name": "Top Trader", "min_copy_amount": "100"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/api/copy", &alice, map[string]any{"master_id": master.ID, "amount": "200", "allocation_percent": 50})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, models.CopyActive, decodeBody[copyResponse](t, rec).Status)

	rec = s.do(http.MethodGet, "/api/copy", &alice, nil)
	assert.Len(t, decodeBody[[]copyResponse](t, rec), 1)

	rec = s.do(http.MethodPost, "/api/withdrawals", &alice, map[string]string{"amount": "900", "method": "card"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(http.MethodPost, "/api/withdrawals", &alice, map[string]string{"amount": "300", "method": "card"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tx := decodeBody[transactionResponse](t, rec)
	assert.Equal(t, models.StatusPending, tx.Status)
	assert.Equal(t, "300.00", tx.Amount)
	assert.NotEmpty(t, tx.Reference)

	rec = s.do(http.MethodGet, "/api/copy", &master, nil)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestHandler_KYC(t *testing.T) {
	s := newTestServer(t)
	alice := s.signup("alice", "0")

	rec := s.do(http.MethodGet, "/api/kyc", &alice, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPost, "/api/kyc", &alice, map[string]any{
		"full_name":       "Alice Liddell",
		"date_of_birth":   "not-a-date",
		"document_type":   "passport",
		"document_number": "P1",
		"document_refs":   []string{"front.jpg"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/api/kyc", &alice, map[string]any{
		"full_name":       "Alice Liddell",
		"date_of_birth":   "1990-05-01",
		"document_type":   "passport",
		"document_number": "P1",
		"document_refs":   []string{"front.jpg"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sub := decodeBody[kycResponse](t, rec)
	assert.Equal(t, models.KYCStatusPending, sub.Status)

	rec = s.do(http.MethodGet, "/api/admin/kyc", &alice, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodGet, "/api/admin/kyc?status=pending", &admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]kycResponse](t, rec), 1)

	review := "/api/admin/kyc/" + itoa(sub.ID) + "/review"
	rec = s.do(http.MethodPost, review, &admin, map[string]string{"decision": "reject", "reason": "blurry"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "blurry", decodeBody[kycResponse](t, rec).RejectionReason)

	rec = s.do(http.MethodPost, review, &admin, map[string]string{"decision": "approve"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, "/api/admin/kyc/999/review", &admin, map[string]string{"decision": "approve"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_Auth(t *testing.T) {
	s := newTestServer(t)
	s.signup("alice", "0")

	rec := s.do(http.MethodPost, "/api/auth/register", nil, map[string]string{"username": "alice", "password": "x"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, "/api/auth/login", nil, map[string]string{"username": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/api/auth/register", nil, "{")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

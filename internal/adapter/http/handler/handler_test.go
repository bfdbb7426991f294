package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bank-ledger/internal/adapter/http/middleware"
	"bank-ledger/internal/core/domain"
	"bank-ledger/internal/core/ports"
	"bank-ledger/internal/core/ports/mocks"
	"bank-ledger/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// withUser stands in for JWTAuth.
func withUser(id uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.CtxUserID, id)
		c.Set(middleware.CtxOwnerID, id.String())
		c.Next()
	}
}

func doJSON(r http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, ok := resp["data"].(map[string]interface{})
	require.True(t, ok, "body: %s", w.Body.String())
	return data
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	code, _ := resp["error_code"].(string)
	return code
}

// --- Auth ---

func TestRegister_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAuth := mocks.NewMockAuthService(ctrl)

	userID := uuid.New()
	mockAuth.EXPECT().Register(gomock.Any(), ports.RegisterRequest{
		Email:    "asha@example.com",
		Password: "password123",
		FullName: "Asha Rao",
		Phone:    "9876543210",
		Aadhar:   "123412341234",
	}).Return(&domain.User{ID: userID, Email: "asha@example.com"}, nil)

	r := gin.New()
	r.POST("/register", NewAuthHandler(mockAuth).Register)

	w := doJSON(r, http.MethodPost, "/register", map[string]string{
		"email":     "asha@example.com",
		"password":  "password123",
		"full_name": "Asha Rao",
		"phone":     "9876543210",
		"aadhar":    "123412341234",
	}, nil)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, userID.String(), data["user_id"])
	assert.Equal(t, "asha@example.com", data["email"])
}

func TestRegister_ValidationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAuth := mocks.NewMockAuthService(ctrl)

	r := gin.New()
	r.POST("/register", NewAuthHandler(mockAuth).Register)

	w := doJSON(r, http.MethodPost, "/register", map[string]string{}, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VAL_001", errorCode(t, w))
}

func TestRegister_EmailExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAuth := mocks.NewMockAuthService(ctrl)
	mockAuth.EXPECT().Register(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrEmailExists())

	r := gin.New()
	r.POST("/register", NewAuthHandler(mockAuth).Register)

	w := doJSON(r, http.MethodPost, "/register", map[string]string{
		"email": "taken@example.com", "password": "password123", "full_name": "T",
		"phone": "9876543210", "aadhar": "123412341234",
	}, nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "AUTH_002", errorCode(t, w))
}

func TestLogin_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAuth := mocks.NewMockAuthService(ctrl)

	expiry := time.Now().Add(24 * time.Hour)
	mockAuth.EXPECT().Login(gomock.Any(), "asha@example.com", "password123").Return("jwt-token", expiry, nil)

	r := gin.New()
	r.POST("/login", NewAuthHandler(mockAuth).Login)

	w := doJSON(r, http.MethodPost, "/login", map[string]string{"email": "asha@example.com", "password": "password123"}, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "jwt-token", data["token"])
	assert.Equal(t, float64(expiry.Unix()), data["expiry"])
}

func TestLogin_InvalidCredentials(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAuth := mocks.NewMockAuthService(ctrl)
	mockAuth.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).Return("", time.Time{}, apperror.ErrInvalidCredentials())

	r := gin.New()
	r.POST("/login", NewAuthHandler(mockAuth).Login)

	w := doJSON(r, http.MethodPost, "/login", map[string]string{"email": "asha@example.com", "password": "wrong"}, nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// --- Accounts ---

func TestAccountMe(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockLedgerService(ctrl)
	userID := uuid.New()

	ledger.EXPECT().GetAccount(gomock.Any(), userID.String()).Return(&domain.Account{
		OwnerID: userID.String(), AccountType: domain.AccountTypeCurrent, Balance: 15000,
	}, nil)

	r := gin.New()
	r.GET("/accounts/me", withUser(userID), NewAccountHandler(ledger).Me)

	w := doJSON(r, http.MethodGet, "/accounts/me", nil, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "150.00", data["balance"])
	assert.Equal(t, "current", data["account_type"])
}

func TestAccountMe_NoAccountYet(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockLedgerService(ctrl)
	userID := uuid.New()

	ledger.EXPECT().GetAccount(gomock.Any(), userID.String()).Return(nil, nil)

	r := gin.New()
	r.GET("/accounts/me", withUser(userID), NewAccountHandler(ledger).Me)

	w := doJSON(r, http.MethodGet, "/accounts/me", nil, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0.00", decodeData(t, w)["balance"])
}

func TestAccountMe_Unauthenticated(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockLedgerService(ctrl)

	r := gin.New()
	r.GET("/accounts/me", NewAccountHandler(ledger).Me)

	w := doJSON(r, http.MethodGet, "/accounts/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDeposit_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockLedgerService(ctrl)
	userID := uuid.New()
	txID := uuid.New()

	ledger.EXPECT().Deposit(gomock.Any(), ports.DepositRequest{
		OwnerID:        userID.String(),
		Amount:         15025,
		AccountType:    domain.AccountTypeCurrent,
		IdempotencyKey: "dep-1",
	}).Return(&domain.Receipt{
		TransactionID: txID,
		Kind:          domain.ReceiptKindDeposit,
		OwnerID:       userID.String(),
		Amount:        15025,
		Balance:       15025,
		CreatedAt:     time.Now(),
	}, nil)

	r := gin.New()
	r.POST("/deposit", withUser(userID), NewAccountHandler(ledger).Deposit)

	w := doJSON(r, http.MethodPost, "/deposit",
		map[string]string{"amount": "150.25", "account_type": "current"},
		map[string]string{HeaderIdempotencyKey: "dep-1"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, w.Header().Get(HeaderIdempotentReplay))
	data := decodeData(t, w)
	assert.Equal(t, txID.String(), data["transaction_id"])
	assert.Equal(t, "150.25", data["amount"])
	assert.Equal(t, "DEPOSIT", data["kind"])
}

func TestDeposit_ReplayAnswers200(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockLedgerService(ctrl)
	userID := uuid.New()

	ledger.EXPECT().Deposit(gomock.Any(), gomock.Any()).Return(&domain.Receipt{
		TransactionID: uuid.New(),
		Kind:          domain.ReceiptKindDeposit,
		Amount:        500,
		Balance:       500,
		Replayed:      true,
	}, nil)

	r := gin.New()
	r.POST("/deposit", withUser(userID), NewAccountHandler(ledger).Deposit)

	w := doJSON(r, http.MethodPost, "/deposit", map[string]string{"amount": "5"}, map[string]string{HeaderIdempotencyKey: "k"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "true", w.Header().Get(HeaderIdempotentReplay))
}

func TestDeposit_InvalidAmount(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockLedgerService(ctrl)
	userID := uuid.New()

	r := gin.New()
	r.POST("/deposit", withUser(userID), NewAccountHandler(ledger).Deposit)

	for _, amount := range []string{"0", "-10", "1.001", "ten"} {
		w := doJSON(r, http.MethodPost, "/deposit", map[string]string{"amount": amount}, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, amount)
		assert.Equal(t, "LED_001", errorCode(t, w), amount)
	}
}

func TestDeposit_InvalidAccountType(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockLedgerService(ctrl)

	r := gin.New()
	r.POST("/deposit", withUser(uuid.New()), NewAccountHandler(ledger).Deposit)

	w := doJSON(r, http.MethodPost, "/deposit", map[string]string{"amount": "10", "account_type": "checking"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "LED_005", errorCode(t, w))
}

func TestDeposit_IdempotencyKeyTooLong(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockLedgerService(ctrl)

	r := gin.New()
	r.POST("/deposit", withUser(uuid.New()), NewAccountHandler(ledger).Deposit)

	long := string(bytes.Repeat([]byte("k"), 129))
	w := doJSON(r, http.MethodPost, "/deposit", map[string]string{"amount": "10"}, map[string]string{HeaderIdempotencyKey: long})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VAL_001", errorCode(t, w))
}

func TestDeposit_StorageErrorIs503(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockLedgerService(ctrl)
	ledger.EXPECT().Deposit(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrStorage(errors.New("conn refused")))

	r := gin.New()
	r.POST("/deposit", withUser(uuid.New()), NewAccountHandler(ledger).Deposit)

	w := doJSON(r, http.MethodPost, "/deposit", map[string]string{"amount": "10"}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, w.Body.String(), "conn refused")
}

// --- Transfers ---

func TestTransfer_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockLedgerService(ctrl)
	sender := uuid.New()
	recipient := uuid.New()

	ledger.EXPECT().Transfer(gomock.Any(), ports.TransferRequest{
		SenderID:    sender.String(),
		RecipientID: recipient.String(),
		Amount:      7000,
	}).Return(&domain.Receipt{
		TransactionID:  uuid.New(),
		Kind:           domain.ReceiptKindTransfer,
		OwnerID:        sender.String(),
		CounterpartyID: recipient.String(),
		Amount:         7000,
		Balance:        8000,
		CreatedAt:      time.Now(),
	}, nil)

	r := gin.New()
	r.POST("/transfers", withUser(sender), NewTransferHandler(ledger).Create)

	w := doJSON(r, http.MethodPost, "/transfers", map[string]string{
		"recipient_id": recipient.String(),
		"amount":       "70.00",
	}, nil)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "80.00", data["balance"])
	assert.Equal(t, recipient.String(), data["counterparty_id"])
}

func TestTransfer_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"insufficient funds", apperror.ErrInsufficientFunds(), http.StatusUnprocessableEntity, "LED_002"},
		{"recipient not found", apperror.ErrRecipientNotFound(), http.StatusNotFound, "LED_003"},
		{"same account", apperror.ErrSameAccount(), http.StatusBadRequest, "LED_004"},
		{"storage", apperror.ErrStorage(errors.New("x")), http.StatusServiceUnavailable, "SYS_001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			ledger := mocks.NewMockLedgerService(ctrl)
			ledger.EXPECT().Transfer(gomock.Any(), gomock.Any()).Return(nil, tt.err)

			r := gin.New()
			r.POST("/transfers", withUser(uuid.New()), NewTransferHandler(ledger).Create)

			w := doJSON(r, http.MethodPost, "/transfers", map[string]string{"recipient_id": uuid.NewString(), "amount": "1"}, nil)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, errorCode(t, w))
		})
	}
}

func TestTransfer_CanonicalizesRecipient(t *testing.T) {
	sender := uuid.New()
	recipient := uuid.New()

	for _, alias := range []string{
		strings.ToUpper(recipient.String()),
		"urn:uuid:" + recipient.String(),
		"{" + recipient.String() + "}",
	} {
		t.Run(alias, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			ledger := mocks.NewMockLedgerService(ctrl)
			ledger.EXPECT().Transfer(gomock.Any(), ports.TransferRequest{
				SenderID:    sender.String(),
				RecipientID: recipient.String(),
				Amount:      100,
			}).Return(&domain.Receipt{Kind: domain.ReceiptKindTransfer, Amount: 100}, nil)

			r := gin.New()
			r.POST("/transfers", withUser(sender), NewTransferHandler(ledger).Create)

			w := doJSON(r, http.MethodPost, "/transfers", map[string]string{"recipient_id": alias, "amount": "1"}, nil)
			assert.Equal(t, http.StatusCreated, w.Code)
		})
	}
}

func TestTransfer_MalformedRecipient(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockLedgerService(ctrl)

	r := gin.New()
	r.POST("/transfers", withUser(uuid.New()), NewTransferHandler(ledger).Create)

	w := doJSON(r, http.MethodPost, "/transfers", map[string]string{"recipient_id": "bob", "amount": "1"}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "LED_003", errorCode(t, w))
}

func TestTransfer_MissingRecipient(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockLedgerService(ctrl)

	r := gin.New()
	r.POST("/transfers", withUser(uuid.New()), NewTransferHandler(ledger).Create)

	w := doJSON(r, http.MethodPost, "/transfers", map[string]string{"amount": "1"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Statements ---

func TestStatements_List(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockLedgerService(ctrl)
	userID := uuid.New()

	ledger.EXPECT().ListStatements(gomock.Any(), ports.StatementListParams{
		OwnerID: userID.String(), Page: 2, PageSize: 10,
	}).Return([]domain.StatementEntry{{
		ID:            uuid.New(),
		TransactionID: uuid.New(),
		OwnerID:       userID.String(),
		Direction:     domain.DirectionCredit,
		Amount:        5000,
		Description:   "Deposit",
		CreatedAt:     time.Now(),
	}}, int64(11), nil)

	r := gin.New()
	r.GET("/statements", withUser(userID), NewStatementHandler(ledger).List)

	w := doJSON(r, http.MethodGet, "/statements?page=2&page_size=10", nil, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, float64(11), data["total"])
	assert.Equal(t, float64(2), data["total_pages"])
	items := data["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "50.00", items[0].(map[string]interface{})["amount"])
}

func TestStatements_EchoesNormalizedPaging(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockLedgerService(ctrl)
	userID := uuid.New()

	ledger.EXPECT().ListStatements(gomock.Any(), ports.StatementListParams{
		OwnerID: userID.String(), Page: 0, PageSize: 1000,
	}).Return(nil, int64(0), nil)

	r := gin.New()
	r.GET("/statements", withUser(userID), NewStatementHandler(ledger).List)

	w := doJSON(r, http.MethodGet, "/statements?page=0&page_size=1000", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, float64(1), data["page"])
	assert.Equal(t, float64(100), data["page_size"])
	assert.Empty(t, data["items"])
}

func TestStatements_PageOutOfRange(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockLedgerService(ctrl)

	ledger.EXPECT().ListStatements(gomock.Any(), gomock.Any()).
		Return(nil, int64(0), apperror.Validation("page out of range"))

	r := gin.New()
	r.GET("/statements", withUser(uuid.New()), NewStatementHandler(ledger).List)

	w := doJSON(r, http.MethodGet, "/statements?page=9223372036854775807", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VAL_001", errorCode(t, w))
}

func TestStatements_BadQuery(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockLedgerService(ctrl)

	r := gin.New()
	r.GET("/statements", withUser(uuid.New()), NewStatementHandler(ledger).List)

	w := doJSON(r, http.MethodGet, "/statements?page=abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Users ---

func TestUserMe(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAuth := mocks.NewMockAuthService(ctrl)
	userID := uuid.New()

	mockAuth.EXPECT().GetProfile(gomock.Any(), userID).Return(&ports.UserProfile{
		ID:           userID,
		Email:        "asha@example.com",
		FullName:     "Asha Rao",
		AadharMasked: "XXXXXXXX1234",
		CreatedAt:    time.Now(),
	}, nil)

	r := gin.New()
	r.GET("/users/me", withUser(userID), NewUserHandler(mockAuth).Me)

	w := doJSON(r, http.MethodGet, "/users/me", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "XXXXXXXX1234", data["aadhar"])
	assert.NotContains(t, w.Body.String(), "123412341234")
}

// --- Health ---

type stubChecker struct {
	name string
	err  error
}

func (s stubChecker) Ping(ctx context.Context) error { return s.err }
func (s stubChecker) Name() string                   { return s.name }

func TestHealthCheck(t *testing.T) {
	r := gin.New()
	r.GET("/ok", HealthCheck(stubChecker{name: "memory"}))
	r.GET("/degraded", HealthCheck(stubChecker{name: "postgresql"}, stubChecker{name: "redis", err: errors.New("down")}))

	w := doJSON(r, http.MethodGet, "/ok", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)

	w = doJSON(r, http.MethodGet, "/degraded", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"degraded"`)
}

// --- Router ---

func TestSetupRouter_RoutesAndAuth(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockLedgerService(ctrl)
	authSvc := mocks.NewMockAuthService(ctrl)
	tokenSvc := mocks.NewMockTokenService(ctrl)

	userID := uuid.New()
	tokenSvc.EXPECT().Validate("tok").Return(&ports.TokenClaims{UserID: userID}, nil)
	ledger.EXPECT().GetAccount(gomock.Any(), userID.String()).Return(nil, nil)

	r := SetupRouter(RouterDeps{
		AuthSvc:        authSvc,
		LedgerSvc:      ledger,
		TokenSvc:       tokenSvc,
		HealthCheckers: []ports.HealthChecker{stubChecker{name: "memory"}},
		Logger:         zerolog.Nop(),
	})

	w := doJSON(r, http.MethodGet, "/api/v1/accounts/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))

	w = doJSON(r, http.MethodGet, "/api/v1/accounts/me", nil, map[string]string{"Authorization": "Bearer tok"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/swagger/spec", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/transfers")

	w = doJSON(r, http.MethodGet, "/swagger", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

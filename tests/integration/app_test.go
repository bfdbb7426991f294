package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpHandler "bank-ledger/internal/adapter/http/handler"
	"bank-ledger/internal/adapter/storage/memory"
	redisStorage "bank-ledger/internal/adapter/storage/redis"
	"bank-ledger/internal/core/ports"
	"bank-ledger/internal/service"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// testApp wires the real HTTP layer, middleware, services and Redis stores
// over the in-process memory store and miniredis.
type testApp struct {
	server *httptest.Server
	redis  *miniredis.Miniredis
	store  *memory.Store
	audits *memory.AuditRepo
	ledger *service.LedgerServiceImpl
}

type appOptions struct {
	rateLimit bool
}

func newTestApp(t *testing.T, opts ...appOptions) *testApp {
	t.Helper()
	var o appOptions
	if len(opts) > 0 {
		o = opts[0]
	}

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	log := zerolog.Nop()
	store := memory.NewStore()
	auditRepo := memory.NewAuditRepo(store)

	encSvc, err := service.NewAESEncryptionService("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	hashSvc := service.NewArgon2HashServiceWithParams(service.Argon2Params{
		Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16,
	})
	tokenSvc := service.NewJWTTokenService("integration-secret-key-32-bytes!!", time.Hour, "bank-ledger-test")

	authSvc := service.NewAuthService(memory.NewUserRepo(store), hashSvc, encSvc, tokenSvc)
	ledgerSvc := service.NewLedgerService(
		memory.NewAccountRepo(store),
		memory.NewStatementRepo(store),
		memory.NewIdempotencyRepo(store),
		redisStorage.NewIdempotencyCache(rdb),
		authSvc,
		store,
		service.LedgerOptions{MaxRetries: 3},
		log,
	)

	deps := httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		LedgerSvc:      ledgerSvc,
		TokenSvc:       tokenSvc,
		AuditSvc:       service.NewAuditService(auditRepo, log),
		HealthCheckers: []ports.HealthChecker{memory.NewHealthCheck(), redisStorage.NewHealthCheck(rdb)},
		Logger:         log,
	}
	if o.rateLimit {
		deps.RateLimitStore = redisStorage.NewRateLimitStore(rdb)
	}

	server := httptest.NewServer(httpHandler.SetupRouter(deps))
	t.Cleanup(server.Close)

	return &testApp{server: server, redis: mr, store: store, audits: auditRepo, ledger: ledgerSvc}
}

type envelope struct {
	Data      json.RawMessage `json:"data"`
	ErrorCode string          `json:"error_code"`
	Message   string          `json:"message"`
}

type receipt struct {
	TransactionID  string `json:"transaction_id"`
	Kind           string `json:"kind"`
	CounterpartyID string `json:"counterparty_id"`
	Amount         string `json:"amount"`
	Balance        string `json:"balance"`
}

type statementPage struct {
	Items []struct {
		TransactionID string `json:"transaction_id"`
		Direction     string `json:"direction"`
		Amount        string `json:"amount"`
		Description   string `json:"description"`
		CreatedAt     string `json:"created_at"`
	} `json:"items"`
	Total int64 `json:"total"`
}

// call sends a JSON request and decodes the envelope. out may be nil.
func (a *testApp) call(t *testing.T, method, path, token string, body interface{}, headers map[string]string, out interface{}) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), "body: %s", raw)
	}
	if out != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
	return resp.StatusCode, env
}

type user struct {
	ID    string
	Email string
	Token string
}

var userSeq int

// signUp registers a fresh user and logs in.
func (a *testApp) signUp(t *testing.T, name string) user {
	t.Helper()
	userSeq++
	email := fmt.Sprintf("%s-%d@example.com", name, userSeq)

	var reg struct {
		UserID string `json:"user_id"`
	}
	status, env := a.call(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":     email,
		"password":  "password123",
		"full_name": name,
		"phone":     "9876543210",
		"aadhar":    "123412341234",
		"pan":       "ABCDE1234F",
	}, nil, &reg)
	require.Equal(t, http.StatusCreated, status, "register: %+v", env)

	var login struct {
		Token string `json:"token"`
	}
	status, env = a.call(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": "password123",
	}, nil, &login)
	require.Equal(t, http.StatusOK, status, "login: %+v", env)

	return user{ID: reg.UserID, Email: email, Token: login.Token}
}

func (a *testApp) deposit(t *testing.T, u user, amount, key string) (int, envelope, receipt) {
	t.Helper()
	var r receipt
	var headers map[string]string
	if key != "" {
		headers = map[string]string{httpHandler.HeaderIdempotencyKey: key}
	}
	status, env := a.call(t, http.MethodPost, "/api/v1/accounts/deposit", u.Token, map[string]string{"amount": amount}, headers, &r)
	return status, env, r
}

func (a *testApp) transfer(t *testing.T, from user, to, amount, key string) (int, envelope, receipt) {
	t.Helper()
	var r receipt
	var headers map[string]string
	if key != "" {
		headers = map[string]string{httpHandler.HeaderIdempotencyKey: key}
	}
	status, env := a.call(t, http.MethodPost, "/api/v1/transfers", from.Token,
		map[string]string{"recipient_id": to, "amount": amount}, headers, &r)
	return status, env, r
}

func (a *testApp) balance(t *testing.T, u user) string {
	t.Helper()
	var acc struct {
		Balance string `json:"balance"`
	}
	status, env := a.call(t, http.MethodGet, "/api/v1/accounts/me", u.Token, nil, nil, &acc)
	require.Equal(t, http.StatusOK, status, "%+v", env)
	return acc.Balance
}

func (a *testApp) statements(t *testing.T, u user) statementPage {
	t.Helper()
	var page statementPage
	status, env := a.call(t, http.MethodGet, "/api/v1/statements?page_size=100", u.Token, nil, nil, &page)
	require.Equal(t, http.StatusOK, status, "%+v", env)
	return page
}

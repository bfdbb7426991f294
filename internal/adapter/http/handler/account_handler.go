package handler

import (
	"net/http"

	"bank-ledger/internal/adapter/http/dto"
	"bank-ledger/internal/adapter/http/middleware"
	"bank-ledger/internal/core/domain"
	"bank-ledger/internal/core/ports"
	"bank-ledger/pkg/apperror"
	"bank-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	// HeaderIdempotencyKey carries the client's idempotency key for mutations.
	HeaderIdempotencyKey = "Idempotency-Key"
	// HeaderIdempotentReplay is set on responses served from a stored receipt.
	HeaderIdempotentReplay = "Idempotent-Replayed"

	maxIdempotencyKeyLen = 128
)

// AccountHandler handles the caller's account and deposits.
type AccountHandler struct {
	ledger ports.LedgerService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(ledger ports.LedgerService) *AccountHandler {
	return &AccountHandler{ledger: ledger}
}

// Me handles GET /api/v1/accounts/me.
func (h *AccountHandler) Me(c *gin.Context) {
	owner, ok := middleware.OwnerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	acc, err := h.ledger.GetAccount(c.Request.Context(), owner)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewAccountResponse(owner, acc))
}

// Deposit handles POST /api/v1/accounts/deposit.
func (h *AccountHandler) Deposit(c *gin.Context) {
	owner, ok := middleware.OwnerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}
	key, err := idempotencyKey(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	receipt, err := h.ledger.Deposit(c.Request.Context(), ports.DepositRequest{
		OwnerID:        owner,
		Amount:         amount,
		AccountType:    domain.AccountType(req.AccountType),
		IdempotencyKey: key,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	writeReceipt(c, receipt)
}

func idempotencyKey(c *gin.Context) (string, error) {
	key := c.GetHeader(HeaderIdempotencyKey)
	if len(key) > maxIdempotencyKeyLen {
		return "", apperror.Validation("Idempotency-Key must be at most 128 characters")
	}
	return key, nil
}

// writeReceipt answers 201 for a new mutation and 200 for a replay.
func writeReceipt(c *gin.Context, receipt *domain.Receipt) {
	c.Set(middleware.CtxResourceID, receipt.TransactionID.String())
	if receipt.Replayed {
		c.Header(HeaderIdempotentReplay, "true")
		response.JSON(c, http.StatusOK, dto.NewReceiptResponse(receipt))
		return
	}
	response.Created(c, dto.NewReceiptResponse(receipt))
}

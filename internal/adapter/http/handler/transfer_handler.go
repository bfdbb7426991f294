package handler

import (
	"bank-ledger/internal/adapter/http/dto"
	"bank-ledger/internal/adapter/http/middleware"
	"bank-ledger/internal/core/domain"
	"bank-ledger/internal/core/ports"
	"bank-ledger/pkg/apperror"
	"bank-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TransferHandler handles transfers between users.
type TransferHandler struct {
	ledger ports.LedgerService
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(ledger ports.LedgerService) *TransferHandler {
	return &TransferHandler{ledger: ledger}
}

// Create handles POST /api/v1/transfers.
func (h *TransferHandler) Create(c *gin.Context) {
	sender, ok := middleware.OwnerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	dto.SanitizeStruct(&req)

	// Accounts are keyed by the canonical id form; uuid.Parse also accepts
	// upper case, braces and urn:uuid: prefixes.
	recipient, err := uuid.Parse(req.RecipientID)
	if err != nil {
		response.Error(c, apperror.ErrRecipientNotFound())
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

	receipt, err := h.ledger.Transfer(c.Request.Context(), ports.TransferRequest{
		SenderID:       sender,
		RecipientID:    recipient.String(),
		Amount:         amount,
		IdempotencyKey: key,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	writeReceipt(c, receipt)
}
